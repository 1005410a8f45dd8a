package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"ai-context-engine/pkg/llm"
	"ai-context-engine/pkg/provider"
)

type scriptedAgent struct {
	mu        sync.Mutex
	calls     int
	histories [][]llm.Message
	script    func(call int, tools []llm.Tool) (*llm.ChatResult, error)
}

func (s *scriptedAgent) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedAgent) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedAgent) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.Tool, options ...llm.Option) (*llm.ChatResult, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.histories = append(s.histories, append([]llm.Message(nil), history...))
	s.mu.Unlock()
	return s.script(n, tools)
}

type echoTool struct{}

func (echoTool) Definition() llm.Tool {
	return llm.Tool{Name: "echo", Description: "echoes its arguments", Parameters: map[string]interface{}{"type": "object"}}
}

func (echoTool) Execute(ctx context.Context, inv Invocation) (string, error) {
	data, _ := json.Marshal(inv.Args)
	return string(data), nil
}

type hangingTool struct{}

func (hangingTool) Definition() llm.Tool {
	return llm.Tool{Name: "hang", Description: "never returns in time", Parameters: map[string]interface{}{"type": "object"}}
}

func (hangingTool) Execute(ctx context.Context, inv Invocation) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type deadGrantTool struct{}

func (deadGrantTool) Definition() llm.Tool {
	return llm.Tool{Name: "calendar_lookup", Description: "always needs reconnect", Parameters: map[string]interface{}{"type": "object"}}
}

func (deadGrantTool) Execute(ctx context.Context, inv Invocation) (string, error) {
	return "", provider.ErrReconnectRequired
}

type draftTool struct{}

func (draftTool) Definition() llm.Tool {
	return llm.Tool{Name: "email_draft", Description: "drafts an email", Parameters: map[string]interface{}{"type": "object"}}
}

func (draftTool) Execute(ctx context.Context, inv Invocation) (string, error) {
	return `{"draft_id":"d-123","summary":"email to Sarah about the offsite"}`, nil
}

func (draftTool) PendingFromResult(inv Invocation, payload string) (*PendingAction, bool) {
	var res struct {
		DraftID string `json:"draft_id"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(payload), &res); err != nil || res.DraftID == "" {
		return nil, false
	}
	return &PendingAction{
		ID:      res.DraftID,
		UserID:  inv.UserID.String(),
		Type:    PendingEmailDraft,
		Summary: res.Summary,
	}, true
}

func newTestLoop(provider *scriptedAgent, tools map[ToolName]Tool) *Loop {
	registry := NewRegistry()
	for name, tool := range tools {
		registry.Register(name, tool)
	}
	loop := NewLoop(provider, registry, nil, log.New(io.Discard, "", 0))
	loop.timeout = 100 * time.Millisecond
	return loop
}

func toolCallResult(calls ...llm.ToolCall) (*llm.ChatResult, error) {
	return &llm.ChatResult{ToolCalls: calls}, nil
}

func TestRunReturnsTextWithoutTools(t *testing.T) {
	agent := &scriptedAgent{script: func(call int, tools []llm.Tool) (*llm.ChatResult, error) {
		return &llm.ChatResult{Text: "All done."}, nil
	}}
	loop := newTestLoop(agent, map[ToolName]Tool{"echo": echoTool{}})

	result, err := loop.Run(context.Background(), uuid.New(), "UTC", []llm.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Answer != "All done." {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.Rounds != 1 || len(result.ToolsUsed) != 0 {
		t.Errorf("rounds = %d, tools = %v", result.Rounds, result.ToolsUsed)
	}
}

func TestRunExecutesToolsThenAnswers(t *testing.T) {
	agent := &scriptedAgent{script: func(call int, tools []llm.Tool) (*llm.ChatResult, error) {
		if call == 1 {
			return toolCallResult(
				llm.ToolCall{ID: "c1", Name: "echo", Args: map[string]interface{}{"q": "first"}},
				llm.ToolCall{ID: "c2", Name: "echo", Args: map[string]interface{}{"q": "second"}},
			)
		}
		return &llm.ChatResult{Text: "Found it."}, nil
	}}
	loop := newTestLoop(agent, map[ToolName]Tool{"echo": echoTool{}})

	result, err := loop.Run(context.Background(), uuid.New(), "UTC", []llm.Message{{Role: "user", Content: "go"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Answer != "Found it." || result.Rounds != 2 {
		t.Fatalf("answer = %q, rounds = %d", result.Answer, result.Rounds)
	}
	if len(result.ToolsUsed) != 2 {
		t.Fatalf("tools used = %v", result.ToolsUsed)
	}

	// Second model call must see the assistant turn plus both tool results,
	// in call order.
	second := agent.histories[1]
	if len(second) != 4 {
		t.Fatalf("second round history length = %d, want 4", len(second))
	}
	if second[1].Role != "assistant" || len(second[1].ToolCalls) != 2 {
		t.Errorf("expected assistant turn carrying the tool calls, got %+v", second[1])
	}
	if second[2].ToolCallID != "c1" || second[3].ToolCallID != "c2" {
		t.Errorf("tool results out of order: %q then %q", second[2].ToolCallID, second[3].ToolCallID)
	}
	if !strings.Contains(second[2].Content, "first") {
		t.Errorf("first tool result = %q", second[2].Content)
	}
}

func TestRunForcesFinalAnswerAtRoundBudget(t *testing.T) {
	agent := &scriptedAgent{script: func(call int, tools []llm.Tool) (*llm.ChatResult, error) {
		if len(tools) == 0 {
			return &llm.ChatResult{Text: "Best I could find."}, nil
		}
		return toolCallResult(llm.ToolCall{ID: "c", Name: "echo", Args: map[string]interface{}{}})
	}}
	loop := newTestLoop(agent, map[ToolName]Tool{"echo": echoTool{}})

	result, err := loop.Run(context.Background(), uuid.New(), "UTC", []llm.Message{{Role: "user", Content: "spin"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Answer != "Best I could find." {
		t.Fatalf("answer = %q, want the forced final text", result.Answer)
	}
	if agent.calls != maxRounds+1 {
		t.Errorf("provider calls = %d, want %d rounds plus the forced call", agent.calls, maxRounds+1)
	}
}

func TestRunTimeoutYieldsStructuredError(t *testing.T) {
	agent := &scriptedAgent{script: func(call int, tools []llm.Tool) (*llm.ChatResult, error) {
		if call == 1 {
			return toolCallResult(llm.ToolCall{ID: "c1", Name: "hang", Args: map[string]interface{}{}})
		}
		return &llm.ChatResult{Text: "Moving on."}, nil
	}}
	loop := newTestLoop(agent, map[ToolName]Tool{"hang": hangingTool{}})

	result, err := loop.Run(context.Background(), uuid.New(), "UTC", []llm.Message{{Role: "user", Content: "slow"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Answer != "Moving on." {
		t.Fatalf("answer = %q", result.Answer)
	}

	toolResult := agent.histories[1][2]
	var payload struct {
		Error string `json:"error"`
		Hint  string `json:"hint"`
	}
	if err := json.Unmarshal([]byte(toolResult.Content), &payload); err != nil {
		t.Fatalf("tool result is not structured JSON: %q", toolResult.Content)
	}
	if payload.Error == "" || payload.Hint == "" {
		t.Errorf("expected error and hint fields, got %+v", payload)
	}
}

func TestRunUnknownToolFeedsErrorBack(t *testing.T) {
	agent := &scriptedAgent{script: func(call int, tools []llm.Tool) (*llm.ChatResult, error) {
		if call == 1 {
			return toolCallResult(llm.ToolCall{ID: "c1", Name: "no_such_tool", Args: map[string]interface{}{}})
		}
		return &llm.ChatResult{Text: "ok"}, nil
	}}
	loop := newTestLoop(agent, map[ToolName]Tool{"echo": echoTool{}})

	_, err := loop.Run(context.Background(), uuid.New(), "UTC", []llm.Message{{Role: "user", Content: "x"}})
	if err != nil {
		t.Fatalf("unknown tool must not fail the run: %v", err)
	}
	if !strings.Contains(agent.histories[1][2].Content, "unknown tool") {
		t.Errorf("tool result = %q, want unknown-tool error payload", agent.histories[1][2].Content)
	}
}

func TestRunReconnectErrorProducesActionableHint(t *testing.T) {
	agent := &scriptedAgent{script: func(call int, tools []llm.Tool) (*llm.ChatResult, error) {
		if call == 1 {
			return toolCallResult(llm.ToolCall{ID: "c1", Name: "calendar_lookup", Args: map[string]interface{}{}})
		}
		return &llm.ChatResult{Text: "Please reconnect."}, nil
	}}
	loop := newTestLoop(agent, map[ToolName]Tool{ToolCalendarLookup: deadGrantTool{}})

	_, err := loop.Run(context.Background(), uuid.New(), "UTC", []llm.Message{{Role: "user", Content: "calendar?"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(agent.histories[1][2].Content, "reconnect") {
		t.Errorf("tool result = %q, want a reconnect hint", agent.histories[1][2].Content)
	}
}

func TestRunCollectsPendingActions(t *testing.T) {
	agent := &scriptedAgent{script: func(call int, tools []llm.Tool) (*llm.ChatResult, error) {
		if call == 1 {
			return toolCallResult(llm.ToolCall{ID: "c1", Name: "email_draft", Args: map[string]interface{}{"to": "sarah"}})
		}
		return &llm.ChatResult{Text: "Drafted. Want me to send it?"}, nil
	}}
	loop := newTestLoop(agent, map[ToolName]Tool{ToolEmailDraft: draftTool{}})

	userId := uuid.New()
	result, err := loop.Run(context.Background(), userId, "UTC", []llm.Message{{Role: "user", Content: "email sarah"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Pending) != 1 {
		t.Fatalf("pending actions = %d, want 1", len(result.Pending))
	}
	pending := result.Pending[0]
	if pending.Type != PendingEmailDraft || pending.ID != "d-123" || pending.UserID != userId.String() {
		t.Errorf("pending = %+v", pending)
	}
}

func TestRegistryRejectsUnknownNames(t *testing.T) {
	registry := NewRegistry()
	registry.Register("echo", echoTool{})

	if _, err := registry.Get("echo"); err != nil {
		t.Fatalf("known tool lookup failed: %v", err)
	}
	_, err := registry.Get("bogus")
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("err = %v, want ErrUnknownTool", err)
	}
}

func TestRegistryDefinitionsKeepRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	registry.Register("hang", hangingTool{})
	registry.Register("echo", echoTool{})
	registry.Register("hang", hangingTool{}) // overwrite keeps original slot

	defs := registry.Definitions()
	if len(defs) != 2 || defs[0].Name != "hang" || defs[1].Name != "echo" {
		t.Errorf("definitions order = %+v", defs)
	}
}
