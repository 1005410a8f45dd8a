package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-context-engine/pkg/llm"
	"ai-context-engine/pkg/provider"
)

const (
	// maxRounds bounds the tool loop. Exhausting it forces one final
	// tool-less call; the loop never runs open-ended.
	maxRounds = 8

	// toolTimeout bounds each individual tool call. A hung tool resolves to
	// a structured error result, not a stalled turn.
	toolTimeout = 15 * time.Second
)

// AgentEvent is a progress notification emitted while a loop runs.
type AgentEvent struct {
	Type  string `json:"type"` // "round", "tool", "answer"
	Round int    `json:"round,omitempty"`
	Tool  string `json:"tool,omitempty"`
}

// EventSink receives progress events. Implementations must not block; the
// loop calls them inline.
type EventSink interface {
	Publish(userId uuid.UUID, event AgentEvent)
}

// LoopResult is the outcome of one agent run.
type LoopResult struct {
	Answer    string
	ToolsUsed []string
	Rounds    int
	Pending   []*PendingAction
}

// Loop drives rounds of model calls and concurrent tool execution until the
// model answers in plain text or the round budget runs out.
type Loop struct {
	provider llm.CompletionProvider
	registry *Registry
	events   EventSink
	logger   *log.Logger
	timeout  time.Duration
}

func NewLoop(completions llm.CompletionProvider, registry *Registry, events EventSink, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{
		provider: completions,
		registry: registry,
		events:   events,
		logger:   logger,
		timeout:  toolTimeout,
	}
}

// Run executes the tool loop over the given history. The returned answer is
// always non-empty unless the completion provider itself fails.
func (l *Loop) Run(ctx context.Context, userId uuid.UUID, timezone string, history []llm.Message) (*LoopResult, error) {
	msgs := append([]llm.Message(nil), history...)
	defs := l.registry.Definitions()
	result := &LoopResult{}

	for round := 1; round <= maxRounds; round++ {
		l.emit(userId, AgentEvent{Type: "round", Round: round})
		l.logger.Printf("[AGENT] Round %d/%d (%d messages)", round, maxRounds, len(msgs))

		res, err := l.provider.ChatWithTools(ctx, msgs, defs)
		if err != nil {
			return nil, fmt.Errorf("completion round %d: %w", round, err)
		}

		if len(res.ToolCalls) == 0 {
			result.Answer = res.Text
			result.Rounds = round
			l.emit(userId, AgentEvent{Type: "answer"})
			l.logger.Printf("[AGENT] Answered after %d round(s), %d tool call(s)", round, len(result.ToolsUsed))
			return result, nil
		}

		msgs = append(msgs, llm.Message{
			Role:      "assistant",
			Content:   res.Text,
			ToolCalls: res.ToolCalls,
		})
		msgs = append(msgs, l.executeRound(ctx, userId, timezone, round, res.ToolCalls, result)...)
	}

	// Round budget exhausted: one forced call without tools, its text is the
	// answer.
	l.logger.Printf("[AGENT] Round budget exhausted, forcing final answer")
	res, err := l.provider.ChatWithTools(ctx, msgs, nil)
	if err != nil {
		return nil, fmt.Errorf("forced final completion: %w", err)
	}
	result.Answer = res.Text
	result.Rounds = maxRounds
	l.emit(userId, AgentEvent{Type: "answer"})
	return result, nil
}

// executeRound runs all of a round's tool calls concurrently and returns
// their tool-result turns in call order.
func (l *Loop) executeRound(ctx context.Context, userId uuid.UUID, timezone string, round int, calls []llm.ToolCall, result *LoopResult) []llm.Message {
	out := make([]llm.Message, len(calls))

	var wg sync.WaitGroup
	var mu sync.Mutex
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()

			l.emit(userId, AgentEvent{Type: "tool", Round: round, Tool: call.Name})
			started := time.Now()
			payload, pending := l.executeOne(ctx, userId, timezone, call)
			l.logger.Printf("[AGENT] Tool %s finished in %dms", call.Name, time.Since(started).Milliseconds())

			mu.Lock()
			result.ToolsUsed = append(result.ToolsUsed, call.Name)
			if pending != nil {
				result.Pending = append(result.Pending, pending)
			}
			mu.Unlock()

			out[i] = llm.Message{
				Role:       "tool",
				Content:    payload,
				ToolCallID: call.ID,
				Name:       call.Name,
			}
		}(i, call)
	}
	wg.Wait()

	return out
}

// executeOne resolves, times, and runs a single tool call. Every failure
// mode collapses into an {error, hint} payload the model can react to.
func (l *Loop) executeOne(ctx context.Context, userId uuid.UUID, timezone string, call llm.ToolCall) (string, *PendingAction) {
	tool, err := l.registry.Get(call.Name)
	if err != nil {
		l.logger.Printf("[AGENT] %v", err)
		return errorPayload("unknown tool", "Only use the tools listed in the schema."), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	inv := Invocation{
		UserID:   userId,
		CallID:   call.ID,
		Args:     call.Args,
		Timezone: timezone,
	}

	type outcome struct {
		payload string
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		payload, err := tool.Execute(callCtx, inv)
		done <- outcome{payload: payload, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			l.logger.Printf("[AGENT] Tool %s failed: %v", call.Name, o.err)
			if errors.Is(o.err, provider.ErrReconnectRequired) {
				return errorPayload("account connection expired",
					"Tell the user to reconnect their account in settings, then stop."), nil
			}
			return errorPayload("tool failed",
				"Answer with what you already have, or tell the user you could not complete this."), nil
		}
		if producer, ok := tool.(PendingProducer); ok {
			if pending, found := producer.PendingFromResult(inv, o.payload); found {
				return o.payload, pending
			}
		}
		return o.payload, nil

	case <-callCtx.Done():
		l.logger.Printf("[AGENT] Tool %s timed out after %s", call.Name, l.timeout)
		return errorPayload("timed out",
			"The call took too long. Answer with what you already have."), nil
	}
}

func (l *Loop) emit(userId uuid.UUID, event AgentEvent) {
	if l.events != nil {
		l.events.Publish(userId, event)
	}
}

func errorPayload(message string, hint string) string {
	data, _ := json.Marshal(map[string]string{
		"error": message,
		"hint":  hint,
	})
	return string(data)
}
