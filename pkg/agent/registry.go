package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ai-context-engine/pkg/llm"
)

// ErrUnknownTool is returned when the model requests a tool that was never
// registered. The loop feeds it back to the model instead of failing the
// turn.
var ErrUnknownTool = errors.New("agent: unknown tool")

// ToolName identifies a registered tool. The model addresses tools by these
// exact strings.
type ToolName string

const (
	ToolSearchContext  ToolName = "search_context"
	ToolCalendarLookup ToolName = "calendar_lookup"
	ToolCalendarCreate ToolName = "calendar_create"
	ToolEmailSearch    ToolName = "email_search"
	ToolEmailDraft     ToolName = "email_draft"
	ToolEmailSend      ToolName = "email_send"
	ToolContactsLookup ToolName = "contacts_lookup"
	ToolPlacesSearch   ToolName = "places_search"
)

// Invocation is one tool call bound to the requesting user.
type Invocation struct {
	UserID   uuid.UUID
	CallID   string
	Args     map[string]interface{}
	Timezone string
}

// Tool is one callable capability. Execute returns a JSON payload the model
// reads as the call's result.
type Tool interface {
	Definition() llm.Tool
	Execute(ctx context.Context, inv Invocation) (string, error)
}

// PendingProducer is implemented by tools whose successful result holds
// state a later confirmation consumes (an unsent draft, a proposed event).
type PendingProducer interface {
	PendingFromResult(inv Invocation, payload string) (*PendingAction, bool)
}

// Registry maps tool names to implementations. Registration order is
// preserved so the schema sent to the model is stable across rounds.
type Registry struct {
	order []ToolName
	tools map[ToolName]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[ToolName]Tool)}
}

func (r *Registry) Register(name ToolName, tool Tool) {
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Get resolves a name coming from the model; unknown names yield
// ErrUnknownTool.
func (r *Registry) Get(name string) (Tool, error) {
	tool, ok := r.tools[ToolName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return tool, nil
}

// Definitions returns the tool schema in registration order.
func (r *Registry) Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, name := range r.order {
		names = append(names, string(name))
	}
	return names
}

func (r *Registry) Len() int {
	return len(r.tools)
}
