package llm

import (
	"context"
	"errors"
)

// ErrToolsUnsupported is returned by providers that cannot execute
// function-calling requests. The factory refuses such providers for the
// agent path; callers treat it as a configuration error, not a runtime one.
var ErrToolsUnsupported = errors.New("llm: provider does not support tool calling")

// Message represents a chat message in a provider-agnostic format.
// Assistant messages may carry tool call requests; tool-result messages
// carry the id and name of the call they answer.
type Message struct {
	Role       string // "user", "assistant", "system", "tool"
	Content    string
	ToolCalls  []ToolCall // set on assistant messages that requested tools
	ToolCallID string     // set on role "tool" messages
	Name       string     // tool name, set on role "tool" messages
}

// Tool describes one callable function exposed to the model. Parameters is
// a JSON-schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ToolCall is a single function invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]interface{}
}

// ChatResult is the outcome of one completion round: free text, tool call
// requests, or both.
type ChatResult struct {
	Text      string
	ToolCalls []ToolCall
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// CompletionProvider defines the contract for any completion backend.
type CompletionProvider interface {
	// Chat sends a chat history to the model and returns the response text
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// ChatWithTools sends history plus a tool schema; the model may answer
	// with text, zero or more tool calls, or both.
	ChatWithTools(ctx context.Context, history []Message, tools []Tool, options ...Option) (*ChatResult, error)
}
