package dto

import (
	"time"

	"github.com/google/uuid"
)

// --- Sessions ---

type CreateSessionRequest struct {
	Title string `json:"title" validate:"max=200"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Streaming chat ---

type StreamChatRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Message       string    `json:"message" validate:"required"`
	Timezone      string    `json:"timezone,omitempty"` // IANA name, defaults to UTC
}

// StreamEvent is one NDJSON line on the /v2/chat stream. Type is "ack",
// "response" or "error"; the other fields are populated per type.
type StreamEvent struct {
	Type       string     `json:"type"`
	Text       string     `json:"text,omitempty"`
	Response   string     `json:"response,omitempty"`
	ResponseId string     `json:"response_id,omitempty"`
	Message    string     `json:"message,omitempty"`
	Debug      *DebugInfo `json:"_debug,omitempty"`
}

// DebugInfo rides along on response events so clients can show what the
// engine did without a second round trip.
type DebugInfo struct {
	Source    string      `json:"source"`
	Path      string      `json:"path"` // "agent" | "casual" | "skip"
	ToolsUsed []string    `json:"tools_used,omitempty"`
	Timing    TimingDebug `json:"timing"`
}

type TimingDebug struct {
	ContextMs             int64 `json:"context_ms"`
	AgentMs               int64 `json:"agent_ms"`
	OrchestratorLatencyMs int64 `json:"orchestrator_latency_ms"`
	TotalMs               int64 `json:"total_ms"`
}
