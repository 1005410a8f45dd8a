package store

import "time"

// AgentSession is the in-memory interaction state for one chat session.
// It carries the bits the next turn needs without a DB round trip: what the
// user last asked, which path answered it, and the id of the last response
// so a follow-up reaction can be tied back to it.
type AgentSession struct {
	ID             string    `json:"id"` // ChatSessionID
	UserID         string    `json:"user_id"`
	LastQuery      string    `json:"last_query"`
	LastPath       string    `json:"last_path"` // "agent" | "casual" | "skip"
	LastResponseID string    `json:"last_response_id"`
	UpdatedAt      time.Time `json:"updated_at"`
}
