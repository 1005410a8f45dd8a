package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Pending action types. One slot per type per user: drafting a second email
// replaces the first.
const PendingEmailDraft = "email_draft"

var pendingTypes = []string{PendingEmailDraft}

const pendingTTL = 30 * time.Minute

// PendingAction is structured state from a prior tool call (an unsent
// draft) held until a later confirmation completes or abandons it.
type PendingAction struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	Type      string                 `json:"type"`
	Summary   string                 `json:"summary"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
}

// PendingStore keeps pending actions in redis so a confirmation landing on
// another instance still finds the draft. Nil client degrades to a no-op
// store: drafts just won't survive the turn.
type PendingStore struct {
	rdb    *redis.Client
	logger *log.Logger
}

func NewPendingStore(rdb *redis.Client, logger *log.Logger) *PendingStore {
	if logger == nil {
		logger = log.Default()
	}
	return &PendingStore{rdb: rdb, logger: logger}
}

func pendingKey(userId string, actionType string) string {
	return fmt.Sprintf("pending:%s:%s", userId, actionType)
}

func (s *PendingStore) Save(ctx context.Context, action *PendingAction) error {
	if s.rdb == nil {
		return nil
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now()
	}
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("marshal pending action: %w", err)
	}
	if err := s.rdb.Set(ctx, pendingKey(action.UserID, action.Type), data, pendingTTL).Err(); err != nil {
		return fmt.Errorf("save pending action: %w", err)
	}
	s.logger.Printf("[PENDING] Saved %s for user %s: %s", action.Type, action.UserID, action.Summary)
	return nil
}

// Load returns the pending action of the given type, or nil when there is
// none. Expiry and absence look the same to the caller.
func (s *PendingStore) Load(ctx context.Context, userId uuid.UUID, actionType string) (*PendingAction, error) {
	if s.rdb == nil {
		return nil, nil
	}
	data, err := s.rdb.Get(ctx, pendingKey(userId.String(), actionType)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending action: %w", err)
	}
	var action PendingAction
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, fmt.Errorf("decode pending action: %w", err)
	}
	return &action, nil
}

// Consume atomically removes and returns the pending action, so two
// concurrent "send it" confirmations cannot both fire.
func (s *PendingStore) Consume(ctx context.Context, userId uuid.UUID, actionType string) (*PendingAction, error) {
	if s.rdb == nil {
		return nil, nil
	}
	data, err := s.rdb.GetDel(ctx, pendingKey(userId.String(), actionType)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consume pending action: %w", err)
	}
	var action PendingAction
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, fmt.Errorf("decode pending action: %w", err)
	}
	s.logger.Printf("[PENDING] Consumed %s for user %s", actionType, userId)
	return &action, nil
}

// Summaries lists the user's live pending actions for the system prompt, so
// the model knows a "send it" has something to refer to.
func (s *PendingStore) Summaries(ctx context.Context, userId uuid.UUID) []string {
	if s.rdb == nil {
		return nil
	}
	var out []string
	for _, t := range pendingTypes {
		action, err := s.Load(ctx, userId, t)
		if err != nil {
			s.logger.Printf("[PENDING] Load %s failed for user %s: %v", t, userId, err)
			continue
		}
		if action != nil {
			out = append(out, fmt.Sprintf("%s: %s", action.Type, action.Summary))
		}
	}
	return out
}
