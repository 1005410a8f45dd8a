package memory

import (
	"time"

	"ai-context-engine/pkg/store"

	"github.com/patrickmn/go-cache"
)

// AgentSessionRepository keeps hot per-session agent state (last query, last
// path taken, last response id) out of Postgres. Entries expire on their own;
// losing one only costs a little continuity, never correctness.
type AgentSessionRepository struct {
	cache *cache.Cache
}

func NewAgentSessionRepository() *AgentSessionRepository {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &AgentSessionRepository{
		cache: c,
	}
}

func (r *AgentSessionRepository) Save(session *store.AgentSession) {
	session.UpdatedAt = time.Now()
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

func (r *AgentSessionRepository) Get(sessionID string) (*store.AgentSession, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.AgentSession), true
	}
	return nil, false
}

func (r *AgentSessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
