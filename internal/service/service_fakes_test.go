package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"ai-context-engine/internal/dto"
	"ai-context-engine/internal/entity"
	"ai-context-engine/internal/repository/contract"
	"ai-context-engine/internal/repository/specification"
	"ai-context-engine/internal/repository/unitofwork"
	"ai-context-engine/pkg/agent"
	"ai-context-engine/pkg/llm"
	"ai-context-engine/pkg/store"

	"github.com/google/uuid"
)

// memStore backs the in-memory unit of work shared by the service tests.
// Repositories copy entities in and out so test code never aliases stored
// state, same as rows do.
type memStore struct {
	mu sync.Mutex

	sessions []*entity.ChatSession
	turns    []*entity.ConversationTurn
	accounts []*entity.ProviderAccount
	keys     []*entity.ServiceKey
	docs     []*entity.Document

	failTurnCreate bool
	wipedSources   []string
}

func newMemStore() *memStore { return &memStore{} }

func (s *memStore) factory() unitofwork.RepositoryFactory { return &memUowFactory{s: s} }

func (s *memStore) turnsForSession(sessionId uuid.UUID) []*entity.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.ConversationTurn
	for _, t := range s.turns {
		if t.ChatSessionId == sessionId {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

func (s *memStore) sessionById(id uuid.UUID) *entity.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.Id == id {
			cp := *sess
			return &cp
		}
	}
	return nil
}

type memUowFactory struct{ s *memStore }

func (f *memUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &memUow{s: f.s}
}

type memUow struct {
	s    *memStore
	inTx bool
}

func (u *memUow) Begin(ctx context.Context) error {
	if u.inTx {
		return errors.New("transaction already started")
	}
	u.inTx = true
	return nil
}

func (u *memUow) Commit() error {
	if !u.inTx {
		return errors.New("no transaction to commit")
	}
	u.inTx = false
	return nil
}

func (u *memUow) Rollback() error {
	if !u.inTx {
		return errors.New("no transaction to rollback")
	}
	u.inTx = false
	return nil
}

func (u *memUow) DocumentRepository() contract.DocumentRepository {
	return &memDocumentRepo{s: u.s}
}

func (u *memUow) ChatSessionRepository() contract.ChatSessionRepository {
	return &memSessionRepo{s: u.s}
}

func (u *memUow) ConversationTurnRepository() contract.ConversationTurnRepository {
	return &memTurnRepo{s: u.s}
}

func (u *memUow) ProviderAccountRepository() contract.ProviderAccountRepository {
	return &memAccountRepo{s: u.s}
}

func (u *memUow) ServiceKeyRepository() contract.ServiceKeyRepository {
	return &memKeyRepo{s: u.s}
}

// orderDesc reports whether the specs ask for a descending created_at sort.
// The fakes only understand created_at ordering; that is the only field the
// services sort by.
func orderSpec(specs []specification.Specification) (found bool, desc bool) {
	for _, sp := range specs {
		if o, ok := sp.(specification.OrderBy); ok {
			return true, o.Desc
		}
	}
	return false, false
}

// --- chat sessions ---

type memSessionRepo struct{ s *memStore }

func sessionMatches(sess *entity.ChatSession, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch v := sp.(type) {
		case specification.ByID:
			if sess.Id != v.ID {
				return false
			}
		case specification.ByUserID:
			if sess.UserId != v.UserID {
				return false
			}
		}
	}
	return true
}

func (r *memSessionRepo) Create(ctx context.Context, sess *entity.ChatSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *sess
	r.s.sessions = append(r.s.sessions, &cp)
	return nil
}

func (r *memSessionRepo) Update(ctx context.Context, sess *entity.ChatSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, it := range r.s.sessions {
		if it.Id == sess.Id {
			cp := *sess
			r.s.sessions[i] = &cp
		}
	}
	return nil
}

func (r *memSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.sessions[:0]
	for _, it := range r.s.sessions {
		if it.Id != id {
			kept = append(kept, it)
		}
	}
	r.s.sessions = kept
	return nil
}

func (r *memSessionRepo) DeleteAllByUserIdUnscoped(ctx context.Context, userId uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.sessions[:0]
	for _, it := range r.s.sessions {
		if it.UserId != userId {
			kept = append(kept, it)
		}
	}
	r.s.sessions = kept
	return nil
}

func (r *memSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.sessions {
		if sessionMatches(it, specs) {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ChatSession
	for _, it := range r.s.sessions {
		if sessionMatches(it, specs) {
			cp := *it
			out = append(out, &cp)
		}
	}
	if found, desc := orderSpec(specs); found {
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	}
	return out, nil
}

func (r *memSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

// --- conversation turns ---

type memTurnRepo struct{ s *memStore }

func turnMatches(turn *entity.ConversationTurn, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch v := sp.(type) {
		case specification.ByChatSessionID:
			if turn.ChatSessionId != v.ChatSessionID {
				return false
			}
		case specification.ByUserID:
			if turn.UserId != v.UserID {
				return false
			}
		case specification.ByID:
			if turn.Id != v.ID {
				return false
			}
		}
	}
	return true
}

func (r *memTurnRepo) Create(ctx context.Context, turn *entity.ConversationTurn) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failTurnCreate {
		return errors.New("turn write refused")
	}
	cp := *turn
	r.s.turns = append(r.s.turns, &cp)
	return nil
}

func (r *memTurnRepo) CreateBulk(ctx context.Context, turns []*entity.ConversationTurn) error {
	for _, turn := range turns {
		if err := r.Create(ctx, turn); err != nil {
			return err
		}
	}
	return nil
}

func (r *memTurnRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.turns[:0]
	for _, it := range r.s.turns {
		if it.Id != id {
			kept = append(kept, it)
		}
	}
	r.s.turns = kept
	return nil
}

func (r *memTurnRepo) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.turns[:0]
	for _, it := range r.s.turns {
		if it.ChatSessionId != sessionId {
			kept = append(kept, it)
		}
	}
	r.s.turns = kept
	return nil
}

func (r *memTurnRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ConversationTurn, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.turns {
		if turnMatches(it, specs) {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memTurnRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ConversationTurn, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ConversationTurn
	for _, it := range r.s.turns {
		if turnMatches(it, specs) {
			cp := *it
			out = append(out, &cp)
		}
	}
	if found, desc := orderSpec(specs); found {
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	}
	return out, nil
}

func (r *memTurnRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

// --- provider accounts ---

type memAccountRepo struct{ s *memStore }

func accountMatches(acc *entity.ProviderAccount, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch v := sp.(type) {
		case specification.ByID:
			if acc.Id != v.ID {
				return false
			}
		case specification.ByUserID:
			if acc.UserId != v.UserID {
				return false
			}
		case specification.ByProvider:
			if acc.Provider != v.Provider {
				return false
			}
		case specification.ByEmail:
			if acc.Email != v.Email {
				return false
			}
		case specification.PrimaryOnly:
			if !acc.IsPrimary {
				return false
			}
		}
	}
	return true
}

func (r *memAccountRepo) Create(ctx context.Context, acc *entity.ProviderAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *acc
	r.s.accounts = append(r.s.accounts, &cp)
	return nil
}

func (r *memAccountRepo) Update(ctx context.Context, acc *entity.ProviderAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, it := range r.s.accounts {
		if it.Id == acc.Id {
			cp := *acc
			r.s.accounts[i] = &cp
		}
	}
	return nil
}

func (r *memAccountRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.accounts[:0]
	for _, it := range r.s.accounts {
		if it.Id != id {
			kept = append(kept, it)
		}
	}
	r.s.accounts = kept
	return nil
}

func (r *memAccountRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ProviderAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.accounts {
		if accountMatches(it, specs) {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memAccountRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ProviderAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ProviderAccount
	for _, it := range r.s.accounts {
		if accountMatches(it, specs) {
			cp := *it
			out = append(out, &cp)
		}
	}
	if found, desc := orderSpec(specs); found {
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	}
	return out, nil
}

func (r *memAccountRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

// --- service keys ---

type memKeyRepo struct{ s *memStore }

func keyMatches(key *entity.ServiceKey, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch v := sp.(type) {
		case specification.ByName:
			if key.Name != v.Name {
				return false
			}
		case specification.NotRevoked:
			if key.RevokedAt != nil {
				return false
			}
		}
	}
	return true
}

func (r *memKeyRepo) Create(ctx context.Context, key *entity.ServiceKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *key
	r.s.keys = append(r.s.keys, &cp)
	return nil
}

func (r *memKeyRepo) Update(ctx context.Context, key *entity.ServiceKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, it := range r.s.keys {
		if it.Id == key.Id {
			cp := *key
			r.s.keys[i] = &cp
		}
	}
	return nil
}

func (r *memKeyRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ServiceKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.keys {
		if keyMatches(it, specs) {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memKeyRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ServiceKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ServiceKey
	for _, it := range r.s.keys {
		if keyMatches(it, specs) {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- documents ---

type memDocumentRepo struct{ s *memStore }

func (r *memDocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *doc
	r.s.docs = append(r.s.docs, &cp)
	return nil
}

func (r *memDocumentRepo) CreateBulk(ctx context.Context, docs []*entity.Document) error {
	for _, doc := range docs {
		if err := r.Create(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

func (r *memDocumentRepo) Update(ctx context.Context, doc *entity.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, it := range r.s.docs {
		if it.Id == doc.Id {
			cp := *doc
			r.s.docs[i] = &cp
		}
	}
	return nil
}

func (r *memDocumentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.docs[:0]
	for _, it := range r.s.docs {
		if it.Id != id {
			kept = append(kept, it)
		}
	}
	r.s.docs = kept
	return nil
}

func (r *memDocumentRepo) DeleteBySourceIdUnscoped(ctx context.Context, ownerId uuid.UUID, sourceId string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.wipedSources = append(r.s.wipedSources, sourceId)
	kept := r.s.docs[:0]
	for _, it := range r.s.docs {
		if it.OwnerId != ownerId || it.SourceId != sourceId {
			kept = append(kept, it)
		}
	}
	r.s.docs = kept
	return nil
}

func (r *memDocumentRepo) DeleteAllByOwnerIdUnscoped(ctx context.Context, ownerId uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.docs[:0]
	for _, it := range r.s.docs {
		if it.OwnerId != ownerId {
			kept = append(kept, it)
		}
	}
	r.s.docs = kept
	return nil
}

func (r *memDocumentRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.docs) == 0 {
		return nil, nil
	}
	cp := *r.s.docs[0]
	return &cp, nil
}

func (r *memDocumentRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Document, 0, len(r.s.docs))
	for _, it := range r.s.docs {
		cp := *it
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memDocumentRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.docs)), nil
}

func (r *memDocumentRepo) HybridSearch(ctx context.Context, ownerId uuid.UUID, queryText string, embedding []float32, sourceTypes []string, minScore float64, limit int) ([]store.SearchResult, error) {
	return nil, nil
}

func (r *memDocumentRepo) VectorSearch(ctx context.Context, ownerId uuid.UUID, embedding []float32, sourceTypes []string, minScore float64, limit int) ([]store.SearchResult, error) {
	return nil, nil
}

func (r *memDocumentRepo) CalendarRange(ctx context.Context, ownerId uuid.UUID, start time.Time, end time.Time) ([]store.SearchResult, error) {
	return nil, nil
}

// --- llm + stream fakes ---

// stubCompletions serves both the casual Chat call and the two Generate
// callers (ack and planner), telling them apart by prompt shape.
type stubCompletions struct {
	mu sync.Mutex

	chatReply string
	chatErr   error
	ackReply  string
	ackErr    error
	planJSON  string

	chatCalls    int
	lastChatMsgs []llm.Message
	genPrompts   []string
}

func (s *stubCompletions) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatCalls++
	s.lastChatMsgs = append([]llm.Message(nil), history...)
	return s.chatReply, s.chatErr
}

func (s *stubCompletions) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	s.mu.Lock()
	s.genPrompts = append(s.genPrompts, prompt)
	s.mu.Unlock()

	if strings.Contains(prompt, "search_queries") { // planner prompt
		if s.planJSON == "" {
			return "", errors.New("planner offline")
		}
		return s.planJSON, nil
	}
	if s.ackErr != nil {
		return "", s.ackErr
	}
	return s.ackReply, nil
}

func (s *stubCompletions) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.Tool, options ...llm.Option) (*llm.ChatResult, error) {
	return nil, llm.ErrToolsUnsupported
}

// scriptedToolProvider drives the agent loop round by round.
type scriptedToolProvider struct {
	mu        sync.Mutex
	calls     int
	histories [][]llm.Message
	script    func(call int) (*llm.ChatResult, error)
}

func (s *scriptedToolProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedToolProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedToolProvider) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.Tool, options ...llm.Option) (*llm.ChatResult, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.histories = append(s.histories, append([]llm.Message(nil), history...))
	s.mu.Unlock()
	return s.script(n)
}

// cannedTool returns a fixed payload under a fixed name.
type cannedTool struct {
	name    string
	payload string
}

func (t cannedTool) Definition() llm.Tool {
	return llm.Tool{Name: t.name, Description: "canned", Parameters: map[string]interface{}{"type": "object"}}
}

func (t cannedTool) Execute(ctx context.Context, inv agent.Invocation) (string, error) {
	return t.payload, nil
}

type sinkRecorder struct {
	mu     sync.Mutex
	events []agent.AgentEvent
}

func (s *sinkRecorder) Publish(userId uuid.UUID, ev agent.AgentEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// eventCollector gathers everything a StreamChat call emits.
type eventCollector struct {
	mu     sync.Mutex
	events []*dto.StreamEvent
}

func (c *eventCollector) emit(ev *dto.StreamEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *eventCollector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Type)
	}
	return out
}

func (c *eventCollector) last() *dto.StreamEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return nil
	}
	return c.events[len(c.events)-1]
}
