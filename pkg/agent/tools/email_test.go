package tools

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"ai-context-engine/pkg/agent"
	"ai-context-engine/pkg/embedding"
	"ai-context-engine/pkg/rag/search"
	"ai-context-engine/pkg/store"
)

type memDraftStore struct {
	mu      sync.Mutex
	actions map[string]*agent.PendingAction
	saves   int
}

func newMemDraftStore() *memDraftStore {
	return &memDraftStore{actions: make(map[string]*agent.PendingAction)}
}

func (s *memDraftStore) Consume(ctx context.Context, userId uuid.UUID, actionType string) (*agent.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	action := s.actions[actionType]
	delete(s.actions, actionType)
	return action, nil
}

func (s *memDraftStore) Save(ctx context.Context, action *agent.PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[action.Type] = action
	s.saves++
	return nil
}

type sentMail struct {
	to      []string
	subject string
	body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(to []string, subject string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type stubEmbedder struct{}

func (stubEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2}},
	}, nil
}

func (stubEmbedder) GenerateBatch(texts []string, taskType string) (*embedding.BatchEmbeddingResponse, error) {
	res := &embedding.BatchEmbeddingResponse{}
	for range texts {
		res.Embeddings = append(res.Embeddings, embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2}})
	}
	return res, nil
}

type emailSearcher struct {
	mu         sync.Mutex
	gotSources []string
	results    []store.SearchResult
}

func (s *emailSearcher) HybridSearch(ctx context.Context, ownerId uuid.UUID, queryText string, vec []float32, sourceTypes []string, minScore float64, limit int) ([]store.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotSources = sourceTypes
	return s.results, nil
}

func (s *emailSearcher) VectorSearch(ctx context.Context, ownerId uuid.UUID, vec []float32, sourceTypes []string, minScore float64, limit int) ([]store.SearchResult, error) {
	return nil, nil
}

func (s *emailSearcher) CalendarRange(ctx context.Context, ownerId uuid.UUID, start time.Time, end time.Time) ([]store.SearchResult, error) {
	return nil, nil
}

func TestEmailSearchRestrictsToEmailSources(t *testing.T) {
	searcher := &emailSearcher{results: []store.SearchResult{
		{SourceType: store.SourceEmailSummary, SourceId: "m1", Title: "Re: offsite budget", Text: "Approved, see attached.", FusedScore: 0.8},
		{SourceType: store.SourceEmailChunk, SourceId: "m2", Title: "Fwd: offsite", Text: "Forwarding the thread.", FusedScore: 0.6},
	}}
	batcher := embedding.NewBatcher(stubEmbedder{}, 0, quietLogger())
	tool := NewEmailSearch(batcher, search.NewClient(searcher, quietLogger()))

	payload, err := tool.Execute(context.Background(), testInvocation(map[string]interface{}{
		"query": "did finance approve the offsite budget",
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{store.SourceEmailSummary, store.SourceEmailChunk}
	if len(searcher.gotSources) != 2 || searcher.gotSources[0] != want[0] || searcher.gotSources[1] != want[1] {
		t.Errorf("sources = %v, want %v", searcher.gotSources, want)
	}

	decoded := decodePayload(t, payload)
	if decoded["count"] != float64(2) {
		t.Fatalf("count = %v", decoded["count"])
	}
	hits := listField(t, decoded, "results")
	if hits[0]["title"] != "Re: offsite budget" || hits[0]["source_id"] != "m1" {
		t.Errorf("first hit = %v", hits[0])
	}
}

func TestEmailDraftStagesPendingAction(t *testing.T) {
	tool := NewEmailDraft()
	inv := testInvocation(map[string]interface{}{
		"to":      []interface{}{"bob@example.com"},
		"subject": "Friday plans",
		"body":    "Hey Bob, are we still on for Friday? Let me know.",
	})

	payload, err := tool.Execute(context.Background(), inv)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	decoded := decodePayload(t, payload)
	draftId, _ := decoded["draft_id"].(string)
	if draftId == "" {
		t.Fatal("missing draft_id")
	}
	if decoded["status"] != "pending_confirmation" {
		t.Errorf("status = %v", decoded["status"])
	}

	action, ok := tool.PendingFromResult(inv, payload)
	if !ok {
		t.Fatal("expected a pending action")
	}
	if action.Type != agent.PendingEmailDraft || action.ID != draftId {
		t.Errorf("action = %+v", action)
	}
	if !strings.Contains(action.Summary, "bob@example.com") || !strings.Contains(action.Summary, "Friday plans") {
		t.Errorf("summary = %q", action.Summary)
	}
	if action.Payload["body"] != "Hey Bob, are we still on for Friday? Let me know." {
		t.Errorf("payload body = %v", action.Payload["body"])
	}
}

func TestEmailDraftRequiresRecipientsAndBody(t *testing.T) {
	tool := NewEmailDraft()
	cases := []map[string]interface{}{
		{"body": "hello"},
		{"to": []interface{}{"a@b.c"}},
	}
	for _, args := range cases {
		if _, err := tool.Execute(context.Background(), testInvocation(args)); err == nil {
			t.Errorf("args %v: expected error", args)
		}
	}
}

func TestEmailSendDeliversPendingDraft(t *testing.T) {
	inv := testInvocation(nil)
	pending := newMemDraftStore()
	pending.actions[agent.PendingEmailDraft] = &agent.PendingAction{
		ID:      "d-42",
		UserID:  inv.UserID.String(),
		Type:    agent.PendingEmailDraft,
		Summary: "email to bob@example.com: Friday plans",
		Payload: map[string]interface{}{
			"to":      []interface{}{"bob@example.com", "carol@example.com"},
			"subject": "Friday plans",
			"body":    "Hey both, confirming Friday.",
		},
	}
	mailer := &fakeMailer{}
	tool := NewEmailSend(pending, mailer, quietLogger())

	payload, err := tool.Execute(context.Background(), inv)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	decoded := decodePayload(t, payload)
	if decoded["sent"] != true || decoded["draft_id"] != "d-42" {
		t.Errorf("payload = %v", decoded)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent = %v", mailer.sent)
	}
	if len(mailer.sent[0].to) != 2 || mailer.sent[0].to[1] != "carol@example.com" {
		t.Errorf("to = %v", mailer.sent[0].to)
	}
	if mailer.sent[0].body != "Hey both, confirming Friday." {
		t.Errorf("body = %q", mailer.sent[0].body)
	}

	// The draft is consumed: a second confirmation finds nothing to send.
	payload, err = tool.Execute(context.Background(), inv)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	decoded = decodePayload(t, payload)
	if msg, _ := decoded["error"].(string); !strings.Contains(msg, "no pending email draft") {
		t.Errorf("second send = %v", decoded)
	}
	if len(mailer.sent) != 1 {
		t.Errorf("second send delivered mail: %v", mailer.sent)
	}
}

func TestEmailSendStaleDraftIdRestoresDraft(t *testing.T) {
	inv := testInvocation(map[string]interface{}{"draft_id": "d-old"})
	pending := newMemDraftStore()
	pending.actions[agent.PendingEmailDraft] = &agent.PendingAction{
		ID:      "d-live",
		UserID:  inv.UserID.String(),
		Type:    agent.PendingEmailDraft,
		Payload: map[string]interface{}{"to": []interface{}{"a@b.c"}, "body": "x"},
	}
	mailer := &fakeMailer{}
	tool := NewEmailSend(pending, mailer, quietLogger())

	payload, err := tool.Execute(context.Background(), inv)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	decoded := decodePayload(t, payload)
	if msg, _ := decoded["error"].(string); !strings.Contains(msg, "does not match") {
		t.Errorf("payload = %v", decoded)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("mismatch must not send: %v", mailer.sent)
	}
	if pending.actions[agent.PendingEmailDraft] == nil || pending.saves != 1 {
		t.Error("live draft was not restored")
	}
}

func TestEmailSendSurfacesMailerFailure(t *testing.T) {
	inv := testInvocation(nil)
	pending := newMemDraftStore()
	pending.actions[agent.PendingEmailDraft] = &agent.PendingAction{
		ID:      "d-1",
		UserID:  inv.UserID.String(),
		Type:    agent.PendingEmailDraft,
		Payload: map[string]interface{}{"to": []interface{}{"a@b.c"}, "subject": "s", "body": "x"},
	}
	tool := NewEmailSend(pending, &fakeMailer{err: errors.New("smtp refused")}, quietLogger())

	_, err := tool.Execute(context.Background(), inv)
	if err == nil || !strings.Contains(err.Error(), "send email") {
		t.Fatalf("err = %v", err)
	}
}
