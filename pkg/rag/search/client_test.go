package search

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"

	"ai-context-engine/pkg/rag/temporal"
	"ai-context-engine/pkg/store"
)

type fakeSearcher struct {
	hybridErr   error
	vectorErr   error
	calendarErr error

	hybridResults   []store.SearchResult
	vectorResults   []store.SearchResult
	calendarResults []store.SearchResult

	lastMinScore float64
	lastLimit    int
	vectorCalls  int
}

func (f *fakeSearcher) HybridSearch(ctx context.Context, ownerId uuid.UUID, queryText string, embedding []float32, sourceTypes []string, minScore float64, limit int) ([]store.SearchResult, error) {
	f.lastMinScore = minScore
	f.lastLimit = limit
	if f.hybridErr != nil {
		return nil, f.hybridErr
	}
	return f.hybridResults, nil
}

func (f *fakeSearcher) VectorSearch(ctx context.Context, ownerId uuid.UUID, embedding []float32, sourceTypes []string, minScore float64, limit int) ([]store.SearchResult, error) {
	f.vectorCalls++
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	return f.vectorResults, nil
}

func (f *fakeSearcher) CalendarRange(ctx context.Context, ownerId uuid.UUID, start time.Time, end time.Time) ([]store.SearchResult, error) {
	if f.calendarErr != nil {
		return nil, f.calendarErr
	}
	return f.calendarResults, nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestSearchAppliesDefaults(t *testing.T) {
	fake := &fakeSearcher{hybridResults: []store.SearchResult{{DocumentId: "d1"}}}
	client := NewClient(fake, quietLogger())

	results := client.Search(context.Background(), uuid.New(), "q", []float32{0.1}, nil, 0, 0)

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if fake.lastMinScore != DefaultMinScore {
		t.Errorf("minScore = %v, want %v", fake.lastMinScore, DefaultMinScore)
	}
	if fake.lastLimit != DefaultLimit {
		t.Errorf("limit = %d, want %d", fake.lastLimit, DefaultLimit)
	}
	if fake.vectorCalls != 0 {
		t.Errorf("vector fallback should not run when hybrid succeeds")
	}
}

func TestSearchFallsBackToVectorOnly(t *testing.T) {
	fake := &fakeSearcher{
		hybridErr: errors.New("ts_rank: relation does not exist"),
		vectorResults: []store.SearchResult{
			{DocumentId: "d1", SemanticScore: 0.91, LexicalScore: 0.5, FusedScore: 0.7},
		},
	}
	client := NewClient(fake, quietLogger())

	results := client.Search(context.Background(), uuid.New(), "q", []float32{0.1}, nil, 0.3, 10)

	if fake.vectorCalls != 1 {
		t.Fatalf("expected exactly one vector fallback call, got %d", fake.vectorCalls)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].FusedScore != results[0].SemanticScore {
		t.Errorf("fallback fused score = %v, want semantic score %v", results[0].FusedScore, results[0].SemanticScore)
	}
	if results[0].LexicalScore != 0 {
		t.Errorf("fallback lexical score = %v, want 0", results[0].LexicalScore)
	}
}

func TestSearchAbsorbsTotalFailure(t *testing.T) {
	fake := &fakeSearcher{
		hybridErr: errors.New("connection refused"),
		vectorErr: errors.New("connection refused"),
	}
	client := NewClient(fake, quietLogger())

	results := client.Search(context.Background(), uuid.New(), "q", []float32{0.1}, nil, 0, 0)
	if results != nil {
		t.Fatalf("expected nil results on total failure, got %v", results)
	}
}

func TestSearchSkipsNilEmbedding(t *testing.T) {
	fake := &fakeSearcher{hybridResults: []store.SearchResult{{DocumentId: "d1"}}}
	client := NewClient(fake, quietLogger())

	results := client.Search(context.Background(), uuid.New(), "q", nil, nil, 0, 0)
	if results != nil {
		t.Fatalf("expected nil results for nil embedding, got %v", results)
	}
}

func TestCalendarSearchDeduplicatesAndTags(t *testing.T) {
	now := time.Date(2026, time.August, 21, 12, 0, 0, 0, time.UTC)
	past := now.Add(-3 * time.Hour)
	pastEnd := now.Add(-2 * time.Hour)
	future := now.Add(4 * time.Hour)

	fake := &fakeSearcher{
		calendarResults: []store.SearchResult{
			{DocumentId: "d-future", SourceId: "evt-2", EventStart: &future},
			{DocumentId: "d-past", SourceId: "evt-1", EventStart: &past, EventEnd: &pastEnd},
			{DocumentId: "d-past-dup", SourceId: "evt-1", EventStart: &past, EventEnd: &pastEnd},
		},
	}
	client := NewClient(fake, quietLogger())

	rng := &temporal.Range{Start: now.Add(-24 * time.Hour), End: now.Add(24 * time.Hour), Label: "today"}
	results := client.CalendarSearch(context.Background(), uuid.New(), rng, now)

	if len(results) != 2 {
		t.Fatalf("expected 2 results after dedupe, got %d", len(results))
	}
	if results[0].SourceId != "evt-1" || results[1].SourceId != "evt-2" {
		t.Errorf("expected chronological order evt-1, evt-2; got %s, %s", results[0].SourceId, results[1].SourceId)
	}
	if results[0].TemporalTag != temporal.TagAlreadyHappened {
		t.Errorf("past event tag = %q, want %q", results[0].TemporalTag, temporal.TagAlreadyHappened)
	}
	if results[1].TemporalTag != temporal.TagUpcoming {
		t.Errorf("future event tag = %q, want %q", results[1].TemporalTag, temporal.TagUpcoming)
	}
}

func TestCalendarSearchNilRange(t *testing.T) {
	fake := &fakeSearcher{calendarResults: []store.SearchResult{{DocumentId: "d1"}}}
	client := NewClient(fake, quietLogger())

	if results := client.CalendarSearch(context.Background(), uuid.New(), nil, time.Now()); results != nil {
		t.Fatalf("expected nil results for nil range, got %v", results)
	}
}

func TestCalendarSearchAbsorbsError(t *testing.T) {
	fake := &fakeSearcher{calendarErr: errors.New("timeout")}
	client := NewClient(fake, quietLogger())

	rng := &temporal.Range{Start: time.Now(), End: time.Now().Add(time.Hour)}
	if results := client.CalendarSearch(context.Background(), uuid.New(), rng, time.Now()); results != nil {
		t.Fatalf("expected nil results on store error, got %v", results)
	}
}
