package search

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"ai-context-engine/pkg/rag/temporal"
	"ai-context-engine/pkg/store"
)

const (
	// DefaultMinScore rejects near-irrelevant matches while keeping recall.
	DefaultMinScore = 0.28
	DefaultLimit    = 15
)

// Client issues corpus searches and absorbs store failures: the hybrid
// ranking is preferred, vector-only is the fallback, and an error on both
// legs degrades to an empty result. Store errors never reach the caller.
type Client struct {
	searcher store.DocumentSearcher
	logger   *log.Logger
}

func NewClient(searcher store.DocumentSearcher, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{searcher: searcher, logger: logger}
}

// Search runs the fused semantic+lexical ranking. A nil embedding means the
// embed step was dropped for this sub-query; the search is skipped rather
// than run blind.
func (c *Client) Search(ctx context.Context, ownerId uuid.UUID, queryText string, embedding []float32, sourceTypes []string, minScore float64, limit int) []store.SearchResult {
	if embedding == nil {
		c.logger.Printf("[SEARCH] skipping %q: no embedding", snippet(queryText))
		return nil
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	results, err := c.searcher.HybridSearch(ctx, ownerId, queryText, embedding, sourceTypes, minScore, limit)
	if err == nil {
		return results
	}
	c.logger.Printf("[SEARCH] hybrid failed for %q, falling back to vector-only: %v", snippet(queryText), err)

	results, err = c.searcher.VectorSearch(ctx, ownerId, embedding, sourceTypes, minScore, limit)
	if err != nil {
		c.logger.Printf("[SEARCH] vector fallback failed for %q: %v", snippet(queryText), err)
		return nil
	}
	// The fallback has no lexical leg; its fused score is the semantic one.
	for i := range results {
		results[i].FusedScore = results[i].SemanticScore
		results[i].LexicalScore = 0
	}
	return results
}

// CalendarSearch reads calendar documents by event-start range, bypassing
// embeddings entirely. A single event may be indexed more than once, so
// hits are deduplicated by the underlying event id, then tagged relative to
// wall-clock now and ordered by start time.
func (c *Client) CalendarSearch(ctx context.Context, ownerId uuid.UUID, rng *temporal.Range, now time.Time) []store.SearchResult {
	if rng == nil {
		return nil
	}

	hits, err := c.searcher.CalendarRange(ctx, ownerId, rng.Start, rng.End)
	if err != nil {
		c.logger.Printf("[SEARCH] calendar range read failed: %v", err)
		return nil
	}

	seen := make(map[string]struct{}, len(hits))
	out := make([]store.SearchResult, 0, len(hits))
	for _, h := range hits {
		if _, dup := seen[h.SourceId]; dup {
			continue
		}
		seen[h.SourceId] = struct{}{}

		if h.EventStart != nil {
			var end time.Time
			if h.EventEnd != nil {
				end = *h.EventEnd
			}
			h.TemporalTag = temporal.Tag(*h.EventStart, end, now)
		}
		out = append(out, h)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].EventStart == nil || out[j].EventStart == nil {
			return out[j].EventStart == nil
		}
		return out[i].EventStart.Before(*out[j].EventStart)
	})
	return out
}

func snippet(s string) string {
	runes := []rune(s)
	if len(runes) > 40 {
		return string(runes[:40]) + "..."
	}
	return s
}
