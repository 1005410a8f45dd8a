package executor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-context-engine/pkg/embedding"
	"ai-context-engine/pkg/rag/evidence"
	"ai-context-engine/pkg/rag/planner"
	"ai-context-engine/pkg/rag/rank"
	"ai-context-engine/pkg/rag/search"
	"ai-context-engine/pkg/rag/subquery"
	"ai-context-engine/pkg/rag/temporal"
	"ai-context-engine/pkg/store"
)

const (
	// minEvidenceBlocks is the threshold below which the pipeline broadens
	// the search once before settling for what it has.
	minEvidenceBlocks = 3

	// fallbackMinScore relaxes the relevance floor for the broadened
	// re-search; the first pass already rejected everything above it.
	fallbackMinScore = 0.15
)

// Pipeline orchestrates the three-phase retrieval flow
// Phase 1: Resolve (temporal range + plan kickoff + sub-queries)
// Phase 2: Retrieve (batched embed + fan-out searches + plan join)
// Phase 3: Rank & Format (dedupe → diversify → evidence blocks)
type Pipeline struct {
	embedder *embedding.Batcher
	planner  *planner.Planner
	search   *search.Client
	resolver *temporal.Resolver
	logger   *log.Logger
}

// NewPipeline wires the retrieval pipeline from its stages.
func NewPipeline(
	embedder *embedding.Batcher,
	plnr *planner.Planner,
	searchClient *search.Client,
	logger *log.Logger,
) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		embedder: embedder,
		planner:  plnr,
		search:   searchClient,
		resolver: temporal.NewResolver(),
		logger:   logger,
	}
}

// Result is everything the answer path needs from retrieval. Execute never
// returns an error: every failure mode degrades toward the no-results
// sentinel instead of aborting the answer.
type Result struct {
	Evidence  string
	Blocks    []store.EvidenceBlock
	Temporal  *temporal.Range
	PlanUsed  bool
	Intent    string
	ContextMs int64
}

// Execute runs the complete three-phase retrieval pipeline for one query.
func (p *Pipeline) Execute(ctx context.Context, ownerId uuid.UUID, query string, timezone string) *Result {
	started := time.Now()

	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}
	now := time.Now().In(loc)

	p.logger.Printf("[PIPELINE] Starting retrieval for query: %s", truncate(query, 50))

	// ═══════════════════════════════════════════════════════════════
	// PHASE 1: RESOLVE (temporal range, plan kickoff, sub-queries)
	// ═══════════════════════════════════════════════════════════════
	rng := p.resolver.Resolve(query, timezone)
	if rng != nil {
		p.logger.Printf("[PHASE 1] Temporal range %q: %s to %s",
			rng.Label, rng.Start.Format(time.RFC3339), rng.End.Format(time.RFC3339))
	}

	// The plan is advisory and slow; kick it off now, join after the first
	// wave of searches so its latency hides behind real work.
	planCh := make(chan planner.Result, 1)
	go func() {
		planCh <- p.planner.Plan(ctx, query)
	}()

	subqueries := subquery.Generate(query)
	p.logger.Printf("[PHASE 1] %d sub-queries generated", len(subqueries))

	// ═══════════════════════════════════════════════════════════════
	// PHASE 2: RETRIEVE (batched embed, fan-out searches, plan join)
	// ═══════════════════════════════════════════════════════════════
	vectors := p.embedder.EmbedMany(subqueries, embedding.TaskRetrievalQuery)

	var (
		mu     sync.Mutex
		merged []store.SearchResult
	)
	collect := func(results []store.SearchResult) {
		if len(results) == 0 {
			return
		}
		mu.Lock()
		merged = append(merged, results...)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for i, sq := range subqueries {
		wg.Add(1)
		go func(q string, vec []float32) {
			defer wg.Done()
			collect(p.search.Search(ctx, ownerId, q, vec, nil, 0, 0))
		}(sq, vectors[i])
	}
	if rng != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collect(p.search.CalendarSearch(ctx, ownerId, rng, now))
		}()
	}
	wg.Wait()

	planUsed := false
	intent := planner.IntentLookup

	var planRes planner.Result
	select {
	case planRes = <-planCh:
	case <-ctx.Done():
		planRes = planner.Result{Err: ctx.Err()}
	}

	if planRes.Available() {
		plan := planRes.Plan
		planUsed = true
		intent = plan.Intent
		p.logger.Printf("[PHASE 2] Plan: intent=%s sources=%v queries=%d",
			plan.Intent, plan.Sources, len(plan.SearchQueries))

		planVectors := p.embedder.EmbedMany(plan.SearchQueries, embedding.TaskRetrievalQuery)
		for i, q := range plan.SearchQueries {
			wg.Add(1)
			go func(q string, vec []float32) {
				defer wg.Done()
				collect(p.search.Search(ctx, ownerId, q, vec, plan.Sources, 0, 0))
			}(q, planVectors[i])
		}
		wg.Wait()
	} else {
		p.logger.Printf("[PHASE 2] Plan unavailable (%v), keyword fallback", planRes.Err)
		fallback := planner.KeywordPlan(query)
		intent = fallback.Intent
		if len(fallback.Sources) > 0 && len(vectors) > 0 && vectors[0] != nil {
			collect(p.search.Search(ctx, ownerId, query, vectors[0], fallback.Sources, 0, 0))
		}
	}

	p.logger.Printf("[PHASE 2] Merged %d raw results", len(merged))

	// ═══════════════════════════════════════════════════════════════
	// PHASE 3: RANK & FORMAT (dedupe → diversify → evidence blocks)
	// ═══════════════════════════════════════════════════════════════
	maxBlocks := evidence.MaxBlocks
	if intent == planner.IntentSummarize {
		maxBlocks = evidence.WideMaxBlocks
	}

	blocks := rankAndFormat(merged, maxBlocks, loc, now)

	// Thin evidence triggers one broadened re-search: topic nouns only, with
	// a relaxed relevance floor. Single shot; the larger of the two sets wins.
	if len(blocks) < minEvidenceBlocks {
		if topic := subquery.TopicNouns(query); topic != "" && topic != query {
			p.logger.Printf("[PHASE 3] Thin evidence (%d blocks), re-searching on: %s", len(blocks), topic)
			vec := p.embedder.EmbedOne(topic, embedding.TaskRetrievalQuery)
			if extra := p.search.Search(ctx, ownerId, topic, vec, nil, fallbackMinScore, 0); len(extra) > 0 {
				retried := rankAndFormat(append(merged, extra...), maxBlocks, loc, now)
				if len(retried) > len(blocks) {
					blocks = retried
				}
			}
		}
	}

	elapsed := time.Since(started).Milliseconds()
	p.logger.Printf("[PHASE 3] %d evidence blocks in %dms", len(blocks), elapsed)

	return &Result{
		Evidence:  evidence.Render(blocks, now, loc, rng),
		Blocks:    blocks,
		Temporal:  rng,
		PlanUsed:  planUsed,
		Intent:    intent,
		ContextMs: elapsed,
	}
}

func rankAndFormat(results []store.SearchResult, maxBlocks int, loc *time.Location, now time.Time) []store.EvidenceBlock {
	deduped := rank.Deduplicate(results)
	diversified := rank.Diversify(deduped, maxBlocks)
	return evidence.Format(diversified, maxBlocks, loc, now)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
