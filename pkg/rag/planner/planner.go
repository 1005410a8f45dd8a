package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"ai-context-engine/pkg/llm"
	"ai-context-engine/pkg/store"
)

// ErrUnavailable marks a planner outcome the caller must treat as absent:
// provider failure, malformed JSON, or timeout. Retrieval proceeds on the
// keyword fallback in that case.
var ErrUnavailable = errors.New("planner unavailable")

// Intent classification for the query.
const (
	IntentLookup    = "lookup"
	IntentSummarize = "summarize"
	IntentAction    = "action"
	IntentSmalltalk = "smalltalk"
)

const (
	planTimeout    = 3500 * time.Millisecond
	maxPlanQueries = 3
)

// QueryPlan is the planner's proposal: which source types to filter on,
// which query strings to run, and an optional rewrite of the user's phrasing.
type QueryPlan struct {
	Sources        []string `json:"sources"`
	SearchQueries  []string `json:"search_queries"`
	RewrittenQuery string   `json:"rewritten_query"`
	Intent         string   `json:"intent"`
}

// Result carries either a plan or the reason there is none. Callers branch
// on Available() explicitly; a missing plan is a normal outcome, not a bug.
type Result struct {
	Plan *QueryPlan
	Err  error
}

func (r Result) Available() bool {
	return r.Err == nil && r.Plan != nil
}

// Planner asks the model to classify and rewrite a query. Best-effort by
// contract: every failure mode collapses into ErrUnavailable.
type Planner struct {
	provider llm.CompletionProvider
	logger   *log.Logger
}

func NewPlanner(provider llm.CompletionProvider, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.Default()
	}
	return &Planner{provider: provider, logger: logger}
}

const planPrompt = `<task>
Classify a personal-assistant search query and plan its retrieval.
</task>

<source_types>
note_summary, note_chunk, transcript_chunk, email_summary, email_chunk, calendar_summary
</source_types>

<intents>
lookup, summarize, action, smalltalk
</intents>

<rules>
1. "sources": the source types worth searching. Empty array = search everything.
2. "search_queries": 1 to 3 short query strings that together cover the question.
3. "rewritten_query": the question restated as a standalone search phrase.
4. "intent": one intent tag.
</rules>

Respond with ONLY this JSON, no other text:
{"sources": [], "search_queries": [], "rewritten_query": "", "intent": ""}

Query: %s`

// Plan runs the single planner call. The surrounding pipeline launches it
// concurrently with the first unfiltered search, so its latency is hidden;
// it must never be awaited on its own before searching.
func (p *Planner) Plan(ctx context.Context, query string) Result {
	ctx, cancel := context.WithTimeout(ctx, planTimeout)
	defer cancel()

	raw, err := p.provider.Generate(ctx, fmt.Sprintf(planPrompt, query), llm.WithTemperature(0.0))
	if err != nil {
		p.logger.Printf("[PLAN] provider call failed: %v", err)
		return Result{Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}

	plan, err := parsePlan(raw)
	if err != nil {
		p.logger.Printf("[PLAN] malformed plan dropped: %v", err)
		return Result{Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}

	p.logger.Printf("[PLAN] intent=%s sources=%v queries=%d", plan.Intent, plan.Sources, len(plan.SearchQueries))
	return Result{Plan: plan}
}

func parsePlan(raw string) (*QueryPlan, error) {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var plan QueryPlan
	if err := json.Unmarshal([]byte(jsonStr), &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	// Sanitize: unknown source tags are dropped, query count is capped,
	// intent defaults to lookup.
	plan.Sources = filterKnownSources(plan.Sources)
	if len(plan.SearchQueries) > maxPlanQueries {
		plan.SearchQueries = plan.SearchQueries[:maxPlanQueries]
	}
	switch plan.Intent {
	case IntentLookup, IntentSummarize, IntentAction, IntentSmalltalk:
	default:
		plan.Intent = IntentLookup
	}

	return &plan, nil
}

// extractJSON pulls the first top-level JSON object out of a model reply
// that may be wrapped in prose or code fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func filterKnownSources(sources []string) []string {
	known := make(map[string]struct{})
	for _, s := range store.AllSourceTypes() {
		known[s] = struct{}{}
	}
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		s = strings.TrimSpace(strings.ToLower(s))
		if _, ok := known[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Keyword trigger table for the local fallback.
var sourceTriggers = []struct {
	words   []string
	sources []string
}{
	{
		words:   []string{"meeting", "call", "standup", "sync", "transcript", "discussed", "talked"},
		sources: []string{store.SourceTranscriptChunk, store.SourceCalendarSummary},
	},
	{
		words:   []string{"email", "emails", "mail", "inbox", "sent", "replied"},
		sources: []string{store.SourceEmailSummary, store.SourceEmailChunk},
	},
	{
		words:   []string{"note", "notes", "wrote", "jotted"},
		sources: []string{store.SourceNoteSummary, store.SourceNoteChunk},
	},
	{
		words:   []string{"calendar", "schedule", "scheduled", "event", "appointment"},
		sources: []string{store.SourceCalendarSummary},
	},
}

// KeywordPlan is the no-model fallback: map trigger words to source filters
// and search the raw query. Nil sources means unfiltered.
func KeywordPlan(query string) *QueryPlan {
	q := strings.ToLower(query)

	var sources []string
	seen := make(map[string]struct{})
	for _, trigger := range sourceTriggers {
		for _, w := range trigger.words {
			if containsWord(q, w) {
				for _, s := range trigger.sources {
					if _, ok := seen[s]; !ok {
						seen[s] = struct{}{}
						sources = append(sources, s)
					}
				}
				break
			}
		}
	}

	return &QueryPlan{
		Sources:       sources,
		SearchQueries: []string{query},
		Intent:        IntentLookup,
	}
}

func containsWord(haystack, word string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], word)
		if i == -1 {
			return false
		}
		i += idx
		beforeOK := i == 0 || !isWordChar(haystack[i-1])
		after := i + len(word)
		afterOK := after >= len(haystack) || !isWordChar(haystack[after])
		if beforeOK && afterOK {
			return true
		}
		idx = i + len(word)
		if idx >= len(haystack) {
			return false
		}
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}
