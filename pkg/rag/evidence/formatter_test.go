package evidence

import (
	"strings"
	"testing"
	"time"

	"ai-context-engine/pkg/rag/temporal"
	"ai-context-engine/pkg/store"
)

func TestRenderEmptyIsSentinel(t *testing.T) {
	got := Render(nil, time.Now(), time.UTC, nil)
	if got != NoResults {
		t.Errorf("Render(empty) = %q, want the %q sentinel", got, NoResults)
	}
	if got == "" {
		t.Error("empty string is not an acceptable zero-result value")
	}
}

func TestRenderIncludesClockAndLabel(t *testing.T) {
	now := time.Date(2026, 8, 21, 15, 4, 0, 0, time.UTC)
	blocks := []store.EvidenceBlock{
		{SourceLabel: "NOTE", Title: "Q3 Budget Sync", Text: "numbers", Score: 0.61, SourceId: "n-1"},
	}
	rng := &temporal.Range{Label: "next week"}

	got := Render(blocks, now, time.UTC, rng)

	if !strings.HasPrefix(got, "Current time: Friday, Aug 21, 2026 3:04 PM") {
		t.Errorf("missing wall-clock prefix: %q", got)
	}
	if !strings.Contains(got, "[1] NOTE - Q3 Budget Sync (relevance 0.61)") {
		t.Errorf("missing block header: %q", got)
	}
	if !strings.HasSuffix(got, "Time filter applied: next week") {
		t.Errorf("missing temporal label suffix: %q", got)
	}
}

func TestFormatTruncatesLongText(t *testing.T) {
	long := strings.Repeat("word ", 1000) // 5000 chars
	blocks := Format([]store.SearchResult{
		{DocumentId: "d", SourceType: store.SourceNoteChunk, Title: "Long", Text: long, FusedScore: 0.5},
	}, 8, time.UTC, time.Now())

	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if got := len([]rune(blocks[0].Text)); got > BlockCharBudget+3 {
		t.Errorf("block text %d runes, budget is %d", got, BlockCharBudget)
	}
	if !strings.HasSuffix(blocks[0].Text, "...") {
		t.Error("truncated text should end with an ellipsis")
	}
}

func TestFormatCapsBlockCount(t *testing.T) {
	var results []store.SearchResult
	for i := 0; i < 20; i++ {
		results = append(results, store.SearchResult{
			DocumentId: string(rune('a' + i)),
			SourceType: store.SourceNoteChunk,
			Title:      "t",
			Text:       "x",
			FusedScore: 0.5,
		})
	}

	if got := len(Format(results, MaxBlocks, time.UTC, time.Now())); got != MaxBlocks {
		t.Errorf("expected %d blocks, got %d", MaxBlocks, got)
	}
}

func TestFormatCalendarRendering(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}
	now := time.Date(2026, 8, 21, 12, 0, 0, 0, ny)
	start := time.Date(2026, 8, 24, 9, 0, 0, 0, ny)
	end := start.Add(time.Hour)

	blocks := Format([]store.SearchResult{
		{
			DocumentId: "cal-1",
			SourceType: store.SourceCalendarSummary,
			SourceId:   "evt-1",
			Title:      "Dentist",
			Text:       "Routine cleaning",
			FusedScore: 0.55,
			EventStart: &start,
			EventEnd:   &end,
			Metadata:   map[string]interface{}{"attendees": []interface{}{"Dr. Patel"}},
		},
	}, 8, ny, now)

	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	text := blocks[0].Text
	if !strings.HasPrefix(text, "[UPCOMING] ") {
		t.Errorf("missing status tag: %q", text)
	}
	if !strings.Contains(text, "Mon, Aug 24 at 9:00 AM") {
		t.Errorf("missing localized event time: %q", text)
	}
	if !strings.Contains(text, "Attendees: Dr. Patel") {
		t.Errorf("missing attendees: %q", text)
	}
	if blocks[0].SourceLabel != "CALENDAR" {
		t.Errorf("label = %q, want CALENDAR", blocks[0].SourceLabel)
	}
}

func TestFormatPreservesPrecomputedTag(t *testing.T) {
	start := time.Now().Add(-2 * time.Hour)
	blocks := Format([]store.SearchResult{
		{
			DocumentId:  "cal-2",
			SourceType:  store.SourceCalendarSummary,
			Title:       "Standup",
			Text:        "Daily",
			EventStart:  &start,
			TemporalTag: temporal.TagAlreadyHappened,
		},
	}, 8, time.UTC, time.Now())

	if !strings.HasPrefix(blocks[0].Text, "["+temporal.TagAlreadyHappened+"] ") {
		t.Errorf("precomputed tag not used: %q", blocks[0].Text)
	}
}
