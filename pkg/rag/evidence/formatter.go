package evidence

import (
	"fmt"
	"strings"
	"time"

	"ai-context-engine/pkg/rag/temporal"
	"ai-context-engine/pkg/store"
)

// NoResults is the sentinel for "retrieval ran and found nothing"; callers
// must be able to tell that apart from "retrieval did not run".
const NoResults = "[NO_RESULTS]"

const (
	// BlockCharBudget bounds each block's text; MaxBlocks and WideMaxBlocks
	// bound the count. Together they are the two knobs limiting prompt size.
	BlockCharBudget = 1200
	MaxBlocks       = 8
	WideMaxBlocks   = 12
)

var sourceLabels = map[string]string{
	store.SourceNoteSummary:     "NOTE",
	store.SourceNoteChunk:       "NOTE",
	store.SourceTranscriptChunk: "TRANSCRIPT",
	store.SourceEmailSummary:    "EMAIL",
	store.SourceEmailChunk:      "EMAIL",
	store.SourceCalendarSummary: "CALENDAR",
}

// Format renders ranked results into bounded evidence blocks. Calendar
// results get a status line with the event time in the user's zone and the
// attendee list; everything else is truncated text.
func Format(results []store.SearchResult, max int, loc *time.Location, now time.Time) []store.EvidenceBlock {
	if max <= 0 {
		max = MaxBlocks
	}
	if loc == nil {
		loc = time.UTC
	}

	blocks := make([]store.EvidenceBlock, 0, max)
	for _, r := range results {
		if len(blocks) == max {
			break
		}

		label, ok := sourceLabels[r.SourceType]
		if !ok {
			label = strings.ToUpper(r.SourceType)
		}

		text := r.Text
		if r.SourceType == store.SourceCalendarSummary {
			text = renderCalendarText(r, loc, now)
		}

		blocks = append(blocks, store.EvidenceBlock{
			SourceLabel: label,
			Title:       r.Title,
			Text:        truncate(text, BlockCharBudget),
			Score:       r.FusedScore,
			SourceId:    r.SourceId,
		})
	}
	return blocks
}

// Render emits the final evidence string handed to the model: a wall-clock
// prefix, the numbered blocks, and the resolved temporal label if any.
// Zero blocks yields the NoResults sentinel, never an empty string.
func Render(blocks []store.EvidenceBlock, now time.Time, loc *time.Location, rng *temporal.Range) string {
	if len(blocks) == 0 {
		return NoResults
	}
	if loc == nil {
		loc = time.UTC
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Current time: %s (%s)\n\n",
		now.In(loc).Format("Monday, Jan 2, 2006 3:04 PM"), loc.String()))

	for i, b := range blocks {
		sb.WriteString(fmt.Sprintf("[%d] %s - %s (relevance %.2f)\n", i+1, b.SourceLabel, b.Title, b.Score))
		sb.WriteString(b.Text)
		sb.WriteString("\n\n")
	}

	if rng != nil {
		sb.WriteString(fmt.Sprintf("Time filter applied: %s\n", rng.Label))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func renderCalendarText(r store.SearchResult, loc *time.Location, now time.Time) string {
	var sb strings.Builder

	tag := r.TemporalTag
	if tag == "" && r.EventStart != nil {
		var end time.Time
		if r.EventEnd != nil {
			end = *r.EventEnd
		}
		tag = temporal.Tag(*r.EventStart, end, now)
	}
	if tag != "" {
		sb.WriteString("[" + tag + "] ")
	}
	if r.EventStart != nil {
		sb.WriteString(r.EventStart.In(loc).Format("Mon, Jan 2 at 3:04 PM"))
		if r.EventEnd != nil {
			sb.WriteString(" - " + r.EventEnd.In(loc).Format("3:04 PM"))
		}
		sb.WriteString(". ")
	}
	if attendees := attendeeList(r.Metadata); attendees != "" {
		sb.WriteString("Attendees: " + attendees + ". ")
	}
	sb.WriteString(r.Text)
	return sb.String()
}

func attendeeList(metadata map[string]interface{}) string {
	if metadata == nil {
		return ""
	}
	raw, ok := metadata["attendees"].([]interface{})
	if !ok {
		return ""
	}
	names := make([]string, 0, len(raw))
	for _, a := range raw {
		if s, ok := a.(string); ok && s != "" {
			names = append(names, s)
		}
		if len(names) == 5 {
			break
		}
	}
	return strings.Join(names, ", ")
}

// truncate cuts at the char budget on a word boundary where one is near.
func truncate(s string, budget int) string {
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	cut := budget
	for i := budget - 1; i > budget-100 && i > 0; i-- {
		if runes[i] == ' ' {
			cut = i
			break
		}
	}
	return strings.TrimRight(string(runes[:cut]), " ") + "..."
}
