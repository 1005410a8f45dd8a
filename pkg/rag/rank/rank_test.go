package rank

import (
	"fmt"
	"reflect"
	"testing"

	"ai-context-engine/pkg/store"
)

func result(docId, sourceType, sourceId string, score float64) store.SearchResult {
	return store.SearchResult{
		DocumentId: docId,
		SourceType: sourceType,
		SourceId:   sourceId,
		Title:      docId,
		FusedScore: score,
	}
}

func TestDeduplicateKeepsBestScore(t *testing.T) {
	in := []store.SearchResult{
		result("doc-1", "note_chunk", "note-a", 0.41),
		result("doc-2", "note_chunk", "note-a", 0.80),
		result("doc-1", "note_chunk", "note-a", 0.65), // same doc, better score
	}

	out := Deduplicate(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 unique docs, got %d", len(out))
	}
	if out[0].DocumentId != "doc-2" {
		t.Errorf("expected doc-2 first (highest score), got %s", out[0].DocumentId)
	}
	if out[1].DocumentId != "doc-1" || out[1].FusedScore != 0.65 {
		t.Errorf("expected doc-1 with its best score 0.65, got %s %.2f", out[1].DocumentId, out[1].FusedScore)
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	in := []store.SearchResult{
		result("a", "note_chunk", "n1", 0.9),
		result("b", "email_chunk", "e1", 0.7),
		result("a", "note_chunk", "n1", 0.5),
	}

	once := Deduplicate(in)
	twice := Deduplicate(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Deduplicate not idempotent:\nonce:  %v\ntwice: %v", once, twice)
	}
}

func TestDiversifyRespectsMax(t *testing.T) {
	var in []store.SearchResult
	for i := 0; i < 20; i++ {
		in = append(in, result(
			fmt.Sprintf("doc-%d", i),
			"note_chunk",
			fmt.Sprintf("note-%d", i), // all distinct families
			1.0-float64(i)*0.01,
		))
	}

	out := Diversify(in, 8)
	if len(out) != 8 {
		t.Errorf("expected exactly 8 results, got %d", len(out))
	}
}

func TestDiversifyCapsClusterAtThree(t *testing.T) {
	// One verbose transcript family plus two other docs.
	in := []store.SearchResult{
		result("t-1", "transcript_chunk", "meeting-1", 0.95),
		result("t-2", "transcript_chunk", "meeting-1", 0.93),
		result("t-3", "transcript_chunk", "meeting-1", 0.91),
		result("t-4", "transcript_chunk", "meeting-1", 0.89),
		result("t-5", "transcript_chunk", "meeting-1", 0.87),
		result("n-1", "note_summary", "note-1", 0.50),
		result("e-1", "email_summary", "email-1", 0.40),
	}

	out := Diversify(in, 10)

	fromMeeting := 0
	for _, r := range out {
		if r.SourceId == "meeting-1" {
			fromMeeting++
		}
	}
	if fromMeeting > 3 {
		t.Errorf("cluster cap violated: %d picks from one family", fromMeeting)
	}
	// The weaker but diverse docs must have made it through.
	if len(out) != 5 {
		t.Errorf("expected 5 results (3 capped + 2 diverse), got %d", len(out))
	}
}

func TestDiversifyFloorBypassesCutoff(t *testing.T) {
	// Zero scores would be cut by the penalty rule, but the first 4 picks
	// bypass the cut-off so evidence is never empty.
	in := []store.SearchResult{
		result("a", "note_chunk", "n1", 0),
		result("b", "note_chunk", "n2", 0),
		result("c", "note_chunk", "n3", 0),
		result("d", "note_chunk", "n4", 0),
		result("e", "note_chunk", "n5", 0),
		result("f", "note_chunk", "n6", 0),
	}

	out := Diversify(in, 10)
	if len(out) != 4 {
		t.Errorf("expected exactly the 4 floor picks, got %d", len(out))
	}
}

func TestDiversifyStoredScoresUntouched(t *testing.T) {
	in := []store.SearchResult{
		result("t-1", "transcript_chunk", "meeting-1", 0.95),
		result("t-2", "transcript_chunk", "meeting-1", 0.93),
		result("t-3", "transcript_chunk", "meeting-1", 0.91),
	}

	out := Diversify(in, 10)
	for i, r := range out {
		if r.FusedScore != in[i].FusedScore {
			t.Errorf("stored score mutated: %f != %f", r.FusedScore, in[i].FusedScore)
		}
	}
}

func TestDiversifyEmptyInput(t *testing.T) {
	if out := Diversify(nil, 8); len(out) != 0 {
		t.Errorf("expected empty output, got %v", out)
	}
}
