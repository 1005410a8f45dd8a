package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Source types for retrievable documents. The ingestion pipeline writes
// summaries and chunks under these tags; retrieval filters on them.
const (
	SourceNoteSummary     = "note_summary"
	SourceNoteChunk       = "note_chunk"
	SourceTranscriptChunk = "transcript_chunk"
	SourceEmailSummary    = "email_summary"
	SourceEmailChunk      = "email_chunk"
	SourceCalendarSummary = "calendar_summary"
)

// AllSourceTypes returns every known source type tag.
func AllSourceTypes() []string {
	return []string{
		SourceNoteSummary,
		SourceNoteChunk,
		SourceTranscriptChunk,
		SourceEmailSummary,
		SourceEmailChunk,
		SourceCalendarSummary,
	}
}

// SearchResult is an ephemeral ranked hit. FusedScore is the only sort key
// used downstream; SemanticScore/LexicalScore are kept for diagnostics.
type SearchResult struct {
	DocumentId    string                 `json:"document_id"`
	SourceType    string                 `json:"source_type"`
	SourceId      string                 `json:"source_id"`
	Title         string                 `json:"title"`
	Text          string                 `json:"text"`
	SemanticScore float64                `json:"semantic_score"`
	LexicalScore  float64                `json:"lexical_score"`
	FusedScore    float64                `json:"fused_score"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	EventStart    *time.Time             `json:"event_start,omitempty"`
	EventEnd      *time.Time             `json:"event_end,omitempty"`
	TemporalTag   string                 `json:"temporal_tag,omitempty"`
}

// EvidenceBlock is the bounded, formatted unit handed to the model.
type EvidenceBlock struct {
	SourceLabel string  `json:"source_label"`
	Title       string  `json:"title"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
	SourceId    string  `json:"source_id"`
}

// DocumentSearcher is the read contract the retrieval layer has against the
// corpus store. Implementations live in the repository layer.
type DocumentSearcher interface {
	// HybridSearch ranks by a fused semantic+lexical score.
	HybridSearch(ctx context.Context, ownerId uuid.UUID, queryText string, embedding []float32, sourceTypes []string, minScore float64, limit int) ([]SearchResult, error)
	// VectorSearch ranks by cosine similarity only.
	VectorSearch(ctx context.Context, ownerId uuid.UUID, embedding []float32, sourceTypes []string, minScore float64, limit int) ([]SearchResult, error)
	// CalendarRange reads calendar documents whose event start falls in [start, end).
	CalendarRange(ctx context.Context, ownerId uuid.UUID, start time.Time, end time.Time) ([]SearchResult, error)
}
