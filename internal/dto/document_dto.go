package dto

import (
	"time"

	"github.com/google/uuid"
)

// IngestDocumentRequest is what the ingestion bridges post. Content is the
// full text; chunking and embedding happen asynchronously on this side.
type IngestDocumentRequest struct {
	OwnerId    uuid.UUID              `json:"owner_id" validate:"required"`
	SourceType string                 `json:"source_type" validate:"required,oneof=note_summary note_chunk transcript_chunk email_summary email_chunk calendar_summary"`
	SourceId   string                 `json:"source_id" validate:"required,max=255"`
	Title      string                 `json:"title" validate:"max=500"`
	Content    string                 `json:"content" validate:"required"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	EventStart *time.Time             `json:"event_start,omitempty"`
	EventEnd   *time.Time             `json:"event_end,omitempty"`
}

type IngestDocumentResponse struct {
	SourceId string `json:"source_id"`
	Queued   bool   `json:"queued"`
}

type DeleteDocumentRequest struct {
	OwnerId uuid.UUID `json:"owner_id" validate:"required"`
}

// PublishIndexDocumentMessage is the watermill payload carrying a full
// document to the indexing consumer. The payload is the source of truth;
// nothing is written until the consumer replaces the old rows.
type PublishIndexDocumentMessage struct {
	OwnerId    uuid.UUID              `json:"owner_id"`
	SourceType string                 `json:"source_type"`
	SourceId   string                 `json:"source_id"`
	Title      string                 `json:"title"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	EventStart *time.Time             `json:"event_start,omitempty"`
	EventEnd   *time.Time             `json:"event_end,omitempty"`
}
