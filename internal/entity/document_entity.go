package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is one indexed unit of the personal corpus: a note summary, a
// note/transcript/email chunk, an email summary, or a calendar event summary.
// EventStart/EventEnd are set only for calendar documents.
type Document struct {
	Id         uuid.UUID
	OwnerId    uuid.UUID
	SourceType string
	SourceId   string
	Title      string
	Content    string
	ChunkIndex int
	Metadata   map[string]interface{}
	EventStart *time.Time
	EventEnd   *time.Time
	Embedding  []float32
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
