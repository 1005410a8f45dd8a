package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByOwnerID struct {
	OwnerID uuid.UUID
}

func (s ByOwnerID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("owner_id = ?", s.OwnerID)
}

type BySourceID struct {
	SourceID string
}

func (s BySourceID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source_id = ?", s.SourceID)
}

type SourceTypeIn struct {
	SourceTypes []string
}

func (s SourceTypeIn) Apply(db *gorm.DB) *gorm.DB {
	if len(s.SourceTypes) == 0 {
		return db
	}
	return db.Where("source_type IN ?", s.SourceTypes)
}

// EventStartBetween matches calendar documents whose event begins inside
// [Start, End). Non-calendar rows have a NULL event_start and never match.
type EventStartBetween struct {
	Start time.Time
	End   time.Time
}

func (s EventStartBetween) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("event_start >= ? AND event_start < ?", s.Start, s.End)
}
