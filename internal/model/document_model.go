package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Document struct {
	Id         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerId    uuid.UUID       `gorm:"type:uuid;not null;index"` // User ownership for data isolation
	SourceType string          `gorm:"type:varchar(50);not null;index"`
	SourceId   string          `gorm:"type:varchar(255);not null;index"`
	Title      string          `gorm:"type:text"`
	Content    string          `gorm:"type:text;not null"`
	ChunkIndex int             `gorm:"default:0"` // 0-based index for ordering
	Metadata   datatypes.JSON  `gorm:"type:jsonb"`
	EventStart *time.Time      `gorm:"index"` // Calendar docs only; range-scan target
	EventEnd   *time.Time      ``
	Embedding  pgvector.Vector `gorm:"type:vector(768)"` // Gemini text-embedding-004 uses 768 dimensions
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt  `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
