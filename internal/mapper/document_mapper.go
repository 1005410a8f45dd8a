package mapper

import (
	"encoding/json"
	"time"

	"ai-context-engine/internal/entity"
	"ai-context-engine/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(doc *model.Document) *entity.Document {
	if doc == nil {
		return nil
	}

	var deletedAt *time.Time
	if doc.DeletedAt.Valid {
		t := doc.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !doc.UpdatedAt.IsZero() {
		t := doc.UpdatedAt
		updatedAt = &t
	}

	var metadata map[string]interface{}
	if len(doc.Metadata) > 0 {
		// Corrupt metadata reads as nil; callers treat nil as empty.
		_ = json.Unmarshal(doc.Metadata, &metadata)
	}

	return &entity.Document{
		Id:         doc.Id,
		OwnerId:    doc.OwnerId,
		SourceType: doc.SourceType,
		SourceId:   doc.SourceId,
		Title:      doc.Title,
		Content:    doc.Content,
		ChunkIndex: doc.ChunkIndex,
		Metadata:   metadata,
		EventStart: doc.EventStart,
		EventEnd:   doc.EventEnd,
		Embedding:  doc.Embedding.Slice(),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
		IsDeleted:  doc.DeletedAt.Valid,
	}
}

func (m *DocumentMapper) ToModel(doc *entity.Document) *model.Document {
	if doc == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if doc.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *doc.DeletedAt, Valid: true}
	} else if doc.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if doc.UpdatedAt != nil {
		updatedAt = *doc.UpdatedAt
	}

	var metadata datatypes.JSON
	if doc.Metadata != nil {
		if raw, err := json.Marshal(doc.Metadata); err == nil {
			metadata = datatypes.JSON(raw)
		}
	}

	return &model.Document{
		Id:         doc.Id,
		OwnerId:    doc.OwnerId,
		SourceType: doc.SourceType,
		SourceId:   doc.SourceId,
		Title:      doc.Title,
		Content:    doc.Content,
		ChunkIndex: doc.ChunkIndex,
		Metadata:   metadata,
		EventStart: doc.EventStart,
		EventEnd:   doc.EventEnd,
		Embedding:  pgvector.NewVector(doc.Embedding),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
	}
}
