package contract

import (
	"context"
	"time"

	"ai-context-engine/internal/entity"
	"ai-context-engine/internal/repository/specification"
	"ai-context-engine/pkg/store"

	"github.com/google/uuid"
)

// DocumentRepository persists corpus documents and serves retrieval reads.
// The three search methods satisfy store.DocumentSearcher so the retrieval
// pipeline can take the repository directly.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	CreateBulk(ctx context.Context, docs []*entity.Document) error
	Update(ctx context.Context, doc *entity.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteBySourceIdUnscoped hard-deletes every chunk of a source prior to re-index.
	DeleteBySourceIdUnscoped(ctx context.Context, ownerId uuid.UUID, sourceId string) error
	DeleteAllByOwnerIdUnscoped(ctx context.Context, ownerId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// Retrieval
	HybridSearch(ctx context.Context, ownerId uuid.UUID, queryText string, embedding []float32, sourceTypes []string, minScore float64, limit int) ([]store.SearchResult, error)
	VectorSearch(ctx context.Context, ownerId uuid.UUID, embedding []float32, sourceTypes []string, minScore float64, limit int) ([]store.SearchResult, error)
	CalendarRange(ctx context.Context, ownerId uuid.UUID, start time.Time, end time.Time) ([]store.SearchResult, error)
}
