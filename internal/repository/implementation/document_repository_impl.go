package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ai-context-engine/internal/entity"
	"ai-context-engine/internal/mapper"
	"ai-context-engine/internal/model"
	"ai-context-engine/internal/repository/contract"
	"ai-context-engine/internal/repository/specification"
	"ai-context-engine/pkg/store"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// lexicalRank caps ts_rank at 1.0 so a keyword-stuffed document cannot
// dominate the fused score.
const lexicalRank = "LEAST(ts_rank(to_tsvector('english', coalesce(documents.title, '') || ' ' || documents.content), plainto_tsquery('english', ?)), 1.0)"

type DocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &DocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *DocumentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentRepositoryImpl) Create(ctx context.Context, doc *entity.Document) error {
	m := r.mapper.ToModel(doc)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*doc = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) CreateBulk(ctx context.Context, docs []*entity.Document) error {
	models := make([]*model.Document, len(docs))
	for i, d := range docs {
		models[i] = r.mapper.ToModel(d)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	// Update IDs back to entities
	for i, m := range models {
		*docs[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *DocumentRepositoryImpl) Update(ctx context.Context, doc *entity.Document) error {
	m := r.mapper.ToModel(doc)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*doc = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Document{}, id).Error
}

func (r *DocumentRepositoryImpl) DeleteBySourceIdUnscoped(ctx context.Context, ownerId uuid.UUID, sourceId string) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("owner_id = ? AND source_id = ?", ownerId, sourceId).
		Delete(&model.Document{}).Error
}

func (r *DocumentRepositoryImpl) DeleteAllByOwnerIdUnscoped(ctx context.Context, ownerId uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("owner_id = ?", ownerId).
		Delete(&model.Document{}).Error
}

func (r *DocumentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	var m model.Document
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	var models []*model.Document
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Document, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *DocumentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Document{}).Count(&count).Error
	return count, err
}

// HybridSearch fuses pgvector cosine similarity with Postgres full-text rank:
// fused = 0.65 * semantic + 0.35 * lexical. Cosine distance in pgvector is
// 1 - cosine_similarity, so similarity is 1 - (embedding <=> query_vector).
// Postgres cannot reference a SELECT alias in WHERE, so the fused expression
// is repeated in the score floor predicate.
func (r *DocumentRepositoryImpl) HybridSearch(ctx context.Context, ownerId uuid.UUID, queryText string, embedding []float32, sourceTypes []string, minScore float64, limit int) ([]store.SearchResult, error) {
	if limit <= 0 {
		limit = 15
	}

	type row struct {
		model.Document
		SemanticScore float64
		LexicalScore  float64
		FusedScore    float64
	}
	var rows []row

	queryVector := pgvector.NewVector(embedding)
	fused := "0.65 * (1 - (embedding <=> ?)) + 0.35 * " + lexicalRank

	query := r.db.WithContext(ctx).
		Table("documents").
		Select("documents.*, "+
			"1 - (embedding <=> ?) as semantic_score, "+
			lexicalRank+" as lexical_score, "+
			fused+" as fused_score",
			queryVector, queryText, queryVector, queryText).
		Where("documents.owner_id = ?", ownerId).
		Where("documents.deleted_at IS NULL")

	if len(sourceTypes) > 0 {
		query = query.Where("documents.source_type IN ?", sourceTypes)
	}
	if minScore > 0 {
		query = query.Where(fused+" >= ?", queryVector, queryText, minScore)
	}

	err := query.
		Order("fused_score DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	results := make([]store.SearchResult, len(rows))
	for i, res := range rows {
		results[i] = r.toSearchResult(&res.Document, res.SemanticScore, res.LexicalScore, res.FusedScore)
	}
	return results, nil
}

// VectorSearch ranks by cosine similarity alone; the fused score is the
// semantic one. This is the degraded path when the full-text leg fails.
func (r *DocumentRepositoryImpl) VectorSearch(ctx context.Context, ownerId uuid.UUID, embedding []float32, sourceTypes []string, minScore float64, limit int) ([]store.SearchResult, error) {
	if limit <= 0 {
		limit = 15
	}

	type row struct {
		model.Document
		Similarity float64
	}
	var rows []row

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("documents").
		Select("documents.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("documents.owner_id = ?", ownerId).
		Where("documents.deleted_at IS NULL")

	if len(sourceTypes) > 0 {
		query = query.Where("documents.source_type IN ?", sourceTypes)
	}
	if minScore > 0 {
		query = query.Where("1 - (embedding <=> ?) >= ?", queryVector, minScore)
	}

	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	results := make([]store.SearchResult, len(rows))
	for i, res := range rows {
		results[i] = r.toSearchResult(&res.Document, res.Similarity, 0, res.Similarity)
	}
	return results, nil
}

// CalendarRange reads calendar documents whose event begins inside
// [start, end). A range match is authoritative, not probabilistic, so rows
// carry a fused score of 1.0 and survive any downstream ranking cut.
func (r *DocumentRepositoryImpl) CalendarRange(ctx context.Context, ownerId uuid.UUID, start time.Time, end time.Time) ([]store.SearchResult, error) {
	var models []*model.Document

	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerId).
		Where("source_type = ?", store.SourceCalendarSummary).
		Where("event_start >= ? AND event_start < ?", start, end).
		Order("event_start ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	results := make([]store.SearchResult, len(models))
	for i, m := range models {
		results[i] = r.toSearchResult(m, 0, 0, 1.0)
	}
	return results, nil
}

func (r *DocumentRepositoryImpl) toSearchResult(m *model.Document, semantic, lexical, fused float64) store.SearchResult {
	var metadata map[string]interface{}
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &metadata)
	}

	return store.SearchResult{
		DocumentId:    m.Id.String(),
		SourceType:    m.SourceType,
		SourceId:      m.SourceId,
		Title:         m.Title,
		Text:          m.Content,
		SemanticScore: semantic,
		LexicalScore:  lexical,
		FusedScore:    fused,
		Metadata:      metadata,
		EventStart:    m.EventStart,
		EventEnd:      m.EventEnd,
	}
}
