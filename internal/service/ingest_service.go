// FILE: internal/service/ingest_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-context-engine/internal/dto"
	"ai-context-engine/internal/repository/unitofwork"
	"ai-context-engine/pkg/events"
	pktNats "ai-context-engine/pkg/nats"

	"github.com/google/uuid"
)

type IIngestService interface {
	Ingest(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error)
	Remove(ctx context.Context, ownerId uuid.UUID, sourceId string) error
	RemoveAllForOwner(ctx context.Context, ownerId uuid.UUID) error
}

type ingestService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
}

func NewIngestService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
) IIngestService {
	return &ingestService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
	}
}

// Ingest queues one document for indexing. The write itself happens in the
// consumer; a publish failure is reported through Queued, never as an error,
// so a backed-up queue cannot fail the calling pipeline.
func (c *ingestService) Ingest(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error) {
	msgPayload := dto.PublishIndexDocumentMessage{
		OwnerId:    req.OwnerId,
		SourceType: req.SourceType,
		SourceId:   req.SourceId,
		Title:      req.Title,
		Content:    req.Content,
		Metadata:   req.Metadata,
		EventStart: req.EventStart,
		EventEnd:   req.EventEnd,
	}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil, err
	}

	queued := true
	if err := c.publisherService.Publish(ctx, msgJson); err != nil {
		fmt.Printf("[WARN] Failed to queue index job for source %s: %v\n", req.SourceId, err)
		queued = false
	}

	// Publish Event for Notification System
	if c.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: "DOCUMENT_RECEIVED",
			Data: map[string]interface{}{
				"owner_id":    req.OwnerId,
				"source_type": req.SourceType,
				"source_id":   req.SourceId,
			},
			OccurredAt: time.Now(),
		}
		// We log error but don't fail the request as notification is auxiliary
		if err := c.eventPublisher.Publish(ctx, evt); err != nil {
			fmt.Printf("[WARN] Failed to publish DOCUMENT_RECEIVED event: %v\n", err)
		}
	}

	return &dto.IngestDocumentResponse{
		SourceId: req.SourceId,
		Queued:   queued,
	}, nil
}

// Remove hard-deletes every chunk of one source. Used when the upstream
// record (note, email, event) is deleted and must stop surfacing in answers.
func (c *ingestService) Remove(ctx context.Context, ownerId uuid.UUID, sourceId string) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().DeleteBySourceIdUnscoped(ctx, ownerId, sourceId); err != nil {
		return err
	}

	return uow.Commit()
}

// RemoveAllForOwner wipes an owner's entire corpus.
func (c *ingestService) RemoveAllForOwner(ctx context.Context, ownerId uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().DeleteAllByOwnerIdUnscoped(ctx, ownerId); err != nil {
		return err
	}

	return uow.Commit()
}
