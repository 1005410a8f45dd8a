// FILE: internal/service/consumer_service.go
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"ai-context-engine/internal/dto"
	"ai-context-engine/internal/entity"
	"ai-context-engine/internal/repository/unitofwork"
	"ai-context-engine/pkg/embedding"
	"ai-context-engine/pkg/events"
	pktNats "ai-context-engine/pkg/nats"
	"ai-context-engine/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// Chunking geometry for long documents. 1500 chars is roughly 375 tokens,
// well inside the embedding model's context; 200 chars of overlap keeps
// sentences that straddle a boundary findable from either side.
const (
	indexChunkSize    = 1500
	indexChunkOverlap = 200
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	embedder       *embedding.Batcher
	eventPublisher *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embedder *embedding.Batcher,
	eventPublisher *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		uowFactory:     uowFactory,
		embedder:       embedder,
		eventPublisher: eventPublisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIndexDocumentMessage
	err := json.Unmarshal(msg.Payload, &payload)
	if err != nil {
		log.Printf("[ERROR] Failed to unmarshal message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Indexing document source %s (%s) for owner %s",
		payload.SourceId, payload.SourceType, payload.OwnerId)

	if payload.Content == "" {
		log.Printf("[WARN] Empty content for source %s, skipping", payload.SourceId)
		msg.Ack()
		return
	}

	chunks := utils.SplitText(payload.Content, indexChunkSize, indexChunkOverlap)
	log.Printf("[INFO] Content split into %d chunks", len(chunks))

	// Embed the title alongside each chunk so a query matching only the
	// title still lands on every chunk of the document.
	embedInputs := make([]string, len(chunks))
	for i, chunk := range chunks {
		if payload.Title != "" {
			embedInputs[i] = payload.Title + "\n\n" + chunk
		} else {
			embedInputs[i] = chunk
		}
	}

	vectors := cs.embedder.EmbedMany(embedInputs, embedding.TaskRetrievalDocument)
	for i, vec := range vectors {
		if vec == nil {
			log.Printf("[ERROR] Embedding failed for chunk %d of source %s", i, payload.SourceId)
			msg.Nack() // Nack for retriable errors
			return
		}
	}

	now := time.Now()
	newDocs := make([]*entity.Document, 0, len(chunks))
	for i, chunk := range chunks {
		newDocs = append(newDocs, &entity.Document{
			Id:         uuid.New(),
			OwnerId:    payload.OwnerId,
			SourceType: payload.SourceType,
			SourceId:   payload.SourceId,
			Title:      payload.Title,
			Content:    chunk,
			ChunkIndex: i,
			Metadata:   payload.Metadata,
			EventStart: payload.EventStart,
			EventEnd:   payload.EventEnd,
			Embedding:  vectors[i],
			CreatedAt:  now,
		})
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		log.Printf("[ERROR] Failed to begin transaction: %v", err)
		msg.Nack()
		return
	}
	defer uow.Rollback()

	log.Printf("[INFO] Replacing old chunks for source %s", payload.SourceId)
	if err := uow.DocumentRepository().DeleteBySourceIdUnscoped(ctx, payload.OwnerId, payload.SourceId); err != nil {
		log.Printf("[ERROR] Failed to delete old chunks: %v", err)
		msg.Nack()
		return
	}

	if err := uow.DocumentRepository().CreateBulk(ctx, newDocs); err != nil {
		log.Printf("[ERROR] Failed to create document chunks: %v", err)
		msg.Nack()
		return
	}

	if err := uow.Commit(); err != nil {
		log.Printf("[ERROR] Failed to commit transaction: %v", err)
		msg.Nack()
		return
	}

	log.Printf("[SUCCESS] Document indexed: %d chunks for source %s", len(newDocs), payload.SourceId)

	// Publish Event for downstream bridges (the document is now searchable)
	if cs.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: "DOCUMENT_INDEXED",
			Data: map[string]interface{}{
				"owner_id":    payload.OwnerId,
				"source_type": payload.SourceType,
				"source_id":   payload.SourceId,
				"chunks":      len(newDocs),
			},
			OccurredAt: time.Now(),
		}
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish DOCUMENT_INDEXED event: %v", err)
		}
	}

	msg.Ack()
}
