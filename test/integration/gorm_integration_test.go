package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"ai-context-engine/internal/entity"
	"ai-context-engine/internal/repository/specification"
	"ai-context-engine/internal/repository/unitofwork"
	"ai-context-engine/pkg/database"
	"ai-context-engine/pkg/store"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

// testVector fills all 768 dimensions so inserts satisfy the column type;
// the direction only matters relative to itself.
func testVector(seed float32) []float32 {
	v := make([]float32, 768)
	for i := range v {
		v[i] = seed / float32(i+1)
	}
	return v
}

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.DocumentRepository())
	assert.NotNil(t, uow.ChatSessionRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	// Verify Data Access (implies columns exist)
	t.Run("Check Document Repository", func(t *testing.T) {
		count, err := uow.DocumentRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("Document count: %d", count)
	})

	t.Run("Check Service Key Repository", func(t *testing.T) {
		keys, err := uow.ServiceKeyRepository().FindAll(context.Background(), specification.NotRevoked{})
		assert.NoError(t, err)
		t.Logf("Active service keys: %d", len(keys))
	})

	t.Run("Document Roundtrip And Hybrid Search", func(t *testing.T) {
		ctx := context.Background()
		ownerId := uuid.New()
		defer uow.DocumentRepository().DeleteAllByOwnerIdUnscoped(ctx, ownerId)

		vec := testVector(1.0)
		docs := []*entity.Document{
			{
				Id: uuid.New(), OwnerId: ownerId,
				SourceType: store.SourceNoteChunk, SourceId: "it-note-1",
				Title: "Project kickoff", Content: "We agreed the kickoff happens next Tuesday in the main office.",
				ChunkIndex: 0, Embedding: vec, CreatedAt: time.Now(),
			},
			{
				Id: uuid.New(), OwnerId: ownerId,
				SourceType: store.SourceEmailSummary, SourceId: "it-email-1",
				Title: "Travel booking", Content: "Flight confirmation for the Berlin trip, departing Friday morning.",
				ChunkIndex: 0, Embedding: testVector(-1.0), CreatedAt: time.Now(),
			},
		}
		err := uow.DocumentRepository().CreateBulk(ctx, docs)
		assert.NoError(t, err)

		// The query vector equals the first doc's embedding, so it must rank
		// first on the fused score.
		results, err := uow.DocumentRepository().HybridSearch(ctx, ownerId, "kickoff office", vec, nil, 0.0, 10)
		assert.NoError(t, err)
		if assert.NotEmpty(t, results) {
			assert.Equal(t, "it-note-1", results[0].SourceId)
			assert.Greater(t, results[0].FusedScore, results[len(results)-1].FusedScore-0.0001)
		}

		vecOnly, err := uow.DocumentRepository().VectorSearch(ctx, ownerId, vec, []string{store.SourceNoteChunk}, 0.0, 10)
		assert.NoError(t, err)
		if assert.NotEmpty(t, vecOnly) {
			assert.Equal(t, store.SourceNoteChunk, vecOnly[0].SourceType)
		}

		// Replace semantics: re-indexing a source must not duplicate rows.
		err = uow.DocumentRepository().DeleteBySourceIdUnscoped(ctx, ownerId, "it-note-1")
		assert.NoError(t, err)
		count, err := uow.DocumentRepository().Count(ctx, specification.ByOwnerID{OwnerID: ownerId})
		assert.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Calendar Range Scan", func(t *testing.T) {
		ctx := context.Background()
		ownerId := uuid.New()
		defer uow.DocumentRepository().DeleteAllByOwnerIdUnscoped(ctx, ownerId)

		start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
		end := start.Add(time.Hour)
		err := uow.DocumentRepository().Create(ctx, &entity.Document{
			Id: uuid.New(), OwnerId: ownerId,
			SourceType: store.SourceCalendarSummary, SourceId: "it-event-1",
			Title: "Dentist", Content: "Dentist appointment",
			EventStart: &start, EventEnd: &end,
			Embedding: testVector(0.5), CreatedAt: time.Now(),
		})
		assert.NoError(t, err)

		hits, err := uow.DocumentRepository().CalendarRange(ctx, ownerId, start.Add(-time.Hour), start.Add(2*time.Hour))
		assert.NoError(t, err)
		if assert.Len(t, hits, 1) {
			assert.Equal(t, "it-event-1", hits[0].SourceId)
			assert.NotNil(t, hits[0].EventStart)
		}
	})

	t.Run("Transactional Session With Turns", func(t *testing.T) {
		ctx := context.Background()
		userId := uuid.New()
		sessionId := uuid.New()

		err := uow.Begin(ctx)
		assert.NoError(t, err)
		defer uow.Rollback()

		err = uow.ChatSessionRepository().Create(ctx, &entity.ChatSession{
			Id: sessionId, UserId: userId, Title: "Integration session", CreatedAt: time.Now(),
		})
		assert.NoError(t, err)

		err = uow.ConversationTurnRepository().Create(ctx, &entity.ConversationTurn{
			Id: uuid.New(), Role: "user", Content: "integration hello",
			ChatSessionId: sessionId, UserId: userId, CreatedAt: time.Now(),
		})
		assert.NoError(t, err)

		err = uow.Commit()
		assert.NoError(t, err)

		// Cleanup outside the committed transaction.
		cleanup := uowFactory.NewUnitOfWork(ctx)
		assert.NoError(t, cleanup.Begin(ctx))
		assert.NoError(t, cleanup.ConversationTurnRepository().DeleteByChatSessionId(ctx, sessionId))
		assert.NoError(t, cleanup.ChatSessionRepository().Delete(ctx, sessionId))
		assert.NoError(t, cleanup.Commit())

		t.Log("Successfully created Session with Turn in Transaction")
	})
}
