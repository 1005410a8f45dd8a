// FILE: internal/bootstrap/container.go
// PURPOSE: Wires the whole engine together: infrastructure clients, the
// retrieval pipeline, the agent loop with its tool registry, services and
// controllers. Called once from main.
package bootstrap

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"ai-context-engine/internal/config"
	"ai-context-engine/internal/controller"
	"ai-context-engine/internal/pkg/logger"
	"ai-context-engine/internal/pkg/mailer"
	"ai-context-engine/internal/repository/implementation"
	"ai-context-engine/internal/repository/memory"
	"ai-context-engine/internal/repository/unitofwork"
	"ai-context-engine/internal/service"
	"ai-context-engine/internal/websocket"
	"ai-context-engine/pkg/agent"
	"ai-context-engine/pkg/agent/tools"
	"ai-context-engine/pkg/embedding"
	"ai-context-engine/pkg/embedding/jina"
	"ai-context-engine/pkg/llm/factory"
	"ai-context-engine/pkg/provider"
	"ai-context-engine/pkg/rag/executor"
	"ai-context-engine/pkg/rag/planner"
	"ai-context-engine/pkg/rag/search"

	pktNats "ai-context-engine/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController
	AccountController  controller.IAccountController
	WsController       controller.IWsController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure (Moved up for dependency injection)
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub (fans agent events out to the user's open connections)
	wsLogger := logger.NewIsolatedLogger("logs/agent_events.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Engine
	engineLogger := newEngineLogger()

	// Initialize Embedding Provider based on Config
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = jina.NewJinaProvider(cfg.Keys.Jina)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	embedder := embedding.NewBatcher(embeddingProvider, 100, engineLogger)
	embedder.Warmup()

	// Initialize LLM Providers based on Config. The agent loop needs a
	// tool-capable backend, so it gets its own provider and fails at boot
	// when the configured one cannot call functions.
	llmKey := cfg.Keys.GoogleGemini
	if cfg.Ai.LLMProvider == "huggingface" {
		llmKey = cfg.Keys.HuggingFace
	}
	completions, err := factory.NewCompletionProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		llmKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	agentProvider, err := factory.NewAgentProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		llmKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize Agent LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Retrieval pipeline
	docRepo := implementation.NewDocumentRepository(db)
	searchClient := search.NewClient(docRepo, engineLogger)
	plnr := planner.NewPlanner(completions, engineLogger)
	pipeline := executor.NewPipeline(embedder, plnr, searchClient, engineLogger)

	// Provider accounts + pending actions
	accountService := service.NewAccountService(uowFactory)
	resolver := provider.NewHintedAccountResolver(accountService, provider.NewGoogleExchanger())
	pendingStore := agent.NewPendingStore(rdb, engineLogger)

	// Tool registry
	registry := agent.NewRegistry()
	registry.Register(agent.ToolSearchContext, tools.NewSearchContext(pipeline))
	registry.Register(agent.ToolCalendarLookup, tools.NewCalendarLookup(resolver))
	registry.Register(agent.ToolCalendarCreate, tools.NewCalendarCreate(resolver))
	registry.Register(agent.ToolContactsLookup, tools.NewContactsLookup(resolver))
	registry.Register(agent.ToolEmailSearch, tools.NewEmailSearch(embedder, searchClient))
	registry.Register(agent.ToolEmailDraft, tools.NewEmailDraft())
	registry.Register(agent.ToolEmailSend, tools.NewEmailSend(pendingStore, emailService, engineLogger))
	registry.Register(agent.ToolPlacesSearch, tools.NewPlacesSearch(cfg.Keys.Geoapify))

	agentLoop := agent.NewLoop(agentProvider, registry, wsHub, engineLogger)

	// Initialize In-Memory Session Storage
	sessionRepo := memory.NewAgentSessionRepository()

	// 3.5 Services
	publisherService := service.NewPublisherService(cfg.App.IndexTopicName, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.IndexTopicName,
		uowFactory,
		embedder, // Injected
		natsPub,
	)

	chatService := service.NewChatService(
		uowFactory,
		completions,
		cfg.Ai.AckModel,
		cfg.Ai.LLMModel,
		pipeline,
		agentLoop,
		pendingStore,
		sessionRepo,
		natsPub,
	)
	ingestService := service.NewIngestService(uowFactory, publisherService, natsPub)

	// 4. Controllers
	// Note: We return the container with public fields for the server to register
	return &Container{
		WebSocketHub:       wsHub,
		ChatController:     controller.NewChatController(chatService),
		DocumentController: controller.NewDocumentController(ingestService, accountService),
		AccountController:  controller.NewAccountController(accountService),
		WsController:       controller.NewWsController(wsHub, sysLogger),

		ConsumerService: consumerService,
	}
}

// newEngineLogger writes pipeline and agent diagnostics to their own file so
// prompt/tool traces never drown the request log.
func newEngineLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "engine.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[ENGINE] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
