package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"ai-context-engine/internal/config"
	"ai-context-engine/internal/repository/implementation"
	"ai-context-engine/pkg/database"
	"ai-context-engine/pkg/embedding"
	"ai-context-engine/pkg/embedding/jina"
	"ai-context-engine/pkg/llm/factory"
	"ai-context-engine/pkg/rag/executor"
	"ai-context-engine/pkg/rag/planner"
	"ai-context-engine/pkg/rag/search"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Runs one query through the full retrieval pipeline against the live
// database and prints what the agent would see. Usage:
//
//	OWNER_ID=<uuid> go run ./cmd/test_retrieval "what did we decide about the sprint last week?"
func main() {
	cfg := config.Load()

	ownerRaw := os.Getenv("OWNER_ID")
	if ownerRaw == "" {
		color.Red("❌ OWNER_ID is not set")
		os.Exit(1)
	}
	ownerId, err := uuid.Parse(ownerRaw)
	if err != nil {
		color.Red("❌ OWNER_ID is not a valid UUID: %v", err)
		os.Exit(1)
	}

	query := "What meetings do I have this week?"
	if len(os.Args) > 1 {
		query = strings.Join(os.Args[1:], " ")
	}
	timezone := os.Getenv("TEST_TIMEZONE")
	if timezone == "" {
		timezone = "UTC"
	}

	color.Cyan("🚀 Retrieval Pipeline Diagnostic\n")
	fmt.Printf("Owner:    %s\n", ownerId)
	fmt.Printf("Query:    %q\n", query)
	fmt.Printf("Timezone: %s\n", timezone)

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		color.Red("❌ Database connection failed: %v", err)
		os.Exit(1)
	}

	// Same assembly as the container, with diagnostics on stdout.
	diagLogger := log.New(os.Stdout, "", log.LstdFlags)

	var provider embedding.EmbeddingProvider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	case "jina":
		provider = jina.NewJinaProvider(cfg.Keys.Jina)
	default:
		provider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	}
	embedder := embedding.NewBatcher(provider, 100, diagLogger)

	completions, err := factory.NewCompletionProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		color.Red("❌ LLM provider init failed: %v", err)
		os.Exit(1)
	}

	docRepo := implementation.NewDocumentRepository(db)
	pipeline := executor.NewPipeline(
		embedder,
		planner.NewPlanner(completions, diagLogger),
		search.NewClient(docRepo, diagLogger),
		diagLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	started := time.Now()
	result := pipeline.Execute(ctx, ownerId, query, timezone)

	color.Yellow("\n[1] Classification")
	fmt.Printf("Intent:    %s\n", result.Intent)
	fmt.Printf("Plan used: %v\n", result.PlanUsed)
	if result.Temporal != nil {
		fmt.Printf("Temporal:  %s  [%s → %s]\n",
			result.Temporal.Label,
			result.Temporal.Start.Format(time.RFC3339),
			result.Temporal.End.Format(time.RFC3339))
	} else {
		fmt.Println("Temporal:  none")
	}

	color.Yellow("\n[2] Evidence Blocks (%d)", len(result.Blocks))
	for i, block := range result.Blocks {
		fmt.Printf("%2d. [%.3f] %-18s %s\n", i+1, block.Score, block.SourceLabel, block.Title)
		preview := block.Text
		if len(preview) > 160 {
			preview = preview[:160] + "..."
		}
		fmt.Printf("    %s\n", strings.ReplaceAll(preview, "\n", " "))
	}
	if len(result.Blocks) == 0 {
		color.Red("    (nothing retrieved, check indexing for this owner)")
	}

	color.Yellow("\n[3] Rendered Evidence (%d chars)", len(result.Evidence))
	fmt.Println(result.Evidence)

	color.Green("\n✅ Done. pipeline=%dms wall=%dms", result.ContextMs, time.Since(started).Milliseconds())
}
