package tools

import (
	"context"
	"fmt"

	"ai-context-engine/pkg/agent"
	"ai-context-engine/pkg/llm"
	"ai-context-engine/pkg/rag/executor"
)

// SearchContext runs the full retrieval pipeline over the user's corpus.
// This is the agent's primary tool; most questions start here.
type SearchContext struct {
	pipeline *executor.Pipeline
}

func NewSearchContext(pipeline *executor.Pipeline) *SearchContext {
	return &SearchContext{pipeline: pipeline}
}

func (t *SearchContext) Definition() llm.Tool {
	return llm.Tool{
		Name: string(agent.ToolSearchContext),
		Description: "Search the user's notes, meeting transcripts, emails and calendar. " +
			"Use for any question about what the user wrote, discussed, received or has scheduled.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What to look for, phrased as a standalone question.",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *SearchContext) Execute(ctx context.Context, inv agent.Invocation) (string, error) {
	query := stringArg(inv.Args, "query")
	if query == "" {
		return "", fmt.Errorf("query argument is required")
	}

	result := t.pipeline.Execute(ctx, inv.UserID, query, inv.Timezone)
	return marshalPayload(map[string]interface{}{
		"evidence":    result.Evidence,
		"block_count": len(result.Blocks),
	}), nil
}
