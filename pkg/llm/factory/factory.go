package factory

import (
	"fmt"

	"ai-context-engine/pkg/llm"
	"ai-context-engine/pkg/llm/gemini"
	"ai-context-engine/pkg/llm/huggingface"
	"ai-context-engine/pkg/llm/ollama"
)

func NewCompletionProvider(providerType, modelName, baseURL, apiKey string) (llm.CompletionProvider, error) {
	switch providerType {
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an api key")
		}
		return gemini.NewGeminiProvider(apiKey, modelName), nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "huggingface":
		if apiKey == "" {
			return nil, fmt.Errorf("huggingface provider requires an api key")
		}
		return huggingface.NewHuggingFaceProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

// NewAgentProvider builds a provider for the tool-calling loop and rejects
// backends without function-calling support up front, so misconfiguration
// fails at boot rather than mid-conversation.
func NewAgentProvider(providerType, modelName, baseURL, apiKey string) (llm.CompletionProvider, error) {
	provider, err := NewCompletionProvider(providerType, modelName, baseURL, apiKey)
	if err != nil {
		return nil, err
	}
	if providerType != "gemini" {
		return nil, fmt.Errorf("agent loop requires a tool-calling provider, %q is not one: %w", providerType, llm.ErrToolsUnsupported)
	}
	return provider, nil
}
