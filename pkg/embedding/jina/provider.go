package jina

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-context-engine/pkg/embedding"
)

type JinaProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewJinaProvider(apiKey string) *JinaProvider {
	return &JinaProvider{
		apiKey:  apiKey,
		baseURL: "https://api.jina.ai/v1/embeddings",
		model:   "jina-embeddings-v2-base-en",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *JinaProvider) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	res, err := p.call([]string{text})
	if err != nil {
		return nil, err
	}
	return &embedding.EmbeddingResponse{
		Embedding: res.Embeddings[0],
	}, nil
}

// GenerateBatch sends all texts in one request. Jina's API is natively
// batched; responses carry an index we re-sort by to guarantee input order.
func (p *JinaProvider) GenerateBatch(texts []string, taskType string) (*embedding.BatchEmbeddingResponse, error) {
	return p.call(texts)
}

func (p *JinaProvider) call(input []string) (*embedding.BatchEmbeddingResponse, error) {
	reqBody := embeddingRequest{
		Model: p.model,
		Input: input,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", p.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jina api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var jinaResp embeddingResponse
	if err := json.Unmarshal(bodyBytes, &jinaResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if jinaResp.Error != nil {
		return nil, fmt.Errorf("jina api returned error: %s", jinaResp.Error.Message)
	}

	if len(jinaResp.Data) != len(input) {
		return nil, fmt.Errorf("jina batch size mismatch: sent %d texts, got %d embeddings", len(input), len(jinaResp.Data))
	}

	// Jina returns 768 dimensions for v2-base-en, matching the store's
	// vector column.
	out := &embedding.BatchEmbeddingResponse{
		Embeddings: make([]embedding.EmbeddingResponseEmbedding, len(input)),
	}
	for _, d := range jinaResp.Data {
		if d.Index < 0 || d.Index >= len(input) {
			return nil, fmt.Errorf("jina returned out-of-range index %d", d.Index)
		}
		out.Embeddings[d.Index] = embedding.EmbeddingResponseEmbedding{Values: d.Embedding}
	}
	return out, nil
}
