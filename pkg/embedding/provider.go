package embedding

// Task types understood by the embedding providers. Documents are embedded
// at index time with RETRIEVAL_DOCUMENT; queries at search time with
// RETRIEVAL_QUERY.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// EmbeddingProvider defines the interface for generating text embeddings.
// GenerateBatch must preserve input order in its response.
type EmbeddingProvider interface {
	Generate(text string, taskType string) (*EmbeddingResponse, error)
	GenerateBatch(texts []string, taskType string) (*BatchEmbeddingResponse, error)
}

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// BatchEmbeddingResponse mirrors the Gemini batchEmbedContents wire shape;
// the other providers map into it.
type BatchEmbeddingResponse struct {
	Embeddings []EmbeddingResponseEmbedding `json:"embeddings"`
}
