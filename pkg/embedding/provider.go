package embedding

import (
	"context"
	"errors"
)

// ErrEmbeddingFailed means the embedding service produced no usable vector for a text.
var ErrEmbeddingFailed = errors.New("embedding failed")

const (
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery    = "RETRIEVAL_QUERY"
)

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// Vector returns the raw values, or nil when the response carries none.
func (r *EmbeddingResponse) Vector() []float32 {
	if r == nil {
		return nil
	}
	return r.Embedding.Values
}
