package vectorindex

import (
	"context"
	"errors"
)

var (
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
	ErrUpsertFailed       = errors.New("vector upsert failed")
	ErrCollectionNotFound = errors.New("vector collection not found")
)

const (
	PayloadText       = "text"
	PayloadDocumentID = "document_id"
	PayloadTitle      = "title"
	PayloadChunkIndex = "chunk_index"
)

// Payload travels with every point so search hits can be attributed without a second lookup.
type Payload struct {
	Text       string `json:"text"`
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	ChunkIndex int    `json:"chunk_index"`
}

func (p Payload) ToMap() map[string]any {
	return map[string]any{
		PayloadText:       p.Text,
		PayloadDocumentID: p.DocumentID,
		PayloadTitle:      p.Title,
		PayloadChunkIndex: int64(p.ChunkIndex),
	}
}

type Point struct {
	ID      uint64
	Vector  []float32
	Payload Payload
}

type Match struct {
	ID      uint64
	Score   float32
	Payload *Payload
}

type SearchOptions struct {
	Limit          int
	ScoreThreshold float32
	WithPayload    bool
}

// Index is a named-collection nearest-neighbour store using cosine similarity.
type Index interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	// CreateCollection creates the collection with indexing deferred until EnableIndexing.
	CreateCollection(ctx context.Context, name string, dimension int) error
	// CollectionDimension returns ErrCollectionNotFound when the collection is absent.
	CollectionDimension(ctx context.Context, name string) (int, error)
	Upsert(ctx context.Context, name string, points []Point) error
	Search(ctx context.Context, name string, vector []float32, opts SearchOptions) ([]Match, error)
	// DeleteCollection returns ErrCollectionNotFound when the collection is absent.
	DeleteCollection(ctx context.Context, name string) error
	EnableIndexing(ctx context.Context, name string) error
}
