package service

import "errors"

var (
	ErrEmptyDocument              = errors.New("document has no extractable text")
	ErrNoChunksProduced           = errors.New("chunking produced no chunks")
	ErrEmbeddingDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrDocumentNotFound           = errors.New("document not found")
	ErrDocumentNotReady           = errors.New("document is not ready")
	ErrNotFound                   = errors.New("resource not found")
)
