package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "PROCESSING"
	DocumentStatusReady      DocumentStatus = "READY"
	DocumentStatusFailed     DocumentStatus = "FAILED"
)

var ErrInvalidTransition = errors.New("invalid document status transition")

type Document struct {
	Id            uuid.UUID
	Title         string
	FileName      string
	ByteSize      int64
	ChunkCount    int
	Status        DocumentStatus
	Collection    string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewDocument starts a document in PROCESSING; its id is fixed before any indexing side effect.
func NewDocument(title, fileName string, byteSize int64, chunkCount int) *Document {
	now := time.Now()
	return &Document{
		Id:         uuid.New(),
		Title:      title,
		FileName:   fileName,
		ByteSize:   byteSize,
		ChunkCount: chunkCount,
		Status:     DocumentStatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkReady records the live collection and the number of points it holds.
func (d *Document) MarkReady(collection string, indexedChunks int) error {
	if d.Status != DocumentStatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, DocumentStatusReady)
	}
	d.Status = DocumentStatusReady
	d.Collection = collection
	d.ChunkCount = indexedChunks
	d.FailureReason = ""
	d.UpdatedAt = time.Now()
	return nil
}

// MarkFailed clears the collection name; a failed document never points at a collection.
func (d *Document) MarkFailed(reason string) error {
	if d.Status != DocumentStatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, DocumentStatusFailed)
	}
	d.Status = DocumentStatusFailed
	d.Collection = ""
	d.FailureReason = reason
	d.UpdatedAt = time.Now()
	return nil
}

func (d *Document) IsTerminal() bool {
	return d.Status == DocumentStatusReady || d.Status == DocumentStatusFailed
}
