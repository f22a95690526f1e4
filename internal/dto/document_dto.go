package dto

import (
	"time"

	"github.com/google/uuid"
)

type IngestDocumentRequest struct {
	Title string `form:"title" validate:"required,max=255"`
}

type IngestDocumentResponse struct {
	DocumentId uuid.UUID `json:"document_id"`
	Chunks     int       `json:"chunks"`
	Collection string    `json:"collection,omitempty"`
	Status     string    `json:"status"`
}

type ShowDocumentResponse struct {
	Id            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	FileName      string    `json:"file_name"`
	ByteSize      int64     `json:"byte_size"`
	Chunks        int       `json:"chunks"`
	Status        string    `json:"status"`
	Collection    string    `json:"collection,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ListDocumentsRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=PROCESSING READY FAILED"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

type ListDocumentsResponse struct {
	Documents []*ShowDocumentResponse `json:"documents"`
	Total     int64                   `json:"total"`
}

type DocumentProgressResponse struct {
	DocumentId uuid.UUID  `json:"document_id"`
	Status     string     `json:"status"`
	Uploaded   int        `json:"uploaded"`
	Total      int        `json:"total"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// IndexDocumentMessage is the async indexing job; chunks travel with it because
// the extracted text is not persisted.
type IndexDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
	Chunks     []string  `json:"chunks"`
}
