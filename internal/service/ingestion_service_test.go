package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"docchat-be/internal/dto"
	"docchat-be/internal/entity"
	"docchat-be/internal/repository/specification"
	"docchat-be/pkg/chunk"
	"docchat-be/pkg/embedding"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findDocument(t *testing.T, f *fixture) *entity.Document {
	t.Helper()
	docs, err := f.documents.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return docs[0]
}

func TestIngestTextBecomesReady(t *testing.T) {
	f := newFixture(8)
	svc := f.ingestion(t, IngestionConfig{ChunkSize: 800, ChunkOverlap: 100}, nil, nil)

	res, err := svc.IngestText(context.Background(), "Handbook", "handbook.pdf", 2000, letters(2000))
	require.NoError(t, err)

	assert.Equal(t, string(entity.DocumentStatusReady), res.Status)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, "pdf_docs_"+res.DocumentId.String(), res.Collection)

	assert.Equal(t, 3, f.index.Count(res.Collection))
	assert.True(t, f.index.Indexed(res.Collection))

	doc := findDocument(t, f)
	assert.Equal(t, entity.DocumentStatusReady, doc.Status)
	assert.Equal(t, res.Collection, doc.Collection)

	snap, err := f.tracker.Get(context.Background(), res.DocumentId.String())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 3, snap.Uploaded)
	assert.Equal(t, 3, snap.Total)
}

func TestIngestExtractsBeforeChunking(t *testing.T) {
	f := newFixture(8)
	svc := f.ingestion(t, IngestionConfig{ChunkSize: 800, ChunkOverlap: 100}, &stubExtractor{text: "Short manual."}, nil)

	res, err := svc.Ingest(context.Background(), "Manual", "manual.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)

	doc := findDocument(t, f)
	assert.Equal(t, int64(8), doc.ByteSize)
	assert.Equal(t, "manual.pdf", doc.FileName)
}

func TestIngestRejectsEmptyInputWithoutSideEffects(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"empty", "", ErrEmptyDocument},
		{"whitespace", "  \n\t ", ErrEmptyDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(8)
			svc := f.ingestion(t, IngestionConfig{ChunkSize: 800, ChunkOverlap: 100}, nil, nil)

			_, err := svc.IngestText(context.Background(), "Empty", "empty.pdf", 0, tt.text)
			assert.ErrorIs(t, err, tt.wantErr)

			count, err := f.documents.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestIngestDimensionMismatchCompensates(t *testing.T) {
	f := newFixture(2)
	// the second batch carries the chunks starting with Z and Y
	f.embedder.vectorFor = func(text string) ([]float32, error) {
		if strings.HasPrefix(text, "Z") || strings.HasPrefix(text, "Y") {
			return []float32{1, 0, 0}, nil
		}
		return []float32{1, 0, 0, 0}, nil
	}
	svc := f.ingestion(t, IngestionConfig{ChunkSize: 10, ChunkOverlap: 0}, nil, nil)

	text := strings.Repeat("a", 10) + strings.Repeat("b", 10) + strings.Repeat("Z", 10) + strings.Repeat("Y", 10)
	_, err := svc.IngestText(context.Background(), "Broken", "broken.pdf", 40, text)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingDimensionMismatch)

	doc := findDocument(t, f)
	assert.Equal(t, entity.DocumentStatusFailed, doc.Status)
	assert.Empty(t, doc.Collection)
	assert.Contains(t, doc.FailureReason, "dimension")

	exists, err := f.vectors.Exists(context.Background(), f.vectors.CollectionName(doc.Id.String()))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIngestAbsorbsSingleEmbeddingFailure(t *testing.T) {
	f := newFixture(8)
	f.embedder.vectorFor = func(text string) ([]float32, error) {
		if strings.HasPrefix(text, "b") {
			return nil, errUpstream
		}
		return []float32{0, 1, 0, 0}, nil
	}
	svc := f.ingestion(t, IngestionConfig{ChunkSize: 10, ChunkOverlap: 0}, nil, nil)

	text := strings.Repeat("a", 10) + strings.Repeat("b", 10) + strings.Repeat("c", 10)
	res, err := svc.IngestText(context.Background(), "Partial", "partial.pdf", 30, text)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 2, f.index.Count(res.Collection))
}

func TestIngestFailsWhenNothingEmbeds(t *testing.T) {
	f := newFixture(8)
	f.embedder.vectorFor = func(text string) ([]float32, error) {
		return nil, errUpstream
	}
	svc := f.ingestion(t, IngestionConfig{ChunkSize: 800, ChunkOverlap: 100}, nil, nil)

	_, err := svc.IngestText(context.Background(), "Dead", "dead.pdf", 100, letters(100))
	assert.ErrorIs(t, err, embedding.ErrEmbeddingFailed)

	doc := findDocument(t, f)
	assert.Equal(t, entity.DocumentStatusFailed, doc.Status)
	exists, err := f.vectors.Exists(context.Background(), f.vectors.CollectionName(doc.Id.String()))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIngestCancellationCompensates(t *testing.T) {
	f := newFixture(8)
	svc := f.ingestion(t, IngestionConfig{ChunkSize: 800, ChunkOverlap: 100}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.IngestText(ctx, "Cancelled", "cancelled.pdf", 100, letters(100))
	assert.ErrorIs(t, err, context.Canceled)

	doc := findDocument(t, f)
	assert.Equal(t, entity.DocumentStatusFailed, doc.Status)
}

func TestIngestAsyncDefersIndexing(t *testing.T) {
	f := newFixture(8)
	publisher := &capturingPublisher{}
	svc := f.ingestion(t, IngestionConfig{ChunkSize: 800, ChunkOverlap: 100, Async: true}, nil, publisher)

	res, err := svc.IngestText(context.Background(), "Later", "later.pdf", 2000, letters(2000))
	require.NoError(t, err)
	assert.Equal(t, string(entity.DocumentStatusProcessing), res.Status)
	assert.Empty(t, res.Collection)
	require.Len(t, publisher.payloads, 1)

	var job dto.IndexDocumentMessage
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &job))
	assert.Equal(t, res.DocumentId, job.DocumentId)
	assert.Len(t, job.Chunks, 3)

	doc, err := svc.Index(context.Background(), job.DocumentId, job.Chunks)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusReady, doc.Status)

	_, err = svc.Index(context.Background(), job.DocumentId, job.Chunks)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestIngestAsyncEnqueueFailureMarksFailed(t *testing.T) {
	f := newFixture(8)
	publisher := &capturingPublisher{err: errUpstream}
	svc := f.ingestion(t, IngestionConfig{ChunkSize: 800, ChunkOverlap: 100, Async: true}, nil, publisher)

	_, err := svc.IngestText(context.Background(), "Lost", "lost.pdf", 100, letters(100))
	assert.True(t, errors.Is(err, errUpstream))

	stored, err := f.documents.FindAll(context.Background(), specification.ByStatus{Status: entity.DocumentStatusFailed})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestIndexUnknownDocument(t *testing.T) {
	f := newFixture(8)
	svc := f.ingestion(t, IngestionConfig{ChunkSize: 800, ChunkOverlap: 100}, nil, nil)

	_, err := svc.Index(context.Background(), uuid.New(), []string{"x"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestNewIngestionServiceRejectsBadTunables(t *testing.T) {
	f := newFixture(8)
	_, err := NewIngestionService(IngestionConfig{ChunkSize: 100, ChunkOverlap: 100, Dimension: 4},
		f.factory, &stubExtractor{}, f.batcher, f.vectors, f.tracker, nil, nil, f.log)
	assert.ErrorIs(t, err, chunk.ErrInvalidConfiguration)

	_, err = NewIngestionService(IngestionConfig{ChunkSize: 100, ChunkOverlap: 10, Async: true, Dimension: 4},
		f.factory, &stubExtractor{}, f.batcher, f.vectors, f.tracker, nil, nil, f.log)
	assert.ErrorIs(t, err, chunk.ErrInvalidConfiguration)
}
