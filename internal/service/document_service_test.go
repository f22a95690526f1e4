package service

import (
	"context"
	"testing"

	"docchat-be/internal/dto"
	"docchat-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentShowAndProgress(t *testing.T) {
	f := newFixture(8)
	docID := readyDocument(t, f, "guide")
	svc := NewDocumentService(f.factory, f.tracker)

	id := uuid.MustParse(docID)
	shown, err := svc.Show(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "guide", shown.Title)
	assert.Equal(t, string(entity.DocumentStatusReady), shown.Status)

	prog, err := svc.Progress(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 3, prog.Uploaded)
	assert.Equal(t, 3, prog.Total)

	_, err = svc.Show(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDocumentProgressWhileProcessing(t *testing.T) {
	f := newFixture(8)
	doc := entity.NewDocument("big", "big.pdf", 100, 40)
	require.NoError(t, f.documents.Create(context.Background(), doc))
	svc := NewDocumentService(f.factory, f.tracker)

	prog, err := svc.Progress(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, prog.Uploaded)
	assert.Equal(t, 40, prog.Total)
	assert.Nil(t, prog.UpdatedAt)

	require.NoError(t, f.tracker.Report(context.Background(), doc.Id.String(), 16, 40))
	prog, err = svc.Progress(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Equal(t, 16, prog.Uploaded)
	assert.NotNil(t, prog.UpdatedAt)
}

func TestDocumentList(t *testing.T) {
	f := newFixture(8)
	readyDocument(t, f, "one")
	readyDocument(t, f, "two")
	pending := entity.NewDocument("three", "three.pdf", 10, 1)
	require.NoError(t, f.documents.Create(context.Background(), pending))
	svc := NewDocumentService(f.factory, f.tracker)

	tests := []struct {
		name      string
		req       dto.ListDocumentsRequest
		wantTotal int64
		wantFirst string
		wantLen   int
	}{
		{"all newest first", dto.ListDocumentsRequest{}, 3, "three", 3},
		{"ready only", dto.ListDocumentsRequest{Status: "READY"}, 2, "two", 2},
		{"paged", dto.ListDocumentsRequest{Limit: 1, Offset: 1}, 3, "two", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.List(context.Background(), &tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, res.Total)
			require.Len(t, res.Documents, tt.wantLen)
			assert.Equal(t, tt.wantFirst, res.Documents[0].Title)
		})
	}
}
