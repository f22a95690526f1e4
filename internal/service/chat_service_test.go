package service

import (
	"context"
	"testing"

	"docchat-be/internal/dto"
	"docchat-be/internal/entity"
	"docchat-be/pkg/rag/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyDocument(t *testing.T, f *fixture, title string) string {
	t.Helper()
	svc := f.ingestion(t, IngestionConfig{ChunkSize: 800, ChunkOverlap: 100}, nil, nil)
	res, err := svc.IngestText(context.Background(), title, title+".pdf", 2000, letters(2000))
	require.NoError(t, err)
	return res.DocumentId.String()
}

func TestAskAnswersAndStoresExchange(t *testing.T) {
	f := newFixture(8)
	docID := readyDocument(t, f, "guide")
	chat := f.chat()

	res, err := chat.Ask(context.Background(), &dto.AskRequest{DocumentId: docID, Message: "What is inside?"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.SessionId)
	assert.Equal(t, "It is in the document.", res.Answer)
	assert.Len(t, res.Sources, 3)

	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0], "PDF Context:\n")
	assert.Contains(t, f.llm.prompts[0], letters(2000)[:100])
	assert.Contains(t, f.llm.prompts[0], "User:\nWhat is inside?")

	stored, err := f.sessions.FindByID(context.Background(), res.SessionId)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Turns, 2)
	assert.Equal(t, entity.RoleUser, stored.Turns[0].Role)
	assert.Equal(t, entity.RoleAssistant, stored.Turns[1].Role)

	// the follow-up sees the first exchange in its prompt
	_, err = chat.Ask(context.Background(), &dto.AskRequest{SessionId: res.SessionId, DocumentId: docID, Message: "And then?"})
	require.NoError(t, err)
	assert.Contains(t, f.llm.prompts[1], "What is inside?")

	stored, err = f.sessions.FindByID(context.Background(), res.SessionId)
	require.NoError(t, err)
	assert.Len(t, stored.Turns, 4)
}

func TestAskSessionBoundToOtherDocument(t *testing.T) {
	f := newFixture(8)
	d1 := readyDocument(t, f, "first")
	d2 := readyDocument(t, f, "second")
	chat := f.chat()

	_, err := chat.Ask(context.Background(), &dto.AskRequest{SessionId: "S1", DocumentId: d1, Message: "hello"})
	require.NoError(t, err)
	calls := f.llm.calls()

	_, err = chat.Ask(context.Background(), &dto.AskRequest{SessionId: "S1", DocumentId: d2, Message: "leak?"})
	assert.ErrorIs(t, err, session.ErrSessionDocumentMismatch)
	assert.Equal(t, calls, f.llm.calls())

	stored, err := f.sessions.FindByID(context.Background(), "S1")
	require.NoError(t, err)
	assert.Len(t, stored.Turns, 2)
}

func TestAskUnknownSessionIdIsAdopted(t *testing.T) {
	f := newFixture(8)
	docID := readyDocument(t, f, "guide")

	res, err := f.chat().Ask(context.Background(), &dto.AskRequest{SessionId: "client-chosen", DocumentId: docID, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "client-chosen", res.SessionId)
}

func TestAskNoRelevantContext(t *testing.T) {
	f := newFixture(8)
	docID := readyDocument(t, f, "guide")
	// orthogonal query vector scores 0 against every chunk
	f.embedder.vectorFor = func(text string) ([]float32, error) {
		return []float32{0, 0, 1, 0}, nil
	}

	res, err := f.chat().Ask(context.Background(), &dto.AskRequest{DocumentId: docID, Message: "Unrelated?"})
	require.NoError(t, err)
	assert.Empty(t, res.Sources)
	assert.Contains(t, f.llm.prompts[0], "No relevant information found in the document.")
}

func TestAskGuards(t *testing.T) {
	f := newFixture(8)
	processing := entity.NewDocument("pending", "pending.pdf", 10, 1)
	require.NoError(t, f.documents.Create(context.Background(), processing))

	tests := []struct {
		name    string
		docID   string
		wantErr error
	}{
		{"malformed id", "not-a-uuid", ErrDocumentNotFound},
		{"unknown document", "6f1d7e8a-3c55-4f8e-9a51-2f0c1b7d9e42", ErrDocumentNotFound},
		{"still processing", processing.Id.String(), ErrDocumentNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.chat().Ask(context.Background(), &dto.AskRequest{SessionId: "guarded", DocumentId: tt.docID, Message: "?"})
			assert.ErrorIs(t, err, tt.wantErr)

			stored, err := f.sessions.FindByID(context.Background(), "guarded")
			require.NoError(t, err)
			assert.Nil(t, stored)
		})
	}
}

func TestAskGenerationFailureAppendsNothing(t *testing.T) {
	f := newFixture(8)
	docID := readyDocument(t, f, "guide")
	f.llm.err = errUpstream

	_, err := f.chat().Ask(context.Background(), &dto.AskRequest{SessionId: "S9", DocumentId: docID, Message: "hi"})
	assert.ErrorIs(t, err, errUpstream)

	stored, err := f.sessions.FindByID(context.Background(), "S9")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Empty(t, stored.Turns)
}
