package mapper

import (
	"testing"

	"docchat-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSessionTurnsSurviveMapping(t *testing.T) {
	m := NewChatMapper()
	docID := uuid.New()

	in := &entity.ChatSession{
		Id:         "S1",
		DocumentId: docID,
		Turns: []entity.Turn{
			{Role: entity.RoleUser, Content: "what is it?"},
			{Role: entity.RoleAssistant, Content: "a document"},
		},
	}

	mdl, err := m.ChatSessionToModel(in)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"role":"user","content":"what is it?"},{"role":"assistant","content":"a document"}]`, string(mdl.Turns))

	out, err := m.ChatSessionToEntity(mdl)
	require.NoError(t, err)
	assert.Equal(t, in.Turns, out.Turns)
	assert.Equal(t, docID, out.DocumentId)
}

func TestChatSessionEmptyTurns(t *testing.T) {
	m := NewChatMapper()

	mdl, err := m.ChatSessionToModel(&entity.ChatSession{Id: "S"})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(mdl.Turns))

	mdl.Turns = nil
	out, err := m.ChatSessionToEntity(mdl)
	require.NoError(t, err)
	assert.NotNil(t, out.Turns)
	assert.Empty(t, out.Turns)
}
