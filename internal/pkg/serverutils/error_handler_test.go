package serverutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"docchat-be/internal/service"
	"docchat-be/pkg/chunk"
	"docchat-be/pkg/embedding"
	"docchat-be/pkg/llm/stream"
	"docchat-be/pkg/rag/session"
	"docchat-be/pkg/vectorindex"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid configuration", chunk.ErrInvalidConfiguration, 400},
		{"empty document", fmt.Errorf("ingest: %w", service.ErrEmptyDocument), 400},
		{"not found", service.ErrDocumentNotFound, 404},
		{"session mismatch", fmt.Errorf("resolve: %w", session.ErrSessionDocumentMismatch), 409},
		{"not ready", service.ErrDocumentNotReady, 409},
		{"embedding failed", embedding.ErrEmbeddingFailed, 502},
		{"upsert failed", vectorindex.ErrUpsertFailed, 502},
		{"stream error", stream.ErrStreamError, 502},
		{"cancelled", stream.ErrCancelled, 408},
		{"fiber error", fiber.NewError(fiber.StatusRequestEntityTooLarge, "too big"), 413},
		{"unknown", errors.New("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/fail", func(ctx *fiber.Ctx) error {
		return fmt.Errorf("ask: %w", session.ErrSessionDocumentMismatch)
	})
	app.Get("/ok", func(ctx *fiber.Ctx) error {
		return ctx.JSON(SuccessResponse("fine", 1))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var envelope BaseResponse[any]
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, 409, envelope.Code)

	resp, err = app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestValidateRequest(t *testing.T) {
	type request struct {
		DocumentId string `validate:"required,uuid"`
		Message    string `validate:"required,max=10"`
	}

	assert.NoError(t, ValidateRequest(request{DocumentId: "2b1c3b7e-8f43-4a8a-a7c2-0d1a5c9f7e11", Message: "hi"}))

	err := ValidateRequest(request{Message: "this message is too long"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "DocumentId is required")
	assert.Contains(t, err.Error(), "Message must satisfy max=10")
}
