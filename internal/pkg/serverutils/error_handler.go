package serverutils

import (
	"context"
	"errors"

	"docchat-be/internal/entity"
	"docchat-be/internal/service"
	"docchat-be/pkg/chunk"
	"docchat-be/pkg/embedding"
	"docchat-be/pkg/extract"
	"docchat-be/pkg/llm/stream"
	"docchat-be/pkg/rag/session"
	"docchat-be/pkg/vectorindex"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a pipeline error onto an HTTP status code.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, ErrValidation),
		errors.Is(err, chunk.ErrInvalidConfiguration),
		errors.Is(err, service.ErrEmptyDocument),
		errors.Is(err, service.ErrNoChunksProduced),
		errors.Is(err, extract.ErrEmptyFile),
		errors.Is(err, extract.ErrNoExtractableText):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrDocumentNotFound), errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, session.ErrSessionDocumentMismatch),
		errors.Is(err, service.ErrDocumentNotReady),
		errors.Is(err, entity.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, stream.ErrCancelled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return fiber.StatusRequestTimeout
	case errors.Is(err, embedding.ErrEmbeddingFailed),
		errors.Is(err, service.ErrEmbeddingDimensionMismatch),
		errors.Is(err, vectorindex.ErrDimensionMismatch),
		errors.Is(err, vectorindex.ErrUpsertFailed),
		errors.Is(err, vectorindex.ErrCollectionNotFound),
		errors.Is(err, stream.ErrMalformedStreamRecord),
		errors.Is(err, stream.ErrStreamError):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}
