package service

import (
	"context"
	"fmt"
	"time"

	"docchat-be/internal/dto"
	"docchat-be/internal/entity"
	"docchat-be/internal/pkg/logger"
	"docchat-be/internal/repository/specification"
	"docchat-be/internal/repository/unitofwork"
	"docchat-be/pkg/embedding"
	"docchat-be/pkg/llm"
	"docchat-be/pkg/rag/prompt"
	"docchat-be/pkg/rag/retrieval"
	"docchat-be/pkg/rag/session"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ChatConfig struct {
	PromptHistory     int
	GenerationTimeout time.Duration
}

type IChatService interface {
	Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error)
}

type chatService struct {
	cfg         ChatConfig
	uowFactory  unitofwork.RepositoryFactory
	sessions    *session.Manager
	batcher     *embedding.Batcher
	retriever   *retrieval.Builder
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

func NewChatService(
	cfg ChatConfig,
	uowFactory unitofwork.RepositoryFactory,
	sessions *session.Manager,
	batcher *embedding.Batcher,
	retriever *retrieval.Builder,
	llmProvider llm.LLMProvider,
	logger logger.ILogger,
) IChatService {
	return &chatService{
		cfg:         cfg,
		uowFactory:  uowFactory,
		sessions:    sessions,
		batcher:     batcher,
		retriever:   retriever,
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Ask answers one question against a READY document. The turn pair is stored
// only after generation succeeded, so a failed request leaves the session untouched.
func (s *chatService) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "chat.ask")
	defer span.End()

	res, err := s.ask(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("chat.session_id", res.SessionId),
		attribute.Int("chat.sources", len(res.Sources)),
	)
	return res, nil
}

func (s *chatService) ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	doc, err := s.readyDocument(ctx, req.DocumentId)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Resolve(ctx, req.SessionId, doc.Id)
	if err != nil {
		return nil, err
	}

	queryVector, err := s.batcher.EmbedOne(ctx, req.Message, embedding.TaskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	retrieved, err := s.retriever.BuildContext(ctx, doc.Id.String(), queryVector)
	if err != nil {
		return nil, err
	}

	promptText := prompt.NewBuilder(retrieved.Context, sess.Turns, req.Message, s.cfg.PromptHistory).Build()

	genCtx := ctx
	if s.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.cfg.GenerationTimeout)
		defer cancel()
	}

	answer, err := s.llmProvider.Generate(genCtx, promptText)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	if err := s.sessions.AppendExchange(ctx, sess, req.Message, answer); err != nil {
		return nil, err
	}

	s.logger.Info("Chat", "Question answered", map[string]interface{}{
		"session_id":  sess.Id,
		"document_id": doc.Id.String(),
		"sources":     len(retrieved.Sources),
		"no_context":  retrieved.Empty(),
	})

	sources := make([]dto.SourceDTO, 0, len(retrieved.Sources))
	for _, src := range retrieved.Sources {
		sources = append(sources, dto.SourceDTO{
			ChunkIndex: src.ChunkIndex,
			Score:      src.Score,
			Text:       src.Text,
		})
	}

	return &dto.AskResponse{
		SessionId: sess.Id,
		Answer:    answer,
		Sources:   sources,
	}, nil
}

func (s *chatService) readyDocument(ctx context.Context, rawId string) (*entity.Document, error) {
	id, err := uuid.Parse(rawId)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a document id", ErrDocumentNotFound, rawId)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	if doc.Status != entity.DocumentStatusReady {
		return nil, fmt.Errorf("%w: %s is %s", ErrDocumentNotReady, id, doc.Status)
	}
	return doc, nil
}
