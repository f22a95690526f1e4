package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"docchat-be/internal/dto"
	"docchat-be/internal/entity"
	"docchat-be/internal/pkg/logger"
	"docchat-be/internal/repository/specification"
	"docchat-be/internal/repository/unitofwork"
	"docchat-be/pkg/chunk"
	"docchat-be/pkg/embedding"
	"docchat-be/pkg/events"
	"docchat-be/pkg/extract"
	"docchat-be/pkg/progress"
	"docchat-be/pkg/vectorindex"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const tracerName = "docchat-be/internal/service"

type IngestionConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Dimension    int
	// Async hands indexing to the background consumer and returns while PROCESSING.
	Async bool
}

type IIngestionService interface {
	Ingest(ctx context.Context, title, fileName string, content []byte) (*dto.IngestDocumentResponse, error)
	IngestText(ctx context.Context, title, fileName string, byteSize int64, text string) (*dto.IngestDocumentResponse, error)
	Index(ctx context.Context, documentId uuid.UUID, chunks []string) (*entity.Document, error)
}

type ingestionService struct {
	cfg              IngestionConfig
	uowFactory       unitofwork.RepositoryFactory
	extractor        extract.Extractor
	splitter         *chunk.Splitter
	batcher          *embedding.Batcher
	vectors          *vectorindex.Manager
	tracker          progress.Tracker
	publisherService IPublisherService
	eventPublisher   events.Publisher
	logger           logger.ILogger
}

func NewIngestionService(
	cfg IngestionConfig,
	uowFactory unitofwork.RepositoryFactory,
	extractor extract.Extractor,
	batcher *embedding.Batcher,
	vectors *vectorindex.Manager,
	tracker progress.Tracker,
	publisherService IPublisherService,
	eventPublisher events.Publisher,
	logger logger.ILogger,
) (IIngestionService, error) {
	splitter, err := chunk.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", chunk.ErrInvalidConfiguration)
	}
	if cfg.Async && publisherService == nil {
		return nil, fmt.Errorf("%w: async ingestion needs a publisher", chunk.ErrInvalidConfiguration)
	}

	return &ingestionService{
		cfg:              cfg,
		uowFactory:       uowFactory,
		extractor:        extractor,
		splitter:         splitter,
		batcher:          batcher,
		vectors:          vectors,
		tracker:          tracker,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		logger:           logger,
	}, nil
}

func (s *ingestionService) Ingest(ctx context.Context, title, fileName string, content []byte) (*dto.IngestDocumentResponse, error) {
	text, err := s.extractor.Extract(ctx, content)
	if err != nil {
		return nil, err
	}
	return s.IngestText(ctx, title, fileName, int64(len(content)), text)
}

// IngestText chunks already extracted text, records the document and indexes it.
// Nothing is written before the text has produced at least one chunk.
func (s *ingestionService) IngestText(ctx context.Context, title, fileName string, byteSize int64, text string) (*dto.IngestDocumentResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	chunks, err := s.splitter.Split(text)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunksProduced
	}

	doc := entity.NewDocument(title, fileName, byteSize, len(chunks))
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	s.logger.Info("Ingestion", "Document accepted", map[string]interface{}{
		"document_id": doc.Id.String(),
		"title":       title,
		"chunks":      len(chunks),
		"async":       s.cfg.Async,
	})

	if s.cfg.Async {
		if err := s.enqueue(ctx, doc, chunks); err != nil {
			return nil, err
		}
		return &dto.IngestDocumentResponse{
			DocumentId: doc.Id,
			Chunks:     doc.ChunkCount,
			Status:     string(doc.Status),
		}, nil
	}

	indexed, err := s.index(ctx, doc, chunks)
	if err != nil {
		return nil, fmt.Errorf("index document %s: %w", doc.Id, err)
	}

	return &dto.IngestDocumentResponse{
		DocumentId: indexed.Id,
		Chunks:     indexed.ChunkCount,
		Collection: indexed.Collection,
		Status:     string(indexed.Status),
	}, nil
}

func (s *ingestionService) enqueue(ctx context.Context, doc *entity.Document, chunks []string) error {
	payload, err := json.Marshal(dto.IndexDocumentMessage{DocumentId: doc.Id, Chunks: chunks})
	if err == nil {
		err = s.publisherService.Publish(ctx, payload)
	}
	if err != nil {
		// the job never left the process, so the record must not stay PROCESSING
		s.fail(context.WithoutCancel(ctx), doc, "", err)
		return fmt.Errorf("enqueue document %s: %w", doc.Id, err)
	}
	return nil
}

// Index runs the indexing saga for a PROCESSING document. It is the entry point
// for the background consumer.
func (s *ingestionService) Index(ctx context.Context, documentId uuid.UUID, chunks []string) (*entity.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: documentId})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentId)
	}
	if doc.IsTerminal() {
		return nil, fmt.Errorf("%w: document %s is already %s", entity.ErrInvalidTransition, doc.Id, doc.Status)
	}
	return s.index(ctx, doc, chunks)
}

func (s *ingestionService) index(ctx context.Context, doc *entity.Document, chunks []string) (*entity.Document, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ingestion.index")
	defer span.End()

	collection := s.vectors.CollectionName(doc.Id.String())
	span.SetAttributes(
		attribute.String("document.id", doc.Id.String()),
		attribute.String("vector.collection", collection),
		attribute.Int("document.chunks", len(chunks)),
	)

	indexed, err := s.populate(ctx, doc, collection, chunks)
	if err == nil {
		err = s.markReady(ctx, doc, collection, indexed)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.fail(context.WithoutCancel(ctx), doc, collection, err)
		return nil, err
	}

	s.logger.Info("Ingestion", "Document ready", map[string]interface{}{
		"document_id": doc.Id.String(),
		"collection":  collection,
		"indexed":     indexed,
		"chunks":      len(chunks),
	})
	s.publish(ctx, events.NewDocumentReady(doc.Id.String(), doc.Title, collection, indexed))
	return doc, nil
}

// populate creates the collection and uploads every embeddable chunk. Point ids
// equal the chunk index so a rerun overwrites rather than duplicates.
func (s *ingestionService) populate(ctx context.Context, doc *entity.Document, collection string, chunks []string) (int, error) {
	if err := s.vectors.EnsureCollection(ctx, collection, s.cfg.Dimension); err != nil {
		return 0, err
	}

	total := len(chunks)
	batchSize := s.batcher.BatchSize()
	var uploaded atomic.Int64

	// batches finish out of order; only a larger total is reported
	var reportMu sync.Mutex
	reported := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batcher.Concurrency())

	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}

		g.Go(func() error {
			vectors, err := s.batcher.EmbedBatch(gctx, chunks[start:end], embedding.TaskTypeDocument)
			if err != nil {
				return err
			}

			points := make([]vectorindex.Point, 0, len(vectors))
			for i, vec := range vectors {
				if vec == nil {
					continue
				}
				idx := start + i
				if len(vec) != s.cfg.Dimension {
					return fmt.Errorf("%w: chunk %d has %d values, expected %d",
						ErrEmbeddingDimensionMismatch, idx, len(vec), s.cfg.Dimension)
				}
				points = append(points, vectorindex.Point{
					ID:     uint64(idx),
					Vector: vec,
					Payload: vectorindex.Payload{
						Text:       chunks[idx],
						DocumentID: doc.Id.String(),
						Title:      doc.Title,
						ChunkIndex: idx,
					},
				})
			}

			if err := s.vectors.Upsert(gctx, collection, points); err != nil {
				return err
			}

			done := int(uploaded.Add(int64(len(points))))
			s.reportProgress(gctx, &reportMu, &reported, doc.Id.String(), done, total)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	indexed := int(uploaded.Load())
	if indexed == 0 {
		return 0, fmt.Errorf("%w: none of %d chunks could be embedded", embedding.ErrEmbeddingFailed, total)
	}

	if err := s.vectors.Activate(ctx, collection); err != nil {
		return 0, err
	}
	return indexed, nil
}

func (s *ingestionService) reportProgress(ctx context.Context, mu *sync.Mutex, reported *int, documentID string, done, total int) {
	mu.Lock()
	defer mu.Unlock()
	if done <= *reported {
		return
	}
	if err := s.tracker.Report(ctx, documentID, done, total); err != nil {
		s.logger.Warn("Ingestion", "Failed to report progress", map[string]interface{}{
			"document_id": documentID,
			"error":       err.Error(),
		})
		return
	}
	*reported = done
}

func (s *ingestionService) markReady(ctx context.Context, doc *entity.Document, collection string, indexed int) error {
	ready := *doc
	if err := ready.MarkReady(collection, indexed); err != nil {
		return err
	}

	if err := s.saveTransition(ctx, &ready); err != nil {
		return fmt.Errorf("save READY transition: %w", err)
	}
	*doc = ready
	return nil
}

// saveTransition writes a terminal status in its own transaction.
func (s *ingestionService) saveTransition(ctx context.Context, doc *entity.Document) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().SaveTransition(ctx, doc); err != nil {
		return err
	}
	return uow.Commit()
}

// fail records FAILED before dropping the collection, so a FAILED record never
// points at live vectors. Cleanup errors are logged and never replace cause.
func (s *ingestionService) fail(ctx context.Context, doc *entity.Document, collection string, cause error) {
	details := map[string]interface{}{
		"document_id": doc.Id.String(),
		"collection":  collection,
		"error":       cause.Error(),
	}
	s.logger.Error("Ingestion", "Indexing failed, compensating", details)

	if err := doc.MarkFailed(cause.Error()); err != nil {
		s.logger.Error("Ingestion", "Cannot mark document failed", map[string]interface{}{
			"document_id": doc.Id.String(),
			"error":       err.Error(),
		})
	} else {
		if err := s.saveTransition(ctx, doc); err != nil {
			s.logger.Error("Ingestion", "Failed to persist FAILED status", map[string]interface{}{
				"document_id": doc.Id.String(),
				"error":       err.Error(),
			})
		}
	}

	if collection != "" {
		if err := s.vectors.DeleteCollection(ctx, collection); err != nil {
			s.logger.Warn("Ingestion", "Failed to delete collection during compensation", map[string]interface{}{
				"document_id": doc.Id.String(),
				"collection":  collection,
				"error":       err.Error(),
			})
		}
	}

	s.publish(ctx, events.NewDocumentFailed(doc.Id.String(), doc.Title, cause.Error()))
}

func (s *ingestionService) publish(ctx context.Context, event events.BaseEvent) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Ingestion", "Failed to publish lifecycle event", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
	}
}
