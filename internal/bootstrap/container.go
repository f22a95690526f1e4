package bootstrap

import (
	"context"
	"fmt"
	"log"

	"docchat-be/internal/config"
	"docchat-be/internal/controller"
	"docchat-be/internal/pkg/logger"
	"docchat-be/internal/repository/contract"
	"docchat-be/internal/repository/implementation"
	"docchat-be/internal/repository/memory"
	"docchat-be/internal/repository/unitofwork"
	"docchat-be/internal/service"
	"docchat-be/pkg/embedding"
	embeddingFactory "docchat-be/pkg/embedding/factory"
	"docchat-be/pkg/events"
	"docchat-be/pkg/extract"
	llmFactory "docchat-be/pkg/llm/factory"
	pktNats "docchat-be/pkg/nats"
	"docchat-be/pkg/progress"
	"docchat-be/pkg/rag/retrieval"
	"docchat-be/pkg/rag/session"
	"docchat-be/pkg/vectorindex"
	memoryIndex "docchat-be/pkg/vectorindex/memory"
	"docchat-be/pkg/vectorindex/pgvector"
	"docchat-be/pkg/vectorindex/qdrant"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	ChatController     controller.IChatController
	SystemController   controller.ISystemController

	// Services, exposed for main.go and the CLI
	IngestionService service.IIngestionService
	ChatService      service.IChatService
	DocumentService  service.IDocumentService
	ConsumerService  service.IConsumerService

	Logger logger.ILogger

	closers []func() error
}

// NewContainer wires every component from cfg. db may be nil when neither the
// store nor the vector backend is postgres.
func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{Logger: sysLogger}

	// 1. Stores
	uowFactory, sessionRepo, err := newStores(db, cfg)
	if err != nil {
		return nil, err
	}

	// 2. Vector index
	index, err := c.newVectorIndex(db, cfg)
	if err != nil {
		return c.abort(err)
	}
	vectors := vectorindex.NewManager(index, vectorindex.Config{
		CollectionPrefix:  cfg.Vector.CollectionPrefix,
		UpsertBatchSize:   cfg.Vector.UpsertBatchSize,
		UpsertConcurrency: cfg.Vector.UpsertConcurrency,
	}, sysLogger)

	// 3. AI providers
	embeddingModel := ""
	apiKey := ""
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		embeddingModel = cfg.Ai.EmbeddingModel
	case "gemini":
		apiKey = cfg.Keys.GoogleGemini
	case "jina":
		apiKey = cfg.Keys.Jina
	}
	baseURL := ""
	if cfg.Ai.EmbeddingProvider == "ollama" {
		baseURL = cfg.Ai.OllamaBaseURL
	}
	embeddingProvider, err := embeddingFactory.NewEmbeddingProvider(embeddingFactory.Config{
		Provider: cfg.Ai.EmbeddingProvider,
		BaseURL:  baseURL,
		Model:    embeddingModel,
		ApiKey:   apiKey,
	})
	if err != nil {
		return c.abort(err)
	}
	log.Printf("[INFO] Using Embedding Provider: %s", cfg.Ai.EmbeddingProvider)

	batcher := embedding.NewBatcher(embeddingProvider, embedding.BatcherConfig{
		BatchSize:   cfg.Rag.EmbedBatchSize,
		Concurrency: cfg.Rag.EmbedConcurrency,
		RateLimit:   cfg.Rag.EmbedRateLimit,
	}, sysLogger)

	llmProvider, err := llmFactory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL)
	if err != nil {
		return c.abort(err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure: progress, lifecycle events, job queue
	tracker := c.newTracker(cfg)
	eventPublisher := c.newEventPublisher(cfg, sysLogger)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, pubSub.Close)
	publisherService := service.NewPublisherService(cfg.Rag.IngestTopic, pubSub)

	// 5. Services
	c.IngestionService, err = service.NewIngestionService(
		service.IngestionConfig{
			ChunkSize:    cfg.Rag.ChunkSize,
			ChunkOverlap: cfg.Rag.ChunkOverlap,
			Dimension:    cfg.Vector.Dimension,
			Async:        cfg.Rag.IngestAsync,
		},
		uowFactory,
		extract.NewTikaExtractor(cfg.Ai.TikaURL),
		batcher,
		vectors,
		tracker,
		publisherService,
		eventPublisher,
		sysLogger,
	)
	if err != nil {
		return c.abort(err)
	}
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Rag.IngestTopic, c.IngestionService, sysLogger)

	retriever := retrieval.NewBuilder(vectors, retrieval.Config{
		Limit:            cfg.Rag.Limit,
		ScoreThreshold:   float32(cfg.Rag.ScoreThreshold),
		MaxContextChars:  cfg.Rag.MaxContextChars,
		NoContextMessage: cfg.Rag.NoContextMessage,
	}, sysLogger)

	c.ChatService = service.NewChatService(
		service.ChatConfig{
			PromptHistory:     cfg.Rag.PromptHistory,
			GenerationTimeout: cfg.Ai.GenerationTimeout,
		},
		uowFactory,
		session.NewManager(sessionRepo, cfg.Rag.HistoryCap, sysLogger),
		batcher,
		retriever,
		llmProvider,
		sysLogger,
	)
	c.DocumentService = service.NewDocumentService(uowFactory, tracker)

	// 6. Controllers
	c.DocumentController = controller.NewDocumentController(c.IngestionService, c.DocumentService)
	c.ChatController = controller.NewChatController(c.ChatService)
	c.SystemController = controller.NewSystemController(service.NewSystemLogService(sysLogger))

	return c, nil
}

func newStores(db *gorm.DB, cfg *config.Config) (unitofwork.RepositoryFactory, contract.ChatSessionRepository, error) {
	switch cfg.App.StoreBackend {
	case "memory":
		sessions := memory.NewSessionRepository(cfg.Rag.SessionTTL)
		return unitofwork.NewMemoryRepositoryFactory(memory.NewDocumentRepository(), sessions), sessions, nil
	default:
		if db == nil {
			return nil, nil, fmt.Errorf("store backend %s requires a database", cfg.App.StoreBackend)
		}
		return unitofwork.NewRepositoryFactory(db), implementation.NewChatSessionRepository(db), nil
	}
}

func (c *Container) newVectorIndex(db *gorm.DB, cfg *config.Config) (vectorindex.Index, error) {
	switch cfg.Vector.Backend {
	case "memory":
		return memoryIndex.NewIndex(), nil
	case "pgvector":
		if db == nil {
			return nil, fmt.Errorf("pgvector backend requires a database")
		}
		index := pgvector.NewIndex(db)
		if err := index.Migrate(context.Background()); err != nil {
			return nil, fmt.Errorf("migrate pgvector tables: %w", err)
		}
		return index, nil
	default:
		index, client, err := qdrant.NewIndex(qdrant.Config{
			Host:   cfg.Vector.QdrantHost,
			Port:   cfg.Vector.QdrantPort,
			APIKey: cfg.Vector.QdrantAPIKey,
			UseTLS: cfg.Vector.QdrantUseTLS,
		})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, client.Close)
		return index, nil
	}
}

func (c *Container) newTracker(cfg *config.Config) progress.Tracker {
	if cfg.App.RedisURL == "" {
		return progress.NewMemoryTracker(progress.DefaultTTL)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Progress stays in memory", err)
		_ = rdb.Close()
		return progress.NewMemoryTracker(progress.DefaultTTL)
	}
	c.closers = append(c.closers, rdb.Close)
	return progress.NewRedisTracker(rdb, progress.DefaultTTL)
}

// newEventPublisher returns a nil interface when NATS is off, never a nil *Publisher.
func (c *Container) newEventPublisher(cfg *config.Config, sysLogger logger.ILogger) events.Publisher {
	if cfg.App.NatsURL == "" {
		return nil
	}
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		return nil
	}
	c.closers = append(c.closers, func() error {
		natsPub.Close()
		return nil
	})
	return natsPub
}

// Close releases client connections in reverse order of creation.
func (c *Container) Close() {
	c.release()
	_ = c.Logger.Sync()
}

func (c *Container) release() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Printf("[WARN] Failed to close resource: %v", err)
		}
	}
	c.closers = nil
}

// abort releases what a partial NewContainer already opened.
func (c *Container) abort(err error) (*Container, error) {
	c.release()
	return nil, err
}
