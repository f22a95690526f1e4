package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"docchat-be/internal/pkg/logger"
	"docchat-be/internal/repository/memory"
	"docchat-be/internal/repository/unitofwork"
	"docchat-be/pkg/embedding"
	"docchat-be/pkg/llm"
	"docchat-be/pkg/progress"
	"docchat-be/pkg/rag/retrieval"
	"docchat-be/pkg/rag/session"
	"docchat-be/pkg/vectorindex"
	memoryIndex "docchat-be/pkg/vectorindex/memory"

	"github.com/stretchr/testify/require"
)

const testDimension = 4

// stubEmbedder returns a unit vector for every text unless vectorFor overrides it.
type stubEmbedder struct {
	vectorFor func(text string) ([]float32, error)
}

func (s *stubEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	vec := []float32{1, 0, 0, 0}
	if s.vectorFor != nil {
		var err error
		if vec, err = s.vectorFor(text); err != nil {
			return nil, err
		}
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: vec},
	}, nil
}

type stubLLM struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func (s *stubLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	return s.text, s.err
}

type capturingPublisher struct {
	payloads [][]byte
	err      error
}

func (c *capturingPublisher) Publish(ctx context.Context, payload []byte) error {
	if c.err != nil {
		return c.err
	}
	c.payloads = append(c.payloads, payload)
	return nil
}

type fixture struct {
	documents *memory.DocumentRepository
	sessions  *memory.SessionRepository
	factory   unitofwork.RepositoryFactory
	index     *memoryIndex.Index
	vectors   *vectorindex.Manager
	tracker   *progress.MemoryTracker
	embedder  *stubEmbedder
	batcher   *embedding.Batcher
	llm       *stubLLM
	log       logger.ILogger
}

func newFixture(batchSize int) *fixture {
	log := logger.NewNopLogger()
	documents := memory.NewDocumentRepository()
	sessions := memory.NewSessionRepository(0)
	index := memoryIndex.NewIndex()
	embedder := &stubEmbedder{}

	return &fixture{
		documents: documents,
		sessions:  sessions,
		factory:   unitofwork.NewMemoryRepositoryFactory(documents, sessions),
		index:     index,
		vectors:   vectorindex.NewManager(index, vectorindex.Config{}, log),
		tracker:   progress.NewMemoryTracker(0),
		embedder:  embedder,
		batcher:   embedding.NewBatcher(embedder, embedding.BatcherConfig{BatchSize: batchSize}, log),
		llm:       &stubLLM{answer: "It is in the document."},
		log:       log,
	}
}

func (f *fixture) ingestion(t *testing.T, cfg IngestionConfig, extractor *stubExtractor, publisher IPublisherService) IIngestionService {
	t.Helper()
	if cfg.Dimension == 0 {
		cfg.Dimension = testDimension
	}
	if extractor == nil {
		extractor = &stubExtractor{}
	}
	svc, err := NewIngestionService(cfg, f.factory, extractor, f.batcher, f.vectors, f.tracker, publisher, nil, f.log)
	require.NoError(t, err)
	return svc
}

func (f *fixture) chat() IChatService {
	retriever := retrieval.NewBuilder(f.vectors, retrieval.Config{ScoreThreshold: 0.5}, f.log)
	return NewChatService(ChatConfig{}, f.factory, session.NewManager(f.sessions, 20, f.log), f.batcher, retriever, f.llm, f.log)
}

// letters builds n characters cycling through the alphabet.
func letters(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(byte('a' + i%26))
	}
	return sb.String()
}

var errUpstream = errors.New("upstream unavailable")
