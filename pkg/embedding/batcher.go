package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docchat-be/internal/pkg/logger"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultBatchSize   = 8
	DefaultConcurrency = 1
)

type BatcherConfig struct {
	// BatchSize is the number of texts embedded together; items inside a batch run in parallel.
	BatchSize int
	// Concurrency caps how many batches EmbedMany keeps in flight.
	Concurrency int
	// RateLimit is provider calls per second. Zero disables limiting.
	RateLimit float64
}

// Batcher turns texts into vectors through an EmbeddingProvider, absorbing per-item failures.
type Batcher struct {
	provider EmbeddingProvider
	cfg      BatcherConfig
	limiter  *rate.Limiter
	logger   logger.ILogger
}

func NewBatcher(provider EmbeddingProvider, cfg BatcherConfig, logger logger.ILogger) *Batcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	limiter := rate.NewLimiter(rate.Inf, cfg.BatchSize)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.BatchSize)
	}

	return &Batcher{
		provider: provider,
		cfg:      cfg,
		limiter:  limiter,
		logger:   logger,
	}
}

func (b *Batcher) BatchSize() int {
	return b.cfg.BatchSize
}

func (b *Batcher) Concurrency() int {
	return b.cfg.Concurrency
}

// EmbedOne fails with ErrEmbeddingFailed when no vector could be produced.
func (b *Batcher) EmbedOne(ctx context.Context, text string, taskType string) ([]float32, error) {
	return b.embed(ctx, text, taskType)
}

// EmbedBatch embeds every text concurrently. The result is aligned with texts;
// an item that failed holds nil. Only cancellation aborts the batch.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.BatchSize)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := b.embed(gctx, text, taskType)
			if err != nil {
				if !errors.Is(err, ErrEmbeddingFailed) {
					return err
				}
				b.logger.Warn("EmbeddingBatcher", "Skipping item without embedding", map[string]interface{}{
					"index": i,
					"error": err.Error(),
				})
				return nil
			}
			out[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedMany processes texts in batches of BatchSize, keeping at most Concurrency
// batches in flight. Failed items are dropped; the survivors keep input order.
func (b *Batcher) EmbedMany(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	aligned := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)

	for start := 0; start < len(texts); start += b.cfg.BatchSize {
		end := start + b.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		g.Go(func() error {
			vectors, err := b.EmbedBatch(gctx, texts[start:end], taskType)
			if err != nil {
				return err
			}
			copy(aligned[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([][]float32, 0, len(texts))
	for _, vec := range aligned {
		if vec != nil {
			result = append(result, vec)
		}
	}

	b.logger.Debug("EmbeddingBatcher", "Embedded texts", map[string]interface{}{
		"requested": len(texts),
		"embedded":  len(result),
	})
	return result, nil
}

func (b *Batcher) embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrEmbeddingFailed)
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := b.provider.Generate(ctx, text, taskType)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	vec := resp.Vector()
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbeddingFailed)
	}
	return vec, nil
}
