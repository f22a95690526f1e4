package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"docchat-be/internal/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultUpsertBatchSize = 100
	DefaultPrefix          = "pdf_docs_"
)

type Config struct {
	CollectionPrefix  string
	UpsertBatchSize   int
	UpsertConcurrency int
}

// Manager owns collection lifecycle on top of an Index backend.
type Manager struct {
	index  Index
	cfg    Config
	logger logger.ILogger
}

func NewManager(index Index, cfg Config, logger logger.ILogger) *Manager {
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = DefaultUpsertBatchSize
	}
	if cfg.UpsertConcurrency <= 0 {
		cfg.UpsertConcurrency = 1
	}
	if cfg.CollectionPrefix == "" {
		cfg.CollectionPrefix = DefaultPrefix
	}
	return &Manager{
		index:  index,
		cfg:    cfg,
		logger: logger,
	}
}

// CollectionName derives the collection for a document. It is deterministic so
// retrieval and compensation can find what ingestion created.
func (m *Manager) CollectionName(documentID string) string {
	return m.cfg.CollectionPrefix + documentID
}

// EnsureCollection is a no-op when the collection already exists with the same
// dimension. An existing collection of another dimension is ErrDimensionMismatch.
func (m *Manager) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrDimensionMismatch, dimension)
	}

	exists, err := m.index.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", name, err)
	}
	if exists {
		existing, err := m.index.CollectionDimension(ctx, name)
		if err != nil {
			return fmt.Errorf("check collection %s: %w", name, err)
		}
		if existing != dimension {
			return fmt.Errorf("%w: collection %s has dimension %d, expected %d",
				ErrDimensionMismatch, name, existing, dimension)
		}
		return nil
	}

	if err := m.index.CreateCollection(ctx, name, dimension); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}

	m.logger.Info("VectorIndex", "Collection created", map[string]interface{}{
		"collection": name,
		"dimension":  dimension,
	})
	return nil
}

// Upsert validates every point against the collection dimension before writing
// anything, then sends fixed-size sub-batches.
func (m *Manager) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	dimension, err := m.index.CollectionDimension(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpsertFailed, err)
	}

	for _, p := range points {
		if len(p.Vector) != dimension {
			return fmt.Errorf("%w: point %d has %d values, collection %s expects %d",
				ErrDimensionMismatch, p.ID, len(p.Vector), name, dimension)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.UpsertConcurrency)

	for start := 0; start < len(points); start += m.cfg.UpsertBatchSize {
		end := start + m.cfg.UpsertBatchSize
		if end > len(points) {
			end = len(points)
		}

		g.Go(func() error {
			if err := m.index.Upsert(gctx, name, points[start:end]); err != nil {
				return fmt.Errorf("%w: points [%d,%d) of %s: %w", ErrUpsertFailed, start, end, name, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Search returns matches at or above the threshold, most similar first.
func (m *Manager) Search(ctx context.Context, name string, vector []float32, opts SearchOptions) ([]Match, error) {
	matches, err := m.index.Search(ctx, name, vector, opts)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", name, err)
	}

	filtered := matches[:0]
	for _, match := range matches {
		if match.Score >= opts.ScoreThreshold {
			filtered = append(filtered, match)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})

	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}
	return filtered, nil
}

// DeleteCollection treats a missing collection as already deleted.
func (m *Manager) DeleteCollection(ctx context.Context, name string) error {
	err := m.index.DeleteCollection(ctx, name)
	if errors.Is(err, ErrCollectionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}

	m.logger.Info("VectorIndex", "Collection deleted", map[string]interface{}{"collection": name})
	return nil
}

// Activate turns on indexing once bulk loading has finished.
func (m *Manager) Activate(ctx context.Context, name string) error {
	if err := m.index.EnableIndexing(ctx, name); err != nil {
		return fmt.Errorf("activate collection %s: %w", name, err)
	}
	return nil
}

func (m *Manager) Exists(ctx context.Context, name string) (bool, error) {
	return m.index.CollectionExists(ctx, name)
}
