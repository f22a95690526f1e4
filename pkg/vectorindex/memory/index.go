package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"docchat-be/pkg/vectorindex"
)

type collection struct {
	dimension int
	indexed   bool
	points    map[uint64]vectorindex.Point
}

// Index keeps collections in process memory. It backs tests and VECTOR_BACKEND=memory.
type Index struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func NewIndex() *Index {
	return &Index{collections: make(map[string]*collection)}
}

func (i *Index) CollectionExists(ctx context.Context, name string) (bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.collections[name]
	return ok, nil
}

func (i *Index) CreateCollection(ctx context.Context, name string, dimension int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.collections[name]; ok {
		return nil
	}
	i.collections[name] = &collection{
		dimension: dimension,
		points:    make(map[uint64]vectorindex.Point),
	}
	return nil
}

func (i *Index) CollectionDimension(ctx context.Context, name string) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	c, ok := i.collections[name]
	if !ok {
		return 0, vectorindex.ErrCollectionNotFound
	}
	return c.dimension, nil
}

func (i *Index) Upsert(ctx context.Context, name string, points []vectorindex.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	c, ok := i.collections[name]
	if !ok {
		return vectorindex.ErrCollectionNotFound
	}
	for _, p := range points {
		if len(p.Vector) != c.dimension {
			return vectorindex.ErrDimensionMismatch
		}
	}
	for _, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		p.Vector = vec
		c.points[p.ID] = p
	}
	return nil
}

func (i *Index) Search(ctx context.Context, name string, vector []float32, opts vectorindex.SearchOptions) ([]vectorindex.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	c, ok := i.collections[name]
	if !ok {
		return nil, vectorindex.ErrCollectionNotFound
	}
	if len(vector) != c.dimension {
		return nil, vectorindex.ErrDimensionMismatch
	}

	matches := make([]vectorindex.Match, 0, len(c.points))
	for id, p := range c.points {
		score := cosine(vector, p.Vector)
		if score < opts.ScoreThreshold {
			continue
		}
		m := vectorindex.Match{ID: id, Score: score}
		if opts.WithPayload {
			payload := p.Payload
			m.Payload = &payload
		}
		matches = append(matches, m)
	}

	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Score == matches[b].Score {
			return matches[a].ID < matches[b].ID
		}
		return matches[a].Score > matches[b].Score
	})
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches, nil
}

func (i *Index) DeleteCollection(ctx context.Context, name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.collections[name]; !ok {
		return vectorindex.ErrCollectionNotFound
	}
	delete(i.collections, name)
	return nil
}

func (i *Index) EnableIndexing(ctx context.Context, name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	c, ok := i.collections[name]
	if !ok {
		return vectorindex.ErrCollectionNotFound
	}
	c.indexed = true
	return nil
}

// Count and Indexed are inspection helpers for tests and the status endpoint.
func (i *Index) Count(name string) int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if c, ok := i.collections[name]; ok {
		return len(c.points)
	}
	return 0
}

func (i *Index) Indexed(name string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if c, ok := i.collections[name]; ok {
		return c.indexed
	}
	return false
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for k := range a {
		dot += float64(a[k]) * float64(b[k])
		na += float64(a[k]) * float64(a[k])
		nb += float64(b[k]) * float64(b[k])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
