package vectorindex_test

import (
	"context"
	"errors"
	"testing"

	"docchat-be/internal/pkg/logger"
	"docchat-be/pkg/vectorindex"
	"docchat-be/pkg/vectorindex/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingIndex counts upsert calls and can fail on a given call.
type recordingIndex struct {
	*memory.Index
	upsertCalls int
	batchSizes  []int
	failOnCall  int
	deleteErr   error
}

func (r *recordingIndex) Upsert(ctx context.Context, name string, points []vectorindex.Point) error {
	r.upsertCalls++
	r.batchSizes = append(r.batchSizes, len(points))
	if r.failOnCall == r.upsertCalls {
		return errors.New("connection reset")
	}
	return r.Index.Upsert(ctx, name, points)
}

func (r *recordingIndex) DeleteCollection(ctx context.Context, name string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.Index.DeleteCollection(ctx, name)
}

func newManager(idx vectorindex.Index, batch int) *vectorindex.Manager {
	return vectorindex.NewManager(idx, vectorindex.Config{UpsertBatchSize: batch}, logger.NewNopLogger())
}

func points(n, dim int) []vectorindex.Point {
	out := make([]vectorindex.Point, n)
	for i := range out {
		vec := make([]float32, dim)
		vec[i%dim] = 1
		out[i] = vectorindex.Point{
			ID:      uint64(i),
			Vector:  vec,
			Payload: vectorindex.Payload{Text: "chunk", DocumentID: "doc", ChunkIndex: i},
		}
	}
	return out
}

func TestCollectionName(t *testing.T) {
	m := vectorindex.NewManager(memory.NewIndex(), vectorindex.Config{}, logger.NewNopLogger())
	assert.Equal(t, "pdf_docs_abc", m.CollectionName("abc"))

	m = vectorindex.NewManager(memory.NewIndex(), vectorindex.Config{CollectionPrefix: "docs_"}, logger.NewNopLogger())
	assert.Equal(t, "docs_abc", m.CollectionName("abc"))
}

func TestEnsureCollectionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex()
	m := newManager(idx, 10)

	require.NoError(t, m.EnsureCollection(ctx, "c", 3))
	require.NoError(t, m.Upsert(ctx, "c", points(2, 3)))
	require.NoError(t, m.EnsureCollection(ctx, "c", 3))

	assert.Equal(t, 2, idx.Count("c"))
}

func TestEnsureCollectionRejectsExistingDimension(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex()
	m := newManager(idx, 10)

	require.NoError(t, m.EnsureCollection(ctx, "c", 3))
	require.NoError(t, m.Upsert(ctx, "c", points(2, 3)))

	err := m.EnsureCollection(ctx, "c", 4)
	assert.ErrorIs(t, err, vectorindex.ErrDimensionMismatch)
	assert.Equal(t, 2, idx.Count("c"), "existing points stay untouched")
}

func TestUpsertSendsFixedSizeBatches(t *testing.T) {
	ctx := context.Background()
	idx := &recordingIndex{Index: memory.NewIndex()}
	m := newManager(idx, 100)

	require.NoError(t, m.EnsureCollection(ctx, "c", 4))
	require.NoError(t, m.Upsert(ctx, "c", points(250, 4)))

	assert.Equal(t, []int{100, 100, 50}, idx.batchSizes)
	assert.Equal(t, 250, idx.Count("c"))
}

func TestUpsertDimensionMismatchWritesNothing(t *testing.T) {
	ctx := context.Background()
	idx := &recordingIndex{Index: memory.NewIndex()}
	m := newManager(idx, 2)

	require.NoError(t, m.EnsureCollection(ctx, "c", 4))

	pts := points(5, 4)
	pts[4].Vector = []float32{1, 2, 3}

	err := m.Upsert(ctx, "c", pts)
	assert.ErrorIs(t, err, vectorindex.ErrDimensionMismatch)
	assert.Equal(t, 0, idx.upsertCalls)
	assert.Equal(t, 0, idx.Count("c"))
}

func TestUpsertFailureSurfacesAsUpsertFailed(t *testing.T) {
	ctx := context.Background()
	idx := &recordingIndex{Index: memory.NewIndex(), failOnCall: 2}
	m := newManager(idx, 2)

	require.NoError(t, m.EnsureCollection(ctx, "c", 2))
	err := m.Upsert(ctx, "c", points(6, 2))
	assert.ErrorIs(t, err, vectorindex.ErrUpsertFailed)
}

func TestUpsertIntoMissingCollection(t *testing.T) {
	err := newManager(memory.NewIndex(), 10).Upsert(context.Background(), "nope", points(1, 2))
	assert.ErrorIs(t, err, vectorindex.ErrUpsertFailed)
	assert.ErrorIs(t, err, vectorindex.ErrCollectionNotFound)
}

func TestSearchRanksAndFilters(t *testing.T) {
	ctx := context.Background()
	m := newManager(memory.NewIndex(), 10)
	require.NoError(t, m.EnsureCollection(ctx, "c", 2))
	require.NoError(t, m.Upsert(ctx, "c", []vectorindex.Point{
		{ID: 0, Vector: []float32{1, 0}, Payload: vectorindex.Payload{Text: "exact"}},
		{ID: 1, Vector: []float32{1, 1}, Payload: vectorindex.Payload{Text: "close"}},
		{ID: 2, Vector: []float32{0, 1}, Payload: vectorindex.Payload{Text: "orthogonal"}},
	}))

	tests := []struct {
		name    string
		opts    vectorindex.SearchOptions
		wantIDs []uint64
	}{
		{"threshold drops orthogonal", vectorindex.SearchOptions{Limit: 5, ScoreThreshold: 0.5, WithPayload: true}, []uint64{0, 1}},
		{"limit", vectorindex.SearchOptions{Limit: 1, ScoreThreshold: 0}, []uint64{0}},
		{"nothing clears", vectorindex.SearchOptions{Limit: 5, ScoreThreshold: 1.1}, []uint64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := m.Search(ctx, "c", []float32{1, 0}, tt.opts)
			require.NoError(t, err)

			ids := make([]uint64, 0, len(matches))
			for i, match := range matches {
				ids = append(ids, match.ID)
				if i > 0 {
					assert.GreaterOrEqual(t, matches[i-1].Score, match.Score)
				}
				if tt.opts.WithPayload {
					require.NotNil(t, match.Payload)
				} else {
					assert.Nil(t, match.Payload)
				}
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestDeleteCollection(t *testing.T) {
	ctx := context.Background()
	idx := &recordingIndex{Index: memory.NewIndex()}
	m := newManager(idx, 10)

	require.NoError(t, m.EnsureCollection(ctx, "c", 2))
	require.NoError(t, m.DeleteCollection(ctx, "c"))

	exists, err := m.Exists(ctx, "c")
	require.NoError(t, err)
	assert.False(t, exists)

	// absence is swallowed
	assert.NoError(t, m.DeleteCollection(ctx, "c"))

	idx.deleteErr = errors.New("permission denied")
	assert.Error(t, m.DeleteCollection(ctx, "c"))
}

func TestActivate(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex()
	m := newManager(idx, 10)

	require.NoError(t, m.EnsureCollection(ctx, "c", 2))
	assert.False(t, idx.Indexed("c"))

	require.NoError(t, m.Activate(ctx, "c"))
	assert.True(t, idx.Indexed("c"))

	assert.ErrorIs(t, m.Activate(ctx, "missing"), vectorindex.ErrCollectionNotFound)
}
