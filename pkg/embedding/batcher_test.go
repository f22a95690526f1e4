package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"docchat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider embeds a text as [len(text)] and fails for texts containing "bad".
type fakeProvider struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	mu       sync.Mutex
	seen     []string
}

func (f *fakeProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		old := f.peak.Load()
		if cur <= old || f.peak.CompareAndSwap(old, cur) {
			break
		}
	}

	f.mu.Lock()
	f.seen = append(f.seen, text)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if strings.Contains(text, "bad") {
		return nil, errors.New("model refused")
	}
	if strings.Contains(text, "hollow") {
		return &EmbeddingResponse{}, nil
	}
	return &EmbeddingResponse{Embedding: EmbeddingResponseEmbedding{Values: []float32{float32(len(text))}}}, nil
}

func newTestBatcher(p EmbeddingProvider, cfg BatcherConfig) *Batcher {
	return NewBatcher(p, cfg, logger.NewNopLogger())
}

func TestEmbedManyKeepsOrderAndDropsFailures(t *testing.T) {
	p := &fakeProvider{}
	b := newTestBatcher(p, BatcherConfig{BatchSize: 2})

	texts := []string{"a", "bad one", "ccc", "   ", "hollow", "dddd", "ee"}
	vectors, err := b.EmbedMany(context.Background(), texts, TaskTypeDocument)
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1}, {3}, {4}, {2}}, vectors)
	// blank text never reaches the provider
	assert.Equal(t, int32(6), p.calls.Load())
}

func TestEmbedManyEmptyInput(t *testing.T) {
	b := newTestBatcher(&fakeProvider{}, BatcherConfig{})

	vectors, err := b.EmbedMany(context.Background(), nil, TaskTypeDocument)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedBatchIsAligned(t *testing.T) {
	b := newTestBatcher(&fakeProvider{}, BatcherConfig{BatchSize: 4})

	vectors, err := b.EmbedBatch(context.Background(), []string{"xx", "bad", "y"}, TaskTypeDocument)
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{2}, vectors[0])
	assert.Nil(t, vectors[1])
	assert.Equal(t, []float32{1}, vectors[2])
}

func TestEmbedManyBoundsInFlightCalls(t *testing.T) {
	p := &fakeProvider{delay: 5 * time.Millisecond}
	b := newTestBatcher(p, BatcherConfig{BatchSize: 3, Concurrency: 1})

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = strings.Repeat("t", i+1)
	}

	vectors, err := b.EmbedMany(context.Background(), texts, TaskTypeDocument)
	require.NoError(t, err)
	assert.Len(t, vectors, 10)
	assert.LessOrEqual(t, p.peak.Load(), int32(3))
}

func TestEmbedOne(t *testing.T) {
	b := newTestBatcher(&fakeProvider{}, BatcherConfig{})

	vec, err := b.EmbedOne(context.Background(), "  four ", TaskTypeQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{4}, vec)

	tests := []struct {
		name string
		text string
	}{
		{"provider error", "bad query"},
		{"empty vector", "hollow"},
		{"blank text", "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.EmbedOne(context.Background(), tt.text, TaskTypeQuery)
			assert.ErrorIs(t, err, ErrEmbeddingFailed)
		})
	}
}

func TestEmbedManyCancellationIsNotAbsorbed(t *testing.T) {
	p := &fakeProvider{delay: time.Second}
	b := newTestBatcher(p, BatcherConfig{BatchSize: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.EmbedMany(ctx, []string{"a", "b", "c"}, TaskTypeDocument)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrEmbeddingFailed)
}
