package progress

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 24 * time.Hour

// Snapshot is the last observed upload position of an ingestion run.
type Snapshot struct {
	Uploaded  int       `json:"uploaded"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker records ingestion progress for monitoring; it is never the source of truth.
type Tracker interface {
	Report(ctx context.Context, documentID string, uploaded, total int) error
	// Get returns (nil, nil) when nothing was reported or the entry expired.
	Get(ctx context.Context, documentID string) (*Snapshot, error)
}

func Key(documentID string) string {
	return fmt.Sprintf("ingest:progress:%s", documentID)
}

type RedisTracker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisTracker(rdb *redis.Client, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisTracker{rdb: rdb, ttl: ttl}
}

func (t *RedisTracker) Report(ctx context.Context, documentID string, uploaded, total int) error {
	key := Key(documentID)
	pipe := t.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"uploaded", uploaded,
		"total", total,
		"updated_at", time.Now().UTC().Format(time.RFC3339Nano),
	)
	pipe.Expire(ctx, key, t.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (t *RedisTracker) Get(ctx context.Context, documentID string) (*Snapshot, error) {
	fields, err := t.rdb.HGetAll(ctx, Key(documentID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parseFields(fields)
}

func parseFields(fields map[string]string) (*Snapshot, error) {
	uploaded, err := strconv.Atoi(fields["uploaded"])
	if err != nil {
		return nil, fmt.Errorf("parse uploaded: %w", err)
	}
	total, err := strconv.Atoi(fields["total"])
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	snap := &Snapshot{Uploaded: uploaded, Total: total}
	if ts, ok := fields["updated_at"]; ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			snap.UpdatedAt = parsed
		}
	}
	return snap, nil
}

// MemoryTracker is used when no Redis address is configured.
type MemoryTracker struct {
	cache *cache.Cache
}

func NewMemoryTracker(ttl time.Duration) *MemoryTracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryTracker{cache: cache.New(ttl, 10*time.Minute)}
}

func (t *MemoryTracker) Report(ctx context.Context, documentID string, uploaded, total int) error {
	t.cache.SetDefault(Key(documentID), Snapshot{Uploaded: uploaded, Total: total, UpdatedAt: time.Now()})
	return nil
}

func (t *MemoryTracker) Get(ctx context.Context, documentID string) (*Snapshot, error) {
	x, found := t.cache.Get(Key(documentID))
	if !found {
		return nil, nil
	}
	snap := x.(Snapshot)
	return &snap, nil
}
