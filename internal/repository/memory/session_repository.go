package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"docchat-be/internal/entity"
	"docchat-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps chat sessions in process memory. Every write restarts
// the expiry; reads leave it alone.
type SessionRepository struct {
	cache *cache.Cache
	mu    sync.Mutex
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

var _ contract.ChatSessionRepository = (*SessionRepository)(nil)

func clone(s *entity.ChatSession) *entity.ChatSession {
	c := *s
	c.Turns = append([]entity.Turn{}, s.Turns...)
	return &c
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*entity.ChatSession, error) {
	if x, found := r.cache.Get(id); found {
		return clone(x.(*entity.ChatSession)), nil
	}
	return nil, nil
}

func (r *SessionRepository) CreateIfAbsent(ctx context.Context, session *entity.ChatSession) (*entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := clone(session)
	now := time.Now()
	stored.CreatedAt, stored.UpdatedAt = now, now

	// Add fails when the key is present; the entry may expire before Get sees it
	for {
		if err := r.cache.Add(session.Id, stored, cache.DefaultExpiration); err == nil {
			return clone(stored), nil
		}
		if x, found := r.cache.Get(session.Id); found {
			return clone(x.(*entity.ChatSession)), nil
		}
	}
}

func (r *SessionRepository) Update(ctx context.Context, id string, mutate func(session *entity.ChatSession) error) (*entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(id)
	if !found {
		return nil, fmt.Errorf("%w: %s", contract.ErrSessionNotFound, id)
	}

	working := clone(x.(*entity.ChatSession))
	if err := mutate(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now()

	r.cache.Set(id, working, cache.DefaultExpiration)
	return clone(working), nil
}
