package contract

import (
	"context"
	"errors"

	"docchat-be/internal/entity"
)

// ErrSessionNotFound is returned by Update when the session does not exist or has expired.
var ErrSessionNotFound = errors.New("chat session not found")

type ChatSessionRepository interface {
	// FindByID returns (nil, nil) when the session does not exist.
	FindByID(ctx context.Context, id string) (*entity.ChatSession, error)
	// CreateIfAbsent stores session unless one with the same id exists, and
	// returns whichever record is stored afterwards.
	CreateIfAbsent(ctx context.Context, session *entity.ChatSession) (*entity.ChatSession, error)
	// Update applies mutate to the stored session atomically and returns the result.
	// Nothing is written when mutate fails. A missing session is ErrSessionNotFound.
	Update(ctx context.Context, id string, mutate func(session *entity.ChatSession) error) (*entity.ChatSession, error)
}
