package session

import (
	"context"
	"errors"
	"fmt"

	"docchat-be/internal/entity"
	"docchat-be/internal/pkg/logger"
	"docchat-be/internal/repository/contract"

	"github.com/google/uuid"
)

const DefaultHistoryCap = 20

var ErrSessionDocumentMismatch = errors.New("session is bound to a different document")

// Manager handles session operations
type Manager struct {
	repo       contract.ChatSessionRepository
	historyCap int
	logger     logger.ILogger
}

// NewManager creates a new session manager
func NewManager(repo contract.ChatSessionRepository, historyCap int, logger logger.ILogger) *Manager {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	return &Manager{
		repo:       repo,
		historyCap: historyCap,
		logger:     logger,
	}
}

// CheckDocumentAffinity rejects a request addressing a session bound to another document.
func CheckDocumentAffinity(session *entity.ChatSession, documentID uuid.UUID) error {
	if session.DocumentId != documentID {
		return fmt.Errorf("%w: session %s belongs to document %s, request names %s",
			ErrSessionDocumentMismatch, session.Id, session.DocumentId, documentID)
	}
	return nil
}

// CapHistory keeps the most recent limit turns in their original order.
func CapHistory(turns []entity.Turn, limit int) []entity.Turn {
	if limit <= 0 || len(turns) <= limit {
		return turns
	}
	capped := make([]entity.Turn, limit)
	copy(capped, turns[len(turns)-limit:])
	return capped
}

// Resolve returns the session for sessionID, creating it when the id is empty or unknown.
func (m *Manager) Resolve(ctx context.Context, sessionID string, documentID uuid.UUID) (*entity.ChatSession, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else {
		existing, err := m.repo.FindByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if err := CheckDocumentAffinity(existing, documentID); err != nil {
				return nil, err
			}
			return existing, nil
		}
	}

	// a concurrent request may have created the same id first
	stored, err := m.repo.CreateIfAbsent(ctx, &entity.ChatSession{
		Id:         sessionID,
		DocumentId: documentID,
		Turns:      []entity.Turn{},
	})
	if err != nil {
		return nil, err
	}
	if err := CheckDocumentAffinity(stored, documentID); err != nil {
		return nil, err
	}

	m.logger.Info("Session", "Session created", map[string]interface{}{
		"session_id":  stored.Id,
		"document_id": documentID.String(),
	})
	return stored, nil
}

// AppendTurn adds one turn and trims the stored history to the cap.
func (m *Manager) AppendTurn(ctx context.Context, session *entity.ChatSession, role entity.TurnRole, content string) error {
	return m.append(ctx, session, entity.Turn{Role: role, Content: content})
}

// AppendExchange stores a question and its answer in one write.
func (m *Manager) AppendExchange(ctx context.Context, session *entity.ChatSession, question, answer string) error {
	return m.append(ctx, session,
		entity.Turn{Role: entity.RoleUser, Content: question},
		entity.Turn{Role: entity.RoleAssistant, Content: answer},
	)
}

func (m *Manager) append(ctx context.Context, session *entity.ChatSession, turns ...entity.Turn) error {
	mutate := func(stored *entity.ChatSession) error {
		if err := CheckDocumentAffinity(stored, session.DocumentId); err != nil {
			return err
		}
		stored.Turns = CapHistory(append(stored.Turns, turns...), m.historyCap)
		return nil
	}

	updated, err := m.repo.Update(ctx, session.Id, mutate)
	if errors.Is(err, contract.ErrSessionNotFound) {
		// expired while the answer was generated; the exchange starts a new history
		m.logger.Warn("Session", "Session expired before append, recreating", map[string]interface{}{
			"session_id":  session.Id,
			"document_id": session.DocumentId.String(),
		})
		if _, err = m.repo.CreateIfAbsent(ctx, &entity.ChatSession{
			Id:         session.Id,
			DocumentId: session.DocumentId,
			Turns:      []entity.Turn{},
		}); err != nil {
			return fmt.Errorf("recreate session %s: %w", session.Id, err)
		}
		updated, err = m.repo.Update(ctx, session.Id, mutate)
	}
	if err != nil {
		return fmt.Errorf("append turns to session %s: %w", session.Id, err)
	}

	session.Turns = updated.Turns
	session.UpdatedAt = updated.UpdatedAt
	return nil
}
