package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docchat-be/internal/entity"
	"docchat-be/internal/mapper"
	"docchat-be/internal/model"
	"docchat-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatSessionRepository(db *gorm.DB) contract.ChatSessionRepository {
	return &ChatSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatSessionRepositoryImpl) FindByID(ctx context.Context, id string) (*entity.ChatSession, error) {
	var m model.ChatSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatSessionToEntity(&m)
}

// CreateIfAbsent relies on the primary key: a concurrent insert of the same id
// becomes a no-op and both callers read back the single stored row.
func (r *ChatSessionRepositoryImpl) CreateIfAbsent(ctx context.Context, session *entity.ChatSession) (*entity.ChatSession, error) {
	m, err := r.mapper.ChatSessionToModel(session)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(m).Error
	if err != nil {
		return nil, err
	}

	stored, err := r.FindByID(ctx, session.Id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return stored, nil
}

func (r *ChatSessionRepositoryImpl) Update(ctx context.Context, id string, mutate func(session *entity.ChatSession) error) (*entity.ChatSession, error) {
	var result *entity.ChatSession

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.ChatSession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", contract.ErrSessionNotFound, id)
			}
			return err
		}

		session, err := r.mapper.ChatSessionToEntity(&m)
		if err != nil {
			return err
		}
		if err := mutate(session); err != nil {
			return err
		}

		session.UpdatedAt = time.Now()
		updated, err := r.mapper.ChatSessionToModel(session)
		if err != nil {
			return err
		}
		if err := tx.Model(&model.ChatSession{}).Where("id = ?", id).Updates(map[string]interface{}{
			"turns":      updated.Turns,
			"summary":    updated.Summary,
			"updated_at": session.UpdatedAt,
		}).Error; err != nil {
			return err
		}

		result = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
