package mapper

import (
	"encoding/json"

	"docchat-be/internal/entity"
	"docchat-be/internal/model"

	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) (*entity.ChatSession, error) {
	if s == nil {
		return nil, nil
	}

	turns := []entity.Turn{}
	if len(s.Turns) > 0 {
		if err := json.Unmarshal(s.Turns, &turns); err != nil {
			return nil, err
		}
	}

	return &entity.ChatSession{
		Id:         s.Id,
		DocumentId: s.DocumentId,
		Turns:      turns,
		Summary:    s.Summary,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}, nil
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) (*model.ChatSession, error) {
	if s == nil {
		return nil, nil
	}

	turns := s.Turns
	if turns == nil {
		turns = []entity.Turn{}
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return nil, err
	}

	return &model.ChatSession{
		Id:         s.Id,
		DocumentId: s.DocumentId,
		Turns:      datatypes.JSON(raw),
		Summary:    s.Summary,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}, nil
}
