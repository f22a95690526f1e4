package mapper

import (
	"docchat-be/internal/entity"
	"docchat-be/internal/model"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}
	return &entity.Document{
		Id:            d.Id,
		Title:         d.Title,
		FileName:      d.FileName,
		ByteSize:      d.ByteSize,
		ChunkCount:    d.ChunkCount,
		Status:        entity.DocumentStatus(d.Status),
		Collection:    d.Collection,
		FailureReason: d.FailureReason,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}
	return &model.Document{
		Id:            d.Id,
		Title:         d.Title,
		FileName:      d.FileName,
		ByteSize:      d.ByteSize,
		ChunkCount:    d.ChunkCount,
		Status:        string(d.Status),
		Collection:    d.Collection,
		FailureReason: d.FailureReason,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}
