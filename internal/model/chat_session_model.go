package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatSession struct {
	Id         string         `gorm:"type:text;primaryKey"`
	DocumentId uuid.UUID      `gorm:"type:uuid;not null;index"`
	Turns      datatypes.JSON `gorm:"type:jsonb"`
	Summary    string         `gorm:"type:text"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
