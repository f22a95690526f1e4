package model

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title         string    `gorm:"type:text;not null"`
	FileName      string    `gorm:"type:text"`
	ByteSize      int64     `gorm:"default:0"`
	ChunkCount    int       `gorm:"default:0"`
	Status        string    `gorm:"type:varchar(16);not null;index"`
	Collection    string    `gorm:"type:text"`
	FailureReason string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (Document) TableName() string {
	return "documents"
}
