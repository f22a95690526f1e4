package specification

import (
	"docchat-be/internal/entity"

	"gorm.io/gorm"
)

type ByStatus struct {
	Status entity.DocumentStatus
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", string(s.Status))
}
