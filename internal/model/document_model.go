package model

import (
	"time"

	"gorm.io/datatypes"
)

// Document is one JSON document of a collection. Knowledge tree, branding,
// chat sessions and operator accounts all live in this table.
type Document struct {
	Collection string         `gorm:"type:text;primaryKey"`
	Id         string         `gorm:"type:text;primaryKey"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null"`
	Revision   int64          `gorm:"not null;default:1"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

func (Document) TableName() string {
	return "documents"
}
