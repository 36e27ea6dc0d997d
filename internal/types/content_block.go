package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContentBlockType string

const (
	ContentBlockTypeText  ContentBlockType = "TEXT"
	ContentBlockTypeCode  ContentBlockType = "CODE"
	ContentBlockTypeMath  ContentBlockType = "MATH"
	ContentBlockTypeGraph ContentBlockType = "GRAPH"
)

// ContentBlock carries exactly one populated payload field; which one is
// meaningful is fully determined by Type.
type ContentBlock struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"lesson_id"`
	Order     int              `gorm:"column:order;not null" json:"order"`
	Type      ContentBlockType `gorm:"column:type;not null" json:"type"`
	Text      *string          `gorm:"column:text" json:"text,omitempty"`
	Code      *string          `gorm:"column:code" json:"code,omitempty"`
	Math      *string          `gorm:"column:math" json:"math,omitempty"`
	Graph     *string          `gorm:"column:graph" json:"graph,omitempty"`
	CreatedAt time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time        `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt   `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContentBlock) TableName() string { return "content_block" }
