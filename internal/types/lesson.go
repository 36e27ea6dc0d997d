package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lesson structure is immutable after commit; only the learner-progress
// fields (IsCompleted, TimeSpent) are mutated later.
type Lesson struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"course_id"`
	Index         int             `gorm:"column:index;not null" json:"index"`
	Title         string          `gorm:"column:title;not null" json:"title"`
	Objective     string          `gorm:"column:objective" json:"objective"`
	Duration      string          `gorm:"column:duration" json:"duration"`
	ContentBlocks []*ContentBlock `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"content_blocks,omitempty"`
	Quiz          *Quiz           `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"quiz,omitempty"`
	IsCompleted   bool            `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	TimeSpent     int             `gorm:"column:time_spent;not null;default:0" json:"time_spent"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }
