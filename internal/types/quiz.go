package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Quiz is 1:1 with a Lesson. TotalMarks always equals the sum of its
// questions' marks; PassingMarks is ceil(60%) of that.
type Quiz struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"lesson_id"`
	Title        string          `gorm:"column:title;not null" json:"title"`
	Duration     string          `gorm:"column:duration" json:"duration"`
	TotalMarks   int             `gorm:"column:total_marks;not null" json:"total_marks"`
	PassingMarks int             `gorm:"column:passing_marks;not null" json:"passing_marks"`
	Questions    []*QuizQuestion `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuizID;references:ID" json:"questions,omitempty"`
	IsCompleted  bool            `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	GainedMarks  int             `gorm:"column:gained_marks;not null;default:0" json:"gained_marks"`
	TimeTaken    int             `gorm:"column:time_taken;not null;default:0" json:"time_taken"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Quiz) TableName() string { return "quiz" }
