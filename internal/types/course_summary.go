package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CourseSummary struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"course_id"`
	Overview       string         `gorm:"column:overview" json:"overview"`
	WhatYouLearned datatypes.JSON `gorm:"column:what_you_learned;type:jsonb" json:"what_you_learned"`
	SkillsGained   datatypes.JSON `gorm:"column:skills_gained;type:jsonb" json:"skills_gained"`
	NextSteps      datatypes.JSON `gorm:"column:next_steps;type:jsonb" json:"next_steps"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CourseSummary) TableName() string { return "course_summary" }
