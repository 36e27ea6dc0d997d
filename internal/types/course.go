package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course is the aggregate root produced by a generation run. It is written
// exactly once, after the whole pipeline has succeeded; readers never see a
// partially populated course.
type Course struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string           `gorm:"column:title;not null" json:"title"`
	Description string           `gorm:"column:description" json:"description"`
	Topic       string           `gorm:"column:topic" json:"topic"`
	Metadata    datatypes.JSON   `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	Lessons     []*Lesson        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"lessons,omitempty"`
	Summary     *CourseSummary   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"summary,omitempty"`
	KeyPoints   []*KeyPoint      `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"key_points,omitempty"`
	Analytics   *CourseAnalytics `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"analytics,omitempty"`
	CreatedAt   time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }
