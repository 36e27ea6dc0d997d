package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GenerationRun tracks a single pipeline run. It never holds course content;
// the Course aggregate is committed all-or-nothing on success and CourseID is
// set only then.
type GenerationRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Topic       string         `gorm:"column:topic;not null" json:"topic"`
	CourseID    *uuid.UUID     `gorm:"type:uuid;index" json:"course_id,omitempty"`
	Status      string         `gorm:"column:status;not null;index" json:"status"` // queued|running|succeeded|failed
	Stage       string         `gorm:"column:stage;not null" json:"stage"`         // syllabus|lessons|post_course|persist|done
	Progress    int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Error       string         `gorm:"column:error" json:"error"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (GenerationRun) TableName() string { return "generation_run" }
