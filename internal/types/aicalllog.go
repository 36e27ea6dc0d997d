package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AICallLog is a best-effort audit row per model call; writing it never
// fails the pipeline.
type AICallLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	RunID     *uuid.UUID     `gorm:"type:uuid;index" json:"run_id,omitempty"`
	CallType  string         `gorm:"column:call_type;not null" json:"call_type"`
	Model     string         `gorm:"column:model;not null" json:"model"`
	Prompt    string         `gorm:"column:prompt" json:"prompt"`
	Response  string         `gorm:"column:response" json:"response"`
	Success   bool           `gorm:"column:success;not null" json:"success"`
	Error     string         `gorm:"column:error" json:"error"`
	LatencyMS int            `gorm:"column:latency_ms;not null;default:0" json:"latency_ms"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AICallLog) TableName() string { return "ai_call_log" }
