package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CourseGrade string

const (
	CourseGradeExcellent        CourseGrade = "EXCELLENT"
	CourseGradeGood             CourseGrade = "GOOD"
	CourseGradeAverage          CourseGrade = "AVERAGE"
	CourseGradeNeedsImprovement CourseGrade = "NEEDS_IMPROVEMENT"
)

type CourseAnalytics struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"course_id"`
	TotalTimeSpent     int            `gorm:"column:total_time_spent;not null;default:0" json:"total_time_spent"`
	AverageScore       float64        `gorm:"column:average_score;not null;default:0" json:"average_score"`
	QuizzesPassed      int            `gorm:"column:quizzes_passed;not null;default:0" json:"quizzes_passed"`
	LessonsCompleted   int            `gorm:"column:lessons_completed;not null;default:0" json:"lessons_completed"`
	QuizzesCompleted   int            `gorm:"column:quizzes_completed;not null;default:0" json:"quizzes_completed"`
	Grade              CourseGrade    `gorm:"column:grade;not null" json:"grade"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CourseAnalytics) TableName() string { return "course_analytics" }
