package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuizQuestionType string

const (
	QuizQuestionTypeMCQ            QuizQuestionType = "MCQ"
	QuizQuestionTypeMultipleSelect QuizQuestionType = "MULTIPLE_SELECT"
	QuizQuestionTypeDescriptive    QuizQuestionType = "DESCRIPTIVE"
	QuizQuestionTypeTrueFalse      QuizQuestionType = "TRUE_FALSE"
)

// QuizQuestion shape rules: Options is non-empty only for MCQ/MULTIPLE_SELECT,
// CorrectAnswers is required for every type except DESCRIPTIVE, Rubric is
// non-empty only for DESCRIPTIVE.
type QuizQuestion struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Number         int              `gorm:"column:number;not null" json:"number"`
	Question       string           `gorm:"column:question;not null" json:"question"`
	Type           QuizQuestionType `gorm:"column:type;not null" json:"type"`
	Options        datatypes.JSON   `gorm:"column:options;type:jsonb" json:"options,omitempty"`
	CorrectAnswers datatypes.JSON   `gorm:"column:correct_answers;type:jsonb" json:"correct_answers,omitempty"`
	Marks          int              `gorm:"column:marks;not null" json:"marks"`
	Explanation    string           `gorm:"column:explanation" json:"explanation"`
	Rubric         string           `gorm:"column:rubric" json:"rubric,omitempty"`
	CreatedAt      time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt   `gorm:"index" json:"deleted_at,omitempty"`
}

func (QuizQuestion) TableName() string { return "quiz_question" }
