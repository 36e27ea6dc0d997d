package services

import (
	"encoding/json"
	"fmt"
)

// ShapeError is raised when a stage's JSON parsed fine but does not match the
// schema the prompt asked for. It is fatal and never retried: retrying the
// same prompt rarely fixes a structural miss, and downstream stages depend on
// the shape being right.
type ShapeError struct {
	Stage string
	Cause error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("stage %s returned malformed structure: %v", e.Stage, e.Cause)
}

func (e *ShapeError) Unwrap() error { return e.Cause }

// decodeStage is the typed decoding step right after JSON parse; every stage
// result passes through it before any field is touched.
func decodeStage[T any](stage string, raw json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &ShapeError{Stage: stage, Cause: err}
	}
	return out, nil
}

// StringList tolerates the model answering a lone string, a bool, or a mixed
// array where a string array was asked for.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var asArray []any
	if err := json.Unmarshal(data, &asArray); err == nil {
		out := make([]string, 0, len(asArray))
		for _, v := range asArray {
			out = append(out, fmt.Sprint(v))
		}
		*l = out
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*l = []string{asString}
		return nil
	}
	var asAny any
	if err := json.Unmarshal(data, &asAny); err != nil {
		return err
	}
	*l = []string{fmt.Sprint(asAny)}
	return nil
}

type SyllabusDraft struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Lessons     []SyllabusLessonDraft `json:"lessons"`
}

type SyllabusLessonDraft struct {
	Title    string `json:"title"`
	Duration string `json:"duration"`
}

type LessonContextDraft struct {
	Title     string                `json:"title"`
	Objective string                `json:"objective"`
	Sections  []SectionOutlineDraft `json:"sections"`
}

type SectionOutlineDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type SectionContentDraft struct {
	Sections []SectionDraft `json:"sections"`
}

type SectionDraft struct {
	Title         string       `json:"title"`
	ContentBlocks []BlockDraft `json:"contentBlocks"`
}

type BlockDraft struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Order   *int   `json:"order,omitempty"`
}

type QuizDraft struct {
	Title        string              `json:"title"`
	Duration     string              `json:"duration"`
	TotalMarks   int                 `json:"totalMarks"`
	PassingMarks int                 `json:"passingMarks"`
	Questions    []QuizQuestionDraft `json:"questions"`
}

type QuizQuestionDraft struct {
	Number         int        `json:"number"`
	Question       string     `json:"question"`
	Type           string     `json:"type"`
	Options        StringList `json:"options,omitempty"`
	CorrectAnswers StringList `json:"correctAnswers,omitempty"`
	Marks          int        `json:"marks"`
	Explanation    string     `json:"explanation"`
	Rubric         string     `json:"rubric,omitempty"`
}

type PostCourseDraft struct {
	Summary   SummaryDraft    `json:"summary"`
	KeyPoints []KeyPointDraft `json:"keyPoints"`
	Analytics AnalyticsDraft  `json:"analytics"`
}

type SummaryDraft struct {
	Overview       string     `json:"overview"`
	WhatYouLearned StringList `json:"whatYouLearned"`
	SkillsGained   StringList `json:"skillsGained"`
	NextSteps      StringList `json:"nextSteps"`
}

type KeyPointDraft struct {
	Category string     `json:"category"`
	Points   StringList `json:"points"`
}

type AnalyticsDraft struct {
	TotalTimeSpent   int     `json:"totalTimeSpent"`
	AverageScore     float64 `json:"averageScore"`
	QuizzesPassed    int     `json:"quizzesPassed"`
	LessonsCompleted int     `json:"lessonsCompleted"`
	QuizzesCompleted int     `json:"quizzesCompleted"`
	Grade            string  `json:"grade"`
}
