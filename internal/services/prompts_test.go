package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/courseforge-backend/internal/types"
)

func TestPromptsCarryJSONOnlyRules(t *testing.T) {
	code := "fmt.Println(42)"
	blocks := []*types.ContentBlock{{
		ID:    uuid.New(),
		Order: 0,
		Type:  types.ContentBlockTypeCode,
		Code:  &code,
	}}

	prompts := map[string]string{
		"syllabus":        SyllabusPrompt("Go Basics"),
		"lesson_context":  LessonContextPrompt("Go Basics", "Go Basics", "Functions", "15 min"),
		"section_content": SectionContentPrompt("Go Basics", "Functions", "Write functions", []SectionOutlineDraft{{Title: "Basics", Description: "syntax"}}),
		"quiz":            QuizPrompt("Functions", blocks),
		"post_course":     PostCoursePrompt("Go Basics", []string{"Getting Started", "Functions"}),
	}

	for stage, prompt := range prompts {
		if !strings.Contains(prompt, "JSON") {
			t.Fatalf("%s prompt does not demand JSON output", stage)
		}
		if strings.Contains(prompt, "markdown fences") == false && strings.Contains(prompt, "```") == false && strings.Contains(prompt, "code fences") == false {
			t.Fatalf("%s prompt does not forbid code fences", stage)
		}
	}
}

func TestSyllabusPromptMentionsTopic(t *testing.T) {
	p := SyllabusPrompt("Linear Algebra")
	if !strings.Contains(p, "Linear Algebra") {
		t.Fatalf("topic missing from prompt")
	}
}

func TestQuizPromptGroundsOnLessonContent(t *testing.T) {
	text := "Goroutines are lightweight."
	blocks := []*types.ContentBlock{{
		ID:    uuid.New(),
		Order: 0,
		Type:  types.ContentBlockTypeText,
		Text:  &text,
	}}

	p := QuizPrompt("Concurrency", blocks)
	if !strings.Contains(p, "Concurrency") {
		t.Fatalf("lesson title missing from quiz prompt")
	}
	if !strings.Contains(p, "Goroutines are lightweight.") {
		t.Fatalf("lesson content missing from quiz prompt")
	}
}

func TestSectionContentPromptIsPlainASCII(t *testing.T) {
	p := SectionContentPrompt("Go Basics", "Functions", "Write functions", []SectionOutlineDraft{
		{Title: "Basics", Description: "syntax"},
		{Title: "Returns", Description: "multiple values"},
	})
	if !strings.Contains(p, "1. Basics: syntax") {
		t.Fatalf("section outline missing or reformatted:\n%s", p)
	}
	for _, r := range p {
		if r > 127 {
			t.Fatalf("non-ASCII rune %q in prompt", r)
		}
	}
}

func TestPostCoursePromptListsLessons(t *testing.T) {
	p := PostCoursePrompt("Go Basics", []string{"Getting Started", "Functions"})
	for _, title := range []string{"Getting Started", "Functions"} {
		if !strings.Contains(p, title) {
			t.Fatalf("lesson %q missing from post-course prompt", title)
		}
	}
}
