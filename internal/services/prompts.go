package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/courseforge-backend/internal/types"
)

// Prompt builders are pure: topic/prior-stage output in, instruction text
// out. Every prompt pins the model to JSON-only output with a literal example
// schema so the extraction engine has a fighting chance.

const jsonOnlyRules = `Rules:
- Respond with JSON only. No prose, no preamble, no markdown code fences.
- Match the example schema exactly: same keys, same nesting, same casing.
- Do not add commentary fields or trailing text after the JSON.`

func SyllabusPrompt(topic string) string {
	return fmt.Sprintf(`You are an expert curriculum designer. Create a course syllabus for the topic: %q.

The course should have 4-8 lessons ordered from fundamentals to advanced material. Keep lesson titles specific to the topic, not generic.

Return JSON matching exactly this schema:
{
  "title": "Course title",
  "description": "One-paragraph course description",
  "lessons": [
    { "title": "Lesson title", "duration": "30 min" }
  ]
}

%s`, topic, jsonOnlyRules)
}

func LessonContextPrompt(topic, courseTitle, lessonTitle, duration string) string {
	return fmt.Sprintf(`You are writing the teaching plan for one lesson of the course %q (topic: %q).

Lesson: %q (planned duration: %s)

Break the lesson into 3-6 teachable sections that build on each other. Each section gets a title and a short description of what it covers.

Return JSON matching exactly this schema:
{
  "title": "Lesson title",
  "objective": "What the learner can do after this lesson",
  "sections": [
    { "title": "Section title", "description": "What this section covers" }
  ]
}

%s`, courseTitle, topic, lessonTitle, duration, jsonOnlyRules)
}

func SectionContentPrompt(topic, lessonTitle, objective string, sections []SectionOutlineDraft) string {
	var outline strings.Builder
	for i, s := range sections {
		outline.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, s.Title, s.Description))
	}

	return fmt.Sprintf(`You are writing the full teaching content for the lesson %q (topic: %q).
Lesson objective: %s

Sections to write, in order:
%s
Write every section. Each section is an ordered list of content blocks. Block types:
- "TEXT": explanatory prose (markdown allowed inside the string, no fences)
- "CODE": a runnable code sample
- "MATH": a LaTeX expression
- "GRAPH": a description of a chart/diagram to render

Return JSON matching exactly this schema:
{
  "sections": [
    {
      "title": "Section title",
      "contentBlocks": [
        { "type": "TEXT", "content": "...", "order": 0 }
      ]
    }
  ]
}

%s`, lessonTitle, topic, objective, outline.String(), jsonOnlyRules)
}

// QuizPrompt grounds the quiz on the lesson's actual content blocks so every
// question is traceable to taught material.
func QuizPrompt(lessonTitle string, blocks []*types.ContentBlock) string {
	type groundingBlock struct {
		Order   int    `json:"order"`
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	grounding := make([]groundingBlock, 0, len(blocks))
	for _, b := range blocks {
		if b == nil {
			continue
		}
		grounding = append(grounding, groundingBlock{
			Order:   b.Order,
			Type:    string(b.Type),
			Content: blockPayload(b),
		})
	}
	groundingJSON, _ := json.Marshal(grounding)

	return fmt.Sprintf(`You are writing a quiz for the lesson %q. Base every question strictly on the lesson content below; never test material that was not taught.

Lesson content blocks:
%s

Write 4-8 questions. Question types: "MCQ", "MULTIPLE_SELECT", "TRUE_FALSE", "DESCRIPTIVE".
- MCQ and MULTIPLE_SELECT need 3-5 options and the correct option text(s) in correctAnswers.
- TRUE_FALSE needs correctAnswers of ["true"] or ["false"] and no options.
- DESCRIPTIVE needs a grading rubric and no correctAnswers.
- marks is a positive integer per question.

Return JSON matching exactly this schema:
{
  "title": "Quiz title",
  "duration": "10 min",
  "totalMarks": 10,
  "passingMarks": 6,
  "questions": [
    {
      "number": 1,
      "question": "Question text",
      "type": "MCQ",
      "options": ["A", "B", "C", "D"],
      "correctAnswers": ["B"],
      "marks": 2,
      "explanation": "Why B is correct",
      "rubric": ""
    }
  ]
}

%s`, lessonTitle, string(groundingJSON), jsonOnlyRules)
}

func PostCoursePrompt(courseTitle string, lessonTitles []string) string {
	var lessonList strings.Builder
	for i, t := range lessonTitles {
		lessonList.WriteString(fmt.Sprintf("%d. %s\n", i+1, t))
	}

	return fmt.Sprintf(`The course %q has just been generated with these lessons:
%s
Write the post-course material: a summary, key points grouped by category, and projected engagement analytics for a learner who completes everything.

Grades: "EXCELLENT", "GOOD", "AVERAGE", "NEEDS_IMPROVEMENT".

Return JSON matching exactly this schema:
{
  "summary": {
    "overview": "What the course covered",
    "whatYouLearned": ["..."],
    "skillsGained": ["..."],
    "nextSteps": ["..."]
  },
  "keyPoints": [
    { "category": "Category name", "points": ["..."] }
  ],
  "analytics": {
    "totalTimeSpent": 0,
    "averageScore": 0,
    "quizzesPassed": 0,
    "lessonsCompleted": 0,
    "quizzesCompleted": 0,
    "grade": "GOOD"
  }
}

%s`, courseTitle, lessonList.String(), jsonOnlyRules)
}

func blockPayload(b *types.ContentBlock) string {
	switch {
	case b.Text != nil:
		return *b.Text
	case b.Code != nil:
		return *b.Code
	case b.Math != nil:
		return *b.Math
	case b.Graph != nil:
		return *b.Graph
	}
	return ""
}
