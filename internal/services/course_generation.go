package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/repos"
	"github.com/yungbote/courseforge-backend/internal/sse"
	"github.com/yungbote/courseforge-backend/internal/types"
)

// ProgressEvent is the wire format pushed to the client, tagged by Step.
// A run ends with exactly one terminal event: "completed" or "error".
type ProgressEvent struct {
	Step         string             `json:"step"`
	Status       string             `json:"status,omitempty"`
	Data         any                `json:"data,omitempty"`
	LessonTitle  string             `json:"lessonTitle,omitempty"`
	SectionTitle string             `json:"sectionTitle,omitempty"`
	ContentBlock *ContentBlockEvent `json:"contentBlock,omitempty"`
	CourseID     string             `json:"courseId,omitempty"`
	Message      string             `json:"message,omitempty"`
}

type ContentBlockEvent struct {
	ID    string  `json:"id"`
	Order int     `json:"order"`
	Type  string  `json:"type"`
	Text  *string `json:"text"`
	Code  *string `json:"code"`
	Math  *string `json:"math"`
	Graph *string `json:"graph"`
}

// EventSink receives progress events in emission order. Emit must not block
// generation; both implementations are fire-and-forget.
type EventSink interface {
	Emit(ev ProgressEvent)
}

// StreamSink broadcasts each event on the owning user's SSE channel.
type StreamSink struct {
	Hub     *sse.SSEHub
	Channel string
}

func (s *StreamSink) Emit(ev ProgressEvent) {
	event := sse.SSEEventGenerationProgress
	switch ev.Step {
	case "completed":
		event = sse.SSEEventGenerationDone
	case "error":
		event = sse.SSEEventGenerationFailed
	}
	s.Hub.Broadcast(sse.SSEMessage{
		Channel: s.Channel,
		Event:   event,
		Data:    ev,
	})
}

// CollectSink buffers events for the synchronous endpoint and for tests.
type CollectSink struct {
	Events []ProgressEvent
}

func (s *CollectSink) Emit(ev ProgressEvent) {
	s.Events = append(s.Events, ev)
}

type CourseGenerationService interface {
	// StartRun records a queued run and generates in the background; progress
	// streams over SSE. The run survives client disconnects: generation
	// finishes and persists either way, undelivered events are dropped.
	StartRun(ctx context.Context, userID uuid.UUID, topic string) (*types.GenerationRun, error)
	// GenerateSync runs the same pipeline inline with a collecting sink.
	GenerateSync(ctx context.Context, userID uuid.UUID, topic string) ([]ProgressEvent, uuid.UUID, error)
	GetRunByID(ctx context.Context, userID, runID uuid.UUID) (*types.GenerationRun, error)
	GetLatestRunForCourse(ctx context.Context, userID, courseID uuid.UUID) (*types.GenerationRun, error)
}

type courseGenerationService struct {
	db  *gorm.DB
	log *logger.Logger

	sseHub     *sse.SSEHub
	courseRepo repos.CourseRepo
	runRepo    repos.GenerationRunRepo
	structured StructuredGenService

	maxAttempts int
}

func NewCourseGenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sseHub *sse.SSEHub,
	courseRepo repos.CourseRepo,
	runRepo repos.GenerationRunRepo,
	structured StructuredGenService,
	maxAttempts int,
) CourseGenerationService {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &courseGenerationService{
		db:          db,
		log:         baseLog.With("service", "CourseGenerationService"),
		sseHub:      sseHub,
		courseRepo:  courseRepo,
		runRepo:     runRepo,
		structured:  structured,
		maxAttempts: maxAttempts,
	}
}

func (cgs *courseGenerationService) StartRun(ctx context.Context, userID uuid.UUID, topic string) (*types.GenerationRun, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	now := time.Now()
	run := &types.GenerationRun{
		ID:        uuid.New(),
		UserID:    userID,
		Topic:     topic,
		Status:    "queued",
		Stage:     "syllabus",
		Progress:  0,
		Metadata:  datatypes.JSON([]byte(`{}`)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := cgs.runRepo.Create(ctx, nil, []*types.GenerationRun{run}); err != nil {
		return nil, fmt.Errorf("create generation run: %w", err)
	}

	sink := &StreamSink{Hub: cgs.sseHub, Channel: userID.String()}
	// Detached from the request context: the run completes and persists even
	// if the client goes away (documented disconnect policy).
	go cgs.processRun(context.Background(), run, sink)

	return run, nil
}

func (cgs *courseGenerationService) GenerateSync(ctx context.Context, userID uuid.UUID, topic string) ([]ProgressEvent, uuid.UUID, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, uuid.Nil, fmt.Errorf("topic is required")
	}

	now := time.Now()
	run := &types.GenerationRun{
		ID:        uuid.New(),
		UserID:    userID,
		Topic:     topic,
		Status:    "queued",
		Stage:     "syllabus",
		Metadata:  datatypes.JSON([]byte(`{}`)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := cgs.runRepo.Create(ctx, nil, []*types.GenerationRun{run}); err != nil {
		return nil, uuid.Nil, fmt.Errorf("create generation run: %w", err)
	}

	sink := &CollectSink{}
	courseID := cgs.processRun(ctx, run, sink)
	if courseID == uuid.Nil {
		return sink.Events, uuid.Nil, fmt.Errorf("course generation failed")
	}
	return sink.Events, courseID, nil
}

// processRun drives the full stage sequence for one run. Strictly sequential:
// every model call and its retry loop completes before the next stage starts,
// and lessons are handled one at a time in syllabus order. Returns the
// created course id, or uuid.Nil on failure.
func (cgs *courseGenerationService) processRun(ctx context.Context, run *types.GenerationRun, sink EventSink) uuid.UUID {
	userID := run.UserID
	runID := run.ID

	fail := func(stage string, err error) {
		cgs.log.Error("Course generation failed", "run_id", runID, "stage", stage, "error", err)
		now := time.Now()
		_ = cgs.runRepo.UpdateFields(ctx, nil, runID, map[string]any{
			"status":        "failed",
			"stage":         stage,
			"error":         err.Error(),
			"last_error_at": now,
			"updated_at":    now,
		})
		sink.Emit(ProgressEvent{Step: "error", Message: err.Error()})
	}

	progress := func(stage string, pct int) {
		now := time.Now()
		_ = cgs.runRepo.UpdateFields(ctx, nil, runID, map[string]any{
			"status":       "running",
			"stage":        stage,
			"progress":     pct,
			"heartbeat_at": now,
			"updated_at":   now,
		})
	}

	gen := func(stage, prompt string) (rawJSON []byte, err error) {
		return cgs.structured.Generate(ctx, StructuredRequest{
			CallType:    stage,
			Prompt:      prompt,
			MaxAttempts: cgs.maxAttempts,
			UserID:      &userID,
			RunID:       &runID,
		})
	}

	// 1) SYLLABUS
	progress("syllabus", 5)
	sink.Emit(ProgressEvent{Step: "syllabus", Status: "started"})

	raw, err := gen("syllabus", SyllabusPrompt(run.Topic))
	if err != nil {
		fail("syllabus", err)
		return uuid.Nil
	}
	syllabus, err := decodeStage[SyllabusDraft]("syllabus", raw)
	if err != nil {
		fail("syllabus", err)
		return uuid.Nil
	}
	if strings.TrimSpace(syllabus.Title) == "" || len(syllabus.Lessons) == 0 {
		fail("syllabus", &ShapeError{Stage: "syllabus", Cause: fmt.Errorf("missing title or lessons")})
		return uuid.Nil
	}
	sink.Emit(ProgressEvent{Step: "syllabus", Status: "completed", Data: syllabus})

	// 2) LESSONS, strictly in syllabus order
	courseID := uuid.New()
	lessons := make([]*types.Lesson, 0, len(syllabus.Lessons))
	total := len(syllabus.Lessons)

	for li, planned := range syllabus.Lessons {
		progress("lessons", 10+int(float64(li)/float64(total)*75.0))
		sink.Emit(ProgressEvent{Step: "lesson", Status: "started", Data: map[string]any{"title": planned.Title}})

		lesson, err := cgs.generateLesson(ctx, gen, sink, run.Topic, syllabus.Title, courseID, li, planned)
		if err != nil {
			fail("lessons", err)
			return uuid.Nil
		}
		lessons = append(lessons, lesson)
	}

	// 3) POST-COURSE
	progress("post_course", 88)
	lessonTitles := make([]string, len(lessons))
	for i, l := range lessons {
		lessonTitles[i] = l.Title
	}
	raw, err = gen("post_course", PostCoursePrompt(syllabus.Title, lessonTitles))
	if err != nil {
		fail("post_course", err)
		return uuid.Nil
	}
	postCourse, err := decodeStage[PostCourseDraft]("post_course", raw)
	if err != nil {
		fail("post_course", err)
		return uuid.Nil
	}
	sink.Emit(ProgressEvent{Step: "summary", Data: postCourse.Summary})
	sink.Emit(ProgressEvent{Step: "keyPoints", Data: postCourse.KeyPoints})
	sink.Emit(ProgressEvent{Step: "analytics", Data: postCourse.Analytics})

	// 4) PERSIST: one atomic create for the whole aggregate
	progress("persist", 95)
	course := assembleCourse(courseID, userID, run.Topic, syllabus, lessons, postCourse)
	if _, err := cgs.courseRepo.CreateGraph(ctx, nil, course); err != nil {
		fail("persist", fmt.Errorf("persist course: %w", err))
		return uuid.Nil
	}

	now := time.Now()
	_ = cgs.runRepo.UpdateFields(ctx, nil, runID, map[string]any{
		"status":       "succeeded",
		"stage":        "done",
		"progress":     100,
		"course_id":    courseID,
		"error":        "",
		"heartbeat_at": now,
		"updated_at":   now,
	})

	sink.Emit(ProgressEvent{Step: "completed", CourseID: courseID.String()})
	cgs.log.Info("Course generation completed", "run_id", runID, "course_id", courseID)
	return courseID
}

type stageGenFunc func(stage, prompt string) ([]byte, error)

func (cgs *courseGenerationService) generateLesson(
	ctx context.Context,
	gen stageGenFunc,
	sink EventSink,
	topic string,
	courseTitle string,
	courseID uuid.UUID,
	index int,
	planned SyllabusLessonDraft,
) (*types.Lesson, error) {
	// LESSON_CONTEXT
	raw, err := gen("lesson_context", LessonContextPrompt(topic, courseTitle, planned.Title, planned.Duration))
	if err != nil {
		return nil, err
	}
	lessonCtx, err := decodeStage[LessonContextDraft]("lesson_context", raw)
	if err != nil {
		return nil, err
	}
	if len(lessonCtx.Sections) == 0 {
		return nil, &ShapeError{Stage: "lesson_context", Cause: fmt.Errorf("lesson %q has no sections", planned.Title)}
	}

	lessonID := uuid.New()
	now := time.Now()
	lesson := &types.Lesson{
		ID:        lessonID,
		CourseID:  courseID,
		Index:     index,
		Title:     planned.Title,
		Objective: lessonCtx.Objective,
		Duration:  planned.Duration,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// SECTION_CONTENT: all sections of the lesson in one call
	raw, err = gen("section_content", SectionContentPrompt(topic, planned.Title, lessonCtx.Objective, lessonCtx.Sections))
	if err != nil {
		return nil, err
	}
	content, err := decodeStage[SectionContentDraft]("section_content", raw)
	if err != nil {
		return nil, err
	}
	if len(content.Sections) == 0 {
		return nil, &ShapeError{Stage: "section_content", Cause: fmt.Errorf("lesson %q returned no sections", planned.Title)}
	}

	blocks, sectionTitles := flattenSections(lessonID, content.Sections)
	if len(blocks) == 0 {
		return nil, &ShapeError{Stage: "section_content", Cause: fmt.Errorf("lesson %q produced no content blocks", planned.Title)}
	}
	lesson.ContentBlocks = blocks

	// One event per classified block, in flattened order.
	for i, b := range blocks {
		sink.Emit(ProgressEvent{
			Step:         "contentBlock",
			LessonTitle:  planned.Title,
			SectionTitle: sectionTitles[i],
			ContentBlock: &ContentBlockEvent{
				ID:    b.ID.String(),
				Order: b.Order,
				Type:  string(b.Type),
				Text:  b.Text,
				Code:  b.Code,
				Math:  b.Math,
				Graph: b.Graph,
			},
		})
	}

	// QUIZ, grounded on the blocks just taught
	raw, err = gen("quiz", QuizPrompt(planned.Title, blocks))
	if err != nil {
		return nil, err
	}
	quizDraft, err := decodeStage[QuizDraft]("quiz", raw)
	if err != nil {
		return nil, err
	}
	quiz, err := normalizeQuiz(lessonID, quizDraft)
	if err != nil {
		return nil, err
	}
	lesson.Quiz = quiz
	sink.Emit(ProgressEvent{Step: "quiz", Status: "completed", Data: quiz})

	return lesson, nil
}

// flattenSections concatenates every section's blocks into one contiguous
// per-lesson order. Within a section, an explicit model-supplied order field
// wins (stable sort, missing treated as 0); the final ordinal is reassigned
// sequentially so the per-lesson order stays unique and gap-free no matter
// what the model emitted. Returns the blocks plus, aligned by index, the
// title of the section each came from.
func flattenSections(lessonID uuid.UUID, sections []SectionDraft) ([]*types.ContentBlock, []string) {
	blocks := make([]*types.ContentBlock, 0)
	sectionTitles := make([]string, 0)
	now := time.Now()

	for _, section := range sections {
		drafts := make([]BlockDraft, len(section.ContentBlocks))
		copy(drafts, section.ContentBlocks)
		sort.SliceStable(drafts, func(i, j int) bool {
			return blockOrder(drafts[i]) < blockOrder(drafts[j])
		})

		for _, draft := range drafts {
			if strings.TrimSpace(draft.Content) == "" {
				continue
			}
			block := classifyBlock(lessonID, len(blocks), draft, now)
			blocks = append(blocks, block)
			sectionTitles = append(sectionTitles, section.Title)
		}
	}
	return blocks, sectionTitles
}

func blockOrder(d BlockDraft) int {
	if d.Order == nil {
		return 0
	}
	return *d.Order
}

// classifyBlock maps the draft's type tag onto exactly one payload field.
// Unrecognized type tags are model noise and coerce to TEXT.
func classifyBlock(lessonID uuid.UUID, order int, draft BlockDraft, now time.Time) *types.ContentBlock {
	content := draft.Content
	block := &types.ContentBlock{
		ID:        uuid.New(),
		LessonID:  lessonID,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch types.ContentBlockType(strings.ToUpper(strings.TrimSpace(draft.Type))) {
	case types.ContentBlockTypeCode:
		block.Type = types.ContentBlockTypeCode
		block.Code = &content
	case types.ContentBlockTypeMath:
		block.Type = types.ContentBlockTypeMath
		block.Math = &content
	case types.ContentBlockTypeGraph:
		block.Type = types.ContentBlockTypeGraph
		block.Graph = &content
	default:
		block.Type = types.ContentBlockTypeText
		block.Text = &content
	}
	return block
}

// normalizeQuiz validates question shape and recomputes the mark totals;
// totalMarks/passingMarks from the model are never trusted.
func normalizeQuiz(lessonID uuid.UUID, draft QuizDraft) (*types.Quiz, error) {
	if len(draft.Questions) == 0 {
		return nil, &ShapeError{Stage: "quiz", Cause: fmt.Errorf("quiz has no questions")}
	}

	now := time.Now()
	quiz := &types.Quiz{
		ID:        uuid.New(),
		LessonID:  lessonID,
		Title:     draft.Title,
		Duration:  draft.Duration,
		CreatedAt: now,
		UpdatedAt: now,
	}

	total := 0
	questions := make([]*types.QuizQuestion, 0, len(draft.Questions))
	for i, qd := range draft.Questions {
		qType, err := normalizeQuestionType(qd.Type)
		if err != nil {
			return nil, &ShapeError{Stage: "quiz", Cause: fmt.Errorf("question %d: %w", i+1, err)}
		}
		if strings.TrimSpace(qd.Question) == "" {
			return nil, &ShapeError{Stage: "quiz", Cause: fmt.Errorf("question %d has no text", i+1)}
		}
		if qd.Marks <= 0 {
			return nil, &ShapeError{Stage: "quiz", Cause: fmt.Errorf("question %d has non-positive marks", i+1)}
		}

		needsOptions := qType == types.QuizQuestionTypeMCQ || qType == types.QuizQuestionTypeMultipleSelect
		if needsOptions && len(qd.Options) == 0 {
			return nil, &ShapeError{Stage: "quiz", Cause: fmt.Errorf("question %d (%s) has no options", i+1, qType)}
		}
		if qType == types.QuizQuestionTypeDescriptive {
			if strings.TrimSpace(qd.Rubric) == "" {
				return nil, &ShapeError{Stage: "quiz", Cause: fmt.Errorf("question %d (DESCRIPTIVE) has no rubric", i+1)}
			}
		} else if len(qd.CorrectAnswers) == 0 {
			return nil, &ShapeError{Stage: "quiz", Cause: fmt.Errorf("question %d (%s) has no correct answers", i+1, qType)}
		}

		question := &types.QuizQuestion{
			ID:          uuid.New(),
			QuizID:      quiz.ID,
			Number:      i + 1,
			Question:    qd.Question,
			Type:        qType,
			Marks:       qd.Marks,
			Explanation: qd.Explanation,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if needsOptions {
			question.Options = datatypes.JSON(mustJSON([]string(qd.Options)))
		}
		if qType != types.QuizQuestionTypeDescriptive {
			question.CorrectAnswers = datatypes.JSON(mustJSON([]string(qd.CorrectAnswers)))
		} else {
			question.Rubric = qd.Rubric
		}

		total += qd.Marks
		questions = append(questions, question)
	}

	quiz.Questions = questions
	quiz.TotalMarks = total
	quiz.PassingMarks = int(math.Ceil(float64(total) * 0.6))
	return quiz, nil
}

func normalizeQuestionType(raw string) (types.QuizQuestionType, error) {
	t := types.QuizQuestionType(strings.ToUpper(strings.TrimSpace(raw)))
	switch t {
	case types.QuizQuestionTypeMCQ, types.QuizQuestionTypeMultipleSelect,
		types.QuizQuestionTypeDescriptive, types.QuizQuestionTypeTrueFalse:
		return t, nil
	}
	return "", fmt.Errorf("unknown question type %q", raw)
}

func normalizeGrade(raw string) types.CourseGrade {
	g := types.CourseGrade(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(raw)), " ", "_"))
	switch g {
	case types.CourseGradeExcellent, types.CourseGradeGood,
		types.CourseGradeAverage, types.CourseGradeNeedsImprovement:
		return g
	}
	return types.CourseGradeAverage
}

func assembleCourse(
	courseID uuid.UUID,
	userID uuid.UUID,
	topic string,
	syllabus SyllabusDraft,
	lessons []*types.Lesson,
	postCourse PostCourseDraft,
) *types.Course {
	now := time.Now()

	keyPoints := make([]*types.KeyPoint, 0, len(postCourse.KeyPoints))
	for _, kp := range postCourse.KeyPoints {
		keyPoints = append(keyPoints, &types.KeyPoint{
			ID:        uuid.New(),
			CourseID:  courseID,
			Category:  kp.Category,
			Points:    datatypes.JSON(mustJSON([]string(kp.Points))),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	return &types.Course{
		ID:          courseID,
		UserID:      userID,
		Title:       syllabus.Title,
		Description: syllabus.Description,
		Topic:       topic,
		Metadata:    datatypes.JSON([]byte(`{}`)),
		Lessons:     lessons,
		Summary: &types.CourseSummary{
			ID:             uuid.New(),
			CourseID:       courseID,
			Overview:       postCourse.Summary.Overview,
			WhatYouLearned: datatypes.JSON(mustJSON([]string(postCourse.Summary.WhatYouLearned))),
			SkillsGained:   datatypes.JSON(mustJSON([]string(postCourse.Summary.SkillsGained))),
			NextSteps:      datatypes.JSON(mustJSON([]string(postCourse.Summary.NextSteps))),
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		KeyPoints: keyPoints,
		Analytics: &types.CourseAnalytics{
			ID:               uuid.New(),
			CourseID:         courseID,
			TotalTimeSpent:   postCourse.Analytics.TotalTimeSpent,
			AverageScore:     postCourse.Analytics.AverageScore,
			QuizzesPassed:    postCourse.Analytics.QuizzesPassed,
			LessonsCompleted: postCourse.Analytics.LessonsCompleted,
			QuizzesCompleted: postCourse.Analytics.QuizzesCompleted,
			Grade:            normalizeGrade(postCourse.Analytics.Grade),
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`null`)
	}
	return b
}
