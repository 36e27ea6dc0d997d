package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/sse"
	"github.com/yungbote/courseforge-backend/internal/types"
)

type fakeCourseRepo struct {
	created   []*types.Course
	createErr error
}

func (f *fakeCourseRepo) CreateGraph(ctx context.Context, tx *gorm.DB, course *types.Course) (uuid.UUID, error) {
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	f.created = append(f.created, course)
	return course.ID, nil
}

func (f *fakeCourseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error) {
	return nil, nil
}

func (f *fakeCourseRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Course, error) {
	return nil, nil
}

func (f *fakeCourseRepo) GetGraphByID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error) {
	return nil, gorm.ErrRecordNotFound
}

type fakeRunRepo struct {
	runs    []*types.GenerationRun
	updates []map[string]any
}

func (f *fakeRunRepo) Create(ctx context.Context, tx *gorm.DB, runs []*types.GenerationRun) ([]*types.GenerationRun, error) {
	f.runs = append(f.runs, runs...)
	return runs, nil
}

func (f *fakeRunRepo) GetByIDs(ctx context.Context, tx *gorm.DB, runIDs []uuid.UUID) ([]*types.GenerationRun, error) {
	var out []*types.GenerationRun
	for _, r := range f.runs {
		for _, id := range runIDs {
			if r.ID == id {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeRunRepo) GetLatestByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.GenerationRun, error) {
	var latest *types.GenerationRun
	for _, r := range f.runs {
		if r.CourseID == nil || *r.CourseID != courseID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (f *fakeRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, runID uuid.UUID, updates map[string]interface{}) error {
	f.updates = append(f.updates, updates)
	return nil
}

// Responses in pipeline call order: syllabus, then per lesson
// context/content/quiz, then post-course.
var happyPathResponses = []string{
	// syllabus
	`{"title":"Go Basics","description":"An intro course","lessons":[
		{"title":"Getting Started","duration":"10 min"},
		{"title":"Functions","duration":"15 min"}]}`,
	// lesson 1 context
	`{"title":"Getting Started","objective":"Install and run Go","sections":[
		{"title":"Installing","description":"setup"}]}`,
	// lesson 1 content
	`{"sections":[{"title":"Installing","contentBlocks":[
		{"type":"TEXT","content":"Download the toolchain."},
		{"type":"code","content":"go version"}]}]}`,
	// lesson 1 quiz
	`{"title":"Quiz: Getting Started","duration":"5 min","totalMarks":999,"passingMarks":1,"questions":[
		{"number":1,"question":"Which command prints the version?","type":"MCQ",
		 "options":["go version","go run"],"correctAnswers":["go version"],"marks":5,"explanation":"e"},
		{"number":2,"question":"Go is compiled.","type":"TRUE_FALSE",
		 "correctAnswers":["true"],"marks":3,"explanation":"e"}]}`,
	// lesson 2 context
	`{"title":"Functions","objective":"Write functions","sections":[
		{"title":"Basics","description":"syntax"}]}`,
	// lesson 2 content, explicit out-of-order block ordinals
	`{"sections":[{"title":"Basics","contentBlocks":[
		{"type":"MATH","content":"f(x) = x^2","order":2},
		{"type":"TEXT","content":"Functions take parameters.","order":1}]}]}`,
	// lesson 2 quiz, descriptive question with rubric
	`{"title":"Quiz: Functions","duration":"5 min","questions":[
		{"number":1,"question":"Explain multiple return values.","type":"DESCRIPTIVE",
		 "marks":4,"explanation":"e","rubric":"mentions error convention"}]}`,
	// post-course
	`{"summary":{"overview":"You learned Go.","whatYouLearned":["basics"],"skillsGained":["go"],"nextSteps":["build"]},
	  "keyPoints":[{"category":"tooling","points":["go version"]}],
	  "analytics":{"totalTimeSpent":25,"averageScore":0,"quizzesPassed":0,
	   "lessonsCompleted":0,"quizzesCompleted":0,"grade":"excellent"}}`,
}

func newTestGenerationService(t *testing.T, client GenAIClient, courseRepo *fakeCourseRepo, runRepo *fakeRunRepo) CourseGenerationService {
	t.Helper()
	log := newTestLogger(t)
	structured := NewStructuredGenService(log, client, nil, 0, 0)
	return NewCourseGenerationService(nil, log, nil, courseRepo, runRepo, structured, 2)
}

func TestGenerateSyncHappyPath(t *testing.T) {
	client := &fakeGenAIClient{responses: happyPathResponses}
	courseRepo := &fakeCourseRepo{}
	runRepo := &fakeRunRepo{}
	svc := newTestGenerationService(t, client, courseRepo, runRepo)

	userID := uuid.New()
	events, courseID, err := svc.GenerateSync(context.Background(), userID, "Go Basics")
	if err != nil {
		t.Fatalf("GenerateSync: %v", err)
	}
	if courseID == uuid.Nil {
		t.Fatalf("courseID is nil")
	}
	if len(courseRepo.created) != 1 {
		t.Fatalf("created courses: want=1 got=%d", len(courseRepo.created))
	}

	course := courseRepo.created[0]
	if course.ID != courseID {
		t.Fatalf("course id mismatch: want=%v got=%v", courseID, course.ID)
	}
	if course.UserID != userID {
		t.Fatalf("course user: want=%v got=%v", userID, course.UserID)
	}
	if course.Title != "Go Basics" {
		t.Fatalf("course title: want=%q got=%q", "Go Basics", course.Title)
	}
	if len(course.Lessons) != 2 {
		t.Fatalf("lessons: want=2 got=%d", len(course.Lessons))
	}

	// Lesson 1: block order is contiguous from 0, one payload per block.
	l1 := course.Lessons[0]
	if l1.Index != 0 || l1.Title != "Getting Started" {
		t.Fatalf("lesson 1: index=%d title=%q", l1.Index, l1.Title)
	}
	if len(l1.ContentBlocks) != 2 {
		t.Fatalf("lesson 1 blocks: want=2 got=%d", len(l1.ContentBlocks))
	}
	for i, b := range l1.ContentBlocks {
		if b.Order != i {
			t.Fatalf("block order: want=%d got=%d", i, b.Order)
		}
		set := 0
		for _, p := range []*string{b.Text, b.Code, b.Math, b.Graph} {
			if p != nil {
				set++
			}
		}
		if set != 1 {
			t.Fatalf("block %d: want exactly one payload, got %d", i, set)
		}
	}
	if l1.ContentBlocks[0].Type != types.ContentBlockTypeText {
		t.Fatalf("block 0 type: want=TEXT got=%s", l1.ContentBlocks[0].Type)
	}
	if l1.ContentBlocks[1].Type != types.ContentBlockTypeCode || l1.ContentBlocks[1].Code == nil {
		t.Fatalf("block 1: want CODE with code payload")
	}

	// Lesson 1 quiz: model-reported totals are discarded and recomputed.
	if l1.Quiz == nil {
		t.Fatalf("lesson 1 quiz missing")
	}
	if l1.Quiz.TotalMarks != 8 {
		t.Fatalf("quiz total: want=8 got=%d", l1.Quiz.TotalMarks)
	}
	if l1.Quiz.PassingMarks != 5 {
		t.Fatalf("quiz passing: want=5 got=%d", l1.Quiz.PassingMarks)
	}
	if len(l1.Quiz.Questions) != 2 {
		t.Fatalf("quiz questions: want=2 got=%d", len(l1.Quiz.Questions))
	}
	for i, q := range l1.Quiz.Questions {
		if q.Number != i+1 {
			t.Fatalf("question number: want=%d got=%d", i+1, q.Number)
		}
	}

	// Lesson 2: explicit model ordinals are respected, then renumbered.
	l2 := course.Lessons[1]
	if len(l2.ContentBlocks) != 2 {
		t.Fatalf("lesson 2 blocks: want=2 got=%d", len(l2.ContentBlocks))
	}
	if l2.ContentBlocks[0].Type != types.ContentBlockTypeText {
		t.Fatalf("lesson 2 block 0: want TEXT (order 1 before 2) got=%s", l2.ContentBlocks[0].Type)
	}
	if l2.ContentBlocks[1].Type != types.ContentBlockTypeMath {
		t.Fatalf("lesson 2 block 1: want MATH got=%s", l2.ContentBlocks[1].Type)
	}
	if l2.Quiz.TotalMarks != 4 || l2.Quiz.PassingMarks != 3 {
		t.Fatalf("lesson 2 quiz marks: total=%d passing=%d", l2.Quiz.TotalMarks, l2.Quiz.PassingMarks)
	}
	if l2.Quiz.Questions[0].Rubric == "" {
		t.Fatalf("descriptive question lost its rubric")
	}

	// Post-course mapping.
	if course.Summary == nil || course.Summary.Overview != "You learned Go." {
		t.Fatalf("summary not mapped")
	}
	if len(course.KeyPoints) != 1 || course.KeyPoints[0].Category != "tooling" {
		t.Fatalf("key points not mapped")
	}
	if course.Analytics == nil || course.Analytics.Grade != types.CourseGradeExcellent {
		t.Fatalf("analytics grade: want=EXCELLENT got=%v", course.Analytics.Grade)
	}

	// Event trail: syllabus first, exactly one terminal completed event last.
	if len(events) == 0 {
		t.Fatalf("no events emitted")
	}
	if events[0].Step != "syllabus" || events[0].Status != "started" {
		t.Fatalf("first event: %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Step != "completed" || last.CourseID != courseID.String() {
		t.Fatalf("last event: %+v", last)
	}
	terminals := 0
	for _, ev := range events {
		if ev.Step == "completed" || ev.Step == "error" {
			terminals++
		}
	}
	if terminals != 1 {
		t.Fatalf("terminal events: want=1 got=%d", terminals)
	}

	// Lesson started events follow the syllabus lesson order exactly.
	var syllabusData *SyllabusDraft
	var lessonStarts []string
	for _, ev := range events {
		if ev.Step == "syllabus" && ev.Status == "completed" {
			d := ev.Data.(SyllabusDraft)
			syllabusData = &d
		}
		if ev.Step == "lesson" && ev.Status == "started" {
			data := ev.Data.(map[string]any)
			lessonStarts = append(lessonStarts, data["title"].(string))
		}
	}
	if syllabusData == nil {
		t.Fatalf("no syllabus completed event")
	}
	if len(lessonStarts) != len(syllabusData.Lessons) {
		t.Fatalf("lesson starts: want=%d got=%d", len(syllabusData.Lessons), len(lessonStarts))
	}
	for i, planned := range syllabusData.Lessons {
		if lessonStarts[i] != planned.Title {
			t.Fatalf("lesson start %d: want=%q got=%q", i, planned.Title, lessonStarts[i])
		}
	}

	// Content block events arrive in flattened order per lesson.
	var l1BlockEvents []ProgressEvent
	for _, ev := range events {
		if ev.Step == "contentBlock" && ev.LessonTitle == "Getting Started" {
			l1BlockEvents = append(l1BlockEvents, ev)
		}
	}
	if len(l1BlockEvents) != 2 {
		t.Fatalf("lesson 1 block events: want=2 got=%d", len(l1BlockEvents))
	}
	for i, ev := range l1BlockEvents {
		if ev.ContentBlock == nil || ev.ContentBlock.Order != i {
			t.Fatalf("block event %d: %+v", i, ev.ContentBlock)
		}
	}

	// Run row ends succeeded with the course id attached.
	if len(runRepo.updates) == 0 {
		t.Fatalf("no run updates recorded")
	}
	final := runRepo.updates[len(runRepo.updates)-1]
	if final["status"] != "succeeded" {
		t.Fatalf("final run status: want=succeeded got=%v", final["status"])
	}
	if final["course_id"] != courseID {
		t.Fatalf("final run course_id: want=%v got=%v", courseID, final["course_id"])
	}
}

func TestGenerateSyncSyllabusFailureIsTerminal(t *testing.T) {
	// Every attempt returns unparseable text; the run must fail at the
	// syllabus stage with one error event and zero persistence.
	client := &fakeGenAIClient{responses: []string{"garbage", "garbage"}}
	courseRepo := &fakeCourseRepo{}
	runRepo := &fakeRunRepo{}
	svc := newTestGenerationService(t, client, courseRepo, runRepo)

	events, courseID, err := svc.GenerateSync(context.Background(), uuid.New(), "Go Basics")
	if err == nil {
		t.Fatalf("want error, got nil")
	}
	if courseID != uuid.Nil {
		t.Fatalf("courseID: want=Nil got=%v", courseID)
	}
	if len(courseRepo.created) != 0 {
		t.Fatalf("created courses: want=0 got=%d", len(courseRepo.created))
	}

	errorEvents := 0
	for _, ev := range events {
		if ev.Step == "error" {
			errorEvents++
		}
		if ev.Step == "completed" {
			t.Fatalf("completed event on failed run")
		}
	}
	if errorEvents != 1 {
		t.Fatalf("error events: want=1 got=%d", errorEvents)
	}
	if events[len(events)-1].Step != "error" {
		t.Fatalf("last event: %+v", events[len(events)-1])
	}

	final := runRepo.updates[len(runRepo.updates)-1]
	if final["status"] != "failed" {
		t.Fatalf("final run status: want=failed got=%v", final["status"])
	}
	if final["stage"] != "syllabus" {
		t.Fatalf("final run stage: want=syllabus got=%v", final["stage"])
	}
}

func TestGenerateSyncRejectsMalformedQuizShape(t *testing.T) {
	// DESCRIPTIVE question without a rubric parses as JSON but fails shape
	// validation, so the run fails without burning further model calls.
	responses := make([]string, 4)
	copy(responses, happyPathResponses[:3])
	responses[3] = `{"title":"Quiz","questions":[
		{"number":1,"question":"Explain.","type":"DESCRIPTIVE","marks":4}]}`

	client := &fakeGenAIClient{responses: responses}
	courseRepo := &fakeCourseRepo{}
	runRepo := &fakeRunRepo{}
	svc := newTestGenerationService(t, client, courseRepo, runRepo)

	events, _, err := svc.GenerateSync(context.Background(), uuid.New(), "Go Basics")
	if err == nil {
		t.Fatalf("want error, got nil")
	}
	if len(courseRepo.created) != 0 {
		t.Fatalf("created courses: want=0 got=%d", len(courseRepo.created))
	}
	if client.calls != 4 {
		t.Fatalf("model calls: want=4 got=%d", client.calls)
	}
	last := events[len(events)-1]
	if last.Step != "error" || last.Message == "" {
		t.Fatalf("last event: %+v", last)
	}
}

func TestGenerateSyncRejectsEmptyTopic(t *testing.T) {
	client := &fakeGenAIClient{}
	svc := newTestGenerationService(t, client, &fakeCourseRepo{}, &fakeRunRepo{})

	if _, _, err := svc.GenerateSync(context.Background(), uuid.New(), "   "); err == nil {
		t.Fatalf("want error for empty topic")
	}
	if client.calls != 0 {
		t.Fatalf("model calls: want=0 got=%d", client.calls)
	}
}

// drainStream reads broadcast messages off a subscribed client until a
// terminal event arrives.
func drainStream(t *testing.T, client *sse.SSEClient) []sse.SSEMessage {
	t.Helper()
	var msgs []sse.SSEMessage
	for {
		select {
		case msg := <-client.Outbound:
			msgs = append(msgs, msg)
			if msg.Event == sse.SSEEventGenerationDone || msg.Event == sse.SSEEventGenerationFailed {
				return msgs
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for terminal event; got %d messages", len(msgs))
		}
	}
}

func TestStartRunStreamsOverHub(t *testing.T) {
	client := &fakeGenAIClient{responses: happyPathResponses}
	courseRepo := &fakeCourseRepo{}
	runRepo := &fakeRunRepo{}
	log := newTestLogger(t)
	hub := sse.NewSSEHub(log)
	structured := NewStructuredGenService(log, client, nil, 0, 0)
	svc := NewCourseGenerationService(nil, log, hub, courseRepo, runRepo, structured, 2)

	userID := uuid.New()
	sseClient := hub.NewSSEClient(userID)
	hub.AddChannel(sseClient, userID.String())

	run, err := svc.StartRun(context.Background(), userID, "Go Basics")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if run.Status != "queued" {
		t.Fatalf("run status: want=queued got=%s", run.Status)
	}

	msgs := drainStream(t, sseClient)

	// FIFO: same order the pipeline emitted, syllabus first, done last.
	first := msgs[0].Data.(ProgressEvent)
	if first.Step != "syllabus" || first.Status != "started" {
		t.Fatalf("first streamed event: %+v", first)
	}
	lastMsg := msgs[len(msgs)-1]
	if lastMsg.Event != sse.SSEEventGenerationDone {
		t.Fatalf("terminal event: want=%s got=%s", sse.SSEEventGenerationDone, lastMsg.Event)
	}
	lastEv := lastMsg.Data.(ProgressEvent)
	if lastEv.Step != "completed" || lastEv.CourseID == "" {
		t.Fatalf("terminal payload: %+v", lastEv)
	}
	for _, msg := range msgs[:len(msgs)-1] {
		if msg.Event != sse.SSEEventGenerationProgress {
			t.Fatalf("non-terminal event name: %s", msg.Event)
		}
		if msg.Channel != userID.String() {
			t.Fatalf("channel: want=%s got=%s", userID.String(), msg.Channel)
		}
	}

	// Lesson started events stream in syllabus order too.
	var lessonStarts []string
	for _, msg := range msgs {
		ev := msg.Data.(ProgressEvent)
		if ev.Step == "lesson" && ev.Status == "started" {
			lessonStarts = append(lessonStarts, ev.Data.(map[string]any)["title"].(string))
		}
	}
	want := []string{"Getting Started", "Functions"}
	if len(lessonStarts) != len(want) {
		t.Fatalf("lesson starts: want=%d got=%d", len(want), len(lessonStarts))
	}
	for i := range want {
		if lessonStarts[i] != want[i] {
			t.Fatalf("lesson start %d: want=%q got=%q", i, want[i], lessonStarts[i])
		}
	}

	// The run row was marked succeeded before the done event was emitted.
	if len(runRepo.updates) == 0 {
		t.Fatalf("no run updates recorded")
	}
	final := runRepo.updates[len(runRepo.updates)-1]
	if final["status"] != "succeeded" {
		t.Fatalf("final run status: want=succeeded got=%v", final["status"])
	}
	if len(courseRepo.created) != 1 {
		t.Fatalf("created courses: want=1 got=%d", len(courseRepo.created))
	}
	if lastEv.CourseID != courseRepo.created[0].ID.String() {
		t.Fatalf("done courseId: want=%s got=%s", courseRepo.created[0].ID.String(), lastEv.CourseID)
	}
}

func TestStartRunStreamsFailureEvent(t *testing.T) {
	client := &fakeGenAIClient{responses: []string{"garbage", "garbage"}}
	courseRepo := &fakeCourseRepo{}
	runRepo := &fakeRunRepo{}
	log := newTestLogger(t)
	hub := sse.NewSSEHub(log)
	structured := NewStructuredGenService(log, client, nil, 0, 0)
	svc := NewCourseGenerationService(nil, log, hub, courseRepo, runRepo, structured, 2)

	userID := uuid.New()
	sseClient := hub.NewSSEClient(userID)
	hub.AddChannel(sseClient, userID.String())

	if _, err := svc.StartRun(context.Background(), userID, "Go Basics"); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	msgs := drainStream(t, sseClient)
	lastMsg := msgs[len(msgs)-1]
	if lastMsg.Event != sse.SSEEventGenerationFailed {
		t.Fatalf("terminal event: want=%s got=%s", sse.SSEEventGenerationFailed, lastMsg.Event)
	}
	ev := lastMsg.Data.(ProgressEvent)
	if ev.Step != "error" || ev.Message == "" {
		t.Fatalf("terminal payload: %+v", ev)
	}
	if len(courseRepo.created) != 0 {
		t.Fatalf("created courses: want=0 got=%d", len(courseRepo.created))
	}
	final := runRepo.updates[len(runRepo.updates)-1]
	if final["status"] != "failed" {
		t.Fatalf("final run status: want=failed got=%v", final["status"])
	}
}

func TestGetLatestRunForCourseNotFound(t *testing.T) {
	client := &fakeGenAIClient{}
	svc := newTestGenerationService(t, client, &fakeCourseRepo{}, &fakeRunRepo{})

	_, err := svc.GetLatestRunForCourse(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("want ErrRunNotFound, got %v", err)
	}
}

func TestNormalizeQuizValidation(t *testing.T) {
	base := func() QuizDraft {
		return QuizDraft{
			Title: "q",
			Questions: []QuizQuestionDraft{{
				Number: 1, Question: "pick one", Type: "MCQ",
				Options: StringList{"a", "b"}, CorrectAnswers: StringList{"a"}, Marks: 2,
			}},
		}
	}

	t.Run("valid", func(t *testing.T) {
		quiz, err := normalizeQuiz(uuid.New(), base())
		if err != nil {
			t.Fatalf("normalizeQuiz: %v", err)
		}
		if quiz.TotalMarks != 2 || quiz.PassingMarks != 2 {
			t.Fatalf("marks: total=%d passing=%d", quiz.TotalMarks, quiz.PassingMarks)
		}
	})

	t.Run("mcq without options", func(t *testing.T) {
		d := base()
		d.Questions[0].Options = nil
		if _, err := normalizeQuiz(uuid.New(), d); err == nil {
			t.Fatalf("want shape error")
		}
	})

	t.Run("non-positive marks", func(t *testing.T) {
		d := base()
		d.Questions[0].Marks = 0
		if _, err := normalizeQuiz(uuid.New(), d); err == nil {
			t.Fatalf("want shape error")
		}
	})

	t.Run("unknown question type", func(t *testing.T) {
		d := base()
		d.Questions[0].Type = "ESSAY"
		if _, err := normalizeQuiz(uuid.New(), d); err == nil {
			t.Fatalf("want shape error")
		}
	})

	t.Run("no questions", func(t *testing.T) {
		if _, err := normalizeQuiz(uuid.New(), QuizDraft{Title: "q"}); err == nil {
			t.Fatalf("want shape error")
		}
	})
}

func TestNormalizeGradeCoercion(t *testing.T) {
	cases := map[string]types.CourseGrade{
		"excellent":         types.CourseGradeExcellent,
		"NEEDS IMPROVEMENT": types.CourseGradeNeedsImprovement,
		"needs_improvement": types.CourseGradeNeedsImprovement,
		"superb":            types.CourseGradeAverage,
		"":                  types.CourseGradeAverage,
	}
	for in, want := range cases {
		if got := normalizeGrade(in); got != want {
			t.Fatalf("normalizeGrade(%q): want=%s got=%s", in, want, got)
		}
	}
}

func TestClassifyBlockUnknownTypeBecomesText(t *testing.T) {
	block := classifyBlock(uuid.New(), 0, BlockDraft{Type: "VIDEO", Content: "clip"}, time.Now())
	if block.Type != types.ContentBlockTypeText {
		t.Fatalf("type: want=TEXT got=%s", block.Type)
	}
	if block.Text == nil || *block.Text != "clip" {
		t.Fatalf("text payload not set")
	}
	if block.Code != nil || block.Math != nil || block.Graph != nil {
		t.Fatalf("other payloads must stay nil")
	}
}
