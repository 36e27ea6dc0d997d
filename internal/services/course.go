package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/repos"
	"github.com/yungbote/courseforge-backend/internal/types"
)

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrNotCourseOwner = errors.New("course does not belong to user")
)

type LessonProgressUpdate struct {
	IsCompleted *bool `json:"is_completed"`
	TimeSpent   *int  `json:"time_spent"`
}

type QuizProgressUpdate struct {
	IsCompleted *bool `json:"is_completed"`
	GainedMarks *int  `json:"gained_marks"`
	TimeTaken   *int  `json:"time_taken"`
}

type CourseService interface {
	ListCourses(ctx context.Context, userID uuid.UUID) ([]*types.Course, error)
	// GetCourse returns the full aggregate with children in stored order.
	GetCourse(ctx context.Context, userID, courseID uuid.UUID) (*types.Course, error)
	UpdateLessonProgress(ctx context.Context, userID, courseID, lessonID uuid.UUID, update LessonProgressUpdate) error
	UpdateQuizProgress(ctx context.Context, userID, courseID, quizID uuid.UUID, update QuizProgressUpdate) error
}

type courseService struct {
	db  *gorm.DB
	log *logger.Logger

	courseRepo repos.CourseRepo
	lessonRepo repos.LessonRepo
	quizRepo   repos.QuizRepo
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	lessonRepo repos.LessonRepo,
	quizRepo repos.QuizRepo,
) CourseService {
	return &courseService{
		db:         db,
		log:        baseLog.With("service", "CourseService"),
		courseRepo: courseRepo,
		lessonRepo: lessonRepo,
		quizRepo:   quizRepo,
	}
}

func (cs *courseService) ListCourses(ctx context.Context, userID uuid.UUID) ([]*types.Course, error) {
	courses, err := cs.courseRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

func (cs *courseService) GetCourse(ctx context.Context, userID, courseID uuid.UUID) (*types.Course, error) {
	course, err := cs.courseRepo.GetGraphByID(ctx, nil, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if course.UserID != userID {
		return nil, ErrNotCourseOwner
	}
	return course, nil
}

func (cs *courseService) UpdateLessonProgress(ctx context.Context, userID, courseID, lessonID uuid.UUID, update LessonProgressUpdate) error {
	if err := cs.checkOwnership(ctx, userID, courseID); err != nil {
		return err
	}

	lessons, err := cs.lessonRepo.GetByIDs(ctx, nil, []uuid.UUID{lessonID})
	if err != nil {
		return fmt.Errorf("get lesson: %w", err)
	}
	if len(lessons) == 0 || lessons[0].CourseID != courseID {
		return ErrCourseNotFound
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if update.IsCompleted != nil {
		updates["is_completed"] = *update.IsCompleted
	}
	if update.TimeSpent != nil {
		updates["time_spent"] = *update.TimeSpent
	}
	if err := cs.lessonRepo.UpdateProgress(ctx, nil, lessonID, updates); err != nil {
		return fmt.Errorf("update lesson progress: %w", err)
	}
	return nil
}

func (cs *courseService) UpdateQuizProgress(ctx context.Context, userID, courseID, quizID uuid.UUID, update QuizProgressUpdate) error {
	course, err := cs.GetCourse(ctx, userID, courseID)
	if err != nil {
		return err
	}
	var quiz *types.Quiz
	for _, lesson := range course.Lessons {
		if lesson.Quiz != nil && lesson.Quiz.ID == quizID {
			quiz = lesson.Quiz
			break
		}
	}
	if quiz == nil {
		return ErrCourseNotFound
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if update.IsCompleted != nil {
		updates["is_completed"] = *update.IsCompleted
	}
	if update.GainedMarks != nil {
		// Gained marks are clamped to the quiz's total.
		gained := *update.GainedMarks
		if gained < 0 {
			gained = 0
		}
		if gained > quiz.TotalMarks {
			gained = quiz.TotalMarks
		}
		updates["gained_marks"] = gained
	}
	if update.TimeTaken != nil {
		updates["time_taken"] = *update.TimeTaken
	}
	if err := cs.quizRepo.UpdateProgress(ctx, nil, quizID, updates); err != nil {
		return fmt.Errorf("update quiz progress: %w", err)
	}
	return nil
}

func (cs *courseService) checkOwnership(ctx context.Context, userID, courseID uuid.UUID) error {
	courses, err := cs.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return fmt.Errorf("get course: %w", err)
	}
	if len(courses) == 0 {
		return ErrCourseNotFound
	}
	if courses[0].UserID != userID {
		return ErrNotCourseOwner
	}
	return nil
}
