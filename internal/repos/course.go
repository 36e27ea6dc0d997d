package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/types"
)

type CourseRepo interface {
	// CreateGraph commits a fully assembled course aggregate (lessons, content
	// blocks, quiz + questions, summary, key points, analytics) in a single
	// transaction. Either the whole graph lands or none of it does.
	CreateGraph(ctx context.Context, tx *gorm.DB, course *types.Course) (uuid.UUID, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Course, error)
	// GetGraphByID loads the full aggregate with children in stored order.
	GetGraphByID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) CreateGraph(ctx context.Context, tx *gorm.DB, course *types.Course) (uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if course == nil {
		return uuid.Nil, fmt.Errorf("course is nil")
	}
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}

	err := transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		return inner.Create(course).Error
	})
	if err != nil {
		return uuid.Nil, err
	}
	return course.ID, nil
}

func (r *courseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Course
	if len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Course
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) GetGraphByID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var course types.Course
	err := transaction.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order(`lesson."index" ASC`)
		}).
		Preload("Lessons.ContentBlocks", func(db *gorm.DB) *gorm.DB {
			return db.Order(`content_block."order" ASC`)
		}).
		Preload("Lessons.Quiz").
		Preload("Lessons.Quiz.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_question.number ASC")
		}).
		Preload("Summary").
		Preload("KeyPoints").
		Preload("Analytics").
		Where("id = ?", courseID).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}
