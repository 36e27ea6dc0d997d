package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/types"
)

type QuizRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, quizIDs []uuid.UUID) ([]*types.Quiz, error)
	UpdateProgress(ctx context.Context, tx *gorm.DB, quizID uuid.UUID, updates map[string]interface{}) error
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	repoLog := baseLog.With("repo", "QuizRepo")
	return &quizRepo{db: db, log: repoLog}
}

func (r *quizRepo) GetByIDs(ctx context.Context, tx *gorm.DB, quizIDs []uuid.UUID) ([]*types.Quiz, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Quiz
	if len(quizIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", quizIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *quizRepo) UpdateProgress(ctx context.Context, tx *gorm.DB, quizID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.Quiz{}).
		Where("id = ?", quizID).
		Updates(updates).Error; err != nil {
		return err
	}
	return nil
}
