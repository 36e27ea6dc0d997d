package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/types"
)

var ErrRunNotFound = errors.New("generation run not found")

// Run status lookups, scoped to the owning user.

func (cgs *courseGenerationService) GetRunByID(ctx context.Context, userID, runID uuid.UUID) (*types.GenerationRun, error) {
	runs, err := cgs.runRepo.GetByIDs(ctx, nil, []uuid.UUID{runID})
	if err != nil {
		return nil, fmt.Errorf("get generation run: %w", err)
	}
	if len(runs) == 0 || runs[0].UserID != userID {
		return nil, ErrRunNotFound
	}
	return runs[0], nil
}

func (cgs *courseGenerationService) GetLatestRunForCourse(ctx context.Context, userID, courseID uuid.UUID) (*types.GenerationRun, error) {
	run, err := cgs.runRepo.GetLatestByCourseID(ctx, nil, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest generation run: %w", err)
	}
	if run.UserID != userID {
		return nil, ErrRunNotFound
	}
	return run, nil
}
