package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseforge-backend/internal/types"
)

func newRun(userID uuid.UUID, courseID *uuid.UUID, createdAt time.Time) *types.GenerationRun {
	return &types.GenerationRun{
		ID:        uuid.New(),
		UserID:    userID,
		Topic:     "Go Basics",
		CourseID:  courseID,
		Status:    "succeeded",
		Stage:     "done",
		Metadata:  []byte(`{}`),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestGetLatestByCourseIDNotFoundIsError(t *testing.T) {
	db := newTestDB(t)
	repo := NewGenerationRunRepo(db, newTestLogger(t))

	_, err := repo.GetLatestByCourseID(context.Background(), nil, uuid.New())
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("want gorm.ErrRecordNotFound, got %v", err)
	}
}

func TestGetLatestByCourseIDPicksNewest(t *testing.T) {
	db := newTestDB(t)
	repo := NewGenerationRunRepo(db, newTestLogger(t))
	userID := uuid.New()
	courseID := uuid.New()

	older := newRun(userID, &courseID, time.Now().Add(-time.Hour))
	newer := newRun(userID, &courseID, time.Now())
	unrelatedCourse := uuid.New()
	other := newRun(userID, &unrelatedCourse, time.Now())
	if _, err := repo.Create(context.Background(), nil, []*types.GenerationRun{older, newer, other}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	run, err := repo.GetLatestByCourseID(context.Background(), nil, courseID)
	if err != nil {
		t.Fatalf("GetLatestByCourseID: %v", err)
	}
	if run.ID != newer.ID {
		t.Fatalf("latest run: want=%v got=%v", newer.ID, run.ID)
	}
}
