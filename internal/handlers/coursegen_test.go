package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courseforge-backend/internal/requestdata"
	"github.com/yungbote/courseforge-backend/internal/services"
	"github.com/yungbote/courseforge-backend/internal/types"
)

type fakeGenerationService struct {
	startedTopics []string
	startErr      error
	run           *types.GenerationRun
}

func (f *fakeGenerationService) StartRun(ctx context.Context, userID uuid.UUID, topic string) (*types.GenerationRun, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.startedTopics = append(f.startedTopics, topic)
	if f.run == nil {
		f.run = &types.GenerationRun{ID: uuid.New(), UserID: userID, Topic: topic, Status: "queued"}
	}
	return f.run, nil
}

func (f *fakeGenerationService) GenerateSync(ctx context.Context, userID uuid.UUID, topic string) ([]services.ProgressEvent, uuid.UUID, error) {
	return nil, uuid.Nil, fmt.Errorf("not implemented")
}

func (f *fakeGenerationService) GetRunByID(ctx context.Context, userID, runID uuid.UUID) (*types.GenerationRun, error) {
	if f.run != nil && f.run.ID == runID && f.run.UserID == userID {
		return f.run, nil
	}
	return nil, services.ErrRunNotFound
}

func (f *fakeGenerationService) GetLatestRunForCourse(ctx context.Context, userID, courseID uuid.UUID) (*types.GenerationRun, error) {
	return nil, services.ErrRunNotFound
}

func authAs(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{UserID: userID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func newGenRouter(svc services.CourseGenerationService, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewCourseGenHandler(svc)
	r := gin.New()
	r.Use(authAs(userID))
	r.POST("/api/courses/generate", h.Generate)
	r.GET("/api/generation-runs/:id", h.GetRunByID)
	return r
}

func TestGenerateAcceptsRun(t *testing.T) {
	userID := uuid.New()
	svc := &fakeGenerationService{}
	r := newGenRouter(svc, userID)

	req := httptest.NewRequest(http.MethodPost, "/api/courses/generate", strings.NewReader(`{"topic":"Go Basics"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: want=202 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if len(svc.startedTopics) != 1 || svc.startedTopics[0] != "Go Basics" {
		t.Fatalf("started topics: %v", svc.startedTopics)
	}

	var body struct {
		Run *types.GenerationRun `json:"run"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Run == nil || body.Run.Status != "queued" {
		t.Fatalf("run in body: %+v", body.Run)
	}
}

func TestGenerateRejectsMissingTopic(t *testing.T) {
	svc := &fakeGenerationService{}
	r := newGenRouter(svc, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/api/courses/generate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
	if len(svc.startedTopics) != 0 {
		t.Fatalf("run started despite invalid body")
	}
}

func TestGetRunByIDScopesToOwner(t *testing.T) {
	owner := uuid.New()
	svc := &fakeGenerationService{}
	run, _ := svc.StartRun(context.Background(), owner, "Go Basics")

	// Same run id, different authenticated user.
	r := newGenRouter(svc, uuid.New())
	req := httptest.NewRequest(http.MethodGet, "/api/generation-runs/"+run.ID.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want=404 got=%d", rec.Code)
	}
}
