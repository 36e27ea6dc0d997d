package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courseforge-backend/internal/requestdata"
	"github.com/yungbote/courseforge-backend/internal/services"
)

type CourseGenHandler struct {
	svc services.CourseGenerationService
}

func NewCourseGenHandler(svc services.CourseGenerationService) *CourseGenHandler {
	return &CourseGenHandler{svc: svc}
}

type generateRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// POST /api/courses/generate
// Accepts the run and returns immediately; progress streams over SSE.
func (h *CourseGenHandler) Generate(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", fmt.Errorf("missing request data"))
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}

	run, err := h.svc.StartRun(c.Request.Context(), rd.UserID, req.Topic)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "START_RUN_FAILED", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"run": run})
}

// POST /api/courses/generate/sync
// Runs the full pipeline inline and returns the event trail with the result.
func (h *CourseGenHandler) GenerateSync(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", fmt.Errorf("missing request data"))
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}

	events, courseID, err := h.svc.GenerateSync(c.Request.Context(), rd.UserID, req.Topic)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"events": events,
			"error":  err.Error(),
		})
		return
	}

	RespondOK(c, gin.H{
		"courseId": courseID.String(),
		"events":   events,
	})
}

// GET /api/generation-runs/:id
func (h *CourseGenHandler) GetRunByID(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", fmt.Errorf("missing request data"))
		return
	}

	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_RUN_ID", err)
		return
	}

	run, err := h.svc.GetRunByID(c.Request.Context(), rd.UserID, runID)
	if errors.Is(err, services.ErrRunNotFound) {
		RespondError(c, http.StatusNotFound, "RUN_NOT_FOUND", err)
		return
	}
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "GET_RUN_FAILED", err)
		return
	}

	RespondOK(c, gin.H{"run": run})
}

// GET /api/courses/:id/generation
func (h *CourseGenHandler) GetLatestForCourse(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", fmt.Errorf("missing request data"))
		return
	}

	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_COURSE_ID", err)
		return
	}

	run, err := h.svc.GetLatestRunForCourse(c.Request.Context(), rd.UserID, courseID)
	if errors.Is(err, services.ErrRunNotFound) {
		RespondError(c, http.StatusNotFound, "RUN_NOT_FOUND", err)
		return
	}
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "GET_RUN_FAILED", err)
		return
	}

	RespondOK(c, gin.H{"run": run})
}
