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

type CourseHandler struct {
	svc services.CourseService
}

func NewCourseHandler(svc services.CourseService) *CourseHandler {
	return &CourseHandler{svc: svc}
}

// GET /api/courses
func (h *CourseHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", fmt.Errorf("missing request data"))
		return
	}

	courses, err := h.svc.ListCourses(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "LIST_COURSES_FAILED", err)
		return
	}

	RespondOK(c, gin.H{"courses": courses})
}

// GET /api/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
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

	course, err := h.svc.GetCourse(c.Request.Context(), rd.UserID, courseID)
	if err != nil {
		respondCourseError(c, err)
		return
	}

	RespondOK(c, gin.H{"course": course})
}

// PATCH /api/courses/:id/lessons/:lessonId/progress
func (h *CourseHandler) UpdateLessonProgress(c *gin.Context) {
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
	lessonID, err := uuid.Parse(c.Param("lessonId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_LESSON_ID", err)
		return
	}

	var update services.LessonProgressUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}

	if err := h.svc.UpdateLessonProgress(c.Request.Context(), rd.UserID, courseID, lessonID, update); err != nil {
		respondCourseError(c, err)
		return
	}

	RespondOK(c, gin.H{"updated": true})
}

// PATCH /api/courses/:id/quizzes/:quizId/progress
func (h *CourseHandler) UpdateQuizProgress(c *gin.Context) {
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
	quizID, err := uuid.Parse(c.Param("quizId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_QUIZ_ID", err)
		return
	}

	var update services.QuizProgressUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}

	if err := h.svc.UpdateQuizProgress(c.Request.Context(), rd.UserID, courseID, quizID, update); err != nil {
		respondCourseError(c, err)
		return
	}

	RespondOK(c, gin.H{"updated": true})
}

func respondCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCourseNotFound):
		RespondError(c, http.StatusNotFound, "COURSE_NOT_FOUND", err)
	case errors.Is(err, services.ErrNotCourseOwner):
		RespondError(c, http.StatusForbidden, "NOT_COURSE_OWNER", err)
	default:
		RespondError(c, http.StatusInternalServerError, "COURSE_ERROR", err)
	}
}
