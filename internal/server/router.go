package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/courseforge-backend/internal/handlers"
	"github.com/yungbote/courseforge-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName      string
	AllowOrigins     []string
	AuthMiddleware   *middleware.AuthMiddleware
	CourseGenHandler *handlers.CourseGenHandler
	CourseHandler    *handlers.CourseHandler
	RealtimeHandler  *handlers.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Generation
	api.POST("/courses/generate", cfg.CourseGenHandler.Generate)
	api.POST("/courses/generate/sync", cfg.CourseGenHandler.GenerateSync)
	api.GET("/generation-runs/:id", cfg.CourseGenHandler.GetRunByID)
	api.GET("/courses/:id/generation", cfg.CourseGenHandler.GetLatestForCourse)

	// Courses
	api.GET("/courses", cfg.CourseHandler.List)
	api.GET("/courses/:id", cfg.CourseHandler.Get)
	api.PATCH("/courses/:id/lessons/:lessonId/progress", cfg.CourseHandler.UpdateLessonProgress)
	api.PATCH("/courses/:id/quizzes/:quizId/progress", cfg.CourseHandler.UpdateQuizProgress)

	// SSE
	api.GET("/realtime/sse", cfg.RealtimeHandler.SSEStream)

	return router
}
