package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yungbote/courseforge-backend/internal/db"
	"github.com/yungbote/courseforge-backend/internal/handlers"
	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/middleware"
	"github.com/yungbote/courseforge-backend/internal/observability"
	"github.com/yungbote/courseforge-backend/internal/repos"
	"github.com/yungbote/courseforge-backend/internal/server"
	"github.com/yungbote/courseforge-backend/internal/services"
	"github.com/yungbote/courseforge-backend/internal/sse"
	"github.com/yungbote/courseforge-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	port := utils.GetEnv("PORT", "8080", log)
	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",")
	maxAttempts := utils.GetEnvAsInt("GENERATION_MAX_ATTEMPTS", 3, log)
	retryDelayMS := utils.GetEnvAsInt("GENERATION_RETRY_DELAY_MS", 2000, log)
	callTimeoutSec := utils.GetEnvAsInt("GENERATION_CALL_TIMEOUT_SECONDS", 120, log)

	// Tracing
	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "courseforge-backend",
		Environment: utils.GetEnv("ENVIRONMENT", "development", log),
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(ctx); err != nil {
			log.Warn("OTel shutdown failed", "error", err)
		}
	}()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	courseRepo := repos.NewCourseRepo(thePG, log)
	lessonRepo := repos.NewLessonRepo(thePG, log)
	quizRepo := repos.NewQuizRepo(thePG, log)
	runRepo := repos.NewGenerationRunRepo(thePG, log)
	callLogRepo := repos.NewAICallLogRepo(thePG, log)

	// SSE
	sseHub := sse.NewSSEHub(log)

	// Services
	log.Info("Setting up Services from main...")
	genaiClient, err := services.NewGeminiClient(log)
	if err != nil {
		log.Fatal("GenAI client init failed", "error", err)
	}
	structuredSvc := services.NewStructuredGenService(
		log, genaiClient, callLogRepo,
		time.Duration(retryDelayMS)*time.Millisecond,
		time.Duration(callTimeoutSec)*time.Second,
	)
	courseGenSvc := services.NewCourseGenerationService(thePG, log, sseHub, courseRepo, runRepo, structuredSvc, maxAttempts)
	courseSvc := services.NewCourseService(thePG, log, courseRepo, lessonRepo, quizRepo)

	// Handlers
	courseGenHandler := handlers.NewCourseGenHandler(courseGenSvc)
	courseHandler := handlers.NewCourseHandler(courseSvc)
	realtimeHandler := handlers.NewRealtimeHandler(log, sseHub)

	// Middleware
	authMW := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	router := server.NewRouter(server.RouterConfig{
		ServiceName:      "courseforge-backend",
		AllowOrigins:     allowOrigins,
		AuthMiddleware:   authMW,
		CourseGenHandler: courseGenHandler,
		CourseHandler:    courseHandler,
		RealtimeHandler:  realtimeHandler,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
