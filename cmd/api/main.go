package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/matsl08/ems-api/api/swagger"
	"github.com/matsl08/ems-api/internal/handler"
	"github.com/matsl08/ems-api/internal/middleware"
	"github.com/matsl08/ems-api/internal/models"
	"github.com/matsl08/ems-api/internal/repository"
	"github.com/matsl08/ems-api/internal/service"
	"github.com/matsl08/ems-api/pkg/cache"
	"github.com/matsl08/ems-api/pkg/config"
	"github.com/matsl08/ems-api/pkg/database"
	"github.com/matsl08/ems-api/pkg/jobs"
	"github.com/matsl08/ems-api/pkg/logger"
	corsmiddleware "github.com/matsl08/ems-api/pkg/middleware/cors"
	reqidmiddleware "github.com/matsl08/ems-api/pkg/middleware/requestid"
)

// @title EMS API
// @version 1.0.0
// @description Enrollment management system for the university registrar, accounting and MIS offices
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The API stays up without Redis; student views just skip the cache.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	clearanceRepo := repository.NewClearanceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	registrationService := service.NewRegistrationService(userRepo, offeringRepo, registrationRepo, cacheService, metricsService, logr)

	// The queue handler closes over the enrollment service, which in turn
	// holds the queue, so the service variable is bound after construction.
	var enrollmentService *service.EnrollmentService
	enrollmentQueue := jobs.NewQueue("enrollment", func(ctx context.Context, job jobs.Job) error {
		return enrollmentService.HandleEnrollJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Enrollment.WorkerConcurrency,
		MaxRetries: cfg.Enrollment.WorkerRetries,
		RetryDelay: cfg.Enrollment.RetryDelay,
		Logger:     logr,
	})
	enrollmentService = service.NewEnrollmentService(enrollmentRepo, offeringRepo, registrationService, enrollmentQueue, validate, logr)

	userService := service.NewUserService(userRepo, gradeRepo, catalogRepo, evaluationRepo, validate, logr)
	studentService := service.NewStudentService(userRepo, validate, logr)
	catalogService := service.NewCatalogService(catalogRepo, validate, logr)
	offeringService := service.NewOfferingService(offeringRepo, catalogRepo, validate, logr)
	gradeService := service.NewGradeService(gradeRepo, offeringRepo, cacheService, validate, logr, cfg.Grading.PassingGrade)
	clearanceService := service.NewClearanceService(clearanceRepo, offeringRepo, cacheService, validate, logr)
	paymentService := service.NewPaymentService(paymentRepo, userRepo, cacheService, metricsService, validate, logr)
	evaluationService := service.NewEvaluationService(evaluationRepo, validate, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService, gradeService, clearanceService, paymentService, offeringService, evaluationService, enrollmentService)
	teacherHandler := handler.NewTeacherHandler(offeringService, gradeService, clearanceService)
	userHandler := handler.NewUserHandler(userService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	offeringHandler := handler.NewOfferingHandler(offeringService, registrationService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	evaluationHandler := handler.NewEvaluationHandler(evaluationService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authService))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	students := api.Group("/students", middleware.JWT(authService), middleware.RequireSelfStudent("studentId"))
	{
		students.GET("/:studentId", studentHandler.GetProfile)
		students.PATCH("/:studentId/address", studentHandler.UpdateAddress)
		students.PATCH("/:studentId/contact", studentHandler.UpdateContact)
		students.GET("/:studentId/grades", studentHandler.GetGrades)
		students.GET("/:studentId/clearance", studentHandler.GetClearance)
		students.GET("/:studentId/payments", studentHandler.GetPayments)
		students.GET("/:studentId/courses", studentHandler.GetCourses)
		students.GET("/:studentId/evaluation", studentHandler.GetEvaluation)
		students.POST("/:studentId/enrollment", studentHandler.SubmitEnrollment)
		students.GET("/:studentId/enrollment", studentHandler.ListEnrollments)
	}

	teachers := api.Group("/teachers", middleware.JWT(authService), middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
	{
		teachers.GET("/courses", teacherHandler.MyOfferings)
		teachers.GET("/courses/:edpCode/grades", teacherHandler.CourseGrades)
		teachers.PATCH("/courses/:edpCode/grades/:studentId", teacherHandler.UpdateStudentGrade)
		teachers.POST("/courses/:edpCode/grades/bulk", teacherHandler.BulkUploadGrades)
		teachers.GET("/courses/:edpCode/grades/export", teacherHandler.ExportCourseGrades)
		teachers.GET("/courses/:edpCode/clearance", teacherHandler.CourseClearance)
		teachers.PATCH("/courses/:edpCode/clearance/:studentId", teacherHandler.UpdateClearance)
	}

	admin := api.Group("/admin", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))

	mis := admin.Group("/mis", middleware.RequirePosition(models.PositionMIS))
	{
		mis.POST("/users", userHandler.Create)
		mis.GET("/users", userHandler.List)
		mis.GET("/users/:id", userHandler.Get)
		mis.PUT("/users/:id", userHandler.Update)
		mis.DELETE("/users/:id", userHandler.Delete)
		mis.POST("/users/:id/reset-password", userHandler.ResetPassword)

		mis.GET("/departments", catalogHandler.ListDepartments)
		mis.POST("/departments", catalogHandler.CreateDepartment)
		mis.PUT("/departments/:code", catalogHandler.UpdateDepartment)
		mis.POST("/departments/:code/programs", catalogHandler.AddProgram)
		mis.GET("/courses", catalogHandler.ListCourses)
		mis.POST("/courses", catalogHandler.CreateCourse)
		mis.PUT("/courses/:code", catalogHandler.UpdateCourse)
		mis.DELETE("/courses/:code", catalogHandler.DeleteCourse)

		mis.GET("/offerings", offeringHandler.List)
		mis.POST("/offerings", offeringHandler.Create)
		mis.GET("/offerings/:edpCode", offeringHandler.Get)
		mis.PUT("/offerings/:edpCode", offeringHandler.Update)
		mis.DELETE("/offerings/:edpCode", offeringHandler.Delete)
		mis.POST("/offerings/:edpCode/enroll", offeringHandler.Enroll)
		mis.DELETE("/offerings/:edpCode/students/:studentId", offeringHandler.Drop)

		mis.GET("/metrics", metricsHandler.Snapshot)
	}

	registrar := admin.Group("/registrar", middleware.RequirePosition(models.PositionRegistrar))
	{
		registrar.GET("/enrollments", enrollmentHandler.List)
		registrar.GET("/enrollments/:id", enrollmentHandler.Get)
		registrar.POST("/enrollments/:id/approve", enrollmentHandler.Approve)
		registrar.POST("/enrollments/:id/reject", enrollmentHandler.Reject)

		registrar.GET("/evaluations/:studentId", evaluationHandler.Get)
		registrar.PATCH("/evaluations/:studentId/courses/:courseCode", evaluationHandler.UpdateCourse)
		registrar.GET("/evaluations/:studentId/export", evaluationHandler.Export)
	}

	accounting := admin.Group("/accounting", middleware.RequirePosition(models.PositionAccounting))
	{
		accounting.GET("/payments", paymentHandler.ListByTerm)
		accounting.GET("/payments/:studentId", paymentHandler.ListByStudent)
		accounting.PATCH("/payments/:studentId", paymentHandler.UpdateStatus)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enrollmentQueue.Start(ctx)
	defer enrollmentQueue.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
