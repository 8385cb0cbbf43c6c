// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/learnhub/learnhub-backend/internal/config"
	"github.com/learnhub/learnhub-backend/internal/handlers"
	"github.com/learnhub/learnhub-backend/internal/middleware"
	"github.com/learnhub/learnhub-backend/internal/services"
	"github.com/learnhub/learnhub-backend/internal/utils"
)

func Initialize(db *gorm.DB, cache *redis.Client, cfg *config.Config) *gin.Engine {
	// Initialize services
	mediaService, err := services.NewMediaService(cfg)
	if err != nil {
		logrus.WithError(err).Warn("media host unavailable, running without asset cleanup")
		mediaService, _ = services.NewMediaService(&config.Config{})
	}
	lifecycle := services.NewAssetLifecycle(mediaService)

	enrollmentService := services.NewEnrollmentService(db)
	classService := services.NewClassService(db, lifecycle, cache)
	courseService := services.NewCourseService(db, lifecycle, cache)
	authService := services.NewAuthService(db, cfg)
	paymentService := services.NewPaymentService(db, cfg, enrollmentService)
	ledgerService := services.NewLedgerService(db, enrollmentService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, enrollmentService)
	classHandler := handlers.NewClassHandler(classService, enrollmentService)
	courseHandler := handlers.NewCourseHandler(courseService, enrollmentService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, ledgerService, cfg)
	mediaHandler := handlers.NewMediaHandler(mediaService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Payment processor callback. No auth and no rate limiting: the
		// processor signs each notification and retries on non-200, so
		// throttling here would only delay reconciliation.
		v1.POST("/payments/webhook", paymentHandler.Webhook)

		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Catalog routes
		classes := v1.Group("/classes")
		classes.Use(middleware.GeneralRateLimit())
		{
			classes.GET("", middleware.OptionalAuth(), classHandler.GetClasses)
			classes.GET("/:id", middleware.OptionalAuth(), classHandler.GetClass)
			classes.POST("/:id/enroll", middleware.AuthRequired(), classHandler.Enroll)
		}

		courses := v1.Group("/courses")
		courses.Use(middleware.GeneralRateLimit())
		{
			courses.GET("", middleware.OptionalAuth(), courseHandler.GetCourses)
			courses.GET("/:id", middleware.OptionalAuth(), courseHandler.GetCourse)
			courses.POST("/:id/enroll", middleware.AuthRequired(), courseHandler.Enroll)
		}

		// Authenticated user routes
		me := v1.Group("/me")
		me.Use(middleware.AuthRequired())
		{
			me.GET("/library", authHandler.GetMyLibrary)
			me.GET("/enrollments", authHandler.GetMyEnrollments)
			me.GET("/payments", paymentHandler.GetPaymentHistory)
		}

		// Checkout
		payments := v1.Group("/payments")
		payments.Use(middleware.AuthRequired())
		{
			payments.POST("/checkout", paymentHandler.CreateCheckout)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.POST("/classes", classHandler.CreateClass)
			admin.PUT("/classes/:id", classHandler.UpdateClass)
			admin.DELETE("/classes/:id", classHandler.DeleteClass)

			admin.POST("/courses", courseHandler.CreateCourse)
			admin.PUT("/courses/:id", courseHandler.UpdateCourse)
			admin.DELETE("/courses/:id", courseHandler.DeleteCourse)

			admin.POST("/courses/:id/sessions", courseHandler.CreateSession)
			admin.PUT("/courses/:id/sessions/reorder", courseHandler.ReorderSessions)
			admin.PUT("/sessions/:id", courseHandler.UpdateSession)
			admin.DELETE("/sessions/:id", courseHandler.DeleteSession)

			admin.GET("/transactions", paymentHandler.ListTransactions)
			admin.POST("/media/presign", middleware.UploadRateLimit(), mediaHandler.PresignUpload)
		}
	}

	return r
}
