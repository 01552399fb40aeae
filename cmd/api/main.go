package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"examgate/internal/auth"
	"examgate/internal/cloudinary"
	"examgate/internal/config"
	"examgate/internal/enrollment"
	"examgate/internal/exam"
	"examgate/internal/faceid"
	"examgate/internal/httpapi"
	"examgate/internal/httpmiddleware"
	"examgate/internal/queue"
	"examgate/internal/staff"
	"examgate/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	} else if err := db.Migrate(context.Background()); err != nil {
		log.Printf("warning: schema migration failed: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	extractor, err := faceid.NewDlibExtractor(cfg.FaceModelsDir)
	if err != nil {
		log.Fatalf("face models not loadable from %s: %v", cfg.FaceModelsDir, err)
	}
	defer extractor.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "examgate:submissions")
	}

	studentRepo := enrollment.NewRepository(db.Client)
	examRepo := exam.NewRepository(db.Client)
	staffRepo := staff.NewRepository(db.Client)

	enrollSvc := enrollment.NewService(studentRepo, extractor, cfg.MatchTolerance)
	examSvc := exam.NewService(examRepo, cfg.StrictAnswers)
	staffSvc := staff.NewService(staffRepo)
	issuer := auth.NewIssuer(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTTL)

	// Cloudinary client (nil when not configured)
	var cdnClient *cloudinary.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cdnClient = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	h := httpapi.New(enrollSvc, examSvc, staffSvc, issuer, q, cdnClient, redisClient.Client)
	dir := httpapi.Directory{Staff: staffRepo, Students: studentRepo}

	staffOnly := auth.Require(issuer, dir, auth.TeacherOrAdmin)
	adminOnly := auth.Require(issuer, dir, auth.AdminOnly)
	studentOnly := auth.Require(issuer, dir, auth.StudentOnly)
	faceLimit := httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	v1 := r.Group("/v1")

	v1.POST("/auth/register", h.Register)
	v1.POST("/auth/login", h.Login)
	v1.POST("/auth/student/identify", faceLimit, h.StudentIdentify)

	v1.POST("/students", staffOnly, h.CreateStudent)
	v1.GET("/students", staffOnly, h.ListStudents)
	v1.POST("/students/verify", faceLimit, h.VerifyStudent)
	v1.POST("/students/verify-match", studentOnly, h.VerifyMatch)

	v1.POST("/tests", staffOnly, h.CreateTest)
	v1.GET("/tests", h.ListTests)
	v1.GET("/tests/:id", h.GetTest)
	v1.PUT("/tests/:id", staffOnly, h.UpdateTest)
	v1.DELETE("/tests/:id", staffOnly, h.DeleteTest)
	v1.GET("/tests/:id/stats", staffOnly, h.TestStats)
	v1.POST("/tests/submit", studentOnly, h.SubmitTest)

	v1.GET("/results", staffOnly, h.AllResults)
	v1.GET("/results/my", studentOnly, h.MyResults)

	v1.GET("/subjects", h.ListSubjects)
	v1.POST("/subjects", adminOnly, h.CreateSubject)
	v1.DELETE("/subjects/:id", adminOnly, h.DeleteSubject)

	v1.GET("/teachers", adminOnly, h.ListTeachers)
	v1.POST("/teachers", adminOnly, h.CreateTeacher)
	v1.PUT("/teachers/:id", adminOnly, h.UpdateTeacher)
	v1.DELETE("/teachers/:id", adminOnly, h.DeleteTeacher)

	v1.POST("/uploads", staffOnly, h.Upload)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
