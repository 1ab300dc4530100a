package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/majibrin/birinbolawa/internal/auth"
	"github.com/majibrin/birinbolawa/internal/handlers"
	"github.com/majibrin/birinbolawa/internal/middleware"
)

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173", // Vite dev server
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Submissions *handlers.SubmissionHandler
	Gallery     *handlers.GalleryHandler
	Auth        *handlers.AuthHandler
	Admin       *handlers.AdminHandler
}

// RouterConfig holds the router settings that are not handlers
type RouterConfig struct {
	FrontendURL string

	// MediaRoot is served under /media when set
	MediaRoot string

	// TrustedProxies are the only peers whose X-Forwarded-For is honoured
	TrustedProxies []string
}

// NewRouter builds the gin engine with middleware and all routes mounted
func NewRouter(cfg RouterConfig, h Handlers, log *zap.Logger) (*gin.Engine, error) {
	router := gin.New()

	// ClientIP keys the login lockout, so forwarded headers count only from known proxies
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	requests := middleware.NewRequestMiddleware(log)
	router.Use(requests.ProcessRequest(), requests.RecoverPanic())

	allowedOrigins := append([]string{}, defaultOrigins...)
	if cfg.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.FrontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if cfg.MediaRoot != "" {
		router.Static("/media", cfg.MediaRoot)
	}

	public := router.Group("/api")
	{
		public.POST("/submissions", h.Submissions.CreateSubmission)
		public.GET("/submissions/lookup/:code", h.Submissions.LookupSubmission)
		public.GET("/archive", h.Gallery.GetArchive)

		public.POST("/admin/login", h.Auth.Login)
		public.POST("/admin/logout", h.Auth.Logout)
	}

	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware(log))
	{
		admin.GET("/session", h.Auth.GetSession)

		admin.GET("/submissions", h.Admin.GetSubmissions)
		admin.GET("/submissions/:id", h.Admin.GetSubmission)
		admin.POST("/submissions/:id/verify", h.Admin.VerifySubmission)
		admin.POST("/submissions/:id/reject", h.Admin.RejectSubmission)

		admin.GET("/stats", h.Admin.GetStats)
		admin.GET("/export", h.Admin.ExportSubmissions)
		admin.GET("/logs", h.Admin.GetReviewLogs)
	}

	return router, nil
}
