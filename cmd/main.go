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
	"go.uber.org/zap"

	"github.com/majibrin/birinbolawa/internal/api"
	"github.com/majibrin/birinbolawa/internal/auth"
	"github.com/majibrin/birinbolawa/internal/cache"
	"github.com/majibrin/birinbolawa/internal/config"
	"github.com/majibrin/birinbolawa/internal/database"
	"github.com/majibrin/birinbolawa/internal/handlers"
	"github.com/majibrin/birinbolawa/internal/jobs"
	"github.com/majibrin/birinbolawa/internal/notify"
	"github.com/majibrin/birinbolawa/internal/repository"
	"github.com/majibrin/birinbolawa/internal/services"
	"github.com/majibrin/birinbolawa/internal/storage"
	"github.com/majibrin/birinbolawa/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	auth.InitJWT(cfg.Admin.JWTSecret, cfg.Admin.SessionTTL)

	if err := database.Connect(cfg.Database.Driver, cfg.DatabaseDSN(), log); err != nil {
		return err
	}

	if err := prepareSchema(cfg, log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewLocalStore(cfg.Storage.UploadPath, cfg.Storage.PublicBaseURL)
	if err != nil {
		return err
	}

	var galleryCache services.GalleryCache
	if cfg.Cache.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.GalleryTTL)
		if err != nil {
			log.Warn("Gallery cache disabled", zap.Error(err))
		} else {
			defer redisCache.Close()
			galleryCache = redisCache
			log.Info("Gallery cache enabled", zap.String("addr", cfg.Cache.RedisAddr))
		}
	}

	var notifier services.Notifier
	if cfg.Mail.Enabled() {
		notifier = notify.NewMailNotifier(cfg.Mail, reviewURL(cfg))
		log.Info("Committee notifications enabled", zap.Int("recipients", len(cfg.Mail.CommitteeEmails)))
	}

	repo := repository.NewRepository(database.GetDB())

	mediaService := services.NewMediaService(store, cfg.Storage.MaxUploadFiles, cfg.Storage.MaxUploadBytes, log)
	galleryService := services.NewGalleryService(repo, galleryCache, cfg.App.GalleryPreviewLimit, log)
	reviewService := services.NewReviewService(repo, galleryService, cfg.App.SiteSlug, log)
	submissionService := services.NewSubmissionService(repo, mediaService, notifier, log)

	attempts := services.NewLoginAttemptTracker(cfg.Admin.MaxLoginAttempts, cfg.Admin.LoginWindow)
	authService, err := services.NewAuthService(cfg.Admin.PasswordHash, cfg.Admin.Password, attempts, log)
	if err != nil {
		return err
	}

	// every attachment at its limit plus room for the text fields
	maxBody := int64(cfg.Storage.MaxUploadFiles)*cfg.Storage.MaxUploadBytes + 1<<20

	router, err := api.NewRouter(api.RouterConfig{
		FrontendURL:    cfg.Server.FrontendURL,
		MediaRoot:      store.Root(),
		TrustedProxies: cfg.Server.TrustedProxies,
	}, api.Handlers{
		Submissions: handlers.NewSubmissionHandler(submissionService, maxBody, log),
		Gallery:     handlers.NewGalleryHandler(galleryService, log),
		Auth:        handlers.NewAuthHandler(authService, log),
		Admin:       handlers.NewAdminHandler(reviewService, log),
	}, log)
	if err != nil {
		return err
	}

	var digestDone <-chan struct{}
	if cfg.Jobs.DigestInterval > 0 && notifier != nil {
		digestDone = jobs.NewPendingDigestJob(reviewService, notifier, log).Start(ctx, cfg.Jobs.DigestInterval)
		log.Info("Pending digest job started", zap.Duration("interval", cfg.Jobs.DigestInterval))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if digestDone != nil {
		<-digestDone
	}

	log.Info("Server exited")
	return nil
}

// prepareSchema migrates on start when AUTO_MIGRATE is set and otherwise
// refuses to serve a database that is behind.
func prepareSchema(cfg *config.Config, log *zap.Logger) error {
	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(database.GetDB())
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("Database schema ready", zap.Int("applied_migrations", applied))
		return nil
	}

	pending, err := database.PendingMigrations(database.GetDB())
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		return fmt.Errorf("database has %d pending migration(s), run archivectl migrate", len(pending))
	}
	return nil
}

func reviewURL(cfg *config.Config) string {
	if cfg.Server.FrontendURL == "" {
		return ""
	}
	return cfg.Server.FrontendURL + "/admin"
}
