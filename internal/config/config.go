package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Admin    AdminConfig
	Storage  StorageConfig
	Cache    CacheConfig
	Mail     MailConfig
	Jobs     JobsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver      string // postgres or sqlite
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SQLitePath  string
	AutoMigrate bool
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port        string
	Environment string
	FrontendURL string

	// TrustedProxies may set X-Forwarded-For; empty means only the peer address counts
	TrustedProxies []string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	SiteSlug            string
	GalleryPreviewLimit int
}

// AdminConfig holds the committee gate settings
type AdminConfig struct {
	PasswordHash     string
	Password         string
	JWTSecret        string
	SessionTTL       time.Duration
	MaxLoginAttempts int
	LoginWindow      time.Duration
}

// StorageConfig holds the media object store settings
type StorageConfig struct {
	UploadPath     string
	PublicBaseURL  string
	MaxUploadFiles int
	MaxUploadBytes int64
}

// CacheConfig holds the gallery cache settings. An empty RedisAddr disables it.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	GalleryTTL    time.Duration
}

// MailConfig holds SMTP settings used for committee notifications
type MailConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	From            string
	SkipTLSVerify   bool
	CommitteeEmails []string
	Timeout         time.Duration
}

// JobsConfig holds background job settings
type JobsConfig struct {
	DigestInterval time.Duration
}

// Enabled reports whether enough SMTP settings exist to send mail.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.From != "" && len(m.CommitteeEmails) > 0
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := Read()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Read loads configuration from environment variables without validating,
// for tools that only need part of it.
func Read() *Config {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return &Config{
		Database: DatabaseConfig{
			Driver:      strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", ""),
			DBName:      getEnv("DB_NAME", "heritage_archive"),
			SQLitePath:  getEnv("DB_SQLITE_PATH", "heritage_archive.db"),
			AutoMigrate: getEnvBool("AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			FrontendURL:    getEnv("FRONTEND_URL", ""),
			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
		},
		App: AppConfig{
			SiteSlug:            getEnv("SITE_SLUG", "birinbolawa"),
			GalleryPreviewLimit: getEnvInt("GALLERY_PREVIEW_LIMIT", 3),
		},
		Admin: AdminConfig{
			PasswordHash:     getEnv("ADMIN_PASSWORD_HASH", ""),
			Password:         getEnv("ADMIN_PASSWORD", ""),
			JWTSecret:        getEnv("JWT_SECRET", ""),
			SessionTTL:       getEnvDuration("ADMIN_SESSION_TTL", 24*time.Hour),
			MaxLoginAttempts: getEnvInt("ADMIN_MAX_LOGIN_ATTEMPTS", 5),
			LoginWindow:      getEnvDuration("ADMIN_LOGIN_WINDOW", 15*time.Minute),
		},
		Storage: StorageConfig{
			UploadPath:     getEnv("UPLOAD_PATH", "./uploads"),
			PublicBaseURL:  getEnv("MEDIA_BASE_URL", "http://localhost:8080/media"),
			MaxUploadFiles: getEnvInt("MAX_UPLOAD_FILES", 5),
			MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 5*1024*1024)),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			GalleryTTL:    getEnvDuration("GALLERY_CACHE_TTL", 10*time.Minute),
		},
		Mail: MailConfig{
			Host:            getEnv("SMTP_HOST", ""),
			Port:            getEnvInt("SMTP_PORT", 587),
			User:            getEnv("SMTP_USER", ""),
			Password:        getEnv("SMTP_PASS", ""),
			From:            getEnv("SMTP_FROM", ""),
			SkipTLSVerify:   getEnv("SMTP_SKIP_TLS_VERIFY", "") == "1",
			CommitteeEmails: splitList(getEnv("COMMITTEE_EMAILS", "")),
			Timeout:         getEnvDuration("SMTP_TIMEOUT", 30*time.Second),
		},
		Jobs: JobsConfig{
			DigestInterval: getEnvDuration("DIGEST_INTERVAL", 0),
		},
	}
}

// Validate checks required fields
func (c *Config) Validate() error {
	if c.Admin.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Admin.PasswordHash == "" && c.Admin.Password == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required")
	}

	if c.Admin.MaxLoginAttempts <= 0 || c.Admin.LoginWindow <= 0 {
		return fmt.Errorf("ADMIN_MAX_LOGIN_ATTEMPTS and ADMIN_LOGIN_WINDOW must be positive")
	}

	if err := c.ValidateDatabase(); err != nil {
		return err
	}

	if c.Storage.MaxUploadFiles < 0 || c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_FILES and MAX_UPLOAD_BYTES must be positive")
	}

	return nil
}

// ValidateDatabase checks only the database settings
func (c *Config) ValidateDatabase() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}

// DatabaseDSN returns what database.Connect expects for the configured driver
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLitePath
	}
	return c.GetDSN()
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
