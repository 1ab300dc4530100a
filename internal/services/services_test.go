package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/majibrin/birinbolawa/internal/models"
	"github.com/majibrin/birinbolawa/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&models.Submission{}, &models.ReviewLog{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

func setupRepository(t *testing.T) (*gorm.DB, *repository.Repository) {
	t.Helper()
	db := setupTestDB(t)
	return db, repository.NewRepository(db)
}

func validSubmission() NewSubmission {
	return NewSubmission{
		ContributorName:     "Malam Audu",
		ContributorRelation: "grandson",
		ContactInfo:         "audu@example.org",
		Title:               "The old well",
		Description:         "Dug before the colonial era.",
		Category:            string(models.CategoryOralHistory),
	}
}

// memoryStore is an ObjectStore kept in a map
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  int
	puts    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (s *memoryStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.puts++
	if s.failOn > 0 && s.puts == s.failOn {
		return "", errors.New("disk full")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.objects[key] = data
	return "https://media.test/" + key, nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memoryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func memoryFile(name string, data []byte) MediaFile {
	return MediaFile{
		Filename: name,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	pdfBytes = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
)

func nopLogger() *zap.Logger {
	return zap.NewNop()
}
