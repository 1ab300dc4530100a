package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ObjectStore is where uploaded media ends up. Put returns the public URL
// that is stored verbatim in media_urls.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// MediaFile is one uploaded file as received from the form
type MediaFile struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// StoredMedia pairs the object key with its public URL
type StoredMedia struct {
	Key string
	URL string
}

var allowedMediaPrefixes = []string{"image/", "video/", "audio/", "application/pdf"}

type MediaService struct {
	store    ObjectStore
	maxFiles int
	maxBytes int64
	log      *zap.Logger
	now      func() time.Time
}

func NewMediaService(store ObjectStore, maxFiles int, maxBytes int64, log *zap.Logger) *MediaService {
	return &MediaService{
		store:    store,
		maxFiles: maxFiles,
		maxBytes: maxBytes,
		log:      log,
		now:      time.Now,
	}
}

// Store validates and uploads files for one submission, in order. When any
// file fails, the ones already uploaded are removed again.
func (s *MediaService) Store(ctx context.Context, submissionID uuid.UUID, files []MediaFile) ([]StoredMedia, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > s.maxFiles {
		return nil, invalid("files", "at most %d files may be attached", s.maxFiles)
	}

	stored := make([]StoredMedia, 0, len(files))
	for _, file := range files {
		media, err := s.storeOne(ctx, submissionID, file)
		if err != nil {
			s.Discard(ctx, stored)
			return nil, err
		}
		stored = append(stored, media)
	}
	return stored, nil
}

func (s *MediaService) storeOne(ctx context.Context, submissionID uuid.UUID, file MediaFile) (StoredMedia, error) {
	if file.Size > s.maxBytes {
		return StoredMedia{}, invalid("files", "%s exceeds the %d MB limit", file.Filename, s.maxBytes/(1024*1024))
	}

	reader, err := file.Open()
	if err != nil {
		return StoredMedia{}, fmt.Errorf("failed to open %s: %w", file.Filename, err)
	}
	defer reader.Close()

	// read one byte past the limit so a lying Size header is still caught
	data, err := io.ReadAll(io.LimitReader(reader, s.maxBytes+1))
	if err != nil {
		return StoredMedia{}, fmt.Errorf("failed to read %s: %w", file.Filename, err)
	}
	if int64(len(data)) > s.maxBytes {
		return StoredMedia{}, invalid("files", "%s exceeds the %d MB limit", file.Filename, s.maxBytes/(1024*1024))
	}

	mtype := mimetype.Detect(data)
	if !allowedMedia(mtype.String()) {
		return StoredMedia{}, invalid("files", "%s has unsupported type %s", file.Filename, mtype.String())
	}

	key, err := s.objectKey(submissionID, file.Filename, mtype.Extension())
	if err != nil {
		return StoredMedia{}, err
	}

	url, err := s.store.Put(ctx, key, bytes.NewReader(data), mtype.String())
	if err != nil {
		return StoredMedia{}, fmt.Errorf("failed to upload %s: %w", file.Filename, err)
	}

	return StoredMedia{Key: key, URL: url}, nil
}

// objectKey builds "<submission-id>/<unix-nanos>-<random>.<ext>"
func (s *MediaService) objectKey(submissionID uuid.UUID, filename, detectedExt string) (string, error) {
	ext := detectedExt
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(filename))
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("failed to generate object key: %w", err)
	}

	return fmt.Sprintf("%s/%d-%s%s", submissionID, s.now().UnixNano(), hex.EncodeToString(suffix), ext), nil
}

// Discard removes uploaded objects, logging rather than returning failures
func (s *MediaService) Discard(ctx context.Context, stored []StoredMedia) {
	for _, media := range stored {
		if err := s.store.Delete(ctx, media.Key); err != nil {
			s.log.Warn("Failed to remove orphaned upload",
				zap.String("key", media.Key),
				zap.Error(err))
		}
	}
}

func allowedMedia(contentType string) bool {
	for _, prefix := range allowedMediaPrefixes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}
