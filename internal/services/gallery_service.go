package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/majibrin/birinbolawa/internal/models"
	"github.com/majibrin/birinbolawa/internal/repository"
)

const galleryCacheKeyPrefix = "gallery:"

// GalleryCache stores encoded gallery pages. Implementations must treat a
// missing key as (nil, false, nil).
type GalleryCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// GalleryEntry is the public view of a verified submission. It never
// carries contact_info.
type GalleryEntry struct {
	ID                  uuid.UUID       `json:"id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	Category            models.Category `json:"category"`
	ContributorName     string          `json:"contributor_name"`
	ContributorAge      *int            `json:"contributor_age"`
	ContributorRelation string          `json:"contributor_relation"`
	EstimatedPeriod     string          `json:"estimated_period"`
	LocationDetails     string          `json:"location_details"`
	MediaURLs           []string        `json:"media_urls"`
	MediaPreview        []string        `json:"media_preview"`
	MediaOverflow       int             `json:"media_overflow"`
	MediaOverflowLabel  string          `json:"media_overflow_label,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	VerifiedAt          *time.Time      `json:"verified_at,omitempty"`
}

type GalleryService struct {
	repo         *repository.Repository
	cache        GalleryCache
	previewLimit int
	log          *zap.Logger

	// generation is bumped by Invalidate; a page read under an older
	// generation is never written back
	mu         sync.RWMutex
	generation uint64
}

// NewGalleryService creates the public gallery. cache may be nil.
func NewGalleryService(repo *repository.Repository, cache GalleryCache, previewLimit int, log *zap.Logger) *GalleryService {
	if previewLimit <= 0 {
		previewLimit = 3
	}
	return &GalleryService{
		repo:         repo,
		cache:        cache,
		previewLimit: previewLimit,
		log:          log,
	}
}

// PreviewMedia returns the first limit URLs, how many were left out, and
// the "+N" badge for them ("" when nothing was left out).
func PreviewMedia(urls []string, limit int) ([]string, int, string) {
	if len(urls) <= limit {
		return append([]string{}, urls...), 0, ""
	}
	overflow := len(urls) - limit
	return append([]string{}, urls[:limit]...), overflow, fmt.Sprintf("+%d", overflow)
}

// List returns verified submissions, newest first, optionally limited to a
// category.
func (s *GalleryService) List(ctx context.Context, category string) ([]GalleryEntry, error) {
	category = strings.TrimSpace(category)
	if category != "" && !models.Category(category).Valid() {
		return nil, invalid("category", "must be one of oral_history, photo, document, artifact")
	}

	key := galleryCacheKey(category)
	generation := s.currentGeneration()
	if entries, ok := s.fromCache(ctx, key); ok {
		return entries, nil
	}

	submissions, err := s.repo.ListSubmissions(ctx, repository.SubmissionFilter{
		Status:   models.StatusVerified,
		Category: models.Category(category),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list verified submissions: %w", err)
	}

	entries := make([]GalleryEntry, 0, len(submissions))
	for i := range submissions {
		// the query already filters, this guards the public contract
		if submissions[i].Status != models.StatusVerified {
			continue
		}
		entries = append(entries, s.toEntry(&submissions[i]))
	}

	s.toCache(ctx, key, generation, entries)
	return entries, nil
}

// Invalidate drops every cached gallery page
func (s *GalleryService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}

	s.mu.Lock()
	s.generation++
	s.mu.Unlock()

	keys := []string{galleryCacheKey("")}
	for _, category := range models.Categories {
		keys = append(keys, galleryCacheKey(string(category)))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("Failed to invalidate gallery cache", zap.Error(err))
	}
}

func (s *GalleryService) toEntry(submission *models.Submission) GalleryEntry {
	urls := []string(submission.MediaURLs)
	if urls == nil {
		urls = []string{}
	}
	preview, overflow, label := PreviewMedia(urls, s.previewLimit)

	return GalleryEntry{
		ID:                  submission.ID,
		Title:               submission.Title,
		Description:         submission.Description,
		Category:            submission.Category,
		ContributorName:     submission.ContributorName,
		ContributorAge:      submission.ContributorAge,
		ContributorRelation: submission.ContributorRelation,
		EstimatedPeriod:     submission.EstimatedPeriod,
		LocationDetails:     submission.LocationDetails,
		MediaURLs:           urls,
		MediaPreview:        preview,
		MediaOverflow:       overflow,
		MediaOverflowLabel:  label,
		CreatedAt:           submission.CreatedAt,
		VerifiedAt:          submission.VerifiedAt,
	}
}

func (s *GalleryService) fromCache(ctx context.Context, key string) ([]GalleryEntry, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("Gallery cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var entries []GalleryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Warn("Discarding corrupt gallery cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return entries, true
}

func (s *GalleryService) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *GalleryService) toCache(ctx context.Context, key string, generation uint64, entries []GalleryEntry) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return
	}

	// held across Set so Invalidate cannot slip between the check and the write
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.generation != generation {
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.log.Warn("Gallery cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func galleryCacheKey(category string) string {
	if category == "" {
		return galleryCacheKeyPrefix + "all"
	}
	return galleryCacheKeyPrefix + category
}
