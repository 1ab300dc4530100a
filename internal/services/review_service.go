package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/majibrin/birinbolawa/internal/models"
	"github.com/majibrin/birinbolawa/internal/repository"
)

// StatusFilterAll lists submissions in every status
const StatusFilterAll = "all"

const maxLogPage = 200

// SubmissionStats holds the per-status counts shown on the committee dashboard
type SubmissionStats struct {
	Pending  int64 `json:"pending"`
	Verified int64 `json:"verified"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}

// ExportFile is a JSON dump of submissions ready to download
type ExportFile struct {
	Filename string
	Data     []byte
	Count    int
}

// ReviewService is the committee side of the archive: listing, reviewing
// and exporting submissions.
type ReviewService struct {
	repo     *repository.Repository
	gallery  *GalleryService
	siteSlug string
	log      *zap.Logger
	now      func() time.Time
}

func NewReviewService(repo *repository.Repository, gallery *GalleryService, siteSlug string, log *zap.Logger) *ReviewService {
	return &ReviewService{
		repo:     repo,
		gallery:  gallery,
		siteSlug: siteSlug,
		log:      log,
		now:      time.Now,
	}
}

// ParseStatusFilter turns the dashboard tab into a repository status.
// Blank means pending, "all" means no status constraint.
func ParseStatusFilter(raw string) (models.Status, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return models.StatusPending, nil
	case StatusFilterAll:
		return "", nil
	}

	status := models.Status(raw)
	if !status.Valid() {
		return "", invalid("status", "must be one of pending, verified, rejected, all")
	}
	return status, nil
}

// List returns submissions for one dashboard tab, newest first
func (s *ReviewService) List(ctx context.Context, filter string) ([]models.Submission, error) {
	status, err := ParseStatusFilter(filter)
	if err != nil {
		return nil, err
	}

	submissions, err := s.repo.ListSubmissions(ctx, repository.SubmissionFilter{Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}

// Get returns a single submission
func (s *ReviewService) Get(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	submission, err := s.repo.GetSubmissionByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch submission: %w", err)
	}
	return submission, nil
}

// Transition moves a pending submission to verified or rejected, records the
// action in the review log and returns the stored record. Reviewed
// submissions never change again.
func (s *ReviewService) Transition(ctx context.Context, id uuid.UUID, to models.Status, clientIP string) (*models.Submission, error) {
	if !to.Terminal() {
		return nil, invalid("status", "can only move a submission to verified or rejected")
	}

	reviewedAt := s.now().UTC()
	entry := &models.ReviewLog{
		ClientIP: clientIP,
		Details:  datatypes.JSONMap{"previous_status": string(models.StatusPending)},
	}
	err := s.repo.ReviewSubmission(ctx, id, models.StatusPending, to, reviewedAt, entry)
	if errors.Is(err, repository.ErrStatusConflict) {
		current, getErr := s.repo.GetSubmissionByID(ctx, id)
		if errors.Is(getErr, repository.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		if getErr != nil {
			return nil, fmt.Errorf("failed to fetch submission: %w", getErr)
		}
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidTransition, current.Status)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update submission status: %w", err)
	}

	s.log.Info("Submission reviewed",
		zap.String("id", id.String()),
		zap.String("status", string(to)))

	if to == models.StatusVerified && s.gallery != nil {
		s.gallery.Invalidate(ctx)
	}

	return s.Get(ctx, id)
}

// Logs returns review log entries, newest first, optionally for one
// submission. limit is clamped to [1, maxLogPage].
func (s *ReviewService) Logs(ctx context.Context, submissionID *uuid.UUID, limit, offset int) ([]models.ReviewLog, int64, error) {
	if limit <= 0 || limit > maxLogPage {
		limit = maxLogPage
	}
	if offset < 0 {
		offset = 0
	}

	logs, total, err := s.repo.ListReviewLogs(ctx, submissionID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch review logs: %w", err)
	}
	return logs, total, nil
}

// Stats counts submissions per status
func (s *ReviewService) Stats(ctx context.Context) (*SubmissionStats, error) {
	counts, err := s.repo.CountSubmissionsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}

	stats := &SubmissionStats{
		Pending:  counts[models.StatusPending],
		Verified: counts[models.StatusVerified],
		Rejected: counts[models.StatusRejected],
	}
	for _, count := range counts {
		stats.Total += count
	}
	return stats, nil
}

// Export dumps one dashboard tab as indented JSON named
// "<site>-submissions-<YYYY-MM-DD>.json"
func (s *ReviewService) Export(ctx context.Context, filter string) (*ExportFile, error) {
	submissions, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(submissions, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	return &ExportFile{
		Filename: fmt.Sprintf("%s-submissions-%s.json", s.siteSlug, s.now().UTC().Format("2006-01-02")),
		Data:     data,
		Count:    len(submissions),
	}, nil
}
