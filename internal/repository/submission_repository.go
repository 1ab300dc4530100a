package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/majibrin/birinbolawa/internal/models"
)

// ErrNotFound is returned when no submission matches the lookup
var ErrNotFound = errors.New("submission not found")

// ErrStatusConflict is returned when a conditional status update matched a
// row that was no longer in the expected status
var ErrStatusConflict = errors.New("submission status changed concurrently")

// SubmissionFilter narrows listing queries. Zero values mean "any".
type SubmissionFilter struct {
	Status   models.Status
	Category models.Category
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateSubmission inserts a new submission
func (r *Repository) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// GetSubmissionByID retrieves a submission by ID
func (r *Repository) GetSubmissionByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&submission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// GetSubmissionByReferenceCode retrieves a submission by its receipt code
func (r *Repository) GetSubmissionByReferenceCode(ctx context.Context, code string) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).Where("reference_code = ?", code).First(&submission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// ListSubmissions returns every submission matching the filter, newest first
func (r *Repository) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	submissions := []models.Submission{}
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

// UpdateSubmissionStatus moves a submission from one status to another and
// stamps verified_at. The WHERE on the current status makes the change
// atomic: of two concurrent reviewers only one update matches a row.
func (r *Repository) UpdateSubmissionStatus(
	ctx context.Context,
	id uuid.UUID,
	from models.Status,
	to models.Status,
	reviewedAt time.Time,
) error {
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":      to,
			"verified_at": reviewedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

// ReviewSubmission applies the same conditional status update as
// UpdateSubmissionStatus and writes entry to the audit trail in the same
// transaction. entry.SubmissionID and entry.CreatedAt are filled in here.
func (r *Repository) ReviewSubmission(
	ctx context.Context,
	id uuid.UUID,
	from models.Status,
	to models.Status,
	reviewedAt time.Time,
	entry *models.ReviewLog,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := NewRepository(tx).UpdateSubmissionStatus(ctx, id, from, to, reviewedAt); err != nil {
			return err
		}

		entry.SubmissionID = id
		entry.Action = to
		entry.CreatedAt = reviewedAt
		return tx.Create(entry).Error
	})
}

// ListReviewLogs returns audit entries, newest first, with the total count
func (r *Repository) ListReviewLogs(ctx context.Context, submissionID *uuid.UUID, limit, offset int) ([]models.ReviewLog, int64, error) {
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.ReviewLog{})
		if submissionID != nil {
			query = query.Where("submission_id = ?", *submissionID)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	logs := []models.ReviewLog{}
	if err := scoped().Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// CountSubmissionsByStatus returns the number of submissions per status.
// Statuses with no rows are present with a zero count.
func (r *Repository) CountSubmissionsByStatus(ctx context.Context) (map[models.Status]int64, error) {
	var rows []struct {
		Status models.Status
		Count  int64
	}

	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.Status]int64, len(models.Statuses))
	for _, status := range models.Statuses {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
