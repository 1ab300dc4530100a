package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/majibrin/birinbolawa/internal/models"
	"github.com/majibrin/birinbolawa/internal/repository"
	"github.com/majibrin/birinbolawa/internal/utils"
)

const maxContributorAge = 150

// Notifier tells the committee about archive activity
type Notifier interface {
	SubmissionReceived(ctx context.Context, submission *models.Submission) error
	PendingDigest(ctx context.Context, pending int64) error
}

// NewSubmission is the raw archive form input. ContributorAge is kept as
// text because the form sends "" for "not given".
type NewSubmission struct {
	ContributorName     string
	ContributorAge      string
	ContributorRelation string
	ContactInfo         string
	Title               string
	Description         string
	Category            string
	EstimatedPeriod     string
	LocationDetails     string
	MediaLinks          []string
	Files               []MediaFile
}

// SubmissionReceipt is what a contributor may see about their own record
type SubmissionReceipt struct {
	ReferenceCode string          `json:"reference_code"`
	Title         string          `json:"title"`
	Category      models.Category `json:"category"`
	Status        models.Status   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	ReviewedAt    *time.Time      `json:"reviewed_at,omitempty"`
}

type SubmissionService struct {
	repo     *repository.Repository
	media    *MediaService
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewSubmissionService(repo *repository.Repository, media *MediaService, notifier Notifier, log *zap.Logger) *SubmissionService {
	return &SubmissionService{
		repo:     repo,
		media:    media,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Create validates the form, uploads attached files and writes exactly one
// pending submission.
func (s *SubmissionService) Create(ctx context.Context, input NewSubmission) (*models.Submission, error) {
	submission, err := buildSubmission(input)
	if err != nil {
		return nil, err
	}

	code, err := utils.NewReferenceCode()
	if err != nil {
		return nil, err
	}
	submission.ID = uuid.New()
	submission.ReferenceCode = code
	submission.Status = models.StatusPending
	submission.CreatedAt = s.now().UTC()

	var uploaded []StoredMedia
	if len(input.Files) > 0 {
		if s.media == nil {
			return nil, invalid("files", "file uploads are not enabled")
		}
		uploaded, err = s.media.Store(ctx, submission.ID, input.Files)
		if err != nil {
			return nil, err
		}
	}

	mediaURLs := make(datatypes.JSONSlice[string], 0, len(uploaded)+len(submission.MediaURLs))
	for _, media := range uploaded {
		mediaURLs = append(mediaURLs, media.URL)
	}
	submission.MediaURLs = append(mediaURLs, submission.MediaURLs...)

	if err := s.repo.CreateSubmission(ctx, submission); err != nil {
		if s.media != nil {
			s.media.Discard(ctx, uploaded)
		}
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	s.log.Info("Submission received",
		zap.String("id", submission.ID.String()),
		zap.String("reference_code", submission.ReferenceCode),
		zap.String("category", string(submission.Category)),
		zap.Int("media", len(submission.MediaURLs)))

	s.notifyReceived(submission)

	return submission, nil
}

// notifyReceived runs detached from the request so a slow SMTP server never
// delays the contributor's response.
func (s *SubmissionService) notifyReceived(submission *models.Submission) {
	if s.notifier == nil {
		return
	}

	copied := *submission
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.notifier.SubmissionReceived(ctx, &copied); err != nil {
			s.log.Warn("Failed to notify committee",
				zap.String("id", copied.ID.String()),
				zap.Error(err))
		}
	}()
}

// Lookup returns the receipt for a reference code
func (s *SubmissionService) Lookup(ctx context.Context, code string) (*SubmissionReceipt, error) {
	normalized := utils.NormalizeReferenceCode(code)
	if normalized == "" {
		return nil, invalid("reference_code", "is not a valid reference code")
	}

	submission, err := s.repo.GetSubmissionByReferenceCode(ctx, normalized)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up submission: %w", err)
	}

	return ReceiptFor(submission), nil
}

// ReceiptFor strips a submission down to what its contributor may see
func ReceiptFor(submission *models.Submission) *SubmissionReceipt {
	return &SubmissionReceipt{
		ReferenceCode: submission.ReferenceCode,
		Title:         submission.Title,
		Category:      submission.Category,
		Status:        submission.Status,
		CreatedAt:     submission.CreatedAt,
		ReviewedAt:    submission.VerifiedAt,
	}
}

func buildSubmission(input NewSubmission) (*models.Submission, error) {
	required := []struct {
		field string
		value string
	}{
		{"contributor_name", input.ContributorName},
		{"title", input.Title},
		{"category", input.Category},
		{"description", input.Description},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, invalid(r.field, "is required")
		}
	}

	category := models.Category(strings.TrimSpace(input.Category))
	if !category.Valid() {
		return nil, invalid("category", "must be one of oral_history, photo, document, artifact")
	}

	age, err := ParseContributorAge(input.ContributorAge)
	if err != nil {
		return nil, err
	}

	links := make(datatypes.JSONSlice[string], 0, len(input.MediaLinks))
	for _, link := range input.MediaLinks {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		if !isPublicURL(link) {
			return nil, invalid("media_urls", "%q is not an http(s) URL", link)
		}
		links = append(links, link)
	}

	return &models.Submission{
		Title:               strings.TrimSpace(input.Title),
		Description:         strings.TrimSpace(input.Description),
		Category:            category,
		ContributorName:     strings.TrimSpace(input.ContributorName),
		ContributorAge:      age,
		ContributorRelation: strings.TrimSpace(input.ContributorRelation),
		ContactInfo:         strings.TrimSpace(input.ContactInfo),
		EstimatedPeriod:     strings.TrimSpace(input.EstimatedPeriod),
		LocationDetails:     strings.TrimSpace(input.LocationDetails),
		MediaURLs:           links,
	}, nil
}

// ParseContributorAge maps blank input to nil and anything else to a whole
// number of years.
func ParseContributorAge(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	age, err := strconv.Atoi(raw)
	if err != nil {
		return nil, invalid("contributor_age", "must be a whole number")
	}
	if age < 0 || age > maxContributorAge {
		return nil, invalid("contributor_age", "must be between 0 and %d", maxContributorAge)
	}
	return &age, nil
}

func isPublicURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
