package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/majibrin/birinbolawa/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	// every query must hit the same in-memory database
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

func seed(t *testing.T, repo *Repository, title string, status models.Status, category models.Category, createdAt time.Time) *models.Submission {
	t.Helper()

	submission := &models.Submission{
		ReferenceCode:   "HB-" + title,
		Title:           title,
		Description:     "description of " + title,
		Category:        category,
		ContributorName: "Malam Audu",
		Status:          status,
		CreatedAt:       createdAt,
	}
	if err := repo.CreateSubmission(context.Background(), submission); err != nil {
		t.Fatalf("failed to seed %s: %v", title, err)
	}
	return submission
}

func TestListSubmissionsFiltersAndOrders(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC)

	seed(t, repo, "oldest", models.StatusPending, models.CategoryPhoto, base)
	seed(t, repo, "middle", models.StatusVerified, models.CategoryDocument, base.Add(time.Hour))
	seed(t, repo, "newest", models.StatusPending, models.CategoryDocument, base.Add(2*time.Hour))
	seed(t, repo, "rejected", models.StatusRejected, models.CategoryArtifact, base.Add(30*time.Minute))

	all, err := repo.ListSubmissions(ctx, SubmissionFilter{})
	if err != nil {
		t.Fatalf("ListSubmissions failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 submissions, got %d", len(all))
	}
	wantOrder := []string{"newest", "middle", "rejected", "oldest"}
	for i, title := range wantOrder {
		if all[i].Title != title {
			t.Errorf("position %d: expected %s, got %s", i, title, all[i].Title)
		}
	}

	pending, err := repo.ListSubmissions(ctx, SubmissionFilter{Status: models.StatusPending})
	if err != nil {
		t.Fatalf("ListSubmissions(pending) failed: %v", err)
	}
	if len(pending) != 2 || pending[0].Title != "newest" || pending[1].Title != "oldest" {
		t.Errorf("unexpected pending result: %+v", pending)
	}

	docs, err := repo.ListSubmissions(ctx, SubmissionFilter{Status: models.StatusPending, Category: models.CategoryDocument})
	if err != nil {
		t.Fatalf("ListSubmissions(pending, document) failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "newest" {
		t.Errorf("unexpected pending documents: %+v", docs)
	}

	none, err := repo.ListSubmissions(ctx, SubmissionFilter{Category: models.CategoryOralHistory})
	if err != nil {
		t.Fatalf("ListSubmissions(oral_history) failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", none)
	}
}

func TestUpdateSubmissionStatusIsConditional(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	submission := seed(t, repo, "tomb", models.StatusPending, models.CategoryArtifact, time.Now())

	reviewedAt := time.Now().UTC().Truncate(time.Second)
	if err := repo.UpdateSubmissionStatus(ctx, submission.ID, models.StatusPending, models.StatusVerified, reviewedAt); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	err := repo.UpdateSubmissionStatus(ctx, submission.ID, models.StatusPending, models.StatusRejected, time.Now())
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict on second update, got %v", err)
	}

	stored, err := repo.GetSubmissionByID(ctx, submission.ID)
	if err != nil {
		t.Fatalf("GetSubmissionByID failed: %v", err)
	}
	if stored.Status != models.StatusVerified {
		t.Errorf("expected status verified, got %s", stored.Status)
	}
	if stored.VerifiedAt == nil || !stored.VerifiedAt.Equal(reviewedAt) {
		t.Errorf("expected verified_at %v, got %v", reviewedAt, stored.VerifiedAt)
	}
}

func TestGetSubmissionNotFound(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	if _, err := repo.GetSubmissionByID(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound by id, got %v", err)
	}
	if _, err := repo.GetSubmissionByReferenceCode(context.Background(), "HB-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound by code, got %v", err)
	}
}

func TestCountSubmissionsByStatus(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	now := time.Now()

	seed(t, repo, "a", models.StatusPending, models.CategoryPhoto, now)
	seed(t, repo, "b", models.StatusPending, models.CategoryPhoto, now)
	seed(t, repo, "c", models.StatusVerified, models.CategoryPhoto, now)

	counts, err := repo.CountSubmissionsByStatus(context.Background())
	if err != nil {
		t.Fatalf("CountSubmissionsByStatus failed: %v", err)
	}
	if counts[models.StatusPending] != 2 || counts[models.StatusVerified] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
	if count, ok := counts[models.StatusRejected]; !ok || count != 0 {
		t.Errorf("expected explicit zero for rejected, got %v (present=%v)", count, ok)
	}
}

func TestReviewSubmissionWritesLogOnlyOnSuccess(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	submission := seed(t, repo, "drum", models.StatusPending, models.CategoryArtifact, time.Now())
	reviewedAt := time.Now().UTC().Truncate(time.Second)

	entry := &models.ReviewLog{ClientIP: "10.0.0.9"}
	if err := repo.ReviewSubmission(ctx, submission.ID, models.StatusPending, models.StatusRejected, reviewedAt, entry); err != nil {
		t.Fatalf("ReviewSubmission failed: %v", err)
	}
	if entry.ID == 0 || entry.SubmissionID != submission.ID || entry.Action != models.StatusRejected {
		t.Errorf("log entry not filled in: %+v", entry)
	}

	err := repo.ReviewSubmission(ctx, submission.ID, models.StatusPending, models.StatusVerified, time.Now(), &models.ReviewLog{})
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}

	var count int64
	db.Model(&models.ReviewLog{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 log row after refused review, got %d", count)
	}
}

func TestListReviewLogsPaging(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i, title := range []string{"one", "two", "three"} {
		submission := seed(t, repo, title, models.StatusPending, models.CategoryPhoto, base)
		if err := repo.ReviewSubmission(ctx, submission.ID, models.StatusPending, models.StatusVerified,
			base.Add(time.Duration(i)*time.Minute), &models.ReviewLog{}); err != nil {
			t.Fatalf("ReviewSubmission(%s) failed: %v", title, err)
		}
		ids = append(ids, submission.ID)
	}

	logs, total, err := repo.ListReviewLogs(ctx, nil, 2, 0)
	if err != nil {
		t.Fatalf("ListReviewLogs failed: %v", err)
	}
	if total != 3 || len(logs) != 2 {
		t.Fatalf("expected 2 of 3 logs, got %d of %d", len(logs), total)
	}
	if logs[0].SubmissionID != ids[2] {
		t.Errorf("expected newest review first")
	}

	logs, total, err = repo.ListReviewLogs(ctx, &ids[0], 10, 0)
	if err != nil {
		t.Fatalf("ListReviewLogs by submission failed: %v", err)
	}
	if total != 1 || len(logs) != 1 || logs[0].SubmissionID != ids[0] {
		t.Errorf("unexpected logs for first submission: %+v", logs)
	}
}
