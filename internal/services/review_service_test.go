package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/majibrin/birinbolawa/internal/models"
	"github.com/majibrin/birinbolawa/internal/repository"
)

func seedSubmission(t *testing.T, repo *repository.Repository, title string, status models.Status, createdAt time.Time) *models.Submission {
	t.Helper()

	submission := &models.Submission{
		ID:              uuid.New(),
		ReferenceCode:   "HB-" + strings.ReplaceAll(title, " ", ""),
		Title:           title,
		Description:     "about " + title,
		Category:        models.CategoryPhoto,
		ContributorName: "Hauwa Sani",
		ContactInfo:     "private@example.org",
		MediaURLs:       []string{"https://example.org/1.jpg", "https://example.org/2.jpg", "https://example.org/3.jpg", "https://example.org/4.jpg"},
		Status:          status,
		CreatedAt:       createdAt,
	}
	if status.Terminal() {
		reviewed := createdAt.Add(time.Hour)
		submission.VerifiedAt = &reviewed
	}
	if err := repo.CreateSubmission(context.Background(), submission); err != nil {
		t.Fatalf("failed to seed %s: %v", title, err)
	}
	return submission
}

func TestParseStatusFilter(t *testing.T) {
	cases := map[string]models.Status{
		"":         models.StatusPending,
		"pending":  models.StatusPending,
		"VERIFIED": models.StatusVerified,
		"rejected": models.StatusRejected,
		"all":      "",
	}
	for raw, want := range cases {
		got, err := ParseStatusFilter(raw)
		if err != nil {
			t.Errorf("ParseStatusFilter(%q) failed: %v", raw, err)
			continue
		}
		if got != want {
			t.Errorf("ParseStatusFilter(%q) = %q, want %q", raw, got, want)
		}
	}

	if _, err := ParseStatusFilter("archived"); !IsValidationError(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	_, repo := setupRepository(t)
	service := NewReviewService(repo, nil, "birinbolawa", nopLogger())

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	seedSubmission(t, repo, "pending old", models.StatusPending, base)
	seedSubmission(t, repo, "pending new", models.StatusPending, base.Add(2*time.Hour))
	seedSubmission(t, repo, "verified", models.StatusVerified, base.Add(time.Hour))
	seedSubmission(t, repo, "rejected", models.StatusRejected, base.Add(3*time.Hour))

	cases := []struct {
		filter string
		want   []string
	}{
		{"", []string{"pending new", "pending old"}},
		{"pending", []string{"pending new", "pending old"}},
		{"verified", []string{"verified"}},
		{"rejected", []string{"rejected"}},
		{"all", []string{"rejected", "pending new", "verified", "pending old"}},
	}

	for _, tc := range cases {
		submissions, err := service.List(context.Background(), tc.filter)
		if err != nil {
			t.Fatalf("List(%q) failed: %v", tc.filter, err)
		}
		var titles []string
		for _, s := range submissions {
			titles = append(titles, s.Title)
		}
		if strings.Join(titles, ",") != strings.Join(tc.want, ",") {
			t.Errorf("List(%q) = %v, want %v", tc.filter, titles, tc.want)
		}
	}
}

func TestTransitionIsOneWay(t *testing.T) {
	_, repo := setupRepository(t)
	service := NewReviewService(repo, nil, "birinbolawa", nopLogger())
	reviewedAt := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return reviewedAt }

	submission := seedSubmission(t, repo, "well", models.StatusPending, reviewedAt.Add(-24*time.Hour))

	verified, err := service.Transition(context.Background(), submission.ID, models.StatusVerified, "127.0.0.1")
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if verified.Status != models.StatusVerified {
		t.Errorf("expected verified, got %s", verified.Status)
	}
	if verified.VerifiedAt == nil || !verified.VerifiedAt.Equal(reviewedAt) {
		t.Errorf("expected verified_at %v, got %v", reviewedAt, verified.VerifiedAt)
	}

	for _, to := range []models.Status{models.StatusRejected, models.StatusVerified} {
		_, err := service.Transition(context.Background(), submission.ID, to, "127.0.0.1")
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("second transition to %s: expected ErrInvalidTransition, got %v", to, err)
		}
	}

	current, err := service.Get(context.Background(), submission.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if current.Status != models.StatusVerified {
		t.Errorf("status changed after rejected transition: %s", current.Status)
	}
}

func TestTransitionRejectSetsReviewTime(t *testing.T) {
	_, repo := setupRepository(t)
	service := NewReviewService(repo, nil, "birinbolawa", nopLogger())

	submission := seedSubmission(t, repo, "drum", models.StatusPending, time.Now().Add(-time.Hour))

	rejected, err := service.Transition(context.Background(), submission.ID, models.StatusRejected, "127.0.0.1")
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if rejected.Status != models.StatusRejected || rejected.VerifiedAt == nil {
		t.Errorf("unexpected rejected record %+v", rejected)
	}
}

func TestTransitionErrors(t *testing.T) {
	_, repo := setupRepository(t)
	service := NewReviewService(repo, nil, "birinbolawa", nopLogger())

	if _, err := service.Transition(context.Background(), uuid.New(), models.StatusVerified, "127.0.0.1"); !errors.Is(err, ErrSubmissionNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	submission := seedSubmission(t, repo, "mask", models.StatusPending, time.Now())
	if _, err := service.Transition(context.Background(), submission.ID, models.StatusPending, "127.0.0.1"); !IsValidationError(err) {
		t.Errorf("expected validation error for pending target, got %v", err)
	}
}

func TestStats(t *testing.T) {
	_, repo := setupRepository(t)
	service := NewReviewService(repo, nil, "birinbolawa", nopLogger())

	now := time.Now()
	seedSubmission(t, repo, "a", models.StatusPending, now)
	seedSubmission(t, repo, "b", models.StatusPending, now)
	seedSubmission(t, repo, "c", models.StatusVerified, now)

	stats, err := service.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := SubmissionStats{Pending: 2, Verified: 1, Rejected: 0, Total: 3}
	if *stats != want {
		t.Errorf("Stats = %+v, want %+v", *stats, want)
	}
}

func TestExport(t *testing.T) {
	_, repo := setupRepository(t)
	service := NewReviewService(repo, nil, "birinbolawa", nopLogger())
	service.now = func() time.Time { return time.Date(2024, 7, 9, 23, 30, 0, 0, time.UTC) }

	seedSubmission(t, repo, "a", models.StatusPending, time.Now())
	seedSubmission(t, repo, "b", models.StatusVerified, time.Now())

	export, err := service.Export(context.Background(), "all")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if export.Filename != "birinbolawa-submissions-2024-07-09.json" {
		t.Errorf("unexpected filename %s", export.Filename)
	}
	if export.Count != 2 {
		t.Errorf("expected 2 exported, got %d", export.Count)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(export.Data, &decoded); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[0]["contact_info"] != "private@example.org" {
		t.Errorf("export should carry full records, got %v", decoded)
	}
}

func TestTransitionWritesReviewLog(t *testing.T) {
	_, repo := setupRepository(t)
	service := NewReviewService(repo, nil, "birinbolawa", nopLogger())

	first := seedSubmission(t, repo, "first", models.StatusPending, time.Now())
	second := seedSubmission(t, repo, "second", models.StatusPending, time.Now())

	if _, err := service.Transition(context.Background(), first.ID, models.StatusVerified, "10.1.1.1"); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if _, err := service.Transition(context.Background(), second.ID, models.StatusRejected, "10.1.1.2"); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	// a refused transition leaves no trace
	if _, err := service.Transition(context.Background(), first.ID, models.StatusRejected, "10.1.1.3"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	logs, total, err := service.Logs(context.Background(), nil, 0, 0)
	if err != nil {
		t.Fatalf("Logs failed: %v", err)
	}
	if total != 2 || len(logs) != 2 {
		t.Fatalf("expected 2 log entries, got %d/%d", len(logs), total)
	}

	logs, total, err = service.Logs(context.Background(), &first.ID, 10, 0)
	if err != nil {
		t.Fatalf("Logs failed: %v", err)
	}
	if total != 1 || logs[0].Action != models.StatusVerified || logs[0].ClientIP != "10.1.1.1" {
		t.Errorf("unexpected log for first submission: %+v", logs)
	}
	if logs[0].Details["previous_status"] != "pending" {
		t.Errorf("expected previous status in details, got %v", logs[0].Details)
	}
}
