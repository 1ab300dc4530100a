package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/majibrin/birinbolawa/internal/models"
	"github.com/majibrin/birinbolawa/internal/services"
)

// AdminHandler serves the committee review dashboard
type AdminHandler struct {
	reviewService *services.ReviewService
	log           *zap.Logger
}

func NewAdminHandler(reviewService *services.ReviewService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		reviewService: reviewService,
		log:           log,
	}
}

// GetSubmissions lists one dashboard tab, newest first.
// GET /api/admin/submissions?status=pending|verified|rejected|all
func (h *AdminHandler) GetSubmissions(c *gin.Context) {
	submissions, err := h.reviewService.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch submissions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    submissions,
		"total":   len(submissions),
	})
}

// GET /api/admin/submissions/:id
func (h *AdminHandler) GetSubmission(c *gin.Context) {
	id, ok := parseSubmissionID(c)
	if !ok {
		return
	}

	submission, err := h.reviewService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch submission")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    submission,
	})
}

// VerifySubmission admits a pending submission into the archive.
// POST /api/admin/submissions/:id/verify
func (h *AdminHandler) VerifySubmission(c *gin.Context) {
	h.transition(c, models.StatusVerified)
}

// RejectSubmission turns a pending submission down.
// POST /api/admin/submissions/:id/reject
func (h *AdminHandler) RejectSubmission(c *gin.Context) {
	h.transition(c, models.StatusRejected)
}

func (h *AdminHandler) transition(c *gin.Context, to models.Status) {
	id, ok := parseSubmissionID(c)
	if !ok {
		return
	}

	submission, err := h.reviewService.Transition(c.Request.Context(), id, to, c.ClientIP())
	if err != nil {
		respondError(c, h.log, err, "Failed to update submission")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    submission,
		"message": fmt.Sprintf("Submission %s", to),
	})
}

// GetStats returns per-status counts for the dashboard tabs.
// GET /api/admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.reviewService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// ExportSubmissions downloads one dashboard tab as a JSON file.
// GET /api/admin/export?status=all
func (h *AdminHandler) ExportSubmissions(c *gin.Context) {
	export, err := h.reviewService.Export(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, h.log, err, "Failed to export submissions")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename))
	c.Header("X-Export-Count", strconv.Itoa(export.Count))
	c.Data(http.StatusOK, "application/json; charset=utf-8", export.Data)
}

// GetReviewLogs returns the review audit trail.
// GET /api/admin/logs?submission_id=&limit=50&offset=0
func (h *AdminHandler) GetReviewLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var submissionID *uuid.UUID
	if raw := c.Query("submission_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
			return
		}
		submissionID = &id
	}

	logs, total, err := h.reviewService.Logs(c.Request.Context(), submissionID, limit, offset)
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch review logs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func parseSubmissionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return uuid.Nil, false
	}
	return id, true
}
