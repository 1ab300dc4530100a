package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/majibrin/birinbolawa/internal/services"
)

// formAge accepts the contributor age as a JSON number, string or null
type formAge string

func (a *formAge) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = formAge(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = formAge(n.String())
	return nil
}

type createSubmissionRequest struct {
	ContributorName     string   `json:"contributor_name"`
	ContributorAge      formAge  `json:"contributor_age"`
	ContributorRelation string   `json:"contributor_relation"`
	ContactInfo         string   `json:"contact_info"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Category            string   `json:"category"`
	EstimatedPeriod     string   `json:"estimated_period"`
	LocationDetails     string   `json:"location_details"`
	MediaURLs           []string `json:"media_urls"`
}

func (r createSubmissionRequest) toInput() services.NewSubmission {
	return services.NewSubmission{
		ContributorName:     r.ContributorName,
		ContributorAge:      string(r.ContributorAge),
		ContributorRelation: r.ContributorRelation,
		ContactInfo:         r.ContactInfo,
		Title:               r.Title,
		Description:         r.Description,
		Category:            r.Category,
		EstimatedPeriod:     r.EstimatedPeriod,
		LocationDetails:     r.LocationDetails,
		MediaLinks:          r.MediaURLs,
	}
}

// SubmissionHandler serves the public archive form and receipt lookup
type SubmissionHandler struct {
	submissionService *services.SubmissionService
	maxBodyBytes      int64
	log               *zap.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler. maxBodyBytes caps
// the whole request, attachments included.
func NewSubmissionHandler(submissionService *services.SubmissionService, maxBodyBytes int64, log *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		maxBodyBytes:      maxBodyBytes,
		log:               log,
	}
}

// CreateSubmission accepts the archive form as JSON or multipart/form-data.
// POST /api/submissions
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	if h.maxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}

	var input services.NewSubmission
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		form, err := c.MultipartForm()
		if err != nil {
			h.badForm(c, err)
			return
		}
		input = multipartInput(form)
	} else {
		var req createSubmissionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badForm(c, err)
			return
		}
		input = req.toInput()
	}

	submission, err := h.submissionService.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.log, err, "Failed to save submission")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    services.ReceiptFor(submission),
		"message": "Thank you! Your submission will be reviewed by the heritage committee.",
	})
}

// LookupSubmission reports the review status behind a receipt code.
// GET /api/submissions/lookup/:code
func (h *SubmissionHandler) LookupSubmission(c *gin.Context) {
	receipt, err := h.submissionService.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.log, err, "Failed to look up submission")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    receipt,
	})
}

func (h *SubmissionHandler) badForm(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission form: " + err.Error()})
}

func multipartInput(form *multipart.Form) services.NewSubmission {
	value := func(key string) string {
		if values := form.Value[key]; len(values) > 0 {
			return values[0]
		}
		return ""
	}

	var links []string
	for _, raw := range form.Value["media_urls"] {
		// a single field may carry several newline separated links
		links = append(links, strings.Split(raw, "\n")...)
	}

	files := make([]services.MediaFile, 0, len(form.File["files"]))
	for _, header := range form.File["files"] {
		files = append(files, services.MediaFile{
			Filename: header.Filename,
			Size:     header.Size,
			Open: func() (io.ReadCloser, error) {
				return header.Open()
			},
		})
	}

	return services.NewSubmission{
		ContributorName:     value("contributor_name"),
		ContributorAge:      value("contributor_age"),
		ContributorRelation: value("contributor_relation"),
		ContactInfo:         value("contact_info"),
		Title:               value("title"),
		Description:         value("description"),
		Category:            value("category"),
		EstimatedPeriod:     value("estimated_period"),
		LocationDetails:     value("location_details"),
		MediaLinks:          links,
		Files:               files,
	}
}
