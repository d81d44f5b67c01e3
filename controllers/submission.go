package controllers

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"book-submission-api/encryption"
	"book-submission-api/middleware"
	"book-submission-api/models"
	"book-submission-api/services"

	"github.com/gin-gonic/gin"
)

// SubmissionController serves the submission intake, listing and review endpoints.
type SubmissionController struct {
	repo           *services.SubmissionRepository
	maxUploadBytes int64
}

func NewSubmissionController(repo *services.SubmissionRepository, maxUploadBytes int64) *SubmissionController {
	return &SubmissionController{repo: repo, maxUploadBytes: maxUploadBytes}
}

// respondError maps repository errors onto HTTP responses without leaking internals.
func respondError(c *gin.Context, err error) {
	if ve, ok := services.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ve.Reason, "field": ve.Field})
		return
	}
	switch {
	case errors.Is(err, services.ErrSubmissionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Submission not found"})
	case errors.Is(err, services.ErrDocumentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Document not found"})
	case errors.Is(err, encryption.ErrIntegrity):
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Document is unavailable"})
	case errors.Is(err, encryption.ErrKeyMissing), errors.Is(err, encryption.ErrInvalidKey):
		log.Printf("Document encryption misconfigured: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Document storage is not available"})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{"success": false, "error": "Request cancelled"})
	default:
		log.Printf("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}
}

func parseIDParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseStatus accepts any casing of a status name and returns it canonicalised.
// Unknown values are returned unchanged so the repository can reject them.
func parseStatus(raw string) models.SubmissionStatus {
	trimmed := strings.TrimSpace(raw)
	for _, status := range []models.SubmissionStatus{models.StatusPending, models.StatusApproved, models.StatusDeclined} {
		if strings.EqualFold(trimmed, string(status)) {
			return status
		}
	}
	return models.SubmissionStatus(trimmed)
}

// CreateSubmission accepts a multipart form with book metadata and documents[] files.
func (sc *SubmissionController) CreateSubmission(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid form data"})
		return
	}

	var files []*multipart.FileHeader
	if form != nil {
		files = form.File["documents"]
	}

	uploads := make([]services.DocumentUpload, 0, len(files))
	for _, fh := range files {
		if fh.Size == 0 {
			// Empty file inputs are skipped, as the browser sends one when nothing was picked.
			continue
		}
		if sc.maxUploadBytes > 0 && fh.Size > sc.maxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "File " + fh.Filename + " exceeds the upload size limit",
				"field":   "documents",
			})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Failed to read uploaded file"})
			return
		}
		defer f.Close()
		uploads = append(uploads, services.DocumentUpload{FileName: fh.Filename, Content: f})
	}

	input := services.SubmissionInput{
		Title:          c.PostForm("title"),
		Author:         c.PostForm("author"),
		Category:       c.PostForm("category"),
		ISBN:           c.PostForm("isbn"),
		Description:    c.PostForm("description"),
		SubmittedBy:    c.GetString(middleware.ContextUserName),
		SubmitterEmail: c.GetString(middleware.ContextEmail),
		Status:         parseStatus(c.PostForm("status")),
	}

	id, err := sc.repo.AddSubmission(c.Request.Context(), input, uploads)
	if err != nil {
		respondError(c, err)
		return
	}

	submission, err := sc.repo.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "Book submitted successfully",
		"submission": submission,
	})
}

// GetSubmissions lists submissions, optionally filtered by ?status=.
func (sc *SubmissionController) GetSubmissions(c *gin.Context) {
	var submissions []*models.Submission
	if raw := c.Query("status"); raw != "" {
		status := parseStatus(raw)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid status filter"})
			return
		}
		submissions = sc.repo.ListByStatus(status)
	} else {
		submissions = sc.repo.List()
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"submissions": submissions,
		"total":       len(submissions),
	})
}

// GetSubmission returns one submission with its documents and review history.
func (sc *SubmissionController) GetSubmission(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid submission ID"})
		return
	}

	submission, err := sc.repo.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"submission": submission,
	})
}

// ReviewSubmission records an Approved or Declined decision by the authenticated reviewer.
func (sc *SubmissionController) ReviewSubmission(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid submission ID"})
		return
	}

	var req struct {
		Decision string `json:"decision" binding:"required"`
		Comments string `json:"comments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	submission, err := sc.repo.Review(c.Request.Context(), id, services.ReviewInput{
		Decision:     parseStatus(req.Decision),
		ReviewerName: c.GetString(middleware.ContextUserName),
		ReviewerRole: c.GetString(middleware.ContextRole),
		Comments:     req.Comments,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Submission " + strings.ToLower(string(submission.Status)),
		"submission": submission,
	})
}
