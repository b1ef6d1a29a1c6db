package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/terminal-bench/civicfix/internal/models"
	"github.com/terminal-bench/civicfix/internal/pipeline"
)

// Submitter is the part of the pipeline the HTTP layer needs.
type Submitter interface {
	Submit(ctx context.Context, report models.Report) (*models.SubmissionResult, error)
}

// ReportHandler handles report submissions.
type ReportHandler struct {
	submitter     Submitter
	maxPhotoBytes int64
}

// NewReportHandler creates a new report handler.
func NewReportHandler(submitter Submitter, maxPhotoBytes int64) *ReportHandler {
	return &ReportHandler{
		submitter:     submitter,
		maxPhotoBytes: maxPhotoBytes,
	}
}

// Create accepts a multipart report submission: lat, lon, issue_type and a
// photo file.
func (h *ReportHandler) Create(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.PostForm("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat"})
		return
	}
	lon, err := strconv.ParseFloat(c.PostForm("lon"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lon"})
		return
	}
	issueType := c.PostForm("issue_type")

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no photo provided"})
		return
	}
	defer file.Close()

	if h.maxPhotoBytes > 0 && header.Size > h.maxPhotoBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo too large"})
		return
	}

	var reader io.Reader = file
	if h.maxPhotoBytes > 0 {
		reader = io.LimitReader(file, h.maxPhotoBytes)
	}
	photoBytes, err := io.ReadAll(reader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read photo"})
		return
	}

	report := models.Report{
		ID:        uuid.New(),
		Lat:       lat,
		Lon:       lon,
		IssueType: issueType,
		Photo:     photoBytes,
	}

	result, err := h.submitter.Submit(c.Request.Context(), report)
	if err != nil {
		status, detail := classify(err)
		c.JSON(status, gin.H{"error": detail})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":              "Report submitted successfully!",
		"recipient":            result.Recipient,
		"used_default_contact": result.UsedDefaultContact,
	})
}

// classify maps a pipeline failure to an HTTP status and client-facing
// detail. Validation, address and image failures are the client's problem;
// a notify failure is ours.
func classify(err error) (int, string) {
	kind, ok := pipeline.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, "internal error"
	}

	switch kind {
	case pipeline.KindValidation:
		return http.StatusBadRequest, err.Error()
	case pipeline.KindAddressUnresolved:
		return http.StatusBadRequest, "could not determine address from coordinates"
	case pipeline.KindImage:
		return http.StatusBadRequest, "invalid image file"
	case pipeline.KindNotify:
		return http.StatusInternalServerError, "failed to send the report email"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
