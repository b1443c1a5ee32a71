// Package content is the HTTP surface: job submission, status polling,
// schedule generation, preview and manual publishing.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/repurposehq/repurpose/internal/models"
	"github.com/repurposehq/repurpose/internal/pipeline"
	"github.com/repurposehq/repurpose/internal/publish"
	"github.com/repurposehq/repurpose/internal/scheduling"
	"github.com/repurposehq/repurpose/internal/source"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// previewMaxChars bounds the post text returned by the schedule preview.
const previewMaxChars = 100

// CreateContentRequest is the submission payload.
type CreateContentRequest struct {
	URL        string `json:"url" binding:"required"`
	Tone       string `json:"tone"`
	EmojiUsage string `json:"emoji_usage"`
}

// ContentStatusResponse is returned by submission and status polling.
type ContentStatusResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	PostCount     int64  `json:"post_count"`
	ContentSource string `json:"content_source"`
}

// SchedulePreviewItem is one row of the schedule preview.
type SchedulePreviewItem struct {
	ID       uint   `json:"id"`
	Date     string `json:"date"`
	Platform string `json:"platform"`
	Preview  string `json:"preview"`
}

// Handlers bundles the dependencies of the content API. Enqueue functions are
// injected so tests can observe task dispatch without a Redis connection.
type Handlers struct {
	db                *gorm.DB
	resolver          pipeline.SourceResolver
	allocator         *scheduling.Allocator
	publisher         publish.Publisher
	enqueueGenerate   func(jobID uint) error
	enqueueTranscribe func(jobID uint) error
}

// NewHandlers constructs the content API handlers.
func NewHandlers(
	db *gorm.DB,
	resolver pipeline.SourceResolver,
	allocator *scheduling.Allocator,
	publisher publish.Publisher,
	enqueueGenerate func(jobID uint) error,
	enqueueTranscribe func(jobID uint) error,
) *Handlers {
	return &Handlers{
		db:                db,
		resolver:          resolver,
		allocator:         allocator,
		publisher:         publisher,
		enqueueGenerate:   enqueueGenerate,
		enqueueTranscribe: enqueueTranscribe,
	}
}

// RegisterRoutes mounts the content API under /api/v1/content.
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	group := r.Group("/api/v1/content")
	group.POST("", h.Create)
	group.GET("/:id/status", h.Status)
	group.POST("/:id/schedule", h.Schedule)
	group.GET("/:id/schedule/preview", h.SchedulePreview)
	group.POST("/:id/schedule/run", h.RunSchedule)
}

// Create accepts a source URL, resolves it synchronously and creates a job.
// Bad references and access-denied videos are rejected immediately; a missing
// text track creates the job in processing with the audio fallback enqueued.
func (h *Handlers) Create(c *gin.Context) {
	var req CreateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "reason": err.Error()})
		return
	}

	if !isYouTubeURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_URL", "reason": "not a YouTube URL"})
		return
	}

	resolved, err := h.resolver.Resolve(c.Request.Context(), req.URL)
	if err != nil {
		var denied *source.AccessDeniedError
		var unavailable *source.SourceUnavailableError
		switch {
		case errors.Is(err, source.ErrSourceNotResolvable):
			c.JSON(http.StatusBadRequest, gin.H{"error": "SOURCE_NOT_RESOLVABLE", "reason": err.Error()})
		case errors.As(err, &denied):
			c.JSON(http.StatusForbidden, gin.H{"error": "SOURCE_ACCESS_DENIED", "reason": denied.Reason})
		case errors.As(err, &unavailable):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "SOURCE_UNAVAILABLE", "reason": unavailable.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "RESOLUTION_FAILED", "reason": err.Error()})
		}
		return
	}

	job := models.Job{
		PublicID:   uuid.New().String(),
		SourceURL:  req.URL,
		Status:     models.JobStatusQueued,
		SourceKind: models.SourceKindTranscript,
		Tone:       req.Tone,
		EmojiUsage: req.EmojiUsage,
	}

	var message string
	switch resolved.Kind {
	case source.KindTranscript:
		job.RawText = resolved.Text
		message = "Content generation queued"
	case source.KindMetadata:
		metaJSON, err := json.Marshal(resolved.Meta)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL", "reason": err.Error()})
			return
		}
		job.RawText = models.RawTextMetadataFallback
		job.SourceKind = models.SourceKindMetadata
		job.Metadata = datatypes.JSON(metaJSON)
		message = "Content generation queued (metadata mode)"
	case source.KindPending:
		job.Status = models.JobStatusProcessing
		message = "Content generation processing (audio transcription started)"
	}

	if err := h.db.Create(&job).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL", "reason": "failed to create job"})
		return
	}

	enqueue := h.enqueueGenerate
	if resolved.Kind == source.KindPending {
		enqueue = h.enqueueTranscribe
	}
	if err := enqueue(job.ID); err != nil {
		h.db.Model(&job).Updates(map[string]interface{}{
			"status":        models.JobStatusFailed,
			"error_message": "Failed to enqueue processing task",
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL", "reason": "failed to enqueue processing task"})
		return
	}

	c.JSON(http.StatusAccepted, ContentStatusResponse{
		ID:            job.PublicID,
		Status:        job.Status,
		Message:       message,
		PostCount:     0,
		ContentSource: job.SourceKind,
	})
}

// Status returns the job's current status and its generated post count.
func (h *Handlers) Status(c *gin.Context) {
	job, ok := h.findJob(c)
	if !ok {
		return
	}

	var postCount int64
	err := h.db.Model(&models.Post{}).
		Joins("JOIN content_atoms ON content_atoms.id = posts.content_atom_id").
		Where("content_atoms.job_id = ?", job.ID).
		Count(&postCount).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL", "reason": "failed to count posts"})
		return
	}

	c.JSON(http.StatusOK, ContentStatusResponse{
		ID:            job.PublicID,
		Status:        job.Status,
		Message:       fmt.Sprintf("Current status: %s", job.Status),
		Error:         job.ErrorMessage,
		PostCount:     postCount,
		ContentSource: job.SourceKind,
	})
}

// Schedule generates a calendar for the job starting tomorrow.
func (h *Handlers) Schedule(c *gin.Context) {
	job, ok := h.findJob(c)
	if !ok {
		return
	}

	startDate := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	count, err := h.allocator.Allocate(c.Request.Context(), job.ID, startDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL", "reason": "failed to generate schedule"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Schedule generated successfully",
		"scheduled_count": count,
	})
}

// SchedulePreview returns the job's calendar in date order with truncated
// post text.
func (h *Handlers) SchedulePreview(c *gin.Context) {
	job, ok := h.findJob(c)
	if !ok {
		return
	}

	type previewRow struct {
		ID          uint
		PublishDate time.Time
		Platform    string
		Text        string
	}
	var rows []previewRow
	err := h.db.Model(&models.ScheduleEntry{}).
		Select("schedule_entries.id, schedule_entries.publish_date, schedule_entries.platform, posts.text").
		Joins("JOIN posts ON posts.id = schedule_entries.post_id").
		Joins("JOIN content_atoms ON content_atoms.id = posts.content_atom_id").
		Where("content_atoms.job_id = ?", job.ID).
		Order("schedule_entries.publish_date").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL", "reason": "failed to load schedule"})
		return
	}

	items := make([]SchedulePreviewItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, SchedulePreviewItem{
			ID:       row.ID,
			Date:     row.PublishDate.Format("2006-01-02"),
			Platform: row.Platform,
			Preview:  truncatePreview(row.Text),
		})
	}
	c.JSON(http.StatusOK, items)
}

// RunSchedule publishes the job's scheduled posts immediately through the
// publishing stubs.
func (h *Handlers) RunSchedule(c *gin.Context) {
	job, ok := h.findJob(c)
	if !ok {
		return
	}

	var entries []models.ScheduleEntry
	err := h.db.Model(&models.ScheduleEntry{}).
		Joins("JOIN posts ON posts.id = schedule_entries.post_id").
		Joins("JOIN content_atoms ON content_atoms.id = posts.content_atom_id").
		Where("content_atoms.job_id = ?", job.ID).
		Find(&entries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL", "reason": "failed to load schedule"})
		return
	}

	published := 0
	for _, entry := range entries {
		var post models.Post
		if err := h.db.First(&post, entry.PostID).Error; err != nil {
			continue
		}
		if err := h.publisher.Publish(c.Request.Context(), post); err != nil {
			continue
		}
		published++
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Schedule execution completed",
		"published_count": published,
	})
}

// findJob loads the job addressed by the :id path parameter, writing the
// error response itself when it cannot.
func (h *Handlers) findJob(c *gin.Context) (models.Job, bool) {
	publicID := c.Param("id")
	if _, err := uuid.Parse(publicID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_ID", "reason": "job ID must be a UUID"})
		return models.Job{}, false
	}

	var job models.Job
	if err := h.db.Where("public_id = ?", publicID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "reason": "job not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL", "reason": "failed to load job"})
		}
		return models.Job{}, false
	}
	return job, true
}

// truncatePreview limits the preview to previewMaxChars characters, not
// bytes, so multi-byte text is never split mid-rune.
func truncatePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewMaxChars {
		return text
	}
	return string(runes[:previewMaxChars]) + "..."
}

func isYouTubeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host == "youtube.com" || host == "youtu.be" || strings.HasSuffix(host, ".youtube.com")
}
