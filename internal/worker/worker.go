package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/repurposehq/repurpose/internal/config"
	"github.com/repurposehq/repurpose/internal/models"
	"github.com/repurposehq/repurpose/internal/pipeline"
	"github.com/repurposehq/repurpose/internal/publish"
	"github.com/repurposehq/repurpose/internal/source"
	"github.com/repurposehq/repurpose/internal/transcribe"
	"gorm.io/gorm"
)

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Deps bundles the capabilities the task handlers need. Constructed once in
// main and passed down; handlers never reach for globals.
type Deps struct {
	DB          *gorm.DB
	Processor   *pipeline.Processor
	Transcriber transcribe.Transcriber
	Publisher   publish.Publisher
}

// Run starts the Asynq worker server and blocks until shutdown signal.
// Use this for standalone worker mode.
func Run(cfg *config.Config, deps Deps) error {
	srv, mux, err := newServer(cfg, deps)
	if err != nil {
		return err
	}
	return srv.Run(mux)
}

// Start starts the Asynq worker in non-blocking mode and returns a stop
// function. Use this for embedded mode so the caller can coordinate shutdown.
func Start(cfg *config.Config, deps Deps) (stop func(), err error) {
	srv, mux, err := newServer(cfg, deps)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, deps Deps) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     5,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskGenerateContent, handleGenerateContent(logger, deps.Processor))
	mux.HandleFunc(TaskTranscribeAudio, handleTranscribeAudio(logger, deps.DB, deps.Transcriber))
	mux.HandleFunc(TaskPublishDue, handlePublishDue(logger, deps.DB, deps.Publisher))

	logger.Info("Worker starting", "concurrency", 5, "redis", cfg.RedisURL)
	return srv, mux, nil
}

// handleGenerateContent runs the content pipeline for one job. Permanent
// failure classes are marked SkipRetry so the queue does not burn retries on
// content that can never be served.
func handleGenerateContent(logger *slog.Logger, processor *pipeline.Processor) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload jobPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		logger.Info("Processing content:generate task", "job_id", payload.JobID)

		err := processor.Run(ctx, payload.JobID)
		if err == nil {
			return nil
		}

		if errors.Is(err, pipeline.ErrJobNotFound) {
			logger.Error("Job not found", "job_id", payload.JobID)
			return fmt.Errorf("job not found: %w", asynq.SkipRetry)
		}

		var denied *source.AccessDeniedError
		if errors.As(err, &denied) || errors.Is(err, source.ErrSourceNotResolvable) {
			logger.Error("Permanent source failure", "job_id", payload.JobID, "error", err.Error())
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		return fmt.Errorf("pipeline run failed: %w", err)
	}
}

// handleTranscribeAudio runs the audio fallback: transcribe, persist the text
// on the job, then chain back into content generation.
func handleTranscribeAudio(logger *slog.Logger, db *gorm.DB, transcriber transcribe.Transcriber) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload jobPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		var job models.Job
		if err := db.WithContext(ctx).First(&job, payload.JobID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Error("Job not found", "job_id", payload.JobID)
				return fmt.Errorf("job not found: %w", asynq.SkipRetry)
			}
			return fmt.Errorf("failed to fetch job: %w", err)
		}

		videoID, err := source.ExtractVideoID(job.SourceURL)
		if err != nil {
			markJobFailed(logger, db, job.ID, err.Error())
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		logger.Info("Processing audio:transcribe task", "job_id", payload.JobID, "video_id", videoID)

		text, err := transcriber.Transcribe(ctx, videoID)
		if err != nil {
			markJobFailed(logger, db, job.ID, err.Error())
			logger.Error("Audio transcription failed", "job_id", payload.JobID, "error", err.Error())
			return fmt.Errorf("audio transcription failed: %w", err)
		}

		if err := db.Model(&job).Updates(map[string]interface{}{
			"raw_text":    text,
			"source_kind": models.SourceKindTranscript,
		}).Error; err != nil {
			return fmt.Errorf("failed to persist transcription: %w", err)
		}

		if err := EnqueueGenerateContent(job.ID); err != nil {
			return fmt.Errorf("failed to chain content generation: %w", err)
		}

		logger.Info("Audio transcription completed", "job_id", payload.JobID, "chars", len(text))
		return nil
	}
}

// handlePublishDue publishes every schedule entry whose date has arrived and
// stamps it so it is never published twice.
func handlePublishDue(logger *slog.Logger, db *gorm.DB, publisher publish.Publisher) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var entries []models.ScheduleEntry
		now := time.Now().UTC()
		if err := db.WithContext(ctx).
			Where("publish_date <= ? AND published_at IS NULL", now).
			Order("publish_date").
			Find(&entries).Error; err != nil {
			return fmt.Errorf("failed to load due entries: %w", err)
		}

		if len(entries) == 0 {
			return nil
		}

		published := 0
		for _, entry := range entries {
			var post models.Post
			if err := db.WithContext(ctx).First(&post, entry.PostID).Error; err != nil {
				logger.Error("Post missing for schedule entry", "entry_id", entry.ID, "post_id", entry.PostID)
				continue
			}

			if err := publisher.Publish(ctx, post); err != nil {
				logger.Error("Publish failed", "entry_id", entry.ID, "platform", entry.Platform, "error", err.Error())
				continue
			}

			if err := db.WithContext(ctx).Model(&entry).Update("published_at", now).Error; err != nil {
				logger.Error("Failed to stamp published entry", "entry_id", entry.ID, "error", err.Error())
				continue
			}
			published++
		}

		logger.Info("Published due schedule entries", "due", len(entries), "published", published)
		return nil
	}
}

// markJobFailed records the failure state on the job. The write is
// best-effort: its own failure is logged, never propagated, so the original
// task error stays in control of the retry decision.
func markJobFailed(logger *slog.Logger, db *gorm.DB, jobID uint, message string) {
	err := db.Model(&models.Job{}).Where("id = ?", jobID).Updates(map[string]interface{}{
		"status":        models.JobStatusFailed,
		"error_message": message,
	}).Error
	if err != nil {
		logger.Error("Failed to record job failure", "job_id", jobID, "error", err)
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		if retried >= maxRetry {
			logger.Error(
				"Task moved to dead letter queue (all retries exhausted)",
				"task_type", task.Type(),
				"payload", string(task.Payload()),
			)
		}
	}
}
