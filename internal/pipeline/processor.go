// Package pipeline owns the job state machine: source resolution, atom
// extraction, per-platform rewriting and persistence, including the failure
// recovery write that keeps jobs from getting stuck in processing.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/repurposehq/repurpose/internal/ai"
	"github.com/repurposehq/repurpose/internal/models"
	"github.com/repurposehq/repurpose/internal/source"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrJobNotFound means the job row no longer exists. Permanent: the task
// layer must not retry it.
var ErrJobNotFound = errors.New("job not found")

// ErrNoAtomsExtracted is recorded on the job when the backend yields nothing
// usable. The job is failed but the task is not retried; an empty extraction
// is a valid outcome of the backend contract, not a transient fault.
var ErrNoAtomsExtracted = errors.New("no content atoms extracted from AI response")

// SourceResolver is the acquisition capability the processor runs first.
type SourceResolver interface {
	Resolve(ctx context.Context, sourceURL string) (source.ResolvedSource, error)
}

// AudioEnqueuer schedules the out-of-line audio transcription task for a job.
type AudioEnqueuer func(jobID uint) error

// Processor sequences one job through the pipeline. Each job is processed by
// exactly one run at a time by construction of the task queue; the processor
// itself holds no locks.
type Processor struct {
	db           *gorm.DB
	resolver     SourceResolver
	provider     ai.Provider
	enqueueAudio AudioEnqueuer
	logger       *slog.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(db *gorm.DB, resolver SourceResolver, provider ai.Provider, enqueueAudio AudioEnqueuer, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{db: db, resolver: resolver, provider: provider, enqueueAudio: enqueueAudio, logger: logger}
}

// Run executes the pipeline for one job. Errors returned here reach the task
// queue's retry layer; before returning one, Run records status=failed on the
// job through a separate write so the job never sits in processing silently.
func (p *Processor) Run(ctx context.Context, jobID uint) error {
	var job models.Job
	if err := p.db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrJobNotFound
		}
		return fmt.Errorf("failed to fetch job: %w", err)
	}

	// Completed jobs are never reprocessed. Failed jobs may be: a queue
	// retry of the run that failed them is the expected path back.
	if job.Status == models.JobStatusCompleted {
		p.logger.Info("Job already completed, skipping", "job_id", jobID)
		return nil
	}

	if err := p.db.Model(&job).Update("status", models.JobStatusProcessing).Error; err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	pending, err := p.ensureSource(ctx, &job)
	if err != nil {
		p.markFailed(job.ID, fmt.Sprintf("Failed to fetch content source: %v", err))
		return err
	}
	if pending {
		// Run ends here; the transcription task resumes the job once the
		// audio text lands.
		return nil
	}

	atoms, err := p.extract(ctx, &job)
	if err != nil {
		p.markFailed(job.ID, err.Error())
		return err
	}
	if len(atoms) == 0 {
		p.logger.Warn("No atoms extracted", "job_id", jobID)
		p.markFailed(job.ID, ErrNoAtomsExtracted.Error())
		return nil
	}

	if err := p.persistAtoms(ctx, &job, atoms); err != nil {
		p.markFailed(job.ID, err.Error())
		return err
	}

	if err := p.persistPosts(ctx, &job); err != nil {
		p.markFailed(job.ID, err.Error())
		return err
	}

	if err := p.db.WithContext(ctx).Model(&job).Updates(map[string]interface{}{
		"status":        models.JobStatusCompleted,
		"error_message": "",
	}).Error; err != nil {
		p.markFailed(job.ID, err.Error())
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	p.logger.Info("Job completed", "job_id", jobID, "atoms", len(atoms))
	return nil
}

// ensureSource makes sure the job has usable input text or metadata,
// resolving the source when needed. Returns pending=true when the job was
// handed off to audio transcription.
func (p *Processor) ensureSource(ctx context.Context, job *models.Job) (pending bool, err error) {
	if job.RawText != "" {
		return false, nil
	}

	resolved, err := p.resolver.Resolve(ctx, job.SourceURL)
	if err != nil {
		return false, err
	}

	switch resolved.Kind {
	case source.KindTranscript:
		job.RawText = resolved.Text
		job.SourceKind = models.SourceKindTranscript
		if err := p.db.WithContext(ctx).Model(job).Updates(map[string]interface{}{
			"raw_text":    job.RawText,
			"source_kind": job.SourceKind,
		}).Error; err != nil {
			return false, fmt.Errorf("failed to persist transcript: %w", err)
		}
		return false, nil

	case source.KindMetadata:
		metaJSON, err := json.Marshal(resolved.Meta)
		if err != nil {
			return false, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		job.RawText = models.RawTextMetadataFallback
		job.SourceKind = models.SourceKindMetadata
		job.Metadata = datatypes.JSON(metaJSON)
		if err := p.db.WithContext(ctx).Model(job).Updates(map[string]interface{}{
			"raw_text":    job.RawText,
			"source_kind": job.SourceKind,
			"metadata":    job.Metadata,
		}).Error; err != nil {
			return false, fmt.Errorf("failed to persist metadata: %w", err)
		}
		p.logger.Info("Source resolved via metadata fallback", "job_id", job.ID)
		return false, nil

	case source.KindPending:
		if p.enqueueAudio == nil {
			return false, fmt.Errorf("audio transcription required but no enqueuer configured")
		}
		if err := p.enqueueAudio(job.ID); err != nil {
			return false, fmt.Errorf("failed to enqueue audio transcription: %w", err)
		}
		p.logger.Info("Audio transcription task enqueued", "job_id", job.ID)
		return true, nil

	default:
		return false, fmt.Errorf("unknown resolved source kind %d", resolved.Kind)
	}
}

// extract runs the extraction strategy matching the job's source kind.
func (p *Processor) extract(ctx context.Context, job *models.Job) ([]ai.Atom, error) {
	if job.SourceKind == models.SourceKindMetadata {
		var meta source.Metadata
		if err := json.Unmarshal(job.Metadata, &meta); err != nil {
			return nil, fmt.Errorf("failed to decode stored metadata: %w", err)
		}
		return p.provider.ExtractAtomsFromMetadata(ctx, meta)
	}
	return p.provider.ExtractAtoms(ctx, job.RawText)
}

// persistAtoms replaces the job's atoms in one transaction. Clearing first
// makes a queue-level retry idempotent: a prior partially committed attempt
// never accumulates duplicate atoms or posts.
func (p *Processor) persistAtoms(ctx context.Context, job *models.Job, atoms []ai.Atom) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var atomIDs []uint
		if err := tx.Model(&models.ContentAtom{}).Where("job_id = ?", job.ID).Pluck("id", &atomIDs).Error; err != nil {
			return fmt.Errorf("failed to list existing atoms: %w", err)
		}
		if len(atomIDs) > 0 {
			if err := tx.Unscoped().Where("content_atom_id IN ?", atomIDs).Delete(&models.Post{}).Error; err != nil {
				return fmt.Errorf("failed to clear existing posts: %w", err)
			}
			if err := tx.Unscoped().Where("job_id = ?", job.ID).Delete(&models.ContentAtom{}).Error; err != nil {
				return fmt.Errorf("failed to clear existing atoms: %w", err)
			}
		}

		for _, atom := range atoms {
			atomType := atom.Type
			if !models.ValidAtomType(atomType) {
				atomType = models.AtomTypeInsight
			}
			record := models.ContentAtom{
				JobID: job.ID,
				Type:  atomType,
				Text:  atom.Text,
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("failed to create atom: %w", err)
			}
		}
		return nil
	})
}

// persistPosts rewrites every atom for both platforms and stores the posts.
// All rewrites run before the insert transaction opens, so atoms are durably
// on disk before any rewrite result is, and a half-written atom (one
// platform's post missing) cannot survive a fault without failing the job.
func (p *Processor) persistPosts(ctx context.Context, job *models.Job) error {
	var atoms []models.ContentAtom
	if err := p.db.WithContext(ctx).Where("job_id = ?", job.ID).Order("id").Find(&atoms).Error; err != nil {
		return fmt.Errorf("failed to load atoms: %w", err)
	}

	posts := make([]models.Post, 0, len(atoms)*len(models.Platforms))
	for _, atom := range atoms {
		for _, platform := range models.Platforms {
			posts = append(posts, models.Post{
				ContentAtomID: atom.ID,
				Platform:      platform,
				Text:          p.provider.RewriteForPlatform(ctx, atom.Text, platform),
				Included:      true,
			})
		}
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range posts {
			if err := tx.Create(&posts[i]).Error; err != nil {
				return fmt.Errorf("failed to create post: %w", err)
			}
		}
		return nil
	})
}

// markFailed records the terminal failure state in a fresh write, separate
// from whatever scope the fault happened in. Its own failure is only logged:
// the original error is what the caller re-raises to the retry layer.
func (p *Processor) markFailed(jobID uint, message string) {
	err := p.db.Model(&models.Job{}).Where("id = ?", jobID).Updates(map[string]interface{}{
		"status":        models.JobStatusFailed,
		"error_message": message,
	}).Error
	if err != nil {
		p.logger.Error("Failed to record job failure", "job_id", jobID, "error", err)
	}
}
