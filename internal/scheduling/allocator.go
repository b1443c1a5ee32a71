// Package scheduling distributes a job's content pool across a fixed
// calendar: one post per day for up to 30 days, alternating platforms, using
// every available post before giving up on strict rotation.
package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/repurposehq/repurpose/internal/models"
	"gorm.io/gorm"
)

// horizonDays is the fixed calendar length.
const horizonDays = 30

// candidate is one schedulable post.
type candidate struct {
	PostID   uint
	Platform string
}

// planned is one calendar assignment produced by the planner.
type planned struct {
	PostID    uint
	Platform  string
	DayOffset int
}

// Allocator generates schedules from a job's post pool.
type Allocator struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewAllocator constructs an Allocator.
func NewAllocator(db *gorm.DB, logger *slog.Logger) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{db: db, logger: logger}
}

// Allocate builds a calendar for the job starting at startDate and returns
// the number of entries created. Prior entries for the job are replaced in
// the same transaction, so repeated calls regenerate rather than overlap.
// Zero eligible posts yields 0 and writes nothing.
func (a *Allocator) Allocate(ctx context.Context, jobID uint, startDate time.Time) (int, error) {
	var cands []candidate
	err := a.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("posts.id AS post_id, posts.platform AS platform").
		Joins("JOIN content_atoms ON content_atoms.id = posts.content_atom_id").
		Where("content_atoms.job_id = ? AND posts.included = ?", jobID, true).
		Order("posts.id").
		Scan(&cands).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load eligible posts: %w", err)
	}

	plan := planSchedule(cands, horizonDays)
	if len(plan) == 0 {
		return 0, nil
	}

	day := startDate.UTC().Truncate(24 * time.Hour)
	entries := make([]models.ScheduleEntry, 0, len(plan))
	for _, item := range plan {
		entries = append(entries, models.ScheduleEntry{
			PostID:      item.PostID,
			PublishDate: day.AddDate(0, 0, item.DayOffset),
			Platform:    item.Platform,
		})
	}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Replace any calendar generated by an earlier call for this job.
		sub := tx.Model(&models.Post{}).
			Select("posts.id").
			Joins("JOIN content_atoms ON content_atoms.id = posts.content_atom_id").
			Where("content_atoms.job_id = ?", jobID)
		if err := tx.Unscoped().Where("post_id IN (?)", sub).Delete(&models.ScheduleEntry{}).Error; err != nil {
			return fmt.Errorf("failed to clear prior schedule: %w", err)
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("failed to create schedule entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	a.logger.Info("Schedule generated", "job_id", jobID, "entries", len(entries), "start", day.Format("2006-01-02"))
	return len(entries), nil
}

// planSchedule assigns posts to day offsets. For each day the rotation picks
// the target platform (alternating, twitter first); the first unused post
// from that platform's pool is chosen, falling back to the other pool when
// the target is exhausted. The entry always carries the chosen post's own
// platform. Allocation stops early when both pools run out; remaining days
// are not padded.
//
// Selection within a pool is first-unused in insertion order. Rotating by
// atom type was considered and deliberately not implemented; using all
// available content wins over rotation fidelity.
func planSchedule(cands []candidate, horizon int) []planned {
	pools := map[string][]candidate{}
	for _, c := range cands {
		pools[c.Platform] = append(pools[c.Platform], c)
	}

	used := make(map[uint]bool, len(cands))
	rotation := models.Platforms

	next := func(platform string) (candidate, bool) {
		for _, c := range pools[platform] {
			if !used[c.PostID] {
				return c, true
			}
		}
		return candidate{}, false
	}

	var out []planned
	for i := 0; i < horizon; i++ {
		target := rotation[i%len(rotation)]
		pick, ok := next(target)
		if !ok {
			pick, ok = next(rotation[(i+1)%len(rotation)])
		}
		if !ok {
			break
		}
		used[pick.PostID] = true
		out = append(out, planned{PostID: pick.PostID, Platform: pick.Platform, DayOffset: i})
	}
	return out
}
