package database

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/repurposehq/repurpose/internal/models"
	"gorm.io/gorm"
)

const seedJobURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

// SeedDevData populates the database with development test data.
// Idempotent: skips if data already exists.
func SeedDevData(db *gorm.DB) error {
	var existing models.Job
	result := db.Where("source_url = ?", seedJobURL).First(&existing)
	if result.Error == nil {
		slog.Info("Seed data already exists, skipping")
		return nil
	}

	job := models.Job{
		PublicID:   uuid.New().String(),
		SourceURL:  seedJobURL,
		RawText:    "Never gonna give you up. Never gonna let you down. A lesson in commitment and follow-through that applies to shipping software.",
		Status:     models.JobStatusCompleted,
		SourceKind: models.SourceKindTranscript,
		Tone:       "casual",
	}
	if err := db.Create(&job).Error; err != nil {
		return err
	}

	atoms := []models.ContentAtom{
		{JobID: job.ID, Type: models.AtomTypeInsight, Text: "Commitment compounds: small consistent follow-through beats sporadic bursts of effort."},
		{JobID: job.ID, Type: models.AtomTypeQuote, Text: "Never gonna give you up, never gonna let you down."},
		{JobID: job.ID, Type: models.AtomTypeLesson, Text: "Promise less than you can deliver, then deliver every time."},
	}

	for i := range atoms {
		if err := db.Create(&atoms[i]).Error; err != nil {
			return err
		}
		for _, platform := range models.Platforms {
			post := models.Post{
				ContentAtomID: atoms[i].ID,
				Platform:      platform,
				Text:          atoms[i].Text,
				Included:      true,
			}
			if err := db.Create(&post).Error; err != nil {
				return err
			}
		}
	}

	// One schedule entry for tomorrow so the preview page has something to show
	var firstPost models.Post
	if err := db.Where("content_atom_id = ?", atoms[0].ID).First(&firstPost).Error; err != nil {
		return err
	}
	tomorrow := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	entry := models.ScheduleEntry{
		PostID:      firstPost.ID,
		PublishDate: tomorrow,
		Platform:    firstPost.Platform,
	}
	if err := db.Create(&entry).Error; err != nil {
		return err
	}

	slog.Info("Seed data created", "job_id", job.PublicID, "atoms", len(atoms))
	return nil
}
