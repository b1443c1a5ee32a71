package models

import (
	"time"

	"gorm.io/gorm"
)

// ScheduleEntry assigns a previously generated post to a calendar date.
// PublishDate carries date-only semantics; Platform is a denormalized copy of
// the post's platform for read efficiency. Entries are written in one batch by
// the allocator and never mutated, except for the PublishedAt stamp set by the
// publishing task.
type ScheduleEntry struct {
	gorm.Model
	PostID      uint      `gorm:"not null;index"`
	PublishDate time.Time `gorm:"not null;index"`
	Platform    string    `gorm:"not null"`
	PublishedAt *time.Time
}
