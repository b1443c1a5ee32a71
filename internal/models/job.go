package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Job status constants
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Source kind constants
const (
	SourceKindTranscript = "transcript"
	SourceKindMetadata   = "metadata"
)

// RawTextMetadataFallback is stored as the job's raw text when the source was
// resolved via metadata rather than an actual transcript. The real input for
// the extraction step lives in the Metadata column in that case.
const RawTextMetadataFallback = "METADATA_FALLBACK"

// Job represents one end-to-end request to turn a video source into a content
// pool. PublicID is the identifier exposed over the API; the GORM uint ID
// stays internal.
type Job struct {
	gorm.Model
	PublicID     string         `gorm:"uniqueIndex;not null"`
	SourceURL    string         `gorm:"not null"`
	RawText      string         `gorm:"type:text;not null;default:''"`
	Status       string         `gorm:"not null;default:'queued';index"`
	ErrorMessage string         `gorm:"column:error_message;type:text"`
	SourceKind   string         `gorm:"not null;default:'transcript'"`
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
	Tone         string         `gorm:"not null;default:''"`
	EmojiUsage   string         `gorm:"not null;default:''"`

	Atoms []ContentAtom `gorm:"constraint:OnDelete:CASCADE;"`
}

// IsTerminal reports whether the job has reached a terminal status.
// Terminal jobs are never transitioned again.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
