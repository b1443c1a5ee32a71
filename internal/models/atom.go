package models

import "gorm.io/gorm"

// Content atom type constants
const (
	AtomTypeInsight = "insight"
	AtomTypeOpinion = "opinion"
	AtomTypeLesson  = "lesson"
	AtomTypeQuote   = "quote"
)

// ContentAtom is one discrete idea extracted from a source: an insight,
// opinion, lesson or quote. Atoms are created only after a successful
// extraction and are immutable afterwards.
type ContentAtom struct {
	gorm.Model
	JobID uint   `gorm:"not null;index"`
	Type  string `gorm:"not null"`
	Text  string `gorm:"type:text;not null"`

	Posts []Post `gorm:"constraint:OnDelete:CASCADE;"`
}

// ValidAtomType reports whether t is one of the known atom types.
func ValidAtomType(t string) bool {
	switch t {
	case AtomTypeInsight, AtomTypeOpinion, AtomTypeLesson, AtomTypeQuote:
		return true
	}
	return false
}
