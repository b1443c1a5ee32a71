package models

import "gorm.io/gorm"

// Platform constants
const (
	PlatformTwitter  = "twitter"
	PlatformLinkedIn = "linkedin"
)

// Platforms lists the platforms a post is generated for, in rotation order.
var Platforms = []string{PlatformTwitter, PlatformLinkedIn}

// Post is one platform-specific rewrite of a content atom. Exactly two posts
// exist per atom, one per platform. Included marks eligibility for scheduling.
type Post struct {
	gorm.Model
	ContentAtomID uint   `gorm:"not null;index"`
	Platform      string `gorm:"not null"`
	Text          string `gorm:"type:text;not null"`
	Included      bool   `gorm:"not null;default:true"`
}
