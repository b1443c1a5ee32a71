// Package publish holds the outbound posting boundary. The real platform
// integrations are not built yet; the stubs log what would be posted so the
// scheduled publishing loop can be exercised end to end.
package publish

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/repurposehq/repurpose/internal/models"
)

// Publisher posts one piece of content to one platform.
type Publisher interface {
	Publish(ctx context.Context, post models.Post) error
}

// StubPublisher logs instead of posting.
type StubPublisher struct {
	logger *slog.Logger
}

// NewStubPublisher constructs a StubPublisher.
func NewStubPublisher(logger *slog.Logger) *StubPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubPublisher{logger: logger}
}

// Publish logs the post that would be sent.
func (p *StubPublisher) Publish(ctx context.Context, post models.Post) error {
	switch post.Platform {
	case models.PlatformTwitter, models.PlatformLinkedIn:
		p.logger.Info("Publishing post (stub)", "platform", post.Platform, "post_id", post.ID, "text", post.Text)
		return nil
	default:
		return fmt.Errorf("unknown platform %q", post.Platform)
	}
}
