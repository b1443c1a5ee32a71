package publish

import (
	"context"
	"testing"

	"github.com/repurposehq/repurpose/internal/models"
)

func TestStubPublisher(t *testing.T) {
	p := NewStubPublisher(nil)

	for _, platform := range models.Platforms {
		post := models.Post{Platform: platform, Text: "hello"}
		if err := p.Publish(context.Background(), post); err != nil {
			t.Errorf("Publish(%s) returned error: %v", platform, err)
		}
	}

	if err := p.Publish(context.Background(), models.Post{Platform: "myspace"}); err == nil {
		t.Error("expected an error for an unknown platform")
	}
}
