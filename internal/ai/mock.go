package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/repurposehq/repurpose/internal/source"
)

// MockProvider is the deterministic stub backend used in development and
// tests. No network, no delay, fixed output.
type MockProvider struct{}

// NewMockProvider creates the stub provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// ExtractAtoms returns a fixed set of atoms regardless of input. Empty input
// yields an empty slice, matching the live providers' contract.
func (p *MockProvider) ExtractAtoms(ctx context.Context, text string) ([]Atom, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	slog.Debug("Using mock AI for extraction")
	return []Atom{
		{Type: "insight", Text: "This is a mock insight from the video transcript."},
		{Type: "quote", Text: "This is a mock quote that sounds very inspiring."},
		{Type: "lesson", Text: "This is a mock lesson regarding the content strategy."},
		{Type: "opinion", Text: "This is a mock opinion about the subject matter."},
	}, nil
}

// ExtractAtomsFromMetadata returns fixed atoms derived from the bundle title.
func (p *MockProvider) ExtractAtomsFromMetadata(ctx context.Context, meta source.Metadata) ([]Atom, error) {
	if strings.TrimSpace(meta.Title) == "" {
		return nil, nil
	}
	slog.Debug("Using mock AI for metadata extraction", "title", meta.Title)
	return []Atom{
		{Type: "insight", Text: fmt.Sprintf("Mock insight derived from title: %s", meta.Title)},
		{Type: "quote", Text: "Mock quote inferred from description."},
		{Type: "lesson", Text: "Always optimize your video metadata."},
	}, nil
}

// RewriteForPlatform tags the text with the platform name.
func (p *MockProvider) RewriteForPlatform(ctx context.Context, text, platform string) string {
	return fmt.Sprintf("[MOCK %s] %s", strings.ToUpper(platform), text)
}
