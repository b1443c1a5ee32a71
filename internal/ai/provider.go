// Package ai provides the pluggable generation backend: content atom
// extraction from transcripts or metadata, and per-platform post rewriting.
// Concrete providers are selected once at construction time via configuration.
package ai

import (
	"context"
	"fmt"

	"github.com/repurposehq/repurpose/internal/config"
	"github.com/repurposehq/repurpose/internal/source"
)

// Atom is one extracted content unit.
type Atom struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Provider is the generation backend capability.
//
// ExtractAtoms and ExtractAtomsFromMetadata return an empty slice, not an
// error, when the backend responds but yields no parsable atoms; an error
// means the backend call itself failed. RewriteForPlatform never fails: on
// any backend error it returns the original text unchanged.
type Provider interface {
	ExtractAtoms(ctx context.Context, text string) ([]Atom, error)
	ExtractAtomsFromMetadata(ctx context.Context, meta source.Metadata) ([]Atom, error)
	RewriteForPlatform(ctx context.Context, text, platform string) string
}

// NewProvider returns the provider selected by configuration.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.AIProvider {
	case config.AIProviderMock:
		return NewMockProvider(), nil
	case config.AIProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini provider selected but GEMINI_API_KEY is empty")
		}
		return NewGeminiProvider(cfg.GeminiAPIKey), nil
	case config.AIProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY is empty")
		}
		return NewOpenAIProvider(cfg.OpenAIAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
}

// styleGuide returns the fixed platform framing used in rewrite prompts.
func styleGuide(platform string) string {
	switch platform {
	case "twitter":
		return "concise, punchy, under 280 characters, use hashtags if appropriate"
	case "linkedin":
		return "professional, story-like, engaging, use formatting"
	default:
		return "professional and clear"
	}
}
