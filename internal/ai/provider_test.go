package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/repurposehq/repurpose/internal/config"
	"github.com/repurposehq/repurpose/internal/source"
)

func TestNewProvider(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"mock", config.Config{AIProvider: config.AIProviderMock}, false},
		{"openai with key", config.Config{AIProvider: config.AIProviderOpenAI, OpenAIAPIKey: "sk-test"}, false},
		{"openai without key", config.Config{AIProvider: config.AIProviderOpenAI}, true},
		{"gemini with key", config.Config{AIProvider: config.AIProviderGemini, GeminiAPIKey: "g-test"}, false},
		{"gemini without key", config.Config{AIProvider: config.AIProviderGemini}, true},
		{"unknown", config.Config{AIProvider: "bard"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewProvider(&tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p == nil {
				t.Fatal("provider is nil")
			}
		})
	}
}

func TestMockProviderExtract(t *testing.T) {
	p := NewMockProvider()

	atoms, err := p.ExtractAtoms(context.Background(), "a real transcript")
	if err != nil {
		t.Fatalf("ExtractAtoms returned error: %v", err)
	}
	if len(atoms) != 4 {
		t.Errorf("got %d atoms, want 4", len(atoms))
	}

	atoms, err = p.ExtractAtoms(context.Background(), "   ")
	if err != nil {
		t.Fatalf("ExtractAtoms on blank input returned error: %v", err)
	}
	if len(atoms) != 0 {
		t.Errorf("blank input yielded %d atoms, want 0", len(atoms))
	}
}

func TestMockProviderExtractFromMetadata(t *testing.T) {
	p := NewMockProvider()

	atoms, err := p.ExtractAtomsFromMetadata(context.Background(), source.Metadata{Title: "How to Go"})
	if err != nil {
		t.Fatalf("ExtractAtomsFromMetadata returned error: %v", err)
	}
	if len(atoms) != 3 {
		t.Fatalf("got %d atoms, want 3", len(atoms))
	}
	if !strings.Contains(atoms[0].Text, "How to Go") {
		t.Errorf("first atom should reference the title: %q", atoms[0].Text)
	}

	atoms, err = p.ExtractAtomsFromMetadata(context.Background(), source.Metadata{})
	if err != nil {
		t.Fatalf("empty metadata returned error: %v", err)
	}
	if len(atoms) != 0 {
		t.Errorf("empty metadata yielded %d atoms, want 0", len(atoms))
	}
}

func TestMockProviderRewrite(t *testing.T) {
	p := NewMockProvider()
	got := p.RewriteForPlatform(context.Background(), "hello", "twitter")
	if got != "[MOCK TWITTER] hello" {
		t.Errorf("rewrite = %q", got)
	}
}
