package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/repurposehq/repurpose/internal/source"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	geminiModel          = "gemini-2.0-flash"
)

// GeminiProvider implements Provider against the Gemini REST API. The REST
// surface is used directly rather than the SDK; the request is a plain JSON
// POST like any other upstream call.
type GeminiProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiProvider creates a provider using the given API key.
func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:     apiKey,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// ExtractAtoms extracts structured content atoms from transcript text.
func (p *GeminiProvider) ExtractAtoms(ctx context.Context, text string) ([]Atom, error) {
	raw, err := p.generate(ctx, buildExtractPrompt(text), true)
	if err != nil {
		return nil, fmt.Errorf("gemini extraction failed: %w", err)
	}
	return parseAtoms(raw), nil
}

// ExtractAtomsFromMetadata extracts atoms from a scraped metadata bundle.
func (p *GeminiProvider) ExtractAtomsFromMetadata(ctx context.Context, meta source.Metadata) ([]Atom, error) {
	raw, err := p.generate(ctx, buildMetadataPrompt(meta), true)
	if err != nil {
		return nil, fmt.Errorf("gemini metadata extraction failed: %w", err)
	}
	return parseAtoms(raw), nil
}

// RewriteForPlatform rewrites text for the given platform, degrading to the
// original text on any failure.
func (p *GeminiProvider) RewriteForPlatform(ctx context.Context, text, platform string) string {
	raw, err := p.generate(ctx, buildRewritePrompt(text, platform), false)
	if err != nil {
		slog.Warn("Gemini rewrite failed, keeping original text", "platform", platform, "error", err)
		return text
	}
	rewritten := strings.TrimSpace(stripFences(raw))
	if rewritten == "" {
		return text
	}
	return rewritten
}

func (p *GeminiProvider) generate(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	if jsonMode {
		req.GenerationConfig = &geminiGenerationConfig{ResponseMimeType: "application/json"}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, geminiModel, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, string(body))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
