package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/repurposehq/repurpose/internal/source"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider on the OpenAI chat completion API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider using the given API key.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4oMini,
	}
}

// ExtractAtoms extracts structured content atoms from transcript text.
func (p *OpenAIProvider) ExtractAtoms(ctx context.Context, text string) ([]Atom, error) {
	return p.extract(ctx, buildExtractPrompt(text))
}

// ExtractAtomsFromMetadata extracts atoms from a scraped metadata bundle,
// using the generalizing prompt so nothing is invented.
func (p *OpenAIProvider) ExtractAtomsFromMetadata(ctx context.Context, meta source.Metadata) ([]Atom, error) {
	return p.extract(ctx, buildMetadataPrompt(meta))
}

func (p *OpenAIProvider) extract(ctx context.Context, prompt string) ([]Atom, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are an expert content strategist."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai extraction failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}
	return parseAtoms(resp.Choices[0].Message.Content), nil
}

// RewriteForPlatform rewrites text for the given platform. Any backend error
// degrades to the original text so the pipeline keeps moving.
func (p *OpenAIProvider) RewriteForPlatform(ctx context.Context, text, platform string) string {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf("You are an expert %s content creator.", platform)},
			{Role: openai.ChatMessageRoleUser, Content: buildRewritePrompt(text, platform)},
		},
	})
	if err != nil {
		slog.Warn("OpenAI rewrite failed, keeping original text", "platform", platform, "error", err)
		return text
	}
	if len(resp.Choices) == 0 {
		return text
	}
	rewritten := strings.TrimSpace(resp.Choices[0].Message.Content)
	if rewritten == "" {
		return text
	}
	return rewritten
}
