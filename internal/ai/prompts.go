package ai

import (
	"fmt"

	"github.com/repurposehq/repurpose/internal/source"
)

// transcripts longer than this are truncated before prompting
const maxTranscriptChars = 15000

const extractAtomsPrompt = `Analyze the following transcript and extract 20-30 separate content atoms.
Each atom should be a distinct insight, opinion, lesson, or quote.

Return the output as a JSON object with a key 'atoms' containing a list of objects.
Each object must have:
- 'type': one of ['insight', 'opinion', 'lesson', 'quote']
- 'text': the extracted content

Transcript:
%s`

// The metadata prompt must generalize: only the title, description and
// channel are known, so inventing specifics from the video would be
// hallucination.
const extractAtomsFromMetadataPrompt = `You only know a video's title, description and channel name. Write 10-15 content atoms inspired by its topic.
Generalize from the theme; do NOT invent specific claims, quotes or numbers from the video itself.

Return the output as a JSON object with a key 'atoms' containing a list of objects.
Each object must have:
- 'type': one of ['insight', 'opinion', 'lesson', 'quote']
- 'text': the content

Title: %s
Channel: %s
Description: %s`

const rewriteContentPrompt = `Rewrite the following content for %s.
Style guide: %s.

Content:
%s

Return only the rewritten text.`

func buildExtractPrompt(text string) string {
	if len(text) > maxTranscriptChars {
		text = text[:maxTranscriptChars]
	}
	return fmt.Sprintf(extractAtomsPrompt, text)
}

func buildMetadataPrompt(meta source.Metadata) string {
	return fmt.Sprintf(extractAtomsFromMetadataPrompt, meta.Title, meta.ChannelName, meta.Description)
}

func buildRewritePrompt(text, platform string) string {
	return fmt.Sprintf(rewriteContentPrompt, platform, styleGuide(platform), text)
}
