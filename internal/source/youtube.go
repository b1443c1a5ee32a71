package source

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultWatchBaseURL = "https://www.youtube.com"

// YouTubeClient implements TrackLister against the public watch page. The
// caption track list lives inside the embedded player response JSON; each
// track's baseUrl serves the timedtext XML.
type YouTubeClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewYouTubeClient creates a track lister for the real upstream.
func NewYouTubeClient() *YouTubeClient {
	return &YouTubeClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultWatchBaseURL,
	}
}

// NewYouTubeClientWithBase creates a track lister pointed at an alternate
// base URL. Used by tests.
func NewYouTubeClientWithBase(baseURL string, httpClient *http.Client) *YouTubeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &YouTubeClient{httpClient: httpClient, baseURL: baseURL}
}

// playerResponse mirrors the slices of the embedded player JSON we care about.
type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" marks a generated track
}

// List fetches the watch page for videoID and classifies the outcome into the
// sentinel errors from errors.go.
func (c *YouTubeClient) List(ctx context.Context, videoID string) ([]Track, error) {
	body, err := c.fetchWatchPage(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if strings.Contains(body, `class="g-recaptcha"`) {
		return nil, fmt.Errorf("upstream is rate limiting requests (captcha page served)")
	}

	raw, ok := extractPlayerResponse(body)
	if !ok {
		// No player response at all usually means the video page itself
		// does not exist.
		return nil, fmt.Errorf("%w: no player response on watch page", ErrVideoUnavailable)
	}

	var pr playerResponse
	if err := json.Unmarshal([]byte(raw), &pr); err != nil {
		return nil, fmt.Errorf("failed to parse player response: %w", err)
	}

	switch pr.PlayabilityStatus.Status {
	case "OK", "":
	case "LOGIN_REQUIRED", "AGE_CHECK_REQUIRED", "AGE_VERIFICATION_REQUIRED", "ERROR", "UNPLAYABLE":
		reason := pr.PlayabilityStatus.Reason
		if reason == "" {
			reason = pr.PlayabilityStatus.Status
		}
		return nil, fmt.Errorf("%w: %s", ErrVideoUnavailable, reason)
	default:
		return nil, fmt.Errorf("%w: %s", ErrVideoUnavailable, pr.PlayabilityStatus.Status)
	}

	tracks := pr.Captions.Renderer.CaptionTracks
	if len(tracks) == 0 {
		// A playable video with no captions object means the uploader
		// disabled them; an empty track list means none were ever made.
		if !strings.Contains(raw, `"captions"`) && !strings.Contains(body, `"captionTracks"`) {
			return nil, ErrTranscriptsDisabled
		}
		return nil, ErrNoTranscript
	}

	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, Track{
			LanguageCode: t.LanguageCode,
			Generated:    t.Kind == "asr",
			BaseURL:      t.BaseURL,
		})
	}
	return out, nil
}

// transcriptXML is the timedtext document shape: <transcript><text ...>…</text></transcript>
type transcriptXML struct {
	Texts []struct {
		Content string `xml:",chardata"`
	} `xml:"text"`
}

// Fetch downloads one track and space-joins its segments in original order.
// Structural problems with the XML are reported as ErrEmptyTranscript so the
// resolver routes them to the audio fallback rather than the metadata one.
func (c *YouTubeClient) Fetch(ctx context.Context, track Track) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch transcript track: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcript track fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript track: %w", err)
	}

	var doc transcriptXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("%w: malformed timedtext document", ErrEmptyTranscript)
	}

	parts := make([]string, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		if s := strings.TrimSpace(t.Content); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}

func (c *YouTubeClient) fetchWatchPage(ctx context.Context, videoID string) (string, error) {
	url := fmt.Sprintf("%s/watch?v=%s", c.baseURL, videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch watch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("watch page returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read watch page: %w", err)
	}
	return string(data), nil
}

// extractPlayerResponse pulls the balanced JSON object assigned to
// ytInitialPlayerResponse out of the watch page HTML.
func extractPlayerResponse(body string) (string, bool) {
	const marker = "ytInitialPlayerResponse = "
	idx := strings.Index(body, marker)
	if idx < 0 {
		return "", false
	}
	rest := body[idx+len(marker):]
	if len(rest) == 0 || rest[0] != '{' {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(rest); i++ {
		ch := rest[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[:i+1], true
			}
		}
	}
	return "", false
}
