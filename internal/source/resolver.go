// Package source resolves a video URL into usable text for the pipeline. It
// implements the acquisition fallback chain: caption track first, metadata
// scrape for unexpected transcript failures, and a Pending signal that routes
// the job to audio transcription when no text track exists.
package source

import (
	"context"
	"errors"
	"log/slog"
)

// SourceKind tags a ResolvedSource.
type SourceKind int

const (
	// KindTranscript carries the full caption text.
	KindTranscript SourceKind = iota
	// KindMetadata carries a scraped metadata bundle instead of text.
	KindMetadata
	// KindPending means no text track exists; audio transcription should run.
	KindPending
)

// Metadata is the scraped bundle used when no transcript is available.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ChannelName string `json:"channel_name"`
	Duration    int    `json:"duration,omitempty"`
	ViewCount   int64  `json:"view_count,omitempty"`
	VideoID     string `json:"video_id"`
}

// ResolvedSource is the tagged result of a resolution attempt. Exactly one of
// Text or Meta is meaningful, selected by Kind.
type ResolvedSource struct {
	Kind SourceKind
	Text string
	Meta Metadata
}

// Track describes one caption track offered by the upstream listing.
type Track struct {
	LanguageCode string
	Generated    bool
	BaseURL      string
}

// TrackLister is the upstream transcript listing/fetch capability. List
// returns the classified sentinel errors from errors.go; Fetch returns the
// space-joined segment text for one track.
type TrackLister interface {
	List(ctx context.Context, videoID string) ([]Track, error)
	Fetch(ctx context.Context, track Track) (string, error)
}

// MetadataFetcher is the scrape capability used as the secondary fallback.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, sourceURL string) (Metadata, error)
}

// TranscriptCache caches resolved transcript text by video ID. Implementations
// must treat errors as misses; the resolver never fails on cache trouble.
type TranscriptCache interface {
	Get(ctx context.Context, videoID string) (string, bool)
	Set(ctx context.Context, videoID, text string)
}

// Resolver runs the acquisition chain.
type Resolver struct {
	lister TrackLister
	meta   MetadataFetcher
	cache  TranscriptCache
	logger *slog.Logger
}

// NewResolver constructs a Resolver. cache may be nil.
func NewResolver(lister TrackLister, meta MetadataFetcher, cache TranscriptCache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{lister: lister, meta: meta, cache: cache, logger: logger}
}

// english locales accepted for caption tracks, manual preferred
var manualLanguages = map[string]bool{"en": true, "en-US": true, "en-GB": true}

// Resolve turns a source URL into transcript text, a metadata bundle, or a
// Pending signal. Error classes:
//   - ErrSourceNotResolvable: the URL carries no video ID
//   - *AccessDeniedError: upstream policy block, terminal, no fallback ran
//   - *SourceUnavailableError: transcript and metadata paths both exhausted
func (r *Resolver) Resolve(ctx context.Context, sourceURL string) (ResolvedSource, error) {
	videoID, err := ExtractVideoID(sourceURL)
	if err != nil {
		return ResolvedSource{}, err
	}

	if r.cache != nil {
		if text, ok := r.cache.Get(ctx, videoID); ok {
			r.logger.Debug("Transcript cache hit", "video_id", videoID)
			return ResolvedSource{Kind: KindTranscript, Text: text}, nil
		}
	}

	text, err := r.fetchTranscript(ctx, videoID)
	if err == nil {
		if r.cache != nil {
			r.cache.Set(ctx, videoID, text)
		}
		return ResolvedSource{Kind: KindTranscript, Text: text}, nil
	}

	// Access denied is a terminal negative result. Falling back here would
	// waste retries on content that will never be served.
	if isAccessDenied(err) {
		return ResolvedSource{}, &AccessDeniedError{Reason: err.Error()}
	}

	// Missing or unusable caption track: audio transcription can still
	// rescue this video.
	if pendingClass(err) {
		r.logger.Info("No usable transcript track, deferring to audio transcription",
			"video_id", videoID, "reason", err.Error())
		return ResolvedSource{Kind: KindPending}, nil
	}

	// Anything else is a library quirk or transient upstream fault. Try the
	// metadata scrape before giving up.
	r.logger.Warn("Transcript fetch failed, falling back to metadata",
		"video_id", videoID, "error", err.Error())

	meta, metaErr := r.meta.FetchMetadata(ctx, sourceURL)
	if metaErr != nil {
		return ResolvedSource{}, &SourceUnavailableError{TranscriptErr: err, MetadataErr: metaErr}
	}
	return ResolvedSource{Kind: KindMetadata, Meta: meta}, nil
}

// fetchTranscript lists tracks, picks the preferred one and fetches its text.
func (r *Resolver) fetchTranscript(ctx context.Context, videoID string) (string, error) {
	tracks, err := r.lister.List(ctx, videoID)
	if err != nil {
		return "", err
	}

	track, ok := selectTrack(tracks)
	if !ok {
		return "", ErrLanguageNotSupported
	}

	text, err := r.lister.Fetch(ctx, track)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

// selectTrack prefers a manually created English-family track, then a
// generated English one.
func selectTrack(tracks []Track) (Track, bool) {
	for _, t := range tracks {
		if !t.Generated && manualLanguages[t.LanguageCode] {
			return t, true
		}
	}
	for _, t := range tracks {
		if t.Generated && t.LanguageCode == "en" {
			return t, true
		}
	}
	return Track{}, false
}

func isAccessDenied(err error) bool {
	return errors.Is(err, ErrVideoUnavailable)
}
