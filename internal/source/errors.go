package source

import (
	"errors"
	"fmt"
)

// ErrSourceNotResolvable means the source reference did not contain a video ID
// in any of the known URL shapes. User input error, surfaced as a 4xx.
var ErrSourceNotResolvable = errors.New("could not extract video ID from source URL")

// Upstream classification sentinels returned by a TrackLister. The resolver
// maps these onto the fallback chain; callers outside this package should not
// need them.
var (
	// ErrVideoUnavailable covers private, deleted, age-restricted and
	// region-locked videos. Terminal: no fallback path may run.
	ErrVideoUnavailable = errors.New("video is unavailable")

	// ErrTranscriptsDisabled means the uploader turned captions off.
	ErrTranscriptsDisabled = errors.New("transcripts are disabled for this video")

	// ErrNoTranscript means no caption track exists at all.
	ErrNoTranscript = errors.New("no transcript found for this video")

	// ErrLanguageNotSupported means tracks exist but none in a usable language.
	ErrLanguageNotSupported = errors.New("no transcript in a supported language")

	// ErrEmptyTranscript means a track was fetched but yielded no text.
	ErrEmptyTranscript = errors.New("transcript content is empty")
)

// AccessDeniedError is the terminal negative result for videos the upstream
// will never serve (private, age-restricted, removed). The resolver guarantees
// no metadata or audio fallback is attempted once this is raised.
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("video is inaccessible: %s", e.Reason)
}

// SourceUnavailableError means both the transcript path and the metadata
// fallback were exhausted. Both causes are preserved for diagnostics.
type SourceUnavailableError struct {
	TranscriptErr error
	MetadataErr   error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("transcript and metadata both unavailable. Transcript error: %v. Metadata error: %v",
		e.TranscriptErr, e.MetadataErr)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.TranscriptErr
}

// MetadataUnavailableError is raised by a MetadataFetcher when the scrape
// path cannot produce a usable bundle.
type MetadataUnavailableError struct {
	Reason string
}

func (e *MetadataUnavailableError) Error() string {
	return fmt.Sprintf("video metadata not available: %s", e.Reason)
}

// pendingClass reports whether err belongs to the retryable-by-other-means
// class that routes the job to audio transcription.
func pendingClass(err error) bool {
	return errors.Is(err, ErrTranscriptsDisabled) ||
		errors.Is(err, ErrNoTranscript) ||
		errors.Is(err, ErrLanguageNotSupported) ||
		errors.Is(err, ErrEmptyTranscript)
}
