package source

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type fakeLister struct {
	tracks    []Track
	listErr   error
	fetchText string
	fetchErr  error
	listCalls int
}

func (f *fakeLister) List(ctx context.Context, videoID string) ([]Track, error) {
	f.listCalls++
	return f.tracks, f.listErr
}

func (f *fakeLister) Fetch(ctx context.Context, track Track) (string, error) {
	return f.fetchText, f.fetchErr
}

type fakeMetaFetcher struct {
	meta  Metadata
	err   error
	calls int
}

func (f *fakeMetaFetcher) FetchMetadata(ctx context.Context, sourceURL string) (Metadata, error) {
	f.calls++
	return f.meta, f.err
}

type fakeCache struct {
	entries map[string]string
	sets    int
}

func (f *fakeCache) Get(ctx context.Context, videoID string) (string, bool) {
	text, ok := f.entries[videoID]
	return text, ok
}

func (f *fakeCache) Set(ctx context.Context, videoID, text string) {
	f.sets++
	f.entries[videoID] = text
}

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestResolveTranscript(t *testing.T) {
	lister := &fakeLister{
		tracks:    []Track{{LanguageCode: "en", Generated: false}},
		fetchText: "hello world transcript",
	}
	meta := &fakeMetaFetcher{}
	r := NewResolver(lister, meta, nil, nil)

	resolved, err := r.Resolve(context.Background(), testURL)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved.Kind != KindTranscript {
		t.Errorf("Kind = %d, want KindTranscript", resolved.Kind)
	}
	if resolved.Text != "hello world transcript" {
		t.Errorf("Text = %q", resolved.Text)
	}
	if meta.calls != 0 {
		t.Errorf("metadata fetcher called %d times, want 0", meta.calls)
	}
}

func TestResolvePrefersManualTrack(t *testing.T) {
	tracks := []Track{
		{LanguageCode: "en", Generated: true, BaseURL: "generated"},
		{LanguageCode: "en-US", Generated: false, BaseURL: "manual"},
	}
	track, ok := selectTrack(tracks)
	if !ok {
		t.Fatal("selectTrack found no track")
	}
	if track.BaseURL != "manual" {
		t.Errorf("selected %q, want the manual track", track.BaseURL)
	}
}

func TestResolveGeneratedFallback(t *testing.T) {
	tracks := []Track{
		{LanguageCode: "fr", Generated: false, BaseURL: "french"},
		{LanguageCode: "en", Generated: true, BaseURL: "generated-en"},
	}
	track, ok := selectTrack(tracks)
	if !ok {
		t.Fatal("selectTrack found no track")
	}
	if track.BaseURL != "generated-en" {
		t.Errorf("selected %q, want the generated English track", track.BaseURL)
	}
}

func TestResolveAccessDeniedNeverFallsBack(t *testing.T) {
	lister := &fakeLister{listErr: fmt.Errorf("%w: video is private", ErrVideoUnavailable)}
	meta := &fakeMetaFetcher{}
	r := NewResolver(lister, meta, nil, nil)

	_, err := r.Resolve(context.Background(), testURL)
	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("error = %v, want AccessDeniedError", err)
	}
	if meta.calls != 0 {
		t.Errorf("metadata fetcher called %d times on access denial, want 0", meta.calls)
	}
}

func TestResolvePendingClasses(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"transcripts disabled", ErrTranscriptsDisabled},
		{"no transcript", ErrNoTranscript},
		{"wrapped disabled", fmt.Errorf("upstream: %w", ErrTranscriptsDisabled)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeLister{listErr: tt.err}
			meta := &fakeMetaFetcher{}
			r := NewResolver(lister, meta, nil, nil)

			resolved, err := r.Resolve(context.Background(), testURL)
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if resolved.Kind != KindPending {
				t.Errorf("Kind = %d, want KindPending", resolved.Kind)
			}
			if meta.calls != 0 {
				t.Errorf("metadata fetcher called %d times for pending class, want 0", meta.calls)
			}
		})
	}
}

func TestResolveUnsupportedLanguageIsPending(t *testing.T) {
	lister := &fakeLister{tracks: []Track{{LanguageCode: "de", Generated: false}}}
	r := NewResolver(lister, &fakeMetaFetcher{}, nil, nil)

	resolved, err := r.Resolve(context.Background(), testURL)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved.Kind != KindPending {
		t.Errorf("Kind = %d, want KindPending for unsupported language", resolved.Kind)
	}
}

func TestResolveEmptyFetchIsPending(t *testing.T) {
	lister := &fakeLister{
		tracks:    []Track{{LanguageCode: "en"}},
		fetchText: "",
	}
	r := NewResolver(lister, &fakeMetaFetcher{}, nil, nil)

	resolved, err := r.Resolve(context.Background(), testURL)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved.Kind != KindPending {
		t.Errorf("Kind = %d, want KindPending for empty transcript", resolved.Kind)
	}
}

func TestResolveMetadataFallback(t *testing.T) {
	lister := &fakeLister{listErr: errors.New("unexpected parse failure")}
	meta := &fakeMetaFetcher{meta: Metadata{Title: "A Video", ChannelName: "A Channel"}}
	r := NewResolver(lister, meta, nil, nil)

	resolved, err := r.Resolve(context.Background(), testURL)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved.Kind != KindMetadata {
		t.Errorf("Kind = %d, want KindMetadata", resolved.Kind)
	}
	if resolved.Meta.Title != "A Video" {
		t.Errorf("Meta.Title = %q", resolved.Meta.Title)
	}
	if meta.calls != 1 {
		t.Errorf("metadata fetcher called %d times, want 1", meta.calls)
	}
}

func TestResolveBothPathsExhausted(t *testing.T) {
	transcriptErr := errors.New("unexpected parse failure")
	metaErr := &MetadataUnavailableError{Reason: "could not retrieve video title"}
	lister := &fakeLister{listErr: transcriptErr}
	meta := &fakeMetaFetcher{err: metaErr}
	r := NewResolver(lister, meta, nil, nil)

	_, err := r.Resolve(context.Background(), testURL)
	var unavailable *SourceUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("error = %v, want SourceUnavailableError", err)
	}
	if unavailable.TranscriptErr != transcriptErr {
		t.Errorf("TranscriptErr = %v", unavailable.TranscriptErr)
	}
	if unavailable.MetadataErr == nil {
		t.Error("MetadataErr not preserved")
	}
}

func TestResolveBadURL(t *testing.T) {
	r := NewResolver(&fakeLister{}, &fakeMetaFetcher{}, nil, nil)
	_, err := r.Resolve(context.Background(), "https://www.youtube.com/watch")
	if !errors.Is(err, ErrSourceNotResolvable) {
		t.Errorf("error = %v, want ErrSourceNotResolvable", err)
	}
}

func TestResolveUsesCache(t *testing.T) {
	cache := &fakeCache{entries: map[string]string{"dQw4w9WgXcQ": "cached text"}}
	lister := &fakeLister{}
	r := NewResolver(lister, &fakeMetaFetcher{}, cache, nil)

	resolved, err := r.Resolve(context.Background(), testURL)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved.Text != "cached text" {
		t.Errorf("Text = %q, want cached text", resolved.Text)
	}
	if lister.listCalls != 0 {
		t.Errorf("lister called %d times on cache hit, want 0", lister.listCalls)
	}
}

func TestResolvePopulatesCache(t *testing.T) {
	cache := &fakeCache{entries: map[string]string{}}
	lister := &fakeLister{
		tracks:    []Track{{LanguageCode: "en"}},
		fetchText: "fresh text",
	}
	r := NewResolver(lister, &fakeMetaFetcher{}, cache, nil)

	if _, err := r.Resolve(context.Background(), testURL); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cache.sets != 1 {
		t.Errorf("cache.Set called %d times, want 1", cache.sets)
	}
}
