package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// YtDlpMetadataFetcher implements MetadataFetcher using the local yt-dlp
// binary. --dump-json skips the download and emits one JSON object with the
// video's metadata.
type YtDlpMetadataFetcher struct {
	binaryPath string
}

// NewYtDlpMetadataFetcher creates a fetcher. binaryPath defaults to "yt-dlp"
// on PATH when empty.
func NewYtDlpMetadataFetcher(binaryPath string) *YtDlpMetadataFetcher {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}
	return &YtDlpMetadataFetcher{binaryPath: binaryPath}
}

// ytDlpInfo mirrors the yt-dlp JSON fields we keep.
type ytDlpInfo struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Uploader    string  `json:"uploader"`
	Channel     string  `json:"channel"`
	Duration    float64 `json:"duration"`
	ViewCount   int64   `json:"view_count"`
}

// FetchMetadata shells out to yt-dlp for the given URL. A missing title is
// fatal for this path: the extraction prompt cannot generalize from nothing.
func (f *YtDlpMetadataFetcher) FetchMetadata(ctx context.Context, sourceURL string) (Metadata, error) {
	if sourceURL == "" {
		return Metadata{}, &MetadataUnavailableError{Reason: "empty URL provided"}
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.binaryPath,
		"--dump-json",
		"--no-warnings",
		"--skip-download",
		sourceURL,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		return Metadata{}, &MetadataUnavailableError{Reason: reason}
	}

	var info ytDlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return Metadata{}, &MetadataUnavailableError{Reason: fmt.Sprintf("failed to parse yt-dlp output: %v", err)}
	}

	if info.Title == "" {
		return Metadata{}, &MetadataUnavailableError{Reason: "could not retrieve video title"}
	}

	channel := info.Uploader
	if channel == "" {
		channel = info.Channel
	}

	return Metadata{
		Title:       info.Title,
		Description: info.Description,
		ChannelName: channel,
		Duration:    int(info.Duration),
		ViewCount:   info.ViewCount,
		VideoID:     info.ID,
	}, nil
}
