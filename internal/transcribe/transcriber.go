// Package transcribe is the last-resort acquisition path: download a video's
// audio and run speech-to-text when no caption track exists. It is slow and
// resource-heavy, so it only ever runs behind the task queue.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// TranscriptionFailedError is the opaque failure for the audio path.
type TranscriptionFailedError struct {
	Cause error
}

func (e *TranscriptionFailedError) Error() string {
	return fmt.Sprintf("audio transcription failed: %v", e.Cause)
}

func (e *TranscriptionFailedError) Unwrap() error {
	return e.Cause
}

// Transcriber turns a video ID into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, videoID string) (string, error)
}

// WhisperTranscriber downloads the audio track with yt-dlp and sends it to
// the OpenAI transcription endpoint.
type WhisperTranscriber struct {
	client     *openai.Client
	binaryPath string
	workDir    string
}

// NewWhisperTranscriber creates a transcriber. binaryPath defaults to
// "yt-dlp"; workDir defaults to the OS temp directory.
func NewWhisperTranscriber(apiKey, binaryPath, workDir string) *WhisperTranscriber {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &WhisperTranscriber{
		client:     openai.NewClient(apiKey),
		binaryPath: binaryPath,
		workDir:    workDir,
	}
}

// Transcribe downloads the audio for videoID and returns the transcribed
// text. Failures are wrapped in TranscriptionFailedError.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, videoID string) (string, error) {
	audioPath, err := t.downloadAudio(ctx, videoID)
	if err != nil {
		return "", &TranscriptionFailedError{Cause: err}
	}
	defer os.Remove(audioPath)

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
	})
	if err != nil {
		return "", &TranscriptionFailedError{Cause: err}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", &TranscriptionFailedError{Cause: fmt.Errorf("transcription produced no text")}
	}
	return text, nil
}

// downloadAudio extracts the audio track to an m4a file in the work dir.
func (t *WhisperTranscriber) downloadAudio(ctx context.Context, videoID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Minute)
	defer cancel()

	outPath := filepath.Join(t.workDir, fmt.Sprintf("repurpose-audio-%s.m4a", videoID))
	cmd := exec.CommandContext(ctx, t.binaryPath,
		"--no-warnings",
		"-f", "bestaudio[ext=m4a]/bestaudio",
		"-o", outPath,
		fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID),
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		return "", fmt.Errorf("audio download failed: %s", reason)
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("audio file missing after download: %w", err)
	}
	return outPath, nil
}
