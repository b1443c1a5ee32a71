package worker

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskGenerateContent = "content:generate"
	TaskTranscribeAudio = "audio:transcribe"
	TaskPublishDue      = "schedule:publish-due"
)

// Package-level Asynq client (singleton)
var client *asynq.Client

// InitClient initializes the global Asynq client for task enqueueing.
// Must be called before any EnqueueX functions.
func InitClient(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return err
	}

	client = asynq.NewClient(opt)
	return nil
}

// CloseClient closes the Asynq client connection gracefully.
func CloseClient() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// jobPayload is the payload shared by the content and audio tasks.
type jobPayload struct {
	JobID uint `json:"job_id"`
}

// EnqueueGenerateContent enqueues the pipeline run for the given job.
// Retried up to 3 times with exponential backoff on failure.
func EnqueueGenerateContent(jobID uint) error {
	payload, err := json.Marshal(jobPayload{JobID: jobID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(
		TaskGenerateContent,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	_, err = client.Enqueue(task)
	return err
}

// EnqueueTranscribeAudio enqueues the audio transcription fallback for the
// given job. The long timeout covers the audio download plus transcription.
func EnqueueTranscribeAudio(jobID uint) error {
	payload, err := json.Marshal(jobPayload{JobID: jobID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(
		TaskTranscribeAudio,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	_, err = client.Enqueue(task)
	return err
}
