package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskScheduledGist = "gist:scheduled"
	TaskGenerateGist  = "gist:generate"
)

// ErrClientNotInitialized is returned by Enqueue functions before InitClient.
var ErrClientNotInitialized = errors.New("task client not initialized")

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

type generatePayload struct {
	UID string `json:"uid"`
}

// NewGenerateGistTask builds a single-user regeneration task. Repeat requests
// for the same user within a minute are collapsed.
func NewGenerateGistTask(uid string) (*asynq.Task, error) {
	payload, err := json.Marshal(generatePayload{UID: uid})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskGenerateGist,
		payload,
		asynq.MaxRetry(2),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(time.Minute),
	), nil
}

// NewScheduledGistTask builds the all-users batch task. A batch is never
// retried automatically.
func NewScheduledGistTask() *asynq.Task {
	return asynq.NewTask(
		TaskScheduledGist,
		nil, // handler lists all users
		asynq.MaxRetry(0),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(23*time.Hour),
	)
}

// EnqueueGenerateGist enqueues a regeneration of uid's gist for today.
func EnqueueGenerateGist(uid string) error {
	if client == nil {
		return ErrClientNotInitialized
	}

	task, err := NewGenerateGistTask(uid)
	if err != nil {
		return err
	}

	if _, err := client.Enqueue(task); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("failed to enqueue gist generation: %w", err)
	}
	return nil
}
