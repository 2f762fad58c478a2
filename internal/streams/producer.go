package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jimdaga/morning-gist/internal/models"
	"github.com/redis/go-redis/v9"
)

// faxRequestsMaxLen bounds fax:requests; the fax worker acks well within it.
const faxRequestsMaxLen = 10000

// ErrInvalidFaxJob is returned for jobs the fax worker could not act on.
var ErrInvalidFaxJob = errors.New("invalid fax job")

// Publisher hands queued fax jobs to the external fax worker.
type Publisher struct {
	rdb *redis.Client
	now func() time.Time
}

// NewPublisher creates a Publisher from a redis:// URL.
func NewPublisher(redisURL string) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return NewPublisherWithClient(redis.NewClient(opts)), nil
}

// NewPublisherWithClient wraps an existing client.
func NewPublisherWithClient(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb, now: time.Now}
}

// PublishFaxJob adds job to fax:requests and returns the stream entry ID.
// The job must already be persisted in fax_queue.
func (p *Publisher) PublishFaxJob(ctx context.Context, job models.FaxJob) (string, error) {
	values, err := faxRequestValues(job, p.now().UTC())
	if err != nil {
		return "", err
	}

	id, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamFaxRequests,
		MaxLen: faxRequestsMaxLen,
		Approx: true,
		ID:     "*",
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish fax job %d: %w", job.ID, err)
	}
	return id, nil
}

// faxRequestValues builds the stream entry for job. uid and date_key are
// duplicated outside the payload so the fax worker can route without decoding.
func faxRequestValues(job models.FaxJob, now time.Time) (map[string]any, error) {
	switch {
	case job.ID == 0:
		return nil, fmt.Errorf("%w: job not persisted", ErrInvalidFaxJob)
	case strings.TrimSpace(job.UserUID) == "" || job.DateKey == "":
		return nil, fmt.Errorf("%w: missing user or date", ErrInvalidFaxJob)
	case strings.TrimSpace(job.FaxNumber) == "":
		return nil, fmt.Errorf("%w: missing fax number", ErrInvalidFaxJob)
	}

	queuedAt := job.CreatedAt
	if queuedAt.IsZero() {
		queuedAt = now
	}

	payload, err := json.Marshal(FaxRequest{
		JobID:     job.ID,
		UID:       job.UserUID,
		DateKey:   job.DateKey,
		FaxNumber: job.FaxNumber,
		QueuedAt:  queuedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fax request: %w", err)
	}

	return map[string]any{
		"payload":        string(payload),
		"uid":            job.UserUID,
		"date_key":       job.DateKey,
		"published_at":   now.Unix(),
		"schema_version": SchemaVersionV1,
	}, nil
}

// Close closes the Redis client connection
func (p *Publisher) Close() error {
	return p.rdb.Close()
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
