package streams

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jimdaga/morning-gist/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaxRequestValues(t *testing.T) {
	now := time.Date(2025, 1, 10, 11, 0, 0, 0, time.UTC)
	queued := time.Date(2025, 1, 10, 10, 59, 0, 0, time.FixedZone("EST", -5*3600))

	values, err := faxRequestValues(models.FaxJob{
		ID:        7,
		UserUID:   "u1",
		DateKey:   "2025-01-10",
		FaxNumber: "+15551234567",
		CreatedAt: queued,
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "u1", values["uid"])
	assert.Equal(t, "2025-01-10", values["date_key"])
	assert.Equal(t, now.Unix(), values["published_at"])
	assert.Equal(t, SchemaVersionV1, values["schema_version"])

	var req FaxRequest
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &req))
	assert.Equal(t, uint(7), req.JobID)
	assert.Equal(t, "+15551234567", req.FaxNumber)
	assert.True(t, queued.Equal(req.QueuedAt))
	assert.Equal(t, time.UTC, req.QueuedAt.Location())
}

func TestFaxRequestValuesDefaultsQueuedAt(t *testing.T) {
	now := time.Date(2025, 1, 10, 11, 0, 0, 0, time.UTC)

	values, err := faxRequestValues(models.FaxJob{ID: 1, UserUID: "u1", DateKey: "2025-01-10", FaxNumber: "+1555"}, now)
	require.NoError(t, err)

	var req FaxRequest
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &req))
	assert.True(t, now.Equal(req.QueuedAt))
}

func TestPublishFaxJobRejectsInvalidJobs(t *testing.T) {
	// Validation fails before any Redis round trip, so no server is needed.
	p := NewPublisherWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}))
	t.Cleanup(func() { _ = p.Close() })

	tests := []struct {
		name string
		job  models.FaxJob
	}{
		{"not persisted", models.FaxJob{UserUID: "u1", DateKey: "2025-01-10", FaxNumber: "+1555"}},
		{"missing user", models.FaxJob{ID: 1, DateKey: "2025-01-10", FaxNumber: "+1555"}},
		{"missing date", models.FaxJob{ID: 1, UserUID: "u1", FaxNumber: "+1555"}},
		{"missing number", models.FaxJob{ID: 1, UserUID: "u1", DateKey: "2025-01-10", FaxNumber: " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.PublishFaxJob(context.Background(), tt.job)
			assert.ErrorIs(t, err, ErrInvalidFaxJob)
		})
	}
}
