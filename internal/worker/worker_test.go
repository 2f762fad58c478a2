package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/morning-gist/internal/gist"
	"github.com/jimdaga/morning-gist/internal/logging"
	"github.com/jimdaga/morning-gist/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	allCalls int
	oneUIDs  []string
	allErr   error
	oneErr   error
	seenNow  time.Time
}

func (f *fakeRunner) RunAll(_ context.Context, now time.Time) (gist.Result, error) {
	f.allCalls++
	f.seenNow = now
	return gist.Result{Processed: 2, Succeeded: 1, Failed: 1}, f.allErr
}

func (f *fakeRunner) RunOne(_ context.Context, uid string, now time.Time) error {
	f.oneUIDs = append(f.oneUIDs, uid)
	f.seenNow = now
	return f.oneErr
}

var fixedNow = time.Date(2025, 1, 10, 12, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestScheduledGistHandler(t *testing.T) {
	runner := &fakeRunner{}
	mux := newMux(runner, logging.Discard(), clock)

	err := mux.ProcessTask(context.Background(), NewScheduledGistTask())

	require.NoError(t, err, "per-user failures do not fail the batch task")
	assert.Equal(t, 1, runner.allCalls)
	assert.Equal(t, fixedNow, runner.seenNow)

	runner.allErr = errors.New("db down")
	assert.Error(t, mux.ProcessTask(context.Background(), NewScheduledGistTask()))
}

func TestGenerateGistHandler(t *testing.T) {
	runner := &fakeRunner{}
	mux := newMux(runner, logging.Discard(), clock)

	task, err := NewGenerateGistTask("u1")
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))
	assert.Equal(t, []string{"u1"}, runner.oneUIDs)

	bad := asynq.NewTask(TaskGenerateGist, []byte("not-json"))
	assert.ErrorIs(t, mux.ProcessTask(context.Background(), bad), asynq.SkipRetry)

	blank := asynq.NewTask(TaskGenerateGist, []byte(`{"uid":" "}`))
	assert.ErrorIs(t, mux.ProcessTask(context.Background(), blank), asynq.SkipRetry)

	runner.oneErr = fmt.Errorf("load: %w", store.ErrNotFound)
	assert.ErrorIs(t, mux.ProcessTask(context.Background(), task), asynq.SkipRetry)

	runner.oneErr = errors.New("weather down")
	err = mux.ProcessTask(context.Background(), task)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry, "transient failures are retried")
}

func TestEnqueueWithoutClient(t *testing.T) {
	client = nil
	assert.ErrorIs(t, EnqueueGenerateGist("u1"), ErrClientNotInitialized)
}
