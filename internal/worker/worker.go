package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/morning-gist/internal/config"
	"github.com/jimdaga/morning-gist/internal/gist"
	"github.com/jimdaga/morning-gist/internal/store"
)

const concurrency = 5

// Runner generates gists for all users or for one.
type Runner interface {
	RunAll(ctx context.Context, now time.Time) (gist.Result, error)
	RunOne(ctx context.Context, uid string, now time.Time) error
}

// Run starts the Asynq worker server and blocks until shutdown signal.
// Use this for standalone worker mode.
func Run(cfg *config.Config, runner Runner, logger *slog.Logger) error {
	srv, mux, err := newServer(cfg, runner, logger)
	if err != nil {
		return err
	}

	// Run blocks and handles its own signal interception
	return srv.Run(mux)
}

// Start starts the Asynq worker in non-blocking mode and returns a stop function.
// Use this for embedded mode so the caller can coordinate shutdown.
func Start(cfg *config.Config, runner Runner, logger *slog.Logger) (stop func(), err error) {
	srv, mux, err := newServer(cfg, runner, logger)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, runner Runner, logger *slog.Logger) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     concurrency,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	mux := newMux(runner, logger, time.Now)

	logger.Info("Worker starting", "concurrency", concurrency)
	return srv, mux, nil
}

func newMux(runner Runner, logger *slog.Logger, now func() time.Time) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskScheduledGist, handleScheduledGist(logger, runner, now))
	mux.HandleFunc(TaskGenerateGist, handleGenerateGist(logger, runner, now))
	return mux
}

// handleScheduledGist runs the batch for every user. Individual user
// failures never fail the task.
func handleScheduledGist(logger *slog.Logger, runner Runner, now func() time.Time) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		logger.Info("Processing gist:scheduled task")

		res, err := runner.RunAll(ctx, now())
		if err != nil {
			return fmt.Errorf("scheduled gist run failed: %w", err)
		}

		logger.Info("Scheduled gist run finished", "processed", res.Processed, "failed", res.Failed)
		return nil
	}
}

// handleGenerateGist regenerates one user's gist for today.
func handleGenerateGist(logger *slog.Logger, runner Runner, now func() time.Time) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload generatePayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			// Invalid payload - don't retry
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}
		if strings.TrimSpace(payload.UID) == "" {
			return fmt.Errorf("missing uid: %w", asynq.SkipRetry)
		}

		logger.Info("Processing gist:generate task", "user_id", payload.UID)

		if err := runner.RunOne(ctx, payload.UID, now()); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				logger.Error("User not found", "user_id", payload.UID)
				return fmt.Errorf("user not found: %w", asynq.SkipRetry)
			}
			return err
		}
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		// Check if this is the final failure (task will move to the archive)
		if retried >= maxRetry {
			logger.Error(
				"Task archived (all retries exhausted)",
				"task_type", task.Type(),
				"payload", string(task.Payload()),
			)
		}
	}
}
