package gist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jimdaga/morning-gist/internal/models"
)

// UserSource lists user records for the batch.
type UserSource interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

// Producer generates one user's gist.
type Producer interface {
	Generate(ctx context.Context, user models.UserView, now time.Time) (*models.MorningGist, error)
}

// Result summarizes a batch run.
type Result struct {
	Processed int
	Succeeded int
	Failed    int
}

// Batch runs gist generation for every user.
type Batch struct {
	users    UserSource
	producer Producer
	logger   *slog.Logger
}

// NewBatch creates a Batch.
func NewBatch(users UserSource, producer Producer, logger *slog.Logger) *Batch {
	return &Batch{users: users, producer: producer, logger: logger}
}

// RunAll generates gists for all users concurrently and waits for every one
// to settle. Per-user failures are logged and counted; only a failure to
// list users is returned.
func (b *Batch) RunAll(ctx context.Context, now time.Time) (Result, error) {
	users, err := b.users.ListUsers(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list users: %w", err)
	}

	b.logger.Info("Starting morning gist run", "users", len(users))

	var (
		wg      sync.WaitGroup
		failed  atomic.Int64
		skipped int
	)
	for i := range users {
		if strings.TrimSpace(users[i].UID) == "" {
			skipped++
			continue
		}
		view := users[i].View()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.runView(ctx, view, now); err != nil {
				failed.Add(1)
			}
		}()
	}
	wg.Wait()

	res := Result{
		Processed: len(users) - skipped,
		Failed:    int(failed.Load()),
	}
	res.Succeeded = res.Processed - res.Failed

	b.logger.Info("Morning gist run complete",
		"processed", res.Processed,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"skipped", skipped,
	)
	return res, nil
}

// RunOne regenerates a single user's gist.
func (b *Batch) RunOne(ctx context.Context, uid string, now time.Time) error {
	user, err := b.users.GetUser(ctx, uid)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", uid, err)
	}
	return b.runView(ctx, user.View(), now)
}

func (b *Batch) runView(ctx context.Context, view models.UserView, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic generating gist: %v", r)
		}
		if err != nil {
			b.logger.Error("Morning gist generation failed", "user_id", view.UID, "error", err)
		}
	}()

	_, err = b.producer.Generate(ctx, view, now)
	return err
}
