// Package gists serves a user's morning gists and delivery history.
package gists

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/morning-gist/internal/auth"
	"github.com/jimdaga/morning-gist/internal/datekey"
	"github.com/jimdaga/morning-gist/internal/models"
	"github.com/jimdaga/morning-gist/internal/store"
)

const (
	defaultLimit = 30
	maxLimit     = 100
)

// Reader is the read side of the gist store.
type Reader interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
	GetGist(ctx context.Context, uid, dateKey string) (*models.MorningGist, error)
	ListGists(ctx context.Context, uid string, limit int) ([]models.MorningGist, error)
	ListDeliveryLogs(ctx context.Context, uid string, limit int) ([]models.DeliveryLog, error)
}

// TodayHandler returns today's gist in the caller's timezone
func TodayHandler(reader Reader, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := auth.CurrentUID(c)

		tz := datekey.FallbackTimezone
		user, err := reader.GetUser(c.Request.Context(), uid)
		switch {
		case err == nil:
			tz = datekey.SafeTimezone(user.Preferences.Data().Timezone)
		case !errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}

		respondGist(c, reader, uid, datekey.FromTime(now(), tz))
	}
}

// GetHandler returns one gist by date key
func GetHandler(reader Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		dateKey := c.Param("date")
		if !datekey.Valid(dateKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date"})
			return
		}
		respondGist(c, reader, auth.CurrentUID(c), dateKey)
	}
}

func respondGist(c *gin.Context, reader Reader, uid, dateKey string) {
	gist, err := reader.GetGist(c.Request.Context(), uid, dateKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Gist not found", "date": dateKey})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load gist"})
		return
	}
	c.JSON(http.StatusOK, gist)
}

// ListHandler returns the caller's archive, newest first
func ListHandler(reader Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		gists, err := reader.ListGists(c.Request.Context(), auth.CurrentUID(c), parseLimit(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list gists"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"gists": gists})
	}
}

// DeliveryLogsHandler returns the caller's delivery log, newest first
func DeliveryLogsHandler(reader Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		logs, err := reader.ListDeliveryLogs(c.Request.Context(), auth.CurrentUID(c), parseLimit(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list delivery logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deliveryLogs": logs})
	}
}

// GenerateHandler enqueues a regeneration of today's gist for the caller
func GenerateHandler(enqueue func(uid string) error, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := auth.CurrentUID(c)
		if err := enqueue(uid); err != nil {
			logger.Error("Failed to enqueue gist generation", "user_id", uid, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue gist generation"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	}
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", ""))
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}
