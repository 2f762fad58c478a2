package streams

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jimdaga/morning-gist/internal/models"
)

// DeliveryRecorder persists the outcome of a fax delivery
type DeliveryRecorder interface {
	UpdateGistDeliveryStatus(ctx context.Context, uid, dateKey string, status models.DeliveryStatus, deliveredAt *time.Time) error
	UpdateFaxJobStatus(ctx context.Context, uid, dateKey string, status models.FaxJobStatus) error
	AppendDeliveryLog(ctx context.Context, entry *models.DeliveryLog) error
}

// HandleFaxResult returns a handler function that records fax outcomes on
// the gist, the fax queue row and the delivery log
func HandleFaxResult(recorder DeliveryRecorder, logger *slog.Logger) func(context.Context, FaxResult) error {
	return func(ctx context.Context, result FaxResult) error {
		if result.UID == "" || result.DateKey == "" {
			return fmt.Errorf("fax result missing uid or dateKey")
		}

		var (
			gistStatus  models.DeliveryStatus
			jobStatus   models.FaxJobStatus
			deliveredAt *time.Time
		)

		switch result.Status {
		case FaxResultDelivered:
			now := time.Now().UTC()
			gistStatus = models.DeliveryStatusDelivered
			jobStatus = models.FaxJobSent
			deliveredAt = &now

			logger.Info("Fax delivered", "user_id", result.UID, "date_key", result.DateKey)
		case FaxResultFailed:
			gistStatus = models.DeliveryStatusFailed
			jobStatus = models.FaxJobFailed

			logger.Error("Fax delivery failed",
				"user_id", result.UID,
				"date_key", result.DateKey,
				"error", result.Error,
			)
		default:
			return fmt.Errorf("unknown status: %s", result.Status)
		}

		if err := recorder.UpdateGistDeliveryStatus(ctx, result.UID, result.DateKey, gistStatus, deliveredAt); err != nil {
			return fmt.Errorf("failed to update gist delivery: %w", err)
		}
		if err := recorder.UpdateFaxJobStatus(ctx, result.UID, result.DateKey, jobStatus); err != nil {
			return fmt.Errorf("failed to update fax job: %w", err)
		}
		if err := recorder.AppendDeliveryLog(ctx, &models.DeliveryLog{
			UserUID: result.UID,
			Type:    models.DeliveryLogMorning,
			Method:  models.DeliveryFax,
			Status:  gistStatus,
			Pages:   result.Pages,
		}); err != nil {
			return fmt.Errorf("failed to append delivery log: %w", err)
		}

		return nil
	}
}
