// Package gist assembles a user's morning gist and fans generation out
// across all users.
package gist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jimdaga/morning-gist/internal/datekey"
	"github.com/jimdaga/morning-gist/internal/models"
	"github.com/jimdaga/morning-gist/internal/weather"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// Store persists generated gists and their side records.
type Store interface {
	SaveGist(ctx context.Context, gist *models.MorningGist) error
	AppendDeliveryLog(ctx context.Context, entry *models.DeliveryLog) error
	CreateFaxJob(ctx context.Context, job *models.FaxJob) error
}

// WeatherSource produces the one-line weather summary.
type WeatherSource interface {
	Forecast(ctx context.Context, q weather.Query) (*weather.Result, error)
}

// CalendarSource lists a day's calendar items. It never fails.
type CalendarSource interface {
	FetchItems(ctx context.Context, uid, dateKey, timeZone string) []models.CalendarItem
}

// WorldSource lists world headlines. It never fails.
type WorldSource interface {
	Items(ctx context.Context, domains []string) []models.WorldItem
}

// FaxPublisher hands a queued fax job to the fax worker.
type FaxPublisher interface {
	PublishFaxJob(ctx context.Context, job models.FaxJob) (string, error)
}

// Deps are the collaborators of a Generator. Fax may be nil, in which case
// fax jobs are only written to the queue table.
type Deps struct {
	Store    Store
	Weather  WeatherSource
	Calendar CalendarSource
	World    WorldSource
	Fax      FaxPublisher
}

// Generator builds and stores one user's gist.
type Generator struct {
	deps   Deps
	logger *slog.Logger
	clock  func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(deps Deps, logger *slog.Logger) *Generator {
	return &Generator{deps: deps, logger: logger, clock: time.Now}
}

// Generate builds the gist for user at now and stores it under the date key
// of now in the user's timezone. Running it again for the same day
// overwrites the gist and appends another delivery log row.
func (g *Generator) Generate(ctx context.Context, user models.UserView, now time.Time) (*models.MorningGist, error) {
	prefs := user.Preferences
	tz := datekey.SafeTimezone(prefs.Timezone)
	dateKey := datekey.FromTime(now, tz)
	method := ResolveDeliveryMethod(user)
	pages := EstimatePages(prefs.MaxPages)

	var (
		summary    string
		dayItems   []models.CalendarItem
		worldItems []models.WorldItem
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		res, err := g.deps.Weather.Forecast(egCtx, weather.Query{Q: cityFor(prefs), Days: 1, AQI: false, Alerts: true})
		if err != nil {
			return fmt.Errorf("weather: %w", err)
		}
		summary = res.Summary
		return nil
	})
	eg.Go(func() error {
		dayItems = g.deps.Calendar.FetchItems(egCtx, user.UID, dateKey, tz)
		return nil
	})
	eg.Go(func() error {
		worldItems = g.deps.World.Items(egCtx, domainsFor(prefs))
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if dayItems == nil {
		dayItems = []models.CalendarItem{}
	}
	if worldItems == nil {
		worldItems = []models.WorldItem{}
	}

	firstEvent := FirstEventLabel(dayItems)

	gist := &models.MorningGist{
		GistID:         uuid.New().String(),
		UserUID:        user.UID,
		DateKey:        dateKey,
		Timezone:       tz,
		WeatherSummary: summary,
		FirstEvent:     firstEvent,
		DayItems:       dayItems,
		WorldItems:     worldItems,
		GistBullets:    Bullets(firstEvent),
		OneThing:       OneThing,
		CreatedAt:      g.clock().UTC(),
	}
	gist.Delivery = datatypes.NewJSONType(models.GistDelivery{
		Method: method,
		Pages:  pages,
		Status: models.DeliveryStatusQueued,
	})

	if err := g.deps.Store.SaveGist(ctx, gist); err != nil {
		return nil, fmt.Errorf("failed to save gist: %w", err)
	}

	if err := g.deps.Store.AppendDeliveryLog(ctx, &models.DeliveryLog{
		UserUID: user.UID,
		Type:    models.DeliveryLogMorning,
		Method:  method,
		Status:  models.DeliveryStatusQueued,
		Pages:   &pages,
	}); err != nil {
		return nil, fmt.Errorf("failed to append delivery log: %w", err)
	}

	if method == models.DeliveryFax && user.Delivery.FaxNumber != "" {
		if err := g.queueFax(ctx, user.UID, dateKey, user.Delivery.FaxNumber); err != nil {
			return nil, err
		}
	}

	g.logger.Info("Generated morning gist", "user_id", user.UID, "date_key", dateKey, "method", method)
	return gist, nil
}

func (g *Generator) queueFax(ctx context.Context, uid, dateKey, faxNumber string) error {
	job := &models.FaxJob{
		UserUID:   uid,
		DateKey:   dateKey,
		FaxNumber: faxNumber,
		Status:    models.FaxJobQueued,
	}
	if err := g.deps.Store.CreateFaxJob(ctx, job); err != nil {
		return fmt.Errorf("failed to queue fax: %w", err)
	}

	if g.deps.Fax == nil {
		return nil
	}
	if _, err := g.deps.Fax.PublishFaxJob(ctx, *job); err != nil {
		g.logger.Warn("Failed to publish fax job", "user_id", uid, "date_key", dateKey, "error", err)
	}
	return nil
}
