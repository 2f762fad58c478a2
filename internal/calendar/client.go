// Package calendar reads a user's Google Calendar for one day on their behalf.
// It owns the OAuth token lifecycle: load from either storage location,
// refresh when stale, persist back, and retry once after a forced refresh.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jimdaga/morning-gist/internal/datekey"
	"github.com/jimdaga/morning-gist/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// maxResults caps one day's event listing.
const maxResults = 250

// errNoValidToken means neither the stored token nor a refresh produced a usable access token.
var errNoValidToken = errors.New("no valid Google Calendar access token")

// TokenStore loads and persists token sets. Implementations resolve the
// storage location once in LoadTokens; SaveTokens writes back to it.
type TokenStore interface {
	LoadTokens(ctx context.Context, uid string) (models.TokenSet, models.TokenLocation, error)
	SaveTokens(ctx context.Context, loc models.TokenLocation, tokens models.TokenSet) error
}

// Options configures a Client.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// TokenURL overrides Google's token endpoint (tests).
	TokenURL string
	// APIEndpoint overrides the Calendar API base URL (tests).
	APIEndpoint string
	// Now overrides the clock used for freshness checks and fallback bounds.
	Now func() time.Time
}

// OAuthConfig builds the oauth2 configuration shared by refresh and code
// exchange. Client credentials travel in the form body.
func OAuthConfig(opts Options) *oauth2.Config {
	endpoint := google.Endpoint
	if opts.TokenURL != "" {
		endpoint.TokenURL = opts.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		RedirectURL:  opts.RedirectURL,
		Endpoint:     endpoint,
		Scopes:       []string{gcal.CalendarReadonlyScope},
	}
}

// Client fetches calendar items for a user and day
type Client struct {
	oauth       *oauth2.Config // nil when client credentials are missing
	tokens      TokenStore
	apiEndpoint string
	logger      *slog.Logger
	now         func() time.Time
}

// NewClient creates a calendar client. Missing client credentials are not an
// error: FetchItems then always returns no items.
func NewClient(opts Options, tokens TokenStore, logger *slog.Logger) *Client {
	c := &Client{
		tokens:      tokens,
		apiEndpoint: opts.APIEndpoint,
		logger:      logger,
		now:         opts.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if opts.ClientID != "" && opts.ClientSecret != "" {
		c.oauth = OAuthConfig(opts)
	}
	return c
}

// FetchItems returns the user's events for dateKey in timeZone. It never
// fails: every error path logs a warning and yields an empty slice.
func (c *Client) FetchItems(ctx context.Context, uid, dateKey, timeZone string) []models.CalendarItem {
	empty := []models.CalendarItem{}

	if c.oauth == nil {
		c.logger.Warn("Google Calendar OAuth client configuration missing")
		return empty
	}

	tokens, loc, err := c.tokens.LoadTokens(ctx, uid)
	if err != nil {
		c.logger.Warn("Failed to load Google Calendar tokens", "user_id", uid, "error", err)
		return empty
	}
	if loc.Kind == models.TokenLocationNone || !tokens.HasAny() {
		c.logger.Info("No Google Calendar tokens available for user", "user_id", uid)
		return empty
	}

	items, err := c.fetch(ctx, tokens, loc, dateKey, timeZone)
	if err != nil {
		c.logger.Warn("Failed to fetch Google Calendar events", "user_id", uid, "error", err)
		return empty
	}
	return items
}

func (c *Client) fetch(ctx context.Context, stored models.TokenSet, loc models.TokenLocation, dateKey, timeZone string) ([]models.CalendarItem, error) {
	timeZone = datekey.SafeTimezone(timeZone)

	current, err := c.ensureFresh(ctx, stored, loc)
	if err != nil {
		return nil, err
	}

	bounds := datekey.DayBounds(dateKey, timeZone, c.now())

	events, err := c.listEvents(ctx, current.AccessToken, bounds, timeZone)
	if err != nil {
		// The token may be valid by the clock yet rejected upstream:
		// force one refresh and retry once.
		if stored.RefreshToken == "" {
			return nil, err
		}
		retry, ok := c.refresh(ctx, current, loc.UserUID)
		if !ok {
			return nil, err
		}
		if err := c.tokens.SaveTokens(ctx, loc, retry); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
		}
		events, err = c.listEvents(ctx, retry.AccessToken, bounds, timeZone)
		if err != nil {
			return nil, err
		}
	}

	return mapEvents(events, datekey.Location(timeZone)), nil
}

func (c *Client) listEvents(ctx context.Context, accessToken string, bounds datekey.Bounds, timeZone string) ([]*gcal.Event, error) {
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})),
	}
	if c.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(c.apiEndpoint))
	}

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	resp, err := svc.Events.List("primary").
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(bounds.Min.UTC().Format(time.RFC3339)).
		TimeMax(bounds.Max.UTC().Format(time.RFC3339)).
		TimeZone(timeZone).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("calendar API %d: %s", apiErr.Code, truncate(apiErr.Body, 200))
		}
		return nil, fmt.Errorf("calendar API request failed: %w", err)
	}

	return resp.Items, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
