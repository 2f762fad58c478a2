package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxErrorBody is how much of a failed response body is kept in APIError.
const maxErrorBody = 300

// Query selects what to ask the forecast endpoint for.
type Query struct {
	Q      string // "New York, NY", "40.71,-74.01", or a postal code
	Days   int    // defaults to 1
	AQI    bool
	Alerts bool
}

// Client handles communication with WeatherAPI's forecast endpoint
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	stubMode   bool
}

// NewClient creates a new weather client with the given configuration
func NewClient(baseURL, apiKey string, stubMode bool) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		stubMode:   stubMode,
	}
}

// Forecast fetches the forecast for q and summarizes it. Non-2xx responses
// return an *APIError carrying the start of the body.
func (c *Client) Forecast(ctx context.Context, q Query) (*Result, error) {
	if c.stubMode {
		return &Result{
			Summary:      "41° / 55° • Partly cloudy • rain after 4pm",
			TzID:         "America/New_York",
			LocationName: q.Q,
		}, nil
	}

	days := q.Days
	if days <= 0 {
		days = 1
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", q.Q)
	params.Set("days", strconv.Itoa(days))
	params.Set("aqi", yesNo(q.AQI))
	params.Set("alerts", yesNo(q.Alerts))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}

	var raw apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	forecast, err := toForecast(&raw)
	if err != nil {
		return nil, err
	}

	return &Result{
		Summary:      Summarize(forecast),
		TzID:         forecast.TzID,
		LocationName: forecast.LocationName,
	}, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
