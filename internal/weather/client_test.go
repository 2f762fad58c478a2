package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forecastPayload() map[string]any {
	hours := make([]map[string]any, 24)
	for i := range hours {
		hours[i] = map[string]any{
			"time":           fmt.Sprintf("2025-01-10 %02d:00", i),
			"will_it_rain":   0,
			"chance_of_rain": 0,
		}
	}
	hours[14]["chance_of_rain"] = 60

	return map[string]any{
		"location": map[string]any{"name": "New York", "tz_id": "America/New_York"},
		"current":  map[string]any{"temp_f": 41.0, "condition": map[string]any{"text": "Cloudy"}},
		"forecast": map[string]any{
			"forecastday": []map[string]any{{
				"date": "2025-01-10",
				"day": map[string]any{
					"maxtemp_f": 52.0,
					"mintemp_f": 38.0,
					"condition": map[string]any{"text": "Rain"},
				},
				"hour": hours,
			}},
		},
	}
}

func TestForecastSuccess(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast.json", r.URL.Path)
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(forecastPayload())
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "test-key", false)
	res, err := c.Forecast(context.Background(), Query{Q: "New York, NY", Alerts: true})
	require.NoError(t, err)

	assert.Equal(t, "38° / 52° • Rain • rain after 2pm", res.Summary)
	assert.Equal(t, "America/New_York", res.TzID)
	assert.Equal(t, "New York", res.LocationName)
	assert.Equal(t, map[string]string{
		"key": "test-key", "q": "New York, NY", "days": "1", "aqi": "no", "alerts": "yes",
	}, gotQuery)
}

func TestForecastEmptyForecastDayFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := forecastPayload()
		payload["forecast"] = map[string]any{"forecastday": []any{}}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "k", false).Forecast(context.Background(), Query{Q: "10001"})
	require.NoError(t, err)
	assert.Equal(t, "41° • Cloudy", res.Summary)
}

func TestForecastErrorTruncatesBody(t *testing.T) {
	long := strings.Repeat("x", 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad", false).Forecast(context.Background(), Query{Q: "x"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Len(t, apiErr.Body, maxErrorBody)
	assert.True(t, strings.HasPrefix(err.Error(), "WeatherAPI error 403: "))
}

func TestForecastStubMode(t *testing.T) {
	res, err := NewClient("http://unused.invalid", "", true).Forecast(context.Background(), Query{Q: "Chicago, IL"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Summary)
	assert.Equal(t, "Chicago, IL", res.LocationName)
}
