// Package weather fetches a one-day forecast from WeatherAPI and reduces it
// to the single line printed at the top of a gist.
package weather

import (
	"errors"
	"fmt"
)

// Raw response shapes. Only the fields the summary needs are declared, and
// every nested object is optional so a sparse payload decodes cleanly.
type apiResponse struct {
	Location *apiLocation `json:"location"`
	Current  *apiCurrent  `json:"current"`
	Forecast *apiForecast `json:"forecast"`
	Alerts   *apiAlerts   `json:"alerts"`
}

type apiLocation struct {
	Name string `json:"name"`
	TzID string `json:"tz_id"`
}

type apiCondition struct {
	Text string `json:"text"`
}

type apiCurrent struct {
	TempF     *float64      `json:"temp_f"`
	Condition *apiCondition `json:"condition"`
}

type apiForecast struct {
	ForecastDay []apiForecastDay `json:"forecastday"`
}

type apiForecastDay struct {
	Date string    `json:"date"`
	Day  *apiDay   `json:"day"`
	Hour []apiHour `json:"hour"`
}

type apiDay struct {
	MaxTempF  float64       `json:"maxtemp_f"`
	MinTempF  float64       `json:"mintemp_f"`
	Condition *apiCondition `json:"condition"`
}

type apiHour struct {
	Time         string  `json:"time"` // "YYYY-MM-DD HH:mm" in the location's zone
	WillItRain   int     `json:"will_it_rain"`
	ChanceOfRain float64 `json:"chance_of_rain"`
}

type apiAlerts struct {
	Alert []apiAlert `json:"alert"`
}

type apiAlert struct {
	Event    string `json:"event"`
	Headline string `json:"headline"`
}

// Forecast is the validated view of a response.
type Forecast struct {
	LocationName string
	TzID         string

	CurrentTempF     float64
	CurrentCondition string

	// Today is nil when the response carried no forecast day.
	Today *Day

	// FirstAlertEvent is the trimmed event of the first alert, if any.
	FirstAlertEvent string
}

// Day is today's aggregate forecast.
type Day struct {
	MinTempF  float64
	MaxTempF  float64
	Condition string
	Hours     []Hour
}

// Hour is one hourly slot.
type Hour struct {
	LocalTime    string
	WillItRain   bool
	ChanceOfRain float64
}

// Result is what callers get back from Client.Forecast.
type Result struct {
	Summary      string
	TzID         string
	LocationName string
}

// ErrIncompleteResponse is returned when a payload has neither a forecast day
// nor current conditions to summarize.
var ErrIncompleteResponse = errors.New("weather response has no forecast day and no current conditions")

// APIError is returned for non-2xx responses. Body is truncated.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("WeatherAPI error %d: %s", e.StatusCode, e.Body)
}
