package weather

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// rainChanceThreshold is the chance_of_rain (percent) treated as "will rain".
const rainChanceThreshold = 50

// toForecast validates a decoded response right at the boundary.
func toForecast(resp *apiResponse) (Forecast, error) {
	var f Forecast

	if resp.Location != nil {
		f.LocationName = resp.Location.Name
		f.TzID = resp.Location.TzID
	}

	if resp.Forecast != nil && len(resp.Forecast.ForecastDay) > 0 && resp.Forecast.ForecastDay[0].Day != nil {
		first := resp.Forecast.ForecastDay[0]
		day := &Day{
			MinTempF: first.Day.MinTempF,
			MaxTempF: first.Day.MaxTempF,
		}
		if first.Day.Condition != nil {
			day.Condition = first.Day.Condition.Text
		}
		for _, h := range first.Hour {
			day.Hours = append(day.Hours, Hour{
				LocalTime:    h.Time,
				WillItRain:   h.WillItRain == 1,
				ChanceOfRain: h.ChanceOfRain,
			})
		}
		f.Today = day
	}

	if resp.Current != nil {
		if resp.Current.TempF != nil {
			f.CurrentTempF = *resp.Current.TempF
		}
		if resp.Current.Condition != nil {
			f.CurrentCondition = resp.Current.Condition.Text
		}
	} else if f.Today == nil {
		return Forecast{}, ErrIncompleteResponse
	}

	if resp.Alerts != nil && len(resp.Alerts.Alert) > 0 {
		f.FirstAlertEvent = strings.TrimSpace(resp.Alerts.Alert[0].Event)
	}

	return f, nil
}

// Summarize renders the forecast as one line:
//
//	"<low>° / <high>° • <condition>[ • rain after <hour>][ • <alert>]"
//
// falling back to "<current>° • <condition>" without a forecast day.
func Summarize(f Forecast) string {
	if f.Today == nil {
		return fmt.Sprintf("%d° • %s", roundTemp(f.CurrentTempF), f.CurrentCondition)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d° / %d° • %s", roundTemp(f.Today.MinTempF), roundTemp(f.Today.MaxTempF), f.Today.Condition)

	if at, ok := firstRainHour(f.Today.Hours); ok {
		b.WriteString(" • rain after ")
		b.WriteString(at)
	}
	if f.FirstAlertEvent != "" {
		b.WriteString(" • ")
		b.WriteString(f.FirstAlertEvent)
	}

	return b.String()
}

// roundTemp rounds half up like the printed gist always has; NaN and ±Inf clamp to 0.
func roundTemp(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Floor(v + 0.5))
}

func firstRainHour(hours []Hour) (string, bool) {
	for _, h := range hours {
		if h.WillItRain || h.ChanceOfRain >= rainChanceThreshold {
			return hourLabel(h.LocalTime), true
		}
	}
	return "", false
}

// hourLabel turns "YYYY-MM-DD HH:mm" into "2pm".
func hourLabel(localTime string) string {
	hour := 0
	if _, hm, ok := strings.Cut(localTime, " "); ok {
		hh, _, _ := strings.Cut(hm, ":")
		if n, err := strconv.Atoi(hh); err == nil {
			hour = n
		}
	}

	suffix := "am"
	if hour >= 12 {
		suffix = "pm"
	}
	return fmt.Sprintf("%d%s", (hour+11)%12+1, suffix)
}
