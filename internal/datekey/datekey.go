// Package datekey anchors instants to calendar days in a user's timezone.
package datekey

import (
	"time"
)

// FallbackTimezone is used whenever a user's timezone is missing or invalid.
const FallbackTimezone = "America/New_York"

// Layout is the YYYY-MM-DD format of a date key.
const Layout = "2006-01-02"

// SafeTimezone returns tz when it names a loadable IANA zone, otherwise
// FallbackTimezone. "Local" is rejected because it depends on the host.
func SafeTimezone(tz string) string {
	if tz == "" || tz == "Local" {
		return FallbackTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return FallbackTimezone
	}
	return tz
}

// Location loads the zone for tz after SafeTimezone. UTC is returned only if
// the fallback zone itself is unavailable (no tzdata on the host).
func Location(tz string) *time.Location {
	loc, err := time.LoadLocation(SafeTimezone(tz))
	if err != nil {
		return time.UTC
	}
	return loc
}

// FromTime returns the YYYY-MM-DD key of t in timezone tz.
func FromTime(t time.Time, tz string) string {
	return t.In(Location(tz)).Format(Layout)
}

// Valid reports whether key is a well-formed date key.
func Valid(key string) bool {
	_, err := time.Parse(Layout, key)
	return err == nil
}

// Bounds is a half-open interval [Min, Max) of absolute instants.
type Bounds struct {
	Min time.Time
	Max time.Time
}

// Duration is the real elapsed time between Min and Max.
func (b Bounds) Duration() time.Duration {
	return b.Max.Sub(b.Min)
}

// DayBounds returns start-of-day and start-of-next-day for dateKey in tz.
// Offsets are resolved at each boundary, so DST days span 23 or 25 hours.
// A malformed key yields a 24 hour window centered on now.
func DayBounds(dateKey, tz string, now time.Time) Bounds {
	day, err := time.Parse(Layout, dateKey)
	if err != nil {
		return Bounds{
			Min: now.Add(-12 * time.Hour).UTC(),
			Max: now.Add(12 * time.Hour).UTC(),
		}
	}

	loc := Location(tz)
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	next := time.Date(y, m, d+1, 0, 0, 0, 0, loc)

	return Bounds{Min: start.UTC(), Max: next.UTC()}
}
