package datekey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSafeTimezone(t *testing.T) {
	assert.Equal(t, "Europe/Berlin", SafeTimezone("Europe/Berlin"))
	assert.Equal(t, FallbackTimezone, SafeTimezone(""))
	assert.Equal(t, FallbackTimezone, SafeTimezone("Local"))
	assert.Equal(t, FallbackTimezone, SafeTimezone("Mars/Olympus_Mons"))
}

func TestFromTime(t *testing.T) {
	// 03:30 UTC is still the previous evening in New York.
	instant := time.Date(2025, 1, 10, 3, 30, 0, 0, time.UTC)

	assert.Equal(t, "2025-01-09", FromTime(instant, "America/New_York"))
	assert.Equal(t, "2025-01-10", FromTime(instant, "Asia/Tokyo"))
	assert.Equal(t, "2025-01-09", FromTime(instant, "not-a-zone"), "invalid zones use the fallback")
}

func TestDayBoundsRegularDay(t *testing.T) {
	b := DayBounds("2025-01-10", "America/New_York", time.Now())

	assert.Equal(t, time.Date(2025, 1, 10, 5, 0, 0, 0, time.UTC), b.Min)
	assert.Equal(t, time.Date(2025, 1, 11, 5, 0, 0, 0, time.UTC), b.Max)
	assert.Equal(t, 24*time.Hour, b.Duration())
}

func TestDayBoundsSpringForward(t *testing.T) {
	b := DayBounds("2024-03-10", "America/New_York", time.Now())

	assert.Equal(t, "2024-03-10T05:00:00Z", b.Min.Format(time.RFC3339))
	assert.Equal(t, "2024-03-11T04:00:00Z", b.Max.Format(time.RFC3339))
	assert.Equal(t, 23*time.Hour, b.Duration())
}

func TestDayBoundsFallBack(t *testing.T) {
	b := DayBounds("2024-11-03", "America/New_York", time.Now())
	assert.Equal(t, 25*time.Hour, b.Duration())
}

func TestDayBoundsHalfHourOffset(t *testing.T) {
	b := DayBounds("2025-06-01", "Asia/Kolkata", time.Now())

	assert.Equal(t, time.Date(2025, 5, 31, 18, 30, 0, 0, time.UTC), b.Min)
	assert.Equal(t, 24*time.Hour, b.Duration())
}

func TestDayBoundsMalformedKey(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	b := DayBounds("garbage", "America/New_York", now)

	assert.Equal(t, now.Add(-12*time.Hour), b.Min)
	assert.Equal(t, now.Add(12*time.Hour), b.Max)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("2025-02-28"))
	assert.False(t, Valid("2025-02-30"))
	assert.False(t, Valid("2025/02/28"))
}
