package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("GIST_SCHEDULE", "")
	t.Setenv("GIST_TIMEZONE", "")
	t.Setenv("WEATHER_STUB_MODE", "")
	t.Setenv("PORT", "")

	cfg := Load()

	assert.Equal(t, "30 7 * * *", cfg.GistSchedule)
	assert.Equal(t, "America/New_York", cfg.GistTimezone)
	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.WeatherStubMode)
	assert.NotEmpty(t, cfg.SessionSecret, "a development session secret is filled in")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("WEATHER_STUB_MODE", "true")
	t.Setenv("SEED_DEV_DATA", "not-a-bool")
	t.Setenv("ENV", "production")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.WeatherStubMode)
	assert.False(t, cfg.SeedDevData, "invalid booleans fall back to the default")
	assert.True(t, cfg.IsProduction())
}
