package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("TRIAL_LENGTH_DAYS", "")
	t.Setenv("DB_QUERY_TIMEOUT", "")

	cfg := Load()

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 14, cfg.Trial.LengthDays)
	assert.Equal(t, 2*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "resend", cfg.Email.Provider)
	assert.False(t, cfg.SeedDemo)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("TRIAL_LENGTH_DAYS", "30")
	t.Setenv("DB_QUERY_TIMEOUT", "500ms")
	t.Setenv("EMAIL_PROVIDER", "SMTP")
	t.Setenv("SEED_DEMO", "true")
	t.Setenv("APP_URL", "https://app.apexmind.ai/")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "https://app.apexmind.ai", cfg.Server.AppURL)
	assert.Equal(t, 30, cfg.Trial.LengthDays)
	assert.Equal(t, 500*time.Millisecond, cfg.Database.QueryTimeout)
	assert.Equal(t, "smtp", cfg.Email.Provider)
	assert.True(t, cfg.SeedDemo)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TRIAL_LENGTH_DAYS", "two weeks")
	t.Setenv("DB_QUERY_TIMEOUT", "soon")
	t.Setenv("SEED_DEMO", "maybe")

	cfg := Load()

	assert.Equal(t, 14, cfg.Trial.LengthDays)
	assert.Equal(t, 2*time.Second, cfg.Database.QueryTimeout)
	assert.False(t, cfg.SeedDemo)
}
