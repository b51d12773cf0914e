package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FEED_DEFAULT_PAGE_SIZE", "")
	t.Setenv("STORAGE_UPLOAD_TOKEN_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Feed.DefaultPageSize)
	assert.Equal(t, 100, cfg.Feed.MaxPageSize)
	assert.Equal(t, 10*time.Minute, cfg.Storage.UploadTokenTTL)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadBytes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("STORAGE_USE_SSL", "true")
	t.Setenv("SWEEP_GRACE", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Storage.UseSSL)
	assert.Equal(t, 2*time.Hour, cfg.Sweep.Grace)
}

func TestLoadRejectsInvalidPageSizes(t *testing.T) {
	t.Setenv("FEED_DEFAULT_PAGE_SIZE", "50")
	t.Setenv("FEED_MAX_PAGE_SIZE", "10")

	_, err := Load()
	assert.Error(t, err)
}
