package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "http://localhost:8000", cfg.UpstreamBaseURL)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 5*time.Minute, cfg.CatalogTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("UPSTREAM_BASE_URL", "http://backend:8000")
	t.Setenv("CATALOG_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "http://backend:8000", cfg.UpstreamBaseURL)
	assert.Equal(t, 90*time.Second, cfg.CatalogTTL)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "not-a-duration")

	_, err := Load()
	assert.Error(t, err)
}
