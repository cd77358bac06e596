package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/postpulse")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("SOURCE_BASE_URL", "http://localhost:9000")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "vader", cfg.ClassifierProvider)
	assert.Equal(t, 50, cfg.DefaultItemCount)
	assert.Equal(t, 200, cfg.MaxItemCount)
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, 15*time.Minute, cfg.TimelineCacheTTL)
}

func TestLoadMissingRequired(t *testing.T) {
	cases := map[string]string{
		"DATABASE_URL":    "missing database URL",
		"REDIS_URL":       "missing redis URL",
		"SOURCE_BASE_URL": "missing source base URL",
	}

	for unset := range cases {
		t.Run(unset, func(t *testing.T) {
			setRequired(t)
			t.Setenv(unset, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), unset)
		})
	}
}

func TestLoadRemoteClassifierNeedsEndpoint(t *testing.T) {
	setRequired(t)
	t.Setenv("CLASSIFIER_PROVIDER", "remote")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLASSIFIER_ENDPOINT")

	t.Setenv("CLASSIFIER_ENDPOINT", "http://localhost:8501/analyze_batch")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "remote", cfg.ClassifierProvider)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	setRequired(t)
	t.Setenv("CLASSIFIER_PROVIDER", "oracle")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_ITEM_COUNT", "many")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("MAX_ITEM_COUNT", "-5")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadRejectsDefaultAboveMax(t *testing.T) {
	setRequired(t)
	t.Setenv("DEFAULT_ITEM_COUNT", "300")
	t.Setenv("MAX_ITEM_COUNT", "200")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_ITEM_COUNT")
}

func TestLoadParsesDurations(t *testing.T) {
	setRequired(t)
	t.Setenv("TIMELINE_CACHE_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.TimelineCacheTTL)

	t.Setenv("TIMELINE_CACHE_TTL", "soon")
	_, err = Load()
	assert.Error(t, err)
}
