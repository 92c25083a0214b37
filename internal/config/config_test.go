package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"TELEGRAM_TOKEN", "ALLOWED_CHAT_ID", "DATABASE_URL", "PREFS_PATH",
		"REFRESH_STRATEGY", "SUMMARY_TIME", "LIST_CACHE_TTL", "SEARCH_CACHE_TTL",
		"TASK_CACHE_TTL", "MUTATION_TIMEOUT", "READ_TIMEOUT", "POLL_INTERVAL",
		"SWEEP_INTERVAL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "lifelock.db", cfg.DatabaseURL)
	assert.Equal(t, "lifelock_prefs.yaml", cfg.PrefsPath)
	assert.Equal(t, 5*time.Minute, cfg.ListCacheTTL)
	assert.Equal(t, time.Minute, cfg.SearchCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.MutationTimeout)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("ALLOWED_CHAT_ID", "12345")
	t.Setenv("DATABASE_URL", "/tmp/t.db")
	t.Setenv("LIST_CACHE_TTL", "30s")
	t.Setenv("READ_TIMEOUT", "bogus") // falls back

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(12345), cfg.AllowedChatID)
	assert.Equal(t, "/tmp/t.db", cfg.DatabaseURL)
	assert.Equal(t, 30*time.Second, cfg.ListCacheTTL)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
}

func TestLoadTokenRequiresChatID(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("ALLOWED_CHAT_ID", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadChatID(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("ALLOWED_CHAT_ID", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}
