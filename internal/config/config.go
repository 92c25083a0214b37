package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the app.
type Config struct {
	TelegramToken   string
	AllowedChatID   int64
	DatabaseURL     string
	PrefsPath       string
	RefreshStrategy string

	ListCacheTTL    time.Duration
	SearchCacheTTL  time.Duration
	TaskCacheTTL    time.Duration
	MutationTimeout time.Duration
	ReadTimeout     time.Duration

	PollInterval  time.Duration
	SweepInterval time.Duration
	SummaryTime   string // HH:MM, empty disables the daily summary
}

// Load reads configuration from environment variables with sane defaults.
// The Telegram token is optional; without it the app runs headless.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken:   strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		PrefsPath:       strings.TrimSpace(os.Getenv("PREFS_PATH")),
		RefreshStrategy: strings.TrimSpace(os.Getenv("REFRESH_STRATEGY")),
		SummaryTime:     strings.TrimSpace(os.Getenv("SUMMARY_TIME")),
		ListCacheTTL:    parseDuration(os.Getenv("LIST_CACHE_TTL"), 5*time.Minute),
		SearchCacheTTL:  parseDuration(os.Getenv("SEARCH_CACHE_TTL"), time.Minute),
		TaskCacheTTL:    parseDuration(os.Getenv("TASK_CACHE_TTL"), 2*time.Minute),
		MutationTimeout: parseDuration(os.Getenv("MUTATION_TIMEOUT"), 10*time.Second),
		ReadTimeout:     parseDuration(os.Getenv("READ_TIMEOUT"), 15*time.Second),
		PollInterval:    parseDuration(os.Getenv("POLL_INTERVAL"), 5*time.Minute),
		SweepInterval:   parseDuration(os.Getenv("SWEEP_INTERVAL"), time.Minute),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "lifelock.db"
	}
	if cfg.PrefsPath == "" {
		cfg.PrefsPath = "lifelock_prefs.yaml"
	}

	if raw := strings.TrimSpace(os.Getenv("ALLOWED_CHAT_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("ALLOWED_CHAT_ID must be an integer: %w", err)
		}
		cfg.AllowedChatID = id
	}

	if cfg.TelegramToken != "" && cfg.AllowedChatID == 0 {
		return cfg, fmt.Errorf("ALLOWED_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
