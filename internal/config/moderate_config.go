// Package config holds the moderation settings that are injected into the
// engine at construction. Nothing in this module reads configuration from
// ambient global state.
package config

import (
	"os"
	"strconv"
	"time"
)

// Host access levels. The permission oracle compares against these.
const (
	LevelViewer        = 10
	LevelReporter      = 25
	LevelUpdater       = 40
	LevelDeveloper     = 55
	LevelManager       = 70
	LevelAdministrator = 90
)

// Defaults, matching the shipped plugin configuration.
const (
	DefaultModerateThreshold = LevelManager
	DefaultBypassThreshold   = LevelDeveloper

	DefaultAntispamMaxCount = 10
	DefaultAntispamWindow   = time.Hour

	// QueuePageSize caps ListPending results; RetentionPeriod is how long
	// decided entries are kept before cleanup removes them.
	QueuePageSize       = 100
	DefaultHistoryLimit = 50
	RetentionPeriod     = 30 * 24 * time.Hour
)

// Config is the moderation engine configuration.
type Config struct {
	// ModerateThreshold is the minimum project access level required to
	// view and act on queue entries.
	ModerateThreshold int
	// BypassThreshold is the project access level at which submissions
	// skip moderation entirely.
	BypassThreshold int

	// NotifyOnReject / NotifyOnSpam toggle reporter notifications.
	NotifyOnReject bool
	NotifyOnSpam   bool
	// IncludeModerator adds the moderator id to notification context.
	IncludeModerator bool

	// AntispamMaxCount is the maximum number of Pending entries a single
	// reporter may have inside AntispamWindow. 0 disables the check.
	AntispamMaxCount int
	AntispamWindow   time.Duration
}

// Default returns the shipped configuration.
func Default() Config {
	return Config{
		ModerateThreshold: DefaultModerateThreshold,
		BypassThreshold:   DefaultBypassThreshold,
		NotifyOnReject:    true,
		NotifyOnSpam:      false,
		IncludeModerator:  false,
		AntispamMaxCount:  DefaultAntispamMaxCount,
		AntispamWindow:    DefaultAntispamWindow,
	}
}

// Load builds a Config from the environment, falling back to defaults.
// Callers are expected to have run godotenv.Load() first.
func Load() Config {
	cfg := Default()

	cfg.ModerateThreshold = envInt("MODERATE_THRESHOLD", cfg.ModerateThreshold)
	cfg.BypassThreshold = envInt("MODERATE_BYPASS_THRESHOLD", cfg.BypassThreshold)
	cfg.NotifyOnReject = envBool("MODERATE_NOTIFY_ON_REJECT", cfg.NotifyOnReject)
	cfg.NotifyOnSpam = envBool("MODERATE_NOTIFY_ON_SPAM", cfg.NotifyOnSpam)
	cfg.IncludeModerator = envBool("MODERATE_INCLUDE_MODERATOR", cfg.IncludeModerator)
	cfg.AntispamMaxCount = envInt("ANTISPAM_MAX_EVENT_COUNT", cfg.AntispamMaxCount)

	if seconds := envInt("ANTISPAM_TIME_WINDOW_SECONDS", 0); seconds > 0 {
		cfg.AntispamWindow = time.Duration(seconds) * time.Second
	}

	return cfg
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
