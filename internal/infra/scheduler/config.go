// Package scheduler wires together the five independent ingestion tracks
// (news deletion, feed crawling, ANN index persistence, RSS ingest+notify,
// and channel metadata refresh) that make up the Omninews background process.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"omninews-ingest/internal/pkg/config"
)

// Config holds the tunables for the five scheduler tracks plus the shared
// browser-automation pool, push provider, and Instagram credentials they
// depend on. The timezone, cron, duration, integer and boolean fields fall
// back to their default on an invalid value; WebDriverURL, the FCM and
// Instagram fields and AnnResourcesDir are taken as given. LoadConfigFromEnv
// never fails, it falls back field-by-field and logs why.
type Config struct {
	// Timezone is the IANA timezone all track cadences are evaluated in.
	// Default: "Asia/Seoul"
	Timezone string

	// DeleteOldNewsCron is the cron expression T1 (delete-old-news) ticks on.
	// The track itself only deletes on Sunday; this expression controls how
	// often it wakes up to check.
	// Default: "0 0 * * *" (every day at local midnight)
	DeleteOldNewsCron string

	// FetchNewsInterval is how often T2 (feed crawl) wakes up.
	// Default: 5m
	FetchNewsInterval time.Duration

	// SaveAnnInterval is how often T3 (ANN index persistence) wakes up.
	// Default: 1h
	SaveAnnInterval time.Duration

	// IngestNotifyInterval is how often T4 (RSS ingest + notify) wakes up.
	// Default: 10m
	IngestNotifyInterval time.Duration

	// InfoUpdateInterval is how often T5 (channel metadata refresh) wakes up.
	// Default: 24h
	InfoUpdateInterval time.Duration

	// WarmupDelay is how long the supervisor waits after launch before
	// starting any track, giving dependent connections time to settle.
	// Default: 10s
	WarmupDelay time.Duration

	// NotifyMaxConcurrent bounds concurrent notification fan-out in T4.
	// Range: 1-50. Default: 10
	NotifyMaxConcurrent int

	// HealthPort is the liveness/readiness HTTP server port.
	// Range: 1024-65535. Default: 9091
	HealthPort int

	// WebDriverURL is the remote WebDriver/rod endpoint used by T4 and T5
	// when a channel's generator requires browser automation.
	// Default: "http://localhost:4444"
	WebDriverURL string

	// WebDriverMaxSessions bounds the browser session pool size.
	// Range: 1-20. Default: 3
	WebDriverMaxSessions int

	// WebDriverIdleReapTimeout is how long an idle session is kept before
	// the pool closes it.
	// Default: 5m
	WebDriverIdleReapTimeout time.Duration

	// FCMProjectID is the Firebase project used to send push notifications.
	FCMProjectID string

	// FCMServiceAccountJSON is the path to the FCM service account key file.
	FCMServiceAccountJSON string

	// InstagramID and InstagramPW are the credentials used to log into
	// Instagram when a channel's generator is Omninews_instagram. Both are
	// empty by default; their absence is only an error at the point a
	// channel actually requires them.
	InstagramID string
	InstagramPW string

	// AnnResourcesDir is where the ANN index files are written.
	// Default: "../resources"
	AnnResourcesDir string

	// AllowFullWalkOnEmpty resolves ingest's Open Question 1: when true,
	// a channel with zero stored items walks its entire incoming feed on
	// first ingest instead of walking zero items. Default: false, to
	// match observed source behavior.
	AllowFullWalkOnEmpty bool
}

// DefaultConfig returns production-sane defaults for every scheduler field.
func DefaultConfig() Config {
	return Config{
		Timezone:                 "Asia/Seoul",
		DeleteOldNewsCron:        "0 0 * * *",
		FetchNewsInterval:        5 * time.Minute,
		SaveAnnInterval:          1 * time.Hour,
		IngestNotifyInterval:     10 * time.Minute,
		InfoUpdateInterval:       24 * time.Hour,
		WarmupDelay:              10 * time.Second,
		NotifyMaxConcurrent:      10,
		HealthPort:               9091,
		WebDriverURL:             "http://localhost:4444",
		WebDriverMaxSessions:     3,
		WebDriverIdleReapTimeout: 5 * time.Minute,
		AnnResourcesDir:          "../resources",
		AllowFullWalkOnEmpty:     false,
	}
}

// Validate aggregates field-level validation errors. LoadConfigFromEnv calls
// the same validators per-field so this mostly matters for values set
// programmatically (tests, cmd wiring overrides).
func (c *Config) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.DeleteOldNewsCron); err != nil {
		errs = append(errs, fmt.Errorf("delete old news cron: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.FetchNewsInterval); err != nil {
		errs = append(errs, fmt.Errorf("fetch news interval: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.SaveAnnInterval); err != nil {
		errs = append(errs, fmt.Errorf("save ann interval: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.IngestNotifyInterval); err != nil {
		errs = append(errs, fmt.Errorf("ingest notify interval: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.InfoUpdateInterval); err != nil {
		errs = append(errs, fmt.Errorf("info update interval: %w", err))
	}
	if err := config.ValidateIntRange(c.NotifyMaxConcurrent, 1, 50); err != nil {
		errs = append(errs, fmt.Errorf("notify max concurrent: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.WebDriverMaxSessions, 1, 20); err != nil {
		errs = append(errs, fmt.Errorf("webdriver max sessions: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.WebDriverIdleReapTimeout); err != nil {
		errs = append(errs, fmt.Errorf("webdriver idle reap timeout: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the scheduler configuration from the environment,
// falling back to defaults field-by-field on validation failure. It never
// returns an error; fallbacks are logged and counted in metrics so operators
// can see degraded config without the process refusing to start.
func LoadConfigFromEnv(logger *slog.Logger, metrics *Metrics) (*Config, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	apply := func(field string, result config.ConfigLoadResult) {
		if !result.FallbackApplied {
			return
		}
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field, "default")
		for _, warning := range result.Warnings {
			logger.Warn("scheduler configuration fallback applied",
				slog.String("field", field), slog.String("warning", warning))
		}
	}

	result := config.LoadEnvWithFallback("SCHEDULER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	apply("timezone", result)

	result = config.LoadEnvWithFallback("DELETE_OLD_NEWS_CRON", cfg.DeleteOldNewsCron, config.ValidateCronSchedule)
	cfg.DeleteOldNewsCron = result.Value.(string)
	apply("delete_old_news_cron", result)

	durResult := config.LoadEnvDuration("FETCH_NEWS_INTERVAL", cfg.FetchNewsInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, 30*time.Second, 1*time.Hour)
	})
	cfg.FetchNewsInterval = durResult.Value.(time.Duration)
	apply("fetch_news_interval", durResult)

	durResult = config.LoadEnvDuration("SAVE_ANN_INTERVAL", cfg.SaveAnnInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 24*time.Hour)
	})
	cfg.SaveAnnInterval = durResult.Value.(time.Duration)
	apply("save_ann_interval", durResult)

	durResult = config.LoadEnvDuration("INGEST_NOTIFY_INTERVAL", cfg.IngestNotifyInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 6*time.Hour)
	})
	cfg.IngestNotifyInterval = durResult.Value.(time.Duration)
	apply("ingest_notify_interval", durResult)

	durResult = config.LoadEnvDuration("INFO_UPDATE_INTERVAL", cfg.InfoUpdateInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Hour, 7*24*time.Hour)
	})
	cfg.InfoUpdateInterval = durResult.Value.(time.Duration)
	apply("info_update_interval", durResult)

	durResult = config.LoadEnvDuration("SCHEDULER_WARMUP_DELAY", cfg.WarmupDelay, func(d time.Duration) error {
		return config.ValidateDuration(d, 0, 5*time.Minute)
	})
	cfg.WarmupDelay = durResult.Value.(time.Duration)
	apply("warmup_delay", durResult)

	intResult := config.LoadEnvInt("NOTIFY_MAX_CONCURRENT", cfg.NotifyMaxConcurrent, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.NotifyMaxConcurrent = intResult.Value.(int)
	apply("notify_max_concurrent", intResult)

	intResult = config.LoadEnvInt("SCHEDULER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = intResult.Value.(int)
	apply("health_port", intResult)

	cfg.WebDriverURL = config.LoadEnvString("WEBDRIVER_URL", cfg.WebDriverURL)

	intResult = config.LoadEnvInt("WEBDRIVER_MAX_SESSIONS", cfg.WebDriverMaxSessions, func(v int) error {
		return config.ValidateIntRange(v, 1, 20)
	})
	cfg.WebDriverMaxSessions = intResult.Value.(int)
	apply("webdriver_max_sessions", intResult)

	durResult = config.LoadEnvDuration("WEBDRIVER_IDLE_REAP_TIMEOUT", cfg.WebDriverIdleReapTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 30*time.Second, 30*time.Minute)
	})
	cfg.WebDriverIdleReapTimeout = durResult.Value.(time.Duration)
	apply("webdriver_idle_reap_timeout", durResult)

	cfg.FCMProjectID = config.LoadEnvString("FCM_PROJECT_ID", cfg.FCMProjectID)
	cfg.FCMServiceAccountJSON = config.LoadEnvString("FCM_SERVICE_ACCOUNT_JSON", cfg.FCMServiceAccountJSON)
	cfg.InstagramID = config.LoadEnvString("INSTAGRAM_ID", cfg.InstagramID)
	cfg.InstagramPW = config.LoadEnvString("INSTAGRAM_PW", cfg.InstagramPW)
	cfg.AnnResourcesDir = config.LoadEnvString("ANN_RESOURCES_DIR", cfg.AnnResourcesDir)

	boolResult := config.LoadEnvBool("ALLOW_FULL_WALK_ON_EMPTY", cfg.AllowFullWalkOnEmpty)
	cfg.AllowFullWalkOnEmpty = boolResult.Value.(bool)
	apply("allow_full_walk_on_empty", boolResult)

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
