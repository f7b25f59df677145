// Command scheduler runs the Omninews background ingestion process: the
// five-track supervisor (C8) wired to every other component (C1-C7, C9).
package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"omninews-ingest/internal/infra/adapter/persistence/postgres"
	"omninews-ingest/internal/infra/db"
	"omninews-ingest/internal/infra/embedder"
	"omninews-ingest/internal/infra/fetcher"
	"omninews-ingest/internal/infra/notifier"
	"omninews-ingest/internal/infra/scheduler"
	"omninews-ingest/internal/infra/webdriver"
	workerPkg "omninews-ingest/internal/infra/worker"
	"omninews-ingest/internal/observability/logging"
	"omninews-ingest/internal/repository"
	"omninews-ingest/internal/usecase/annindex"
	"omninews-ingest/internal/usecase/embedding"
	"omninews-ingest/internal/usecase/fetch"
	"omninews-ingest/internal/usecase/ingest"
	"omninews-ingest/internal/usecase/notify"
)

func waitForMigrations(logger *slog.Logger, database *sql.DB) {
	const probe = "SELECT 1 FROM channels LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := database.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := scheduler.NewMetrics()
	config, err := scheduler.LoadConfigFromEnv(logger, metrics)
	if err != nil {
		logger.Error("failed to load scheduler configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("scheduler configuration loaded",
		slog.String("timezone", config.Timezone),
		slog.Duration("fetch_news_interval", config.FetchNewsInterval),
		slog.Duration("save_ann_interval", config.SaveAnnInterval),
		slog.Duration("ingest_notify_interval", config.IngestNotifyInterval),
		slog.Duration("info_update_interval", config.InfoUpdateInterval),
		slog.Int("health_port", config.HealthPort))

	healthAddr := fmt.Sprintf(":%d", config.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	// C1 — repository façade
	channels := postgres.NewChannelRepo(database)
	items := postgres.NewItemRepo(database)
	embeddings := postgres.NewEmbeddingRepo(database)
	subscriptions := postgres.NewSubscriptionRepo(database)

	// C9 — embedding provider, fatal if OPENAI_API_KEY is missing, since
	// C5/C7 both depend on real vectors to do anything useful.
	embeddingProvider := setupEmbeddingProvider(logger)
	embeddingService := embedding.NewService(embeddingProvider, embeddings)

	// C2 — browser-automation pool, shared by T4/T5's webdriver and
	// Instagram strategies.
	pool := webdriver.NewPool(webdriver.Config{
		MaxSessions:     config.WebDriverMaxSessions,
		Launch:          webdriver.NewRodLaunchFunc(config.WebDriverURL),
		IdleReapTimeout: config.WebDriverIdleReapTimeout,
		Logger:          logger,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pool.Close(shutdownCtx); err != nil {
			logger.Error("failed to close webdriver pool", slog.Any("error", err))
		}
	}()

	// C4 — fetch strategies + dispatcher
	httpClient := createHTTPClient()
	webScraperClient := createWebScraperHTTPClient()
	cssStrategy := fetch.NewCSSStrategy(webScraperClient)
	if contentFetchConfig, err := fetcher.LoadConfigFromEnv(); err != nil {
		logger.Warn("invalid content fetch config, disabling content enhancement", slog.Any("error", err))
	} else if contentFetchConfig.Enabled {
		cssStrategy = cssStrategy.WithContentFetcher(fetcher.NewReadabilityFetcher(contentFetchConfig))
	}
	dispatcher := fetch.NewDispatcher(
		fetch.NewDefaultStrategy(httpClient),
		fetch.NewWebdriverStrategy(pool, 10*time.Second),
		fetch.NewInstagramStrategy(pool, 10*time.Second, config.InstagramID, config.InstagramPW),
		cssStrategy,
	)

	// C5 — ingestion
	ingestService := ingest.NewService(items, channels, embeddingService)
	ingestService.AllowFullWalkOnEmpty = config.AllowFullWalkOnEmpty

	// C6 — notification fan-out
	notifyService := setupNotifyService(logger, config, subscriptions)
	startMetricsServer(ctx, logger, notifyService)

	// C7 — ANN index builder
	annIndexService := annindex.NewService(embeddings, config.AnnResourcesDir, metrics)

	deps := &scheduler.Deps{
		Config:     config,
		Metrics:    metrics,
		Logger:     logger,
		Channels:   channels,
		Dispatcher: dispatcher,
		Ingest:     ingestService,
		Notify:     notifyService,
		AnnIndex:   annIndexService,
	}

	supervisor := scheduler.NewSupervisor(config, logger,
		scheduler.NewDeleteOldNewsTrack(deps),
		scheduler.NewFetchNewsTrack(deps),
		scheduler.NewSaveAnnTrack(deps),
		scheduler.NewRssIngestTrack(deps),
		scheduler.NewInfoUpdateTrack(deps),
	)

	healthServer.SetReady(true)
	logger.Info("scheduler marked as ready")

	if err := supervisor.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler supervisor exited with error", slog.Any("error", err))
	}
	logger.Info("scheduler shutting down")

	if err := notifyService.Shutdown(context.Background()); err != nil {
		logger.Error("notification service shutdown failed", slog.Any("error", err))
	}
}

func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	waitForMigrations(logger, database)
	return database
}

// setupEmbeddingProvider requires OPENAI_API_KEY: unlike notifications,
// which degrade gracefully when disabled, embeddings are load-bearing: C5
// stores one with every item and channel and C7 builds its index from them,
// so a missing key is fatal
// at startup rather than a silent no-op collaborator.
func setupEmbeddingProvider(logger *slog.Logger) embedding.Provider {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	cfg := embedder.DefaultOpenAIConfig()
	cfg.APIKey = apiKey
	logger.Info("embedding provider initialized", slog.String("provider", "openai"))
	return embedder.NewOpenAI(cfg)
}

func setupNotifyService(logger *slog.Logger, config *scheduler.Config, subscriptions repository.SubscriptionRepository) notify.Service {
	var channels []notify.Channel

	discordConfig := loadDiscordConfig(logger)
	if discordConfig.Enabled {
		channels = append(channels, notify.NewDiscordChannel(discordConfig))
		logger.Info("Discord channel initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Discord channel disabled")
	}

	slackConfig := loadSlackConfig(logger)
	if slackConfig.Enabled {
		channels = append(channels, notify.NewSlackChannel(slackConfig))
		logger.Info("Slack channel initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Slack channel disabled")
	}

	pushChannel := setupPushChannel(logger, config, subscriptions)
	if pushChannel != nil {
		channels = append(channels, pushChannel)
	}

	notifyService := notify.NewService(channels, config.NotifyMaxConcurrent)
	logger.Info("notification service initialized",
		slog.Int("channels", len(channels)),
		slog.Int("max_concurrent", config.NotifyMaxConcurrent))
	return notifyService
}

// setupPushChannel builds the FCM-backed push channel if both the project
// ID and service account file are configured; a missing or invalid config
// disables push without failing startup, matching Discord/Slack's posture.
func setupPushChannel(logger *slog.Logger, config *scheduler.Config, subscriptions repository.SubscriptionRepository) *notify.PushChannel {
	if config.FCMProjectID == "" || config.FCMServiceAccountJSON == "" {
		logger.Info("push channel disabled, FCM not configured")
		return nil
	}

	fcmNotifier, err := notifier.NewFCMNotifier(notifier.FCMConfig{
		Enabled:                true,
		ProjectID:              config.FCMProjectID,
		ServiceAccountJSONPath: config.FCMServiceAccountJSON,
		Timeout:                10 * time.Second,
	})
	if err != nil {
		logger.Warn("failed to initialize FCM notifier, push channel disabled", slog.Any("error", err))
		return nil
	}

	logger.Info("push channel initialized", slog.String("status", "enabled"))
	return notify.NewPushChannel(fcmNotifier, subscriptions, true)
}

// createHTTPClient creates an HTTP client with timeouts and connection pooling.
// TLS 1.2+ is enforced for security.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// createWebScraperHTTPClient creates an HTTP client for web scraping.
// It has a shorter timeout since CSS-scrape targets are expected to be fast,
// plain HTML pages rather than large feed documents.
func createWebScraperHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// loadDiscordConfig loads Discord configuration from environment variables.
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	enabled := os.Getenv("DISCORD_ENABLED") == "true"
	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")

	if !enabled {
		return notifier.DiscordConfig{Enabled: false}
	}
	if webhookURL == "" {
		logger.Warn("Discord webhook URL is empty, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("Invalid Discord webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.DiscordConfig{Enabled: false}
	}
	if u.Scheme != "https" {
		logger.Warn("Discord webhook URL must use HTTPS, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}
	if u.Host != "discord.com" {
		logger.Warn("Invalid Discord webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.DiscordConfig{Enabled: false}
	}
	if !strings.HasPrefix(u.Path, "/api/webhooks/") {
		logger.Warn("Invalid Discord webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.DiscordConfig{Enabled: false}
	}

	return notifier.DiscordConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

// loadSlackConfig loads Slack configuration from environment variables.
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	enabled := os.Getenv("SLACK_ENABLED") == "true"
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")

	if !enabled {
		return notifier.SlackConfig{Enabled: false}
	}
	if webhookURL == "" {
		logger.Warn("Slack webhook URL is empty, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("Invalid Slack webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.SlackConfig{Enabled: false}
	}
	if u.Scheme != "https" {
		logger.Warn("Slack webhook URL must use HTTPS, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}
	if u.Host != "hooks.slack.com" {
		logger.Warn("Invalid Slack webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.SlackConfig{Enabled: false}
	}
	if !strings.HasPrefix(u.Path, "/services/") {
		logger.Warn("Invalid Slack webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.SlackConfig{Enabled: false}
	}

	return notifier.SlackConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}
