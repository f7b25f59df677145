package scheduler

import (
	"context"
	"log/slog"
	"time"

	"omninews-ingest/internal/domain/entity"
)

// RssIngestTrack is T4: every 10 minutes, walk default channels then
// webdriver channels, running C4 → C5 → C6 for each (ingest new items,
// notify subscribers per item). Grounded on
// original_source/src/scheduler/rss_notification_scheduler.rs.
type RssIngestTrack struct {
	interval time.Duration
	deps     *Deps
}

func NewRssIngestTrack(deps *Deps) *RssIngestTrack {
	return &RssIngestTrack{interval: deps.Config.IngestNotifyInterval, deps: deps}
}

func (t *RssIngestTrack) Name() string { return "rss_ingest_notify" }

func (t *RssIngestTrack) Run(ctx context.Context) {
	logger := trackLogger(t.deps.Logger, t.Name())
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.tick(ctx, logger)
	for {
		select {
		case <-ticker.C:
			t.tick(ctx, logger)
		case <-ctx.Done():
			return
		}
	}
}

func (t *RssIngestTrack) tick(ctx context.Context, logger *slog.Logger) {
	logger.Info("rss ingest+notify tick started")
	start := time.Now()
	status := "success"

	defaultChannels, err := t.deps.Channels.ListDefaultChannels(ctx)
	if err != nil {
		logger.Error("failed to list default channels", "error", err)
		status = "failure"
	} else {
		t.processChannels(ctx, logger, defaultChannels)
	}

	webdriverChannels, err := t.deps.Channels.ListWebdriverChannels(ctx)
	if err != nil {
		logger.Error("failed to list webdriver channels", "error", err)
		status = "failure"
	} else {
		t.processChannels(ctx, logger, webdriverChannels)
	}

	t.deps.Metrics.RecordRun(t.Name(), status, time.Since(start).Seconds())
	logger.Info("rss ingest+notify tick ended")
}

// processChannels ingests and notifies one channel at a time:
// channels within one tick are processed sequentially, and within a
// channel, items are processed in feed order (§5).
func (t *RssIngestTrack) processChannels(ctx context.Context, logger *slog.Logger, channels []*entity.Channel) {
	for _, channel := range channels {
		fetched, err := t.deps.Dispatcher.Fetch(ctx, channel)
		if err != nil {
			logger.Error("fetch failed, skipping channel",
				"channel_id", channel.ID, "channel_title", channel.Title, "error", err)
			continue
		}

		items, err := t.deps.Ingest.Ingest(ctx, channel, fetched.RawItems)
		if err != nil {
			logger.Error("ingest failed", "channel_id", channel.ID, "error", err)
		}

		t.deps.Metrics.RecordItemsIngested(string(channel.Generator), len(items))

		for _, item := range items {
			logger.Info("item ingested", "channel_title", channel.Title, "item_title", item.Title)

			if notifyErr := t.deps.Notify.NotifyNewItem(ctx, item, channel); notifyErr != nil {
				logger.Error("notification fan-out failed",
					"channel_id", channel.ID, "item_id", item.ID, "error", notifyErr)
			}
		}
	}
}
