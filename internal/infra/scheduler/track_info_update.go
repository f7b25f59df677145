package scheduler

import (
	"context"
	"log/slog"
	"time"

	"omninews-ingest/internal/domain/entity"
)

// InfoUpdateTrack is T5: every 24 hours, refresh channel metadata
// (title/description/image/rss link) for default channels then
// webdriver channels, re-embedding and writing each row only when the
// refetch and embedding both succeed. Grounded on
// original_source/src/scheduler/rss_info_update_scheduler.rs.
type InfoUpdateTrack struct {
	interval time.Duration
	deps     *Deps
}

func NewInfoUpdateTrack(deps *Deps) *InfoUpdateTrack {
	return &InfoUpdateTrack{interval: deps.Config.InfoUpdateInterval, deps: deps}
}

func (t *InfoUpdateTrack) Name() string { return "rss_info_update" }

func (t *InfoUpdateTrack) Run(ctx context.Context) {
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

func (t *InfoUpdateTrack) tick(ctx context.Context, logger *slog.Logger) {
	logger.Info("rss info update tick started")
	start := time.Now()
	status := "success"

	defaultChannels, err := t.deps.Channels.ListDefaultChannels(ctx)
	if err != nil {
		logger.Error("failed to list default channels", "error", err)
		status = "failure"
	} else {
		t.refreshChannels(ctx, logger, defaultChannels)
	}

	webdriverChannels, err := t.deps.Channels.ListWebdriverChannels(ctx)
	if err != nil {
		logger.Error("failed to list webdriver channels", "error", err)
		status = "failure"
	} else {
		t.refreshChannels(ctx, logger, webdriverChannels)
	}

	t.deps.Metrics.RecordRun(t.Name(), status, time.Since(start).Seconds())
	logger.Info("rss info update tick ended")
}

func (t *InfoUpdateTrack) refreshChannels(ctx context.Context, logger *slog.Logger, channels []*entity.Channel) {
	for _, channel := range channels {
		fetched, err := t.deps.Dispatcher.Fetch(ctx, channel)
		if err != nil {
			logger.Error("failed to get rss info", "channel_id", channel.ID, "rss_link", channel.RSSLink, "error", err)
			continue
		}

		description := fetched.Metadata.Description

		if err := t.deps.Ingest.UpdateChannelMetadata(ctx, channel.ID, fetched.Metadata, description); err != nil {
			logger.Error("failed rss info update", "channel_id", channel.ID, "error", err)
			continue
		}
		logger.Info("rss info update updated", "channel_id", channel.ID, "channel_title", fetched.Metadata.Title)
	}
}
