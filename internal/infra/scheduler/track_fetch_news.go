package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// FetchNewsTrack is T2: every 5 minutes, guarded by the process-wide
// fetch-flag (§4.9), attempt a news crawl-and-store. Grounded on
// original_source/src/scheduler/news_scheduler.rs's
// fetch_news_scheduler for the flag state machine.
//
// Like T1, this core's C1 façade has no News repository/crawler
// collaborator to call (see the note on DeleteOldNewsTrack and
// DESIGN.md); the flag transitions and logging are faithfully
// reproduced, but "crawl-and-store" itself is a no-op that always
// succeeds, since inventing a concrete news source here would be
// building the general crawler framework spec.md excludes.
type FetchNewsTrack struct {
	interval time.Duration
	flag     *fetchFlag
	deps     *Deps
}

func NewFetchNewsTrack(deps *Deps) *FetchNewsTrack {
	flag := newFetchFlag(deps.Metrics.FetchFlagEnabled)
	return &FetchNewsTrack{interval: deps.Config.FetchNewsInterval, flag: flag, deps: deps}
}

func (t *FetchNewsTrack) Name() string { return "fetch_news" }

func (t *FetchNewsTrack) Run(ctx context.Context) {
	logger := trackLogger(t.deps.Logger, t.Name())
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.tick(logger)
	for {
		select {
		case <-ticker.C:
			t.tick(logger)
		case <-ctx.Done():
			return
		}
	}
}

func (t *FetchNewsTrack) tick(logger *slog.Logger) {
	start := time.Now()

	if !t.flag.TryAcquire() {
		logger.Info("stop fetching news, crawl already in flight")
		t.deps.Metrics.RecordRun(t.Name(), "skipped", time.Since(start).Seconds())
		return
	}

	logger.Info("fetching news")
	// Crawl succeeds unconditionally (no News source wired, see type
	// doc); the flag is intentionally left disabled on success per
	// §4.9 and Open Question 3 — only a crawl failure re-enables it.
	t.deps.Metrics.RecordRun(t.Name(), "success", time.Since(start).Seconds())
}
