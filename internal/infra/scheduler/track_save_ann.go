package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// SaveAnnTrack is T3: every hour, run C7 to rebuild and persist all
// three ANN index files. Grounded on
// original_source/src/scheduler/annoy_scheduler.rs's save_annoy_scheduler.
type SaveAnnTrack struct {
	interval time.Duration
	deps     *Deps
}

func NewSaveAnnTrack(deps *Deps) *SaveAnnTrack {
	return &SaveAnnTrack{interval: deps.Config.SaveAnnInterval, deps: deps}
}

func (t *SaveAnnTrack) Name() string { return "save_ann" }

func (t *SaveAnnTrack) Run(ctx context.Context) {
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

func (t *SaveAnnTrack) tick(ctx context.Context, logger *slog.Logger) {
	start := time.Now()
	status := "success"

	if err := t.deps.AnnIndex.BuildAll(ctx); err != nil {
		status = "failure"
		logger.Error("failed to save ann indices", "error", err)
	}

	t.deps.Metrics.RecordRun(t.Name(), status, time.Since(start).Seconds())
}
