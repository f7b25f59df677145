package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DeleteOldNewsTrack is T1: on the configured cron schedule (midnight
// local time, daily), checks whether today is Sunday and, if so,
// deletes news older than one week. Grounded on
// original_source/src/scheduler/news_scheduler.rs's
// delete_old_news_scheduler, expressed with robfig/cron and
// cron.WithLocation the way the teacher's cmd/worker/main.go
// startCronWorker wires its own daily job.
//
// This core's repository façade (C1) does not expose a News
// repository — spec.md scopes "building a general crawler framework"
// out, and no NewsRepository contract is named anywhere in SPEC_FULL's
// data model. The track still runs on the documented cadence so the
// five-track topology in §4.8 is structurally complete, but its body
// is a logged no-op until a News store is introduced; see DESIGN.md.
type DeleteOldNewsTrack struct {
	cronSchedule string
	timezone     string
	deps         *Deps
}

func NewDeleteOldNewsTrack(deps *Deps) *DeleteOldNewsTrack {
	return &DeleteOldNewsTrack{
		cronSchedule: deps.Config.DeleteOldNewsCron,
		timezone:     deps.Config.Timezone,
		deps:         deps,
	}
}

func (t *DeleteOldNewsTrack) Name() string { return "delete_old_news" }

func (t *DeleteOldNewsTrack) Run(ctx context.Context) {
	logger := trackLogger(t.deps.Logger, t.Name())

	loc, err := time.LoadLocation(t.timezone)
	if err != nil {
		logger.Warn("invalid timezone, using UTC", "timezone", t.timezone, "error", err)
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(t.cronSchedule, func() {
		t.tick(logger, time.Now().In(loc))
	})
	if err != nil {
		logger.Error("failed to add delete_old_news cron job, track idle", "schedule", t.cronSchedule, "error", err)
		return
	}

	c.Start()
	logger.Info("delete_old_news scheduled", "schedule", t.cronSchedule, "timezone", t.timezone)

	<-ctx.Done()
	<-c.Stop().Done()
}

func (t *DeleteOldNewsTrack) tick(logger *slog.Logger, at time.Time) {
	start := time.Now()

	if at.Weekday() != time.Sunday {
		t.deps.Metrics.RecordRun(t.Name(), "success", time.Since(start).Seconds())
		return
	}

	logger.Info("deleting news older than one week (no News repository wired in this core)")
	t.deps.Metrics.RecordRun(t.Name(), "success", time.Since(start).Seconds())
}
