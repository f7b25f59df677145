package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"omninews-ingest/internal/repository"
	"omninews-ingest/internal/usecase/annindex"
	"omninews-ingest/internal/usecase/fetch"
	"omninews-ingest/internal/usecase/ingest"
	"omninews-ingest/internal/usecase/notify"
)

// Track is a single named periodic job. Run blocks until ctx is
// cancelled; it owns its own ticker loop.
type Track interface {
	Name() string
	Run(ctx context.Context)
}

// Supervisor composes the five scheduler tracks (§4.8): after a
// warm-up delay it launches all five as goroutines and waits for them
// jointly, mirroring original_source/src/main.rs's start_scheduler
// (10s sleep then tokio::join!) and the teacher's errgroup-composed
// worker wiring.
type Supervisor struct {
	config *Config
	logger *slog.Logger
	tracks []Track
}

func NewSupervisor(config *Config, logger *slog.Logger, tracks ...Track) *Supervisor {
	return &Supervisor{config: config, logger: logger, tracks: tracks}
}

// Run waits WarmupDelay (returning ctx.Err() if ctx is cancelled first),
// then starts every track and blocks until all of them have returned,
// which they do once ctx is cancelled (SIGTERM/SIGINT via the caller's
// signal.NotifyContext); it then returns nil. A track that panics is
// logged and stops while the other tracks keep running. A track's
// per-tick errors are logged by the track and never reach Run.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("scheduler warm-up", slog.Duration("delay", s.config.WarmupDelay))
	select {
	case <-time.After(s.config.WarmupDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, track := range s.tracks {
		track := track
		group.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("scheduler track panicked, track stopped",
						slog.String("track", track.Name()), slog.Any("panic", r))
				}
			}()
			track.Run(groupCtx)
			return nil
		})
	}

	s.logger.Info("scheduler tracks started", slog.Int("count", len(s.tracks)))
	return group.Wait()
}

// Deps bundles every collaborator the five tracks share, so each
// track constructor takes one argument instead of a long parameter
// list. Tracks never synchronize with one another except through the
// database (§5).
type Deps struct {
	Config     *Config
	Metrics    *Metrics
	Logger     *slog.Logger
	Channels   repository.ChannelRepository
	Dispatcher *fetch.Dispatcher
	Ingest     *ingest.Service
	Notify     notify.Service
	AnnIndex   *annindex.Service
}

// trackLogger returns a logger scoped with a "track" attribute,
// matching SPEC_FULL.md §6's resolution of the teacher's five
// physical log files into one structured field.
func trackLogger(base *slog.Logger, name string) *slog.Logger {
	return base.With(slog.String("track", name))
}
