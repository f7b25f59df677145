// Package webdriver implements C2: a bounded pool of browser-automation
// sessions backed by github.com/go-rod/rod, talking to a remote
// WebDriver/CDP endpoint.
package webdriver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"

	"omninews-ingest/internal/domain/omniverr"
)

// LaunchFunc creates one browser connection. Swappable for tests.
type LaunchFunc func(ctx context.Context) (*rod.Browser, error)

// Pool is a bounded multiset of ready browser-automation sessions.
// Sessions are lazily launched up to MaxSessions and reused. The reaper
// goroutine runs every IdleReapTimeout/2 and closes idle sessions older
// than IdleReapTimeout; Acquire does not check a session's age, so an
// expired session can still be handed out before the next reaper pass.
type Pool struct {
	maxSessions     int
	launch          LaunchFunc
	idleReapTimeout time.Duration
	logger          *slog.Logger

	mu      sync.Mutex
	idle    []*pooledBrowser
	inUse   int
	waiters []chan struct{}
	closed  bool

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type pooledBrowser struct {
	browser  *rod.Browser
	lastIdle time.Time
}

// Config configures a Pool.
type Config struct {
	MaxSessions     int
	Launch          LaunchFunc
	IdleReapTimeout time.Duration
	Logger          *slog.Logger
}

func NewPool(cfg Config) *Pool {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1
	}
	if cfg.IdleReapTimeout <= 0 {
		cfg.IdleReapTimeout = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	p := &Pool{
		maxSessions:     cfg.MaxSessions,
		launch:          cfg.Launch,
		idleReapTimeout: cfg.IdleReapTimeout,
		logger:          cfg.Logger,
		reaperStop:      make(chan struct{}),
		reaperDone:      make(chan struct{}),
	}
	go p.reapLoop()
	return p
}

// NewRodLaunchFunc returns a LaunchFunc that connects to a remote
// WebDriver/CDP endpoint at controlURL.
func NewRodLaunchFunc(controlURL string) LaunchFunc {
	return func(ctx context.Context) (*rod.Browser, error) {
		browser := rod.New().ControlURL(controlURL).Context(ctx)
		if err := browser.Connect(); err != nil {
			return nil, err
		}
		return browser, nil
	}
}

// AcquireStrategy controls how Acquire behaves when the pool is at
// MaxSessions and every session is in use.
type AcquireStrategy struct {
	wait    bool
	timeout time.Duration
	forever bool
}

func Immediate() AcquireStrategy { return AcquireStrategy{} }

func WaitTimeout(d time.Duration) AcquireStrategy {
	return AcquireStrategy{wait: true, timeout: d}
}

func WaitForever() AcquireStrategy {
	return AcquireStrategy{wait: true, forever: true}
}

// Acquire returns a Session, launching a new browser if the pool has
// room, reusing an idle one if available, or waiting per strategy
// otherwise. The caller must call exactly one of Session.Release or
// Session.Poison, typically via defer.
func (p *Pool) Acquire(ctx context.Context, strategy AcquireStrategy) (*Session, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, omniverr.WebDriverPool(omniverr.PoolWebDriver, fmt.Errorf("pool closed"))
		}

		if n := len(p.idle); n > 0 {
			pb := p.idle[n-1]
			p.idle = p.idle[:n-1]
			p.inUse++
			p.mu.Unlock()
			return newSession(p, pb.browser), nil
		}

		if p.inUse < p.maxSessions {
			p.inUse++
			p.mu.Unlock()
			browser, err := p.launch(ctx)
			if err != nil {
				p.mu.Lock()
				p.inUse--
				p.mu.Unlock()
				return nil, omniverr.WebDriver(err)
			}
			return newSession(p, browser), nil
		}

		if !strategy.wait {
			p.mu.Unlock()
			return nil, omniverr.WebDriverPool(omniverr.PoolExhausted, nil)
		}

		ready := make(chan struct{})
		p.waiters = append(p.waiters, ready)
		p.mu.Unlock()

		if strategy.forever {
			select {
			case <-ready:
				continue
			case <-ctx.Done():
				return nil, omniverr.WebDriver(ctx.Err())
			}
		}

		timer := time.NewTimer(strategy.timeout)
		select {
		case <-ready:
			timer.Stop()
			continue
		case <-timer.C:
			return nil, omniverr.WebDriverPool(omniverr.PoolTimeout, nil)
		case <-ctx.Done():
			timer.Stop()
			return nil, omniverr.WebDriver(ctx.Err())
		}
	}
}

// release returns browser to the idle set and wakes the oldest waiter
// (FIFO: waiters are woken in the order they queued, one per release).
func (p *Pool) release(browser *rod.Browser) {
	p.mu.Lock()
	p.inUse--
	p.idle = append(p.idle, &pooledBrowser{browser: browser, lastIdle: time.Now()})
	p.wakeOneLocked()
	p.mu.Unlock()
}

// poison discards browser instead of returning it to the idle set.
func (p *Pool) poison(browser *rod.Browser) {
	p.mu.Lock()
	p.inUse--
	p.wakeOneLocked()
	p.mu.Unlock()
	if err := browser.Close(); err != nil {
		p.logger.Warn("webdriver pool: error closing poisoned session", slog.Any("error", err))
	}
}

func (p *Pool) wakeOneLocked() {
	if len(p.waiters) == 0 {
		return
	}
	next := p.waiters[0]
	p.waiters = p.waiters[1:]
	close(next)
}

func (p *Pool) reapLoop() {
	defer close(p.reaperDone)
	ticker := time.NewTicker(p.idleReapTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-p.reaperStop:
			return
		case <-ticker.C:
			p.reapIdle()
		}
	}
}

func (p *Pool) reapIdle() {
	p.mu.Lock()
	cutoff := time.Now().Add(-p.idleReapTimeout)
	kept := p.idle[:0]
	var stale []*pooledBrowser
	for _, pb := range p.idle {
		if pb.lastIdle.Before(cutoff) {
			stale = append(stale, pb)
		} else {
			kept = append(kept, pb)
		}
	}
	p.idle = kept
	p.mu.Unlock()

	for _, pb := range stale {
		if err := pb.browser.Close(); err != nil {
			p.logger.Warn("webdriver pool: error closing idle session", slog.Any("error", err))
		}
	}
}

// Close stops the reaper and closes every idle session. It does not
// forcibly close sessions currently checked out; callers are expected
// to have released them by the time Close runs (matching the
// supervisor's shutdown order: tracks stop before the pool closes).
func (p *Pool) Close(ctx context.Context) error {
	close(p.reaperStop)
	select {
	case <-p.reaperDone:
	case <-ctx.Done():
	}

	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	for _, w := range p.waiters {
		close(w)
	}
	p.waiters = nil
	p.mu.Unlock()

	var firstErr error
	for _, pb := range idle {
		if err := pb.browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// InUse returns the current checked-out session count, for metrics.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Idle returns the current idle session count, for metrics.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}
