package webdriver

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Session is a scoped handle on one pooled browser. Exactly one of
// Release or Poison must be called, typically via defer immediately
// after Acquire succeeds.
type Session struct {
	pool    *Pool
	browser *rod.Browser

	once sync.Once
}

func newSession(pool *Pool, browser *rod.Browser) *Session {
	return &Session{pool: pool, browser: browser}
}

// Release returns the underlying browser to the pool for reuse.
func (s *Session) Release() {
	s.once.Do(func() { s.pool.release(s.browser) })
}

// Poison marks the session broken; the pool discards and does not
// reuse it. Call this instead of Release when a script/navigation
// error suggests the browser itself is in a bad state (crashed tab,
// detached target) rather than a normal per-page failure.
func (s *Session) Poison() {
	s.once.Do(func() { s.pool.poison(s.browser) })
}

// Page opens a fresh blank page bound to ctx. Callers are responsible
// for closing the returned page when done with it; the browser itself
// stays checked out until Release/Poison.
func (s *Session) Page(ctx context.Context) (*rod.Page, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, err
	}
	return page.Context(ctx), nil
}

// WaitReady navigates page to url and waits for document.readyState to
// reach "interactive" or "complete", capped at maxWait (§4.3 step 1).
func WaitReady(page *rod.Page, url string, maxWait time.Duration) error {
	if err := page.Navigate(url); err != nil {
		return err
	}
	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		result, err := page.Eval(`() => document.readyState`)
		if err == nil {
			state := result.Value.Str()
			if state == "interactive" || state == "complete" {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}
