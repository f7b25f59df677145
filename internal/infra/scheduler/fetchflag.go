package scheduler

import "sync"

// fetchFlag is the process-wide mutual-exclusion gate for the fetch-news
// track. Only one crawl may run at a time; a tick that finds the flag
// already disabled is simply skipped rather than queued.
//
// State diagram:
//
//	enabled  --[tick, work starts]--> disabled
//	disabled --[crawl succeeds]-----> disabled
//	disabled --[crawl fails]--------> enabled
//
// TryAcquire disables the flag when a crawl starts and Release re-enables
// it. FetchNewsTrack never calls Release, because its crawl step always
// succeeds, so once its first tick has run the flag stays disabled and every
// later tick is skipped. There is no external control surface to force the
// flag open or closed; an operator who wants that has to restart the
// process (see DESIGN.md).
type fetchFlag struct {
	mu      sync.Mutex
	enabled bool
	gauge   interface{ Set(float64) }
}

func newFetchFlag(gauge interface{ Set(float64) }) *fetchFlag {
	f := &fetchFlag{enabled: true, gauge: gauge}
	f.gauge.Set(1)
	return f
}

// TryAcquire disables the flag and returns true if it was previously enabled.
// Returns false without side effects if a crawl is already in flight.
func (f *fetchFlag) TryAcquire() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.enabled {
		return false
	}
	f.enabled = false
	f.gauge.Set(0)
	return true
}

// Release re-enables the flag, allowing the next tick to start a crawl.
func (f *fetchFlag) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = true
	f.gauge.Set(1)
}
