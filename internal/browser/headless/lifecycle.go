package headless

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/cdp"

	"github.com/JakeFAU/profile-screener/internal/browser"
)

// Page lifecycle event names reported by Chrome.
const (
	eventDOMContentLoaded  = "DOMContentLoaded"
	eventNetworkAlmostIdle = "networkAlmostIdle"
)

func lifecycleEvent(wait browser.WaitStrategy) string {
	if wait == browser.DOMReady {
		return eventDOMContentLoaded
	}
	return eventNetworkAlmostIdle
}

// lifecycle tracks which lifecycle events each loader of the main frame has
// fired. Waiters block on a broadcast channel that is replaced on every change.
type lifecycle struct {
	mu      sync.Mutex
	loader  cdp.LoaderID
	events  map[cdp.LoaderID]map[string]struct{}
	changed chan struct{}
}

func newLifecycle() *lifecycle {
	return &lifecycle{
		events:  make(map[cdp.LoaderID]map[string]struct{}),
		changed: make(chan struct{}),
	}
}

// frameNavigated records the loader of a committed main-frame navigation.
func (l *lifecycle) frameNavigated(frame *cdp.Frame) {
	if frame == nil || frame.ParentID != "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loader != frame.LoaderID {
		// Only the current document's events are ever awaited again.
		delete(l.events, l.loader)
		l.loader = frame.LoaderID
	}
	l.notifyLocked()
}

func (l *lifecycle) record(loader cdp.LoaderID, name string) {
	if loader == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if name == "init" {
		// A loader restarting its lifecycle forgets earlier events.
		l.events[loader] = make(map[string]struct{})
	}
	seen, ok := l.events[loader]
	if !ok {
		seen = make(map[string]struct{})
		l.events[loader] = seen
	}
	seen[name] = struct{}{}
	l.notifyLocked()
}

func (l *lifecycle) current() cdp.LoaderID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loader
}

func (l *lifecycle) notifyLocked() {
	close(l.changed)
	l.changed = make(chan struct{})
}

// wait blocks until loader has fired name.
func (l *lifecycle) wait(ctx context.Context, loader cdp.LoaderID, name string) error {
	return l.until(ctx, func() bool {
		_, ok := l.events[loader][name]
		return ok
	})
}

// waitForNew blocks until the main frame commits a loader other than prev
// and that loader fires name.
func (l *lifecycle) waitForNew(ctx context.Context, prev cdp.LoaderID, name string) error {
	return l.until(ctx, func() bool {
		if l.loader == "" || l.loader == prev {
			return false
		}
		_, ok := l.events[l.loader][name]
		return ok
	})
}

func (l *lifecycle) until(ctx context.Context, done func() bool) error {
	for {
		l.mu.Lock()
		ok := done()
		ch := l.changed
		l.mu.Unlock()
		if ok {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
