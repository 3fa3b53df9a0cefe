// Package browser defines the page-automation capability the acquisition
// pipeline drives. Implementations live in subpackages.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a bounded wait expires.
var ErrTimeout = errors.New("browser: wait timed out")

// BodyTextExpr evaluates to the visible text of the current page.
const BodyTextExpr = `document.body ? document.body.textContent : ""`

// WaitStrategy decides when a navigation counts as complete.
type WaitStrategy int

const (
	// NetworkIdle waits until the page has had almost no network activity for a short period.
	NetworkIdle WaitStrategy = iota
	// DOMReady waits for the DOMContentLoaded event only.
	DOMReady
)

func (w WaitStrategy) String() string {
	switch w {
	case NetworkIdle:
		return "network-idle"
	case DOMReady:
		return "dom-ready"
	default:
		return "unknown"
	}
}

// ResourceType names the kind of sub-resource a page requests.
type ResourceType string

// Resource types the request filter can act on.
const (
	ResourceDocument   ResourceType = "Document"
	ResourceStylesheet ResourceType = "Stylesheet"
	ResourceImage      ResourceType = "Image"
	ResourceMedia      ResourceType = "Media"
	ResourceFont       ResourceType = "Font"
	ResourceScript     ResourceType = "Script"
	ResourceXHR        ResourceType = "XHR"
	ResourceFetch      ResourceType = "Fetch"
	ResourceOther      ResourceType = "Other"
)

// RequestFilter reports whether a request of the given type should be aborted.
type RequestFilter func(ResourceType) bool

// BlockResources returns a filter aborting every listed type.
func BlockResources(types ...ResourceType) RequestFilter {
	blocked := make(map[ResourceType]struct{}, len(types))
	for _, t := range types {
		blocked[t] = struct{}{}
	}
	return func(t ResourceType) bool {
		_, ok := blocked[t]
		return ok
	}
}

// Session is one isolated browser context with a single page. It is not
// safe for concurrent use and must be closed by its owner.
type Session interface {
	SetRequestFilter(ctx context.Context, filter RequestFilter) error
	SetUserAgent(ctx context.Context, userAgent string) error
	SetExtraHeaders(ctx context.Context, headers map[string]string) error
	Navigate(ctx context.Context, url string, wait WaitStrategy, timeout time.Duration) error
	WaitForNavigation(ctx context.Context, wait WaitStrategy, timeout time.Duration) error
	Evaluate(ctx context.Context, expression string, out any) error
	Content(ctx context.Context) (string, error)
	Type(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// LaunchOptions configure a new session.
type LaunchOptions struct {
	Headless     bool
	ExecPath     string
	WindowWidth  int
	WindowHeight int
	NoSandbox    bool
}

// Launcher starts sessions.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

// NavigateWithFallback navigates waiting for NetworkIdle and, if that fails
// for any reason, retries once waiting only for DOMReady. It returns the
// strategy that succeeded; when both fail the DOMReady error is returned
// joined with the first.
func NavigateWithFallback(ctx context.Context, s Session, url string, timeout time.Duration) (WaitStrategy, error) {
	first := s.Navigate(ctx, url, NetworkIdle, timeout)
	if first == nil {
		return NetworkIdle, nil
	}
	if err := ctx.Err(); err != nil {
		return NetworkIdle, errors.Join(first, err)
	}
	if err := s.Navigate(ctx, url, DOMReady, timeout); err != nil {
		return DOMReady, errors.Join(err, first)
	}
	return DOMReady, nil
}
