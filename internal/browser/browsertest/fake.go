// Package browsertest provides an in-memory browser.Session for tests. Pages
// are canned HTML documents keyed by URL; clicks may move to another page.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/profile-screener/internal/browser"
)

// Session is a scripted browser.Session. Configure the exported fields before
// use; call-recording fields are safe to read after the session is closed.
type Session struct {
	// Pages maps URLs (or arbitrary keys used by ClickTargets) to HTML.
	Pages map[string]string
	// NavigateErrs fails Navigate for the given wait strategy.
	NavigateErrs map[browser.WaitStrategy]error
	// ClickTargets moves to another page key after clicking the selector.
	ClickTargets map[string]string
	// ClickRewrites replaces page content after clicking the selector, for
	// pages whose content depends on earlier actions such as signing in.
	ClickRewrites map[string]map[string]string
	// ScreenshotErr fails Screenshot when set.
	ScreenshotErr error

	mu          sync.Mutex
	current     string
	filter      browser.RequestFilter
	userAgent   string
	headers     map[string]string
	typed       map[string]string
	navigations []Navigation
	clicks      []string
	closes      int
}

// Navigation records one Navigate call.
type Navigation struct {
	URL  string
	Wait browser.WaitStrategy
}

var _ browser.Session = (*Session)(nil)

// NewSession returns a session serving pages.
func NewSession(pages map[string]string) *Session {
	return &Session{Pages: pages}
}

// SetRequestFilter records the filter.
func (s *Session) SetRequestFilter(_ context.Context, filter browser.RequestFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = filter
	return nil
}

// SetUserAgent records the user agent.
func (s *Session) SetUserAgent(_ context.Context, userAgent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userAgent = userAgent
	return nil
}

// SetExtraHeaders records the headers.
func (s *Session) SetExtraHeaders(_ context.Context, headers map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers = headers
	return nil
}

// Navigate moves to url unless an error is scripted for wait.
func (s *Session) Navigate(ctx context.Context, url string, wait browser.WaitStrategy, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigations = append(s.navigations, Navigation{URL: url, Wait: wait})
	if err := s.NavigateErrs[wait]; err != nil {
		return err
	}
	if _, ok := s.Pages[url]; !ok {
		return fmt.Errorf("navigate %s: no such page", url)
	}
	s.current = url
	return nil
}

// WaitForNavigation returns immediately; clicks navigate synchronously.
func (s *Session) WaitForNavigation(ctx context.Context, _ browser.WaitStrategy, _ time.Duration) error {
	return ctx.Err()
}

// Evaluate supports a single expression: reading the body text into a *string.
func (s *Session) Evaluate(_ context.Context, _ string, out any) error {
	target, ok := out.(*string)
	if !ok {
		return errors.New("browsertest: Evaluate only supports *string results")
	}
	doc, err := s.document()
	if err != nil {
		return err
	}
	*target = doc.Find("body").Text()
	return nil
}

// Content returns the current page's HTML.
func (s *Session) Content(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Pages[s.current], nil
}

// Type records text typed into selector, failing when it is absent.
func (s *Session) Type(_ context.Context, selector, text string) error {
	if !s.has(selector) {
		return fmt.Errorf("type into %s: element not found", selector)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typed == nil {
		s.typed = make(map[string]string)
	}
	s.typed[selector] = text
	return nil
}

// Click records the click and follows ClickTargets.
func (s *Session) Click(_ context.Context, selector string) error {
	if !s.has(selector) {
		return fmt.Errorf("click %s: element not found", selector)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks = append(s.clicks, selector)
	for key, html := range s.ClickRewrites[selector] {
		s.Pages[key] = html
	}
	if next, ok := s.ClickTargets[selector]; ok {
		s.current = next
	}
	return nil
}

// WaitForSelector succeeds when selector is present and otherwise reports a
// timeout without sleeping.
func (s *Session) WaitForSelector(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.has(selector) {
		return fmt.Errorf("wait for %s: %w", selector, browser.ErrTimeout)
	}
	return nil
}

// Screenshot returns a fixed payload.
func (s *Session) Screenshot(_ context.Context) ([]byte, error) {
	if s.ScreenshotErr != nil {
		return nil, s.ScreenshotErr
	}
	return []byte("\x89PNG fake"), nil
}

// Close counts calls.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// Closes reports how many times Close was called.
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Navigations returns the recorded Navigate calls.
func (s *Session) Navigations() []Navigation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Navigation(nil), s.navigations...)
}

// Clicks returns the clicked selectors in order.
func (s *Session) Clicks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clicks...)
}

// Typed returns what was typed into selector.
func (s *Session) Typed(selector string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typed[selector]
}

// UserAgent returns the configured user agent.
func (s *Session) UserAgent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userAgent
}

// Headers returns the configured extra headers.
func (s *Session) Headers() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers
}

// Filter returns the configured request filter.
func (s *Session) Filter() browser.RequestFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Current returns the key of the page being shown.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) document() (*goquery.Document, error) {
	s.mu.Lock()
	html := s.Pages[s.current]
	s.mu.Unlock()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func (s *Session) has(selector string) bool {
	doc, err := s.document()
	if err != nil {
		return false
	}
	return doc.Find(selector).Length() > 0
}

// Launcher hands out a prepared session.
type Launcher struct {
	Session *Session
	Err     error

	mu       sync.Mutex
	launches int
	opts     []browser.LaunchOptions
}

// Launch returns the prepared session or the scripted error.
func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	l.opts = append(l.opts, opts)
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Session, nil
}

// Launches reports how many sessions were requested.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}
