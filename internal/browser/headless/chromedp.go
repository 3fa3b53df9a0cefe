// Package headless implements browser.Session on top of chromedp and a
// locally launched Chrome.
package headless

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-screener/internal/browser"
)

const (
	defaultWindowWidth  = 1920
	defaultWindowHeight = 1080
	viewportWidth       = 1280
	viewportHeight      = 800
	defaultActionWait   = 30 * time.Second
	screenshotQuality   = 100
)

// Launcher starts one Chrome process per session.
type Launcher struct {
	logger     *zap.Logger
	actionWait time.Duration
}

// NewLauncher creates a chromedp-backed launcher.
func NewLauncher(logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{logger: logger.Named("browser"), actionWait: defaultActionWait}
}

// Launch starts Chrome and returns a session bound to its first tab. The
// browser outlives ctx; only Close tears it down.
func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(opts)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		tabCtx:     tabCtx,
		cancel:     func() { tabCancel(); allocCancel() },
		logger:     l.logger,
		actionWait: l.actionWait,
		lc:         newLifecycle(),
		status:     &documentStatus{},
	}
	chromedp.ListenTarget(tabCtx, s.onEvent)

	// Abort a slow start if the caller gives up.
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()

	// The first Run allocates the browser and must use the tab context itself.
	if err := chromedp.Run(tabCtx); err != nil {
		s.cancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	if err := s.run(ctx, l.actionWait,
		page.Enable(),
		page.SetLifecycleEventsEnabled(true),
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
	); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("prepare page: %w", err)
	}
	l.logger.Debug("browser session started", zap.Bool("headless", opts.Headless))
	return s, nil
}

func allocatorOptions(opts browser.LaunchOptions) []chromedp.ExecAllocatorOption {
	width, height := opts.WindowWidth, opts.WindowHeight
	if width <= 0 || height <= 0 {
		width, height = defaultWindowWidth, defaultWindowHeight
	}
	out := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if opts.Headless {
		out = append(out, chromedp.Flag("headless", "new"))
	} else {
		out = append(out, chromedp.Flag("headless", false))
	}
	out = append(out,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(width, height),
	)
	if opts.NoSandbox {
		out = append(out, chromedp.NoSandbox)
	}
	if opts.ExecPath != "" {
		out = append(out, chromedp.ExecPath(opts.ExecPath))
	}
	return out
}

// Session drives a single Chrome tab.
type Session struct {
	tabCtx     context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
	actionWait time.Duration
	lc         *lifecycle
	status     *documentStatus

	mu       sync.Mutex
	filter   browser.RequestFilter
	baseline *cdp.LoaderID

	closeOnce sync.Once
	closeErr  error
}

var _ browser.Session = (*Session)(nil)

// scope derives a context from the tab that is cancelled when ctx is, or
// when timeout elapses.
func (s *Session) scope(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(s.tabCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(s.tabCtx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := s.scope(ctx, timeout)
	defer cancel()
	return classify(ctx, chromedp.Run(runCtx, actions...))
}

// classify turns a deadline hit on the session-side context into ErrTimeout
// while leaving caller cancellation visible as such.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", browser.ErrTimeout, err)
	}
	return err
}

func (s *Session) onEvent(ev any) {
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		s.lc.frameNavigated(e.Frame)
	case *page.EventLifecycleEvent:
		s.lc.record(e.LoaderID, e.Name)
	case *network.EventResponseReceived:
		s.status.capture(e)
	case *fetch.EventRequestPaused:
		// Handlers must not block the event loop.
		go s.resolveRequest(e)
	}
}

func (s *Session) resolveRequest(ev *fetch.EventRequestPaused) {
	c := chromedp.FromContext(s.tabCtx)
	if c == nil || c.Target == nil {
		return
	}
	ctx := cdp.WithExecutor(s.tabCtx, c.Target)

	var err error
	if s.blocks(browser.ResourceType(ev.ResourceType)) {
		err = fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(ctx)
	} else {
		err = fetch.ContinueRequest(ev.RequestID).Do(ctx)
	}
	if err != nil && s.tabCtx.Err() == nil {
		s.logger.Debug("resolve paused request", zap.String("resource", string(ev.ResourceType)), zap.Error(err))
	}
}

func (s *Session) blocks(t browser.ResourceType) bool {
	s.mu.Lock()
	filter := s.filter
	s.mu.Unlock()
	return filter != nil && filter(t)
}

// SetRequestFilter intercepts every request and aborts those the filter rejects.
func (s *Session) SetRequestFilter(ctx context.Context, filter browser.RequestFilter) error {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	if filter == nil {
		return s.run(ctx, s.actionWait, fetch.Disable())
	}
	if err := s.run(ctx, s.actionWait, fetch.Enable()); err != nil {
		return fmt.Errorf("enable request interception: %w", err)
	}
	return nil
}

// SetUserAgent overrides the user agent for subsequent requests.
func (s *Session) SetUserAgent(ctx context.Context, userAgent string) error {
	if err := s.run(ctx, s.actionWait, emulation.SetUserAgentOverride(userAgent)); err != nil {
		return fmt.Errorf("set user-agent: %w", err)
	}
	return nil
}

// SetExtraHeaders attaches headers to every request the page makes.
func (s *Session) SetExtraHeaders(ctx context.Context, headers map[string]string) error {
	if err := s.run(ctx, s.actionWait,
		network.Enable(),
		network.SetExtraHTTPHeaders(toNetworkHeaders(headers)),
	); err != nil {
		return fmt.Errorf("set extra headers: %w", err)
	}
	return nil
}

// Navigate loads url and waits for the strategy's lifecycle event.
func (s *Session) Navigate(ctx context.Context, url string, wait browser.WaitStrategy, timeout time.Duration) error {
	runCtx, cancel := s.scope(ctx, timeout)
	defer cancel()

	var loaderID cdp.LoaderID
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, loader, errorText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("navigation error: %s", errorText)
		}
		loaderID = loader
		return nil
	}))
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, classify(ctx, err))
	}
	// Same-document navigations have no loader and nothing to wait for.
	if loaderID == "" {
		return nil
	}
	if err := s.lc.wait(runCtx, loaderID, lifecycleEvent(wait)); err != nil {
		return fmt.Errorf("navigate %s: wait %s: %w", url, wait, classify(ctx, err))
	}
	s.logger.Debug("navigated",
		zap.String("url", url),
		zap.Stringer("wait", wait),
		zap.Int("status", s.status.get()),
	)
	return nil
}

// WaitForNavigation waits for a navigation triggered by the page itself,
// typically by the last Click.
func (s *Session) WaitForNavigation(ctx context.Context, wait browser.WaitStrategy, timeout time.Duration) error {
	s.mu.Lock()
	prev := s.lc.current()
	if s.baseline != nil {
		prev = *s.baseline
		s.baseline = nil
	}
	s.mu.Unlock()

	runCtx, cancel := s.scope(ctx, timeout)
	defer cancel()
	if err := s.lc.waitForNew(runCtx, prev, lifecycleEvent(wait)); err != nil {
		return fmt.Errorf("wait for navigation: %w", classify(ctx, err))
	}
	return nil
}

// Evaluate runs a JavaScript expression and decodes its result into out.
func (s *Session) Evaluate(ctx context.Context, expression string, out any) error {
	if err := s.run(ctx, s.actionWait, chromedp.Evaluate(expression, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

// Content returns the serialized DOM of the current page.
func (s *Session) Content(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.actionWait, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return html, nil
}

// Type focuses selector and sends text as keystrokes.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	if err := s.run(ctx, s.actionWait, chromedp.SendKeys(selector, text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}
	return nil
}

// Click clicks the first element matching selector. A navigation it starts
// can be awaited with WaitForNavigation.
func (s *Session) Click(ctx context.Context, selector string) error {
	s.mu.Lock()
	prev := s.lc.current()
	s.baseline = &prev
	s.mu.Unlock()

	if err := s.run(ctx, s.actionWait, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// WaitForSelector waits until selector is present in the DOM.
func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

// Screenshot captures the full page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.actionWait, chromedp.FullScreenshot(&buf, screenshotQuality)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// Close shuts the browser down. Repeated calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		err := chromedp.Cancel(s.tabCtx)
		s.cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("close browser: %w", err)
		}
	})
	return s.closeErr
}

func toNetworkHeaders(h map[string]string) network.Headers {
	headers := make(network.Headers, len(h))
	for key, value := range h {
		if key == "" {
			continue
		}
		headers[key] = value
	}
	return headers
}

// documentStatus remembers the HTTP status of the last main document
// response, for logging.
type documentStatus struct {
	mu     sync.Mutex
	status int
}

func (d *documentStatus) capture(ev *network.EventResponseReceived) {
	if ev.Type != network.ResourceTypeDocument || ev.Response == nil {
		return
	}
	d.mu.Lock()
	d.status = int(ev.Response.Status)
	d.mu.Unlock()
}

func (d *documentStatus) get() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}
