// Package auth signs a browser session in through the site's login form.
package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/profile-screener/internal/browser"
	"github.com/JakeFAU/profile-screener/internal/detector"
	"github.com/JakeFAU/profile-screener/internal/extract"
	"github.com/JakeFAU/profile-screener/internal/logging"
	"github.com/JakeFAU/profile-screener/internal/profile"
)

// State is a step of the login state machine.
type State int

// Login states in the order they are reached.
const (
	Unauthenticated State = iota
	LoginPageLoaded
	CredentialsSubmitted
	AuthenticatedSuccess
	AuthenticatedFailure
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case LoginPageLoaded:
		return "login-page-loaded"
	case CredentialsSubmitted:
		return "credentials-submitted"
	case AuthenticatedSuccess:
		return "authenticated"
	case AuthenticatedFailure:
		return "authentication-failed"
	default:
		return "unknown"
	}
}

// DefaultLoginURL is the sign-in page.
const DefaultLoginURL = "https://www.linkedin.com/login"

// Config holds the login page location and the selectors the flow drives.
type Config struct {
	LoginURL          string
	NavigationTimeout time.Duration
	UsernameSelector  string
	PasswordSelector  string
	// SubmitSelectors are tried in order; the first present one is clicked.
	SubmitSelectors []string
	// SuccessMarkers identify the signed-in landing page.
	SuccessMarkers []string
}

// DefaultConfig returns the selectors of the current login form.
func DefaultConfig() Config {
	return Config{
		LoginURL:          DefaultLoginURL,
		NavigationTimeout: 60 * time.Second,
		UsernameSelector:  "#username",
		PasswordSelector:  "#password",
		SubmitSelectors: []string{
			".login__form_action_container button",
			`button[type="submit"]`,
		},
		SuccessMarkers: []string{
			".feed-identity-module",
			".global-nav__me",
			"#global-nav",
		},
	}
}

// Flow performs one login per call. It holds no per-call state and may be
// shared between goroutines.
type Flow struct {
	cfg      Config
	detector *detector.Detector
	logger   *zap.Logger
}

// New creates a Flow. Zero-valued config fields fall back to DefaultConfig.
func New(cfg Config, det *detector.Detector, logger *zap.Logger) *Flow {
	def := DefaultConfig()
	if cfg.LoginURL == "" {
		cfg.LoginURL = def.LoginURL
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = def.NavigationTimeout
	}
	if cfg.UsernameSelector == "" {
		cfg.UsernameSelector = def.UsernameSelector
	}
	if cfg.PasswordSelector == "" {
		cfg.PasswordSelector = def.PasswordSelector
	}
	if len(cfg.SubmitSelectors) == 0 {
		cfg.SubmitSelectors = def.SubmitSelectors
	}
	if len(cfg.SuccessMarkers) == 0 {
		cfg.SuccessMarkers = def.SuccessMarkers
	}
	if det == nil {
		det = detector.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{cfg: cfg, detector: det, logger: logger.Named("auth")}
}

// Login signs sess in with creds and, on success, returns to targetURL. The
// returned state is where the machine stopped; a non-nil error is always an
// *profile.AcquisitionError.
func (f *Flow) Login(ctx context.Context, sess browser.Session, creds profile.Credentials, targetURL string) (State, error) {
	if creds.Email == "" || creds.Password == "" {
		return Unauthenticated, profile.NewError(profile.KindLoginRequired,
			"profile requires login but no credentials were provided", nil)
	}

	f.logger.Info("login required, signing in", logging.Account(creds.Email))
	if err := sess.Navigate(ctx, f.cfg.LoginURL, browser.NetworkIdle, f.cfg.NavigationTimeout); err != nil {
		return Unauthenticated, profile.NewError(profile.KindNavigation, "load login page", err)
	}
	state := LoginPageLoaded

	if err := sess.Type(ctx, f.cfg.UsernameSelector, creds.Email); err != nil {
		return state, profile.NewError(profile.KindLoginFailed, "login form not usable", err)
	}
	if err := sess.Type(ctx, f.cfg.PasswordSelector, creds.Password); err != nil {
		return state, profile.NewError(profile.KindLoginFailed, "login form not usable", err)
	}
	if err := f.submit(ctx, sess); err != nil {
		return state, err
	}
	state = CredentialsSubmitted

	if err := sess.WaitForNavigation(ctx, browser.NetworkIdle, f.cfg.NavigationTimeout); err != nil {
		if ctx.Err() != nil {
			return state, profile.NewError(profile.KindUnknown, "login interrupted", ctx.Err())
		}
		// The marker check below decides the outcome.
		f.logger.Warn("post-login navigation did not settle", zap.Error(err))
	}

	ok, err := f.signedIn(ctx, sess)
	if err != nil {
		return state, err
	}
	if !ok {
		return AuthenticatedFailure, profile.NewError(profile.KindLoginFailed,
			"login failed, please check your credentials", nil)
	}
	f.logger.Info("login succeeded")

	if _, err := browser.NavigateWithFallback(ctx, sess, targetURL, f.cfg.NavigationTimeout); err != nil {
		return AuthenticatedSuccess, profile.NewError(profile.KindNavigation, "return to profile after login", err)
	}
	return AuthenticatedSuccess, nil
}

func (f *Flow) submit(ctx context.Context, sess browser.Session) error {
	var lastErr error
	for _, sel := range f.cfg.SubmitSelectors {
		err := sess.Click(ctx, sel)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return profile.NewError(profile.KindLoginFailed, "login submit control not found", lastErr)
}

// signedIn inspects the landing page. A checkpoint challenge after login is
// reported as such rather than as bad credentials.
func (f *Flow) signedIn(ctx context.Context, sess browser.Session) (bool, error) {
	var text string
	if err := sess.Evaluate(ctx, browser.BodyTextExpr, &text); err == nil && f.detector.IsBlocked(text) {
		return false, profile.NewError(profile.KindSecurityChallenge, "security challenge after login", nil)
	}
	html, err := sess.Content(ctx)
	if err != nil {
		return false, profile.NewError(profile.KindUnknown, "read post-login page", err)
	}
	doc, err := extract.Parse(html)
	if err != nil {
		return false, profile.NewError(profile.KindUnknown, "parse post-login page", err)
	}
	return detector.HasAny(doc, f.cfg.SuccessMarkers), nil
}
