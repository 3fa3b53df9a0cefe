// Package acquire drives a browser session through the ordered stages that
// turn a profile URL into a normalized profile record.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/profile-screener/internal/auth"
	"github.com/JakeFAU/profile-screener/internal/browser"
	"github.com/JakeFAU/profile-screener/internal/detector"
	"github.com/JakeFAU/profile-screener/internal/extract"
	"github.com/JakeFAU/profile-screener/internal/metrics"
	"github.com/JakeFAU/profile-screener/internal/profile"
)

// ArtifactStore persists debug artifacts and returns their URI.
type ArtifactStore interface {
	PutObject(ctx context.Context, name, contentType string, data io.Reader) (string, error)
}

// Controller runs acquisitions. It is safe for concurrent use; each call gets
// its own browser session.
type Controller struct {
	cfg       Config
	launcher  browser.Launcher
	extractor *extract.Extractor
	detector  *detector.Detector
	auth      *auth.Flow
	artifacts ArtifactStore
	slots     *semaphore.Weighted
	logger    *zap.Logger
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithExtractor replaces the default field extractor.
func WithExtractor(ex *extract.Extractor) Option {
	return func(c *Controller) {
		if ex != nil {
			c.extractor = ex
		}
	}
}

// WithDetector replaces the default block detector.
func WithDetector(d *detector.Detector) Option {
	return func(c *Controller) {
		if d != nil {
			c.detector = d
		}
	}
}

// WithAuthFlow replaces the default login flow.
func WithAuthFlow(flow *auth.Flow) Option {
	return func(c *Controller) {
		if flow != nil {
			c.auth = flow
		}
	}
}

// WithArtifactStore enables debug screenshots written to store.
func WithArtifactStore(store ArtifactStore) Option {
	return func(c *Controller) {
		c.artifacts = store
	}
}

// New creates a Controller launching sessions through launcher.
func New(cfg Config, launcher browser.Launcher, opts ...Option) (*Controller, error) {
	if launcher == nil {
		return nil, errors.New("browser launcher is required")
	}
	cfg = cfg.withDefaults()
	c := &Controller{
		cfg:       cfg,
		launcher:  launcher,
		extractor: extract.New(),
		detector:  detector.New(),
		slots:     semaphore.NewWeighted(int64(cfg.MaxSessions)),
		logger:    zap.NewNop(),
		now:       time.Now,
		sleep:     sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("acquire")
	if c.auth == nil {
		c.auth = auth.New(auth.Config{NavigationTimeout: cfg.NavigationTimeout}, c.detector, c.logger)
	}
	metrics.Init()
	return c, nil
}

// Acquire loads the profile at rawURL and returns its normalized record.
// creds are used only if the page demands sign-in. Every error is an
// *profile.AcquisitionError.
func (c *Controller) Acquire(ctx context.Context, rawURL string, creds *profile.Credentials) (profile.Record, error) {
	start := c.now()
	log := c.logger.With(zap.String("url", rawURL), zap.Bool("with_credentials", creds != nil))

	rec, err := c.acquire(ctx, rawURL, creds, log)

	elapsed := c.now().Sub(start)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = string(profile.KindOf(err))
		log.Warn("acquisition failed", zap.String("kind", outcome), zap.Duration("duration", elapsed), zap.Error(err))
	} else {
		log.Info("acquisition complete", zap.Duration("duration", elapsed))
	}
	metrics.ObserveAcquisition(outcome, elapsed)
	return rec, err
}

func (c *Controller) acquire(ctx context.Context, rawURL string, creds *profile.Credentials, log *zap.Logger) (profile.Record, error) {
	if err := validateURL(rawURL); err != nil {
		return profile.Record{}, err
	}
	release, err := c.admit(ctx)
	if err != nil {
		return profile.Record{}, err
	}
	defer release()

	var rec profile.Record
	err = c.withSession(ctx, log, func(sess browser.Session) error {
		run := &run{url: rawURL, creds: creds, sess: sess, log: log}
		for _, s := range c.pipeline() {
			if err := c.runStage(ctx, s, run); err != nil {
				return err
			}
		}
		rec = run.record
		return nil
	})
	return rec, err
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &profile.AcquisitionError{Kind: profile.KindNavigation, Stage: StageNavigate, Message: "invalid url", Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &profile.AcquisitionError{
			Kind:    profile.KindNavigation,
			Stage:   StageNavigate,
			Message: fmt.Sprintf("url %q is not an absolute http(s) url", rawURL),
		}
	}
	return nil
}

// admit takes a session slot, waiting at most QueueTimeout.
func (c *Controller) admit(ctx context.Context) (func(), error) {
	start := c.now()
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.QueueTimeout)
	defer cancel()

	if err := c.slots.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, &profile.AcquisitionError{Kind: profile.KindUnknown, Stage: "admit", Message: "cancelled while queued", Err: ctx.Err()}
		}
		return nil, &profile.AcquisitionError{
			Kind:    profile.KindCapacity,
			Stage:   "admit",
			Message: fmt.Sprintf("no browser session available within %s", c.cfg.QueueTimeout),
			Err:     err,
		}
	}
	metrics.ObserveQueueWait(c.now().Sub(start))
	return func() { c.slots.Release(1) }, nil
}

// withSession launches a session, hands it to fn and closes it exactly once
// on every path out, panics included.
func (c *Controller) withSession(ctx context.Context, log *zap.Logger, fn func(browser.Session) error) error {
	sess, err := c.launcher.Launch(ctx, c.cfg.Launch)
	if err != nil {
		return &profile.AcquisitionError{Kind: profile.KindUnknown, Stage: "launch", Message: "launch browser", Err: err}
	}
	metrics.IncActiveSessions()
	defer func() {
		metrics.DecActiveSessions()
		if cerr := sess.Close(); cerr != nil {
			log.Warn("close browser session", zap.Error(cerr))
		}
	}()
	return fn(sess)
}

func (c *Controller) runStage(ctx context.Context, s stage, r *run) error {
	if err := ctx.Err(); err != nil {
		return &profile.AcquisitionError{Kind: profile.KindUnknown, Stage: s.name, Message: "acquisition cancelled", Err: err}
	}
	start := c.now()
	err := s.run(ctx, r)
	elapsed := c.now().Sub(start)
	metrics.ObserveStage(s.name, elapsed)
	r.log.Debug("stage finished", zap.String("stage", s.name), zap.Duration("duration", elapsed), zap.Bool("ok", err == nil))
	if err != nil {
		return tagStage(s.name, err)
	}
	return nil
}

// tagStage records the failing stage on classified errors and classifies
// everything else as unknown.
func tagStage(stage string, err error) error {
	var acqErr *profile.AcquisitionError
	if errors.As(err, &acqErr) {
		if acqErr.Stage == "" {
			acqErr.Stage = stage
		}
		return err
	}
	return &profile.AcquisitionError{Kind: profile.KindUnknown, Stage: stage, Message: "unexpected failure", Err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
