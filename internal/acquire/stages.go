package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-screener/internal/browser"
	"github.com/JakeFAU/profile-screener/internal/extract"
	"github.com/JakeFAU/profile-screener/internal/metrics"
	"github.com/JakeFAU/profile-screener/internal/profile"
)

// Stage names, in execution order.
const (
	StageConfigure    = "configure"
	StageNavigate     = "navigate"
	StageSettle       = "settle"
	StageDetect       = "detect"
	StageAuthenticate = "authenticate"
	StageAwaitContent = "await-content"
	StageExtract      = "extract"
	StageExpandSkills = "expand-skills"
	StageScreenshot   = "screenshot"
	StageNormalize    = "normalize"
)

var errNoSkills = errors.New("no skills rendered yet")

// run carries the state of one acquisition between stages.
type run struct {
	url    string
	creds  *profile.Credentials
	sess   browser.Session
	log    *zap.Logger
	doc    *goquery.Document
	record profile.Record
}

type stage struct {
	name string
	run  func(context.Context, *run) error
}

func (c *Controller) pipeline() []stage {
	return []stage{
		{StageConfigure, c.configure},
		{StageNavigate, c.navigate},
		{StageSettle, c.settle},
		{StageDetect, c.detect},
		{StageAuthenticate, c.authenticate},
		{StageAwaitContent, c.awaitContent},
		{StageExtract, c.extract},
		{StageExpandSkills, c.expandSkills},
		{StageScreenshot, c.screenshot},
		{StageNormalize, c.normalize},
	}
}

func (c *Controller) configure(ctx context.Context, r *run) error {
	if err := r.sess.SetUserAgent(ctx, c.cfg.UserAgent); err != nil {
		return err
	}
	if len(c.cfg.ExtraHeaders) > 0 {
		if err := r.sess.SetExtraHeaders(ctx, c.cfg.ExtraHeaders); err != nil {
			return err
		}
	}
	if len(c.cfg.BlockedResources) > 0 {
		if err := r.sess.SetRequestFilter(ctx, browser.BlockResources(c.cfg.BlockedResources...)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) navigate(ctx context.Context, r *run) error {
	r.log.Info("navigating to profile")
	used, err := browser.NavigateWithFallback(ctx, r.sess, r.url, c.cfg.NavigationTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return profile.NewError(profile.KindUnknown, "acquisition cancelled", err)
		}
		return profile.NewError(profile.KindNavigation, "could not load profile", err)
	}
	if used == browser.DOMReady {
		metrics.ObserveNavigationFallback()
		r.log.Info("network-idle wait failed, loaded with dom-ready fallback")
	}
	return nil
}

func (c *Controller) settle(ctx context.Context, _ *run) error {
	return c.sleep(ctx, c.cfg.SettleDelay)
}

func (c *Controller) detect(ctx context.Context, r *run) error {
	var text string
	if err := r.sess.Evaluate(ctx, browser.BodyTextExpr, &text); err != nil {
		return fmt.Errorf("read page text: %w", err)
	}
	if c.detector.IsBlocked(text) {
		return profile.NewError(profile.KindSecurityChallenge,
			"site is requesting security verification, try again later or from a different network", nil)
	}
	return nil
}

func (c *Controller) authenticate(ctx context.Context, r *run) error {
	doc, err := c.snapshot(ctx, r.sess)
	if err != nil {
		return err
	}
	if !c.detector.RequiresLogin(doc) {
		return nil
	}
	if r.creds == nil {
		return profile.NewError(profile.KindLoginRequired,
			"this profile requires login, but no credentials were provided", nil)
	}
	state, err := c.auth.Login(ctx, r.sess, *r.creds, r.url)
	r.log.Info("login attempted", zap.Stringer("state", state))
	return err
}

func (c *Controller) awaitContent(ctx context.Context, r *run) error {
	selector := strings.Join(c.cfg.ContentMarkers, ", ")
	err := r.sess.WaitForSelector(ctx, selector, c.cfg.ContentWaitTimeout)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return profile.NewError(profile.KindUnknown, "acquisition cancelled", ctx.Err())
	}
	// ExtractionFailure is reserved for a page without a name; a page that
	// never rendered its profile card failed to load.
	if c.cfg.RequireContentMarker {
		return profile.NewError(profile.KindNavigation, "profile content did not render", err)
	}
	r.log.Info("profile content marker not found, extracting anyway", zap.Error(err))
	return nil
}

func (c *Controller) extract(ctx context.Context, r *run) error {
	doc, err := c.snapshot(ctx, r.sess)
	if err != nil {
		return err
	}
	r.doc = doc
	r.record = c.extractor.Extract(doc)
	return nil
}

// expandSkills clicks the "show more skills" control when the first pass
// found none. Nothing here can fail the acquisition.
func (c *Controller) expandSkills(ctx context.Context, r *run) error {
	if len(r.record.Skills) > 0 || r.doc == nil {
		return nil
	}
	control, ok := c.extractor.SkillsExpandControl(r.doc)
	if !ok {
		return nil
	}
	if err := r.sess.Click(ctx, control); err != nil {
		r.log.Info("could not expand skills", zap.String("control", control), zap.Error(err))
		return nil
	}
	if err := c.sleep(ctx, c.cfg.SkillsExpandDelay); err != nil {
		return nil
	}

	skills, err := retry.DoWithData(
		func() ([]string, error) {
			doc, err := c.snapshot(ctx, r.sess)
			if err != nil {
				return nil, err
			}
			skills := c.extractor.ExpandedSkills(doc)
			if len(skills) == 0 {
				return nil, errNoSkills
			}
			return skills, nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.SkillsRetryAttempts)),
		retry.Delay(c.cfg.SkillsExpandDelay),
		retry.OnRetry(func(n uint, err error) {
			r.log.Debug("retrying skills extraction", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		r.log.Info("skills still empty after expanding", zap.Error(err))
		return nil
	}
	r.record.Skills = skills
	return nil
}

func (c *Controller) screenshot(ctx context.Context, r *run) error {
	if c.artifacts == nil {
		return nil
	}
	data, err := r.sess.Screenshot(ctx)
	if err != nil {
		r.log.Warn("debug screenshot failed", zap.Error(err))
		return nil
	}
	name := fmt.Sprintf("%d_profile.png", c.now().UnixMilli())
	uri, err := c.artifacts.PutObject(ctx, name, "image/png", bytes.NewReader(data))
	if err != nil {
		r.log.Warn("store debug screenshot", zap.Error(err))
		return nil
	}
	r.log.Debug("debug screenshot saved", zap.String("uri", uri))
	return nil
}

func (c *Controller) normalize(_ context.Context, r *run) error {
	rec, err := profile.Normalize(r.record)
	if err != nil {
		return err
	}
	r.record = rec
	return nil
}

func (c *Controller) snapshot(ctx context.Context, sess browser.Session) (*goquery.Document, error) {
	html, err := sess.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page content: %w", err)
	}
	return extract.Parse(html)
}
