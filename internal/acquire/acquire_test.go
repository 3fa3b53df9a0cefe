package acquire

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/profile-screener/internal/auth"
	"github.com/JakeFAU/profile-screener/internal/browser"
	"github.com/JakeFAU/profile-screener/internal/browser/browsertest"
	"github.com/JakeFAU/profile-screener/internal/profile"
)

const (
	profileURL = "https://www.linkedin.com/in/jane-doe"

	profilePage = `<html><body>
	<section class="pv-top-card"><h1 class="text-heading-xlarge">Jane Doe</h1>
	<div class="text-body-medium">Software Engineer</div></section>
	<section><h2>Experience</h2><ul><li class="artdeco-list__item">
		<span class="mr1 t-bold"><span aria-hidden="true">Software Engineer</span></span>
		<span class="t-14 t-normal"><span aria-hidden="true">Google</span></span>
		<span class="t-14 t-normal t-black--light"><span aria-hidden="true">3 yrs</span></span>
	</li></ul></section>
	<section><h2>Skills</h2><span class="display-block t-black--light t-14">Go</span></section>
	</body></html>`

	collapsedSkillsPage = `<html><body>
	<section class="pv-top-card"><h1 class="text-heading-xlarge">Jane Doe</h1></section>
	<section><h2>Skills</h2><button class="pvs-list__footer-action">Show all skills</button></section>
	</body></html>`

	expandedSkillsPage = `<html><body>
	<div class="pvs-entity--padded">Go</div><div class="pvs-entity--padded">Kubernetes</div>
	</body></html>`

	challengePage = `<html><body><h1>Security Verification</h1><section class="pv-top-card">
	<h1 class="text-heading-xlarge">Jane Doe</h1></section></body></html>`

	authWallPage = `<html><body><form class="authwall-join-form"></form></body></html>`

	loginPage = `<html><body><input id="username"><input id="password">
	<div class="login__form_action_container"><button>Sign in</button></div></body></html>`

	feedPage = `<html><body><div class="feed-identity-module"></div></body></html>`

	namelessPage = `<html><body><section class="pv-top-card"><p>nothing here</p></section></body></html>`

	submitSelector = ".login__form_action_container button"
)

var testCreds = &profile.Credentials{Email: "jane@example.com", Password: "hunter22"}

func testConfig() Config {
	return Config{
		MaxSessions:       1,
		QueueTimeout:      50 * time.Millisecond,
		NavigationTimeout: time.Second,
	}
}

func newController(t *testing.T, cfg Config, sess *browsertest.Session, opts ...Option) (*Controller, *browsertest.Launcher) {
	t.Helper()
	launcher := &browsertest.Launcher{Session: sess}
	c, err := New(cfg, launcher, opts...)
	require.NoError(t, err)
	return c, launcher
}

func requireKind(t *testing.T, err error, kind profile.ErrorKind, stage string) {
	t.Helper()
	require.Error(t, err)
	var acqErr *profile.AcquisitionError
	require.True(t, errors.As(err, &acqErr), "expected AcquisitionError, got %T", err)
	require.Equal(t, kind, acqErr.Kind, err.Error())
	require.Equal(t, stage, acqErr.Stage)
}

func TestAcquire_Success(t *testing.T) {
	t.Parallel()

	sess := browsertest.NewSession(map[string]string{profileURL: profilePage})
	c, launcher := newController(t, testConfig(), sess)

	rec, err := c.Acquire(context.Background(), profileURL, nil)
	require.NoError(t, err)

	require.Equal(t, "Jane Doe", rec.Name)
	require.Equal(t, "Software Engineer", rec.Headline)
	require.Equal(t, []profile.ExperienceItem{{Title: "Software Engineer", Company: "Google", Duration: "3 yrs"}}, rec.Experience)
	require.Equal(t, []string{"Go"}, rec.Skills)
	require.Len(t, rec.Education, 1, "missing sections are normalized to a sentinel row")
	require.True(t, rec.Education[0].IsPlaceholder())
	require.Equal(t, profile.NoSummary, rec.Summary)

	require.Equal(t, 1, launcher.Launches())
	require.Equal(t, 1, sess.Closes())
	require.Equal(t, DefaultUserAgent, sess.UserAgent())
	require.Equal(t, "en-US,en;q=0.9", sess.Headers()["Accept-Language"])
	filter := sess.Filter()
	require.NotNil(t, filter)
	require.True(t, filter(browser.ResourceImage))
	require.False(t, filter(browser.ResourceDocument))
	require.Equal(t, []browsertest.Navigation{{URL: profileURL, Wait: browser.NetworkIdle}}, sess.Navigations())
}

func TestAcquire_SecurityChallengeStopsBeforeExtraction(t *testing.T) {
	t.Parallel()

	sess := browsertest.NewSession(map[string]string{profileURL: challengePage})
	c, _ := newController(t, testConfig(), sess)

	rec, err := c.Acquire(context.Background(), profileURL, testCreds)
	requireKind(t, err, profile.KindSecurityChallenge, StageDetect)
	require.Empty(t, rec.Name, "no record is produced")
	require.Equal(t, 1, sess.Closes())
	require.Empty(t, sess.Clicks())
}

func TestAcquire_LoginRequiredWithoutCredentials(t *testing.T) {
	t.Parallel()

	sess := browsertest.NewSession(map[string]string{profileURL: authWallPage})
	c, _ := newController(t, testConfig(), sess)

	_, err := c.Acquire(context.Background(), profileURL, nil)
	requireKind(t, err, profile.KindLoginRequired, StageAuthenticate)
	require.Equal(t, 1, sess.Closes())
	require.Len(t, sess.Navigations(), 1, "login page is never visited")
}

func TestAcquire_LoginFailed(t *testing.T) {
	t.Parallel()

	sess := browsertest.NewSession(map[string]string{
		profileURL:           authWallPage,
		auth.DefaultLoginURL: loginPage,
		"after-submit":       `<html><body><p>Wrong email or password</p></body></html>`,
	})
	sess.ClickTargets = map[string]string{submitSelector: "after-submit"}
	c, _ := newController(t, testConfig(), sess)

	_, err := c.Acquire(context.Background(), profileURL, testCreds)
	requireKind(t, err, profile.KindLoginFailed, StageAuthenticate)
	require.Equal(t, 1, sess.Closes())
}

func TestAcquire_LoginSuccessRevisitsProfile(t *testing.T) {
	t.Parallel()

	sess := browsertest.NewSession(map[string]string{
		profileURL:           authWallPage,
		auth.DefaultLoginURL: loginPage,
		"feed":               feedPage,
	})
	sess.ClickTargets = map[string]string{submitSelector: "feed"}
	sess.ClickRewrites = map[string]map[string]string{submitSelector: {profileURL: profilePage}}
	c, _ := newController(t, testConfig(), sess)

	rec, err := c.Acquire(context.Background(), profileURL, testCreds)
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", rec.Name)

	navs := sess.Navigations()
	require.Len(t, navs, 3)
	require.Equal(t, profileURL, navs[0].URL)
	require.Equal(t, auth.DefaultLoginURL, navs[1].URL)
	require.Equal(t, profileURL, navs[2].URL)
	require.Equal(t, testCreds.Email, sess.Typed("#username"))
	require.Equal(t, 1, sess.Closes())
}

func TestAcquire_NavigationFallback(t *testing.T) {
	t.Parallel()

	sess := browsertest.NewSession(map[string]string{profileURL: profilePage})
	sess.NavigateErrs = map[browser.WaitStrategy]error{browser.NetworkIdle: browser.ErrTimeout}
	c, _ := newController(t, testConfig(), sess)

	rec, err := c.Acquire(context.Background(), profileURL, nil)
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", rec.Name)
	require.Equal(t, []browsertest.Navigation{
		{URL: profileURL, Wait: browser.NetworkIdle},
		{URL: profileURL, Wait: browser.DOMReady},
	}, sess.Navigations())
}

func TestAcquire_NavigationFailure(t *testing.T) {
	t.Parallel()

	sess := browsertest.NewSession(map[string]string{profileURL: profilePage})
	sess.NavigateErrs = map[browser.WaitStrategy]error{
		browser.NetworkIdle: browser.ErrTimeout,
		browser.DOMReady:    errors.New("net::ERR_CONNECTION_RESET"),
	}
	c, _ := newController(t, testConfig(), sess)

	_, err := c.Acquire(context.Background(), profileURL, nil)
	requireKind(t, err, profile.KindNavigation, StageNavigate)
	require.Equal(t, 1, sess.Closes())
}

func TestAcquire_ExtractionFailureWhenNameMissing(t *testing.T) {
	t.Parallel()

	sess := browsertest.NewSession(map[string]string{profileURL: namelessPage})
	c, _ := newController(t, testConfig(), sess)

	_, err := c.Acquire(context.Background(), profileURL, nil)
	requireKind(t, err, profile.KindExtraction, StageNormalize)
	require.Equal(t, 1, sess.Closes())
}

func TestAcquire_ContentMarker(t *testing.T) {
	t.Parallel()

	page := `<html><body><h1 class="pv-top-card-section__name">Jane Doe</h1></body></html>`

	t.Run("optional", func(t *testing.T) {
		t.Parallel()
		sess := browsertest.NewSession(map[string]string{profileURL: page})
		cfg := testConfig()
		cfg.ContentMarkers = []string{".pv-top-card"}
		c, _ := newController(t, cfg, sess)

		rec, err := c.Acquire(context.Background(), profileURL, nil)
		require.NoError(t, err)
		require.Equal(t, "Jane Doe", rec.Name)
	})

	t.Run("required", func(t *testing.T) {
		t.Parallel()
		sess := browsertest.NewSession(map[string]string{profileURL: page})
		cfg := testConfig()
		cfg.ContentMarkers = []string{".pv-top-card"}
		cfg.RequireContentMarker = true
		c, _ := newController(t, cfg, sess)

		_, err := c.Acquire(context.Background(), profileURL, nil)
		requireKind(t, err, profile.KindNavigation, StageAwaitContent)
		require.False(t, profile.IsKind(err, profile.KindExtraction))
		require.Equal(t, 1, sess.Closes())
	})

	t.Run("required with current markup name", func(t *testing.T) {
		t.Parallel()
		named := `<html><body><h1 class="text-heading-xlarge">Jane Doe</h1></body></html>`
		sess := browsertest.NewSession(map[string]string{profileURL: named})
		cfg := testConfig()
		cfg.ContentMarkers = []string{".pv-top-card"}
		cfg.RequireContentMarker = true
		c, _ := newController(t, cfg, sess)

		_, err := c.Acquire(context.Background(), profileURL, nil)
		requireKind(t, err, profile.KindNavigation, StageAwaitContent)
	})
}

func TestAcquire_ExpandsSkills(t *testing.T) {
	t.Parallel()

	sess := browsertest.NewSession(map[string]string{
		profileURL: collapsedSkillsPage,
		"expanded": expandedSkillsPage,
	})
	sess.ClickTargets = map[string]string{".pvs-list__footer-action": "expanded"}
	c, _ := newController(t, testConfig(), sess)

	rec, err := c.Acquire(context.Background(), profileURL, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Go", "Kubernetes"}, rec.Skills)
	require.Equal(t, []string{".pvs-list__footer-action"}, sess.Clicks())
}

func TestAcquire_SkillsStayEmptyWhenExpansionYieldsNothing(t *testing.T) {
	t.Parallel()

	sess := browsertest.NewSession(map[string]string{profileURL: collapsedSkillsPage})
	c, _ := newController(t, testConfig(), sess)

	rec, err := c.Acquire(context.Background(), profileURL, nil)
	require.NoError(t, err)
	require.Equal(t, []string{profile.NotFound}, rec.Skills)
}

func TestAcquire_InvalidURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "not a url", "ftp://www.linkedin.com/in/jane", "https://"} {
		sess := browsertest.NewSession(nil)
		c, launcher := newController(t, testConfig(), sess)
		_, err := c.Acquire(context.Background(), raw, nil)
		requireKind(t, err, profile.KindNavigation, StageNavigate)
		require.Zero(t, launcher.Launches(), raw)
	}
}

func TestAcquire_LaunchFailure(t *testing.T) {
	t.Parallel()

	launcher := &browsertest.Launcher{Err: errors.New("chrome not found")}
	c, err := New(testConfig(), launcher)
	require.NoError(t, err)

	_, err = c.Acquire(context.Background(), profileURL, nil)
	requireKind(t, err, profile.KindUnknown, "launch")
}

func TestAcquire_CapacityExhausted(t *testing.T) {
	t.Parallel()

	sess := browsertest.NewSession(map[string]string{profileURL: profilePage})
	c, launcher := newController(t, testConfig(), sess)

	// Occupy the only slot.
	require.NoError(t, c.slots.Acquire(context.Background(), 1))
	defer c.slots.Release(1)

	_, err := c.Acquire(context.Background(), profileURL, nil)
	requireKind(t, err, profile.KindCapacity, "admit")
	require.Zero(t, launcher.Launches())
}

func TestAcquire_CancelledContext(t *testing.T) {
	t.Parallel()

	sess := browsertest.NewSession(map[string]string{profileURL: profilePage})
	c, launcher := newController(t, testConfig(), sess)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Acquire(ctx, profileURL, nil)
	require.True(t, profile.IsKind(err, profile.KindUnknown))
	require.Zero(t, launcher.Launches())
}

type memoryArtifacts struct {
	mu    sync.Mutex
	names []string
	types []string
	sizes []int
}

func (m *memoryArtifacts) PutObject(_ context.Context, name, contentType string, data io.Reader) (string, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	m.types = append(m.types, contentType)
	m.sizes = append(m.sizes, len(raw))
	return "mem://" + name, nil
}

func TestAcquire_DebugScreenshot(t *testing.T) {
	t.Parallel()

	store := &memoryArtifacts{}
	sess := browsertest.NewSession(map[string]string{profileURL: profilePage})
	c, _ := newController(t, testConfig(), sess, WithArtifactStore(store))
	c.now = func() time.Time { return time.UnixMilli(1700000000123) }

	_, err := c.Acquire(context.Background(), profileURL, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"1700000000123_profile.png"}, store.names)
	require.Equal(t, []string{"image/png"}, store.types)
	require.Positive(t, store.sizes[0])
}

func TestAcquire_ScreenshotFailureIsIgnored(t *testing.T) {
	t.Parallel()

	store := &memoryArtifacts{}
	sess := browsertest.NewSession(map[string]string{profileURL: profilePage})
	sess.ScreenshotErr = errors.New("target closed")
	c, _ := newController(t, testConfig(), sess, WithArtifactStore(store))

	rec, err := c.Acquire(context.Background(), profileURL, nil)
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", rec.Name)
	require.Empty(t, store.names)
}

func TestAcquire_StagesRunInOrder(t *testing.T) {
	t.Parallel()

	c, _ := newController(t, testConfig(), browsertest.NewSession(nil))
	var names []string
	for _, s := range c.pipeline() {
		names = append(names, s.name)
	}
	require.Equal(t, []string{
		StageConfigure, StageNavigate, StageSettle, StageDetect, StageAuthenticate,
		StageAwaitContent, StageExtract, StageExpandSkills, StageScreenshot, StageNormalize,
	}, names)
}

func TestTagStage(t *testing.T) {
	t.Parallel()

	err := tagStage("extract", errors.New("boom"))
	requireKind(t, err, profile.KindUnknown, "extract")
	require.True(t, strings.Contains(err.Error(), "boom"))

	classified := profile.NewError(profile.KindLoginFailed, "bad password", nil)
	err = tagStage("authenticate", classified)
	requireKind(t, err, profile.KindLoginFailed, "authenticate")

	classified.Stage = "earlier"
	err = tagStage("authenticate", classified)
	requireKind(t, err, profile.KindLoginFailed, "earlier")
}

func TestNew_RequiresLauncher(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}.withDefaults()
	def := DefaultConfig()
	require.Equal(t, def.MaxSessions, cfg.MaxSessions)
	require.Equal(t, def.UserAgent, cfg.UserAgent)
	require.Equal(t, def.ContentMarkers, cfg.ContentMarkers)
	require.Equal(t, 1, cfg.SkillsRetryAttempts)
	require.Zero(t, cfg.SettleDelay, "zero disables the settle delay")
	require.Zero(t, cfg.SkillsExpandDelay, "zero disables the skills expand delay")
	require.Equal(t, def.NavigationTimeout, cfg.NavigationTimeout)
}
