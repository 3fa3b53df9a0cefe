package acquire

import (
	"time"

	"github.com/JakeFAU/profile-screener/internal/browser"
)

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config holds every tunable of an acquisition. In New, zero values are
// replaced by DefaultConfig's, except SettleDelay and SkillsExpandDelay where
// zero disables the delay.
type Config struct {
	Launch browser.LaunchOptions

	// MaxSessions bounds concurrently open browser sessions.
	MaxSessions int
	// QueueTimeout bounds how long a caller waits for a free session.
	QueueTimeout time.Duration

	UserAgent        string
	ExtraHeaders     map[string]string
	BlockedResources []browser.ResourceType

	NavigationTimeout time.Duration
	SettleDelay       time.Duration

	// ContentMarkers are awaited before extraction for at most
	// ContentWaitTimeout. When none appears extraction still runs unless
	// RequireContentMarker is set.
	ContentMarkers       []string
	ContentWaitTimeout   time.Duration
	RequireContentMarker bool

	SkillsExpandDelay   time.Duration
	SkillsRetryAttempts int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Launch: browser.LaunchOptions{
			Headless:     true,
			NoSandbox:    true,
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		MaxSessions:  2,
		QueueTimeout: 30 * time.Second,
		UserAgent:    DefaultUserAgent,
		ExtraHeaders: map[string]string{
			"Accept-Language":           "en-US,en;q=0.9",
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
			"Upgrade-Insecure-Requests": "1",
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
			"Sec-Fetch-User":            "?1",
		},
		BlockedResources:    []browser.ResourceType{browser.ResourceImage, browser.ResourceFont, browser.ResourceMedia},
		NavigationTimeout:   60 * time.Second,
		SettleDelay:         2 * time.Second,
		ContentMarkers:      []string{".pv-top-card", ".pv-top-card-section", ".text-heading-xlarge"},
		ContentWaitTimeout:  15 * time.Second,
		SkillsExpandDelay:   2 * time.Second,
		SkillsRetryAttempts: 1,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Launch == (browser.LaunchOptions{}) {
		c.Launch = def.Launch
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = def.MaxSessions
	}
	if c.QueueTimeout <= 0 {
		c.QueueTimeout = def.QueueTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if c.ExtraHeaders == nil {
		c.ExtraHeaders = def.ExtraHeaders
	}
	if c.BlockedResources == nil {
		c.BlockedResources = def.BlockedResources
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = def.NavigationTimeout
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if len(c.ContentMarkers) == 0 {
		c.ContentMarkers = def.ContentMarkers
	}
	if c.ContentWaitTimeout <= 0 {
		c.ContentWaitTimeout = def.ContentWaitTimeout
	}
	if c.SkillsExpandDelay < 0 {
		c.SkillsExpandDelay = 0
	}
	if c.SkillsRetryAttempts <= 0 {
		c.SkillsRetryAttempts = def.SkillsRetryAttempts
	}
	return c
}
