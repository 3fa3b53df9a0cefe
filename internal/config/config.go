// Package config loads and validates profile-screener configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/profile-screener/internal/acquire"
	"github.com/JakeFAU/profile-screener/internal/auth"
	"github.com/JakeFAU/profile-screener/internal/browser"
)

// EnvPrefix prefixes every environment override, e.g. SCREENER_SERVER_PORT.
const EnvPrefix = "SCREENER"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Auth      AuthConfig        `mapstructure:"auth"`
	RateLimit RateLimitConfig   `mapstructure:"ratelimit"`
	Browser   BrowserConfig     `mapstructure:"browser"`
	Acquire   AcquisitionConfig `mapstructure:"acquire"`
	Login     LoginConfig       `mapstructure:"login"`
	Logging   LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AuthConfig gates the operator API behind HTTP basic auth.
type AuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// BrowserConfig configures the Chrome processes and their admission.
type BrowserConfig struct {
	Headless     bool          `mapstructure:"headless"`
	ExecPath     string        `mapstructure:"exec_path"`
	NoSandbox    bool          `mapstructure:"no_sandbox"`
	MaxSessions  int           `mapstructure:"max_sessions"`
	QueueTimeout time.Duration `mapstructure:"queue_timeout"`
}

// AcquisitionConfig tunes the acquisition pipeline.
type AcquisitionConfig struct {
	UserAgent            string        `mapstructure:"user_agent"`
	NavigationTimeout    time.Duration `mapstructure:"navigation_timeout"`
	SettleDelay          time.Duration `mapstructure:"settle_delay"`
	ContentWaitTimeout   time.Duration `mapstructure:"content_wait_timeout"`
	RequireContentMarker bool          `mapstructure:"require_content_marker"`
	SkillsExpandDelay    time.Duration `mapstructure:"skills_expand_delay"`
	SkillsRetryAttempts  int           `mapstructure:"skills_retry_attempts"`
	DebugScreenshotDir   string        `mapstructure:"debug_screenshot_dir"`
}

// LoginConfig locates the sign-in page.
type LoginConfig struct {
	URL string `mapstructure:"url"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// LoadOption customizes Load.
type LoadOption func(*viper.Viper) error

// WithFlag lets a command-line flag override key. The flag wins over the
// file and environment only when it was set explicitly.
func WithFlag(key string, flag *pflag.Flag) LoadOption {
	return func(v *viper.Viper) error {
		if flag == nil {
			return nil
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
		return nil
	}
}

// Load builds a Config from defaults, an optional file, the environment and
// any bound flags.
func Load(path string, opts ...LoadOption) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return Config{}, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 5*time.Minute)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", 15*time.Minute)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.max_sessions", 2)
	v.SetDefault("browser.queue_timeout", 30*time.Second)
	v.SetDefault("acquire.user_agent", acquire.DefaultUserAgent)
	v.SetDefault("acquire.navigation_timeout", 60*time.Second)
	v.SetDefault("acquire.settle_delay", 2*time.Second)
	v.SetDefault("acquire.content_wait_timeout", 15*time.Second)
	v.SetDefault("acquire.require_content_marker", false)
	v.SetDefault("acquire.skills_expand_delay", 2*time.Second)
	v.SetDefault("acquire.skills_retry_attempts", 1)
	v.SetDefault("acquire.debug_screenshot_dir", "")
	v.SetDefault("login.url", auth.DefaultLoginURL)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be > 0")
	}
	if c.Auth.Enabled && (c.Auth.Username == "" || c.Auth.Password == "") {
		return fmt.Errorf("auth.username and auth.password must be set when auth is enabled")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.requests and ratelimit.window must be > 0")
	}
	if c.Browser.MaxSessions <= 0 {
		return fmt.Errorf("browser.max_sessions must be > 0")
	}
	if c.Browser.QueueTimeout <= 0 {
		return fmt.Errorf("browser.queue_timeout must be > 0")
	}
	if c.Acquire.NavigationTimeout <= 0 || c.Acquire.ContentWaitTimeout <= 0 {
		return fmt.Errorf("acquire.navigation_timeout and acquire.content_wait_timeout must be > 0")
	}
	if c.Acquire.SettleDelay < 0 || c.Acquire.SkillsExpandDelay < 0 {
		return fmt.Errorf("acquire delays must not be negative")
	}
	if c.Acquire.SkillsRetryAttempts < 1 {
		return fmt.Errorf("acquire.skills_retry_attempts must be >= 1")
	}
	if u, err := url.Parse(c.Login.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("login.url must be an absolute url")
	}
	return nil
}

// AcquireConfig converts the browser and acquire sections into the
// controller's configuration.
func (c Config) AcquireConfig() acquire.Config {
	cfg := acquire.DefaultConfig()
	cfg.Launch = browser.LaunchOptions{
		Headless:     c.Browser.Headless,
		ExecPath:     c.Browser.ExecPath,
		NoSandbox:    c.Browser.NoSandbox,
		WindowWidth:  cfg.Launch.WindowWidth,
		WindowHeight: cfg.Launch.WindowHeight,
	}
	cfg.MaxSessions = c.Browser.MaxSessions
	cfg.QueueTimeout = c.Browser.QueueTimeout
	cfg.UserAgent = c.Acquire.UserAgent
	cfg.NavigationTimeout = c.Acquire.NavigationTimeout
	cfg.SettleDelay = c.Acquire.SettleDelay
	cfg.ContentWaitTimeout = c.Acquire.ContentWaitTimeout
	cfg.RequireContentMarker = c.Acquire.RequireContentMarker
	cfg.SkillsExpandDelay = c.Acquire.SkillsExpandDelay
	cfg.SkillsRetryAttempts = c.Acquire.SkillsRetryAttempts
	return cfg
}

// AuthFlowConfig returns the login flow configuration.
func (c Config) AuthFlowConfig() auth.Config {
	cfg := auth.DefaultConfig()
	cfg.LoginURL = c.Login.URL
	cfg.NavigationTimeout = c.Acquire.NavigationTimeout
	return cfg
}
