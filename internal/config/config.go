package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable consulted when no --config flag is given.
const EnvPath = "JOBHARVEST_CONFIG"

// Config is the root configuration for jobharvest.
type Config struct {
	Interval     time.Duration
	Concurrency  int
	Browser      BrowserConfig
	Output       OutputConfig
	Store        StoreConfig
	RateLimit    RateLimitConfig
	Retry        RetryConfig
	Filters      FilterConfig
	Notification NotificationConfig
	Sites        []SiteConfig
}

// BrowserConfig selects and tunes the rendering engine.
type BrowserConfig struct {
	Engine        string // "playwright", "chromedp" or "static"
	Headless      bool
	Locale        string
	UserAgent     string
	Width         int
	Height        int
	NavTimeout    time.Duration
	SettleJitter  time.Duration // random extra wait after each step
	ScreenshotDir string        // empty disables debug screenshots
}

type OutputConfig struct {
	Path string // may contain {timestamp}
}

type StoreConfig struct {
	Path      string
	Retention time.Duration // seen ids older than this are dropped
}

// RateLimitConfig controls per-host politeness.
type RateLimitConfig struct {
	MinDelay      time.Duration            // minimum gap between navigations to the same host
	Burst         int
	HostOverrides map[string]time.Duration // keyed by host name
}

// MinDelayFor returns the configured delay for host, falling back to MinDelay.
func (r RateLimitConfig) MinDelayFor(host string) time.Duration {
	if d, ok := r.HostOverrides[host]; ok {
		return d
	}
	return r.MinDelay
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type           string // "log", "slack" or "telegram"
	WebhookURL     string
	TelegramToken  string
	TelegramChatID int64
}

// FilterConfig holds keyword and location filter settings.
type FilterConfig struct {
	TitleKeywords        []string
	TitleExcludeKeywords []string
	Locations            []string
	ExcludeLocations     []string
}

// SiteConfig describes one site to scrape. Zero values fall back to the
// preset named by Preset.
type SiteConfig struct {
	Name          string              `yaml:"name"`
	Preset        string              `yaml:"preset"`
	Enabled       bool                `yaml:"enabled"`
	Strategy      string              `yaml:"strategy"` // "ids", "cards" or "modal"
	StartURL      string              `yaml:"start_url"`
	Advance       string              `yaml:"advance"` // "paginate" or "scroll"
	StepDelay     time.Duration       `yaml:"-"`
	MaxSteps      int                 `yaml:"max_steps"`
	MaxPages      int                 `yaml:"max_pages"`
	MaxCards      int                 `yaml:"max_cards"`
	PageURL       string              `yaml:"page_url"`
	CardSelectors []string            `yaml:"card_selectors"`
	DetailURL     string              `yaml:"detail_url"`
	Enrich        *bool               `yaml:"enrich"`
	Fields        map[string][]string `yaml:"fields"`
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Interval     string                `yaml:"interval"`
	Concurrency  int                   `yaml:"concurrency"`
	Browser      rawBrowserConfig      `yaml:"browser"`
	Output       OutputConfig          `yaml:"output"`
	Store        rawStoreConfig        `yaml:"store"`
	RateLimit    rawRateLimitConfig    `yaml:"rate_limit"`
	Retry        rawRetryConfig        `yaml:"retry"`
	Filters      rawFilterConfig       `yaml:"filters"`
	Notification rawNotificationConfig `yaml:"notification"`
	Sites        []rawSiteConfig       `yaml:"sites"`
}

type rawBrowserConfig struct {
	Engine    string `yaml:"engine"`
	Headless  *bool  `yaml:"headless"`
	Locale    string `yaml:"locale"`
	UserAgent string `yaml:"user_agent"`
	Viewport  struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"viewport"`
	NavTimeout    string `yaml:"nav_timeout"`
	SettleJitter  string `yaml:"settle_jitter"`
	ScreenshotDir string `yaml:"screenshot_dir"`
}

type rawStoreConfig struct {
	Path      string `yaml:"path"`
	Retention string `yaml:"retention"`
}

type rawRateLimitConfig struct {
	MinDelay      string            `yaml:"min_delay"`
	Burst         int               `yaml:"burst"`
	HostOverrides map[string]string `yaml:"host_overrides"`
}

type rawRetryConfig struct {
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

type rawFilterConfig struct {
	TitleKeywords        []string `yaml:"title_keywords"`
	TitleExcludeKeywords []string `yaml:"title_exclude_keywords"`
	Locations            []string `yaml:"locations"`
	ExcludeLocations     []string `yaml:"exclude_locations"`
}

type rawNotificationConfig struct {
	Type           string `yaml:"type"`
	WebhookURL     string `yaml:"webhook_url"`
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`
}

type rawSiteConfig struct {
	SiteConfig `yaml:",inline"`
	StepDelay  string `yaml:"step_delay"`
}

// ResolvePath picks the config file: the flag value, then $JOBHARVEST_CONFIG,
// then ./config.yaml.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return "config.yaml"
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
// A .env file next to the config is loaded first; variables already set in the
// environment win.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := build(raw)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// duration parses s, returning def when s is empty.
func duration(key, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", key, s, err)
	}
	return d, nil
}

func build(raw rawConfig) (*Config, error) {
	interval, err := duration("interval", raw.Interval, 6*time.Hour)
	if err != nil {
		return nil, err
	}

	navTimeout, err := duration("browser.nav_timeout", raw.Browser.NavTimeout, 60*time.Second)
	if err != nil {
		return nil, err
	}
	jitter, err := duration("browser.settle_jitter", raw.Browser.SettleJitter, 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	retention, err := duration("store.retention", raw.Store.Retention, 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	minDelay, err := duration("rate_limit.min_delay", raw.RateLimit.MinDelay, 2*time.Second)
	if err != nil {
		return nil, err
	}
	hostOverrides := make(map[string]time.Duration)
	for host, v := range raw.RateLimit.HostOverrides {
		d, err := duration(fmt.Sprintf("rate_limit.host_overrides[%q]", host), v, 0)
		if err != nil {
			return nil, err
		}
		hostOverrides[host] = d
	}
	baseDelay, err := duration("retry.base_delay", raw.Retry.BaseDelay, 2*time.Second)
	if err != nil {
		return nil, err
	}

	var chatID int64
	if s := strings.TrimSpace(raw.Notification.TelegramChatID); s != "" {
		chatID, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse notification.telegram_chat_id %q: %w", s, err)
		}
	}

	sites := make([]SiteConfig, 0, len(raw.Sites))
	for i, rs := range raw.Sites {
		sc := rs.SiteConfig
		sc.StepDelay, err = duration(fmt.Sprintf("sites[%d].step_delay", i), rs.StepDelay, 0)
		if err != nil {
			return nil, err
		}
		sites = append(sites, sc)
	}

	cfg := &Config{
		Interval:    interval,
		Concurrency: orDefault(raw.Concurrency, 2),
		Browser: BrowserConfig{
			Engine:        orDefaultString(raw.Browser.Engine, "playwright"),
			Headless:      raw.Browser.Headless == nil || *raw.Browser.Headless,
			Locale:        orDefaultString(raw.Browser.Locale, "es-CR"),
			UserAgent:     raw.Browser.UserAgent,
			Width:         orDefault(raw.Browser.Viewport.Width, 1920),
			Height:        orDefault(raw.Browser.Viewport.Height, 1080),
			NavTimeout:    navTimeout,
			SettleJitter:  jitter,
			ScreenshotDir: raw.Browser.ScreenshotDir,
		},
		Output: OutputConfig{
			Path: orDefaultString(raw.Output.Path, "costarica_jobs_{timestamp}.csv"),
		},
		Store: StoreConfig{
			Path:      orDefaultString(raw.Store.Path, "jobharvest.db"),
			Retention: retention,
		},
		RateLimit: RateLimitConfig{
			MinDelay:      minDelay,
			Burst:         orDefault(raw.RateLimit.Burst, 1),
			HostOverrides: hostOverrides,
		},
		Retry: RetryConfig{
			MaxRetries: 2,
			BaseDelay:  baseDelay,
		},
		Filters: FilterConfig{
			TitleKeywords:        raw.Filters.TitleKeywords,
			TitleExcludeKeywords: raw.Filters.TitleExcludeKeywords,
			Locations:            raw.Filters.Locations,
			ExcludeLocations:     raw.Filters.ExcludeLocations,
		},
		Notification: NotificationConfig{
			Type:           orDefaultString(raw.Notification.Type, "log"),
			WebhookURL:     raw.Notification.WebhookURL,
			TelegramToken:  raw.Notification.TelegramToken,
			TelegramChatID: chatID,
		},
		Sites: sites,
	}
	if raw.Retry.MaxRetries != nil {
		cfg.Retry.MaxRetries = *raw.Retry.MaxRetries
	}
	return cfg, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var (
	engines    = map[string]bool{"playwright": true, "chromedp": true, "static": true}
	strategies = map[string]bool{"": true, "ids": true, "cards": true, "modal": true}
	advances   = map[string]bool{"": true, "paginate": true, "scroll": true}
)

func validate(cfg *Config) error {
	if cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", cfg.Interval)
	}
	if cfg.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency)
	}
	if !engines[cfg.Browser.Engine] {
		return fmt.Errorf("browser.engine must be playwright, chromedp or static, got %q", cfg.Browser.Engine)
	}
	if cfg.Browser.NavTimeout <= 0 {
		return fmt.Errorf("browser.nav_timeout must be positive, got %v", cfg.Browser.NavTimeout)
	}
	if cfg.RateLimit.MinDelay < 0 || cfg.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit needs min_delay >= 0 and burst >= 1")
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", cfg.Retry.MaxRetries)
	}

	enabled := 0
	names := make(map[string]bool)
	for i, s := range cfg.Sites {
		if s.Name == "" {
			return fmt.Errorf("sites[%d]: name is required", i)
		}
		if names[s.Name] {
			return fmt.Errorf("sites[%d]: duplicate name %q", i, s.Name)
		}
		names[s.Name] = true
		if s.Preset == "" && s.StartURL == "" {
			return fmt.Errorf("site %q: preset or start_url is required", s.Name)
		}
		if !strategies[s.Strategy] {
			return fmt.Errorf("site %q: strategy must be ids, cards or modal, got %q", s.Name, s.Strategy)
		}
		if !advances[s.Advance] {
			return fmt.Errorf("site %q: advance must be paginate or scroll, got %q", s.Name, s.Advance)
		}
		if s.MaxSteps < 0 || s.MaxPages < 0 || s.MaxCards < 0 {
			return fmt.Errorf("site %q: limits must not be negative", s.Name)
		}
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one site must be enabled")
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	case "telegram":
		if cfg.Notification.TelegramToken == "" || cfg.Notification.TelegramChatID == 0 {
			return fmt.Errorf("notification.telegram_token and telegram_chat_id are required when type is \"telegram\"")
		}
	default:
		return fmt.Errorf("notification.type must be log, slack or telegram, got %q", cfg.Notification.Type)
	}

	return nil
}
