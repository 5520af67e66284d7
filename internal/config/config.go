package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration
type Config struct {
	Version int           `toml:"version"`
	Site    SiteConfig    `toml:"site"`
	Auth    AuthConfig    `toml:"auth"`
	Browser BrowserConfig `toml:"browser"`
	Waits   WaitsConfig   `toml:"waits"`
	Output  OutputConfig  `toml:"output"`
	Markers MarkersConfig `toml:"markers"`
}

type SiteConfig struct {
	BaseURL       string `toml:"base_url"`
	CookieDomain  string `toml:"cookie_domain"`
	UserSpacePath string `toml:"user_space_path"`
	TaskID        int    `toml:"task_id"`
}

type AuthConfig struct {
	CookieEnv       string `toml:"cookie_env"`
	VerifyUserSpace bool   `toml:"verify_user_space"`
}

type BrowserConfig struct {
	Headless     bool   `toml:"headless"`
	ExecPath     string `toml:"exec_path"`
	UserAgent    string `toml:"user_agent"` // empty uses browser.DefaultUserAgent
	WindowWidth  int    `toml:"window_width"`
	WindowHeight int    `toml:"window_height"`
	ClearCookies bool   `toml:"clear_cookies"`
}

// WaitsConfig bounds every condition-wait in a run.
type WaitsConfig struct {
	PageSettle      Duration `toml:"page_settle"`
	TaskRender      Duration `toml:"task_render"`
	Result          Duration `toml:"result"`
	PollInterval    Duration `toml:"poll_interval"`
	MaxPollInterval Duration `toml:"max_poll_interval"`
}

type OutputConfig struct {
	Dir            string `toml:"dir"`
	DumpPageSource bool   `toml:"dump_page_source"`
}

// MarkersConfig holds the page text and selectors used to read the site's state.
// The forum changes its markup now and then; adjust these instead of the code.
type MarkersConfig struct {
	LoggedInSelectors []string `toml:"logged_in_selectors"`
	LoggedInText      []string `toml:"logged_in_text"`
	LoggedOutText     []string `toml:"logged_out_text"`
	Success           []string `toml:"success"`
	AlreadyApplied    []string `toml:"already_applied"`
	Cooldown          []string `toml:"cooldown"`
	PageHints         []string `toml:"page_hints"`
}

// Duration is a time.Duration that reads and writes as a string ("10s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultCookieEnv is the environment variable holding the session cookie string.
const DefaultCookieEnv = "CHINADSL_COOKIE"

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Site: SiteConfig{
			BaseURL:       "https://www.chinadsl.net/",
			CookieDomain:  ".chinadsl.net",
			UserSpacePath: "home.php?mod=space",
			TaskID:        1,
		},
		Auth: AuthConfig{
			CookieEnv:       DefaultCookieEnv,
			VerifyUserSpace: true,
		},
		Browser: BrowserConfig{
			Headless:     true,
			WindowWidth:  1920,
			WindowHeight: 1080,
			ClearCookies: true,
		},
		Waits: WaitsConfig{
			PageSettle:      Duration{5 * time.Second},
			TaskRender:      Duration{10 * time.Second},
			Result:          Duration{5 * time.Second},
			PollInterval:    Duration{250 * time.Millisecond},
			MaxPollInterval: Duration{2 * time.Second},
		},
		Output: OutputConfig{
			Dir:            ".",
			DumpPageSource: true,
		},
		Markers: MarkersConfig{
			LoggedInSelectors: []string{`a[href*="action=logout"]`, `a[href*="mod=space&do=profile"]`},
			LoggedInText:      []string{"退出"},
			LoggedOutText:     []string{"登录", "注册"},
			Success:           []string{"申请成功", "任务完成", "applied successfully", "task complete"},
			AlreadyApplied:    []string{"已申请", "已经申请", "already applied"},
			Cooldown:          []string{"后可以再次申请", "available again after"},
			PageHints:         []string{"任务已完成", "已申请"},
		},
	}
}

// TaskURL returns the task detail page for the configured task id
func (s SiteConfig) TaskURL() string {
	return s.resolve(fmt.Sprintf("home.php?mod=task&do=view&id=%d", s.TaskID))
}

// UserSpaceURL returns the logged-in user's space page
func (s SiteConfig) UserSpaceURL() string {
	return s.resolve(s.UserSpacePath)
}

func (s SiteConfig) resolve(ref string) string {
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return strings.TrimRight(s.BaseURL, "/") + "/" + ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return strings.TrimRight(s.BaseURL, "/") + "/" + ref
	}
	return base.ResolveReference(r).String()
}

// Validate reports the first setting that would make a run meaningless
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Site.BaseURL); err != nil {
		return fmt.Errorf("invalid site.base_url %q: %w", c.Site.BaseURL, err)
	}
	if c.Site.CookieDomain == "" {
		return errors.New("site.cookie_domain must be set")
	}
	if c.Site.TaskID <= 0 {
		return fmt.Errorf("site.task_id must be positive, got %d", c.Site.TaskID)
	}
	if c.Auth.CookieEnv == "" {
		return errors.New("auth.cookie_env must be set")
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Browser.WindowWidth, c.Browser.WindowHeight)
	}
	waits := map[string]Duration{
		"page_settle":       c.Waits.PageSettle,
		"task_render":       c.Waits.TaskRender,
		"result":            c.Waits.Result,
		"poll_interval":     c.Waits.PollInterval,
		"max_poll_interval": c.Waits.MaxPollInterval,
	}
	for name, d := range waits {
		if d.Duration <= 0 {
			return fmt.Errorf("waits.%s must be positive", name)
		}
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "dsltask"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from the default path
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads config from path. Keys missing from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes config to path
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
