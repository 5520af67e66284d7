package browser

import (
	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/dsltask/internal/config"
)

// DefaultUserAgent is a realistic desktop Chrome user agent
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures a browser launch
type Options struct {
	Headless     bool
	ExecPath     string
	UserAgent    string
	WindowWidth  int
	WindowHeight int
}

// OptionsFromConfig maps the [browser] config section onto launch options
func OptionsFromConfig(cfg config.BrowserConfig) Options {
	return Options{
		Headless:     cfg.Headless,
		ExecPath:     cfg.ExecPath,
		UserAgent:    cfg.UserAgent,
		WindowWidth:  cfg.WindowWidth,
		WindowHeight: cfg.WindowHeight,
	}
}

// AllocatorOptions returns chromedp allocator options suited to running on a
// server: sandbox and shared-memory use disabled, GPU off when headless, and the
// automation flag hidden from navigator.webdriver.
func AllocatorOptions(o Options) []chromedp.ExecAllocatorOption {
	userAgent := o.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	width, height := o.WindowWidth, o.WindowHeight
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),

		// Prevent navigator.webdriver = true detection
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(width, height),

		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	if o.Headless {
		opts = append(opts, chromedp.DisableGPU)
	}
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}

	return opts
}
