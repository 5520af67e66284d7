package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ibeckermayer/dsltask/internal/browser"
	"github.com/ibeckermayer/dsltask/internal/config"
	"github.com/ibeckermayer/dsltask/internal/page"
)

// Manager puts a captured session into the browser and checks that the forum
// accepts it
type Manager struct {
	browser      browser.Browser
	site         config.SiteConfig
	clearCookies bool
	markers      config.MarkersConfig
	wait         browser.WaitOptions
	logger       *zap.Logger
}

// NewManager creates a new auth manager working on b
func NewManager(b browser.Browser, cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		browser:      b,
		site:         cfg.Site,
		clearCookies: cfg.Browser.ClearCookies,
		markers:      cfg.Markers,
		wait:         browser.WaitFor(cfg.Waits.PageSettle.Duration, cfg.Waits),
		logger:       logger.Named("auth"),
	}
}

// InjectCookies opens the site root (cookies can only be set for a domain that
// has been visited), optionally clears the jar, and sets every cookie on the
// configured domain. A cookie the browser refuses is logged and skipped.
// Returns the number of cookies set.
func (m *Manager) InjectCookies(ctx context.Context, cookies []Cookie) (int, error) {
	if err := m.browser.Navigate(ctx, m.site.BaseURL); err != nil {
		return 0, err
	}

	if m.clearCookies {
		if err := m.browser.ClearCookies(ctx); err != nil {
			m.logger.Warn("Failed to clear existing cookies", zap.Error(err))
		}
	}

	set := 0
	for _, c := range ForDomain(cookies, m.site.CookieDomain) {
		if err := m.browser.SetCookie(ctx, c); err != nil {
			if ctx.Err() != nil {
				return set, ctx.Err()
			}
			m.logger.Warn("Failed to set cookie", zap.String("name", c.Name), zap.Error(err))
			continue
		}
		set++
	}

	m.logger.Info("Cookies set", zap.Int("set", set), zap.Int("parsed", len(cookies)),
		zap.String("domain", m.site.CookieDomain))

	if jar, err := m.browser.Cookies(ctx); err != nil {
		m.logger.Debug("Failed to read back cookie jar", zap.Error(err))
	} else {
		n := 0
		for _, c := range jar {
			if onDomain(c, m.site.CookieDomain) {
				n++
			}
		}
		m.logger.Debug("Cookie jar", zap.Int("on_domain", n), zap.Int("total", len(jar)))
	}

	return set, nil
}

// CheckLogin opens url and waits until the page shows whether the session is
// logged in. If the page never settles on either state before the wait ends,
// LoginUnknown is returned without error.
func (m *Manager) CheckLogin(ctx context.Context, url string) (page.LoginState, error) {
	if err := m.browser.Navigate(ctx, url); err != nil {
		return page.LoginUnknown, err
	}

	state := page.LoginUnknown
	err := browser.WaitUntil(ctx, m.wait, func(ctx context.Context) (bool, error) {
		html, err := m.browser.HTML(ctx)
		if err != nil {
			return false, err
		}
		snap, err := page.Parse(html)
		if err != nil {
			return false, err
		}
		state = snap.Login(m.markers)
		return state != page.LoginUnknown, nil
	})
	if err != nil && !errors.Is(err, browser.ErrWaitTimeout) {
		return page.LoginUnknown, fmt.Errorf("failed to check login state: %w", err)
	}

	m.logger.Info("Login state", zap.String("url", url), zap.Stringer("state", state))
	return state, nil
}
