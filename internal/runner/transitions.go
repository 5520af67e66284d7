package runner

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ibeckermayer/dsltask/internal/artifacts"
	"github.com/ibeckermayer/dsltask/internal/browser"
	"github.com/ibeckermayer/dsltask/internal/page"
)

// setCookies: Init -> CookiesSet
func (r *Runner) setCookies(ctx context.Context, s *session) (State, error) {
	if len(s.cookies) == 0 {
		r.logger.Warn("Cookie string has no name=value pairs")
	}

	n, err := s.auth.InjectCookies(ctx, s.cookies)
	if err != nil {
		return StateFailed, fmt.Errorf("failed to set cookies: %w", err)
	}
	s.result.CookiesSet = n
	return StateCookiesSet, nil
}

// verifyLogin: CookiesSet -> LoggedIn, or Failed when the forum shows the
// anonymous login/register links.
func (r *Runner) verifyLogin(ctx context.Context, s *session) (State, error) {
	state, err := s.auth.CheckLogin(ctx, r.cfg.Site.BaseURL)
	if err != nil {
		return StateFailed, err
	}
	switch state {
	case page.LoggedOut:
		r.logger.Error("Not logged in, the cookie may have expired")
		r.capture(ctx, s, artifacts.LoginFailed)
		s.result.Outcome = OutcomeLoginFailed
		return StateFailed, nil
	case page.LoginUnknown:
		r.logger.Warn("Could not confirm login state on the home page, continuing")
	}

	if r.cfg.Auth.VerifyUserSpace {
		state, err = s.auth.CheckLogin(ctx, r.cfg.Site.UserSpaceURL())
		if err != nil {
			return StateFailed, err
		}
		if state == page.LoggedOut {
			r.logger.Error("User space rejected the cookie, capture a new one")
			r.capture(ctx, s, artifacts.CookieInvalid)
			s.result.Outcome = OutcomeLoginFailed
			return StateFailed, nil
		}
	}

	r.logger.Info("Logged in with cookie")
	return StateLoggedIn, nil
}

// openTaskPage: LoggedIn -> TaskPageLoaded
func (r *Runner) openTaskPage(ctx context.Context, s *session) (State, error) {
	url := r.cfg.Site.TaskURL()
	if err := s.browser.Navigate(ctx, url); err != nil {
		return StateFailed, fmt.Errorf("failed to open task page: %w", err)
	}
	r.logger.Info("Opened task page", zap.String("url", url))
	return StateTaskPageLoaded, nil
}

// findButton: TaskPageLoaded -> ButtonFound, Done when the task is on
// cooldown, or Failed when no selector matches before the page is given up on.
func (r *Runner) findButton(ctx context.Context, s *session) (State, error) {
	var (
		found    browser.Element
		strategy string
	)
	err := browser.WaitUntil(ctx, r.wait(r.cfg.Waits.TaskRender.Duration), func(ctx context.Context) (bool, error) {
		el, sel, err := r.discover(ctx, s.browser)
		if err != nil || el == nil {
			return false, err
		}
		found, strategy = el, sel.Name
		return true, nil
	})
	if errors.Is(err, browser.ErrWaitTimeout) {
		r.noButton(ctx, s)
		return StateFailed, nil
	}
	if err != nil {
		return StateFailed, fmt.Errorf("failed to look for apply button: %w", err)
	}

	title, _, err := found.Attribute(ctx, "title")
	if err != nil {
		return StateFailed, fmt.Errorf("failed to read apply button title: %w", err)
	}
	onclick, _, err := found.Attribute(ctx, "onclick")
	if err != nil {
		return StateFailed, fmt.Errorf("failed to read apply button onclick: %w", err)
	}

	s.button = found
	s.result.Strategy = strategy
	s.result.Title = title
	s.result.OnClick = onclick
	r.logger.Info("Found apply button",
		zap.String("selector", strategy),
		zap.String("title", title),
		zap.String("onclick", onclick),
	)

	if page.OnCooldown(title, onclick, r.cfg.Markers.Cooldown) {
		r.logger.Info("Task on cooldown, see the button title for the next window", zap.String("title", title))
		s.result.Outcome = OutcomeCooldown
		return StateDone, nil
	}

	return StateButtonFound, nil
}

// discover tries each selector once, in order, and returns the first match.
// A nil element with a nil error means nothing matched yet.
func (r *Runner) discover(ctx context.Context, b browser.Browser) (browser.Element, browser.Selector, error) {
	for _, sel := range r.selectors {
		el, err := b.Query(ctx, sel)
		if err == nil {
			return el, sel, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, sel, ctxErr
		}
		if errors.Is(err, browser.ErrNotFound) {
			r.logger.Debug("Selector did not match", zap.String("selector", sel.Name))
		} else {
			r.logger.Warn("Selector failed", zap.String("selector", sel.Name), zap.Error(err))
		}
	}
	return nil, browser.Selector{}, nil
}

// noButton records what the page says when the apply button is missing.
func (r *Runner) noButton(ctx context.Context, s *session) {
	r.logger.Error("Apply button not found")
	s.result.Outcome = OutcomeNoButton

	html, err := s.browser.HTML(ctx)
	if err != nil {
		r.logger.Warn("Failed to read page source", zap.Error(err))
	} else {
		if snap, err := page.Parse(html); err == nil {
			for _, hint := range snap.Matching(r.cfg.Markers.PageHints) {
				r.logger.Info("Page hint", zap.String("hint", hint))
			}
		}
		if r.cfg.Output.DumpPageSource {
			if path, err := r.artifacts.Save(artifacts.PageSource, []byte(html)); err != nil {
				r.logger.Warn("Failed to save page source", zap.Error(err))
			} else {
				s.result.Artifacts = append(s.result.Artifacts, path)
				r.logger.Info("Page source saved", zap.String("path", path))
			}
		}
	}

	if r.cfg.Output.DumpPageSource {
		r.capture(ctx, s, artifacts.NoButtonFound)
	}
}

// click: ButtonFound -> Clicked
func (r *Runner) click(ctx context.Context, s *session) (State, error) {
	if err := s.button.ScrollIntoView(ctx); err != nil {
		return StateFailed, fmt.Errorf("failed to scroll to apply button: %w", err)
	}
	if err := s.button.Click(ctx); err != nil {
		return StateFailed, fmt.Errorf("failed to click apply button: %w", err)
	}
	r.logger.Info("Clicked apply button")
	return StateClicked, nil
}

// classify: Clicked -> Classified
func (r *Runner) classify(ctx context.Context, s *session) (State, error) {
	verdict := page.VerdictUnknown
	err := browser.WaitUntil(ctx, r.wait(r.cfg.Waits.Result.Duration), func(ctx context.Context) (bool, error) {
		html, err := s.browser.HTML(ctx)
		if err != nil {
			return false, err
		}
		snap, err := page.Parse(html)
		if err != nil {
			return false, err
		}
		verdict = snap.Verdict(r.cfg.Markers)
		return verdict != page.VerdictUnknown, nil
	})
	if err != nil && !errors.Is(err, browser.ErrWaitTimeout) {
		return StateFailed, fmt.Errorf("failed to read apply result: %w", err)
	}

	switch verdict {
	case page.VerdictApplied:
		r.logger.Info("Task applied successfully")
		s.result.Outcome = OutcomeApplied
	case page.VerdictAlreadyApplied:
		r.logger.Info("Task already applied today")
		s.result.Outcome = OutcomeAlreadyApplied
	default:
		r.logger.Warn("Apply status unknown, check the screenshot")
		s.result.Outcome = OutcomeUnknown
	}

	r.capture(ctx, s, r.artifacts.Timestamped(artifacts.TaskResultPrefix, ".png"))
	return StateClassified, nil
}

// done: Classified -> Done
func (r *Runner) done(ctx context.Context, s *session) (State, error) {
	return StateDone, nil
}
