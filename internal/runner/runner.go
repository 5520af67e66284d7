// Package runner applies for the forum task in one browser session, as a state
// machine from Init to Done or Failed.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/dsltask/internal/artifacts"
	"github.com/ibeckermayer/dsltask/internal/auth"
	"github.com/ibeckermayer/dsltask/internal/browser"
	"github.com/ibeckermayer/dsltask/internal/config"
	"github.com/ibeckermayer/dsltask/internal/page"
)

// ErrMissingCookie is returned when the run has no cookie string to log in with.
var ErrMissingCookie = errors.New("session cookie not set")

// cleanupTimeout bounds the final screenshot and browser shutdown.
const cleanupTimeout = 15 * time.Second

// Result describes a finished run.
type Result struct {
	State      State
	Outcome    Outcome
	Strategy   string // name of the selector that found the apply button
	Title      string
	OnClick    string
	CookiesSet int
	Artifacts  []string
	// FinalScreenshot is the path of the exit screenshot, empty if it failed.
	FinalScreenshot string
	Err             error
}

// Runner applies for the task.
type Runner struct {
	cfg       *config.Config
	launch    browser.Launcher
	artifacts *artifacts.Writer
	selectors []browser.Selector
	logger    *zap.Logger
}

// New creates a runner that starts its browser with launch.
func New(cfg *config.Config, launch browser.Launcher, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		launch:    launch,
		artifacts: artifacts.NewWriter(cfg.Output.Dir),
		selectors: page.ApplySelectors,
		logger:    logger.Named("runner"),
	}
}

// WithArtifacts replaces the artifact writer.
func (r *Runner) WithArtifacts(w *artifacts.Writer) *Runner {
	r.artifacts = w
	return r
}

// WithSelectors replaces the apply-button selector chain.
func (r *Runner) WithSelectors(selectors []browser.Selector) *Runner {
	r.selectors = selectors
	return r
}

// session is the state shared by the transitions of one run.
type session struct {
	browser browser.Browser
	auth    *auth.Manager
	cookies []auth.Cookie
	button  browser.Element
	result  *Result
}

type transition func(ctx context.Context, s *session) (State, error)

func (r *Runner) transitions() map[State]transition {
	return map[State]transition{
		StateInit:           r.setCookies,
		StateCookiesSet:     r.verifyLogin,
		StateLoggedIn:       r.openTaskPage,
		StateTaskPageLoaded: r.findButton,
		StateButtonFound:    r.click,
		StateClicked:        r.classify,
		StateClassified:     r.done,
	}
}

// Run performs one task run with the given cookie string. The browser is not
// launched when the string is blank. Once launched, the browser gets exactly
// one final screenshot and one Close whichever way the run ends.
func (r *Runner) Run(ctx context.Context, cookieHeader string) (res *Result, err error) {
	res = &Result{State: StateInit}

	if strings.TrimSpace(cookieHeader) == "" {
		r.logger.Error("Cookie not set", zap.String("env", r.cfg.Auth.CookieEnv))
		res.State = StateFailed
		res.Outcome = OutcomeMissingCookie
		res.Err = ErrMissingCookie
		r.logOutcome(res)
		return res, ErrMissingCookie
	}

	b, err := r.launch(ctx, browser.OptionsFromConfig(r.cfg.Browser))
	if err != nil {
		err = fmt.Errorf("failed to launch browser: %w", err)
		r.logger.Error("Run failed", zap.Error(err))
		res.State = StateFailed
		res.Outcome = OutcomeError
		res.Err = err
		r.logOutcome(res)
		return res, err
	}

	s := &session{
		browser: b,
		auth:    auth.NewManager(b, r.cfg, r.logger),
		cookies: auth.ParseCookieHeader(cookieHeader),
		result:  res,
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("run panicked: %v", p)
		}
		if err != nil {
			r.logger.Error("Run failed", zap.Stringer("state", res.State), zap.Error(err))
			res.State = StateFailed
			res.Outcome = OutcomeError
			res.Err = err
		}
		r.finish(ctx, s, err != nil)
		r.logOutcome(res)
	}()

	err = r.drive(ctx, s)
	return res, err
}

// drive runs transitions until a terminal state.
func (r *Runner) drive(ctx context.Context, s *session) error {
	steps := r.transitions()
	for !s.result.State.Terminal() {
		from := s.result.State
		step, ok := steps[from]
		if !ok {
			return fmt.Errorf("no transition from state %s", from)
		}
		to, err := step(ctx, s)
		if err != nil {
			return err
		}
		r.logger.Debug("State transition", zap.Stringer("from", from), zap.Stringer("to", to))
		s.result.State = to
	}
	return nil
}

// finish takes the exit screenshot and releases the browser. It runs on a
// context detached from ctx's cancellation so that a cancelled run is still
// cleaned up.
func (r *Runner) finish(ctx context.Context, s *session, failed bool) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	defer func() {
		if err := s.browser.Close(); err != nil {
			r.logger.Warn("Failed to close browser", zap.Error(err))
			return
		}
		r.logger.Info("Browser closed")
	}()

	prefix := artifacts.FinalResultPrefix
	if failed {
		prefix = artifacts.ErrorPrefix
	}
	s.result.FinalScreenshot = r.capture(cleanupCtx, s, r.artifacts.Timestamped(prefix, ".png"))
}

// capture saves a screenshot under name and returns its path, or "" if it
// could not be taken. Screenshot failures never end a run.
func (r *Runner) capture(ctx context.Context, s *session, name string) string {
	shot, err := s.browser.Screenshot(ctx)
	if err != nil {
		r.logger.Warn("Failed to take screenshot", zap.String("name", name), zap.Error(err))
		return ""
	}
	path, err := r.artifacts.Save(name, shot)
	if err != nil {
		r.logger.Warn("Failed to save screenshot", zap.String("name", name), zap.Error(err))
		return ""
	}
	s.result.Artifacts = append(s.result.Artifacts, path)
	r.logger.Info("Screenshot saved", zap.String("path", path))
	return path
}

func (r *Runner) logOutcome(res *Result) {
	fields := []zap.Field{
		zap.Stringer("outcome", res.Outcome),
		zap.Stringer("state", res.State),
	}
	if res.Strategy != "" {
		fields = append(fields, zap.String("selector", res.Strategy))
	}
	if res.Err != nil {
		fields = append(fields, zap.Error(res.Err))
	}
	r.logger.Info("task outcome", fields...)
}

func (r *Runner) wait(timeout time.Duration) browser.WaitOptions {
	return browser.WaitFor(timeout, r.cfg.Waits)
}
