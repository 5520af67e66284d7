// Package page reads the forum's state out of rendered markup: whether the
// session is logged in, whether the apply control is on cooldown, and what the
// site answered after the click.
package page

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ibeckermayer/dsltask/internal/config"
)

// LoginState is what the page says about the session.
type LoginState int

const (
	LoginUnknown LoginState = iota
	LoggedIn
	LoggedOut
)

func (s LoginState) String() string {
	switch s {
	case LoggedIn:
		return "logged_in"
	case LoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Verdict is the site's answer after the apply control was clicked.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictApplied
	VerdictAlreadyApplied
)

func (v Verdict) String() string {
	switch v {
	case VerdictApplied:
		return "applied"
	case VerdictAlreadyApplied:
		return "already_applied"
	default:
		return "unknown"
	}
}

// Snapshot is a parsed copy of the page at one point in time.
type Snapshot struct {
	doc  *goquery.Document
	text string
}

// Parse builds a snapshot from the page's outer HTML.
func Parse(html string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	// Script and style bodies are not page text.
	doc.Find("script, style, noscript").Remove()

	return &Snapshot{doc: doc, text: doc.Text()}, nil
}

// Text returns the page's text content.
func (s *Snapshot) Text() string {
	return s.text
}

// ContainsAny reports whether the page text contains any of the phrases.
func (s *Snapshot) ContainsAny(phrases []string) bool {
	return containsAny(s.text, phrases)
}

// ContainsAll reports whether the page text contains every phrase. An empty
// list never matches.
func (s *Snapshot) ContainsAll(phrases []string) bool {
	if len(phrases) == 0 {
		return false
	}
	for _, p := range phrases {
		if !strings.Contains(s.text, p) {
			return false
		}
	}
	return true
}

// Matching returns the phrases found in the page text.
func (s *Snapshot) Matching(phrases []string) []string {
	var found []string
	for _, p := range phrases {
		if p != "" && strings.Contains(s.text, p) {
			found = append(found, p)
		}
	}
	return found
}

// Login classifies the session state. Logged-out markers win: a page offering
// both login and register links is treated as anonymous even if it also
// carries a logged-in marker.
func (s *Snapshot) Login(m config.MarkersConfig) LoginState {
	if s.ContainsAll(m.LoggedOutText) {
		return LoggedOut
	}
	for _, sel := range m.LoggedInSelectors {
		if s.doc.Find(sel).Length() > 0 {
			return LoggedIn
		}
	}
	if s.ContainsAny(m.LoggedInText) {
		return LoggedIn
	}
	return LoginUnknown
}

// Verdict classifies the page after the apply click. Success is checked first.
func (s *Snapshot) Verdict(m config.MarkersConfig) Verdict {
	switch {
	case s.ContainsAny(m.Success):
		return VerdictApplied
	case s.ContainsAny(m.AlreadyApplied):
		return VerdictAlreadyApplied
	default:
		return VerdictUnknown
	}
}

// OnCooldown reports whether the apply control's title or onclick says the task
// can only be applied for again later.
func OnCooldown(title, onclick string, phrases []string) bool {
	return containsAny(title, phrases) || containsAny(onclick, phrases)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}
