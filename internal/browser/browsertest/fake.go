// Package browsertest provides an in-memory browser.Browser whose pages are
// static HTML documents, for exercising browser-driving code without Chrome.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/ibeckermayer/dsltask/internal/browser"
)

// PNG is the body returned by Screenshot.
var PNG = []byte("\x89PNG fake")

// Fake serves Pages by URL. Clicking any element swaps the current page's
// markup for AfterClick[url] when present. Every call is appended to Calls as
// "op" or "op arg".
type Fake struct {
	mu sync.Mutex

	Pages      map[string]string
	AfterClick map[string]string

	// Errors makes an operation fail, keyed by op name
	// (launch, navigate, set_cookie, clear_cookies, cookies, query, html,
	// screenshot, scroll, click, close).
	Errors map[string]error
	// CookieErrors makes SetCookie fail for specific cookie names.
	CookieErrors map[string]error
	// PanicOn makes an operation panic, keyed like Errors.
	PanicOn string

	Calls    []string
	Jar      []browser.Cookie
	Launches int
	Closes   int
	Shots    int

	current string
}

// New returns a fake serving pages.
func New(pages map[string]string) *Fake {
	return &Fake{
		Pages:        pages,
		AfterClick:   map[string]string{},
		Errors:       map[string]error{},
		CookieErrors: map[string]error{},
	}
}

// Launcher returns a launcher handing out f and counting launches.
func (f *Fake) Launcher() browser.Launcher {
	return func(ctx context.Context, opts browser.Options) (browser.Browser, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.Launches++
		f.Calls = append(f.Calls, "launch")
		if err := f.Errors["launch"]; err != nil {
			return nil, err
		}
		return f, nil
	}
}

// Called reports how many recorded calls start with prefix.
func (f *Fake) Called(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// CallLog returns a copy of the recorded calls.
func (f *Fake) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// record logs a call and returns the configured failure for op. Callers must
// hold f.mu.
func (f *Fake) record(op, arg string) error {
	if arg != "" {
		f.Calls = append(f.Calls, op+" "+arg)
	} else {
		f.Calls = append(f.Calls, op)
	}
	if f.PanicOn == op {
		panic(fmt.Sprintf("browsertest: %s", op))
	}
	return f.Errors[op]
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("navigate", url); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.current = url
	return nil
}

func (f *Fake) SetCookie(ctx context.Context, c browser.Cookie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("set_cookie", c.Name); err != nil {
		return err
	}
	if err := f.CookieErrors[c.Name]; err != nil {
		return err
	}
	f.Jar = append(f.Jar, c)
	return nil
}

func (f *Fake) ClearCookies(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("clear_cookies", ""); err != nil {
		return err
	}
	f.Jar = nil
	return nil
}

func (f *Fake) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("cookies", ""); err != nil {
		return nil, err
	}
	return append([]browser.Cookie(nil), f.Jar...), nil
}

func (f *Fake) Query(ctx context.Context, sel browser.Selector) (browser.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("query", sel.Name); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(f.Pages[f.current]))
	if err != nil {
		return nil, err
	}

	var found *goquery.Selection
	doc.Find(sel.CSS).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if sel.Text == "" || strings.Contains(s.Text(), sel.Text) {
			found = s
			return false
		}
		return true
	})
	if found == nil {
		return nil, browser.ErrNotFound
	}
	return &element{fake: f, sel: found, name: sel.Name}, nil
}

func (f *Fake) HTML(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("html", ""); err != nil {
		return "", err
	}
	return f.Pages[f.current], nil
}

func (f *Fake) Screenshot(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Shots++
	if err := f.record("screenshot", ""); err != nil {
		return nil, err
	}
	return PNG, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closes++
	return f.record("close", "")
}

type element struct {
	fake *Fake
	sel  *goquery.Selection
	name string
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	return e.sel.Text(), nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	e.fake.mu.Lock()
	defer e.fake.mu.Unlock()
	return e.fake.record("scroll", e.name)
}

func (e *element) Click(ctx context.Context) error {
	e.fake.mu.Lock()
	defer e.fake.mu.Unlock()
	if err := e.fake.record("click", e.name); err != nil {
		return err
	}
	if html, ok := e.fake.AfterClick[e.fake.current]; ok {
		e.fake.Pages[e.fake.current] = html
	}
	return nil
}
