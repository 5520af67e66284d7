// Package browser defines the browser collaborator the task runner drives and a
// chromedp-backed implementation of it.
package browser

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Query when no element matches a selector.
var ErrNotFound = errors.New("element not found")

// Cookie is a cookie as handed to or read from the browser's cookie jar.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// Selector locates a single element. Elements matching CSS are considered in
// document order; when Text is set, only those whose text contains it qualify.
type Selector struct {
	Name string
	CSS  string
	Text string
}

// Element is a handle on a discovered DOM element.
type Element interface {
	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Text(ctx context.Context) (string, error)
	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
}

// Browser is one exclusively owned browser instance.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	SetCookie(ctx context.Context, c Cookie) error
	ClearCookies(ctx context.Context) error
	Cookies(ctx context.Context) ([]Cookie, error)
	// Query returns the first element matching sel, or ErrNotFound.
	Query(ctx context.Context, sel Selector) (Element, error)
	// HTML returns the full rendered markup of the current page.
	HTML(ctx context.Context) (string, error)
	// Screenshot captures the current viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// Close releases the browser. It must be called exactly once.
	Close() error
}

// Launcher starts a browser.
type Launcher func(ctx context.Context, opts Options) (Browser, error)
