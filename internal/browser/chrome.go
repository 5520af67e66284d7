package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Chrome is a Browser backed by a chromedp-controlled Chrome instance.
type Chrome struct {
	ctx         context.Context // chromedp tab context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
	closeOnce   sync.Once
	closeErr    error
}

// ChromeLauncher returns a Launcher that starts Chrome through chromedp.
func ChromeLauncher(logger *zap.Logger) Launcher {
	return func(ctx context.Context, opts Options) (Browser, error) {
		return Launch(ctx, opts, logger)
	}
}

// Launch starts Chrome with the given options. The browser lives until Close is
// called; ctx only bounds the startup.
func Launch(ctx context.Context, opts Options, logger *zap.Logger) (*Chrome, error) {
	logger = logger.Named("chrome")

	// The browser's lifetime is tied to Close, not to the caller's context, so
	// that cleanup can still take a final screenshot after cancellation.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), AllocatorOptions(opts)...)

	sugar := logger.Sugar()
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Warnf),
	)

	c := &Chrome{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger,
	}

	// The first Run allocates the browser and must use the tab context itself:
	// chromedp ties the process and the tab's event loop to the context it is
	// given. ctx only cancels startup.
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(browserCtx)
	if !stop() && err == nil {
		err = context.Cause(ctx)
	}
	if err != nil {
		if closeErr := c.Close(); closeErr != nil {
			logger.Debug("Failed to close browser after failed start", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Debug("Browser started", zap.Bool("headless", opts.Headless))
	return c, nil
}

// run executes actions on the tab, aborting when either ctx or the tab ends.
// Cancelling ctx never touches the browser, so the tab must already exist.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := c.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (c *Chrome) SetCookie(ctx context.Context, ck Cookie) error {
	return c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookie(ck.Name, ck.Value).
			WithDomain(ck.Domain).
			WithPath(ck.Path).
			Do(ctx)
	}))
}

func (c *Chrome) ClearCookies(ctx context.Context) error {
	return c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return storage.ClearCookies().Do(ctx)
	}))
}

func (c *Chrome) Cookies(ctx context.Context) ([]Cookie, error) {
	var raw []*network.Cookie
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, rc := range raw {
		cookies = append(cookies, Cookie{
			Name:   rc.Name,
			Value:  rc.Value,
			Domain: rc.Domain,
			Path:   rc.Path,
		})
	}
	return cookies, nil
}

func (c *Chrome) Query(ctx context.Context, sel Selector) (Element, error) {
	var nodes []*cdp.Node
	if err := c.run(ctx, chromedp.Nodes(sel.CSS, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", sel.CSS, err)
	}

	if len(nodes) == 0 {
		return nil, ErrNotFound
	}
	els := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &chromeElement{chrome: c, node: n})
	}
	if sel.Text == "" {
		return els[0], nil
	}
	return firstContaining(ctx, els, sel.Text, c.logger)
}

// firstContaining returns the first element whose text contains want.
// Elements whose text cannot be read, such as nodes detached since the query,
// are skipped.
func firstContaining(ctx context.Context, els []Element, want string, logger *zap.Logger) (Element, error) {
	for _, el := range els {
		text, err := el.Text(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Debug("Skipping unreadable element", zap.Error(err))
			continue
		}
		if strings.Contains(text, want) {
			return el, nil
		}
	}
	return nil, ErrNotFound
}

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page source: %w", err)
	}
	return html, nil
}

func (c *Chrome) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := c.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return buf, nil
}

// Close shuts the browser down. Further calls return the first result.
func (c *Chrome) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = chromedp.Cancel(c.ctx)
		c.cancel()
		c.allocCancel()
		c.logger.Debug("Browser closed")
	})
	return c.closeErr
}

// chromeElement addresses a node by its NodeID within the tab it came from.
type chromeElement struct {
	chrome *Chrome
	node   *cdp.Node
}

func (e *chromeElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	attrs := make(map[string]string)
	if err := e.chrome.run(ctx, chromedp.Attributes(e.ids(), &attrs, chromedp.ByNodeID)); err != nil {
		return "", false, fmt.Errorf("failed to read attributes: %w", err)
	}
	v, ok := attrs[name]
	return v, ok, nil
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.chrome.run(ctx, chromedp.TextContent(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("failed to read element text: %w", err)
	}
	return text, nil
}

func (e *chromeElement) ScrollIntoView(ctx context.Context) error {
	return e.chrome.run(ctx, chromedp.ScrollIntoView(e.ids(), chromedp.ByNodeID))
}

func (e *chromeElement) Click(ctx context.Context) error {
	return e.chrome.run(ctx, chromedp.MouseClickNode(e.node))
}
