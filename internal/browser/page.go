// File: internal/browser/page.go
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

// page is the single active page of one isolated browser instance. It owns
// both the tab context and the browser process behind it and releases them
// exactly once.
type page struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

var _ schemas.Page = (*page)(nil)

// run executes chromedp actions on the tab context bounded by timeout.
// Primitives derive from the tab context rather than the caller's so that
// closing the session aborts anything in flight; the caller's context only
// gates whether the primitive starts at all.
func (p *page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(p.tabCtx, timeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (p *page) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating", zap.String("url", url))
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if p.cfg.PostLoadWait > 0 {
		// Let async page work settle before the caller acts on the DOM.
		actions = append(actions, chromedp.Sleep(p.cfg.PostLoadWait))
	}
	return p.run(ctx, p.cfg.NavigationTimeout, actions...)
}

func (p *page) Click(ctx context.Context, selector string) error {
	p.logger.Debug("Clicking", zap.String("selector", selector))
	return p.run(ctx, p.cfg.ActionTimeout,
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
	)
}

func (p *page) Type(ctx context.Context, selector, text string) error {
	p.logger.Debug("Typing", zap.String("selector", selector), zap.Int("text_len", len(text)))
	return p.run(ctx, p.cfg.ActionTimeout,
		chromedp.SendKeys(selector, text, chromedp.ByQuery, chromedp.NodeVisible),
	)
}

// ExtractText returns the text content of the first match, or nil when the
// selector matches nothing. The zero-match probe uses AtLeast(0) so it
// returns immediately instead of waiting for the element to appear.
func (p *page) ExtractText(ctx context.Context, selector string) (*string, error) {
	var nodes []*cdp.Node
	err := p.run(ctx, p.cfg.ActionTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	var text string
	err = p.run(ctx, p.cfg.ActionTimeout,
		chromedp.Text(selector, &text, chromedp.ByQuery),
	)
	if err != nil {
		return nil, err
	}
	return &text, nil
}

func (p *page) WaitVisible(ctx context.Context, selector string) error {
	p.logger.Debug("Waiting for selector", zap.String("selector", selector))
	return p.run(ctx, p.cfg.ObserveTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
	)
}

// Wait suspends only the calling action; the browser stays idle.
func (p *page) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.tabCtx.Done():
		return p.tabCtx.Err()
	}
}

func (p *page) NavigateBack(ctx context.Context) error {
	return p.run(ctx, p.cfg.ActionTimeout, chromedp.NavigateBack())
}

func (p *page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, p.cfg.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = cdppage.CaptureScreenshot().
			WithFormat(cdppage.CaptureScreenshotFormatPng).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Close releases the tab context and then the browser process. It is
// idempotent and never fails the caller: release problems are logged and the
// handles are considered gone either way.
func (p *page) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.tabCancel()
	p.allocCancel()

	// Wait for the browser process context to confirm termination, bounded
	// by the caller's deadline and a hard cap.
	waitCtx, cancelWait := context.WithTimeout(ctx, 10*time.Second)
	defer cancelWait()

	select {
	case <-p.allocCtx.Done():
		p.logger.Debug("Browser instance closed.")
	case <-waitCtx.Done():
		p.logger.Warn("Deadline exceeded waiting for browser instance to close.", zap.Error(waitCtx.Err()))
	}
	return nil
}
