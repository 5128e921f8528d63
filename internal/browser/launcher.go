// File: internal/browser/launcher.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

// Launcher launches one fully isolated headless browser instance per Acquire
// call. Each session gets its own browser process rather than a tab in a
// shared one, so cookies, storage and crashes never bleed across sessions.
type Launcher struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// baseCtx parents every browser process. Cancelling it kills all
	// instances the launcher ever produced.
	baseCtx context.Context
}

var _ schemas.Provider = (*Launcher)(nil)

// NewLauncher creates a launcher. All browser processes live under ctx.
func NewLauncher(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) *Launcher {
	return &Launcher{
		logger:  logger.Named("browser"),
		cfg:     cfg,
		baseCtx: ctx,
	}
}

// Acquire starts a fresh browser process with one isolated browsing context
// and a single page, and verifies the page accepts navigation before
// returning. On any failure everything already started is torn down.
func (l *Launcher) Acquire(ctx context.Context) (schemas.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(l.baseCtx, l.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(l.logger.Sugar().Debugf))

	readyCtx, cancelReady := context.WithTimeout(tabCtx, l.cfg.LaunchTimeout)
	defer cancelReady()

	boot := []chromedp.Action{}
	if l.cfg.ViewportWidth > 0 && l.cfg.ViewportHeight > 0 {
		boot = append(boot, chromedp.EmulateViewport(l.cfg.ViewportWidth, l.cfg.ViewportHeight))
	}
	if l.cfg.DisableCache {
		boot = append(boot, chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCacheDisabled(true).Do(ctx)
		}))
	}
	// The readiness probe doubles as the guarantee that the page can accept
	// navigation before the session is handed out.
	boot = append(boot, chromedp.Navigate("about:blank"))

	if err := chromedp.Run(readyCtx, boot...); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	l.logger.Debug("Browser instance launched and responsive.")

	return &page{
		logger:      l.logger,
		cfg:         l.cfg,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// allocatorOptions assembles the launch flags for an isolated headless
// instance.
func (l *Launcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", l.cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", l.cfg.IgnoreTLSErrors),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", l.cfg.Headless),
	)

	// Custom flags from configuration, "--name=value" or "--name".
	for _, arg := range l.cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Flags required when running inside containers (e.g. Docker on Linux).
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}
