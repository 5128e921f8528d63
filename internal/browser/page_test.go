// File: internal/browser/page_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagepilot/internal/config"
)

// newStubPage builds a page around plain contexts so the lifecycle logic can
// be exercised without launching Chrome.
func newStubPage(t *testing.T) (*page, context.CancelFunc, context.CancelFunc) {
	t.Helper()
	allocCtx, allocCancel := context.WithCancel(context.Background())
	tabCtx, tabCancel := context.WithCancel(allocCtx)
	p := &page{
		logger:      zaptest.NewLogger(t),
		cfg:         config.BrowserConfig{ActionTimeout: time.Second},
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}
	return p, tabCancel, allocCancel
}

func TestPageWaitCompletes(t *testing.T) {
	p, _, _ := newStubPage(t)
	defer p.Close(context.Background())

	start := time.Now()
	err := p.Wait(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPageWaitAbortsOnCallerCancel(t *testing.T) {
	p, _, _ := newStubPage(t)
	defer p.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Wait(ctx, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPageWaitAbortsOnSessionClose(t *testing.T) {
	p, tabCancel, _ := newStubPage(t)
	defer p.Close(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		tabCancel()
	}()

	err := p.Wait(context.Background(), 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPageCloseIsIdempotent(t *testing.T) {
	p, _, _ := newStubPage(t)

	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))

	assert.Error(t, p.tabCtx.Err(), "tab context should be cancelled after close")
	assert.Error(t, p.allocCtx.Err(), "browser context should be cancelled after close")
}

func TestRunRejectsCancelledCaller(t *testing.T) {
	p, _, _ := newStubPage(t)
	defer p.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Wait(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
