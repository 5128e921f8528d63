// File: internal/session/registry_test.go
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// -- Fakes --

// fakePage records calls and lets tests inject failures.
type fakePage struct {
	mu          sync.Mutex
	closed      int
	screenshot  []byte
	shotErr     error
	waitStarted chan struct{}
}

func (f *fakePage) Navigate(ctx context.Context, url string) error          { return nil }
func (f *fakePage) Click(ctx context.Context, selector string) error        { return nil }
func (f *fakePage) Type(ctx context.Context, selector, text string) error   { return nil }
func (f *fakePage) WaitVisible(ctx context.Context, selector string) error  { return nil }
func (f *fakePage) NavigateBack(ctx context.Context) error                  { return nil }
func (f *fakePage) ExtractText(ctx context.Context, selector string) (*string, error) {
	return nil, nil
}

func (f *fakePage) Wait(ctx context.Context, d time.Duration) error {
	if f.waitStarted != nil {
		close(f.waitStarted)
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	return f.screenshot, f.shotErr
}

func (f *fakePage) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakePage) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeProvider hands out fakePages, or fails when acquireErr is set.
type fakeProvider struct {
	mu         sync.Mutex
	acquireErr error
	pages      []*fakePage
}

func (f *fakeProvider) Acquire(ctx context.Context) (schemas.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	pg := &fakePage{screenshot: []byte("png-bytes")}
	f.pages = append(f.pages, pg)
	return pg, nil
}

func newTestRegistry(t *testing.T, provider *fakeProvider, cfg config.SessionConfig) *Registry {
	t.Helper()
	return NewRegistry(zaptest.NewLogger(t), provider, cfg)
}

// -- Tests --

func TestCreateAndGet(t *testing.T) {
	provider := &fakeProvider{}
	reg := newTestRegistry(t, provider, config.SessionConfig{})

	id, err := reg.Create(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	s, ok := reg.Get(id)
	require.True(t, ok, "session must be resolvable immediately after create")
	assert.Equal(t, id, s.ID())
	assert.NotNil(t, s.Page())
	assert.Equal(t, 1, reg.Len())
}

func TestCreateFailureRegistersNothing(t *testing.T) {
	provider := &fakeProvider{acquireErr: errors.New("chrome exploded")}
	reg := newTestRegistry(t, provider, config.SessionConfig{})

	_, err := reg.Create(context.Background())
	require.Error(t, err)

	var acqErr *schemas.ResourceAcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.Contains(t, acqErr.Error(), "chrome exploded")
	assert.Zero(t, reg.Len(), "no partial entry may remain after a failed create")
}

func TestEndIsIdempotent(t *testing.T) {
	provider := &fakeProvider{}
	reg := newTestRegistry(t, provider, config.SessionConfig{})

	id, err := reg.Create(context.Background())
	require.NoError(t, err)

	reg.End(context.Background(), id)
	_, ok := reg.Get(id)
	assert.False(t, ok, "session must be absent after end")
	assert.Equal(t, 1, provider.pages[0].closeCount())

	// A second End on the same id is a no-op, as is an unknown id.
	reg.End(context.Background(), id)
	reg.End(context.Background(), "never-existed")
	assert.Equal(t, 1, provider.pages[0].closeCount(), "page must be released exactly once")
}

func TestDistinctSessionsOwnDistinctPages(t *testing.T) {
	provider := &fakeProvider{}
	reg := newTestRegistry(t, provider, config.SessionConfig{})

	a, err := reg.Create(context.Background())
	require.NoError(t, err)
	b, err := reg.Create(context.Background())
	require.NoError(t, err)

	sa, _ := reg.Get(a)
	sb, _ := reg.Get(b)
	assert.NotSame(t, sa.Page(), sb.Page(), "live sessions must not share a browser handle")
}

func TestDebugInfo(t *testing.T) {
	provider := &fakeProvider{}
	reg := newTestRegistry(t, provider, config.SessionConfig{})

	id, err := reg.Create(context.Background())
	require.NoError(t, err)

	info := reg.DebugInfo(context.Background(), id)
	want := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	assert.Equal(t, want, info.Screenshot)

	// Capture failure degrades to an empty result, never an error.
	provider.pages[0].shotErr = errors.New("render crashed")
	assert.Zero(t, reg.DebugInfo(context.Background(), id))

	// Absent session yields the zero value.
	reg.End(context.Background(), id)
	assert.Zero(t, reg.DebugInfo(context.Background(), id))
}

func TestBeginActionSerializes(t *testing.T) {
	provider := &fakeProvider{}
	reg := newTestRegistry(t, provider, config.SessionConfig{})

	id, err := reg.Create(context.Background())
	require.NoError(t, err)
	s, _ := reg.Get(id)

	release, err := s.BeginAction(context.Background())
	require.NoError(t, err)

	// While the slot is held, a second action cannot start.
	blockedCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.BeginAction(blockedCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := s.BeginAction(context.Background())
	require.NoError(t, err, "slot must be reusable after release")
	release2()
}

func TestCloseAllEmptiesRegistry(t *testing.T) {
	provider := &fakeProvider{}
	reg := newTestRegistry(t, provider, config.SessionConfig{})

	for range 5 {
		_, err := reg.Create(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, 5, reg.Len())

	reg.CloseAll(context.Background())
	assert.Zero(t, reg.Len())
	for _, pg := range provider.pages {
		assert.Equal(t, 1, pg.closeCount())
	}
}

func TestActionPacing(t *testing.T) {
	provider := &fakeProvider{}
	reg := newTestRegistry(t, provider, config.SessionConfig{
		ActionsPerSecond: 50,
		ActionBurst:      1,
	})

	id, err := reg.Create(context.Background())
	require.NoError(t, err)
	s, _ := reg.Get(id)

	start := time.Now()
	for range 3 {
		release, err := s.BeginAction(context.Background())
		require.NoError(t, err)
		release()
	}
	// 50/s with burst 1 means the second and third reservations each wait
	// roughly 20ms.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
