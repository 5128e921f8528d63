// File: internal/session/registry.go
package session

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

// Registry is the process-wide mapping from session id to live session. It
// owns creation and destruction of the underlying browser resources.
//
// Invariants: at most one live session per id, and no two live sessions share
// a browser handle (each Acquire yields a fresh instance).
type Registry struct {
	logger   *zap.Logger
	provider schemas.Provider
	cfg      config.SessionConfig

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry on top of the given provider.
func NewRegistry(logger *zap.Logger, provider schemas.Provider, cfg config.SessionConfig) *Registry {
	return &Registry{
		logger:   logger.Named("registry"),
		provider: provider,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Create acquires a fresh isolated browser instance with a single page and
// registers it under a new id. The page is ready to accept navigation when
// Create returns. On acquisition failure nothing is registered.
func (r *Registry) Create(ctx context.Context) (string, error) {
	pg, err := r.provider.Acquire(ctx)
	if err != nil {
		return "", &schemas.ResourceAcquisitionError{Cause: err}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if r.cfg.ActionsPerSecond > 0 {
		burst := r.cfg.ActionBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(r.cfg.ActionsPerSecond), burst)
	}

	id := uuid.NewString()
	s := newSession(id, pg, limiter)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Info("Session created", zap.String("session_id", id))
	return id, nil
}

// Get looks up a live session. It has no side effects; absence is reported
// via the boolean, never an error.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// End tears down the session. Teardown is always safe to invoke: an unknown
// id is a no-op, and a second End on the same id does nothing. The entry is
// removed from the registry even when releasing the browser resources fails,
// so a broken release can never wedge the registry.
func (r *Registry) End(ctx context.Context, id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	if err := s.page.Close(ctx); err != nil {
		r.logger.Warn("Error releasing browser resources during teardown.",
			zap.String("session_id", id), zap.Error(err))
	}
	r.logger.Info("Session ended", zap.String("session_id", id))
}

// DebugInfo captures the session's current rendering for read-only
// introspection. It returns an empty result for unknown sessions or capture
// failures, never an error. The capture takes the session's action slot so it
// cannot race a primitive against the same page.
func (r *Registry) DebugInfo(ctx context.Context, id string) schemas.DebugInfo {
	s, ok := r.Get(id)
	if !ok {
		return schemas.DebugInfo{}
	}

	release, err := s.BeginAction(ctx)
	if err != nil {
		r.logger.Debug("Could not reserve session for debug capture.",
			zap.String("session_id", id), zap.Error(err))
		return schemas.DebugInfo{}
	}
	defer release()

	shot, err := s.page.Screenshot(ctx)
	if err != nil {
		r.logger.Debug("Debug screenshot failed.",
			zap.String("session_id", id), zap.Error(err))
		return schemas.DebugInfo{}
	}

	return schemas.DebugInfo{Screenshot: base64.StdEncoding.EncodeToString(shot)}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll tears down every live session concurrently. Used at process
// shutdown; bounded by ctx.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	if len(ids) == 0 {
		return
	}
	r.logger.Info("Closing all live sessions.", zap.Int("count", len(ids)))

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			r.End(gctx, id)
			return nil
		})
	}
	// End never reports failure, so this only waits for completion.
	_ = g.Wait()
}
