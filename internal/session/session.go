// File: internal/session/session.go
package session

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// Session binds an opaque id to one isolated browser instance and its single
// active page. The page handle is never handed out to anything that bypasses
// the registry; all access is mediated by id.
type Session struct {
	id        string
	page      schemas.Page
	createdAt time.Time

	// limiter paces action execution for this session.
	limiter *rate.Limiter

	// slot serializes actions: a single page handle is not safe for
	// concurrent primitive invocation, so at most one action may hold the
	// slot at any time.
	slot chan struct{}
}

func newSession(id string, pg schemas.Page, limiter *rate.Limiter) *Session {
	return &Session{
		id:        id,
		page:      pg,
		createdAt: time.Now(),
		limiter:   limiter,
		slot:      make(chan struct{}, 1),
	}
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string { return s.id }

// Page returns the session's single active page.
func (s *Session) Page() schemas.Page { return s.page }

// CreatedAt returns when the session was registered.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// BeginAction reserves the session's single in-flight action slot, waiting on
// the pacing limiter first. The returned release function must be called when
// the action finishes. Waiting is bounded by ctx.
func (s *Session) BeginAction(ctx context.Context) (release func(), err error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	select {
	case s.slot <- struct{}{}:
		return func() { <-s.slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
