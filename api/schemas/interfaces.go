package schemas

import (
	"context"
	"time"
)

// Page is the narrow capability surface of the single active page owned by a
// session. Implementations are not safe for concurrent use; the dispatcher
// serializes access per session.
//
// A context passed to any method bounds the wait for the operation to begin,
// not the operation itself: once a primitive is in flight there is no
// mid-flight cancellation, only the implementation's own bounded timeouts.
type Page interface {
	// Navigate loads the URL and blocks until the document body is ready,
	// bounded by the navigation timeout.
	Navigate(ctx context.Context, url string) error

	// Click performs a single click on the first visible match.
	Click(ctx context.Context, selector string) error

	// Type sends the literal text to the first visible match.
	Type(ctx context.Context, selector, text string) error

	// ExtractText returns the text content of the first match, or nil when
	// the selector matches nothing. A missing match is not an error.
	ExtractText(ctx context.Context, selector string) (*string, error)

	// WaitVisible blocks until the selector resolves to a visible element,
	// bounded by the observe timeout.
	WaitVisible(ctx context.Context, selector string) error

	// Wait suspends the calling action for the duration.
	Wait(ctx context.Context, d time.Duration) error

	// NavigateBack traverses one entry back in the page history.
	NavigateBack(ctx context.Context) error

	// Screenshot captures the current rendering as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// Close releases the page, its browsing context and the browser instance
	// behind it. Close is idempotent.
	Close(ctx context.Context) error
}

// Provider acquires fresh, fully isolated browser instances. Each call yields
// a browser process with one browsing context and one page, ready to accept
// navigation.
type Provider interface {
	Acquire(ctx context.Context) (Page, error)
}
