// File: internal/history/recorder.go
package history

import (
	"context"
	"time"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// Entry is one action appended to the audit trail. The core session state
// machine never reads these back; the trail exists for operators and for
// replaying what a planning loop did to a page.
type Entry struct {
	SessionID   string               `json:"session_id"`
	Method      schemas.ActionMethod `json:"method"`
	Instruction string               `json:"instruction,omitempty"`
	Succeeded   bool                 `json:"succeeded"`
	Error       string               `json:"error,omitempty"`
	ObservedAt  time.Time            `json:"observed_at"`
}

// Recorder appends action entries to some audit backend.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Close()
}

// Nop discards all entries. Used when no history backend is configured.
type Nop struct{}

func (Nop) Record(ctx context.Context, e Entry) error { return nil }
func (Nop) Close()                                    {}
