// File: internal/dispatch/dispatcher.go
// Description: Interprets action requests against live sessions and enforces
// the fail-closed policy: any primitive failure tears the session down before
// the error reaches the caller.
package dispatch

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/history"
	"github.com/xkilldash9x/pagepilot/internal/session"
)

// teardownTimeout bounds fail-closed teardown. Teardown runs on its own
// context: it must proceed even when the failed action's context is already
// dead.
const teardownTimeout = 15 * time.Second

// Dispatcher translates validated instructions into primitive invocations on
// a session's single page.
type Dispatcher struct {
	logger   *zap.Logger
	registry *session.Registry
	recorder history.Recorder
}

// New creates a dispatcher. recorder may be history.Nop{} when auditing is
// disabled.
func New(logger *zap.Logger, registry *session.Registry, recorder history.Recorder) *Dispatcher {
	if recorder == nil {
		recorder = history.Nop{}
	}
	return &Dispatcher{
		logger:   logger.Named("dispatcher"),
		registry: registry,
		recorder: recorder,
	}
}

// Run executes one action against the session named in the request.
//
// Validation happens before anything touches the browser, so an invalid
// instruction leaves the session intact. Once a primitive is invoked, any
// failure (including timeout) destroys the session: its page state is
// unknown and unsafe to keep open for blind retries. Callers must treat any
// action error as "this session is gone" and create a new one.
func (d *Dispatcher) Run(ctx context.Context, req schemas.ActionRequest) (schemas.ActionResult, error) {
	var zero schemas.ActionResult

	inst, err := Parse(req.Method, req.Instruction)
	if err != nil {
		return zero, err
	}

	s, ok := d.registry.Get(req.SessionID)
	if !ok {
		return zero, &schemas.SessionNotFoundError{SessionID: req.SessionID}
	}

	release, err := s.BeginAction(ctx)
	if err != nil {
		// The action never started; the session stays usable.
		return zero, fmt.Errorf("could not reserve session %s: %w", req.SessionID, err)
	}
	defer release()

	res, err := d.execute(ctx, s, inst)
	d.record(req, err)

	if err != nil {
		d.logger.Warn("Action failed; tearing session down.",
			zap.String("session_id", req.SessionID),
			zap.String("method", string(req.Method)),
			zap.Error(err))

		teardownCtx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		d.registry.End(teardownCtx, req.SessionID)

		return zero, &schemas.PrimitiveExecutionError{Method: req.Method, Cause: err}
	}
	return res, nil
}

func (d *Dispatcher) execute(ctx context.Context, s *session.Session, inst Instruction) (schemas.ActionResult, error) {
	var res schemas.ActionResult
	pg := s.Page()

	switch in := inst.(type) {
	case Navigate:
		return res, pg.Navigate(ctx, in.URL)

	case Act:
		if in.Verb == ActType {
			return res, pg.Type(ctx, in.Selector, in.Text)
		}
		return res, pg.Click(ctx, in.Selector)

	case Extract:
		text, err := pg.ExtractText(ctx, in.Selector)
		if err != nil {
			return res, err
		}
		res.Extracted = text
		return res, nil

	case Observe:
		if err := pg.WaitVisible(ctx, in.Selector); err != nil {
			return res, err
		}
		res.Observed = in.Selector
		return res, nil

	case Screenshot:
		shot, err := pg.Screenshot(ctx)
		if err != nil {
			return res, err
		}
		res.Screenshot = base64.StdEncoding.EncodeToString(shot)
		return res, nil

	case Wait:
		return res, pg.Wait(ctx, in.Duration)

	case NavigateBack:
		return res, pg.NavigateBack(ctx)

	case Close:
		teardownCtx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		d.registry.End(teardownCtx, s.ID())
		return res, nil

	default:
		// Parse owns the instruction set; a new variant without an execute
		// arm is a programming error.
		return res, fmt.Errorf("unhandled instruction %T", inst)
	}
}

// record appends the action to the audit trail, best effort.
func (d *Dispatcher) record(req schemas.ActionRequest, actionErr error) {
	entry := history.Entry{
		SessionID:   req.SessionID,
		Method:      req.Method,
		Instruction: req.Instruction,
		Succeeded:   actionErr == nil,
		ObservedAt:  time.Now().UTC(),
	}
	if actionErr != nil {
		entry.Error = actionErr.Error()
	}

	// Recording runs on its own short context so a slow audit store cannot
	// stall or fail the action path.
	recCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.recorder.Record(recCtx, entry); err != nil {
		d.logger.Warn("Failed to record action history.", zap.Error(err))
	}
}
