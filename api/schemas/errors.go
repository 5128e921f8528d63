package schemas

import "fmt"

// ResourceAcquisitionError indicates that the browser instance, browsing
// context or page could not be created. The session is never registered when
// this is returned.
type ResourceAcquisitionError struct {
	Cause error
}

func (e *ResourceAcquisitionError) Error() string {
	return fmt.Sprintf("failed to acquire browser resources: %v", e.Cause)
}

func (e *ResourceAcquisitionError) Unwrap() error { return e.Cause }

// SessionNotFoundError indicates an action or debug lookup referenced an
// unknown or already-closed session id.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %q not found", e.SessionID)
}

// InvalidInstructionError indicates a required instruction was missing or
// malformed for the given method. It is raised before any browser primitive
// is invoked, so the session is left intact.
type InvalidInstructionError struct {
	Method ActionMethod
	Reason string
}

func (e *InvalidInstructionError) Error() string {
	return fmt.Sprintf("invalid instruction for %s: %s", e.Method, e.Reason)
}

// PrimitiveExecutionError indicates an underlying browser primitive failed or
// timed out. By the time the caller sees this, the session has been torn down.
type PrimitiveExecutionError struct {
	Method ActionMethod
	Cause  error
}

func (e *PrimitiveExecutionError) Error() string {
	return fmt.Sprintf("%s primitive failed: %v", e.Method, e.Cause)
}

func (e *PrimitiveExecutionError) Unwrap() error { return e.Cause }
