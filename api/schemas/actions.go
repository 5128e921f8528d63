package schemas

// ActionMethod identifies one of the fixed high-level actions a caller may
// run against a session. The set is closed; anything else is rejected at the
// dispatch boundary.
type ActionMethod string

const (
	MethodNavigate     ActionMethod = "NAVIGATE"
	MethodAct          ActionMethod = "ACT"
	MethodExtract      ActionMethod = "EXTRACT"
	MethodObserve      ActionMethod = "OBSERVE"
	MethodScreenshot   ActionMethod = "SCREENSHOT"
	MethodWait         ActionMethod = "WAIT"
	MethodNavigateBack ActionMethod = "NAVIGATE_BACK"
	MethodClose        ActionMethod = "CLOSE"
)

// Valid reports whether m is a member of the closed action set.
func (m ActionMethod) Valid() bool {
	switch m {
	case MethodNavigate, MethodAct, MethodExtract, MethodObserve,
		MethodScreenshot, MethodWait, MethodNavigateBack, MethodClose:
		return true
	}
	return false
}

// RequiresInstruction reports whether the method carries a mandatory
// instruction payload. For the remaining methods the instruction is ignored.
func (m ActionMethod) RequiresInstruction() bool {
	switch m {
	case MethodNavigate, MethodAct, MethodExtract, MethodObserve, MethodWait:
		return true
	}
	return false
}

// ActionRequest is the transient value describing a single action against a
// session. It is never persisted by the core.
type ActionRequest struct {
	SessionID   string       `json:"session_id"`
	Method      ActionMethod `json:"method"`
	Instruction string       `json:"instruction,omitempty"`
}

// ActionResult carries the method-specific result of a successful action.
// Methods without a result leave all fields zero.
type ActionResult struct {
	// Extracted is the text content for EXTRACT. It is nil when the selector
	// matched no element, which is distinct from an empty string.
	Extracted *string `json:"extracted,omitempty"`
	// Observed echoes the selector once OBSERVE resolved it.
	Observed string `json:"observed,omitempty"`
	// Screenshot holds the base64-encoded PNG for SCREENSHOT.
	Screenshot string `json:"screenshot,omitempty"`
}

// DebugInfo is the read-only introspection result for a session. All fields
// are optional; an unknown session yields the zero value.
type DebugInfo struct {
	// Screenshot is a base64-encoded PNG of the current page rendering.
	Screenshot string `json:"screenshot,omitempty"`
}
