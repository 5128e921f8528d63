// File: internal/dispatch/parser.go
package dispatch

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// Instruction is the typed form of a raw instruction string, parsed once at
// the dispatch boundary. Each method has exactly one payload shape; anything
// unparseable is rejected before a primitive runs.
type Instruction interface {
	method() schemas.ActionMethod
}

// ActVerb is the interaction kind of an ACT instruction.
type ActVerb string

const (
	ActClick ActVerb = "click"
	ActType  ActVerb = "type"
)

// Navigate loads an absolute URL.
type Navigate struct {
	URL string
}

// Act performs exactly one primitive interaction on the resolved target.
type Act struct {
	Verb     ActVerb
	Selector string
	// Text is the literal text for the "type" verb, empty for "click".
	Text string
}

// Extract reads the text content of the first element matching Selector.
type Extract struct {
	Selector string
}

// Observe blocks until Selector resolves.
type Observe struct {
	Selector string
}

// Wait suspends the current action for Duration.
type Wait struct {
	Duration time.Duration
}

// Screenshot captures the current page rendering.
type Screenshot struct{}

// NavigateBack traverses one entry back in session history.
type NavigateBack struct{}

// Close tears down the session.
type Close struct{}

func (Navigate) method() schemas.ActionMethod     { return schemas.MethodNavigate }
func (Act) method() schemas.ActionMethod          { return schemas.MethodAct }
func (Extract) method() schemas.ActionMethod      { return schemas.MethodExtract }
func (Observe) method() schemas.ActionMethod      { return schemas.MethodObserve }
func (Wait) method() schemas.ActionMethod         { return schemas.MethodWait }
func (Screenshot) method() schemas.ActionMethod   { return schemas.MethodScreenshot }
func (NavigateBack) method() schemas.ActionMethod { return schemas.MethodNavigateBack }
func (Close) method() schemas.ActionMethod        { return schemas.MethodClose }

func invalid(m schemas.ActionMethod, reason string) error {
	return &schemas.InvalidInstructionError{Method: m, Reason: reason}
}

// Parse validates the raw instruction for the given method and returns its
// typed form. It has no side effects, so a parse failure leaves the session
// untouched.
func Parse(m schemas.ActionMethod, raw string) (Instruction, error) {
	if !m.Valid() {
		return nil, invalid(m, "unknown action method")
	}

	raw = strings.TrimSpace(raw)
	if m.RequiresInstruction() && raw == "" {
		return nil, invalid(m, "instruction is required")
	}

	switch m {
	case schemas.MethodNavigate:
		u, err := url.Parse(raw)
		if err != nil {
			return nil, invalid(m, "instruction is not a URL: "+err.Error())
		}
		if !u.IsAbs() || u.Host == "" {
			return nil, invalid(m, "URL must be absolute with a host")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, invalid(m, "URL scheme must be http or https")
		}
		return Navigate{URL: u.String()}, nil

	case schemas.MethodAct:
		return parseAct(raw)

	case schemas.MethodExtract:
		return Extract{Selector: raw}, nil

	case schemas.MethodObserve:
		return Observe{Selector: raw}, nil

	case schemas.MethodWait:
		ms, err := strconv.Atoi(raw)
		if err != nil {
			return nil, invalid(m, "duration must be an integer number of milliseconds")
		}
		if ms < 0 {
			return nil, invalid(m, "duration must not be negative")
		}
		return Wait{Duration: time.Duration(ms) * time.Millisecond}, nil

	case schemas.MethodScreenshot:
		return Screenshot{}, nil
	case schemas.MethodNavigateBack:
		return NavigateBack{}, nil
	default: // MethodClose, Valid() already held.
		return Close{}, nil
	}
}

// parseAct handles the verb grammar:
//
//	click <selector>          selector may contain spaces
//	type <selector> <text...> remaining tokens are joined as literal text
func parseAct(raw string) (Instruction, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return nil, invalid(schemas.MethodAct, "expected a verb followed by a selector")
	}

	verb := ActVerb(strings.ToLower(fields[0]))
	switch verb {
	case ActClick:
		selector := strings.TrimSpace(strings.TrimPrefix(raw, fields[0]))
		return Act{Verb: ActClick, Selector: selector}, nil

	case ActType:
		if len(fields) < 3 {
			return nil, invalid(schemas.MethodAct, "type requires a selector and text")
		}
		return Act{
			Verb:     ActType,
			Selector: fields[1],
			Text:     strings.Join(fields[2:], " "),
		}, nil

	default:
		return nil, invalid(schemas.MethodAct, "unrecognized verb "+strconv.Quote(fields[0]))
	}
}

// commandMethods maps the wire-level command word to its action method.
var commandMethods = map[string]schemas.ActionMethod{
	"GOTO":       schemas.MethodNavigate,
	"ACT":        schemas.MethodAct,
	"EXTRACT":    schemas.MethodExtract,
	"OBSERVE":    schemas.MethodObserve,
	"SCREENSHOT": schemas.MethodScreenshot,
	"WAIT":       schemas.MethodWait,
	"NAVBACK":    schemas.MethodNavigateBack,
	"CLOSE":      schemas.MethodClose,
}

// ParseCommand splits a full command line ("GOTO https://example.com") into
// its action method and instruction payload. The payload is not validated
// here; Parse does that.
func ParseCommand(line string) (schemas.ActionMethod, string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", "", invalid("", "empty command")
	}

	word := strings.ToUpper(fields[0])
	m, ok := commandMethods[word]
	if !ok {
		return "", "", invalid("", "unknown command "+strconv.Quote(fields[0]))
	}

	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
	return m, rest, nil
}
