// File: internal/dispatch/fuzz_test.go
package dispatch_test

import (
	"errors"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/dispatch"
)

// FuzzParse feeds arbitrary method/instruction pairs through the parser. The
// parser sits on the untrusted boundary, so it must never panic, and every
// rejection must surface as InvalidInstructionError.
func FuzzParse(f *testing.F) {
	f.Add([]byte("NAVIGATE https://example.com"))
	f.Add([]byte("ACT type #q some text"))
	f.Add([]byte("WAIT 100"))
	f.Add([]byte("\x00\xff garbage"))

	methods := []schemas.ActionMethod{
		schemas.MethodNavigate,
		schemas.MethodAct,
		schemas.MethodExtract,
		schemas.MethodObserve,
		schemas.MethodScreenshot,
		schemas.MethodWait,
		schemas.MethodNavigateBack,
		schemas.MethodClose,
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		fc := fuzz.NewConsumer(data)

		raw, err := fc.GetString()
		if err != nil {
			return
		}
		idx, err := fc.GetInt()
		if err != nil {
			return
		}

		// Alternate between real methods and a fuzzed method name.
		method := methods[idx%len(methods)]
		if idx%7 == 0 {
			name, err := fc.GetString()
			if err != nil {
				return
			}
			method = schemas.ActionMethod(name)
		}

		inst, err := dispatch.Parse(method, raw)
		if err != nil {
			var instErr *schemas.InvalidInstructionError
			if !errors.As(err, &instErr) {
				t.Fatalf("Parse returned non-validation error %T: %v", err, err)
			}
			return
		}
		if inst == nil {
			t.Fatal("Parse returned nil instruction without error")
		}
	})
}

// FuzzParseCommand exercises the command-line splitter the same way.
func FuzzParseCommand(f *testing.F) {
	f.Add("GOTO https://example.com")
	f.Add("ACT click #submit")
	f.Add("")
	f.Add("   \t  ")

	f.Fuzz(func(t *testing.T, line string) {
		method, rest, err := dispatch.ParseCommand(line)
		if err != nil {
			return
		}
		if !method.Valid() {
			t.Fatalf("ParseCommand accepted line %q with invalid method %q", line, method)
		}
		// The payload round-trips into Parse without panicking.
		_, _ = dispatch.Parse(method, rest)
	})
}
