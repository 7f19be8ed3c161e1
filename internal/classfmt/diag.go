// Package classfmt provides the byte-level reader, modified UTF-8 codec and
// shared diagnostics for class file parsing.
package classfmt

import "fmt"

// DiagKind classifies a diagnostic message.
type DiagKind string

const (
	DiagTruncated     DiagKind = "truncated"
	DiagInvalid       DiagKind = "invalid"
	DiagUnknownOpcode DiagKind = "unknown_opcode"
)

// Diag records a non-fatal issue found in a method body.
type Diag struct {
	Method string   `json:"method,omitempty"` // name and descriptor
	Offset int      `json:"offset"`           // pc within the code array
	Kind   DiagKind `json:"kind"`
	Msg    string   `json:"msg"`
}

func (d Diag) String() string {
	if d.Method == "" {
		return fmt.Sprintf("[%s] pc %d: %s", d.Kind, d.Offset, d.Msg)
	}
	return fmt.Sprintf("[%s] %s pc %d: %s", d.Kind, d.Method, d.Offset, d.Msg)
}

// Diags accumulates the diagnostics of one class.
type Diags struct {
	method string
	items  []Diag
}

// Enter attributes later diagnostics to a method.
func (d *Diags) Enter(method string) { d.method = method }

// Addf records a diagnostic at a pc of the current method.
func (d *Diags) Addf(offset int, kind DiagKind, format string, args ...any) {
	d.items = append(d.items, Diag{Method: d.method, Offset: offset, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }

// Count returns the number of diagnostics of one kind.
func (d *Diags) Count(kind DiagKind) int {
	n := 0
	for _, it := range d.items {
		if it.Kind == kind {
			n++
		}
	}
	return n
}

// Mode controls error handling behavior.
type Mode int

const (
	ModeStrict     Mode = iota // first structural error returns error
	ModeBestEffort             // stop at the bad spot, keep what decoded, record a diag
)

// DefaultMaxSteps caps instructions decoded per method.
const DefaultMaxSteps = 1 << 20

// Options controls parsing behavior across packages.
type Options struct {
	Mode     Mode
	MaxSteps int // per-method instruction cap; 0 = use default
}

func (o Options) EffectiveMaxSteps() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return DefaultMaxSteps
}
