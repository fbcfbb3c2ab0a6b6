// Package diag collects compiler diagnostics: errors and warnings tagged
// with a source line, in the order they were raised. No pass in this module
// panics on a malformed-but-recoverable AST; it reports through a Bag
// instead, matching the "not fatal asserts" requirement every pass shares.
package diag

import "fmt"

// Severity classifies a Diagnostic.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Diagnostic is one reported problem, tagged with the source line it
// concerns (0 if not line-specific).
type Diagnostic struct {
	Severity Severity
	Line     int
	Message  string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", d.Line, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// Bag is an ordered, append-only collection of diagnostics shared across a
// compilation pipeline. It is the global error counter spec.md requires:
// emission is suppressed by the driver once HasErrors is true.
type Bag struct {
	diags []Diagnostic
}

// Add appends a diagnostic as-is.
func (b *Bag) Add(d Diagnostic) { b.diags = append(b.diags, d) }

// Errorf records an Error-severity diagnostic at line.
func (b *Bag) Errorf(line int, format string, args ...interface{}) {
	b.Add(Diagnostic{Severity: Error, Line: line, Message: fmt.Sprintf(format, args...)})
}

// Warnf records a Warning-severity diagnostic at line.
func (b *Bag) Warnf(line int, format string, args ...interface{}) {
	b.Add(Diagnostic{Severity: Warning, Line: line, Message: fmt.Sprintf(format, args...)})
}

// All returns every diagnostic raised so far, in order.
func (b *Bag) All() []Diagnostic { return b.diags }

// Errors returns only the Error-severity diagnostics.
func (b *Bag) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range b.diags {
		if d.Severity == Error {
			out = append(out, d)
		}
	}
	return out
}

// ErrorCount is the global error counter of spec.md §7.
func (b *Bag) ErrorCount() int {
	n := 0
	for _, d := range b.diags {
		if d.Severity == Error {
			n++
		}
	}
	return n
}

// HasErrors reports whether any Error-severity diagnostic has been raised.
func (b *Bag) HasErrors() bool { return b.ErrorCount() > 0 }
