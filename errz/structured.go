// Package errz defines the structured error types produced while loading and
// executing class files.
package errz

import (
	"bytes"
	"fmt"
	"strings"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrFormat indicates a malformed class file detected at load time.
	ErrFormat ErrorKind = iota
	// ErrResolution indicates a bad constant pool index, a kind mismatch, or
	// a missing referenced class, field, or method.
	ErrResolution
	// ErrClassNotFound indicates the class registry could not provide a
	// referenced class.
	ErrClassNotFound
	// ErrFrameFault indicates an operand stack or local slot bound violation.
	ErrFrameFault
	// ErrType indicates an operand whose value category does not match the
	// category the instruction declares.
	ErrType
	// ErrUnsupported indicates an opcode outside the implemented set.
	ErrUnsupported
	// ErrStackOverflow indicates the call stack depth limit was exceeded.
	ErrStackOverflow
	// ErrRuntime indicates a general execution failure, such as division by
	// zero or a null dereference.
	ErrRuntime
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrFormat:
		return "format error"
	case ErrResolution:
		return "resolution error"
	case ErrClassNotFound:
		return "class not found"
	case ErrFrameFault:
		return "frame fault"
	case ErrType:
		return "type fault"
	case ErrUnsupported:
		return "unsupported operation"
	case ErrStackOverflow:
		return "call stack overflow"
	case ErrRuntime:
		return "runtime error"
	default:
		return "error"
	}
}

// Fatal reports whether errors of this kind abort the entire call stack
// rather than just the active resolution. Under the current design every
// kind is fatal to the enclosing execution; the distinction retained here is
// between load-time and run-time reporting.
func (k ErrorKind) Fatal() bool {
	return true
}

// Location identifies where in a method's code an error occurred.
type Location struct {
	Class  string
	Method string
	PC     int
	Opcode byte
	Line   int // from the LineNumberTable attribute, 0 if unknown
}

// IsZero reports whether the location carries no information.
func (l Location) IsZero() bool {
	return l == Location{}
}

func (l Location) String() string {
	if l.IsZero() {
		return ""
	}
	s := fmt.Sprintf("%s.%s pc=%d", l.Class, l.Method, l.PC)
	if l.Line > 0 {
		s += fmt.Sprintf(" line=%d", l.Line)
	}
	return s
}

// StackFrame is one entry in a captured call stack trace.
type StackFrame struct {
	Class  string
	Method string
	PC     int
	Line   int
}

// StructuredError is the error type returned for every load or execution
// failure. It carries the error category, the location of the faulting
// instruction, and a snapshot of the call stack at the time of the fault.
type StructuredError struct {
	Message  string
	Kind     ErrorKind
	Location Location
	Stack    []StackFrame
	Cause    error
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Location.IsZero() {
		return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind.String(), e.Message, e.Location)
}

// Unwrap returns the underlying cause of the error.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is matching against another StructuredError by kind.
func (e *StructuredError) Is(target error) bool {
	if other, ok := target.(*StructuredError); ok {
		return e.Kind == other.Kind
	}
	return false
}

// WithCause wraps the error with a cause.
func (e *StructuredError) WithCause(cause error) *StructuredError {
	e.Cause = cause
	return e
}

// FriendlyErrorMessage returns a human-readable report with the faulting
// location and the captured call stack.
func (e *StructuredError) FriendlyErrorMessage() string {
	var msg bytes.Buffer
	if e.Location.IsZero() {
		fmt.Fprintf(&msg, "%s: %s\n", e.Kind.String(), e.Message)
	} else {
		fmt.Fprintf(&msg, "%s: %s\n  at %s\n", e.Kind.String(), e.Message, e.Location)
	}
	if len(e.Stack) > 0 {
		msg.WriteString("\ncall stack (innermost first):\n")
		msg.WriteString(FormatStackTrace(e.Stack))
	}
	return msg.String()
}

// FormatStackTrace renders captured stack frames, innermost first.
func FormatStackTrace(stack []StackFrame) string {
	var b strings.Builder
	for _, f := range stack {
		fmt.Fprintf(&b, "  %s.%s pc=%d", f.Class, f.Method, f.PC)
		if f.Line > 0 {
			fmt.Fprintf(&b, " line=%d", f.Line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// New creates a new StructuredError.
func New(kind ErrorKind, message string) *StructuredError {
	return &StructuredError{Kind: kind, Message: message}
}

// Newf creates a new StructuredError with a formatted message.
func Newf(kind ErrorKind, format string, args ...any) *StructuredError {
	return &StructuredError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewAt creates a new StructuredError at a location, with a captured stack.
func NewAt(kind ErrorKind, loc Location, stack []StackFrame, format string, args ...any) *StructuredError {
	return &StructuredError{
		Message:  fmt.Sprintf(format, args...),
		Kind:     kind,
		Location: loc,
		Stack:    stack,
	}
}

// Kind extracts the ErrorKind of an error, returning ok=false for errors
// that are not StructuredErrors.
func Kind(err error) (ErrorKind, bool) {
	if se, ok := err.(*StructuredError); ok {
		return se.Kind, true
	}
	return 0, false
}
