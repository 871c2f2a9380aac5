package errz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructuredError(t *testing.T) {
	err := NewAt(ErrUnsupported, Location{
		Class:  "Main",
		Method: "main",
		PC:     3,
		Opcode: 0xCA,
	}, nil, "opcode 0x%02X is not implemented", 0xCA)
	require.Equal(t, ErrUnsupported, err.Kind)
	require.Contains(t, err.Error(), "unsupported operation")
	require.Contains(t, err.Error(), "Main.main pc=3")
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	err := Newf(ErrResolution, "bad index %d", 9)
	require.True(t, errors.Is(err, New(ErrResolution, "")))
	require.False(t, errors.Is(err, New(ErrFrameFault, "")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := New(ErrClassNotFound, "no such class").WithCause(cause)
	require.True(t, errors.Is(err, cause))
}

func TestFriendlyErrorMessage(t *testing.T) {
	err := NewAt(ErrFrameFault, Location{Class: "A", Method: "f", PC: 7, Line: 12},
		[]StackFrame{
			{Class: "A", Method: "f", PC: 7, Line: 12},
			{Class: "Main", Method: "main", PC: 2},
		}, "operand stack underflow")
	msg := err.FriendlyErrorMessage()
	require.Contains(t, msg, "frame fault: operand stack underflow")
	require.Contains(t, msg, "A.f pc=7 line=12")
	require.Contains(t, msg, "Main.main pc=2")
}

func TestKindHelper(t *testing.T) {
	kind, ok := Kind(Newf(ErrStackOverflow, "depth %d exceeded", 1024))
	require.True(t, ok)
	require.Equal(t, ErrStackOverflow, kind)

	_, ok = Kind(errors.New("plain"))
	require.False(t, ok)
}
