package vm

import "github.com/javelin-vm/javelin/op"

// StepEvent describes one instruction about to execute.
type StepEvent struct {
	Class      string
	Method     string
	PC         int
	Opcode     op.Code
	OpcodeName string
	StackDepth int
	FrameDepth int
}

// CallEvent describes a method invocation that is about to push a frame.
type CallEvent struct {
	Caller     string
	Class      string
	Method     string
	Descriptor string
	FrameDepth int
}

// ReturnEvent describes a frame being popped.
type ReturnEvent struct {
	Class      string
	Method     string
	FrameDepth int
}

// Observer receives execution events. Returning false from OnStep halts the
// machine. Observers must not retain the event structs across calls.
type Observer interface {
	OnStep(event StepEvent) bool
	OnCall(event CallEvent)
	OnReturn(event ReturnEvent)
}
