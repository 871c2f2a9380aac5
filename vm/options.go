package vm

import "io"

// Option configures a VirtualMachine.
type Option func(*VirtualMachine)

// WithMaxFrameDepth caps the call stack. Exceeding it fails the run with a
// call stack overflow error rather than exhausting host memory.
func WithMaxFrameDepth(depth int) Option {
	return func(vm *VirtualMachine) {
		if depth > 0 {
			vm.maxFrameDepth = depth
		}
	}
}

// WithContextCheckInterval sets how many instructions execute between
// context cancellation checks. Smaller values respond to cancellation
// faster at some dispatch cost.
func WithContextCheckInterval(n int) Option {
	return func(vm *VirtualMachine) {
		if n > 0 {
			vm.contextCheckInterval = n
		}
	}
}

// WithStdout redirects output produced by java/io/PrintStream natives.
func WithStdout(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.stdout = w
	}
}

// WithObserver attaches an execution observer.
func WithObserver(obs Observer) Option {
	return func(vm *VirtualMachine) {
		vm.observer = obs
	}
}
