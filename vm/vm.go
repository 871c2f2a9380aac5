package vm

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/javelin-vm/javelin/classfile"
	"github.com/javelin-vm/javelin/errz"
	"github.com/javelin-vm/javelin/object"
	"github.com/javelin-vm/javelin/op"
)

const (
	DefaultMaxFrameDepth        = 1024
	DefaultContextCheckInterval = 1000
)

// VirtualMachine executes class file bytecode. A machine owns its frame
// stack explicitly, so deep guest recursion costs guest frames rather than
// host stack, and the depth limit is enforced exactly.
//
// A machine is not safe for concurrent use. Execute returns an error if a
// run is already in progress.
type VirtualMachine struct {
	registry             ClassRegistry
	classes              map[string]*classfile.Class
	statics              map[string]map[string]object.Object
	staticsReady         map[string]bool
	natives              map[nativeKey]NativeMethod
	intrinsicStatics     map[string]object.Object
	frames               []*frame
	maxFrameDepth        int
	contextCheckInterval int
	stdout               io.Writer
	observer             Observer
	halt                 int32
	result               object.Object
	done                 bool
	runMutex             sync.Mutex
	running              bool
}

// New creates a machine that resolves classes through the given registry.
// The registry may be nil, in which case only classes passed directly to
// Execute are available.
func New(registry ClassRegistry, options ...Option) *VirtualMachine {
	vm := &VirtualMachine{
		registry:             registry,
		classes:              map[string]*classfile.Class{},
		statics:              map[string]map[string]object.Object{},
		staticsReady:         map[string]bool{},
		natives:              map[nativeKey]NativeMethod{},
		intrinsicStatics:     map[string]object.Object{},
		maxFrameDepth:        DefaultMaxFrameDepth,
		contextCheckInterval: DefaultContextCheckInterval,
		stdout:               os.Stdout,
	}
	vm.installDefaultNatives()
	for _, opt := range options {
		opt(vm)
	}
	return vm
}

// Execute runs the named method of the given class to completion and returns
// its result. Void methods return object.Null. The argument count must match
// the method descriptor; for instance methods the receiver is passed as an
// ordinary leading argument.
func (vm *VirtualMachine) Execute(
	ctx context.Context,
	class *classfile.Class,
	methodName string,
	descriptor string,
	args []object.Object,
) (object.Object, error) {
	vm.runMutex.Lock()
	if vm.running {
		vm.runMutex.Unlock()
		return nil, errz.Newf(errz.ErrRuntime, "machine is already running")
	}
	vm.running = true
	vm.runMutex.Unlock()
	defer func() {
		vm.runMutex.Lock()
		vm.running = false
		vm.runMutex.Unlock()
	}()

	if class == nil {
		return nil, errz.Newf(errz.ErrRuntime, "no class given")
	}
	vm.classes[class.Name()] = class

	method, ok := class.Method(methodName, descriptor)
	if !ok {
		return nil, errz.Newf(errz.ErrResolution,
			"method %s%s not found on class %s", methodName, descriptor, class.Name())
	}
	if method.Code == nil {
		return nil, errz.Newf(errz.ErrResolution,
			"method %s.%s%s has no code", class.Name(), methodName, descriptor)
	}

	expected := method.Desc.ParamCount()
	if !method.IsStatic() {
		expected++
	}
	if len(args) != expected {
		return nil, errz.Newf(errz.ErrRuntime,
			"method %s%s expects %d arguments, got %d",
			methodName, descriptor, expected, len(args))
	}

	if err := vm.ensureStatics(class); err != nil {
		return nil, err
	}

	vm.frames = vm.frames[:0]
	vm.result = nil
	vm.done = false
	atomic.StoreInt32(&vm.halt, 0)

	f := newFrame(class, method)
	slot := 0
	offset := 0
	if !method.IsStatic() {
		if err := f.store(0, args[0]); err != nil {
			return nil, vm.locate(err, f)
		}
		slot = 1
		offset = 1
	}
	for i, param := range method.Desc.Params {
		if err := f.store(slot, args[i+offset]); err != nil {
			return nil, vm.locate(err, f)
		}
		slot += classfile.FieldSlots(param)
	}
	vm.frames = append(vm.frames, f)

	return vm.run(ctx)
}

func (vm *VirtualMachine) run(ctx context.Context) (object.Object, error) {
	doneChan := ctx.Done()
	if doneChan != nil {
		watchdogStop := make(chan struct{})
		defer close(watchdogStop)
		go func() {
			select {
			case <-doneChan:
				atomic.StoreInt32(&vm.halt, 1)
			case <-watchdogStop:
			}
		}()
	}
	checkCounter := 0
	for len(vm.frames) > 0 {
		checkCounter++
		if checkCounter >= vm.contextCheckInterval {
			checkCounter = 0
			if atomic.LoadInt32(&vm.halt) == 1 {
				return nil, ctx.Err()
			}
		}
		f := vm.frames[len(vm.frames)-1]
		if f.pc < 0 || f.pc >= len(f.code) {
			return nil, vm.fault(errz.ErrFrameFault, f,
				"program counter %d outside code bounds [0,%d)", f.pc, len(f.code))
		}
		f.opPC = f.pc
		opcode := op.Code(f.code[f.pc])
		f.pc++
		if vm.observer != nil {
			keepGoing := vm.observer.OnStep(StepEvent{
				Class:      f.class.Name(),
				Method:     f.method.Name,
				PC:         f.opPC,
				Opcode:     opcode,
				OpcodeName: op.GetInfo(opcode).Name,
				StackDepth: f.sp,
				FrameDepth: len(vm.frames),
			})
			if !keepGoing {
				return nil, errz.Newf(errz.ErrRuntime, "execution halted by observer")
			}
		}
		handler := dispatch[opcode]
		if handler == nil {
			return nil, vm.fault(errz.ErrUnsupported, f,
				"opcode 0x%02X is not implemented", byte(opcode))
		}
		if err := handler(vm, f); err != nil {
			return nil, vm.locate(err, f)
		}
		if vm.done {
			return vm.result, nil
		}
	}
	return nil, errz.Newf(errz.ErrRuntime, "machine stopped without a result")
}

// resolveClass returns a cached class or asks the registry for it.
func (vm *VirtualMachine) resolveClass(name string) (*classfile.Class, error) {
	if class, ok := vm.classes[name]; ok {
		return class, nil
	}
	if vm.registry == nil {
		return nil, errz.Newf(errz.ErrClassNotFound,
			"class %q was not found (no registry configured)", name)
	}
	class, err := vm.registry.ResolveClass(name)
	if err != nil {
		if _, ok := errz.Kind(err); ok {
			return nil, err
		}
		return nil, errz.New(errz.ErrClassNotFound, err.Error())
	}
	vm.classes[name] = class
	return class, nil
}

// ensureStatics lazily creates a class's static field table, seeding fields
// that carry a ConstantValue attribute and leaving the rest to default on
// first read.
func (vm *VirtualMachine) ensureStatics(class *classfile.Class) error {
	name := class.Name()
	if vm.staticsReady[name] {
		return nil
	}
	vm.staticsReady[name] = true
	table := map[string]object.Object{}
	vm.statics[name] = table
	pool := class.Pool()
	for _, field := range class.Fields() {
		if field.AccessFlags&classfile.AccStatic == 0 || field.ConstantValueIndex == 0 {
			continue
		}
		entry, err := pool.Entry(field.ConstantValueIndex)
		if err != nil {
			return err
		}
		switch c := entry.(type) {
		case *classfile.IntegerInfo:
			table[field.Name] = object.NewInt(c.Value)
		case *classfile.FloatInfo:
			table[field.Name] = object.NewFloat(c.Value)
		case *classfile.LongInfo:
			table[field.Name] = object.NewLong(c.Value)
		case *classfile.DoubleInfo:
			table[field.Name] = object.NewDouble(c.Value)
		case *classfile.StringInfo:
			s, err := pool.StringValue(field.ConstantValueIndex)
			if err != nil {
				return err
			}
			table[field.Name] = object.NewString(s)
		default:
			return errz.Newf(errz.ErrFormat,
				"field %s.%s has a ConstantValue of unsupported kind %s",
				name, field.Name, entry.Tag())
		}
	}
	return nil
}

// findStaticField locates the class that declares a static field, walking
// the superclass chain from the referenced class. Superclasses outside the
// registry end the walk; the miss is reported as a resolution error against
// the original reference.
func (vm *VirtualMachine) findStaticField(ref classfile.MemberRef) (*classfile.Class, *classfile.Field, error) {
	name := ref.Class
	for name != "" {
		class, err := vm.resolveClass(name)
		if err != nil {
			if name == ref.Class {
				return nil, nil, err
			}
			break
		}
		if field, ok := class.Field(ref.Name); ok && field.AccessFlags&classfile.AccStatic != 0 {
			return class, field, nil
		}
		name = class.SuperName()
	}
	return nil, nil, errz.Newf(errz.ErrResolution,
		"static field %s.%s not found", ref.Class, ref.Name)
}

func (vm *VirtualMachine) getStatic(ref classfile.MemberRef) (object.Object, error) {
	if v, ok := vm.intrinsicStatics[ref.Class+"."+ref.Name]; ok {
		return v, nil
	}
	class, field, err := vm.findStaticField(ref)
	if err != nil {
		return nil, err
	}
	if err := vm.ensureStatics(class); err != nil {
		return nil, err
	}
	if v, ok := vm.statics[class.Name()][field.Name]; ok {
		return v, nil
	}
	return defaultValueFor(field.Descriptor), nil
}

func (vm *VirtualMachine) putStatic(ref classfile.MemberRef, value object.Object) error {
	class, field, err := vm.findStaticField(ref)
	if err != nil {
		return err
	}
	if err := vm.ensureStatics(class); err != nil {
		return err
	}
	vm.statics[class.Name()][field.Name] = value
	return nil
}

// defaultValueFor returns the zero value for a field descriptor.
func defaultValueFor(descriptor string) object.Object {
	if descriptor == "" {
		return object.Null
	}
	switch descriptor[0] {
	case 'B', 'C', 'I', 'S', 'Z':
		return object.NewInt(0)
	case 'J':
		return object.NewLong(0)
	case 'F':
		return object.NewFloat(0)
	case 'D':
		return object.NewDouble(0)
	default:
		return object.Null
	}
}

// fault builds a structured error carrying the faulting location and the
// guest call stack.
func (vm *VirtualMachine) fault(kind errz.ErrorKind, f *frame, format string, args ...interface{}) error {
	return errz.NewAt(kind, vm.location(f), vm.captureStack(), format, args...)
}

// locate attaches location and stack information to an error raised by an
// instruction handler, unless it already carries them.
func (vm *VirtualMachine) locate(err error, f *frame) error {
	structured, ok := err.(*errz.StructuredError)
	if !ok {
		return errz.NewAt(errz.ErrRuntime, vm.location(f), vm.captureStack(), "%s", err.Error())
	}
	if structured.Location.IsZero() {
		structured.Location = vm.location(f)
		structured.Stack = vm.captureStack()
	}
	return structured
}

func (vm *VirtualMachine) location(f *frame) errz.Location {
	loc := errz.Location{
		Class:  f.class.Name(),
		Method: f.method.Name,
		PC:     f.opPC,
		Line:   f.method.Code.LineFor(f.opPC),
	}
	if f.opPC >= 0 && f.opPC < len(f.code) {
		loc.Opcode = f.code[f.opPC]
	}
	return loc
}

func (vm *VirtualMachine) captureStack() []errz.StackFrame {
	stack := make([]errz.StackFrame, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		stack = append(stack, errz.StackFrame{
			Class:  f.class.Name(),
			Method: f.method.Name,
			PC:     f.opPC,
			Line:   f.method.Code.LineFor(f.opPC),
		})
	}
	return stack
}

// popFrame removes the top frame, delivering the result to the caller's
// operand stack, or finishing the run if this was the entry frame.
func (vm *VirtualMachine) popFrame(result object.Object) error {
	top := vm.frames[len(vm.frames)-1]
	if vm.observer != nil {
		vm.observer.OnReturn(ReturnEvent{
			Class:      top.class.Name(),
			Method:     top.method.Name,
			FrameDepth: len(vm.frames),
		})
	}
	vm.frames[len(vm.frames)-1] = nil
	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) == 0 {
		if result == nil {
			result = object.Null
		}
		vm.result = result
		vm.done = true
		return nil
	}
	if result != nil {
		return vm.frames[len(vm.frames)-1].push(result)
	}
	return nil
}
