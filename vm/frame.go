package vm

import (
	"github.com/javelin-vm/javelin/classfile"
	"github.com/javelin-vm/javelin/errz"
	"github.com/javelin-vm/javelin/object"
)

// frame is one method activation: a fixed-size local variable table and a
// bounded operand stack, both sized from the method's Code attribute. pc is
// the next byte to fetch; opPC is the address of the opcode currently being
// executed, which is what branch offsets and error reports are relative to.
type frame struct {
	class  *classfile.Class
	method *classfile.Method
	code   []byte
	pool   *classfile.ConstantPool
	locals []object.Object
	stack  []object.Object
	sp     int
	pc     int
	opPC   int
}

func newFrame(class *classfile.Class, method *classfile.Method) *frame {
	code := method.Code
	return &frame{
		class:  class,
		method: method,
		code:   code.Bytes,
		pool:   class.Pool(),
		locals: make([]object.Object, code.MaxLocals),
		stack:  make([]object.Object, code.MaxStack),
	}
}

func (f *frame) push(obj object.Object) error {
	if f.sp >= len(f.stack) {
		return errz.Newf(errz.ErrFrameFault,
			"operand stack overflow: push beyond max_stack %d", len(f.stack))
	}
	f.stack[f.sp] = obj
	f.sp++
	return nil
}

func (f *frame) pop() (object.Object, error) {
	if f.sp == 0 {
		return nil, errz.Newf(errz.ErrFrameFault,
			"operand stack underflow: pop from empty stack")
	}
	f.sp--
	obj := f.stack[f.sp]
	f.stack[f.sp] = nil
	return obj, nil
}

func (f *frame) load(index int) (object.Object, error) {
	if index < 0 || index >= len(f.locals) {
		return nil, errz.Newf(errz.ErrFrameFault,
			"local variable index %d outside max_locals %d", index, len(f.locals))
	}
	obj := f.locals[index]
	if obj == nil {
		return nil, errz.Newf(errz.ErrFrameFault,
			"read of uninitialized local variable %d", index)
	}
	return obj, nil
}

func (f *frame) store(index int, obj object.Object) error {
	if index < 0 || index >= len(f.locals) {
		return errz.Newf(errz.ErrFrameFault,
			"local variable index %d outside max_locals %d", index, len(f.locals))
	}
	f.locals[index] = obj
	return nil
}

// Operand fetchers. Each advances pc and faults if the fetch would run past
// the end of the code array.

func (f *frame) fetch(n int) ([]byte, error) {
	if f.pc+n > len(f.code) {
		return nil, errz.Newf(errz.ErrFrameFault,
			"code truncated: need %d operand bytes at pc %d", n, f.pc)
	}
	b := f.code[f.pc : f.pc+n]
	f.pc += n
	return b, nil
}

func (f *frame) u1() (uint8, error) {
	b, err := f.fetch(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (f *frame) u2() (uint16, error) {
	b, err := f.fetch(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (f *frame) s1() (int8, error) {
	v, err := f.u1()
	return int8(v), err
}

func (f *frame) s2() (int16, error) {
	v, err := f.u2()
	return int16(v), err
}

// branch retargets pc to opPC plus a signed offset, faulting if the target
// lies outside the method's code.
func (f *frame) branch(offset int16) error {
	target := f.opPC + int(offset)
	if target < 0 || target >= len(f.code) {
		return errz.Newf(errz.ErrFrameFault,
			"branch target %d outside code bounds [0,%d)", target, len(f.code))
	}
	f.pc = target
	return nil
}
