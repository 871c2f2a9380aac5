package vm

import (
	"math"

	"github.com/javelin-vm/javelin/classfile"
	"github.com/javelin-vm/javelin/errz"
	"github.com/javelin-vm/javelin/object"
	"github.com/javelin-vm/javelin/op"
)

// handlerFunc executes one instruction against the current frame. The opcode
// byte has already been consumed; handlers fetch their own operands. Errors
// returned here are located and stack-annotated by the run loop.
type handlerFunc func(vm *VirtualMachine, f *frame) error

var dispatch [256]handlerFunc

func register(code op.Code, fn handlerFunc) {
	dispatch[code] = fn
}

func init() {
	registerConstants()
	registerLoadsAndStores()
	registerStackOps()
	registerArithmetic()
	registerConversions()
	registerComparisons()
	registerBranches()
	registerFieldAccess()
	registerAllocation()
	registerInvocations()
	registerReturns()
}

// Typed pops. Each faults with a type error when the top of stack holds a
// value of the wrong category.

func (f *frame) popInt() (int32, error) {
	obj, err := f.pop()
	if err != nil {
		return 0, err
	}
	v, ok := obj.(*object.Int)
	if !ok {
		return 0, errz.Newf(errz.ErrType, "expected int on operand stack, got %s", obj.Type())
	}
	return v.Value(), nil
}

func (f *frame) popLong() (int64, error) {
	obj, err := f.pop()
	if err != nil {
		return 0, err
	}
	v, ok := obj.(*object.Long)
	if !ok {
		return 0, errz.Newf(errz.ErrType, "expected long on operand stack, got %s", obj.Type())
	}
	return v.Value(), nil
}

func (f *frame) popFloat() (float32, error) {
	obj, err := f.pop()
	if err != nil {
		return 0, err
	}
	v, ok := obj.(*object.Float)
	if !ok {
		return 0, errz.Newf(errz.ErrType, "expected float on operand stack, got %s", obj.Type())
	}
	return v.Value(), nil
}

func (f *frame) popDouble() (float64, error) {
	obj, err := f.pop()
	if err != nil {
		return 0, err
	}
	v, ok := obj.(*object.Double)
	if !ok {
		return 0, errz.Newf(errz.ErrType, "expected double on operand stack, got %s", obj.Type())
	}
	return v.Value(), nil
}

// isRefLike reports whether a value belongs to the reference category.
func isRefLike(obj object.Object) bool {
	switch obj.(type) {
	case *object.Ref, *object.NullType, *object.String, *object.Array:
		return true
	}
	return false
}

func (f *frame) popRef() (object.Object, error) {
	obj, err := f.pop()
	if err != nil {
		return nil, err
	}
	if !isRefLike(obj) {
		return nil, errz.Newf(errz.ErrType, "expected reference on operand stack, got %s", obj.Type())
	}
	return obj, nil
}

func (f *frame) popArray() (*object.Array, error) {
	obj, err := f.popRef()
	if err != nil {
		return nil, err
	}
	if object.IsNull(obj) {
		return nil, errz.Newf(errz.ErrRuntime, "null array reference")
	}
	arr, ok := obj.(*object.Array)
	if !ok {
		return nil, errz.Newf(errz.ErrType, "expected array on operand stack, got %s", obj.Type())
	}
	return arr, nil
}

func isWide(obj object.Object) bool {
	switch obj.(type) {
	case *object.Long, *object.Double:
		return true
	}
	return false
}

func registerConstants() {
	register(op.Nop, func(vm *VirtualMachine, f *frame) error {
		return nil
	})
	register(op.AConstNul, func(vm *VirtualMachine, f *frame) error {
		return f.push(object.Null)
	})
	for i, code := range []op.Code{
		op.IConstM1, op.IConst0, op.IConst1, op.IConst2,
		op.IConst3, op.IConst4, op.IConst5,
	} {
		value := int32(i - 1)
		register(code, func(vm *VirtualMachine, f *frame) error {
			return f.push(object.NewInt(value))
		})
	}
	for i, code := range []op.Code{op.LConst0, op.LConst1} {
		value := int64(i)
		register(code, func(vm *VirtualMachine, f *frame) error {
			return f.push(object.NewLong(value))
		})
	}
	for i, code := range []op.Code{op.FConst0, op.FConst1, op.FConst2} {
		value := float32(i)
		register(code, func(vm *VirtualMachine, f *frame) error {
			return f.push(object.NewFloat(value))
		})
	}
	for i, code := range []op.Code{op.DConst0, op.DConst1} {
		value := float64(i)
		register(code, func(vm *VirtualMachine, f *frame) error {
			return f.push(object.NewDouble(value))
		})
	}
	register(op.BIPush, func(vm *VirtualMachine, f *frame) error {
		v, err := f.s1()
		if err != nil {
			return err
		}
		return f.push(object.NewInt(int32(v)))
	})
	register(op.SIPush, func(vm *VirtualMachine, f *frame) error {
		v, err := f.s2()
		if err != nil {
			return err
		}
		return f.push(object.NewInt(int32(v)))
	})
	register(op.Ldc, func(vm *VirtualMachine, f *frame) error {
		index, err := f.u1()
		if err != nil {
			return err
		}
		return pushConstant(f, uint16(index))
	})
	register(op.LdcW, func(vm *VirtualMachine, f *frame) error {
		index, err := f.u2()
		if err != nil {
			return err
		}
		return pushConstant(f, index)
	})
	register(op.Ldc2W, func(vm *VirtualMachine, f *frame) error {
		index, err := f.u2()
		if err != nil {
			return err
		}
		entry, err := f.pool.Entry(index)
		if err != nil {
			return err
		}
		switch c := entry.(type) {
		case *classfile.LongInfo:
			return f.push(object.NewLong(c.Value))
		case *classfile.DoubleInfo:
			return f.push(object.NewDouble(c.Value))
		default:
			return errz.Newf(errz.ErrResolution,
				"ldc2_w expects a long or double constant, entry %d is a %s", index, entry.Tag())
		}
	})
}

// pushConstant loads a single-slot constant pool entry onto the stack.
func pushConstant(f *frame, index uint16) error {
	entry, err := f.pool.Entry(index)
	if err != nil {
		return err
	}
	switch c := entry.(type) {
	case *classfile.IntegerInfo:
		return f.push(object.NewInt(c.Value))
	case *classfile.FloatInfo:
		return f.push(object.NewFloat(c.Value))
	case *classfile.StringInfo:
		s, err := f.pool.StringValue(index)
		if err != nil {
			return err
		}
		return f.push(object.NewString(s))
	case *classfile.LongInfo, *classfile.DoubleInfo:
		return errz.Newf(errz.ErrResolution,
			"ldc cannot load two-slot constant at entry %d", index)
	default:
		return errz.Newf(errz.ErrUnsupported,
			"ldc of %s constant at entry %d is not supported", entry.Tag(), index)
	}
}

// expectCategory validates that a value matches an instruction's declared
// category. The reference category accepts any reference-like value.
func expectCategory(obj object.Object, want object.Type) error {
	if want == object.REF {
		if !isRefLike(obj) {
			return errz.Newf(errz.ErrType, "expected reference value, got %s", obj.Type())
		}
		return nil
	}
	if obj.Type() != want {
		return errz.Newf(errz.ErrType, "expected %s value, got %s", want, obj.Type())
	}
	return nil
}

func registerLoadsAndStores() {
	kinds := []struct {
		load     op.Code
		loadN    [4]op.Code
		store    op.Code
		storeN   [4]op.Code
		category object.Type
	}{
		{op.ILoad, [4]op.Code{op.ILoad0, op.ILoad1, op.ILoad2, op.ILoad3},
			op.IStore, [4]op.Code{op.IStore0, op.IStore1, op.IStore2, op.IStore3}, object.INT},
		{op.LLoad, [4]op.Code{op.LLoad0, op.LLoad1, op.LLoad2, op.LLoad3},
			op.LStore, [4]op.Code{op.LStore0, op.LStore1, op.LStore2, op.LStore3}, object.LONG},
		{op.FLoad, [4]op.Code{op.FLoad0, op.FLoad1, op.FLoad2, op.FLoad3},
			op.FStore, [4]op.Code{op.FStore0, op.FStore1, op.FStore2, op.FStore3}, object.FLOAT},
		{op.DLoad, [4]op.Code{op.DLoad0, op.DLoad1, op.DLoad2, op.DLoad3},
			op.DStore, [4]op.Code{op.DStore0, op.DStore1, op.DStore2, op.DStore3}, object.DOUBLE},
		{op.ALoad, [4]op.Code{op.ALoad0, op.ALoad1, op.ALoad2, op.ALoad3},
			op.AStore, [4]op.Code{op.AStore0, op.AStore1, op.AStore2, op.AStore3}, object.REF},
	}
	for _, k := range kinds {
		category := k.category
		register(k.load, func(vm *VirtualMachine, f *frame) error {
			index, err := f.u1()
			if err != nil {
				return err
			}
			return loadLocal(f, int(index), category)
		})
		register(k.store, func(vm *VirtualMachine, f *frame) error {
			index, err := f.u1()
			if err != nil {
				return err
			}
			return storeLocal(f, int(index), category)
		})
		for n, code := range k.loadN {
			index := n
			register(code, func(vm *VirtualMachine, f *frame) error {
				return loadLocal(f, index, category)
			})
		}
		for n, code := range k.storeN {
			index := n
			register(code, func(vm *VirtualMachine, f *frame) error {
				return storeLocal(f, index, category)
			})
		}
	}

	register(op.IInc, func(vm *VirtualMachine, f *frame) error {
		index, err := f.u1()
		if err != nil {
			return err
		}
		delta, err := f.s1()
		if err != nil {
			return err
		}
		obj, err := f.load(int(index))
		if err != nil {
			return err
		}
		v, ok := obj.(*object.Int)
		if !ok {
			return errz.Newf(errz.ErrType, "iinc expects an int local, got %s", obj.Type())
		}
		return f.store(int(index), object.NewInt(v.Value()+int32(delta)))
	})

	register(op.IALoad, func(vm *VirtualMachine, f *frame) error {
		index, err := f.popInt()
		if err != nil {
			return err
		}
		arr, err := f.popArray()
		if err != nil {
			return err
		}
		elem, ok := arr.Get(int(index))
		if !ok {
			return errz.Newf(errz.ErrRuntime,
				"array index %d out of bounds for length %d", index, arr.Len())
		}
		return f.push(elem)
	})
	register(op.IAStore, func(vm *VirtualMachine, f *frame) error {
		value, err := f.popInt()
		if err != nil {
			return err
		}
		index, err := f.popInt()
		if err != nil {
			return err
		}
		arr, err := f.popArray()
		if err != nil {
			return err
		}
		if !arr.Set(int(index), object.NewInt(value)) {
			return errz.Newf(errz.ErrRuntime,
				"array index %d out of bounds for length %d", index, arr.Len())
		}
		return nil
	})
	register(op.AALoad, func(vm *VirtualMachine, f *frame) error {
		index, err := f.popInt()
		if err != nil {
			return err
		}
		arr, err := f.popArray()
		if err != nil {
			return err
		}
		elem, ok := arr.Get(int(index))
		if !ok {
			return errz.Newf(errz.ErrRuntime,
				"array index %d out of bounds for length %d", index, arr.Len())
		}
		return f.push(elem)
	})
	register(op.AAStore, func(vm *VirtualMachine, f *frame) error {
		value, err := f.popRef()
		if err != nil {
			return err
		}
		index, err := f.popInt()
		if err != nil {
			return err
		}
		arr, err := f.popArray()
		if err != nil {
			return err
		}
		if !arr.Set(int(index), value) {
			return errz.Newf(errz.ErrRuntime,
				"array index %d out of bounds for length %d", index, arr.Len())
		}
		return nil
	})
}

func loadLocal(f *frame, index int, category object.Type) error {
	obj, err := f.load(index)
	if err != nil {
		return err
	}
	if err := expectCategory(obj, category); err != nil {
		return err
	}
	return f.push(obj)
}

func storeLocal(f *frame, index int, category object.Type) error {
	obj, err := f.pop()
	if err != nil {
		return err
	}
	if err := expectCategory(obj, category); err != nil {
		return err
	}
	return f.store(index, obj)
}

func registerStackOps() {
	register(op.Pop, func(vm *VirtualMachine, f *frame) error {
		_, err := f.pop()
		return err
	})
	register(op.Pop2, func(vm *VirtualMachine, f *frame) error {
		obj, err := f.pop()
		if err != nil {
			return err
		}
		if isWide(obj) {
			return nil
		}
		_, err = f.pop()
		return err
	})
	register(op.Dup, func(vm *VirtualMachine, f *frame) error {
		obj, err := f.pop()
		if err != nil {
			return err
		}
		if err := f.push(obj); err != nil {
			return err
		}
		return f.push(obj)
	})
	register(op.Swap, func(vm *VirtualMachine, f *frame) error {
		a, err := f.pop()
		if err != nil {
			return err
		}
		b, err := f.pop()
		if err != nil {
			return err
		}
		if err := f.push(a); err != nil {
			return err
		}
		return f.push(b)
	})
}

func registerArithmetic() {
	binInt := func(code op.Code, fn func(a, b int32) (int32, error)) {
		register(code, func(vm *VirtualMachine, f *frame) error {
			b, err := f.popInt()
			if err != nil {
				return err
			}
			a, err := f.popInt()
			if err != nil {
				return err
			}
			result, err := fn(a, b)
			if err != nil {
				return err
			}
			return f.push(object.NewInt(result))
		})
	}
	binLong := func(code op.Code, fn func(a, b int64) (int64, error)) {
		register(code, func(vm *VirtualMachine, f *frame) error {
			b, err := f.popLong()
			if err != nil {
				return err
			}
			a, err := f.popLong()
			if err != nil {
				return err
			}
			result, err := fn(a, b)
			if err != nil {
				return err
			}
			return f.push(object.NewLong(result))
		})
	}
	binFloat := func(code op.Code, fn func(a, b float32) float32) {
		register(code, func(vm *VirtualMachine, f *frame) error {
			b, err := f.popFloat()
			if err != nil {
				return err
			}
			a, err := f.popFloat()
			if err != nil {
				return err
			}
			return f.push(object.NewFloat(fn(a, b)))
		})
	}
	binDouble := func(code op.Code, fn func(a, b float64) float64) {
		register(code, func(vm *VirtualMachine, f *frame) error {
			b, err := f.popDouble()
			if err != nil {
				return err
			}
			a, err := f.popDouble()
			if err != nil {
				return err
			}
			return f.push(object.NewDouble(fn(a, b)))
		})
	}

	binInt(op.IAdd, func(a, b int32) (int32, error) { return a + b, nil })
	binInt(op.ISub, func(a, b int32) (int32, error) { return a - b, nil })
	binInt(op.IMul, func(a, b int32) (int32, error) { return a * b, nil })
	binInt(op.IDiv, func(a, b int32) (int32, error) {
		if b == 0 {
			return 0, errz.Newf(errz.ErrRuntime, "division by zero")
		}
		return a / b, nil
	})
	binInt(op.IRem, func(a, b int32) (int32, error) {
		if b == 0 {
			return 0, errz.Newf(errz.ErrRuntime, "division by zero")
		}
		return a % b, nil
	})

	binLong(op.LAdd, func(a, b int64) (int64, error) { return a + b, nil })
	binLong(op.LSub, func(a, b int64) (int64, error) { return a - b, nil })
	binLong(op.LMul, func(a, b int64) (int64, error) { return a * b, nil })
	binLong(op.LDiv, func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errz.Newf(errz.ErrRuntime, "division by zero")
		}
		return a / b, nil
	})

	binFloat(op.FAdd, func(a, b float32) float32 { return a + b })
	binFloat(op.FSub, func(a, b float32) float32 { return a - b })
	binFloat(op.FMul, func(a, b float32) float32 { return a * b })
	binFloat(op.FDiv, func(a, b float32) float32 { return a / b })

	binDouble(op.DAdd, func(a, b float64) float64 { return a + b })
	binDouble(op.DSub, func(a, b float64) float64 { return a - b })
	binDouble(op.DMul, func(a, b float64) float64 { return a * b })
	binDouble(op.DDiv, func(a, b float64) float64 { return a / b })

	register(op.INeg, func(vm *VirtualMachine, f *frame) error {
		v, err := f.popInt()
		if err != nil {
			return err
		}
		return f.push(object.NewInt(-v))
	})
}

func registerConversions() {
	register(op.I2L, func(vm *VirtualMachine, f *frame) error {
		v, err := f.popInt()
		if err != nil {
			return err
		}
		return f.push(object.NewLong(int64(v)))
	})
	register(op.I2F, func(vm *VirtualMachine, f *frame) error {
		v, err := f.popInt()
		if err != nil {
			return err
		}
		return f.push(object.NewFloat(float32(v)))
	})
	register(op.I2D, func(vm *VirtualMachine, f *frame) error {
		v, err := f.popInt()
		if err != nil {
			return err
		}
		return f.push(object.NewDouble(float64(v)))
	})
	register(op.L2I, func(vm *VirtualMachine, f *frame) error {
		v, err := f.popLong()
		if err != nil {
			return err
		}
		return f.push(object.NewInt(int32(v)))
	})
	register(op.F2I, func(vm *VirtualMachine, f *frame) error {
		v, err := f.popFloat()
		if err != nil {
			return err
		}
		return f.push(object.NewInt(floatToInt(float64(v))))
	})
	register(op.D2I, func(vm *VirtualMachine, f *frame) error {
		v, err := f.popDouble()
		if err != nil {
			return err
		}
		return f.push(object.NewInt(floatToInt(v)))
	})
}

// floatToInt narrows a floating value to int32 with saturation. NaN maps to
// zero.
func floatToInt(v float64) int32 {
	if math.IsNaN(v) {
		return 0
	}
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	if v <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

func registerComparisons() {
	register(op.LCmp, func(vm *VirtualMachine, f *frame) error {
		b, err := f.popLong()
		if err != nil {
			return err
		}
		a, err := f.popLong()
		if err != nil {
			return err
		}
		return f.push(object.NewInt(compareOrdered(a, b)))
	})
	fcmp := func(code op.Code, nanResult int32) {
		register(code, func(vm *VirtualMachine, f *frame) error {
			b, err := f.popFloat()
			if err != nil {
				return err
			}
			a, err := f.popFloat()
			if err != nil {
				return err
			}
			return f.push(object.NewInt(compareFloats(float64(a), float64(b), nanResult)))
		})
	}
	dcmp := func(code op.Code, nanResult int32) {
		register(code, func(vm *VirtualMachine, f *frame) error {
			b, err := f.popDouble()
			if err != nil {
				return err
			}
			a, err := f.popDouble()
			if err != nil {
				return err
			}
			return f.push(object.NewInt(compareFloats(a, b, nanResult)))
		})
	}
	fcmp(op.FCmpL, -1)
	fcmp(op.FCmpG, 1)
	dcmp(op.DCmpL, -1)
	dcmp(op.DCmpG, 1)
}

func compareOrdered(a, b int64) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloats(a, b float64, nanResult int32) int32 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return nanResult
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func registerBranches() {
	ifZero := func(code op.Code, cond func(v int32) bool) {
		register(code, func(vm *VirtualMachine, f *frame) error {
			offset, err := f.s2()
			if err != nil {
				return err
			}
			v, err := f.popInt()
			if err != nil {
				return err
			}
			if cond(v) {
				return f.branch(offset)
			}
			return nil
		})
	}
	ifICmp := func(code op.Code, cond func(a, b int32) bool) {
		register(code, func(vm *VirtualMachine, f *frame) error {
			offset, err := f.s2()
			if err != nil {
				return err
			}
			b, err := f.popInt()
			if err != nil {
				return err
			}
			a, err := f.popInt()
			if err != nil {
				return err
			}
			if cond(a, b) {
				return f.branch(offset)
			}
			return nil
		})
	}

	ifZero(op.IfEq, func(v int32) bool { return v == 0 })
	ifZero(op.IfNe, func(v int32) bool { return v != 0 })
	ifZero(op.IfLt, func(v int32) bool { return v < 0 })
	ifZero(op.IfGe, func(v int32) bool { return v >= 0 })
	ifZero(op.IfGt, func(v int32) bool { return v > 0 })
	ifZero(op.IfLe, func(v int32) bool { return v <= 0 })

	ifICmp(op.IfICmpEq, func(a, b int32) bool { return a == b })
	ifICmp(op.IfICmpNe, func(a, b int32) bool { return a != b })
	ifICmp(op.IfICmpLt, func(a, b int32) bool { return a < b })
	ifICmp(op.IfICmpGe, func(a, b int32) bool { return a >= b })
	ifICmp(op.IfICmpGt, func(a, b int32) bool { return a > b })
	ifICmp(op.IfICmpLe, func(a, b int32) bool { return a <= b })

	ifACmp := func(code op.Code, want bool) {
		register(code, func(vm *VirtualMachine, f *frame) error {
			offset, err := f.s2()
			if err != nil {
				return err
			}
			b, err := f.popRef()
			if err != nil {
				return err
			}
			a, err := f.popRef()
			if err != nil {
				return err
			}
			if sameReference(a, b) == want {
				return f.branch(offset)
			}
			return nil
		})
	}
	ifACmp(op.IfACmpEq, true)
	ifACmp(op.IfACmpNe, false)

	register(op.Goto, func(vm *VirtualMachine, f *frame) error {
		offset, err := f.s2()
		if err != nil {
			return err
		}
		return f.branch(offset)
	})

	ifNull := func(code op.Code, want bool) {
		register(code, func(vm *VirtualMachine, f *frame) error {
			offset, err := f.s2()
			if err != nil {
				return err
			}
			v, err := f.popRef()
			if err != nil {
				return err
			}
			if object.IsNull(v) == want {
				return f.branch(offset)
			}
			return nil
		})
	}
	ifNull(op.IfNull, true)
	ifNull(op.IfNonNull, false)
}

// sameReference is reference identity: nulls compare equal to each other,
// everything else by pointer.
func sameReference(a, b object.Object) bool {
	if object.IsNull(a) && object.IsNull(b) {
		return true
	}
	return a == b
}

func registerFieldAccess() {
	register(op.GetStatic, func(vm *VirtualMachine, f *frame) error {
		index, err := f.u2()
		if err != nil {
			return err
		}
		ref, err := f.pool.FieldRef(index)
		if err != nil {
			return err
		}
		value, err := vm.getStatic(ref)
		if err != nil {
			return err
		}
		return f.push(value)
	})
	register(op.PutStatic, func(vm *VirtualMachine, f *frame) error {
		index, err := f.u2()
		if err != nil {
			return err
		}
		ref, err := f.pool.FieldRef(index)
		if err != nil {
			return err
		}
		value, err := f.pop()
		if err != nil {
			return err
		}
		return vm.putStatic(ref, value)
	})
	register(op.GetField, func(vm *VirtualMachine, f *frame) error {
		index, err := f.u2()
		if err != nil {
			return err
		}
		ref, err := f.pool.FieldRef(index)
		if err != nil {
			return err
		}
		receiver, err := f.popRef()
		if err != nil {
			return err
		}
		if object.IsNull(receiver) {
			return errz.Newf(errz.ErrRuntime,
				"null dereference reading field %s.%s", ref.Class, ref.Name)
		}
		instRef, ok := receiver.(*object.Ref)
		if !ok {
			return errz.Newf(errz.ErrType,
				"getfield receiver must be an instance, got %s", receiver.Type())
		}
		if value, ok := instRef.Instance().GetField(ref.Name); ok {
			return f.push(value)
		}
		return f.push(defaultValueFor(ref.Descriptor))
	})
	register(op.PutField, func(vm *VirtualMachine, f *frame) error {
		index, err := f.u2()
		if err != nil {
			return err
		}
		ref, err := f.pool.FieldRef(index)
		if err != nil {
			return err
		}
		value, err := f.pop()
		if err != nil {
			return err
		}
		receiver, err := f.popRef()
		if err != nil {
			return err
		}
		if object.IsNull(receiver) {
			return errz.Newf(errz.ErrRuntime,
				"null dereference writing field %s.%s", ref.Class, ref.Name)
		}
		instRef, ok := receiver.(*object.Ref)
		if !ok {
			return errz.Newf(errz.ErrType,
				"putfield receiver must be an instance, got %s", receiver.Type())
		}
		instRef.Instance().SetField(ref.Name, value)
		return nil
	})
}

func registerAllocation() {
	register(op.New, func(vm *VirtualMachine, f *frame) error {
		index, err := f.u2()
		if err != nil {
			return err
		}
		className, err := f.pool.ClassName(index)
		if err != nil {
			return err
		}
		// Classes with registered natives are constructible without a
		// class file; anything else must resolve.
		if !vm.hasNativeClass(className) {
			if _, err := vm.resolveClass(className); err != nil {
				return err
			}
		}
		return f.push(object.NewInstance(className))
	})
	register(op.NewArray, func(vm *VirtualMachine, f *frame) error {
		atype, err := f.u1()
		if err != nil {
			return err
		}
		count, err := f.popInt()
		if err != nil {
			return err
		}
		if count < 0 {
			return errz.Newf(errz.ErrRuntime, "negative array size %d", count)
		}
		if atype < byte(object.TBoolean) || atype > byte(object.TLong) {
			return errz.Newf(errz.ErrRuntime, "invalid array element type %d", atype)
		}
		return f.push(object.NewArray(object.ArrayType(atype), int(count)))
	})
	register(op.ArrayLength, func(vm *VirtualMachine, f *frame) error {
		arr, err := f.popArray()
		if err != nil {
			return err
		}
		return f.push(object.NewInt(int32(arr.Len())))
	})
}

type invokeKind int

const (
	invokeStatic invokeKind = iota
	invokeVirtual
	invokeSpecial
)

func registerInvocations() {
	invoke := func(code op.Code, kind invokeKind) {
		register(code, func(vm *VirtualMachine, f *frame) error {
			index, err := f.u2()
			if err != nil {
				return err
			}
			ref, err := f.pool.MethodRef(index)
			if err != nil {
				return err
			}
			return vm.invoke(f, ref, kind)
		})
	}
	invoke(op.InvokeStatic, invokeStatic)
	invoke(op.InvokeVirtual, invokeVirtual)
	invoke(op.InvokeSpecial, invokeSpecial)

	register(op.InvokeDynamic, func(vm *VirtualMachine, f *frame) error {
		if _, err := f.fetch(4); err != nil {
			return err
		}
		return errz.Newf(errz.ErrUnsupported, "invokedynamic is not supported")
	})
}

// invoke pops arguments and receiver, dispatches to a native if one is
// registered for the exact class, name and descriptor, and otherwise pushes
// a new frame for the resolved bytecode method.
func (vm *VirtualMachine) invoke(f *frame, ref classfile.MemberRef, kind invokeKind) error {
	desc, err := classfile.ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		return errz.Newf(errz.ErrResolution,
			"invalid descriptor %q for %s.%s: %s", ref.Descriptor, ref.Class, ref.Name, err)
	}
	args := make([]object.Object, desc.ParamCount())
	for i := len(args) - 1; i >= 0; i-- {
		args[i], err = f.pop()
		if err != nil {
			return err
		}
	}
	var receiver object.Object
	if kind != invokeStatic {
		receiver, err = f.popRef()
		if err != nil {
			return err
		}
		if object.IsNull(receiver) {
			return errz.Newf(errz.ErrRuntime,
				"null receiver invoking %s.%s%s", ref.Class, ref.Name, ref.Descriptor)
		}
	}

	if native, ok := vm.natives[nativeKey{ref.Class, ref.Name, ref.Descriptor}]; ok {
		result, err := native(vm, receiver, args)
		if err != nil {
			return err
		}
		if desc.HasReturn() {
			if result == nil {
				result = object.Null
			}
			return f.push(result)
		}
		return nil
	}

	startClass := ref.Class
	if kind == invokeVirtual {
		if r, ok := receiver.(*object.Ref); ok {
			startClass = r.Instance().ClassName()
		}
	}
	targetClass, method, err := vm.lookupMethod(startClass, ref)
	if err != nil {
		return err
	}
	if method.Code == nil {
		return errz.Newf(errz.ErrUnsupported,
			"method %s.%s%s has no code", targetClass.Name(), ref.Name, ref.Descriptor)
	}
	if len(vm.frames) >= vm.maxFrameDepth {
		return errz.Newf(errz.ErrStackOverflow,
			"call depth limit %d exceeded invoking %s.%s", vm.maxFrameDepth, ref.Class, ref.Name)
	}
	if err := vm.ensureStatics(targetClass); err != nil {
		return err
	}

	nf := newFrame(targetClass, method)
	slot := 0
	if receiver != nil {
		if err := nf.store(0, receiver); err != nil {
			return err
		}
		slot = 1
	}
	for i, arg := range args {
		if err := nf.store(slot, arg); err != nil {
			return err
		}
		slot += classfile.FieldSlots(desc.Params[i])
	}
	if vm.observer != nil {
		vm.observer.OnCall(CallEvent{
			Caller:     f.class.Name() + "." + f.method.Name,
			Class:      targetClass.Name(),
			Method:     ref.Name,
			Descriptor: ref.Descriptor,
			FrameDepth: len(vm.frames) + 1,
		})
	}
	vm.frames = append(vm.frames, nf)
	return nil
}

// lookupMethod resolves a method reference, starting from the dynamic class
// for virtual dispatch and walking superclasses. Superclasses outside the
// registry end the walk silently; a miss on the dynamic chain retries the
// statically referenced class before giving up.
func (vm *VirtualMachine) lookupMethod(startClass string, ref classfile.MemberRef) (*classfile.Class, *classfile.Method, error) {
	tried := map[string]bool{}
	for _, origin := range []string{startClass, ref.Class} {
		name := origin
		for name != "" && !tried[name] {
			tried[name] = true
			class, err := vm.resolveClass(name)
			if err != nil {
				if name == ref.Class {
					return nil, nil, err
				}
				break
			}
			if method, ok := class.Method(ref.Name, ref.Descriptor); ok {
				return class, method, nil
			}
			name = class.SuperName()
		}
	}
	return nil, nil, errz.Newf(errz.ErrResolution,
		"method %s.%s%s not found", ref.Class, ref.Name, ref.Descriptor)
}

func registerReturns() {
	typedReturn := func(code op.Code, category object.Type) {
		register(code, func(vm *VirtualMachine, f *frame) error {
			result, err := f.pop()
			if err != nil {
				return err
			}
			if err := expectCategory(result, category); err != nil {
				return err
			}
			return vm.popFrame(result)
		})
	}
	typedReturn(op.IReturn, object.INT)
	typedReturn(op.LReturn, object.LONG)
	typedReturn(op.FReturn, object.FLOAT)
	typedReturn(op.DReturn, object.DOUBLE)
	typedReturn(op.AReturn, object.REF)
	register(op.Return, func(vm *VirtualMachine, f *frame) error {
		return vm.popFrame(nil)
	})
}
