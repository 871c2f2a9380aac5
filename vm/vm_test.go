package vm

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/javelin-vm/javelin/classfile"
	"github.com/javelin-vm/javelin/errz"
	"github.com/javelin-vm/javelin/object"
)

func buildClass(t *testing.T, name, super string, constants []classfile.Constant, methods ...*classfile.Method) *classfile.Class {
	t.Helper()
	pool, err := classfile.NewConstantPool(constants)
	require.NoError(t, err)
	class := classfile.NewClass(name, super, pool)
	for _, m := range methods {
		require.NoError(t, class.AddMethod(m))
	}
	return class
}

func staticMethod(name, descriptor string, maxStack, maxLocals int, code []byte) *classfile.Method {
	return &classfile.Method{
		Name:        name,
		Descriptor:  descriptor,
		AccessFlags: classfile.AccPublic | classfile.AccStatic,
		Code: &classfile.Code{
			MaxStack:  maxStack,
			MaxLocals: maxLocals,
			Bytes:     code,
		},
	}
}

func requireKind(t *testing.T, err error, want errz.ErrorKind) *errz.StructuredError {
	t.Helper()
	require.Error(t, err)
	structured, ok := err.(*errz.StructuredError)
	require.True(t, ok, "expected a structured error, got %T: %v", err, err)
	require.Equal(t, want, structured.Kind, "unexpected error kind: %v", err)
	return structured
}

func TestLoadIntConstant(t *testing.T) {
	class := buildClass(t, "Main", "java/lang/Object",
		[]classfile.Constant{&classfile.IntegerInfo{Value: 42}},
		staticMethod("main", "()I", 1, 0, []byte{0x12, 0x01, 0xAC}))
	machine := New(nil)
	result, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	require.NoError(t, err)
	require.Equal(t, int32(42), result.(*object.Int).Value())
}

func TestIntegerArithmetic(t *testing.T) {
	// bipush 10; bipush 3; idiv; ireturn
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("main", "()I", 2, 0, []byte{0x10, 10, 0x10, 3, 0x6C, 0xAC}))
	machine := New(nil)
	result, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	require.NoError(t, err)
	require.Equal(t, int32(3), result.(*object.Int).Value())
}

func TestDivisionByZero(t *testing.T) {
	// iconst_1; iconst_0; idiv
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("main", "()I", 2, 0, []byte{0x04, 0x03, 0x6C, 0xAC}))
	machine := New(nil)
	_, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	structured := requireKind(t, err, errz.ErrRuntime)
	require.Contains(t, structured.Message, "division by zero")
	require.Equal(t, 2, structured.Location.PC)
	require.Equal(t, "main", structured.Location.Method)
}

func TestUnsupportedOpcode(t *testing.T) {
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("main", "()I", 1, 0, []byte{0xCA}))
	machine := New(nil)
	_, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	structured := requireKind(t, err, errz.ErrUnsupported)
	require.Contains(t, structured.Message, "0xCA")
	require.Equal(t, 0, structured.Location.PC)
}

func calcConstants() []classfile.Constant {
	return []classfile.Constant{
		&classfile.Utf8Info{Value: "Calc"},                           // 1
		&classfile.ClassInfo{NameIndex: 1},                           // 2
		&classfile.Utf8Info{Value: "add"},                            // 3
		&classfile.Utf8Info{Value: "(II)I"},                          // 4
		&classfile.NameAndTypeInfo{NameIndex: 3, DescriptorIndex: 4}, // 5
		&classfile.MethodrefInfo{ClassIndex: 2, NameAndTypeIndex: 5}, // 6
	}
}

func TestStaticMethodInvocation(t *testing.T) {
	class := buildClass(t, "Calc", "java/lang/Object", calcConstants(),
		// iconst_2; iconst_3; invokestatic #6; ireturn
		staticMethod("main", "()I", 2, 0, []byte{0x05, 0x06, 0xB8, 0x00, 0x06, 0xAC}),
		// iload_0; iload_1; iadd; ireturn
		staticMethod("add", "(II)I", 2, 2, []byte{0x1A, 0x1B, 0x60, 0xAC}))
	machine := New(nil)
	result, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	require.NoError(t, err)
	require.Equal(t, int32(5), result.(*object.Int).Value())
}

func TestMissingMethodFailsAtInvokeTime(t *testing.T) {
	// The method reference is dangling but the class itself is fine; the
	// failure must only surface when the call site executes.
	class := buildClass(t, "Calc", "java/lang/Object", calcConstants(),
		staticMethod("main", "()I", 2, 0, []byte{0x05, 0x06, 0xB8, 0x00, 0x06, 0xAC}))
	machine := New(nil)
	_, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	structured := requireKind(t, err, errz.ErrResolution)
	require.Contains(t, structured.Message, "Calc.add(II)I not found")
	require.Equal(t, 2, structured.Location.PC)
}

func TestMissingClass(t *testing.T) {
	constants := []classfile.Constant{
		&classfile.Utf8Info{Value: "Nope"},
		&classfile.ClassInfo{NameIndex: 1},
		&classfile.Utf8Info{Value: "run"},
		&classfile.Utf8Info{Value: "()I"},
		&classfile.NameAndTypeInfo{NameIndex: 3, DescriptorIndex: 4},
		&classfile.MethodrefInfo{ClassIndex: 2, NameAndTypeIndex: 5},
	}
	class := buildClass(t, "Main", "java/lang/Object", constants,
		staticMethod("main", "()I", 1, 0, []byte{0xB8, 0x00, 0x06, 0xAC}))
	machine := New(NewMapRegistry())
	_, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	structured := requireKind(t, err, errz.ErrClassNotFound)
	require.Contains(t, structured.Message, `"Nope"`)
}

func TestOperandStackUnderflow(t *testing.T) {
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("main", "()I", 1, 0, []byte{0xAC}))
	machine := New(nil)
	_, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	structured := requireKind(t, err, errz.ErrFrameFault)
	require.Contains(t, structured.Message, "underflow")
}

func TestOperandStackOverflow(t *testing.T) {
	// max_stack is 1; the second push must fault.
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("main", "()I", 1, 0, []byte{0x04, 0x04, 0x60, 0xAC}))
	machine := New(nil)
	_, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	structured := requireKind(t, err, errz.ErrFrameFault)
	require.Contains(t, structured.Message, "overflow")
	require.Equal(t, 1, structured.Location.PC)
}

func TestCallStackOverflow(t *testing.T) {
	class := buildClass(t, "Calc", "java/lang/Object",
		[]classfile.Constant{
			&classfile.Utf8Info{Value: "Calc"},
			&classfile.ClassInfo{NameIndex: 1},
			&classfile.Utf8Info{Value: "loop"},
			&classfile.Utf8Info{Value: "()I"},
			&classfile.NameAndTypeInfo{NameIndex: 3, DescriptorIndex: 4},
			&classfile.MethodrefInfo{ClassIndex: 2, NameAndTypeIndex: 5},
		},
		staticMethod("loop", "()I", 1, 0, []byte{0xB8, 0x00, 0x06, 0xAC}))
	machine := New(nil, WithMaxFrameDepth(16))
	_, err := machine.Execute(context.Background(), class, "loop", "()I", nil)
	structured := requireKind(t, err, errz.ErrStackOverflow)
	require.Contains(t, structured.Message, "depth limit 16")
	require.Len(t, structured.Stack, 16)
}

func TestLoopSum(t *testing.T) {
	// Sums 1..5 with a local accumulator, an if_icmpge exit test, iinc and
	// a backward goto.
	code := []byte{
		0x03,       // iconst_0
		0x3B,       // istore_0
		0x04,       // iconst_1
		0x3C,       // istore_1
		0x1B,       // iload_1
		0x10, 0x06, // bipush 6
		0xA2, 0x00, 0x0D, // if_icmpge +13 -> 20
		0x1A,             // iload_0
		0x1B,             // iload_1
		0x60,             // iadd
		0x3B,             // istore_0
		0x84, 0x01, 0x01, // iinc 1, 1
		0xA7, 0xFF, 0xF3, // goto -13 -> 4
		0x1A, // iload_0
		0xAC, // ireturn
	}
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("main", "()I", 2, 2, code))
	machine := New(nil)
	result, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	require.NoError(t, err)
	require.Equal(t, int32(15), result.(*object.Int).Value())
}

func staticFieldConstants() []classfile.Constant {
	return []classfile.Constant{
		&classfile.Utf8Info{Value: "Main"},                           // 1
		&classfile.ClassInfo{NameIndex: 1},                           // 2
		&classfile.Utf8Info{Value: "count"},                          // 3
		&classfile.Utf8Info{Value: "I"},                              // 4
		&classfile.NameAndTypeInfo{NameIndex: 3, DescriptorIndex: 4}, // 5
		&classfile.FieldrefInfo{ClassIndex: 2, NameAndTypeIndex: 5},  // 6
		&classfile.IntegerInfo{Value: 99},                            // 7
	}
}

func TestStaticFieldRoundTrip(t *testing.T) {
	class := buildClass(t, "Main", "java/lang/Object", staticFieldConstants(),
		// bipush 7; putstatic #6; getstatic #6; ireturn
		staticMethod("main", "()I", 1, 0, []byte{0x10, 0x07, 0xB3, 0x00, 0x06, 0xB2, 0x00, 0x06, 0xAC}))
	require.NoError(t, class.AddField(&classfile.Field{
		Name:        "count",
		Descriptor:  "I",
		AccessFlags: classfile.AccStatic,
	}))
	machine := New(nil)
	result, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	require.NoError(t, err)
	require.Equal(t, int32(7), result.(*object.Int).Value())
}

func TestStaticFieldConstantValue(t *testing.T) {
	class := buildClass(t, "Main", "java/lang/Object", staticFieldConstants(),
		staticMethod("main", "()I", 1, 0, []byte{0xB2, 0x00, 0x06, 0xAC}))
	require.NoError(t, class.AddField(&classfile.Field{
		Name:               "count",
		Descriptor:         "I",
		AccessFlags:        classfile.AccStatic,
		ConstantValueIndex: 7,
	}))
	machine := New(nil)
	result, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	require.NoError(t, err)
	require.Equal(t, int32(99), result.(*object.Int).Value())
}

func TestStaticFieldDefaultsToZero(t *testing.T) {
	class := buildClass(t, "Main", "java/lang/Object", staticFieldConstants(),
		staticMethod("main", "()I", 1, 0, []byte{0xB2, 0x00, 0x06, 0xAC}))
	require.NoError(t, class.AddField(&classfile.Field{
		Name:        "count",
		Descriptor:  "I",
		AccessFlags: classfile.AccStatic,
	}))
	machine := New(nil)
	result, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	require.NoError(t, err)
	require.Equal(t, int32(0), result.(*object.Int).Value())
}

func TestObjectFields(t *testing.T) {
	constants := []classfile.Constant{
		&classfile.Utf8Info{Value: "Point"},                           // 1
		&classfile.ClassInfo{NameIndex: 1},                            // 2
		&classfile.Utf8Info{Value: "java/lang/Object"},                // 3
		&classfile.ClassInfo{NameIndex: 3},                            // 4
		&classfile.Utf8Info{Value: "<init>"},                          // 5
		&classfile.Utf8Info{Value: "()V"},                             // 6
		&classfile.NameAndTypeInfo{NameIndex: 5, DescriptorIndex: 6},  // 7
		&classfile.MethodrefInfo{ClassIndex: 4, NameAndTypeIndex: 7},  // 8
		&classfile.Utf8Info{Value: "x"},                               // 9
		&classfile.Utf8Info{Value: "I"},                               // 10
		&classfile.NameAndTypeInfo{NameIndex: 9, DescriptorIndex: 10}, // 11
		&classfile.FieldrefInfo{ClassIndex: 2, NameAndTypeIndex: 11},  // 12
	}
	code := []byte{
		0xBB, 0x00, 0x02, // new #2 (Point)
		0x59,             // dup
		0xB7, 0x00, 0x08, // invokespecial #8 (Object.<init>)
		0x59,       // dup
		0x10, 0x05, // bipush 5
		0xB5, 0x00, 0x0C, // putfield #12 (x)
		0xB4, 0x00, 0x0C, // getfield #12 (x)
		0xAC, // ireturn
	}
	class := buildClass(t, "Point", "java/lang/Object", constants,
		staticMethod("main", "()I", 3, 0, code))
	machine := New(nil)
	result, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	require.NoError(t, err)
	require.Equal(t, int32(5), result.(*object.Int).Value())
}

func TestGetFieldOnNull(t *testing.T) {
	constants := []classfile.Constant{
		&classfile.Utf8Info{Value: "Point"},
		&classfile.ClassInfo{NameIndex: 1},
		&classfile.Utf8Info{Value: "x"},
		&classfile.Utf8Info{Value: "I"},
		&classfile.NameAndTypeInfo{NameIndex: 3, DescriptorIndex: 4},
		&classfile.FieldrefInfo{ClassIndex: 2, NameAndTypeIndex: 5},
	}
	class := buildClass(t, "Point", "java/lang/Object", constants,
		// aconst_null; getfield #6
		staticMethod("main", "()I", 1, 0, []byte{0x01, 0xB4, 0x00, 0x06, 0xAC}))
	machine := New(nil)
	_, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	structured := requireKind(t, err, errz.ErrRuntime)
	require.Contains(t, structured.Message, "null dereference")
}

func TestIntArrays(t *testing.T) {
	code := []byte{
		0x10, 0x03, // bipush 3
		0xBC, 0x0A, // newarray int
		0x4B,       // astore_0
		0x2A,       // aload_0
		0x03,       // iconst_0
		0x10, 0x07, // bipush 7
		0x4F, // iastore
		0x2A, // aload_0
		0x03, // iconst_0
		0x2E, // iaload
		0x2A, // aload_0
		0xBE, // arraylength
		0x60, // iadd
		0xAC, // ireturn
	}
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("main", "()I", 3, 1, code))
	machine := New(nil)
	result, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	require.NoError(t, err)
	require.Equal(t, int32(10), result.(*object.Int).Value())
}

func TestArrayIndexOutOfBounds(t *testing.T) {
	// Reads index 0 of a zero-length array.
	code := []byte{
		0x03,       // iconst_0
		0xBC, 0x0A, // newarray int (length 0)
		0x03, // iconst_0
		0x2E, // iaload
		0xAC, // ireturn
	}
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("main", "()I", 2, 0, code))
	machine := New(nil)
	_, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	structured := requireKind(t, err, errz.ErrRuntime)
	require.Contains(t, structured.Message, "out of bounds")
}

func TestNegativeArraySize(t *testing.T) {
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("main", "()I", 1, 0, []byte{0x02, 0xBC, 0x0A, 0xAC}))
	machine := New(nil)
	_, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	structured := requireKind(t, err, errz.ErrRuntime)
	require.Contains(t, structured.Message, "negative array size")
}

func TestLongConstantAndArithmetic(t *testing.T) {
	class := buildClass(t, "Main", "java/lang/Object",
		[]classfile.Constant{&classfile.LongInfo{Value: 10}},
		// ldc2_w #1; lconst_1; ladd; lreturn
		staticMethod("main", "()J", 4, 0, []byte{0x14, 0x00, 0x01, 0x0A, 0x61, 0xAD}))
	machine := New(nil)
	result, err := machine.Execute(context.Background(), class, "main", "()J", nil)
	require.NoError(t, err)
	require.Equal(t, int64(11), result.(*object.Long).Value())
}

func TestWideArgumentsTakeTwoSlots(t *testing.T) {
	// lload_0 and lload_2 only line up when long arguments occupy two
	// local slots each.
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("addLong", "(JJ)J", 4, 4, []byte{0x1E, 0x20, 0x61, 0xAD}))
	machine := New(nil)
	result, err := machine.Execute(context.Background(), class, "addLong", "(JJ)J",
		[]object.Object{object.NewLong(5), object.NewLong(6)})
	require.NoError(t, err)
	require.Equal(t, int64(11), result.(*object.Long).Value())
}

func TestLdcRejectsTwoSlotConstant(t *testing.T) {
	class := buildClass(t, "Main", "java/lang/Object",
		[]classfile.Constant{&classfile.LongInfo{Value: 10}},
		staticMethod("main", "()I", 1, 0, []byte{0x12, 0x01, 0xAC}))
	machine := New(nil)
	_, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	structured := requireKind(t, err, errz.ErrResolution)
	require.Contains(t, structured.Message, "two-slot")
}

func TestVirtualDispatchThroughSuperclass(t *testing.T) {
	base := buildClass(t, "Base", "java/lang/Object", nil,
		&classfile.Method{
			Name:       "value",
			Descriptor: "()I",
			Code:       &classfile.Code{MaxStack: 1, MaxLocals: 1, Bytes: []byte{0x10, 0x07, 0xAC}},
		})
	child := buildClass(t, "Child", "Base",
		[]classfile.Constant{
			&classfile.Utf8Info{Value: "Child"},
			&classfile.ClassInfo{NameIndex: 1},
			&classfile.Utf8Info{Value: "value"},
			&classfile.Utf8Info{Value: "()I"},
			&classfile.NameAndTypeInfo{NameIndex: 3, DescriptorIndex: 4},
			&classfile.MethodrefInfo{ClassIndex: 2, NameAndTypeIndex: 5},
		},
		// new #2; invokevirtual #6; ireturn
		staticMethod("main", "()I", 1, 0, []byte{0xBB, 0x00, 0x02, 0xB6, 0x00, 0x06, 0xAC}))
	registry := NewMapRegistry()
	registry.Add(base)
	machine := New(registry)
	result, err := machine.Execute(context.Background(), child, "main", "()I", nil)
	require.NoError(t, err)
	require.Equal(t, int32(7), result.(*object.Int).Value())
}

func printlnConstants(extra ...classfile.Constant) []classfile.Constant {
	constants := []classfile.Constant{
		&classfile.Utf8Info{Value: "java/lang/System"},                // 1
		&classfile.ClassInfo{NameIndex: 1},                            // 2
		&classfile.Utf8Info{Value: "out"},                             // 3
		&classfile.Utf8Info{Value: "Ljava/io/PrintStream;"},           // 4
		&classfile.NameAndTypeInfo{NameIndex: 3, DescriptorIndex: 4},  // 5
		&classfile.FieldrefInfo{ClassIndex: 2, NameAndTypeIndex: 5},   // 6
		&classfile.Utf8Info{Value: "java/io/PrintStream"},             // 7
		&classfile.ClassInfo{NameIndex: 7},                            // 8
		&classfile.Utf8Info{Value: "println"},                         // 9
		&classfile.Utf8Info{Value: "(Ljava/lang/String;)V"},           // 10
		&classfile.NameAndTypeInfo{NameIndex: 9, DescriptorIndex: 10}, // 11
		&classfile.MethodrefInfo{ClassIndex: 8, NameAndTypeIndex: 11}, // 12
	}
	return append(constants, extra...)
}

func TestPrintlnString(t *testing.T) {
	constants := printlnConstants(
		&classfile.Utf8Info{Value: "hello, world"}, // 13
		&classfile.StringInfo{Utf8Index: 13},       // 14
	)
	code := []byte{
		0xB2, 0x00, 0x06, // getstatic #6 (System.out)
		0x12, 0x0E, // ldc #14
		0xB6, 0x00, 0x0C, // invokevirtual #12 (println)
		0xB1, // return
	}
	class := buildClass(t, "Main", "java/lang/Object", constants,
		staticMethod("main", "()V", 2, 0, code))
	var out bytes.Buffer
	machine := New(nil, WithStdout(&out))
	result, err := machine.Execute(context.Background(), class, "main", "()V", nil)
	require.NoError(t, err)
	require.Equal(t, object.Null, result)
	require.Equal(t, "hello, world\n", out.String())
}

func TestPrintlnInt(t *testing.T) {
	constants := []classfile.Constant{
		&classfile.Utf8Info{Value: "java/lang/System"},                // 1
		&classfile.ClassInfo{NameIndex: 1},                            // 2
		&classfile.Utf8Info{Value: "out"},                             // 3
		&classfile.Utf8Info{Value: "Ljava/io/PrintStream;"},           // 4
		&classfile.NameAndTypeInfo{NameIndex: 3, DescriptorIndex: 4},  // 5
		&classfile.FieldrefInfo{ClassIndex: 2, NameAndTypeIndex: 5},   // 6
		&classfile.Utf8Info{Value: "java/io/PrintStream"},             // 7
		&classfile.ClassInfo{NameIndex: 7},                            // 8
		&classfile.Utf8Info{Value: "println"},                         // 9
		&classfile.Utf8Info{Value: "(I)V"},                            // 10
		&classfile.NameAndTypeInfo{NameIndex: 9, DescriptorIndex: 10}, // 11
		&classfile.MethodrefInfo{ClassIndex: 8, NameAndTypeIndex: 11}, // 12
	}
	code := []byte{
		0xB2, 0x00, 0x06, // getstatic #6
		0x10, 0x2A, // bipush 42
		0xB6, 0x00, 0x0C, // invokevirtual #12
		0xB1, // return
	}
	class := buildClass(t, "Main", "java/lang/Object", constants,
		staticMethod("main", "()V", 2, 0, code))
	var out bytes.Buffer
	machine := New(nil, WithStdout(&out))
	_, err := machine.Execute(context.Background(), class, "main", "()V", nil)
	require.NoError(t, err)
	require.Equal(t, "42\n", out.String())
}

func TestContextCancellation(t *testing.T) {
	// goto 0 spins forever; the deadline must stop it.
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("main", "()V", 0, 0, []byte{0xA7, 0x00, 0x00}))
	machine := New(nil, WithContextCheckInterval(1))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := machine.Execute(ctx, class, "main", "()V", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTypeMismatch(t *testing.T) {
	// iconst_1; fconst_0; fadd -- the int operand fails the float pop.
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("main", "()F", 2, 0, []byte{0x04, 0x0B, 0x62, 0xAE}))
	machine := New(nil)
	_, err := machine.Execute(context.Background(), class, "main", "()F", nil)
	structured := requireKind(t, err, errz.ErrType)
	require.Contains(t, structured.Message, "expected float")
}

func TestBranchOutOfBounds(t *testing.T) {
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("main", "()V", 0, 0, []byte{0xA7, 0x7F, 0x00}))
	machine := New(nil)
	_, err := machine.Execute(context.Background(), class, "main", "()V", nil)
	structured := requireKind(t, err, errz.ErrFrameFault)
	require.Contains(t, structured.Message, "branch target")
}

func TestWrongArgumentCount(t *testing.T) {
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("addLong", "(JJ)J", 4, 4, []byte{0x1E, 0x20, 0x61, 0xAD}))
	machine := New(nil)
	_, err := machine.Execute(context.Background(), class, "addLong", "(JJ)J",
		[]object.Object{object.NewLong(5)})
	structured := requireKind(t, err, errz.ErrRuntime)
	require.Contains(t, structured.Message, "expects 2 arguments, got 1")
}

func TestExecuteUnknownMethod(t *testing.T) {
	class := buildClass(t, "Main", "java/lang/Object", nil)
	machine := New(nil)
	_, err := machine.Execute(context.Background(), class, "nope", "()V", nil)
	requireKind(t, err, errz.ErrResolution)
}

func TestErrorLocationAndGuestStack(t *testing.T) {
	constants := []classfile.Constant{
		&classfile.Utf8Info{Value: "App"},
		&classfile.ClassInfo{NameIndex: 1},
		&classfile.Utf8Info{Value: "div"},
		&classfile.Utf8Info{Value: "(II)I"},
		&classfile.NameAndTypeInfo{NameIndex: 3, DescriptorIndex: 4},
		&classfile.MethodrefInfo{ClassIndex: 2, NameAndTypeIndex: 5},
	}
	div := staticMethod("div", "(II)I", 2, 2, []byte{0x1A, 0x1B, 0x6C, 0xAC})
	div.Code.LineNumbers = []classfile.LineNumber{{StartPC: 0, Line: 10}, {StartPC: 2, Line: 11}}
	class := buildClass(t, "App", "java/lang/Object", constants,
		// iconst_1; iconst_0; invokestatic #6; ireturn
		staticMethod("main", "()I", 2, 0, []byte{0x04, 0x03, 0xB8, 0x00, 0x06, 0xAC}),
		div)
	machine := New(nil)
	_, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	structured := requireKind(t, err, errz.ErrRuntime)
	require.Equal(t, "App", structured.Location.Class)
	require.Equal(t, "div", structured.Location.Method)
	require.Equal(t, 2, structured.Location.PC)
	require.Equal(t, 11, structured.Location.Line)
	require.Len(t, structured.Stack, 2)
	require.Equal(t, "div", structured.Stack[0].Method)
	require.Equal(t, "main", structured.Stack[1].Method)
	friendly := structured.FriendlyErrorMessage()
	require.Contains(t, friendly, "division by zero")
	require.Contains(t, friendly, "App.div")
}

type recordingObserver struct {
	steps   []StepEvent
	calls   []CallEvent
	returns []ReturnEvent
	haltAt  int
}

func (r *recordingObserver) OnStep(event StepEvent) bool {
	r.steps = append(r.steps, event)
	return r.haltAt == 0 || len(r.steps) < r.haltAt
}

func (r *recordingObserver) OnCall(event CallEvent)     { r.calls = append(r.calls, event) }
func (r *recordingObserver) OnReturn(event ReturnEvent) { r.returns = append(r.returns, event) }

func TestObserverSeesStepsAndCalls(t *testing.T) {
	class := buildClass(t, "Calc", "java/lang/Object", calcConstants(),
		staticMethod("main", "()I", 2, 0, []byte{0x05, 0x06, 0xB8, 0x00, 0x06, 0xAC}),
		staticMethod("add", "(II)I", 2, 2, []byte{0x1A, 0x1B, 0x60, 0xAC}))
	obs := &recordingObserver{}
	machine := New(nil, WithObserver(obs))
	_, err := machine.Execute(context.Background(), class, "main", "()I", nil)
	require.NoError(t, err)
	require.NotEmpty(t, obs.steps)
	require.Equal(t, "iconst_2", obs.steps[0].OpcodeName)
	require.Len(t, obs.calls, 1)
	require.Equal(t, "add", obs.calls[0].Method)
	require.Equal(t, "Calc.main", obs.calls[0].Caller)
	require.Len(t, obs.returns, 2)
}

func TestObserverCanHalt(t *testing.T) {
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("main", "()V", 0, 0, []byte{0xA7, 0x00, 0x00}))
	obs := &recordingObserver{haltAt: 10}
	machine := New(nil, WithObserver(obs))
	_, err := machine.Execute(context.Background(), class, "main", "()V", nil)
	structured := requireKind(t, err, errz.ErrRuntime)
	require.Contains(t, structured.Message, "halted by observer")
	require.Len(t, obs.steps, 10)
}

func TestConditionalBranches(t *testing.T) {
	// Computes max(a, b) with if_icmpge.
	code := []byte{
		0x1A,             // iload_0
		0x1B,             // iload_1
		0xA2, 0x00, 0x07, // if_icmpge +7 -> 9
		0x1B, // iload_1
		0xAC, // ireturn
		0x00, // nop (padding)
		0x00, // nop
		0x1A, // iload_0
		0xAC, // ireturn
	}
	class := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("max", "(II)I", 2, 2, code))
	machine := New(nil)
	for _, tc := range []struct {
		a, b, want int32
	}{
		{3, 9, 9},
		{9, 3, 9},
		{4, 4, 4},
	} {
		result, err := machine.Execute(context.Background(), class, "max", "(II)I",
			[]object.Object{object.NewInt(tc.a), object.NewInt(tc.b)})
		require.NoError(t, err)
		require.Equal(t, tc.want, result.(*object.Int).Value())
	}
}

func TestFloatComparisonNaN(t *testing.T) {
	// fconst_0; fconst_0; fdiv produces NaN; fcmpg pushes 1, fcmpl -1.
	codeG := []byte{0x0B, 0x0B, 0x6E, 0x0B, 0x96, 0xAC}
	codeL := []byte{0x0B, 0x0B, 0x6E, 0x0B, 0x95, 0xAC}
	g := buildClass(t, "Main", "java/lang/Object", nil,
		staticMethod("cmpg", "()I", 2, 0, codeG),
		staticMethod("cmpl", "()I", 2, 0, codeL))
	machine := New(nil)
	result, err := machine.Execute(context.Background(), g, "cmpg", "()I", nil)
	require.NoError(t, err)
	require.Equal(t, int32(1), result.(*object.Int).Value())
	result, err = machine.Execute(context.Background(), g, "cmpl", "()I", nil)
	require.NoError(t, err)
	require.Equal(t, int32(-1), result.(*object.Int).Value())
}
