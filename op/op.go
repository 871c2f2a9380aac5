// Package op defines the JVM opcodes understood by the Javelin interpreter.
package op

import "fmt"

// Code is a single-byte opcode from a method's code array.
type Code byte

const (
	Nop       Code = 0x00
	AConstNul Code = 0x01
	IConstM1  Code = 0x02
	IConst0   Code = 0x03
	IConst1   Code = 0x04
	IConst2   Code = 0x05
	IConst3   Code = 0x06
	IConst4   Code = 0x07
	IConst5   Code = 0x08
	LConst0   Code = 0x09
	LConst1   Code = 0x0A
	FConst0   Code = 0x0B
	FConst1   Code = 0x0C
	FConst2   Code = 0x0D
	DConst0   Code = 0x0E
	DConst1   Code = 0x0F
	BIPush    Code = 0x10
	SIPush    Code = 0x11
	Ldc       Code = 0x12
	LdcW      Code = 0x13
	Ldc2W     Code = 0x14

	ILoad  Code = 0x15
	LLoad  Code = 0x16
	FLoad  Code = 0x17
	DLoad  Code = 0x18
	ALoad  Code = 0x19
	ILoad0 Code = 0x1A
	ILoad1 Code = 0x1B
	ILoad2 Code = 0x1C
	ILoad3 Code = 0x1D
	LLoad0 Code = 0x1E
	LLoad1 Code = 0x1F
	LLoad2 Code = 0x20
	LLoad3 Code = 0x21
	FLoad0 Code = 0x22
	FLoad1 Code = 0x23
	FLoad2 Code = 0x24
	FLoad3 Code = 0x25
	DLoad0 Code = 0x26
	DLoad1 Code = 0x27
	DLoad2 Code = 0x28
	DLoad3 Code = 0x29
	ALoad0 Code = 0x2A
	ALoad1 Code = 0x2B
	ALoad2 Code = 0x2C
	ALoad3 Code = 0x2D

	IALoad Code = 0x2E
	AALoad Code = 0x32

	IStore  Code = 0x36
	LStore  Code = 0x37
	FStore  Code = 0x38
	DStore  Code = 0x39
	AStore  Code = 0x3A
	IStore0 Code = 0x3B
	IStore1 Code = 0x3C
	IStore2 Code = 0x3D
	IStore3 Code = 0x3E
	LStore0 Code = 0x3F
	LStore1 Code = 0x40
	LStore2 Code = 0x41
	LStore3 Code = 0x42
	FStore0 Code = 0x43
	FStore1 Code = 0x44
	FStore2 Code = 0x45
	FStore3 Code = 0x46
	DStore0 Code = 0x47
	DStore1 Code = 0x48
	DStore2 Code = 0x49
	DStore3 Code = 0x4A
	AStore0 Code = 0x4B
	AStore1 Code = 0x4C
	AStore2 Code = 0x4D
	AStore3 Code = 0x4E

	IAStore Code = 0x4F
	AAStore Code = 0x53

	Pop  Code = 0x57
	Pop2 Code = 0x58
	Dup  Code = 0x59
	Swap Code = 0x5F

	IAdd Code = 0x60
	LAdd Code = 0x61
	FAdd Code = 0x62
	DAdd Code = 0x63
	ISub Code = 0x64
	LSub Code = 0x65
	FSub Code = 0x66
	DSub Code = 0x67
	IMul Code = 0x68
	LMul Code = 0x69
	FMul Code = 0x6A
	DMul Code = 0x6B
	IDiv Code = 0x6C
	LDiv Code = 0x6D
	FDiv Code = 0x6E
	DDiv Code = 0x6F
	IRem Code = 0x70
	INeg Code = 0x74

	IInc Code = 0x84

	I2L Code = 0x85
	I2F Code = 0x86
	I2D Code = 0x87
	L2I Code = 0x88
	F2I Code = 0x8B
	D2I Code = 0x8E

	LCmp  Code = 0x94
	FCmpL Code = 0x95
	FCmpG Code = 0x96
	DCmpL Code = 0x97
	DCmpG Code = 0x98

	IfEq      Code = 0x99
	IfNe      Code = 0x9A
	IfLt      Code = 0x9B
	IfGe      Code = 0x9C
	IfGt      Code = 0x9D
	IfLe      Code = 0x9E
	IfICmpEq  Code = 0x9F
	IfICmpNe  Code = 0xA0
	IfICmpLt  Code = 0xA1
	IfICmpGe  Code = 0xA2
	IfICmpGt  Code = 0xA3
	IfICmpLe  Code = 0xA4
	IfACmpEq  Code = 0xA5
	IfACmpNe  Code = 0xA6
	Goto      Code = 0xA7
	IfNull    Code = 0xC6
	IfNonNull Code = 0xC7

	IReturn Code = 0xAC
	LReturn Code = 0xAD
	FReturn Code = 0xAE
	DReturn Code = 0xAF
	AReturn Code = 0xB0
	Return  Code = 0xB1

	GetStatic Code = 0xB2
	PutStatic Code = 0xB3
	GetField  Code = 0xB4
	PutField  Code = 0xB5

	InvokeVirtual Code = 0xB6
	InvokeSpecial Code = 0xB7
	InvokeStatic  Code = 0xB8
	InvokeDynamic Code = 0xBA

	New         Code = 0xBB
	NewArray    Code = 0xBC
	ArrayLength Code = 0xBE
)

// Info describes an opcode: its mnemonic and the number of operand bytes
// that follow it in the code array. Variable-length instructions
// (tableswitch, wide) are not in the supported set.
type Info struct {
	Code         Code
	Name         string
	OperandWidth int
}

// Known reports whether the opcode is part of the supported instruction set.
func (i Info) Known() bool {
	return i.Name != ""
}

var infos [256]Info

func init() {
	type opInfo struct {
		op    Code
		name  string
		width int
	}
	ops := []opInfo{
		{Nop, "nop", 0},
		{AConstNul, "aconst_null", 0},
		{IConstM1, "iconst_m1", 0},
		{IConst0, "iconst_0", 0},
		{IConst1, "iconst_1", 0},
		{IConst2, "iconst_2", 0},
		{IConst3, "iconst_3", 0},
		{IConst4, "iconst_4", 0},
		{IConst5, "iconst_5", 0},
		{LConst0, "lconst_0", 0},
		{LConst1, "lconst_1", 0},
		{FConst0, "fconst_0", 0},
		{FConst1, "fconst_1", 0},
		{FConst2, "fconst_2", 0},
		{DConst0, "dconst_0", 0},
		{DConst1, "dconst_1", 0},
		{BIPush, "bipush", 1},
		{SIPush, "sipush", 2},
		{Ldc, "ldc", 1},
		{LdcW, "ldc_w", 2},
		{Ldc2W, "ldc2_w", 2},
		{ILoad, "iload", 1},
		{LLoad, "lload", 1},
		{FLoad, "fload", 1},
		{DLoad, "dload", 1},
		{ALoad, "aload", 1},
		{ILoad0, "iload_0", 0},
		{ILoad1, "iload_1", 0},
		{ILoad2, "iload_2", 0},
		{ILoad3, "iload_3", 0},
		{LLoad0, "lload_0", 0},
		{LLoad1, "lload_1", 0},
		{LLoad2, "lload_2", 0},
		{LLoad3, "lload_3", 0},
		{FLoad0, "fload_0", 0},
		{FLoad1, "fload_1", 0},
		{FLoad2, "fload_2", 0},
		{FLoad3, "fload_3", 0},
		{DLoad0, "dload_0", 0},
		{DLoad1, "dload_1", 0},
		{DLoad2, "dload_2", 0},
		{DLoad3, "dload_3", 0},
		{ALoad0, "aload_0", 0},
		{ALoad1, "aload_1", 0},
		{ALoad2, "aload_2", 0},
		{ALoad3, "aload_3", 0},
		{IALoad, "iaload", 0},
		{AALoad, "aaload", 0},
		{IStore, "istore", 1},
		{LStore, "lstore", 1},
		{FStore, "fstore", 1},
		{DStore, "dstore", 1},
		{AStore, "astore", 1},
		{IStore0, "istore_0", 0},
		{IStore1, "istore_1", 0},
		{IStore2, "istore_2", 0},
		{IStore3, "istore_3", 0},
		{LStore0, "lstore_0", 0},
		{LStore1, "lstore_1", 0},
		{LStore2, "lstore_2", 0},
		{LStore3, "lstore_3", 0},
		{FStore0, "fstore_0", 0},
		{FStore1, "fstore_1", 0},
		{FStore2, "fstore_2", 0},
		{FStore3, "fstore_3", 0},
		{DStore0, "dstore_0", 0},
		{DStore1, "dstore_1", 0},
		{DStore2, "dstore_2", 0},
		{DStore3, "dstore_3", 0},
		{AStore0, "astore_0", 0},
		{AStore1, "astore_1", 0},
		{AStore2, "astore_2", 0},
		{AStore3, "astore_3", 0},
		{IAStore, "iastore", 0},
		{AAStore, "aastore", 0},
		{Pop, "pop", 0},
		{Pop2, "pop2", 0},
		{Dup, "dup", 0},
		{Swap, "swap", 0},
		{IAdd, "iadd", 0},
		{LAdd, "ladd", 0},
		{FAdd, "fadd", 0},
		{DAdd, "dadd", 0},
		{ISub, "isub", 0},
		{LSub, "lsub", 0},
		{FSub, "fsub", 0},
		{DSub, "dsub", 0},
		{IMul, "imul", 0},
		{LMul, "lmul", 0},
		{FMul, "fmul", 0},
		{DMul, "dmul", 0},
		{IDiv, "idiv", 0},
		{LDiv, "ldiv", 0},
		{FDiv, "fdiv", 0},
		{DDiv, "ddiv", 0},
		{IRem, "irem", 0},
		{INeg, "ineg", 0},
		{IInc, "iinc", 2},
		{I2L, "i2l", 0},
		{I2F, "i2f", 0},
		{I2D, "i2d", 0},
		{L2I, "l2i", 0},
		{F2I, "f2i", 0},
		{D2I, "d2i", 0},
		{LCmp, "lcmp", 0},
		{FCmpL, "fcmpl", 0},
		{FCmpG, "fcmpg", 0},
		{DCmpL, "dcmpl", 0},
		{DCmpG, "dcmpg", 0},
		{IfEq, "ifeq", 2},
		{IfNe, "ifne", 2},
		{IfLt, "iflt", 2},
		{IfGe, "ifge", 2},
		{IfGt, "ifgt", 2},
		{IfLe, "ifle", 2},
		{IfICmpEq, "if_icmpeq", 2},
		{IfICmpNe, "if_icmpne", 2},
		{IfICmpLt, "if_icmplt", 2},
		{IfICmpGe, "if_icmpge", 2},
		{IfICmpGt, "if_icmpgt", 2},
		{IfICmpLe, "if_icmple", 2},
		{IfACmpEq, "if_acmpeq", 2},
		{IfACmpNe, "if_acmpne", 2},
		{Goto, "goto", 2},
		{IfNull, "ifnull", 2},
		{IfNonNull, "ifnonnull", 2},
		{IReturn, "ireturn", 0},
		{LReturn, "lreturn", 0},
		{FReturn, "freturn", 0},
		{DReturn, "dreturn", 0},
		{AReturn, "areturn", 0},
		{Return, "return", 0},
		{GetStatic, "getstatic", 2},
		{PutStatic, "putstatic", 2},
		{GetField, "getfield", 2},
		{PutField, "putfield", 2},
		{InvokeVirtual, "invokevirtual", 2},
		{InvokeSpecial, "invokespecial", 2},
		{InvokeStatic, "invokestatic", 2},
		{InvokeDynamic, "invokedynamic", 4},
		{New, "new", 2},
		{NewArray, "newarray", 1},
		{ArrayLength, "arraylength", 0},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:         o.op,
			Name:         o.name,
			OperandWidth: o.width,
		}
	}
}

// GetInfo returns information about the given opcode. The returned Info has
// an empty Name for opcodes outside the supported set.
func GetInfo(op Code) Info {
	return infos[op]
}

// String returns the opcode mnemonic, or a hex rendering for unknown opcodes.
func (c Code) String() string {
	if info := infos[c]; info.Known() {
		return info.Name
	}
	return fmt.Sprintf("0x%02X", byte(c))
}
