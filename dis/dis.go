// Package dis supports analysis of class file bytecode by disassembling it.
// This works with the opcodes defined in the `op` package and annotates
// operands by resolving them against the class's constant pool.
package dis

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/javelin-vm/javelin/classfile"
	"github.com/javelin-vm/javelin/errz"
	"github.com/javelin-vm/javelin/op"
)

// Instruction represents a single bytecode instruction and its operands.
type Instruction struct {
	Offset     int
	Opcode     op.Code
	Name       string
	Operands   []byte
	Annotation string
}

// Disassemble returns a parsed representation of a method's code, with
// constant pool operands resolved into readable annotations. Disassembly
// stops at the first opcode outside the supported set, since its operand
// width is unknown.
func Disassemble(method *classfile.Method, pool *classfile.ConstantPool) ([]Instruction, error) {
	if method.Code == nil {
		return nil, errz.Newf(errz.ErrResolution, "method %s has no code", method.Name)
	}
	code := method.Code.Bytes
	var instructions []Instruction
	offset := 0
	for offset < len(code) {
		opcode := op.Code(code[offset])
		info := op.GetInfo(opcode)
		if !info.Known() {
			return instructions, errz.Newf(errz.ErrUnsupported,
				"unknown opcode 0x%02X at offset %d", code[offset], offset)
		}
		if offset+1+info.OperandWidth > len(code) {
			return instructions, errz.Newf(errz.ErrFormat,
				"code truncated: %s at offset %d needs %d operand bytes",
				info.Name, offset, info.OperandWidth)
		}
		operands := code[offset+1 : offset+1+info.OperandWidth]
		instructions = append(instructions, Instruction{
			Offset:     offset,
			Opcode:     opcode,
			Name:       info.Name,
			Operands:   operands,
			Annotation: annotate(opcode, operands, offset, pool),
		})
		offset += 1 + info.OperandWidth
	}
	return instructions, nil
}

// annotate renders an instruction's operands in terms a reader can follow:
// resolved pool references, absolute branch targets, immediate values.
func annotate(opcode op.Code, operands []byte, offset int, pool *classfile.ConstantPool) string {
	switch opcode {
	case op.BIPush:
		return fmt.Sprintf("%d", int8(operands[0]))
	case op.SIPush:
		return fmt.Sprintf("%d", int16(u16(operands)))
	case op.Ldc:
		return constantAnnotation(pool, uint16(operands[0]))
	case op.LdcW, op.Ldc2W:
		return constantAnnotation(pool, u16(operands))
	case op.ILoad, op.LLoad, op.FLoad, op.DLoad, op.ALoad,
		op.IStore, op.LStore, op.FStore, op.DStore, op.AStore:
		return fmt.Sprintf("local_%d", operands[0])
	case op.IInc:
		return fmt.Sprintf("local_%d += %d", operands[0], int8(operands[1]))
	case op.IfEq, op.IfNe, op.IfLt, op.IfGe, op.IfGt, op.IfLe,
		op.IfICmpEq, op.IfICmpNe, op.IfICmpLt, op.IfICmpGe, op.IfICmpGt, op.IfICmpLe,
		op.IfACmpEq, op.IfACmpNe, op.Goto, op.IfNull, op.IfNonNull:
		return fmt.Sprintf("-> %d", offset+int(int16(u16(operands))))
	case op.GetStatic, op.PutStatic, op.GetField, op.PutField:
		ref, err := pool.FieldRef(u16(operands))
		if err != nil {
			return badRef(u16(operands))
		}
		return fmt.Sprintf("%s.%s:%s", ref.Class, ref.Name, ref.Descriptor)
	case op.InvokeVirtual, op.InvokeSpecial, op.InvokeStatic:
		ref, err := pool.MethodRef(u16(operands))
		if err != nil {
			return badRef(u16(operands))
		}
		return fmt.Sprintf("%s.%s%s", ref.Class, ref.Name, ref.Descriptor)
	case op.New:
		name, err := pool.ClassName(u16(operands))
		if err != nil {
			return badRef(u16(operands))
		}
		return name
	case op.NewArray:
		return arrayTypeName(operands[0])
	default:
		return ""
	}
}

func constantAnnotation(pool *classfile.ConstantPool, index uint16) string {
	entry, err := pool.Entry(index)
	if err != nil {
		return badRef(index)
	}
	switch c := entry.(type) {
	case *classfile.IntegerInfo:
		return fmt.Sprintf("%d", c.Value)
	case *classfile.FloatInfo:
		return fmt.Sprintf("%g", c.Value)
	case *classfile.LongInfo:
		return fmt.Sprintf("%dL", c.Value)
	case *classfile.DoubleInfo:
		return fmt.Sprintf("%g", c.Value)
	case *classfile.StringInfo:
		s, err := pool.StringValue(index)
		if err != nil {
			return badRef(index)
		}
		if len(s) > 80 {
			s = s[:77] + "..."
		}
		return fmt.Sprintf("%q", s)
	default:
		return fmt.Sprintf("#%d (%s)", index, entry.Tag())
	}
}

func badRef(index uint16) string {
	return fmt.Sprintf("#%d (unresolvable)", index)
}

func arrayTypeName(atype byte) string {
	switch atype {
	case 4:
		return "boolean"
	case 5:
		return "char"
	case 6:
		return "float"
	case 7:
		return "double"
	case 8:
		return "byte"
	case 9:
		return "short"
	case 10:
		return "int"
	case 11:
		return "long"
	default:
		return fmt.Sprintf("atype(%d)", atype)
	}
}

func u16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

var (
	boldText   = color.New(color.Bold)
	yellowText = color.New(color.FgYellow)
	cyanText   = color.New(color.FgCyan)
)

// Print writes a string representation of the given instructions to the
// given writer.
func Print(instructions []Instruction, writer io.Writer) {
	tw := tabwriter.NewWriter(writer, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OFFSET\tOPCODE\tOPERANDS\tINFO")
	for _, instr := range instructions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			yellowText.Sprintf("%d", instr.Offset),
			boldText.Sprint(instr.Name),
			formatOperands(instr.Operands),
			cyanText.Sprint(instr.Annotation))
	}
	tw.Flush()
}

func formatOperands(operands []byte) string {
	var sb strings.Builder
	for i, b := range operands {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d", b)
	}
	return sb.String()
}
