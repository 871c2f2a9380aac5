package object

import (
	"fmt"
	"strings"
)

// ArrayType is the element type code used by the newarray instruction.
type ArrayType byte

const (
	TBoolean ArrayType = 4
	TChar    ArrayType = 5
	TFloat   ArrayType = 6
	TDouble  ArrayType = 7
	TByte    ArrayType = 8
	TShort   ArrayType = 9
	TInt     ArrayType = 10
	TLong    ArrayType = 11
	// TRef is not part of the encoded format; it marks reference arrays
	// created by anewarray-style allocation.
	TRef ArrayType = 0
)

func (t ArrayType) String() string {
	switch t {
	case TBoolean:
		return "boolean"
	case TChar:
		return "char"
	case TFloat:
		return "float"
	case TDouble:
		return "double"
	case TByte:
		return "byte"
	case TShort:
		return "short"
	case TInt:
		return "int"
	case TLong:
		return "long"
	case TRef:
		return "ref"
	default:
		return fmt.Sprintf("atype(%d)", byte(t))
	}
}

// Array is a fixed-length heap array with a declared element type. Element
// slots start out as the zero value for the type: Int(0) for the integral
// categories, Float/Double zero for the floating ones, Null for references.
type Array struct {
	elemType ArrayType
	elems    []Object
}

// NewArray allocates an array of the given element type and length, with
// every slot initialized to the type's zero value.
func NewArray(elemType ArrayType, length int) *Array {
	elems := make([]Object, length)
	var zero Object
	switch elemType {
	case TFloat:
		zero = NewFloat(0)
	case TDouble:
		zero = NewDouble(0)
	case TLong:
		zero = NewLong(0)
	case TRef:
		zero = Null
	default:
		zero = NewInt(0)
	}
	for i := range elems {
		elems[i] = zero
	}
	return &Array{elemType: elemType, elems: elems}
}

func (a *Array) Type() Type {
	return ARRAY
}

// ElemType returns the declared element type of the array.
func (a *Array) ElemType() ArrayType {
	return a.elemType
}

// Len returns the array length.
func (a *Array) Len() int {
	return len(a.elems)
}

// Get returns the element at the given index. The bool result is false when
// the index is out of range.
func (a *Array) Get(index int) (Object, bool) {
	if index < 0 || index >= len(a.elems) {
		return nil, false
	}
	return a.elems[index], true
}

// Set stores the element at the given index. Returns false when the index is
// out of range.
func (a *Array) Set(index int, value Object) bool {
	if index < 0 || index >= len(a.elems) {
		return false
	}
	a.elems[index] = value
	return true
}

func (a *Array) Inspect() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[", a.elemType)
	for i, e := range a.elems {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.Inspect())
	}
	b.WriteString("]")
	return b.String()
}

func (a *Array) Interface() interface{} {
	values := make([]interface{}, len(a.elems))
	for i, e := range a.elems {
		values[i] = e.Interface()
	}
	return values
}

// Equals is identity comparison, matching reference semantics.
func (a *Array) Equals(other Object) bool {
	if o, ok := other.(*Array); ok {
		return a == o
	}
	return false
}
