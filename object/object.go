// Package object provides the tagged runtime values that flow through
// operand stacks and local variable slots during execution.
//
// Callers typically type assert an object.Object to a concrete type:
//
//	switch obj := obj.(type) {
//	case *object.Int:
//		// do something with obj.Value()
//	case *object.Ref:
//		// do something with obj.Instance()
//	}
//
// There is no implicit numeric coercion between value categories. Each
// instruction declares the category it operates on and the interpreter
// rejects mismatches rather than converting.
package object

// Type of an object as a string.
type Type string

const (
	INT    Type = "int"
	LONG   Type = "long"
	FLOAT  Type = "float"
	DOUBLE Type = "double"
	STRING Type = "string"
	NULL   Type = "null"
	REF    Type = "ref"
	ARRAY  Type = "array"
)

// Null is the single null reference value.
var Null = &NullType{}

// Object is the interface implemented by every runtime value.
type Object interface {
	// Type of the object.
	Type() Type

	// Inspect returns a string representation of the given object.
	Inspect() string

	// Interface converts the given object to a native Go value.
	Interface() interface{}

	// Equals returns true if the given object is equal to this object.
	Equals(other Object) bool
}

// IsNull reports whether the object is the null reference.
func IsNull(obj Object) bool {
	_, ok := obj.(*NullType)
	return ok
}
