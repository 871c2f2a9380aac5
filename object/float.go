package object

import "strconv"

// Float wraps float32 and implements the Object interface. It corresponds to
// the single-precision float value category of the class file format.
type Float struct {
	value float32
}

func (f *Float) Type() Type {
	return FLOAT
}

func (f *Float) Value() float32 {
	return f.value
}

func (f *Float) Inspect() string {
	return strconv.FormatFloat(float64(f.value), 'f', -1, 32)
}

func (f *Float) Interface() interface{} {
	return f.value
}

func (f *Float) String() string {
	return f.Inspect()
}

func (f *Float) Equals(other Object) bool {
	if o, ok := other.(*Float); ok {
		return f.value == o.value
	}
	return false
}

func NewFloat(value float32) *Float {
	return &Float{value: value}
}
