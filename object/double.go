package object

import "strconv"

// Double wraps float64 and implements the Object interface. It corresponds
// to the double-precision float value category of the class file format.
type Double struct {
	value float64
}

func (d *Double) Type() Type {
	return DOUBLE
}

func (d *Double) Value() float64 {
	return d.value
}

func (d *Double) Inspect() string {
	return strconv.FormatFloat(d.value, 'f', -1, 64)
}

func (d *Double) Interface() interface{} {
	return d.value
}

func (d *Double) String() string {
	return d.Inspect()
}

func (d *Double) Equals(other Object) bool {
	if o, ok := other.(*Double); ok {
		return d.value == o.value
	}
	return false
}

func NewDouble(value float64) *Double {
	return &Double{value: value}
}
