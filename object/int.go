package object

import "strconv"

// Int wraps int32 and implements the Object interface. It corresponds to the
// 32-bit integer value category of the class file format.
type Int struct {
	value int32
}

func (i *Int) Type() Type {
	return INT
}

func (i *Int) Value() int32 {
	return i.value
}

func (i *Int) Inspect() string {
	return strconv.FormatInt(int64(i.value), 10)
}

func (i *Int) Interface() interface{} {
	return i.value
}

func (i *Int) String() string {
	return i.Inspect()
}

func (i *Int) Equals(other Object) bool {
	if o, ok := other.(*Int); ok {
		return i.value == o.value
	}
	return false
}

func NewInt(value int32) *Int {
	return &Int{value: value}
}
