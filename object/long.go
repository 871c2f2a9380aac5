package object

import "strconv"

// Long wraps int64 and implements the Object interface. It corresponds to
// the 64-bit integer value category of the class file format.
type Long struct {
	value int64
}

func (l *Long) Type() Type {
	return LONG
}

func (l *Long) Value() int64 {
	return l.value
}

func (l *Long) Inspect() string {
	return strconv.FormatInt(l.value, 10)
}

func (l *Long) Interface() interface{} {
	return l.value
}

func (l *Long) String() string {
	return l.Inspect()
}

func (l *Long) Equals(other Object) bool {
	if o, ok := other.(*Long); ok {
		return l.value == o.value
	}
	return false
}

func NewLong(value int64) *Long {
	return &Long{value: value}
}
