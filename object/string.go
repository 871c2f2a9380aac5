package object

import "fmt"

// String wraps string and implements the Object interface. Strings compare
// by value, so repeated loads of the same pool constant yield equal values.
type String struct {
	value string
}

func (s *String) Type() Type {
	return STRING
}

func (s *String) Value() string {
	return s.value
}

func (s *String) Inspect() string {
	return fmt.Sprintf("%q", s.value)
}

func (s *String) Interface() interface{} {
	return s.value
}

func (s *String) String() string {
	return s.value
}

func (s *String) Equals(other Object) bool {
	if o, ok := other.(*String); ok {
		return s.value == o.value
	}
	return false
}

func NewString(value string) *String {
	return &String{value: value}
}
