package object

// NullType is the null reference. Use the object.Null singleton rather than
// constructing new values.
type NullType struct{}

func (n *NullType) Type() Type {
	return NULL
}

func (n *NullType) Inspect() string {
	return "null"
}

func (n *NullType) Interface() interface{} {
	return nil
}

func (n *NullType) String() string {
	return "null"
}

func (n *NullType) Equals(other Object) bool {
	_, ok := other.(*NullType)
	return ok
}
