package object

import (
	"fmt"
	"sort"
	"strings"
)

// Ref is a reference to a heap-allocated instance. Two refs are equal only
// when they point at the same instance.
type Ref struct {
	instance *Instance
}

func (r *Ref) Type() Type {
	return REF
}

func (r *Ref) Instance() *Instance {
	return r.instance
}

func (r *Ref) Inspect() string {
	return r.instance.Inspect()
}

func (r *Ref) Interface() interface{} {
	return r.instance
}

func (r *Ref) Equals(other Object) bool {
	if o, ok := other.(*Ref); ok {
		return r.instance == o.instance
	}
	return false
}

// Instance is one heap object: its class identity plus named field slots.
// Instances are created by allocation instructions and reclaimed by the host
// garbage collector once no frame or other object references them.
type Instance struct {
	className string
	fields    map[string]Object
}

// NewInstance allocates an instance of the named class with no fields set.
func NewInstance(className string) *Ref {
	return &Ref{instance: &Instance{
		className: className,
		fields:    map[string]Object{},
	}}
}

// ClassName returns the internal name of the instance's class.
func (obj *Instance) ClassName() string {
	return obj.className
}

// GetField returns the named field, or (nil, false) if it was never set.
func (obj *Instance) GetField(name string) (Object, bool) {
	v, ok := obj.fields[name]
	return v, ok
}

// SetField sets the named field.
func (obj *Instance) SetField(name string, value Object) {
	obj.fields[name] = value
}

// FieldNames returns the names of all set fields, sorted.
func (obj *Instance) FieldNames() []string {
	names := make([]string, 0, len(obj.fields))
	for name := range obj.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (obj *Instance) Inspect() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s{", obj.className)
	for i, name := range obj.FieldNames() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%s", name, obj.fields[name].Inspect())
	}
	b.WriteString("}")
	return b.String()
}
