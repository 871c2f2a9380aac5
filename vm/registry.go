package vm

import (
	"github.com/javelin-vm/javelin/classfile"
	"github.com/javelin-vm/javelin/errz"
)

// ClassRegistry resolves class names to parsed class files. The machine
// consults its registry the first time a class is referenced; resolved
// classes are cached for the lifetime of the run.
type ClassRegistry interface {
	ResolveClass(name string) (*classfile.Class, error)
}

// MapRegistry is an in-memory registry backed by a map. Useful in tests
// and anywhere the full class set is known up front.
type MapRegistry struct {
	classes map[string]*classfile.Class
}

func NewMapRegistry() *MapRegistry {
	return &MapRegistry{classes: map[string]*classfile.Class{}}
}

func (r *MapRegistry) Add(class *classfile.Class) {
	r.classes[class.Name()] = class
}

func (r *MapRegistry) ResolveClass(name string) (*classfile.Class, error) {
	if class, ok := r.classes[name]; ok {
		return class, nil
	}
	return nil, errz.Newf(errz.ErrClassNotFound, "class %q was not found", name)
}
