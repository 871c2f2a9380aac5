package vm

import (
	"fmt"

	"github.com/javelin-vm/javelin/object"
)

// NativeMethod implements a guest method in Go. The receiver is nil for
// static methods. A nil result from a value-returning native is delivered
// to the guest as null.
type NativeMethod func(vm *VirtualMachine, receiver object.Object, args []object.Object) (object.Object, error)

type nativeKey struct {
	class      string
	name       string
	descriptor string
}

// RegisterNative binds a Go function to an exact class, method name and
// descriptor. Natives take precedence over bytecode during invocation.
func (vm *VirtualMachine) RegisterNative(class, name, descriptor string, fn NativeMethod) {
	vm.natives[nativeKey{class, name, descriptor}] = fn
}

// RegisterIntrinsicStatic provides a static field value for a class that has
// no class file, such as java/lang/System.out.
func (vm *VirtualMachine) RegisterIntrinsicStatic(class, field string, value object.Object) {
	vm.intrinsicStatics[class+"."+field] = value
}

// hasNativeClass reports whether any native method is registered for the
// class, which makes the class constructible without a class file.
func (vm *VirtualMachine) hasNativeClass(class string) bool {
	for key := range vm.natives {
		if key.class == class {
			return true
		}
	}
	return false
}

// installDefaultNatives wires the small java.lang / java.io surface that
// compiled programs lean on: System.out, PrintStream.println and the
// Object constructor.
func (vm *VirtualMachine) installDefaultNatives() {
	vm.RegisterIntrinsicStatic("java/lang/System", "out", object.NewInstance("java/io/PrintStream"))

	printValue := func(vm *VirtualMachine, receiver object.Object, args []object.Object) (object.Object, error) {
		_, err := fmt.Fprintln(vm.stdout, displayString(args[0]))
		return nil, err
	}
	for _, descriptor := range []string{
		"(Ljava/lang/String;)V",
		"(Ljava/lang/Object;)V",
		"(I)V",
		"(J)V",
		"(F)V",
		"(D)V",
	} {
		vm.RegisterNative("java/io/PrintStream", "println", descriptor, printValue)
	}
	vm.RegisterNative("java/io/PrintStream", "println", "(Z)V",
		func(vm *VirtualMachine, receiver object.Object, args []object.Object) (object.Object, error) {
			text := "false"
			if v, ok := args[0].(*object.Int); ok && v.Value() != 0 {
				text = "true"
			}
			_, err := fmt.Fprintln(vm.stdout, text)
			return nil, err
		})
	vm.RegisterNative("java/io/PrintStream", "println", "()V",
		func(vm *VirtualMachine, receiver object.Object, args []object.Object) (object.Object, error) {
			_, err := fmt.Fprintln(vm.stdout)
			return nil, err
		})

	noop := func(vm *VirtualMachine, receiver object.Object, args []object.Object) (object.Object, error) {
		return nil, nil
	}
	vm.RegisterNative("java/lang/Object", "<init>", "()V", noop)
	vm.RegisterNative("java/io/PrintStream", "<init>", "()V", noop)
}

// displayString renders a value the way println would: strings unquoted,
// everything else via Inspect.
func displayString(obj object.Object) string {
	if s, ok := obj.(*object.String); ok {
		return s.Value()
	}
	if object.IsNull(obj) {
		return "null"
	}
	return obj.Inspect()
}
