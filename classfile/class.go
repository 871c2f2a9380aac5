package classfile

import (
	"github.com/javelin-vm/javelin/errz"
)

// Class access and property flags.
const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccProtected = 0x0004
	AccStatic    = 0x0008
	AccFinal     = 0x0010
	AccSuper     = 0x0020
	AccNative    = 0x0100
	AccInterface = 0x0200
	AccAbstract  = 0x0400
)

// MemberKey identifies a method within a class. Descriptors disambiguate
// overloaded names.
type MemberKey struct {
	Name       string
	Descriptor string
}

// Class is the decoded, queryable view of one loaded class. It is created
// once per load, immutable afterwards, and safe to share read-only across
// every frame executing its methods.
type Class struct {
	name         string
	superName    string // empty only for the root class
	accessFlags  uint16
	majorVersion uint16
	minorVersion uint16
	pool         *ConstantPool
	interfaces   []string
	methods      map[MemberKey]*Method
	methodOrder  []MemberKey
	fields       map[string]*Field
	fieldOrder   []string
	sourceFile   string
}

// NewClass constructs a class around a constant pool. The parser is the
// usual caller; tests and embedders may construct classes directly.
func NewClass(name, superName string, pool *ConstantPool) *Class {
	return &Class{
		name:      name,
		superName: superName,
		pool:      pool,
		methods:   map[MemberKey]*Method{},
		fields:    map[string]*Field{},
	}
}

// Name returns the internal class name, e.g. "java/lang/Object".
func (c *Class) Name() string { return c.name }

// SuperName returns the internal name of the superclass, or "" for the root.
func (c *Class) SuperName() string { return c.superName }

// Pool returns the class's constant pool.
func (c *Class) Pool() *ConstantPool { return c.pool }

// AccessFlags returns the class access flag bits.
func (c *Class) AccessFlags() uint16 { return c.accessFlags }

// Version returns the (major, minor) class file version.
func (c *Class) Version() (uint16, uint16) { return c.majorVersion, c.minorVersion }

// Interfaces returns the internal names of implemented interfaces.
func (c *Class) Interfaces() []string { return c.interfaces }

// SourceFile returns the SourceFile attribute value, or "".
func (c *Class) SourceFile() string { return c.sourceFile }

// AddMethod registers a method. Re-registering the same (name, descriptor)
// is a load-time format error. The parsed descriptor is filled in if the
// caller did not provide one.
func (c *Class) AddMethod(m *Method) error {
	key := MemberKey{Name: m.Name, Descriptor: m.Descriptor}
	if _, exists := c.methods[key]; exists {
		return errz.Newf(errz.ErrFormat, "duplicate method %s%s in class %s",
			m.Name, m.Descriptor, c.name)
	}
	if m.Desc == nil {
		desc, err := ParseMethodDescriptor(m.Descriptor)
		if err != nil {
			return err
		}
		m.Desc = desc
	}
	c.methods[key] = m
	c.methodOrder = append(c.methodOrder, key)
	return nil
}

// Method looks up a method by name and descriptor.
func (c *Class) Method(name, descriptor string) (*Method, bool) {
	m, ok := c.methods[MemberKey{Name: name, Descriptor: descriptor}]
	return m, ok
}

// MethodsByName returns all methods with the given name, in declaration
// order.
func (c *Class) MethodsByName(name string) []*Method {
	var out []*Method
	for _, key := range c.methodOrder {
		if key.Name == name {
			out = append(out, c.methods[key])
		}
	}
	return out
}

// Methods returns all methods in declaration order.
func (c *Class) Methods() []*Method {
	out := make([]*Method, 0, len(c.methodOrder))
	for _, key := range c.methodOrder {
		out = append(out, c.methods[key])
	}
	return out
}

// AddField registers a field declaration.
func (c *Class) AddField(f *Field) error {
	if _, exists := c.fields[f.Name]; exists {
		return errz.Newf(errz.ErrFormat, "duplicate field %s in class %s", f.Name, c.name)
	}
	c.fields[f.Name] = f
	c.fieldOrder = append(c.fieldOrder, f.Name)
	return nil
}

// Field looks up a field declaration by name.
func (c *Class) Field(name string) (*Field, bool) {
	f, ok := c.fields[name]
	return f, ok
}

// Fields returns all field declarations in declaration order.
func (c *Class) Fields() []*Field {
	out := make([]*Field, 0, len(c.fieldOrder))
	for _, name := range c.fieldOrder {
		out = append(out, c.fields[name])
	}
	return out
}

// Method is one method of a class: its identity, flags, and executable code.
type Method struct {
	Name        string
	Descriptor  string
	AccessFlags uint16
	Code        *Code
	Exceptions  []string // declared thrown classes, diagnostics only
	Desc        *MethodDescriptor
}

// IsStatic reports whether the method has the static flag.
func (m *Method) IsStatic() bool {
	return m.AccessFlags&AccStatic != 0
}

// Field is one field declaration of a class.
type Field struct {
	Name        string
	Descriptor  string
	AccessFlags uint16
	// ConstantValueIndex points into the pool for static fields initialized
	// from a ConstantValue attribute; 0 means none.
	ConstantValueIndex uint16
}

// IsStatic reports whether the field has the static flag.
func (f *Field) IsStatic() bool {
	return f.AccessFlags&AccStatic != 0
}

// Code is the executable payload of a method.
type Code struct {
	MaxStack  int
	MaxLocals int
	Bytes     []byte
	// ExceptionTable and LineNumbers are side tables consumed only for
	// diagnostics.
	ExceptionTable []ExceptionEntry
	LineNumbers    []LineNumber
}

// ExceptionEntry is one row of a Code attribute's exception table.
type ExceptionEntry struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// LineNumber maps a code offset to a source line.
type LineNumber struct {
	StartPC uint16
	Line    uint16
}

// LineFor returns the source line covering the given pc, or 0 when the
// method carries no line number table.
func (c *Code) LineFor(pc int) int {
	if len(c.LineNumbers) == 0 {
		return 0
	}
	// Entries are sorted by StartPC in well-formed files; be tolerant of
	// unsorted input by scanning for the greatest StartPC <= pc.
	best := -1
	for i, entry := range c.LineNumbers {
		if int(entry.StartPC) <= pc && (best < 0 || entry.StartPC >= c.LineNumbers[best].StartPC) {
			best = i
		}
	}
	if best < 0 {
		return 0
	}
	return int(c.LineNumbers[best].Line)
}

// RawAttribute is an attribute the loader does not interpret, retained
// verbatim so tooling can inspect it.
type RawAttribute struct {
	Name string
	Data []byte
}
