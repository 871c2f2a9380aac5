package classfile

import "fmt"

// Tag is the discriminator byte that precedes each constant pool entry in
// the binary format.
type Tag uint8

const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagInvokeDynamic      Tag = 18
)

func (t Tag) String() string {
	switch t {
	case TagUtf8:
		return "Utf8"
	case TagInteger:
		return "Integer"
	case TagFloat:
		return "Float"
	case TagLong:
		return "Long"
	case TagDouble:
		return "Double"
	case TagClass:
		return "Class"
	case TagString:
		return "String"
	case TagFieldref:
		return "Fieldref"
	case TagMethodref:
		return "Methodref"
	case TagInterfaceMethodref:
		return "InterfaceMethodref"
	case TagNameAndType:
		return "NameAndType"
	case TagMethodHandle:
		return "MethodHandle"
	case TagMethodType:
		return "MethodType"
	case TagInvokeDynamic:
		return "InvokeDynamic"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// Constant is one constant pool entry. The concrete type identifies the
// entry kind; indices inside an entry refer to other slots of the same pool.
type Constant interface {
	Tag() Tag
}

// Utf8Info holds a modified-UTF8 string literal.
type Utf8Info struct {
	Value string
}

func (c *Utf8Info) Tag() Tag { return TagUtf8 }

// IntegerInfo holds a 32-bit integer literal.
type IntegerInfo struct {
	Value int32
}

func (c *IntegerInfo) Tag() Tag { return TagInteger }

// FloatInfo holds a 32-bit float literal.
type FloatInfo struct {
	Value float32
}

func (c *FloatInfo) Tag() Tag { return TagFloat }

// LongInfo holds a 64-bit integer literal. It occupies two pool slots.
type LongInfo struct {
	Value int64
}

func (c *LongInfo) Tag() Tag { return TagLong }

// DoubleInfo holds a 64-bit float literal. It occupies two pool slots.
type DoubleInfo struct {
	Value float64
}

func (c *DoubleInfo) Tag() Tag { return TagDouble }

// ClassInfo is a symbolic class reference; NameIndex points at a Utf8 entry
// holding the internal class name.
type ClassInfo struct {
	NameIndex uint16
}

func (c *ClassInfo) Tag() Tag { return TagClass }

// StringInfo is a string constant; Utf8Index points at the Utf8 entry
// holding its text.
type StringInfo struct {
	Utf8Index uint16
}

func (c *StringInfo) Tag() Tag { return TagString }

// FieldrefInfo is a symbolic field reference.
type FieldrefInfo struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *FieldrefInfo) Tag() Tag { return TagFieldref }

// MethodrefInfo is a symbolic method reference.
type MethodrefInfo struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *MethodrefInfo) Tag() Tag { return TagMethodref }

// InterfaceMethodrefInfo is a symbolic interface method reference.
type InterfaceMethodrefInfo struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *InterfaceMethodrefInfo) Tag() Tag { return TagInterfaceMethodref }

// NameAndTypeInfo pairs a member name with its descriptor.
type NameAndTypeInfo struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *NameAndTypeInfo) Tag() Tag { return TagNameAndType }

// MethodHandleInfo is parsed for pool completeness; execution of dynamic
// invocation is not supported.
type MethodHandleInfo struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (c *MethodHandleInfo) Tag() Tag { return TagMethodHandle }

// MethodTypeInfo is parsed for pool completeness.
type MethodTypeInfo struct {
	DescriptorIndex uint16
}

func (c *MethodTypeInfo) Tag() Tag { return TagMethodType }

// InvokeDynamicInfo is parsed for pool completeness; the invokedynamic
// instruction itself reports an unsupported operation.
type InvokeDynamicInfo struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *InvokeDynamicInfo) Tag() Tag { return TagInvokeDynamic }

// Wide reports whether a constant occupies two pool slots.
func Wide(c Constant) bool {
	switch c.(type) {
	case *LongInfo, *DoubleInfo:
		return true
	default:
		return false
	}
}
