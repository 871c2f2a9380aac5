package classfile

import (
	"github.com/hashicorp/go-multierror"

	"github.com/javelin-vm/javelin/errz"
)

// ConstantPool is the indexed table of constants owned by one class.
// Indexing is 1-based with slot 0 unused, matching the binary format, and
// Long/Double entries occupy two slots with the trailing slot unusable.
// Instruction operands were encoded against this scheme, so it is preserved
// exactly. The pool is immutable once built and safe to share across
// concurrent interpreter runs.
type ConstantPool struct {
	// entries[0] is always nil; the slot after a Long or Double is nil too.
	entries []Constant
}

// NameAndType is the fully resolved form of a NameAndTypeInfo entry.
type NameAndType struct {
	Name       string
	Descriptor string
}

// MemberRef is the fully resolved form of a Fieldref, Methodref or
// InterfaceMethodref entry. Callers never see intermediate indices.
type MemberRef struct {
	Class      string
	Name       string
	Descriptor string
}

// NewConstantPool builds a pool from constants in declared order, assigning
// two slots to each Long and Double. Every index declared inside an entry is
// validated to be in range at build time; violations are aggregated and
// returned as a single format error.
func NewConstantPool(constants []Constant) (*ConstantPool, error) {
	entries := make([]Constant, 1, len(constants)+1)
	for _, c := range constants {
		entries = append(entries, c)
		if Wide(c) {
			entries = append(entries, nil)
		}
	}
	pool := &ConstantPool{entries: entries}
	if err := pool.verify(); err != nil {
		return nil, err
	}
	return pool, nil
}

// verify checks that every index declared inside an entry lands in
// [1, Size()). Kind checking happens at resolution time; range checking
// happens once, here.
func (p *ConstantPool) verify() error {
	var result *multierror.Error
	check := func(slot int, what string, index uint16) {
		if int(index) < 1 || int(index) >= len(p.entries) {
			result = multierror.Append(result, errz.Newf(errz.ErrFormat,
				"constant pool entry %d: %s index %d out of range [1, %d)",
				slot, what, index, len(p.entries)))
		}
	}
	for slot, c := range p.entries {
		switch c := c.(type) {
		case *ClassInfo:
			check(slot, "name", c.NameIndex)
		case *StringInfo:
			check(slot, "string", c.Utf8Index)
		case *FieldrefInfo:
			check(slot, "class", c.ClassIndex)
			check(slot, "name-and-type", c.NameAndTypeIndex)
		case *MethodrefInfo:
			check(slot, "class", c.ClassIndex)
			check(slot, "name-and-type", c.NameAndTypeIndex)
		case *InterfaceMethodrefInfo:
			check(slot, "class", c.ClassIndex)
			check(slot, "name-and-type", c.NameAndTypeIndex)
		case *NameAndTypeInfo:
			check(slot, "name", c.NameIndex)
			check(slot, "descriptor", c.DescriptorIndex)
		case *MethodTypeInfo:
			check(slot, "descriptor", c.DescriptorIndex)
		case *InvokeDynamicInfo:
			check(slot, "name-and-type", c.NameAndTypeIndex)
		case *MethodHandleInfo:
			check(slot, "reference", c.ReferenceIndex)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return errz.New(errz.ErrFormat, "invalid constant pool").WithCause(err)
	}
	return nil
}

// Size returns the number of slots, including the unused slot 0 and the
// trailing slots of two-slot entries. This matches the constant_pool_count
// of the binary format.
func (p *ConstantPool) Size() int {
	return len(p.entries)
}

// Entry returns the constant at a 1-based index. Index 0, an out-of-range
// index, or the unusable trailing slot of a Long/Double all yield a
// resolution error.
func (p *ConstantPool) Entry(index uint16) (Constant, error) {
	if int(index) < 1 || int(index) >= len(p.entries) {
		return nil, errz.Newf(errz.ErrResolution,
			"constant pool index %d out of range [1, %d)", index, len(p.entries))
	}
	c := p.entries[index]
	if c == nil {
		return nil, errz.Newf(errz.ErrResolution,
			"constant pool index %d addresses the unusable half of a two-slot entry", index)
	}
	return c, nil
}

func (p *ConstantPool) mismatch(index uint16, got Constant, want Tag) error {
	return errz.Newf(errz.ErrResolution,
		"constant pool entry %d is a %s, expected %s", index, got.Tag(), want)
}

// Utf8 resolves an index expected to hold a Utf8 entry.
func (p *ConstantPool) Utf8(index uint16) (string, error) {
	c, err := p.Entry(index)
	if err != nil {
		return "", err
	}
	utf8, ok := c.(*Utf8Info)
	if !ok {
		return "", p.mismatch(index, c, TagUtf8)
	}
	return utf8.Value, nil
}

// Integer resolves an index expected to hold an Integer entry.
func (p *ConstantPool) Integer(index uint16) (int32, error) {
	c, err := p.Entry(index)
	if err != nil {
		return 0, err
	}
	i, ok := c.(*IntegerInfo)
	if !ok {
		return 0, p.mismatch(index, c, TagInteger)
	}
	return i.Value, nil
}

// Float resolves an index expected to hold a Float entry.
func (p *ConstantPool) Float(index uint16) (float32, error) {
	c, err := p.Entry(index)
	if err != nil {
		return 0, err
	}
	f, ok := c.(*FloatInfo)
	if !ok {
		return 0, p.mismatch(index, c, TagFloat)
	}
	return f.Value, nil
}

// Long resolves an index expected to hold a Long entry.
func (p *ConstantPool) Long(index uint16) (int64, error) {
	c, err := p.Entry(index)
	if err != nil {
		return 0, err
	}
	l, ok := c.(*LongInfo)
	if !ok {
		return 0, p.mismatch(index, c, TagLong)
	}
	return l.Value, nil
}

// Double resolves an index expected to hold a Double entry.
func (p *ConstantPool) Double(index uint16) (float64, error) {
	c, err := p.Entry(index)
	if err != nil {
		return 0, err
	}
	d, ok := c.(*DoubleInfo)
	if !ok {
		return 0, p.mismatch(index, c, TagDouble)
	}
	return d.Value, nil
}

// ClassName resolves a Class entry to the internal class name it references.
func (p *ConstantPool) ClassName(index uint16) (string, error) {
	c, err := p.Entry(index)
	if err != nil {
		return "", err
	}
	info, ok := c.(*ClassInfo)
	if !ok {
		return "", p.mismatch(index, c, TagClass)
	}
	return p.Utf8(info.NameIndex)
}

// StringValue resolves a String entry to its text.
func (p *ConstantPool) StringValue(index uint16) (string, error) {
	c, err := p.Entry(index)
	if err != nil {
		return "", err
	}
	info, ok := c.(*StringInfo)
	if !ok {
		return "", p.mismatch(index, c, TagString)
	}
	return p.Utf8(info.Utf8Index)
}

// NameAndType resolves a NameAndType entry to its name and descriptor text.
func (p *ConstantPool) NameAndType(index uint16) (NameAndType, error) {
	c, err := p.Entry(index)
	if err != nil {
		return NameAndType{}, err
	}
	info, ok := c.(*NameAndTypeInfo)
	if !ok {
		return NameAndType{}, p.mismatch(index, c, TagNameAndType)
	}
	name, err := p.Utf8(info.NameIndex)
	if err != nil {
		return NameAndType{}, err
	}
	descriptor, err := p.Utf8(info.DescriptorIndex)
	if err != nil {
		return NameAndType{}, err
	}
	return NameAndType{Name: name, Descriptor: descriptor}, nil
}

// FieldRef resolves a Fieldref entry to a fully dereferenced member
// reference: owning class name, field name, field descriptor.
func (p *ConstantPool) FieldRef(index uint16) (MemberRef, error) {
	c, err := p.Entry(index)
	if err != nil {
		return MemberRef{}, err
	}
	info, ok := c.(*FieldrefInfo)
	if !ok {
		return MemberRef{}, p.mismatch(index, c, TagFieldref)
	}
	return p.memberRef(info.ClassIndex, info.NameAndTypeIndex)
}

// MethodRef resolves a Methodref or InterfaceMethodref entry to a fully
// dereferenced member reference.
func (p *ConstantPool) MethodRef(index uint16) (MemberRef, error) {
	c, err := p.Entry(index)
	if err != nil {
		return MemberRef{}, err
	}
	switch info := c.(type) {
	case *MethodrefInfo:
		return p.memberRef(info.ClassIndex, info.NameAndTypeIndex)
	case *InterfaceMethodrefInfo:
		return p.memberRef(info.ClassIndex, info.NameAndTypeIndex)
	default:
		return MemberRef{}, p.mismatch(index, c, TagMethodref)
	}
}

func (p *ConstantPool) memberRef(classIndex, natIndex uint16) (MemberRef, error) {
	className, err := p.ClassName(classIndex)
	if err != nil {
		return MemberRef{}, err
	}
	nat, err := p.NameAndType(natIndex)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{Class: className, Name: nat.Name, Descriptor: nat.Descriptor}, nil
}
