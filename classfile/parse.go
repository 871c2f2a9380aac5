package classfile

import (
	"io"
	"math"
	"os"

	"github.com/javelin-vm/javelin/errz"
)

// Magic is the four-byte signature at the start of every class file.
const Magic = 0xCAFEBABE

// Attribute names the parser understands. Anything else is retained raw.
const (
	attrCode            = "Code"
	attrLineNumberTable = "LineNumberTable"
	attrSourceFile      = "SourceFile"
	attrConstantValue   = "ConstantValue"
	attrExceptions      = "Exceptions"
)

// ParseFile reads and parses a class file from disk.
func ParseFile(path string) (*Class, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errz.Newf(errz.ErrFormat, "reading %s", path).WithCause(err)
	}
	return ParseBytes(data)
}

// Parse reads and parses a class file from a stream.
func Parse(r io.Reader) (*Class, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errz.New(errz.ErrFormat, "reading class file").WithCause(err)
	}
	return ParseBytes(data)
}

// ParseBytes parses a class file held in memory: magic, version, constant
// pool, class identity, interfaces, fields, methods, and class attributes.
func ParseBytes(data []byte) (*Class, error) {
	r := newReader(data)

	if magic := r.u4(); r.Err() == nil && magic != Magic {
		return nil, errz.Newf(errz.ErrFormat,
			"bad magic 0x%08X, not a class file", magic)
	}
	minor := r.u2()
	major := r.u2()

	poolCount := r.u2()
	constants, err := parseConstants(r, poolCount)
	if err != nil {
		return nil, err
	}
	pool, err := NewConstantPool(constants)
	if err != nil {
		return nil, err
	}

	accessFlags := r.u2()
	thisIndex := r.u2()
	superIndex := r.u2()
	if err := r.Err(); err != nil {
		return nil, err
	}

	name, err := pool.ClassName(thisIndex)
	if err != nil {
		return nil, errz.New(errz.ErrFormat, "resolving this_class").WithCause(err)
	}
	superName := ""
	if superIndex != 0 {
		superName, err = pool.ClassName(superIndex)
		if err != nil {
			return nil, errz.New(errz.ErrFormat, "resolving super_class").WithCause(err)
		}
	}

	class := NewClass(name, superName, pool)
	class.accessFlags = accessFlags
	class.majorVersion = major
	class.minorVersion = minor

	interfaceCount := r.u2()
	for i := 0; i < int(interfaceCount); i++ {
		ifaceName, err := pool.ClassName(r.u2())
		if err != nil {
			return nil, errz.New(errz.ErrFormat, "resolving interface").WithCause(err)
		}
		class.interfaces = append(class.interfaces, ifaceName)
	}

	fieldCount := r.u2()
	for i := 0; i < int(fieldCount); i++ {
		field, err := parseField(r, pool)
		if err != nil {
			return nil, err
		}
		if err := class.AddField(field); err != nil {
			return nil, err
		}
	}

	methodCount := r.u2()
	for i := 0; i < int(methodCount); i++ {
		method, err := parseMethod(r, pool)
		if err != nil {
			return nil, err
		}
		if err := class.AddMethod(method); err != nil {
			return nil, err
		}
	}

	classAttrCount := r.u2()
	for i := 0; i < int(classAttrCount); i++ {
		attrName, data, err := parseAttribute(r, pool)
		if err != nil {
			return nil, err
		}
		if attrName == attrSourceFile {
			ar := newReader(data)
			sourceFile, err := pool.Utf8(ar.u2())
			if err != nil {
				return nil, errz.New(errz.ErrFormat, "resolving SourceFile").WithCause(err)
			}
			class.sourceFile = sourceFile
		}
	}

	if err := r.Err(); err != nil {
		return nil, err
	}
	return class, nil
}

// parseConstants decodes poolCount-1 slots worth of entries. A Long or
// Double consumes two of the declared slots.
func parseConstants(r *reader, poolCount uint16) ([]Constant, error) {
	var constants []Constant
	slots := int(poolCount) - 1
	for consumed := 0; consumed < slots; {
		tag := Tag(r.u1())
		if err := r.Err(); err != nil {
			return nil, err
		}
		var c Constant
		switch tag {
		case TagUtf8:
			length := r.u2()
			c = &Utf8Info{Value: string(r.bytes(int(length)))}
		case TagInteger:
			c = &IntegerInfo{Value: int32(r.u4())}
		case TagFloat:
			c = &FloatInfo{Value: r.f4()}
		case TagLong:
			high := uint64(r.u4())
			low := uint64(r.u4())
			c = &LongInfo{Value: int64(high<<32 | low)}
		case TagDouble:
			high := uint64(r.u4())
			low := uint64(r.u4())
			c = &DoubleInfo{Value: math.Float64frombits(high<<32 | low)}
		case TagClass:
			c = &ClassInfo{NameIndex: r.u2()}
		case TagString:
			c = &StringInfo{Utf8Index: r.u2()}
		case TagFieldref:
			c = &FieldrefInfo{ClassIndex: r.u2(), NameAndTypeIndex: r.u2()}
		case TagMethodref:
			c = &MethodrefInfo{ClassIndex: r.u2(), NameAndTypeIndex: r.u2()}
		case TagInterfaceMethodref:
			c = &InterfaceMethodrefInfo{ClassIndex: r.u2(), NameAndTypeIndex: r.u2()}
		case TagNameAndType:
			c = &NameAndTypeInfo{NameIndex: r.u2(), DescriptorIndex: r.u2()}
		case TagMethodHandle:
			c = &MethodHandleInfo{ReferenceKind: r.u1(), ReferenceIndex: r.u2()}
		case TagMethodType:
			c = &MethodTypeInfo{DescriptorIndex: r.u2()}
		case TagInvokeDynamic:
			c = &InvokeDynamicInfo{BootstrapMethodAttrIndex: r.u2(), NameAndTypeIndex: r.u2()}
		default:
			return nil, errz.Newf(errz.ErrFormat, "unknown constant tag %d", tag)
		}
		if err := r.Err(); err != nil {
			return nil, err
		}
		constants = append(constants, c)
		if Wide(c) {
			consumed += 2
		} else {
			consumed++
		}
	}
	return constants, nil
}

func parseField(r *reader, pool *ConstantPool) (*Field, error) {
	accessFlags := r.u2()
	nameIndex := r.u2()
	descriptorIndex := r.u2()
	if err := r.Err(); err != nil {
		return nil, err
	}
	name, err := pool.Utf8(nameIndex)
	if err != nil {
		return nil, errz.New(errz.ErrFormat, "resolving field name").WithCause(err)
	}
	descriptor, err := pool.Utf8(descriptorIndex)
	if err != nil {
		return nil, errz.New(errz.ErrFormat, "resolving field descriptor").WithCause(err)
	}
	field := &Field{
		Name:        name,
		Descriptor:  descriptor,
		AccessFlags: accessFlags,
	}
	attrCount := r.u2()
	for i := 0; i < int(attrCount); i++ {
		attrName, data, err := parseAttribute(r, pool)
		if err != nil {
			return nil, err
		}
		if attrName == attrConstantValue {
			ar := newReader(data)
			field.ConstantValueIndex = ar.u2()
			if err := ar.Err(); err != nil {
				return nil, err
			}
		}
	}
	return field, nil
}

func parseMethod(r *reader, pool *ConstantPool) (*Method, error) {
	accessFlags := r.u2()
	nameIndex := r.u2()
	descriptorIndex := r.u2()
	if err := r.Err(); err != nil {
		return nil, err
	}
	name, err := pool.Utf8(nameIndex)
	if err != nil {
		return nil, errz.New(errz.ErrFormat, "resolving method name").WithCause(err)
	}
	descriptor, err := pool.Utf8(descriptorIndex)
	if err != nil {
		return nil, errz.New(errz.ErrFormat, "resolving method descriptor").WithCause(err)
	}
	desc, err := ParseMethodDescriptor(descriptor)
	if err != nil {
		return nil, err
	}
	method := &Method{
		Name:        name,
		Descriptor:  descriptor,
		AccessFlags: accessFlags,
		Desc:        desc,
	}
	attrCount := r.u2()
	for i := 0; i < int(attrCount); i++ {
		attrName, data, err := parseAttribute(r, pool)
		if err != nil {
			return nil, err
		}
		switch attrName {
		case attrCode:
			code, err := parseCode(data, pool)
			if err != nil {
				return nil, err
			}
			method.Code = code
		case attrExceptions:
			ar := newReader(data)
			count := ar.u2()
			for j := 0; j < int(count); j++ {
				excName, err := pool.ClassName(ar.u2())
				if err != nil {
					return nil, errz.New(errz.ErrFormat, "resolving Exceptions entry").WithCause(err)
				}
				method.Exceptions = append(method.Exceptions, excName)
			}
			if err := ar.Err(); err != nil {
				return nil, err
			}
		}
	}
	return method, nil
}

// parseCode decodes a Code attribute, including its nested attributes.
func parseCode(data []byte, pool *ConstantPool) (*Code, error) {
	r := newReader(data)
	code := &Code{
		MaxStack:  int(r.u2()),
		MaxLocals: int(r.u2()),
	}
	codeLength := r.u4()
	code.Bytes = append([]byte(nil), r.bytes(int(codeLength))...)

	excCount := r.u2()
	for i := 0; i < int(excCount); i++ {
		code.ExceptionTable = append(code.ExceptionTable, ExceptionEntry{
			StartPC:   r.u2(),
			EndPC:     r.u2(),
			HandlerPC: r.u2(),
			CatchType: r.u2(),
		})
	}

	attrCount := r.u2()
	for i := 0; i < int(attrCount); i++ {
		attrName, attrData, err := parseAttribute(r, pool)
		if err != nil {
			return nil, err
		}
		if attrName == attrLineNumberTable {
			ar := newReader(attrData)
			count := ar.u2()
			for j := 0; j < int(count); j++ {
				code.LineNumbers = append(code.LineNumbers, LineNumber{
					StartPC: ar.u2(),
					Line:    ar.u2(),
				})
			}
			if err := ar.Err(); err != nil {
				return nil, err
			}
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return code, nil
}

// parseAttribute reads one attribute header and payload, resolving the name
// through the pool. Unrecognized attributes are skipped by length rather
// than rejected, so class files using newer attributes still load.
func parseAttribute(r *reader, pool *ConstantPool) (string, []byte, error) {
	nameIndex := r.u2()
	length := r.u4()
	data := r.bytes(int(length))
	if err := r.Err(); err != nil {
		return "", nil, err
	}
	name, err := pool.Utf8(nameIndex)
	if err != nil {
		return "", nil, errz.New(errz.ErrFormat, "resolving attribute name").WithCause(err)
	}
	return name, data, nil
}
