package classfile

import (
	"strings"

	"github.com/javelin-vm/javelin/errz"
)

// MethodDescriptor is the decoded parameter/return shape of a method
// descriptor string such as "(ILjava/lang/String;)V". Each parameter and the
// return type is kept as its field descriptor text: "I", "J", "F", "D",
// "Ljava/lang/String;", "[I", and so on. A return of "V" means void.
type MethodDescriptor struct {
	Params []string
	Return string
}

// ParamCount returns the number of declared parameters.
func (d *MethodDescriptor) ParamCount() int {
	return len(d.Params)
}

// ParamSlots returns the number of local variable slots the parameters
// occupy: long and double take two each, everything else one.
func (d *MethodDescriptor) ParamSlots() int {
	slots := 0
	for _, p := range d.Params {
		slots += FieldSlots(p)
	}
	return slots
}

// HasReturn reports whether the method returns a value.
func (d *MethodDescriptor) HasReturn() bool {
	return d.Return != "V"
}

// FieldSlots returns the number of local slots a field descriptor occupies.
func FieldSlots(fieldDescriptor string) int {
	if fieldDescriptor == "J" || fieldDescriptor == "D" {
		return 2
	}
	return 1
}

// ParseMethodDescriptor decodes a method descriptor string.
func ParseMethodDescriptor(descriptor string) (*MethodDescriptor, error) {
	if len(descriptor) < 3 || descriptor[0] != '(' {
		return nil, errz.Newf(errz.ErrFormat, "malformed method descriptor %q", descriptor)
	}
	rest := descriptor[1:]
	var params []string
	for {
		if rest == "" {
			return nil, errz.Newf(errz.ErrFormat,
				"unterminated parameter list in descriptor %q", descriptor)
		}
		if rest[0] == ')' {
			rest = rest[1:]
			break
		}
		param, remaining, err := parseFieldType(rest)
		if err != nil {
			return nil, errz.Newf(errz.ErrFormat,
				"malformed method descriptor %q: %v", descriptor, err)
		}
		params = append(params, param)
		rest = remaining
	}
	if rest == "V" {
		return &MethodDescriptor{Params: params, Return: "V"}, nil
	}
	ret, remaining, err := parseFieldType(rest)
	if err != nil || remaining != "" {
		return nil, errz.Newf(errz.ErrFormat,
			"malformed return type in descriptor %q", descriptor)
	}
	return &MethodDescriptor{Params: params, Return: ret}, nil
}

// parseFieldType consumes one field descriptor from the front of s and
// returns it along with the unconsumed remainder.
func parseFieldType(s string) (string, string, error) {
	if s == "" {
		return "", "", errz.New(errz.ErrFormat, "empty field type")
	}
	switch s[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return s[:1], s[1:], nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return "", "", errz.Newf(errz.ErrFormat, "unterminated class type in %q", s)
		}
		return s[:end+1], s[end+1:], nil
	case '[':
		elem, rest, err := parseFieldType(s[1:])
		if err != nil {
			return "", "", err
		}
		return "[" + elem, rest, nil
	default:
		return "", "", errz.Newf(errz.ErrFormat, "unknown field type %q", s[0])
	}
}
