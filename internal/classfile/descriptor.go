package classfile

import (
	"fmt"
	"strings"
)

// DataType is the JVM's primitive/reference type-tag alphabet used in
// field and method descriptors (JVMS 4.3).
type DataType int

const (
	TBoolean DataType = iota
	TByte
	TChar
	TShort
	TInt
	TLong
	TFloat
	TDouble
	TReference
	TArray
	TVoid // return-type only
)

// Category returns the number of local-variable/operand-stack slots a
// value of this type occupies: 2 for long and double, 1 otherwise.
func (t DataType) Category() int {
	if t == TLong || t == TDouble {
		return 2
	}
	return 1
}

func (t DataType) String() string {
	switch t {
	case TBoolean:
		return "boolean"
	case TByte:
		return "byte"
	case TChar:
		return "char"
	case TShort:
		return "short"
	case TInt:
		return "int"
	case TLong:
		return "long"
	case TFloat:
		return "float"
	case TDouble:
		return "double"
	case TReference:
		return "reference"
	case TArray:
		return "array"
	case TVoid:
		return "void"
	default:
		return "unknown"
	}
}

// FieldType is a fully parsed field descriptor: a primitive, a class
// reference (ClassName set), or an array (ElementType/Dimensions set).
type FieldType struct {
	Kind         DataType
	ClassName    string // set when Kind == TReference
	ElementType  *FieldType
	Dimensions   int // set when Kind == TArray
}

func (f *FieldType) String() string {
	switch f.Kind {
	case TReference:
		return "L" + f.ClassName + ";"
	case TArray:
		return strings.Repeat("[", f.Dimensions) + f.ElementType.String()
	default:
		return string(fieldTypeLetter(f.Kind))
	}
}

func fieldTypeLetter(k DataType) byte {
	switch k {
	case TBoolean:
		return 'Z'
	case TByte:
		return 'B'
	case TChar:
		return 'C'
	case TShort:
		return 'S'
	case TInt:
		return 'I'
	case TLong:
		return 'J'
	case TFloat:
		return 'F'
	case TDouble:
		return 'D'
	default:
		return '?'
	}
}

// ParseFieldDescriptor parses a single field descriptor such as "I",
// "Ljava/lang/String;", or "[[I".
func ParseFieldDescriptor(descriptor string) (*FieldType, error) {
	ft, rest, err := parseFieldType(descriptor)
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("classfile: trailing data in field descriptor %q", descriptor)
	}
	return ft, nil
}

func parseFieldType(s string) (*FieldType, string, error) {
	if s == "" {
		return nil, "", fmt.Errorf("classfile: empty field descriptor")
	}
	switch s[0] {
	case 'Z':
		return &FieldType{Kind: TBoolean}, s[1:], nil
	case 'B':
		return &FieldType{Kind: TByte}, s[1:], nil
	case 'C':
		return &FieldType{Kind: TChar}, s[1:], nil
	case 'S':
		return &FieldType{Kind: TShort}, s[1:], nil
	case 'I':
		return &FieldType{Kind: TInt}, s[1:], nil
	case 'J':
		return &FieldType{Kind: TLong}, s[1:], nil
	case 'F':
		return &FieldType{Kind: TFloat}, s[1:], nil
	case 'D':
		return &FieldType{Kind: TDouble}, s[1:], nil
	case 'L':
		idx := strings.IndexByte(s, ';')
		if idx < 0 {
			return nil, "", fmt.Errorf("classfile: unterminated class descriptor %q", s)
		}
		return &FieldType{Kind: TReference, ClassName: s[1:idx]}, s[idx+1:], nil
	case '[':
		dims := 0
		rest := s
		for len(rest) > 0 && rest[0] == '[' {
			dims++
			rest = rest[1:]
		}
		elem, rest, err := parseFieldType(rest)
		if err != nil {
			return nil, "", err
		}
		return &FieldType{Kind: TArray, ElementType: elem, Dimensions: dims}, rest, nil
	default:
		return nil, "", fmt.Errorf("classfile: unknown descriptor character %q in %q", s[0], s)
	}
}

// MethodDescriptor is a parsed "(params)return" method descriptor.
type MethodDescriptor struct {
	Parameters []*FieldType
	ReturnType *FieldType // Kind == TVoid for a void return
}

// ParseMethodDescriptor parses a method descriptor such as
// "(ILjava/lang/String;)Z".
func ParseMethodDescriptor(descriptor string) (*MethodDescriptor, error) {
	if len(descriptor) == 0 || descriptor[0] != '(' {
		return nil, fmt.Errorf("classfile: method descriptor %q missing '('", descriptor)
	}
	rest := descriptor[1:]
	var params []*FieldType
	for len(rest) > 0 && rest[0] != ')' {
		ft, next, err := parseFieldType(rest)
		if err != nil {
			return nil, err
		}
		params = append(params, ft)
		rest = next
	}
	if len(rest) == 0 {
		return nil, fmt.Errorf("classfile: method descriptor %q missing ')'", descriptor)
	}
	rest = rest[1:] // skip ')'

	if rest == "V" {
		return &MethodDescriptor{Parameters: params, ReturnType: &FieldType{Kind: TVoid}}, nil
	}
	ret, trailing, err := parseFieldType(rest)
	if err != nil {
		return nil, err
	}
	if trailing != "" {
		return nil, fmt.Errorf("classfile: trailing data in method descriptor %q", descriptor)
	}
	return &MethodDescriptor{Parameters: params, ReturnType: ret}, nil
}

// ParameterSlots returns the number of local-variable slots the parameter
// list occupies (longs and doubles counting twice), not including `this`.
func (m *MethodDescriptor) ParameterSlots() int {
	n := 0
	for _, p := range m.Parameters {
		n += p.Kind.Category()
	}
	return n
}
