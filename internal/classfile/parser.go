package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const classMagic = 0xCAFEBABE

const (
	attrCode             = "Code"
	attrSourceFile       = "SourceFile"
	attrBootstrapMethods = "BootstrapMethods"
)

// ParseFile reads and parses the class file at path.
func ParseFile(path string) (*ClassFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classfile: reading %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse parses a class file from r (JVMS 4.1).
func Parse(r io.Reader) (*ClassFile, error) {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, newFormatError(Truncated, "reading magic: %v", err)
	}
	if magic != classMagic {
		return nil, newFormatError(BadMagic, "got 0x%08X", magic)
	}

	cf := &ClassFile{}
	if err := binary.Read(r, binary.BigEndian, &cf.MinorVersion); err != nil {
		return nil, newFormatError(Truncated, "reading minor version: %v", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.MajorVersion); err != nil {
		return nil, newFormatError(Truncated, "reading major version: %v", err)
	}
	if cf.MajorVersion < MinSupportedMajor || cf.MajorVersion > MaxSupportedMajor {
		return nil, newFormatError(UnsupportedVersion, "major version %d (supported range %d-%d)",
			cf.MajorVersion, MinSupportedMajor, MaxSupportedMajor)
	}

	var poolCount uint16
	if err := binary.Read(r, binary.BigEndian, &poolCount); err != nil {
		return nil, newFormatError(Truncated, "reading constant_pool_count: %v", err)
	}
	pool, err := parseConstantPool(r, poolCount)
	if err != nil {
		return nil, err
	}
	cf.ConstantPool = pool

	if err := binary.Read(r, binary.BigEndian, &cf.AccessFlags); err != nil {
		return nil, newFormatError(Truncated, "reading access_flags: %v", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.ThisClass); err != nil {
		return nil, newFormatError(Truncated, "reading this_class: %v", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.SuperClass); err != nil {
		return nil, newFormatError(Truncated, "reading super_class: %v", err)
	}

	var interfacesCount uint16
	if err := binary.Read(r, binary.BigEndian, &interfacesCount); err != nil {
		return nil, newFormatError(Truncated, "reading interfaces_count: %v", err)
	}
	cf.Interfaces = make([]uint16, interfacesCount)
	for i := range cf.Interfaces {
		if err := binary.Read(r, binary.BigEndian, &cf.Interfaces[i]); err != nil {
			return nil, newFormatError(Truncated, "reading interface %d: %v", i, err)
		}
	}

	cf.Fields, err = parseFields(r, cf.ConstantPool)
	if err != nil {
		return nil, err
	}

	cf.Methods, err = parseMethods(r, cf.ConstantPool)
	if err != nil {
		return nil, err
	}

	if err := parseClassAttributes(r, cf); err != nil {
		return nil, err
	}

	return cf, nil
}

func parseFields(r io.Reader, pool []ConstantPoolEntry) ([]FieldInfo, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, newFormatError(Truncated, "reading fields_count: %v", err)
	}
	fields := make([]FieldInfo, count)
	for i := range fields {
		var accessFlags, nameIndex, descIndex uint16
		if err := binary.Read(r, binary.BigEndian, &accessFlags); err != nil {
			return nil, newFormatError(Truncated, "reading field %d access_flags: %v", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, newFormatError(Truncated, "reading field %d name_index: %v", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
			return nil, newFormatError(Truncated, "reading field %d descriptor_index: %v", i, err)
		}
		name, err := GetUtf8Raw(pool, nameIndex)
		if err != nil {
			return nil, fmt.Errorf("field %d name: %w", i, err)
		}
		desc, err := GetUtf8Raw(pool, descIndex)
		if err != nil {
			return nil, fmt.Errorf("field %d descriptor: %w", i, err)
		}
		attrs, err := parseAttributeInfos(r, pool)
		if err != nil {
			return nil, fmt.Errorf("field %d attributes: %w", i, err)
		}
		fields[i] = FieldInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc, Attributes: attrs}
	}
	return fields, nil
}

func parseMethods(r io.Reader, pool []ConstantPoolEntry) ([]MethodInfo, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, newFormatError(Truncated, "reading methods_count: %v", err)
	}
	methods := make([]MethodInfo, count)
	for i := range methods {
		var accessFlags, nameIndex, descIndex uint16
		if err := binary.Read(r, binary.BigEndian, &accessFlags); err != nil {
			return nil, newFormatError(Truncated, "reading method %d access_flags: %v", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, newFormatError(Truncated, "reading method %d name_index: %v", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
			return nil, newFormatError(Truncated, "reading method %d descriptor_index: %v", i, err)
		}
		name, err := GetUtf8Raw(pool, nameIndex)
		if err != nil {
			return nil, fmt.Errorf("method %d name: %w", i, err)
		}
		desc, err := GetUtf8Raw(pool, descIndex)
		if err != nil {
			return nil, fmt.Errorf("method %d descriptor: %w", i, err)
		}
		attrs, err := parseAttributeInfos(r, pool)
		if err != nil {
			return nil, fmt.Errorf("method %d attributes: %w", i, err)
		}
		m := MethodInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc, Attributes: attrs}
		for _, a := range attrs {
			if string(a.Name) == attrCode {
				code, err := parseCodeAttribute(a.Data, pool)
				if err != nil {
					return nil, fmt.Errorf("method %d Code attribute: %w", i, err)
				}
				m.Code = code
				break
			}
		}
		methods[i] = m
	}
	return methods, nil
}

func parseAttributeInfos(r io.Reader, pool []ConstantPoolEntry) ([]AttributeInfo, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, newFormatError(Truncated, "reading attributes_count: %v", err)
	}
	attrs := make([]AttributeInfo, count)
	for i := range attrs {
		var nameIndex uint16
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, newFormatError(Truncated, "reading attribute %d name_index: %v", i, err)
		}
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, newFormatError(Truncated, "reading attribute %d length: %v", i, err)
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, newFormatError(BadAttributeLength, "attribute %d claims %d bytes: %v", i, length, err)
		}
		name, err := GetUtf8Raw(pool, nameIndex)
		if err != nil {
			return nil, fmt.Errorf("attribute %d name: %w", i, err)
		}
		attrs[i] = AttributeInfo{Name: name, Data: data}
	}
	return attrs, nil
}

func parseCodeAttribute(data []byte, pool []ConstantPoolEntry) (*CodeAttribute, error) {
	r := bytes.NewReader(data)
	code := &CodeAttribute{}
	if err := binary.Read(r, binary.BigEndian, &code.MaxStack); err != nil {
		return nil, newFormatError(Truncated, "reading max_stack: %v", err)
	}
	if err := binary.Read(r, binary.BigEndian, &code.MaxLocals); err != nil {
		return nil, newFormatError(Truncated, "reading max_locals: %v", err)
	}
	var codeLength uint32
	if err := binary.Read(r, binary.BigEndian, &codeLength); err != nil {
		return nil, newFormatError(Truncated, "reading code_length: %v", err)
	}
	code.Code = make([]byte, codeLength)
	if _, err := io.ReadFull(r, code.Code); err != nil {
		return nil, newFormatError(Truncated, "reading code bytes: %v", err)
	}

	var exceptionTableLength uint16
	if err := binary.Read(r, binary.BigEndian, &exceptionTableLength); err != nil {
		return nil, newFormatError(Truncated, "reading exception_table_length: %v", err)
	}
	code.ExceptionHandlers = make([]ExceptionHandler, exceptionTableLength)
	for i := range code.ExceptionHandlers {
		h := &code.ExceptionHandlers[i]
		if err := binary.Read(r, binary.BigEndian, &h.StartPC); err != nil {
			return nil, newFormatError(Truncated, "reading exception handler %d start_pc: %v", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &h.EndPC); err != nil {
			return nil, newFormatError(Truncated, "reading exception handler %d end_pc: %v", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &h.HandlerPC); err != nil {
			return nil, newFormatError(Truncated, "reading exception handler %d handler_pc: %v", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &h.CatchType); err != nil {
			return nil, newFormatError(Truncated, "reading exception handler %d catch_type: %v", i, err)
		}
	}

	// Nested attributes (LineNumberTable, LocalVariableTable, StackMapTable,
	// etc.) are read to stay positioned correctly but not decoded; none of
	// them are required by interpretation.
	if _, err := parseAttributeInfos(r, pool); err != nil {
		return nil, fmt.Errorf("code attribute nested attributes: %w", err)
	}

	return code, nil
}

func parseClassAttributes(r io.Reader, cf *ClassFile) error {
	attrs, err := parseAttributeInfos(r, cf.ConstantPool)
	if err != nil {
		return fmt.Errorf("class attributes: %w", err)
	}
	for _, a := range attrs {
		switch string(a.Name) {
		case attrSourceFile:
			nameIndex := binary.BigEndian.Uint16(a.Data)
			name, err := GetUtf8Raw(cf.ConstantPool, nameIndex)
			if err != nil {
				return fmt.Errorf("SourceFile attribute: %w", err)
			}
			cf.SourceFile = name

		case attrBootstrapMethods:
			methods, err := parseBootstrapMethods(a.Data)
			if err != nil {
				return fmt.Errorf("BootstrapMethods attribute: %w", err)
			}
			cf.BootstrapMethods = methods
		}
	}
	return nil
}

func parseBootstrapMethods(data []byte) ([]BootstrapMethod, error) {
	r := bytes.NewReader(data)
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, newFormatError(Truncated, "reading num_bootstrap_methods: %v", err)
	}
	methods := make([]BootstrapMethod, count)
	for i := range methods {
		if err := binary.Read(r, binary.BigEndian, &methods[i].MethodRef); err != nil {
			return nil, newFormatError(Truncated, "reading bootstrap method %d ref: %v", i, err)
		}
		var argCount uint16
		if err := binary.Read(r, binary.BigEndian, &argCount); err != nil {
			return nil, newFormatError(Truncated, "reading bootstrap method %d argument count: %v", i, err)
		}
		methods[i].BootstrapArguments = make([]uint16, argCount)
		for j := range methods[i].BootstrapArguments {
			if err := binary.Read(r, binary.BigEndian, &methods[i].BootstrapArguments[j]); err != nil {
				return nil, newFormatError(Truncated, "reading bootstrap method %d argument %d: %v", i, j, err)
			}
		}
	}
	return methods, nil
}
