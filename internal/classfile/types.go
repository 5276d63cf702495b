// Package classfile is the immutable, parsed view of a .class byte buffer:
// version, constant pool, access flags, this/super indices, interfaces,
// fields, methods, and the attributes each of those carries. It borrows
// nothing across calls — everything is copied out of the input buffer — and
// is dropped by the caller once the class loader has linked it into a
// runtime Class.
package classfile

import "github.com/embervm/embervm/internal/mutf8"

// Access flag bits (JVMS 4.1, 4.5, 4.6).
const (
	AccPublic     = 0x0001
	AccPrivate    = 0x0002
	AccProtected  = 0x0004
	AccStatic     = 0x0008
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccSynchronized = 0x0020
	AccVolatile   = 0x0040
	AccBridge     = 0x0040
	AccTransient  = 0x0080
	AccVarargs    = 0x0080
	AccNative     = 0x0100
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccStrict     = 0x0800
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
	AccModule     = 0x8000
)

// Supported major version range: Java SE 1.1 (45) through Java SE 11 (55).
const (
	MinSupportedMajor = 45
	MaxSupportedMajor = 55
)

// ClassFile is the parsed, immutable representation of one .class resource.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool []ConstantPoolEntry
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []FieldInfo
	Methods      []MethodInfo
	SourceFile   mutf8.Str // empty if absent

	BootstrapMethods []BootstrapMethod
}

// FieldInfo is one declared field.
type FieldInfo struct {
	AccessFlags uint16
	Name        mutf8.Str
	Descriptor  mutf8.Str
	Attributes  []AttributeInfo
}

// MethodInfo is one declared method. Code is nil for abstract and native
// methods.
type MethodInfo struct {
	AccessFlags uint16
	Name        mutf8.Str
	Descriptor  mutf8.Str
	Attributes  []AttributeInfo
	Code        *CodeAttribute
}

// AttributeInfo is a raw (name, bytes) attribute pair. Attributes beyond
// Code, SourceFile, and BootstrapMethods are kept but not decoded; callers
// interested in them parse Data themselves.
type AttributeInfo struct {
	Name mutf8.Str
	Data []byte
}

// ExceptionHandler is one entry of a Code attribute's exception table.
// CatchType == 0 denotes a catch-all (used by `finally` blocks).
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// CodeAttribute is the decoded form of a method's Code attribute.
type CodeAttribute struct {
	MaxStack          uint16
	MaxLocals         uint16
	Code              []byte
	ExceptionHandlers []ExceptionHandler
}

// BootstrapMethod is one entry of the class-level BootstrapMethods
// attribute, referenced by invokedynamic's bootstrap_method_attr_index.
type BootstrapMethod struct {
	MethodRef          uint16
	BootstrapArguments []uint16
}

// ClassName returns the fully qualified (slash-separated) name of this
// class file's this_class entry.
func (cf *ClassFile) ClassName() (string, error) {
	return GetClassName(cf.ConstantPool, cf.ThisClass)
}

// SuperClassName returns the fully qualified name of the superclass, or ""
// if this class file has no super_class entry (only java/lang/Object).
func (cf *ClassFile) SuperClassName() (string, error) {
	if cf.SuperClass == 0 {
		return "", nil
	}
	return GetClassName(cf.ConstantPool, cf.SuperClass)
}

// FindMethod finds a declared method by exact name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if string(cf.Methods[i].Name) == name && string(cf.Methods[i].Descriptor) == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindField finds a declared field by exact name and descriptor.
func (cf *ClassFile) FindField(name, descriptor string) *FieldInfo {
	for i := range cf.Fields {
		if string(cf.Fields[i].Name) == name && string(cf.Fields[i].Descriptor) == descriptor {
			return &cf.Fields[i]
		}
	}
	return nil
}
