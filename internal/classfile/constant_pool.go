package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/embervm/embervm/internal/mutf8"
)

// Constant pool tags (JVMS 4.4).
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref           = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// ConstantPoolEntry is implemented by every tagged constant pool variant.
type ConstantPoolEntry interface {
	Tag() uint8
}

type ConstantUtf8 struct{ Value mutf8.Str }

func (c *ConstantUtf8) Tag() uint8 { return TagUtf8 }

type ConstantInteger struct{ Value int32 }

func (c *ConstantInteger) Tag() uint8 { return TagInteger }

type ConstantFloat struct{ Value float32 }

func (c *ConstantFloat) Tag() uint8 { return TagFloat }

type ConstantLong struct{ Value int64 }

func (c *ConstantLong) Tag() uint8 { return TagLong }

type ConstantDouble struct{ Value float64 }

func (c *ConstantDouble) Tag() uint8 { return TagDouble }

type ConstantClass struct{ NameIndex uint16 }

func (c *ConstantClass) Tag() uint8 { return TagClass }

type ConstantString struct{ StringIndex uint16 }

func (c *ConstantString) Tag() uint8 { return TagString }

type ConstantFieldref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantFieldref) Tag() uint8 { return TagFieldref }

type ConstantMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMethodref) Tag() uint8 { return TagMethodref }

type ConstantInterfaceMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantInterfaceMethodref) Tag() uint8 { return TagInterfaceMethodref }

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndType) Tag() uint8 { return TagNameAndType }

type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (c *ConstantMethodHandle) Tag() uint8 { return TagMethodHandle }

type ConstantMethodType struct{ DescriptorIndex uint16 }

func (c *ConstantMethodType) Tag() uint8 { return TagMethodType }

// ConstantDynamic covers both CONSTANT_Dynamic (tag 17, a condy constant
// resolved via a bootstrap method) and shares its layout with
// CONSTANT_InvokeDynamic (tag 18); Invoke distinguishes the two.
type ConstantDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
	Invoke                   bool
}

func (c *ConstantDynamic) Tag() uint8 {
	if c.Invoke {
		return TagInvokeDynamic
	}
	return TagDynamic
}

// ConstantInvokeDynamic is an alias view kept for callers that want to
// assert-switch specifically on invokedynamic entries.
type ConstantInvokeDynamic = ConstantDynamic

type constantModulePackage struct {
	nameIndex uint16
	isModule  bool
}

func (c *constantModulePackage) Tag() uint8 {
	if c.isModule {
		return TagModule
	}
	return TagPackage
}

// parseConstantPool reads constant_pool_count-1 entries. The returned
// slice is 1-indexed: index 0 is nil. Long and double entries consume
// two consecutive slots, per JVMS 4.4.5.
func parseConstantPool(r io.Reader, count uint16) ([]ConstantPoolEntry, error) {
	pool := make([]ConstantPoolEntry, count)

	for i := uint16(1); i < count; i++ {
		var tag uint8
		if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
			return nil, newFormatError(Truncated, "reading constant pool tag at index %d: %v", i, err)
		}

		switch tag {
		case TagUtf8:
			var length uint16
			if err := binary.Read(r, binary.BigEndian, &length); err != nil {
				return nil, newFormatError(Truncated, "reading Utf8 length at index %d: %v", i, err)
			}
			bytes := make([]byte, length)
			if _, err := io.ReadFull(r, bytes); err != nil {
				return nil, newFormatError(Truncated, "reading Utf8 bytes at index %d: %v", i, err)
			}
			pool[i] = &ConstantUtf8{Value: mutf8.Str(bytes)}

		case TagInteger:
			var val int32
			if err := binary.Read(r, binary.BigEndian, &val); err != nil {
				return nil, newFormatError(Truncated, "reading Integer at index %d: %v", i, err)
			}
			pool[i] = &ConstantInteger{Value: val}

		case TagFloat:
			var bits uint32
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, newFormatError(Truncated, "reading Float at index %d: %v", i, err)
			}
			pool[i] = &ConstantFloat{Value: math.Float32frombits(bits)}

		case TagLong:
			var val int64
			if err := binary.Read(r, binary.BigEndian, &val); err != nil {
				return nil, newFormatError(Truncated, "reading Long at index %d: %v", i, err)
			}
			pool[i] = &ConstantLong{Value: val}
			i++ // wide entry occupies two slots

		case TagDouble:
			var bits uint64
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, newFormatError(Truncated, "reading Double at index %d: %v", i, err)
			}
			pool[i] = &ConstantDouble{Value: math.Float64frombits(bits)}
			i++ // wide entry occupies two slots

		case TagClass:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, newFormatError(Truncated, "reading Class at index %d: %v", i, err)
			}
			pool[i] = &ConstantClass{NameIndex: nameIndex}

		case TagString:
			var stringIndex uint16
			if err := binary.Read(r, binary.BigEndian, &stringIndex); err != nil {
				return nil, newFormatError(Truncated, "reading String at index %d: %v", i, err)
			}
			pool[i] = &ConstantString{StringIndex: stringIndex}

		case TagFieldref:
			classIndex, natIndex, err := readRefPair(r)
			if err != nil {
				return nil, newFormatError(Truncated, "reading Fieldref at index %d: %v", i, err)
			}
			pool[i] = &ConstantFieldref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagMethodref:
			classIndex, natIndex, err := readRefPair(r)
			if err != nil {
				return nil, newFormatError(Truncated, "reading Methodref at index %d: %v", i, err)
			}
			pool[i] = &ConstantMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagInterfaceMethodref:
			classIndex, natIndex, err := readRefPair(r)
			if err != nil {
				return nil, newFormatError(Truncated, "reading InterfaceMethodref at index %d: %v", i, err)
			}
			pool[i] = &ConstantInterfaceMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagNameAndType:
			nameIndex, descIndex, err := readRefPair(r)
			if err != nil {
				return nil, newFormatError(Truncated, "reading NameAndType at index %d: %v", i, err)
			}
			pool[i] = &ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: descIndex}

		case TagMethodHandle:
			var refKind uint8
			var refIndex uint16
			if err := binary.Read(r, binary.BigEndian, &refKind); err != nil {
				return nil, newFormatError(Truncated, "reading MethodHandle kind at index %d: %v", i, err)
			}
			if err := binary.Read(r, binary.BigEndian, &refIndex); err != nil {
				return nil, newFormatError(Truncated, "reading MethodHandle ref index at index %d: %v", i, err)
			}
			pool[i] = &ConstantMethodHandle{ReferenceKind: refKind, ReferenceIndex: refIndex}

		case TagMethodType:
			var descIndex uint16
			if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
				return nil, newFormatError(Truncated, "reading MethodType at index %d: %v", i, err)
			}
			pool[i] = &ConstantMethodType{DescriptorIndex: descIndex}

		case TagDynamic, TagInvokeDynamic:
			bsmIndex, natIndex, err := readRefPair(r)
			if err != nil {
				return nil, newFormatError(Truncated, "reading Dynamic/InvokeDynamic at index %d: %v", i, err)
			}
			pool[i] = &ConstantDynamic{
				BootstrapMethodAttrIndex: bsmIndex,
				NameAndTypeIndex:         natIndex,
				Invoke:                   tag == TagInvokeDynamic,
			}

		case TagModule:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, newFormatError(Truncated, "reading Module at index %d: %v", i, err)
			}
			pool[i] = &constantModulePackage{nameIndex: nameIndex, isModule: true}

		case TagPackage:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, newFormatError(Truncated, "reading Package at index %d: %v", i, err)
			}
			pool[i] = &constantModulePackage{nameIndex: nameIndex, isModule: false}

		default:
			return nil, newFormatError(UnknownConstantTag, "tag %d at index %d", tag, i)
		}
	}

	return pool, nil
}

func readRefPair(r io.Reader) (uint16, uint16, error) {
	var a, b uint16
	if err := binary.Read(r, binary.BigEndian, &a); err != nil {
		return 0, 0, err
	}
	if err := binary.Read(r, binary.BigEndian, &b); err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// GetUtf8 returns the decoded Utf8 entry at index as a Go string, for
// diagnostic and name-comparison use.
func GetUtf8(pool []ConstantPoolEntry, index uint16) (string, error) {
	raw, err := GetUtf8Raw(pool, index)
	if err != nil {
		return "", err
	}
	return mutf8.Decode(raw)
}

// GetUtf8Raw returns the undecoded modified UTF-8 bytes at index.
func GetUtf8Raw(pool []ConstantPoolEntry, index uint16) (mutf8.Str, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, newFormatError(IndexOutOfRange, "constant pool index %d", index)
	}
	utf8Entry, ok := pool[index].(*ConstantUtf8)
	if !ok {
		return nil, fmt.Errorf("constant pool index %d is not Utf8 (tag=%d)", index, pool[index].Tag())
	}
	return utf8Entry.Value, nil
}

// GetClassName returns the class name referenced by a CONSTANT_Class entry.
func GetClassName(pool []ConstantPoolEntry, classIndex uint16) (string, error) {
	if int(classIndex) >= len(pool) || pool[classIndex] == nil {
		return "", newFormatError(IndexOutOfRange, "constant pool index %d", classIndex)
	}
	class, ok := pool[classIndex].(*ConstantClass)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Class", classIndex)
	}
	return GetUtf8(pool, class.NameIndex)
}

// MethodRefInfo holds a resolved class/name/descriptor method reference.
type MethodRefInfo struct {
	ClassName  string
	MethodName string
	Descriptor string
}

func resolveNameAndType(pool []ConstantPoolEntry, natIndex uint16) (name, desc string, err error) {
	if int(natIndex) >= len(pool) || pool[natIndex] == nil {
		return "", "", newFormatError(IndexOutOfRange, "NameAndType index %d", natIndex)
	}
	nat, ok := pool[natIndex].(*ConstantNameAndType)
	if !ok {
		return "", "", fmt.Errorf("constant pool index %d is not NameAndType", natIndex)
	}
	name, err = GetUtf8(pool, nat.NameIndex)
	if err != nil {
		return "", "", err
	}
	desc, err = GetUtf8(pool, nat.DescriptorIndex)
	if err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// ResolveMethodref resolves a CONSTANT_Methodref entry.
func ResolveMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, newFormatError(IndexOutOfRange, "constant pool index %d", index)
	}
	mref, ok := pool[index].(*ConstantMethodref)
	if !ok {
		return nil, fmt.Errorf("constant pool index %d is not Methodref", index)
	}
	className, err := GetClassName(pool, mref.ClassIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving Methodref class: %w", err)
	}
	name, desc, err := resolveNameAndType(pool, mref.NameAndTypeIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving Methodref name/type: %w", err)
	}
	return &MethodRefInfo{ClassName: className, MethodName: name, Descriptor: desc}, nil
}

// ResolveInterfaceMethodref resolves a CONSTANT_InterfaceMethodref entry.
func ResolveInterfaceMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, newFormatError(IndexOutOfRange, "constant pool index %d", index)
	}
	mref, ok := pool[index].(*ConstantInterfaceMethodref)
	if !ok {
		return nil, fmt.Errorf("constant pool index %d is not InterfaceMethodref", index)
	}
	className, err := GetClassName(pool, mref.ClassIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving InterfaceMethodref class: %w", err)
	}
	name, desc, err := resolveNameAndType(pool, mref.NameAndTypeIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving InterfaceMethodref name/type: %w", err)
	}
	return &MethodRefInfo{ClassName: className, MethodName: name, Descriptor: desc}, nil
}

// FieldRefInfo holds a resolved class/name/descriptor field reference.
type FieldRefInfo struct {
	ClassName  string
	FieldName  string
	Descriptor string
}

// ResolveFieldref resolves a CONSTANT_Fieldref entry.
func ResolveFieldref(pool []ConstantPoolEntry, index uint16) (*FieldRefInfo, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, newFormatError(IndexOutOfRange, "constant pool index %d", index)
	}
	fref, ok := pool[index].(*ConstantFieldref)
	if !ok {
		return nil, fmt.Errorf("constant pool index %d is not Fieldref", index)
	}
	className, err := GetClassName(pool, fref.ClassIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving Fieldref class: %w", err)
	}
	name, desc, err := resolveNameAndType(pool, fref.NameAndTypeIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving Fieldref name/type: %w", err)
	}
	return &FieldRefInfo{ClassName: className, FieldName: name, Descriptor: desc}, nil
}
