package runtime

// RCPKind tags one resolved runtime constant pool slot.
type RCPKind int

const (
	RCPEmpty RCPKind = iota
	RCPString
	RCPInteger
	RCPFloat
	RCPLong
	RCPDouble
	RCPClassRef
	RCPFieldRef
	RCPMethodRef
	RCPInterfaceMethodRef
	RCPNameAndType
	RCPMethodHandle
	RCPMethodType
	RCPDynamic
	RCPInvokeDynamic
)

// RCPEntry is one resolved constant pool slot. Only the fields relevant
// to Kind are meaningful; classes named by ClassRef/FieldRef/MethodRef
// are *not* loaded at constant-pool build time (lazy resolution, §3).
type RCPEntry struct {
	Kind RCPKind

	Str     string
	Int     int32
	Flt     float32
	Lng     int64
	Dbl     float64

	ClassName  string // RCPClassRef, RCPFieldRef, RCPMethodRef, RCPInterfaceMethodRef (owning class)
	MemberName string // RCPFieldRef, RCPMethodRef, RCPInterfaceMethodRef, RCPNameAndType
	Descriptor string // RCPFieldRef, RCPMethodRef, RCPInterfaceMethodRef, RCPNameAndType
	FieldType  DataType // RCPFieldRef only, parsed from Descriptor

	BootstrapMethodIndex int // RCPDynamic, RCPInvokeDynamic
}

// RuntimeConstantPool is the linker's resolved view of a class's constant
// pool, 1-indexed like the classfile pool it was built from (index 0 is
// always RCPEmpty).
type RuntimeConstantPool struct {
	entries []RCPEntry
}

// NewRuntimeConstantPool allocates a pool with count slots, all empty.
func NewRuntimeConstantPool(count int) *RuntimeConstantPool {
	return &RuntimeConstantPool{entries: make([]RCPEntry, count)}
}

func (p *RuntimeConstantPool) Set(index int, e RCPEntry) { p.entries[index] = e }

func (p *RuntimeConstantPool) Get(index int) (RCPEntry, bool) {
	if index < 0 || index >= len(p.entries) {
		return RCPEntry{}, false
	}
	e := p.entries[index]
	return e, e.Kind != RCPEmpty
}

func (p *RuntimeConstantPool) Len() int { return len(p.entries) }
