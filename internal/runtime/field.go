package runtime

// Field is one declared field: name, resolved datatype, and access flags.
// For reference and array fields, ClassName/ArrayElementType record enough
// of the descriptor to resolve the field's class lazily without re-parsing.
type Field struct {
	Name        string
	Descriptor  string
	Type        DataType
	ClassName   string // set when Type == TReference and the field is not an array
	AccessFlags uint16
}

const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccProtected = 0x0004
	AccStatic    = 0x0008
	AccFinal     = 0x0010
	AccVolatile  = 0x0040
	AccTransient = 0x0080
)

func (f *Field) IsStatic() bool { return f.AccessFlags&AccStatic != 0 }
