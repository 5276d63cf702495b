package classfile

import "fmt"

// FormatErrorKind distinguishes the format-level failure taxonomy from
// spec.md §4.1: missing magic, unsupported version, unknown constant-pool
// tag, unreadable bytes, invalid access-flag bits, attribute with wrong
// length, and referenced index out of range.
type FormatErrorKind int

const (
	BadMagic FormatErrorKind = iota
	UnsupportedVersion
	UnknownConstantTag
	Truncated
	InvalidAccessFlags
	BadAttributeLength
	IndexOutOfRange
)

func (k FormatErrorKind) String() string {
	switch k {
	case BadMagic:
		return "bad magic"
	case UnsupportedVersion:
		return "unsupported version"
	case UnknownConstantTag:
		return "unknown constant pool tag"
	case Truncated:
		return "unreadable bytes"
	case InvalidAccessFlags:
		return "invalid access flags"
	case BadAttributeLength:
		return "attribute with wrong length"
	case IndexOutOfRange:
		return "index out of range"
	default:
		return "unknown format error"
	}
}

// FormatError is a single distinguishable class-file parsing failure.
type FormatError struct {
	Kind FormatErrorKind
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("classfile: %s: %s", e.Kind, e.Msg)
}

func newFormatError(kind FormatErrorKind, format string, args ...any) error {
	return &FormatError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
