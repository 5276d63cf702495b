// Package runtime holds the JVM's live object model: classes, methods,
// fields, objects, and the tagged Value type that flows between them —
// everything the class loader materialises and the interpreter operates
// on, as opposed to the transient classfile.ClassFile it was parsed from.
package runtime

import (
	"fmt"
	"math"
)

// DataType is the runtime type tag carried by every Value, mirroring
// classfile.DataType but including only the distinctions that matter once
// a descriptor has been resolved (array/class merge into Reference; the
// element type, if needed, lives on the Class).
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
)

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
	default:
		return "unknown"
	}
}

// Category is the number of local-variable/operand-stack slots a value of
// this type occupies: 2 for long and double, 1 otherwise.
func (t DataType) Category() int {
	if t == TLong || t == TDouble {
		return 2
	}
	return 1
}

// Value is a tagged JVM value. Integral types narrower than int (boolean,
// byte, char, short) are stored widened into I, matching how the
// bytecode's own operand stack treats them; Type still distinguishes them
// for assign_to checks and field storage.
type Value struct {
	Type DataType
	I    int64
	F32  float32
	F64  float64
	Ref  *Object // nil means the null reference
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func IntValue(v int32) Value    { return Value{Type: TInt, I: int64(v)} }
func LongValue(v int64) Value   { return Value{Type: TLong, I: v} }
func ByteValue(v int8) Value    { return Value{Type: TByte, I: int64(v)} }
func ShortValue(v int16) Value  { return Value{Type: TShort, I: int64(v)} }
func CharValue(v uint16) Value  { return Value{Type: TChar, I: int64(v)} }
func BoolValue(v bool) Value    { return Value{Type: TBoolean, I: boolToInt64(v)} }
func FloatValue(v float32) Value { return Value{Type: TFloat, F32: v} }
func DoubleValue(v float64) Value { return Value{Type: TDouble, F64: v} }

// RefValue wraps a possibly-nil object reference.
func RefValue(o *Object) Value { return Value{Type: TReference, Ref: o} }

// Null is the reference-typed null value. Its class reference compares
// equal to itself (Ref == nil on both sides) and to no non-null value —
// the "value-level sentinel" the spec describes, expressed directly as
// Go's nil rather than a dedicated sentinel object.
func Null() Value { return Value{Type: TReference} }

func (v Value) IsNull() bool { return v.Type == TReference && v.Ref == nil }

func (v Value) Int32() int32     { return int32(v.I) }
func (v Value) Int64() int64     { return v.I }
func (v Value) Bool() bool       { return v.I != 0 }
func (v Value) Float32() float32 { return v.F32 }
func (v Value) Float64() float64 { return v.F64 }

func (v Value) String() string {
	switch v.Type {
	case TReference:
		if v.Ref == nil {
			return "null"
		}
		return fmt.Sprintf("ref(%p)", v.Ref)
	case TFloat:
		return fmt.Sprintf("%g", v.F32)
	case TDouble:
		return fmt.Sprintf("%g", v.F64)
	default:
		return fmt.Sprintf("%d", v.I)
	}
}

// DefaultValue returns the datatype's default value (false/0/null),
// per the "all slots initialised to the default value" construction rule.
func DefaultValue(t DataType) Value {
	switch t {
	case TReference:
		return Null()
	case TFloat:
		return FloatValue(0)
	case TDouble:
		return DoubleValue(0)
	default:
		return Value{Type: t}
	}
}

// widenRank orders the numeric widening lattice:
// byte < short < int < long < float < double, with char parallel to
// byte/short (char widens to int directly).
func widenRank(t DataType) int {
	switch t {
	case TByte:
		return 0
	case TShort:
		return 1
	case TChar:
		return 1 // same rank as short: both widen directly to int
	case TInt:
		return 2
	case TLong:
		return 3
	case TFloat:
		return 4
	case TDouble:
		return 5
	default:
		return -1
	}
}

// AssignTo converts v to target if the assignment is legal under JLS
// widening/narrowing/reference rules (spec.md §4.7's assign_to relation),
// reporting false if it is not.
func (v Value) AssignTo(target DataType) (Value, bool) {
	if v.Type == target {
		return v, true
	}

	if target == TBoolean {
		if v.Type == TInt {
			return BoolValue(v.I&1 != 0), true
		}
		return Value{}, false
	}
	if v.Type == TBoolean {
		if target == TInt {
			return IntValue(int32(v.I)), true
		}
		return Value{}, false
	}

	if v.Type == TReference || target == TReference {
		// Reference assignability (null, or is-instance-of) is decided by
		// the classloader package, which has the class hierarchy; Value
		// alone cannot answer it.
		return Value{}, false
	}

	switch target {
	case TByte:
		return ByteValue(int8(v.numericInt64())), true
	case TShort:
		return ShortValue(int16(v.numericInt64())), true
	case TChar:
		return CharValue(uint16(v.numericInt64())), true
	case TInt:
		return IntValue(int32(v.numericInt64())), true
	case TLong:
		return LongValue(v.numericInt64()), true
	case TFloat:
		return FloatValue(v.numericFloat32()), true
	case TDouble:
		return DoubleValue(v.numericFloat64()), true
	}
	return Value{}, false
}

func (v Value) numericInt64() int64 {
	switch v.Type {
	case TFloat:
		return int64(saturateF32ToI64(v.F32))
	case TDouble:
		return int64(saturateF64ToI64(v.F64))
	default:
		return v.I
	}
}

func (v Value) numericFloat32() float32 {
	switch v.Type {
	case TFloat:
		return v.F32
	case TDouble:
		return float32(v.F64)
	default:
		return float32(v.I)
	}
}

func (v Value) numericFloat64() float64 {
	switch v.Type {
	case TFloat:
		return float64(v.F32)
	case TDouble:
		return v.F64
	default:
		return float64(v.I)
	}
}

// saturateF32ToI64 and saturateF64ToI64 implement JLS 5.1.3's narrowing
// conversion from floating point to integral types: NaN becomes 0,
// out-of-range values saturate to the target's min/max rather than
// wrapping (the Open Question resolved in DESIGN.md).
func saturateF32ToI64(f float32) int64 {
	if math.IsNaN(float64(f)) {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}

func saturateF64ToI64(f float64) int64 {
	if math.IsNaN(f) {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}

// SaturateToInt32 implements f2i/d2i: NaN -> 0, saturate to int32 range.
func SaturateToInt32(f float64) int32 {
	if math.IsNaN(f) {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	if f <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(f)
}

// SaturateToInt64 implements f2l/d2l: NaN -> 0, saturate to int64 range.
func SaturateToInt64(f float64) int64 {
	return saturateF64ToI64(f)
}
