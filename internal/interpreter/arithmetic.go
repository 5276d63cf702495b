package interpreter

import (
	"github.com/embervm/embervm/internal/frame"
	"github.com/embervm/embervm/internal/runtime"
)

func (e *Engine) popPair(f *frame.Frame) (runtime.Value, runtime.Value, error) {
	b, err := f.Stack.Pop()
	if err != nil {
		return runtime.Value{}, runtime.Value{}, err
	}
	a, err := f.Stack.Pop()
	if err != nil {
		return runtime.Value{}, runtime.Value{}, err
	}
	return a, b, nil
}

func (e *Engine) execIntBinary(f *frame.Frame, op uint8) stepResult {
	a, b, err := e.popPair(f)
	if err != nil {
		return fail(err)
	}
	x, y := a.Int32(), b.Int32()
	switch op {
	case opIdiv, opIrem:
		if y == 0 {
			return e.raise("java/lang/ArithmeticException")
		}
	}
	var r int32
	switch op {
	case opIadd:
		r = x + y
	case opIsub:
		r = x - y
	case opImul:
		r = x * y
	case opIdiv:
		r = x / y
	case opIrem:
		r = x % y
	case opIand:
		r = x & y
	case opIor:
		r = x | y
	case opIxor:
		r = x ^ y
	case opIshl:
		r = x << (uint32(y) & 0x1F)
	case opIshr:
		r = x >> (uint32(y) & 0x1F)
	case opIushr:
		r = int32(uint32(x) >> (uint32(y) & 0x1F))
	}
	return e.pushOrFail(f, runtime.IntValue(r))
}

func (e *Engine) execLongBinary(f *frame.Frame, op uint8) stepResult {
	a, b, err := e.popPair(f)
	if err != nil {
		return fail(err)
	}
	x, y := a.Int64(), b.Int64()
	switch op {
	case opLdiv, opLrem:
		if y == 0 {
			return e.raise("java/lang/ArithmeticException")
		}
	}
	var r int64
	switch op {
	case opLadd:
		r = x + y
	case opLsub:
		r = x - y
	case opLmul:
		r = x * y
	case opLdiv:
		r = x / y
	case opLrem:
		r = x % y
	case opLand:
		r = x & y
	case opLor:
		r = x | y
	case opLxor:
		r = x ^ y
	case opLshl:
		// shift amount for long shifts comes from an int on the stack
		r = x << (uint64(y) & 0x3F)
	case opLshr:
		r = x >> (uint64(y) & 0x3F)
	case opLushr:
		r = int64(uint64(x) >> (uint64(y) & 0x3F))
	}
	return e.pushOrFail(f, runtime.LongValue(r))
}

func (e *Engine) execFloatBinary(f *frame.Frame, op uint8) stepResult {
	a, b, err := e.popPair(f)
	if err != nil {
		return fail(err)
	}
	x, y := a.Float32(), b.Float32()
	var r float32
	switch op {
	case opFadd:
		r = x + y
	case opFsub:
		r = x - y
	case opFmul:
		r = x * y
	case opFdiv:
		r = x / y
	case opFrem:
		if y != 0 {
			q := x / y
			r = x - float32(int64(q))*y
		}
	}
	return e.pushOrFail(f, runtime.FloatValue(r))
}

func (e *Engine) execDoubleBinary(f *frame.Frame, op uint8) stepResult {
	a, b, err := e.popPair(f)
	if err != nil {
		return fail(err)
	}
	x, y := a.Float64(), b.Float64()
	var r float64
	switch op {
	case opDadd:
		r = x + y
	case opDsub:
		r = x - y
	case opDmul:
		r = x * y
	case opDdiv:
		r = x / y
	case opDrem:
		if y != 0 {
			q := x / y
			r = x - float64(int64(q))*y
		}
	}
	return e.pushOrFail(f, runtime.DoubleValue(r))
}

func (e *Engine) execConvert(f *frame.Frame, op uint8) stepResult {
	v, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	switch op {
	case opI2l:
		return e.pushOrFail(f, runtime.LongValue(int64(v.Int32())))
	case opI2f:
		return e.pushOrFail(f, runtime.FloatValue(float32(v.Int32())))
	case opI2d:
		return e.pushOrFail(f, runtime.DoubleValue(float64(v.Int32())))
	case opL2i:
		return e.pushOrFail(f, runtime.IntValue(int32(v.Int64())))
	case opL2f:
		return e.pushOrFail(f, runtime.FloatValue(float32(v.Int64())))
	case opL2d:
		return e.pushOrFail(f, runtime.DoubleValue(float64(v.Int64())))
	case opF2i:
		return e.pushOrFail(f, runtime.IntValue(runtime.SaturateToInt32(float64(v.Float32()))))
	case opF2l:
		return e.pushOrFail(f, runtime.LongValue(runtime.SaturateToInt64(float64(v.Float32()))))
	case opF2d:
		return e.pushOrFail(f, runtime.DoubleValue(float64(v.Float32())))
	case opD2i:
		return e.pushOrFail(f, runtime.IntValue(runtime.SaturateToInt32(v.Float64())))
	case opD2l:
		return e.pushOrFail(f, runtime.LongValue(runtime.SaturateToInt64(v.Float64())))
	case opD2f:
		return e.pushOrFail(f, runtime.FloatValue(float32(v.Float64())))
	case opI2b:
		return e.pushOrFail(f, runtime.IntValue(int32(int8(v.Int32()))))
	case opI2c:
		return e.pushOrFail(f, runtime.IntValue(int32(uint16(v.Int32()))))
	case opI2s:
		return e.pushOrFail(f, runtime.IntValue(int32(int16(v.Int32()))))
	}
	return ok()
}

func (e *Engine) execCompare(f *frame.Frame, op uint8) stepResult {
	a, b, err := e.popPair(f)
	if err != nil {
		return fail(err)
	}
	switch op {
	case opLcmp:
		return e.pushOrFail(f, runtime.IntValue(cmp64(a.Int64(), b.Int64())))
	case opFcmpl, opFcmpg:
		x, y := a.Float32(), b.Float32()
		if x != x || y != y { // NaN
			if op == opFcmpg {
				return e.pushOrFail(f, runtime.IntValue(1))
			}
			return e.pushOrFail(f, runtime.IntValue(-1))
		}
		return e.pushOrFail(f, runtime.IntValue(cmpF(float64(x), float64(y))))
	case opDcmpl, opDcmpg:
		x, y := a.Float64(), b.Float64()
		if x != x || y != y {
			if op == opDcmpg {
				return e.pushOrFail(f, runtime.IntValue(1))
			}
			return e.pushOrFail(f, runtime.IntValue(-1))
		}
		return e.pushOrFail(f, runtime.IntValue(cmpF(x, y)))
	}
	return ok()
}

func cmp64(x, y int64) int32 {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func cmpF(x, y float64) int32 {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func (e *Engine) execIfUnary(f *frame.Frame, op uint8) stepResult {
	branchPC := f.PC - 1
	offset := int(readI16(f))
	v, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	x := v.Int32()
	var take bool
	switch op {
	case opIfeq:
		take = x == 0
	case opIfne:
		take = x != 0
	case opIflt:
		take = x < 0
	case opIfge:
		take = x >= 0
	case opIfgt:
		take = x > 0
	case opIfle:
		take = x <= 0
	}
	if take {
		f.PC = branchPC + offset
	}
	return ok()
}

func (e *Engine) execIfICmp(f *frame.Frame, op uint8) stepResult {
	branchPC := f.PC - 1
	offset := int(readI16(f))
	a, b, err := e.popPair(f)
	if err != nil {
		return fail(err)
	}
	x, y := a.Int32(), b.Int32()
	var take bool
	switch op {
	case opIfIcmpeq:
		take = x == y
	case opIfIcmpne:
		take = x != y
	case opIfIcmplt:
		take = x < y
	case opIfIcmpge:
		take = x >= y
	case opIfIcmpgt:
		take = x > y
	case opIfIcmple:
		take = x <= y
	}
	if take {
		f.PC = branchPC + offset
	}
	return ok()
}

func (e *Engine) execIfACmp(f *frame.Frame, op uint8) stepResult {
	branchPC := f.PC - 1
	offset := int(readI16(f))
	a, b, err := e.popPair(f)
	if err != nil {
		return fail(err)
	}
	eq := a.Ref == b.Ref
	take := eq
	if op == opIfAcmpne {
		take = !eq
	}
	if take {
		f.PC = branchPC + offset
	}
	return ok()
}
