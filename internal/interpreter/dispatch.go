package interpreter

import (
	"encoding/binary"
	"fmt"

	"github.com/embervm/embervm/internal/frame"
	"github.com/embervm/embervm/internal/runtime"
)

// stepResult is what executing one instruction yields: either "keep
// going" (the zero value), a method return, a thrown exception to match
// against the exception table, or a fatal (non-Java) error that aborts
// the whole interpreter run — a verifier-should-have-caught invariant
// violation, not something user bytecode can legally trigger.
type stepResult struct {
	returned bool
	isVoid   bool
	value    runtime.Value
	thrown   *runtime.Object
	fatal    error
}

func ok() stepResult                        { return stepResult{} }
func fail(err error) stepResult             { return stepResult{fatal: err} }
func throwObj(o *runtime.Object) stepResult { return stepResult{thrown: o} }
func ret(v runtime.Value) stepResult        { return stepResult{returned: true, value: v} }
func retVoid() stepResult                   { return stepResult{returned: true, isVoid: true} }

func readU8(f *frame.Frame) uint8 {
	b := f.Code[f.PC]
	f.PC++
	return b
}
func readI8(f *frame.Frame) int8 { return int8(readU8(f)) }
func readU16(f *frame.Frame) uint16 {
	v := binary.BigEndian.Uint16(f.Code[f.PC : f.PC+2])
	f.PC += 2
	return v
}
func readI16(f *frame.Frame) int16 { return int16(readU16(f)) }
func readI32(f *frame.Frame) int32 {
	v := int32(binary.BigEndian.Uint32(f.Code[f.PC : f.PC+4]))
	f.PC += 4
	return v
}

// throwFromErr turns a NewThrown-style error into a stepResult: a
// ThrownException unwraps to its live object, anything else is fatal.
func (e *Engine) throwFromErr(err error) stepResult {
	if obj, isThrown := unwrapThrown(err); isThrown {
		return throwObj(obj)
	}
	return fail(err)
}

func (e *Engine) raise(className string) stepResult {
	return e.throwFromErr(e.NewThrown(className))
}

// step executes exactly one instruction, mutating f in place.
func (e *Engine) step(f *frame.Frame) stepResult {
	op := readU8(f)

	switch op {
	case opNop:
		return ok()
	case opAconstNull:
		return e.pushOrFail(f, runtime.Null())
	case opIconstM1, opIconst0, opIconst1, opIconst2, opIconst3, opIconst4, opIconst5:
		return e.pushOrFail(f, runtime.IntValue(int32(op)-int32(opIconst0)))
	case opLconst0, opLconst1:
		return e.pushOrFail(f, runtime.LongValue(int64(op)-int64(opLconst0)))
	case opFconst0, opFconst1, opFconst2:
		return e.pushOrFail(f, runtime.FloatValue(float32(op)-float32(opFconst0)))
	case opDconst0, opDconst1:
		return e.pushOrFail(f, runtime.DoubleValue(float64(op)-float64(opDconst0)))
	case opBipush:
		return e.pushOrFail(f, runtime.IntValue(int32(readI8(f))))
	case opSipush:
		return e.pushOrFail(f, runtime.IntValue(int32(readI16(f))))
	case opLdc:
		return e.execLdc(f, int(readU8(f)))
	case opLdcW, opLdc2W:
		return e.execLdc(f, int(readU16(f)))

	case opIload, opLload, opFload, opDload, opAload:
		return e.pushOrFail(f, f.Locals[readU8(f)])
	case opIload0, opIload1, opIload2, opIload3:
		return e.pushOrFail(f, f.Locals[int(op-opIload0)])
	case opLload0, opLload1, opLload2, opLload3:
		return e.pushOrFail(f, f.Locals[int(op-opLload0)])
	case opFload0, opFload1, opFload2, opFload3:
		return e.pushOrFail(f, f.Locals[int(op-opFload0)])
	case opDload0, opDload1, opDload2, opDload3:
		return e.pushOrFail(f, f.Locals[int(op-opDload0)])
	case opAload0, opAload1, opAload2, opAload3:
		return e.pushOrFail(f, f.Locals[int(op-opAload0)])

	case opIstore, opLstore, opFstore, opDstore, opAstore:
		return e.storeLocal(f, int(readU8(f)))
	case opIstore0, opIstore1, opIstore2, opIstore3:
		return e.storeLocal(f, int(op-opIstore0))
	case opLstore0, opLstore1, opLstore2, opLstore3:
		return e.storeLocal(f, int(op-opLstore0))
	case opFstore0, opFstore1, opFstore2, opFstore3:
		return e.storeLocal(f, int(op-opFstore0))
	case opDstore0, opDstore1, opDstore2, opDstore3:
		return e.storeLocal(f, int(op-opDstore0))
	case opAstore0, opAstore1, opAstore2, opAstore3:
		return e.storeLocal(f, int(op-opAstore0))

	case opIaload, opLaload, opFaload, opDaload, opAaload, opBaload, opCaload, opSaload:
		return e.execArrayLoad(f)
	case opIastore, opLastore, opFastore, opDastore, opAastore, opBastore, opCastore, opSastore:
		return e.execArrayStore(f)

	case opPop:
		_, err := f.Stack.Pop()
		if err != nil {
			return fail(err)
		}
		return ok()
	case opPop2:
		if _, err := f.Stack.Pop(); err != nil {
			return fail(err)
		}
		if _, err := f.Stack.Pop(); err != nil {
			return fail(err)
		}
		return ok()
	case opDup:
		v, err := f.Stack.Peek()
		if err != nil {
			return fail(err)
		}
		return e.pushOrFail(f, v)
	case opDupX1:
		v, err := f.Stack.Peek()
		if err != nil {
			return fail(err)
		}
		if err := f.Stack.InsertAt(2, v); err != nil {
			return fail(err)
		}
		return ok()
	case opDupX2:
		v, err := f.Stack.Peek()
		if err != nil {
			return fail(err)
		}
		if err := f.Stack.InsertAt(3, v); err != nil {
			return fail(err)
		}
		return ok()
	case opDup2:
		a, err := f.Stack.PeekAt(0)
		if err != nil {
			return fail(err)
		}
		b, err := f.Stack.PeekAt(1)
		if err != nil {
			return fail(err)
		}
		if err := f.Stack.Push(b); err != nil {
			return fail(err)
		}
		if err := f.Stack.Push(a); err != nil {
			return fail(err)
		}
		return ok()
	case opSwap:
		a, err := f.Stack.Pop()
		if err != nil {
			return fail(err)
		}
		b, err := f.Stack.Pop()
		if err != nil {
			return fail(err)
		}
		if err := f.Stack.Push(a); err != nil {
			return fail(err)
		}
		if err := f.Stack.Push(b); err != nil {
			return fail(err)
		}
		return ok()

	case opIadd, opIsub, opImul, opIdiv, opIrem, opIand, opIor, opIxor, opIshl, opIshr, opIushr:
		return e.execIntBinary(f, op)
	case opLadd, opLsub, opLmul, opLdiv, opLrem, opLand, opLor, opLxor, opLshl, opLshr, opLushr:
		return e.execLongBinary(f, op)
	case opFadd, opFsub, opFmul, opFdiv, opFrem:
		return e.execFloatBinary(f, op)
	case opDadd, opDsub, opDmul, opDdiv, opDrem:
		return e.execDoubleBinary(f, op)
	case opIneg:
		v, err := f.Stack.Pop()
		if err != nil {
			return fail(err)
		}
		return e.pushOrFail(f, runtime.IntValue(-v.Int32()))
	case opLneg:
		v, err := f.Stack.Pop()
		if err != nil {
			return fail(err)
		}
		return e.pushOrFail(f, runtime.LongValue(-v.Int64()))
	case opFneg:
		v, err := f.Stack.Pop()
		if err != nil {
			return fail(err)
		}
		return e.pushOrFail(f, runtime.FloatValue(-v.Float32()))
	case opDneg:
		v, err := f.Stack.Pop()
		if err != nil {
			return fail(err)
		}
		return e.pushOrFail(f, runtime.DoubleValue(-v.Float64()))
	case opIinc:
		idx := int(readU8(f))
		delta := int32(readI8(f))
		f.Locals[idx] = runtime.IntValue(f.Locals[idx].Int32() + delta)
		return ok()

	case opI2l, opI2f, opI2d, opL2i, opL2f, opL2d, opF2i, opF2l, opF2d, opD2i, opD2l, opD2f, opI2b, opI2c, opI2s:
		return e.execConvert(f, op)

	case opLcmp, opFcmpl, opFcmpg, opDcmpl, opDcmpg:
		return e.execCompare(f, op)

	case opIfeq, opIfne, opIflt, opIfge, opIfgt, opIfle:
		return e.execIfUnary(f, op)
	case opIfIcmpeq, opIfIcmpne, opIfIcmplt, opIfIcmpge, opIfIcmpgt, opIfIcmple:
		return e.execIfICmp(f, op)
	case opIfAcmpeq, opIfAcmpne:
		return e.execIfACmp(f, op)
	case opGoto:
		target := f.PC - 1 + int(readI16(f))
		f.PC = target
		return ok()
	case opIfnull, opIfnonnull:
		branchPC := f.PC - 1
		offset := int(readI16(f))
		v, err := f.Stack.Pop()
		if err != nil {
			return fail(err)
		}
		isNull := v.IsNull()
		if (op == opIfnull) == isNull {
			f.PC = branchPC + offset
		}
		return ok()

	case opIreturn, opFreturn, opAreturn:
		v, err := f.Stack.Pop()
		if err != nil {
			return fail(err)
		}
		return ret(v)
	case opLreturn, opDreturn:
		v, err := f.Stack.Pop()
		if err != nil {
			return fail(err)
		}
		return ret(v)
	case opReturn:
		return retVoid()

	case opGetstatic:
		return e.execGetstatic(f, int(readU16(f)))
	case opPutstatic:
		return e.execPutstatic(f, int(readU16(f)))
	case opGetfield:
		return e.execGetfield(f, int(readU16(f)))
	case opPutfield:
		return e.execPutfield(f, int(readU16(f)))
	case opInvokevirtual:
		return e.execInvokevirtual(f, int(readU16(f)))
	case opInvokespecial:
		return e.execInvokespecial(f, int(readU16(f)))
	case opInvokestatic:
		return e.execInvokestatic(f, int(readU16(f)))
	case opInvokeinterface:
		idx := int(readU16(f))
		readU8(f) // count, unused: argument count is derivable from the descriptor
		readU8(f) // zero byte
		return e.execInvokeinterface(f, idx)
	case opNew:
		return e.execNew(f, int(readU16(f)))
	case opNewarray:
		return e.execNewarray(f, int(readU8(f)))
	case opAnewarray:
		return e.execAnewarray(f, int(readU16(f)))
	case opArraylength:
		return e.execArraylength(f)
	case opAthrow:
		return e.execAthrow(f)
	case opCheckcast:
		return e.execCheckcast(f, int(readU16(f)))
	case opInstanceof:
		return e.execInstanceof(f, int(readU16(f)))
	case opMonitorenter:
		return e.execMonitorenter(f)
	case opMonitorexit:
		return e.execMonitorexit(f)
	case opMultianewarray:
		classIdx := int(readU16(f))
		dims := int(readU8(f))
		return e.execMultianewarray(f, classIdx, dims)

	default:
		return fail(fmt.Errorf("interpreter: unknown opcode 0x%02X at %s.%s%s+%d", op, f.Class.Name, f.Method.Name, f.Method.Descriptor, f.PC-1))
	}
}

func (e *Engine) pushOrFail(f *frame.Frame, v runtime.Value) stepResult {
	if err := f.Stack.Push(v); err != nil {
		return fail(err)
	}
	return ok()
}

func (e *Engine) storeLocal(f *frame.Frame, idx int) stepResult {
	v, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	f.Locals[idx] = v
	return ok()
}

func (e *Engine) execLdc(f *frame.Frame, index int) stepResult {
	entry, ok2 := f.Class.ConstantPool.Get(index)
	if !ok2 {
		return fail(fmt.Errorf("interpreter: ldc of empty constant pool slot %d", index))
	}
	switch entry.Kind {
	case runtime.RCPInteger:
		return e.pushOrFail(f, runtime.IntValue(entry.Int))
	case runtime.RCPFloat:
		return e.pushOrFail(f, runtime.FloatValue(entry.Flt))
	case runtime.RCPLong:
		return e.pushOrFail(f, runtime.LongValue(entry.Lng))
	case runtime.RCPDouble:
		return e.pushOrFail(f, runtime.DoubleValue(entry.Dbl))
	case runtime.RCPString:
		obj, err := e.NewJavaString(entry.Str)
		if err != nil {
			return e.throwFromErr(err)
		}
		return e.pushOrFail(f, runtime.RefValue(obj))
	case runtime.RCPClassRef:
		class, err := e.resolveClass(f, entry.ClassName)
		if err != nil {
			return e.throwFromErr(err)
		}
		mirror := e.ClassMirror(class)
		return e.pushOrFail(f, runtime.RefValue(mirror))
	default:
		return fail(fmt.Errorf("interpreter: ldc of unsupported constant kind %d", entry.Kind))
	}
}
