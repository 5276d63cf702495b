package jni

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/embervm/embervm/internal/runtime"
)

// CIF ("call interface") describes one native method's argument/return
// shape well enough to drive a dynamic call: the purego-backed
// equivalent of a libffi ffi_cif. It holds no per-call state; the
// interpreter builds one for each JNI native call.
type CIF struct {
	ParamTypes  []runtime.DataType
	ReturnType  runtime.DataType
	ReturnsVoid bool
}

// BuildCIF derives a CIF from a native method's already-parsed descriptor
// shape.
func BuildCIF(paramTypes []runtime.DataType, returnType runtime.DataType, returnsVoid bool) *CIF {
	return &CIF{ParamTypes: paramTypes, ReturnType: returnType, ReturnsVoid: returnsVoid}
}

// hasFloat reports whether any parameter or the return type needs an
// XMM register. Neither the hand-emitted thunk path nor this CIF/purego
// path passes such values; Call rejects these signatures.
func (c *CIF) hasFloat() bool {
	if c.ReturnType == runtime.TFloat || c.ReturnType == runtime.TDouble {
		return true
	}
	for _, t := range c.ParamTypes {
		if t == runtime.TFloat || t == runtime.TDouble {
			return true
		}
	}
	return false
}

// Call invokes target (env, receiver, then args per c.ParamTypes) through
// purego.SyscallN, which accepts an arbitrary-arity uintptr argument list
// without a hand-written trampoline — the generic path spec.md §4.6
// describes as a libffi-backed alternative to the JIT thunk.
//
// Float/double arguments are not yet packed into XMM registers here
// either (purego.SyscallN itself is integer-register-only); a CIF with
// hasFloat() true is rejected up front rather than silently mis-marshalled.
func (c *CIF) Call(target uintptr, env uintptr, receiver *runtime.Object, args []runtime.Value) (*runtime.Value, error) {
	if c.hasFloat() {
		return nil, fmt.Errorf("jni: float/double native arguments are not supported by the purego call path")
	}
	if len(args) != len(c.ParamTypes) {
		return nil, fmt.Errorf("jni: CIF expects %d arguments, got %d", len(c.ParamTypes), len(args))
	}

	words := make([]uintptr, 0, len(args)+2)
	words = append(words, env, objectWord(receiver))
	for i, v := range args {
		w, err := wordOf(c.ParamTypes[i], v)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}

	r1, _, errno := purego.SyscallN(target, words...)
	if errno != 0 {
		return nil, fmt.Errorf("jni: native call returned errno %d", errno)
	}

	if c.ReturnsVoid {
		return nil, nil
	}
	rv := valueFromWord(c.ReturnType, r1)
	return &rv, nil
}

// objectWord encodes a (possibly nil) object reference as the uintptr a
// native C function expects for jobject/jclass — the Go pointer's bit
// pattern, valid only as long as the object is kept alive by the
// interpreter's own references for the duration of the call.
func objectWord(o *runtime.Object) uintptr {
	if o == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(o))
}

func wordOf(t runtime.DataType, v runtime.Value) (uintptr, error) {
	switch t {
	case runtime.TBoolean, runtime.TByte, runtime.TChar, runtime.TShort, runtime.TInt, runtime.TLong:
		return uintptr(v.I), nil
	case runtime.TReference:
		return objectWord(v.Ref), nil
	default:
		return 0, fmt.Errorf("jni: unsupported argument datatype %s for the integer call path", t)
	}
}

func valueFromWord(t runtime.DataType, w uintptr) runtime.Value {
	switch t {
	case runtime.TReference:
		return runtime.RefValue((*runtime.Object)(unsafe.Pointer(w)))
	case runtime.TLong:
		return runtime.LongValue(int64(w))
	default:
		return runtime.IntValue(int32(w))
	}
}
