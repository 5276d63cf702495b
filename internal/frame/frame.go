// Package frame defines one call activation record — a Java frame
// (locals, operand stack, bytecode, pc) or a native frame (captured
// function plus pre-boxed arguments) — and the per-thread LIFO stack of
// them. It depends only on internal/runtime so both internal/thread and
// internal/interpreter can share one Frame type without an import cycle.
package frame

import (
	"fmt"

	"github.com/embervm/embervm/internal/runtime"
)

// Kind distinguishes the two frame shapes.
type Kind int

const (
	KindJava Kind = iota
	KindNative
)

// Frame is one activation record.
type Frame struct {
	Kind   Kind
	Class  *runtime.Class
	Method *runtime.Method

	// Java frame fields.
	Locals []runtime.Value
	Stack  *OperandStack
	Code   []byte
	PC     int

	// Native frame fields.
	Args  []runtime.Value // one-shot: consumed by the first dispatch
	fired bool
}

// NewJavaFrame allocates a Java frame sized to the method's Code
// attribute, with every local slot holding the zero Value (Type ==
// TBoolean, I == 0). Slots carry no "unset" marker: a load from a slot
// that was never written is not detected and yields that zero Value.
func NewJavaFrame(class *runtime.Class, method *runtime.Method) *Frame {
	code := method.Java
	return &Frame{
		Kind:   KindJava,
		Class:  class,
		Method: method,
		Locals: make([]runtime.Value, code.MaxLocals),
		Stack:  NewOperandStack(code.MaxStack),
		Code:   code.Bytecode,
		PC:     0,
	}
}

// NewNativeFrame allocates a native frame with its arguments already
// boxed (this first, for instance methods).
func NewNativeFrame(class *runtime.Class, method *runtime.Method, args []runtime.Value) *Frame {
	return &Frame{
		Kind:   KindNative,
		Class:  class,
		Method: method,
		Args:   args,
	}
}

// TakeArgs returns the native frame's argument slice exactly once; later
// calls return an error, matching the "one-shot, fired" contract in
// spec.md §3's Frame entity.
func (f *Frame) TakeArgs() ([]runtime.Value, error) {
	if f.Kind != KindNative {
		panic("frame: TakeArgs on a non-native frame")
	}
	if f.fired {
		return nil, fmt.Errorf("frame: native frame already fired")
	}
	f.fired = true
	return f.Args, nil
}

// NewWithArgs builds a new frame for method, consuming values from args
// (an iterator yielding values in *reverse declaration order*, matching
// how they sit on the caller's operand stack) into the callee's local
// slots in declaration order, with slot 0 holding `this` for instance
// methods. Wide values occupy two slots.
func NewWithArgs(class *runtime.Class, method *runtime.Method, popReverseArg func() (runtime.Value, bool)) (*Frame, error) {
	n := len(method.ParamTypes)
	declared := make([]runtime.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, ok := popReverseArg()
		if !ok {
			return nil, fmt.Errorf("frame: not enough arguments for %s%s", method.Name, method.Descriptor)
		}
		declared[i] = v
	}

	var this runtime.Value
	hasThis := !method.IsStatic()
	if hasThis {
		v, ok := popReverseArg()
		if !ok {
			return nil, fmt.Errorf("frame: missing receiver for %s%s", method.Name, method.Descriptor)
		}
		this = v
		if this.IsNull() {
			return nil, ErrNullReceiver
		}
	}

	if method.CodeKind == runtime.CodeNative {
		args := make([]runtime.Value, 0, n+1)
		if hasThis {
			args = append(args, this)
		}
		args = append(args, declared...)
		return NewNativeFrame(class, method, args), nil
	}

	f := NewJavaFrame(class, method)
	slot := 0
	if hasThis {
		f.Locals[0] = this
		slot = 1
	}
	for _, v := range declared {
		f.Locals[slot] = v
		slot += v.Type.Category()
	}
	return f, nil
}

// NewWithValues builds a new frame for method from args already in
// forward declaration order (this first, for instance methods) — the
// shape Engine.Invoke's callers naturally have on hand, as opposed to
// NewWithArgs's reverse-order operand-stack iterator used by the invoke*
// opcodes.
func NewWithValues(class *runtime.Class, method *runtime.Method, args []runtime.Value) (*Frame, error) {
	hasThis := !method.IsStatic()
	want := len(method.ParamTypes)
	if hasThis {
		want++
	}
	if len(args) != want {
		return nil, fmt.Errorf("frame: %s%s expects %d arguments, got %d", method.Name, method.Descriptor, want, len(args))
	}

	i := 0
	var this runtime.Value
	if hasThis {
		this = args[0]
		i = 1
		if this.IsNull() {
			return nil, ErrNullReceiver
		}
	}
	declared := args[i:]

	if method.CodeKind == runtime.CodeNative {
		return NewNativeFrame(class, method, args), nil
	}

	f := NewJavaFrame(class, method)
	slot := 0
	if hasThis {
		f.Locals[0] = this
		slot = 1
	}
	for _, v := range declared {
		f.Locals[slot] = v
		slot += v.Type.Category()
	}
	return f, nil
}

// ErrNullReceiver is returned by NewWithArgs when an instance method is
// invoked with a null receiver; callers translate it into
// NullPointerException without pushing a frame.
var ErrNullReceiver = fmt.Errorf("frame: null receiver")
