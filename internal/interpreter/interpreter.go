// Package interpreter is the bytecode execution engine: the opcode
// dispatch loop (dispatch.go), method invocation and exception-table
// walking (interpreter.go), and the reference-type opcode family — new,
// field/array access, invoke*, checkcast/instanceof (invoke.go).
//
// Method calls are plain Go recursion (Engine.Invoke calling itself for a
// nested invoke*), rather than the teacher's trampoline-of-actions shape —
// Go's own call stack already gives us the JVM call stack for free, so
// re-deriving it with an explicit action algebra would just be the same
// thing twice. See DESIGN.md for the full writeup of this deviation.
package interpreter

import (
	"errors"
	"fmt"

	"github.com/embervm/embervm/internal/classloader"
	"github.com/embervm/embervm/internal/frame"
	"github.com/embervm/embervm/internal/jni"
	"github.com/embervm/embervm/internal/runtime"
	"github.com/embervm/embervm/internal/thread"
)

// Engine is the per-VM interpreter: one registry, one native binding table.
// It is safe for concurrent use by multiple registered OS threads.
type Engine struct {
	Reg     *classloader.Registry
	Natives NativeTable
}

// NativeTable is implemented by internal/natives; kept as an interface here
// so internal/interpreter never imports internal/natives (natives imports
// interpreter's Engine to call back into Java code, e.g. for Comparator
// callbacks, so the dependency has to run that direction only).
type NativeTable interface {
	Lookup(className, name, descriptor string) (runtime.NativeFunc, bool)
}

// NewEngine builds an interpreter bound to reg. SetNatives must be called
// before any native method is invoked.
func NewEngine(reg *classloader.Registry) *Engine {
	return &Engine{Reg: reg}
}

// SetNatives installs the native binding table, after internal/vm has
// constructed it (it needs a *Engine itself, for natives that call back
// into Java).
func (e *Engine) SetNatives(nt NativeTable) { e.Natives = nt }

// ThrownException wraps a live Java exception object propagating as a Go
// error through Invoke's call chain, as opposed to a host-level error
// (missing class, malformed bytecode) which propagates as a plain error.
type ThrownException struct {
	Object *runtime.Object
}

func (t *ThrownException) Error() string {
	if t.Object == nil || t.Object.Class == nil {
		return "exception"
	}
	return "uncaught " + t.Object.Class.Name
}

// NewThrown builds a ThrownException for a named exception class with no
// message, loading and initialising the class first. Natives and the
// interpreter's own built-in checks (NullPointerException,
// ArrayIndexOutOfBoundsException, ...) use this to raise.
func (e *Engine) NewThrown(className string) error {
	class, err := e.Reg.LoadClass(className, classloader.BootstrapLoader, thread.CurrentID())
	if err != nil {
		return fmt.Errorf("interpreter: loading %s to raise it: %w", className, err)
	}
	if err := classloader.EnsureInit(e.Reg, class, thread.CurrentID()); err != nil {
		return err
	}
	obj := runtime.NewInstance(class)
	return &ThrownException{Object: obj}
}

// Invoke is the engine's single entry point for calling a method with
// already-boxed, forward-ordered arguments (receiver first for instance
// methods). It is what classloader.JavaInvoker's RunClinit and
// InvokeLoadClass implementations (internal/vm) call, and what invoke*
// opcodes call recursively for nested method calls.
func (e *Engine) Invoke(class *runtime.Class, method *runtime.Method, args []runtime.Value) (*runtime.Value, error) {
	if method.IsStatic() {
		if err := classloader.EnsureInit(e.Reg, class, thread.CurrentID()); err != nil {
			return nil, err
		}
	}

	f, err := frame.NewWithValues(class, method, args)
	if err != nil {
		return nil, err
	}

	st := thread.Current()
	st.Frames.Push(f)
	defer st.Frames.Pop()

	switch f.Kind {
	case frame.KindJava:
		return e.runJava(f)
	case frame.KindNative:
		return e.runNative(f)
	default:
		return nil, fmt.Errorf("interpreter: unknown frame kind")
	}
}

func (e *Engine) runNative(f *frame.Frame) (*runtime.Value, error) {
	args, err := f.TakeArgs()
	if err != nil {
		return nil, err
	}

	if e.Natives != nil {
		if fn, ok := e.Natives.Lookup(f.Class.Name, f.Method.Name, f.Method.Descriptor); ok {
			return fn(args)
		}
	}

	// Not an internal binding; fall through to a JNI-bound symbol, if
	// one was resolved via System.loadLibrary (jni.Library.ResolveSymbol — today
	// always a stub error, per spec.md §4.6's extension point).
	if sym, ok := f.Method.Native.JNISymbol(); ok {
		cif := jni.BuildCIF(f.Method.ParamTypes, f.Method.ReturnType, f.Method.ReturnsVoid)
		var receiver *runtime.Object
		declared := args
		if !f.Method.IsStatic() {
			receiver = args[0].Ref
			declared = args[1:]
		}
		return cif.Call(sym, 0, receiver, declared)
	}

	return nil, fmt.Errorf("interpreter: no native binding for %s.%s%s", f.Class.Name, f.Method.Name, f.Method.Descriptor)
}

// runJava drives the bytecode decode loop for one Java frame, catching
// thrown exceptions against the method's exception table (§4.5) and
// recursing via Invoke for every invoke* opcode.
func (e *Engine) runJava(f *frame.Frame) (*runtime.Value, error) {
	for {
		startPC := f.PC
		res := e.step(f)

		if res.fatal != nil {
			return nil, res.fatal
		}

		if res.thrown != nil {
			if handlerPC, ok := e.findHandler(f, startPC, res.thrown); ok {
				f.Stack = frame.NewOperandStack(f.Method.Java.MaxStack)
				if err := f.Stack.Push(runtime.RefValue(res.thrown)); err != nil {
					return nil, err
				}
				f.PC = handlerPC
				continue
			}
			return nil, &ThrownException{Object: res.thrown}
		}

		if res.returned {
			if res.isVoid {
				return nil, nil
			}
			return &res.value, nil
		}
	}
}

// findHandler walks f.Method.Java.ExceptionHandlers looking for one whose
// range covers startPC and whose catch type is either catch-all (0) or an
// ancestor of thrown's class.
func (e *Engine) findHandler(f *frame.Frame, startPC int, thrown *runtime.Object) (int, bool) {
	for _, h := range f.Method.Java.ExceptionHandlers {
		if startPC < h.StartPC || startPC >= h.EndPC {
			continue
		}
		if h.CatchType == 0 {
			return h.HandlerPC, true
		}
		entry, ok := f.Class.ConstantPool.Get(int(h.CatchType))
		if !ok || entry.Kind != runtime.RCPClassRef {
			continue
		}
		catchClass, err := e.Reg.LoadClass(entry.ClassName, f.Class.Loader, thread.CurrentID())
		if err != nil {
			continue
		}
		if thrown.Class.IsInstanceOf(catchClass) {
			return h.HandlerPC, true
		}
	}
	return 0, false
}

// unwrapThrown extracts the exception object from err if it is a
// ThrownException, for the invoke* opcodes that fold a nested call's Java
// exception into this frame's own throw handling.
func unwrapThrown(err error) (*runtime.Object, bool) {
	var te *ThrownException
	if errors.As(err, &te) {
		return te.Object, true
	}
	return nil, false
}
