package interpreter

import (
	"fmt"

	"github.com/embervm/embervm/internal/classloader"
	"github.com/embervm/embervm/internal/runtime"
	"github.com/embervm/embervm/internal/thread"
)

// NewJavaString boxes a Go string as a java/lang/String instance. The
// class must be present on the boot class path (the real java.base
// module supplies it); this implementation stores the payload in the
// object's NativeString side-table rather than populating String's own
// char[] value field, so internal/natives' String methods read NativeString
// directly instead of walking Java-level field storage.
func (e *Engine) NewJavaString(s string) (*runtime.Object, error) {
	class, err := e.Reg.LoadClass("java/lang/String", classloader.BootstrapLoader, thread.CurrentID())
	if err != nil {
		return nil, fmt.Errorf("interpreter: boxing string, loading java/lang/String: %w", err)
	}
	if err := classloader.EnsureInit(e.Reg, class, thread.CurrentID()); err != nil {
		return nil, err
	}
	obj := runtime.NewInstance(class)
	obj.NativeString = &s
	return obj, nil
}

// JavaString reads a boxed string back out, for natives and toString
// plumbing that receive a java/lang/String reference.
func JavaString(o *runtime.Object) (string, bool) {
	if o == nil || o.NativeString == nil {
		return "", false
	}
	return *o.NativeString, true
}
