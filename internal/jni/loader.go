package jni

import (
	"fmt"

	"github.com/ebitengine/purego"

	"github.com/embervm/embervm/internal/runtime"
)

// Library is a dlopen'd native library, the target of a System.loadLibrary
// call.
type Library struct {
	Path   string
	handle uintptr
}

// OpenLibrary dlopen's path with purego, the same open step libdl.so or
// a bespoke cgo wrapper would perform — purego gets there without a cgo
// toolchain.
func OpenLibrary(path string) (*Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("jni: dlopen %s: %w", path, err)
	}
	return &Library{Path: path, handle: handle}, nil
}

// ResolveSymbol implements the binding half of spec.md §4.6's
// "dynamically-discovered JNI natives (via System.loadLibrary + symbol
// mangling)" extension point. JNI's mangled-name scheme
// (Java_pkg_Class_method, with non-ASCII/overload-disambiguating escapes)
// is exactly the "specified extension point with today's handler
// returning a to-be-implemented stub" spec.md calls out: this
// implementation does not attempt the mangling, and reports that
// explicitly instead of guessing at a symbol name that would silently
// resolve to the wrong function.
func (l *Library) ResolveSymbol(method *runtime.Method) (uintptr, error) {
	return 0, fmt.Errorf("jni: %s.%s: JNI symbol mangling is not implemented, only internal natives are bound", method.Class.Name, method.Name)
}
