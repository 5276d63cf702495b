// Package natives binds the internal (non-JNI) native methods: the
// java.lang/java.io/java.util surface real programs touch immediately
// (Object, String, System, PrintStream, Integer, Collections.sort).
// Each binding is a plain Go function operating on already-boxed
// runtime.Value arguments, grounded in the teacher's pkg/native/*.go and
// pkg/vm/vm.go's executeNativeMethod switch.
//
// bindings.yaml is the authoritative (class, method, descriptor) -> id
// manifest; Go doesn't get to invent a binding that isn't listed there,
// and the manifest doesn't get to claim one that has no Go function — NewTable
// cross-validates both directions at construction time rather than
// dispatching through reflection, which would be the only way to let the
// YAML itself drive the call.
package natives

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/embervm/embervm/internal/interpreter"
	"github.com/embervm/embervm/internal/runtime"
)

//go:embed bindings.yaml
var manifestYAML []byte

// binding is one manifest entry.
type binding struct {
	Class      string `yaml:"class"`
	Method     string `yaml:"method"`
	Descriptor string `yaml:"descriptor"`
	ID         string `yaml:"id"`
}

type manifest struct {
	Bindings []binding `yaml:"bindings"`
}

func key(class, method, descriptor string) string {
	return class + "#" + method + "#" + descriptor
}

// Table is the bound native registry, implementing interpreter.NativeTable.
type Table struct {
	funcs map[string]runtime.NativeFunc
}

// NewTable parses bindings.yaml and wires each entry to its Go
// implementation from the id->function table below, returning an error if
// the manifest and the Go-side registry disagree in either direction.
func NewTable(eng *interpreter.Engine) (*Table, error) {
	var m manifest
	if err := yaml.Unmarshal(manifestYAML, &m); err != nil {
		return nil, fmt.Errorf("natives: parsing bindings.yaml: %w", err)
	}

	impls := implementations(eng)
	funcs := make(map[string]runtime.NativeFunc, len(m.Bindings))
	seen := make(map[string]bool, len(impls))

	for _, b := range m.Bindings {
		fn, ok := impls[b.ID]
		if !ok {
			return nil, fmt.Errorf("natives: bindings.yaml references unknown id %q (%s.%s%s)", b.ID, b.Class, b.Method, b.Descriptor)
		}
		funcs[key(b.Class, b.Method, b.Descriptor)] = fn
		seen[b.ID] = true
	}
	for id := range impls {
		if !seen[id] {
			return nil, fmt.Errorf("natives: Go implementation %q has no bindings.yaml entry", id)
		}
	}

	return &Table{funcs: funcs}, nil
}

// Lookup implements interpreter.NativeTable.
func (t *Table) Lookup(className, name, descriptor string) (runtime.NativeFunc, bool) {
	fn, ok := t.funcs[key(className, name, descriptor)]
	return fn, ok
}
