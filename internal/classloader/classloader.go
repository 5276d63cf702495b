// Package classloader implements class loading, linking, and
// initialization: the registry mapping (name, loader) to load state, the
// load_class algorithm (§4.2), Class::link (§4.3), and ensure_init.
package classloader

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/embervm/embervm/internal/classfile"
	"github.com/embervm/embervm/internal/runtime"
)

// LoadState is a registry entry's load-state (§4.2).
type LoadState int

const (
	Unloaded LoadState = iota
	Loading
	Loaded
	Failed
)

type registryKey struct {
	name   string
	loader runtime.LoaderID
}

type registryEntry struct {
	state         LoadState
	loadingThread uint64
	class         *runtime.Class
	loadErr       error
}

// JavaInvoker is the classloader's dependency-inverted hook into the
// interpreter: invoking a user loader's loadClass method, and running a
// class's <clinit>. Implemented by internal/vm's orchestrator and wired
// in at startup, so this package never imports internal/interpreter.
type JavaInvoker interface {
	InvokeLoadClass(loaderObj *runtime.Object, name string) (*runtime.Class, error)
	RunClinit(method *runtime.Method) error
}

// Registry is the shared class-loading state: the boot class path, the
// (name, loader) -> state map, and the primitive classes created once
// during bootstrap.
type Registry struct {
	mu   sync.Mutex
	cond *sync.Cond

	entries map[registryKey]*registryEntry

	bootClassPath []Source
	invoker       JavaInvoker

	primitives map[string]*runtime.Class
}

// NewRegistry creates a registry with the given boot class path. The
// invoker must be set via SetInvoker before any user-loader class load or
// any class initialization is attempted.
func NewRegistry(bootClassPath []Source) *Registry {
	r := &Registry{
		entries:       make(map[registryKey]*registryEntry),
		bootClassPath: bootClassPath,
		primitives:    make(map[string]*runtime.Class),
	}
	r.cond = sync.NewCond(&r.mu)
	r.seedPrimitives()
	return r
}

func (r *Registry) SetInvoker(inv JavaInvoker) { r.invoker = inv }

// AddBootSources appends to the bootstrap loader's search path. Without a
// modelled system class loader (see DESIGN.md), internal/vm uses this to
// fold the user class path in behind the boot class path, so a program run
// without a custom ClassLoader still finds its own classes via the
// bootstrap loader.
func (r *Registry) AddBootSources(sources []Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bootClassPath = append(r.bootClassPath, sources...)
}

var primitiveDescriptors = map[string]runtime.DataType{
	"boolean": runtime.TBoolean,
	"byte":    runtime.TByte,
	"char":    runtime.TChar,
	"short":   runtime.TShort,
	"int":     runtime.TInt,
	"long":    runtime.TLong,
	"float":   runtime.TFloat,
	"double":  runtime.TDouble,
}

// seedPrimitives creates the eight primitive classes once, by name, using
// the bootstrap loader (§4.2's "Primitive classes are created once during
// bootstrap").
func (r *Registry) seedPrimitives() {
	for name, dt := range primitiveDescriptors {
		c := runtime.NewClass(name, runtime.ClassPrimitive)
		c.Primitive = dt
		c.Loader = runtime.LoaderID{Kind: runtime.Bootstrap}
		c.FinishInit(true) // primitive classes need no <clinit>
		r.primitives[name] = c
	}
}

// PrimitiveClass returns one of the eight pre-seeded primitive classes by
// its source-level name ("int", "boolean", ...).
func (r *Registry) PrimitiveClass(name string) (*runtime.Class, bool) {
	c, ok := r.primitives[name]
	return c, ok
}

// primitiveClassForType finds the pre-seeded primitive class matching a
// runtime.DataType, used when resolving array component types.
func (r *Registry) primitiveClassForType(dt runtime.DataType) (*runtime.Class, bool) {
	for _, c := range r.primitives {
		if c.Primitive == dt {
			return c, true
		}
	}
	return nil, false
}

// BootstrapLoader is the well-known bootstrap loader identity.
var BootstrapLoader = runtime.LoaderID{Kind: runtime.Bootstrap}

// LoadClass implements the load_class algorithm (§4.2): array-type
// recursive handling, registry consultation with condition-variable
// blocking, and dispatch to either the boot class path scan or a user
// loader's loadClass method.
func (r *Registry) LoadClass(name string, loader runtime.LoaderID, currentThread uint64) (*runtime.Class, error) {
	if strings.HasPrefix(name, "[") {
		return r.loadArrayClass(name, loader, currentThread)
	}
	return r.resolve(registryKey{name: name, loader: loader}, currentThread, func() (*runtime.Class, error) {
		return r.doLoad(name, loader, currentThread)
	})
}

// resolve is the shared (name, loader) -> Class state machine used by both
// ordinary class loading and array-class synthesis:
//
//	Unloaded -> Loading(thread, loader) -> Loaded(class) | Failed
//	Failed   -> Loading(...)              (a later attempt may retry)
//
// A recursive request from the thread already loading this key returns the
// tentative (possibly still nil) class rather than deadlocking; this
// mirrors how a class's own <clinit> or a cyclic reference can legally
// observe its own in-progress load.
func (r *Registry) resolve(key registryKey, currentThread uint64, loadFn func() (*runtime.Class, error)) (*runtime.Class, error) {
	r.mu.Lock()
	for {
		entry, exists := r.entries[key]
		if !exists {
			entry = &registryEntry{state: Unloaded}
			r.entries[key] = entry
		}
		switch entry.state {
		case Loading:
			if entry.loadingThread == currentThread {
				r.mu.Unlock()
				return entry.class, nil
			}
			r.cond.Wait()
			continue
		case Loaded:
			r.mu.Unlock()
			return entry.class, nil
		case Failed, Unloaded:
			entry.state = Loading
			entry.loadingThread = currentThread
			r.mu.Unlock()

			class, err := loadFn()

			r.mu.Lock()
			entry = r.entries[key]
			if err != nil {
				entry.state = Failed
				entry.loadErr = err
			} else {
				entry.state = Loaded
				entry.class = class
			}
			r.cond.Broadcast()
			r.mu.Unlock()
			return class, err
		}
	}
}

// lookupLoadedNoBlock peeks the registry without blocking or triggering a
// load; used only for the mirror-class fix-up shortcut in linker.go.
func (r *Registry) lookupLoadedNoBlock(name string, loader runtime.LoaderID) (*runtime.Class, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[registryKey{name: name, loader: loader}]
	if !ok || entry.state != Loaded {
		return nil, false
	}
	return entry.class, true
}

func (r *Registry) doLoad(name string, loader runtime.LoaderID, currentThread uint64) (*runtime.Class, error) {
	if loader.Kind != runtime.Bootstrap {
		if r.invoker == nil {
			return nil, fmt.Errorf("classloader: no invoker set, cannot delegate to user loader for %s", name)
		}
		return r.invoker.InvokeLoadClass(loader.Object, name)
	}

	data, ok, err := FindFirst(r.bootClassPath, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("classloader: class %s not found on boot class path", name)
	}

	cf, err := classfile.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("classloader: parsing %s: %w", name, err)
	}

	return Link(r, name, cf, loader, currentThread)
}

// loadArrayClass synthesizes the array class named by an array descriptor
// such as "[[I" or "[Ljava/lang/String;" (§4.2's array-type handling): the
// component chain is resolved first (recursively, through the same
// registry, so nested array classes are cached individually), and the
// array class's defining loader is always the defining loader of its
// element type (JVMS 5.3.3).
func (r *Registry) loadArrayClass(name string, loader runtime.LoaderID, currentThread uint64) (*runtime.Class, error) {
	ft, err := classfile.ParseFieldDescriptor(name)
	if err != nil {
		return nil, fmt.Errorf("classloader: parsing array descriptor %s: %w", name, err)
	}
	if ft.Kind != classfile.TArray {
		return nil, fmt.Errorf("classloader: %s is not an array descriptor", name)
	}

	var baseClass *runtime.Class
	var baseLoader runtime.LoaderID
	if ft.ElementType.Kind == classfile.TReference {
		bc, err := r.LoadClass(ft.ElementType.ClassName, loader, currentThread)
		if err != nil {
			return nil, err
		}
		baseClass = bc
		baseLoader = bc.Loader
	} else {
		dt, _ := fieldTypeToRuntime(ft.ElementType)
		pc, ok := r.primitiveClassForType(dt)
		if !ok {
			return nil, fmt.Errorf("classloader: no primitive class for component of %s", name)
		}
		baseClass = pc
		baseLoader = BootstrapLoader
	}

	elem := baseClass
	var arrayClass *runtime.Class
	for d := 1; d <= ft.Dimensions; d++ {
		descriptor := name[ft.Dimensions-d:]
		elemForClosure := elem
		var err error
		arrayClass, err = r.resolve(registryKey{name: descriptor, loader: baseLoader}, currentThread, func() (*runtime.Class, error) {
			c := runtime.NewClass(descriptor, runtime.ClassArray)
			c.ElementClass = elemForClosure
			c.Loader = baseLoader
			c.AccessFlags = elemForClosure.AccessFlags
			c.SuperClass = nil // array classes are not linked to java/lang/Object via SuperClass; IsInstanceOf handles them separately
			c.InstanceLayout = runtime.NewFieldStorageLayout()
			c.StaticLayout = runtime.NewFieldStorageLayout()
			c.StaticValues = runtime.NewFieldStorage(c.StaticLayout)
			c.FinishInit(true) // array classes need no <clinit>
			return c, nil
		})
		if err != nil {
			return nil, err
		}
		elem = arrayClass
	}
	return arrayClass, nil
}
