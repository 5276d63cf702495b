package runtime

import (
	"sync"

	"github.com/embervm/embervm/internal/monitor"
)

// ClassKind distinguishes a normal (parsed) class from the two kinds the
// classloader synthesizes directly: array classes and primitive classes.
type ClassKind int

const (
	ClassNormal ClassKind = iota
	ClassArray
	ClassPrimitive
)

// LoaderKind distinguishes the bootstrap loader from a user-defined one.
type LoaderKind int

const (
	Bootstrap LoaderKind = iota
	UserLoader
)

// LoaderID identifies a defining or initiating loader. Class identity is
// (name, defining loader); two loaders may legally define distinct
// classes of the same name.
type LoaderID struct {
	Kind   LoaderKind
	Object *Object // non-nil iff Kind == UserLoader: the java/lang/ClassLoader instance
}

func (l LoaderID) Equal(o LoaderID) bool {
	return l.Kind == o.Kind && l.Object == o.Object
}

// InitState is the class initialization state machine (§4.3).
type InitState int

const (
	Uninitialised InitState = iota
	Initialising
	Initialised
	InitError
)

// Class is the authoritative runtime class object.
type Class struct {
	Name        string
	Kind        ClassKind
	ElementClass *Class   // set iff Kind == ClassArray
	Primitive   DataType // set iff Kind == ClassPrimitive
	AccessFlags uint16
	SourceFile  string
	Loader      LoaderID

	SuperClass *Class // nil only for java/lang/Object
	Interfaces []*Class

	Fields  []*Field
	Methods []*Method

	ConstantPool *RuntimeConstantPool

	InstanceLayout *FieldStorageLayout
	StaticLayout   *FieldStorageLayout
	StaticValues   *FieldStorage

	mirrorMu    sync.Mutex
	classObject *Object // java/lang/Class instance; populated lazily (§4.2, §9)

	stateMu     sync.Mutex
	state       InitState
	initMonitor *monitor.Monitor
	initThread  uint64
}

// NewClass constructs an unlinked Class shell; the classloader fills in
// the remaining fields during linking before publishing it.
func NewClass(name string, kind ClassKind) *Class {
	return &Class{
		Name:        name,
		Kind:        kind,
		initMonitor: monitor.New(),
	}
}

// ClassObject returns the java/lang/Class mirror instance, or nil if not
// yet populated (only possible during very early bootstrap).
func (c *Class) ClassObject() *Object {
	c.mirrorMu.Lock()
	defer c.mirrorMu.Unlock()
	return c.classObject
}

// SetClassObject installs the mirror instance. Called at most twice: once
// at link time if java/lang/Class is already loaded, and once by the
// bootstrap fix-up pass otherwise.
func (c *Class) SetClassObject(o *Object) {
	c.mirrorMu.Lock()
	defer c.mirrorMu.Unlock()
	c.classObject = o
}

// State returns the current initialization state.
func (c *Class) State() InitState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// InitMonitor is the class_object-equivalent monitor guarding state
// transitions. Real java/lang/Class mirrors aren't always available this
// early in bootstrap, so initialization is synchronised on a monitor
// owned directly by the Class rather than requiring the mirror object.
func (c *Class) InitMonitor() *monitor.Monitor { return c.initMonitor }

// TryBeginInit attempts Uninitialised|Error -> Initialising(ownerThread).
// Returns (true, Uninitialised-style proceed) if this caller must now run
// <clinit>; returns false if the class is already Initialising (caller
// must wait) or Initialised (caller may proceed immediately).
func (c *Class) TryBeginInit(ownerThread uint64) (shouldRun bool, current InitState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	switch c.state {
	case Uninitialised, InitError:
		c.state = Initialising
		c.initThread = ownerThread
		return true, Initialising
	case Initialising:
		return false, Initialising
	default:
		return false, c.state
	}
}

// InitialisingThread returns the thread currently running <clinit>, valid
// only while State() == Initialising.
func (c *Class) InitialisingThread() uint64 {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.initThread
}

// FinishInit transitions Initialising -> Initialised or InitError.
func (c *Class) FinishInit(ok bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if ok {
		c.state = Initialised
	} else {
		c.state = InitError
	}
}

// FindMethodDeclared does an in-this-class-only linear scan.
func (c *Class) FindMethodDeclared(name, descriptor string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

// FindFieldDeclared does an in-this-class-only linear scan.
func (c *Class) FindFieldDeclared(name, descriptor string) *Field {
	for _, f := range c.Fields {
		if f.Name == name && f.Descriptor == descriptor {
			return f
		}
	}
	return nil
}

// IsSubclassOf reports whether c equals or descends from ancestor via
// SuperClass links.
func (c *Class) IsSubclassOf(ancestor *Class) bool {
	for cur := c; cur != nil; cur = cur.SuperClass {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// ImplementsInterface reports whether c or any of its superclasses
// directly or transitively lists ancestor among its interfaces.
func (c *Class) ImplementsInterface(ancestor *Class) bool {
	for cur := c; cur != nil; cur = cur.SuperClass {
		for _, iface := range cur.Interfaces {
			if iface == ancestor || iface.ImplementsInterface(ancestor) {
				return true
			}
		}
	}
	return false
}

// IsInstanceOf walks the super chain and interface set. Array classes
// (which have no SuperClass) are instances of java/lang/Object,
// java/lang/Cloneable and java/io/Serializable, and of another array class
// whose element class is identical, or, for reference elements, one their
// own element class is an instance of (Open Question #1 in DESIGN.md).
func (c *Class) IsInstanceOf(target *Class) bool {
	if c == target {
		return true
	}
	if c.Kind == ClassArray {
		switch target.Name {
		case "java/lang/Object", "java/lang/Cloneable", "java/io/Serializable":
			return true
		}
		if target.Kind != ClassArray || c.ElementClass == nil || target.ElementClass == nil {
			return false
		}
		if c.ElementClass.Kind == ClassPrimitive || target.ElementClass.Kind == ClassPrimitive {
			return c.ElementClass == target.ElementClass
		}
		return c.ElementClass.IsInstanceOf(target.ElementClass)
	}
	if c.IsSubclassOf(target) {
		return true
	}
	return c.ImplementsInterface(target)
}
