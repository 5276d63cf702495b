package runtime

import "sync"

// FieldId is an opaque dense index addressing one slot in a FieldStorage,
// computed once at link time by FieldStorageLayout and never recomputed.
type FieldId int

// FieldStorageLayout is the schema for one class's field storage (either
// its instance layout or its static layout): the flat, ordered sequence
// of datatypes produced by walking field resolution order (own fields,
// then each direct superinterface depth-first, then the superclass,
// recursively), plus the offset at which each contributing class's own
// fields begin.
type FieldStorageLayout struct {
	Types      []DataType
	ClassNames []string // ClassNames[i] names the ClassName field (reference fields only), aligned with Types
	Names      []string // field name, aligned with Types
	Descriptors []string // field descriptor, aligned with Types
	Declaring  []string // declaring class name, aligned with Types
	byKey      map[string]FieldId // "declaringClass#name#descriptor" -> FieldId
	Offsets    map[string]int     // declaring class name -> starting index of its own fields
}

// NewFieldStorageLayout creates an empty layout ready for Append calls
// from the linker.
func NewFieldStorageLayout() *FieldStorageLayout {
	return &FieldStorageLayout{
		byKey:   make(map[string]FieldId),
		Offsets: make(map[string]int),
	}
}

// Append records one field belonging to declaringClass, returning its
// freshly assigned FieldId. The linker calls this in field resolution
// order; BeginClass must be called once before the first field of each
// contributing class.
func (l *FieldStorageLayout) Append(declaringClass, name, descriptor string, t DataType, className string) FieldId {
	id := FieldId(len(l.Types))
	l.Types = append(l.Types, t)
	l.ClassNames = append(l.ClassNames, className)
	l.Names = append(l.Names, name)
	l.Descriptors = append(l.Descriptors, descriptor)
	l.Declaring = append(l.Declaring, declaringClass)
	l.byKey[declaringClass+"#"+name+"#"+descriptor] = id
	return id
}

// BeginClass records the offset at which declaringClass's own fields
// start, for diagnostics and for the defining-class lookup used by
// reflective field access.
func (l *FieldStorageLayout) BeginClass(declaringClass string) {
	if _, ok := l.Offsets[declaringClass]; !ok {
		l.Offsets[declaringClass] = len(l.Types)
	}
}

// Lookup finds the FieldId for a field declared by exactly declaringClass.
func (l *FieldStorageLayout) Lookup(declaringClass, name, descriptor string) (FieldId, bool) {
	id, ok := l.byKey[declaringClass+"#"+name+"#"+descriptor]
	return id, ok
}

// Len is the number of slots this layout describes.
func (l *FieldStorageLayout) Len() int { return len(l.Types) }

// FieldStorage is one value vector matching a FieldStorageLayout, guarded
// for concurrent reads/writes: concurrent reads are allowed, writes are
// exclusive.
type FieldStorage struct {
	mu     sync.RWMutex
	values []Value
}

// NewFieldStorage allocates storage for layout with every slot set to its
// datatype's default value.
func NewFieldStorage(layout *FieldStorageLayout) *FieldStorage {
	values := make([]Value, layout.Len())
	for i, t := range layout.Types {
		values[i] = DefaultValue(t)
	}
	return &FieldStorage{values: values}
}

func (s *FieldStorage) Get(id FieldId) Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[id]
}

func (s *FieldStorage) Set(id FieldId, v Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[id] = v
}
