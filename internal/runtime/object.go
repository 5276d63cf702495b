package runtime

import (
	"io"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/embervm/embervm/internal/monitor"
)

// hashCounter seeds identity hashcodes; real addresses aren't meaningfully
// observable from Go, so identity hashcodes are drawn from a monotonic
// counter instead of address bits — still stable, still non-zero, still
// unrelated to equals().
var hashCounter uint64

// StorageKind distinguishes an Object's two possible payloads.
type StorageKind int

const (
	StorageFields StorageKind = iota
	StorageArray
)

// Object is the header shared by every instance and array: owning class,
// monitor, lazily-computed identity hashcode, and one of two storage
// variants.
type Object struct {
	Class   *Class
	Monitor *monitor.Monitor

	identityHash atomic.Int32 // 0 means "not yet computed"

	Kind   StorageKind
	Fields *FieldStorage // set iff Kind == StorageFields

	arrayMu   sync.RWMutex
	arrayType DataType // element type, set iff Kind == StorageArray
	array     []Value

	// MirrorOf is non-nil iff this object is a java/lang/Class instance,
	// pointing back at the Class it mirrors. Lets InvokeLoadClass recover a
	// *Class from whatever a user ClassLoader.loadClass returns.
	MirrorOf *Class

	// NativeString backs java/lang/String instances: rather than modelling
	// java/lang/String's char[] value field and hashing in Java terms, the
	// interpreter stores the Go string directly here and internal/natives'
	// String methods read it, matching how this implementation boxes host
	// values instead of re-deriving them from object layout (see
	// DESIGN.md's internal/interpreter entry).
	NativeString *string

	// NativeWriter backs java/io/PrintStream instances the same way:
	// System.out/System.err are given a NativeWriter at bootstrap instead
	// of a real FileOutputStream/FileDescriptor chain, and the println/
	// print natives write straight to it.
	NativeWriter io.Writer
}

// NewInstance allocates an Object whose storage matches class's instance
// field layout, every slot at its datatype's default value.
func NewInstance(class *Class) *Object {
	return &Object{
		Class:   class,
		Monitor: monitor.New(),
		Kind:    StorageFields,
		Fields:  NewFieldStorage(class.InstanceLayout),
	}
}

// NewArray allocates an Object holding length elements of elementType,
// each at its default value. Length is fixed for the object's lifetime.
func NewArray(class *Class, elementType DataType, length int) *Object {
	arr := make([]Value, length)
	def := DefaultValue(elementType)
	for i := range arr {
		arr[i] = def
	}
	return &Object{
		Class:     class,
		Monitor:   monitor.New(),
		Kind:      StorageArray,
		arrayType: elementType,
		array:     arr,
	}
}

// NewClassMirror allocates a java/lang/Class instance standing in for
// target, recorded so code holding only the Object can recover the Class.
func NewClassMirror(metaClass, target *Class) *Object {
	o := NewInstance(metaClass)
	o.MirrorOf = target
	return o
}

// IdentityHashCode lazily computes and caches a stable, non-zero identity
// hashcode.
func (o *Object) IdentityHashCode() int32 {
	for {
		if h := o.identityHash.Load(); h != 0 {
			return h
		}
		next := int32(atomic.AddUint64(&hashCounter, 1))
		if next == 0 {
			next = 1
		}
		if o.identityHash.CompareAndSwap(0, next) {
			return next
		}
	}
}

// Len returns the array's length, or 0 if o is not an array.
func (o *Object) Len() int {
	o.arrayMu.RLock()
	defer o.arrayMu.RUnlock()
	return len(o.array)
}

// ElementType returns the array's declared element type.
func (o *Object) ElementType() DataType {
	return o.arrayType
}

// ArrayGet reads element i, holding the array's mutex for the critical
// section.
func (o *Object) ArrayGet(i int) (Value, bool) {
	o.arrayMu.RLock()
	defer o.arrayMu.RUnlock()
	if i < 0 || i >= len(o.array) {
		return Value{}, false
	}
	return o.array[i], true
}

// ArraySet writes element i, holding the array's mutex for the critical
// section.
func (o *Object) ArraySet(i int, v Value) bool {
	o.arrayMu.Lock()
	defer o.arrayMu.Unlock()
	if i < 0 || i >= len(o.array) {
		return false
	}
	o.array[i] = v
	return true
}

// ArrayCopy copies length elements from src[srcPos:] to dst[dstPos:],
// holding both arrays' mutexes (one lock when src == dst, otherwise
// taken in pointer-address order to avoid deadlock) for the whole
// critical section so concurrent readers never observe a partial copy.
func ArrayCopy(src *Object, srcPos int, dst *Object, dstPos int, length int) bool {
	if src == dst {
		src.arrayMu.Lock()
		defer src.arrayMu.Unlock()
	} else {
		// Lock in a fixed order (by pointer) to prevent deadlock between
		// two concurrent copies with reversed src/dst.
		first, second := src, dst
		if uintptr(unsafe.Pointer(first)) > uintptr(unsafe.Pointer(second)) {
			first, second = second, first
		}
		first.arrayMu.Lock()
		defer first.arrayMu.Unlock()
		second.arrayMu.Lock()
		defer second.arrayMu.Unlock()
	}

	if srcPos < 0 || dstPos < 0 || length < 0 ||
		srcPos+length > len(src.array) || dstPos+length > len(dst.array) {
		return false
	}
	copy(dst.array[dstPos:dstPos+length], src.array[srcPos:srcPos+length])
	return true
}
