package classloader

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embervm/embervm/internal/classfile"
	"github.com/embervm/embervm/internal/runtime"
)

// --- minimal class-file byte builders, mirroring classfile's own test
// helpers since no javac-produced fixtures are available in this
// environment (see DESIGN.md's internal/classfile entry). ---

func u16(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.BigEndian, v) }
func u32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.BigEndian, v) }
func u8(buf *bytes.Buffer, v uint8)   { binary.Write(buf, binary.BigEndian, v) }

func utf8Entry(buf *bytes.Buffer, s string) {
	u8(buf, classfile.TagUtf8)
	u16(buf, uint16(len(s)))
	buf.WriteString(s)
}

type classSpec struct {
	thisName      string
	superName     string // "" for java/lang/Object itself
	instanceField string // name, or "" for none; always descriptor "I"
	methodName    string // "" for none
	methodDesc    string
	code          []byte
}

func buildClassBytes(t *testing.T, spec classSpec) []byte {
	t.Helper()
	var out bytes.Buffer
	u32(&out, 0xCAFEBABE)
	u16(&out, 0)  // minor
	u16(&out, 52) // major

	var pool bytes.Buffer
	idx := uint16(1)
	next := func() uint16 { v := idx; idx++; return v }

	thisNameIdx := next()
	utf8Entry(&pool, spec.thisName)
	thisClassIdx := next()
	u8(&pool, classfile.TagClass)
	u16(&pool, thisNameIdx)

	var superClassIdx uint16
	if spec.superName != "" {
		superNameIdx := next()
		utf8Entry(&pool, spec.superName)
		superClassIdx = next()
		u8(&pool, classfile.TagClass)
		u16(&pool, superNameIdx)
	}

	var instNameIdx, instDescIdx uint16
	if spec.instanceField != "" {
		instNameIdx = next()
		utf8Entry(&pool, spec.instanceField)
		instDescIdx = next()
		utf8Entry(&pool, "I")
	}
	var methNameIdx, methDescIdx, codeAttrIdx uint16
	if spec.methodName != "" {
		methNameIdx = next()
		utf8Entry(&pool, spec.methodName)
		methDescIdx = next()
		utf8Entry(&pool, spec.methodDesc)
		codeAttrIdx = next()
		utf8Entry(&pool, "Code")
	}

	u16(&out, idx) // constant_pool_count = next unused index
	out.Write(pool.Bytes())

	u16(&out, classfile.AccPublic|classfile.AccSuper) // access_flags
	u16(&out, thisClassIdx)
	u16(&out, superClassIdx)
	u16(&out, 0) // interfaces_count

	if spec.instanceField != "" {
		u16(&out, 1) // fields_count
		u16(&out, 0) // access_flags (non-static)
		u16(&out, instNameIdx)
		u16(&out, instDescIdx)
		u16(&out, 0) // attributes_count
	} else {
		u16(&out, 0)
	}

	if spec.methodName != "" {
		u16(&out, 1) // methods_count
		u16(&out, classfile.AccPublic)
		u16(&out, methNameIdx)
		u16(&out, methDescIdx)
		u16(&out, 1) // attributes_count

		var code bytes.Buffer
		u16(&code, 1) // max_stack
		u16(&code, 1) // max_locals
		u32(&code, uint32(len(spec.code)))
		code.Write(spec.code)
		u16(&code, 0) // exception_table_length
		u16(&code, 0) // nested attributes_count

		u16(&out, codeAttrIdx)
		u32(&out, uint32(code.Len()))
		out.Write(code.Bytes())
	} else {
		u16(&out, 0)
	}

	u16(&out, 0) // class attributes_count

	return out.Bytes()
}

func writeClassFile(t *testing.T, dir, binaryName string, data []byte) {
	t.Helper()
	path := filepath.Join(dir, binaryName+".class")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	writeClassFile(t, dir, "java/lang/Object", buildClassBytes(t, classSpec{thisName: "java/lang/Object"}))
	writeClassFile(t, dir, "Foo", buildClassBytes(t, classSpec{
		thisName: "Foo", superName: "java/lang/Object",
		instanceField: "x", methodName: "bar", methodDesc: "()V", code: []byte{0xB1},
	}))
	return NewRegistry(ParseClassPath(dir)), dir
}

func TestLoadClassBuildsHierarchyAndLayout(t *testing.T) {
	reg, _ := newTestRegistry(t)

	class, err := reg.LoadClass("Foo", BootstrapLoader, 1)
	require.NoError(t, err)
	require.NotNil(t, class.SuperClass)
	assert.Equal(t, "java/lang/Object", class.SuperClass.Name)
	assert.Equal(t, 1, class.InstanceLayout.Len())

	field, owner, ok := FindFieldRecursive(class, "x", "I")
	require.True(t, ok)
	assert.Equal(t, "Foo", owner.Name)
	assert.Equal(t, runtime.TInt, field.Type)

	method, ok := FindMethodInHierarchy(class, "bar", "()V")
	require.True(t, ok)
	assert.Equal(t, runtime.CodeJava, method.CodeKind)
	assert.Equal(t, []byte{0xB1}, method.Java.Bytecode)
}

func TestLoadClassIsCachedAndIdempotent(t *testing.T) {
	reg, _ := newTestRegistry(t)

	a, err := reg.LoadClass("Foo", BootstrapLoader, 1)
	require.NoError(t, err)
	b, err := reg.LoadClass("Foo", BootstrapLoader, 2)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestLoadClassMissingOnBootClassPathFails(t *testing.T) {
	reg, _ := newTestRegistry(t)
	_, err := reg.LoadClass("DoesNotExist", BootstrapLoader, 1)
	assert.Error(t, err)
}

func TestLoadArrayClassOfPrimitive(t *testing.T) {
	reg, _ := newTestRegistry(t)

	class, err := reg.LoadClass("[I", BootstrapLoader, 1)
	require.NoError(t, err)
	assert.Equal(t, runtime.ClassArray, class.Kind)
	require.NotNil(t, class.ElementClass)
	assert.Equal(t, runtime.ClassPrimitive, class.ElementClass.Kind)
	assert.Equal(t, runtime.TInt, class.ElementClass.Primitive)
}

func TestLoadArrayClassOfReferenceIsCachedPerDimension(t *testing.T) {
	reg, _ := newTestRegistry(t)

	outer, err := reg.LoadClass("[[LFoo;", BootstrapLoader, 1)
	require.NoError(t, err)
	assert.Equal(t, runtime.ClassArray, outer.Kind)
	inner := outer.ElementClass
	require.NotNil(t, inner)
	assert.Equal(t, runtime.ClassArray, inner.Kind)
	assert.Equal(t, "Foo", inner.ElementClass.Name)

	// loading the same descriptor again returns the identical synthesized
	// class, and loading the one-dimension-shallower descriptor returns the
	// same inner array class instance already built above.
	again, err := reg.LoadClass("[[LFoo;", BootstrapLoader, 1)
	require.NoError(t, err)
	assert.Same(t, outer, again)

	innerAgain, err := reg.LoadClass("[LFoo;", BootstrapLoader, 1)
	require.NoError(t, err)
	assert.Same(t, inner, innerAgain)
}

type stubInvoker struct {
	clinitCalls int
}

func (s *stubInvoker) InvokeLoadClass(loaderObj *runtime.Object, name string) (*runtime.Class, error) {
	return nil, assert.AnError
}

func (s *stubInvoker) RunClinit(method *runtime.Method) error {
	s.clinitCalls++
	return nil
}

func TestEnsureInitWithoutClinitInitialisesWithoutRunningIt(t *testing.T) {
	reg, _ := newTestRegistry(t)
	inv := &stubInvoker{}
	reg.SetInvoker(inv)

	class, err := reg.LoadClass("Foo", BootstrapLoader, 1)
	require.NoError(t, err)

	// Foo has no <clinit> in this fixture, so RunClinit should never fire;
	// assert the state machine still reaches Initialised cleanly.
	require.NoError(t, EnsureInit(reg, class, 1))
	assert.Equal(t, runtime.Initialised, class.State())
	assert.Equal(t, 0, inv.clinitCalls)

	require.NoError(t, EnsureInit(reg, class, 2))
	assert.Equal(t, 0, inv.clinitCalls)
}

func TestEnsureInitSkipsAlreadyInitialisedPrimitive(t *testing.T) {
	reg, _ := newTestRegistry(t)
	intClass, ok := reg.PrimitiveClass("int")
	require.True(t, ok)
	require.NoError(t, EnsureInit(reg, intClass, 1))
}
