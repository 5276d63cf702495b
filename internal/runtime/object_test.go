package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClass(name string) *Class {
	c := NewClass(name, ClassNormal)
	c.InstanceLayout = NewFieldStorageLayout()
	return c
}

func TestIdentityHashCodeStableAndNonZero(t *testing.T) {
	obj := NewInstance(testClass("Foo"))
	h1 := obj.IdentityHashCode()
	h2 := obj.IdentityHashCode()
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, int32(0), h1)
}

func TestIdentityHashCodeDiffersAcrossObjects(t *testing.T) {
	class := testClass("Foo")
	a := NewInstance(class)
	b := NewInstance(class)
	assert.NotEqual(t, a.IdentityHashCode(), b.IdentityHashCode())
}

// TestArrayCopyBounds mirrors the spec's arraycopy end-to-end scenario.
func TestArrayCopyBounds(t *testing.T) {
	arrClass := testClass("[I")
	src := NewArray(arrClass, TInt, 4)
	dst := NewArray(arrClass, TInt, 4)
	for i, v := range []int32{1, 2, 3, 4} {
		src.ArraySet(i, IntValue(v))
	}

	ok := ArrayCopy(src, 1, dst, 0, 3)
	require.True(t, ok)
	want := []int32{2, 3, 4, 0}
	for i, w := range want {
		v, _ := dst.ArrayGet(i)
		assert.Equal(t, w, v.Int32())
	}

	ok = ArrayCopy(src, 2, dst, 0, 3) // only 2 elements remain from index 2
	assert.False(t, ok)
}

func TestArrayGetSetOutOfBounds(t *testing.T) {
	arr := NewArray(testClass("[I"), TInt, 2)
	_, ok := arr.ArrayGet(-1)
	assert.False(t, ok)
	_, ok = arr.ArrayGet(2)
	assert.False(t, ok)
	assert.False(t, arr.ArraySet(5, IntValue(1)))
}

func TestNewInstanceFieldsDefaultToZero(t *testing.T) {
	layout := NewFieldStorageLayout()
	layout.BeginClass("Foo")
	id := layout.Append("Foo", "x", "I", TInt, "")
	class := testClass("Foo")
	class.InstanceLayout = layout

	obj := NewInstance(class)
	assert.Equal(t, int32(0), obj.Fields.Get(id).Int32())
}
