package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFieldInheritanceLayout mirrors the spec's "field inheritance
// layout" end-to-end scenario: P declares int a, Q extends P declares
// int b; both fields get distinct FieldIds, default to 0, and are
// independently addressable after construction.
func TestFieldInheritanceLayout(t *testing.T) {
	layout := NewFieldStorageLayout()
	layout.BeginClass("Q")
	bID := layout.Append("Q", "b", "I", TInt, "")
	layout.BeginClass("P")
	aID := layout.Append("P", "a", "I", TInt, "")

	storage := NewFieldStorage(layout)
	assert.Equal(t, int32(0), storage.Get(aID).Int32())
	assert.Equal(t, int32(0), storage.Get(bID).Int32())

	storage.Set(aID, IntValue(1))
	storage.Set(bID, IntValue(2))
	assert.Equal(t, int32(1), storage.Get(aID).Int32())
	assert.Equal(t, int32(2), storage.Get(bID).Int32())

	foundA, ok := layout.Lookup("P", "a", "I")
	require.True(t, ok)
	assert.Equal(t, aID, foundA)
}

func TestNewFieldStorageDefaultsReferenceFieldsToNull(t *testing.T) {
	layout := NewFieldStorageLayout()
	layout.BeginClass("C")
	id := layout.Append("C", "name", "Ljava/lang/String;", TReference, "java/lang/String")

	storage := NewFieldStorage(layout)
	assert.True(t, storage.Get(id).IsNull())
}
