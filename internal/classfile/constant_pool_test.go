package classfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeU16(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.BigEndian, v) }
func writeU8(buf *bytes.Buffer, v uint8)   { binary.Write(buf, binary.BigEndian, v) }

func utf8Entry(buf *bytes.Buffer, s string) {
	writeU8(buf, TagUtf8)
	writeU16(buf, uint16(len(s)))
	buf.WriteString(s)
}

func TestParseConstantPoolBasicEntries(t *testing.T) {
	var buf bytes.Buffer
	utf8Entry(&buf, "Foo")             // 1
	writeU8(&buf, TagClass)            // 2
	writeU16(&buf, 1)
	writeU8(&buf, TagInteger) // 3
	binary.Write(&buf, binary.BigEndian, int32(42))
	writeU8(&buf, TagLong) // 4-5 (wide)
	binary.Write(&buf, binary.BigEndian, int64(1<<40))

	pool, err := parseConstantPool(&buf, 6)
	require.NoError(t, err)

	name, err := GetUtf8(pool, 1)
	require.NoError(t, err)
	assert.Equal(t, "Foo", name)

	className, err := GetClassName(pool, 2)
	require.NoError(t, err)
	assert.Equal(t, "Foo", className)

	integer, ok := pool[3].(*ConstantInteger)
	require.True(t, ok)
	assert.Equal(t, int32(42), integer.Value)

	long, ok := pool[4].(*ConstantLong)
	require.True(t, ok)
	assert.Equal(t, int64(1<<40), long.Value)

	// Long occupies slots 4 and 5; slot 5 must be nil (unusable).
	assert.Nil(t, pool[5])
}

func TestParseConstantPoolUnknownTag(t *testing.T) {
	var buf bytes.Buffer
	writeU8(&buf, 200)

	_, err := parseConstantPool(&buf, 2)
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, UnknownConstantTag, fe.Kind)
}

func TestResolveMethodref(t *testing.T) {
	var buf bytes.Buffer
	utf8Entry(&buf, "Foo")      // 1
	writeU8(&buf, TagClass)     // 2 -> Foo
	writeU16(&buf, 1)
	utf8Entry(&buf, "bar")      // 3
	utf8Entry(&buf, "()V")      // 4
	writeU8(&buf, TagNameAndType) // 5
	writeU16(&buf, 3)
	writeU16(&buf, 4)
	writeU8(&buf, TagMethodref) // 6
	writeU16(&buf, 2)
	writeU16(&buf, 5)

	pool, err := parseConstantPool(&buf, 7)
	require.NoError(t, err)

	ref, err := ResolveMethodref(pool, 6)
	require.NoError(t, err)
	assert.Equal(t, "Foo", ref.ClassName)
	assert.Equal(t, "bar", ref.MethodName)
	assert.Equal(t, "()V", ref.Descriptor)
}

func TestGetUtf8IndexOutOfRange(t *testing.T) {
	pool := make([]ConstantPoolEntry, 2)
	_, err := GetUtf8(pool, 5)
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, IndexOutOfRange, fe.Kind)
}
