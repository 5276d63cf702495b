package classfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMinimalClass assembles a well-formed class file byte-for-byte:
// a "Foo" class extending "java/lang/Object" with one static int field
// "x" and one no-arg void method "bar" whose Code is a single "return".
// No javac-produced fixtures are available in this environment, so tests
// construct their own buffers rather than parsing a checked-in .class file.
func buildMinimalClass(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer

	binary.Write(&buf, binary.BigEndian, uint32(classMagic))
	binary.Write(&buf, binary.BigEndian, uint16(0))  // minor
	binary.Write(&buf, binary.BigEndian, uint16(52)) // major (Java 8)

	var pool bytes.Buffer
	utf8Entry(&pool, "Foo")                  // 1
	writeU8(&pool, TagClass)                 // 2 -> Foo
	writeU16(&pool, 1)
	utf8Entry(&pool, "java/lang/Object")      // 3
	writeU8(&pool, TagClass)                  // 4 -> java/lang/Object
	writeU16(&pool, 3)
	utf8Entry(&pool, "x")                     // 5
	utf8Entry(&pool, "I")                     // 6
	utf8Entry(&pool, "bar")                   // 7
	utf8Entry(&pool, "()V")                   // 8
	utf8Entry(&pool, "Code")                  // 9

	binary.Write(&buf, binary.BigEndian, uint16(10)) // constant_pool_count
	buf.Write(pool.Bytes())

	binary.Write(&buf, binary.BigEndian, uint16(AccPublic|AccSuper)) // access_flags
	binary.Write(&buf, binary.BigEndian, uint16(2))                  // this_class
	binary.Write(&buf, binary.BigEndian, uint16(4))                  // super_class
	binary.Write(&buf, binary.BigEndian, uint16(0))                  // interfaces_count

	// fields_count = 1
	binary.Write(&buf, binary.BigEndian, uint16(1))
	binary.Write(&buf, binary.BigEndian, uint16(AccStatic)) // field access_flags
	binary.Write(&buf, binary.BigEndian, uint16(5))         // name_index "x"
	binary.Write(&buf, binary.BigEndian, uint16(6))         // descriptor_index "I"
	binary.Write(&buf, binary.BigEndian, uint16(0))         // field attributes_count

	// methods_count = 1
	binary.Write(&buf, binary.BigEndian, uint16(1))
	binary.Write(&buf, binary.BigEndian, uint16(AccPublic)) // method access_flags
	binary.Write(&buf, binary.BigEndian, uint16(7))         // name_index "bar"
	binary.Write(&buf, binary.BigEndian, uint16(8))         // descriptor_index "()V"
	binary.Write(&buf, binary.BigEndian, uint16(1))         // method attributes_count = 1 (Code)

	var code bytes.Buffer
	binary.Write(&code, binary.BigEndian, uint16(1)) // max_stack
	binary.Write(&code, binary.BigEndian, uint16(1)) // max_locals
	codeBytes := []byte{0xB1}                        // return
	binary.Write(&code, binary.BigEndian, uint32(len(codeBytes)))
	code.Write(codeBytes)
	binary.Write(&code, binary.BigEndian, uint16(0)) // exception_table_length
	binary.Write(&code, binary.BigEndian, uint16(0)) // nested attributes_count

	binary.Write(&buf, binary.BigEndian, uint16(9)) // attribute name_index "Code"
	binary.Write(&buf, binary.BigEndian, uint32(code.Len()))
	buf.Write(code.Bytes())

	binary.Write(&buf, binary.BigEndian, uint16(0)) // class attributes_count

	return buf.Bytes()
}

func TestParseMinimalClass(t *testing.T) {
	data := buildMinimalClass(t)

	cf, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)

	name, err := cf.ClassName()
	require.NoError(t, err)
	assert.Equal(t, "Foo", name)

	super, err := cf.SuperClassName()
	require.NoError(t, err)
	assert.Equal(t, "java/lang/Object", super)

	field := cf.FindField("x", "I")
	require.NotNil(t, field)
	assert.Equal(t, uint16(AccStatic), field.AccessFlags)

	method := cf.FindMethod("bar", "()V")
	require.NotNil(t, method)
	require.NotNil(t, method.Code)
	assert.Equal(t, []byte{0xB1}, method.Code.Code)
	assert.Equal(t, uint16(1), method.Code.MaxStack)
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse(bytes.NewReader([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, BadMagic, fe.Kind)
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	data := buildMinimalClass(t)
	// major version lives at offset 6-7
	binary.BigEndian.PutUint16(data[6:8], 200)

	_, err := Parse(bytes.NewReader(data))
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, UnsupportedVersion, fe.Kind)
}

func TestParseRejectsTruncatedInput(t *testing.T) {
	data := buildMinimalClass(t)
	_, err := Parse(bytes.NewReader(data[:len(data)-10]))
	require.Error(t, err)
}
