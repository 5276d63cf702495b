package mutf8

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	nul := string(rune(0))
	cases := []string{
		"",
		"hello",
		"java/lang/Object",
		"embedded" + nul + "nul",
		"snowman letter",
		"supplementary plane: " + string(rune(0x1F600)),
	}
	for _, c := range cases {
		encoded := Encode(c)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, c, decoded)
	}
}

func TestNulEncodedAsTwoBytes(t *testing.T) {
	encoded := Encode(string(rune(0)))
	assert.Equal(t, Str{0xC0, 0x80}, encoded)
}

func TestSupplementaryUsesSurrogatePair(t *testing.T) {
	encoded := Encode(string(rune(0x1F600)))
	// Two three-byte sequences, not one four-byte sequence.
	assert.Len(t, encoded, 6)
}

func TestDecodeMalformedByte(t *testing.T) {
	_, err := Decode(Str{0xFF})
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	a := Encode("same")
	b := Encode("same")
	c := Encode("different")
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestStringBestEffort(t *testing.T) {
	assert.Equal(t, "hello", Str(Encode("hello")).String())
}
