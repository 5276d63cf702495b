package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldDescriptorPrimitives(t *testing.T) {
	cases := map[string]DataType{
		"Z": TBoolean, "B": TByte, "C": TChar, "S": TShort,
		"I": TInt, "J": TLong, "F": TFloat, "D": TDouble,
	}
	for descriptor, want := range cases {
		ft, err := ParseFieldDescriptor(descriptor)
		require.NoError(t, err)
		assert.Equal(t, want, ft.Kind)
	}
}

func TestParseFieldDescriptorClass(t *testing.T) {
	ft, err := ParseFieldDescriptor("Ljava/lang/String;")
	require.NoError(t, err)
	assert.Equal(t, TReference, ft.Kind)
	assert.Equal(t, "java/lang/String", ft.ClassName)
}

func TestParseFieldDescriptorArray(t *testing.T) {
	ft, err := ParseFieldDescriptor("[[I")
	require.NoError(t, err)
	assert.Equal(t, TArray, ft.Kind)
	assert.Equal(t, 2, ft.Dimensions)
	assert.Equal(t, TInt, ft.ElementType.Kind)
}

func TestParseFieldDescriptorRoundTripString(t *testing.T) {
	for _, d := range []string{"I", "Ljava/lang/Object;", "[[Ljava/lang/String;", "[D"} {
		ft, err := ParseFieldDescriptor(d)
		require.NoError(t, err)
		assert.Equal(t, d, ft.String())
	}
}

func TestParseFieldDescriptorMalformed(t *testing.T) {
	_, err := ParseFieldDescriptor("Ljava/lang/String")
	assert.Error(t, err)

	_, err = ParseFieldDescriptor("Q")
	assert.Error(t, err)
}

func TestParseMethodDescriptor(t *testing.T) {
	m, err := ParseMethodDescriptor("(ILjava/lang/String;[D)Z")
	require.NoError(t, err)
	require.Len(t, m.Parameters, 3)
	assert.Equal(t, TInt, m.Parameters[0].Kind)
	assert.Equal(t, TReference, m.Parameters[1].Kind)
	assert.Equal(t, TArray, m.Parameters[2].Kind)
	assert.Equal(t, TBoolean, m.ReturnType.Kind)
}

func TestParseMethodDescriptorVoidNoArgs(t *testing.T) {
	m, err := ParseMethodDescriptor("()V")
	require.NoError(t, err)
	assert.Empty(t, m.Parameters)
	assert.Equal(t, TVoid, m.ReturnType.Kind)
}

func TestParameterSlotsCountsWideTypesTwice(t *testing.T) {
	m, err := ParseMethodDescriptor("(JDI)V")
	require.NoError(t, err)
	assert.Equal(t, 5, m.ParameterSlots())
}

func TestParseMethodDescriptorMissingParen(t *testing.T) {
	_, err := ParseMethodDescriptor("ILjava/lang/String;)Z")
	assert.Error(t, err)
}
