package runtime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultValues(t *testing.T) {
	assert.Equal(t, int64(0), DefaultValue(TInt).I)
	assert.True(t, DefaultValue(TReference).IsNull())
	assert.Equal(t, float32(0), DefaultValue(TFloat).F32)
	assert.Equal(t, float64(0), DefaultValue(TDouble).F64)
}

func TestWideningThenNarrowingRoundTrip(t *testing.T) {
	v := ByteValue(42)
	widened, ok := v.AssignTo(TLong)
	assert.True(t, ok)
	assert.Equal(t, int64(42), widened.I)

	narrowed, ok := widened.AssignTo(TByte)
	assert.True(t, ok)
	assert.Equal(t, int64(42), narrowed.I)
}

func TestIntToBooleanMasksBitZero(t *testing.T) {
	v, ok := IntValue(6).AssignTo(TBoolean) // 0b110 -> bit 0 is 0
	assert.True(t, ok)
	assert.False(t, v.Bool())

	v, ok = IntValue(7).AssignTo(TBoolean) // 0b111 -> bit 0 is 1
	assert.True(t, ok)
	assert.True(t, v.Bool())
}

func TestFloatToIntSaturatesOnOverflow(t *testing.T) {
	assert.Equal(t, int32(math.MaxInt32), SaturateToInt32(1e30))
	assert.Equal(t, int32(math.MinInt32), SaturateToInt32(-1e30))
	assert.Equal(t, int32(0), SaturateToInt32(math.NaN()))
}

func TestDoubleToLongSaturatesOnOverflow(t *testing.T) {
	assert.Equal(t, int64(math.MaxInt64), SaturateToInt64(1e30))
	assert.Equal(t, int64(0), SaturateToInt64(math.NaN()))
}

func TestReferenceAssignmentDeferredToClassloader(t *testing.T) {
	_, ok := RefValue(nil).AssignTo(TInt)
	assert.False(t, ok)
}

func TestIdentityValue(t *testing.T) {
	v := IntValue(5)
	same, ok := v.AssignTo(TInt)
	assert.True(t, ok)
	assert.Equal(t, v, same)
}
