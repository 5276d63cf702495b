package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embervm/embervm/internal/runtime"
)

func TestOperandStackPushPopOrder(t *testing.T) {
	s := NewOperandStack(4)
	require.NoError(t, s.Push(runtime.IntValue(1)))
	require.NoError(t, s.Push(runtime.IntValue(2)))
	v, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, int32(2), v.Int32())
}

func TestOperandStackWideValuesCountTwo(t *testing.T) {
	s := NewOperandStack(2)
	require.NoError(t, s.Push(runtime.LongValue(1)))
	assert.Equal(t, 2, s.Depth())
	err := s.Push(runtime.IntValue(1))
	assert.Error(t, err) // would overflow max_stack=2
}

func TestOperandStackUnderflow(t *testing.T) {
	s := NewOperandStack(4)
	_, err := s.Pop()
	assert.Error(t, err)
}

func TestOperandStackPopNYieldsTopFirst(t *testing.T) {
	s := NewOperandStack(8)
	// caller pushed args in declaration order: arg0, arg1, arg2; PopN
	// yields them top first, i.e. in reverse declaration order
	require.NoError(t, s.Push(runtime.IntValue(0)))
	require.NoError(t, s.Push(runtime.IntValue(1)))
	require.NoError(t, s.Push(runtime.IntValue(2)))

	next, err := s.PopN(3)
	require.NoError(t, err)

	var got []int32
	for {
		v, ok := next()
		if !ok {
			break
		}
		got = append(got, v.Int32())
	}
	assert.Equal(t, []int32{2, 1, 0}, got)
}

func testClass(name string) *runtime.Class {
	c := runtime.NewClass(name, runtime.ClassNormal)
	c.InstanceLayout = runtime.NewFieldStorageLayout()
	return c
}

func javaMethod(name string, params []runtime.DataType, ret runtime.DataType, isStatic bool) *runtime.Method {
	flags := uint16(0)
	if isStatic {
		flags |= runtime.MAccStatic
	}
	return &runtime.Method{
		Name:        name,
		ParamTypes:  params,
		ReturnType:  ret,
		AccessFlags: flags,
		CodeKind:    runtime.CodeJava,
		Java:        &runtime.JavaCode{MaxStack: 4, MaxLocals: 4, Bytecode: []byte{0xB1}},
	}
}

// TestFrameConstructionSymmetry mirrors the spec's frame-construction
// symmetry law: arguments pushed in declaration order then popped into a
// new frame appear in slots [0..] in declaration order, with slot 0 = this
// for instance methods.
func TestFrameConstructionSymmetry(t *testing.T) {
	method := javaMethod("add", []runtime.DataType{runtime.TInt, runtime.TInt}, runtime.TInt, false)
	class := testClass("Foo")
	obj := runtime.NewInstance(class)

	s := NewOperandStack(8)
	require.NoError(t, s.Push(runtime.RefValue(obj))) // this
	require.NoError(t, s.Push(runtime.IntValue(10)))
	require.NoError(t, s.Push(runtime.IntValue(20)))

	pop, err := s.PopN(3)
	require.NoError(t, err)

	f, err := NewWithArgs(class, method, pop)
	require.NoError(t, err)
	assert.Equal(t, obj, f.Locals[0].Ref)
	assert.Equal(t, int32(10), f.Locals[1].Int32())
	assert.Equal(t, int32(20), f.Locals[2].Int32())
}

func TestFrameConstructionNullReceiverErrors(t *testing.T) {
	method := javaMethod("touch", nil, runtime.TInt, false)
	class := testClass("Foo")

	s := NewOperandStack(8)
	require.NoError(t, s.Push(runtime.Null()))
	pop, err := s.PopN(1)
	require.NoError(t, err)

	_, err = NewWithArgs(class, method, pop)
	assert.ErrorIs(t, err, ErrNullReceiver)
}

func TestNativeFrameArgsOneShot(t *testing.T) {
	method := &runtime.Method{Name: "n", CodeKind: runtime.CodeNative, Native: &runtime.NativeCode{}}
	f := NewNativeFrame(testClass("Foo"), method, []runtime.Value{runtime.IntValue(1)})
	_, err := f.TakeArgs()
	require.NoError(t, err)
	_, err = f.TakeArgs()
	assert.Error(t, err)
}
