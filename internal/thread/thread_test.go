package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embervm/embervm/internal/runtime"
)

func TestRegisterCurrentUnregister(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		st := Register()
		defer Unregister()

		assert.Same(t, st, Current())
		assert.NotEqual(t, st.ID.String(), "")
	}()
	<-done
}

func TestExceptionSlot(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		st := Register()
		defer Unregister()

		require.Nil(t, st.PendingException())
		st.SetException(&Exception{ClassName: "java/lang/NullPointerException"})
		require.NotNil(t, st.PendingException())
		assert.Equal(t, "java/lang/NullPointerException", st.PendingException().ClassName)
		st.ClearException()
		assert.Nil(t, st.PendingException())
	}()
	<-done
}

func TestReturnValueSlot(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		st := Register()
		defer Unregister()

		assert.Nil(t, st.ReturnValue())
		st.SetReturnValue(runtime.IntValue(42))
		require.NotNil(t, st.ReturnValue())
		assert.Equal(t, int32(42), st.ReturnValue().Int32())
	}()
	<-done
}

func TestFrameStackIsPerThread(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		st := Register()
		defer Unregister()
		assert.Equal(t, 0, st.Frames.Depth())
	}()
	<-done
}
