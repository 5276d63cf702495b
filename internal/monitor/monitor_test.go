package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnterExitReentrant(t *testing.T) {
	m := New()
	m.Enter(1)
	m.Enter(1) // re-entrant, same owner
	assert.True(t, m.IsHeldBy(1))
	require.NoError(t, m.Exit(1))
	assert.True(t, m.IsHeldBy(1)) // still held, one level deep
	require.NoError(t, m.Exit(1))
	assert.False(t, m.IsHeldBy(1))
}

func TestExitByNonOwnerErrors(t *testing.T) {
	m := New()
	m.Enter(1)
	err := m.Exit(2)
	assert.Error(t, err)
}

func TestEnterBlocksUntilReleased(t *testing.T) {
	m := New()
	m.Enter(1)

	acquired := make(chan struct{})
	go func() {
		m.Enter(2)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second owner acquired before first released")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, m.Exit(1))
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second owner never acquired after release")
	}
}

func TestWaitNotify(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	wg.Add(1)

	woke := make(chan struct{})
	go func() {
		defer wg.Done()
		m.Enter(2)
		defer m.Exit(2)
		require.NoError(t, m.Wait(2))
		close(woke)
	}()

	time.Sleep(20 * time.Millisecond) // let the goroutine reach Wait
	m.Enter(1)
	m.Notify()
	require.NoError(t, m.Exit(1))

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("waiter never woke")
	}
	wg.Wait()
}

func TestWaitByNonOwnerErrors(t *testing.T) {
	m := New()
	err := m.Wait(1)
	assert.Error(t, err)
}
