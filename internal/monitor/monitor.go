// Package monitor implements the JVM's per-object monitor: a re-entrant
// lock paired with a wait set, as required by `monitorenter`/`monitorexit`
// and `Object.wait`/`notify`/`notifyAll`.
package monitor

import (
	"fmt"
	"sync"
)

// Monitor is a re-entrant mutex with an associated wait set. The owner is
// identified by an opaque thread ID (see internal/thread); re-entrant
// Enter calls from the current owner bump a hold count instead of
// blocking. lockCond arbitrates ownership; waitCond implements the
// notify/wait protocol separately so a Notify doesn't get confused with
// the monitor simply becoming free for the next Enter.
type Monitor struct {
	mu         sync.Mutex
	lockCond   *sync.Cond
	waitCond   *sync.Cond
	owner      uint64
	held       bool
	count      int
	generation uint64
}

// New returns a monitor with no current owner.
func New() *Monitor {
	m := &Monitor{}
	m.lockCond = sync.NewCond(&m.mu)
	m.waitCond = sync.NewCond(&m.mu)
	return m
}

// Enter acquires the monitor for ownerID, blocking while it is held by a
// different owner.
func (m *Monitor) Enter(ownerID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquireLocked(ownerID)
	m.count++
}

func (m *Monitor) acquireLocked(ownerID uint64) {
	for m.held && m.owner != ownerID {
		m.lockCond.Wait()
	}
	m.owner = ownerID
	m.held = true
}

// Exit releases one level of ownership. Returns an error if ownerID does
// not currently hold the monitor; callers translate that into
// IllegalMonitorStateException.
func (m *Monitor) Exit(ownerID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.held || m.owner != ownerID {
		return fmt.Errorf("monitor: exit by non-owner %d (owner=%d held=%v)", ownerID, m.owner, m.held)
	}
	m.count--
	if m.count == 0 {
		m.held = false
		m.lockCond.Signal()
	}
	return nil
}

// IsHeldBy reports whether ownerID currently holds this monitor.
func (m *Monitor) IsHeldBy(ownerID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held && m.owner == ownerID
}

// Wait releases the monitor (remembering the current hold count), blocks
// until a Notify/NotifyAll call observes it waiting, then reacquires the
// monitor and restores the hold count.
func (m *Monitor) Wait(ownerID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.held || m.owner != ownerID {
		return fmt.Errorf("monitor: wait by non-owner %d", ownerID)
	}
	savedCount := m.count
	m.count = 0
	m.held = false
	m.lockCond.Signal() // let a blocked Enter in while this thread waits

	gen := m.generation
	for m.generation == gen {
		m.waitCond.Wait()
	}

	m.acquireLocked(ownerID)
	m.count = savedCount
	return nil
}

// Notify wakes one thread blocked in Wait, if any.
func (m *Monitor) Notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.waitCond.Signal()
}

// NotifyAll wakes every thread blocked in Wait.
func (m *Monitor) NotifyAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.waitCond.Broadcast()
}
