// Package thread provides the JVM's per-OS-thread interpreter state: one
// frame stack, one pending-exception slot, one return-value slot per
// thread, installed at thread start and torn down at thread exit.
//
// Go has no native thread-local storage, so this package pins the calling
// goroutine to its OS thread (runtime.LockOSThread) and keys a registry by
// the OS thread ID (golang.org/x/sys/unix.Gettid on Linux), giving
// Current() the same "ambient, no explicit threading required" behavior
// the interpreter and native dispatch expect.
package thread

import (
	"fmt"
	goruntime "runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/embervm/embervm/internal/frame"
	"github.com/embervm/embervm/internal/runtime"
)

// Exception is the thread-local pending exception: the throwable object
// plus its class name, kept redundant so diagnostics don't need to
// dereference a possibly-uninitialised class.
type Exception struct {
	ClassName string
	Object    *runtime.Object
}

// State is one OS thread's interpreter context.
type State struct {
	ID uuid.UUID // diagnostic identifier, stable for the thread's lifetime

	Frames *frame.Stack

	mu               sync.Mutex
	pendingException *Exception
	returnValue      *runtime.Value
}

var (
	registryMu sync.Mutex
	registry   = map[int]*State{}
)

// Register binds the calling goroutine to its current OS thread and
// installs a fresh State for it. The caller must call Unregister before
// the goroutine exits (typically via defer) — the OS thread lock is the
// whole mechanism, so the goroutine must not migrate threads afterward.
func Register() *State {
	goruntime.LockOSThread()
	tid := unix.Gettid()

	st := &State{ID: uuid.New(), Frames: frame.NewStack()}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[tid]; exists {
		panic(fmt.Sprintf("thread: OS thread %d already has a registered State", tid))
	}
	registry[tid] = st
	return st
}

// Unregister tears down the calling OS thread's State and releases the
// OS thread lock.
func Unregister() {
	tid := unix.Gettid()
	registryMu.Lock()
	delete(registry, tid)
	registryMu.Unlock()
	goruntime.UnlockOSThread()
}

// WithThread registers a fresh State for the calling goroutine's OS
// thread, runs fn, and unregisters it afterward regardless of outcome —
// the shape every entry point that isn't already inside a registered
// thread (bootstrap preloading, the CLI's top-level call into main) needs
// around a single Registry/Engine call.
func WithThread(fn func() error) error {
	Register()
	defer Unregister()
	return fn()
}

// CurrentID returns the calling OS thread's numeric identity, used as the
// owner token for monitors and for the classloader's load/init state
// machines (which need a stable, comparable "who is doing this" value, not
// the full State).
func CurrentID() uint64 {
	return uint64(unix.Gettid())
}

// Current returns the calling OS thread's State. Panics if the thread was
// never Registered — every path that reaches the interpreter or a native
// function must run inside a registered thread.
func Current() *State {
	tid := unix.Gettid()
	registryMu.Lock()
	st, ok := registry[tid]
	registryMu.Unlock()
	if !ok {
		panic(fmt.Sprintf("thread: OS thread %d has no registered State", tid))
	}
	return st
}

// SetException installs a pending exception, to be observed by the
// interpreter loop at its next yield point.
func (s *State) SetException(exc *Exception) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingException = exc
}

// PendingException returns the current pending exception, or nil.
func (s *State) PendingException() *Exception {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingException
}

// ClearException clears the pending exception slot (after a handler
// catches it).
func (s *State) ClearException() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingException = nil
}

// SetReturnValue records the value delivered by the innermost completed
// call when no caller frame remains to receive it (the outermost return).
func (s *State) SetReturnValue(v runtime.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.returnValue = &v
}

// ReturnValue returns the last value recorded by SetReturnValue, or nil
// if none has been delivered yet.
func (s *State) ReturnValue() *runtime.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.returnValue
}
