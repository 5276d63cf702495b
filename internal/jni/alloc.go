// Package jni implements the native ABI boundary for JNI-style native
// methods: a thunk generator that JIT-emits x86-64 System V trampolines
// for the hand-rolled integer-argument call path (spec.md §4.6), and a
// purego-backed generic call path for arities beyond the hand-emitted
// path's register budget. Neither path passes float/double values: both
// take integer and reference arguments only, and the purego path rejects
// any float/double signature with an error.
//
// Internal natives (the bulk of the class library, see internal/natives)
// never touch this package — it exists only for the JNI extension point:
// a native method declared with ACC_NATIVE whose symbol was resolved
// through System.loadLibrary, not bound to a Go function in the internal
// table.
package jni

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	regionSize     = 64 * 1024 // backing mmap granularity
	slotSize       = 1024      // one thunk per slot
	slotsPerRegion = regionSize / slotSize
)

// fillByte is written across a freshly mapped region before any thunk is
// emitted into it: 0xCC is the x86 INT3 (breakpoint trap) opcode, so an
// accidental jump into unused thunk space traps immediately instead of
// executing whatever zero bytes would decode as.
const fillByte = 0xCC

// ud2 is the two-byte "undefined instruction" guard appended after every
// emitted thunk body, the same role fillByte plays for the rest of the
// slot: a control-flow bug that runs past the thunk's own tail call
// traps instead of executing into the next thunk.
var ud2 = []byte{0x0F, 0x0B}

// region is one 64-KiB executable-memory arena, carved into slotsPerRegion
// fixed-size thunk slots.
type region struct {
	mem  []byte // mmap'd backing memory, PROT_READ|PROT_EXEC once sealed
	next int    // next unallocated slot index
}

// Allocator hands out fixed-size executable memory slots for JIT-emitted
// thunks, growing by one 64-KiB region at a time.
type Allocator struct {
	regions []*region
}

// NewAllocator creates an empty thunk allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// reserve maps a fresh 64-KiB region, read-write, and fills it with the
// INT3 trap byte before any thunk is written into it.
func (a *Allocator) reserve() (*region, error) {
	mem, err := unix.Mmap(-1, 0, regionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("jni: mmap thunk region: %w", err)
	}
	for i := range mem {
		mem[i] = fillByte
	}
	r := &region{mem: mem}
	a.regions = append(a.regions, r)
	return r, nil
}

// Allocate takes the next free slot (reserving a new region when the
// current one is full), remaps the containing region read-write, writes
// code followed by the ud2 guard into the slot, then remaps the region
// read-execute and returns the slot's absolute address. Protection is
// changed for the whole region because a 1-KiB slot is smaller than a
// page.
func (a *Allocator) Allocate(code []byte) (uintptr, error) {
	if len(code)+len(ud2) > slotSize {
		return 0, fmt.Errorf("jni: thunk body of %d bytes exceeds slot size %d", len(code), slotSize)
	}

	var r *region
	if len(a.regions) > 0 {
		last := a.regions[len(a.regions)-1]
		if last.next < slotsPerRegion {
			r = last
		}
	}
	if r == nil {
		var err error
		r, err = a.reserve()
		if err != nil {
			return 0, err
		}
	}

	off := r.next * slotSize
	r.next++

	if err := unix.Mprotect(r.mem, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return 0, fmt.Errorf("jni: mprotect thunk region writable: %w", err)
	}

	copy(r.mem[off:], code)
	copy(r.mem[off+len(code):], ud2)

	if err := unix.Mprotect(r.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return 0, fmt.Errorf("jni: mprotect thunk region: %w", err)
	}

	return addressOf(r.mem, off), nil
}
