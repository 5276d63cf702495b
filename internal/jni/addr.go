package jni

import "unsafe"

// addressOf returns the absolute address of mem[off], the entry point a
// thunk's caller tail-calls into. mem is backed by an mmap'd region that
// outlives the Allocator (it is never munmap'd), so this pointer stays
// valid for the process's lifetime.
func addressOf(mem []byte, off int) uintptr {
	return uintptr(unsafe.Pointer(&mem[off]))
}
