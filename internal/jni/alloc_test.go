package jni

import "testing"

func TestAllocatorRejectsOversizeThunk(t *testing.T) {
	a := NewAllocator()
	big := make([]byte, slotSize)
	if _, err := a.Allocate(big); err == nil {
		t.Fatal("expected an error for a thunk body that can't fit alongside its ud2 guard")
	}
}

func TestAllocatorPacksSlotsIntoOneRegion(t *testing.T) {
	a := NewAllocator()
	var addrs []uintptr
	for i := 0; i < slotsPerRegion; i++ {
		addr, err := a.Allocate(intThunk)
		if err != nil {
			t.Fatalf("Allocate #%d: %v", i, err)
		}
		addrs = append(addrs, addr)
	}
	if len(a.regions) != 1 {
		t.Fatalf("expected exactly one region for %d slots, got %d", slotsPerRegion, len(a.regions))
	}
	for i := 1; i < len(addrs); i++ {
		if got, want := addrs[i]-addrs[i-1], uintptr(slotSize); got != want {
			t.Fatalf("slot %d..%d stride = %d, want %d", i-1, i, got, want)
		}
	}
}

func TestAllocatorGrowsANewRegion(t *testing.T) {
	a := NewAllocator()
	for i := 0; i < slotsPerRegion; i++ {
		if _, err := a.Allocate(intThunk); err != nil {
			t.Fatalf("Allocate #%d: %v", i, err)
		}
	}
	if _, err := a.Allocate(intThunk); err != nil {
		t.Fatalf("Allocate into a second region: %v", err)
	}
	if len(a.regions) != 2 {
		t.Fatalf("expected a second region once the first filled up, got %d", len(a.regions))
	}
}

func TestDisassembleDecodesTheSharedThunk(t *testing.T) {
	out := Disassemble(intThunk)
	if out == "" {
		t.Fatal("expected a non-empty disassembly of the shared integer thunk")
	}
}
