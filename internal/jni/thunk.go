package jni

// argSlots is the widest argument array a hand-emitted thunk accepts:
// JNIEnv*, jclass/jobject receiver, plus four more integer/reference
// arguments loaded into rdx, rcx, r8, r9 — the System V AMD64 integer
// argument registers left after rdi/rsi are spent on JNIEnv/receiver.
// Nothing here chooses between this thunk and the purego CIF path
// (cif.go): the interpreter's JNI calls go through the CIF path, which
// takes more arguments but, like this thunk, no float/double ones.
const argSlots = 6

// intThunk is the fixed x86-64 System V machine code every hand-emitted
// thunk shares. It is called as if it were `void thunk(uintptr_t *args,
// void *target)`: args[0..5] hold the prepared JNIEnv*/receiver/argument
// words, target is the resolved native symbol. r11 and r10 are used as
// scratch because they carry no argument-passing role in the SysV ABI, so
// stashing argsPtr/target there doesn't clobber anything the loads below
// still need:
//
//	mov r11, rdi        ; r11 = args pointer (rdi about to be overwritten)
//	mov r10, rsi        ; r10 = target function address
//	mov rdi, [r11+0]    ; JNIEnv*
//	mov rsi, [r11+8]    ; jclass | jobject
//	mov rdx, [r11+16]   ; arg0
//	mov rcx, [r11+24]   ; arg1
//	mov r8,  [r11+32]   ; arg2
//	mov r9,  [r11+40]   ; arg3
//	jmp r10             ; tail call, target's return value becomes ours
var intThunk = []byte{
	0x49, 0x89, 0xFB, // mov r11, rdi
	0x49, 0x89, 0xF2, // mov r10, rsi
	0x49, 0x8B, 0x3B, // mov rdi, [r11]
	0x49, 0x8B, 0x73, 0x08, // mov rsi, [r11+8]
	0x49, 0x8B, 0x53, 0x10, // mov rdx, [r11+16]
	0x49, 0x8B, 0x4B, 0x18, // mov rcx, [r11+24]
	0x4D, 0x8B, 0x43, 0x20, // mov r8,  [r11+32]
	0x4D, 0x8B, 0x4B, 0x28, // mov r9,  [r11+40]
	0x41, 0xFF, 0xE2, // jmp r10
}

// ThunkEntry is the address of one emitted thunk, ready to be invoked via
// purego.SyscallN(entry, uintptr(unsafe.Pointer(&argWords)), target).
type ThunkEntry uintptr

// EmitIntThunk allocates and emits the shared integer-argument thunk body,
// logging a disassembly of the freshly written bytes at debug level (a
// development-time trace aid, not a correctness dependency — see
// disasm.go).
func (a *Allocator) EmitIntThunk(log func(format string, args ...any)) (ThunkEntry, error) {
	addr, err := a.Allocate(intThunk)
	if err != nil {
		return 0, err
	}
	if log != nil {
		log("jni: emitted thunk at %#x: %s", addr, Disassemble(intThunk))
	}
	return ThunkEntry(addr), nil
}
