package jni

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// Disassemble decodes code as a sequence of 64-bit x86 instructions,
// returning a human-readable one-line trace. Used only for the debug-level
// log line emitted after a thunk is written (the same diagnostic role
// arm64asm plays for zboralski-galago's disassembler) — a decode failure
// here is reported inline rather than propagated, since a malformed trace
// line must never fail thunk emission itself.
func Disassemble(code []byte) string {
	var parts []string
	for pc := 0; pc < len(code); {
		inst, err := x86asm.Decode(code[pc:], 64)
		if err != nil {
			parts = append(parts, fmt.Sprintf("<bad opcode @%d: %v>", pc, err))
			break
		}
		parts = append(parts, x86asm.GNUSyntax(inst, uint64(pc), nil))
		pc += inst.Len
	}
	return strings.Join(parts, "; ")
}
