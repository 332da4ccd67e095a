package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders a chunk as human-readable text. It is not the
// standalone disassembler tool spec §1 excludes (that consumes a
// compiled file on disk and is an external collaborator) — this is
// an in-process debugging aid used by `cmd/serilang dump`, grounded on the teacher's Opcode.String() table
// and the field-by-field commentary in its pkg/bytecode/format.go.
func Disassemble(c *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	ip := 0
	for ip < len(c.Code) {
		ip = disassembleInstruction(&b, c, ip)
	}
	return b.String()
}

func disassembleInstruction(b *strings.Builder, c *Chunk, ip int) int {
	op := Op(c.Code[ip])
	start := ip
	ip++
	fmt.Fprintf(b, "%04d %-16s", start, op)
	switch op {
	case OpPush, OpLoadGlobal, OpStoreGlobal, OpGetField, OpSetField:
		idx, next := c.ReadU32(ip)
		ip = next
		if int(idx) < len(c.Constants) {
			fmt.Fprintf(b, " %d (%s)", idx, c.Constants[idx].Desc())
		} else {
			fmt.Fprintf(b, " %d", idx)
		}
	case OpDup, OpPop, OpUnaryOp, OpBinaryOp, OpLoadLocal, OpStoreLocal,
		OpLoadUpvalue, OpStoreUpvalue, OpCloseUpvalues:
		v, next := c.ReadU8(ip)
		ip = next
		fmt.Fprintf(b, " %d", v)
	case OpJump, OpJumpIfTrue, OpJumpIfFalse, OpTryBegin:
		offset, next := c.ReadI32(ip)
		ip = next
		fmt.Fprintf(b, " %+d -> %d", offset, ip+int(offset))
	case OpMakeClosure, OpMakeFiber:
		entry, next1 := c.ReadU32(ip)
		nparams, next2 := c.ReadU32(next1)
		nlocals, next3 := c.ReadU32(next2)
		nupvals, next4 := c.ReadU32(next3)
		ip = next4
		fmt.Fprintf(b, " entry=%d nparams=%d nlocals=%d nupvals=%d", entry, nparams, nlocals, nupvals)
	case OpCall:
		nargs, next1 := c.ReadU8(ip)
		nkwargs, next2 := c.ReadU8(next1)
		ip = next2
		fmt.Fprintf(b, " nargs=%d nkwargs=%d", nargs, nkwargs)
	case OpTailCall, OpResume:
		v, next := c.ReadU8(ip)
		ip = next
		fmt.Fprintf(b, " %d", v)
	case OpMakeList, OpMakeDict:
		n, next := c.ReadU32(ip)
		ip = next
		fmt.Fprintf(b, " %d", n)
	case OpMakeClass:
		nameIdx, next1 := c.ReadU32(ip)
		nmethods, next2 := c.ReadU16(next1)
		ip = next2
		fmt.Fprintf(b, " name=%d nmethods=%d", nameIdx, nmethods)
	}
	b.WriteByte('\n')
	return ip
}
