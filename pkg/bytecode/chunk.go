package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/kanon/serilang/pkg/value"
)

// Chunk is `{ code: bytes, const_pool: Value[] }` (spec §6.1).
type Chunk struct {
	Code      []byte
	Constants []value.Value
}

// New returns an empty chunk.
func New() *Chunk {
	return &Chunk{}
}

// AddConstant interns v into the constant pool and returns its index.
// Unlike a string-interning pool, no dedup is attempted — a chunk
// builder (the compiler, out of scope) owns dedup policy.
func (c *Chunk) AddConstant(v value.Value) uint32 {
	c.Constants = append(c.Constants, v)
	return uint32(len(c.Constants) - 1)
}

// Here returns the offset of the next byte to be appended — used to
// compute jump targets while assembling a chunk.
func (c *Chunk) Here() int { return len(c.Code) }

// CodeLen satisfies object.Code — it lets a Function reference its
// owning chunk without pkg/object importing pkg/bytecode (spec §9's
// import-cycle-avoidance layering).
func (c *Chunk) CodeLen() int { return len(c.Code) }

func (c *Chunk) emitOp(op Op) int {
	pos := len(c.Code)
	c.Code = append(c.Code, byte(op))
	return pos
}

func (c *Chunk) emitU8(b uint8)  { c.Code = append(c.Code, b) }
func (c *Chunk) emitU16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	c.Code = append(c.Code, buf[:]...)
}
func (c *Chunk) emitU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	c.Code = append(c.Code, buf[:]...)
}
func (c *Chunk) emitI32(v int32) { c.emitU32(uint32(v)) }

// --- Instruction emitters, one per opcode operand layout (spec §6.1) ---

func (c *Chunk) Nop() int  { return c.emitOp(OpNop) }
func (c *Chunk) Push(constIndex uint32) int {
	pos := c.emitOp(OpPush)
	c.emitU32(constIndex)
	return pos
}
func (c *Chunk) Dup(topOfs uint8) int { pos := c.emitOp(OpDup); c.emitU8(topOfs); return pos }
func (c *Chunk) Swap() int            { return c.emitOp(OpSwap) }
func (c *Chunk) Pop(count uint8) int  { pos := c.emitOp(OpPop); c.emitU8(count); return pos }
func (c *Chunk) UnaryOp(op value.UnaryOp) int {
	pos := c.emitOp(OpUnaryOp)
	c.emitU8(uint8(op))
	return pos
}
func (c *Chunk) BinaryOp(op value.BinaryOp) int {
	pos := c.emitOp(OpBinaryOp)
	c.emitU8(uint8(op))
	return pos
}
func (c *Chunk) LoadLocal(slot uint8) int  { pos := c.emitOp(OpLoadLocal); c.emitU8(slot); return pos }
func (c *Chunk) StoreLocal(slot uint8) int { pos := c.emitOp(OpStoreLocal); c.emitU8(slot); return pos }
func (c *Chunk) LoadGlobal(nameIdx uint32) int {
	pos := c.emitOp(OpLoadGlobal)
	c.emitU32(nameIdx)
	return pos
}
func (c *Chunk) StoreGlobal(nameIdx uint32) int {
	pos := c.emitOp(OpStoreGlobal)
	c.emitU32(nameIdx)
	return pos
}
func (c *Chunk) LoadUpvalue(slot uint8) int {
	pos := c.emitOp(OpLoadUpvalue)
	c.emitU8(slot)
	return pos
}
func (c *Chunk) StoreUpvalue(slot uint8) int {
	pos := c.emitOp(OpStoreUpvalue)
	c.emitU8(slot)
	return pos
}
func (c *Chunk) CloseUpvalues(fromSlot uint8) int {
	pos := c.emitOp(OpCloseUpvalues)
	c.emitU8(fromSlot)
	return pos
}

// jumpWithPlaceholder emits a jump with a placeholder offset and returns
// the position of the offset operand for later PatchJump.
func (c *Chunk) jumpWithPlaceholder(op Op) int {
	c.emitOp(op)
	operandPos := len(c.Code)
	c.emitI32(0)
	return operandPos
}
func (c *Chunk) Jump() int         { return c.jumpWithPlaceholder(OpJump) }
func (c *Chunk) JumpIfTrue() int   { return c.jumpWithPlaceholder(OpJumpIfTrue) }
func (c *Chunk) JumpIfFalse() int  { return c.jumpWithPlaceholder(OpJumpIfFalse) }

// PatchJump backpatches the i32 operand at operandPos so that the jump
// lands at c.Here(), per spec §6.1 ("offsets are signed relative to
// the byte following the instruction's last operand byte").
func (c *Chunk) PatchJump(operandPos int) {
	target := int32(c.Here() - (operandPos + 4))
	binary.LittleEndian.PutUint32(c.Code[operandPos:operandPos+4], uint32(target))
}

func (c *Chunk) Return() int { return c.emitOp(OpReturn) }

func (c *Chunk) MakeClosure(entry, nparams, nlocals, nupvals uint32) int {
	pos := c.emitOp(OpMakeClosure)
	c.emitU32(entry)
	c.emitU32(nparams)
	c.emitU32(nlocals)
	c.emitU32(nupvals)
	return pos
}
func (c *Chunk) Call(nargs, nkwargs uint8) int {
	pos := c.emitOp(OpCall)
	c.emitU8(nargs)
	c.emitU8(nkwargs)
	return pos
}
func (c *Chunk) TailCall(nargs uint8) int { pos := c.emitOp(OpTailCall); c.emitU8(nargs); return pos }
func (c *Chunk) MakeList(n uint32) int    { pos := c.emitOp(OpMakeList); c.emitU32(n); return pos }
func (c *Chunk) MakeDict(nPairs uint32) int {
	pos := c.emitOp(OpMakeDict)
	c.emitU32(nPairs)
	return pos
}
func (c *Chunk) MakeClass(nameIdx uint32, nmethods uint16) int {
	pos := c.emitOp(OpMakeClass)
	c.emitU32(nameIdx)
	c.emitU16(nmethods)
	return pos
}
func (c *Chunk) GetField(nameIdx uint32) int {
	pos := c.emitOp(OpGetField)
	c.emitU32(nameIdx)
	return pos
}
func (c *Chunk) SetField(nameIdx uint32) int {
	pos := c.emitOp(OpSetField)
	c.emitU32(nameIdx)
	return pos
}
func (c *Chunk) GetItem() int { return c.emitOp(OpGetItem) }
func (c *Chunk) SetItem() int { return c.emitOp(OpSetItem) }

func (c *Chunk) MakeFiber(entry, nparams, nlocals, nupvals uint32) int {
	pos := c.emitOp(OpMakeFiber)
	c.emitU32(entry)
	c.emitU32(nparams)
	c.emitU32(nlocals)
	c.emitU32(nupvals)
	return pos
}
func (c *Chunk) Resume(nargs uint8) int { pos := c.emitOp(OpResume); c.emitU8(nargs); return pos }
func (c *Chunk) Yield() int             { return c.emitOp(OpYield) }
func (c *Chunk) Throw() int             { return c.emitOp(OpThrow) }
func (c *Chunk) TryBegin() int          { return c.jumpWithPlaceholder(OpTryBegin) }
func (c *Chunk) TryEnd() int            { return c.emitOp(OpTryEnd) }

// --- Decoding helpers used by the interpreter's fetch step ---

func (c *Chunk) ReadU8(ip int) (uint8, int)   { return c.Code[ip], ip + 1 }
func (c *Chunk) ReadU16(ip int) (uint16, int) {
	return binary.LittleEndian.Uint16(c.Code[ip : ip+2]), ip + 2
}
func (c *Chunk) ReadU32(ip int) (uint32, int) {
	return binary.LittleEndian.Uint32(c.Code[ip : ip+4]), ip + 4
}
func (c *Chunk) ReadI32(ip int) (int32, int) {
	u, next := c.ReadU32(ip)
	return int32(u), next
}

// Constant fetches constant i, bounds-checked.
func (c *Chunk) Constant(i uint32) (value.Value, error) {
	if int(i) >= len(c.Constants) {
		return value.Nil, fmt.Errorf("constant index out of bounds: %d", i)
	}
	return c.Constants[i], nil
}
