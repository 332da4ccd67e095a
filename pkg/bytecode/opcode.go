// Package bytecode implements the chunk format of spec §6.1: a
// byte-packed instruction vector plus a constant pool. Opcodes are a
// single byte; fixed-size operands follow directly, matching the
// teacher's memcpy-style "trivially-copyable operand struct" model
// but packed into a byte stream instead of a Go struct slice, since
// spec §6.1 specifies an in-memory byte-packed format explicitly.
package bytecode

// Op is a single bytecode opcode (spec §6.1).
type Op byte

const (
	OpNop Op = iota
	OpPush           // u32 const_index            -> +1
	OpDup            // u8  top_ofs                -> +1
	OpSwap           //                             ->  0
	OpPop            // u8  count                  -> -count
	OpUnaryOp        // u8  op                      ->  0
	OpBinaryOp       // u8  op                      -> -1
	OpLoadLocal      // u8  slot                    -> +1
	OpStoreLocal     // u8  slot                    -> -1
	OpLoadGlobal     // u32 name_index              -> +1
	OpStoreGlobal    // u32 name_index              -> -1
	OpLoadUpvalue    // u8  slot                    -> +1
	OpStoreUpvalue   // u8  slot                    -> -1
	OpCloseUpvalues  // u8  from_slot                ->  0
	OpJump           // i32 offset                   ->  0
	OpJumpIfTrue     // i32 offset                   -> -1
	OpJumpIfFalse    // i32 offset                   -> -1
	OpReturn         //                             -> stack resized to frame.bp+1
	OpMakeClosure    // u32 entry,nparams,nlocals,nupvals -> +1-nupvals
	OpCall           // u8 nargs; u8 nkwargs         -> -(nargs+2*nkwargs)
	OpTailCall       // u8 nargs                     -> same
	OpMakeList       // u32 n                        -> +1-n
	OpMakeDict       // u32 n_pairs                  -> +1-2*n_pairs
	OpMakeClass      // u32 name_index; u16 nmethods -> +1-2*nmethods
	OpGetField       // u32 name_index               ->  0
	OpSetField       // u32 name_index               -> -2
	OpGetItem        //                             -> -1
	OpSetItem        //                             -> -3
	OpMakeFiber      // u32 entry,nparams,nlocals,nupvals -> +1
	OpResume         // u8 nargs                     -> -(nargs+1)
	OpYield          //                             -> -1
	OpThrow          //                             -> fiber-wide
	OpTryBegin       // i32 handler_rel_ofs          ->  0
	OpTryEnd         //                             ->  0
)

var opNames = [...]string{
	"NOP", "PUSH", "DUP", "SWAP", "POP", "UNARY_OP", "BINARY_OP",
	"LOAD_LOCAL", "STORE_LOCAL", "LOAD_GLOBAL", "STORE_GLOBAL",
	"LOAD_UPVALUE", "STORE_UPVALUE", "CLOSE_UPVALUES",
	"JUMP", "JUMP_IF_TRUE", "JUMP_IF_FALSE", "RETURN",
	"MAKE_CLOSURE", "CALL", "TAIL_CALL",
	"MAKE_LIST", "MAKE_DICT", "MAKE_CLASS",
	"GET_FIELD", "SET_FIELD", "GET_ITEM", "SET_ITEM",
	"MAKE_FIBER", "RESUME", "YIELD", "THROW", "TRY_BEGIN", "TRY_END",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "UNKNOWN"
}
