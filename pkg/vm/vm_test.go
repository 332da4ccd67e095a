package vm

import (
	"testing"

	"github.com/kanon/serilang/pkg/bytecode"
	"github.com/kanon/serilang/pkg/value"
)

// The scenarios below are spec.md §8's literal concrete test vectors,
// built directly against the Chunk emitters rather than through a
// compiler (out of scope, spec §1).

func TestEvaluateArithmetic(t *testing.T) {
	c := bytecode.New()
	one := c.AddConstant(value.Float(1.0))
	two := c.AddConstant(value.Float(2.0))
	c.Push(one)
	c.Push(two)
	c.BinaryOp(value.OpAdd)
	c.Return()

	m := New()
	m.EnableGC()
	result, err := m.Evaluate(c)
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}
	f, ok := result.AsFloat()
	if !ok || f != 3.0 {
		t.Errorf("expected 3.0, got %v", result.Desc())
	}
}

func TestEvaluateConditional(t *testing.T) {
	c := bytecode.New()
	oneIdx := c.AddConstant(value.Int(1))
	twoIdx := c.AddConstant(value.Int(2))
	c222 := c.AddConstant(value.Int(222))
	c111 := c.AddConstant(value.Int(111))

	c.Push(oneIdx)
	c.Push(twoIdx)
	c.BinaryOp(value.OpLess)
	jf := c.JumpIfFalse()
	c.Push(c222)
	j := c.Jump()
	c.PatchJump(jf)
	c.Push(c111)
	c.PatchJump(j)
	c.Return()

	m := New()
	m.EnableGC()
	result, err := m.Evaluate(c)
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}
	n, ok := result.AsInt()
	if !ok || n != 222 {
		t.Errorf("expected 222, got %v", result.Desc())
	}
}

func TestEvaluateFunctionCall(t *testing.T) {
	c := bytecode.New()
	// Module body: MakeClosure(entry, nparams=0); Call(0); Return.
	c.MakeClosure(0, 0, 0, 0) // entry backpatched below
	c.Call(0, 0)
	c.Return()
	entry := c.Here()
	sevenIdx := c.AddConstant(value.Int(7))
	c.Push(sevenIdx)
	c.Return()

	// Backpatch the MakeClosure's entry operand (byte 1..4 of the op).
	patchU32(c.Code, 1, uint32(entry))

	m := New()
	m.EnableGC()
	result, err := m.Evaluate(c)
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}
	n, ok := result.AsInt()
	if !ok || n != 7 {
		t.Errorf("expected 7, got %v", result.Desc())
	}
}

func patchU32(code []byte, pos int, v uint32) {
	code[pos] = byte(v)
	code[pos+1] = byte(v >> 8)
	code[pos+2] = byte(v >> 16)
	code[pos+3] = byte(v >> 24)
}

func TestEvaluateStringAndBoolLiterals(t *testing.T) {
	tests := []struct {
		name string
		v    value.Value
	}{
		{"string", value.Str("Hello")},
		{"true", value.Bool(true)},
		{"false", value.Bool(false)},
		{"nil", value.Nil},
	}
	for _, tt := range tests {
		c := bytecode.New()
		idx := c.AddConstant(tt.v)
		c.Push(idx)
		c.Return()

		m := New()
		m.EnableGC()
		result, err := m.Evaluate(c)
		if err != nil {
			t.Fatalf("%s: evaluate error: %v", tt.name, err)
		}
		if result.Desc() != tt.v.Desc() {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.v.Desc(), result.Desc())
		}
	}
}
