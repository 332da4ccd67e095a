package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyBinaryIntArithmetic(t *testing.T) {
	tests := []struct {
		op   BinaryOp
		l, r int64
		want int64
	}{
		{OpAdd, 3, 4, 7},
		{OpSub, 10, 3, 7},
		{OpMul, 3, 4, 12},
		{OpDiv, 12, 3, 4},
		{OpMod, 10, 3, 1},
	}
	for _, tt := range tests {
		v, err := ApplyBinary(tt.op, Int(tt.l), Int(tt.r))
		require.NoError(t, err)
		n, ok := v.AsInt()
		require.True(t, ok)
		require.Equal(t, tt.want, n)
	}
}

// Division and modulo by zero intentionally return 0 rather than error
// (spec §9: "unusual but intentional"; spec §8's laws section).
func TestDivisionByZeroReturnsZero(t *testing.T) {
	v, err := ApplyBinary(OpDiv, Int(5), Int(0))
	require.NoError(t, err)
	n, _ := v.AsInt()
	require.Equal(t, int64(0), n)

	fv, err := ApplyBinary(OpDiv, Float(5), Float(0))
	require.NoError(t, err)
	f, _ := fv.AsFloat()
	require.Equal(t, 0.0, f)
}

func TestIntegerWraparound(t *testing.T) {
	v, err := ApplyBinary(OpAdd, Int(9223372036854775807), Int(1))
	require.NoError(t, err)
	n, _ := v.AsInt()
	require.Equal(t, int64(-9223372036854775808), n)
}

func TestUShrIs32Bit(t *testing.T) {
	// -1 as a 32-bit pattern is 0xFFFFFFFF; >>> 1 zero-extends to 0x7FFFFFFF.
	v, err := ApplyBinary(OpUShr, Int(-1), Int(1))
	require.NoError(t, err)
	n, _ := v.AsInt()
	require.Equal(t, int64(0x7FFFFFFF), n)
}

func TestShiftRejectsNegativeCount(t *testing.T) {
	_, err := ApplyBinary(OpShl, Int(1), Int(-1))
	require.Error(t, err)
}

func TestComparisonOperators(t *testing.T) {
	tests := []struct {
		op   BinaryOp
		l, r int64
		want bool
	}{
		{OpLess, 3, 4, true},
		{OpLess, 4, 3, false},
		{OpGreater, 4, 3, true},
		{OpLessEqual, 3, 3, true},
		{OpGreaterEqual, 3, 3, true},
		{OpEqual, 3, 3, true},
		{OpNotEqual, 3, 4, true},
	}
	for _, tt := range tests {
		v, err := ApplyBinary(tt.op, Int(tt.l), Int(tt.r))
		require.NoError(t, err)
		b, ok := v.AsBool()
		require.True(t, ok)
		require.Equal(t, tt.want, b)
	}
}

func TestStringConcatAndRepeat(t *testing.T) {
	v, err := ApplyBinary(OpAdd, Str("foo"), Str("bar"))
	require.NoError(t, err)
	s, _ := v.AsString()
	require.Equal(t, "foobar", s)

	v, err = ApplyBinary(OpMul, Str("ab"), Int(3))
	require.NoError(t, err)
	s, _ = v.AsString()
	require.Equal(t, "ababab", s)
}

func TestStringComparison(t *testing.T) {
	v, err := ApplyBinary(OpLess, Str("a"), Str("b"))
	require.NoError(t, err)
	b, _ := v.AsBool()
	require.True(t, b)
}

func TestApplyBinaryTypeMismatchErrors(t *testing.T) {
	_, err := ApplyBinary(OpAdd, Str("x"), Bool(true))
	require.Error(t, err)
}

func TestApplyUnary(t *testing.T) {
	v, err := ApplyUnary(OpNeg, Int(5))
	require.NoError(t, err)
	n, _ := v.AsInt()
	require.Equal(t, int64(-5), n)

	v, err = ApplyUnary(OpBitNot, Int(0))
	require.NoError(t, err)
	n, _ = v.AsInt()
	require.Equal(t, int64(-1), n)

	v, err = ApplyUnary(OpLogicalNot, Bool(false))
	require.NoError(t, err)
	b, _ := v.AsBool()
	require.True(t, b)
}

func TestEqualAcrossNumericKinds(t *testing.T) {
	require.True(t, Equal(Int(3), Float(3.0)))
	require.False(t, Equal(Int(3), Str("3")))
}

func TestIsTruthy(t *testing.T) {
	require.False(t, Nil.IsTruthy())
	require.False(t, Bool(false).IsTruthy())
	require.False(t, Int(0).IsTruthy())
	require.False(t, Float(0).IsTruthy())
	require.False(t, Str("").IsTruthy())
	require.True(t, Int(1).IsTruthy())
	require.True(t, Str("x").IsTruthy())
}
