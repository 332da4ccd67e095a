package bytecode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kanon/serilang/pkg/value"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := New()
	nIdx := c.AddConstant(value.Int(42))
	c.Push(nIdx)
	c.Return()

	var buf bytes.Buffer
	require.NoError(t, Encode(c, &buf))
	require.NotZero(t, buf.Len())

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, c.Code, decoded.Code)
	require.Len(t, decoded.Constants, 1)
	n, ok := decoded.Constants[0].AsInt()
	require.True(t, ok)
	require.Equal(t, int64(42), n)
}

func TestEncodeDecodeAllScalarKinds(t *testing.T) {
	c := New()
	c.AddConstant(value.Nil)
	c.AddConstant(value.Bool(true))
	c.AddConstant(value.Bool(false))
	c.AddConstant(value.Int(-7))
	c.AddConstant(value.Float(3.5))
	c.AddConstant(value.Str("hello"))

	var buf bytes.Buffer
	require.NoError(t, Encode(c, &buf))

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, decoded.Constants, 6)
	require.True(t, decoded.Constants[0].IsNil())
	b, _ := decoded.Constants[1].AsBool()
	require.True(t, b)
	b, _ = decoded.Constants[2].AsBool()
	require.False(t, b)
	i, _ := decoded.Constants[3].AsInt()
	require.Equal(t, int64(-7), i)
	f, _ := decoded.Constants[4].AsFloat()
	require.Equal(t, 3.5, f)
	s, _ := decoded.Constants[5].AsString()
	require.Equal(t, "hello", s)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0, 0, 0, 0, 1, 0, 0, 0}))
	require.Error(t, err)
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	c := New()
	c.Return()
	var buf bytes.Buffer
	require.NoError(t, Encode(c, &buf))
	raw := buf.Bytes()
	raw[4] = 99 // stomp the version field
	_, err := Decode(bytes.NewReader(raw))
	require.Error(t, err)
}
