// Chunk (de)serialization, mirroring the teacher's .sg binary-format
// approach (magic + version header, length-prefixed constant pool,
// length-prefixed code section) retargeted at the new Chunk shape.
// Spec §6.1 calls the chunk format "in-memory" and leaves an on-disk
// encoding unspecified, so this is ambient tooling letting an embedder
// CLI load a chunk a compiler produced out-of-band — the compiler
// itself stays out of scope per spec §1.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/kanon/serilang/pkg/value"
)

const (
	// magicNumber is the file signature for serilang chunk files:
	// 0x53455249 ("SERI" as a big-endian number). Encode writes it
	// little-endian, so a file's first four bytes are "IRES".
	magicNumber   uint32 = 0x53455249
	formatVersion uint32 = 1
)

const (
	constTypeNil    byte = 0x00
	constTypeBool   byte = 0x01
	constTypeInt    byte = 0x02
	constTypeFloat  byte = 0x03
	constTypeString byte = 0x04
)

// Encode writes chunk to w in the serilang chunk binary format. Only
// scalar constants (Nil/Bool/Int/Float/Str) are supported: a
// compiler's constant pool never needs to intern a heap object, those
// only arise from runtime allocation.
func Encode(chunk *Chunk, w io.Writer) error {
	if err := writeU32(w, magicNumber); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := writeU32(w, formatVersion); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	if err := writeU32(w, uint32(len(chunk.Constants))); err != nil {
		return fmt.Errorf("write constant count: %w", err)
	}
	for i, c := range chunk.Constants {
		if err := encodeConstant(w, c); err != nil {
			return fmt.Errorf("write constant %d: %w", i, err)
		}
	}
	if err := writeU32(w, uint32(len(chunk.Code))); err != nil {
		return fmt.Errorf("write code length: %w", err)
	}
	if _, err := w.Write(chunk.Code); err != nil {
		return fmt.Errorf("write code: %w", err)
	}
	return nil
}

// Decode reads a chunk previously written by Encode.
func Decode(r io.Reader) (*Chunk, error) {
	magic, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != magicNumber {
		return nil, fmt.Errorf("not a serilang chunk file (bad magic %#08x)", magic)
	}
	version, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported chunk format version %d (expected %d)", version, formatVersion)
	}
	nConsts, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("read constant count: %w", err)
	}
	chunk := New()
	for i := uint32(0); i < nConsts; i++ {
		c, err := decodeConstant(r)
		if err != nil {
			return nil, fmt.Errorf("read constant %d: %w", i, err)
		}
		chunk.Constants = append(chunk.Constants, c)
	}
	codeLen, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("read code length: %w", err)
	}
	chunk.Code = make([]byte, codeLen)
	if _, err := io.ReadFull(r, chunk.Code); err != nil {
		return nil, fmt.Errorf("read code: %w", err)
	}
	return chunk, nil
}

func encodeConstant(w io.Writer, c value.Value) error {
	switch c.Kind() {
	case value.KindNil:
		return writeByte(w, constTypeNil)
	case value.KindBool:
		b, _ := c.AsBool()
		if err := writeByte(w, constTypeBool); err != nil {
			return err
		}
		var v byte
		if b {
			v = 1
		}
		return writeByte(w, v)
	case value.KindInt:
		i, _ := c.AsInt()
		if err := writeByte(w, constTypeInt); err != nil {
			return err
		}
		return writeU64(w, uint64(i))
	case value.KindFloat:
		f, _ := c.AsFloat()
		if err := writeByte(w, constTypeFloat); err != nil {
			return err
		}
		return writeU64(w, math.Float64bits(f))
	case value.KindString:
		s, _ := c.AsString()
		if err := writeByte(w, constTypeString); err != nil {
			return err
		}
		if err := writeU32(w, uint32(len(s))); err != nil {
			return err
		}
		_, err := w.Write([]byte(s))
		return err
	default:
		return fmt.Errorf("constant pool entries must be scalar, got %s", c.Kind())
	}
}

func decodeConstant(r io.Reader) (value.Value, error) {
	t, err := readByte(r)
	if err != nil {
		return value.Nil, err
	}
	switch t {
	case constTypeNil:
		return value.Nil, nil
	case constTypeBool:
		b, err := readByte(r)
		if err != nil {
			return value.Nil, err
		}
		return value.Bool(b != 0), nil
	case constTypeInt:
		u, err := readU64(r)
		if err != nil {
			return value.Nil, err
		}
		return value.Int(int64(u)), nil
	case constTypeFloat:
		u, err := readU64(r)
		if err != nil {
			return value.Nil, err
		}
		return value.Float(math.Float64frombits(u)), nil
	case constTypeString:
		n, err := readU32(r)
		if err != nil {
			return value.Nil, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return value.Nil, err
		}
		return value.Str(string(buf)), nil
	default:
		return value.Nil, fmt.Errorf("unknown constant type byte %#02x", t)
	}
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], err
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
