package bytewriter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeULEB(b []byte) (uint64, int) {
	var result uint64
	var shift uint
	for i, by := range b {
		result |= uint64(by&0x7F) << shift
		if by&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
	}
	return result, len(b)
}

func decodeSLEB(b []byte) (int64, int) {
	var result int64
	var shift uint
	var i int
	var by byte
	for {
		by = b[i]
		result |= int64(by&0x7F) << shift
		shift += 7
		i++
		if by&0x80 == 0 {
			break
		}
	}
	if shift < 64 && by&0x40 != 0 {
		result |= -1 << shift
	}
	return result, i
}

func TestU32RoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 300, 16384, math.MaxUint32}
	for _, v := range cases {
		w := New()
		w.U32(v)
		got, n := decodeULEB(w.Bytes())
		require.Equal(t, int(n), len(w.Bytes()))
		require.Equal(t, uint64(v), got)
	}
}

func TestS32RoundTrip(t *testing.T) {
	cases := []int32{0, 1, -1, 63, -64, 64, -65, math.MaxInt32, math.MinInt32}
	for _, v := range cases {
		w := New()
		w.S32(v)
		got, _ := decodeSLEB(w.Bytes())
		require.Equal(t, int64(v), got)
	}
}

func TestS64RoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, math.MaxInt64, math.MinInt64, 1 << 40, -(1 << 40)}
	for _, v := range cases {
		w := New()
		w.S64(v)
		got, _ := decodeSLEB(w.Bytes())
		require.Equal(t, v, got)
	}
}

func TestF64LittleEndian(t *testing.T) {
	w := New()
	w.F64(3.5)
	require.Len(t, w.Bytes(), 8)
	bits := math.Float64bits(3.5)
	for i := 0; i < 8; i++ {
		require.Equal(t, byte(bits>>(8*i)), w.Bytes()[i])
	}
}

func TestStrLengthPrefixed(t *testing.T) {
	w := New()
	w.Str("memory")
	require.Equal(t, byte(6), w.Bytes()[0])
	require.Equal(t, "memory", string(w.Bytes()[1:]))
}

func TestSectionDeferredLength(t *testing.T) {
	w := New()
	w.Section(1, func(child *Writer) {
		child.Byte(0xAA)
		child.Byte(0xBB)
		child.Byte(0xCC)
	})
	require.Equal(t, []byte{1, 3, 0xAA, 0xBB, 0xCC}, w.Bytes())
}

func TestSectionIsDiscardedAfterCopy(t *testing.T) {
	w := New()
	w.Byte(0xFF)
	w.Section(2, func(child *Writer) {
		child.Byte(0x01)
	})
	require.Equal(t, []byte{0xFF, 2, 1, 0x01}, w.Bytes())
}
