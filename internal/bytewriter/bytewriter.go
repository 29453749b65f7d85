// Package bytewriter implements the append-only byte buffer the code
// generator uses to assemble a Wasm module: raw bytes, LEB128 integers,
// IEEE-754 floats, length-prefixed strings, and length-prefixed sections.
//
// Writer operations never fail. Passing a value U32/S32/S64 cannot
// represent is a programming error, not a runtime one, matching spec.md's
// "numeric overflow is a programming error" contract.
package bytewriter

import (
	"encoding/binary"
	"math"
)

// Writer is an append-only byte buffer.
type Writer struct {
	buf []byte
}

// New returns an empty Writer.
func New() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated byte slice.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Byte appends a single raw byte.
func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

// RawBytes appends a raw byte sequence verbatim.
func (w *Writer) RawBytes(seq []byte) {
	w.buf = append(w.buf, seq...)
}

// U32 appends v as unsigned LEB128: 7-bit groups, continuation bit set on
// every byte but the last.
func (w *Writer) U32(v uint32) {
	w.uleb(uint64(v))
}

// U64 appends v as unsigned LEB128 over the full 64-bit range (used for
// large data offsets).
func (w *Writer) U64(v uint64) {
	w.uleb(v)
}

func (w *Writer) uleb(v uint64) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf = append(w.buf, b)
		if v == 0 {
			return
		}
	}
}

// S32 appends v as signed LEB128.
func (w *Writer) S32(v int32) {
	w.sleb(int64(v))
}

// S64 appends v as signed LEB128.
func (w *Writer) S64(v int64) {
	w.sleb(v)
}

func (w *Writer) sleb(v int64) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			w.buf = append(w.buf, b)
			return
		}
		w.buf = append(w.buf, b|0x80)
	}
}

// F32 appends v as 4-byte little-endian IEEE-754.
func (w *Writer) F32(v float32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v))
	w.buf = append(w.buf, tmp[:]...)
}

// F64 appends v as 8-byte little-endian IEEE-754.
func (w *Writer) F64(v float64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	w.buf = append(w.buf, tmp[:]...)
}

// Str appends s as UTF-8 bytes prefixed with its length (U32).
func (w *Writer) Str(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// Section writes fn's output into a temporary child Writer, then appends
// id, U32(len(child)), child.Bytes() to w. The child is discarded once its
// content has been copied in; nothing about it survives past this call.
func (w *Writer) Section(id byte, fn func(child *Writer)) {
	child := New()
	fn(child)
	w.Byte(id)
	w.U32(uint32(child.Len()))
	w.RawBytes(child.Bytes())
}
