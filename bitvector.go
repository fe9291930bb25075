package stoke

import (
	"bytes"
	"fmt"
)

// BitVector holds a concrete fixed-width bit-vector value. Bytes are stored
// little-endian: byte 0 holds bits [0,8).
type BitVector struct {
	bits uint
	data []byte
}

// NewBitVector returns a zeroed bit vector of the given width.
func NewBitVector(bits uint) BitVector {
	return BitVector{bits: bits, data: make([]byte, (bits+7)/8)}
}

// NewBitVectorFromUint64 returns a bit vector of the given width holding the
// low bits of value.
func NewBitVectorFromUint64(bits uint, value uint64) BitVector {
	bv := NewBitVector(bits)
	for i := range bv.data {
		bv.data[i] = byte(value >> (uint(i) * 8))
	}
	return bv
}

// Bits returns the width of the bit vector.
func (bv BitVector) Bits() uint { return bv.bits }

// Byte returns the i-th little-endian byte.
func (bv BitVector) Byte(i int) byte { return bv.data[i] }

// SetByte sets the i-th little-endian byte.
func (bv BitVector) SetByte(i int, b byte) { bv.data[i] = b }

// Uint64 returns the low 64 bits of the value.
func (bv BitVector) Uint64() uint64 {
	var v uint64
	for i := 0; i < len(bv.data) && i < 8; i++ {
		v |= uint64(bv.data[i]) << (uint(i) * 8)
	}
	return v
}

// Equal returns true if both bit vectors have the same width and value.
func (bv BitVector) Equal(other BitVector) bool {
	return bv.bits == other.bits && bytes.Equal(bv.data, other.data)
}

// String returns the value as big-endian hex.
func (bv BitVector) String() string {
	var sb bytes.Buffer
	sb.WriteString("0x")
	for i := len(bv.data) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%02x", bv.data[i])
	}
	return sb.String()
}
