// Package tlv implements the NDN-TLV variable-length integer and the
// backward-building encoder / forward-consuming decoder built on top of it.
package tlv

import (
	"encoding/binary"

	"github.com/ndnsync/ndnsync/internal/ndnerr"
)

// EncodeVarNumber appends the TLV variable-length encoding of n to buf and
// returns the extended slice. One byte is used for n < 253; a 253 prefix plus
// a big-endian uint16 for n < 1<<16; a 254 prefix plus a big-endian uint32 for
// n < 1<<32; otherwise a 255 prefix plus a big-endian uint64.
func EncodeVarNumber(buf []byte, n uint64) []byte {
	switch {
	case n < 253:
		return append(buf, byte(n))
	case n <= 0xFFFF:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(n))
		return append(append(buf, 253), b...)
	case n <= 0xFFFFFFFF:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(n))
		return append(append(buf, 254), b...)
	default:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, n)
		return append(append(buf, 255), b...)
	}
}

// VarNumberLength returns the number of bytes EncodeVarNumber would use to
// encode n, without allocating.
func VarNumberLength(n uint64) int {
	switch {
	case n < 253:
		return 1
	case n <= 0xFFFF:
		return 3
	case n <= 0xFFFFFFFF:
		return 5
	default:
		return 9
	}
}

// DecodeVarNumber reads a VarNumber starting at input[offset] and returns its
// value plus the offset of the first byte following it. It fails with
// KindInvalidEncoding if the prefix byte's width extends past len(input).
func DecodeVarNumber(input []byte, offset int) (uint64, int, error) {
	if offset >= len(input) {
		return 0, offset, ndnerr.New(ndnerr.KindInvalidEncoding, "VarNumber: truncated at offset %d", offset)
	}
	first := input[offset]
	switch {
	case first < 253:
		return uint64(first), offset + 1, nil
	case first == 253:
		if offset+3 > len(input) {
			return 0, offset, ndnerr.New(ndnerr.KindInvalidEncoding, "VarNumber: truncated 2-byte form at offset %d", offset)
		}
		return uint64(binary.BigEndian.Uint16(input[offset+1 : offset+3])), offset + 3, nil
	case first == 254:
		if offset+5 > len(input) {
			return 0, offset, ndnerr.New(ndnerr.KindInvalidEncoding, "VarNumber: truncated 4-byte form at offset %d", offset)
		}
		return uint64(binary.BigEndian.Uint32(input[offset+1 : offset+5])), offset + 5, nil
	default:
		if offset+9 > len(input) {
			return 0, offset, ndnerr.New(ndnerr.KindInvalidEncoding, "VarNumber: truncated 8-byte form at offset %d", offset)
		}
		return binary.BigEndian.Uint64(input[offset+1 : offset+9]), offset + 9, nil
	}
}
