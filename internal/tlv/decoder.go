package tlv

import (
	"encoding/binary"

	"github.com/ndnsync/ndnsync/internal/ndnerr"
)

// Decoder is a forward-consuming TLV decoder over an input slice plus a
// current offset. Nested scopes are represented purely as "end offset"
// integers the caller threads through calls.
type Decoder struct {
	Input  []byte
	Offset int
}

// NewDecoder wraps input for decoding starting at offset 0.
func NewDecoder(input []byte) *Decoder {
	return &Decoder{Input: input}
}

func invalidEncoding(format string, args ...any) error {
	return ndnerr.New(ndnerr.KindInvalidEncoding, format, args...)
}

func unexpectedType(format string, args ...any) error {
	return ndnerr.New(ndnerr.KindUnexpectedType, format, args...)
}

// ReadVarNumber reads a VarNumber at the current offset and advances past it.
func (d *Decoder) ReadVarNumber() (uint64, error) {
	v, next, err := DecodeVarNumber(d.Input, d.Offset)
	if err != nil {
		return 0, err
	}
	d.Offset = next
	return v, nil
}

// PeekType reports whether the TLV type at the current offset equals typ,
// without consuming any bytes. end bounds the lookahead to the enclosing
// scope; if the current offset is already at or past end, PeekType reports
// false without error.
func (d *Decoder) PeekType(typ uint64, end int) bool {
	if d.Offset >= end || d.Offset >= len(d.Input) {
		return false
	}
	got, _, err := DecodeVarNumber(d.Input, d.Offset)
	if err != nil {
		return false
	}
	return got == typ
}

// ReadNestedTlvsStart reads a type (asserted to equal expectedType) and a
// length, and returns the offset one past the end of this TLV's value -
// i.e. the end of the nested scope it opens.
func (d *Decoder) ReadNestedTlvsStart(expectedType uint64) (int, error) {
	typ, err := d.ReadVarNumber()
	if err != nil {
		return 0, err
	}
	if typ != expectedType {
		return 0, unexpectedType("expected type %d, got %d at offset %d", expectedType, typ, d.Offset)
	}
	length, err := d.ReadVarNumber()
	if err != nil {
		return 0, err
	}
	end := d.Offset + int(length)
	if end > len(d.Input) {
		return 0, invalidEncoding("declared length %d at offset %d exceeds input", length, d.Offset)
	}
	return end, nil
}

// IsCriticalType reports whether typ must be understood by the decoder: all
// types below 32 are reserved by the base protocol and always critical;
// above that, only even-numbered types are critical. Odd types at or above
// 32 are in the ignorable range and may be skipped when unrecognized.
func IsCriticalType(typ uint64) bool {
	if typ < 32 {
		return true
	}
	return typ%2 == 0
}

// skipTlv consumes one whole TLV (type, length, value) at the current offset
// without interpreting its value.
func (d *Decoder) skipTlv(scopeEnd int) error {
	_, err := d.ReadVarNumber() // type
	if err != nil {
		return err
	}
	length, err := d.ReadVarNumber()
	if err != nil {
		return err
	}
	next := d.Offset + int(length)
	if next > scopeEnd {
		return invalidEncoding("skipped TLV value runs past enclosing scope")
	}
	d.Offset = next
	return nil
}

// FinishNestedTlvs skips any trailing unknown-but-ignorable TLVs in the
// current scope and fails if the offset does not land exactly on end, or if
// an unrecognized critical type is encountered.
func (d *Decoder) FinishNestedTlvs(end int) error {
	for d.Offset < end {
		typ, _, err := DecodeVarNumber(d.Input, d.Offset)
		if err != nil {
			return err
		}
		if IsCriticalType(typ) {
			return unexpectedType("unrecognized critical type %d at offset %d", typ, d.Offset)
		}
		if err := d.skipTlv(end); err != nil {
			return err
		}
	}
	if d.Offset != end {
		return invalidEncoding("nested TLVs overran enclosing scope: offset %d, end %d", d.Offset, end)
	}
	return nil
}

// ReadBlobTlv reads a TLV of the given type and returns its value as a slice
// sharing the input's backing array (zero-copy).
func (d *Decoder) ReadBlobTlv(typ uint64) ([]byte, error) {
	end, err := d.ReadNestedTlvsStart(typ)
	if err != nil {
		return nil, err
	}
	value := d.Input[d.Offset:end]
	d.Offset = end
	return value, nil
}

// ReadBlobTlvCopy is ReadBlobTlv but returns an independent copy, for callers
// whose objects must outlive the input buffer.
func (d *Decoder) ReadBlobTlvCopy(typ uint64) ([]byte, error) {
	v, err := d.ReadBlobTlv(typ)
	if err != nil {
		return nil, err
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

// decodeNonNegativeInteger interprets a 1, 2, 4, or 8 byte big-endian value.
func decodeNonNegativeInteger(b []byte) (uint64, error) {
	switch len(b) {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(b)), nil
	case 8:
		return binary.BigEndian.Uint64(b), nil
	default:
		return 0, invalidEncoding("NonNegativeInteger has invalid width %d", len(b))
	}
}

// ReadNonNegativeIntegerTlv reads a fixed-width NonNegativeInteger TLV.
func (d *Decoder) ReadNonNegativeIntegerTlv(typ uint64) (uint64, error) {
	v, err := d.ReadBlobTlv(typ)
	if err != nil {
		return 0, err
	}
	return decodeNonNegativeInteger(v)
}

// ReadOptionalNonNegativeIntegerTlv returns -1 if the next TLV in scope
// (bounded by end) is not typ; otherwise it consumes and returns the value.
func (d *Decoder) ReadOptionalNonNegativeIntegerTlv(typ uint64, end int) (int64, error) {
	if !d.PeekType(typ, end) {
		return -1, nil
	}
	v, err := d.ReadNonNegativeIntegerTlv(typ)
	if err != nil {
		return -1, err
	}
	return int64(v), nil
}

// ReadOptionalBlobTlv returns (nil, false, nil) if the next TLV in scope is
// not typ; otherwise it consumes and returns the value.
func (d *Decoder) ReadOptionalBlobTlv(typ uint64, end int) ([]byte, bool, error) {
	if !d.PeekType(typ, end) {
		return nil, false, nil
	}
	v, err := d.ReadBlobTlv(typ)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// ReadBooleanTlv reads a presence-flagged boolean: a zero-length TLV of the
// given type means true; its absence (the next TLV in scope is something
// else, or the scope is empty) means false.
func (d *Decoder) ReadBooleanTlv(typ uint64, end int) (bool, error) {
	if !d.PeekType(typ, end) {
		return false, nil
	}
	if _, err := d.ReadBlobTlv(typ); err != nil {
		return false, err
	}
	return true, nil
}
