package tlv

// Encoder is a backward-building TLV encoder: bytes are written starting
// from the tail of an internal buffer and grow toward the front as callers
// emit children before the type+length header that wraps them. This avoids
// having to pre-compute the size of nested structures.
type Encoder struct {
	data []byte // backing array; valid, already-written bytes are data[pos:]
	pos  int
}

// NewEncoder returns an Encoder with room for about initialCapacity bytes
// before its first reallocation. A non-positive value uses a small default.
func NewEncoder(initialCapacity int) *Encoder {
	if initialCapacity <= 0 {
		initialCapacity = 256
	}
	d := make([]byte, initialCapacity)
	return &Encoder{data: d, pos: initialCapacity}
}

// Length returns the number of bytes written to the encoder so far.
func (e *Encoder) Length() int {
	return len(e.data) - e.pos
}

// Mark returns a value identifying the current write position, suitable for
// later use with LengthSince to compute how much was written after it.
func (e *Encoder) Mark() int {
	return e.Length()
}

// LengthSince returns how many bytes have been prepended since mark was
// captured by Mark.
func (e *Encoder) LengthSince(mark int) int {
	return e.Length() - mark
}

// Finish returns the final encoded bytes in forward (wire) order. The
// Encoder should not be reused afterward.
func (e *Encoder) Finish() []byte {
	return e.data[e.pos:]
}

// ensure grows the backing array so that at least n more bytes can be
// prepended without another reallocation.
func (e *Encoder) ensure(n int) {
	if e.pos >= n {
		return
	}
	used := len(e.data) - e.pos
	newCap := len(e.data)
	if newCap == 0 {
		newCap = 256
	}
	for newCap-used < n {
		newCap *= 2
	}
	nd := make([]byte, newCap)
	copy(nd[newCap-used:], e.data[e.pos:])
	e.pos = newCap - used
	e.data = nd
}

// PrependBytes writes b immediately before the bytes written so far,
// preserving b's own internal byte order.
func (e *Encoder) PrependBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	e.ensure(len(b))
	e.pos -= len(b)
	copy(e.data[e.pos:], b)
}

// WriteVarNumber prepends the VarNumber encoding of n.
func (e *Encoder) WriteVarNumber(n uint64) {
	var tmp [9]byte
	buf := EncodeVarNumber(tmp[:0], n)
	e.PrependBytes(buf)
}

// WriteTypeAndLength prepends a TLV header for a value of the given length
// that the caller has already prepended. Prepending the length first, then
// the type, leaves the final layout reading type, length, value.
func (e *Encoder) WriteTypeAndLength(typ uint64, length uint64) {
	e.WriteVarNumber(length)
	e.WriteVarNumber(typ)
}

// WriteBlobTlv prepends type, length, and value for an opaque byte string.
func (e *Encoder) WriteBlobTlv(typ uint64, value []byte) {
	e.PrependBytes(value)
	e.WriteTypeAndLength(typ, uint64(len(value)))
}

// NonNegativeIntegerBytes returns the smallest-width (1, 2, 4, or 8 byte)
// big-endian encoding of value, per the NDN-TLV NonNegativeInteger rule.
func NonNegativeIntegerBytes(value uint64) []byte {
	switch {
	case value <= 0xFF:
		return []byte{byte(value)}
	case value <= 0xFFFF:
		return []byte{byte(value >> 8), byte(value)}
	case value <= 0xFFFFFFFF:
		return []byte{byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value)}
	default:
		b := make([]byte, 8)
		for i := 7; i >= 0; i-- {
			b[i] = byte(value)
			value >>= 8
		}
		return b
	}
}

// WriteNonNegativeIntegerTlv prepends a fixed-width NonNegativeInteger TLV.
func (e *Encoder) WriteNonNegativeIntegerTlv(typ uint64, value uint64) {
	e.WriteBlobTlv(typ, NonNegativeIntegerBytes(value))
}

// WriteOptionalNonNegativeIntegerTlv writes the TLV only if value >= 0,
// following the sentinel convention used throughout this codec for
// "optional non-negative integer" fields.
func (e *Encoder) WriteOptionalNonNegativeIntegerTlv(typ uint64, value int64) {
	if value < 0 {
		return
	}
	e.WriteNonNegativeIntegerTlv(typ, uint64(value))
}

// WriteBooleanTlv writes a zero-length TLV when present is true and nothing
// otherwise (absent encodes false).
func (e *Encoder) WriteBooleanTlv(typ uint64, present bool) {
	if !present {
		return
	}
	e.WriteTypeAndLength(typ, 0)
}

// WriteNested wraps whatever writeChildren prepends with a type+length
// header sized from the length-from-saved-position pattern: mark the
// position, let the caller emit the nested content, then measure how much
// was written and wrap it.
func (e *Encoder) WriteNested(typ uint64, writeChildren func()) {
	mark := e.Mark()
	writeChildren()
	e.WriteTypeAndLength(typ, uint64(e.LengthSince(mark)))
}
