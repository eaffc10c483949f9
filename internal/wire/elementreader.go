package wire

import "github.com/ndnsync/ndnsync/internal/ndnerr"

// Listener receives complete, framed TLV elements from an ElementReader.
type Listener interface {
	OnReceivedElement(element []byte)
}

// ElementReader turns an incrementally-arriving byte stream into discrete
// packet elements, using StructureDecoder to find each element's boundary.
// When no bytes are carried over from an earlier call, each element is
// delivered as a zero-copy slice of the caller's buffer; otherwise the
// carried-over partial prefix is concatenated once with the new chunk and
// every element of that call is a slice of the concatenation.
type ElementReader struct {
	listener Listener
	decoder  StructureDecoder
	partial  []byte // nil when no bytes are carried over between calls
}

// NewElementReader returns a reader that delivers complete elements to l.
func NewElementReader(l Listener) *ElementReader {
	return &ElementReader{listener: l}
}

// OnReceivedData feeds newly-arrived bytes into the reader. It may deliver
// zero, one, or many elements to the Listener before returning, and returns
// PacketTooLarge if an in-progress element exceeds MaxNdnPacketSize without
// completing - at which point the framer has reset and the next call starts
// a fresh element.
func (r *ElementReader) OnReceivedData(chunk []byte) error {
	var buf []byte
	zeroCopy := len(r.partial) == 0
	if zeroCopy {
		buf = chunk
	} else {
		buf = append(r.partial, chunk...)
		r.partial = nil
	}

	offset := 0
	for offset < len(buf) {
		end, ok := r.decoder.FindElementEnd(buf[offset:])
		if !ok {
			remaining := len(buf) - offset
			if remaining > MaxNdnPacketSize {
				r.decoder.Reset()
				return ndnerr.New(ndnerr.KindPacketTooLarge, "element exceeds %d bytes without completing", MaxNdnPacketSize)
			}
			r.partial = append([]byte(nil), buf[offset:]...)
			return nil
		}
		element := buf[offset : offset+end]
		r.listener.OnReceivedElement(element)
		r.decoder.Reset()
		offset += end
	}
	return nil
}
