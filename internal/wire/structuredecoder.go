package wire

import "github.com/ndnsync/ndnsync/internal/tlv"

type decoderState int

const (
	stateReadHeaderOrClose decoderState = iota
	stateReadBytes
)

// StructureDecoder scans an incrementally-arriving byte stream and reports
// when exactly one complete top-level TLV element is available, without
// needing to understand anything below the outer type+length header. It is
// the stream framer ElementReader drives.
type StructureDecoder struct {
	state datumState
}

// datumState is the mutable scan state, split out so StructureDecoder can be
// reset to a zero value cheaply between elements.
type datumState struct {
	kind decoderState

	// offset is how many bytes of the current element (from its own start)
	// have been scanned so far, across however many findElementEnd calls it
	// took.
	offset int

	// level is 0 before the type has been read and again once a complete
	// element has been scanned; 1 while the length VarNumber is still being
	// read (after the type VarNumber finished).
	level int

	// headerBuf accumulates the raw bytes of a VarNumber (type or length)
	// that arrived split across calls.
	headerBuf []byte

	// nBytesToRead is how many more value bytes remain once the header is
	// fully known.
	nBytesToRead int

	gotElementEnd bool
}

// Reset returns the decoder to scanning a brand new element from offset 0.
func (d *StructureDecoder) Reset() {
	d.state = datumState{}
}

// readVarNumberIncremental feeds newly-available bytes (those of
// input[d.state.offset:] not already held in headerBuf) into the in-progress
// VarNumber read. It returns (value, consumed, true) once a full VarNumber
// has arrived, or (0, 0, false) if more input is needed.
func readVarNumberIncremental(input []byte, offset int, headerBuf *[]byte) (uint64, int, bool) {
	buf := *headerBuf
	// input restarts at the element's first byte on every call, so the bytes
	// already buffered are input[offset:offset+len(buf)]; resume after them.
	offset += len(buf)
	if len(buf) == 0 {
		if offset >= len(input) {
			return 0, 0, false
		}
		buf = append(buf, input[offset])
		offset++
	}
	width := varNumberWidth(buf[0])
	for len(buf) < width && offset < len(input) {
		buf = append(buf, input[offset])
		offset++
	}
	*headerBuf = buf
	if len(buf) < width {
		return 0, 0, false
	}
	v, _, err := tlv.DecodeVarNumber(buf, 0)
	if err != nil {
		// Unreachable: buf is exactly `width` bytes chosen by varNumberWidth.
		return 0, 0, false
	}
	*headerBuf = nil
	return v, len(buf), true
}

// varNumberWidth returns the total byte width (including the prefix byte) a
// VarNumber occupies given its first byte.
func varNumberWidth(first byte) int {
	switch {
	case first < 253:
		return 1
	case first == 253:
		return 3
	case first == 254:
		return 5
	default:
		return 9
	}
}

// FindElementEnd scans input - which always starts at the beginning of the
// element currently being assembled - and reports whether a complete element
// is now present. On success it returns the offset one past the end of that
// element. Repeated calls with growing input make monotonic progress; total
// bytes scanned across calls equal the packet size exactly.
func (d *StructureDecoder) FindElementEnd(input []byte) (end int, ok bool) {
	s := &d.state
	for {
		switch s.kind {
		case stateReadHeaderOrClose:
			if s.level == 0 {
				// Reading the outer TYPE VarNumber.
				_, consumed, got := readVarNumberIncremental(input, s.offset, &s.headerBuf)
				if !got {
					return 0, false
				}
				s.offset += consumed
				s.level = 1
				continue
			}
			// s.level == 1: reading the outer LENGTH VarNumber.
			length, consumed, got := readVarNumberIncremental(input, s.offset, &s.headerBuf)
			if !got {
				return 0, false
			}
			s.offset += consumed
			s.nBytesToRead = int(length)
			s.kind = stateReadBytes
			if s.nBytesToRead == 0 {
				s.level = 0
				s.gotElementEnd = true
				return s.offset, true
			}
			continue

		case stateReadBytes:
			available := len(input) - s.offset
			if available <= 0 {
				return 0, false
			}
			toConsume := available
			if toConsume > s.nBytesToRead {
				toConsume = s.nBytesToRead
			}
			s.offset += toConsume
			s.nBytesToRead -= toConsume
			if s.nBytesToRead == 0 {
				s.level = 0
				s.gotElementEnd = true
				return s.offset, true
			}
			return 0, false
		}
	}
}
