// Package ndnerr holds the small set of tagged error values the codec and
// sync engines can return, per the error taxonomy in the NDN core design.
package ndnerr

import "fmt"

// Kind tags one of the error categories the codec/sync engines can surface.
type Kind int

const (
	// KindInvalidEncoding covers truncated input, a malformed VarNumber, or a
	// declared length that would exceed the enclosing TLV scope.
	KindInvalidEncoding Kind = iota
	// KindUnexpectedType covers a decoder encountering a type it cannot accept
	// under the critical/ignorable type rule.
	KindUnexpectedType
	// KindIbltDecode covers an inflated IBLT of the wrong size, or a
	// difference that exceeds decoding capacity.
	KindIbltDecode
	// KindPacketTooLarge covers an element stream exceeding wire.MaxNdnPacketSize.
	KindPacketTooLarge
	// KindInvalidCombination covers structurally inconsistent fields, e.g. a
	// selected delegation index with no Link present.
	KindInvalidCombination
	// KindSignatureUnsupported covers an unknown SignatureType at encode time.
	KindSignatureUnsupported
	// KindTimeout covers a Face-reported Interest timeout propagated to a
	// sync engine.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindInvalidEncoding:
		return "InvalidEncoding"
	case KindUnexpectedType:
		return "UnexpectedType"
	case KindIbltDecode:
		return "IbltDecodeError"
	case KindPacketTooLarge:
		return "PacketTooLarge"
	case KindInvalidCombination:
		return "InvalidCombination"
	case KindSignatureUnsupported:
		return "SignatureUnsupported"
	case KindTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Error is a tagged error carrying the offending Kind plus a human message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New builds a tagged Error.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
