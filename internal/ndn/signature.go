package ndn

// SignatureType is the wire SignatureType code (NDN-TLV §4.4).
type SignatureType uint64

const (
	SignatureDigestSha256   SignatureType = 0
	SignatureSha256WithRsa  SignatureType = 1
	SignatureSha256WithEcdsa SignatureType = 3
	SignatureHmacWithSha256 SignatureType = 4
)

// KeyLocator identifies the key used to produce a signature, either by Name
// or by a raw digest of the key (KeyLocatorDigest).
type KeyLocator struct {
	Name      *Name
	KeyDigest []byte
}

// SignatureInfo is a tagged union over the signature variants this core
// recognizes, plus a Generic fallback for anything else. Generic preserves
// the entire SignatureInfo TLV verbatim so it can be re-emitted byte for
// byte without understanding it.
type SignatureInfo struct {
	// Type is meaningful only when IsGeneric is false.
	Type       SignatureType
	KeyLocator *KeyLocator

	// IsGeneric is true when the on-wire SignatureType code did not match
	// any recognized variant.
	IsGeneric bool
	// GenericTypeCode is the raw, unrecognized SignatureType code.
	GenericTypeCode uint64
	// GenericRaw is the complete verbatim SignatureInfo TLV (type, length,
	// and value) as read from the wire.
	GenericRaw []byte
}
