// Package wire implements the NDN-TLV structural codec: the StructureDecoder
// streaming framer and the WireFormat encode/decode functions for Interest
// and Data packets, built on top of internal/tlv.
package wire

// Type codes from the NDN-TLV wire format.
const (
	TypeInterest                      uint64 = 5
	TypeData                          uint64 = 6
	TypeName                          uint64 = 7
	TypeNameComponent                 uint64 = 8
	TypeImplicitSha256DigestComponent uint64 = 1
	TypeNonce                         uint64 = 10
	TypeInterestLifetime              uint64 = 12
	TypeSelectors                     uint64 = 9
	TypeMinSuffixComponents           uint64 = 13
	TypeMaxSuffixComponents           uint64 = 14
	TypePublisherPublicKeyLocator     uint64 = 15
	TypeExclude                       uint64 = 16
	TypeAny                           uint64 = 19
	TypeChildSelector                 uint64 = 17
	TypeMustBeFresh                   uint64 = 18
	TypeMetaInfo                      uint64 = 20
	TypeContent                       uint64 = 21
	TypeSignatureInfo                 uint64 = 22
	TypeSignatureValue                uint64 = 23
	TypeContentType                   uint64 = 24
	TypeFreshnessPeriod               uint64 = 25
	TypeFinalBlockId                  uint64 = 26
	TypeSignatureType                 uint64 = 27
	TypeKeyLocator                    uint64 = 28
	TypeKeyLocatorDigest              uint64 = 29
	TypePSyncContent                  uint64 = 128

	// TypeLink and TypeSelectedDelegation cover the forwarding-hint /
	// selected-delegation pair; the Link value itself is treated as an
	// opaque, previously-encoded blob (see ndn.Interest.LinkBlob). These are
	// the standard NDN-TLV registry values, since this core treats Link
	// contents as opaque.
	TypeLink               uint64 = 39
	TypeSelectedDelegation uint64 = 32
)

// MaxNdnPacketSize is the largest encoded packet this implementation will
// ever build or accept, matching the Face/transport boundary's limit.
const MaxNdnPacketSize = 8800
