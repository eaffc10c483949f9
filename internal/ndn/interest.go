package ndn

// ExcludeEntry is one item of an Interest's exclude list: either a concrete
// component or the "Any" wildcard marker.
type ExcludeEntry struct {
	IsAny     bool
	Component Component
}

// Selectors is the optional filter bundle an Interest may carry. A Selectors
// value with every field at its zero/absent value is not written to the wire
// at all (see Selectors.IsEmpty).
type Selectors struct {
	// MinSuffixComponents / MaxSuffixComponents are -1 when unset.
	MinSuffixComponents int64
	MaxSuffixComponents int64

	PublisherPublicKeyLocator *KeyLocator

	Exclude []ExcludeEntry

	// ChildSelector is -1 when unset.
	ChildSelector int64

	MustBeFresh bool
}

// IsEmpty reports whether no selector field carries information, meaning the
// whole Selectors TLV should be omitted from the wire.
func (s Selectors) IsEmpty() bool {
	return s.MinSuffixComponents < 0 &&
		s.MaxSuffixComponents < 0 &&
		s.PublisherPublicKeyLocator == nil &&
		len(s.Exclude) == 0 &&
		s.ChildSelector < 0 &&
		!s.MustBeFresh
}

// Interest is a request identified primarily by Name.
type Interest struct {
	Name      Name
	Selectors Selectors

	// Nonce is exactly 4 bytes once encoded; nil/shorter/longer values are
	// normalized by the wire encoder (see wire.EncodeInterest).
	Nonce []byte

	// LifetimeMs is -1 when unset.
	LifetimeMs int64

	// LinkBlob is the previously-encoded Link TLV, carried verbatim; nil
	// when the Interest carries no forwarding hint.
	LinkBlob []byte

	// SelectedDelegationIndex is -1 when unset. It is only valid alongside a
	// non-nil LinkBlob.
	SelectedDelegationIndex int64
}

// NewInterest returns an Interest with every optional field at its absent
// sentinel value.
func NewInterest(name Name) Interest {
	return Interest{
		Name: name,
		Selectors: Selectors{
			MinSuffixComponents: -1,
			MaxSuffixComponents: -1,
			ChildSelector:       -1,
		},
		LifetimeMs:              -1,
		SelectedDelegationIndex: -1,
	}
}
