package wire

import (
	"crypto/rand"

	"github.com/ndnsync/ndnsync/internal/ndn"
	"github.com/ndnsync/ndnsync/internal/ndnerr"
	"github.com/ndnsync/ndnsync/internal/tlv"
)

// normalizeNonce returns exactly 4 bytes: a fresh random nonce if n is empty,
// n zero-padded with random bytes if shorter than 4, n truncated if longer,
// or n unchanged if already 4 bytes.
func normalizeNonce(n []byte) []byte {
	if len(n) == 4 {
		return n
	}
	out := make([]byte, 4)
	if len(n) > 4 {
		copy(out, n[:4])
		return out
	}
	copy(out, n)
	if _, err := rand.Read(out[len(n):]); err != nil {
		// crypto/rand failing is not something this codec can recover from;
		// the caller only cares that every Interest carries a 4-byte nonce.
		panic("wire: crypto/rand unavailable: " + err.Error())
	}
	return out
}

// EncodeInterest encodes an Interest per the backward-building sequence:
// SelectedDelegation, Link, Lifetime, Nonce, Selectors, Name, then the outer
// header.
func EncodeInterest(interest ndn.Interest) []byte {
	e := tlv.NewEncoder(256)

	e.WriteOptionalNonNegativeIntegerTlv(TypeSelectedDelegation, interest.SelectedDelegationIndex)
	if interest.LinkBlob != nil {
		e.PrependBytes(interest.LinkBlob)
	}
	e.WriteOptionalNonNegativeIntegerTlv(TypeInterestLifetime, interest.LifetimeMs)
	e.WriteBlobTlv(TypeNonce, normalizeNonce(interest.Nonce))
	if !interest.Selectors.IsEmpty() {
		writeSelectors(e, interest.Selectors)
	}
	writeName(e, interest.Name)

	e.WriteTypeAndLength(TypeInterest, uint64(e.Length()))
	return e.Finish()
}

// DecodeInterest decodes an Interest. If selectedDelegationIndex is present
// without an accompanying Link, it fails with InvalidCombination.
func DecodeInterest(input []byte) (ndn.Interest, error) {
	d := tlv.NewDecoder(input)
	end, err := d.ReadNestedTlvsStart(TypeInterest)
	if err != nil {
		return ndn.Interest{}, err
	}

	name, err := readName(d)
	if err != nil {
		return ndn.Interest{}, err
	}

	selectors, err := readSelectors(d, end)
	if err != nil {
		return ndn.Interest{}, err
	}

	nonce, err := d.ReadBlobTlvCopy(TypeNonce)
	if err != nil {
		return ndn.Interest{}, err
	}

	lifetime, err := d.ReadOptionalNonNegativeIntegerTlv(TypeInterestLifetime, end)
	if err != nil {
		return ndn.Interest{}, err
	}

	var linkBlob []byte
	if d.PeekType(TypeLink, end) {
		linkStart := d.Offset
		linkEnd, lerr := d.ReadNestedTlvsStart(TypeLink)
		if lerr != nil {
			return ndn.Interest{}, lerr
		}
		linkBlob = append([]byte(nil), input[linkStart:linkEnd]...)
		d.Offset = linkEnd
	}

	selectedDelegation, err := d.ReadOptionalNonNegativeIntegerTlv(TypeSelectedDelegation, end)
	if err != nil {
		return ndn.Interest{}, err
	}

	if err := d.FinishNestedTlvs(end); err != nil {
		return ndn.Interest{}, err
	}

	if selectedDelegation >= 0 && linkBlob == nil {
		return ndn.Interest{}, ndnerr.New(ndnerr.KindInvalidCombination, "selectedDelegationIndex set without a Link")
	}

	return ndn.Interest{
		Name:                    name,
		Selectors:               selectors,
		Nonce:                   nonce,
		LifetimeMs:              lifetime,
		LinkBlob:                linkBlob,
		SelectedDelegationIndex: selectedDelegation,
	}, nil
}
