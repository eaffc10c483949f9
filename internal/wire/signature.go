package wire

import (
	"github.com/ndnsync/ndnsync/internal/ndn"
	"github.com/ndnsync/ndnsync/internal/tlv"
)

func writeKeyLocator(e *tlv.Encoder, kl ndn.KeyLocator) {
	e.WriteNested(TypeKeyLocator, func() {
		switch {
		case kl.Name != nil:
			writeName(e, *kl.Name)
		case kl.KeyDigest != nil:
			e.WriteBlobTlv(TypeKeyLocatorDigest, kl.KeyDigest)
		}
	})
}

func readKeyLocator(d *tlv.Decoder) (ndn.KeyLocator, error) {
	end, err := d.ReadNestedTlvsStart(TypeKeyLocator)
	if err != nil {
		return ndn.KeyLocator{}, err
	}
	var kl ndn.KeyLocator
	if d.PeekType(TypeName, end) {
		name, nerr := readName(d)
		if nerr != nil {
			return ndn.KeyLocator{}, nerr
		}
		kl.Name = &name
	} else if d.PeekType(TypeKeyLocatorDigest, end) {
		digest, derr := d.ReadBlobTlvCopy(TypeKeyLocatorDigest)
		if derr != nil {
			return ndn.KeyLocator{}, derr
		}
		kl.KeyDigest = digest
	}
	if err := d.FinishNestedTlvs(end); err != nil {
		return ndn.KeyLocator{}, err
	}
	return kl, nil
}

// signatureTypeCode maps a recognized SignatureType to its wire code; the
// two currently share the same numbering, kept as a separate function so the
// two spaces can diverge if the registry ever does.
func signatureTypeCode(t ndn.SignatureType) uint64 {
	return uint64(t)
}

func recognizedSignatureType(code uint64) (ndn.SignatureType, bool) {
	switch ndn.SignatureType(code) {
	case ndn.SignatureDigestSha256, ndn.SignatureSha256WithRsa, ndn.SignatureSha256WithEcdsa, ndn.SignatureHmacWithSha256:
		return ndn.SignatureType(code), true
	default:
		return 0, false
	}
}

// writeSignatureInfo prepends a SignatureInfo TLV. A Generic value is
// re-emitted verbatim from its stored raw bytes, so signatures this codec
// does not understand survive a decode/re-encode cycle unchanged.
func writeSignatureInfo(e *tlv.Encoder, si ndn.SignatureInfo) {
	if si.IsGeneric {
		e.PrependBytes(si.GenericRaw)
		return
	}
	e.WriteNested(TypeSignatureInfo, func() {
		if si.KeyLocator != nil {
			writeKeyLocator(e, *si.KeyLocator)
		}
		e.WriteNonNegativeIntegerTlv(TypeSignatureType, signatureTypeCode(si.Type))
	})
}

// readSignatureInfo reads a SignatureInfo TLV. Any SignatureType code this
// codec does not recognize is preserved as a Generic value holding the
// entire verbatim TLV, so unrecognized signature schemes can still be
// carried and re-emitted unchanged.
func readSignatureInfo(d *tlv.Decoder) (ndn.SignatureInfo, error) {
	start := d.Offset
	end, err := d.ReadNestedTlvsStart(TypeSignatureInfo)
	if err != nil {
		return ndn.SignatureInfo{}, err
	}

	typCode, err := d.ReadNonNegativeIntegerTlv(TypeSignatureType)
	if err != nil {
		return ndn.SignatureInfo{}, err
	}

	sigType, known := recognizedSignatureType(typCode)
	if !known {
		d.Offset = end
		return ndn.SignatureInfo{
			IsGeneric:       true,
			GenericTypeCode: typCode,
			GenericRaw:      append([]byte(nil), d.Input[start:end]...),
		}, nil
	}

	var si ndn.SignatureInfo
	si.Type = sigType
	if d.PeekType(TypeKeyLocator, end) {
		kl, kerr := readKeyLocator(d)
		if kerr != nil {
			return ndn.SignatureInfo{}, kerr
		}
		si.KeyLocator = &kl
	}
	if err := d.FinishNestedTlvs(end); err != nil {
		return ndn.SignatureInfo{}, err
	}
	return si, nil
}

func writeExclude(e *tlv.Encoder, entries []ndn.ExcludeEntry) {
	e.WriteNested(TypeExclude, func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entry := entries[i]
			if entry.IsAny {
				e.WriteTypeAndLength(TypeAny, 0)
				continue
			}
			e.WriteBlobTlv(componentWireType(entry.Component.Type), entry.Component.Value)
		}
	})
}

func readExclude(d *tlv.Decoder) ([]ndn.ExcludeEntry, error) {
	end, err := d.ReadNestedTlvsStart(TypeExclude)
	if err != nil {
		return nil, err
	}
	var entries []ndn.ExcludeEntry
	for d.Offset < end {
		typ, _, derr := tlv.DecodeVarNumber(d.Input, d.Offset)
		if derr != nil {
			return nil, derr
		}
		if typ == TypeAny {
			if _, rerr := d.ReadBlobTlv(TypeAny); rerr != nil {
				return nil, rerr
			}
			entries = append(entries, ndn.ExcludeEntry{IsAny: true})
			continue
		}
		value, verr := d.ReadBlobTlvCopy(typ)
		if verr != nil {
			return nil, verr
		}
		entries = append(entries, ndn.ExcludeEntry{
			Component: ndn.Component{Type: componentFromWireType(typ), Value: value},
		})
	}
	if err := d.FinishNestedTlvs(end); err != nil {
		return nil, err
	}
	return entries, nil
}

func writeSelectors(e *tlv.Encoder, s ndn.Selectors) {
	if s.IsEmpty() {
		return
	}
	e.WriteNested(TypeSelectors, func() {
		e.WriteBooleanTlv(TypeMustBeFresh, s.MustBeFresh)
		e.WriteOptionalNonNegativeIntegerTlv(TypeChildSelector, s.ChildSelector)
		if len(s.Exclude) > 0 {
			writeExclude(e, s.Exclude)
		}
		if s.PublisherPublicKeyLocator != nil {
			writeKeyLocator(e, *s.PublisherPublicKeyLocator)
		}
		e.WriteOptionalNonNegativeIntegerTlv(TypeMaxSuffixComponents, s.MaxSuffixComponents)
		e.WriteOptionalNonNegativeIntegerTlv(TypeMinSuffixComponents, s.MinSuffixComponents)
	})
}

func readSelectors(d *tlv.Decoder, end int) (ndn.Selectors, error) {
	s := ndn.Selectors{MinSuffixComponents: -1, MaxSuffixComponents: -1, ChildSelector: -1}
	if !d.PeekType(TypeSelectors, end) {
		return s, nil
	}
	selEnd, err := d.ReadNestedTlvsStart(TypeSelectors)
	if err != nil {
		return ndn.Selectors{}, err
	}

	minSfx, err := d.ReadOptionalNonNegativeIntegerTlv(TypeMinSuffixComponents, selEnd)
	if err != nil {
		return ndn.Selectors{}, err
	}
	s.MinSuffixComponents = minSfx

	maxSfx, err := d.ReadOptionalNonNegativeIntegerTlv(TypeMaxSuffixComponents, selEnd)
	if err != nil {
		return ndn.Selectors{}, err
	}
	s.MaxSuffixComponents = maxSfx

	if d.PeekType(TypeKeyLocator, selEnd) {
		kl, kerr := readKeyLocator(d)
		if kerr != nil {
			return ndn.Selectors{}, kerr
		}
		s.PublisherPublicKeyLocator = &kl
	}

	if d.PeekType(TypeExclude, selEnd) {
		entries, eerr := readExclude(d)
		if eerr != nil {
			return ndn.Selectors{}, eerr
		}
		s.Exclude = entries
	}

	childSel, err := d.ReadOptionalNonNegativeIntegerTlv(TypeChildSelector, selEnd)
	if err != nil {
		return ndn.Selectors{}, err
	}
	s.ChildSelector = childSel

	mustBeFresh, err := d.ReadBooleanTlv(TypeMustBeFresh, selEnd)
	if err != nil {
		return ndn.Selectors{}, err
	}
	s.MustBeFresh = mustBeFresh

	if err := d.FinishNestedTlvs(selEnd); err != nil {
		return ndn.Selectors{}, err
	}
	return s, nil
}
