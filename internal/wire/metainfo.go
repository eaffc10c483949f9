package wire

import (
	"github.com/ndnsync/ndnsync/internal/ndn"
	"github.com/ndnsync/ndnsync/internal/tlv"
)

func writeMetaInfo(e *tlv.Encoder, m ndn.MetaInfo) {
	e.WriteNested(TypeMetaInfo, func() {
		if m.FinalBlockId != nil {
			fb := *m.FinalBlockId
			e.WriteNested(TypeFinalBlockId, func() {
				e.WriteBlobTlv(componentWireType(fb.Type), fb.Value)
			})
		}
		e.WriteOptionalNonNegativeIntegerTlv(TypeFreshnessPeriod, m.FreshnessPeriodMs)
		// ContentType is omitted entirely when it is the BLOB default.
		if m.ContentType != ndn.ContentTypeBlob || m.OtherTypeCode != 0 {
			code := uint64(m.ContentType)
			if m.OtherTypeCode != 0 {
				code = m.OtherTypeCode
			}
			e.WriteNonNegativeIntegerTlv(TypeContentType, code)
		}
	})
}

// readMetaInfo reads a MetaInfo TLV. The historical decode-order quirk noted
// in the design ("LINK -> KEY -> otherwise BLOB", with a documented but
// non-reproduced bug in an earlier wire-format version) is resolved here by
// a straightforward code-to-ContentType mapping; no bug is carried forward.
func readMetaInfo(d *tlv.Decoder) (ndn.MetaInfo, error) {
	end, err := d.ReadNestedTlvsStart(TypeMetaInfo)
	if err != nil {
		return ndn.MetaInfo{}, err
	}
	m := ndn.MetaInfo{ContentType: ndn.ContentTypeBlob, FreshnessPeriodMs: -1}

	if d.PeekType(TypeContentType, end) {
		code, cerr := d.ReadNonNegativeIntegerTlv(TypeContentType)
		if cerr != nil {
			return ndn.MetaInfo{}, cerr
		}
		switch code {
		case uint64(ndn.ContentTypeLink):
			m.ContentType = ndn.ContentTypeLink
		case uint64(ndn.ContentTypeKey):
			m.ContentType = ndn.ContentTypeKey
		case uint64(ndn.ContentTypeBlob):
			m.ContentType = ndn.ContentTypeBlob
		case uint64(ndn.ContentTypeNack):
			m.ContentType = ndn.ContentTypeNack
		default:
			m.ContentType = ndn.ContentType(code)
			m.OtherTypeCode = code
		}
	}

	freshness, ferr := d.ReadOptionalNonNegativeIntegerTlv(TypeFreshnessPeriod, end)
	if ferr != nil {
		return ndn.MetaInfo{}, ferr
	}
	m.FreshnessPeriodMs = freshness

	if d.PeekType(TypeFinalBlockId, end) {
		fbEnd, ferr2 := d.ReadNestedTlvsStart(TypeFinalBlockId)
		if ferr2 != nil {
			return ndn.MetaInfo{}, ferr2
		}
		compType, _, terr := tlv.DecodeVarNumber(d.Input, d.Offset)
		if terr != nil {
			return ndn.MetaInfo{}, terr
		}
		value, verr := d.ReadBlobTlvCopy(compType)
		if verr != nil {
			return ndn.MetaInfo{}, verr
		}
		fb := ndn.Component{Type: componentFromWireType(compType), Value: value}
		m.FinalBlockId = &fb
		if err := d.FinishNestedTlvs(fbEnd); err != nil {
			return ndn.MetaInfo{}, err
		}
	}

	if err := d.FinishNestedTlvs(end); err != nil {
		return ndn.MetaInfo{}, err
	}
	return m, nil
}
