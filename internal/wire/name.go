package wire

import (
	"github.com/ndnsync/ndnsync/internal/ndn"
	"github.com/ndnsync/ndnsync/internal/tlv"
)

func componentWireType(t ndn.ComponentType) uint64 {
	switch t {
	case ndn.ComponentImplicitSha256Digest:
		return TypeImplicitSha256DigestComponent
	default:
		return TypeNameComponent
	}
}

func componentFromWireType(t uint64) ndn.ComponentType {
	if t == TypeImplicitSha256DigestComponent {
		return ndn.ComponentImplicitSha256Digest
	}
	return ndn.ComponentGeneric
}

// EncodeName encodes a standalone Name TLV, as used inside sync protocol
// state (ChronoSync update names, FullPSync name lists) rather than as part
// of an Interest or Data packet.
func EncodeName(name ndn.Name) []byte {
	e := tlv.NewEncoder(64)
	writeName(e, name)
	return e.Finish()
}

// DecodeName decodes a standalone Name TLV produced by EncodeName.
func DecodeName(input []byte) (ndn.Name, error) {
	d := tlv.NewDecoder(input)
	return readName(d)
}

// writeName prepends a Name TLV, with each component's original wire type
// preserved.
func writeName(e *tlv.Encoder, name ndn.Name) {
	e.WriteNested(TypeName, func() {
		for i := len(name.Components) - 1; i >= 0; i-- {
			c := name.Components[i]
			e.WriteBlobTlv(componentWireType(c.Type), c.Value)
		}
	})
}

// readName reads a Name TLV and returns it, copying component values so the
// result does not alias the decoder's input.
func readName(d *tlv.Decoder) (ndn.Name, error) {
	end, err := d.ReadNestedTlvsStart(TypeName)
	if err != nil {
		return ndn.Name{}, err
	}
	var name ndn.Name
	for d.Offset < end {
		typ, _, derr := tlv.DecodeVarNumber(d.Input, d.Offset)
		if derr != nil {
			return ndn.Name{}, derr
		}
		value, rerr := d.ReadBlobTlvCopy(typ)
		if rerr != nil {
			return ndn.Name{}, rerr
		}
		name.Components = append(name.Components, ndn.Component{
			Type:  componentFromWireType(typ),
			Value: value,
		})
	}
	if err := d.FinishNestedTlvs(end); err != nil {
		return ndn.Name{}, err
	}
	return name, nil
}
