// Package psync implements the IBLT-driven FullPSync2017 dataset-sync
// protocol: the PSyncState payload codec, the SegmentPublisher chunking
// helper, and the FullPSync engine itself, built on top of internal/iblt
// and internal/wire.
package psync

import (
	"github.com/ndnsync/ndnsync/internal/ndn"
	"github.com/ndnsync/ndnsync/internal/tlv"
	"github.com/ndnsync/ndnsync/internal/wire"
)

// EncodeState serializes an ordered sequence of Names as a PSyncState
// payload: an outer PSyncContent (128) TLV wrapping concatenated Name TLVs.
func EncodeState(names []ndn.Name) []byte {
	e := tlv.NewEncoder(256)
	for i := len(names) - 1; i >= 0; i-- {
		e.PrependBytes(wire.EncodeName(names[i]))
	}
	e.WriteTypeAndLength(wire.TypePSyncContent, uint64(e.Length()))
	return e.Finish()
}

// DecodeState parses a PSyncState payload produced by EncodeState.
func DecodeState(input []byte) ([]ndn.Name, error) {
	d := tlv.NewDecoder(input)
	end, err := d.ReadNestedTlvsStart(wire.TypePSyncContent)
	if err != nil {
		return nil, err
	}
	var names []ndn.Name
	for d.Offset < end {
		start := d.Offset
		nameEnd, nerr := d.ReadNestedTlvsStart(wire.TypeName)
		if nerr != nil {
			return nil, nerr
		}
		name, derr := wire.DecodeName(d.Input[start:nameEnd])
		if derr != nil {
			return nil, derr
		}
		d.Offset = nameEnd
		names = append(names, name)
	}
	if err := d.FinishNestedTlvs(end); err != nil {
		return nil, err
	}
	return names, nil
}
