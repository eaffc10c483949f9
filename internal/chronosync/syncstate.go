// Package chronosync implements the digest-tree based ChronoSync2013
// dataset-sync protocol on top of internal/wire and internal/digesttree.
package chronosync

import (
	"github.com/ndnsync/ndnsync/internal/ndn"
	"github.com/ndnsync/ndnsync/internal/tlv"
	"github.com/ndnsync/ndnsync/internal/wire"
)

// Type codes for the SyncState payload carried in a sync Data packet's
// Content. These sit above the NDN-TLV registry proper (the core wire codec
// has no opinion on what a Data's Content holds); all four are even-numbered
// so an unrecognized peer treats them as critical rather than silently
// skipping a malformed sync reply.
const (
	typeSyncStateMsg uint64 = 160
	typeUpdate       uint64 = 162
	typeSessionNo    uint64 = 164
	typeSequenceNo   uint64 = 166
)

// Update is one participant's (dataPrefix, sessionNo, sequenceNo)
// advertisement, the only SyncState variant this protocol needs (no DELETE).
type Update struct {
	DataPrefix ndn.Name
	SessionNo  uint64
	SequenceNo uint64
}

// encodeSyncState serializes a sequence of Updates into a SyncState message
// suitable for a sync Data packet's Content.
func encodeSyncState(updates []Update) []byte {
	e := tlv.NewEncoder(128)
	for i := len(updates) - 1; i >= 0; i-- {
		u := updates[i]
		e.WriteNested(typeUpdate, func() {
			e.WriteNonNegativeIntegerTlv(typeSequenceNo, u.SequenceNo)
			e.WriteNonNegativeIntegerTlv(typeSessionNo, u.SessionNo)
			e.PrependBytes(wire.EncodeName(u.DataPrefix))
		})
	}
	e.WriteTypeAndLength(typeSyncStateMsg, uint64(e.Length()))
	return e.Finish()
}

// decodeSyncState parses a SyncState message produced by encodeSyncState.
func decodeSyncState(input []byte) ([]Update, error) {
	d := tlv.NewDecoder(input)
	end, err := d.ReadNestedTlvsStart(typeSyncStateMsg)
	if err != nil {
		return nil, err
	}

	var updates []Update
	for d.Offset < end {
		uEnd, err := d.ReadNestedTlvsStart(typeUpdate)
		if err != nil {
			return nil, err
		}

		nameStart := d.Offset
		nameEnd, err := d.ReadNestedTlvsStart(wire.TypeName)
		if err != nil {
			return nil, err
		}
		name, err := wire.DecodeName(d.Input[nameStart:nameEnd])
		if err != nil {
			return nil, err
		}
		d.Offset = nameEnd

		sessionNo, err := d.ReadNonNegativeIntegerTlv(typeSessionNo)
		if err != nil {
			return nil, err
		}
		sequenceNo, err := d.ReadNonNegativeIntegerTlv(typeSequenceNo)
		if err != nil {
			return nil, err
		}
		if err := d.FinishNestedTlvs(uEnd); err != nil {
			return nil, err
		}

		updates = append(updates, Update{DataPrefix: name, SessionNo: sessionNo, SequenceNo: sequenceNo})
	}
	if err := d.FinishNestedTlvs(end); err != nil {
		return nil, err
	}
	return updates, nil
}

// collapseLatest reduces updates to at most one entry per (dataPrefix,
// sessionNo), keeping the highest sequenceNo seen for each, and returns them
// in first-seen order. This is how log-replay responses and sync Data
// payloads are built: a participant's intermediate sequence numbers are
// never interesting to a peer that is catching up.
func collapseLatest(updates []Update) []Update {
	type key struct {
		prefix    string
		sessionNo uint64
	}
	index := make(map[key]int)
	var out []Update
	for _, u := range updates {
		k := key{prefix: u.DataPrefix.String(), sessionNo: u.SessionNo}
		if i, ok := index[k]; ok {
			if u.SequenceNo > out[i].SequenceNo {
				out[i].SequenceNo = u.SequenceNo
			}
			continue
		}
		index[k] = len(out)
		out = append(out, u)
	}
	return out
}
