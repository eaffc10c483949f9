package psync

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/ndnsync/ndnsync/internal/face"
	"github.com/ndnsync/ndnsync/internal/metrics"
	"github.com/ndnsync/ndnsync/internal/ndn"
	"github.com/ndnsync/ndnsync/internal/ndnlog"
	"github.com/ndnsync/ndnsync/internal/wire"
)

// segmentThreshold is the payload size above which SegmentPublisher chunks
// rather than sending a single Data packet.
const segmentThreshold = wire.MaxNdnPacketSize / 2

// compression flag bytes prepended to a payload before chunking, when
// CompressLargePayloads is enabled. This framing is this engine's own
// convention, layered underneath the wire format, which stays exactly as
// documented.
const (
	flagRaw    byte = 0x00
	flagBrotli byte = 0x01
)

// SegmentPublisher splits a payload larger than segmentThreshold into named
// segments, stores every segment bounded by a freshness period, and pushes
// only the segment a triggering interest actually asked for.
type SegmentPublisher struct {
	face        face.Face
	freshnessMs int64
	compress    bool
	store       map[string]ndn.Data
	log         *ndnlog.Logger
}

// NewSegmentPublisher returns a publisher backed by f, storing segments for
// freshnessMs before they are auto-evicted. compress enables an optional
// brotli pass before chunking.
func NewSegmentPublisher(f face.Face, freshnessMs int64, compress bool) *SegmentPublisher {
	return &SegmentPublisher{
		face:        f,
		freshnessMs: freshnessMs,
		compress:    compress,
		store:       make(map[string]ndn.Data),
		log:         ndnlog.New("segmentpublisher"),
	}
}

// Lookup returns the stored segment named name, if this publisher is
// already serving it.
func (p *SegmentPublisher) Lookup(name ndn.Name) (ndn.Data, bool) {
	d, ok := p.store[name.String()]
	return d, ok
}

// Publish sends payload as a Data packet named dataName, chunking it under
// dataName/<version>/<segment> if it exceeds segmentThreshold. Only the
// segment matching requestedSegmentName (normally the triggering interest's
// name) is pushed immediately via the Face, or segment 0 when no segment
// matches; every segment is stored for later requests until its freshness
// period elapses. sign may be nil.
func (p *SegmentPublisher) Publish(dataName ndn.Name, payload []byte, version uint64, requestedSegmentName ndn.Name, sign Signer) {
	raw := p.frame(payload)

	if len(raw) <= segmentThreshold {
		data := ndn.NewData(dataName)
		data.Content = raw
		p.signAndPut(&data, sign)
		return
	}

	nSegments := (len(raw) + segmentThreshold - 1) / segmentThreshold
	versionName := dataName.AppendGeneric(fmt.Sprintf("%d", version))
	finalBlock := ndn.NewGenericComponent(fmt.Sprintf("%d", nSegments-1))

	var requested *ndn.Data
	for seg := 0; seg < nSegments; seg++ {
		start := seg * segmentThreshold
		end := start + segmentThreshold
		if end > len(raw) {
			end = len(raw)
		}
		segName := versionName.AppendGeneric(fmt.Sprintf("%d", seg))

		data := ndn.NewData(segName)
		data.Content = append([]byte(nil), raw[start:end]...)
		data.MetaInfo.FinalBlockId = &finalBlock
		data.MetaInfo.FreshnessPeriodMs = p.freshnessMs
		if sign != nil {
			if err := sign(&data); err != nil {
				p.log.Printf("sign segment %s: %v", segName, err)
				continue
			}
		}

		key := segName.String()
		p.store[key] = data
		p.scheduleEviction(key)

		if segName.Equal(requestedSegmentName) {
			cp := data
			requested = &cp
		}
	}

	if requested != nil {
		p.face.PutData(*requested)
	} else if first, ok := p.store[versionName.AppendGeneric("0").String()]; ok {
		// No segment was explicitly requested (e.g. the sync interest that
		// triggered this publication carried no segment number): push the
		// first segment so the requester has somewhere to start. Fetching
		// the remaining segments is an application data-fetch loop this
		// package doesn't own.
		p.face.PutData(first)
	}
}

func (p *SegmentPublisher) signAndPut(data *ndn.Data, sign Signer) {
	if sign != nil {
		if err := sign(data); err != nil {
			p.log.Printf("sign %s: %v", data.Name, err)
			return
		}
	}
	p.face.PutData(*data)
}

func (p *SegmentPublisher) scheduleEviction(key string) {
	p.face.CallLater(p.freshnessMs, func() {
		delete(p.store, key)
		metrics.SegmentStoreEvictions.WithLabelValues("fullpsync").Inc()
	})
}

// frame optionally brotli-compresses payload, prefixing a one-byte flag so
// a peer (always running this same code) knows whether to inflate it.
// Falls back to the raw payload if compression isn't smaller or is
// disabled.
func (p *SegmentPublisher) frame(payload []byte) []byte {
	if !p.compress {
		return append([]byte{flagRaw}, payload...)
	}
	compressed, err := compressBrotli(payload)
	if err != nil {
		p.log.Printf("brotli compress failed, sending raw: %v", err)
		return append([]byte{flagRaw}, payload...)
	}
	if len(compressed) >= len(payload) {
		return append([]byte{flagRaw}, payload...)
	}
	return append([]byte{flagBrotli}, compressed...)
}

// unframe reverses frame: it strips the flag byte and inflates the payload
// if it was brotli-compressed.
func unframe(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("psync: empty framed payload")
	}
	switch raw[0] {
	case flagRaw:
		return raw[1:], nil
	case flagBrotli:
		return decompressBrotli(raw[1:])
	default:
		return nil, fmt.Errorf("psync: unrecognized payload frame flag %#x", raw[0])
	}
}

func compressBrotli(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.BestCompression)
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressBrotli(compressed []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(compressed))
	return io.ReadAll(r)
}
