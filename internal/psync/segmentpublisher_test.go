package psync

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ndnsync/ndnsync/internal/face"
	"github.com/ndnsync/ndnsync/internal/ndn"
)

func TestSegmentPublisherSmallPayloadSentDirectly(t *testing.T) {
	clock := face.NewClock()
	hub := face.NewHub(clock)
	producer := hub.NewFace("producer")
	consumer := hub.NewFace("consumer")

	p := NewSegmentPublisher(producer, 5000, false)
	dataName := ndn.ParseURI("/ndn/psync/demo/abcd")

	var got ndn.Data
	var ok bool
	consumer.ExpressInterest(ndn.NewInterest(dataName), func(i ndn.Interest, d ndn.Data) {
		got = d
		ok = true
	}, nil, nil)

	p.Publish(dataName, []byte("hello world"), 1, dataName, nil)

	if !ok {
		t.Fatal("consumer never received the Data")
	}
	if !got.Name.Equal(dataName) {
		t.Fatalf("Data name = %s, want %s", got.Name, dataName)
	}
	raw, err := unframe(got.Content)
	if err != nil {
		t.Fatalf("unframe: %v", err)
	}
	if string(raw) != "hello world" {
		t.Fatalf("content = %q, want %q", raw, "hello world")
	}
}

func TestSegmentPublisherChunksLargePayload(t *testing.T) {
	clock := face.NewClock()
	hub := face.NewHub(clock)
	producer := hub.NewFace("producer")

	p := NewSegmentPublisher(producer, 5000, false)
	dataName := ndn.ParseURI("/ndn/psync/demo/full")

	payload := bytes.Repeat([]byte("x"), segmentThreshold*3+10)
	seg0Name := dataName.AppendGeneric("1").AppendGeneric("0")

	p.Publish(dataName, payload, 1, seg0Name, nil)

	seg, ok := p.Lookup(seg0Name)
	if !ok {
		t.Fatal("segment 0 not found in store")
	}
	if seg.MetaInfo.FinalBlockId == nil {
		t.Fatal("segment missing FinalBlockId")
	}

	lastSegName := dataName.AppendGeneric("1").AppendGeneric(seg.MetaInfo.FinalBlockId.String())
	if _, ok := p.Lookup(lastSegName); !ok {
		t.Fatalf("final segment %s not found in store", lastSegName)
	}

	nextName := dataName.AppendGeneric("1").AppendGeneric("999")
	if _, ok := p.Lookup(nextName); ok {
		t.Fatal("found a segment that should not exist")
	}
}

func TestSegmentPublisherEvictsAfterFreshness(t *testing.T) {
	clock := face.NewClock()
	hub := face.NewHub(clock)
	producer := hub.NewFace("producer")

	p := NewSegmentPublisher(producer, 1000, false)
	dataName := ndn.ParseURI("/ndn/psync/demo/evict")
	payload := bytes.Repeat([]byte("y"), segmentThreshold*2)
	seg0Name := dataName.AppendGeneric("1").AppendGeneric("0")

	p.Publish(dataName, payload, 1, seg0Name, nil)
	if _, ok := p.Lookup(seg0Name); !ok {
		t.Fatal("segment should exist immediately after publish")
	}

	clock.Advance(1001)
	if _, ok := p.Lookup(seg0Name); ok {
		t.Fatal("segment should have been evicted after its freshness period")
	}
}

func TestSegmentPublisherCompressionRoundTrips(t *testing.T) {
	clock := face.NewClock()
	hub := face.NewHub(clock)
	producer := hub.NewFace("producer")
	consumer := hub.NewFace("consumer")

	p := NewSegmentPublisher(producer, 5000, true)
	dataName := ndn.ParseURI("/ndn/psync/demo/compressed")
	payload := []byte(strings.Repeat("compress me please ", 50))

	var got ndn.Data
	consumer.ExpressInterest(ndn.NewInterest(dataName), func(i ndn.Interest, d ndn.Data) {
		got = d
	}, nil, nil)

	p.Publish(dataName, payload, 1, dataName, nil)

	raw, err := unframe(got.Content)
	if err != nil {
		t.Fatalf("unframe: %v", err)
	}
	if string(raw) != string(payload) {
		t.Fatalf("round-tripped payload mismatch: got %d bytes, want %d", len(raw), len(payload))
	}
}
