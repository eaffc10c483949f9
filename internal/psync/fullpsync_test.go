package psync

import (
	"path/filepath"
	"testing"

	"github.com/ndnsync/ndnsync/internal/face"
	"github.com/ndnsync/ndnsync/internal/ndn"
	"github.com/ndnsync/ndnsync/internal/store"
)

func newTestEngine(f face.Face, onUpdate OnNamesUpdate, seed int64) *Engine {
	e := New(f, Config{
		SyncPrefix:             ndn.ParseURI("/ndn/psync/test"),
		SyncInterestLifetimeMs: 2000,
		JitterPercent:          20,
		ExpectedNEntries:       40,
		SegmentFreshnessMs:     5000,
		JitterSeed:             seed,
	}, onUpdate)
	e.Start()
	return e
}

func TestFullPSyncTwoNodesConverge(t *testing.T) {
	clock := face.NewClock()
	hub := face.NewHub(clock)

	faceA := hub.NewFace("A")
	faceB := hub.NewFace("B")

	var bUpdates []ndn.Name
	engineA := newTestEngine(faceA, nil, 1)
	engineB := newTestEngine(faceB, func(added []ndn.Name) {
		bUpdates = append(bUpdates, added...)
	}, 2)

	engineA.PublishName(ndn.ParseURI("/x/1"))
	clock.RunUntilIdle(2000)

	if len(bUpdates) != 1 || !bUpdates[0].Equal(ndn.ParseURI("/x/1")) {
		t.Fatalf("node B did not observe /x/1 via onNamesUpdate, got %v", bUpdates)
	}

	aNames := engineA.PublishedNames()
	bNames := engineB.PublishedNames()
	if len(aNames) != 1 || len(bNames) != 1 {
		t.Fatalf("expected both engines to hold exactly 1 name, got A=%d B=%d", len(aNames), len(bNames))
	}
}

func TestFullPSyncMultipleNamesConverge(t *testing.T) {
	clock := face.NewClock()
	hub := face.NewHub(clock)

	faceA := hub.NewFace("A")
	faceB := hub.NewFace("B")

	engineA := newTestEngine(faceA, nil, 1)
	engineB := newTestEngine(faceB, nil, 2)

	engineA.PublishName(ndn.ParseURI("/x/1"))
	clock.RunUntilIdle(2000)
	engineB.PublishName(ndn.ParseURI("/y/1"))
	clock.RunUntilIdle(2000)
	engineA.PublishName(ndn.ParseURI("/x/2"))
	clock.RunUntilIdle(2000)

	if len(engineA.PublishedNames()) != 3 {
		t.Fatalf("engine A has %d names, want 3", len(engineA.PublishedNames()))
	}
	if len(engineB.PublishedNames()) != 3 {
		t.Fatalf("engine B has %d names, want 3", len(engineB.PublishedNames()))
	}
}

func TestFullPSyncSelfTimerReissuesWithoutResponse(t *testing.T) {
	clock := face.NewClock()
	hub := face.NewHub(clock)
	faceA := hub.NewFace("A")

	engine := newTestEngine(faceA, nil, 1)
	firstID := engine.outstandingID

	clock.Advance(3000)

	if engine.outstandingID == firstID {
		t.Fatal("self-timer never reissued the sync interest")
	}
}

func TestFullPSyncShutdownStopsConvergence(t *testing.T) {
	clock := face.NewClock()
	hub := face.NewHub(clock)
	faceA := hub.NewFace("A")
	faceB := hub.NewFace("B")

	engineA := newTestEngine(faceA, nil, 1)
	engineB := newTestEngine(faceB, nil, 2)
	engineB.Shutdown()

	engineA.PublishName(ndn.ParseURI("/x/1"))
	clock.RunUntilIdle(2000)

	if len(engineB.PublishedNames()) != 0 {
		t.Fatal("shut-down engine B should not have learned any names")
	}
}

func TestFullPSyncPersistsPublishedNamesAcrossRestart(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "ndnsync.db"))
	if err != nil {
		t.Skipf("sqlite not available: %v", err)
	}
	defer s.Close()

	clock := face.NewClock()
	hub := face.NewHub(clock)
	faceA := hub.NewFace("A")

	cfg := Config{
		SyncPrefix:             ndn.ParseURI("/ndn/psync/test"),
		SyncInterestLifetimeMs: 2000,
		JitterPercent:          20,
		ExpectedNEntries:       40,
		SegmentFreshnessMs:     5000,
		JitterSeed:             1,
		Store:                  s,
	}

	engine := New(faceA, cfg, nil)
	engine.Start()
	engine.PublishName(ndn.ParseURI("/x/1"))
	engine.Shutdown()

	restarted := New(faceA, cfg, nil)
	if len(restarted.PublishedNames()) != 1 {
		t.Fatalf("restarted engine has %d names, want 1 (persisted names not restored)", len(restarted.PublishedNames()))
	}
}
