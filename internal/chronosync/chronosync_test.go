package chronosync

import (
	"path/filepath"
	"testing"

	"github.com/ndnsync/ndnsync/internal/face"
	"github.com/ndnsync/ndnsync/internal/ndn"
	"github.com/ndnsync/ndnsync/internal/store"
)

func newTestNode(t *testing.T, f face.Face, prefix string, sessionNo uint64) (*Node, *bool) {
	t.Helper()
	initialized := false
	n := New(f, Config{
		BroadcastPrefix:       ndn.ParseURI("/ndn/broadcast/test"),
		ApplicationDataPrefix: ndn.ParseURI(prefix),
		SessionNo:             sessionNo,
		SyncLifetimeMs:        2000,
		RecoveryLifetimeMs:    4000,
	}, func() { initialized = true }, nil)
	n.Start()
	return n, &initialized
}

func TestChronoSyncTwoNodesConverge(t *testing.T) {
	clock := face.NewClock()
	hub := face.NewHub(clock)

	faceA := hub.NewFace("A")
	faceB := hub.NewFace("B")

	nodeA, _ := newTestNode(t, faceA, "/ndn/app/a", 1)
	nodeB, initializedB := newTestNode(t, faceB, "/ndn/app/b", 2)

	if err := nodeA.PublishNextSequenceNo(); err != nil {
		t.Fatalf("A publish: %v", err)
	}
	clock.RunUntilIdle(1000)

	if !*initializedB {
		t.Fatal("node B never reported onInitialized after learning A's state")
	}
	if nodeA.Root() != nodeB.Root() {
		t.Fatalf("roots diverged after A's publish: A=%s B=%s", nodeA.Root(), nodeB.Root())
	}

	if err := nodeB.PublishNextSequenceNo(); err != nil {
		t.Fatalf("B publish: %v", err)
	}
	clock.RunUntilIdle(1000)

	if nodeA.Root() != nodeB.Root() {
		t.Fatalf("roots diverged after B's publish: A=%s B=%s", nodeA.Root(), nodeB.Root())
	}
	// A's first publication is sequence 0; B joined at 0 on learning A's
	// state and its own publication then advanced it to 1.
	if nodeA.SequenceNo() != 0 || nodeB.SequenceNo() != 1 {
		t.Fatalf("expected A at sequence 0 and B at 1, got A=%d B=%d", nodeA.SequenceNo(), nodeB.SequenceNo())
	}
	if len(nodeA.Tree().Nodes()) != 2 || len(nodeB.Tree().Nodes()) != 2 {
		t.Fatalf("expected both trees to contain 2 nodes, got A=%d B=%d", len(nodeA.Tree().Nodes()), len(nodeB.Tree().Nodes()))
	}
}

func TestChronoSyncThreeNodesConverge(t *testing.T) {
	clock := face.NewClock()
	hub := face.NewHub(clock)

	nodes := []*Node{}
	for i, prefix := range []string{"/ndn/app/a", "/ndn/app/b", "/ndn/app/c"} {
		f := hub.NewFace(prefix)
		n, _ := newTestNode(t, f, prefix, uint64(i+1))
		nodes = append(nodes, n)
	}

	for _, n := range nodes {
		if err := n.PublishNextSequenceNo(); err != nil {
			t.Fatalf("publish: %v", err)
		}
		clock.RunUntilIdle(1000)
	}

	want := nodes[0].Root()
	for i, n := range nodes {
		if n.Root() != want {
			t.Fatalf("node %d root = %s, want %s", i, n.Root(), want)
		}
		if len(n.Tree().Nodes()) != 3 {
			t.Fatalf("node %d tree has %d nodes, want 3", i, len(n.Tree().Nodes()))
		}
	}
}

func TestChronoSyncRecoveryOnUnknownDigest(t *testing.T) {
	clock := face.NewClock()
	hub := face.NewHub(clock)

	faceA := hub.NewFace("A")
	faceB := hub.NewFace("B")
	faceC := hub.NewFace("C")

	nodeA, _ := newTestNode(t, faceA, "/ndn/app/a", 1)
	nodeB, _ := newTestNode(t, faceB, "/ndn/app/b", 2)

	if err := nodeA.PublishNextSequenceNo(); err != nil {
		t.Fatalf("A publish: %v", err)
	}
	clock.RunUntilIdle(1000)
	if err := nodeB.PublishNextSequenceNo(); err != nil {
		t.Fatalf("B publish: %v", err)
	}
	clock.RunUntilIdle(1000)

	// C joins late, after A and B have already moved past "00": its first
	// sync interest carries a digest ("00") neither A nor B currently hold,
	// but "00" is handled as the dedicated newcomer path, not recovery.
	nodeC, initializedC := newTestNode(t, faceC, "/ndn/app/c", 3)
	clock.RunUntilIdle(1000)

	if !*initializedC {
		t.Fatal("node C never initialized")
	}
	if nodeC.Root() != nodeA.Root() {
		t.Fatalf("C did not converge to A's root: C=%s A=%s", nodeC.Root(), nodeA.Root())
	}

	if err := nodeC.PublishNextSequenceNo(); err != nil {
		t.Fatalf("C publish: %v", err)
	}
	clock.RunUntilIdle(1000)

	if nodeA.Root() != nodeB.Root() || nodeB.Root() != nodeC.Root() {
		t.Fatalf("roots diverged: A=%s B=%s C=%s", nodeA.Root(), nodeB.Root(), nodeC.Root())
	}
}

func TestChronoSyncShutdownStopsProcessing(t *testing.T) {
	clock := face.NewClock()
	hub := face.NewHub(clock)
	faceA := hub.NewFace("A")
	faceB := hub.NewFace("B")

	nodeA, _ := newTestNode(t, faceA, "/ndn/app/a", 1)
	nodeB, _ := newTestNode(t, faceB, "/ndn/app/b", 2)

	nodeB.Shutdown()

	if err := nodeA.PublishNextSequenceNo(); err != nil {
		t.Fatalf("A publish: %v", err)
	}
	clock.RunUntilIdle(1000)

	if nodeB.Root() == nodeA.Root() {
		t.Fatal("shut-down node B should not have kept processing sync state")
	}
}

func TestChronoSyncPersistsPositionAcrossRestart(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "ndnsync.db"))
	if err != nil {
		t.Skipf("sqlite not available: %v", err)
	}
	defer s.Close()

	clock := face.NewClock()
	hub := face.NewHub(clock)
	faceA := hub.NewFace("A")

	cfg := Config{
		BroadcastPrefix:       ndn.ParseURI("/ndn/broadcast/test"),
		ApplicationDataPrefix: ndn.ParseURI("/ndn/app/a"),
		SessionNo:             1,
		SyncLifetimeMs:        2000,
		RecoveryLifetimeMs:    4000,
		Store:                 s,
	}

	node := New(faceA, cfg, nil, nil)
	node.Start()
	if err := node.PublishNextSequenceNo(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := node.PublishNextSequenceNo(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if node.SequenceNo() != 1 {
		t.Fatalf("sequence = %d, want 1", node.SequenceNo())
	}
	node.Shutdown()

	restarted := New(faceA, cfg, nil, nil)
	if restarted.SequenceNo() != 1 {
		t.Fatalf("restarted node's sequence = %d, want 1 (persisted position not restored)", restarted.SequenceNo())
	}
}
