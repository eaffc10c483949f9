package digesttree

import "testing"

func TestEmptyTreeRootIsSentinel(t *testing.T) {
	tree := New()
	if tree.Root() != EmptyRoot {
		t.Fatalf("Root() = %q, want %q", tree.Root(), EmptyRoot)
	}
}

func TestUpdateInsertsAndAdvancesRoot(t *testing.T) {
	tree := New()
	changed := tree.Update("/a", 1, 0)
	if !changed {
		t.Fatal("first Update should report a change")
	}
	if tree.Root() == EmptyRoot {
		t.Fatal("root should no longer be the empty sentinel")
	}

	seq, ok := tree.SequenceNo("/a", 1)
	if !ok || seq != 0 {
		t.Fatalf("SequenceNo = (%d, %v), want (0, true)", seq, ok)
	}
}

func TestUpdateRejectsStaleSequenceNo(t *testing.T) {
	tree := New()
	tree.Update("/a", 1, 5)
	rootAfterFirst := tree.Root()

	if tree.Update("/a", 1, 3) {
		t.Fatal("Update with a lower sequenceNo should report no change")
	}
	if tree.Update("/a", 1, 5) {
		t.Fatal("Update with an equal sequenceNo should report no change")
	}
	if tree.Root() != rootAfterFirst {
		t.Fatal("root should not move when Update is rejected")
	}

	if !tree.Update("/a", 1, 6) {
		t.Fatal("Update with a higher sequenceNo should report a change")
	}
	if tree.Root() == rootAfterFirst {
		t.Fatal("root should move when sequenceNo strictly increases")
	}
}

func TestNodesKeptSortedByPrefixThenSession(t *testing.T) {
	tree := New()
	tree.Update("/b", 1, 0)
	tree.Update("/a", 2, 0)
	tree.Update("/a", 1, 0)

	nodes := tree.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("len(Nodes()) = %d, want 3", len(nodes))
	}
	want := []struct {
		prefix  string
		session uint64
	}{
		{"/a", 1}, {"/a", 2}, {"/b", 1},
	}
	for i, w := range want {
		if nodes[i].DataPrefix != w.prefix || nodes[i].SessionNo != w.session {
			t.Fatalf("nodes[%d] = (%s, %d), want (%s, %d)", i, nodes[i].DataPrefix, nodes[i].SessionNo, w.prefix, w.session)
		}
	}
}

func TestDigestDeterminism(t *testing.T) {
	treeA := New()
	treeB := New()
	treeA.Update("/x", 1, 3)
	treeA.Update("/y", 2, 7)
	treeB.Update("/y", 2, 7)
	treeB.Update("/x", 1, 3)

	if treeA.Root() != treeB.Root() {
		t.Fatalf("two trees with the same multiset produced different roots: %s vs %s", treeA.Root(), treeB.Root())
	}
}
