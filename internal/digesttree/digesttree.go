// Package digesttree implements the sorted (dataPrefix, sessionNo,
// sequenceNo) tree and its SHA-256 root digest that ChronoSync advertises
// and compares between participants.
package digesttree

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
)

// EmptyRoot is the root digest of a tree with no nodes.
const EmptyRoot = "00"

// Node is one participant's (dataPrefix, sessionNo) entry, paired with the
// sequenceNo it last advertised and the digest that summarizes it.
type Node struct {
	DataPrefix string
	SessionNo  uint64
	SequenceNo uint64
	Digest     string // hex-encoded SHA-256
}

func nodeDigest(dataPrefix string, sessionNo, sequenceNo uint64) string {
	prefixHash := sha256.Sum256([]byte(dataPrefix))

	var idBuf [8]byte
	binary.LittleEndian.PutUint32(idBuf[0:4], uint32(sessionNo))
	binary.LittleEndian.PutUint32(idBuf[4:8], uint32(sequenceNo))
	idHash := sha256.Sum256(idBuf[:])

	combined := make([]byte, 0, sha256.Size*2)
	combined = append(combined, prefixHash[:]...)
	combined = append(combined, idHash[:]...)
	digest := sha256.Sum256(combined)
	return hex.EncodeToString(digest[:])
}

// Tree is the sorted sequence of Nodes plus the root digest they produce.
// It is exclusively owned and mutated by a single ChronoSync engine
// instance; it is not safe for concurrent use.
type Tree struct {
	nodes []Node
	root  string
}

// New returns an empty Tree, whose Root is EmptyRoot.
func New() *Tree {
	return &Tree{root: EmptyRoot}
}

// Root returns the tree's current root digest.
func (t *Tree) Root() string {
	return t.root
}

// Nodes returns the tree's nodes in sorted order. The returned slice must
// not be mutated by the caller.
func (t *Tree) Nodes() []Node {
	return t.nodes
}

// find locates the node for (dataPrefix, sessionNo) using the tree's sort
// order (dataPrefix ascending as UTF-8 bytes, then sessionNo ascending),
// returning its index and whether it was found.
func (t *Tree) find(dataPrefix string, sessionNo uint64) (int, bool) {
	idx := sort.Search(len(t.nodes), func(i int) bool {
		return less(dataPrefix, sessionNo, t.nodes[i].DataPrefix, t.nodes[i].SessionNo) <= 0
	})
	if idx < len(t.nodes) && t.nodes[idx].DataPrefix == dataPrefix && t.nodes[idx].SessionNo == sessionNo {
		return idx, true
	}
	return idx, false
}

// less orders two (dataPrefix, sessionNo) keys: <0 if the first sorts
// before the second, 0 if equal, >0 otherwise.
func less(prefixA string, sessionA uint64, prefixB string, sessionB uint64) int {
	if prefixA != prefixB {
		if prefixA < prefixB {
			return -1
		}
		return 1
	}
	switch {
	case sessionA < sessionB:
		return -1
	case sessionA > sessionB:
		return 1
	default:
		return 0
	}
}

func (t *Tree) recomputeRoot() {
	concat := make([]byte, 0, len(t.nodes)*sha256.Size)
	for _, n := range t.nodes {
		raw, err := hex.DecodeString(n.Digest)
		if err != nil {
			// Node digests are always produced by nodeDigest, which always
			// emits valid hex; this would indicate memory corruption.
			panic("digesttree: node digest is not valid hex: " + err.Error())
		}
		concat = append(concat, raw...)
	}
	if len(concat) == 0 {
		t.root = EmptyRoot
		return
	}
	sum := sha256.Sum256(concat)
	t.root = hex.EncodeToString(sum[:])
}

// Update applies a (dataPrefix, sessionNo, sequenceNo) observation. It
// returns true if the tree's state changed (and therefore its root): a new
// node was inserted, or an existing node's sequenceNo strictly increased.
// An existing node whose stored sequenceNo is already >= sequenceNo is left
// untouched and Update returns false.
func (t *Tree) Update(dataPrefix string, sessionNo, sequenceNo uint64) bool {
	idx, found := t.find(dataPrefix, sessionNo)
	if found {
		if t.nodes[idx].SequenceNo >= sequenceNo {
			return false
		}
		t.nodes[idx].SequenceNo = sequenceNo
		t.nodes[idx].Digest = nodeDigest(dataPrefix, sessionNo, sequenceNo)
		t.recomputeRoot()
		return true
	}

	node := Node{
		DataPrefix: dataPrefix,
		SessionNo:  sessionNo,
		SequenceNo: sequenceNo,
		Digest:     nodeDigest(dataPrefix, sessionNo, sequenceNo),
	}
	t.nodes = append(t.nodes, Node{})
	copy(t.nodes[idx+1:], t.nodes[idx:])
	t.nodes[idx] = node
	t.recomputeRoot()
	return true
}

// SequenceNo returns the stored sequenceNo for (dataPrefix, sessionNo) and
// whether that node exists.
func (t *Tree) SequenceNo(dataPrefix string, sessionNo uint64) (uint64, bool) {
	idx, found := t.find(dataPrefix, sessionNo)
	if !found {
		return 0, false
	}
	return t.nodes[idx].SequenceNo, true
}
