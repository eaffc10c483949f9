// Package iblt implements the Invertible Bloom Lookup Table FullPSync uses
// to represent and difference the set of advertised names: insert/erase,
// difference, entry listing (peeling), and a DEFLATE-compressed wire
// encoding.
package iblt

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"io"

	"github.com/ndnsync/ndnsync/internal/ndnerr"
)

// NHash is the number of hash functions (and sub-tables) each key touches.
const NHash = 3

// NHashCheck is the seed used to compute each entry's keyCheck field.
const NHashCheck = 11

// entryWireSize is the packed little-endian byte width of one Entry:
// (count, keySum-low32, keyCheck-low32).
const entryWireSize = 12

// Entry is one bucket of the table. Count, KeySum, and KeyCheck are kept at
// full 64-bit width internally; only their low 32 bits survive a wire
// round-trip, a deliberate, documented lossy-compatibility trait of the
// reference encoding rather than an oversight.
type Entry struct {
	Count    int64
	KeySum   uint64
	KeyCheck uint64
}

func (e Entry) isEmpty() bool {
	return e.Count == 0 && e.KeySum == 0 && e.KeyCheck == 0
}

func (e Entry) isPure() bool {
	if e.Count != 1 && e.Count != -1 {
		return false
	}
	return uint32(hashKey(NHashCheck, uint32(e.KeySum))) == uint32(e.KeyCheck)
}

// IBLT is a fixed-size table of Entry buckets, split into NHash equal-sized
// sub-tables. It is exclusively owned by whichever sync engine holds it;
// callers must not share one instance across goroutines.
type IBLT struct {
	bucketsPerTable int
	entries         []Entry
}

// New returns an empty IBLT sized for nEntries expected keys: per-bucket
// capacity is padded by the standard 1.5x headroom factor before being
// split evenly across NHash sub-tables, i.e.
// ceil(1.5 * nEntries / NHash) * NHash buckets total.
func New(nEntries int) *IBLT {
	if nEntries <= 0 {
		nEntries = NHash
	}
	padded := nEntries + nEntries/2
	b := (padded + NHash - 1) / NHash
	return &IBLT{
		bucketsPerTable: b,
		entries:         make([]Entry, b*NHash),
	}
}

func (t *IBLT) bucketIndex(hashIndex int, key uint32) int {
	offset := int(hashKey(uint32(hashIndex), key)) % t.bucketsPerTable
	if offset < 0 {
		offset += t.bucketsPerTable
	}
	return hashIndex*t.bucketsPerTable + offset
}

func (t *IBLT) update(key uint32, countDelta int64) {
	keyCheck := uint64(hashKey(NHashCheck, key))
	for i := 0; i < NHash; i++ {
		idx := t.bucketIndex(i, key)
		t.entries[idx].Count += countDelta
		t.entries[idx].KeySum ^= uint64(key)
		t.entries[idx].KeyCheck ^= keyCheck
	}
}

// Insert adds key to the table.
func (t *IBLT) Insert(key uint32) {
	t.update(key, 1)
}

// Erase removes key from the table; erasing a key that was never inserted
// leaves the table in a state only a matching Insert will clean back up.
func (t *IBLT) Erase(key uint32) {
	t.update(key, -1)
}

// Clone returns an independent copy.
func (t *IBLT) Clone() *IBLT {
	out := &IBLT{bucketsPerTable: t.bucketsPerTable, entries: make([]Entry, len(t.entries))}
	copy(out.entries, t.entries)
	return out
}

// Difference returns a new IBLT representing the symmetric set difference
// t - other: each bucket's count, keySum, and keyCheck combine
// elementwise. t and other must have the same table shape.
func (t *IBLT) Difference(other *IBLT) *IBLT {
	out := &IBLT{bucketsPerTable: t.bucketsPerTable, entries: make([]Entry, len(t.entries))}
	for i := range t.entries {
		a, b := t.entries[i], other.entries[i]
		out.entries[i] = Entry{
			Count:    a.Count - b.Count,
			KeySum:   a.KeySum ^ b.KeySum,
			KeyCheck: a.KeyCheck ^ b.KeyCheck,
		}
	}
	return out
}

// ListEntries peels pure entries (|count|==1 with a matching keyCheck) off
// a working copy of the table until a pass removes nothing further. It
// returns the positive keys (count==1, present in t but not the peer) and
// negative keys (count==-1, present in the peer but not t). ok is false when
// peeling stalls before every bucket empties out, meaning the difference
// exceeded this table's decoding capacity.
func (t *IBLT) ListEntries() (positive, negative []uint32, ok bool) {
	peeled := make([]Entry, len(t.entries))
	copy(peeled, t.entries)

	for {
		erasedThisPass := 0
		for idx := range peeled {
			e := peeled[idx]
			if !e.isPure() {
				continue
			}
			key := uint32(e.KeySum)
			if e.Count == 1 {
				positive = append(positive, key)
			} else {
				negative = append(negative, key)
			}
			applyDelta(peeled, t.bucketsPerTable, key, -e.Count)
			erasedThisPass++
		}
		if erasedThisPass == 0 {
			break
		}
	}

	for _, e := range peeled {
		if !e.isEmpty() {
			return positive, negative, false
		}
	}
	return positive, negative, true
}

func applyDelta(entries []Entry, bucketsPerTable int, key uint32, countDelta int64) {
	keyCheck := uint64(hashKey(NHashCheck, key))
	for i := 0; i < NHash; i++ {
		offset := int(hashKey(uint32(i), key)) % bucketsPerTable
		if offset < 0 {
			offset += bucketsPerTable
		}
		idx := i*bucketsPerTable + offset
		entries[idx].Count += countDelta
		entries[idx].KeySum ^= uint64(key)
		entries[idx].KeyCheck ^= keyCheck
	}
}

// Encode packs every entry as little-endian (count int32, keySum-low32,
// keyCheck-low32) and DEFLATE-compresses the result at level 9.
func (t *IBLT) Encode() ([]byte, error) {
	raw := make([]byte, 0, len(t.entries)*entryWireSize)
	var buf [entryWireSize]byte
	for _, e := range t.entries {
		binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(e.Count)))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(e.KeySum))
		binary.LittleEndian.PutUint32(buf[8:12], uint32(e.KeyCheck))
		raw = append(raw, buf[:]...)
	}

	var compressed bytes.Buffer
	w, err := flate.NewWriter(&compressed, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return compressed.Bytes(), nil
}

// Initialize replaces t's contents by INFLATE-decompressing blob and
// de-interleaving it into entries. The table must already have the
// dimensions the blob was encoded with; a length mismatch after inflation
// fails with IbltDecodeError.
func (t *IBLT) Initialize(blob []byte) error {
	r := flate.NewReader(bytes.NewReader(blob))
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return ndnerr.New(ndnerr.KindIbltDecode, "inflating IBLT blob: %v", err)
	}

	want := len(t.entries) * entryWireSize
	if len(raw) != want {
		return ndnerr.New(ndnerr.KindIbltDecode, "inflated length %d != expected %d", len(raw), want)
	}

	for i := range t.entries {
		off := i * entryWireSize
		count := int32(binary.LittleEndian.Uint32(raw[off : off+4]))
		keySum := binary.LittleEndian.Uint32(raw[off+4 : off+8])
		keyCheck := binary.LittleEndian.Uint32(raw[off+8 : off+12])
		t.entries[i] = Entry{Count: int64(count), KeySum: uint64(keySum), KeyCheck: uint64(keyCheck)}
	}
	return nil
}
