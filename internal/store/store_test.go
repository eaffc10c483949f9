package store

import (
	"path/filepath"
	"testing"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ndnsync.db"))
	if err != nil {
		t.Skipf("sqlite not available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChronoSyncPositionRoundTrip(t *testing.T) {
	s := openTest(t)

	if _, _, found, err := s.LoadChronoSyncPosition("/ndn/app/a"); err != nil || found {
		t.Fatalf("expected no position yet, found=%v err=%v", found, err)
	}

	if err := s.SaveChronoSyncPosition("/ndn/app/a", 7, 3); err != nil {
		t.Fatalf("SaveChronoSyncPosition: %v", err)
	}
	sessionNo, sequenceNo, found, err := s.LoadChronoSyncPosition("/ndn/app/a")
	if err != nil || !found {
		t.Fatalf("LoadChronoSyncPosition: found=%v err=%v", found, err)
	}
	if sessionNo != 7 || sequenceNo != 3 {
		t.Fatalf("got (%d, %d), want (7, 3)", sessionNo, sequenceNo)
	}

	if err := s.SaveChronoSyncPosition("/ndn/app/a", 7, 4); err != nil {
		t.Fatalf("SaveChronoSyncPosition update: %v", err)
	}
	_, sequenceNo, _, err = s.LoadChronoSyncPosition("/ndn/app/a")
	if err != nil || sequenceNo != 4 {
		t.Fatalf("got sequenceNo=%d, want 4 (err=%v)", sequenceNo, err)
	}
}

func TestPSyncNamesRoundTrip(t *testing.T) {
	s := openTest(t)

	if names, err := s.LoadPSyncNames("/ndn/psync/demo"); err != nil || len(names) != 0 {
		t.Fatalf("expected no names yet, got %v (err=%v)", names, err)
	}

	if err := s.AddPSyncName("/ndn/psync/demo", "/x/1"); err != nil {
		t.Fatalf("AddPSyncName: %v", err)
	}
	if err := s.AddPSyncName("/ndn/psync/demo", "/x/2"); err != nil {
		t.Fatalf("AddPSyncName: %v", err)
	}
	if err := s.AddPSyncName("/ndn/psync/demo", "/x/1"); err != nil {
		t.Fatalf("AddPSyncName (duplicate): %v", err)
	}

	names, err := s.LoadPSyncNames("/ndn/psync/demo")
	if err != nil {
		t.Fatalf("LoadPSyncNames: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("got %d names, want 2: %v", len(names), names)
	}
}

func TestNilStoreIsNoOp(t *testing.T) {
	var s *Store

	if err := s.SaveChronoSyncPosition("/ndn/app/a", 1, 1); err != nil {
		t.Fatalf("nil store Save: %v", err)
	}
	if _, _, found, err := s.LoadChronoSyncPosition("/ndn/app/a"); err != nil || found {
		t.Fatalf("nil store Load: found=%v err=%v", found, err)
	}
	if err := s.AddPSyncName("/p", "/n"); err != nil {
		t.Fatalf("nil store AddPSyncName: %v", err)
	}
	if names, err := s.LoadPSyncNames("/p"); err != nil || names != nil {
		t.Fatalf("nil store LoadPSyncNames: %v %v", names, err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("nil store Close: %v", err)
	}
}
