package psync

import (
	"testing"

	"github.com/ndnsync/ndnsync/internal/ndn"
)

func TestEncodeDecodeStateRoundTrip(t *testing.T) {
	names := []ndn.Name{
		ndn.ParseURI("/ndn/app/a/1"),
		ndn.ParseURI("/ndn/app/b/7"),
		ndn.ParseURI("/ndn/app/c/0"),
	}

	encoded := EncodeState(names)
	got, err := DecodeState(encoded)
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if len(got) != len(names) {
		t.Fatalf("got %d names, want %d", len(got), len(names))
	}
	for i := range names {
		if !got[i].Equal(names[i]) {
			t.Errorf("name %d = %s, want %s", i, got[i], names[i])
		}
	}
}

func TestEncodeDecodeStateEmpty(t *testing.T) {
	encoded := EncodeState(nil)
	got, err := DecodeState(encoded)
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d names, want 0", len(got))
	}
}
