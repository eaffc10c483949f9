package tlv

import (
	"bytes"
	"testing"
)

func TestEncoderBlobTlvRoundTrip(t *testing.T) {
	e := NewEncoder(16)
	e.WriteBlobTlv(7, []byte("hello"))
	out := e.Finish()

	d := NewDecoder(out)
	got, err := d.ReadBlobTlv(7)
	if err != nil {
		t.Fatalf("ReadBlobTlv: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestEncoderNestedLengthFromSavedPosition(t *testing.T) {
	e := NewEncoder(16)
	e.WriteNested(100, func() {
		// The encoder builds backward: the child written last comes first.
		e.WriteBlobTlv(2, []byte("cde"))
		e.WriteBlobTlv(1, []byte("ab"))
	})
	out := e.Finish()

	d := NewDecoder(out)
	end, err := d.ReadNestedTlvsStart(100)
	if err != nil {
		t.Fatalf("ReadNestedTlvsStart: %v", err)
	}
	v1, err := d.ReadBlobTlv(1)
	if err != nil || string(v1) != "ab" {
		t.Fatalf("first child: %q, %v", v1, err)
	}
	v2, err := d.ReadBlobTlv(2)
	if err != nil || string(v2) != "cde" {
		t.Fatalf("second child: %q, %v", v2, err)
	}
	if err := d.FinishNestedTlvs(end); err != nil {
		t.Fatalf("FinishNestedTlvs: %v", err)
	}
}

func TestNonNegativeIntegerWidths(t *testing.T) {
	cases := map[uint64]int{
		0:          1,
		255:        1,
		256:        2,
		65535:      2,
		65536:      4,
		4294967295: 4,
		4294967296: 8,
	}
	for v, wantLen := range cases {
		b := NonNegativeIntegerBytes(v)
		if len(b) != wantLen {
			t.Errorf("NonNegativeIntegerBytes(%d) len = %d, want %d", v, len(b), wantLen)
		}
		e := NewEncoder(8)
		e.WriteNonNegativeIntegerTlv(9, v)
		d := NewDecoder(e.Finish())
		got, err := d.ReadNonNegativeIntegerTlv(9)
		if err != nil {
			t.Fatalf("ReadNonNegativeIntegerTlv(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %d", v, got)
		}
	}
}

func TestOptionalNonNegativeIntegerAbsent(t *testing.T) {
	e := NewEncoder(8)
	e.WriteBlobTlv(2, []byte("x"))
	out := e.Finish()
	d := NewDecoder(out)
	end := len(out)
	v, err := d.ReadOptionalNonNegativeIntegerTlv(1, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != -1 {
		t.Errorf("expected sentinel -1, got %d", v)
	}
}

func TestBooleanTlvPresenceAndAbsence(t *testing.T) {
	e := NewEncoder(8)
	e.WriteBooleanTlv(5, true)
	out := e.Finish()
	d := NewDecoder(out)
	got, err := d.ReadBooleanTlv(5, len(out))
	if err != nil || !got {
		t.Fatalf("expected true, got %v err=%v", got, err)
	}

	e2 := NewEncoder(8)
	e2.WriteBooleanTlv(5, false)
	out2 := e2.Finish()
	if len(out2) != 0 {
		t.Errorf("expected nothing written for false boolean TLV, got %d bytes", len(out2))
	}
}

func TestFinishNestedTlvsSkipsIgnorableUnknown(t *testing.T) {
	e := NewEncoder(16)
	e.WriteNested(100, func() {
		e.WriteBlobTlv(33, []byte("ignored")) // odd, >= 32: ignorable
		e.WriteBlobTlv(1, []byte("a"))
	})
	out := e.Finish()
	d := NewDecoder(out)
	end, err := d.ReadNestedTlvsStart(100)
	if err != nil {
		t.Fatalf("ReadNestedTlvsStart: %v", err)
	}
	if _, err := d.ReadBlobTlv(1); err != nil {
		t.Fatalf("ReadBlobTlv: %v", err)
	}
	if err := d.FinishNestedTlvs(end); err != nil {
		t.Fatalf("expected ignorable unknown type to be skipped, got %v", err)
	}
}

func TestFinishNestedTlvsFailsOnUnknownCritical(t *testing.T) {
	e := NewEncoder(16)
	e.WriteNested(100, func() {
		e.WriteBlobTlv(32, []byte("critical-unknown")) // even: always critical
		e.WriteBlobTlv(1, []byte("a"))
	})
	out := e.Finish()
	d := NewDecoder(out)
	end, err := d.ReadNestedTlvsStart(100)
	if err != nil {
		t.Fatalf("ReadNestedTlvsStart: %v", err)
	}
	if _, err := d.ReadBlobTlv(1); err != nil {
		t.Fatalf("ReadBlobTlv: %v", err)
	}
	if err := d.FinishNestedTlvs(end); err == nil {
		t.Error("expected UnexpectedType error for unknown critical type")
	}
}
