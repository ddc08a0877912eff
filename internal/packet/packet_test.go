package packet

import (
	"testing"

	"github.com/fnuecke/Space-sub012/internal/engineerr"
)

func TestRoundTripPrimitives(t *testing.T) {
	p := New()
	p.WriteBool(true)
	p.WriteU8(42)
	p.WriteI8(-7)
	p.WriteU16(6000)
	p.WriteI16(-6000)
	p.WriteU32(70000)
	p.WriteI32(-70000)
	p.WriteU64(1 << 40)
	p.WriteI64(-(1 << 40))
	p.WriteString("hello")
	p.WriteBytes(nil)
	p.WriteBytes([]byte{1, 2, 3})

	r := FromBytes(p.Bytes())

	if b, err := r.ReadBool(); err != nil || b != true {
		t.Fatalf("ReadBool = %v, %v", b, err)
	}
	if v, err := r.ReadU8(); err != nil || v != 42 {
		t.Fatalf("ReadU8 = %v, %v", v, err)
	}
	if v, err := r.ReadI8(); err != nil || v != -7 {
		t.Fatalf("ReadI8 = %v, %v", v, err)
	}
	if v, err := r.ReadU16(); err != nil || v != 6000 {
		t.Fatalf("ReadU16 = %v, %v", v, err)
	}
	if v, err := r.ReadI16(); err != nil || v != -6000 {
		t.Fatalf("ReadI16 = %v, %v", v, err)
	}
	if v, err := r.ReadU32(); err != nil || v != 70000 {
		t.Fatalf("ReadU32 = %v, %v", v, err)
	}
	if v, err := r.ReadI32(); err != nil || v != -70000 {
		t.Fatalf("ReadI32 = %v, %v", v, err)
	}
	if v, err := r.ReadU64(); err != nil || v != 1<<40 {
		t.Fatalf("ReadU64 = %v, %v", v, err)
	}
	if v, err := r.ReadI64(); err != nil || v != -(1<<40) {
		t.Fatalf("ReadI64 = %v, %v", v, err)
	}
	if s, err := r.ReadString(); err != nil || s != "hello" {
		t.Fatalf("ReadString = %q, %v", s, err)
	}
	if b, err := r.ReadBytes(); err != nil || b != nil {
		t.Fatalf("ReadBytes(null) = %v, %v", b, err)
	}
	if b, err := r.ReadBytes(); err != nil || string(b) != "\x01\x02\x03" {
		t.Fatalf("ReadBytes = %v, %v", b, err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected 0 bytes remaining, got %d", r.Remaining())
	}
}

func TestReadEmptyBufferFailsWithDecode(t *testing.T) {
	p := FromBytes(nil)
	_, err := p.ReadU8()
	if !engineerr.Is(err, engineerr.Decode) {
		t.Fatalf("expected Decode error, got %v", err)
	}
}

func TestReadTruncatedMultiByteFailsWithDecode(t *testing.T) {
	p := FromBytes([]byte{1, 2})
	_, err := p.ReadU32()
	if !engineerr.Is(err, engineerr.Decode) {
		t.Fatalf("expected Decode error, got %v", err)
	}
}

func TestReadCursorAdvancesExactlyByBytesConsumed(t *testing.T) {
	p := New()
	p.WriteU32(1)
	p.WriteU32(2)

	before := p.Remaining()
	// Writing leaves the read cursor at 0, so Remaining already counts
	// all 8 written bytes; the cursor check below uses a fresh reader.
	_ = before

	r := FromBytes(p.Bytes())
	remainingBefore := r.Remaining()
	if _, err := r.ReadU32(); err != nil {
		t.Fatalf("ReadU32 failed: %v", err)
	}
	if r.Remaining() != remainingBefore-4 {
		t.Fatalf("Remaining after read = %d, want %d", r.Remaining(), remainingBefore-4)
	}
}

func TestEqualComparesRawContentNotCursor(t *testing.T) {
	a := New()
	a.WriteU8(9)
	b := FromBytes(append([]byte(nil), a.Bytes()...))

	if _, err := b.ReadU8(); err != nil {
		t.Fatalf("ReadU8 failed: %v", err)
	}

	if !a.Equal(b) {
		t.Fatalf("expected packets with identical content but different cursor positions to be equal")
	}
}

func TestHasReportsAvailability(t *testing.T) {
	p := FromBytes([]byte{1, 2, 3})
	if !p.Has(3) {
		t.Fatalf("expected Has(3) true")
	}
	if p.Has(4) {
		t.Fatalf("expected Has(4) false")
	}
}

func TestResetClearsBufferAndCursor(t *testing.T) {
	p := New()
	p.WriteU8(1)
	p.Reset()
	if p.Len() != 0 || p.Remaining() != 0 {
		t.Fatalf("expected empty packet after Reset, got Len=%d Remaining=%d", p.Len(), p.Remaining())
	}
}

func TestPeekU8DoesNotAdvanceCursor(t *testing.T) {
	p := FromBytes([]byte{5, 6})
	v, err := p.PeekU8()
	if err != nil || v != 5 {
		t.Fatalf("PeekU8 = %v, %v", v, err)
	}
	if p.Remaining() != 2 {
		t.Fatalf("expected Peek not to advance cursor, Remaining=%d", p.Remaining())
	}
}
