package engineerr

import (
	"errors"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(Decode, "truncated packet")
	if !Is(err, Decode) {
		t.Fatalf("expected Is(err, Decode) to be true")
	}
	if Is(err, UnknownCommand) {
		t.Fatalf("expected Is(err, UnknownCommand) to be false")
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ProtocolTimeout, "retries exhausted", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
	if !Is(err, ProtocolTimeout) {
		t.Fatalf("expected Is(err, ProtocolTimeout) to be true")
	}
}

func TestNewfFormats(t *testing.T) {
	err := Newf(Decode, "need %d bytes, have %d", 4, 1)
	want := "decode: need 4 bytes, have 1"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
