package fnvhash

import "testing"

func TestMixIsOrderSensitive(t *testing.T) {
	a := New()
	a.Mix([]byte("ab"))

	b := New()
	b.Mix([]byte("ba"))

	if a.Sum() == b.Sum() {
		t.Fatalf("expected order-sensitive digests to differ, both got %d", a.Sum())
	}
}

func TestMixIsDeterministic(t *testing.T) {
	a := New()
	a.MixU32(42)
	a.MixI64(-1000)
	a.MixBool(true)

	b := New()
	b.MixU32(42)
	b.MixI64(-1000)
	b.MixBool(true)

	if a.Sum() != b.Sum() {
		t.Fatalf("expected identical mix sequences to produce identical digests: %d != %d", a.Sum(), b.Sum())
	}
}

func TestResetRestoresSeed(t *testing.T) {
	fresh := New().Sum()

	h := New()
	h.Mix([]byte("anything"))
	h.Reset()

	if h.Sum() != fresh {
		t.Fatalf("Reset() Sum() = %d, want fresh seed %d", h.Sum(), fresh)
	}
}

func TestEmptyMixLeavesSeedUnchanged(t *testing.T) {
	h := New()
	seed := h.Sum()
	h.Mix(nil)
	if h.Sum() != seed {
		t.Fatalf("Mix(nil) changed digest: %d != %d", h.Sum(), seed)
	}
}
