// Package fnvhash provides a sequential FNV-1a digest used for
// trailing-state desync detection and for recording deterministic
// randomness draws.
//
// Builds on a checksum routine that already reached for hash/fnv's
// fnv.New32a() over tick and position bytes, generalized into a
// reusable Hasher that mixes arbitrary byte sequences in call order.
package fnvhash

import "hash/fnv"

// Hasher accumulates a 32-bit FNV-1a digest from a fixed seed.
type Hasher struct {
	h uint32
}

// New returns a Hasher seeded at the FNV-1a offset basis.
func New() *Hasher {
	return &Hasher{h: fnv.New32a().Sum32()}
}

// Mix folds b into the running digest, one byte at a time, in the
// order given.
func (h *Hasher) Mix(b []byte) {
	const prime = 16777619
	for _, c := range b {
		h.h ^= uint32(c)
		h.h *= prime
	}
}

// MixU8 mixes a single byte.
func (h *Hasher) MixU8(v uint8) { h.Mix([]byte{v}) }

// MixU32 mixes a little-endian uint32.
func (h *Hasher) MixU32(v uint32) {
	h.Mix([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

// MixI64 mixes a little-endian int64.
func (h *Hasher) MixI64(v int64) {
	h.Mix([]byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	})
}

// MixBool mixes a single boolean byte.
func (h *Hasher) MixBool(v bool) {
	if v {
		h.MixU8(1)
	} else {
		h.MixU8(0)
	}
}

// Sum returns the current 32-bit digest without resetting state.
func (h *Hasher) Sum() uint32 { return h.h }

// Reset restores the Hasher to the FNV-1a offset basis.
func (h *Hasher) Reset() {
	h.h = fnv.New32a().Sum32()
}
