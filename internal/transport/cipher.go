package transport

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20"

	"github.com/fnuecke/Space-sub012/internal/engineerr"
)

// obfuscationKey is a compiled-in chacha20 key. It is not a security
// boundary: its only purpose is to keep casual packet sniffers from
// reading plaintext game traffic off the wire. Anyone with the engine
// binary already has this key.
var obfuscationKey = [chacha20.KeySize]byte{
	0x4a, 0x17, 0xcb, 0x9e, 0x02, 0x6d, 0x88, 0x31,
	0x5f, 0xa4, 0x1c, 0x70, 0xe9, 0x3b, 0x5a, 0xd6,
	0x0e, 0x62, 0xf7, 0x29, 0x84, 0xb3, 0xc1, 0x56,
	0x19, 0x8d, 0xfa, 0x44, 0x6b, 0x2e, 0x91, 0xd0,
}

// cipherBox seals and opens frame bodies with chacha20, using a fresh
// random nonce per message (prepended to the output) since the key is
// shared across an endpoint's entire lifetime.
type cipherBox struct{}

func newCipherBox() *cipherBox { return &cipherBox{} }

func (*cipherBox) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, chacha20.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, engineerr.Wrap(engineerr.Decode, "transport: generating nonce", err)
	}

	c, err := chacha20.NewUnauthenticatedCipher(obfuscationKey[:], nonce)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Decode, "transport: constructing cipher", err)
	}

	out := make([]byte, chacha20.NonceSize+len(plaintext))
	copy(out, nonce)
	c.XORKeyStream(out[chacha20.NonceSize:], plaintext)
	return out, nil
}

func (*cipherBox) open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < chacha20.NonceSize {
		return nil, engineerr.New(engineerr.Decode, "transport: ciphertext shorter than nonce")
	}
	nonce := ciphertext[:chacha20.NonceSize]
	body := ciphertext[chacha20.NonceSize:]

	c, err := chacha20.NewUnauthenticatedCipher(obfuscationKey[:], nonce)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Decode, "transport: constructing cipher", err)
	}

	out := make([]byte, len(body))
	c.XORKeyStream(out, body)
	return out, nil
}
