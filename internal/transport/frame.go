package transport

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"

	"github.com/fnuecke/Space-sub012/internal/engineerr"
)

// magicHeader prefixes every datagram so a receiver can cheaply reject
// traffic that is not this engine's protocol before spending any work
// decrypting it.
var magicHeader = [4]byte{'T', 'S', 'S', '1'}

// compressedBit is the top bit of the framed length field: set when
// the ciphertext wraps a gzip-compressed payload.
const compressedBit = uint32(1) << 31

// compressionThreshold is the minimum plaintext size worth attempting
// gzip on; below it the framing overhead of gzip generally loses.
const compressionThreshold = 200

// encodeFrame frames plaintext for the wire: it is compressed when
// doing so is both attempted (plaintext is large enough) and
// effective (the compressed form is actually smaller), then
// obfuscated with box's stream cipher, then prefixed with the magic
// header and a length field whose top bit records whether the
// compressed branch was taken.
func encodeFrame(box *cipherBox, plaintext []byte) ([]byte, error) {
	body := plaintext
	compressed := false

	if len(plaintext) >= compressionThreshold {
		if gz, ok := tryCompress(plaintext); ok {
			body = gz
			compressed = true
		}
	}

	ciphertext, err := box.seal(body)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Decode, "transport: sealing frame", err)
	}

	lengthField := uint32(len(ciphertext))
	if lengthField&compressedBit != 0 {
		return nil, engineerr.New(engineerr.Decode, "transport: frame too large to encode a length field")
	}
	if compressed {
		lengthField |= compressedBit
	}

	out := make([]byte, 0, len(magicHeader)+4+len(ciphertext))
	out = append(out, magicHeader[:]...)
	out = binary.LittleEndian.AppendUint32(out, lengthField)
	out = append(out, ciphertext...)
	return out, nil
}

// decodeFrame reverses encodeFrame: validates the magic header,
// decrypts, and decompresses if the compressed bit was set.
func decodeFrame(box *cipherBox, raw []byte) ([]byte, error) {
	if len(raw) < len(magicHeader)+4 {
		return nil, engineerr.New(engineerr.Decode, "transport: frame shorter than header")
	}
	if !bytes.Equal(raw[:len(magicHeader)], magicHeader[:]) {
		return nil, engineerr.New(engineerr.Decode, "transport: bad magic header")
	}

	lengthField := binary.LittleEndian.Uint32(raw[len(magicHeader) : len(magicHeader)+4])
	compressed := lengthField&compressedBit != 0
	length := int(lengthField &^ compressedBit)

	ciphertext := raw[len(magicHeader)+4:]
	if len(ciphertext) != length {
		return nil, engineerr.Newf(engineerr.Decode, "transport: length field says %d, have %d", length, len(ciphertext))
	}

	body, err := box.open(ciphertext)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Decode, "transport: opening frame", err)
	}

	if !compressed {
		return body, nil
	}
	return decompress(body)
}

func tryCompress(plaintext []byte) ([]byte, bool) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(plaintext); err != nil {
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}
	if buf.Len() >= len(plaintext) {
		return nil, false
	}
	return buf.Bytes(), true
}

func decompress(gz []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(gz))
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Decode, "transport: opening gzip reader", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Decode, "transport: reading gzip stream", err)
	}
	return out, nil
}
