// Package packet implements an append-only byte buffer with a read
// cursor and a fixed little-endian wire encoding, the wire-level
// primitive underneath internal/command and internal/transport.
//
// Shape follows a Serialize/DeserializeMessage pair, generalized from
// one fixed struct layout into a general-purpose read/write cursor
// over arbitrary primitive sequences.
package packet

import (
	"encoding/binary"

	"github.com/fnuecke/Space-sub012/internal/engineerr"
)

// nullLength is the length prefix written for a null byte-array.
const nullLength = -1

// Packet is an append-only byte buffer with an independent read
// cursor. Two packets are equal iff their raw written content matches;
// the read cursor position does not participate in equality.
type Packet struct {
	buf []byte
	pos int
}

// New returns an empty packet ready for writing.
func New() *Packet {
	return &Packet{}
}

// FromBytes wraps an existing byte slice for reading. The slice is
// used directly, not copied.
func FromBytes(b []byte) *Packet {
	return &Packet{buf: b}
}

// Bytes returns the full written content, independent of read cursor.
func (p *Packet) Bytes() []byte { return p.buf }

// Reset clears both the written content and the read cursor.
func (p *Packet) Reset() {
	p.buf = p.buf[:0]
	p.pos = 0
}

// Len returns the total number of written bytes.
func (p *Packet) Len() int { return len(p.buf) }

// Remaining returns the number of unread bytes.
func (p *Packet) Remaining() int { return len(p.buf) - p.pos }

// Has reports whether at least n unread bytes remain.
func (p *Packet) Has(n int) bool { return p.Remaining() >= n }

// Equal reports whether p and o hold identical written bytes.
func (p *Packet) Equal(o *Packet) bool {
	if len(p.buf) != len(o.buf) {
		return false
	}
	for i := range p.buf {
		if p.buf[i] != o.buf[i] {
			return false
		}
	}
	return true
}

func (p *Packet) requireRemaining(n int) error {
	if !p.Has(n) {
		return engineerr.Newf(engineerr.Decode, "packet: need %d bytes, have %d", n, p.Remaining())
	}
	return nil
}

// WriteBool appends a single byte: 1 for true, 0 for false.
func (p *Packet) WriteBool(v bool) {
	if v {
		p.buf = append(p.buf, 1)
	} else {
		p.buf = append(p.buf, 0)
	}
}

// WriteU8 appends an unsigned byte.
func (p *Packet) WriteU8(v uint8) { p.buf = append(p.buf, v) }

// WriteI8 appends a signed byte.
func (p *Packet) WriteI8(v int8) { p.buf = append(p.buf, byte(v)) }

// WriteU16 appends a little-endian uint16.
func (p *Packet) WriteU16(v uint16) {
	p.buf = binary.LittleEndian.AppendUint16(p.buf, v)
}

// WriteI16 appends a little-endian int16.
func (p *Packet) WriteI16(v int16) { p.WriteU16(uint16(v)) }

// WriteU32 appends a little-endian uint32.
func (p *Packet) WriteU32(v uint32) {
	p.buf = binary.LittleEndian.AppendUint32(p.buf, v)
}

// WriteI32 appends a little-endian int32.
func (p *Packet) WriteI32(v int32) { p.WriteU32(uint32(v)) }

// WriteU64 appends a little-endian uint64.
func (p *Packet) WriteU64(v uint64) {
	p.buf = binary.LittleEndian.AppendUint64(p.buf, v)
}

// WriteI64 appends a little-endian int64.
func (p *Packet) WriteI64(v int64) { p.WriteU64(uint64(v)) }

// WriteBytes appends a byte-array as an i32 length prefix followed by
// the raw bytes. A nil slice is encoded as length -1 with no payload.
func (p *Packet) WriteBytes(b []byte) {
	if b == nil {
		p.WriteI32(nullLength)
		return
	}
	p.WriteI32(int32(len(b)))
	p.buf = append(p.buf, b...)
}

// WriteString appends s as a UTF-8 byte-array.
func (p *Packet) WriteString(s string) {
	p.WriteBytes([]byte(s))
}

// ReadBool consumes one byte and reports it as a bool.
func (p *Packet) ReadBool() (bool, error) {
	v, err := p.ReadU8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// ReadU8 consumes and returns one unsigned byte.
func (p *Packet) ReadU8() (uint8, error) {
	if err := p.requireRemaining(1); err != nil {
		return 0, err
	}
	v := p.buf[p.pos]
	p.pos++
	return v, nil
}

// ReadI8 consumes and returns one signed byte.
func (p *Packet) ReadI8() (int8, error) {
	v, err := p.ReadU8()
	return int8(v), err
}

// ReadU16 consumes and returns a little-endian uint16.
func (p *Packet) ReadU16() (uint16, error) {
	if err := p.requireRemaining(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(p.buf[p.pos:])
	p.pos += 2
	return v, nil
}

// ReadI16 consumes and returns a little-endian int16.
func (p *Packet) ReadI16() (int16, error) {
	v, err := p.ReadU16()
	return int16(v), err
}

// ReadU32 consumes and returns a little-endian uint32.
func (p *Packet) ReadU32() (uint32, error) {
	if err := p.requireRemaining(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(p.buf[p.pos:])
	p.pos += 4
	return v, nil
}

// ReadI32 consumes and returns a little-endian int32.
func (p *Packet) ReadI32() (int32, error) {
	v, err := p.ReadU32()
	return int32(v), err
}

// ReadU64 consumes and returns a little-endian uint64.
func (p *Packet) ReadU64() (uint64, error) {
	if err := p.requireRemaining(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(p.buf[p.pos:])
	p.pos += 8
	return v, nil
}

// ReadI64 consumes and returns a little-endian int64.
func (p *Packet) ReadI64() (int64, error) {
	v, err := p.ReadU64()
	return int64(v), err
}

// ReadBytes consumes a length-prefixed byte-array. A length of -1
// decodes to nil without allocation.
func (p *Packet) ReadBytes() ([]byte, error) {
	length, err := p.ReadI32()
	if err != nil {
		return nil, err
	}
	if length == nullLength {
		return nil, nil
	}
	if length < 0 {
		return nil, engineerr.Newf(engineerr.Decode, "packet: negative byte-array length %d", length)
	}
	if err := p.requireRemaining(int(length)); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, p.buf[p.pos:p.pos+int(length)])
	p.pos += int(length)
	return out, nil
}

// ReadString consumes a byte-array and interprets it as UTF-8. A null
// byte-array decodes to the empty string.
func (p *Packet) ReadString() (string, error) {
	b, err := p.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PeekU8 returns the next unsigned byte without advancing the cursor.
func (p *Packet) PeekU8() (uint8, error) {
	if err := p.requireRemaining(1); err != nil {
		return 0, err
	}
	return p.buf[p.pos], nil
}
