// Package transport implements the reliable-over-UDP wire protocol:
// framed, optionally gzip-compressed, chacha20-obfuscated datagrams
// carrying command envelopes, acknowledgements and latency probes
// between two engine endpoints.
//
// Follows a type‖playerID‖timestamp‖data wire shape with a per-remote
// retransmission map keyed by sequence and Ping/Pong RTT tracking,
// adapted from a game-specific message-type enum to a
// reliability-layer message kind, and from TCP framing (see
// DESIGN.md) to UDP datagrams.
package transport

import (
	"github.com/fnuecke/Space-sub012/internal/engineerr"
	"github.com/fnuecke/Space-sub012/internal/packet"
)

// Kind tags a reliability-layer message.
type Kind uint8

const (
	// KindData carries an application payload (typically a command
	// envelope) that the sender wants acknowledged.
	KindData Kind = iota
	// KindAck acknowledges receipt of one sequence number.
	KindAck
	// KindPing probes round-trip latency; the receiver must reply
	// with KindPong echoing the same nonce.
	KindPing
	// KindPong answers a KindPing.
	KindPong
	// KindUnacked carries a fire-and-forget application payload: sent
	// once, never tracked for retransmit, never acknowledged.
	KindUnacked
)

// Message is the reliability layer's inner envelope, serialized,
// optionally compressed and always obfuscated before being sent as a
// UDP datagram. See frame.go for the wire framing around it.
type Message struct {
	Kind     Kind
	Sequence uint32
	// Nonce carries the ping's send-time (as Unix nanoseconds) so the
	// pong reply can echo it back for RTT computation.
	Nonce   int64
	Payload []byte
}

// Encode serializes m: kind:u8‖sequence:u32‖nonce:i64‖payload.
func (m Message) Encode() []byte {
	p := packet.New()
	p.WriteU8(uint8(m.Kind))
	p.WriteU32(m.Sequence)
	p.WriteI64(m.Nonce)
	p.WriteBytes(m.Payload)
	return p.Bytes()
}

// DecodeMessage parses the wire form produced by Encode.
func DecodeMessage(raw []byte) (Message, error) {
	p := packet.FromBytes(raw)

	kindRaw, err := p.ReadU8()
	if err != nil {
		return Message{}, engineerr.Wrap(engineerr.Decode, "transport: reading message kind", err)
	}
	seq, err := p.ReadU32()
	if err != nil {
		return Message{}, engineerr.Wrap(engineerr.Decode, "transport: reading sequence", err)
	}
	nonce, err := p.ReadI64()
	if err != nil {
		return Message{}, engineerr.Wrap(engineerr.Decode, "transport: reading nonce", err)
	}
	payload, err := p.ReadBytes()
	if err != nil {
		return Message{}, engineerr.Wrap(engineerr.Decode, "transport: reading payload", err)
	}

	return Message{Kind: Kind(kindRaw), Sequence: seq, Nonce: nonce, Payload: payload}, nil
}
