package session

import (
	"github.com/fnuecke/Space-sub012/internal/command"
	"github.com/fnuecke/Space-sub012/internal/packet"
)

// JoinPayload is the body of a command.KindJoin envelope: a prospective
// peer asking to join, carrying its chosen display name and opaque
// game-defined data.
type JoinPayload struct {
	Name string
	Data []byte
}

func (j JoinPayload) Encode() []byte {
	pk := packet.New()
	pk.WriteString(j.Name)
	pk.WriteBytes(j.Data)
	return pk.Bytes()
}

func DecodeJoinPayload(raw []byte) (JoinPayload, error) {
	pk := packet.FromBytes(raw)
	name, err := pk.ReadString()
	if err != nil {
		return JoinPayload{}, err
	}
	data, err := pk.ReadBytes()
	if err != nil {
		return JoinPayload{}, err
	}
	return JoinPayload{Name: name, Data: data}, nil
}

// JoinResponsePayload answers a JoinPayload. Reason is only meaningful
// when Success is false; Roster is only meaningful when it is true and
// lists every peer already in the session (the joiner is not included
// in its own roster).
type JoinResponsePayload struct {
	Success  bool
	PlayerID uint32
	Reason   string
	Roster   []Player
}

func (r JoinResponsePayload) Encode() []byte {
	pk := packet.New()
	pk.WriteBool(r.Success)
	pk.WriteU32(r.PlayerID)
	pk.WriteString(r.Reason)
	pk.WriteU32(uint32(len(r.Roster)))
	for _, p := range r.Roster {
		p.encode(pk)
	}
	return pk.Bytes()
}

func DecodeJoinResponsePayload(raw []byte) (JoinResponsePayload, error) {
	pk := packet.FromBytes(raw)
	success, err := pk.ReadBool()
	if err != nil {
		return JoinResponsePayload{}, err
	}
	id, err := pk.ReadU32()
	if err != nil {
		return JoinResponsePayload{}, err
	}
	reason, err := pk.ReadString()
	if err != nil {
		return JoinResponsePayload{}, err
	}
	n, err := pk.ReadU32()
	if err != nil {
		return JoinResponsePayload{}, err
	}
	roster := make([]Player, 0, n)
	for i := uint32(0); i < n; i++ {
		p, err := decodePlayer(pk)
		if err != nil {
			return JoinResponsePayload{}, err
		}
		roster = append(roster, p)
	}
	return JoinResponsePayload{Success: success, PlayerID: id, Reason: reason, Roster: roster}, nil
}

// LeavePayload is the body of a command.KindLeave envelope.
type LeavePayload struct {
	PlayerID uint32
}

func (l LeavePayload) Encode() []byte {
	pk := packet.New()
	pk.WriteU32(l.PlayerID)
	return pk.Bytes()
}

func DecodeLeavePayload(raw []byte) (LeavePayload, error) {
	pk := packet.FromBytes(raw)
	id, err := pk.ReadU32()
	if err != nil {
		return LeavePayload{}, err
	}
	return LeavePayload{PlayerID: id}, nil
}

// PlayerJoinedPayload is broadcast to every existing peer when a new
// player is accepted.
type PlayerJoinedPayload struct {
	Player Player
}

func (p PlayerJoinedPayload) Encode() []byte {
	pk := packet.New()
	p.Player.encode(pk)
	return pk.Bytes()
}

func DecodePlayerJoinedPayload(raw []byte) (PlayerJoinedPayload, error) {
	pk := packet.FromBytes(raw)
	p, err := decodePlayer(pk)
	if err != nil {
		return PlayerJoinedPayload{}, err
	}
	return PlayerJoinedPayload{Player: p}, nil
}

// PlayerLeftPayload is broadcast to every remaining peer after a
// player's last authored command has been processed.
type PlayerLeftPayload struct {
	PlayerID uint32
}

func (p PlayerLeftPayload) Encode() []byte {
	pk := packet.New()
	pk.WriteU32(p.PlayerID)
	return pk.Bytes()
}

func DecodePlayerLeftPayload(raw []byte) (PlayerLeftPayload, error) {
	pk := packet.FromBytes(raw)
	id, err := pk.ReadU32()
	if err != nil {
		return PlayerLeftPayload{}, err
	}
	return PlayerLeftPayload{PlayerID: id}, nil
}

// GameStateQueryPayload carries no fields; a joining client sends it
// once its JoinResponse arrives to request a bootstrap snapshot.
type GameStateQueryPayload struct{}

func (GameStateQueryPayload) Encode() []byte { return nil }

func DecodeGameStateQueryPayload([]byte) (GameStateQueryPayload, error) {
	return GameStateQueryPayload{}, nil
}

// GameStatePayload wraps an opaque, already-encoded tss.GameState blob
// (see gamestate.go) so the session layer never needs to know its
// internal shape.
type GameStatePayload struct {
	Blob []byte
}

func (g GameStatePayload) Encode() []byte {
	pk := packet.New()
	pk.WriteBytes(g.Blob)
	return pk.Bytes()
}

func DecodeGameStatePayload(raw []byte) (GameStatePayload, error) {
	pk := packet.FromBytes(raw)
	blob, err := pk.ReadBytes()
	if err != nil {
		return GameStatePayload{}, err
	}
	return GameStatePayload{Blob: blob}, nil
}

// RegisterCommands binds every session-layer command kind into reg so
// internal/command can encode/decode their payloads and
// DecodeEnvelope can recognize them. None of these kinds are
// simulation-bound: session control carries no frame.
func RegisterCommands(reg *command.Registry) {
	reg.Register(command.Registration{
		Kind: command.KindJoin,
		Encode: func(v any) ([]byte, error) { return v.(JoinPayload).Encode(), nil },
		Decode: func(b []byte) (any, error) { return DecodeJoinPayload(b) },
	})
	reg.Register(command.Registration{
		Kind: command.KindJoinResponse,
		Encode: func(v any) ([]byte, error) { return v.(JoinResponsePayload).Encode(), nil },
		Decode: func(b []byte) (any, error) { return DecodeJoinResponsePayload(b) },
	})
	reg.Register(command.Registration{
		Kind: command.KindLeave,
		Encode: func(v any) ([]byte, error) { return v.(LeavePayload).Encode(), nil },
		Decode: func(b []byte) (any, error) { return DecodeLeavePayload(b) },
	})
	reg.Register(command.Registration{
		Kind: command.KindPlayerJoined,
		Encode: func(v any) ([]byte, error) { return v.(PlayerJoinedPayload).Encode(), nil },
		Decode: func(b []byte) (any, error) { return DecodePlayerJoinedPayload(b) },
	})
	reg.Register(command.Registration{
		Kind: command.KindPlayerLeft,
		Encode: func(v any) ([]byte, error) { return v.(PlayerLeftPayload).Encode(), nil },
		Decode: func(b []byte) (any, error) { return DecodePlayerLeftPayload(b) },
	})
	reg.Register(command.Registration{
		Kind: command.KindGameStateQuery,
		Encode: func(v any) ([]byte, error) { return v.(GameStateQueryPayload).Encode(), nil },
		Decode: func(b []byte) (any, error) { return DecodeGameStateQueryPayload(b) },
	})
	reg.Register(command.Registration{
		Kind: command.KindGameState,
		Encode: func(v any) ([]byte, error) { return v.(GameStatePayload).Encode(), nil },
		Decode: func(b []byte) (any, error) { return DecodeGameStatePayload(b) },
	})
}
