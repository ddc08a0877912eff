// Package session implements the join/leave handshake, authoritative
// host and client-side roster tracking, and game-state bootstrap for a
// joining peer.
//
// Follows a session map plus tick-scoped input queue on the host side
// and a connect/disconnect lifecycle on the client side, fused with an
// explicit PlayerJoined/PlayerLeft broadcast and join-refusal pattern.
package session

import "github.com/fnuecke/Space-sub012/internal/packet"

// Player is a connected participant's public identity: an id assigned
// by the host, a display name, and an opaque game-defined data blob
// (e.g. a chosen ship) that round-trips through the codec untouched.
type Player struct {
	ID   uint32
	Name string
	Data []byte
}

func (p Player) encode(pk *packet.Packet) {
	pk.WriteU32(p.ID)
	pk.WriteString(p.Name)
	pk.WriteBytes(p.Data)
}

func decodePlayer(pk *packet.Packet) (Player, error) {
	id, err := pk.ReadU32()
	if err != nil {
		return Player{}, err
	}
	name, err := pk.ReadString()
	if err != nil {
		return Player{}, err
	}
	data, err := pk.ReadBytes()
	if err != nil {
		return Player{}, err
	}
	return Player{ID: id, Name: name, Data: data}, nil
}
