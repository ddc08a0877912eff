package session

import (
	"github.com/fnuecke/Space-sub012/internal/command"
	"github.com/fnuecke/Space-sub012/internal/ecs"
	"github.com/fnuecke/Space-sub012/internal/packet"
	"github.com/fnuecke/Space-sub012/internal/tss"
)

// EncodeGameState serializes a tss.GameState bootstrap payload for
// transmission inside a GameStatePayload blob. It carries enough of
// each buffered command's envelope (kind, player, authoritative,
// simulation, frame, payload) to reconstruct it without consulting a
// Registry, since the joining client may not yet have every
// game-defined kind's codec wired up to a running command.Registry
// lookup path at decode time.
func EncodeGameState(gs tss.GameState) []byte {
	pk := packet.New()
	pk.WriteI64(gs.Frame)
	encodeSnapshot(pk, gs.World)

	pk.WriteU32(uint32(len(gs.Buffered)))
	for _, c := range gs.Buffered {
		pk.WriteU8(uint8(c.Kind))
		pk.WriteI32(c.Player)
		pk.WriteBool(c.Authoritative)
		pk.WriteBool(c.Simulation)
		pk.WriteI64(c.Frame)
		pk.WriteBytes(c.Payload)
	}
	return pk.Bytes()
}

// DecodeGameState reverses EncodeGameState.
func DecodeGameState(raw []byte) (tss.GameState, error) {
	pk := packet.FromBytes(raw)

	frame, err := pk.ReadI64()
	if err != nil {
		return tss.GameState{}, err
	}
	snap, err := decodeSnapshot(pk)
	if err != nil {
		return tss.GameState{}, err
	}

	n, err := pk.ReadU32()
	if err != nil {
		return tss.GameState{}, err
	}
	buffered := make([]command.Command, 0, n)
	for i := uint32(0); i < n; i++ {
		kind, err := pk.ReadU8()
		if err != nil {
			return tss.GameState{}, err
		}
		player, err := pk.ReadI32()
		if err != nil {
			return tss.GameState{}, err
		}
		authoritative, err := pk.ReadBool()
		if err != nil {
			return tss.GameState{}, err
		}
		simulation, err := pk.ReadBool()
		if err != nil {
			return tss.GameState{}, err
		}
		cmdFrame, err := pk.ReadI64()
		if err != nil {
			return tss.GameState{}, err
		}
		payload, err := pk.ReadBytes()
		if err != nil {
			return tss.GameState{}, err
		}
		buffered = append(buffered, command.Command{
			Kind:          command.Kind(kind),
			Player:        player,
			Authoritative: authoritative,
			Frame:         cmdFrame,
			Simulation:    simulation,
			Payload:       payload,
		})
	}

	return tss.GameState{Frame: frame, World: snap, Buffered: buffered}, nil
}

func encodeSnapshot(pk *packet.Packet, snap ecs.Snapshot) {
	pk.WriteU32(uint32(len(snap.Entities)))
	for _, id := range snap.Entities {
		pk.WriteI64(int64(id))
	}

	pk.WriteU32(uint32(len(snap.Components)))
	for kind, byEntity := range snap.Components {
		pk.WriteString(kind)
		pk.WriteU32(uint32(len(byEntity)))
		for id, raw := range byEntity {
			pk.WriteI64(int64(id))
			pk.WriteBytes(raw)
		}
	}
}

func decodeSnapshot(pk *packet.Packet) (ecs.Snapshot, error) {
	entityCount, err := pk.ReadU32()
	if err != nil {
		return ecs.Snapshot{}, err
	}
	entities := make([]ecs.EntityID, 0, entityCount)
	for i := uint32(0); i < entityCount; i++ {
		id, err := pk.ReadI64()
		if err != nil {
			return ecs.Snapshot{}, err
		}
		entities = append(entities, ecs.EntityID(id))
	}

	kindCount, err := pk.ReadU32()
	if err != nil {
		return ecs.Snapshot{}, err
	}
	components := make(map[string]map[ecs.EntityID][]byte, kindCount)
	for i := uint32(0); i < kindCount; i++ {
		kind, err := pk.ReadString()
		if err != nil {
			return ecs.Snapshot{}, err
		}
		n, err := pk.ReadU32()
		if err != nil {
			return ecs.Snapshot{}, err
		}
		byEntity := make(map[ecs.EntityID][]byte, n)
		for j := uint32(0); j < n; j++ {
			id, err := pk.ReadI64()
			if err != nil {
				return ecs.Snapshot{}, err
			}
			raw, err := pk.ReadBytes()
			if err != nil {
				return ecs.Snapshot{}, err
			}
			byEntity[ecs.EntityID(id)] = raw
		}
		components[kind] = byEntity
	}

	return ecs.Snapshot{Entities: entities, Components: components}, nil
}
