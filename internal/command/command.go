// Package command implements the tagged Command envelope and the
// process-wide kind registry that encodes/decodes its payload.
//
// Fuses a flat byte-tag message enum with a typed input-frame
// envelope, reshaped into a registry keyed by kind rather than a
// closed switch statement.
package command

import (
	"sync"

	"github.com/fnuecke/Space-sub012/internal/engineerr"
	"github.com/fnuecke/Space-sub012/internal/packet"
)

// Kind tags a Command's wire type. Values below LastEngineCommand are
// reserved for the engine itself; game-defined kinds start at
// LastEngineCommand+1.
type Kind uint8

const (
	KindAck Kind = iota
	KindQuery
	KindInfo
	KindAckAllFollowing
	KindJoin
	KindJoinResponse
	KindLeave
	KindPlayerJoined
	KindPlayerLeft
	KindGameStateQuery
	KindGameState

	// LastEngineCommand marks the boundary between engine-reserved and
	// game-defined kinds. Game-defined kinds must use values strictly
	// greater than this.
	LastEngineCommand
)

// SystemPlayer is the sentinel originating-player id used by commands
// authored by the engine itself rather than a connected player.
const SystemPlayer int32 = -1

// NoFrame indicates a Command is not simulation-bound.
const NoFrame int64 = -1

// Command is the tagged envelope exchanged between peers and
// dispatched into the simulation.
type Command struct {
	Kind          Kind
	Player        int32
	Authoritative bool
	// Frame is only meaningful when Simulation is true; it must be
	// strictly greater than the frame at which the command was
	// authored.
	Frame      int64
	Simulation bool
	Payload    []byte
}

// Equal reports whether two commands are equal: kind, player and
// payload must match; for simulation-bound commands the frame must
// also match.
func (c Command) Equal(o Command) bool {
	if c.Kind != o.Kind || c.Player != o.Player || c.Simulation != o.Simulation {
		return false
	}
	if c.Simulation && c.Frame != o.Frame {
		return false
	}
	if len(c.Payload) != len(o.Payload) {
		return false
	}
	for i := range c.Payload {
		if c.Payload[i] != o.Payload[i] {
			return false
		}
	}
	return true
}

// Encode writes the wire form: kind:u8‖player:i32‖authoritative:bool‖[frame:i64]‖payload.
func (c Command) Encode() []byte {
	p := packet.New()
	p.WriteU8(uint8(c.Kind))
	p.WriteI32(c.Player)
	p.WriteBool(c.Authoritative)
	if c.Simulation {
		p.WriteI64(c.Frame)
	}
	p.WriteBytes(c.Payload)
	return p.Bytes()
}

// Decode parses the wire form produced by Encode. simulationBound must
// be supplied by the caller (typically looked up from a Registry)
// since the envelope itself does not self-describe whether a frame
// field is present.
func Decode(raw []byte, simulationBound bool) (Command, error) {
	p := packet.FromBytes(raw)

	kindRaw, err := p.ReadU8()
	if err != nil {
		return Command{}, err
	}
	player, err := p.ReadI32()
	if err != nil {
		return Command{}, err
	}
	authoritative, err := p.ReadBool()
	if err != nil {
		return Command{}, err
	}

	var frame int64
	if simulationBound {
		frame, err = p.ReadI64()
		if err != nil {
			return Command{}, err
		}
	}

	payload, err := p.ReadBytes()
	if err != nil {
		return Command{}, err
	}

	return Command{
		Kind:          Kind(kindRaw),
		Player:        player,
		Authoritative: authoritative,
		Frame:         frame,
		Simulation:    simulationBound,
		Payload:       payload,
	}, nil
}

// EncodePayload marshals a typed payload value into bytes.
type EncodePayload func(v any) ([]byte, error)

// DecodePayload unmarshals bytes into a typed payload value.
type DecodePayload func([]byte) (any, error)

// Registration binds a Kind to its payload codec and simulation-bound
// status.
type Registration struct {
	Kind            Kind
	SimulationBound bool
	Encode          EncodePayload
	Decode          DecodePayload
}

// Registry is the process-wide kind -> (encode, decode) table.
type Registry struct {
	mu      sync.RWMutex
	entries map[Kind]Registration
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Kind]Registration)}
}

// Register adds a binding for kind. Registering the same kind twice
// overwrites the previous binding, mirroring a process-wide table
// populated once at startup.
func (r *Registry) Register(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[reg.Kind] = reg
}

// Lookup returns the Registration for kind.
func (r *Registry) Lookup(kind Kind) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[kind]
	return reg, ok
}

// SimulationBound reports whether kind carries a frame field,
// returning UnknownCommand if kind was never registered.
func (r *Registry) SimulationBound(kind Kind) (bool, error) {
	reg, ok := r.Lookup(kind)
	if !ok {
		return false, engineerr.Newf(engineerr.UnknownCommand, "command: unregistered kind %d", kind)
	}
	return reg.SimulationBound, nil
}

// EncodePayload marshals v using the codec registered for kind.
func (r *Registry) EncodePayload(kind Kind, v any) ([]byte, error) {
	reg, ok := r.Lookup(kind)
	if !ok {
		return nil, engineerr.Newf(engineerr.UnknownCommand, "command: unregistered kind %d", kind)
	}
	return reg.Encode(v)
}

// DecodePayload unmarshals b using the codec registered for kind.
func (r *Registry) DecodePayload(kind Kind, b []byte) (any, error) {
	reg, ok := r.Lookup(kind)
	if !ok {
		return nil, engineerr.Newf(engineerr.UnknownCommand, "command: unregistered kind %d", kind)
	}
	return reg.Decode(b)
}

// DecodeEnvelope decodes a raw command envelope, consulting the
// registry to determine whether a frame field is present. Returns
// UnknownCommand if the wire kind is not registered.
func (r *Registry) DecodeEnvelope(raw []byte) (Command, error) {
	if len(raw) == 0 {
		return Command{}, engineerr.New(engineerr.Decode, "command: empty envelope")
	}
	kind := Kind(raw[0])
	simBound, err := r.SimulationBound(kind)
	if err != nil {
		return Command{}, err
	}
	return Decode(raw, simBound)
}
