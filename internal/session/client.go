package session

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/fnuecke/Space-sub012/internal/command"
	"github.com/fnuecke/Space-sub012/internal/engineerr"
	"github.com/fnuecke/Space-sub012/internal/obslog"
	"github.com/fnuecke/Space-sub012/internal/transport"
)

// EventKind tags a client-side roster or lifecycle notification.
type EventKind int

const (
	EventPlayerJoined EventKind = iota
	EventPlayerLeft
	EventGameState
	EventDisconnected
)

// Event is delivered to a Peer's event sink as the session evolves.
type Event struct {
	Kind     EventKind
	Player   Player // EventPlayerJoined
	PlayerID uint32 // EventPlayerLeft
	Blob     []byte // EventGameState, see DecodeGameState
	Reason   string // EventDisconnected
}

// Peer is the client side of the session layer: it starts Unconnected,
// moves to Joining on Join, and to Client once a successful
// JoinResponse assigns it a player id and initial roster.
//
// Generalizes a connect/disconnect lifecycle stub into a concrete
// state machine driven by decoded session commands.
type Peer struct {
	mu       sync.Mutex
	state    State
	playerID uint32
	roster   map[uint32]Player
	hostAddr string

	reg     *command.Registry
	ep      *transport.Endpoint
	log     zerolog.Logger
	metrics *Metrics
	events  chan<- Event
}

func NewPeer(reg *command.Registry, ep *transport.Endpoint, log zerolog.Logger, metrics *Metrics, events chan<- Event) *Peer {
	return &Peer{
		state:   Unconnected,
		roster:  make(map[uint32]Player),
		reg:     reg,
		ep:      ep,
		log:     log,
		metrics: metrics,
		events:  events,
	}
}

func (p *Peer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Peer) PlayerID() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playerID
}

// Roster returns every peer known to the client, excluding itself.
func (p *Peer) Roster() []Player {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Player, 0, len(p.roster))
	for _, v := range p.roster {
		out = append(out, v)
	}
	return out
}

func (p *Peer) setState(s State) {
	p.state = s
	if p.metrics != nil {
		p.metrics.State.Set(float64(s))
	}
}

// Join dials hostAddr and sends a Join request, moving the state
// machine from Unconnected to Joining.
func (p *Peer) Join(hostAddr, name string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Unconnected {
		return engineerr.Newf(engineerr.SessionRefused, "session: join called from state %s", p.state)
	}

	if err := p.ep.Dial(hostAddr); err != nil {
		return err
	}
	p.hostAddr = hostAddr
	p.setState(Joining)

	body, err := p.reg.EncodePayload(command.KindJoin, JoinPayload{Name: name, Data: data})
	if err != nil {
		return err
	}
	cmd := command.Command{Kind: command.KindJoin, Player: command.SystemPlayer, Payload: body}
	return p.ep.SendReliable(hostAddr, cmd.Encode(), transport.PriorityHigh)
}

// RequestGameState asks the host for a bootstrap snapshot; the answer
// arrives as an EventGameState on the peer's event sink.
func (p *Peer) RequestGameState() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Client {
		return engineerr.Newf(engineerr.SessionRefused, "session: game state requested from state %s", p.state)
	}

	body, err := p.reg.EncodePayload(command.KindGameStateQuery, GameStateQueryPayload{})
	if err != nil {
		return err
	}
	cmd := command.Command{Kind: command.KindGameStateQuery, Player: int32(p.playerID), Payload: body}
	return p.ep.SendReliable(p.hostAddr, cmd.Encode(), transport.PriorityNormal)
}

// Leave sends a Leave request to the host and tears down local state.
func (p *Peer) Leave() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Client {
		return nil
	}

	body, err := p.reg.EncodePayload(command.KindLeave, LeavePayload{PlayerID: p.playerID})
	if err != nil {
		return err
	}
	cmd := command.Command{Kind: command.KindLeave, Player: int32(p.playerID), Payload: body}
	sendErr := p.ep.SendReliable(p.hostAddr, cmd.Encode(), transport.PriorityHigh)

	p.roster = make(map[uint32]Player)
	p.setState(Unconnected)
	p.emit(Event{Kind: EventDisconnected, Reason: "left"})
	return sendErr
}

func (p *Peer) emit(ev Event) {
	if p.events == nil {
		return
	}
	select {
	case p.events <- ev:
	default:
		obslog.Warn(p.log, "session.event_channel_full", obslog.NoFrame, obslog.F("kind", ev.Kind))
	}
}

// Dispatch decodes a raw envelope and, if it is a session-control
// kind, handles it and reports handled=true. Anything else (a game
// command) is left for the caller to route into the simulation.
func (p *Peer) Dispatch(raw []byte) (cmd command.Command, handled bool, err error) {
	cmd, err = p.reg.DecodeEnvelope(raw)
	if err != nil {
		return command.Command{}, false, err
	}
	if cmd.Kind >= command.LastEngineCommand {
		return cmd, false, nil
	}
	switch cmd.Kind {
	case command.KindJoinResponse, command.KindPlayerJoined, command.KindPlayerLeft, command.KindGameState:
		return cmd, true, p.HandleCommand(cmd)
	default:
		return cmd, false, nil
	}
}

// HandleCommand dispatches a decoded session-layer command into the
// client's state machine. Game commands (anything above
// command.LastEngineCommand) are the caller's responsibility to route
// into the simulation; HandleCommand ignores them.
func (p *Peer) HandleCommand(cmd command.Command) error {
	switch cmd.Kind {
	case command.KindJoinResponse:
		resp, err := DecodeJoinResponsePayload(cmd.Payload)
		if err != nil {
			return err
		}
		return p.handleJoinResponse(resp)

	case command.KindPlayerJoined:
		pj, err := DecodePlayerJoinedPayload(cmd.Payload)
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.roster[pj.Player.ID] = pj.Player
		p.mu.Unlock()
		p.emit(Event{Kind: EventPlayerJoined, Player: pj.Player})
		return nil

	case command.KindPlayerLeft:
		pl, err := DecodePlayerLeftPayload(cmd.Payload)
		if err != nil {
			return err
		}
		p.mu.Lock()
		delete(p.roster, pl.PlayerID)
		p.mu.Unlock()
		p.emit(Event{Kind: EventPlayerLeft, PlayerID: pl.PlayerID})
		return nil

	case command.KindGameState:
		gs, err := DecodeGameStatePayload(cmd.Payload)
		if err != nil {
			return err
		}
		p.emit(Event{Kind: EventGameState, Blob: gs.Blob})
		return nil
	}
	return nil
}

func (p *Peer) handleJoinResponse(resp JoinResponsePayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Joining {
		return nil
	}

	if !resp.Success {
		p.setState(Unconnected)
		p.emit(Event{Kind: EventDisconnected, Reason: resp.Reason})
		return engineerr.Newf(engineerr.SessionRefused, "session: join refused: %s", resp.Reason)
	}

	p.playerID = resp.PlayerID
	p.roster = make(map[uint32]Player, len(resp.Roster))
	for _, pl := range resp.Roster {
		p.roster[pl.ID] = pl
	}
	p.setState(Client)
	if p.metrics != nil {
		p.metrics.Players.Set(float64(len(p.roster) + 1))
	}
	return nil
}
