package session

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/fnuecke/Space-sub012/internal/command"
	"github.com/fnuecke/Space-sub012/internal/engineerr"
	"github.com/fnuecke/Space-sub012/internal/obslog"
	"github.com/fnuecke/Space-sub012/internal/transport"
	"github.com/fnuecke/Space-sub012/internal/tss"
)

type rosterEntry struct {
	player Player
	addr   string
}

// Host is the authoritative side of the session layer: it allocates
// player ids, accepts or refuses joins, broadcasts roster changes, and
// answers game-state bootstrap requests.
//
// Host methods assume single-threaded dispatch: callers must process
// inbound session messages for one host in the order they were
// received (the natural shape of a single Endpoint.Run receive loop
// feeding a session handler), since the join/leave ordering guarantee
// depends on the host never reordering a player's commands relative
// to its own Join/Leave.
type Host struct {
	mu       sync.Mutex
	capacity int
	nextID   uint32
	roster   map[uint32]rosterEntry

	sched *tss.Scheduler
	reg   *command.Registry
	ep    *transport.Endpoint

	log     zerolog.Logger
	metrics *Metrics
}

func NewHost(capacity int, sched *tss.Scheduler, reg *command.Registry, ep *transport.Endpoint, log zerolog.Logger, metrics *Metrics) *Host {
	return &Host{
		capacity: capacity,
		nextID:   1,
		roster:   make(map[uint32]rosterEntry),
		sched:    sched,
		reg:      reg,
		ep:       ep,
		log:      log,
		metrics:  metrics,
	}
}

func (h *Host) buildEnvelope(kind command.Kind, payload any) (command.Command, error) {
	body, err := h.reg.EncodePayload(kind, payload)
	if err != nil {
		return command.Command{}, err
	}
	return command.Command{Kind: kind, Player: command.SystemPlayer, Authoritative: true, Payload: body}, nil
}

func (h *Host) sendTo(addr string, kind command.Kind, payload any) error {
	cmd, err := h.buildEnvelope(kind, payload)
	if err != nil {
		return err
	}
	return h.ep.SendReliable(addr, cmd.Encode(), transport.PriorityHigh)
}

// HandleJoin processes a Join from addr, allocating a fresh player id
// and broadcasting PlayerJoined to every existing peer before replying
// to the joiner, so no peer ever observes a game command from the new
// player before learning it joined.
func (h *Host) HandleJoin(addr string, payload JoinPayload) error {
	h.mu.Lock()

	if len(h.roster) >= h.capacity {
		h.mu.Unlock()
		resp := JoinResponsePayload{Success: false, Reason: "session is full"}
		_ = h.sendTo(addr, command.KindJoinResponse, resp)
		obslog.Info(h.log, "session.join_refused", obslog.NoFrame, obslog.F("addr", addr), obslog.F("reason", resp.Reason))
		return engineerr.New(engineerr.SessionFull, "session: join refused, capacity reached")
	}

	id := h.nextID
	h.nextID++
	joined := Player{ID: id, Name: payload.Name, Data: payload.Data}

	roster := make([]Player, 0, len(h.roster))
	for _, entry := range h.roster {
		roster = append(roster, entry.player)
	}

	for _, entry := range h.roster {
		if err := h.sendTo(entry.addr, command.KindPlayerJoined, PlayerJoinedPayload{Player: joined}); err != nil {
			obslog.Warn(h.log, "session.broadcast_player_joined_failed", obslog.NoFrame, obslog.F("addr", entry.addr), obslog.F("err", err))
		}
	}

	h.roster[id] = rosterEntry{player: joined, addr: addr}
	count := len(h.roster)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.Players.Set(float64(count))
	}

	obslog.Info(h.log, "session.join_accepted", obslog.NoFrame, obslog.F("addr", addr), obslog.F("player_id", id))
	return h.sendTo(addr, command.KindJoinResponse, JoinResponsePayload{Success: true, PlayerID: id, Roster: roster})
}

// HandleLeave removes playerID from the roster and broadcasts
// PlayerLeft to every remaining peer. Callers must only invoke this
// after every command the leaver authored has already reached the
// scheduler, so PlayerLeft is observed strictly after the leaver's
// last command.
func (h *Host) HandleLeave(playerID uint32) error {
	h.mu.Lock()
	if _, ok := h.roster[playerID]; !ok {
		h.mu.Unlock()
		return engineerr.Newf(engineerr.SessionDisconnected, "session: unknown player %d", playerID)
	}
	delete(h.roster, playerID)

	remaining := make([]string, 0, len(h.roster))
	for _, entry := range h.roster {
		remaining = append(remaining, entry.addr)
	}
	count := len(h.roster)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.Players.Set(float64(count))
	}

	obslog.Info(h.log, "session.player_left", obslog.NoFrame, obslog.F("player_id", playerID))

	var firstErr error
	for _, addr := range remaining {
		if err := h.sendTo(addr, command.KindPlayerLeft, PlayerLeftPayload{PlayerID: playerID}); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HandleGameStateQuery answers a GameStateQuery from addr with the
// scheduler's current bootstrap payload.
func (h *Host) HandleGameStateQuery(addr string) error {
	gs := h.sched.BuildGameState()
	return h.sendTo(addr, command.KindGameState, GameStatePayload{Blob: EncodeGameState(gs)})
}

// HandleCommand marks an inbound game command as authoritative,
// injects it into the scheduler, and relays it to every peer other
// than its author.
func (h *Host) HandleCommand(fromAddr string, cmd command.Command) error {
	cmd.Authoritative = true

	if cmd.Simulation {
		if err := h.sched.Inject(cmd); err != nil {
			return err
		}
	}

	h.mu.Lock()
	peers := make([]string, 0, len(h.roster))
	for _, entry := range h.roster {
		if entry.addr == fromAddr {
			continue
		}
		peers = append(peers, entry.addr)
	}
	h.mu.Unlock()

	raw := cmd.Encode()
	var firstErr error
	for _, addr := range peers {
		if err := h.ep.SendReliable(addr, raw, transport.PriorityNormal); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Dispatch decodes a raw envelope received from addr and routes it:
// session-control kinds are handled directly, a GameStateQuery answers
// with the current bootstrap payload, and anything else is treated as
// a game command and relayed through HandleCommand.
func (h *Host) Dispatch(addr string, raw []byte) error {
	cmd, err := h.reg.DecodeEnvelope(raw)
	if err != nil {
		return err
	}

	switch cmd.Kind {
	case command.KindJoin:
		payload, err := DecodeJoinPayload(cmd.Payload)
		if err != nil {
			return err
		}
		return h.HandleJoin(addr, payload)

	case command.KindLeave:
		payload, err := DecodeLeavePayload(cmd.Payload)
		if err != nil {
			return err
		}
		return h.HandleLeave(payload.PlayerID)

	case command.KindGameStateQuery:
		return h.HandleGameStateQuery(addr)

	default:
		return h.HandleCommand(addr, cmd)
	}
}

// Roster returns a snapshot of every player currently known to the host.
func (h *Host) Roster() []Player {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Player, 0, len(h.roster))
	for _, entry := range h.roster {
		out = append(out, entry.player)
	}
	return out
}
