// Package tss implements Trailing State Synchronization: a leading
// simulation state that runs ahead on locally predicted input, backed
// by a vector of increasingly conservative trailing states that only
// ever accept authoritative commands. When an authoritative command
// contradicts what a trailing state already ran tentatively, that
// state (and every state ahead of it) rolls back to the nearest
// still-correct trailing state and replays forward.
//
// Generalizes a rollback-then-replay scheme over a fixed two-state
// predicted/server pair into an arbitrary delay vector.
package tss

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fnuecke/Space-sub012/internal/command"
	"github.com/fnuecke/Space-sub012/internal/engineerr"
	"github.com/fnuecke/Space-sub012/internal/sim"
)

// Config describes the shape of a Scheduler's trailing state vector.
type Config struct {
	// Delays is D = [d0, d1, ..., dk]. d0 must be 0 (the leading state
	// runs at the scheduler's own clock); each following delay must be
	// strictly greater than the one before it.
	Delays []int64
	// HashCadence is how many frames elapse between hash broadcasts
	// for the deepest trailing state; 0 defaults to 256.
	HashCadence int64
	// HashHistory bounds how many past hash reports are retained for
	// comparison against late-arriving peer reports; 0 defaults to 16.
	HashHistory int
}

func (c Config) hashCadence() int64 {
	if c.HashCadence <= 0 {
		return 256
	}
	return c.HashCadence
}

func (c Config) hashHistory() int {
	if c.HashHistory <= 0 {
		return 16
	}
	return c.HashHistory
}

// HashReport is a deepest-trailing-state hash at a given frame,
// exchanged between peers to detect desync.
type HashReport struct {
	Frame int64
	Hash  uint32
}

// Scheduler owns the leading state plus every trailing state and
// drives command injection, rollback, and periodic hash broadcast.
//
// A Scheduler is not safe for concurrent use; it is meant to live
// entirely on the game thread driven by a single internal/timing.Driver.
type Scheduler struct {
	cfg     Config
	states  []*trailingState
	metrics *Metrics

	leadingFrame int64
	waiting      bool

	recentHashes []HashReport

	log zerolog.Logger
}

// trailingState is one entry in the vector: a simulation state plus
// the commands queued for frames it has not yet executed, plus a
// record of what it actually dispatched at each frame (used to detect
// whether an incoming authoritative command contradicts a tentative
// prediction already applied there).
type trailingState struct {
	sim     *sim.State
	queue   map[int64][]command.Command
	applied map[int64][]command.Command
}

func newTrailingState(s *sim.State) *trailingState {
	return &trailingState{
		sim:     s,
		queue:   make(map[int64][]command.Command),
		applied: make(map[int64][]command.Command),
	}
}

// enqueue adds c to the frame F queue. A duplicate delivery of an
// already-queued command is a no-op; an authoritative command for the
// same (player, kind) as an already-queued tentative one supersedes
// it in place rather than stacking both, so the corrected value is
// the only one ever dispatched for that slot.
func (ts *trailingState) enqueue(f int64, c command.Command) {
	existing := ts.queue[f]
	for i, e := range existing {
		if e.Player != c.Player || e.Kind != c.Kind {
			continue
		}
		if e.Equal(c) {
			return
		}
		if c.Authoritative {
			existing[i] = c
		}
		return
	}
	ts.queue[f] = append(existing, c)
}

// stepOneFrame advances the state exactly one frame, handing it
// whatever was queued for the frame it is about to reach.
func (ts *trailingState) stepOneFrame() {
	next := ts.sim.Frame + 1
	due := ts.queue[next]
	ts.sim.Step(due)
	if len(due) > 0 {
		ts.applied[next] = due
	}
	delete(ts.queue, next)
}

// cloneBasisFrom rehydrates ts from basisSnap (already cloned for
// independence) and carries forward every queued-but-not-yet-executed
// command from basis, so that replaying ts forward from the basis
// frame reproduces the deepest state's corrected trajectory.
func (ts *trailingState) cloneBasisFrom(basis *trailingState, basisSnap sim.FrameSnapshot) {
	ts.sim.Restore(basisSnap)
	ts.queue = make(map[int64][]command.Command)
	for frame, cmds := range basis.queue {
		if frame > basisSnap.Frame {
			cp := make([]command.Command, len(cmds))
			copy(cp, cmds)
			ts.queue[frame] = cp
		}
	}
	ts.applied = make(map[int64][]command.Command)
}

// NewScheduler validates cfg and builds k+1 trailing states, one per
// entry in cfg.Delays, each built by calling newState. newState must
// return a *sim.State with every command handler already registered;
// the Scheduler itself never dispatches commands directly.
func NewScheduler(cfg Config, newState func() *sim.State, metrics *Metrics) (*Scheduler, error) {
	if len(cfg.Delays) == 0 {
		return nil, fmt.Errorf("tss: Delays must have at least one entry")
	}
	if cfg.Delays[0] != 0 {
		return nil, fmt.Errorf("tss: Delays[0] must be 0, got %d", cfg.Delays[0])
	}
	for i := 1; i < len(cfg.Delays); i++ {
		if cfg.Delays[i] <= cfg.Delays[i-1] {
			return nil, fmt.Errorf("tss: Delays must be strictly increasing, got %v", cfg.Delays)
		}
	}
	if metrics == nil {
		metrics = NewMetrics()
	}

	states := make([]*trailingState, len(cfg.Delays))
	for i := range states {
		states[i] = newTrailingState(newState())
	}

	return &Scheduler{cfg: cfg, states: states, metrics: metrics, log: zerolog.Nop()}, nil
}

// SetLogger attaches log for desync and timeout reporting. Unset, the
// scheduler logs nothing; the simulation step/hash/clone path never
// logs regardless, per the no-suspension-point rule.
func (s *Scheduler) SetLogger(log zerolog.Logger) { s.log = log }

// Depth returns the number of trailing states, k+1.
func (s *Scheduler) Depth() int { return len(s.states) }

// LeadingFrame returns the frame the leading state (index 0) is at.
func (s *Scheduler) LeadingFrame() int64 { return s.leadingFrame }

// StateFrame returns the current frame of trailing state i, or an
// error if i is out of range.
func (s *Scheduler) StateFrame(i int) (int64, error) {
	if i < 0 || i >= len(s.states) {
		return 0, fmt.Errorf("tss: state index %d out of range [0,%d)", i, len(s.states))
	}
	return s.states[i].sim.Frame, nil
}

// LeadingWorld exposes the world backing the leading state, for
// read-only display/render code driven off the state the player sees.
func (s *Scheduler) LeadingWorld() *sim.State {
	return s.states[0].sim
}

// StateSnapshot is a read-only view of one trailing state, for
// external observer tooling; it never exposes the state's simulation
// pointer, so a caller cannot mutate or race with the game thread.
type StateSnapshot struct {
	Frame      int64
	Hash       uint32
	HasHash    bool
	Dirty      bool
	QueueDepth int
}

// Inspect returns a read-only snapshot of trailing state i. Dirty
// reports whether the state has commands queued for frames it hasn't
// reached yet; QueueDepth is the total count of those queued commands.
// Hash/HasHash only ever report the deepest state's last emitted hash,
// since that is the only one ever broadcast for desync comparison.
//
// Inspect performs no mutation and is meant to be called from outside
// the game thread by a read-only dashboard; it does not, by itself,
// make the Scheduler safe for concurrent use — callers must still
// synchronize with whatever drives Step/Inject.
func (s *Scheduler) Inspect(i int) (StateSnapshot, error) {
	if i < 0 || i >= len(s.states) {
		return StateSnapshot{}, fmt.Errorf("tss: state index %d out of range [0,%d)", i, len(s.states))
	}
	ts := s.states[i]
	depth := 0
	for _, cmds := range ts.queue {
		depth += len(cmds)
	}
	snap := StateSnapshot{
		Frame:      ts.sim.Frame,
		Dirty:      depth > 0,
		QueueDepth: depth,
	}
	if i == len(s.states)-1 {
		if h, ok := s.LastHash(); ok {
			snap.Hash = h.Hash
			snap.HasHash = true
		}
	}
	return snap, nil
}

// SetWaitingForSync suspends Step while true: commands are still
// accepted and queued (so they are not lost) but no state advances.
// A freshly joined client starts in this state until Bootstrap runs.
func (s *Scheduler) SetWaitingForSync(waiting bool) { s.waiting = waiting }

// WaitingForSync reports whether the scheduler is suspended pending a
// GameState bootstrap.
func (s *Scheduler) WaitingForSync() bool { return s.waiting }

// Step advances the leading frame by one and every trailing state
// forward to its own target frame (leadingFrame - delay), replaying
// whatever commands were queued for the frames it crosses. It then
// emits a hash report if the deepest state crossed a hash-cadence
// boundary. Step is a no-op while WaitingForSync is true.
func (s *Scheduler) Step() {
	if s.waiting {
		return
	}

	s.leadingFrame++
	for i, st := range s.states {
		target := s.leadingFrame - s.cfg.Delays[i]
		for st.sim.Frame < target {
			st.stepOneFrame()
		}
	}
	s.maybeEmitHash()
}

// Inject schedules c for execution at c.Frame, rolling back and
// replaying any state that already ran past it with a contradicting
// tentative prediction.
//
// Only authoritative commands modify trailing states; a tentative
// (locally predicted) command modifies only the leading state (index
// 0) and is dropped once the leading state has already passed its
// frame, since nothing else would ever apply it.
//
// Let i* be the smallest index with S_i*.frame < F: every state with
// index < i* has already executed frame F, every state with index >=
// i* has not. An authoritative c is enqueued into every state from i*
// onward. If no such index exists (every state, including the
// deepest, is already at or past F), the command arrived too late to
// affect any state and is dropped with a LateCommand error.
func (s *Scheduler) Inject(c command.Command) error {
	if !c.Simulation {
		return engineerr.New(engineerr.LateCommand, "tss: command is not simulation-bound")
	}
	f := c.Frame

	iStar := -1
	for i, st := range s.states {
		if st.sim.Frame < f {
			iStar = i
			break
		}
	}
	if iStar == -1 {
		deepest := s.states[len(s.states)-1].sim.Frame
		return engineerr.Newf(engineerr.LateCommand, "tss: frame %d at or before deepest state frame %d", f, deepest)
	}

	if !c.Authoritative {
		if iStar > 0 {
			return engineerr.Newf(engineerr.LateCommand, "tss: tentative frame %d already passed by the leading state", f)
		}
		s.states[0].enqueue(f, c)
		return nil
	}

	for j := iStar; j < len(s.states); j++ {
		s.states[j].enqueue(f, c)
	}

	if iStar > 0 {
		dirty := false
		for i := 0; i < iStar; i++ {
			if s.states[i].sim.Frame >= f && !s.stateAgrees(i, f, c) {
				dirty = true
				break
			}
		}
		if dirty {
			s.rollback(iStar)
		}
	}
	return nil
}

// stateAgrees reports whether state i either never dispatched anything
// for (c.Player, f) or dispatched something equal to c. A mismatch
// there is exactly the contradiction that forces a rollback.
func (s *Scheduler) stateAgrees(i int, f int64, c command.Command) bool {
	for _, applied := range s.states[i].applied[f] {
		if applied.Player == c.Player && applied.Kind == c.Kind {
			return applied.Equal(c)
		}
	}
	return true
}

// rollback rewinds every state ahead of iStar to iStar's current
// snapshot and replays each back up to the frame it was at before the
// rollback, now incorporating whatever iStar had queued (including
// the command that just triggered this rollback).
func (s *Scheduler) rollback(iStar int) {
	basis := s.states[iStar]
	basisSnap := basis.sim.Snapshot()

	var replayed int64
	for i := 0; i < iStar; i++ {
		target := s.states[i].sim.Frame
		s.states[i].cloneBasisFrom(basis, basisSnap.Clone())
		for s.states[i].sim.Frame < target {
			s.states[i].stepOneFrame()
			replayed++
		}
	}

	s.metrics.Rollbacks.Inc()
	s.metrics.ReplayedFrames.Add(float64(replayed))
}
