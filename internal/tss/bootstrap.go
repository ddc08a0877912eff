package tss

import (
	"sort"

	"github.com/fnuecke/Space-sub012/internal/command"
	"github.com/fnuecke/Space-sub012/internal/ecs"
	"github.com/fnuecke/Space-sub012/internal/sim"
)

// GameState is the bootstrap payload an authoritative host sends a
// joining client: the deepest trailing state's world (the only state
// guaranteed to already hold every command an authoritative peer has
// sent for any frame still pending) plus every command still queued
// beyond it.
//
// Generalizes a full-state-snapshot-plus-trailing-delta bootstrap
// from "one delta since last ack" into "every command not yet
// executed by the deepest state".
type GameState struct {
	Frame    int64
	World    ecs.Snapshot
	Buffered []command.Command
}

// BuildGameState captures the deepest trailing state plus its pending
// command queue, in frame order, into a payload a joining client can
// bootstrap from.
func (s *Scheduler) BuildGameState() GameState {
	deepest := s.states[len(s.states)-1]

	var buffered []command.Command
	frames := make([]int64, 0, len(deepest.queue))
	for f := range deepest.queue {
		frames = append(frames, f)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i] < frames[j] })
	for _, f := range frames {
		buffered = append(buffered, deepest.queue[f]...)
	}

	return GameState{
		Frame:    deepest.sim.Frame,
		World:    deepest.sim.World.Snapshot(),
		Buffered: buffered,
	}
}

// Bootstrap resets every trailing state to payload's world and frame,
// replays its buffered commands back into the normal Inject path (at
// this point every state is at the same frame, so every command lands
// in all of them), and clears WaitingForSync so Step resumes driving
// the scheduler forward.
func (s *Scheduler) Bootstrap(payload GameState) {
	base := payload.World.Clone()
	for _, st := range s.states {
		st.sim.Restore(sim.FrameSnapshot{Frame: payload.Frame, World: base.Clone()})
		st.queue = make(map[int64][]command.Command)
		st.applied = make(map[int64][]command.Command)
	}
	s.leadingFrame = payload.Frame
	s.recentHashes = nil

	for _, c := range payload.Buffered {
		_ = s.Inject(c)
	}

	s.waiting = false
}
