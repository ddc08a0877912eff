// Package sim implements the single-state simulation step: given a
// world and a batch of commands scheduled for the current frame,
// advance to the next frame.
//
// Follows a per-tick dispatch-then-update shape with a documented
// system order (input, physics, collision, damage, cleanup),
// generalized from a fixed pipeline into the ordered ecs.Manager
// system list.
package sim

import (
	"sort"

	"github.com/fnuecke/Space-sub012/internal/command"
	"github.com/fnuecke/Space-sub012/internal/ecs"
)

// Handler dispatches one command kind's effect onto the world.
type Handler func(w *ecs.World, c command.Command)

// State is one trailing or leading simulation state: a world plus the
// frame it currently sits at and the dispatch table for its commands.
type State struct {
	Frame    int64
	World    *ecs.World
	Manager  *ecs.Manager
	handlers map[command.Kind]Handler
}

// NewState returns a State at frame 0, driven by manager over world.
func NewState(world *ecs.World, manager *ecs.Manager) *State {
	return &State{
		World:    world,
		Manager:  manager,
		handlers: make(map[command.Kind]Handler),
	}
}

// RegisterHandler binds kind's dispatch effect. Registering the same
// kind twice overwrites the previous binding.
func (s *State) RegisterHandler(kind command.Kind, h Handler) {
	s.handlers[kind] = h
}

// Step advances the state by exactly one frame: frame increments,
// every command in cmds whose Frame equals the new frame is
// dispatched to its registered handler, authoritative commands before
// tentative ones and, within each group, by ascending player id —
// then every Component System runs once in registered order.
func (s *State) Step(cmds []command.Command) {
	s.Frame++

	due := make([]command.Command, 0, len(cmds))
	for _, c := range cmds {
		if c.Frame == s.Frame {
			due = append(due, c)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].Authoritative != due[j].Authoritative {
			return due[i].Authoritative
		}
		return due[i].Player < due[j].Player
	})

	for _, c := range due {
		if h, ok := s.handlers[c.Kind]; ok {
			h(s.World, c)
		}
	}

	s.Manager.Step()
}

// Snapshot captures the world at its current frame.
func (s *State) Snapshot() FrameSnapshot {
	return FrameSnapshot{Frame: s.Frame, World: s.World.Snapshot()}
}

// Restore rehydrates the state to match snap exactly, including its
// frame counter.
func (s *State) Restore(snap FrameSnapshot) {
	s.Frame = snap.Frame
	s.World.Restore(snap.World)
}

// FrameSnapshot pairs a world Snapshot with the frame it was taken at,
// the unit TSS clones when rolling back or bootstrapping a state.
type FrameSnapshot struct {
	Frame int64
	World ecs.Snapshot
}

// Clone returns a deep, independent copy of snap.
func (f FrameSnapshot) Clone() FrameSnapshot {
	return FrameSnapshot{Frame: f.Frame, World: f.World.Clone()}
}
