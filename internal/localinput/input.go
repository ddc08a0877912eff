// Package localinput turns terminal keyboard events into typed
// commands for a single local player — the concrete instance of the
// "input source that produces typed commands per local player"
// external collaborator, kept deliberately outside the simulation
// core.
//
// Follows a rune-to-intent key-binding bitmask fused with a
// pollEvents/translateEvent split, generalized from a renderer method
// into a standalone github.com/gdamore/tcell/v2 event source that
// knows nothing about rendering.
package localinput

import (
	"github.com/gdamore/tcell/v2"

	"github.com/fnuecke/Space-sub012/internal/command"
	"github.com/fnuecke/Space-sub012/internal/engineerr"
)

// Intent is a player input action, held as a bitmask so multiple keys
// pressed in the same tick combine into one command payload.
type Intent uint8

const (
	IntentNone Intent = 0
	IntentLeft Intent = 1 << iota
	IntentRight
	IntentJump
	IntentAttack
	IntentUse
)

// Kind is the one example game-defined command kind the engine ships.
// Non-goals exclude a concrete game, so a consuming application is
// expected to define its own kinds above command.LastEngineCommand;
// this one exists to give localinput something real to encode, and to
// document the pattern.
const Kind command.Kind = command.LastEngineCommand + 1

// Encode packs an Intent snapshot into a one-byte payload.
func Encode(i Intent) []byte { return []byte{byte(i)} }

// Decode unpacks a one-byte Intent payload.
func Decode(b []byte) (Intent, error) {
	if len(b) != 1 {
		return 0, engineerr.Newf(engineerr.Decode, "localinput: want 1 byte, got %d", len(b))
	}
	return Intent(b[0]), nil
}

// Source polls a tcell.Screen for key events on a background
// goroutine and maintains the currently-held Intent bitmask for one
// local player. Poll is non-blocking; events queue on a small buffered
// channel, so a slow consumer drops events rather than stalling the
// screen's own read loop.
type Source struct {
	screen  tcell.Screen
	mapping map[rune]Intent
	arrows  map[tcell.Key]Intent

	state Intent

	events chan tcell.Event
	quit   chan struct{}
}

// NewSource starts polling screen and returns a Source bound to the
// default WASD/arrow-key bindings.
func NewSource(screen tcell.Screen) *Source {
	s := &Source{
		screen:  screen,
		mapping: make(map[rune]Intent),
		arrows:  make(map[tcell.Key]Intent),
		events:  make(chan tcell.Event, 32),
		quit:    make(chan struct{}),
	}
	s.bindDefaults()
	go s.pollEvents()
	return s
}

func (s *Source) bindDefaults() {
	s.mapping['a'], s.mapping['A'] = IntentLeft, IntentLeft
	s.mapping['d'], s.mapping['D'] = IntentRight, IntentRight
	s.mapping['w'], s.mapping['W'], s.mapping[' '] = IntentJump, IntentJump, IntentJump
	s.mapping['j'], s.mapping['J'] = IntentAttack, IntentAttack
	s.mapping['k'], s.mapping['K'] = IntentUse, IntentUse
	s.arrows[tcell.KeyLeft] = IntentLeft
	s.arrows[tcell.KeyRight] = IntentRight
	s.arrows[tcell.KeyUp] = IntentJump
}

// Bind overrides the intent a rune key maps to.
func (s *Source) Bind(key rune, intent Intent) { s.mapping[key] = intent }

func (s *Source) pollEvents() {
	for {
		select {
		case <-s.quit:
			return
		default:
		}
		ev := s.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case s.events <- ev:
		default:
		}
	}
}

// Poll drains any pending screen events, folding key presses into the
// held-intent state, and reports whether a quit key (Escape, Ctrl+C,
// 'q') was seen.
func (s *Source) Poll() (quit bool) {
	for {
		select {
		case ev := <-s.events:
			if s.handleEvent(ev) {
				return true
			}
		default:
			return false
		}
	}
}

func (s *Source) handleEvent(ev tcell.Event) (quit bool) {
	key, ok := ev.(*tcell.EventKey)
	if !ok {
		return false
	}
	switch key.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		if r := key.Rune(); r == 'q' || r == 'Q' {
			return true
		}
		if intent, ok := s.mapping[key.Rune()]; ok {
			s.state |= intent
		}
	default:
		if intent, ok := s.arrows[key.Key()]; ok {
			s.state |= intent
		}
	}
	return false
}

// Clear resets the held-intent state, typically once its command has
// been sent for the tick.
func (s *Source) Clear() { s.state = IntentNone }

// State returns the currently held intent bitmask.
func (s *Source) State() Intent { return s.state }

// Command packs the current held-intent state into a Command
// addressed to player, bound for simulation frame.
func (s *Source) Command(player int32, frame int64) command.Command {
	return command.Command{
		Kind:       Kind,
		Player:     player,
		Frame:      frame,
		Simulation: true,
		Payload:    Encode(s.state),
	}
}

// Close stops the background poll goroutine.
func (s *Source) Close() { close(s.quit) }
