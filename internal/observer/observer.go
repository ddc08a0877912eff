// Package observer implements a read-only dashboard over a running
// internal/tss.Scheduler, offering a `stats` view (one summary line
// per trailing state) and a `dump-state <index>` view (full detail
// for one state).
//
// The dashboard never touches the Scheduler directly: the game thread
// calls Publisher.Publish once per tick (or at whatever cadence it
// likes) to hand across an immutable Snapshot, and the dashboard's own
// redraw loop reads only that atomic pointer — the game thread never
// blocks on a slow terminal, and the dashboard never blocks on the
// game thread.
//
// Follows a terminal capability probe (COLORTERM/TERM/LANG) and a
// screen lifecycle of Init/Clear/SetContent/Show, generalized from a
// sprite-atlas world renderer into a text-only stats readout, plus
// golang.org/x/term for raw-mode detection.
package observer

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/term"

	"github.com/fnuecke/Space-sub012/internal/tss"
)

// Capability describes what the current terminal supports.
type Capability struct {
	Truecolor bool
	Color256  bool
	Unicode   bool
	Raw       bool
}

// Detect probes environment variables and stdout's file descriptor,
// the same environment signals a sprite renderer would probe, plus a
// raw-mode check.
func Detect() Capability {
	var c Capability

	colorterm := os.Getenv("COLORTERM")
	if colorterm == "truecolor" || colorterm == "24bit" {
		c.Truecolor = true
		c.Color256 = true
	}
	if strings.Contains(os.Getenv("TERM"), "256color") {
		c.Color256 = true
	}

	lang := strings.ToLower(os.Getenv("LANG"))
	c.Unicode = lang == "" || strings.Contains(lang, "utf")
	c.Raw = term.IsTerminal(int(os.Stdout.Fd()))
	return c
}

// Snapshot is an immutable copy of a scheduler's trailing-state
// vector at one moment, safe to read from any goroutine.
type Snapshot struct {
	LeadingFrame int64
	States       []tss.StateSnapshot
}

// Publisher sits on the game thread side: it samples a Scheduler via
// Inspect and stores the result as an atomic pointer, so a Dashboard
// never needs a reference to the Scheduler itself.
type Publisher struct {
	current atomic.Pointer[Snapshot]
}

// NewPublisher returns a Publisher with nothing published yet.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish samples every trailing state of sched and makes the result
// visible to any Dashboard reading this Publisher.
func (p *Publisher) Publish(sched *tss.Scheduler) {
	states := make([]tss.StateSnapshot, sched.Depth())
	for i := range states {
		snap, err := sched.Inspect(i)
		if err != nil {
			continue
		}
		states[i] = snap
	}
	p.current.Store(&Snapshot{LeadingFrame: sched.LeadingFrame(), States: states})
}

// Load returns the most recently published Snapshot, or ok=false if
// Publish has never been called.
func (p *Publisher) Load() (snap Snapshot, ok bool) {
	s := p.current.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

// Dashboard renders a Publisher's snapshots to a tcell.Screen. It
// implements the `stats` (all states, one summary line each) and
// `dump-state <index>` (one state, full detail) views.
type Dashboard struct {
	screen tcell.Screen
	pub    *Publisher
	focus  int // -1 selects the stats view; >=0 selects dump-state.
}

// NewDashboard returns a Dashboard in the stats view.
func NewDashboard(screen tcell.Screen, pub *Publisher) *Dashboard {
	return &Dashboard{screen: screen, pub: pub, focus: -1}
}

// Stats switches to the all-states summary view.
func (d *Dashboard) Stats() { d.focus = -1 }

// DumpState switches to the single-state detail view for trailing
// state i.
func (d *Dashboard) DumpState(i int) { d.focus = i }

// Redraw renders the most recent snapshot; it is a no-op until the
// publisher's first Publish call lands.
func (d *Dashboard) Redraw() {
	snap, ok := d.pub.Load()
	if !ok {
		return
	}
	d.screen.Clear()
	if d.focus < 0 {
		d.renderStats(snap)
	} else {
		d.renderDumpState(snap)
	}
	d.screen.Show()
}

func (d *Dashboard) renderStats(snap Snapshot) {
	d.drawLine(0, fmt.Sprintf("leading frame: %d", snap.LeadingFrame))
	for i, s := range snap.States {
		text := fmt.Sprintf("state %d: frame=%d dirty=%v queue=%d hash=%s", i, s.Frame, s.Dirty, s.QueueDepth, hashText(s))
		d.drawStyledLine(i+1, text, queueDepthColor(s.QueueDepth))
	}
}

func (d *Dashboard) renderDumpState(snap Snapshot) {
	if d.focus >= len(snap.States) {
		d.drawLine(0, fmt.Sprintf("state %d out of range [0,%d)", d.focus, len(snap.States)))
		return
	}
	s := snap.States[d.focus]
	d.drawLine(0, fmt.Sprintf("state %d", d.focus))
	d.drawLine(1, fmt.Sprintf("frame:       %d", s.Frame))
	d.drawLine(2, fmt.Sprintf("dirty:       %v", s.Dirty))
	d.drawLine(3, fmt.Sprintf("queue depth: %d", s.QueueDepth))
	d.drawLine(4, fmt.Sprintf("hash:        %s", hashText(s)))
}

func hashText(s tss.StateSnapshot) string {
	if !s.HasHash {
		return "-"
	}
	return fmt.Sprintf("%08x", s.Hash)
}

func (d *Dashboard) drawLine(row int, text string) {
	d.drawStyledLine(row, text, tcell.StyleDefault.Foreground(tcell.ColorWhite))
}

func (d *Dashboard) drawStyledLine(row int, text string, style tcell.Style) {
	for col, r := range text {
		d.screen.SetContent(col, row, r, nil, style)
	}
}

// healthyColor and backlogColor bound the gradient a state's queue
// depth is interpolated across: clean (nothing queued) reads as
// healthyColor, and a backlog at or past queueDepthSaturation reads as
// backlogColor.
var (
	healthyColor         = colorful.Color{R: 0, G: 0.8, B: 0}
	backlogColor         = colorful.Color{R: 0.85, G: 0.1, B: 0.1}
	queueDepthSaturation = 10.0
)

// queueDepthColor blends healthyColor toward backlogColor in
// proportion to how deep a trailing state's pending-command queue is,
// giving the stats view an at-a-glance severity cue instead of making
// the operator read raw counts.
func queueDepthColor(depth int) tcell.Style {
	t := float64(depth) / queueDepthSaturation
	if t > 1 {
		t = 1
	}
	blended := healthyColor.BlendRgb(backlogColor, t)
	r, g, b := blended.RGB255()
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
}

// Close releases the underlying screen.
func (d *Dashboard) Close() { d.screen.Fini() }
