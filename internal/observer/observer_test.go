package observer

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/require"

	"github.com/fnuecke/Space-sub012/internal/command"
	"github.com/fnuecke/Space-sub012/internal/ecs"
	"github.com/fnuecke/Space-sub012/internal/sim"
	"github.com/fnuecke/Space-sub012/internal/tss"
)

func newTestScheduler(t *testing.T) *tss.Scheduler {
	t.Helper()
	sched, err := tss.NewScheduler(tss.Config{Delays: []int64{0, 2}}, func() *sim.State {
		w := ecs.NewWorld()
		return sim.NewState(w, ecs.NewManager(w))
	}, nil)
	require.NoError(t, err)
	return sched
}

func newTestDashboard(t *testing.T) (*Dashboard, tcell.SimulationScreen, *Publisher) {
	t.Helper()
	screen := tcell.NewSimulationScreen("")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)

	pub := NewPublisher()
	return NewDashboard(screen, pub), screen, pub
}

func cellText(screen tcell.SimulationScreen, row int, width int) string {
	runes := make([]rune, 0, width)
	for col := 0; col < width; col++ {
		r, _, _, _ := screen.GetContent(col, row)
		runes = append(runes, r)
	}
	return string(runes)
}

func TestPublisherLoadBeforePublishIsNotOk(t *testing.T) {
	pub := NewPublisher()
	_, ok := pub.Load()
	require.False(t, ok)
}

func TestPublishCapturesEveryTrailingState(t *testing.T) {
	sched := newTestScheduler(t)
	pub := NewPublisher()

	pub.Publish(sched)
	snap, ok := pub.Load()
	require.True(t, ok)
	require.Equal(t, sched.Depth(), len(snap.States))
	require.Equal(t, sched.LeadingFrame(), snap.LeadingFrame)
}

func TestRedrawIsNoOpBeforeFirstPublish(t *testing.T) {
	dash, _, _ := newTestDashboard(t)
	dash.Redraw() // must not panic when nothing has been published yet
}

func TestStatsViewRendersOneLinePerState(t *testing.T) {
	sched := newTestScheduler(t)
	dash, screen, pub := newTestDashboard(t)

	require.NoError(t, sched.Inject(command.Command{Kind: command.KindInfo, Player: 1, Authoritative: true, Frame: 1, Simulation: true, Payload: []byte{0}}))

	pub.Publish(sched)
	dash.Redraw()

	require.Contains(t, cellText(screen, 0, 40), "leading frame: 0")
	require.Contains(t, cellText(screen, 1, 60), "state 0:")
	require.Contains(t, cellText(screen, 2, 60), "state 1:")
}

func TestDumpStateViewRendersSingleStateDetail(t *testing.T) {
	sched := newTestScheduler(t)
	dash, screen, pub := newTestDashboard(t)

	pub.Publish(sched)
	dash.DumpState(1)
	dash.Redraw()

	require.Contains(t, cellText(screen, 0, 20), "state 1")
	require.Contains(t, cellText(screen, 1, 20), "frame:")
	require.Contains(t, cellText(screen, 3, 20), "queue depth:")
}

func TestQueueDepthColorInterpolatesTowardBacklog(t *testing.T) {
	clean := queueDepthColor(0)
	full := queueDepthColor(100)

	cleanFg, _, _ := clean.Decompose()
	fullFg, _, _ := full.Decompose()
	require.NotEqual(t, cleanFg, fullFg)

	cr, cg, cb := cleanFg.RGB()
	fr, fg, fb := fullFg.RGB()
	require.Greater(t, cg, fg, "clean queue should read greener than a full one")
	require.Greater(t, fr, cr, "a full queue should read redder than a clean one")
	_, _ = cb, fb
}

func TestDumpStateOutOfRangeReportsInstead(t *testing.T) {
	sched := newTestScheduler(t)
	dash, screen, pub := newTestDashboard(t)

	pub.Publish(sched)
	dash.DumpState(9)
	dash.Redraw()

	require.Contains(t, cellText(screen, 0, 40), "out of range")
}
