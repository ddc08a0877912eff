package tss

import (
	"encoding/binary"
	"testing"

	"github.com/fnuecke/Space-sub012/internal/command"
	"github.com/fnuecke/Space-sub012/internal/ecs"
	"github.com/fnuecke/Space-sub012/internal/sim"
)

// counter is a single-field test component: one entity's accumulated
// total, used to make rollback/replay divergence directly observable.
type counter struct{ Total int64 }

func encodeCounter(c counter) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(c.Total))
	return b
}

func decodeCounter(b []byte) (counter, error) {
	return counter{Total: int64(binary.LittleEndian.Uint64(b))}, nil
}

// newCountingState builds a *sim.State with one entity holding a
// counter component and a KindInfo handler that adds the command
// payload (an int64 delta) to it.
func newCountingState() (*sim.State, *ecs.ComponentHandle[counter], ecs.EntityID) {
	w := ecs.NewWorld()
	counters := ecs.RegisterComponent[counter](w, "counter", encodeCounter, decodeCounter)
	id := w.Spawn()
	counters.Set(id, counter{})

	s := sim.NewState(w, ecs.NewManager(w))
	s.RegisterHandler(command.KindInfo, func(world *ecs.World, c command.Command) {
		delta := int64(binary.LittleEndian.Uint64(c.Payload))
		cur, _ := counters.Get(id)
		cur.Total += delta
		counters.Set(id, cur)
	})
	return s, counters, id
}

func deltaPayload(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func newTestScheduler(t *testing.T, delays []int64) (*Scheduler, []*ecs.ComponentHandle[counter], []ecs.EntityID) {
	t.Helper()
	var handles []*ecs.ComponentHandle[counter]
	var ids []ecs.EntityID
	sched, err := NewScheduler(Config{Delays: delays}, func() *sim.State {
		st, h, id := newCountingState()
		handles = append(handles, h)
		ids = append(ids, id)
		return st
	}, nil)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return sched, handles, ids
}

func cmdAt(frame int64, player int32, authoritative bool, delta int64) command.Command {
	return command.Command{
		Kind:          command.KindInfo,
		Player:        player,
		Authoritative: authoritative,
		Frame:         frame,
		Simulation:    true,
		Payload:       deltaPayload(delta),
	}
}

func TestNewSchedulerRejectsBadDelays(t *testing.T) {
	if _, err := NewScheduler(Config{Delays: []int64{1, 2}}, func() *sim.State { return nil }, nil); err == nil {
		t.Fatalf("expected error when Delays[0] != 0")
	}
	if _, err := NewScheduler(Config{Delays: []int64{0, 2, 2}}, func() *sim.State { return nil }, nil); err == nil {
		t.Fatalf("expected error for non-strictly-increasing Delays")
	}
}

func TestStepAdvancesEveryStateTowardItsOwnTarget(t *testing.T) {
	sched, _, _ := newTestScheduler(t, []int64{0, 2, 5})

	for i := 0; i < 10; i++ {
		sched.Step()
	}

	f0, _ := sched.StateFrame(0)
	f1, _ := sched.StateFrame(1)
	f2, _ := sched.StateFrame(2)
	if f0 != 10 {
		t.Fatalf("leading state frame = %d, want 10", f0)
	}
	if f1 != 8 {
		t.Fatalf("state 1 frame = %d, want 8", f1)
	}
	if f2 != 5 {
		t.Fatalf("state 2 frame = %d, want 5", f2)
	}
}

func TestInjectTooLateForDeepestStateIsDropped(t *testing.T) {
	sched, _, _ := newTestScheduler(t, []int64{0, 2})
	for i := 0; i < 10; i++ {
		sched.Step()
	}

	deepest, _ := sched.StateFrame(1)
	err := sched.Inject(cmdAt(deepest, 1, true, 1))
	if err == nil {
		t.Fatalf("expected LateCommand error for a frame at or before the deepest state")
	}
}

func TestInjectAuthoritativeFreshCommandReachesEveryState(t *testing.T) {
	sched, handles, ids := newTestScheduler(t, []int64{0, 2, 5})

	if err := sched.Inject(cmdAt(1, 1, true, 10)); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	for i := 0; i < 6; i++ {
		sched.Step()
	}

	for i := range handles {
		got, _ := handles[i].Get(ids[i])
		if got.Total != 10 {
			t.Fatalf("state %d counter = %d, want 10 (authoritative command should reach every state)", i, got.Total)
		}
	}
}

func TestInjectTentativeCommandReachesOnlyLeadingState(t *testing.T) {
	sched, handles, ids := newTestScheduler(t, []int64{0, 2, 5})

	if err := sched.Inject(cmdAt(1, 1, false, 10)); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	for i := 0; i < 6; i++ {
		sched.Step()
	}

	got, _ := handles[0].Get(ids[0])
	if got.Total != 10 {
		t.Fatalf("leading counter = %d, want 10", got.Total)
	}
	for i := 1; i < len(handles); i++ {
		got, _ := handles[i].Get(ids[i])
		if got.Total != 0 {
			t.Fatalf("trailing state %d counter = %d, want 0 (tentative commands must not reach trailing states)", i, got.Total)
		}
	}
}

func TestInjectTentativeCommandPastLeadingFrameIsDropped(t *testing.T) {
	sched, _, _ := newTestScheduler(t, []int64{0, 2})
	for i := 0; i < 5; i++ {
		sched.Step()
	}

	leading, _ := sched.StateFrame(0)
	if err := sched.Inject(cmdAt(leading, 1, false, 1)); err == nil {
		t.Fatalf("expected LateCommand error for a tentative command the leading state already passed")
	}
}

// TestRollbackCorrectsLeadingPredictionOnContradiction exercises the
// core TSS scenario: the leading state tentatively applies one value,
// then an authoritative command for the same (player, frame) arrives
// with a different value after the leading state has already passed
// that frame. The leading state must roll back to the trailing
// state's basis and replay with the authoritative value winning.
func TestRollbackCorrectsLeadingPredictionOnContradiction(t *testing.T) {
	sched, handles, ids := newTestScheduler(t, []int64{0, 3})

	// Leading tentatively predicts +5 at frame 2, immediately visible.
	if err := sched.Inject(cmdAt(2, 1, false, 5)); err != nil {
		t.Fatalf("Inject tentative: %v", err)
	}
	for i := 0; i < 4; i++ {
		sched.Step()
	}
	leadingAfterPrediction, _ := handles[0].Get(ids[0])
	if leadingAfterPrediction.Total != 5 {
		t.Fatalf("leading counter after tentative prediction = %d, want 5", leadingAfterPrediction.Total)
	}

	// Authoritative truth for the same frame/player disagrees: +8, not +5.
	// The trailing state (delay 3, now at frame 1) has not reached
	// frame 2 yet, so it receives the command directly; the leading
	// state (already at frame 4, past frame 2) must roll back.
	if err := sched.Inject(cmdAt(2, 1, true, 8)); err != nil {
		t.Fatalf("Inject authoritative: %v", err)
	}

	leadingAfterRollback, _ := handles[0].Get(ids[0])
	if leadingAfterRollback.Total != 8 {
		t.Fatalf("leading counter after rollback = %d, want 8 (authoritative value)", leadingAfterRollback.Total)
	}
}

func TestRollbackIsSkippedWhenAuthoritativeMatchesPrediction(t *testing.T) {
	sched, handles, ids := newTestScheduler(t, []int64{0, 3})

	if err := sched.Inject(cmdAt(2, 1, false, 5)); err != nil {
		t.Fatalf("Inject tentative: %v", err)
	}
	for i := 0; i < 4; i++ {
		sched.Step()
	}

	if err := sched.Inject(cmdAt(2, 1, true, 5)); err != nil {
		t.Fatalf("Inject authoritative: %v", err)
	}

	got, _ := handles[0].Get(ids[0])
	if got.Total != 5 {
		t.Fatalf("leading counter = %d, want 5 unchanged (authoritative matched prediction, no rollback needed)", got.Total)
	}
}

func TestDuplicateInjectionIsIdempotent(t *testing.T) {
	sched, handles, ids := newTestScheduler(t, []int64{0, 3})

	c := cmdAt(2, 1, true, 5)
	if err := sched.Inject(c); err != nil {
		t.Fatalf("first Inject: %v", err)
	}
	if err := sched.Inject(c); err != nil {
		t.Fatalf("duplicate Inject: %v", err)
	}
	for i := 0; i < 4; i++ {
		sched.Step()
	}

	got, _ := handles[0].Get(ids[0])
	if got.Total != 5 {
		t.Fatalf("counter = %d, want 5 (duplicate delivery must not double-apply)", got.Total)
	}
}

func TestHashReportsAgreeAcrossIdenticalSchedulers(t *testing.T) {
	a, _, _ := newTestScheduler(t, []int64{0, 2})
	b, _, _ := newTestScheduler(t, []int64{0, 2})

	a.cfg.HashCadence = 4
	b.cfg.HashCadence = 4

	for _, sched := range []*Scheduler{a, b} {
		_ = sched.Inject(cmdAt(1, 1, true, 3))
		_ = sched.Inject(cmdAt(3, 2, true, 4))
	}
	for i := 0; i < 8; i++ {
		a.Step()
		b.Step()
	}

	reportA, ok := a.LastHash()
	if !ok {
		t.Fatalf("scheduler a never emitted a hash report")
	}
	ok, err := b.ReceivePeerHash(reportA)
	if err != nil {
		t.Fatalf("ReceivePeerHash returned desync for identical schedulers: %v", err)
	}
	if !ok {
		t.Fatalf("expected hash agreement between identical schedulers")
	}
}

func TestReceivePeerHashDetectsMismatch(t *testing.T) {
	a, _, _ := newTestScheduler(t, []int64{0, 2})
	b, _, _ := newTestScheduler(t, []int64{0, 2})
	a.cfg.HashCadence = 4
	b.cfg.HashCadence = 4

	_ = a.Inject(cmdAt(1, 1, true, 3))
	_ = b.Inject(cmdAt(1, 1, true, 99)) // diverge deliberately

	for i := 0; i < 8; i++ {
		a.Step()
		b.Step()
	}

	reportA, ok := a.LastHash()
	if !ok {
		t.Fatalf("scheduler a never emitted a hash report")
	}
	_, err := b.ReceivePeerHash(reportA)
	if err == nil {
		t.Fatalf("expected a Desync error for diverged schedulers")
	}
}

func TestReceivePeerHashInconclusiveBeforeReachingFrame(t *testing.T) {
	sched, _, _ := newTestScheduler(t, []int64{0, 2})
	sched.cfg.HashCadence = 100

	ok, err := sched.ReceivePeerHash(HashReport{Frame: 100, Hash: 42})
	if err != nil {
		t.Fatalf("unexpected error for an unreached frame: %v", err)
	}
	if ok {
		t.Fatalf("expected inconclusive (false, nil) for a frame we have no record of")
	}
}

func TestBootstrapAppliesDeepestSnapshotAndBufferedCommands(t *testing.T) {
	host, hHandles, hIDs := newTestScheduler(t, []int64{0, 2, 5})
	_ = host.Inject(cmdAt(1, 1, true, 3))
	_ = host.Inject(cmdAt(4, 1, true, 7))
	for i := 0; i < 6; i++ {
		host.Step()
	}

	payload := host.BuildGameState()

	joiner, jHandles, jIDs := newTestScheduler(t, []int64{0, 2, 5})
	joiner.SetWaitingForSync(true)
	if !joiner.WaitingForSync() {
		t.Fatalf("expected joiner to start WaitingForSync")
	}
	joiner.Bootstrap(payload)
	if joiner.WaitingForSync() {
		t.Fatalf("Bootstrap should clear WaitingForSync")
	}

	// Catch the joiner's leading state up to the host's and confirm it
	// converges to the same counter value once buffered commands land.
	for joiner.LeadingFrame() < host.LeadingFrame() {
		joiner.Step()
	}

	hostVal, _ := hHandles[0].Get(hIDs[0])
	joinerVal, _ := jHandles[0].Get(jIDs[0])
	if joinerVal.Total != hostVal.Total {
		t.Fatalf("joiner leading counter = %d, want %d (host's value after bootstrap)", joinerVal.Total, hostVal.Total)
	}
}

func TestSchedulerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	if len(m.Collectors()) != 3 {
		t.Fatalf("expected 3 collectors, got %d", len(m.Collectors()))
	}
}

func TestInspectReportsFrameDirtyQueueAndDeepestHash(t *testing.T) {
	sched, _, _ := newTestScheduler(t, []int64{0, 2})

	snap, err := sched.Inspect(0)
	if err != nil {
		t.Fatalf("Inspect(0): %v", err)
	}
	if snap.HasHash {
		t.Fatalf("leading state should never carry a hash report")
	}

	if err := sched.Inject(cmdAt(3, 1, true, 1)); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	snap, _ = sched.Inspect(1)
	if !snap.Dirty || snap.QueueDepth != 1 {
		t.Fatalf("deepest state snapshot = %+v, want Dirty=true QueueDepth=1", snap)
	}

	for i := 0; i < 300; i++ {
		sched.Step()
	}
	snap, _ = sched.Inspect(1)
	if !snap.HasHash {
		t.Fatalf("expected deepest state to have emitted a hash by frame %d", snap.Frame)
	}

	if _, err := sched.Inspect(-1); err == nil {
		t.Fatalf("expected error for out-of-range index")
	}
	if _, err := sched.Inspect(2); err == nil {
		t.Fatalf("expected error for out-of-range index")
	}
}
