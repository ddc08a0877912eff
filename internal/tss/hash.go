package tss

import (
	"sort"

	"github.com/fnuecke/Space-sub012/internal/ecs"
	"github.com/fnuecke/Space-sub012/internal/engineerr"
	"github.com/fnuecke/Space-sub012/internal/fnvhash"
	"github.com/fnuecke/Space-sub012/internal/obslog"
)

// maybeEmitHash hashes the deepest trailing state and records it once
// its frame crosses a hash-cadence boundary.
func (s *Scheduler) maybeEmitHash() {
	cadence := s.cfg.hashCadence()
	deepest := s.states[len(s.states)-1]
	if deepest.sim.Frame == 0 || deepest.sim.Frame%cadence != 0 {
		return
	}

	report := HashReport{
		Frame: deepest.sim.Frame,
		Hash:  hashSnapshot(deepest.sim.Frame, deepest.sim.World.Snapshot()),
	}

	s.recentHashes = append(s.recentHashes, report)
	if max := s.cfg.hashHistory(); len(s.recentHashes) > max {
		s.recentHashes = s.recentHashes[len(s.recentHashes)-max:]
	}
}

// LastHash returns the most recent hash report emitted, and whether
// one has been emitted yet.
func (s *Scheduler) LastHash() (HashReport, bool) {
	if len(s.recentHashes) == 0 {
		return HashReport{}, false
	}
	return s.recentHashes[len(s.recentHashes)-1], true
}

// ReceivePeerHash compares a peer's hash report against our own
// report for the same frame. ok is true only when both sides agree.
// If we have not reached that frame yet (or already evicted it from
// history), the comparison is inconclusive and both return values are
// false with a nil error — the caller should wait for a later report
// rather than treat silence as desync. A genuine mismatch returns a
// Desync-kind error.
func (s *Scheduler) ReceivePeerHash(peer HashReport) (ok bool, err error) {
	for _, ours := range s.recentHashes {
		if ours.Frame != peer.Frame {
			continue
		}
		if ours.Hash == peer.Hash {
			return true, nil
		}
		s.metrics.Desyncs.Inc()
		obslog.Warn(s.log, "tss.desync", peer.Frame, obslog.F("ours", ours.Hash), obslog.F("peer", peer.Hash))
		return false, engineerr.Newf(engineerr.Desync, "tss: hash mismatch at frame %d (ours=%d peer=%d)", peer.Frame, ours.Hash, peer.Hash)
	}
	return false, nil
}

// hashSnapshot folds a frame-stamped world snapshot into a single
// deterministic digest. Component kinds and entity UIDs are visited
// in sorted order so the result does not depend on map iteration
// order.
func hashSnapshot(frame int64, snap ecs.Snapshot) uint32 {
	h := fnvhash.New()
	h.MixI64(frame)

	kinds := make([]string, 0, len(snap.Components))
	for k := range snap.Components {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		h.Mix([]byte(kind))
		byEntity := snap.Components[kind]

		ids := make([]ecs.EntityID, 0, len(byEntity))
		for id := range byEntity {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, id := range ids {
			h.MixI64(int64(id))
			h.Mix(byEntity[id])
		}
	}

	return h.Sum()
}
