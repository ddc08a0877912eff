package transport

import (
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/fnuecke/Space-sub012/internal/sampler"
)

// Priority governs how aggressively an unacknowledged message is
// retransmitted: higher-priority traffic (player input, session
// control) is polled far more often than low-priority traffic (a
// chat-adjacent broadcast) under the same network conditions.
// PriorityNone is the odd one out: it never enters the awaiting-ack
// table at all, so pollInterval is never consulted for it.
type Priority int

const (
	PriorityNone Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// pollInterval is the base retransmission interval for priority
// before exponential backoff is applied.
func (p Priority) pollInterval() time.Duration {
	switch p {
	case PriorityCritical:
		return 50 * time.Millisecond
	case PriorityHigh:
		return 100 * time.Millisecond
	case PriorityNormal:
		return 500 * time.Millisecond
	default:
		return 5000 * time.Millisecond
	}
}

// maxBackoffMultiplier caps exponential backoff at 2^5 times the base
// poll interval so a struggling link never goes fully silent between
// retries.
const maxBackoffMultiplier = 5

// defaultTotalTimeout is how long a pending message may go
// unacknowledged before the connection to its remote is abandoned,
// when an Endpoint isn't configured with a more specific value.
const defaultTotalTimeout = 10 * time.Second

// handledHistory bounds how many recently-handled sequence numbers a
// Remote remembers for duplicate suppression.
const handledHistory = 256

// pendingMessage is an unacknowledged outbound datagram awaiting
// retransmission.
type pendingMessage struct {
	sequence  uint32
	body      []byte
	priority  Priority
	attempts  int
	nextSend  time.Time
	firstSent time.Time
}

func (p *pendingMessage) backoff() time.Duration {
	mult := p.attempts
	if mult > maxBackoffMultiplier {
		mult = maxBackoffMultiplier
	}
	return p.priority.pollInterval() << mult
}

// Remote is the per-peer state one Endpoint keeps for every address it
// has exchanged datagrams with: identity, outstanding reliable
// messages awaiting acknowledgement, and an RTT sample window.
//
// Adapted from a per-peer map[uint32]*ReliableMessage plus last-ping
// bookkeeping design to carry an rs/xid identity rather than a raw
// client counter, and an internal/sampler-backed ping window rather
// than a single last-sample float.
type Remote struct {
	ID   xid.ID
	Addr string

	mu           sync.Mutex
	nextSeq      uint32
	pending      map[uint32]*pendingMessage
	handled      map[uint32]struct{}
	handledOrder []uint32
	rtt          *sampler.Sampler
	lastSeen     time.Time
}

func newRemote(addr string) *Remote {
	return &Remote{
		ID:       xid.New(),
		Addr:     addr,
		pending:  make(map[uint32]*pendingMessage),
		handled:  make(map[uint32]struct{}),
		rtt:      sampler.New(32),
		lastSeen: time.Now(),
	}
}

func (r *Remote) touch() {
	r.mu.Lock()
	r.lastSeen = time.Now()
	r.mu.Unlock()
}

// LastSeen returns the last time a datagram was received from this remote.
func (r *Remote) LastSeen() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeen
}

// RecordPing folds an observed round-trip time into the sample window.
func (r *Remote) RecordPing(rtt time.Duration) {
	r.mu.Lock()
	r.rtt.Add(float64(rtt.Microseconds()))
	r.mu.Unlock()
}

// MeanPing returns the mean observed round-trip time over the current
// sample window.
func (r *Remote) MeanPing() time.Duration {
	r.mu.Lock()
	mean := r.rtt.Mean()
	r.mu.Unlock()
	return time.Duration(mean) * time.Microsecond
}

func (r *Remote) nextSequence() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq := r.nextSeq
	r.nextSeq++
	return seq
}

func (r *Remote) track(seq uint32, body []byte, priority Priority) {
	now := time.Now()
	r.mu.Lock()
	r.pending[seq] = &pendingMessage{
		sequence:  seq,
		body:      body,
		priority:  priority,
		nextSend:  now.Add(priority.pollInterval()),
		firstSent: now,
	}
	r.mu.Unlock()
}

func (r *Remote) acknowledge(seq uint32) {
	r.mu.Lock()
	delete(r.pending, seq)
	r.mu.Unlock()
}

// checkDuplicate reports whether seq was already delivered to the
// upstream handler from this remote, and records it as handled if not.
// A lost ack causes the peer to retransmit an already-delivered
// message; this lets the receive path ack it again without handing
// the payload to the application a second time.
func (r *Remote) checkDuplicate(seq uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handled[seq]; ok {
		return true
	}
	r.handled[seq] = struct{}{}
	r.handledOrder = append(r.handledOrder, seq)
	if len(r.handledOrder) > handledHistory {
		oldest := r.handledOrder[0]
		r.handledOrder = r.handledOrder[1:]
		delete(r.handled, oldest)
	}
	return false
}

// dueRetransmits returns, and advances, every pending message whose
// backoff window has elapsed. A message whose age exceeds
// totalTimeout abandons not just itself but the whole connection to
// this remote: timedOut collects every sequence dropped that way and
// abandoned reports whether that happened, so the caller can purge
// the remote entirely rather than leave it half-torn-down.
func (r *Remote) dueRetransmits(now time.Time, totalTimeout time.Duration) (retransmit []*pendingMessage, timedOut []uint32, abandoned bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for seq, p := range r.pending {
		if now.Sub(p.firstSent) > totalTimeout {
			timedOut = append(timedOut, seq)
			abandoned = true
			continue
		}
		if now.Before(p.nextSend) {
			continue
		}
		p.attempts++
		p.nextSend = now.Add(p.backoff())
		retransmit = append(retransmit, p)
	}
	if abandoned {
		r.pending = make(map[uint32]*pendingMessage)
	}
	return retransmit, timedOut, abandoned
}
