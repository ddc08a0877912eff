package transport

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fnuecke/Space-sub012/internal/engineerr"
	"github.com/fnuecke/Space-sub012/internal/obslog"
)

// Mode selects whether an Endpoint moves datagrams over a real UDP
// socket or through the in-process loopback registry.
type Mode int

const (
	ModeUDP Mode = iota
	ModeLoopback
)

// LoopbackAddr formats the address key that refers to the loopback
// Endpoint registered under port.
func LoopbackAddr(port int) string {
	return fmt.Sprintf("loopback:%d", port)
}

// retransmitTick is how often the retransmit/timeout sweep runs.
const retransmitTick = 10 * time.Millisecond

// Handler receives a decoded, deduplicated application payload from a
// Remote.
type Handler func(remote *Remote, payload []byte)

// TimeoutHandler is invoked when a reliable message's age exceeds the
// endpoint's total timeout without being acknowledged; the remote it
// belonged to has already been purged by the time this runs.
type TimeoutHandler func(remote *Remote, sequence uint32)

// Config configures a new Endpoint.
type Config struct {
	Mode Mode
	// Port is the bind port for ModeUDP, or the loopback registry key
	// for ModeLoopback.
	Port    int
	Logger  zerolog.Logger
	Metrics *Metrics

	// TotalTimeout bounds how long a reliable message may go
	// unacknowledged before its remote is dropped. Zero uses
	// defaultTotalTimeout.
	TotalTimeout time.Duration
	// PingInterval is how often Run pings every known remote to keep
	// RTT samples and LastSeen current. Zero disables the ping loop.
	PingInterval time.Duration
}

func (c Config) totalTimeout() time.Duration {
	if c.TotalTimeout <= 0 {
		return defaultTotalTimeout
	}
	return c.TotalTimeout
}

// Endpoint is one side of a reliable-over-UDP conversation with
// arbitrarily many remotes, each tracked independently.
//
// Follows a networkLoop/gameLoop split (a read loop plus a
// ticker-driven maintenance pass over per-client reliable message
// state), generalized to also run over the in-process loopback
// registry so internal/session and internal/tss can be exercised in
// tests without opening real sockets.
type Endpoint struct {
	cfg  Config
	box  *cipherBox
	conn *net.UDPConn

	mu         sync.RWMutex
	remotes    map[string]*Remote
	udpTargets map[string]*net.UDPAddr

	onData    Handler
	onTimeout TimeoutHandler

	loopInbox chan loopbackDatagram
	quit      chan struct{}
	done      chan struct{}
}

type loopbackDatagram struct {
	from string
	data []byte
}

// Listen opens cfg.Mode's transport (a real UDP socket, or a slot in
// the loopback registry) and returns an Endpoint ready to Run.
func Listen(cfg Config, onData Handler, onTimeout TimeoutHandler) (*Endpoint, error) {
	e := &Endpoint{
		cfg:        cfg,
		box:        newCipherBox(),
		remotes:    make(map[string]*Remote),
		udpTargets: make(map[string]*net.UDPAddr),
		onData:     onData,
		onTimeout:  onTimeout,
		loopInbox:  make(chan loopbackDatagram, 256),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	switch cfg.Mode {
	case ModeLoopback:
		registerLoopback(cfg.Port, e)
	case ModeUDP:
		addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", cfg.Port))
		if err != nil {
			return nil, engineerr.Wrap(engineerr.Decode, "transport: resolving bind address", err)
		}
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			return nil, engineerr.Wrap(engineerr.Decode, "transport: binding UDP socket", err)
		}
		e.conn = conn
	}

	return e, nil
}

// Dial registers addrKey as a known remote, resolving its physical
// address eagerly for ModeUDP so Send fails fast on a bad hostport.
func (e *Endpoint) Dial(addrKey string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.remotes[addrKey]; ok {
		return nil
	}
	e.remotes[addrKey] = newRemote(addrKey)

	if e.cfg.Mode == ModeUDP {
		udpAddr, err := net.ResolveUDPAddr("udp", addrKey)
		if err != nil {
			delete(e.remotes, addrKey)
			return engineerr.Wrap(engineerr.Decode, "transport: resolving remote address", err)
		}
		e.udpTargets[addrKey] = udpAddr
	}
	return nil
}

// remote returns addrKey's Remote, registering it via Dial if unseen.
func (e *Endpoint) remote(addrKey string) (*Remote, error) {
	e.mu.RLock()
	r, ok := e.remotes[addrKey]
	e.mu.RUnlock()
	if ok {
		return r, nil
	}
	if err := e.Dial(addrKey); err != nil {
		return nil, err
	}
	e.mu.RLock()
	r = e.remotes[addrKey]
	e.mu.RUnlock()
	return r, nil
}

// SendReliable delivers payload to addrKey. With priority PriorityNone
// it is sent once as KindUnacked and never tracked for retransmit —
// fire-and-forget. Any other priority wraps it as KindData, retrying
// with priority-scaled exponential backoff until acknowledged or the
// endpoint's total timeout is reached.
func (e *Endpoint) SendReliable(addrKey string, payload []byte, priority Priority) error {
	r, err := e.remote(addrKey)
	if err != nil {
		return err
	}

	if priority == PriorityNone {
		body := Message{Kind: KindUnacked, Payload: payload}.Encode()
		return e.transmit(addrKey, body)
	}

	seq := r.nextSequence()
	body := Message{Kind: KindData, Sequence: seq, Payload: payload}.Encode()
	r.track(seq, body, priority)

	return e.transmit(addrKey, body)
}

// Ping sends an unreliable latency probe to addrKey; the reply is
// folded into the remote's RTT window when the Pong arrives.
func (e *Endpoint) Ping(addrKey string) error {
	body := Message{Kind: KindPing, Nonce: time.Now().UnixNano()}.Encode()
	return e.transmit(addrKey, body)
}

func (e *Endpoint) transmit(addrKey string, body []byte) error {
	frame, err := encodeFrame(e.box, body)
	if err != nil {
		return err
	}

	if e.cfg.Metrics != nil {
		e.cfg.Metrics.BytesSent.Add(float64(len(frame)))
	}

	switch e.cfg.Mode {
	case ModeLoopback:
		port, err := parseLoopbackPort(addrKey)
		if err != nil {
			return err
		}
		target, ok := lookupLoopback(port)
		if !ok {
			return engineerr.Newf(engineerr.SessionDisconnected, "transport: no loopback endpoint on port %d", port)
		}
		self := LoopbackAddr(e.cfg.Port)
		select {
		case target.loopInbox <- loopbackDatagram{from: self, data: frame}:
		default:
			return engineerr.New(engineerr.ProtocolTimeout, "transport: loopback inbox full")
		}
		return nil

	case ModeUDP:
		e.mu.RLock()
		udpAddr := e.udpTargets[addrKey]
		e.mu.RUnlock()
		if udpAddr == nil {
			return engineerr.Newf(engineerr.SessionDisconnected, "transport: %s not dialed", addrKey)
		}
		_, err := e.conn.WriteToUDP(frame, udpAddr)
		if err != nil {
			return engineerr.Wrap(engineerr.Decode, "transport: writing UDP datagram", err)
		}
		return nil
	}
	return nil
}

func parseLoopbackPort(addrKey string) (int, error) {
	const prefix = "loopback:"
	if !strings.HasPrefix(addrKey, prefix) {
		return 0, engineerr.Newf(engineerr.Decode, "transport: %q is not a loopback address", addrKey)
	}
	port, err := strconv.Atoi(strings.TrimPrefix(addrKey, prefix))
	if err != nil {
		return 0, engineerr.Wrap(engineerr.Decode, "transport: parsing loopback port", err)
	}
	return port, nil
}

// Run drives the receive loop, the retransmit sweep, and (if
// cfg.PingInterval is set) a periodic ping of every known remote,
// until Stop is called. Call Run on its own goroutine.
func (e *Endpoint) Run() {
	defer close(e.done)

	ticker := time.NewTicker(retransmitTick)
	defer ticker.Stop()

	var pingChan <-chan time.Time
	if e.cfg.PingInterval > 0 {
		pingTicker := time.NewTicker(e.cfg.PingInterval)
		defer pingTicker.Stop()
		pingChan = pingTicker.C
	}

	var udpDone chan struct{}
	if e.cfg.Mode == ModeUDP {
		udpDone = make(chan struct{})
		go e.udpReadLoop(udpDone)
	}

	for {
		select {
		case <-e.quit:
			if udpDone != nil {
				<-udpDone
			}
			return
		case dg := <-e.loopInbox:
			e.handleDatagram(dg.from, dg.data)
		case now := <-ticker.C:
			e.sweepRetransmits(now)
		case <-pingChan:
			e.pingAllRemotes()
		}
	}
}

// pingAllRemotes probes every known remote, refreshing RTT samples and
// LastSeen so a silent connection is distinguishable from an active
// but quiet one.
func (e *Endpoint) pingAllRemotes() {
	e.mu.RLock()
	keys := make([]string, 0, len(e.remotes))
	for k := range e.remotes {
		keys = append(keys, k)
	}
	e.mu.RUnlock()

	for _, addrKey := range keys {
		_ = e.Ping(addrKey)
	}
}

func (e *Endpoint) udpReadLoop(done chan struct{}) {
	defer close(done)
	buf := make([]byte, 65535)
	for {
		e.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, addr, err := e.conn.ReadFromUDP(buf)
		select {
		case <-e.quit:
			return
		default:
		}
		if err != nil {
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		e.handleDatagram(addr.String(), data)
	}
}

func (e *Endpoint) handleDatagram(from string, frame []byte) {
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.BytesRecv.Add(float64(len(frame)))
	}

	body, err := decodeFrame(e.box, frame)
	if err != nil {
		if e.cfg.Metrics != nil {
			e.cfg.Metrics.DecodeErrors.Inc()
		}
		obslog.Warn(e.cfg.Logger, "transport.drop_frame", obslog.NoFrame, obslog.F("from", from), obslog.F("err", err))
		return
	}
	msg, err := DecodeMessage(body)
	if err != nil {
		if e.cfg.Metrics != nil {
			e.cfg.Metrics.DecodeErrors.Inc()
		}
		obslog.Warn(e.cfg.Logger, "transport.drop_message", obslog.NoFrame, obslog.F("from", from), obslog.F("err", err))
		return
	}

	r, err := e.remote(from)
	if err != nil {
		return
	}
	r.touch()

	switch msg.Kind {
	case KindData:
		if !r.checkDuplicate(msg.Sequence) && e.onData != nil {
			e.onData(r, msg.Payload)
		}
		_ = e.transmit(from, Message{Kind: KindAck, Sequence: msg.Sequence}.Encode())
	case KindUnacked:
		if e.onData != nil {
			e.onData(r, msg.Payload)
		}
	case KindAck:
		r.acknowledge(msg.Sequence)
	case KindPing:
		_ = e.transmit(from, Message{Kind: KindPong, Nonce: msg.Nonce}.Encode())
	case KindPong:
		rtt := time.Duration(time.Now().UnixNano() - msg.Nonce)
		r.RecordPing(rtt)
	}
}

func (e *Endpoint) sweepRetransmits(now time.Time) {
	e.mu.RLock()
	remotes := make([]*Remote, 0, len(e.remotes))
	keys := make([]string, 0, len(e.remotes))
	for k, r := range e.remotes {
		remotes = append(remotes, r)
		keys = append(keys, k)
	}
	e.mu.RUnlock()

	totalTimeout := e.cfg.totalTimeout()
	for i, r := range remotes {
		retransmit, timedOut, abandoned := r.dueRetransmits(now, totalTimeout)
		for _, p := range retransmit {
			if e.cfg.Metrics != nil {
				e.cfg.Metrics.Retransmits.Inc()
			}
			_ = e.transmit(keys[i], p.body)
		}
		if abandoned {
			e.dropRemote(keys[i])
		}
		for _, seq := range timedOut {
			if e.cfg.Metrics != nil {
				e.cfg.Metrics.Timeouts.Inc()
			}
			obslog.Warn(e.cfg.Logger, "transport.remote_timeout", obslog.NoFrame, obslog.F("addr", keys[i]), obslog.F("sequence", seq))
			if e.onTimeout != nil {
				e.onTimeout(r, seq)
			}
		}
	}
}

// dropRemote tears down all state this endpoint keeps for addrKey
// after its connection has been abandoned as timed out.
func (e *Endpoint) dropRemote(addrKey string) {
	e.mu.Lock()
	delete(e.remotes, addrKey)
	delete(e.udpTargets, addrKey)
	e.mu.Unlock()
}

// Stop halts Run and releases the underlying socket or loopback slot.
func (e *Endpoint) Stop() {
	close(e.quit)
	<-e.done
	if e.cfg.Mode == ModeLoopback {
		unregisterLoopback(e.cfg.Port)
	}
	if e.conn != nil {
		e.conn.Close()
	}
}

// Remotes returns every remote this endpoint currently knows about.
func (e *Endpoint) Remotes() []*Remote {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Remote, 0, len(e.remotes))
	for _, r := range e.remotes {
		out = append(out, r)
	}
	return out
}
