package transport

import "sync"

// loopbackRegistry is a process-wide port -> *Endpoint table used by
// loopback transports (Config.Mode == ModeLoopback) so tests can
// exercise the full framing/reliability/ack pipeline without opening
// real sockets.
//
// Generalizes an address-keyed clients map from net.UDPAddr keys to
// an in-process port registry.
var loopbackRegistry = struct {
	mu        sync.RWMutex
	endpoints map[int]*Endpoint
}{endpoints: make(map[int]*Endpoint)}

func registerLoopback(port int, e *Endpoint) {
	loopbackRegistry.mu.Lock()
	defer loopbackRegistry.mu.Unlock()
	loopbackRegistry.endpoints[port] = e
}

func unregisterLoopback(port int) {
	loopbackRegistry.mu.Lock()
	defer loopbackRegistry.mu.Unlock()
	delete(loopbackRegistry.endpoints, port)
}

func lookupLoopback(port int) (*Endpoint, bool) {
	loopbackRegistry.mu.RLock()
	defer loopbackRegistry.mu.RUnlock()
	e, ok := loopbackRegistry.endpoints[port]
	return e, ok
}
