package receiver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type socketKey struct {
	protocol string
	port     int
}

// Manager is the Receiver Manager (C3): a registry of Sockets keyed by
// (protocol, port), shared among every Event Listener bound to that port.
// Grounded on poller/pool.go's double-checked-locking getOrCreatePool.
type Manager struct {
	mu      sync.RWMutex
	sockets map[socketKey]*Socket
	refs    map[socketKey]map[string]bool // socketKey -> set of listener ids holding a reference
	logger  *slog.Logger
}

// New constructs an empty Manager.
func New(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Manager{
		sockets: map[socketKey]*Socket{},
		refs:    map[socketKey]map[string]bool{},
		logger:  logger,
	}
}

// Acquire returns the running Socket for (protocol, port), starting it if
// necessary, and records listenerID as a holder. Reusing a port whose
// socket is already up causes no socket churn (§4.2 contract, §9 Open
// Question c).
func (m *Manager) Acquire(ctx context.Context, protocol string, port int, listenerID string) (*Socket, error) {
	key := socketKey{protocol, port}

	m.mu.Lock()
	sock, exists := m.sockets[key]
	if !exists {
		sock = NewSocket(protocol, port, m.logger)
		m.sockets[key] = sock
		m.refs[key] = map[string]bool{}
	}
	m.refs[key][listenerID] = true
	m.mu.Unlock()

	if sock.State() == StateRunning {
		return sock, nil
	}
	if err := sock.Start(ctx); err != nil {
		return nil, fmt.Errorf("receiver manager: acquire %s:%d: %w", protocol, port, err)
	}
	return sock, nil
}

// Lookup returns the running Socket for (protocol, port), if any, without
// acquiring a reference. Used by callers that need to unsubscribe from a
// socket they previously acquired, ahead of releasing their hold on it.
func (m *Manager) Lookup(protocol string, port int) (*Socket, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sock, ok := m.sockets[socketKey{protocol, port}]
	return sock, ok
}

// Release drops listenerID's hold on (protocol, port). When the last
// holder releases, the socket is stopped and removed from the registry.
func (m *Manager) Release(protocol string, port int, listenerID string) {
	key := socketKey{protocol, port}

	m.mu.Lock()
	holders, ok := m.refs[key]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(holders, listenerID)
	empty := len(holders) == 0
	var sock *Socket
	if empty {
		sock = m.sockets[key]
		delete(m.sockets, key)
		delete(m.refs, key)
	}
	m.mu.Unlock()

	if sock != nil {
		sock.Stop()
	}
}

// Sockets returns a snapshot of all active (protocol,port) keys, for
// diagnostics/tests.
func (m *Manager) Sockets() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sockets))
	for k := range m.sockets {
		out = append(out, fmt.Sprintf("%s:%d", k.protocol, k.port))
	}
	return out
}
