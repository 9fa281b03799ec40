// Package kv implements the pluggable RemoteKV abstraction used for cluster
// rendezvous: workers publish their own address and discover peers through
// a small key/value store whose backend is chosen by address prefix.
//
// Grounded on _examples/original_source/efls-train/cc/service_discovery/
// remote_kv.h and remote_kv.cc: a priority-ordered list of backends, each
// of which Accept()s addresses it knows how to serve, with Get/Put
// delegating to the first one that accepts.
package kv

import (
	"sync"

	"github.com/efls-io/efls-go/pkg/efserr"
)

// RemoteKV is implemented by each storage backend.
type RemoteKV interface {
	// Accept reports whether this backend can serve the given address,
	// typically by checking a scheme prefix such as "zfs://" or "/".
	Accept(address string) bool
	Get(address string) (string, error)
	Put(address, value string) error
}

type registration struct {
	priority int
	backend  RemoteKV
}

// Manager holds the priority-ordered list of registered backends and
// dispatches Get/Put to the first one that accepts a given address.
// There is exactly one package-level Manager, mirroring the C++
// RemoteKVManager singleton.
type Manager struct {
	mu    sync.RWMutex
	regs  []registration
}

var defaultManager = &Manager{}

// Default returns the process-wide RemoteKV manager.
func Default() *Manager {
	return defaultManager
}

// Register adds a backend at the given priority. Higher priority values
// are tried first; backends of equal priority are tried in registration
// order. Backend packages call this from an init() function.
func (m *Manager) Register(priority int, backend RemoteKV) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs = append(m.regs, registration{priority: priority, backend: backend})
	// stable sort by descending priority
	for i := len(m.regs) - 1; i > 0; i-- {
		if m.regs[i].priority > m.regs[i-1].priority {
			m.regs[i], m.regs[i-1] = m.regs[i-1], m.regs[i]
		} else {
			break
		}
	}
}

func (m *Manager) selectBackend(address string) RemoteKV {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.regs {
		if r.backend.Accept(address) {
			return r.backend
		}
	}
	return nil
}

// Get resolves address to a value using the first backend that accepts it.
func (m *Manager) Get(address string) (string, error) {
	b := m.selectBackend(address)
	if b == nil {
		return "", efserr.InvalidArgumentf("no RemoteKV backend accepts address %q", address)
	}
	return b.Get(address)
}

// Put writes value to address using the first backend that accepts it.
func (m *Manager) Put(address, value string) error {
	b := m.selectBackend(address)
	if b == nil {
		return efserr.InvalidArgumentf("no RemoteKV backend accepts address %q", address)
	}
	return b.Put(address, value)
}

// Register is a convenience wrapper around Default().Register, used by
// backend packages' init() functions.
func Register(priority int, backend RemoteKV) {
	defaultManager.Register(priority, backend)
}
