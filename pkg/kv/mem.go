package kv

import (
	"strings"
	"sync"

	"github.com/efls-io/efls-go/pkg/efserr"
)

// Mem is an in-process RemoteKV backend for tests and single-process
// demos, addressed by "mem://<key>". It has no analogue in the original
// source; the shape (Accept/Get/Put) matches the other backends.
type Mem struct {
	mu   sync.RWMutex
	data map[string]string
}

const memPriority = 0
const memPrefix = "mem://"

var defaultMem = &Mem{data: make(map[string]string)}

func init() {
	Register(memPriority, defaultMem)
}

func (m *Mem) Accept(address string) bool {
	return strings.HasPrefix(address, memPrefix)
}

func (m *Mem) Get(address string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[address]
	if !ok {
		return "", efserr.NotFoundf("no value at %q", address)
	}
	return v, nil
}

func (m *Mem) Put(address, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[address] = value
	return nil
}
