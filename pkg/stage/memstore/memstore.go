// Package memstore is the in-process stage.RowStore adapter: a plain
// slice guarded by a mutex, matching the original's variables living as
// process-local resource tensors.
package memstore

import (
	"sync"

	"github.com/efls-io/efls-go/pkg/stage"
)

type Store struct {
	mu   sync.Mutex
	rows []*stage.Row
}

func New() *Store {
	return &Store{}
}

func (s *Store) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows), nil
}

func (s *Store) Get(idx int) (*stage.Row, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.rows) {
		return nil, false, nil
	}
	return s.rows[idx], true, nil
}

func (s *Store) Append(row *stage.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return nil
}

func (s *Store) Put(idx int, row *stage.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.rows) {
		return nil
	}
	s.rows[idx] = row
	return nil
}
