// Package boltstore is the persisted stage.RowStore adapter, so a
// restarted worker recovers its stage table instead of starting over.
// One bucket holds one JSON-encoded row per stage index, keyed by a
// big-endian index so Bolt's natural key ordering matches row order.
package boltstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/efls-io/efls-go/pkg/stage"
)

var bucketStageRows = []byte("stage_rows")

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open stage store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketStageRows)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func idxKey(idx int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(idx))
	return buf
}

func (s *Store) Len() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketStageRows).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *Store) Get(idx int) (*stage.Row, bool, error) {
	var row stage.Row
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketStageRows).Get(idxKey(idx))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &row)
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &row, true, nil
}

func (s *Store) Append(row *stage.Row) error {
	n, err := s.Len()
	if err != nil {
		return err
	}
	return s.Put(n, row)
}

func (s *Store) Put(idx int, row *stage.Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStageRows).Put(idxKey(idx), data)
	})
}
