package kv

import (
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/efls-io/efls-go/pkg/efserr"
)

// BoltCache is the RemoteKV backend for addresses of the form
// "cache://key": a local bbolt-backed key/value snapshot. It holds only
// what is written to it through Put or Mirror; the Manager never copies
// other backends' values into it and never reads from it on its own when
// another backend fails — a snapshot is read back only through an
// explicit Get or Fallback call.
//
// One bucket, JSON-free since RemoteKV values are already strings, keyed
// directly by the address's local part.
type BoltCache struct {
	db *bolt.DB
}

const (
	boltCachePriority = 0
	boltCachePrefix   = "cache://"
)

var bucketKVCache = []byte("kv_snapshot_cache")

// OpenBoltCache opens (creating if needed) a bbolt file at path and
// registers it as a RemoteKV backend for "cache://" addresses.
func OpenBoltCache(path string) (*BoltCache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, efserr.Internalf("open kv snapshot cache %s: %v", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketKVCache)
		return err
	})
	if err != nil {
		db.Close()
		return nil, efserr.Internalf("init kv snapshot cache %s: %v", path, err)
	}

	c := &BoltCache{db: db}
	Register(boltCachePriority, c)
	return c, nil
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}

func (c *BoltCache) Accept(address string) bool {
	return strings.HasPrefix(address, boltCachePrefix)
}

func (c *BoltCache) Get(address string) (string, error) {
	key := strings.TrimPrefix(address, boltCachePrefix)
	var value []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketKVCache).Get([]byte(key))
		if data == nil {
			return efserr.NotFoundf("no cached value for %s", address)
		}
		value = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (c *BoltCache) Put(address, value string) error {
	key := strings.TrimPrefix(address, boltCachePrefix)
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKVCache).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return efserr.Internalf("write kv snapshot cache %s: %v", address, err)
	}
	return nil
}

// Mirror copies value into the cache under address's key without going
// through Accept/prefix routing, so callers can snapshot a value they
// fetched from a different backend (e.g. ZooKeeper) for later fallback.
func (c *BoltCache) Mirror(address, value string) error {
	return c.Put(boltCachePrefix+address, value)
}

// Fallback reads a previously mirrored value for address, bypassing
// prefix routing the same way Mirror writes it.
func (c *BoltCache) Fallback(address string) (string, error) {
	return c.Get(boltCachePrefix + address)
}
