package kv

import (
	"strings"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/efls-io/efls-go/pkg/efserr"
	"github.com/efls-io/efls-go/pkg/log"
)

// ZooKeeper is the RemoteKV backend for addresses of the form
// "zfs://host:port[,host:port...]/path/to/node".
//
// Grounded on remote_kv_zookeeper.cc: 30 connection/IO retries at a 10
// second interval, world-readable/writable ACLs, and upsert-by-touch
// semantics (try Set, and on NoNode fall back to creating the node and its
// parent path).
type ZooKeeper struct{}

const (
	zkPriority     = 10
	zkPrefix       = "zfs://"
	zkMaxRetries   = 30
	zkRetryBackoff = 10 * time.Second
	zkSessionTO    = 10 * time.Second
)

func init() {
	Register(zkPriority, ZooKeeper{})
}

func (ZooKeeper) Accept(address string) bool {
	return strings.HasPrefix(address, zkPrefix)
}

// splitZkAddr splits "zfs://host:port,host2:port2/a/b/c" into the server
// list and the znode path "/a/b/c".
func splitZkAddr(address string) (servers []string, path string, err error) {
	trimmed := strings.TrimPrefix(address, zkPrefix)
	idx := strings.Index(trimmed, "/")
	if idx < 0 {
		return nil, "", efserr.InvalidArgumentf("zk address %q has no path component", address)
	}
	hostPart := trimmed[:idx]
	path = trimmed[idx:]
	if hostPart == "" || path == "" {
		return nil, "", efserr.InvalidArgumentf("zk address %q is malformed", address)
	}
	return strings.Split(hostPart, ","), path, nil
}

func connectToZk(servers []string) (*zk.Conn, error) {
	var lastErr error
	for attempt := 0; attempt < zkMaxRetries; attempt++ {
		conn, _, err := zk.Connect(servers, zkSessionTO)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.Logger.Warn().Err(err).Int("attempt", attempt).Msg("zookeeper connect failed, retrying")
		time.Sleep(zkRetryBackoff)
	}
	return nil, efserr.Unavailablef("connect to zookeeper %v: %v", servers, lastErr)
}

func createParentPath(conn *zk.Conn, path string) error {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	cur := ""
	for i := 0; i < len(parts)-1; i++ {
		cur += "/" + parts[i]
		exists, _, err := conn.Exists(cur)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
				return err
			}
		}
	}
	return nil
}

// touch upserts data at path: when the node already exists it is Set in
// place; otherwise its parent path is created and then the node itself.
// A Create that loses a race to another writer falls back to Set. No node
// is ever deleted.
func touch(conn *zk.Conn, path, value string) error {
	exists, stat, err := conn.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		_, err := conn.Set(path, []byte(value), stat.Version)
		return err
	}
	if err := createParentPath(conn, path); err != nil {
		return err
	}
	_, err = conn.Create(path, []byte(value), 0, zk.WorldACL(zk.PermAll))
	if err == zk.ErrNodeExists {
		// lost a race with another writer; retry as a plain set
		_, st, e := conn.Exists(path)
		if e != nil {
			return e
		}
		_, err = conn.Set(path, []byte(value), st.Version)
	}
	return err
}

func (ZooKeeper) Get(address string) (string, error) {
	servers, path, err := splitZkAddr(address)
	if err != nil {
		return "", err
	}
	conn, err := connectToZk(servers)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	var lastErr error
	for attempt := 0; attempt < zkMaxRetries; attempt++ {
		data, _, err := conn.Get(path)
		if err == nil {
			return string(data), nil
		}
		if err == zk.ErrNoNode {
			return "", efserr.NotFoundf("zk node %s not found", path)
		}
		lastErr = err
		time.Sleep(zkRetryBackoff)
	}
	return "", efserr.Unavailablef("get zk node %s: %v", path, lastErr)
}

func (ZooKeeper) Put(address, value string) error {
	servers, path, err := splitZkAddr(address)
	if err != nil {
		return err
	}
	conn, err := connectToZk(servers)
	if err != nil {
		return err
	}
	defer conn.Close()

	var lastErr error
	for attempt := 0; attempt < zkMaxRetries; attempt++ {
		if err := touch(conn, path, value); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(zkRetryBackoff)
	}
	return efserr.Unavailablef("put zk node %s: %v", path, lastErr)
}
