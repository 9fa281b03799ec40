package kv

import (
	"os"
	"strings"

	"github.com/efls-io/efls-go/pkg/efserr"
)

// LocalFS is the RemoteKV backend that stores a single value per file,
// addressed by an absolute path. Grounded on remote_kv_localfs.cc.
type LocalFS struct{}

const localFSPriority = 0

func init() {
	Register(localFSPriority, LocalFS{})
}

func (LocalFS) Accept(address string) bool {
	return strings.HasPrefix(address, "/")
}

func (LocalFS) Get(address string) (string, error) {
	data, err := os.ReadFile(address)
	if err != nil {
		return "", efserr.NotFoundf("read %s: %v", address, err)
	}
	return string(data), nil
}

func (LocalFS) Put(address, value string) error {
	if err := os.WriteFile(address, []byte(value), 0o644); err != nil {
		return efserr.Internalf("write %s: %v", address, err)
	}
	return nil
}
