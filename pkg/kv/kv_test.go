package kv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efls-io/efls-go/pkg/efserr"
)

func TestMemBackendRoundTrip(t *testing.T) {
	require.NoError(t, Default().Put("mem://worker/0", "10.0.0.1:9000"))
	v, err := Default().Get("mem://worker/0")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:9000", v)
}

func TestLocalFSRoundTrip(t *testing.T) {
	path := t.TempDir() + "/addr"
	require.NoError(t, Default().Put(path, "127.0.0.1:1234"))
	v, err := Default().Get(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:1234", v)
}

func TestGetUnknownAddressIsNotFound(t *testing.T) {
	_, err := Default().Get("mem://does-not-exist")
	require.True(t, efserr.Is(err, efserr.NotFound))
}

func TestNoBackendAcceptsIsInvalidArgument(t *testing.T) {
	_, err := Default().Get("ftp://nowhere")
	require.True(t, efserr.Is(err, efserr.InvalidArgument))
}

func TestManagerPrioritizesHigherPriorityBackend(t *testing.T) {
	m := &Manager{}
	low := &recordingKV{prefix: "x://", value: "low"}
	high := &recordingKV{prefix: "x://", value: "high"}
	m.Register(0, low)
	m.Register(10, high)

	v, err := m.Get("x://anything")
	require.NoError(t, err)
	require.Equal(t, "high", v)
}

type recordingKV struct {
	prefix string
	value  string
}

func (r *recordingKV) Accept(address string) bool { return len(address) >= len(r.prefix) && address[:len(r.prefix)] == r.prefix }
func (r *recordingKV) Get(string) (string, error)  { return r.value, nil }
func (r *recordingKV) Put(string, string) error    { return nil }
