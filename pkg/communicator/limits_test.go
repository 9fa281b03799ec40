package communicator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvMessageSizeDefaultsWhenUnset(t *testing.T) {
	t.Setenv(EnvServerMaxSendMessageSize, "")
	require.Equal(t, defaultMaxMessageSize, envMessageSize(EnvServerMaxSendMessageSize))
}

func TestEnvMessageSizeParsesOverride(t *testing.T) {
	t.Setenv(EnvClientMaxReceiveMessageSize, "2048")
	require.Equal(t, 2048, envMessageSize(EnvClientMaxReceiveMessageSize))
}

func TestEnvMessageSizeIgnoresGarbage(t *testing.T) {
	t.Setenv(EnvServerMaxReceiveMessageSize, "not-a-number")
	require.Equal(t, defaultMaxMessageSize, envMessageSize(EnvServerMaxReceiveMessageSize))
}

func TestNewAppliesMessageSizeOptions(t *testing.T) {
	t.Setenv(EnvServerMaxSendMessageSize, "4096")
	t.Setenv(EnvClientMaxSendMessageSize, "8192")

	c := New("127.0.0.1:0", "127.0.0.1:0", 0, 0, nil, nil, nil)
	require.NotEmpty(t, c.serverOpts)
	require.NotEmpty(t, c.dialOpts)
}
