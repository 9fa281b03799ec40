package security

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efls-io/efls-go/pkg/efserr"
)

func clearTLSEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvMyCertsFilename, EnvMyKeyFilename, EnvPeerCertsFilename, EnvSSLTargetNameOverride} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnvNoneSetReturnsNilConfig(t *testing.T) {
	clearTLSEnv(t)
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Nil(t, cfg)
}

func TestLoadFromEnvMissingKeyIsInvalidArgument(t *testing.T) {
	clearTLSEnv(t)
	t.Setenv(EnvMyCertsFilename, "node.crt")
	_, err := LoadFromEnv()
	require.Error(t, err)
	require.True(t, efserr.Is(err, efserr.InvalidArgument))
}
