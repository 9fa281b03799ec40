package security

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/efls-io/efls-go/pkg/efserr"
)

// Env var names the Communicator and Reporter check when deciding whether
// to dial and serve over TLS, matching the SSL toggle in the original
// communicator's channel setup.
const (
	EnvMyCertsFilename       = "EFL_MY_CERTS_FILENAME"
	EnvMyKeyFilename         = "EFL_MY_KEY_FILENAME"
	EnvPeerCertsFilename     = "EFL_PEER_CERTS_FILENAME"
	EnvSSLTargetNameOverride = "EFL_SSL_TARGET_NAME_OVERRIDE"
)

// LoadFromEnv builds a *tls.Config from the EFL_MY_CERTS_FILENAME /
// EFL_MY_KEY_FILENAME / EFL_PEER_CERTS_FILENAME env vars. It returns a nil
// config (and no error) when none of them are set, meaning the caller
// should fall back to an insecure channel.
func LoadFromEnv() (*tls.Config, error) {
	myCert := os.Getenv(EnvMyCertsFilename)
	myKey := os.Getenv(EnvMyKeyFilename)
	peerCert := os.Getenv(EnvPeerCertsFilename)

	if myCert == "" && myKey == "" && peerCert == "" {
		return nil, nil
	}
	if myCert == "" || myKey == "" {
		return nil, efserr.InvalidArgumentf("%s and %s must both be set to enable TLS", EnvMyCertsFilename, EnvMyKeyFilename)
	}

	cert, err := tls.LoadX509KeyPair(myCert, myKey)
	if err != nil {
		return nil, efserr.Internalf("load node certificate: %v", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
	}

	if peerCert != "" {
		peerPEM, err := os.ReadFile(peerCert)
		if err != nil {
			return nil, efserr.Internalf("read peer certificate %s: %v", peerCert, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(peerPEM) {
			return nil, efserr.Internalf("parse peer certificate %s", peerCert)
		}
		cfg.RootCAs = pool
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	if override := os.Getenv(EnvSSLTargetNameOverride); override != "" {
		cfg.ServerName = override
	}

	return cfg, nil
}
