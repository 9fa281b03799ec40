// Package security loads TLS material for worker-to-worker and
// worker-to-scheduler gRPC channels. Certificates are provisioned out of
// band (no in-process CA here); LoadFromEnv reads the EFL_MY_CERTS_FILENAME
// family of env vars and returns a ready-to-use *tls.Config, or nil if TLS
// was not configured.
package security
