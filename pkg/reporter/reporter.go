// Package reporter implements the worker-side half of service discovery: a
// background loop that repeatedly calls RegisterNode against the
// scheduler until the process is stopped.
//
// Grounded on _examples/original_source/efls-train/cc/service_discovery/
// reporter.h and reporter.cc: a cooperative stop (here a context instead
// of a Notification + WaitForNotificationWithTimeout), a status field
// guarded by its own mutex, and dropping the scheduler client on any RPC
// error so the next tick dials fresh rather than retrying a connection
// that may be wedged. As in Loop(), the scheduler address is re-resolved
// through RemoteKV every time the client needs to be redialed, so a
// scheduler that restarts and republishes a new address under the same
// RemoteKV key is picked back up automatically.
package reporter

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"github.com/rs/zerolog"

	"github.com/efls-io/efls-go/pkg/efserr"
	"github.com/efls-io/efls-go/pkg/kv"
	"github.com/efls-io/efls-go/pkg/log"
	"github.com/efls-io/efls-go/pkg/metrics"
	"github.com/efls-io/efls-go/pkg/rpc"
	"github.com/efls-io/efls-go/proto/clusterpb"
)

// callTimeout bounds each RegisterNode attempt.
const callTimeout = 10 * time.Second

// Reporter periodically tells the scheduler this worker is alive at a
// given address, and keeps the generation version it last observed.
type Reporter struct {
	logger zerolog.Logger

	schedulerAddr string // static fallback, used when kvAddress == ""
	kvAddress     string // RemoteKV address to re-resolve the scheduler's address from on each (re)dial
	job           string
	id            int64
	myAddr        string
	interval      time.Duration
	tlsConfig     *tls.Config

	statusMu sync.Mutex
	status   error
	version  int64

	mu       sync.Mutex
	conn     *grpc.ClientConn
	client   clusterpb.ClusterServiceClient
	dialOpts []grpc.DialOption

	cancel context.CancelFunc
	done   chan struct{}
}

// WithDialOptions overrides the gRPC dial options used to reach the
// scheduler, in addition to transport credentials. Tests use this to
// inject an in-process dialer.
func (r *Reporter) WithDialOptions(opts ...grpc.DialOption) *Reporter {
	r.dialOpts = opts
	return r
}

// New builds a Reporter. tlsConfig may be nil, in which case the
// connection to the scheduler is made without transport security — used
// for local development and tests only. kvAddress, if non-empty, is
// re-resolved through kv.Default() every time the reporter needs to
// (re)dial the scheduler; schedulerAddr is used as-is otherwise.
func New(schedulerAddr, kvAddress, job string, id int64, myAddr string, interval time.Duration, tlsConfig *tls.Config) *Reporter {
	return &Reporter{
		logger:        log.WithComponent("reporter"),
		schedulerAddr: schedulerAddr,
		kvAddress:     kvAddress,
		job:           job,
		id:            id,
		myAddr:        myAddr,
		interval:      interval,
		tlsConfig:     tlsConfig,
	}
}

// Start begins the reporting loop in a new goroutine.
func (r *Reporter) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx)
}

// Stop requests the loop to exit and waits for it to finish.
func (r *Reporter) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.closeConn()
}

func (r *Reporter) run(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.tick()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Reporter) tick() {
	client, err := r.getClient()
	if err != nil {
		r.setStatus(err)
		metrics.ReportsTotal.WithLabelValues("dial_error").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	r.statusMu.Lock()
	version := r.version
	r.statusMu.Unlock()

	resp, err := client.RegisterNode(ctx, &clusterpb.RegisterNodeRequest{
		Role:    r.job,
		Index:   r.id,
		Address: r.myAddr,
		Version: version,
	})
	if err != nil {
		r.setStatus(efserr.FromStatus(err))
		metrics.ReportsTotal.WithLabelValues("rpc_error").Inc()
		r.closeConn() // force a fresh dial next tick
		return
	}

	r.statusMu.Lock()
	r.status = nil
	r.version = resp.Version
	r.statusMu.Unlock()
	metrics.ReportsTotal.WithLabelValues("ok").Inc()
}

func (r *Reporter) getClient() (clusterpb.ClusterServiceClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return r.client, nil
	}

	addr := r.schedulerAddr
	if r.kvAddress != "" {
		resolved, err := kv.Default().Get(r.kvAddress)
		if err != nil {
			return nil, efserr.Unavailablef("resolve scheduler address from %s: %v", r.kvAddress, err)
		}
		addr = resolved
	}

	creds := insecure.NewCredentials()
	if r.tlsConfig != nil {
		creds = credentials.NewTLS(r.tlsConfig)
	}
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpc.CodecName)),
	}, r.dialOpts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, efserr.Unavailablef("dial scheduler %s: %v", addr, err)
	}
	r.conn = conn
	r.client = clusterpb.NewClusterServiceClient(conn)
	return r.client, nil
}

func (r *Reporter) closeConn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		_ = r.conn.Close()
	}
	r.conn = nil
	r.client = nil
}

// GetStatus reports the error from the most recent RegisterNode attempt,
// or nil if it succeeded.
func (r *Reporter) GetStatus() error {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	return r.status
}

func (r *Reporter) setStatus(err error) {
	r.statusMu.Lock()
	r.status = err
	r.statusMu.Unlock()
}

// Version returns the generation version last observed from the
// scheduler.
func (r *Reporter) Version() int64 {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	return r.version
}
