// Package communicator implements the symmetric peer rendezvous channel
// two workers use to exchange tensors, dataset reader state, and
// checkpoint versions, and to establish the connection itself.
//
// Grounded on _examples/original_source/efls-train/cc/efl/communicator/
// communicator_ops.cc, communication_service.cc, communication_client.cc,
// and monitor.cc. The C++ completion-queue/CallData machinery is replaced
// by plain goroutines: grpc-go already runs each unary RPC on its own
// goroutine, so the interesting invariant worth preserving by hand is the
// rendezvous bookkeeping (tensor.go, rendezvous.go), not the transport
// plumbing around it.
package communicator

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"github.com/rs/zerolog"

	"github.com/efls-io/efls-go/pkg/efserr"
	"github.com/efls-io/efls-go/pkg/log"
	"github.com/efls-io/efls-go/pkg/metrics"
	"github.com/efls-io/efls-go/pkg/rpc"
	"github.com/efls-io/efls-go/proto/trainerpb"
)

// Communicator is the per-pair coordination channel: it listens for its
// peer's RPCs and dials out to the peer's own listener.
type Communicator struct {
	logger zerolog.Logger

	listenAddr string
	peerAddr   string

	defaultTimeout time.Duration
	monitor        *Monitor

	statusMu sync.Mutex
	status   Status

	tensors      *tensorFamily
	readerState  *singleKeyRendezvous[*ReaderState]
	ckptVersion  *singleKeyRendezvous[string]
	connect      *singleKeyRendezvous[struct{}]

	registeredReaders map[string]struct{}

	grpcServer *grpc.Server
	serverOpts []grpc.ServerOption
	dialOpts   []grpc.DialOption

	connMu sync.Mutex
	conn   *grpc.ClientConn
	client trainerpb.TrainerServiceClient
}

const connectKey = "connect"
const ckptVersionKey = "ckpt_version"

// New builds a Communicator. tlsConfig, if non-nil, is used for both the
// listening server and the outbound client channel.
func New(listenAddr, peerAddr string, scanInterval, defaultTimeout time.Duration, tensorNames, readerNames []string, tlsConfig *tls.Config) *Communicator {
	monitor := NewMonitor(scanInterval, defaultTimeout)

	c := &Communicator{
		logger:            log.WithComponent("communicator"),
		listenAddr:        listenAddr,
		peerAddr:          peerAddr,
		defaultTimeout:    defaultTimeout,
		monitor:           monitor,
		tensors:           newTensorFamily(monitor, tensorNames),
		readerState:       newSingleKeyRendezvous[*ReaderState](monitor),
		ckptVersion:       newSingleKeyRendezvous[string](monitor),
		connect:           newSingleKeyRendezvous[struct{}](monitor),
		registeredReaders: make(map[string]struct{}, len(readerNames)),
		status:            StatusCreated,
	}
	for _, n := range readerNames {
		c.registeredReaders[n] = struct{}{}
	}

	c.serverOpts = append(c.serverOpts, serverMessageSizeOpts()...)
	c.dialOpts = append(c.dialOpts, clientMessageSizeOpts())

	if tlsConfig != nil {
		c.serverOpts = append(c.serverOpts, grpc.Creds(credentials.NewTLS(tlsConfig)))
		c.dialOpts = append(c.dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		c.dialOpts = append(c.dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	return c
}

func (c *Communicator) setStatus(s Status) {
	c.statusMu.Lock()
	c.status = s
	c.statusMu.Unlock()
}

func (c *Communicator) Status() Status {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.status
}

func (c *Communicator) requireStatus(want Status) error {
	if c.Status() != want {
		return efserr.FailedPreconditionf("haven't connected with peer worker")
	}
	return nil
}

// connectTransport starts the monitor, the local gRPC server, and dials the
// peer. Grounded on Communicator::Connect in communicator_ops.cc; the env-var
// channel arguments are read elsewhere (message sizes in limits.go, TLS
// files in pkg/security) and arrive here through c.serverOpts/c.dialOpts.
func (c *Communicator) connectTransport() error {
	status := c.Status()
	if status != StatusCreated && status != StatusConnecting {
		return efserr.FailedPreconditionf("already connected")
	}

	if status == StatusCreated {
		c.monitor.Start()

		lis, err := net.Listen("tcp", c.listenAddr)
		if err != nil {
			return efserr.Internalf("listen on %s: %v", c.listenAddr, err)
		}
		c.grpcServer = grpc.NewServer(c.serverOpts...)
		trainerpb.RegisterTrainerServiceServer(c.grpcServer, (*server)(c))
		go func() {
			if err := c.grpcServer.Serve(lis); err != nil {
				c.logger.Warn().Err(err).Msg("trainer server exited")
			}
		}()

		opts := append([]grpc.DialOption{
			grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpc.CodecName)),
		}, c.dialOpts...)
		conn, err := grpc.NewClient(c.peerAddr, opts...)
		if err != nil {
			return efserr.Unavailablef("dial peer %s: %v", c.peerAddr, err)
		}
		c.connMu.Lock()
		c.conn = conn
		c.client = trainerpb.NewTrainerServiceClient(conn)
		c.connMu.Unlock()
	}

	c.setStatus(StatusConnecting)
	return nil
}

// RequestConnection is the client-initiated half of establishing a
// connection: dial the peer, start serving, and ask the peer to
// acknowledge.
func (c *Communicator) RequestConnection(ctx context.Context) error {
	if err := c.connectTransport(); err != nil {
		return err
	}

	c.connMu.Lock()
	client := c.client
	c.connMu.Unlock()

	resp, err := client.Connect(ctx, &trainerpb.ConnectionRequest{FromWorker: c.listenAddr})
	if err != nil {
		return efserr.FromStatus(err)
	}
	if resp.Code != 0 {
		return efserr.Internalf("%s", resp.ErrorMsg)
	}
	c.setStatus(StatusConnected)
	c.logger.Info().Str("peer", c.peerAddr).Msg("connected with peer")
	return nil
}

// ResponseConnection is the server-initiated half: start serving and wait
// for the peer's Connect RPC to arrive (or deliver it immediately if it
// already has).
func (c *Communicator) ResponseConnection(ctx context.Context) error {
	if err := c.connectTransport(); err != nil {
		return err
	}
	c.setStatus(StatusConnected)

	_, err := c.connect.consume(connectKey, c.defaultTimeout, func(struct{}) error { return nil })
	if err != nil {
		return err
	}
	c.logger.Info().Str("peer", c.peerAddr).Msg("connected with peer")
	return nil
}

// SendTensor sends a tensor to the peer's server and waits for its ack.
func (c *Communicator) SendTensor(ctx context.Context, t *Tensor) error {
	if err := c.requireStatus(StatusConnected); err != nil {
		return err
	}
	c.connMu.Lock()
	client := c.client
	c.connMu.Unlock()

	callID := uuid.NewString()
	callLog := log.WithCallID(callID)
	callLog.Debug().Str("tensor", t.Name).Int64("step", t.Step).Msg("sending tensor")

	timer := metrics.NewTimer()
	resp, err := client.SendMessage(ctx, &trainerpb.MessageRequest{
		Name:   t.Name,
		Step:   t.Step,
		Tensor: t.Data,
		Dtype:  t.Dtype,
		Shape:  t.Shape,
	})
	timer.ObserveDurationVec(metrics.RendezvousWaitDuration, "tensor")
	if err != nil {
		callLog.Debug().Err(err).Msg("send tensor failed")
		return efserr.FromStatus(err)
	}
	if resp.Code != 0 {
		return efserr.New(efserr.Kind(resp.Code), "%s", resp.ErrorMsg)
	}
	metrics.TensorsSent.Inc()
	return nil
}

// ReceiveTensor blocks until a tensor named name at step arrives from the
// peer, or the default timeout elapses.
func (c *Communicator) ReceiveTensor(name string, step int64) (*Tensor, error) {
	if err := c.requireStatus(StatusConnected); err != nil {
		return nil, err
	}
	callID := uuid.NewString()
	callLog := log.WithCallID(callID)
	callLog.Debug().Str("tensor", name).Int64("step", step).Msg("awaiting tensor")

	t, err := c.tensors.consume(name, step, c.defaultTimeout)
	if err != nil {
		metrics.RendezvousTimeoutsTotal.WithLabelValues("tensor").Inc()
		callLog.Debug().Err(err).Msg("receive tensor failed")
		return nil, err
	}
	metrics.TensorsReceived.Inc()
	return t, nil
}

// RequestReaderState asks the peer for its current dataset position.
func (c *Communicator) RequestReaderState(ctx context.Context, name string) (*ReaderState, error) {
	if err := c.requireStatus(StatusConnected); err != nil {
		return nil, err
	}
	c.connMu.Lock()
	client := c.client
	c.connMu.Unlock()

	resp, err := client.GetReaderState(ctx, &trainerpb.GetReaderStateRequest{Name: name})
	if err != nil {
		return nil, efserr.FromStatus(err)
	}
	if resp.Code != 0 {
		return nil, efserr.New(efserr.Kind(resp.Code), "%s", resp.ErrorMsg)
	}
	return &ReaderState{BlockID: resp.BlockId, Offset: resp.Offset}, nil
}

// RequestCkptVersion asks the peer for its latest checkpoint version.
func (c *Communicator) RequestCkptVersion(ctx context.Context) (string, error) {
	if err := c.requireStatus(StatusConnected); err != nil {
		return "", err
	}
	c.connMu.Lock()
	client := c.client
	c.connMu.Unlock()

	resp, err := client.GetCheckpointVersion(ctx, &trainerpb.GetCheckpointVersionRequest{})
	if err != nil {
		return "", efserr.FromStatus(err)
	}
	if resp.Code != 0 {
		return "", efserr.New(efserr.Kind(resp.Code), "%s", resp.ErrorMsg)
	}
	return resp.CkptVersion, nil
}

// ResponseReaderState answers a peer's pending (or future) request for
// this worker's dataset position.
func (c *Communicator) ResponseReaderState(name, blockID string, offset int64) error {
	if err := c.requireStatus(StatusConnected); err != nil {
		return err
	}
	if _, ok := c.registeredReaders[name]; !ok {
		return efserr.InvalidArgumentf("dataset named %s not registered", name)
	}
	state := &ReaderState{BlockID: blockID, Offset: offset}
	return c.readerState.deliver(name, state, c.defaultTimeout)
}

// TerminateReaderState resolves any pending reader-state request for name
// with OutOfRange, used when the dataset has been exhausted.
func (c *Communicator) TerminateReaderState(name string) error {
	return c.readerState.deliver(name, nil, c.defaultTimeout)
}

// ResponseCkptVersion answers a peer's pending (or future) request for
// this worker's checkpoint version.
func (c *Communicator) ResponseCkptVersion(version string) error {
	if err := c.requireStatus(StatusConnected); err != nil {
		return err
	}
	return c.ckptVersion.deliver(ckptVersionKey, version, c.defaultTimeout)
}

// Close shuts down both the client channel and the server. Preserves the
// original's `client_->Shutdown() & server_->Shutdown()` — both sides are
// always asked to shut down, regardless of whether the first succeeded.
func (c *Communicator) Close() error {
	if c.Status() != StatusConnected {
		return efserr.FailedPreconditionf("already closed")
	}

	clientOK := true
	c.connMu.Lock()
	if c.conn != nil {
		clientOK = c.conn.Close() == nil
	}
	c.connMu.Unlock()

	serverOK := true
	if c.grpcServer != nil {
		c.grpcServer.GracefulStop()
	}
	c.monitor.Shutdown()

	if clientOK && serverOK {
		c.setStatus(StatusClosed)
		return nil
	}
	return efserr.FailedPreconditionf("shutdown failed: server or client is not running")
}
