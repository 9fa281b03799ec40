package communicator

import (
	"context"

	"github.com/efls-io/efls-go/pkg/efserr"
	"github.com/efls-io/efls-go/proto/trainerpb"
)

// server adapts a *Communicator to trainerpb.TrainerServiceServer. It is a
// defined type (not an embedded interface) so the Communicator struct
// itself stays free of gRPC method names.
type server Communicator

func (s *server) self() *Communicator { return (*Communicator)(s) }

// Connect resolves the peer-initiated half of connection setup: whichever
// side called ResponseConnection and is blocked in connect.consume wakes
// up here.
func (s *server) Connect(ctx context.Context, req *trainerpb.ConnectionRequest) (*trainerpb.ConnectionResponse, error) {
	c := s.self()
	err := c.connect.deliver(connectKey, struct{}{}, c.defaultTimeout)
	if err != nil {
		return nil, efserr.ToStatus(err)
	}
	return &trainerpb.ConnectionResponse{Code: 0}, nil
}

// SendMessage is the tensor-delivery RPC: a peer is pushing a tensor this
// worker asked for (or will ask for) via ReceiveTensor.
func (s *server) SendMessage(ctx context.Context, req *trainerpb.MessageRequest) (*trainerpb.MessageResponse, error) {
	c := s.self()
	t := &Tensor{
		Name:  req.Name,
		Step:  req.Step,
		Data:  req.Tensor,
		Dtype: req.Dtype,
		Shape: req.Shape,
	}
	if err := c.tensors.deliver(t, c.defaultTimeout); err != nil {
		return nil, efserr.ToStatus(err)
	}
	return &trainerpb.MessageResponse{Code: 0}, nil
}

// GetReaderState is invoked by a peer calling RequestReaderState against
// this worker; it resolves whatever this worker published via
// ResponseReaderState (or blocks until it is, or TerminateReaderState
// arrives).
func (s *server) GetReaderState(ctx context.Context, req *trainerpb.GetReaderStateRequest) (*trainerpb.GetReaderStateResponse, error) {
	c := s.self()
	if _, ok := c.registeredReaders[req.Name]; !ok {
		return nil, efserr.ToStatus(efserr.InvalidArgumentf("dataset named %s not registered", req.Name))
	}
	state, err := c.readerState.consume(req.Name, c.defaultTimeout, func(st *ReaderState) error {
		if st == nil {
			return efserr.OutOfRangef("dataset %s exhausted", req.Name)
		}
		return nil
	})
	if err != nil {
		return nil, efserr.ToStatus(err)
	}
	return &trainerpb.GetReaderStateResponse{Code: 0, BlockId: state.BlockID, Offset: state.Offset}, nil
}

// GetCheckpointVersion resolves whatever this worker published via
// ResponseCkptVersion.
func (s *server) GetCheckpointVersion(ctx context.Context, req *trainerpb.GetCheckpointVersionRequest) (*trainerpb.GetCheckpointVersionResponse, error) {
	c := s.self()
	version, err := c.ckptVersion.consume(ckptVersionKey, c.defaultTimeout, func(string) error { return nil })
	if err != nil {
		return nil, efserr.ToStatus(err)
	}
	return &trainerpb.GetCheckpointVersionResponse{Code: 0, CkptVersion: version}, nil
}
