package communicator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/efls-io/efls-go/pkg/efserr"
)

func newConnectedPair(t *testing.T, addrA, addrB string) (*Communicator, *Communicator) {
	t.Helper()
	tensorNames := []string{"gradients"}
	readerNames := []string{"train_set"}

	a := New(addrA, addrB, 5*time.Millisecond, 500*time.Millisecond, tensorNames, readerNames, nil)
	b := New(addrB, addrA, 5*time.Millisecond, 500*time.Millisecond, tensorNames, readerNames, nil)

	errs := make(chan error, 2)
	go func() { errs <- a.RequestConnection(context.Background()) }()
	go func() { errs <- b.ResponseConnection(context.Background()) }()

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	require.Equal(t, StatusConnected, a.Status())
	require.Equal(t, StatusConnected, b.Status())
	return a, b
}

func TestConnectionHandshake(t *testing.T) {
	a, b := newConnectedPair(t, "127.0.0.1:18481", "127.0.0.1:18482")
	defer a.Close()
	defer b.Close()
}

// TestTensorRendezvousOrdering sends a tensor before the receiver asks for
// it, and asks for one before it arrives, covering both arrival orders of
// the rendezvous.
func TestTensorRendezvousOrdering(t *testing.T) {
	a, b := newConnectedPair(t, "127.0.0.1:18483", "127.0.0.1:18484")
	defer a.Close()
	defer b.Close()

	// sender arrives first
	sendDone := make(chan error, 1)
	go func() {
		sendDone <- a.SendTensor(context.Background(), &Tensor{Name: "gradients", Step: 1, Data: []byte{1, 2, 3}})
	}()
	time.Sleep(20 * time.Millisecond)
	got, err := b.ReceiveTensor("gradients", 1)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got.Data)
	require.NoError(t, <-sendDone)

	// receiver arrives first
	recvDone := make(chan struct {
		t   *Tensor
		err error
	}, 1)
	go func() {
		tv, rerr := b.ReceiveTensor("gradients", 2)
		recvDone <- struct {
			t   *Tensor
			err error
		}{tv, rerr}
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, a.SendTensor(context.Background(), &Tensor{Name: "gradients", Step: 2, Data: []byte{4, 5, 6}}))
	res := <-recvDone
	require.NoError(t, res.err)
	require.Equal(t, []byte{4, 5, 6}, res.t.Data)
}

// TestTensorStepMismatchIsDataLoss covers the case where a tensor parks
// under its name and a later consumer asks for a different step.
func TestTensorStepMismatchIsDataLoss(t *testing.T) {
	a, b := newConnectedPair(t, "127.0.0.1:18485", "127.0.0.1:18486")
	defer a.Close()
	defer b.Close()

	sendDone := make(chan error, 1)
	go func() {
		sendDone <- a.SendTensor(context.Background(), &Tensor{Name: "gradients", Step: 7, Data: []byte{9}})
	}()
	time.Sleep(20 * time.Millisecond)

	_, err := b.ReceiveTensor("gradients", 8)
	require.Error(t, err)
	require.True(t, efserr.Is(err, efserr.DataLoss))

	sendErr := <-sendDone
	require.Error(t, sendErr)
	require.True(t, efserr.Is(sendErr, efserr.DataLoss))
}

func TestReaderStateRoundTrip(t *testing.T) {
	a, b := newConnectedPair(t, "127.0.0.1:18487", "127.0.0.1:18488")
	defer a.Close()
	defer b.Close()

	respDone := make(chan error, 1)
	go func() {
		respDone <- b.ResponseReaderState("train_set", "block-0007", 42)
	}()

	state, err := a.RequestReaderState(context.Background(), "train_set")
	require.NoError(t, err)
	require.Equal(t, "block-0007", state.BlockID)
	require.Equal(t, int64(42), state.Offset)
	require.NoError(t, <-respDone)
}

func TestReaderStateTerminationIsOutOfRange(t *testing.T) {
	a, b := newConnectedPair(t, "127.0.0.1:18489", "127.0.0.1:18490")
	defer a.Close()
	defer b.Close()

	go func() { _ = b.TerminateReaderState("train_set") }()

	_, err := a.RequestReaderState(context.Background(), "train_set")
	require.Error(t, err)
	require.True(t, efserr.Is(err, efserr.OutOfRange))
}

func TestCheckpointVersionRoundTrip(t *testing.T) {
	a, b := newConnectedPair(t, "127.0.0.1:18491", "127.0.0.1:18492")
	defer a.Close()
	defer b.Close()

	respDone := make(chan error, 1)
	go func() { respDone <- b.ResponseCkptVersion("ckpt-00012") }()

	v, err := a.RequestCkptVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ckpt-00012", v)
	require.NoError(t, <-respDone)
}
