package communicator

import (
	"os"
	"strconv"

	"google.golang.org/grpc"
)

// Env var names controlling the gRPC message-size ceilings on both sides
// of the trainer channel. Grounded on communicator_ops.cc's channel
// arguments (GRPC_ARG_MAX_SEND_MESSAGE_LENGTH /
// GRPC_ARG_MAX_RECEIVE_MESSAGE_LENGTH), set once per server/client rather
// than left at grpc-go's 4 MiB default.
const (
	EnvServerMaxSendMessageSize    = "EFL_SERVER_MAX_SEND_MESSAGE_SIZE"
	EnvServerMaxReceiveMessageSize = "EFL_SERVER_MAX_RECEIVE_MESSAGE_SIZE"
	EnvClientMaxSendMessageSize    = "EFL_CLIENT_MAX_SEND_MESSAGE_SIZE"
	EnvClientMaxReceiveMessageSize = "EFL_CLIENT_MAX_RECEIVE_MESSAGE_SIZE"
)

// defaultMaxMessageSize is the ceiling applied when the corresponding env
// var is unset: 1 GiB, large enough for realistically-sized tensors.
const defaultMaxMessageSize = 1 << 30

func envMessageSize(name string) int {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultMaxMessageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultMaxMessageSize
	}
	return n
}

// serverMessageSizeOpts returns the ServerOptions capping the size of
// messages the trainer gRPC server will send and accept.
func serverMessageSizeOpts() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.MaxSendMsgSize(envMessageSize(EnvServerMaxSendMessageSize)),
		grpc.MaxRecvMsgSize(envMessageSize(EnvServerMaxReceiveMessageSize)),
	}
}

// clientMessageSizeOpts returns the DialOption capping the size of
// messages the trainer gRPC client will send and accept on every call.
func clientMessageSizeOpts() grpc.DialOption {
	return grpc.WithDefaultCallOptions(
		grpc.MaxCallSendMsgSize(envMessageSize(EnvClientMaxSendMessageSize)),
		grpc.MaxCallRecvMsgSize(envMessageSize(EnvClientMaxReceiveMessageSize)),
	)
}
