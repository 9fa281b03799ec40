package clusterpb

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func grpcNotImplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}
