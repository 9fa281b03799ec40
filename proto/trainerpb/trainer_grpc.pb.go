package trainerpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	TrainerService_Connect_FullMethodName              = "/efls.trainer.v1.TrainerService/Connect"
	TrainerService_SendMessage_FullMethodName          = "/efls.trainer.v1.TrainerService/SendMessage"
	TrainerService_GetReaderState_FullMethodName       = "/efls.trainer.v1.TrainerService/GetReaderState"
	TrainerService_GetCheckpointVersion_FullMethodName = "/efls.trainer.v1.TrainerService/GetCheckpointVersion"
)

// TrainerServiceClient is the client API for TrainerService.
type TrainerServiceClient interface {
	Connect(ctx context.Context, in *ConnectionRequest, opts ...grpc.CallOption) (*ConnectionResponse, error)
	SendMessage(ctx context.Context, in *MessageRequest, opts ...grpc.CallOption) (*MessageResponse, error)
	GetReaderState(ctx context.Context, in *GetReaderStateRequest, opts ...grpc.CallOption) (*GetReaderStateResponse, error)
	GetCheckpointVersion(ctx context.Context, in *GetCheckpointVersionRequest, opts ...grpc.CallOption) (*GetCheckpointVersionResponse, error)
}

type trainerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTrainerServiceClient(cc grpc.ClientConnInterface) TrainerServiceClient {
	return &trainerServiceClient{cc}
}

func (c *trainerServiceClient) Connect(ctx context.Context, in *ConnectionRequest, opts ...grpc.CallOption) (*ConnectionResponse, error) {
	out := new(ConnectionResponse)
	if err := c.cc.Invoke(ctx, TrainerService_Connect_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *trainerServiceClient) SendMessage(ctx context.Context, in *MessageRequest, opts ...grpc.CallOption) (*MessageResponse, error) {
	out := new(MessageResponse)
	if err := c.cc.Invoke(ctx, TrainerService_SendMessage_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *trainerServiceClient) GetReaderState(ctx context.Context, in *GetReaderStateRequest, opts ...grpc.CallOption) (*GetReaderStateResponse, error) {
	out := new(GetReaderStateResponse)
	if err := c.cc.Invoke(ctx, TrainerService_GetReaderState_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *trainerServiceClient) GetCheckpointVersion(ctx context.Context, in *GetCheckpointVersionRequest, opts ...grpc.CallOption) (*GetCheckpointVersionResponse, error) {
	out := new(GetCheckpointVersionResponse)
	if err := c.cc.Invoke(ctx, TrainerService_GetCheckpointVersion_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// TrainerServiceServer is the server API for TrainerService.
type TrainerServiceServer interface {
	Connect(context.Context, *ConnectionRequest) (*ConnectionResponse, error)
	SendMessage(context.Context, *MessageRequest) (*MessageResponse, error)
	GetReaderState(context.Context, *GetReaderStateRequest) (*GetReaderStateResponse, error)
	GetCheckpointVersion(context.Context, *GetCheckpointVersionRequest) (*GetCheckpointVersionResponse, error)
}

// UnimplementedTrainerServiceServer must be embedded for forward
// compatibility.
type UnimplementedTrainerServiceServer struct{}

func (UnimplementedTrainerServiceServer) Connect(context.Context, *ConnectionRequest) (*ConnectionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Connect not implemented")
}

func (UnimplementedTrainerServiceServer) SendMessage(context.Context, *MessageRequest) (*MessageResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SendMessage not implemented")
}

func (UnimplementedTrainerServiceServer) GetReaderState(context.Context, *GetReaderStateRequest) (*GetReaderStateResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetReaderState not implemented")
}

func (UnimplementedTrainerServiceServer) GetCheckpointVersion(context.Context, *GetCheckpointVersionRequest) (*GetCheckpointVersionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetCheckpointVersion not implemented")
}

func RegisterTrainerServiceServer(s grpc.ServiceRegistrar, srv TrainerServiceServer) {
	s.RegisterService(&TrainerService_ServiceDesc, srv)
}

func _TrainerService_Connect_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ConnectionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TrainerServiceServer).Connect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TrainerService_Connect_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TrainerServiceServer).Connect(ctx, req.(*ConnectionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TrainerService_SendMessage_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(MessageRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TrainerServiceServer).SendMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TrainerService_SendMessage_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TrainerServiceServer).SendMessage(ctx, req.(*MessageRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TrainerService_GetReaderState_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetReaderStateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TrainerServiceServer).GetReaderState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TrainerService_GetReaderState_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TrainerServiceServer).GetReaderState(ctx, req.(*GetReaderStateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TrainerService_GetCheckpointVersion_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetCheckpointVersionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TrainerServiceServer).GetCheckpointVersion(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TrainerService_GetCheckpointVersion_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TrainerServiceServer).GetCheckpointVersion(ctx, req.(*GetCheckpointVersionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// TrainerService_ServiceDesc is the grpc.ServiceDesc for TrainerService.
var TrainerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "efls.trainer.v1.TrainerService",
	HandlerType: (*TrainerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Connect", Handler: _TrainerService_Connect_Handler},
		{MethodName: "SendMessage", Handler: _TrainerService_SendMessage_Handler},
		{MethodName: "GetReaderState", Handler: _TrainerService_GetReaderState_Handler},
		{MethodName: "GetCheckpointVersion", Handler: _TrainerService_GetCheckpointVersion_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "trainer.proto",
}
