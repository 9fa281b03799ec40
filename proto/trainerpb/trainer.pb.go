// Package trainerpb holds the wire messages for TrainerService, described
// by trainer.proto. See clusterpb for the note on why these are carried
// over a JSON codec instead of the binary protobuf wire format.
package trainerpb

type ConnectionRequest struct {
	FromWorker string `protobuf:"bytes,1,opt,name=from_worker,json=fromWorker,proto3" json:"from_worker,omitempty"`
}

type ConnectionResponse struct {
	Code     int32  `protobuf:"varint,1,opt,name=code,proto3" json:"code,omitempty"`
	ErrorMsg string `protobuf:"bytes,2,opt,name=error_msg,json=errorMsg,proto3" json:"error_msg,omitempty"`
}

type MessageRequest struct {
	Name   string  `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Step   int64   `protobuf:"varint,2,opt,name=step,proto3" json:"step,omitempty"`
	Tensor []byte  `protobuf:"bytes,3,opt,name=tensor,proto3" json:"tensor,omitempty"`
	Dtype  string  `protobuf:"bytes,4,opt,name=dtype,proto3" json:"dtype,omitempty"`
	Shape  []int64 `protobuf:"varint,5,rep,packed,name=shape,proto3" json:"shape,omitempty"`
}

type MessageResponse struct {
	Code     int32  `protobuf:"varint,1,opt,name=code,proto3" json:"code,omitempty"`
	ErrorMsg string `protobuf:"bytes,2,opt,name=error_msg,json=errorMsg,proto3" json:"error_msg,omitempty"`
}

type GetReaderStateRequest struct {
	Name string `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Step int64  `protobuf:"varint,2,opt,name=step,proto3" json:"step,omitempty"`
}

type GetReaderStateResponse struct {
	Code     int32  `protobuf:"varint,1,opt,name=code,proto3" json:"code,omitempty"`
	ErrorMsg string `protobuf:"bytes,2,opt,name=error_msg,json=errorMsg,proto3" json:"error_msg,omitempty"`
	BlockId  string `protobuf:"bytes,3,opt,name=block_id,json=blockId,proto3" json:"block_id,omitempty"`
	Offset   int64  `protobuf:"varint,4,opt,name=offset,proto3" json:"offset,omitempty"`
}

type GetCheckpointVersionRequest struct {
	Name string `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Step int64  `protobuf:"varint,2,opt,name=step,proto3" json:"step,omitempty"`
}

type GetCheckpointVersionResponse struct {
	Code        int32  `protobuf:"varint,1,opt,name=code,proto3" json:"code,omitempty"`
	ErrorMsg    string `protobuf:"bytes,2,opt,name=error_msg,json=errorMsg,proto3" json:"error_msg,omitempty"`
	CkptVersion string `protobuf:"bytes,3,opt,name=ckpt_version,json=ckptVersion,proto3" json:"ckpt_version,omitempty"`
}
