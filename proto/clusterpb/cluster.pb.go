// Package clusterpb holds the wire messages for ClusterService, described
// by cluster.proto. Message layout mirrors protoc-gen-go's field naming and
// numbering, but these types are transported with pkg/rpc's JSON codec
// rather than the binary protobuf wire format — see DESIGN.md for why.
package clusterpb

type RegisterNodeRequest struct {
	Role    string `protobuf:"bytes,1,opt,name=role,proto3" json:"role,omitempty"`
	Index   int64  `protobuf:"varint,2,opt,name=index,proto3" json:"index,omitempty"`
	Address string `protobuf:"bytes,3,opt,name=address,proto3" json:"address,omitempty"`
	Version int64  `protobuf:"varint,4,opt,name=version,proto3" json:"version,omitempty"`
}

type RegisterNodeResponse struct {
	Code     int32  `protobuf:"varint,1,opt,name=code,proto3" json:"code,omitempty"`
	ErrorMsg string `protobuf:"bytes,2,opt,name=error_msg,json=errorMsg,proto3" json:"error_msg,omitempty"`
	Version  int64  `protobuf:"varint,3,opt,name=version,proto3" json:"version,omitempty"`
}

type GetClusterRequest struct {
	Version int64 `protobuf:"varint,1,opt,name=version,proto3" json:"version,omitempty"`
}

type GetClusterResponse struct {
	Code     int32                 `protobuf:"varint,1,opt,name=code,proto3" json:"code,omitempty"`
	ErrorMsg string                `protobuf:"bytes,2,opt,name=error_msg,json=errorMsg,proto3" json:"error_msg,omitempty"`
	Ready    bool                  `protobuf:"varint,3,opt,name=ready,proto3" json:"ready,omitempty"`
	Version  int64                 `protobuf:"varint,4,opt,name=version,proto3" json:"version,omitempty"`
	Cluster  map[string]*WorkerList `protobuf:"bytes,5,rep,name=cluster,proto3" json:"cluster,omitempty"`
}

type WorkerList struct {
	Addresses []string `protobuf:"bytes,1,rep,name=addresses,proto3" json:"addresses,omitempty"`
}
