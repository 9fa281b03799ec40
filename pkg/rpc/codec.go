// Package rpc installs the wire codec shared by every EFLS gRPC service.
//
// The upstream project generates protobuf bindings with protoc; that
// toolchain isn't available here, so proto/clusterpb and proto/trainerpb
// hand-write the message structs described by their .proto files and this
// package carries them over the wire as JSON instead of the protobuf binary
// format. grpc-go only requires an encoding.Codec (Marshal/Unmarshal/Name),
// so the transport, TLS, interceptors, and service semantics are otherwise
// unchanged from a protoc-generated service.
package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
