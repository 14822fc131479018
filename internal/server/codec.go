package server

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec marshals gRPC messages as JSON. The wire types here are plain
// Go structs rather than protobuf messages, so clients select this codec
// with grpc.CallContentSubtype("json"). The default proto codec stays
// registered for the health and reflection services.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
