package grpcx

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// CodecName is the content-subtype clients must request ("application/grpc+json").
const CodecName = "json"

var (
	protoMarshal   = protojson.MarshalOptions{UseProtoNames: true}
	protoUnmarshal = protojson.UnmarshalOptions{DiscardUnknown: true}
)

// jsonCodec speaks protobuf JSON for proto messages and plain JSON for the
// hand-declared RoomSync structs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return protoMarshal.Marshal(m)
	}
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		if len(data) == 0 {
			proto.Reset(m)
			return nil
		}
		return protoUnmarshal.Unmarshal(data, m)
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
