package api

import (
	"encoding/json"
)

// jsonCodec implements google.golang.org/grpc/encoding.Codec using
// encoding/json instead of protocol buffers. Cellar has no generated
// protobuf stubs, so every request/response type on the wire is a plain Go
// struct and gRPC is used purely for its framing, streaming, and mTLS
// transport - not for message encoding.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}

// marshalJSON is used outside the codec path, to build the Data payload of
// a manager.Command before it is handed to Raft.
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
