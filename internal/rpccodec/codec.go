// Package rpccodec registers a gob-based grpc codec under the name "gob".
// The plugin sandbox boundary uses it instead of protobuf so that plugin
// messages can be plain Go structs (node.Node trees, artifacts, errors)
// with no .proto compilation step, while still riding on gRPC's framing,
// multiplexing, and TLS/UDS transport.
package rpccodec

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// Name is the codec name plugin gRPC clients/servers must select via
// grpc.CallContentSubtype / grpc.ForceServerCodec.
const Name = "gob"

type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return Name }

func init() {
	encoding.RegisterCodec(gobCodec{})
}
