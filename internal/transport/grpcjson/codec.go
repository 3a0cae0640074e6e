// Package grpcjson serves hand-declared gRPC services whose messages are
// plain Go structs encoded as JSON. Clients select it with the "json"
// content subtype, e.g. grpc.CallContentSubtype(grpcjson.Name).
//
// The services carry no protobuf file descriptors. Server reflection lists
// them by name, but cannot describe them; symbol lookups answer NotFound.
package grpcjson

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const Name = "json"

type codec struct{}

func (codec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (codec) Name() string                       { return Name }

func init() {
	encoding.RegisterCodec(codec{})
}
