// Package api defines the famsplit RPC messages.
//
// Messages are plain structs carried over Connect with a JSON codec, so
// any HTTP client can call the API with `Content-Type: application/json`.
package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// CodecName is the name the JSON codec registers under.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// WithJSON makes handlers accept, and clients send, JSON-encoded messages.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
