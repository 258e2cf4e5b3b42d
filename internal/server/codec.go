package server

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec replaces connect's protojson codec so plain Go structs can be
// used as messages. It registers under the same "json" name.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// WithJSON is the codec option handlers and clients must share.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
