// Package jsoncodec centralises JSON encoding for the wire envelopes. All
// serialization goes through sonic in stdlib-compatible mode so payloads stay
// interoperable with the other services on the shared event log.
package jsoncodec

import (
	"github.com/bytedance/sonic"
)

var codec = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return codec.Unmarshal(data, v)
}
