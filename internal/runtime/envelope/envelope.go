// Package envelope implements the UTF-8 JSON wire unit shared by the bridge
// and the worker: {"key": "<correlation id>", "value": {...}}. The value
// object always carries the requesting user's email for attribution.
//
// One producer (the photo analysis model) emits its value as a plain string
// holding fenced JSON rather than an object, so decoding keeps the raw bytes
// around and resolves the object form lazily.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsoncodec "github.com/singularis/chater/internal/runtime/jsoncodec"
)

var (
	ErrMissingKey  = errors.New("envelope: missing correlation key")
	ErrMissingUser = errors.New("envelope: missing user_email in value")
)

// Envelope is one event-log message. Key is the correlation id joining a
// request to its response. Value holds the decoded object form; Raw preserves
// the wire bytes for values that are not JSON objects.
type Envelope struct {
	Key   string
	Value map[string]any
	Raw   json.RawMessage
}

type wireEnvelope struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// New builds an envelope from a correlation id and a value object, stamping
// the owner's email into the value.
func New(key, userEmail string, value map[string]any) Envelope {
	v := make(map[string]any, len(value)+1)
	for k, val := range value {
		v[k] = val
	}
	if userEmail != "" {
		v["user_email"] = userEmail
	}
	return Envelope{Key: key, Value: v}
}

// Encode serializes the envelope to its wire form.
func (e Envelope) Encode() ([]byte, error) {
	value := e.Raw
	if e.Value != nil {
		encoded, err := jsoncodec.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("envelope: encode value: %w", err)
		}
		value = encoded
	}
	data, err := jsoncodec.Marshal(wireEnvelope{Key: e.Key, Value: value})
	if err != nil {
		return nil, fmt.Errorf("envelope: encode: %w", err)
	}
	return data, nil
}

// Decode parses a wire payload. A malformed document is an error; a missing
// key or user_email is reported via Validate so callers can decide whether a
// correlated error response is still possible.
func Decode(payload []byte) (Envelope, error) {
	var wire wireEnvelope
	if err := jsoncodec.Unmarshal(payload, &wire); err != nil {
		return Envelope{}, fmt.Errorf("envelope: decode: %w", err)
	}

	e := Envelope{Key: wire.Key, Raw: wire.Value}
	if len(wire.Value) > 0 {
		var obj map[string]any
		if err := jsoncodec.Unmarshal(wire.Value, &obj); err == nil {
			e.Value = obj
		}
	}
	return e, nil
}

// StringValue returns the value as a plain string when the producer emitted
// one instead of an object.
func (e Envelope) StringValue() (string, bool) {
	if e.Value != nil || len(e.Raw) == 0 {
		return "", false
	}
	var s string
	if err := jsoncodec.Unmarshal(e.Raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// UserEmail resolves the user_email field. For string-shaped values the
// fenced JSON is decoded and inspected, so analysis replies remain
// attributable.
func (e Envelope) UserEmail() string {
	if e.Value != nil {
		email, _ := e.Value["user_email"].(string)
		return email
	}
	if s, ok := e.StringValue(); ok {
		var obj map[string]any
		if err := jsoncodec.Unmarshal([]byte(StripMarkdownFence(s)), &obj); err == nil {
			email, _ := obj["user_email"].(string)
			return email
		}
	}
	return ""
}

// Validate checks the invariant that every routable message has a correlation
// key and a resolvable user identity.
func (e Envelope) Validate() error {
	if e.Key == "" {
		return ErrMissingKey
	}
	if e.UserEmail() == "" {
		return ErrMissingUser
	}
	return nil
}

// String returns a string-typed field from the value object. Missing or
// differently-typed fields yield "".
func (e Envelope) String(field string) string {
	if e.Value == nil {
		return ""
	}
	s, _ := e.Value[field].(string)
	return s
}

// StripMarkdownFence removes a surrounding ```json ... ``` (or bare ```)
// fence from a model response, leaving the inner document.
func StripMarkdownFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the info string ("json") on the opening fence line.
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
