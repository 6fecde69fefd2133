package runtime

import (
	"context"
	"encoding/json"

	"github.com/singularis/chater/internal/runtime/envelope"
	errspkg "github.com/singularis/chater/internal/runtime/errors"
	loggingpkg "github.com/singularis/chater/internal/runtime/logging"
)

// Request is the validated unit handed to a handler: the correlation id, the
// resolved user identity, the logical topic, and the envelope value. Raw
// preserves the wire bytes of the value for handlers that unwrap non-object
// shapes themselves.
type Request struct {
	CorrelationID string
	UserEmail     string
	Topic         string
	Value         map[string]any
	Raw           json.RawMessage
	Logger        loggingpkg.ServiceLogger
}

// String returns a string field from the request value, "" when absent.
func (r Request) String(field string) string {
	return envelope.Envelope{Value: r.Value}.String(field)
}

// HandlerFunc performs the domain work for one message type. It returns the
// success value to put into the response envelope, or an error. Errors of
// type *BusinessError become structured error responses; anything else is an
// unexpected fault.
type HandlerFunc func(ctx context.Context, req Request) (map[string]any, error)

// HandlerRegistration binds one logical request topic to its handler and the
// response topic the handler declares. An empty ResponseTopic means the
// message type is fire-and-forget: no success response is emitted.
type HandlerRegistration struct {
	Name          string
	Topic         string
	ResponseTopic string
	Handler       HandlerFunc

	// SuccessFlag adds "success": true/false to every response value, the
	// shape the chess endpoints standardise on.
	SuccessFlag bool
}

func (reg HandlerRegistration) validate() error {
	if reg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}
	if reg.Topic == "" {
		return errspkg.ErrTopicRequired
	}
	return nil
}
