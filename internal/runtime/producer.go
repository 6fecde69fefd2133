package runtime

import (
	"context"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/singularis/chater/internal/runtime/envelope"
	errspkg "github.com/singularis/chater/internal/runtime/errors"
	idspkg "github.com/singularis/chater/internal/runtime/ids"
	loggingpkg "github.com/singularis/chater/internal/runtime/logging"
	"github.com/singularis/chater/internal/runtime/naming"
)

// Producer appends envelopes to the event log. Publish stamps a fresh
// correlation id; Respond reuses the inbound id so the reply listener on the
// client side can match the message.
type Producer struct {
	publisher message.Publisher
	naming    naming.Policy
	logger    loggingpkg.ServiceLogger
}

// Producer returns the envelope producer bound to the service transport.
func (s *Service) Producer() *Producer {
	return &Producer{
		publisher: s.publisher,
		naming:    s.Naming,
		logger:    s.Logger,
	}
}

// Publish serializes value into an envelope keyed by a fresh correlation id
// and appends it to the physical topic for logicalTopic. The returned id is
// the join key for the eventual response. Failures carry a suggested
// client-visible status of 503.
func (p *Producer) Publish(ctx context.Context, logicalTopic, userEmail string, value map[string]any) (string, error) {
	id := idspkg.NewCorrelationID()
	if err := p.send(ctx, logicalTopic, envelope.New(id, userEmail, value)); err != nil {
		return "", err
	}
	return id, nil
}

// Respond appends a response envelope keyed with the given correlation id.
func (p *Producer) Respond(ctx context.Context, logicalTopic, correlationID, userEmail string, value map[string]any) error {
	return p.send(ctx, logicalTopic, envelope.New(correlationID, userEmail, value))
}

func (p *Producer) send(ctx context.Context, logicalTopic string, env envelope.Envelope) error {
	if logicalTopic == "" {
		return errspkg.ErrTopicRequired
	}

	payload, err := env.Encode()
	if err != nil {
		return err
	}

	msg := message.NewMessage(idspkg.CreateULID(), payload)
	if ctx != nil {
		msg.SetContext(ctx)
	}

	physical := p.naming.Qualify(logicalTopic)
	if err := p.publisher.Publish(physical, msg); err != nil {
		p.logger.Error("Publish failed", err, loggingpkg.LogFields{"topic": physical})
		return errspkg.NewDispatchError(http.StatusServiceUnavailable, err)
	}

	p.logger.Trace("Published envelope", loggingpkg.LogFields{
		"topic":          physical,
		"correlation_id": env.Key,
	})
	return nil
}
