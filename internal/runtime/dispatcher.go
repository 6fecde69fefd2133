package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/singularis/chater/internal/runtime/envelope"
	errspkg "github.com/singularis/chater/internal/runtime/errors"
	loggingpkg "github.com/singularis/chater/internal/runtime/logging"
	"github.com/singularis/chater/internal/runtime/naming"
)

// DefaultErrorTopic receives responses for messages that failed outside any
// handler's designated response topic.
const DefaultErrorTopic = "error_response"

// Dispatcher is the worker-side loop: it subscribes to the registered request
// topics, validates each message, commits the read offset, routes by logical
// topic, runs the handler, and emits exactly one correlated response.
//
// Offsets are committed before the handler runs ("commit-then-process"): a
// handler crash loses that one message instead of stalling the partition, so
// delivery is at-most-once from the dispatcher's perspective. The client side
// simply times out on the bridge when that happens.
type Dispatcher struct {
	producer   *Producer
	subscriber message.Subscriber
	naming     naming.Policy
	logger     loggingpkg.ServiceLogger
	metrics    *Metrics

	handlers   map[string]HandlerRegistration
	errorTopic string
}

// NewDispatcher constructs a dispatcher bound to the service transport.
func (s *Service) NewDispatcher() *Dispatcher {
	return &Dispatcher{
		producer:   s.Producer(),
		subscriber: s.subscriber,
		naming:     s.Naming,
		logger:     s.Logger,
		metrics:    s.metrics,
		handlers:   make(map[string]HandlerRegistration),
		errorTopic: DefaultErrorTopic,
	}
}

// Register adds a handler for a logical request topic. Registration happens
// once at startup; adding a message type means registering a handler.
func (d *Dispatcher) Register(reg HandlerRegistration) error {
	if err := reg.validate(); err != nil {
		return err
	}
	if _, exists := d.handlers[reg.Topic]; exists {
		return fmt.Errorf("%w: %s", errspkg.ErrHandlerNameKnown, reg.Topic)
	}
	if reg.Name == "" {
		reg.Name = reg.Topic + "-handler"
	}
	d.handlers[reg.Topic] = reg
	return nil
}

// Topics returns the registered logical request topics.
func (d *Dispatcher) Topics() []string {
	topics := make([]string, 0, len(d.handlers))
	for t := range d.handlers {
		topics = append(topics, t)
	}
	return topics
}

type inbound struct {
	topic string // logical
	msg   *message.Message
}

// Run subscribes to every registered topic and processes messages in one
// sequential loop until ctx is cancelled. Ordering within a topic partition
// is preserved; a slow handler delays the next poll, which is the intended
// implicit backpressure.
func (d *Dispatcher) Run(ctx context.Context) error {
	if len(d.handlers) == 0 {
		return errspkg.ErrHandlerRequired
	}

	merged := make(chan inbound)
	var wg sync.WaitGroup

	for topic := range d.handlers {
		ch, err := d.subscriber.Subscribe(ctx, d.naming.Qualify(topic))
		if err != nil {
			return err
		}
		wg.Add(1)
		go func(logical string, ch <-chan *message.Message) {
			defer wg.Done()
			for msg := range ch {
				select {
				case merged <- inbound{topic: logical, msg: msg}:
				case <-ctx.Done():
					return
				}
			}
		}(topic, ch)
	}

	go func() {
		wg.Wait()
		close(merged)
	}()

	d.logger.Info("Dispatcher started", loggingpkg.LogFields{"topics": d.Topics()})

	for in := range merged {
		d.process(ctx, in.topic, in.msg)
	}
	return ctx.Err()
}

func (d *Dispatcher) process(ctx context.Context, topic string, msg *message.Message) {
	env, err := envelope.Decode(msg.Payload)
	if err != nil {
		msg.Ack()
		d.metrics.MessagesProcessed.WithLabelValues(topic, OutcomeInvalid).Inc()
		d.logger.Error("Dropping malformed message", err, loggingpkg.LogFields{"topic": topic})
		return
	}

	if env.Key == "" {
		// Nothing to correlate a response against; log only.
		msg.Ack()
		d.metrics.MessagesProcessed.WithLabelValues(topic, OutcomeInvalid).Inc()
		d.logger.Error("Dropping message without correlation key", nil, loggingpkg.LogFields{"topic": topic})
		return
	}

	userEmail := env.UserEmail()
	if userEmail == "" {
		msg.Ack()
		d.metrics.MessagesProcessed.WithLabelValues(topic, OutcomeInvalid).Inc()
		d.logger.Error("Dropping message without user_email", nil, loggingpkg.LogFields{
			"topic":          topic,
			"correlation_id": env.Key,
		})
		// The waiting caller is still released with an error response.
		d.respond(ctx, d.errorTopic, env.Key, "", map[string]any{"error": "missing user_email"})
		return
	}

	// Commit-then-process: the offset advances before the handler runs.
	msg.Ack()

	reg, ok := d.handlers[topic]
	if !ok {
		d.metrics.MessagesProcessed.WithLabelValues(topic, OutcomeUnknownTopic).Inc()
		d.logger.Error("No handler for topic", nil, loggingpkg.LogFields{"topic": topic})
		d.respond(ctx, d.errorTopic, env.Key, userEmail, map[string]any{"error": "unknown request"})
		return
	}

	req := Request{
		CorrelationID: env.Key,
		UserEmail:     userEmail,
		Topic:         topic,
		Value:         env.Value,
		Raw:           env.Raw,
		Logger:        d.logger.With(loggingpkg.LogFields{"handler": reg.Name}),
	}

	start := time.Now()
	result, err := d.invoke(ctx, reg, req)
	d.metrics.HandlerDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		d.metrics.MessagesProcessed.WithLabelValues(topic, OutcomeSuccess).Inc()
		if reg.ResponseTopic == "" {
			return
		}
		if result == nil {
			result = map[string]any{"status": "Success"}
		}
		if reg.SuccessFlag {
			result["success"] = true
		}
		d.respond(ctx, reg.ResponseTopic, env.Key, userEmail, result)

	default:
		if be, ok := errspkg.AsBusiness(err); ok {
			d.metrics.MessagesProcessed.WithLabelValues(topic, OutcomeBusinessError).Inc()
			d.logger.Debug("Handler rejected request", loggingpkg.LogFields{
				"topic": topic,
				"user":  userEmail,
				"error": be.Message,
			})
			value := map[string]any{"error": be.Message}
			if reg.SuccessFlag {
				value["success"] = false
			}
			responseTopic := reg.ResponseTopic
			if responseTopic == "" {
				responseTopic = d.errorTopic
			}
			d.respond(ctx, responseTopic, env.Key, userEmail, value)
			return
		}

		d.metrics.MessagesProcessed.WithLabelValues(topic, OutcomeFault).Inc()
		d.logger.Error("Handler failed", err, loggingpkg.LogFields{
			"topic":          topic,
			"user":           userEmail,
			"correlation_id": env.Key,
			"payload":        env.Value,
		})
		d.respond(ctx, d.errorTopic, env.Key, userEmail, map[string]any{"error": err.Error()})
	}
}

// invoke runs the handler, converting panics into errors so one bad message
// never stops the loop.
func (d *Dispatcher) invoke(ctx context.Context, reg HandlerRegistration, req Request) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return reg.Handler(ctx, req)
}

func (d *Dispatcher) respond(ctx context.Context, topic, correlationID, userEmail string, value map[string]any) {
	if err := d.producer.Respond(ctx, topic, correlationID, userEmail, value); err != nil {
		// The caller will time out deterministically at the bridge.
		d.logger.Error("Failed to publish response", err, loggingpkg.LogFields{
			"topic":          topic,
			"correlation_id": correlationID,
		})
	}
}
