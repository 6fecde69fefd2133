package runtime

import (
	"context"
	"time"

	configpkg "github.com/singularis/chater/internal/runtime/config"
	"github.com/singularis/chater/internal/runtime/correlation"
	errspkg "github.com/singularis/chater/internal/runtime/errors"
	loggingpkg "github.com/singularis/chater/internal/runtime/logging"
)

// Bridge turns publish-plus-wait into one blocking call. It is safe to invoke
// SendAndWait concurrently from many request goroutines; each call gets its
// own wait handle keyed by its own correlation id.
type Bridge struct {
	producer *Producer
	registry *correlation.Registry
	listener *ReplyListener
	logger   loggingpkg.ServiceLogger
	metrics  *Metrics

	defaultTimeout time.Duration
}

// NewBridge composes the producer, correlation registry, and reply listener.
// responseTopics is the set of logical topics the listener subscribes to; it
// must cover every response topic a SendAndWait call can be answered on. The
// sink may be nil.
func (s *Service) NewBridge(responseTopics []string, sink ResponseSink) *Bridge {
	registry := correlation.New(s.Logger)

	timeout := s.Conf.ResponseTimeout
	if timeout <= 0 {
		timeout = configpkg.DefaultResponseTimeout
	}

	return &Bridge{
		producer: s.Producer(),
		registry: registry,
		listener: &ReplyListener{
			subscriber: s.subscriber,
			naming:     s.Naming,
			registry:   registry,
			logger:     s.Logger,
			metrics:    s.metrics,
			topics:     responseTopics,
			sink:       sink,
		},
		logger:         s.Logger,
		metrics:        s.metrics,
		defaultTimeout: timeout,
	}
}

// Start runs the reply listener until ctx is cancelled. It must be running
// before SendAndWait calls can complete with anything but a timeout.
func (b *Bridge) Start(ctx context.Context) error {
	return b.listener.Run(ctx)
}

// Registry exposes the correlation table, mainly for tests and introspection.
func (b *Bridge) Registry() *correlation.Registry { return b.registry }

// SendAndWait publishes value on the logical topic and blocks the calling
// goroutine until the correlated reply arrives or timeout elapses. A zero
// timeout uses the configured default. On timeout the correlation id is
// evicted and ErrTimeout returned; a reply landing after that is dropped by
// the registry with no further effect.
func (b *Bridge) SendAndWait(ctx context.Context, logicalTopic, ownerEmail string, value map[string]any, timeout time.Duration) (map[string]any, error) {
	if ownerEmail == "" {
		return nil, errspkg.ErrOwnerRequired
	}
	if timeout <= 0 {
		timeout = b.defaultTimeout
	}

	id, err := b.producer.Publish(ctx, logicalTopic, ownerEmail, value)
	if err != nil {
		return nil, err
	}

	handle, err := b.registry.Register(id, ownerEmail)
	if err != nil {
		return nil, err
	}

	b.metrics.OutstandingWaits.Inc()
	defer b.metrics.OutstandingWaits.Dec()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-handle.Done():
		return handle.Value(), nil
	case <-timer.C:
		b.registry.Evict(id)
		b.metrics.WaitTimeouts.Inc()
		b.logger.Debug("Bridge wait timed out", loggingpkg.LogFields{
			"topic":          logicalTopic,
			"correlation_id": id,
		})
		return nil, errspkg.ErrTimeout
	case <-ctx.Done():
		b.registry.Evict(id)
		return nil, ctx.Err()
	}
}
