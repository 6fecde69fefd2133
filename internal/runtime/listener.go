package runtime

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/singularis/chater/internal/runtime/correlation"
	"github.com/singularis/chater/internal/runtime/envelope"
	loggingpkg "github.com/singularis/chater/internal/runtime/logging"
	"github.com/singularis/chater/internal/runtime/naming"
)

// ResponseSink receives every decoded reply, matched or not. Used to keep a
// per-user record of recent responses outside the correlation table.
type ResponseSink interface {
	Store(ctx context.Context, userEmail, topic string, value map[string]any)
}

// ReplyListener is the background subscriber over the response topics. For
// every consumed message it extracts the correlation key and the embedded
// user identity and fulfills the matching wait handle. Unmatched replies are
// dropped. The listener commits its own read offsets and never blocks on
// business logic.
type ReplyListener struct {
	subscriber message.Subscriber
	naming     naming.Policy
	registry   *correlation.Registry
	logger     loggingpkg.ServiceLogger
	metrics    *Metrics
	topics     []string
	sink       ResponseSink
}

// Run subscribes to all response topics and consumes until ctx is cancelled.
func (l *ReplyListener) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for _, topic := range l.topics {
		ch, err := l.subscriber.Subscribe(ctx, l.naming.Qualify(topic))
		if err != nil {
			return err
		}
		wg.Add(1)
		go func(logical string, ch <-chan *message.Message) {
			defer wg.Done()
			for msg := range ch {
				l.consume(ctx, logical, msg)
			}
		}(topic, ch)
	}

	l.logger.Info("Reply listener started", loggingpkg.LogFields{"topics": l.topics})
	wg.Wait()
	return nil
}

func (l *ReplyListener) consume(ctx context.Context, topic string, msg *message.Message) {
	// Offsets advance regardless of matching: a reply that finds no waiter
	// will never find one later.
	msg.Ack()

	env, err := envelope.Decode(msg.Payload)
	if err != nil {
		l.logger.Error("Dropping malformed reply", err, loggingpkg.LogFields{"topic": topic})
		return
	}
	if env.Key == "" {
		l.logger.Debug("Dropping reply without correlation key", loggingpkg.LogFields{"topic": topic})
		return
	}

	owner := env.UserEmail()
	if l.sink != nil && owner != "" {
		l.sink.Store(ctx, owner, topic, env.Value)
	}

	if l.registry.Fulfill(env.Key, owner, env.Value) {
		l.metrics.RepliesMatched.Inc()
		l.logger.Trace("Reply matched", loggingpkg.LogFields{
			"topic":          topic,
			"correlation_id": env.Key,
		})
		return
	}

	// Normal for replies arriving after timeout-eviction and for foreign ids.
	l.metrics.RepliesDropped.Inc()
	l.logger.Debug("Reply had no waiter", loggingpkg.LogFields{
		"topic":          topic,
		"correlation_id": env.Key,
	})
}
