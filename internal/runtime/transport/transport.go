// Package transport initialises the publisher/subscriber pair backing the
// bridge and the worker. Kafka is the production event log; the gochannel
// transport keeps tests and local runs broker-free.
package transport

import (
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/singularis/chater/internal/runtime/config"
)

// Transport combines a publisher and subscriber pair produced by a factory.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Factory abstracts how transports are initialised, so tests can inject an
// in-memory pair.
type Factory interface {
	Build(conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)
}

// DefaultFactory returns the built-in factory selecting on PubSubSystem.
func DefaultFactory() Factory {
	return defaultFactory{}
}

type defaultFactory struct{}

func (defaultFactory) Build(conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	if conf == nil {
		return Transport{}, fmt.Errorf("config is required")
	}

	switch strings.ToLower(conf.PubSubSystem) {
	case "kafka":
		return kafkaTransport(conf, logger)
	case "channel", "":
		return channelTransport(conf, logger)
	default:
		return Transport{}, fmt.Errorf("unknown pubsub system %q", conf.PubSubSystem)
	}
}
