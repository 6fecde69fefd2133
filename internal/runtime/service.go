package runtime

import (
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	configpkg "github.com/singularis/chater/internal/runtime/config"
	errorspkg "github.com/singularis/chater/internal/runtime/errors"
	loggingpkg "github.com/singularis/chater/internal/runtime/logging"
	"github.com/singularis/chater/internal/runtime/naming"
	transportpkg "github.com/singularis/chater/internal/runtime/transport"
)

// ServiceDependencies holds the optional collaborators of a Service. Leave
// fields nil for the defaults.
type ServiceDependencies struct {
	TransportFactory transportpkg.Factory
}

// Service wires the transport, naming policy, logger, and metrics shared by
// the bridge and the worker dispatcher.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger
	Naming naming.Policy

	publisher  message.Publisher
	subscriber message.Subscriber

	metrics         *Metrics
	metricsRegistry *prometheus.Registry
}

// NewService constructs a Service for the supplied configuration, panicking
// on transport initialisation failure. Use TryNewService to handle the error.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) *Service {
	s, err := TryNewService(conf, log, deps)
	if err != nil {
		panic(err)
	}
	return s
}

// TryNewService constructs a Service, returning transport errors instead of
// panicking.
func TryNewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errorspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errorspkg.ErrLoggerRequired
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating event service", loggingpkg.LogFields{
		"pubsub_system": conf.PubSubSystem,
		"config":        conf,
	})

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	transport, err := factory.Build(conf, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("transport init failed: %w", err)
	}

	registry := prometheus.NewRegistry()

	return &Service{
		Conf:            conf,
		Logger:          log,
		Naming:          naming.Policy{Dev: conf.Dev},
		publisher:       transport.Publisher,
		subscriber:      transport.Subscriber,
		metrics:         NewMetrics(registry),
		metricsRegistry: registry,
	}, nil
}

// Publisher exposes the raw transport publisher.
func (s *Service) Publisher() message.Publisher { return s.publisher }

// Subscriber exposes the raw transport subscriber.
func (s *Service) Subscriber() message.Subscriber { return s.subscriber }

// Metrics exposes the service metric set.
func (s *Service) Metrics() *Metrics { return s.metrics }

// StartMetricsServer serves the Prometheus endpoint when metrics are enabled.
func (s *Service) StartMetricsServer() {
	if !s.Conf.MetricsEnabled || s.Conf.MetricsPort == 0 {
		return
	}
	addr := fmt.Sprintf(":%d", s.Conf.MetricsPort)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.metricsRegistry, promhttp.HandlerOpts{}))

	s.Logger.Info("Starting metrics server", loggingpkg.LogFields{"address": addr})
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			s.Logger.Error("Metrics server stopped", err, loggingpkg.LogFields{"address": addr})
		}
	}()
}

// Close shuts down the underlying transport.
func (s *Service) Close() error {
	var firstErr error
	if err := s.publisher.Close(); err != nil {
		firstErr = err
	}
	if err := s.subscriber.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
