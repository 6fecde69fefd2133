// Package chater exposes the asynchronous request/response bridge and the
// worker-side message dispatcher built on the shared event log. The bridge
// turns a synchronous client request into a published event and a bounded
// correlated wait; the dispatcher consumes the request topics, routes each
// message to its handler, and emits exactly one correlated response.
package chater

import (
	runtimepkg "github.com/singularis/chater/internal/runtime"
	configpkg "github.com/singularis/chater/internal/runtime/config"
	"github.com/singularis/chater/internal/runtime/correlation"
	"github.com/singularis/chater/internal/runtime/envelope"
	errspkg "github.com/singularis/chater/internal/runtime/errors"
	idspkg "github.com/singularis/chater/internal/runtime/ids"
	jsoncodec "github.com/singularis/chater/internal/runtime/jsoncodec"
	loggingpkg "github.com/singularis/chater/internal/runtime/logging"
	"github.com/singularis/chater/internal/runtime/naming"
	transportpkg "github.com/singularis/chater/internal/runtime/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Transport           = transportpkg.Transport
	TransportFactory    = transportpkg.Factory

	Producer            = runtimepkg.Producer
	Bridge              = runtimepkg.Bridge
	ReplyListener       = runtimepkg.ReplyListener
	ResponseSink        = runtimepkg.ResponseSink
	Dispatcher          = runtimepkg.Dispatcher
	Request             = runtimepkg.Request
	HandlerFunc         = runtimepkg.HandlerFunc
	HandlerRegistration = runtimepkg.HandlerRegistration
	Metrics             = runtimepkg.Metrics

	Envelope            = envelope.Envelope
	NamingPolicy        = naming.Policy
	CorrelationRegistry = correlation.Registry
	WaitHandle          = correlation.Handle

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	DispatchError = errspkg.DispatchError
	BusinessError = errspkg.BusinessError
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	ValidateConfig = configpkg.ValidateConfig
	ConfigFromEnv  = configpkg.FromEnv

	NewEnvelope        = envelope.New
	DecodeEnvelope     = envelope.Decode
	StripMarkdownFence = envelope.StripMarkdownFence

	NewCorrelationRegistry = correlation.New

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal

	CreateULID       = idspkg.CreateULID
	NewCorrelationID = idspkg.NewCorrelationID

	NewDispatchError = errspkg.NewDispatchError
	Forbidden        = errspkg.Forbidden
	InvalidInput     = errspkg.InvalidInput
	NotFound         = errspkg.NotFound

	ErrTimeout     = errspkg.ErrTimeout
	ErrDuplicateID = errspkg.ErrDuplicateID
)

// DefaultErrorTopic is the shared response topic for faults that have no
// handler-designated response topic.
const DefaultErrorTopic = runtimepkg.DefaultErrorTopic
