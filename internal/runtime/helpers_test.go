package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	configpkg "github.com/singularis/chater/internal/runtime/config"
	"github.com/singularis/chater/internal/runtime/envelope"
	loggingpkg "github.com/singularis/chater/internal/runtime/logging"
)

type publishedMessage struct {
	topic   string
	payload []byte
}

type testPublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	for _, msg := range messages {
		p.published = append(p.published, publishedMessage{topic: topic, payload: msg.Payload})
	}
	return nil
}

func (p *testPublisher) Close() error { return nil }

func (p *testPublisher) Messages() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	clone := make([]publishedMessage, len(p.published))
	copy(clone, p.published)
	return clone
}

// Envelopes decodes every published payload, failing the test on bad wire
// data.
func (p *testPublisher) Envelopes(t *testing.T) []envelope.Envelope {
	t.Helper()
	msgs := p.Messages()
	envs := make([]envelope.Envelope, len(msgs))
	for i, m := range msgs {
		env, err := envelope.Decode(m.payload)
		if err != nil {
			t.Fatalf("published payload %d does not decode: %v", i, err)
		}
		envs[i] = env
	}
	return envs
}

type testSubscriber struct {
	mu       sync.Mutex
	channels map[string]chan *message.Message
	err      error
}

func newTestSubscriber() *testSubscriber {
	return &testSubscriber{channels: make(map[string]chan *message.Message)}
}

func (s *testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[topic]
	if !ok {
		ch = make(chan *message.Message, 16)
		s.channels[topic] = ch
	}
	return ch, nil
}

func (s *testSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.channels {
		close(ch)
	}
	s.channels = make(map[string]chan *message.Message)
	return nil
}

func (s *testSubscriber) push(t *testing.T, topic string, msg *message.Message) {
	t.Helper()
	s.mu.Lock()
	ch, ok := s.channels[topic]
	s.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for topic %q", topic)
	}
	ch <- msg
}

type loggedLine struct {
	level  string
	msg    string
	err    error
	fields loggingpkg.LogFields
}

type logRecorder struct {
	mu   sync.Mutex
	logs []loggedLine
}

func (r *logRecorder) record(line loggedLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, line)
}

func (r *logRecorder) lines() []loggedLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := make([]loggedLine, len(r.logs))
	copy(clone, r.logs)
	return clone
}

type testLogger struct {
	recorder *logRecorder
	fields   loggingpkg.LogFields
}

func newTestLogger() *testLogger {
	return &testLogger{recorder: &logRecorder{}}
}

func (l *testLogger) With(fields loggingpkg.LogFields) loggingpkg.ServiceLogger {
	merged := make(loggingpkg.LogFields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &testLogger{recorder: l.recorder, fields: merged}
}

func (l *testLogger) log(level, msg string, err error, fields loggingpkg.LogFields) {
	merged := make(loggingpkg.LogFields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.recorder.record(loggedLine{level: level, msg: msg, err: err, fields: merged})
}

func (l *testLogger) Debug(msg string, fields loggingpkg.LogFields) { l.log("debug", msg, nil, fields) }
func (l *testLogger) Info(msg string, fields loggingpkg.LogFields)  { l.log("info", msg, nil, fields) }
func (l *testLogger) Trace(msg string, fields loggingpkg.LogFields) { l.log("trace", msg, nil, fields) }
func (l *testLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	l.log("error", msg, err, fields)
}

func newTestService(t *testing.T) (*Service, *testPublisher, *testSubscriber) {
	t.Helper()
	pub := &testPublisher{}
	sub := newTestSubscriber()
	registry := prometheus.NewRegistry()
	svc := &Service{
		Conf:            &configpkg.Config{PubSubSystem: "channel"},
		Logger:          newTestLogger(),
		publisher:       pub,
		subscriber:      sub,
		metrics:         NewMetrics(registry),
		metricsRegistry: registry,
	}
	return svc, pub, sub
}

// encodeEnvelope builds the wire form of a message for pushing through the
// fake subscriber.
func encodeEnvelope(t *testing.T, key, userEmail string, value map[string]any) []byte {
	t.Helper()
	payload, err := envelope.New(key, userEmail, value).Encode()
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
	return payload
}
