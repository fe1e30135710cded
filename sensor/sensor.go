package sensor

import (
	"time"

	"github.com/yarkivaev/serial-to-mqtt/metric"
	"github.com/yarkivaev/serial-to-mqtt/protocol"
	"github.com/yarkivaev/serial-to-mqtt/reading"
	"github.com/yarkivaev/serial-to-mqtt/result"
)

// Sensor performs one blocking read-and-decode cycle per Read call.
// Retries are not a sensor concern; a failed read surfaces to the
// caller as a failure.
type Sensor struct {
	connection Connection
	decoder    protocol.Decoder
	metrics    *metric.Metrics
	name       string
	protocol   string
}

// Option configures a Sensor.
type Option func(*Sensor)

// WithMetrics records decode outcomes and read durations under the
// given sensor name and protocol labels. A nil Metrics is fine.
func WithMetrics(m *metric.Metrics, name, protocol string) Option {
	return func(s *Sensor) {
		s.metrics = m
		s.name = name
		s.protocol = protocol
	}
}

// New creates a Sensor reading messages from connection and decoding
// them with decoder.
func New(connection Connection, decoder protocol.Decoder, opts ...Option) *Sensor {
	s := &Sensor{connection: connection, decoder: decoder}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read receives one message and decodes it. A receive failure is
// propagated without invoking the decoder; otherwise the decoder's
// result is returned unchanged.
func (s *Sensor) Read() result.Result[reading.Reading] {
	start := time.Now()
	defer func() {
		s.metrics.RecordReadDuration(s.name, time.Since(start))
	}()

	received := s.connection.Receive()
	if !received.Successful() {
		return result.Fail[reading.Reading](received.Error())
	}

	decoded := s.decoder.Parse(received.Value())
	if decoded.Successful() {
		s.metrics.RecordReadingDecoded(s.name, s.protocol)
	} else {
		s.metrics.RecordDecodeFailure(s.name, s.protocol)
	}
	return decoded
}
