package sensor

import (
	"github.com/yarkivaev/serial-to-mqtt/frame"
	"github.com/yarkivaev/serial-to-mqtt/metric"
	"github.com/yarkivaev/serial-to-mqtt/result"
)

// DefaultMaxBuffer caps the framing accumulator. A stream that never
// produces a valid boundary would otherwise grow the buffer without
// bound.
const DefaultMaxBuffer = 64 * 1024

// FramedConnection decorates a Connection with message framing: it
// accumulates raw chunks until the delimiter finds complete messages,
// then hands them out one Receive call at a time. The accumulator is
// owned exclusively by this connection.
type FramedConnection struct {
	inner       Connection
	delimiter   frame.Delimiter
	accumulated frame.Accumulated
	pending     [][]byte
	maxBuffer   int
	metrics     *metric.Metrics
	port        string
}

// FramedOption configures a FramedConnection.
type FramedOption func(*FramedConnection)

// WithMaxBuffer overrides the accumulator cap.
func WithMaxBuffer(limit int) FramedOption {
	return func(c *FramedConnection) {
		c.maxBuffer = limit
	}
}

// WithFrameMetrics counts extracted frames against the given port
// label. A nil Metrics is fine.
func WithFrameMetrics(m *metric.Metrics, port string) FramedOption {
	return func(c *FramedConnection) {
		c.metrics = m
		c.port = port
	}
}

// NewFramedConnection creates a framing decorator around inner using
// the given delimiter.
func NewFramedConnection(inner Connection, delimiter frame.Delimiter, opts ...FramedOption) *FramedConnection {
	c := &FramedConnection{
		inner:     inner,
		delimiter: delimiter,
		maxBuffer: DefaultMaxBuffer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open opens the underlying connection.
func (c *FramedConnection) Open() error {
	return c.inner.Open()
}

// Receive returns the next complete message, reading and accumulating
// from the inner connection until the delimiter extracts one. A
// transport failure is propagated immediately. Messages extracted
// beyond the first are queued for subsequent calls.
func (c *FramedConnection) Receive() result.Result[[]byte] {
	if len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		return result.Ok(next)
	}
	for {
		received := c.inner.Receive()
		if !received.Successful() {
			return received
		}
		c.accumulated = c.accumulated.Append(received.Value())
		c.enforceCap()
		extraction := c.delimiter.Extract(c.accumulated.Content())
		c.accumulated = c.accumulated.Trim(extraction.Remainder())
		if !extraction.Empty() {
			messages := extraction.Messages()
			for range messages {
				c.metrics.RecordFrameExtracted(c.port)
			}
			c.pending = messages[1:]
			return result.Ok(messages[0])
		}
	}
}

// enforceCap drops the oldest buffered bytes once the accumulator
// exceeds its cap. Bytes that old can no longer begin a frame the
// delimiter would accept before newer data arrives.
func (c *FramedConnection) enforceCap() {
	if c.maxBuffer <= 0 || c.accumulated.Len() <= c.maxBuffer {
		return
	}
	content := c.accumulated.Content()
	c.accumulated = c.accumulated.Trim(content[len(content)-c.maxBuffer:])
}

// Close closes the underlying connection.
func (c *FramedConnection) Close() error {
	return c.inner.Close()
}
