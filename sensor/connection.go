// Package sensor couples a transport connection with a protocol
// decoder into a blocking read-and-decode cycle. Connection decorators
// add inter-read delays and message framing by composition; each
// sensor chain owns its full connection stack exclusively.
package sensor

import (
	"time"

	"github.com/yarkivaev/serial-to-mqtt/result"
)

// Connection supplies raw bytes from a transport. Receive is a
// non-blocking poll returning empty bytes when nothing is pending, or
// blocks per the transport policy.
type Connection interface {
	Open() error
	Receive() result.Result[[]byte]
	Close() error
}

// Delay blocks the calling goroutine for a configured duration.
type Delay interface {
	Wait()
}

// SleepDelay is the time.Sleep implementation of Delay.
type SleepDelay struct {
	duration time.Duration
}

// NewSleepDelay creates a Delay waiting the given duration.
func NewSleepDelay(duration time.Duration) SleepDelay {
	return SleepDelay{duration: duration}
}

// Wait blocks for the configured duration.
func (d SleepDelay) Wait() {
	time.Sleep(d.duration)
}

// DelayedConnection decorates a Connection with a wait on every
// receive, pacing the poll loop against the sensor's output rate.
type DelayedConnection struct {
	inner  Connection
	delay  Delay
	before bool
}

// NewDelayedAfter creates a connection that waits after each read.
func NewDelayedAfter(inner Connection, delay Delay) *DelayedConnection {
	return &DelayedConnection{inner: inner, delay: delay}
}

// NewDelayedBefore creates a connection that waits before each read.
func NewDelayedBefore(inner Connection, delay Delay) *DelayedConnection {
	return &DelayedConnection{inner: inner, delay: delay, before: true}
}

// Open opens the underlying connection.
func (c *DelayedConnection) Open() error {
	return c.inner.Open()
}

// Receive reads from the inner connection, waiting on the configured
// side of the read. The inner result is returned unchanged.
func (c *DelayedConnection) Receive() result.Result[[]byte] {
	if c.before {
		c.delay.Wait()
	}
	received := c.inner.Receive()
	if !c.before {
		c.delay.Wait()
	}
	return received
}

// Close closes the underlying connection.
func (c *DelayedConnection) Close() error {
	return c.inner.Close()
}
