// Package serialport implements the sensor.Connection interface on top
// of a physical serial port. Reads are polled: a read that times out
// before any byte arrives yields an empty successful result, so callers
// can keep their accumulation loop running without blocking forever.
package serialport

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/yarkivaev/serial-to-mqtt/errors"
	"github.com/yarkivaev/serial-to-mqtt/metric"
	"github.com/yarkivaev/serial-to-mqtt/result"
	"github.com/yarkivaev/serial-to-mqtt/sensor"
)

// DefaultReadTimeout bounds a single poll so Receive never blocks
// longer than this when the line is quiet.
const DefaultReadTimeout = 100 * time.Millisecond

// DefaultReadBuffer is the per-poll read buffer size.
const DefaultReadBuffer = 256

// Config describes how to open a serial port.
type Config struct {
	// Device is the OS port name, e.g. /dev/ttyUSB0 or COM3.
	Device string
	// Baud is the line speed in bits per second.
	Baud int
	// ReadTimeout bounds a single poll. Zero means DefaultReadTimeout.
	ReadTimeout time.Duration
	// DataBits per character, 0 means the driver default (8).
	DataBits int
	// Parity is one of "", "none", "odd", "even". Empty means none.
	Parity string
	// StopBits is 1 or 2. Zero means 1.
	StopBits int
}

// Validate checks the configuration for obvious mistakes before a port
// is opened.
func (c Config) Validate() error {
	if c.Device == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "serialport", "Validate", "device name")
	}
	if c.Baud <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("baud rate must be positive, got %d", c.Baud),
			"serialport", "Validate", "baud rate")
	}
	switch strings.ToLower(c.Parity) {
	case "", "none", "odd", "even":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown parity %q", c.Parity),
			"serialport", "Validate", "parity")
	}
	if c.StopBits != 0 && c.StopBits != 1 && c.StopBits != 2 {
		return errors.WrapInvalid(
			fmt.Errorf("stop bits must be 1 or 2, got %d", c.StopBits),
			"serialport", "Validate", "stop bits")
	}
	return nil
}

func (c Config) serialConfig() *serial.Config {
	timeout := c.ReadTimeout
	if timeout == 0 {
		timeout = DefaultReadTimeout
	}

	cfg := &serial.Config{
		Name:        c.Device,
		Baud:        c.Baud,
		ReadTimeout: timeout,
	}
	if c.DataBits != 0 {
		cfg.Size = byte(c.DataBits)
	}
	switch strings.ToLower(c.Parity) {
	case "odd":
		cfg.Parity = serial.ParityOdd
	case "even":
		cfg.Parity = serial.ParityEven
	default:
		cfg.Parity = serial.ParityNone
	}
	if c.StopBits == 2 {
		cfg.StopBits = serial.Stop2
	}
	return cfg
}

// opener abstracts serial.OpenPort so tests can run without hardware.
type opener func(cfg *serial.Config) (io.ReadCloser, error)

func systemOpener(cfg *serial.Config) (io.ReadCloser, error) {
	return serial.OpenPort(cfg)
}

// Port is a polled serial connection. It implements sensor.Connection.
type Port struct {
	config      Config
	open        opener
	metrics     *metric.Metrics
	portMetrics *Metrics
	bufSize     int

	mu         sync.Mutex
	port       io.ReadCloser
	everOpened bool
}

var _ sensor.Connection = (*Port)(nil)

// Option configures a Port.
type Option func(*Port)

// WithMetrics wires bridge metrics into the port. A nil value is fine.
func WithMetrics(m *metric.Metrics) Option {
	return func(p *Port) {
		p.metrics = m
	}
}

// WithPortMetrics wires serialport-specific metrics into the port. A
// nil value is fine.
func WithPortMetrics(m *Metrics) Option {
	return func(p *Port) {
		p.portMetrics = m
	}
}

// WithReadBuffer overrides the per-poll read buffer size.
func WithReadBuffer(n int) Option {
	return func(p *Port) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// withOpener replaces the port opener, for tests.
func withOpener(open opener) Option {
	return func(p *Port) {
		p.open = open
	}
}

// New creates a Port for the given configuration. The device is not
// touched until Open is called.
func New(config Config, opts ...Option) *Port {
	p := &Port{
		config:  config,
		open:    systemOpener,
		bufSize: DefaultReadBuffer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Device returns the configured device name.
func (p *Port) Device() string {
	return p.config.Device
}

// Open validates the configuration and opens the device. Opening an
// already open port is an error.
func (p *Port) Open() error {
	if err := p.config.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port != nil {
		return errors.WrapInvalid(
			fmt.Errorf("port %s already open", p.config.Device),
			"serialport", "Open", "open port")
	}

	port, err := p.open(p.config.serialConfig())
	if err != nil {
		return errors.WrapTransient(err, "serialport", "Open",
			fmt.Sprintf("open %s", p.config.Device))
	}
	p.port = port
	if p.everOpened {
		p.portMetrics.RecordReopen(p.config.Device)
	}
	p.everOpened = true
	return nil
}

// Receive polls the port once. A timed-out read yields a successful
// empty result; a closed or never-opened port yields a failure.
func (p *Port) Receive() result.Result[[]byte] {
	p.mu.Lock()
	port := p.port
	p.mu.Unlock()

	if port == nil {
		return result.Fail[[]byte](errors.ErrPortNotOpen.Error())
	}

	buf := make([]byte, p.bufSize)
	n, err := port.Read(buf)
	if n > 0 {
		p.metrics.RecordBytesReceived(p.config.Device, n)
		return result.Ok(buf[:n])
	}
	if err != nil && err != io.EOF {
		return result.Failf[[]byte]("%s: %s", errors.ErrReceiveFailed.Error(), err)
	}
	// Timeout with nothing pending. tarm/serial reports this as
	// (0, nil) or (0, io.EOF) depending on the platform.
	return result.Ok([]byte{})
}

// Close releases the device. Closing a port that is not open is a
// no-op.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return nil
	}

	err := p.port.Close()
	p.port = nil
	if err != nil {
		return errors.WrapTransient(err, "serialport", "Close",
			fmt.Sprintf("close %s", p.config.Device))
	}
	return nil
}
