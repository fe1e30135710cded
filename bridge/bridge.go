// Package bridge assembles the whole serial-to-broker service from
// configuration: one polling pipeline per sensor, a shared NATS client,
// and metrics. It follows the Initialize / Start / Stop lifecycle so a
// caller owns ordering and timeouts.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yarkivaev/serial-to-mqtt/config"
	"github.com/yarkivaev/serial-to-mqtt/errors"
	"github.com/yarkivaev/serial-to-mqtt/frame"
	"github.com/yarkivaev/serial-to-mqtt/metric"
	"github.com/yarkivaev/serial-to-mqtt/natspub"
	"github.com/yarkivaev/serial-to-mqtt/pipeline"
	"github.com/yarkivaev/serial-to-mqtt/pkg/retry"
	"github.com/yarkivaev/serial-to-mqtt/protocol"
	"github.com/yarkivaev/serial-to-mqtt/reading"
	"github.com/yarkivaev/serial-to-mqtt/sensor"
	"github.com/yarkivaev/serial-to-mqtt/serialport"
)

// Broker is the slice of natspub.Client the service needs, split out so
// tests can run without a NATS server.
type Broker interface {
	natspub.BrokerConn
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
}

// Deps holds runtime dependencies for the bridge service.
type Deps struct {
	Config   *config.Config
	Broker   Broker
	Registry *metric.Registry
	Logger   *slog.Logger
	Clock    reading.Clock
}

// sensorUnit is one fully assembled sensor chain.
type sensorUnit struct {
	name     string
	port     *serialport.Port
	pipeline pipeline.Pipeline
}

// Service wires sensors to the broker and manages their lifecycles.
type Service struct {
	config   *config.Config
	broker   Broker
	registry *metric.Registry
	logger   *slog.Logger
	clock    reading.Clock

	units       []sensorUnit
	pipelines   *pipeline.Collection
	portMetrics *serialport.Metrics

	retryConfig retry.Config

	running   atomic.Bool
	startTime time.Time
	mu        sync.Mutex
}

// New creates a bridge service. Call Initialize before Start.
func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = reading.SystemClock{}
	}

	return &Service{
		config:      deps.Config,
		broker:      deps.Broker,
		registry:    deps.Registry,
		logger:      logger,
		clock:       clock,
		retryConfig: retry.Quick(),
	}
}

// Initialize validates configuration and assembles the per-sensor
// pipelines. No port or broker connection is touched yet.
func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "bridge", "Initialize", "config")
	}
	if s.broker == nil {
		return errors.WrapInvalid(
			fmt.Errorf("nil broker client"),
			"bridge", "Initialize", "broker")
	}
	if err := s.config.Validate(); err != nil {
		return errors.WrapInvalid(err, "bridge", "Initialize", "config validation")
	}

	core := s.registry.CoreMetrics()
	console := pipeline.NewSlogConsole(s.logger)

	if s.registry != nil && s.portMetrics == nil {
		pm, err := serialport.NewMetrics(s.registry)
		if err != nil {
			return err
		}
		s.portMetrics = pm
	}

	s.units = s.units[:0]
	members := make([]pipeline.Pipeline, 0, len(s.config.Sensors))
	for _, sensorCfg := range s.config.Sensors {
		unit, err := s.buildSensor(sensorCfg, core, console)
		if err != nil {
			return err
		}
		s.units = append(s.units, unit)
		members = append(members, unit.pipeline)
	}
	s.pipelines = pipeline.NewCollection(members...)

	return nil
}

// buildSensor assembles the chain for one configured sensor: serial
// port, optional inter-read delay, frame extraction, protocol decoder,
// publisher, and the looped pipeline running it all.
func (s *Service) buildSensor(
	sensorCfg config.SensorConfig,
	core *metric.Metrics,
	console pipeline.Console,
) (sensorUnit, error) {
	port := serialport.New(serialport.Config{
		Device:      sensorCfg.Device,
		Baud:        sensorCfg.Baud,
		DataBits:    sensorCfg.DataBits,
		Parity:      sensorCfg.Parity,
		StopBits:    sensorCfg.StopBits,
		ReadTimeout: sensorCfg.ReadTimeout.Std(),
	}, serialport.WithMetrics(core), serialport.WithPortMetrics(s.portMetrics))

	var conn sensor.Connection = port
	if delay := sensorCfg.Delay.Std(); delay > 0 {
		if sensorCfg.DelayBefore {
			conn = sensor.NewDelayedBefore(conn, sensor.NewSleepDelay(delay))
		} else {
			conn = sensor.NewDelayedAfter(conn, sensor.NewSleepDelay(delay))
		}
	}

	framedOpts := []sensor.FramedOption{sensor.WithFrameMetrics(core, sensorCfg.Device)}
	if sensorCfg.MaxBuffer > 0 {
		framedOpts = append(framedOpts, sensor.WithMaxBuffer(sensorCfg.MaxBuffer))
	}
	framed := sensor.NewFramedConnection(conn, frame.NewChecksumDelimiter(), framedOpts...)

	decoder, err := s.buildDecoder(sensorCfg)
	if err != nil {
		return sensorUnit{}, err
	}

	publisher := natspub.NewPublisher(s.broker, sensorCfg.Subject,
		natspub.WithPublisherMetrics(core))

	single := pipeline.NewSensorPipeline(
		sensor.New(framed, decoder,
			sensor.WithMetrics(core, sensorCfg.Name, sensorCfg.Protocol)),
		publisher,
		sensorCfg.Device,
		console,
	)

	return sensorUnit{
		name:     sensorCfg.Name,
		port:     port,
		pipeline: pipeline.NewAsync(pipeline.NewLooped(single)),
	}, nil
}

func (s *Service) buildDecoder(sensorCfg config.SensorConfig) (protocol.Decoder, error) {
	unit := reading.NewUnit(sensorCfg.Unit.Name, sensorCfg.Unit.Symbol)

	switch sensorCfg.Protocol {
	case config.ProtocolKsum:
		var opts []protocol.KsumOption
		if len(sensorCfg.Markers) > 0 {
			opts = append(opts, protocol.WithMarkerValues(sensorCfg.Markers))
		}
		return protocol.NewKsum(unit, s.clock, opts...), nil
	case config.ProtocolModbusRTU:
		return protocol.NewModbusRTU(unit, s.clock), nil
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown protocol %q for sensor %s", sensorCfg.Protocol, sensorCfg.Name),
			"bridge", "buildDecoder", "protocol selection")
	}
}

// Start connects the broker, opens every serial port with retry, and
// launches the pipelines. Starting a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return nil
	}
	if s.pipelines == nil {
		return errors.WrapInvalid(
			fmt.Errorf("service not initialized"),
			"bridge", "Start", "state check")
	}

	if err := retry.Do(ctx, s.retryConfig, func() error {
		return s.broker.Connect(ctx)
	}); err != nil {
		return errors.WrapTransient(err, "bridge", "Start", "broker connect")
	}

	core := s.registry.CoreMetrics()
	var opened []sensorUnit
	for _, unit := range s.units {
		if err := retry.Do(ctx, s.retryConfig, unit.port.Open); err != nil {
			for _, u := range opened {
				_ = u.port.Close()
			}
			return errors.WrapTransient(err, "bridge", "Start",
				fmt.Sprintf("open port for sensor %s", unit.name))
		}
		opened = append(opened, unit)
		s.logger.Info("sensor port opened", "sensor", unit.name, "device", unit.port.Device())
	}

	s.pipelines.Start()
	for _, unit := range s.units {
		core.RecordPipelineStatus(unit.name, true)
	}

	s.running.Store(true)
	s.startTime = time.Now()
	s.logger.Info("bridge started", "sensors", len(s.units))

	return nil
}

// Stop halts the pipelines, closes the ports, and disconnects the
// broker, all within the given timeout.
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)

	core := s.registry.CoreMetrics()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.pipelines.Stop()
	}()

	var stopErr error
	select {
	case <-stopped:
	case <-time.After(timeout):
		stopErr = errors.WrapTransient(
			fmt.Errorf("stop timeout after %v", timeout),
			"bridge", "Stop", "pipeline shutdown")
	}

	for _, unit := range s.units {
		if err := unit.port.Close(); err != nil {
			s.logger.Warn("port close failed", "sensor", unit.name, "error", err)
		}
		core.RecordPipelineStatus(unit.name, false)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.broker.Close(ctx); err != nil {
		s.logger.Warn("broker close failed", "error", err)
	}

	s.logger.Info("bridge stopped", "uptime", time.Since(s.startTime).String())

	return stopErr
}

// Running reports whether the service has been started and not yet
// stopped.
func (s *Service) Running() bool {
	return s.running.Load()
}

// Sensors returns the configured sensor names in start order.
func (s *Service) Sensors() []string {
	names := make([]string, len(s.units))
	for i, unit := range s.units {
		names[i] = unit.name
	}
	return names
}
