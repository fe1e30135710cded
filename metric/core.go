package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all bridge-level metrics (not sensor-specific).
// All recorder methods are nil-safe so instrumented code can run
// without a registry wired in, e.g. in unit tests.
type Metrics struct {
	// Pipeline metrics
	PipelineStatus    *prometheus.GaugeVec
	BytesReceived     *prometheus.CounterVec
	FramesExtracted   *prometheus.CounterVec
	ReadingsDecoded   *prometheus.CounterVec
	DecodeFailures    *prometheus.CounterVec
	ReadingsPublished *prometheus.CounterVec
	PublishFailures   *prometheus.CounterVec
	ReadDuration      *prometheus.HistogramVec

	// Broker metrics
	BrokerConnected  prometheus.Gauge
	BrokerReconnects prometheus.Counter
	BrokerRTT        prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all bridge metrics
func NewMetrics() *Metrics {
	return &Metrics{
		PipelineStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "serialbridge",
				Subsystem: "pipeline",
				Name:      "status",
				Help:      "Pipeline status (0=stopped, 1=running)",
			},
			[]string{"sensor"},
		),

		BytesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "serialbridge",
				Subsystem: "serial",
				Name:      "bytes_received_total",
				Help:      "Total number of bytes read from the serial port",
			},
			[]string{"port"},
		),

		FramesExtracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "serialbridge",
				Subsystem: "serial",
				Name:      "frames_extracted_total",
				Help:      "Total number of complete frames extracted from the byte stream",
			},
			[]string{"port"},
		),

		ReadingsDecoded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "serialbridge",
				Subsystem: "decode",
				Name:      "readings_total",
				Help:      "Total number of readings decoded successfully",
			},
			[]string{"sensor", "protocol"},
		),

		DecodeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "serialbridge",
				Subsystem: "decode",
				Name:      "failures_total",
				Help:      "Total number of frames that failed to decode",
			},
			[]string{"sensor", "protocol"},
		),

		ReadingsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "serialbridge",
				Subsystem: "publish",
				Name:      "readings_total",
				Help:      "Total number of readings published to the broker",
			},
			[]string{"subject"},
		),

		PublishFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "serialbridge",
				Subsystem: "publish",
				Name:      "failures_total",
				Help:      "Total number of failed publish attempts",
			},
			[]string{"subject"},
		),

		ReadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "serialbridge",
				Subsystem: "pipeline",
				Name:      "read_duration_seconds",
				Help:      "Time spent producing one reading, including inter-read delay",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"sensor"},
		),

		BrokerConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "serialbridge",
				Subsystem: "broker",
				Name:      "connected",
				Help:      "Broker connection status (0=disconnected, 1=connected)",
			},
		),

		BrokerReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "serialbridge",
				Subsystem: "broker",
				Name:      "reconnects_total",
				Help:      "Total number of broker reconnections",
			},
		),

		BrokerRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "serialbridge",
				Subsystem: "broker",
				Name:      "rtt_milliseconds",
				Help:      "Broker round-trip time in milliseconds",
			},
		),
	}
}

// RecordPipelineStatus updates the running/stopped gauge for a pipeline
func (c *Metrics) RecordPipelineStatus(sensor string, running bool) {
	if c == nil {
		return
	}
	value := 0.0
	if running {
		value = 1.0
	}
	c.PipelineStatus.WithLabelValues(sensor).Set(value)
}

// RecordBytesReceived adds to the byte counter for a port
func (c *Metrics) RecordBytesReceived(port string, n int) {
	if c == nil {
		return
	}
	c.BytesReceived.WithLabelValues(port).Add(float64(n))
}

// RecordFrameExtracted increments the frame counter for a port
func (c *Metrics) RecordFrameExtracted(port string) {
	if c == nil {
		return
	}
	c.FramesExtracted.WithLabelValues(port).Inc()
}

// RecordReadingDecoded increments the decoded reading counter
func (c *Metrics) RecordReadingDecoded(sensor, protocol string) {
	if c == nil {
		return
	}
	c.ReadingsDecoded.WithLabelValues(sensor, protocol).Inc()
}

// RecordDecodeFailure increments the decode failure counter
func (c *Metrics) RecordDecodeFailure(sensor, protocol string) {
	if c == nil {
		return
	}
	c.DecodeFailures.WithLabelValues(sensor, protocol).Inc()
}

// RecordReadingPublished increments the published reading counter
func (c *Metrics) RecordReadingPublished(subject string) {
	if c == nil {
		return
	}
	c.ReadingsPublished.WithLabelValues(subject).Inc()
}

// RecordPublishFailure increments the publish failure counter
func (c *Metrics) RecordPublishFailure(subject string) {
	if c == nil {
		return
	}
	c.PublishFailures.WithLabelValues(subject).Inc()
}

// RecordReadDuration records the time one read cycle took
func (c *Metrics) RecordReadDuration(sensor string, duration time.Duration) {
	if c == nil {
		return
	}
	c.ReadDuration.WithLabelValues(sensor).Observe(duration.Seconds())
}

// RecordBrokerStatus updates the broker connection gauge
func (c *Metrics) RecordBrokerStatus(connected bool) {
	if c == nil {
		return
	}
	value := 0.0
	if connected {
		value = 1.0
	}
	c.BrokerConnected.Set(value)
}

// RecordBrokerReconnect increments the reconnection counter
func (c *Metrics) RecordBrokerReconnect() {
	if c == nil {
		return
	}
	c.BrokerReconnects.Inc()
}

// RecordBrokerRTT updates the broker round-trip time
func (c *Metrics) RecordBrokerRTT(rtt time.Duration) {
	if c == nil {
		return
	}
	c.BrokerRTT.Set(float64(rtt.Milliseconds()))
}
