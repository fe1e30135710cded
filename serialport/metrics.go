package serialport

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yarkivaev/serial-to-mqtt/metric"
)

// Metrics holds serialport-specific collectors, registered through a
// metric.Registrar rather than carried in the core set. All recorders
// are nil-safe.
type Metrics struct {
	reopens *prometheus.CounterVec
}

// NewMetrics creates and registers the serialport collectors. Register
// once per registry; a second registration is a duplicate error.
func NewMetrics(registrar metric.Registrar) (*Metrics, error) {
	m := &Metrics{
		reopens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "serialbridge",
				Subsystem: "serial",
				Name:      "reopens_total",
				Help:      "Times a port was opened again after having been closed",
			},
			[]string{"port"},
		),
	}
	if err := registrar.RegisterCounterVec("serialport", "reopens_total", m.reopens); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordReopen counts one close-then-open cycle for a port.
func (m *Metrics) RecordReopen(port string) {
	if m == nil {
		return
	}
	m.reopens.WithLabelValues(port).Inc()
}
