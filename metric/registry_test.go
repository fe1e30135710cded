package metric

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
}

func gatherNames(t *testing.T, registry *Registry) map[string]bool {
	t.Helper()
	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(metricFamilies))
	for _, mf := range metricFamilies {
		names[mf.GetName()] = true
	}
	return names
}

func TestRegistry_RegisterCounter(t *testing.T) {
	registry := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	err := registry.RegisterCounter("serialport", "test_counter", counter)
	require.NoError(t, err)

	counter.Inc()

	names := gatherNames(t, registry)
	assert.True(t, names["test_counter"], "Counter should be registered in Prometheus registry")
}

func TestRegistry_RegisterGauge(t *testing.T) {
	registry := NewRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	})

	err := registry.RegisterGauge("natspub", "test_gauge", gauge)
	require.NoError(t, err)

	gauge.Set(42.0)

	names := gatherNames(t, registry)
	assert.True(t, names["test_gauge"], "Gauge should be registered in Prometheus registry")
}

func TestRegistry_RegisterVectors(t *testing.T) {
	registry := NewRegistry()

	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_counter_vec",
		Help: "A test counter vector",
	}, []string{"sensor"})

	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "test_gauge_vec",
		Help: "A test gauge vector",
	}, []string{"sensor"})

	histogramVec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_histogram_vec",
		Help:    "A test histogram vector",
		Buckets: prometheus.DefBuckets,
	}, []string{"sensor"})

	require.NoError(t, registry.RegisterCounterVec("bridge", "test_counter_vec", counterVec))
	require.NoError(t, registry.RegisterGaugeVec("bridge", "test_gauge_vec", gaugeVec))
	require.NoError(t, registry.RegisterHistogramVec("bridge", "test_histogram_vec", histogramVec))

	counterVec.WithLabelValues("boiler").Inc()
	gaugeVec.WithLabelValues("boiler").Set(1)
	histogramVec.WithLabelValues("boiler").Observe(0.25)

	names := gatherNames(t, registry)
	assert.True(t, names["test_counter_vec"])
	assert.True(t, names["test_gauge_vec"])
	assert.True(t, names["test_histogram_vec"])
}

func TestRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewRegistry()

	counter1 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter",
	})

	counter2 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter", // Same help to avoid Prometheus validation error
	})

	err := registry.RegisterCounter("serialport", "duplicate_counter", counter1)
	require.NoError(t, err)

	err = registry.RegisterCounter("serialport", "duplicate_counter", counter2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "removable_counter",
		Help: "A removable counter",
	})

	require.NoError(t, registry.RegisterCounter("serialport", "removable_counter", counter))

	assert.True(t, registry.Unregister("serialport", "removable_counter"))
	assert.False(t, registry.Unregister("serialport", "removable_counter"),
		"second unregister should report missing metric")

	names := gatherNames(t, registry)
	assert.False(t, names["removable_counter"])
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	errs := make(chan error, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", n),
				Help: "A concurrent counter",
			})
			errs <- registry.RegisterCounter("serialport", fmt.Sprintf("concurrent_counter_%d", n), counter)
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestRegistry_CoreMetricsNilSafe(t *testing.T) {
	var registry *Registry
	core := registry.CoreMetrics()
	assert.Nil(t, core)

	// Recording on nil core metrics must not panic.
	core.RecordPipelineStatus("boiler", true)
	core.RecordBytesReceived("/dev/ttyUSB0", 64)
	core.RecordFrameExtracted("/dev/ttyUSB0")
	core.RecordReadingDecoded("boiler", "ksum")
	core.RecordDecodeFailure("boiler", "ksum")
	core.RecordReadingPublished("sensors.boiler")
	core.RecordPublishFailure("sensors.boiler")
	core.RecordReadDuration("boiler", 50*time.Millisecond)
	core.RecordBrokerStatus(true)
	core.RecordBrokerReconnect()
	core.RecordBrokerRTT(3 * time.Millisecond)
}

func TestMetrics_Recorders(t *testing.T) {
	registry := NewRegistry()
	core := registry.CoreMetrics()

	core.RecordPipelineStatus("boiler", true)
	core.RecordBytesReceived("/dev/ttyUSB0", 17)
	core.RecordFrameExtracted("/dev/ttyUSB0")
	core.RecordReadingDecoded("boiler", "ksum")
	core.RecordDecodeFailure("boiler", "modbus-rtu")
	core.RecordReadingPublished("sensors.boiler")
	core.RecordPublishFailure("sensors.boiler")
	core.RecordReadDuration("boiler", 120*time.Millisecond)
	core.RecordBrokerStatus(false)
	core.RecordBrokerReconnect()
	core.RecordBrokerRTT(2 * time.Millisecond)

	names := gatherNames(t, registry)
	for _, want := range []string{
		"serialbridge_pipeline_status",
		"serialbridge_serial_bytes_received_total",
		"serialbridge_serial_frames_extracted_total",
		"serialbridge_decode_readings_total",
		"serialbridge_decode_failures_total",
		"serialbridge_publish_readings_total",
		"serialbridge_publish_failures_total",
		"serialbridge_pipeline_read_duration_seconds",
		"serialbridge_broker_connected",
		"serialbridge_broker_reconnects_total",
	} {
		assert.True(t, names[want], "expected metric %s to be gathered", want)
	}
}
