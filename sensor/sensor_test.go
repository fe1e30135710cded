package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarkivaev/serial-to-mqtt/frame"
	"github.com/yarkivaev/serial-to-mqtt/metric"
	"github.com/yarkivaev/serial-to-mqtt/reading"
	"github.com/yarkivaev/serial-to-mqtt/result"
)

// fakeConnection replays a scripted sequence of receive results.
type fakeConnection struct {
	results []result.Result[[]byte]
	index   int
	opened  int
	closed  int
}

func (c *fakeConnection) Open() error { c.opened++; return nil }
func (c *fakeConnection) Close() error { c.closed++; return nil }

func (c *fakeConnection) Receive() result.Result[[]byte] {
	r := c.results[c.index]
	c.index++
	return r
}

func chunks(parts ...string) []result.Result[[]byte] {
	var results []result.Result[[]byte]
	for _, p := range parts {
		results = append(results, result.Ok([]byte(p)))
	}
	return results
}

// fakeDelay counts waits instead of sleeping.
type fakeDelay struct {
	called int
}

func (d *fakeDelay) Wait() { d.called++ }

// fakeDecoder records the bytes it was handed.
type fakeDecoder struct {
	parsed []string
	result result.Result[reading.Reading]
}

func (d *fakeDecoder) Parse(raw []byte) result.Result[reading.Reading] {
	d.parsed = append(d.parsed, string(raw))
	return d.result
}

func TestDelayedConnectionWaitsAfterRead(t *testing.T) {
	conn := &fakeConnection{results: chunks("data")}
	delay := &fakeDelay{}
	delayed := NewDelayedAfter(conn, delay)
	delayed.Receive()
	assert.Equal(t, 1, delay.called)
}

func TestDelayedConnectionReturnsInnerResult(t *testing.T) {
	conn := &fakeConnection{results: chunks("data")}
	delayed := NewDelayedAfter(conn, &fakeDelay{})
	res := delayed.Receive()
	require.True(t, res.Successful())
	assert.Equal(t, "data", string(res.Value()))
}

func TestDelayedConnectionPropagatesError(t *testing.T) {
	conn := &fakeConnection{results: []result.Result[[]byte]{result.Fail[[]byte]("connection error")}}
	delayed := NewDelayedAfter(conn, &fakeDelay{})
	res := delayed.Receive()
	assert.False(t, res.Successful())
}

func TestDelayedBeforeWaitsBeforeRead(t *testing.T) {
	order := []string{}
	delay := waitRecorder{order: &order}
	conn := receiveRecorder{order: &order}
	delayed := NewDelayedBefore(conn, delay)
	delayed.Receive()
	assert.Equal(t, []string{"wait", "receive"}, order)
}

type waitRecorder struct{ order *[]string }

func (w waitRecorder) Wait() { *w.order = append(*w.order, "wait") }

type receiveRecorder struct{ order *[]string }

func (r receiveRecorder) Open() error  { return nil }
func (r receiveRecorder) Close() error { return nil }
func (r receiveRecorder) Receive() result.Result[[]byte] {
	*r.order = append(*r.order, "receive")
	return result.Ok([]byte(nil))
}

func TestFramedConnectionAssemblesMessageFromChunks(t *testing.T) {
	conn := &fakeConnection{results: chunks("!1;25", ".5;38444", "\r!2;30")}
	framed := NewFramedConnection(conn, frame.NewChecksumDelimiter())
	res := framed.Receive()
	require.True(t, res.Successful())
	assert.Equal(t, "!1;25.5;38444", string(res.Value()))
}

func TestFramedConnectionPropagatesError(t *testing.T) {
	conn := &fakeConnection{results: []result.Result[[]byte]{result.Fail[[]byte]("connection error")}}
	framed := NewFramedConnection(conn, frame.NewChecksumDelimiter())
	res := framed.Receive()
	require.False(t, res.Successful())
	assert.Equal(t, "connection error", res.Error())
}

func TestFramedConnectionQueuesExtraMessages(t *testing.T) {
	conn := &fakeConnection{results: chunks(
		"!1;25.5;38444\r!2;30.0;12345\r!3",
		";40.0;99999\r!4",
	)}
	framed := NewFramedConnection(conn, frame.NewChecksumDelimiter())

	first := framed.Receive()
	require.True(t, first.Successful())
	assert.Equal(t, "!1;25.5;38444", string(first.Value()))

	second := framed.Receive()
	require.True(t, second.Successful())
	assert.Equal(t, "!2;30.0;12345", string(second.Value()))

	third := framed.Receive()
	require.True(t, third.Successful())
	assert.Equal(t, "!3;40.0;99999", string(third.Value()))
}

func TestFramedConnectionToleratesEmptyReads(t *testing.T) {
	conn := &fakeConnection{results: chunks("!1;25", "", ".5;38444", "", "\r!2")}
	framed := NewFramedConnection(conn, frame.NewChecksumDelimiter())
	res := framed.Receive()
	require.True(t, res.Successful())
	assert.Equal(t, "!1;25.5;38444", string(res.Value()))
}

func TestFramedConnectionCapsAccumulator(t *testing.T) {
	flood := make([]byte, 4096)
	for i := range flood {
		flood[i] = 'x'
	}
	conn := &fakeConnection{results: chunks(string(flood), "!1;25.5;38444\r")}
	framed := NewFramedConnection(conn, frame.NewChecksumDelimiter(), WithMaxBuffer(16))
	res := framed.Receive()
	require.True(t, res.Successful())
	assert.Equal(t, "!1;25.5;38444", string(res.Value()))
}

func TestFramedConnectionForwardsOpenAndClose(t *testing.T) {
	conn := &fakeConnection{}
	framed := NewFramedConnection(conn, frame.NewChecksumDelimiter())
	require.NoError(t, framed.Open())
	require.NoError(t, framed.Close())
	assert.Equal(t, 1, conn.opened)
	assert.Equal(t, 1, conn.closed)
}

func TestSensorDecodesReceivedMessage(t *testing.T) {
	conn := &fakeConnection{results: chunks("!1;25.5;38444")}
	want := reading.New(reading.Epoch(1), reading.NewMeasurement(reading.NewUnit("celsius", "°C"), 25.5))
	decoder := &fakeDecoder{result: result.Ok(want)}
	s := New(conn, decoder)
	res := s.Read()
	require.True(t, res.Successful())
	assert.Equal(t, []string{"!1;25.5;38444"}, decoder.parsed)
	assert.Equal(t, want, res.Value())
}

func TestSensorPropagatesReceiveFailureWithoutDecoding(t *testing.T) {
	conn := &fakeConnection{results: []result.Result[[]byte]{result.Fail[[]byte]("port unavailable")}}
	decoder := &fakeDecoder{}
	s := New(conn, decoder)
	res := s.Read()
	require.False(t, res.Successful())
	assert.Equal(t, "port unavailable", res.Error())
	assert.Empty(t, decoder.parsed)
}

func TestSensorReturnsDecoderFailureUnchanged(t *testing.T) {
	conn := &fakeConnection{results: chunks("!1;25.5;38444")}
	decoder := &fakeDecoder{result: result.Fail[reading.Reading]("checksum invalid")}
	s := New(conn, decoder)
	res := s.Read()
	require.False(t, res.Successful())
	assert.Equal(t, "checksum invalid", res.Error())
}

// counterValue finds a counter sample by family name and label set.
func counterValue(t *testing.T, registry *metric.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					matched = false
				}
			}
			if matched {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestFramedConnectionCountsExtractedFrames(t *testing.T) {
	registry := metric.NewRegistry()
	conn := &fakeConnection{results: chunks("!1;25.5;38444\r!2;30.0;12345\r!3")}
	framed := NewFramedConnection(conn, frame.NewChecksumDelimiter(),
		WithFrameMetrics(registry.CoreMetrics(), "/dev/ttyUSB0"))

	require.True(t, framed.Receive().Successful())
	require.True(t, framed.Receive().Successful())

	got := counterValue(t, registry, "serialbridge_serial_frames_extracted_total",
		map[string]string{"port": "/dev/ttyUSB0"})
	assert.Equal(t, 2.0, got, "both frames were extracted in one pass")
}

func TestSensorCountsDecodeOutcomes(t *testing.T) {
	registry := metric.NewRegistry()
	core := registry.CoreMetrics()
	labels := map[string]string{"sensor": "boiler", "protocol": "ksum"}

	want := reading.New(reading.Epoch(1), reading.NewMeasurement(reading.NewUnit("celsius", "°C"), 25.5))
	ok := New(&fakeConnection{results: chunks("!1;25.5;38444")},
		&fakeDecoder{result: result.Ok(want)},
		WithMetrics(core, "boiler", "ksum"))
	require.True(t, ok.Read().Successful())

	bad := New(&fakeConnection{results: chunks("!1;25.5;0")},
		&fakeDecoder{result: result.Fail[reading.Reading]("checksum invalid")},
		WithMetrics(core, "boiler", "ksum"))
	require.False(t, bad.Read().Successful())

	assert.Equal(t, 1.0, counterValue(t, registry, "serialbridge_decode_readings_total", labels))
	assert.Equal(t, 1.0, counterValue(t, registry, "serialbridge_decode_failures_total", labels))
}

func TestSensorReceiveFailureIsNotADecodeFailure(t *testing.T) {
	registry := metric.NewRegistry()
	s := New(&fakeConnection{results: []result.Result[[]byte]{result.Fail[[]byte]("port unavailable")}},
		&fakeDecoder{},
		WithMetrics(registry.CoreMetrics(), "boiler", "ksum"))
	require.False(t, s.Read().Successful())

	labels := map[string]string{"sensor": "boiler", "protocol": "ksum"}
	assert.Equal(t, 0.0, counterValue(t, registry, "serialbridge_decode_failures_total", labels))
	assert.Equal(t, 0.0, counterValue(t, registry, "serialbridge_decode_readings_total", labels))
}

func TestSensorObservesReadDuration(t *testing.T) {
	registry := metric.NewRegistry()
	want := reading.New(reading.Epoch(1), reading.NewMeasurement(reading.NewUnit("celsius", "°C"), 25.5))
	s := New(&fakeConnection{results: chunks("!1;25.5;38444")},
		&fakeDecoder{result: result.Ok(want)},
		WithMetrics(registry.CoreMetrics(), "boiler", "ksum"))
	require.True(t, s.Read().Successful())

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	var samples uint64
	for _, mf := range families {
		if mf.GetName() != "serialbridge_pipeline_read_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			samples += m.GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(1), samples)
}
