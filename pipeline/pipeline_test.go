package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarkivaev/serial-to-mqtt/reading"
	"github.com/yarkivaev/serial-to-mqtt/result"
)

// fakeReading controls its publishable status.
type fakeReading struct {
	publishable bool
}

func (r fakeReading) Epoch() reading.Epoch             { return 0 }
func (r fakeReading) Measurement() reading.Measurement { return reading.Measurement{} }
func (r fakeReading) Publishable() bool                { return r.publishable }

// fakeSensor returns a fixed read result.
type fakeSensor struct {
	result result.Result[reading.Reading]
}

func (s fakeSensor) Read() result.Result[reading.Reading] { return s.result }

// fakePublisher counts publishes and returns a fixed result.
type fakePublisher struct {
	count  int
	result result.Result[result.Unit]
}

func (p *fakePublisher) Publish(reading.Reading) result.Result[result.Unit] {
	p.count++
	return p.result
}

// recordingConsole captures said messages.
type recordingConsole struct {
	messages []string
}

func (c *recordingConsole) Say(message string) {
	c.messages = append(c.messages, message)
}

func publishOK() *fakePublisher {
	return &fakePublisher{result: result.Ok(result.Unit{})}
}

func TestSensorPipelinePublishesSuccessfulReading(t *testing.T) {
	publisher := publishOK()
	p := NewSensorPipeline(fakeSensor{result: result.Ok[reading.Reading](fakeReading{publishable: true})},
		publisher, "COM3", &recordingConsole{})
	p.Start()
	assert.Equal(t, 1, publisher.count)
}

func TestSensorPipelineLogsReadFailure(t *testing.T) {
	console := &recordingConsole{}
	publisher := publishOK()
	p := NewSensorPipeline(fakeSensor{result: result.Fail[reading.Reading]("port unavailable")},
		publisher, "COM3", console)
	p.Start()
	require.Len(t, console.messages, 1)
	assert.Equal(t, "COM3: port unavailable", console.messages[0])
	assert.Zero(t, publisher.count)
}

func TestSensorPipelineDropsNonPublishableReading(t *testing.T) {
	console := &recordingConsole{}
	publisher := publishOK()
	p := NewSensorPipeline(fakeSensor{result: result.Ok[reading.Reading](fakeReading{publishable: false})},
		publisher, "COM3", console)
	p.Start()
	assert.Zero(t, publisher.count)
	assert.Empty(t, console.messages)
}

func TestSensorPipelineLogsPublishFailure(t *testing.T) {
	console := &recordingConsole{}
	publisher := &fakePublisher{result: result.Fail[result.Unit]("broker gone")}
	p := NewSensorPipeline(fakeSensor{result: result.Ok[reading.Reading](fakeReading{publishable: true})},
		publisher, "COM3", console)
	p.Start()
	require.Len(t, console.messages, 1)
	assert.Equal(t, "COM3: publish failed: broker gone", console.messages[0])
}

func TestSensorPipelineStopIsNoOp(t *testing.T) {
	p := NewSensorPipeline(fakeSensor{}, publishOK(), "COM3", &recordingConsole{})
	assert.NotPanics(t, p.Stop)
}
