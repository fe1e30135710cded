// Package pipeline orchestrates sensor polling. A pipeline is one of a
// small closed set of variants sharing a start/stop contract: a
// single-shot read-check-publish cycle, a loop decorator repeating its
// inner pipeline until stopped, an async decorator running its inner
// pipeline on a dedicated goroutine, and a collection fanning start and
// stop out to many pipelines.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/yarkivaev/serial-to-mqtt/reading"
	"github.com/yarkivaev/serial-to-mqtt/result"
)

// Pipeline is the shared lifecycle contract of all variants. Start
// executes or begins running; Stop requests termination. Blocking
// semantics differ per variant.
type Pipeline interface {
	Start()
	Stop()
}

// Reader is the sensor side of a pipeline: one blocking
// read-and-decode cycle per call.
type Reader interface {
	Read() result.Result[reading.Reading]
}

// Publisher is the broker side of a pipeline.
type Publisher interface {
	Publish(r reading.Reading) result.Result[result.Unit]
}

// Console receives human-readable status lines from pipelines.
type Console interface {
	Say(message string)
}

// SlogConsole routes pipeline status lines to a structured logger.
type SlogConsole struct {
	logger *slog.Logger
}

// NewSlogConsole creates a Console backed by logger, defaulting to
// slog.Default when nil.
func NewSlogConsole(logger *slog.Logger) SlogConsole {
	if logger == nil {
		logger = slog.Default()
	}
	return SlogConsole{logger: logger}
}

// Say logs the message at warn level. Pipeline status lines report
// skipped iterations, never fatal conditions.
func (c SlogConsole) Say(message string) {
	c.logger.Warn(message)
}

// SensorPipeline executes exactly one read-check-publish cycle per
// Start call. A read failure is said to the console and ends the
// iteration; a non-publishable reading is dropped silently; a publish
// failure is said to the console and never fatal.
type SensorPipeline struct {
	sensor    Reader
	publisher Publisher
	port      string
	console   Console
}

// NewSensorPipeline creates a single-shot pipeline. The port label
// prefixes console messages to identify the sensor.
func NewSensorPipeline(sensor Reader, publisher Publisher, port string, console Console) *SensorPipeline {
	return &SensorPipeline{
		sensor:    sensor,
		publisher: publisher,
		port:      port,
		console:   console,
	}
}

// Start runs one iteration.
func (p *SensorPipeline) Start() {
	read := p.sensor.Read()
	if !read.Successful() {
		p.console.Say(fmt.Sprintf("%s: %s", p.port, read.Error()))
		return
	}
	r := read.Value()
	if !r.Publishable() {
		return
	}
	if published := p.publisher.Publish(r); !published.Successful() {
		p.console.Say(fmt.Sprintf("%s: publish failed: %s", p.port, published.Error()))
	}
}

// Stop is a no-op; a single-shot pipeline has no running state.
func (p *SensorPipeline) Stop() {}
