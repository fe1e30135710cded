// Package reading provides the value objects for decoded sensor data:
// a physical unit, a measurement, and a timestamped reading. A Clock
// abstraction supplies timestamps so decoders stay testable.
package reading

import "time"

// Unit is the physical unit of a measurement, e.g. ("celsius", "°C").
type Unit struct {
	name   string
	symbol string
}

// NewUnit creates a Unit from name and symbol.
func NewUnit(name, symbol string) Unit {
	return Unit{name: name, symbol: symbol}
}

// Name returns the unit name.
func (u Unit) Name() string { return u.name }

// Symbol returns the unit symbol.
func (u Unit) Symbol() string { return u.symbol }

// Measurement is a numeric value with its unit. The unit is fixed at
// decoder construction time, not parsed from the wire.
type Measurement struct {
	unit  Unit
	value float64
}

// NewMeasurement creates a Measurement.
func NewMeasurement(unit Unit, value float64) Measurement {
	return Measurement{unit: unit, value: value}
}

// Unit returns the measurement unit.
func (m Measurement) Unit() Unit { return m.unit }

// Value returns the numeric measurement value.
func (m Measurement) Value() float64 { return m.value }

// Epoch is a point in time as milliseconds since the Unix epoch.
type Epoch int64

// Milliseconds returns the numeric timestamp value.
func (e Epoch) Milliseconds() int64 { return int64(e) }

// Clock supplies the current time as an Epoch.
type Clock interface {
	Now() Epoch
}

// SystemClock is the wall-clock implementation of Clock.
type SystemClock struct{}

// Now returns the current time in milliseconds since the Unix epoch.
func (SystemClock) Now() Epoch {
	return Epoch(time.Now().UnixMilli())
}

// Reading is a timestamped measurement. Publishable is checked by the
// pipeline before sending; domain-specific readings may suppress
// publication, the generic reading never does.
type Reading interface {
	Epoch() Epoch
	Measurement() Measurement
	Publishable() bool
}

type generic struct {
	epoch       Epoch
	measurement Measurement
}

// New creates a generic Reading, which is always publishable.
func New(epoch Epoch, measurement Measurement) Reading {
	return generic{epoch: epoch, measurement: measurement}
}

func (g generic) Epoch() Epoch             { return g.epoch }
func (g generic) Measurement() Measurement { return g.measurement }
func (g generic) Publishable() bool        { return true }
