package protocol

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/yarkivaev/serial-to-mqtt/reading"
	"github.com/yarkivaev/serial-to-mqtt/result"
)

// ChecksumFunc computes the 16-bit checksum of a message payload.
type ChecksumFunc func(payload []byte) uint16

// RollingChecksum is the ksum line protocol checksum: a 16-bit
// rotate-left-then-add over the payload bytes.
func RollingChecksum(payload []byte) uint16 {
	var sum uint16
	for _, b := range payload {
		sum = sum<<1 | sum>>15
		sum += uint16(b)
	}
	return sum
}

// markerPrefix starts a sentinel value token. Sentinel tokens are
// resolved through the configured marker table instead of numeric
// parsing.
const markerPrefix = '$'

// Ksum decodes one framed ksum line message, "!position;value;checksum"
// without the trailing carriage return, into a reading.
type Ksum struct {
	unit     reading.Unit
	clock    reading.Clock
	markers  map[string]float64
	checksum ChecksumFunc
}

// KsumOption configures a Ksum decoder.
type KsumOption func(*Ksum)

// WithMarkerValues sets the mapping from sentinel value tokens (e.g.
// "$49") to their numeric readings.
func WithMarkerValues(markers map[string]float64) KsumOption {
	return func(k *Ksum) {
		k.markers = markers
	}
}

// WithChecksumFunc overrides the checksum algorithm.
func WithChecksumFunc(fn ChecksumFunc) KsumOption {
	return func(k *Ksum) {
		k.checksum = fn
	}
}

// NewKsum creates a ksum decoder producing readings in the given unit,
// timestamped by clock.
func NewKsum(unit reading.Unit, clock reading.Clock, opts ...KsumOption) *Ksum {
	k := &Ksum{
		unit:     unit,
		clock:    clock,
		checksum: RollingChecksum,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Parse validates the message checksum and decodes the value field.
// The framer guarantees three fields with an all-digit checksum; a
// message violating that here is reported as a failure, never a panic.
func (k *Ksum) Parse(raw []byte) result.Result[reading.Reading] {
	message := bytes.TrimPrefix(raw, []byte{'!'})
	fields := bytes.Split(message, []byte{';'})
	if len(fields) != 3 {
		return result.Fail[reading.Reading]("malformed ksum message")
	}
	declared, err := strconv.ParseUint(string(fields[2]), 10, 16)
	if err != nil {
		return result.Failf[reading.Reading]("malformed ksum checksum field: %s", fields[2])
	}
	payload := message[:len(message)-len(fields[2])-1]
	if k.checksum(payload) != uint16(declared) {
		return result.Fail[reading.Reading]("checksum invalid")
	}
	value := k.decodeValue(string(fields[1]))
	if !value.Successful() {
		return result.Fail[reading.Reading](value.Error())
	}
	measurement := reading.NewMeasurement(k.unit, value.Value())
	return result.Ok(reading.New(k.clock.Now(), measurement))
}

// decodeValue parses the value field, resolving sentinel tokens
// through the marker table.
func (k *Ksum) decodeValue(field string) result.Result[float64] {
	if strings.HasPrefix(field, string(markerPrefix)) {
		value, known := k.markers[field]
		if !known {
			return result.Failf[float64]("unknown marker value: %s", field)
		}
		return result.Ok(value)
	}
	value, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return result.Failf[float64]("failed to parse ksum value %q: %v", field, err)
	}
	return result.Ok(value)
}
