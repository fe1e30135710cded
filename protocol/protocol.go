// Package protocol decodes framed sensor messages into readings.
//
// Two wire protocols are supported: the ksum line protocol, a text
// format of semicolon-separated fields guarded by a 16-bit additive
// checksum, and Modbus RTU read-holding-registers responses guarded by
// CRC-16. Both decoders share one contract so a sensor can stay
// protocol-agnostic; the measurement unit and the clock are injected
// at construction.
package protocol

import (
	"github.com/yarkivaev/serial-to-mqtt/reading"
	"github.com/yarkivaev/serial-to-mqtt/result"
)

// Decoder validates a framed message and decodes it into a timestamped
// reading. Validation failures and decode failures are reported as
// result failures; no decoder panics on malformed input.
type Decoder interface {
	Parse(raw []byte) result.Result[reading.Reading]
}
