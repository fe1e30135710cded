package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarkivaev/serial-to-mqtt/reading"
)

// Captured two-register response: slave 1, function 3, registers
// 0x000A and 0x0001, CRC 0xF11B appended little-endian.
var twoRegisterFrame = []byte{0x01, 0x03, 0x04, 0x00, 0x0A, 0x00, 0x01, 0x1B, 0xF1}

// One-register response carrying raw value 250 (25.0 scaled).
var oneRegisterFrame = []byte{0x01, 0x03, 0x02, 0x00, 0xFA, 0x38, 0x07}

func TestModbusParsesValidFrame(t *testing.T) {
	decoder := NewModbusRTU(celsius(), fixedClock{epoch: 99})
	res := decoder.Parse(twoRegisterFrame)
	require.True(t, res.Successful(), "valid frame rejected: %v", twoRegisterFrame)
	r := res.Value()
	assert.Equal(t, reading.Epoch(99), r.Epoch())
	assert.InDelta(t, 1.0, r.Measurement().Value(), 1e-9)
}

func TestModbusScalesFirstRegister(t *testing.T) {
	decoder := NewModbusRTU(celsius(), fixedClock{})
	res := decoder.Parse(oneRegisterFrame)
	require.True(t, res.Successful())
	assert.InDelta(t, 25.0, res.Value().Measurement().Value(), 1e-9)
}

func TestModbusRejectsShortFrame(t *testing.T) {
	decoder := NewModbusRTU(celsius(), fixedClock{})
	res := decoder.Parse([]byte{0x01, 0x03, 0x02, 0x00})
	require.False(t, res.Successful())
	assert.Equal(t, "modbus rtu message too short", res.Error())
}

func TestModbusRejectsCorruptedCRC(t *testing.T) {
	decoder := NewModbusRTU(celsius(), fixedClock{})
	corrupted := append([]byte(nil), twoRegisterFrame...)
	corrupted[len(corrupted)-1] ^= 0xFF
	res := decoder.Parse(corrupted)
	require.False(t, res.Successful())
	assert.Equal(t, "invalid modbus rtu crc-16", res.Error())
}

func TestModbusAnySingleBitFlipInvalidatesFrame(t *testing.T) {
	decoder := NewModbusRTU(celsius(), fixedClock{})
	for i := 0; i < len(twoRegisterFrame)-2; i++ {
		for bit := 0; bit < 8; bit++ {
			flipped := append([]byte(nil), twoRegisterFrame...)
			flipped[i] ^= 1 << bit
			res := decoder.Parse(flipped)
			assert.False(t, res.Successful(), "bit %d of byte %d did not invalidate frame", bit, i)
		}
	}
}

func TestModbusRejectsUnsupportedFunctionCode(t *testing.T) {
	decoder := NewModbusRTU(celsius(), fixedClock{})
	res := decoder.Parse([]byte{0x01, 0x06, 0x02, 0x00, 0x0A, 0x38, 0x8F})
	require.False(t, res.Successful())
	assert.Equal(t, "unsupported modbus function code: 6", res.Error())
}

func TestModbusRejectsLengthMismatch(t *testing.T) {
	decoder := NewModbusRTU(celsius(), fixedClock{})
	res := decoder.Parse([]byte{0x01, 0x03, 0x09, 0x00, 0x0A, 0x00, 0x01, 0x36, 0x30})
	require.False(t, res.Successful())
	assert.Equal(t, "modbus rtu message length mismatch", res.Error())
}
