package protocol

import (
	"encoding/binary"

	"github.com/sigurn/crc16"

	"github.com/yarkivaev/serial-to-mqtt/reading"
	"github.com/yarkivaev/serial-to-mqtt/result"
)

// readHoldingRegisters is the only Modbus function code this decoder
// accepts.
const readHoldingRegisters = 0x03

// registerScale converts the fixed-point register encoding to the
// measurement value (one decimal place).
const registerScale = 10.0

// ModbusRTU decodes raw Modbus RTU response frames. Frames are assumed
// delivered whole per read, so there is no accumulation step; validity
// is length plus CRC-16 (poly 0xA001 reflected, init 0xFFFF) over all
// bytes except the trailing two, which carry the CRC little-endian.
type ModbusRTU struct {
	unit  reading.Unit
	clock reading.Clock
	table *crc16.Table
}

// NewModbusRTU creates a Modbus RTU decoder producing readings in the
// given unit, timestamped by clock.
func NewModbusRTU(unit reading.Unit, clock reading.Clock) *ModbusRTU {
	return &ModbusRTU{
		unit:  unit,
		clock: clock,
		table: crc16.MakeTable(crc16.CRC16_MODBUS),
	}
}

// Parse validates and decodes one frame. The first register's two
// bytes combine big-endian into an unsigned 16-bit raw value, scaled
// down by the fixed-point convention of the sensor.
func (m *ModbusRTU) Parse(raw []byte) result.Result[reading.Reading] {
	if len(raw) < 5 {
		return result.Fail[reading.Reading]("modbus rtu message too short")
	}
	expected := binary.LittleEndian.Uint16(raw[len(raw)-2:])
	if crc16.Checksum(raw[:len(raw)-2], m.table) != expected {
		return result.Fail[reading.Reading]("invalid modbus rtu crc-16")
	}
	if raw[1] != readHoldingRegisters {
		return result.Failf[reading.Reading]("unsupported modbus function code: %d", raw[1])
	}
	byteCount := int(raw[2])
	if len(raw) < 3+byteCount+2 {
		return result.Fail[reading.Reading]("modbus rtu message length mismatch")
	}
	rawValue := binary.BigEndian.Uint16(raw[3:5])
	measurement := reading.NewMeasurement(m.unit, float64(rawValue)/registerScale)
	return result.Ok(reading.New(m.clock.Now(), measurement))
}
