// Package serialvesc implements motor.Controller over a VESC-style UART
// link, adapted from the GPS NMEA producer's serial-port handling
// (_examples/relabs-tech-inertial_computer/internal/app/gps_producer.go):
// same go-serial open options, same buffered-reader read loop, but framing
// length-prefixed binary packets instead of NMEA text sentences.
package serialvesc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/balance-core/internal/motor"
)

// packet op codes, a small subset of the VESC COMM_PACKET_ID space.
const (
	opGetValues    byte = 4
	opSetCurrent   byte = 6
	opSetBrake     byte = 7
	opSetCurrentOffDelay byte = 40
	opSetSwitchFreq byte = 41
	opGetMCConf     byte = 14
)

const startByte = 0x02

// Controller talks motor.Controller over a serial port using a minimal
// length-prefixed framing: [START][LEN][OPCODE][PAYLOAD...][CRC16].
type Controller struct {
	mu   sync.Mutex
	port io.ReadWriteCloser
}

// Open opens portName at baudRate and returns a ready Controller.
func Open(portName string, baudRate uint) (*Controller, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 100,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("motor serial open %s: %w", portName, err)
	}

	return &Controller{port: port}, nil
}

func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port.Close()
}

func (c *Controller) writeFrame(op byte, payload []byte) error {
	buf := make([]byte, 0, len(payload)+4)
	buf = append(buf, startByte, byte(len(payload)+1), op)
	buf = append(buf, payload...)
	crc := crc16(buf[2:])
	var crcBuf [2]byte
	binary.BigEndian.PutUint16(crcBuf[:], crc)
	buf = append(buf, crcBuf[:]...)
	_, err := c.port.Write(buf)
	return err
}

func (c *Controller) readFrame(r *bufio.Reader) (byte, []byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	if b != startByte {
		return 0, nil, fmt.Errorf("serialvesc: bad start byte 0x%02x", b)
	}
	length, err := r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	frame := make([]byte, length)
	if _, err := io.ReadFull(r, frame); err != nil {
		return 0, nil, err
	}
	var crcBuf [2]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		return 0, nil, err
	}
	return frame[0], frame[1:], nil
}

func (c *Controller) Telemetry() (motor.Telemetry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writeFrame(opGetValues, nil); err != nil {
		return motor.Telemetry{}, fmt.Errorf("motor telemetry request: %w", err)
	}
	op, payload, err := c.readFrame(bufio.NewReader(c.port))
	if err != nil {
		return motor.Telemetry{}, fmt.Errorf("motor telemetry read: %w", err)
	}
	if op != opGetValues {
		return motor.Telemetry{}, fmt.Errorf("motor telemetry: unexpected opcode 0x%02x", op)
	}
	return decodeTelemetry(payload)
}

func (c *Controller) Configuration() (motor.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writeFrame(opGetMCConf, nil); err != nil {
		return motor.Config{}, fmt.Errorf("motor config request: %w", err)
	}
	op, payload, err := c.readFrame(bufio.NewReader(c.port))
	if err != nil {
		return motor.Config{}, fmt.Errorf("motor config read: %w", err)
	}
	if op != opGetMCConf {
		return motor.Config{}, fmt.Errorf("motor config: unexpected opcode 0x%02x", op)
	}
	return decodeConfig(payload)
}

func (c *Controller) SetCurrent(amps float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeFrame(opSetCurrent, encodeFloat32(amps, 1000))
}

func (c *Controller) SetBrakeCurrent(amps float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeFrame(opSetBrake, encodeFloat32(amps, 1000))
}

func (c *Controller) SetCurrentOffDelay(seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeFrame(opSetCurrentOffDelay, encodeFloat32(seconds, 1000))
}

func (c *Controller) ChangeSwitchingFrequency(hz float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeFrame(opSetSwitchFreq, encodeFloat32(hz, 1))
}

func encodeFloat32(v float64, scale int32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(int32(v*float64(scale))))
	return buf[:]
}

func decodeFloat32(b []byte, scale int32) float64 {
	v := int32(binary.BigEndian.Uint32(b))
	return float64(v) / float64(scale)
}

func decodeTelemetry(p []byte) (motor.Telemetry, error) {
	if len(p) < 28 {
		return motor.Telemetry{}, fmt.Errorf("serialvesc: short telemetry payload (%d bytes)", len(p))
	}
	return motor.Telemetry{
		TotalCurrentDirectional: decodeFloat32(p[0:4], 100),
		DutyNow:                 decodeFloat32(p[4:8], 1000),
		ERPM:                    decodeFloat32(p[8:12], 1),
		SmoothERPM:              decodeFloat32(p[12:16], 1),
		FetTempFiltered:         decodeFloat32(p[16:20], 10),
		BatteryVoltage:          decodeFloat32(p[20:24], 10),
	}, nil
}

func decodeConfig(p []byte) (motor.Config, error) {
	if len(p) < 20 {
		return motor.Config{}, fmt.Errorf("serialvesc: short config payload (%d bytes)", len(p))
	}
	return motor.Config{
		CurrentMin:         decodeFloat32(p[0:4], 1000),
		CurrentMax:         decodeFloat32(p[4:8], 1000),
		InvertDirection:    p[8] != 0,
		IsDefault:          p[9] != 0,
		FetTempStart:       decodeFloat32(p[10:14], 10),
		SwitchingFrequency: decodeFloat32(p[14:18], 1),
		AuxOutputMode:      int(p[18]),
	}, nil
}

// crc16 is the CCITT polynomial used by the VESC UART protocol.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
