package bme280

import (
	"errors"

	"envnode/x/conv"
)

// Errors returned by the driver.
var (
	ErrInvalidChipID = errors.New("bme280: invalid chip id")
	ErrI2C           = errors.New("bme280: i2c error")
	ErrTimeout       = errors.New("bme280: timeout")
	ErrNotCalibrated = errors.New("bme280: not calibrated")

	// Reserved for transports with integrity checking; the I2C path does
	// not produce them.
	ErrNoData      = errors.New("bme280: no data")
	ErrInvalidData = errors.New("bme280: invalid data")
	ErrChecksum    = errors.New("bme280: checksum error")
)

// ChipIDError reports an unexpected id register value. It matches
// ErrInvalidChipID with errors.Is.
type ChipIDError struct {
	ID byte
}

func (e *ChipIDError) Error() string {
	var b [2]byte
	return "bme280: invalid chip id 0x" + string(conv.U8Hex(b[:], e.ID))
}

func (e *ChipIDError) Is(target error) bool { return target == ErrInvalidChipID }

// BusError wraps a transport failure. It matches ErrI2C with errors.Is and
// unwraps to the transport's own error.
type BusError struct {
	Op  string // "read" or "write"
	Reg byte
	Err error
}

func (e *BusError) Error() string {
	var b [2]byte
	s := "bme280: i2c " + e.Op + " 0x" + string(conv.U8Hex(b[:], e.Reg))
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *BusError) Unwrap() error        { return e.Err }
func (e *BusError) Is(target error) bool { return target == ErrI2C }
