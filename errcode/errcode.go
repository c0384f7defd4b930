package errcode

import (
	"errors"

	"envnode/drivers/bme280"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK                Code = "ok"
	Busy              Code = "busy"
	Unsupported       Code = "unsupported"
	InvalidParams     Code = "invalid_params"
	UnknownCapability Code = "unknown_capability"
	HALNotReady       Code = "hal_not_ready"
	InvalidTopic      Code = "invalid_topic"

	UnknownBus Code = "unknown_bus"
	BusInUse   Code = "bus_in_use"
	NotClaimed Code = "not_claimed"
	Timeout    Code = "timeout"

	// Sensor driver outcomes.
	IOError       Code = "io_error"
	InvalidChipID Code = "invalid_chip_id"
	NotCalibrated Code = "not_calibrated"
	InvalidData   Code = "invalid_data"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps low-level driver errors to a Code.
func MapDriverErr(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, bme280.ErrInvalidChipID):
		return InvalidChipID
	case errors.Is(err, bme280.ErrTimeout):
		return Timeout
	case errors.Is(err, bme280.ErrNotCalibrated):
		return NotCalibrated
	case errors.Is(err, bme280.ErrI2C):
		return IOError
	case errors.Is(err, bme280.ErrNoData),
		errors.Is(err, bme280.ErrInvalidData),
		errors.Is(err, bme280.ErrChecksum):
		return InvalidData
	}
	return Of(err)
}
