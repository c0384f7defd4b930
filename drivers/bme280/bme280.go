// Package bme280 provides a driver for the Bosch BME280 temperature, humidity
// and pressure sensor on I2C.
//
//	d := bme280.New(bus, bme280.Config{})
//	err := d.Configure(bme280.DefaultSamplingConfig()) // bring-up
//	s, err := d.Read()
//
// Configure runs the full bring-up: chip id check, soft reset, wait for the
// NVM copy to finish, calibration read, register configuration. It may be
// called again after any failure; the driver performs no retries itself.
//
// Compensation uses the integer reference algorithm only; floats appear in
// Sample for convenience and are derived from the fixed-point results.
//
// A Device is not safe for concurrent use. The owner must serialise access.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided, without releasing the bus.
package bme280

import (
	"time"

	"tinygo.org/x/drivers"
)

// State is the bring-up progress of a Device.
type State uint8

const (
	StateUninitialized State = iota
	StateIdentityChecked
	StateResetting
	StateAwaitingCalibration
	StateCalibrationLoaded
	StateConfigured
	StateReady
	StateFailed
)

var stateNames = [...]string{
	StateUninitialized:       "uninitialized",
	StateIdentityChecked:     "identity_checked",
	StateResetting:           "resetting",
	StateAwaitingCalibration: "awaiting_calibration",
	StateCalibrationLoaded:   "calibration_loaded",
	StateConfigured:          "configured",
	StateReady:               "ready",
	StateFailed:              "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Config controls timing and addressing. All fields are optional.
type Config struct {
	// Address defaults to 0x76 if zero.
	Address uint16
	// ResetDelay is waited after the soft reset. Default 10 ms.
	ResetDelay time.Duration
	// PollInterval is the status re-check period. Default 10 ms.
	PollInterval time.Duration
	// CalibrationTimeout bounds the wait for the NVM copy. Default 1 s.
	CalibrationTimeout time.Duration
	// StartupDelay is waited after configuration before the first read.
	// Default 100 ms.
	StartupDelay time.Duration
	// MeasureTimeout bounds a forced-mode conversion. Default 100 ms.
	MeasureTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Address == 0 {
		c.Address = Address
	}
	if c.ResetDelay <= 0 {
		c.ResetDelay = 10 * time.Millisecond
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Millisecond
	}
	if c.CalibrationTimeout <= 0 {
		c.CalibrationTimeout = time.Second
	}
	if c.StartupDelay <= 0 {
		c.StartupDelay = 100 * time.Millisecond
	}
	if c.MeasureTimeout <= 0 {
		c.MeasureTimeout = 100 * time.Millisecond
	}
	return c
}

// Device wraps an I2C connection to a BME280.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cfg   Config
	sc    SamplingConfig
	calib Calibration
	state State
	err   error

	hasCalib bool
	hasLast  bool
	last     Sample

	sleep func(time.Duration)
	now   func() time.Time

	w   [2]byte
	buf [calibFirstLen]byte // largest burst; reused to avoid allocations
}

// New creates a Device. The I2C bus must already be configured.
// It does not touch the device.
func New(bus drivers.I2C, cfg Config) *Device {
	cfg = cfg.withDefaults()
	return &Device{
		bus:     bus,
		Address: cfg.Address,
		cfg:     cfg,
		sleep:   time.Sleep,
		now:     time.Now,
	}
}

// Configure performs the bring-up sequence and applies sc. On error the
// device is left in StateFailed and Configure may simply be called again.
func (d *Device) Configure(sc SamplingConfig) error {
	d.hasCalib = false
	d.hasLast = false
	d.err = nil
	d.state = StateUninitialized
	if err := d.bringUp(sc); err != nil {
		d.state = StateFailed
		d.err = err
		return err
	}
	return nil
}

func (d *Device) bringUp(sc SamplingConfig) error {
	id, err := d.readReg(regChipID)
	if err != nil {
		return err
	}
	if id != ChipID {
		return &ChipIDError{ID: id}
	}
	d.state = StateIdentityChecked

	if err := d.writeReg(regReset, cmdSoftReset); err != nil {
		return err
	}
	d.state = StateResetting
	d.sleep(d.cfg.ResetDelay)

	d.state = StateAwaitingCalibration
	if err := d.waitStatusClear(statusImUpdate, d.cfg.CalibrationTimeout); err != nil {
		return err
	}

	if err := d.readCalibration(); err != nil {
		return err
	}
	d.state = StateCalibrationLoaded

	if err := d.applySampling(sc); err != nil {
		return err
	}
	d.state = StateConfigured

	d.sleep(d.cfg.StartupDelay)
	d.state = StateReady
	return nil
}

// waitStatusClear polls the status register until mask is clear. A failed
// status read aborts the wait.
func (d *Device) waitStatusClear(mask byte, timeout time.Duration) error {
	deadline := d.now().Add(timeout)
	for {
		st, err := d.readReg(regStatus)
		if err != nil {
			return err
		}
		if st&mask == 0 {
			return nil
		}
		if !d.now().Before(deadline) {
			return ErrTimeout
		}
		d.sleep(d.cfg.PollInterval)
	}
}

func (d *Device) readCalibration() error {
	first := d.buf[:calibFirstLen]
	if err := d.readRegs(regCalib00, first); err != nil {
		return err
	}
	var second [calibSecondLen]byte
	if err := d.readRegs(regCalib26, second[:]); err != nil {
		return err
	}
	c, err := DecodeCalibration(first, second[:])
	if err != nil {
		return err
	}
	d.calib = c
	d.hasCalib = true
	return nil
}

// applySampling writes the configuration registers. ctrl_hum only takes
// effect after a subsequent ctrl_meas write, and config writes are ignored
// outside sleep mode, so the order is fixed.
func (d *Device) applySampling(sc SamplingConfig) error {
	config, ctrlMeas, ctrlHum := sc.Registers()
	if err := d.writeReg(regCtrlMeas, ctrlMeas&^0b11); err != nil {
		return err
	}
	if err := d.writeReg(regCtrlHum, ctrlHum); err != nil {
		return err
	}
	if err := d.writeReg(regConfig, config); err != nil {
		return err
	}
	if err := d.writeReg(regCtrlMeas, ctrlMeas); err != nil {
		return err
	}
	d.sc = sc
	return nil
}

// Reset issues a soft reset, waits ResetDelay for the part to restart and
// drops the cached calibration. Configure must be called before the next Read.
func (d *Device) Reset() error {
	d.hasCalib = false
	d.hasLast = false
	d.state = StateUninitialized
	if err := d.writeReg(regReset, cmdSoftReset); err != nil {
		return err
	}
	d.sleep(d.cfg.ResetDelay)
	return nil
}

// Read samples all three channels and compensates them. In forced mode a
// conversion is triggered and awaited first.
func (d *Device) Read() (Sample, error) {
	raw, err := d.ReadRaw()
	if err != nil {
		return Sample{}, err
	}
	s, err := d.Compensate(raw)
	if err != nil {
		return Sample{}, err
	}
	d.last = s
	d.hasLast = true
	return s, nil
}

// ReadRaw returns the uncompensated ADC values.
func (d *Device) ReadRaw() (RawSample, error) {
	if d.state != StateReady {
		return RawSample{}, ErrNotCalibrated
	}
	if d.sc.IsForced() {
		if err := d.triggerForced(); err != nil {
			return RawSample{}, err
		}
	}
	data := d.buf[:dataLen]
	if err := d.readRegs(regData, data); err != nil {
		return RawSample{}, err
	}
	return ParseRawSample(data)
}

func (d *Device) triggerForced() error {
	_, ctrlMeas, _ := d.sc.Registers()
	if err := d.writeReg(regCtrlMeas, ctrlMeas); err != nil {
		return err
	}
	return d.waitStatusClear(statusMeasuring, d.cfg.MeasureTimeout)
}

// Compensate converts raw readings with the cached calibration.
func (d *Device) Compensate(raw RawSample) (Sample, error) {
	if !d.hasCalib {
		return Sample{}, ErrNotCalibrated
	}
	return compensate(raw, &d.calib), nil
}

// Introspection.

func (d *Device) State() State                   { return d.state }
func (d *Device) Err() error                     { return d.err }
func (d *Device) SamplingConfig() SamplingConfig { return d.sc }

func (d *Device) Calibration() (Calibration, bool) { return d.calib, d.hasCalib }
func (d *Device) LastSample() (Sample, bool)       { return d.last, d.hasLast }

// Register helpers. Every transport failure is wrapped in a BusError.

func (d *Device) readReg(reg byte) (byte, error) {
	if err := d.readRegs(reg, d.buf[:1]); err != nil {
		return 0, err
	}
	return d.buf[0], nil
}

func (d *Device) readRegs(reg byte, dst []byte) error {
	d.w[0] = reg
	if err := d.bus.Tx(d.Address, d.w[:1], dst); err != nil {
		return &BusError{Op: "read", Reg: reg, Err: err}
	}
	return nil
}

func (d *Device) writeReg(reg, val byte) error {
	d.w[0] = reg
	d.w[1] = val
	if err := d.bus.Tx(d.Address, d.w[:2], nil); err != nil {
		return &BusError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}
