// Package bme280sim is a register-level BME280 simulator implementing the
// tinygo drivers.I2C shape. It is used by host builds and tests in place of
// real hardware.
package bme280sim

import (
	"errors"
	"sync"
)

var (
	ErrNack     = errors.New("bme280sim: nack")
	ErrProtocol = errors.New("bme280sim: protocol error")
)

const (
	regCalib00  = 0x88
	regChipID   = 0xD0
	regReset    = 0xE0
	regCalib26  = 0xE1
	regCtrlMeas = 0xF4
	regStatus   = 0xF3
	regData     = 0xF7

	resetCmd = 0xB6
)

// Datasheet example trimming (T/P) plus a plausible humidity set.
var (
	DefaultCalibFirst = []byte{
		0x70, 0x6b, 0x43, 0x67, 0x18, 0xfc, 0x7d, 0x8e, 0x43, 0xd6, 0xd0, 0x0b, 0x27,
		0x0b, 0x8c, 0x00, 0xf9, 0xff, 0x8c, 0x3c, 0xf8, 0xc6, 0x70, 0x17, 0x00, 0x4b,
	}
	DefaultCalibSecond = []byte{0x6a, 0x01, 0x00, 0x13, 0x29, 0x03, 0x1e}
)

// Default raw readings. With the default calibration they compensate to
// 25.08 °C, 54.997 %RH and 100653.25 Pa.
const (
	DefaultRawPressure    = 415148
	DefaultRawTemperature = 519888
	DefaultRawHumidity    = 30000
)

// Write records one register write.
type Write struct {
	Reg byte
	Val byte
}

// Sim emulates one BME280 at Addr.
type Sim struct {
	mu sync.Mutex

	Addr uint16
	// CalibratingPolls is how many status reads after a reset report the
	// NVM copy as running.
	CalibratingPolls int
	// MeasuringPolls is how many status reads after a forced trigger report
	// a conversion as running.
	MeasuringPolls int

	regs        [256]byte
	calibrating int
	measuring   int

	writes     []Write
	statusRead int
	fail       map[byte]error
}

// New returns a simulator at addr loaded with the default calibration and
// readings.
func New(addr uint16) *Sim {
	s := &Sim{Addr: addr, fail: map[byte]error{}}
	s.regs[regChipID] = 0x60
	s.SetCalibration(DefaultCalibFirst, DefaultCalibSecond)
	s.SetRaw(DefaultRawPressure, DefaultRawTemperature, DefaultRawHumidity)
	return s
}

// SetChipID overrides the id register.
func (s *Sim) SetChipID(id byte) {
	s.mu.Lock()
	s.regs[regChipID] = id
	s.mu.Unlock()
}

// SetCalibration loads both NVM blocks.
func (s *Sim) SetCalibration(first, second []byte) {
	s.mu.Lock()
	copy(s.regs[regCalib00:regCalib00+26], first)
	copy(s.regs[regCalib26:regCalib26+7], second)
	s.mu.Unlock()
}

// SetRaw loads the data burst registers.
func (s *Sim) SetRaw(p, t uint32, h uint16) {
	s.mu.Lock()
	d := s.regs[regData : regData+8]
	d[0], d[1], d[2] = byte(p>>12), byte(p>>4), byte(p<<4)
	d[3], d[4], d[5] = byte(t>>12), byte(t>>4), byte(t<<4)
	d[6], d[7] = byte(h>>8), byte(h)
	s.mu.Unlock()
}

// Fail makes every transaction addressing reg return err. A nil err clears it.
func (s *Sim) Fail(reg byte, err error) {
	s.mu.Lock()
	if err == nil {
		delete(s.fail, reg)
	} else {
		s.fail[reg] = err
	}
	s.mu.Unlock()
}

// Writes returns a copy of all register writes so far.
func (s *Sim) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Write(nil), s.writes...)
}

// StatusReads returns how many times the status register was read.
func (s *Sim) StatusReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusRead
}

// Reg returns the current value of a register.
func (s *Sim) Reg(reg byte) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[reg]
}

// Tx implements drivers.I2C. w is either a register pointer followed by a
// read, or register/value pairs.
func (s *Sim) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr != s.Addr {
		return ErrNack
	}
	if len(w) == 0 {
		return ErrProtocol
	}
	if err := s.fail[w[0]]; err != nil {
		return err
	}
	if len(r) == 0 {
		if len(w)%2 != 0 {
			return ErrProtocol
		}
		for i := 0; i+1 < len(w); i += 2 {
			s.write(w[i], w[i+1])
		}
		return nil
	}
	if len(w) != 1 {
		return ErrProtocol
	}
	reg := w[0]
	for i := range r {
		r[i] = s.read(reg + byte(i))
	}
	return nil
}

func (s *Sim) write(reg, val byte) {
	s.writes = append(s.writes, Write{Reg: reg, Val: val})
	switch reg {
	case regReset:
		if val == resetCmd {
			s.regs[0xF2], s.regs[0xF4], s.regs[0xF5] = 0, 0, 0
			s.calibrating = s.CalibratingPolls
			s.measuring = 0
		}
		return
	case regCtrlMeas:
		if val&0b11 == 0b01 || val&0b11 == 0b10 {
			s.measuring = s.MeasuringPolls
		}
	}
	s.regs[reg] = val
}

func (s *Sim) read(reg byte) byte {
	if reg != regStatus {
		return s.regs[reg]
	}
	s.statusRead++
	var st byte
	if s.calibrating > 0 {
		s.calibrating--
		st |= 0x08
	}
	if s.measuring > 0 {
		s.measuring--
		st |= 0x01
	}
	return st
}
