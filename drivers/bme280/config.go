package bme280

import "time"

// Oversampling selects the number of samples averaged per measurement.
// Codes are sequential: skip=0, x1=1 ... x16=5.
type Oversampling uint8

const (
	SamplingSkip Oversampling = iota
	Sampling1X
	Sampling2X
	Sampling4X
	Sampling8X
	Sampling16X
)

// Filter is the IIR filter coefficient.
type Filter uint8

const (
	FilterOff Filter = iota
	Filter2X
	Filter4X
	Filter8X
	Filter16X
)

// Mode is the sensor power mode.
type Mode uint8

const (
	ModeSleep Mode = iota
	ModeForced
	ModeNormal
)

var modeCodes = [...]byte{
	ModeSleep:  0b00,
	ModeForced: 0b01,
	ModeNormal: 0b11,
}

func (m Mode) code() byte {
	if int(m) < len(modeCodes) {
		return modeCodes[m]
	}
	return modeCodes[ModeSleep]
}

// Standby is the inactive period between conversions in normal mode.
// The register encoding does not follow declaration order; see standbyCodes.
type Standby uint8

const (
	Standby0_5ms Standby = iota
	Standby10ms
	Standby20ms
	Standby62_5ms
	Standby125ms
	Standby250ms
	Standby500ms
	Standby1000ms
)

var standbyCodes = [...]byte{
	Standby0_5ms:  0b000,
	Standby10ms:   0b110,
	Standby20ms:   0b111,
	Standby62_5ms: 0b001,
	Standby125ms:  0b010,
	Standby250ms:  0b011,
	Standby500ms:  0b100,
	Standby1000ms: 0b101,
}

var standbyDurations = [...]time.Duration{
	Standby0_5ms:  500 * time.Microsecond,
	Standby10ms:   10 * time.Millisecond,
	Standby20ms:   20 * time.Millisecond,
	Standby62_5ms: 62500 * time.Microsecond,
	Standby125ms:  125 * time.Millisecond,
	Standby250ms:  250 * time.Millisecond,
	Standby500ms:  500 * time.Millisecond,
	Standby1000ms: 1000 * time.Millisecond,
}

func (s Standby) code() byte {
	if int(s) < len(standbyCodes) {
		return standbyCodes[s]
	}
	return standbyCodes[Standby0_5ms]
}

// Duration returns the nominal standby time.
func (s Standby) Duration() time.Duration {
	if int(s) < len(standbyDurations) {
		return standbyDurations[s]
	}
	return 0
}

// SamplingConfig is the measurement configuration applied during bring-up.
// It is a plain value: the With* methods return modified copies.
// The zero value skips all channels and keeps the sensor asleep.
type SamplingConfig struct {
	Standby     Standby
	Filter      Filter
	Temperature Oversampling
	Pressure    Oversampling
	Humidity    Oversampling
	Mode        Mode
	SPI3W       bool
}

// DefaultSamplingConfig is the profile used when the caller has no preference:
// 2x oversampling on every channel, normal mode, 1 s standby, IIR x2.
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{}.
		WithTemperatureOversampling(Sampling2X).
		WithPressureOversampling(Sampling2X).
		WithHumidityOversampling(Sampling2X).
		WithMode(ModeNormal).
		WithStandby(Standby1000ms).
		WithFilter(Filter2X)
}

func (c SamplingConfig) WithStandby(s Standby) SamplingConfig { c.Standby = s; return c }
func (c SamplingConfig) WithFilter(f Filter) SamplingConfig   { c.Filter = f; return c }
func (c SamplingConfig) WithMode(m Mode) SamplingConfig       { c.Mode = m; return c }
func (c SamplingConfig) WithSPI3W(on bool) SamplingConfig     { c.SPI3W = on; return c }

func (c SamplingConfig) WithTemperatureOversampling(o Oversampling) SamplingConfig {
	c.Temperature = o
	return c
}

func (c SamplingConfig) WithPressureOversampling(o Oversampling) SamplingConfig {
	c.Pressure = o
	return c
}

func (c SamplingConfig) WithHumidityOversampling(o Oversampling) SamplingConfig {
	c.Humidity = o
	return c
}

// IsForced reports whether each read must trigger its own conversion.
func (c SamplingConfig) IsForced() bool { return c.Mode == ModeForced }

// Registers packs the configuration into the config, ctrl_meas and ctrl_hum
// register values. Every field is masked to its width.
func (c SamplingConfig) Registers() (config, ctrlMeas, ctrlHum byte) {
	var spi byte
	if c.SPI3W {
		spi = 1
	}
	config = (c.Standby.code()&0b111)<<5 | (byte(c.Filter)&0b111)<<2 | spi
	ctrlMeas = (byte(c.Temperature)&0b111)<<5 | (byte(c.Pressure)&0b111)<<2 | c.Mode.code()&0b11
	ctrlHum = byte(c.Humidity) & 0b111
	return config, ctrlMeas, ctrlHum
}
