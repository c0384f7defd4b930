package bme280

import "periph.io/x/conn/v3/physic"

// RawSample holds one burst of ADC values.
type RawSample struct {
	Pressure    uint32 // 20 bit
	Temperature uint32 // 20 bit
	Humidity    uint16
}

// ParseRawSample extracts the ADC values from the 8-byte data burst
// (press msb/lsb/xlsb, temp msb/lsb/xlsb, hum msb/lsb).
func ParseRawSample(b []byte) (RawSample, error) {
	if len(b) < dataLen {
		return RawSample{}, ErrInvalidData
	}
	return RawSample{
		Pressure:    uint32(b[0])<<12 | uint32(b[1])<<4 | uint32(b[2])>>4,
		Temperature: uint32(b[3])<<12 | uint32(b[4])<<4 | uint32(b[5])>>4,
		Humidity:    uint16(b[6])<<8 | uint16(b[7]),
	}, nil
}

// Sample is a compensated measurement.
type Sample struct {
	Temperature float32 // °C, 0.01 resolution
	Humidity    float32 // %RH
	Pressure    float32 // Pa

	TFine       int32  // fine temperature shared by the other channels
	HumidityQ10 uint32 // %RH * 1024
	PressureQ8  uint32 // Pa * 256
}

func compensate(raw RawSample, c *Calibration) Sample {
	tFine := CompensateTemperature(int32(raw.Temperature), c)
	h := CompensateHumidity(raw.Humidity, tFine, c)
	p := CompensatePressure(raw.Pressure, tFine, c)
	return Sample{
		Temperature: float32((tFine*5+128)>>8) / 100.0,
		Humidity:    float32(h) / 1024.0,
		Pressure:    float32(p) / 256.0,
		TFine:       tFine,
		HumidityQ10: h,
		PressureQ8:  p,
	}
}

// Fixed-point accessors.

// CentiCelsius returns hundredths of °C.
func (s Sample) CentiCelsius() int32 { return (s.TFine*5 + 128) >> 8 }

// DeciCelsius returns tenths of °C.
func (s Sample) DeciCelsius() int32 { return s.CentiCelsius() / 10 }

// RHx100 returns hundredths of %RH (0..10000).
func (s Sample) RHx100() uint16 { return uint16(s.HumidityQ10 * 100 / 1024) }

// CentiPascal returns hundredths of Pa.
func (s Sample) CentiPascal() uint32 { return uint32(uint64(s.PressureQ8) * 100 / 256) }

// Env fills e in periph units.
func (s Sample) Env(e *physic.Env) {
	e.Temperature = physic.Temperature(s.CentiCelsius())*10*physic.MilliCelsius + physic.ZeroCelsius
	e.Pressure = physic.Pressure(s.PressureQ8) * 15625 * physic.MicroPascal / 4
	e.Humidity = physic.RelativeHumidity(s.HumidityQ10) * 10000 / 1024 * physic.MicroRH
}
