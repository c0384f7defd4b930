package bme280

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/physic"
)

func TestParseRawSample(t *testing.T) {
	raw, err := ParseRawSample([]byte{0x65, 0x5A, 0xC0, 0x7E, 0xED, 0x00, 0x75, 0x30})
	if err != nil {
		t.Fatal(err)
	}
	want := RawSample{Pressure: 415148, Temperature: 519888, Humidity: 30000}
	if raw != want {
		t.Fatalf("raw = %+v, want %+v", raw, want)
	}
	if _, err := ParseRawSample(make([]byte, 7)); !errors.Is(err, ErrInvalidData) {
		t.Fatalf("short burst: err = %v", err)
	}
}

func TestSampleEnv(t *testing.T) {
	s := compensate(RawSample{Pressure: 415148, Temperature: 519888, Humidity: 30000}, &refCalib)
	var e physic.Env
	s.Env(&e)
	if want := 2508*10*physic.MilliCelsius + physic.ZeroCelsius; e.Temperature != want {
		t.Errorf("temperature = %s, want %s", e.Temperature, want)
	}
	if want := physic.Pressure(25767233) * 15625 * physic.MicroPascal / 4; e.Pressure != want {
		t.Errorf("pressure = %s, want %s", e.Pressure, want)
	}
	if e.Humidity < 54*physic.PercentRH || e.Humidity > 55*physic.PercentRH {
		t.Errorf("humidity = %s", e.Humidity)
	}
}
