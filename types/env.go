package types

// ------------------------
// Temperature, humidity & pressure
// ------------------------

// EnvSensorInfo is the Info.Detail of every env capability.
type EnvSensorInfo struct {
	Sensor string `json:"sensor"` // "bme280"
	Addr   uint16 `json:"addr"`   // I2C address
	Bus    string `json:"bus"`    // "i2c0", ...

	Profile   string `json:"profile,omitempty"`
	// StandbyUs is the inactive time between normal-mode conversions;
	// 0 when the sensor converts only on request.
	StandbyUs uint32 `json:"standby_us,omitempty"`
}

type TemperatureValue struct {
	// Tenths of °C (e.g. 231 => 23.1°C).
	DeciC int16 `json:"deci_c"`
}

type HumidityValue struct {
	// Hundredths of %RH (0..10000 for 0..100.00%).
	RHx100 uint16 `json:"rh_x100"`
}

type PressureValue struct {
	// Hundredths of Pa (10132500 => 1013.25 hPa).
	CentiPa uint32 `json:"centi_pa"`
}
