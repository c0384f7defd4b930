package bme280dev

import (
	"envnode/drivers/bme280"
	"envnode/errcode"
	"envnode/services/hal/internal/util"
)

// Params configures one bme280 device. Params may also arrive as a JSON-like
// map with keys "bus", "addr" and "profile".
type Params struct {
	Bus     string // e.g. "i2c0"
	Addr    uint16 // defaults to bme280.Address (0x76) if zero
	Profile string // sampling profile; "" means "default"

	// Timing overrides the driver's bring-up and polling delays.
	Timing bme280.Config
}

type jsonParams struct {
	Bus     string `json:"bus"`
	Addr    uint16 `json:"addr"`
	Profile string `json:"profile"`
}

func parseParams(v any) (Params, error) {
	switch p := v.(type) {
	case Params:
		return p, nil
	case *Params:
		if p == nil {
			return Params{}, errcode.InvalidParams
		}
		return *p, nil
	case nil:
		return Params{}, errcode.InvalidParams
	}
	var jp jsonParams
	if err := util.DecodeJSON(v, &jp); err != nil {
		return Params{}, &errcode.E{C: errcode.InvalidParams, Op: "bme280", Msg: err.Error(), Err: err}
	}
	return Params{Bus: jp.Bus, Addr: jp.Addr, Profile: jp.Profile}, nil
}

// Sampling profiles, after the datasheet's recommended modes of operation.
var profiles = map[string]bme280.SamplingConfig{
	"default": bme280.DefaultSamplingConfig(),

	// Weather monitoring: one forced conversion per read, no filtering.
	"weather": {
		Temperature: bme280.Sampling1X,
		Pressure:    bme280.Sampling1X,
		Humidity:    bme280.Sampling1X,
		Filter:      bme280.FilterOff,
		Mode:        bme280.ModeForced,
	},

	// Humidity sensing: pressure skipped.
	"humidity": {
		Temperature: bme280.Sampling1X,
		Pressure:    bme280.SamplingSkip,
		Humidity:    bme280.Sampling1X,
		Filter:      bme280.FilterOff,
		Mode:        bme280.ModeForced,
	},

	// Indoor navigation: fast normal mode with heavy IIR filtering.
	"indoor": {
		Temperature: bme280.Sampling2X,
		Pressure:    bme280.Sampling16X,
		Humidity:    bme280.Sampling1X,
		Filter:      bme280.Filter16X,
		Standby:     bme280.Standby0_5ms,
		Mode:        bme280.ModeNormal,
	},
}

func profileConfig(name string) (bme280.SamplingConfig, bool) {
	if name == "" {
		name = "default"
	}
	sc, ok := profiles[name]
	return sc, ok
}
