// Package hal runs the hardware abstraction layer: it builds devices from
// the retained config/hal message and exposes them as bus capabilities
// under hal/cap/<domain>/<kind>/<name>.
package hal

import (
	"context"

	"tinygo.org/x/drivers"

	"envnode/bus"
	"envnode/services/hal/internal/core"
	"envnode/services/hal/internal/provider"

	// Device builders register themselves with the core registry.
	_ "envnode/services/hal/devices/bme280"
)

// Run starts one worker per I2C bus and runs HAL on conn until ctx is done.
// Buses are keyed by the ids devices name in their params ("i2c0", ...).
func Run(ctx context.Context, conn *bus.Connection, buses map[string]drivers.I2C) {
	reg := provider.New(buses)
	reg.Start(ctx)
	core.NewHAL(conn, core.Resources{Reg: reg}).Run(ctx)
}
