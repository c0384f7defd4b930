package drvshim

import (
	"errors"

	"envnode/services/hal/internal/core"
)

var ErrNotBound = errors.New("drvshim: i2c not bound")

// HotI2C is a drivers.I2C whose backing bus is rebound by each job. Drivers
// are built once against it and only touched from inside bus worker jobs.
type HotI2C struct {
	bus core.I2CBus
}

// Bind points the shim at the bus of the running job.
func (h *HotI2C) Bind(bus core.I2CBus) { h.bus = bus }

// Unbind detaches the shim; further Tx calls fail with ErrNotBound.
func (h *HotI2C) Unbind() { h.bus = nil }

func (h *HotI2C) Tx(addr uint16, w, r []byte) error {
	if h.bus == nil {
		return ErrNotBound
	}
	return h.bus.Tx(addr, w, r)
}
