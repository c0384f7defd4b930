package core

// ResourceID names a bus, e.g. "i2c0".
type ResourceID string

// ---- Transactional buses (serialised operations) ----

// I2CBus is the raw bus handed to a job while it holds the bus worker.
// It has the tinygo drivers.I2C shape.
type I2CBus interface {
	Tx(addr uint16, w, r []byte) error
}

// I2CJob runs on the bus worker with exclusive access to the bus.
type I2CJob interface {
	Run(bus I2CBus) error
}

// I2COwner is a device's handle on a claimed bus. Jobs are executed one at
// a time, in submission order, by a single worker per bus.
type I2COwner interface {
	// TryEnqueueJob is non-blocking; false means the queue is full.
	TryEnqueueJob(job I2CJob) bool
}

// ---- Device → HAL telemetry (single shape) ----
// An Event is a value update for a capability, published retained on
// .../value. Err, when non-empty, causes HAL to publish only
// .../status=degraded (retained).

type Event struct {
	Addr    CapAddr
	Payload any    // typed value payload (e.g. types.TemperatureValue)
	TSms    int64  // ms timestamp
	Err     string // errcode string
}

type EventEmitter interface {
	// Emit tries to enqueue an Event for HAL publication.
	// It must be non-blocking; false indicates a drop under pressure.
	Emit(ev Event) bool
}

// ---- HAL-injected resources ----

type Resources struct {
	Reg ResourceRegistry
	Pub EventEmitter // provided by HAL
}

type ResourceRegistry interface {
	ClaimI2C(devID string, id ResourceID) (I2COwner, error)
	// ReleaseI2C fails with errcode.NotClaimed if devID does not hold id.
	ReleaseI2C(devID string, id ResourceID) error
}
