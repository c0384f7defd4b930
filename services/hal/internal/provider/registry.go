// Package provider owns the buses handed to HAL. Each I2C bus gets a single
// worker goroutine that runs device jobs one at a time.
package provider

import (
	"context"
	"sync"

	"tinygo.org/x/drivers"

	"envnode/errcode"
	"envnode/services/hal/internal/core"
)

const jobQueueLen = 16

var _ core.ResourceRegistry = (*Registry)(nil)

// -----------------------------------------------------------------------------
// I²C worker (one per bus)
// -----------------------------------------------------------------------------

type i2cWorker struct {
	id   core.ResourceID
	bus  drivers.I2C
	jobs chan core.I2CJob
}

func (w *i2cWorker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			if err := job.Run(w.bus); err != nil {
				println("[i2c]", string(w.id), "job failed:", err.Error())
			}
		}
	}
}

// i2cOwner is the per-device handle returned by ClaimI2C.
type i2cOwner struct{ w *i2cWorker }

func (o i2cOwner) TryEnqueueJob(job core.I2CJob) bool {
	select {
	case o.w.jobs <- job:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// Resource registry
// -----------------------------------------------------------------------------

type Registry struct {
	mu      sync.Mutex
	workers map[core.ResourceID]*i2cWorker
	claims  map[core.ResourceID]map[string]struct{} // bus -> device ids
	started bool
}

// New wraps already-configured buses, keyed by bus id ("i2c0", ...).
func New(buses map[string]drivers.I2C) *Registry {
	r := &Registry{
		workers: make(map[core.ResourceID]*i2cWorker, len(buses)),
		claims:  make(map[core.ResourceID]map[string]struct{}, len(buses)),
	}
	for id, b := range buses {
		if b == nil {
			continue
		}
		rid := core.ResourceID(id)
		r.workers[rid] = &i2cWorker{id: rid, bus: b, jobs: make(chan core.I2CJob, jobQueueLen)}
	}
	return r
}

// Start launches the bus workers. They stop when ctx is done. Calling Start
// more than once is a no-op.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	for _, w := range r.workers {
		go w.loop(ctx)
	}
}

// ClaimI2C registers devID as a user of bus id. Several devices may share a
// bus; their jobs are interleaved in submission order.
func (r *Registry) ClaimI2C(devID string, id core.ResourceID) (core.I2COwner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.workers[id]
	if w == nil {
		return nil, errcode.UnknownBus
	}
	users := r.claims[id]
	if users == nil {
		users = map[string]struct{}{}
		r.claims[id] = users
	}
	if _, dup := users[devID]; dup {
		return nil, errcode.BusInUse
	}
	users[devID] = struct{}{}
	return i2cOwner{w: w}, nil
}

func (r *Registry) ReleaseI2C(devID string, id core.ResourceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := r.claims[id]
	if _, held := users[devID]; !held {
		return errcode.NotClaimed
	}
	delete(users, devID)
	return nil
}

// Users returns how many devices currently hold bus id.
func (r *Registry) Users(id core.ResourceID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claims[id])
}
