package core

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"envnode/bus"
	"envnode/errcode"
	"envnode/services/hal/internal/util"
	"envnode/types"
	"envnode/x/timex"
)

const (
	eventQueueLen = 16
	pollQueueLen  = 8
)

type capKey struct {
	domain string
	kind   string
	name   string
}

type HAL struct {
	conn *bus.Connection
	res  Resources

	// Device registry
	dev map[string]Device // devID -> device

	// Capability index: (domain,kind,name) -> devID
	capIndex map[capKey]string

	cfgSub  *bus.Subscription
	ctrlSub *bus.Subscription

	// Single-threaded publication of device events
	evCh chan Event

	poller *Poller
	pollCh chan PollReq
}

func NewHAL(conn *bus.Connection, res Resources) *HAL {
	h := &HAL{
		conn:     conn,
		res:      res,
		dev:      map[string]Device{},
		capIndex: map[capKey]string{},
		evCh:     make(chan Event, eventQueueLen),
		pollCh:   make(chan PollReq, pollQueueLen),
	}
	h.poller = NewPoller(h.pollCh)
	// HAL provides the emitter to devices.
	h.res.Pub = h
	return h
}

func (h *HAL) Run(ctx context.Context) {
	h.cfgSub = h.conn.Subscribe(topicConfigHAL())
	h.ctrlSub = h.conn.Subscribe(ctrlWildcard())
	defer h.conn.Unsubscribe(h.cfgSub)
	defer h.conn.Unsubscribe(h.ctrlSub)

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go h.poller.Run(pctx)

	h.pubHALState("idle", "awaiting_config")
	ready := false
	for {
		select {
		case <-ctx.Done():
			if err := h.closeAll(); err != nil {
				println("[hal] close:", err.Error())
			}
			h.pubHALState("stopped", "context_cancelled")
			return
		case msg := <-h.cfgSub.Channel():
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				println("[hal] bad config:", err.Error())
				continue
			}
			// Additive and idempotent for existing devices.
			h.applyConfig(ctx, cfg)
			if !ready {
				ready = true
				h.pubHALState("ready", "")
			}
		case m := <-h.ctrlSub.Channel():
			if !ready {
				// Reject controls until HAL has a configuration.
				h.replyErr(m, errcode.HALNotReady)
				continue
			}
			h.handleControl(m) // strictly non-blocking
		case pr := <-h.pollCh:
			h.handlePoll(pr)
		case ev := <-h.evCh:
			// All device→HAL telemetry is published from this goroutine.
			h.handleEvent(ev)
		}
	}
}

// decodeConfig accepts a typed HALConfig or the JSON-like map published by
// the config service.
func decodeConfig(p any) (types.HALConfig, error) {
	switch v := p.(type) {
	case types.HALConfig:
		return v, nil
	case *types.HALConfig:
		if v != nil {
			return *v, nil
		}
	case map[string]any:
		var cfg types.HALConfig
		if err := util.DecodeJSON(v, &cfg); err != nil {
			return types.HALConfig{}, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: err.Error(), Err: err}
		}
		return cfg, nil
	}
	return types.HALConfig{}, errcode.InvalidParams
}

func (h *HAL) applyConfig(ctx context.Context, cfg types.HALConfig) {
	for i := range cfg.Devices {
		dc := cfg.Devices[i]
		if _, exists := h.dev[dc.ID]; exists {
			continue
		}
		b, ok := lookupBuilder(dc.Type)
		if !ok {
			println("[hal] no builder for type:", dc.Type, "id:", dc.ID)
			continue
		}
		dev, err := b.Build(ctx, BuilderInput{
			ID:     dc.ID,
			Type:   dc.Type,
			Params: dc.Params,
			Res:    h.res,
		})
		if err != nil {
			println("[hal] build failed for:", dc.ID, "err:", err.Error())
			continue
		}
		if err := dev.Init(ctx); err != nil {
			println("[hal] init failed for:", dc.ID, "err:", err.Error())
			if cerr := dev.Close(); cerr != nil {
				println("[hal] close failed for:", dc.ID, "err:", cerr.Error())
			}
			continue
		}
		h.dev[dev.ID()] = dev

		// Register capabilities, publish retained info + initial status:down
		for _, cs := range dev.Capabilities() {
			k := string(cs.Kind)
			domain := cs.Domain
			if domain == "" {
				domain = defaultDomainFor(k)
			}
			name := cs.Name
			if name == "" {
				name = dev.ID()
			}

			h.capIndex[capKey{domain: domain, kind: k, name: name}] = dev.ID()

			h.conn.Publish(h.conn.NewMessage(capInfo(domain, k, name), cs.Info, true))
			h.conn.Publish(h.conn.NewMessage(
				capStatus(domain, k, name),
				types.CapabilityStatus{Link: types.LinkDown, TSms: timex.NowMs()},
				true,
			))
		}
	}

	// Pollers are upserted on every config; an interval of 0 stops one.
	for _, ps := range cfg.Pollers {
		addr := CapAddr{Domain: ps.Domain, Kind: string(ps.Kind), Name: ps.Name}
		if addr.Domain == "" {
			addr.Domain = defaultDomainFor(addr.Kind)
		}
		verb := ps.Verb
		if verb == "" {
			verb = "read"
		}
		if ps.IntervalMs == 0 {
			h.poller.Stop(addr, verb)
			continue
		}
		h.poller.Upsert(addr, verb,
			time.Duration(ps.IntervalMs)*time.Millisecond,
			time.Duration(ps.JitterMs)*time.Millisecond)
	}
}

func (h *HAL) lookupCap(domain, kind, name string) (Device, bool) {
	ownerID, ok := h.capIndex[capKey{domain: domain, kind: kind, name: name}]
	if !ok {
		return nil, false
	}
	dev := h.dev[ownerID]
	return dev, dev != nil
}

func (h *HAL) handleControl(msg *bus.Message) {
	// hal/cap/<domain>/<kind>/<name>/control/<verb>
	if msg.Topic.Len() < 7 {
		h.replyErr(msg, errcode.InvalidTopic)
		return
	}
	domain, _ := msg.Topic.At(2).(string)
	kind, _ := msg.Topic.At(3).(string)
	name, _ := msg.Topic.At(4).(string)
	verb, _ := msg.Topic.At(6).(string)

	dev, ok := h.lookupCap(domain, kind, name)
	if !ok {
		h.replyErr(msg, errcode.UnknownCapability)
		return
	}

	res, err := dev.Control(CapAddr{Domain: domain, Kind: kind, Name: name}, verb, msg.Payload)
	if err != nil {
		h.replyFromError(msg, err)
		return
	}
	if res.OK {
		h.replyOK(msg)
		return
	}
	code := res.Error
	if code == "" {
		code = errcode.Busy
	}
	h.replyErr(msg, code)
}

func (h *HAL) handlePoll(pr PollReq) {
	dev, ok := h.lookupCap(pr.Addr.Domain, pr.Addr.Kind, pr.Addr.Name)
	if !ok {
		return
	}
	// A busy bus drops the tick; the next one retries.
	if _, err := dev.Control(pr.Addr, pr.Verb, nil); err != nil {
		println("[hal] poll", pr.Addr.Name, pr.Verb, "failed:", err.Error())
	}
}

func (h *HAL) handleEvent(ev Event) {
	d := ev.Addr.Domain
	k := ev.Addr.Kind
	n := ev.Addr.Name

	// Error → retained status:degraded; the last good value stays retained.
	if ev.Err != "" {
		h.conn.Publish(h.conn.NewMessage(
			capStatus(d, k, n),
			types.CapabilityStatus{Link: types.LinkDegraded, TSms: ev.TSms, Error: ev.Err},
			true,
		))
		return
	}

	h.conn.Publish(h.conn.NewMessage(capValue(d, k, n), ev.Payload, true))
	h.conn.Publish(h.conn.NewMessage(
		capStatus(d, k, n),
		types.CapabilityStatus{Link: types.LinkUp, TSms: ev.TSms},
		true,
	))
}

func (h *HAL) closeAll() error {
	var err error
	for id, dev := range h.dev {
		err = multierr.Append(err, dev.Close())
		delete(h.dev, id)
	}
	h.capIndex = map[capKey]string{}
	return err
}

func (h *HAL) pubHALState(level, status string) {
	h.conn.Publish(h.conn.NewMessage(
		topicHALState(),
		types.HALState{Level: level, Status: status, TSms: timex.NowMs()},
		true,
	))
}

func defaultDomainFor(kind string) string {
	switch kind {
	case string(types.KindTemperature), string(types.KindHumidity), string(types.KindPressure):
		return "env"
	default:
		return "io"
	}
}

// ---- HAL as EventEmitter (enqueue to single publisher) ----

func (h *HAL) Emit(ev Event) bool {
	select {
	case h.evCh <- ev:
		return true
	default:
		return false
	}
}
