package bme280dev

import (
	"context"
	"time"

	"envnode/drivers/bme280"
	"envnode/errcode"
	"envnode/services/hal/internal/core"
	"envnode/services/hal/internal/drvshim"
	"envnode/types"
	"envnode/x/mathx"
	"envnode/x/timex"
)

func init() { core.RegisterBuilder("bme280", builder{}) }

type builder struct{}

func (builder) Build(ctx context.Context, in core.BuilderInput) (core.Device, error) {
	p, err := parseParams(in.Params)
	if err != nil {
		return nil, err
	}
	if p.Bus == "" {
		return nil, errcode.InvalidParams
	}
	if p.Profile == "" {
		p.Profile = "default"
	}
	sc, ok := profileConfig(p.Profile)
	if !ok {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "bme280", Msg: "unknown profile " + p.Profile}
	}
	if p.Addr == 0 {
		p.Addr = bme280.Address
	}
	own, err := in.Res.Reg.ClaimI2C(in.ID, core.ResourceID(p.Bus))
	if err != nil {
		return nil, err
	}

	d := &Device{
		id:   in.ID,
		bus:  p.Bus,
		addr: p.Addr,
		sc:   sc,
		prof: p.Profile,
		i2c:  own,
		pub:  in.Res.Pub,
		reg:  in.Res.Reg,
	}

	// The driver is built once against the hot shim; jobs rebind it.
	timing := p.Timing
	timing.Address = p.Addr
	d.hot = &drvshim.HotI2C{}
	d.drv = bme280.New(d.hot, timing)

	d.jobRead = &readJob{d: d}
	d.jobReset = &resetJob{d: d}
	return d, nil
}

type Device struct {
	id   string
	bus  string
	addr uint16
	sc   bme280.SamplingConfig
	prof string

	i2c core.I2COwner
	pub core.EventEmitter
	reg core.ResourceRegistry

	hot      *drvshim.HotI2C
	drv      *bme280.Device
	jobRead  *readJob
	jobReset *resetJob

	addrTemp  core.CapAddr
	addrHum   core.CapAddr
	addrPress core.CapAddr
}

func (d *Device) ID() string { return d.id }

func (d *Device) Capabilities() []core.CapabilitySpec {
	info := types.Info{
		SchemaVersion: 1, Driver: "bme280",
		Detail: types.EnvSensorInfo{
			Sensor: "bme280", Addr: d.addr, Bus: d.bus,
			Profile: d.prof, StandbyUs: standbyUs(d.sc),
		},
	}
	return []core.CapabilitySpec{
		{Domain: "env", Kind: types.KindTemperature, Name: d.id, Info: info},
		{Domain: "env", Kind: types.KindHumidity, Name: d.id, Info: info},
		{Domain: "env", Kind: types.KindPressure, Name: d.id, Info: info},
	}
}

func standbyUs(sc bme280.SamplingConfig) uint32 {
	if sc.Mode != bme280.ModeNormal {
		return 0
	}
	return uint32(sc.Standby.Duration() / time.Microsecond)
}

// Init only records capability addresses. Bring-up needs the bus and runs
// inside the first read job.
func (d *Device) Init(ctx context.Context) error {
	d.addrTemp = core.CapAddr{Domain: "env", Kind: string(types.KindTemperature), Name: d.id}
	d.addrHum = core.CapAddr{Domain: "env", Kind: string(types.KindHumidity), Name: d.id}
	d.addrPress = core.CapAddr{Domain: "env", Kind: string(types.KindPressure), Name: d.id}
	return nil
}

func (d *Device) Close() error {
	if d.reg == nil {
		return nil
	}
	if err := d.reg.ReleaseI2C(d.id, core.ResourceID(d.bus)); err != nil {
		return &errcode.E{C: errcode.Of(err), Op: "close", Msg: d.id + " on " + d.bus, Err: err}
	}
	return nil
}

// Control accepts "read" and "reset" on any of the three capabilities.
func (d *Device) Control(_ core.CapAddr, method string, payload any) (core.EnqueueResult, error) {
	var job core.I2CJob
	switch method {
	case "read":
		job = d.jobRead
	case "reset":
		job = d.jobReset
	default:
		return core.EnqueueResult{OK: false, Error: errcode.Unsupported}, nil
	}
	if !d.i2c.TryEnqueueJob(job) {
		return core.EnqueueResult{OK: false, Error: errcode.Busy}, nil
	}
	return core.EnqueueResult{OK: true}, nil
}

func (d *Device) emitErr(err error, ts int64) {
	code := string(errcode.MapDriverErr(err))
	d.pub.Emit(core.Event{Addr: d.addrTemp, Err: code, TSms: ts})
	d.pub.Emit(core.Event{Addr: d.addrHum, Err: code, TSms: ts})
	d.pub.Emit(core.Event{Addr: d.addrPress, Err: code, TSms: ts})
}

var (
	_ core.I2CJob = (*readJob)(nil)
	_ core.I2CJob = (*resetJob)(nil)
)

// readJob brings the sensor up when needed, then samples it.
type readJob struct{ d *Device }

func (j *readJob) Run(bus core.I2CBus) error {
	d := j.d
	d.hot.Bind(bus)
	defer d.hot.Unbind()

	start := timex.NowMs()
	if d.drv.State() != bme280.StateReady {
		if err := d.drv.Configure(d.sc); err != nil {
			println("[bme280]", d.id, "bring-up failed:", err.Error())
			d.emitErr(err, start)
			return nil
		}
	}
	s, err := d.drv.Read()
	if err != nil {
		d.emitErr(err, start)
		return nil
	}

	decic := mathx.Clamp(s.DeciCelsius(), -32768, 32767)
	rhx100 := mathx.Clamp(s.RHx100(), 0, 10000)

	ts := timex.NowMs()
	d.pub.Emit(core.Event{
		Addr:    d.addrTemp,
		Payload: types.TemperatureValue{DeciC: int16(decic)},
		TSms:    ts,
	})
	d.pub.Emit(core.Event{
		Addr:    d.addrHum,
		Payload: types.HumidityValue{RHx100: rhx100},
		TSms:    ts,
	})
	if d.sc.Pressure != bme280.SamplingSkip {
		d.pub.Emit(core.Event{
			Addr:    d.addrPress,
			Payload: types.PressureValue{CentiPa: s.CentiPascal()},
			TSms:    ts,
		})
	}
	return nil
}

// resetJob soft-resets the sensor; the next read runs a full bring-up.
type resetJob struct{ d *Device }

func (j *resetJob) Run(bus core.I2CBus) error {
	d := j.d
	d.hot.Bind(bus)
	defer d.hot.Unbind()

	if err := d.drv.Reset(); err != nil {
		d.emitErr(err, timex.NowMs())
	}
	return nil
}
