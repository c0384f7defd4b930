package bme280

import (
	"errors"
	"testing"
	"time"

	"envnode/drivers/bme280/bme280sim"
)

// fakeClock advances only when the driver sleeps.
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
}

func newTestDevice(sim *bme280sim.Sim) (*Device, *fakeClock) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	d := New(sim, Config{})
	d.sleep = clk.sleep
	d.now = clk.now
	return d, clk
}

func TestConfigureReadsChipIDThenProceeds(t *testing.T) {
	sim := bme280sim.New(Address)
	d, _ := newTestDevice(sim)

	if err := d.Configure(DefaultSamplingConfig()); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if d.State() != StateReady {
		t.Fatalf("state = %v, want ready", d.State())
	}
	if sim.StatusReads() == 0 {
		t.Fatal("bring-up did not poll the status register")
	}
	c, ok := d.Calibration()
	if !ok || c != refCalib {
		t.Fatalf("calibration = %+v (ok=%v)", c, ok)
	}
}

func TestConfigureRejectsWrongChipID(t *testing.T) {
	sim := bme280sim.New(Address)
	sim.SetChipID(0x00)
	d, clk := newTestDevice(sim)

	err := d.Configure(DefaultSamplingConfig())
	var cerr *ChipIDError
	if !errors.As(err, &cerr) || cerr.ID != 0x00 {
		t.Fatalf("err = %v, want ChipIDError{0x00}", err)
	}
	if !errors.Is(err, ErrInvalidChipID) {
		t.Fatalf("err does not match ErrInvalidChipID")
	}
	if w := sim.Writes(); len(w) != 0 {
		t.Fatalf("writes after chip id mismatch: %+v", w)
	}
	if len(clk.sleeps) != 0 {
		t.Fatalf("slept after chip id mismatch: %v", clk.sleeps)
	}
	if d.State() != StateFailed || !errors.Is(d.Err(), ErrInvalidChipID) {
		t.Fatalf("state = %v err = %v", d.State(), d.Err())
	}
}

func TestConfigurePollsUntilCalibrationCopied(t *testing.T) {
	sim := bme280sim.New(Address)
	sim.CalibratingPolls = 3
	d, clk := newTestDevice(sim)

	if err := d.Configure(DefaultSamplingConfig()); err != nil {
		t.Fatalf("configure: %v", err)
	}
	want := []time.Duration{
		10 * time.Millisecond,  // reset
		10 * time.Millisecond,  // poll 1
		10 * time.Millisecond,  // poll 2
		10 * time.Millisecond,  // poll 3
		100 * time.Millisecond, // startup
	}
	if len(clk.sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", clk.sleeps, want)
	}
	for i := range want {
		if clk.sleeps[i] != want[i] {
			t.Fatalf("sleeps = %v, want %v", clk.sleeps, want)
		}
	}
	if n := sim.StatusReads(); n != 4 {
		t.Fatalf("status reads = %d, want 4", n)
	}
}

func TestConfigureTimesOutAndIsRetryable(t *testing.T) {
	sim := bme280sim.New(Address)
	sim.CalibratingPolls = 1 << 30
	d, clk := newTestDevice(sim)

	err := d.Configure(DefaultSamplingConfig())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if _, ok := d.Calibration(); ok {
		t.Fatal("calibration present after timeout")
	}
	if _, err := d.Read(); !errors.Is(err, ErrNotCalibrated) {
		t.Fatalf("read after timeout: err = %v", err)
	}
	var polled time.Duration
	for _, s := range clk.sleeps[1:] {
		polled += s
	}
	if polled != time.Second {
		t.Fatalf("polled for %v, want 1s", polled)
	}

	// The device recovers; a new bring-up succeeds.
	sim.CalibratingPolls = 0
	if err := d.Configure(DefaultSamplingConfig()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if d.State() != StateReady {
		t.Fatalf("state = %v after retry", d.State())
	}
}

func TestConfigurePropagatesStatusReadFailure(t *testing.T) {
	sim := bme280sim.New(Address)
	sim.CalibratingPolls = 2
	boom := errors.New("bus glitch")
	sim.Fail(regStatus, boom)
	d, _ := newTestDevice(sim)

	err := d.Configure(DefaultSamplingConfig())
	if !errors.Is(err, ErrI2C) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped bus error", err)
	}
	var berr *BusError
	if !errors.As(err, &berr) || berr.Reg != regStatus || berr.Op != "read" {
		t.Fatalf("bus error = %+v", berr)
	}
	if d.State() != StateFailed {
		t.Fatalf("state = %v", d.State())
	}
}

func TestConfigureWriteOrder(t *testing.T) {
	sim := bme280sim.New(Address)
	d, _ := newTestDevice(sim)

	sc := SamplingConfig{
		Standby:     Standby10ms,
		Filter:      Filter4X,
		Temperature: Sampling1X,
		Pressure:    Sampling16X,
		Humidity:    Sampling8X,
		Mode:        ModeNormal,
	}
	if err := d.Configure(sc); err != nil {
		t.Fatalf("configure: %v", err)
	}
	config, ctrlMeas, ctrlHum := sc.Registers()
	want := []bme280sim.Write{
		{Reg: regReset, Val: cmdSoftReset},
		{Reg: regCtrlMeas, Val: ctrlMeas &^ 0b11},
		{Reg: regCtrlHum, Val: ctrlHum},
		{Reg: regConfig, Val: config},
		{Reg: regCtrlMeas, Val: ctrlMeas},
	}
	got := sim.Writes()
	if len(got) != len(want) {
		t.Fatalf("writes = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("write %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if d.SamplingConfig() != sc {
		t.Fatalf("cached config = %+v", d.SamplingConfig())
	}
}

func TestConfigureAbortsOnWriteFailure(t *testing.T) {
	sim := bme280sim.New(Address)
	sim.Fail(regConfig, errors.New("nack"))
	d, _ := newTestDevice(sim)

	if err := d.Configure(DefaultSamplingConfig()); !errors.Is(err, ErrI2C) {
		t.Fatalf("err = %v", err)
	}
	for _, w := range sim.Writes() {
		if w.Reg == regCtrlMeas && w.Val&0b11 != 0 {
			t.Fatalf("final ctrl_meas written after failure: %+v", sim.Writes())
		}
	}
}

func TestReadBeforeConfigure(t *testing.T) {
	d, _ := newTestDevice(bme280sim.New(Address))
	if _, err := d.Read(); !errors.Is(err, ErrNotCalibrated) {
		t.Fatalf("err = %v, want ErrNotCalibrated", err)
	}
	if _, err := d.Compensate(RawSample{}); !errors.Is(err, ErrNotCalibrated) {
		t.Fatalf("compensate err = %v", err)
	}
}

func TestReadNormalMode(t *testing.T) {
	sim := bme280sim.New(Address)
	d, _ := newTestDevice(sim)
	if err := d.Configure(DefaultSamplingConfig()); err != nil {
		t.Fatal(err)
	}
	s, err := d.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.CentiCelsius() != 2508 || s.PressureQ8 != 25767233 || s.HumidityQ10 != 56317 {
		t.Fatalf("sample = %+v", s)
	}
	if last, ok := d.LastSample(); !ok || last != s {
		t.Fatalf("last sample = %+v (ok=%v)", last, ok)
	}
}

func TestReadRaw(t *testing.T) {
	sim := bme280sim.New(Address)
	sim.SetRaw(0xABCDE, 0x12345, 0xBEEF)
	d, _ := newTestDevice(sim)
	if err := d.Configure(DefaultSamplingConfig()); err != nil {
		t.Fatal(err)
	}
	raw, err := d.ReadRaw()
	if err != nil {
		t.Fatal(err)
	}
	if raw != (RawSample{Pressure: 0xABCDE, Temperature: 0x12345, Humidity: 0xBEEF}) {
		t.Fatalf("raw = %+v", raw)
	}
}

func TestReadForcedModeTriggersConversion(t *testing.T) {
	sim := bme280sim.New(Address)
	sim.MeasuringPolls = 2
	d, clk := newTestDevice(sim)
	sc := DefaultSamplingConfig().WithMode(ModeForced)
	if err := d.Configure(sc); err != nil {
		t.Fatal(err)
	}
	before := len(sim.Writes())
	sleepsBefore := len(clk.sleeps)

	if _, err := d.Read(); err != nil {
		t.Fatalf("read: %v", err)
	}
	_, ctrlMeas, _ := sc.Registers()
	w := sim.Writes()[before:]
	if len(w) != 1 || w[0] != (bme280sim.Write{Reg: regCtrlMeas, Val: ctrlMeas}) {
		t.Fatalf("trigger writes = %+v", w)
	}
	if n := len(clk.sleeps) - sleepsBefore; n != 2 {
		t.Fatalf("waited %d polls for conversion, want 2", n)
	}
}

func TestReadForcedModeTimeout(t *testing.T) {
	sim := bme280sim.New(Address)
	d, _ := newTestDevice(sim)
	if err := d.Configure(DefaultSamplingConfig().WithMode(ModeForced)); err != nil {
		t.Fatal(err)
	}
	sim.MeasuringPolls = 1 << 30
	if _, err := d.Read(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestReadPropagatesBusError(t *testing.T) {
	sim := bme280sim.New(Address)
	d, _ := newTestDevice(sim)
	if err := d.Configure(DefaultSamplingConfig()); err != nil {
		t.Fatal(err)
	}
	sim.Fail(regData, errors.New("nack"))
	if _, err := d.Read(); !errors.Is(err, ErrI2C) {
		t.Fatalf("err = %v", err)
	}
}

func TestWrongAddressIsBusError(t *testing.T) {
	d, _ := newTestDevice(bme280sim.New(AddressAlt))
	err := d.Configure(DefaultSamplingConfig())
	if !errors.Is(err, ErrI2C) || !errors.Is(err, bme280sim.ErrNack) {
		t.Fatalf("err = %v", err)
	}
}

func TestResetDropsCalibration(t *testing.T) {
	sim := bme280sim.New(Address)
	d, clk := newTestDevice(sim)
	if err := d.Configure(DefaultSamplingConfig()); err != nil {
		t.Fatal(err)
	}
	before := len(clk.sleeps)
	if err := d.Reset(); err != nil {
		t.Fatal(err)
	}
	if got := clk.sleeps[before:]; len(got) != 1 || got[0] != 10*time.Millisecond {
		t.Fatalf("sleeps after reset = %v, want [10ms]", got)
	}
	if w := sim.Writes(); w[len(w)-1] != (bme280sim.Write{Reg: regReset, Val: cmdSoftReset}) {
		t.Fatalf("last write = %+v", w[len(w)-1])
	}
	if d.State() != StateUninitialized {
		t.Fatalf("state = %v", d.State())
	}
	if _, err := d.Read(); !errors.Is(err, ErrNotCalibrated) {
		t.Fatalf("err = %v", err)
	}
}

func TestResetWriteFailureSkipsDelay(t *testing.T) {
	sim := bme280sim.New(Address)
	d, clk := newTestDevice(sim)
	sim.Fail(regReset, errors.New("nack"))
	if err := d.Reset(); !errors.Is(err, ErrI2C) {
		t.Fatalf("err = %v", err)
	}
	if len(clk.sleeps) != 0 {
		t.Fatalf("slept after failed reset: %v", clk.sleeps)
	}
}

func TestErrorStrings(t *testing.T) {
	if s := (&ChipIDError{ID: 0x58}).Error(); s != "bme280: invalid chip id 0x58" {
		t.Errorf("chip id error = %q", s)
	}
	e := &BusError{Op: "write", Reg: 0xF4, Err: errors.New("nack")}
	if s := e.Error(); s != "bme280: i2c write 0xF4: nack" {
		t.Errorf("bus error = %q", s)
	}
}
