// cmd/envnode/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"

	"envnode/bus"
	"envnode/drivers/bme280/bme280sim"
	"envnode/services/config"
	"envnode/services/hal"
	"envnode/services/heartbeat"
	"envnode/types"
)

const halReadyTimeout = 5 * time.Second

var (
	board   = flag.String("board", "host", "embedded board config")
	busName = flag.String("bus", "", "I2C bus name exposed as i2c0 (empty selects the first bus)")
	sim     = flag.Bool("sim", false, "use the built-in BME280 simulator as i2c0")
	simAddr = flag.Uint("sim-addr", 0x76, "simulator I2C address")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = context.WithValue(ctx, config.CtxDeviceKey, *board)

	i2c0, closeBus := openBus()
	defer closeBus()

	b := bus.NewBus(32)
	ui := b.NewConnection("ui")

	config.NewConfigService().Start(ctx, b.NewConnection("config"))
	go hal.Run(ctx, b.NewConnection("hal"), map[string]drivers.I2C{"i2c0": i2c0})
	if err := (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat")); err != nil {
		log.Fatalf("heartbeat: %v", err)
	}

	if err := waitHALReady(ctx, ui); err != nil {
		log.Fatalf("hal: %v", err)
	}
	log.Printf("hal ready (board %s)", *board)

	values := ui.Subscribe(bus.T("hal", "cap", "env", "+", "+", "value"))
	status := ui.Subscribe(bus.T("hal", "cap", "env", "+", "+", "status"))
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-values.Channel():
			fmt.Printf("%s/%s %s\n", m.Topic.At(4), m.Topic.At(3), formatValue(m.Payload))
		case m := <-status.Channel():
			if s, ok := m.Payload.(types.CapabilityStatus); ok && s.Link == types.LinkDegraded {
				fmt.Printf("%s/%s degraded: %s\n", m.Topic.At(4), m.Topic.At(3), s.Error)
			}
		}
	}
}

func openBus() (drivers.I2C, func()) {
	if *sim {
		return bme280sim.New(uint16(*simAddr)), func() {}
	}
	if _, err := host.Init(); err != nil {
		log.Fatalf("host init: %v", err)
	}
	b, err := i2creg.Open(*busName)
	if err != nil {
		log.Fatalf("i2c open %q: %v", *busName, err)
	}
	return b, func() { _ = b.Close() }
}

func waitHALReady(ctx context.Context, conn *bus.Connection) error {
	sub := conn.Subscribe(bus.T("hal", "state"))
	defer conn.Unsubscribe(sub)
	timer := time.NewTimer(halReadyTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("not ready after %s", halReadyTimeout)
		case m := <-sub.Channel():
			if st, ok := m.Payload.(types.HALState); ok && st.Level == "ready" {
				return nil
			}
		}
	}
}

func formatValue(p any) string {
	switch v := p.(type) {
	case types.TemperatureValue:
		return fmt.Sprintf("%.1f°C", float64(v.DeciC)/10)
	case types.HumidityValue:
		return fmt.Sprintf("%.2f%%RH", float64(v.RHx100)/100)
	case types.PressureValue:
		return fmt.Sprintf("%.2fhPa", float64(v.CentiPa)/10000)
	}
	return fmt.Sprintf("%v", p)
}
