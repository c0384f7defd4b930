// cmd/bme280-read/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"

	"envnode/drivers/bme280"
	"envnode/drivers/bme280/bme280sim"
)

var (
	busName = flag.String("bus", "", "I2C bus name (empty selects the first bus)")
	addr    = flag.Uint("addr", bme280.Address, "sensor I2C address")
	count   = flag.Int("n", 1, "number of samples (0 = forever)")
	every   = flag.Duration("every", time.Second, "interval between samples")
	forced  = flag.Bool("forced", false, "use forced mode instead of normal mode")
	sim     = flag.Bool("sim", false, "read from the built-in simulator")
)

func main() {
	flag.Parse()

	bus, closeBus := openBus()
	defer closeBus()

	dev := bme280.New(bus, bme280.Config{Address: uint16(*addr)})
	sc := bme280.DefaultSamplingConfig()
	if *forced {
		sc = sc.WithMode(bme280.ModeForced)
	}
	if err := dev.Configure(sc); err != nil {
		log.Fatalf("bme280: bring-up at %#x failed in state %s: %v", *addr, dev.State(), err)
	}
	if c, ok := dev.Calibration(); ok {
		log.Printf("calibration: %+v", c)
	}

	for i := 0; *count == 0 || i < *count; i++ {
		if i > 0 {
			time.Sleep(*every)
		}
		s, err := dev.Read()
		if err != nil {
			log.Fatalf("bme280: read: %v", err)
		}
		var e physic.Env
		s.Env(&e)
		fmt.Printf("%.2f°C %.2f%%RH %.2fPa  (%s %s %s)\n",
			s.Temperature, s.Humidity, s.Pressure, e.Temperature, e.Humidity, e.Pressure)
	}
}

func openBus() (drivers.I2C, func()) {
	if *sim {
		return bme280sim.New(uint16(*addr)), func() {}
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
