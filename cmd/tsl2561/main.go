// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// tsl2561 reads illuminance from a TSL2561 light sensor.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/GermanBionicSystems/lightsensors/lightbar"
	"github.com/GermanBionicSystems/lightsensors/readout"
	"github.com/GermanBionicSystems/lightsensors/tsl2561"
	"github.com/mattn/go-isatty"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

func parseGain(g int) (tsl2561.Gain, error) {
	switch g {
	case 1:
		return tsl2561.Gain1x, nil
	case 16:
		return tsl2561.Gain16x, nil
	default:
		return 0, fmt.Errorf("invalid gain %d, use 1 or 16", g)
	}
}

func parseIntegration(ms int) (tsl2561.IntegrationTime, error) {
	switch ms {
	case 13:
		return tsl2561.Integration13ms, nil
	case 101:
		return tsl2561.Integration101ms, nil
	case 402:
		return tsl2561.Integration402ms, nil
	default:
		return 0, fmt.Errorf("invalid integration time %dms, use 13, 101 or 402", ms)
	}
}

// output shows a reading on the selected sinks.
type output struct {
	bar  *lightbar.Dev
	oled display.Drawer
	rn   *readout.Renderer
}

func (o *output) show(r tsl2561.Reading) error {
	if o.bar != nil {
		lux := 0.0
		if r.Valid {
			lux = r.Lux
		}
		if err := o.bar.Show(lux); err != nil {
			return err
		}
		fmt.Print(r)
	} else {
		fmt.Println(r)
	}
	if o.oled != nil {
		b := o.oled.Bounds()
		return o.oled.Draw(b, o.rn.Render(r, b), b.Min)
	}
	return nil
}

func (o *output) halt() {
	if o.bar != nil {
		_ = o.bar.Halt()
	}
}

func mainImpl() error {
	busName := flag.String("b", "", "I²C bus to use")
	addr := flag.Uint("a", uint(tsl2561.DefaultAddress), "I²C address of the sensor (0x29, 0x39 or 0x49)")
	gain := flag.Int("g", 1, "gain, 1 or 16")
	integ := flag.Int("i", 402, "integration time in ms, 13, 101 or 402")
	auto := flag.Bool("auto", false, "switch gain automatically")
	cs := flag.Bool("cs", false, "force chipscale package coefficients")
	interval := flag.Duration("c", 0, "read continuously at this interval")
	count := flag.Int("n", 0, "number of continuous samples, 0 runs until interrupted")
	bar := flag.Bool("bar", isatty.IsTerminal(os.Stdout.Fd()), "show a bar graph")
	oled := flag.Bool("oled", false, "draw the reading on a SSD1306 on the same bus")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	opts := tsl2561.Opts{AutoGain: *auto}
	var err error
	if opts.Gain, err = parseGain(*gain); err != nil {
		return err
	}
	if opts.Integration, err = parseIntegration(*integ); err != nil {
		return err
	}
	if *cs {
		opts.Package = tsl2561.PackageCS
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(*busName)
	if err != nil {
		return err
	}
	defer bus.Close()
	log.Printf("using %s", bus)

	dev, err := tsl2561.NewI2C(bus, i2c.Addr(*addr), &opts)
	if err != nil {
		return err
	}
	defer dev.Halt()
	part, rev, err := dev.ChipID()
	if err != nil {
		return err
	}
	log.Printf("%s part %d revision %d gain %s integration %s", dev, part, rev, opts.Gain, opts.Integration)

	out := &output{}
	if *bar {
		out.bar = lightbar.New(&lightbar.Opts{Width: 40})
		defer out.halt()
	}
	if *oled {
		d, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
		if err != nil {
			return err
		}
		defer d.Halt()
		if out.rn, err = readout.New(float64(d.Bounds().Dy()) / 3); err != nil {
			return err
		}
		out.oled = d
		log.Printf("drawing on %s %s", d, d.Bounds().Size())
	}

	if *interval == 0 {
		r := tsl2561.Reading{}
		if err := dev.Sense(&r); err != nil && !rangeError(err) {
			return err
		}
		return out.show(r)
	}

	ch, err := dev.SenseContinuous(*interval)
	if err != nil {
		return err
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	for n := 0; *count == 0 || n < *count; n++ {
		select {
		case <-sig:
			return nil
		case r, ok := <-ch:
			if !ok {
				return nil
			}
			if err := out.show(r); err != nil {
				return err
			}
		case <-time.After(10 * *interval):
			return errors.New("timed out waiting for a reading")
		}
	}
	return nil
}

func rangeError(err error) bool {
	return errors.Is(err, tsl2561.ErrUnderrange) || errors.Is(err, tsl2561.ErrOverrange)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "tsl2561: %s.\n", err)
		os.Exit(1)
	}
}
