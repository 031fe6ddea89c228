package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"basic10/pkg/chip"
	"basic10/pkg/devices"
	"basic10/pkg/utils"
)

// pace runs one chip tick per interval until the chip halts, maxTicks pass
// or an interrupt arrives on stop.
func pace(c *chip.Chip, interval time.Duration, maxTicks int, every int, stop <-chan os.Signal) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for c.Ticks < maxTicks && !c.Halted {
		select {
		case <-ticker.C:
			if err := c.RunTick(); err != nil {
				return err
			}
			if every > 0 && c.Ticks%every == 0 {
				c.Dump(os.Stdout)
			}
		case <-stop:
			return nil
		}
	}
	return nil
}

func main() {
	devicesPath := flag.String("devices", "", "JSON device network to wire to the chip")
	ticks := flag.Int("ticks", 20, "game ticks to run")
	every := flag.Int("every", 1, "print state every n ticks (0 prints only the end)")
	realtime := flag.Bool("realtime", false, "run at game speed, one tick every half second")
	savePath := flag.String("save", "", "write the final device network to this JSON file")
	trace := flag.Bool("trace", false, "print every executed instruction")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: icsim [flags] program.ic10")
		flag.PrintDefaults()
		os.Exit(2)
	}

	code, fullPath, err := utils.ReadSource(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read program: %v", err)
	}

	net := devices.NewNetwork()
	if *devicesPath != "" {
		if net, err = devices.LoadNetworkFile(*devicesPath); err != nil {
			log.Fatalf("Failed to load devices: %v", err)
		}
	}

	c, err := chip.New(code, net)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", fullPath, err)
	}
	if *trace {
		c.Trace = os.Stdout
	}

	if *realtime {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt)
		err = pace(c, time.Duration(chip.TickSeconds*float64(time.Second)), *ticks, *every, stop)
		signal.Stop(stop)
	} else {
		for c.Ticks < *ticks && !c.Halted && err == nil {
			err = c.RunTick()
			if err == nil && *every > 0 && c.Ticks%*every == 0 {
				c.Dump(os.Stdout)
			}
		}
	}
	if *every == 0 || err != nil {
		c.Dump(os.Stdout)
	}

	if *savePath != "" {
		data, serr := net.SaveState()
		if serr == nil {
			serr = utils.WriteOutput(*savePath, data)
		}
		if serr != nil {
			log.Fatalf("Failed to save devices: %v", serr)
		}
	}
	if err != nil {
		log.Fatal(err)
	}
}
