// gpio-test walks every pin of the matrix pinout, one at a time, so a
// multimeter or LED can verify the wiring before panels are attached.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fkcurrie/rgbmatrix-golang/internal/config"
	"github.com/fkcurrie/rgbmatrix-golang/pkg/gpio"
	"github.com/fkcurrie/rgbmatrix-golang/pkg/rgbmatrix"
)

func main() {
	var (
		driver   = flag.String("driver", "cdev", "GPIO driver: mem | cdev | sim")
		chip     = flag.String("chip", "gpiochip0", "character device chip for the cdev driver")
		board    = flag.String("board", "pi4", "register base for the mem driver: pi1 | pi23 | pi4")
		holdMs   = flag.Int("hold-ms", 500, "time each pin stays high")
		parallel = flag.Int("parallel", 1, "number of chains whose color lanes to exercise")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	hw := config.HardwareConfig{Driver: *driver, Chip: *chip, Board: *board}
	io, err := hw.OpenIO()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open GPIO backend")
	}

	p := rgbmatrix.DefaultPinout
	type pin struct {
		name string
		word int
		bits uint32
	}
	pins := []pin{
		{"OE", 0, p.OE},
		{"clock", 0, p.Clock},
		{"strobe", 0, p.Strobe},
		{"addr A", 0, p.A}, {"addr B", 0, p.B}, {"addr C", 0, p.C},
		{"addr D", 0, p.D}, {"addr E", 0, p.E},
	}
	lanes := []string{"r1", "g1", "b1", "r2", "g2", "b2"}
	for i := 0; i < *parallel && i < len(p.Chains); i++ {
		ch := p.Chains[i]
		for j, bits := range []uint32{ch.R1, ch.G1, ch.B1, ch.R2, ch.G2, ch.B2} {
			name := fmt.Sprintf("chain %d %s", i+1, lanes[j])
			pins = append(pins, pin{name: name, word: ch.Word, bits: bits})
		}
	}

	var mask [2]uint32
	for _, pn := range pins {
		mask[pn.word] |= pn.bits
	}
	if got := io.InitOutputs0(mask[0]); got != mask[0] {
		log.Fatal().Uint32("requested", mask[0]).Uint32("supported", got).
			Msg("word-0 pins not supported")
	}
	if mask[1] != 0 {
		if got := io.InitOutputs1(mask[1]); got != mask[1] {
			log.Fatal().Uint32("requested", mask[1]).Uint32("supported", got).
				Msg("word-1 pins not supported")
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	hold := time.Duration(*holdMs) * time.Millisecond
	for {
		for _, pn := range pins {
			select {
			case <-sigChan:
				log.Info().Msg("shutting down")
				io.ClearBits(mask[0], mask[1])
				if c, ok := io.(interface{ Close() error }); ok {
					c.Close()
				}
				return
			default:
			}
			log.Info().Str("pin", pn.name).Int("word", pn.word).
				Uint32("bits", pn.bits).Msg("driving high")
			var b0, b1 uint32
			if pn.word == 0 {
				b0 = pn.bits
			} else {
				b1 = pn.bits
			}
			io.SetBits(b0, b1)
			time.Sleep(hold)
			io.ClearBits(b0, b1)
		}
		if _, ok := io.(*gpio.Sim); ok {
			log.Info().Msg("simulation pass complete")
			return
		}
	}
}
