// matrix-demo cycles test patterns on a HUB75 panel chain.
package main

import (
	"context"
	"flag"
	"image/color"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fkcurrie/rgbmatrix-golang/internal/config"
	"github.com/fkcurrie/rgbmatrix-golang/pkg/rgbmatrix"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		driver     = flag.String("driver", "", "override GPIO driver: mem | cdev | sim")
		frameMs    = flag.Int("frame-ms", 100, "pattern frame interval in milliseconds")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Default()
	}
	if *driver != "" {
		cfg.Hardware.Driver = *driver
	}

	io, err := cfg.Hardware.OpenIO()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open GPIO backend")
	}

	matrix, err := rgbmatrix.NewMatrix(cfg.MatrixConfig(), io)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create matrix")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	matrix.Start(ctx)
	defer matrix.Close()

	log.Info().
		Int("rows", cfg.Display.Rows).
		Int("columns", cfg.Display.Columns).
		Int("parallel", cfg.Display.Parallel).
		Str("driver", cfg.Hardware.Driver).
		Msg("matrix running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	bounds := matrix.Bounds()
	ticker := time.NewTicker(time.Duration(*frameMs) * time.Millisecond)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-sigChan:
			log.Info().Msg("shutting down")
			return
		case <-ticker.C:
			drawPattern(matrix, bounds.Dx(), bounds.Dy(), frame)
			matrix.Swap()
			frame++
		}
	}
}

// drawPattern renders one frame of the rotating demo patterns.
func drawPattern(m *rgbmatrix.Matrix, width, height, frame int) {
	switch (frame / 40) % 4 {
	case 0:
		fills := []color.RGBA{
			{255, 0, 0, 255},
			{0, 255, 0, 255},
			{0, 0, 255, 255},
		}
		m.Fill(fills[(frame/10)%len(fills)])
	case 1:
		checkerboard(m, width, height, frame)
	case 2:
		gradient(m, width, height)
	case 3:
		brightnessSweep(m, width, height, frame)
	}
}

func checkerboard(m *rgbmatrix.Matrix, width, height, frame int) {
	m.Clear()
	const cell = 4
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x/cell+y/cell+frame/8)%2 == 0 {
				m.SetPixel(x, y, color.RGBA{255, 255, 0, 255})
			}
		}
	}
}

func gradient(m *rgbmatrix.Matrix, width, height int) {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8(x * 255 / width)
			b := uint8(y * 255 / height)
			m.SetPixel(x, y, color.RGBA{r, 0, b, 255})
		}
	}
}

func brightnessSweep(m *rgbmatrix.Matrix, width, height, frame int) {
	level := 1 + (frame*5)%100
	if err := m.SetBrightness(level); err != nil {
		log.Warn().Err(err).Int("level", level).Msg("failed to set brightness")
		return
	}
	m.Fill(color.RGBA{255, 255, 255, 255})
}
