// matrix-svg rasterizes an SVG file and shows it on the panel chain.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"

	"github.com/fkcurrie/rgbmatrix-golang/internal/config"
	"github.com/fkcurrie/rgbmatrix-golang/pkg/rgbmatrix"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		driver     = flag.String("driver", "", "override GPIO driver: mem | cdev | sim")
		svgPath    = flag.String("svg", "", "SVG file to display")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	if *svgPath == "" {
		log.Fatal().Msg("missing -svg argument")
	}

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

	bounds := matrix.Bounds()
	img, err := renderSVG(*svgPath, bounds.Dx(), bounds.Dy())
	if err != nil {
		log.Fatal().Err(err).Str("path", *svgPath).Msg("failed to render SVG")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	matrix.Start(ctx)
	defer matrix.Close()

	if err := matrix.SetImage(img); err != nil {
		log.Fatal().Err(err).Msg("failed to set image")
	}
	matrix.Swap()
	log.Info().Str("svg", *svgPath).Msg("displaying; ctrl-c to quit")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("shutting down")
}

// renderSVG rasterizes the SVG at its native size, then rescales the
// result to the panel geometry.
func renderSVG(path string, width, height int) (image.Image, error) {
	icon, err := oksvg.ReadIcon(path, oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %v", err)
	}

	w := int(icon.ViewBox.W)
	h := int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("SVG has no usable view box")
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	full := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, full, full.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), full, full.Bounds(), draw.Over, nil)
	return scaled, nil
}
