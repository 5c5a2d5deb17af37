// Package config loads the YAML runtime configuration of the demo
// binaries.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fkcurrie/rgbmatrix-golang/pkg/gpio"
	"github.com/fkcurrie/rgbmatrix-golang/pkg/rgbmatrix"
)

// DisplayConfig describes the panel chain geometry and color settings.
type DisplayConfig struct {
	Rows        int  `yaml:"rows"`
	Columns     int  `yaml:"columns"`
	Parallel    int  `yaml:"parallel"`
	Brightness  int  `yaml:"brightness"`
	PWMBits     int  `yaml:"pwm_bits"`
	LinearColor bool `yaml:"linear_color"`
}

// HardwareConfig selects the GPIO backend and the board variants.
type HardwareConfig struct {
	// Driver is "mem", "cdev" or "sim".
	Driver string `yaml:"driver"`
	// Chip is the character device chip name for the cdev driver.
	Chip string `yaml:"chip"`
	// Board selects the register base for the mem driver: "pi1",
	// "pi23" or "pi4".
	Board string `yaml:"board"`

	SingleChain      bool `yaml:"single_chain"`
	SingleSubPanel   bool `yaml:"single_sub_panel"`
	ExtendedChains   bool `yaml:"extended_chains"`
	SwapGreenBlue    bool `yaml:"swap_green_blue"`
	InvertDisplay    bool `yaml:"invert_display"`
	LegacyRev1Pinout bool `yaml:"legacy_rev1_pinout"`
}

// Config is the root of the configuration file.
type Config struct {
	Display  DisplayConfig  `yaml:"display"`
	Hardware HardwareConfig `yaml:"hardware"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Display: DisplayConfig{
			Rows:       32,
			Columns:    64,
			Parallel:   1,
			Brightness: 80,
		},
		Hardware: HardwareConfig{
			Driver: "sim",
			Chip:   "gpiochip0",
			Board:  "pi4",
		},
	}
}

// Options translates the hardware section into matrix options.
func (h *HardwareConfig) Options() rgbmatrix.Options {
	return rgbmatrix.Options{
		SingleChain:      h.SingleChain,
		SingleSubPanel:   h.SingleSubPanel,
		ExtendedChains:   h.ExtendedChains,
		SwapGreenBlue:    h.SwapGreenBlue,
		InvertDisplay:    h.InvertDisplay,
		LegacyRev1Pinout: h.LegacyRev1Pinout,
	}
}

// OpenIO builds the configured GPIO backend.
func (h *HardwareConfig) OpenIO() (gpio.IO, error) {
	switch h.Driver {
	case "sim", "":
		return gpio.NewSim(), nil
	case "cdev":
		chip := h.Chip
		if chip == "" {
			chip = "gpiochip0"
		}
		return gpio.NewCdev(chip), nil
	case "mem":
		var base uintptr
		switch h.Board {
		case "pi1":
			base = gpio.MemBasePi1
		case "pi23":
			base = gpio.MemBasePi23
		case "pi4", "":
			base = gpio.MemBasePi4
		default:
			return nil, fmt.Errorf("unknown board %q", h.Board)
		}
		return gpio.NewMem(base)
	default:
		return nil, fmt.Errorf("unknown GPIO driver %q", h.Driver)
	}
}

// MatrixConfig translates the display section into the core config.
func (c *Config) MatrixConfig() *rgbmatrix.Config {
	return &rgbmatrix.Config{
		Rows:        c.Display.Rows,
		Columns:     c.Display.Columns,
		Parallel:    c.Display.Parallel,
		Brightness:  c.Display.Brightness,
		PWMBits:     c.Display.PWMBits,
		LinearColor: c.Display.LinearColor,
		Options:     c.Hardware.Options(),
	}
}
