package rgbmatrix

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/fkcurrie/rgbmatrix-golang/pkg/gpio"
)

// Config holds the construction parameters for a Matrix.
type Config struct {
	// Rows is the scan height of a single panel: 8, 16, 32 or 64.
	Rows int
	// Columns is the total pixel width of a chain.
	Columns int
	// Parallel is the number of chains on disjoint color lanes.
	Parallel int
	// Brightness in percent; 0 means 100.
	Brightness int
	// PWMBits is the number of displayed bit-planes; 0 means all.
	PWMBits int
	// LinearColor disables the CIE1931 luminance correction.
	LinearColor bool
	// Pinout overrides the signal mapping; zero value uses DefaultPinout.
	Pinout *Pinout
	// Options selects the hardware variants.
	Options Options
}

// Matrix is the high level handle: a double-buffered framebuffer pair
// with a background refresh goroutine. Drawing goes to the back buffer;
// Swap makes it visible.
type Matrix struct {
	mu     sync.Mutex
	back   *Framebuffer
	runner *Runner
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMatrix validates the configuration, declares the GPIO outputs on
// io and returns a matrix ready to draw on. Nothing is displayed until
// Start is called.
func NewMatrix(cfg *Config, io gpio.IO) (*Matrix, error) {
	if cfg.Rows <= 0 || cfg.Columns <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", cfg.Columns, cfg.Rows)
	}
	parallel := cfg.Parallel
	if parallel == 0 {
		parallel = 1
	}
	pinout := DefaultPinout
	if cfg.Pinout != nil {
		pinout = *cfg.Pinout
	}

	newBuffer := func() (*Framebuffer, error) {
		fb, err := NewFramebuffer(cfg.Rows, cfg.Columns, parallel, pinout, cfg.Options)
		if err != nil {
			return nil, err
		}
		if cfg.Brightness != 0 {
			if err := fb.SetBrightness(cfg.Brightness); err != nil {
				return nil, err
			}
		}
		if cfg.PWMBits != 0 {
			if err := fb.SetPWMBits(cfg.PWMBits); err != nil {
				return nil, err
			}
		}
		fb.SetLuminanceCorrect(!cfg.LinearColor)
		return fb, nil
	}

	front, err := newBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to create framebuffer: %w", err)
	}
	back, err := newBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to create framebuffer: %w", err)
	}

	ref, err := NewRefresher(io, front)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GPIO outputs: %w", err)
	}

	return &Matrix{
		back:   back,
		runner: NewRunner(ref, front),
	}, nil
}

// Start launches the refresh loop. It returns immediately; the loop
// runs until ctx is canceled or Close is called.
func (m *Matrix) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		m.runner.Run(ctx)
	}(m.done)
}

// Close stops the refresh loop and waits for the final blank frame.
func (m *Matrix) Close() error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Swap displays the back buffer and recycles the previously displayed
// one for drawing. Settings made through the matrix carry over.
func (m *Matrix) Swap() {
	m.mu.Lock()
	defer m.mu.Unlock()
	shown := m.back
	recycled := m.runner.Swap(shown)
	recycled.pwmBits = shown.pwmBits
	recycled.brightness = shown.brightness
	recycled.luminanceCorrect = shown.luminanceCorrect
	m.back = recycled
}

// Bounds returns the drawable area.
func (m *Matrix) Bounds() image.Rectangle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return image.Rect(0, 0, m.back.Width(), m.back.Height())
}

func rgb(c color.Color) (uint8, uint8, uint8) {
	r, g, b, _ := c.RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

// SetPixel draws one pixel into the back buffer. Out of range
// coordinates are ignored.
func (m *Matrix) SetPixel(x, y int, c color.Color) {
	r, g, b := rgb(c)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.back.SetPixel(x, y, r, g, b)
}

// Fill floods the back buffer with one color.
func (m *Matrix) Fill(c color.Color) {
	r, g, b := rgb(c)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.back.Fill(r, g, b)
}

// Clear blanks the back buffer.
func (m *Matrix) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.back.Clear()
}

// SetImage copies img into the back buffer. The image dimensions must
// match the matrix dimensions.
func (m *Matrix) SetImage(img image.Image) error {
	bounds := img.Bounds()
	m.mu.Lock()
	defer m.mu.Unlock()
	if bounds.Dx() != m.back.Width() || bounds.Dy() != m.back.Height() {
		return fmt.Errorf("image dimensions (%dx%d) do not match matrix dimensions (%dx%d)",
			bounds.Dx(), bounds.Dy(), m.back.Width(), m.back.Height())
	}
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b := rgb(img.At(bounds.Min.X+x, bounds.Min.Y+y))
			m.back.SetPixel(x, y, r, g, b)
		}
	}
	return nil
}

// SetBrightness sets the brightness in percent for subsequent drawing.
func (m *Matrix) SetBrightness(value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.back.SetBrightness(value)
}

// SetPWMBits selects the number of displayed bit-planes.
func (m *Matrix) SetPWMBits(value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.back.SetPWMBits(value)
}
