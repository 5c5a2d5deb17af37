package rgbmatrix

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkcurrie/rgbmatrix-golang/pkg/gpio"
)

func TestNewMatrix(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg:  &Config{Rows: 32, Columns: 64, Brightness: 80, PWMBits: 11},
		},
		{
			name: "defaults filled in",
			cfg:  &Config{Rows: 16, Columns: 32},
		},
		{
			name:    "invalid rows",
			cfg:     &Config{Rows: 24, Columns: 64},
			wantErr: true,
		},
		{
			name:    "zero columns",
			cfg:     &Config{Rows: 32, Columns: 0},
			wantErr: true,
		},
		{
			name:    "invalid brightness",
			cfg:     &Config{Rows: 32, Columns: 64, Brightness: 101},
			wantErr: true,
		},
		{
			name:    "invalid pwm bits",
			cfg:     &Config{Rows: 32, Columns: 64, PWMBits: 12},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMatrix(tt.cfg, gpio.NewSim())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, m)
			assert.Equal(t, image.Rect(0, 0, tt.cfg.Columns, tt.cfg.Rows), m.Bounds())
		})
	}
}

func TestMatrixDrawAndSwap(t *testing.T) {
	m, err := NewMatrix(&Config{Rows: 32, Columns: 32}, gpio.NewSim())
	require.NoError(t, err)

	m.SetPixel(3, 4, color.RGBA{255, 0, 0, 255})
	back := m.back
	m.Swap()

	assert.Same(t, back, m.runner.Front(), "drawn buffer must be the one displayed")
	r, _, _ := planeRGB(back, 3, 4)
	assert.Equal(t, uint16(maxLuminance), r)

	// Settings carry over to the recycled buffer.
	require.NoError(t, m.SetBrightness(40))
	require.NoError(t, m.SetPWMBits(7))
	m.Swap()
	assert.Equal(t, 40, m.back.Brightness())
	assert.Equal(t, 7, m.back.PWMBits())
}

func TestMatrixSetImage(t *testing.T) {
	m, err := NewMatrix(&Config{Rows: 16, Columns: 16}, gpio.NewSim())
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	img.Set(2, 3, color.RGBA{0, 0, 255, 255})
	require.NoError(t, m.SetImage(img))

	_, _, b := planeRGB(m.back, 2, 3)
	assert.Equal(t, uint16(maxLuminance), b)

	wrong := image.NewRGBA(image.Rect(0, 0, 8, 8))
	assert.Error(t, m.SetImage(wrong))
}

func TestMatrixStartAndClose(t *testing.T) {
	sim := gpio.NewSim()
	m, err := NewMatrix(&Config{Rows: 8, Columns: 4, PWMBits: 1}, sim)
	require.NoError(t, err)

	m.Start(context.Background())
	m.Fill(color.RGBA{0, 255, 0, 255})
	m.Swap()
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, m.Close())
	assert.NotEmpty(t, sim.Ops())

	// Close again is a no-op.
	require.NoError(t, m.Close())
}
