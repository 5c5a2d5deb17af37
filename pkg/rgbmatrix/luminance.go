package rgbmatrix

import (
	"math"
	"sync"
)

// CIE1931 maps a perceived lightness to linear light output. The panel
// shows linear light, so running the input through this curve makes
// equal input steps look like equal brightness steps.
func cie1931Luminance(c uint8, brightness int) uint16 {
	out := float64(maxLuminance)
	v := float64(c) * float64(brightness) / 255.0
	if v <= 8 {
		return uint16(out * v / 903.3)
	}
	return uint16(out * math.Pow((v+16)/116.0, 3))
}

var (
	luminanceOnce  sync.Once
	luminanceTable []uint16
)

// luminanceLookup returns the precomputed CIE1931 value for an input
// byte at a brightness in [1, 100]. The table is built on first use.
func luminanceLookup(c uint8, brightness int) uint16 {
	luminanceOnce.Do(func() {
		luminanceTable = make([]uint16, 256*100)
		for i := 0; i < 256; i++ {
			for j := 0; j < 100; j++ {
				luminanceTable[i*100+j] = cie1931Luminance(uint8(i), j+1)
			}
		}
	})
	return luminanceTable[int(c)*100+brightness-1]
}

// mapColor turns an 8-bit sRGB component into the BitPlanes-wide value
// whose bits select the planes the pixel participates in.
func (fb *Framebuffer) mapColor(c uint8) uint16 {
	var out uint16
	if fb.luminanceCorrect {
		out = luminanceLookup(c, fb.brightness)
	} else {
		// Scale by brightness, then left-align into the planes.
		scaled := int(c) * fb.brightness / 100
		out = uint16(scaled << (BitPlanes - 8))
	}
	if fb.opt.InvertDisplay {
		out ^= maxLuminance
	}
	return out
}
