package rgbmatrix

import "fmt"

// Framebuffer holds one frame in dump-ready form: for every scan row,
// pixel column and bit-plane there is a prebuilt GPIO word carrying the
// color lanes of all chains. The refresh engine only has to walk it and
// OR in the clock.
//
// Mutators and the refresh engine may run concurrently; a torn write
// shows a briefly wrong pixel and nothing worse.
type Framebuffer struct {
	rows     int
	columns  int
	parallel int
	height   int

	doubleRows int
	rowMask    int

	pwmBits          int
	brightness       int
	luminanceCorrect bool

	pinout Pinout
	opt    Options

	// plane-major within a scan row:
	// offset(r, c, b) = r*columns*BitPlanes + b*columns + c
	plane0 []uint32
	plane1 []uint32 // second pin word, ExtendedChains only
}

// NewFramebuffer allocates a frame for a chain of panels with the given
// scan rows, total pixel columns and number of parallel chains.
func NewFramebuffer(rows, columns, parallel int, pinout Pinout, opt Options) (*Framebuffer, error) {
	switch rows {
	case 8, 16, 32, 64:
	default:
		return nil, fmt.Errorf("unsupported panel scan height %d, must be 8, 16, 32 or 64", rows)
	}
	maxParallel := 3
	if opt.ExtendedChains {
		maxParallel = 5
	}
	if parallel < 1 || parallel > maxParallel {
		return nil, fmt.Errorf("parallel chains must be between 1 and %d, got %d", maxParallel, parallel)
	}
	if opt.SingleChain && parallel > 1 {
		return nil, fmt.Errorf("board only wires a single chain, but parallel = %d given", parallel)
	}
	if columns <= 0 {
		return nil, fmt.Errorf("invalid column count %d", columns)
	}
	if err := pinout.check(opt, parallel); err != nil {
		return nil, err
	}

	subPanels := 2
	if opt.SingleSubPanel {
		subPanels = 1
	}
	doubleRows := rows / subPanels

	fb := &Framebuffer{
		rows:             rows,
		columns:          columns,
		parallel:         parallel,
		height:           rows * parallel,
		doubleRows:       doubleRows,
		rowMask:          doubleRows - 1,
		pwmBits:          BitPlanes,
		brightness:       100,
		luminanceCorrect: true,
		pinout:           pinout,
		opt:              opt,
	}
	fb.plane0 = make([]uint32, doubleRows*columns*BitPlanes)
	if opt.ExtendedChains {
		fb.plane1 = make([]uint32, doubleRows*columns*BitPlanes)
	}
	fb.Clear()
	return fb, nil
}

// Width returns the pixel width of the chain.
func (fb *Framebuffer) Width() int { return fb.columns }

// Height returns the stacked pixel height across all parallel chains.
func (fb *Framebuffer) Height() int { return fb.height }

func (fb *Framebuffer) offset(dRow, column, plane int) int {
	return dRow*fb.columns*BitPlanes + plane*fb.columns + column
}

// SetPWMBits selects how many of the most significant bit-planes are
// shown; fewer planes refresh faster at reduced color depth.
func (fb *Framebuffer) SetPWMBits(value int) error {
	if value < 1 || value > BitPlanes {
		return fmt.Errorf("pwm bits must be between 1 and %d, got %d", BitPlanes, value)
	}
	fb.pwmBits = value
	return nil
}

// PWMBits returns the number of displayed bit-planes.
func (fb *Framebuffer) PWMBits() int { return fb.pwmBits }

// SetBrightness sets the brightness in percent. It affects pixels
// written after the call, not the current buffer contents.
func (fb *Framebuffer) SetBrightness(value int) error {
	if value < 1 || value > 100 {
		return fmt.Errorf("brightness must be between 1 and 100, got %d", value)
	}
	fb.brightness = value
	return nil
}

// Brightness returns the brightness in percent.
func (fb *Framebuffer) Brightness() int { return fb.brightness }

// SetLuminanceCorrect toggles CIE1931 luminance correction for pixels
// written after the call.
func (fb *Framebuffer) SetLuminanceCorrect(on bool) { fb.luminanceCorrect = on }

// LuminanceCorrect reports whether CIE1931 correction is applied.
func (fb *Framebuffer) LuminanceCorrect() bool { return fb.luminanceCorrect }

// Clear blanks the frame. With an inverted display the blank level is
// full-on, so it fills with the inverted zero instead of zeroing.
func (fb *Framebuffer) Clear() {
	if fb.opt.InvertDisplay {
		fb.Fill(0, 0, 0)
		return
	}
	for i := range fb.plane0 {
		fb.plane0[i] = 0
	}
	for i := range fb.plane1 {
		fb.plane1[i] = 0
	}
}

// mapRGB maps the three components, honoring the green/blue lane swap.
func (fb *Framebuffer) mapRGB(r, g, b uint8) (red, green, blue uint16) {
	if fb.opt.SwapGreenBlue {
		g, b = b, g
	}
	return fb.mapColor(r), fb.mapColor(g), fb.mapColor(b)
}

// Fill sets every pixel on every chain to the given color.
func (fb *Framebuffer) Fill(r, g, b uint8) {
	red, green, blue := fb.mapRGB(r, g, b)

	for plane := BitPlanes - fb.pwmBits; plane < BitPlanes; plane++ {
		mask := uint16(1) << uint(plane)
		var w0, w1 uint32
		for i := 0; i < fb.parallel; i++ {
			ch := &fb.pinout.Chains[i]
			var w uint32
			if red&mask != 0 {
				w |= ch.R1 | ch.R2
			}
			if green&mask != 0 {
				w |= ch.G1 | ch.G2
			}
			if blue&mask != 0 {
				w |= ch.B1 | ch.B2
			}
			if ch.Word == 0 {
				w0 |= w
			} else {
				w1 |= w
			}
		}
		for row := 0; row < fb.doubleRows; row++ {
			base := fb.offset(row, 0, plane)
			row0 := fb.plane0[base : base+fb.columns]
			for col := range row0 {
				row0[col] = w0
			}
			if fb.plane1 != nil {
				row1 := fb.plane1[base : base+fb.columns]
				for col := range row1 {
					row1[col] = w1
				}
			}
		}
	}
}

// SetPixel writes one pixel. Out of range coordinates are ignored, so
// drawing code does not need to clip. y selects the chain and, within
// the chain, the upper or lower sub-panel lane of the shared scan row.
func (fb *Framebuffer) SetPixel(x, y int, r, g, b uint8) {
	if x < 0 || x >= fb.columns || y < 0 || y >= fb.height {
		return
	}

	red, green, blue := fb.mapRGB(r, g, b)

	chain := y / fb.rows
	yr := y % fb.rows
	ch := &fb.pinout.Chains[chain]

	var rMask, gMask, bMask uint32
	if yr < fb.doubleRows { // upper sub-panel
		rMask, gMask, bMask = ch.R1, ch.G1, ch.B1
	} else {
		rMask, gMask, bMask = ch.R2, ch.G2, ch.B2
	}
	keep := ^(rMask | gMask | bMask)

	buf := fb.plane0
	if ch.Word == 1 {
		buf = fb.plane1
	}

	// Only the planes this pixel participates in are touched; bits of
	// other chains and sub-panels in the same word stay as they are.
	idx := fb.offset(yr&fb.rowMask, x, BitPlanes-fb.pwmBits)
	for plane := BitPlanes - fb.pwmBits; plane < BitPlanes; plane++ {
		mask := uint16(1) << uint(plane)
		w := buf[idx] & keep
		if red&mask != 0 {
			w |= rMask
		}
		if green&mask != 0 {
			w |= gMask
		}
		if blue&mask != 0 {
			w |= bMask
		}
		buf[idx] = w
		idx += fb.columns
	}
}
