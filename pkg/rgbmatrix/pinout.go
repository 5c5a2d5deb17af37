// Package rgbmatrix drives chains of HUB75 RGB LED panels over raw GPIO.
//
// The panels have no brightness control of their own; the package
// synthesizes it with binary code modulation: the frame is kept as a set
// of bit-planes, and plane k is gated onto the row drivers for a time
// proportional to 2^k. The framebuffer is laid out so that pushing one
// plane of one scan row to the shift registers is a contiguous walk
// emitting one GPIO word per pixel column.
package rgbmatrix

import "fmt"

const (
	// BitPlanes is the maximum number of usable PWM bit-planes.
	BitPlanes = 11

	maxLuminance = (1 << BitPlanes) - 1
)

// Options selects the hardware variants of a panel installation. The
// zero value describes a regular chain on the standard pinout.
type Options struct {
	// SingleChain forbids parallel chains; boards like the Adafruit
	// bonnet only wire up the first chain's color lanes.
	SingleChain bool
	// SingleSubPanel is for exotic panels that drive one physical row
	// per scan address instead of multiplexing an upper and lower half.
	SingleSubPanel bool
	// ExtendedChains enables chains 4 and 5, whose color lanes live in
	// the second GPIO word.
	ExtendedChains bool
	// SwapGreenBlue exchanges the green and blue input channels for
	// panels shipped with R/B/G lane wiring.
	SwapGreenBlue bool
	// InvertDisplay complements every color value for panels with
	// inverted drivers.
	InvertDisplay bool
	// LegacyRev1Pinout mirrors clock and output-enable onto the shadow
	// pins of first-revision boards.
	LegacyRev1Pinout bool
}

// ChainPins holds the color lane bits of one chain: upper sub-panel
// R1/G1/B1 and lower sub-panel R2/G2/B2, all within one pin word.
type ChainPins struct {
	Word                   int
	R1, G1, B1, R2, G2, B2 uint32
}

func (c *ChainPins) all() uint32 {
	return c.R1 | c.G1 | c.B1 | c.R2 | c.G2 | c.B2
}

// Pinout maps the logical panel signals onto bit positions of the one
// or two GPIO words. It is the only place where board revisions differ.
type Pinout struct {
	OE     uint32
	Clock  uint32
	Strobe uint32

	// Shadow bits driven together with Clock/OE on legacy rev1 boards.
	ClockShadow uint32
	OEShadow    uint32

	// Row address lines; E is only used by 64-row panels.
	A, B, C, D, E uint32

	Chains [5]ChainPins
}

func bit(n uint) uint32 { return 1 << n }

// DefaultPinout is the standard 40-pin header wiring. Chain 1 matches
// the Adafruit bonnet; chains 2 and 3 take the remaining header pins,
// and chains 4 and 5 sit in the second pin word of boards that break
// out more than 32 GPIOs.
var DefaultPinout = Pinout{
	OE:     bit(4),
	Clock:  bit(17),
	Strobe: bit(21),

	ClockShadow: bit(30) | bit(31),
	OEShadow:    bit(28) | bit(29),

	A: bit(22), B: bit(26), C: bit(27), D: bit(20), E: bit(24),

	Chains: [5]ChainPins{
		{Word: 0, R1: bit(5), G1: bit(13), B1: bit(6), R2: bit(12), G2: bit(16), B2: bit(23)},
		{Word: 0, R1: bit(7), G1: bit(8), B1: bit(9), R2: bit(10), G2: bit(11), B2: bit(14)},
		{Word: 0, R1: bit(15), G1: bit(18), B1: bit(19), R2: bit(25), G2: bit(2), B2: bit(3)},
		{Word: 1, R1: bit(0), G1: bit(1), B1: bit(2), R2: bit(3), G2: bit(4), B2: bit(5)},
		{Word: 1, R1: bit(6), G1: bit(7), B1: bit(8), R2: bit(9), G2: bit(10), B2: bit(11)},
	},
}

// clockBits returns the clock mask including legacy shadows if enabled.
func (p *Pinout) clockBits(opt Options) uint32 {
	m := p.Clock
	if opt.LegacyRev1Pinout {
		m |= p.ClockShadow
	}
	return m
}

// oeBits returns the output-enable mask including legacy shadows.
func (p *Pinout) oeBits(opt Options) uint32 {
	m := p.OE
	if opt.LegacyRev1Pinout {
		m |= p.OEShadow
	}
	return m
}

func (p *Pinout) addressBits() uint32 {
	return p.A | p.B | p.C | p.D | p.E
}

// addressWord spreads a scan row index onto the address lines.
func (p *Pinout) addressWord(dRow int) uint32 {
	var w uint32
	if dRow&0x01 != 0 {
		w |= p.A
	}
	if dRow&0x02 != 0 {
		w |= p.B
	}
	if dRow&0x04 != 0 {
		w |= p.C
	}
	if dRow&0x08 != 0 {
		w |= p.D
	}
	if dRow&0x10 != 0 {
		w |= p.E
	}
	return w
}

// check verifies that no two signals share a bit position.
func (p *Pinout) check(opt Options, parallel int) error {
	var seen [2]uint32
	claim := func(word int, bits uint32, name string) error {
		if seen[word]&bits != 0 {
			return fmt.Errorf("pinout: %s overlaps an already assigned pin", name)
		}
		seen[word] |= bits
		return nil
	}
	type sig struct {
		bits uint32
		name string
	}
	signals := []sig{
		{p.OE, "output enable"},
		{p.Clock, "clock"},
		{p.Strobe, "strobe"},
		{p.addressBits(), "address lines"},
	}
	if opt.LegacyRev1Pinout {
		signals = append(signals,
			sig{p.ClockShadow, "clock shadow"},
			sig{p.OEShadow, "output enable shadow"})
	}
	for _, s := range signals {
		if err := claim(0, s.bits, s.name); err != nil {
			return err
		}
	}
	for i := 0; i < parallel; i++ {
		ch := &p.Chains[i]
		if err := claim(ch.Word, ch.all(), fmt.Sprintf("chain %d color lanes", i+1)); err != nil {
			return err
		}
	}
	return nil
}
