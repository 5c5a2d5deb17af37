package gpio

import (
	"github.com/rs/zerolog/log"
	"github.com/warthog618/go-gpiocdev"
)

// Cdev drives pins through the Linux GPIO character device. Each write
// is one ioctl per declared pin group, so it is far too slow for a
// flicker-free refresh, but it works without /dev/mem on any host and
// is the backend of choice for wiring bring-up.
type Cdev struct {
	chip   string
	groups []*cdevGroup
	shadow [2]uint32
}

type cdevGroup struct {
	word    int
	mask    uint32
	offsets []int
	lines   *gpiocdev.Lines
}

// NewCdev returns a backend on the given chip, e.g. "gpiochip0".
func NewCdev(chip string) *Cdev {
	return &Cdev{chip: chip}
}

// Close releases all requested lines.
func (c *Cdev) Close() error {
	for _, g := range c.groups {
		if err := g.lines.Close(); err != nil {
			log.Warn().Err(err).Str("chip", c.chip).Msg("failed to close GPIO lines")
		}
	}
	c.groups = nil
	return nil
}

func (c *Cdev) initOutputs(word int, mask uint32) uint32 {
	var offsets []int
	for i := uint(0); i < 32; i++ {
		if mask&(1<<i) != 0 {
			offsets = append(offsets, 32*word+int(i))
		}
	}
	if len(offsets) == 0 {
		return 0
	}
	lines, err := gpiocdev.RequestLines(c.chip, offsets,
		gpiocdev.AsOutput(make([]int, len(offsets))...))
	if err != nil {
		log.Error().Err(err).Str("chip", c.chip).Ints("offsets", offsets).
			Msg("failed to request GPIO lines")
		return 0
	}
	log.Debug().Str("chip", c.chip).Ints("offsets", offsets).Msg("requested GPIO lines")
	c.groups = append(c.groups, &cdevGroup{word: word, mask: mask, offsets: offsets, lines: lines})
	return mask
}

func (c *Cdev) InitOutputs0(mask uint32) uint32 { return c.initOutputs(0, mask) }
func (c *Cdev) InitOutputs1(mask uint32) uint32 { return c.initOutputs(1, mask) }

// flush pushes the shadow word state to every group touched by mask.
// All lines of a group change in one ioctl.
func (c *Cdev) flush(mask0, mask1 uint32) {
	for _, g := range c.groups {
		mask := mask0
		if g.word == 1 {
			mask = mask1
		}
		if g.mask&mask == 0 {
			continue
		}
		state := c.shadow[g.word]
		vals := make([]int, len(g.offsets))
		for i, off := range g.offsets {
			if state&(1<<uint(off-32*g.word)) != 0 {
				vals[i] = 1
			}
		}
		if err := g.lines.SetValues(vals); err != nil {
			log.Warn().Err(err).Msg("failed to set GPIO line values")
		}
	}
}

func (c *Cdev) WriteMaskedBits(value0, mask0, value1, mask1 uint32) {
	c.shadow[0] = (c.shadow[0] &^ mask0) | (value0 & mask0)
	c.shadow[1] = (c.shadow[1] &^ mask1) | (value1 & mask1)
	c.flush(mask0, mask1)
}

func (c *Cdev) SetBits(bits0, bits1 uint32) {
	c.WriteMaskedBits(bits0, bits0, bits1, bits1)
}

func (c *Cdev) ClearBits(bits0, bits1 uint32) {
	c.WriteMaskedBits(0, bits0, 0, bits1)
}
