package gpio

import (
	"fmt"

	"github.com/fkcurrie/rgbmatrix-golang/pkg/mmap"
)

// Physical base addresses of the GPIO register file per Pi generation.
const (
	MemBasePi1  = 0x20200000
	MemBasePi23 = 0x3f200000
	MemBasePi4  = 0xfe200000
)

// BCM283x-style GPIO register offsets. The set/clear registers make a
// single write an atomic OR / AND-NOT over a whole pin word.
const (
	memSize = 0xb4

	regFSel0 = 0x00 // function select, 3 bits per pin, 10 pins per register
	regSet0  = 0x1c
	regSet1  = 0x20
	regClr0  = 0x28
	regClr1  = 0x2c

	fselOutput = 0x1

	// GPIOs above 53 do not exist on this register file.
	word1Valid = (1 << (54 - 32)) - 1
)

// Mem drives GPIO pins by poking the memory mapped register file
// directly. This is the fast path: one store per pin word.
type Mem struct {
	reg  *mmap.Region
	out0 uint32
	out1 uint32
}

// NewMem maps the GPIO registers at the given physical base address
// (one of the MemBase constants).
func NewMem(base uintptr) (*Mem, error) {
	reg, err := mmap.Open(base, memSize)
	if err != nil {
		return nil, fmt.Errorf("failed to map GPIO registers: %v", err)
	}
	return &Mem{reg: reg}, nil
}

// Close unmaps the register window. Pins keep their last driven state.
func (m *Mem) Close() error {
	return m.reg.Close()
}

func (m *Mem) selectOutput(pin uint) {
	off := regFSel0 + 4*uintptr(pin/10)
	shift := 3 * (pin % 10)
	cur := m.reg.Read32(off)
	m.reg.Write32(off, (cur&^(0x7<<shift))|(fselOutput<<shift))
}

func (m *Mem) InitOutputs0(mask uint32) uint32 {
	for i := uint(0); i < 32; i++ {
		if mask&(1<<i) != 0 {
			m.selectOutput(i)
		}
	}
	m.out0 |= mask
	return mask
}

func (m *Mem) InitOutputs1(mask uint32) uint32 {
	mask &= word1Valid
	for i := uint(0); i < 32; i++ {
		if mask&(1<<i) != 0 {
			m.selectOutput(32 + i)
		}
	}
	m.out1 |= mask
	return mask
}

func (m *Mem) SetBits(bits0, bits1 uint32) {
	if bits0 &= m.out0; bits0 != 0 {
		m.reg.Write32(regSet0, bits0)
	}
	if bits1 &= m.out1; bits1 != 0 {
		m.reg.Write32(regSet1, bits1)
	}
}

func (m *Mem) ClearBits(bits0, bits1 uint32) {
	if bits0 &= m.out0; bits0 != 0 {
		m.reg.Write32(regClr0, bits0)
	}
	if bits1 &= m.out1; bits1 != 0 {
		m.reg.Write32(regClr1, bits1)
	}
}

// WriteMaskedBits has no dedicated register; it decomposes into a clear
// of the zero bits and a set of the one bits under each mask.
func (m *Mem) WriteMaskedBits(value0, mask0, value1, mask1 uint32) {
	m.ClearBits(^value0&mask0, ^value1&mask1)
	m.SetBits(value0&mask0, value1&mask1)
}
