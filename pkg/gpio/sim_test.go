package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimMaskedWrite(t *testing.T) {
	s := NewSim()
	s.InitOutputs0(0xff)

	s.SetBits(0x0f, 0)
	assert.Equal(t, uint32(0x0f), s.State(0))

	// Masked write only touches pins under the mask.
	s.WriteMaskedBits(0xa0, 0xf0, 0, 0)
	assert.Equal(t, uint32(0xaf), s.State(0))

	s.ClearBits(0x0a, 0)
	assert.Equal(t, uint32(0xa5), s.State(0))

	ops := s.Ops()
	assert.Len(t, ops, 3)
	assert.Equal(t, OpWrite, ops[1].Kind)
	assert.Equal(t, uint32(0xaf), ops[1].State0)
}

func TestSimSecondWord(t *testing.T) {
	s := NewSim()
	s.InitOutputs0(0x1)
	s.InitOutputs1(0x3)

	s.WriteMaskedBits(0x1, 0x1, 0x2, 0x3)
	assert.Equal(t, uint32(0x1), s.State(0))
	assert.Equal(t, uint32(0x2), s.State(1))
}
