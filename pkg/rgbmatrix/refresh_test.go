package rgbmatrix

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkcurrie/rgbmatrix-golang/pkg/gpio"
)

func newTestRig(t *testing.T, rows, columns, parallel int, opt Options) (*gpio.Sim, *Refresher, *Framebuffer) {
	t.Helper()
	sim := gpio.NewSim()
	fb, err := NewFramebuffer(rows, columns, parallel, DefaultPinout, opt)
	require.NoError(t, err)
	ref, err := NewRefresher(sim, fb)
	require.NoError(t, err)
	sim.Reset()
	return sim, ref, fb
}

// strobeCount counts latch pulses: a set of the strobe bit.
func strobeCount(ops []gpio.Op, strobe uint32) int {
	n := 0
	for _, op := range ops {
		if op.Kind == gpio.OpSet && op.Mask0&strobe != 0 {
			n++
		}
	}
	return n
}

func TestRefresherRejectsUnsupportedPins(t *testing.T) {
	sim := gpio.NewSim()
	fb, err := NewFramebuffer(32, 32, 5, DefaultPinout, Options{ExtendedChains: true})
	require.NoError(t, err)

	// A port that supports no second pin word must be rejected.
	_, err = NewRefresher(brokenWord1{sim}, fb)
	assert.Error(t, err)
}

type brokenWord1 struct{ *gpio.Sim }

func (b brokenWord1) InitOutputs1(mask uint32) uint32 { return 0 }

func TestDumpEmitsOnePlanePerStrobe(t *testing.T) {
	tests := []struct {
		name    string
		pwmBits int
	}{
		{name: "all planes", pwmBits: 11},
		{name: "eight planes", pwmBits: 8},
		{name: "single plane", pwmBits: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, ref, fb := newTestRig(t, 16, 8, 1, Options{})
			require.NoError(t, fb.SetPWMBits(tt.pwmBits))

			ref.DumpToMatrix(fb)

			want := fb.doubleRows * tt.pwmBits
			assert.Equal(t, want, strobeCount(sim.Ops(), fb.pinout.Strobe))
		})
	}
}

func TestDumpMasksStayWithinDeclaredOutputs(t *testing.T) {
	sim, ref, fb := newTestRig(t, 32, 16, 2, Options{})
	fb.Fill(200, 150, 100)

	ref.DumpToMatrix(fb)

	for i, op := range sim.Ops() {
		assert.Zero(t, op.Mask0&^sim.Outputs(0), "op %d writes undeclared word-0 pins", i)
		assert.Zero(t, op.Mask1&^sim.Outputs(1), "op %d writes undeclared word-1 pins", i)
	}
}

func TestDumpAfterClearEmitsNoColor(t *testing.T) {
	sim, ref, fb := newTestRig(t, 32, 8, 1, Options{})
	fb.Fill(255, 255, 255)
	fb.Clear()
	sim.Reset()

	ref.DumpToMatrix(fb)

	colorBits := fb.pinout.Chains[0].all()
	for i, op := range sim.Ops() {
		if op.Kind != gpio.OpWrite || op.Mask0&colorBits == 0 {
			continue
		}
		assert.Zero(t, op.Value0&colorBits, "column write %d carries color after Clear", i)
	}
}

func TestDumpColumnWritesExcludeControlSignals(t *testing.T) {
	sim, ref, fb := newTestRig(t, 32, 8, 1, Options{})
	fb.Fill(255, 0, 0)

	ref.DumpToMatrix(fb)

	p := &fb.pinout
	forbidden := p.addressBits() | p.Strobe | p.OE
	colorBits := p.Chains[0].all()
	for i, op := range sim.Ops() {
		if op.Kind != gpio.OpWrite || op.Mask0&colorBits == 0 {
			continue
		}
		assert.Zero(t, op.Mask0&forbidden, "column write %d touches address, strobe or OE", i)
	}
}

func TestDumpAddressSequence(t *testing.T) {
	sim, ref, fb := newTestRig(t, 32, 4, 1, Options{})

	ref.DumpToMatrix(fb)

	// Address writes are the only writes touching the A line.
	p := &fb.pinout
	var rows []uint32
	for _, op := range sim.Ops() {
		if op.Kind == gpio.OpWrite && op.Mask0&p.A != 0 {
			rows = append(rows, op.Value0)
		}
	}
	require.Len(t, rows, fb.doubleRows)
	for d, got := range rows {
		assert.Equal(t, p.addressWord(d), got, "address for scan row %d", d)
	}
}

func TestDumpMirrorsClockOnLegacyPins(t *testing.T) {
	sim, ref, fb := newTestRig(t, 32, 4, 1, Options{LegacyRev1Pinout: true})
	fb.Fill(255, 255, 255)

	ref.DumpToMatrix(fb)

	p := &fb.pinout
	sawClock := false
	for _, op := range sim.Ops() {
		if op.Kind == gpio.OpSet && op.Mask0&p.Clock != 0 {
			sawClock = true
			assert.Equal(t, p.ClockShadow, op.Mask0&p.ClockShadow, "clock edge must mirror onto shadow pins")
		}
	}
	assert.True(t, sawClock)
}

func TestConcurrentFillAndDump(t *testing.T) {
	sim, ref, fb := newTestRig(t, 32, 8, 1, Options{})
	require.NoError(t, fb.SetPWMBits(4))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			ref.DumpToMatrix(fb)
		}
	}()
	fb.Fill(255, 0, 0)
	wg.Wait()

	// One full frame after the fill completed shows pure red everywhere.
	sim.Reset()
	ref.DumpToMatrix(fb)

	ch := &fb.pinout.Chains[0]
	red := ch.R1 | ch.R2
	other := ch.G1 | ch.G2 | ch.B1 | ch.B2
	checked := 0
	for _, op := range sim.Ops() {
		if op.Kind != gpio.OpWrite || op.Mask0&red == 0 {
			continue
		}
		checked++
		assert.Equal(t, red, op.Value0&red, "red lanes must be set")
		assert.Zero(t, op.Value0&other, "green and blue lanes must be clear")
	}
	assert.Equal(t, fb.doubleRows*fb.pwmBits*fb.columns, checked)
}

func TestRunnerSwapTakesEffectNextFrame(t *testing.T) {
	sim, ref, fb := newTestRig(t, 8, 4, 1, Options{})
	require.NoError(t, fb.SetPWMBits(1))

	back, err := NewFramebuffer(8, 4, 1, DefaultPinout, Options{})
	require.NoError(t, err)
	require.NoError(t, back.SetPWMBits(1))
	back.Fill(255, 0, 0)

	ru := NewRunner(ref, fb)
	old := ru.Swap(back)
	assert.Same(t, fb, old)
	assert.Same(t, back, ru.Front())

	sim.Reset()
	ref.DumpToMatrix(ru.Front())

	ch := &fb.pinout.Chains[0]
	red := ch.R1 | ch.R2
	saw := false
	for _, op := range sim.Ops() {
		if op.Kind == gpio.OpWrite && op.Value0&red == red {
			saw = true
		}
	}
	assert.True(t, saw, "swapped-in frame must be the one displayed")
}

func TestRunnerCancelBlanksDisplay(t *testing.T) {
	sim, ref, fb := newTestRig(t, 8, 4, 1, Options{})
	require.NoError(t, fb.SetPWMBits(1))
	fb.Fill(255, 255, 255)

	ru := NewRunner(ref, fb)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ru.Run(ctx)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}

	// The tail of the op log is the blank frame: its column writes
	// carry no color.
	ops := sim.Ops()
	colorBits := fb.pinout.Chains[0].all()
	strobes := 0
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if op.Kind == gpio.OpSet && op.Mask0&fb.pinout.Strobe != 0 {
			strobes++
		}
		if op.Kind == gpio.OpWrite && op.Mask0&colorBits != 0 {
			assert.Zero(t, op.Value0&colorBits, "final frame must be blank")
		}
		if strobes == fb.doubleRows*fb.pwmBits {
			break
		}
	}
	assert.Equal(t, fb.doubleRows*fb.pwmBits, strobes, "one trailing blank frame expected")
}
