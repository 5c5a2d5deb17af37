package rgbmatrix

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/fkcurrie/rgbmatrix-golang/pkg/gpio"
)

// Refresher owns the hardware side of one panel installation: the
// output port with its declared pins and the output-enable pulser.
type Refresher struct {
	io       gpio.IO
	pulser   *PinPulser
	pinout   Pinout
	opt      Options
	addrMask uint32 // the address lines actually declared for this geometry
}

// NewRefresher declares all pins the framebuffer's geometry needs as
// outputs and fails if the port does not support one of them.
func NewRefresher(io gpio.IO, fb *Framebuffer) (*Refresher, error) {
	p := &fb.pinout

	out0 := p.oeBits(fb.opt) | p.clockBits(fb.opt) | p.Strobe
	var out1 uint32
	for i := 0; i < fb.parallel; i++ {
		ch := &p.Chains[i]
		if ch.Word == 0 {
			out0 |= ch.all()
		} else {
			out1 |= ch.all()
		}
	}
	// Only the address lines this scan height actually uses.
	addrMask := p.A
	if fb.doubleRows >= 4 {
		addrMask |= p.B
	}
	if fb.doubleRows >= 8 {
		addrMask |= p.C
	}
	if fb.doubleRows >= 16 {
		addrMask |= p.D
	}
	if fb.doubleRows >= 32 {
		addrMask |= p.E
	}
	out0 |= addrMask

	if got := io.InitOutputs0(out0); got != out0 {
		return nil, fmt.Errorf("output port supports pin mask %#08x of requested %#08x", got, out0)
	}
	if out1 != 0 {
		if got := io.InitOutputs1(out1); got != out1 {
			return nil, fmt.Errorf("output port supports second-word pin mask %#08x of requested %#08x", got, out1)
		}
	}

	return &Refresher{
		io:       io,
		pulser:   pulserFor(io, p.oeBits(fb.opt)),
		pinout:   fb.pinout,
		opt:      fb.opt,
		addrMask: addrMask,
	}, nil
}

// DumpToMatrix pushes one full frame out to the panels: for every scan
// row it clocks each displayed bit-plane into the shift registers,
// latches it, and gates it through output-enable for the plane's
// binary-weighted interval. While a plane is being displayed the next
// one is already being clocked in; the strobe waits for the pulse to
// finish. The full PWM sequence of a row completes before the address
// advances, since switching rows mid-pulse ghosts.
func (r *Refresher) DumpToMatrix(fb *Framebuffer) {
	p := &r.pinout

	// Mask of everything a column write may touch: all active color
	// lanes plus the clock, which the write pulls low again.
	clock := p.clockBits(r.opt)
	colorClk0 := clock
	var colorClk1 uint32
	for i := 0; i < fb.parallel; i++ {
		ch := &p.Chains[i]
		if ch.Word == 0 {
			colorClk0 |= ch.all()
		} else {
			colorClk1 |= ch.all()
		}
	}
	strobe := p.Strobe

	pwmToShow := fb.pwmBits // latched; a mid-frame change must not split planes
	for dRow := 0; dRow < fb.doubleRows; dRow++ {
		r.io.WriteMaskedBits(p.addressWord(dRow), r.addrMask, 0, 0)

		for plane := BitPlanes - pwmToShow; plane < BitPlanes; plane++ {
			base := fb.offset(dRow, 0, plane)
			row0 := fb.plane0[base : base+fb.columns]
			var row1 []uint32
			if fb.plane1 != nil {
				row1 = fb.plane1[base : base+fb.columns]
			}

			for col := 0; col < fb.columns; col++ {
				var v1 uint32
				if row1 != nil {
					v1 = row1[col]
				}
				r.io.WriteMaskedBits(row0[col], colorClk0, v1, colorClk1)
				r.io.SetBits(clock, 0) // rising edge shifts the column in
			}
			r.io.ClearBits(colorClk0, colorClk1)

			// The previous plane's display interval must end before the
			// freshly clocked data is latched over it.
			r.pulser.WaitPulseFinished()
			r.io.SetBits(strobe, 0)
			r.io.ClearBits(strobe, 0)
			r.pulser.SendPulse(plane)
		}
		r.pulser.WaitPulseFinished()
	}
}

// Runner refreshes continuously from a front buffer that writers swap
// against. It is the single real-time-ish task of the package; all
// parallelism across chains is bit lanes in one GPIO word, not
// goroutines.
type Runner struct {
	ref   *Refresher
	front atomic.Pointer[Framebuffer]
}

// NewRunner returns a runner showing fb.
func NewRunner(ref *Refresher, fb *Framebuffer) *Runner {
	ru := &Runner{ref: ref}
	ru.front.Store(fb)
	return ru
}

// Swap exchanges the displayed buffer for next and returns the previous
// one for reuse as the new back buffer. The refresh loop picks the new
// frame up at the top of its next pass, so a frame in flight finishes
// with the old content.
func (ru *Runner) Swap(next *Framebuffer) *Framebuffer {
	return ru.front.Swap(next)
}

// Front returns the currently displayed buffer.
func (ru *Runner) Front() *Framebuffer {
	return ru.front.Load()
}

// Run refreshes until ctx is canceled. The frame in progress completes,
// then one blank frame is pushed so the panels are not left showing the
// last shift register contents forever.
func (ru *Runner) Run(ctx context.Context) {
	for ctx.Err() == nil {
		ru.ref.DumpToMatrix(ru.front.Load())
	}

	last := ru.front.Load()
	blank, err := NewFramebuffer(last.rows, last.columns, last.parallel, last.pinout, last.opt)
	if err != nil {
		return
	}
	ru.ref.DumpToMatrix(blank)
}
