package rgbmatrix

import (
	"sync"
	"time"

	"github.com/fkcurrie/rgbmatrix-golang/pkg/gpio"
)

// baseTimeNanos is the on-time of the least significant bit-plane.
// Lower values raise the refresh rate but dim the display; good values
// are between 100 and 200.
const baseTimeNanos = 130

// Pulses short enough that a synchronous spin beats bookkeeping.
const syncPulseLimit = 25 * time.Microsecond

// PinPulser gates the output-enable pins for the binary-weighted
// display interval of each bit-plane. OE is active low: clearing the
// bits turns the row drivers on.
//
// Short pulses run synchronously and have completed when SendPulse
// returns. Long pulses stay on after SendPulse so the caller can clock
// in the next plane meanwhile; WaitPulseFinished drives the off edge.
type PinPulser struct {
	io        gpio.IO
	bits      uint32
	durations [BitPlanes]time.Duration
	deadline  time.Time
}

// One pulser per output port: the OE pin is a physical resource shared
// by whatever framebuffers refresh through the same hardware.
var (
	pulserMu sync.Mutex
	pulsers  = map[gpio.IO]*PinPulser{}
)

// pulserFor returns the process-wide pulser for the port, creating it
// on first use. The first creation for a port wins; later calls get
// the same instance regardless of arguments.
func pulserFor(io gpio.IO, oeBits uint32) *PinPulser {
	pulserMu.Lock()
	defer pulserMu.Unlock()
	if p, ok := pulsers[io]; ok {
		return p
	}
	p := &PinPulser{io: io, bits: oeBits}
	for plane := 0; plane < BitPlanes; plane++ {
		p.durations[plane] = time.Duration(baseTimeNanos<<uint(plane)) * time.Nanosecond
	}
	pulsers[io] = p
	return p
}

// PulseDuration returns the on-time of the given bit-plane.
func (p *PinPulser) PulseDuration(plane int) time.Duration {
	return p.durations[plane]
}

// SendPulse starts the on-pulse for the given bit-plane. At most one
// pulse is in flight per pulser; the caller sequences planes.
func (p *PinPulser) SendPulse(plane int) {
	d := p.durations[plane]
	if d <= syncPulseLimit {
		p.io.ClearBits(p.bits, 0)
		spinFor(d)
		p.io.SetBits(p.bits, 0)
		return
	}
	p.deadline = time.Now().Add(d)
	p.io.ClearBits(p.bits, 0)
}

// WaitPulseFinished blocks until the in-flight pulse has ended with its
// off edge. Without a pulse in flight it returns immediately.
func (p *PinPulser) WaitPulseFinished() {
	if p.deadline.IsZero() {
		return
	}
	for {
		remaining := time.Until(p.deadline)
		if remaining <= 0 {
			break
		}
		// The scheduler wakes us late by tens of microseconds; sleep
		// only the bulk and spin the tail.
		if remaining > 200*time.Microsecond {
			time.Sleep(remaining - 100*time.Microsecond)
		} else {
			spinFor(remaining)
		}
	}
	p.io.SetBits(p.bits, 0)
	p.deadline = time.Time{}
}

// spinFor busy-waits; time.Sleep cannot hit sub-microsecond targets.
func spinFor(d time.Duration) {
	end := time.Now().Add(d)
	for time.Now().Before(end) {
	}
}
