package sim

import (
	"math/rand"
	"sync"

	"chirp-ranger.dev/internal/chirp"
	"chirp-ranger.dev/internal/dsp"
	"chirp-ranger.dev/internal/ranging"
)

// arrival is a waveform scheduled to land on a device's microphone.
type arrival struct {
	start   uint64 // absolute frame of the first sample
	samples []float64
	gain    float64
}

// Device is one simulated endpoint: a detector fed by a modeled microphone
// plus the ranging session driving its speaker. It implements
// ranging.Emitter.
type Device struct {
	name string

	mu       sync.Mutex
	arrivals []arrival
	pending  []dsp.ControlMsg
	frame    uint64 // next block start

	det        *dsp.Detector
	session    *ranging.Session
	tmpl       *chirp.Template
	peer       *Device
	rng        *rand.Rand
	world      *World
	clockScale float64 // reported-seconds per nominal second
	delay      float64 // one-way propagation, fractional frames
	gain       float64 // received amplitude at the peer
	noise      float64
	blockSize  int
	sampleRate int
	deafFrames uint64
}

// Name returns the device label.
func (d *Device) Name() string { return d.name }

// Session returns the device's ranging session.
func (d *Device) Session() *ranging.Session { return d.session }

// Calibrated reports whether the device's detector has finished calibrating.
func (d *Device) Calibrated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.det.Calibrated()
}

// seconds converts an absolute frame to this device's own clock.
func (d *Device) seconds(frame uint64) float64 {
	return float64(frame) * d.clockScale / float64(d.sampleRate)
}

// EmitChirp schedules a chirp emission starting at the next block boundary:
// into the device's own microphone at speaker-coupling gain, into the peer's
// after the propagation delay, and an exclusion range over the emission plus
// deaf period. Returns the emission start time on the local clock.
func (d *Device) EmitChirp() (float64, error) {
	d.mu.Lock()
	txFrame := d.frame
	d.arrivals = append(d.arrivals, arrival{
		start:   txFrame,
		samples: d.tmpl.Samples,
		gain:    selfCouplingGain,
	})
	d.pending = append(d.pending, dsp.ExcludeRange{
		StartFrame: txFrame,
		EndFrame:   txFrame + uint64(d.tmpl.Len()) + d.deafFrames,
	})
	d.mu.Unlock()

	d.peer.receive(txFrame, d.delay, d.gain)
	d.world.emitted(d.name)
	return d.seconds(txFrame), nil
}

// receive schedules a fractionally delayed copy of the chirp landing on this
// device's microphone.
func (d *Device) receive(txFrame uint64, delayFrames, gain float64) {
	whole := uint64(delayFrames)
	frac := delayFrames - float64(whole)

	// Linear interpolation shifts the template by the fractional part of the
	// propagation delay.
	src := d.tmpl.Samples
	shifted := make([]float64, len(src)+1)
	prev := 0.0
	for i, s := range src {
		shifted[i] = (1-frac)*s + frac*prev
		prev = s
	}
	shifted[len(src)] = frac * prev

	d.mu.Lock()
	d.arrivals = append(d.arrivals, arrival{
		start:   txFrame + whole,
		samples: shifted,
		gain:    gain,
	})
	d.mu.Unlock()
}

// step renders and processes one microphone block.
func (d *Device) step() {
	d.mu.Lock()

	block := make([]float64, d.blockSize)
	for i := range block {
		block[i] = d.rng.NormFloat64() * d.noise
	}
	for _, a := range d.arrivals {
		mixArrival(block, d.frame, a)
	}

	for _, msg := range d.pending {
		d.det.Control(msg)
	}
	d.pending = d.pending[:0]

	start := d.frame
	d.frame += uint64(d.blockSize)

	// Drop arrivals that have fully played out.
	kept := d.arrivals[:0]
	for _, a := range d.arrivals {
		if a.start+uint64(len(a.samples)) > d.frame {
			kept = append(kept, a)
		}
	}
	d.arrivals = kept

	ev := d.det.ProcessBlock(block, start)
	d.mu.Unlock()

	if ev == nil {
		return
	}
	switch e := ev.(type) {
	case dsp.Calibrated:
		d.world.calibrated(d.name, e)
	case dsp.ChirpDetected:
		// The device's skewed clock shows through in its frame counter.
		scaled := e
		scaled.PeakFrame = e.PeakFrame * d.clockScale
		d.session.HandleDetection(scaled)
		d.world.detected(d.name, e)
	}
}

// mixArrival adds the overlap of a with the block starting at blockStart.
func mixArrival(block []float64, blockStart uint64, a arrival) {
	blockEnd := blockStart + uint64(len(block))
	aEnd := a.start + uint64(len(a.samples))
	if a.start >= blockEnd || aEnd <= blockStart {
		return
	}
	lo := blockStart
	if a.start > lo {
		lo = a.start
	}
	hi := blockEnd
	if aEnd < hi {
		hi = aEnd
	}
	for f := lo; f < hi; f++ {
		block[f-blockStart] += a.samples[f-a.start] * a.gain
	}
}
