package dsp

import (
	"math"

	"chirp-ranger.dev/internal/chirp"
)

// SampleRing is a fixed-capacity circular buffer of audio samples addressed
// by absolute frame number. It is owned exclusively by the Detector and is
// never resized after creation.
type SampleRing struct {
	buf  []float64
	end  uint64 // absolute frame index of the next sample to be written
	fill int    // samples written so far, capped at capacity
}

// NewSampleRing creates a ring holding capacity samples.
func NewSampleRing(capacity int) *SampleRing {
	return &SampleRing{buf: make([]float64, capacity)}
}

// Capacity returns the fixed buffer size in samples.
func (r *SampleRing) Capacity() int { return len(r.buf) }

// End returns the absolute frame index one past the most recent sample.
func (r *SampleRing) End() uint64 { return r.end }

// Filled returns how many valid samples the ring currently holds.
func (r *SampleRing) Filled() int { return r.fill }

// Rebase resets the ring to empty, starting at the given absolute frame.
func (r *SampleRing) Rebase(frame uint64) {
	r.end = frame
	r.fill = 0
}

// WriteBlock appends a block of samples, overwriting the oldest data.
func (r *SampleRing) WriteBlock(samples []float64) {
	n := len(r.buf)
	for _, s := range samples {
		r.buf[int(r.end)%n] = s
		r.end++
	}
	r.fill += len(samples)
	if r.fill > n {
		r.fill = n
	}
}

// holds reports whether the window of length winLen ending at end (exclusive)
// is still resident in the buffer.
func (r *SampleRing) holds(end uint64, winLen int) bool {
	if end > r.end || winLen > r.fill {
		return false
	}
	oldest := r.end - uint64(r.fill)
	return end >= oldest+uint64(winLen)
}

// Correlate computes the normalized correlation magnitude between tmpl and
// the window of equal length ending at end (exclusive):
//
//	|sum(sample*template)| / sqrt(windowEnergy * templateEnergy)
//
// The magnitude is used because chirps may arrive phase-inverted depending on
// the acoustic path. Returns ok=false when the window is not resident, and a
// zero correlation when the window energy is below epsilon.
func (r *SampleRing) Correlate(tmpl *chirp.Template, end uint64, epsilon float64) (float64, bool) {
	winLen := tmpl.Len()
	if !r.holds(end, winLen) {
		return 0, false
	}
	n := uint64(len(r.buf))
	start := end - uint64(winLen)

	dot := 0.0
	energy := 0.0
	for i := 0; i < winLen; i++ {
		s := r.buf[(start+uint64(i))%n]
		dot += s * tmpl.Samples[i]
		energy += s * s
	}

	denom := energy * tmpl.Energy
	if denom < epsilon {
		return 0, true
	}
	corr := dot / math.Sqrt(denom)
	if corr < 0 {
		corr = -corr
	}
	return corr, true
}
