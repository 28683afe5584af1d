package dsp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chirp-ranger.dev/internal/config"
	"chirp-ranger.dev/internal/dsp"
)

// fractionalShift delays src by frac samples (0 <= frac < 1) via linear
// interpolation, mirroring how a non-integer propagation delay lands on a
// sampled microphone.
func fractionalShift(src []float64, frac float64) []float64 {
	out := make([]float64, len(src)+1)
	prev := 0.0
	for i, s := range src {
		out[i] = (1-frac)*s + frac*prev
		prev = s
	}
	out[len(src)] = frac * prev
	return out
}

// TestLocalizePeak_FractionalLag places the template at a fractional lag and
// checks the refined peak lands close to the true position even when the
// trigger point was several samples off.
func TestLocalizePeak_FractionalLag(t *testing.T) {
	tmpl := newTemplate(t)
	ring := dsp.NewSampleRing(8192)

	const start = 2000
	const frac = 0.37
	buf := make([]float64, 6000)
	for i, s := range fractionalShift(tmpl.Samples, frac) {
		buf[start+i] = s
	}
	ring.WriteBlock(buf)

	trueEnd := float64(start) + frac + float64(tmpl.Len())

	// Trigger lag deliberately off by a few samples, as a block-grid hit
	// would be.
	initialEnd := uint64(trueEnd) + 5
	res := dsp.LocalizePeak(ring, tmpl, initialEnd, config.BlockSize, config.CorrelationEpsilon)

	assert.InDelta(t, trueEnd, res.PeakFrame, 10, "refined peak near the true fractional lag")
	assert.Greater(t, res.Correlation, 0.5)
}

// TestLocalizePeak_ExactLag: with the template at an integer lag and the
// trigger on it, refinement must not wander off.
func TestLocalizePeak_ExactLag(t *testing.T) {
	tmpl := newTemplate(t)
	ring := dsp.NewSampleRing(8192)

	const start = 1500
	buf := make([]float64, 6000)
	for i, s := range tmpl.Samples {
		buf[start+i] = s
	}
	ring.WriteBlock(buf)

	trueEnd := uint64(start + tmpl.Len())
	res := dsp.LocalizePeak(ring, tmpl, trueEnd, config.BlockSize, config.CorrelationEpsilon)

	assert.InDelta(t, float64(trueEnd), res.PeakFrame, 0.5)
	assert.InDelta(t, 1.0, res.Correlation, 1e-6)
}
