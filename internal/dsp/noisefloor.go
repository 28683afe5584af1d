package dsp

import "sort"

// NoiseFloor tracks the baseline correlation magnitude produced by ambient
// noise. During the calibration window every non-excluded magnitude is
// collected; Finish sets the floor to the 90th percentile of what was seen.
// Afterwards the floor follows sub-threshold samples by exponential smoothing
// so that genuine peaks never feed back into it.
type NoiseFloor struct {
	value      float64
	calibrated bool
	samples    []float64
	alpha      float64
	fallback   float64
}

// NewNoiseFloor creates an uncalibrated floor. alpha is the EMA factor for
// steady-state updates, fallback the floor used when calibration collects no
// samples. expected pre-sizes the calibration sample slice.
func NewNoiseFloor(alpha, fallback float64, expected int) *NoiseFloor {
	return &NoiseFloor{
		samples:  make([]float64, 0, expected),
		alpha:    alpha,
		fallback: fallback,
	}
}

// Calibrated reports whether the calibration window has been closed.
func (nf *NoiseFloor) Calibrated() bool { return nf.calibrated }

// Value returns the current floor. Zero until calibration finishes.
func (nf *NoiseFloor) Value() float64 { return nf.value }

// Observe records one non-excluded correlation magnitude during calibration.
func (nf *NoiseFloor) Observe(mag float64) {
	if !nf.calibrated {
		nf.samples = append(nf.samples, mag)
	}
}

// Finish closes the calibration window. The floor becomes the 90th percentile
// of the observed magnitudes (sorted ascending, index floor(0.9*n)), or the
// fallback if nothing was collected. Returns the floor and the sample count.
func (nf *NoiseFloor) Finish() (float64, int) {
	n := len(nf.samples)
	if n == 0 {
		nf.value = nf.fallback
	} else {
		sort.Float64s(nf.samples)
		nf.value = nf.samples[int(0.9*float64(n))]
	}
	nf.calibrated = true
	nf.samples = nil
	return nf.value, n
}

// Update smooths the floor toward a magnitude already classified as noise.
// Callers must only pass non-excluded, sub-threshold samples.
func (nf *NoiseFloor) Update(mag float64) {
	nf.value += nf.alpha * (mag - nf.value)
}

// Reset returns the floor to its uncalibrated state.
func (nf *NoiseFloor) Reset(expected int) {
	nf.value = 0
	nf.calibrated = false
	nf.samples = make([]float64, 0, expected)
}
