package dsp

import "chirp-ranger.dev/internal/chirp"

// PeakResult is a refined detection lag.
type PeakResult struct {
	// PeakFrame is the absolute frame of the correlation peak, fractional.
	PeakFrame float64
	// Correlation is the magnitude at the refined lag.
	Correlation float64
}

const fineStep = 4

// LocalizePeak refines a coarse detection lag to sub-sample precision. A
// one-sample error at 44.1 kHz is already several centimeters of distance,
// so the coarse hit is re-searched in two passes and then interpolated:
//
//  1. coarse: +/- 2 blocks around initialEnd, stepped by 16 samples
//  2. fine: +/- 16 samples around the coarse best, stepped by 4
//  3. parabolic interpolation over the fine-step neighbors
//
// Lags whose window has already left the buffer (or is still in the future)
// are skipped.
func LocalizePeak(ring *SampleRing, tmpl *chirp.Template, initialEnd uint64, blockSize int, epsilon float64) PeakResult {
	eval := func(off int) (float64, bool) {
		end := offsetFrame(initialEnd, off)
		return ring.Correlate(tmpl, end, epsilon)
	}

	bestOff := 0
	bestCorr := -1.0
	for off := -2 * blockSize; off <= 2*blockSize; off += 16 {
		if c, ok := eval(off); ok && c > bestCorr {
			bestCorr = c
			bestOff = off
		}
	}

	for off := bestOff - 16; off <= bestOff+16; off += fineStep {
		if c, ok := eval(off); ok && c > bestCorr {
			bestCorr = c
			bestOff = off
		}
	}

	sub := 0.0
	y0, ok0 := eval(bestOff - fineStep)
	y2, ok2 := eval(bestOff + fineStep)
	if ok0 && ok2 {
		sub = parabolicOffset(y0, bestCorr, y2, fineStep)
	}

	return PeakResult{
		PeakFrame:   float64(initialEnd) + float64(bestOff) + sub,
		Correlation: bestCorr,
	}
}

// parabolicOffset fits a parabola to three equally spaced correlation values
// and returns the vertex offset from the center, clamped to +/- step/2. No
// correction is applied when the curvature is degenerate.
func parabolicOffset(y0, y1, y2 float64, step int) float64 {
	den := 2 * (y0 - 2*y1 + y2)
	if den > -1e-12 && den < 1e-12 {
		return 0
	}
	x := float64(step) * (y0 - y2) / den
	half := float64(step) / 2
	if x > half {
		x = half
	}
	if x < -half {
		x = -half
	}
	return x
}

// offsetFrame applies a signed offset to an absolute frame, clamping at zero.
func offsetFrame(frame uint64, off int) uint64 {
	if off >= 0 {
		return frame + uint64(off)
	}
	neg := uint64(-off)
	if neg > frame {
		return 0
	}
	return frame - neg
}
