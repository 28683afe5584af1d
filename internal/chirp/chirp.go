// Package chirp generates the reference waveform used for both emission and
// matched-filter correlation.
package chirp

import (
	"errors"
	"math"
	"time"
)

var (
	// ErrInvalidDuration indicates a non-positive chirp duration.
	ErrInvalidDuration = errors.New("chirp: duration must be positive")
	// ErrInvalidSampleRate indicates a non-positive sample rate.
	ErrInvalidSampleRate = errors.New("chirp: sample rate must be positive")
	// ErrInvalidSweep indicates a sweep outside (0, Nyquist).
	ErrInvalidSweep = errors.New("chirp: sweep frequencies must lie in (0, sampleRate/2)")
)

// Spec describes a linear-frequency chirp. Immutable per session.
type Spec struct {
	SampleRate int
	Duration   time.Duration
	FreqStart  float64       // Hz
	FreqEnd    float64       // Hz
	Taper      time.Duration // raised-cosine taper at each edge
}

// Template is the rendered chirp: time-domain samples and their total energy,
// computed once and cached.
type Template struct {
	Samples []float64
	Energy  float64 // sum of squared samples
}

// Len returns the template length in samples.
func (t *Template) Len() int { return len(t.Samples) }

// Generate renders the chirp described by spec.
//
// Instantaneous phase is 2*pi*(f0*t + 0.5*slope*t^2) with
// slope = (f1-f0)/duration. A half-cosine envelope tapers both edges to
// suppress spectral leakage that would corrupt the correlation side-lobes.
func Generate(spec Spec) (*Template, error) {
	if spec.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if spec.Duration <= 0 {
		return nil, ErrInvalidDuration
	}
	nyquist := float64(spec.SampleRate) / 2
	if spec.FreqStart <= 0 || spec.FreqEnd <= 0 || spec.FreqStart >= nyquist || spec.FreqEnd >= nyquist {
		return nil, ErrInvalidSweep
	}

	sr := float64(spec.SampleRate)
	dur := spec.Duration.Seconds()
	n := int(math.Round(dur * sr))
	slope := (spec.FreqEnd - spec.FreqStart) / dur

	taper := int(math.Round(spec.Taper.Seconds() * sr))
	if taper > n/2 {
		taper = n / 2
	}

	samples := make([]float64, n)
	energy := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) / sr
		phase := 2 * math.Pi * (spec.FreqStart*t + 0.5*slope*t*t)
		v := math.Sin(phase) * edgeEnvelope(i, n, taper)
		samples[i] = v
		energy += v * v
	}

	return &Template{Samples: samples, Energy: energy}, nil
}

// edgeEnvelope is a raised-cosine (half-cosine) ramp over the first and last
// taper samples, unity in between.
func edgeEnvelope(i, n, taper int) float64 {
	if taper <= 0 {
		return 1
	}
	switch {
	case i < taper:
		return 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(taper)))
	case i >= n-taper:
		return 0.5 * (1 - math.Cos(math.Pi*float64(n-1-i)/float64(taper)))
	default:
		return 1
	}
}
