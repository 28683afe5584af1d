package chirp_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirp-ranger.dev/internal/chirp"
)

func validSpec() chirp.Spec {
	return chirp.Spec{
		SampleRate: 44100,
		Duration:   30 * time.Millisecond,
		FreqStart:  14000,
		FreqEnd:    16000,
		Taper:      3 * time.Millisecond,
	}
}

// TestGenerate_Errors verifies that invalid specs are rejected with the
// matching sentinel error.
func TestGenerate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*chirp.Spec)
		err    error
	}{
		{"ZeroSampleRate", func(s *chirp.Spec) { s.SampleRate = 0 }, chirp.ErrInvalidSampleRate},
		{"ZeroDuration", func(s *chirp.Spec) { s.Duration = 0 }, chirp.ErrInvalidDuration},
		{"NegativeStart", func(s *chirp.Spec) { s.FreqStart = -1 }, chirp.ErrInvalidSweep},
		{"AboveNyquist", func(s *chirp.Spec) { s.FreqEnd = 30000 }, chirp.ErrInvalidSweep},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := validSpec()
			tc.mutate(&spec)
			_, err := chirp.Generate(spec)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

// TestGenerate_Waveform checks length, amplitude bounds, edge taper and the
// cached energy of the default chirp.
func TestGenerate_Waveform(t *testing.T) {
	tmpl, err := chirp.Generate(validSpec())
	require.NoError(t, err)

	assert.Equal(t, 1323, tmpl.Len(), "30 ms at 44.1 kHz")

	energy := 0.0
	for _, s := range tmpl.Samples {
		assert.LessOrEqual(t, s, 1.0)
		assert.GreaterOrEqual(t, s, -1.0)
		energy += s * s
	}
	assert.InDelta(t, energy, tmpl.Energy, 1e-9, "cached energy matches the samples")
	assert.Greater(t, tmpl.Energy, 0.0)

	// The raised-cosine taper pins the very edges near zero.
	assert.InDelta(t, 0, tmpl.Samples[0], 1e-12)
	assert.Less(t, absf(tmpl.Samples[1]), 0.01)
	assert.Less(t, absf(tmpl.Samples[tmpl.Len()-1]), 0.01)

	// The untapered middle reaches full swing somewhere.
	peak := 0.0
	for _, s := range tmpl.Samples {
		if absf(s) > peak {
			peak = absf(s)
		}
	}
	assert.Greater(t, peak, 0.95)
}

// TestGenerate_TaperClamp ensures an oversized taper degrades to a full
// half-cosine window rather than indexing out of range.
func TestGenerate_TaperClamp(t *testing.T) {
	spec := validSpec()
	spec.Taper = time.Second
	tmpl, err := chirp.Generate(spec)
	require.NoError(t, err)
	assert.Equal(t, 1323, tmpl.Len())
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
