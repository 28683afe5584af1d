package dsp_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirp-ranger.dev/internal/config"
	"chirp-ranger.dev/internal/dsp"
)

// feeder pushes sequential fixed-size blocks into a detector and collects the
// events it emits.
type feeder struct {
	det    *dsp.Detector
	frame  uint64
	events []dsp.Event
}

func (f *feeder) feed(t *testing.T, samples []float64) {
	t.Helper()
	require.Zero(t, len(samples)%config.BlockSize, "segments must be whole blocks")
	for off := 0; off < len(samples); off += config.BlockSize {
		ev := f.det.ProcessBlock(samples[off:off+config.BlockSize], f.frame)
		f.frame += config.BlockSize
		if ev != nil {
			f.events = append(f.events, ev)
		}
	}
}

func (f *feeder) detections() []dsp.ChirpDetected {
	var out []dsp.ChirpDetected
	for _, ev := range f.events {
		if d, ok := ev.(dsp.ChirpDetected); ok {
			out = append(out, d)
		}
	}
	return out
}

func noiseBuf(rng *rand.Rand, n int, level float64) []float64 {
	buf := make([]float64, n)
	for i := range buf {
		buf[i] = rng.NormFloat64() * level
	}
	return buf
}

// calibrate feeds noise until the calibration window closes and returns the
// feeder positioned in steady state.
func calibrate(t *testing.T, det *dsp.Detector, rng *rand.Rand, level float64) *feeder {
	t.Helper()
	f := &feeder{det: det}
	blocks := int(config.CalibrationWindow.Seconds()*config.SampleRate)/config.BlockSize + 2
	f.feed(t, noiseBuf(rng, blocks*config.BlockSize, level))

	require.Len(t, f.events, 1)
	cal, ok := f.events[0].(dsp.Calibrated)
	require.True(t, ok, "first event is the calibration notification")
	assert.Greater(t, cal.NoiseFloor, 0.0)
	assert.Greater(t, cal.SampleCount, 0)
	assert.True(t, det.Calibrated())
	f.events = f.events[:0]
	return f
}

// withChirp copies noise and mixes the template in at the given offset.
func withChirp(noise, tmpl []float64, offset int) []float64 {
	out := make([]float64, len(noise))
	copy(out, noise)
	for i, s := range tmpl {
		out[offset+i] += s
	}
	return out
}

// TestConfig_Validate exercises the constructor guards.
func TestConfig_Validate(t *testing.T) {
	tmpl := newTemplate(t)
	cases := []struct {
		name   string
		mutate func(*dsp.Config)
		err    error
	}{
		{"NilTemplate", func(c *dsp.Config) { c.Template = nil }, dsp.ErrTemplateRequired},
		{"ZeroBlock", func(c *dsp.Config) { c.BlockSize = 0 }, dsp.ErrInvalidBlockSize},
		{"ZeroRate", func(c *dsp.Config) { c.SampleRate = 0 }, dsp.ErrInvalidSampleRate},
		{"ZeroThreshold", func(c *dsp.Config) { c.SNRThresholdDb = 0 }, dsp.ErrInvalidThreshold},
		{"AlphaTooBig", func(c *dsp.Config) { c.NoiseFloorAlpha = 1 }, dsp.ErrInvalidAlpha},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := dsp.DefaultConfig(tmpl)
			tc.mutate(&cfg)
			_, err := dsp.NewDetector(cfg)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

// TestDetector_DetectsChirp runs calibration on noise, then buries one chirp
// in it and checks the single resulting detection.
func TestDetector_DetectsChirp(t *testing.T) {
	tmpl := newTemplate(t)
	det, err := dsp.NewDetector(dsp.DefaultConfig(tmpl))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	const level = 0.01
	f := calibrate(t, det, rng, level)

	floor := det.NoiseFloor()
	chirpStart := int(f.frame) + 700
	seg := withChirp(noiseBuf(rng, 8192, level), tmpl.Samples, 700)
	f.feed(t, seg)

	dets := f.detections()
	require.Len(t, dets, 1)
	d := dets[0]
	trueEnd := float64(chirpStart + tmpl.Len())
	assert.InDelta(t, trueEnd, d.PeakFrame, 10)
	assert.Greater(t, d.Correlation, 0.5)
	assert.Greater(t, d.SNRDb, config.SNRThresholdDb)
	assert.InDelta(t, floor, d.NoiseFloor, floor, "floor drifts only slowly")
}

// TestDetector_NoiseStaysQuiet: pure noise in steady state never fires.
func TestDetector_NoiseStaysQuiet(t *testing.T) {
	tmpl := newTemplate(t)
	det, err := dsp.NewDetector(dsp.DefaultConfig(tmpl))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(11))
	f := calibrate(t, det, rng, 0.02)

	f.feed(t, noiseBuf(rng, 2*config.SampleRate-(2*config.SampleRate%config.BlockSize), 0.02))
	assert.Empty(t, f.detections(), "two seconds of noise, no detections")
}

// TestDetector_ExclusionSuppresses: a perfect chirp inside an exclusion range
// must not fire.
func TestDetector_ExclusionSuppresses(t *testing.T) {
	tmpl := newTemplate(t)
	det, err := dsp.NewDetector(dsp.DefaultConfig(tmpl))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(13))
	f := calibrate(t, det, rng, 0.01)

	chirpStart := f.frame + 700
	det.Control(dsp.ExcludeRange{
		StartFrame: chirpStart,
		EndFrame:   chirpStart + uint64(tmpl.Len()) + 2000,
	})
	f.feed(t, withChirp(noiseBuf(rng, 8192, 0.01), tmpl.Samples, 700))
	assert.Empty(t, f.detections())
}

// TestDetector_Cooldown: two chirps inside the re-trigger window report once;
// a third outside it reports again.
func TestDetector_Cooldown(t *testing.T) {
	tmpl := newTemplate(t)
	det, err := dsp.NewDetector(dsp.DefaultConfig(tmpl))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(17))
	f := calibrate(t, det, rng, 0.01)

	// Second chirp ~34 ms after the first, well inside the 80 ms cooldown.
	seg := noiseBuf(rng, 8192, 0.01)
	seg = withChirp(seg, tmpl.Samples, 512)
	seg = withChirp(seg, tmpl.Samples, 512+tmpl.Len()+200)
	f.feed(t, seg)
	assert.Len(t, f.detections(), 1)

	// Third chirp after the cooldown has lapsed.
	gap := int(config.MinPeakInterval.Seconds()*config.SampleRate) + 4096
	gap -= gap % config.BlockSize
	f.feed(t, noiseBuf(rng, gap, 0.01))
	f.feed(t, withChirp(noiseBuf(rng, 8192, 0.01), tmpl.Samples, 512))
	assert.Len(t, f.detections(), 2)
}

// TestDetector_Reset returns the detector to the calibrating state via the
// control message path.
func TestDetector_Reset(t *testing.T) {
	tmpl := newTemplate(t)
	det, err := dsp.NewDetector(dsp.DefaultConfig(tmpl))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(19))
	calibrate(t, det, rng, 0.01)
	require.True(t, det.Calibrated())

	det.Control(dsp.Reset{})
	assert.False(t, det.Calibrated())
	assert.Equal(t, 0.0, det.NoiseFloor())

	// A fresh calibration pass works after the reset.
	calibrate(t, det, rng, 0.01)
}
