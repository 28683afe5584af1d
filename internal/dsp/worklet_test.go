package dsp_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirp-ranger.dev/internal/config"
	"chirp-ranger.dev/internal/dsp"
)

// TestWorklet_CalibratesOverChannels drives a worklet-hosted detector through
// calibration purely via its block and event channels.
func TestWorklet_CalibratesOverChannels(t *testing.T) {
	tmpl := newTemplate(t)
	det, err := dsp.NewDetector(dsp.DefaultConfig(tmpl))
	require.NoError(t, err)

	w := dsp.NewWorklet(det)
	w.Start()
	defer w.Stop()

	require.True(t, w.Control(dsp.ExcludeRange{StartFrame: 0, EndFrame: 64}))

	rng := rand.New(rand.NewSource(23))
	frame := uint64(0)
	target := uint64(config.CalibrationWindow.Seconds()*config.SampleRate) + 4*config.BlockSize

	deadline := time.Now().Add(10 * time.Second)
	var calibrated *dsp.Calibrated
	for calibrated == nil && time.Now().Before(deadline) {
		if frame < target {
			block := noiseBuf(rng, config.BlockSize, 0.01)
			if w.Process(block, frame) {
				frame += config.BlockSize
			} else {
				time.Sleep(time.Millisecond) // queue full, let the loop drain
			}
		} else {
			time.Sleep(time.Millisecond)
		}

		select {
		case ev := <-w.Events():
			if cal, ok := ev.(dsp.Calibrated); ok {
				calibrated = &cal
			}
		default:
		}
	}

	require.NotNil(t, calibrated, "calibration event within the deadline")
	assert.Greater(t, calibrated.NoiseFloor, 0.0)
	assert.Greater(t, calibrated.SampleCount, 0)
}

// TestWorklet_DropsWhenSaturated: enqueues beyond any plausible queue depth
// without blocking the caller.
func TestWorklet_DropsWhenSaturated(t *testing.T) {
	tmpl := newTemplate(t)
	det, err := dsp.NewDetector(dsp.DefaultConfig(tmpl))
	require.NoError(t, err)

	// Not started: nothing drains the queues, so they must fill and then
	// reject rather than block.
	w := dsp.NewWorklet(det)
	dropped := false
	for i := 0; i < 1000; i++ {
		if !w.Process(make([]float64, config.BlockSize), uint64(i*config.BlockSize)) {
			dropped = true
			break
		}
	}
	assert.True(t, dropped)

	droppedCtrl := false
	for i := 0; i < 1000; i++ {
		if !w.Control(dsp.Reset{}) {
			droppedCtrl = true
			break
		}
	}
	assert.True(t, droppedCtrl)
}
