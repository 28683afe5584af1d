package sim_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirp-ranger.dev/internal/config"
	"chirp-ranger.dev/internal/dsp"
	"chirp-ranger.dev/internal/sim"
)

// stepUntilCalibrated runs the world until both detectors have closed their
// calibration windows.
func stepUntilCalibrated(t *testing.T, w *sim.World) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if w.A.Calibrated() && w.B.Calibrated() {
			return
		}
		w.Step(10)
	}
	t.Fatal("devices did not calibrate")
}

// runAttempt initiates one attempt and steps the world until a distance or
// failure arrives.
func runAttempt(t *testing.T, w *sim.World, distCh <-chan float64, lastFail func() error) float64 {
	t.Helper()
	require.NoError(t, w.Initiate())
	// Let the responder's session consume the arming request before its
	// chirp arrives.
	time.Sleep(10 * time.Millisecond)

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case d := <-distCh:
			return d
		default:
			w.Step(5)
			time.Sleep(time.Millisecond)
		}
	}
	t.Fatalf("no distance reported; last failure: %v", lastFail())
	return 0
}

// TestWorld_RangingAccuracy runs the full stack end to end: two simulated
// devices complete a DS-TWR attempt over the modeled air channel and report a
// distance within half a foot of the configured separation, with and without
// clock-rate drift between the two audio clocks.
func TestWorld_RangingAccuracy(t *testing.T) {
	cases := []struct {
		name     string
		driftPPM float64
	}{
		{"NoDrift", 0},
		{"Drift200ppm", 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := sim.DefaultParams()
			p.DriftPPM = tc.driftPPM

			w, err := sim.NewWorld(p)
			require.NoError(t, err)

			distCh := make(chan float64, 1)
			w.OnDistance = func(d float64) {
				select {
				case distCh <- d:
				default:
				}
			}
			var mu sync.Mutex
			var failure error
			w.OnFailure = func(dev string, err error) {
				mu.Lock()
				failure = err
				mu.Unlock()
			}
			lastFail := func() error {
				mu.Lock()
				defer mu.Unlock()
				return failure
			}

			w.Start()
			defer w.Stop()

			stepUntilCalibrated(t, w)
			d := runAttempt(t, w, distCh, lastFail)
			assert.InDelta(t, config.DemoDistanceFt, d, 0.5)
		})
	}
}

// TestWorld_EmitAndCalibrateCallbacks checks the observer hooks fire during a
// normal run.
func TestWorld_EmitAndCalibrateCallbacks(t *testing.T) {
	p := sim.DefaultParams()
	w, err := sim.NewWorld(p)
	require.NoError(t, err)

	var mu sync.Mutex
	calibrated := map[string]bool{}
	w.OnCalibrated = func(dev string, _ dsp.Calibrated) {
		mu.Lock()
		calibrated[dev] = true
		mu.Unlock()
	}

	w.Start()
	defer w.Stop()
	stepUntilCalibrated(t, w)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, calibrated["alpha"])
	assert.True(t, calibrated["bravo"])
}

// TestNewWorld_InvalidDistance rejects a non-positive separation.
func TestNewWorld_InvalidDistance(t *testing.T) {
	p := sim.DefaultParams()
	p.DistanceFt = 0
	_, err := sim.NewWorld(p)
	assert.ErrorIs(t, err, sim.ErrInvalidDistance)
}
