package ranging_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirp-ranger.dev/internal/ranging"
)

// makeIntervals builds a consistent DS-TWR exchange for a true time-of-flight
// and the two reply delays, with the responder's measurements scaled by its
// clock-rate factor.
func makeIntervals(tof, reply1, reply2, responderScale float64) ranging.Intervals {
	return ranging.Intervals{
		Round1: 2*tof + reply1, // initiator clock
		Reply2: reply2,         // initiator clock
		Reply1: reply1 * responderScale,
		Round2: (2*tof + reply2) * responderScale,
	}
}

// TestTimeOfFlight_Exact: without drift the formula recovers the injected
// time-of-flight exactly.
func TestTimeOfFlight_Exact(t *testing.T) {
	iv := makeIntervals(1e-3, 0.050, 0.052, 1.0)
	tof, err := ranging.TimeOfFlight(iv)
	require.NoError(t, err)
	assert.InDelta(t, 1e-3, tof, 1e-12)
}

// TestTimeOfFlight_DriftCancels injects a 50 ppm clock-rate skew on the
// responder side and shows the double-sided formula stays accurate where a
// naive single-sided one does not.
func TestTimeOfFlight_DriftCancels(t *testing.T) {
	const (
		tof    = 1e-3
		reply1 = 0.050
		reply2 = 0.052
		drift  = 50e-6
	)
	iv := makeIntervals(tof, reply1, reply2, 1+drift)

	got, err := ranging.TimeOfFlight(iv)
	require.NoError(t, err)
	dsErr := math.Abs(got - tof)
	assert.Less(t, dsErr, 1e-7, "double-sided error stays negligible under drift")

	// Single-sided: ToF = (Round1 - Reply1) / 2 using the responder's drifted
	// reply measurement.
	naive := (iv.Round1 - iv.Reply1) / 2
	naiveErr := math.Abs(naive - tof)
	assert.Greater(t, naiveErr, 10*dsErr, "one-way formula degrades much faster")
}

// TestTimeOfFlight_Degenerate rejects a non-positive interval sum.
func TestTimeOfFlight_Degenerate(t *testing.T) {
	_, err := ranging.TimeOfFlight(ranging.Intervals{})
	assert.ErrorIs(t, err, ranging.ErrDegenerateIntervals)
}

// TestDistance converts seconds to feet.
func TestDistance(t *testing.T) {
	assert.InDelta(t, 11.25, ranging.Distance(0.01, 1125), 1e-12)
	assert.Equal(t, 0.0, ranging.Distance(0, 1125))
}
