package ranging

import "errors"

// ErrDegenerateIntervals indicates the four DS-TWR intervals cannot produce a
// meaningful time-of-flight (non-positive interval sum).
var ErrDegenerateIntervals = errors.New("ranging: degenerate ds-twr intervals")

// Intervals are the four round-trip/reply durations of one DS-TWR attempt,
// in seconds. Round1 and Reply2 are measured on the initiator's clock,
// Reply1 and Round2 on the responder's.
type Intervals struct {
	Round1 float64 // initiator: emit chirp 1 -> detect response
	Reply1 float64 // responder: detect chirp 1 -> emit response
	Round2 float64 // responder: emit response -> detect chirp 2
	Reply2 float64 // initiator: detect response -> emit chirp 2
}

// TimeOfFlight applies the double-sided two-way ranging formula:
//
//	ToF = (Round1*Round2 - Reply1*Reply2) / (Round1 + Round2 + Reply1 + Reply2)
//
// Each clock only ever measures its own round-trip/reply pair, so first-order
// clock-rate drift between the two audio clocks cancels.
func TimeOfFlight(iv Intervals) (float64, error) {
	sum := iv.Round1 + iv.Round2 + iv.Reply1 + iv.Reply2
	if sum <= 0 {
		return 0, ErrDegenerateIntervals
	}
	return (iv.Round1*iv.Round2 - iv.Reply1*iv.Reply2) / sum, nil
}

// Distance converts a time-of-flight in seconds to feet.
func Distance(tof, speedOfSoundFtPerSec float64) float64 {
	return tof * speedOfSoundFtPerSec
}
