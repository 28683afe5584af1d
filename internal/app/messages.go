package app

import "time"

// TickMsg triggers a frame update for animation.
type TickMsg time.Time

// RangeTickMsg triggers the next ranging attempt.
type RangeTickMsg time.Time

// CalibratedMsg reports a detector finishing its calibration window.
type CalibratedMsg struct {
	Device     string
	NoiseFloor float64
	Samples    int
}

// DetectionMsg reports an accepted chirp detection.
type DetectionMsg struct {
	Device      string
	Correlation float64
	SNRDb       float64
}

// EmitMsg reports a chirp emission starting.
type EmitMsg struct {
	Device string
}

// DistanceMsg reports a completed ranging attempt.
type DistanceMsg struct {
	Feet float64
}

// AttemptFailedMsg reports a failed ranging attempt.
type AttemptFailedMsg struct {
	Device string
	Err    error
}
