package dsp

// Event is a detector output message. Concrete types: Calibrated and
// ChirpDetected. Consumers type-switch exhaustively, the same way control
// messages are handled on the way in.
type Event interface{ isEvent() }

// Calibrated reports the end of the noise-floor calibration window.
type Calibrated struct {
	NoiseFloor  float64
	SampleCount int
}

// ChirpDetected reports a matched-filter detection with sub-sample timing.
// PeakFrame is the absolute frame of the correlation peak, i.e. the frame at
// which the chirp *ends*, expressed fractionally.
type ChirpDetected struct {
	PeakFrame   float64
	Correlation float64
	NoiseFloor  float64
	SNRDb       float64
}

func (Calibrated) isEvent()    {}
func (ChirpDetected) isEvent() {}

// ControlMsg is an inbound detector control message. Concrete types:
// ExcludeRange and Reset.
type ControlMsg interface{ isControl() }

// ExcludeRange marks a frame range as self-emission; detections there are
// suppressed.
type ExcludeRange struct {
	StartFrame uint64
	EndFrame   uint64
}

// Reset clears calibration and exclusion state.
type Reset struct{}

func (ExcludeRange) isControl() {}
func (Reset) isControl()        {}
