package dsp

import (
	"math"
	"time"
)

// FallbackConfig tunes the degraded detector used when the block-based
// real-time path is unavailable.
type FallbackConfig struct {
	SampleRate        int
	WindowSize        int // analysis window, samples
	FreqStart         float64
	FreqEnd           float64
	SNRThresholdDb    float64
	MinPeakInterval   time.Duration
	CalibrationWindow time.Duration
	NoiseFloorAlpha   float64
	DefaultNoiseFloor float64
	ExclusionTTL      time.Duration
}

// FallbackDetector is a lower-fidelity detector based on periodic
// energy-threshold sampling of the chirp band. It trades timing precision for
// compatibility: events carry whole-window frame positions with no sub-sample
// refinement, and the ranging protocol treats them identically, degrading
// distance accuracy gracefully instead of failing outright.
type FallbackDetector struct {
	cfg   FallbackConfig
	bins  [3]*Goertzel
	excl  *ExclusionTracker
	floor *NoiseFloor

	thresholdLin float64
	minPeakGap   uint64
	calFrames    uint64

	window      []float64
	windowStart uint64
	windowFill  int
	haveWindow  bool

	calDeadline uint64
	calArmed    bool
	lastPeak    uint64
	havePeak    bool
	inBurst     bool
}

// NewFallbackDetector creates a fallback detector with Goertzel bins at the
// band edges and center of the chirp sweep.
func NewFallbackDetector(cfg FallbackConfig) (*FallbackDetector, error) {
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.WindowSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if cfg.SNRThresholdDb <= 0 {
		return nil, ErrInvalidThreshold
	}
	mid := (cfg.FreqStart + cfg.FreqEnd) / 2
	sr := float64(cfg.SampleRate)
	calFrames := uint64(cfg.CalibrationWindow.Seconds() * sr)
	return &FallbackDetector{
		cfg: cfg,
		bins: [3]*Goertzel{
			NewGoertzel(cfg.SampleRate, cfg.FreqStart, cfg.WindowSize),
			NewGoertzel(cfg.SampleRate, mid, cfg.WindowSize),
			NewGoertzel(cfg.SampleRate, cfg.FreqEnd, cfg.WindowSize),
		},
		excl:         NewExclusionTracker(uint64(cfg.ExclusionTTL.Seconds() * sr)),
		floor:        NewNoiseFloor(cfg.NoiseFloorAlpha, cfg.DefaultNoiseFloor, int(calFrames/uint64(cfg.WindowSize))+1),
		thresholdLin: math.Pow(10, cfg.SNRThresholdDb/20),
		minPeakGap:   uint64(cfg.MinPeakInterval.Seconds() * sr),
		calFrames:    calFrames,
		window:       make([]float64, cfg.WindowSize),
	}, nil
}

// Exclude marks [startFrame, endFrame] as self-emission.
func (f *FallbackDetector) Exclude(startFrame, endFrame uint64) {
	f.excl.Exclude(startFrame, endFrame)
}

// Reset clears calibration, exclusion and window state.
func (f *FallbackDetector) Reset() {
	f.floor.Reset(int(f.calFrames/uint64(f.cfg.WindowSize)) + 1)
	f.excl.Clear()
	f.calArmed = false
	f.havePeak = false
	f.inBurst = false
	f.windowFill = 0
	f.haveWindow = false
}

// Process ingests samples starting at the given absolute frame and returns at
// most one event per completed analysis window.
func (f *FallbackDetector) Process(samples []float64, startFrame uint64) Event {
	if !f.haveWindow {
		f.windowStart = startFrame
		f.haveWindow = true
	}
	if !f.calArmed {
		f.calDeadline = startFrame + f.calFrames
		f.calArmed = true
	}

	var ev Event
	for _, s := range samples {
		f.window[f.windowFill] = s
		f.windowFill++
		if f.windowFill == f.cfg.WindowSize {
			if e := f.analyzeWindow(); e != nil {
				ev = e
			}
			f.windowStart += uint64(f.cfg.WindowSize)
			f.windowFill = 0
		}
	}
	return ev
}

func (f *FallbackDetector) analyzeWindow() Event {
	end := f.windowStart + uint64(f.cfg.WindowSize)

	// Band energy relative to broadband RMS; near 1 when the window is
	// dominated by in-band energy, near 0 for silence or broadband noise.
	var rms float64
	for _, s := range f.window {
		rms += s * s
	}
	rms = math.Sqrt(rms / float64(f.cfg.WindowSize))
	band := (f.bins[0].Magnitude(f.window) + f.bins[1].Magnitude(f.window) + f.bins[2].Magnitude(f.window)) / 3
	ratio := 0.0
	if rms > 1e-9 {
		ratio = band / (rms * 2)
		if ratio > 1 {
			ratio = 1
		}
	}

	excluded := f.excl.Excluded(end)

	if !f.floor.Calibrated() {
		if !excluded {
			f.floor.Observe(ratio)
		}
		if end >= f.calDeadline {
			floor, n := f.floor.Finish()
			return Calibrated{NoiseFloor: floor, SampleCount: n}
		}
		return nil
	}

	threshold := f.floor.Value() * f.thresholdLin
	if !excluded && ratio < threshold {
		f.floor.Update(ratio)
	}

	active := ratio > threshold
	if !active {
		// Hysteresis: the burst ends only once the ratio drops well below
		// the trigger level.
		if f.inBurst && ratio < threshold*0.7 {
			f.inBurst = false
		}
		return nil
	}
	if excluded || f.inBurst {
		return nil
	}
	if f.havePeak && end-f.lastPeak <= f.minPeakGap {
		return nil
	}

	f.inBurst = true
	f.lastPeak = end
	f.havePeak = true

	floor := f.floor.Value()
	snr := 0.0
	if floor > 0 {
		snr = 20 * math.Log10(ratio/floor)
	}
	return ChirpDetected{
		PeakFrame:   float64(end), // whole-window precision only
		Correlation: ratio,
		NoiseFloor:  floor,
		SNRDb:       snr,
	}
}
