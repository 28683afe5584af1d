// Package dsp implements the real-time side of the ranging engine: matched
// filtering against the chirp template, adaptive noise-floor estimation,
// self-emission exclusion and sub-sample peak localization.
package dsp

import (
	"errors"
	"math"
	"time"

	"chirp-ranger.dev/internal/chirp"
	"chirp-ranger.dev/internal/config"
)

var (
	// ErrTemplateRequired indicates a chirp template is required.
	ErrTemplateRequired = errors.New("dsp: chirp template is required")
	// ErrInvalidBlockSize indicates block size must be positive.
	ErrInvalidBlockSize = errors.New("dsp: block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive.
	ErrInvalidSampleRate = errors.New("dsp: sample rate must be positive")
	// ErrInvalidThreshold indicates the SNR threshold must be positive.
	ErrInvalidThreshold = errors.New("dsp: snr threshold must be positive")
	// ErrInvalidAlpha indicates the noise floor EMA factor must be in (0, 1).
	ErrInvalidAlpha = errors.New("dsp: noise floor alpha must be between 0 and 1")
)

// Config holds detector tuning. All durations are converted to frames at
// construction time so the block path works in integers.
type Config struct {
	SampleRate        int
	BlockSize         int
	Template          *chirp.Template
	SNRThresholdDb    float64       // detection threshold above the floor
	MinCorrelation    float64       // absolute correlation floor
	MinPeakInterval   time.Duration // re-trigger cooldown
	CalibrationWindow time.Duration
	NoiseFloorAlpha   float64
	DefaultNoiseFloor float64
	ExclusionTTL      time.Duration
	Epsilon           float64 // near-zero energy guard
}

// DefaultConfig returns the session defaults for the given template.
func DefaultConfig(tmpl *chirp.Template) Config {
	return Config{
		SampleRate:        config.SampleRate,
		BlockSize:         config.BlockSize,
		Template:          tmpl,
		SNRThresholdDb:    config.SNRThresholdDb,
		MinCorrelation:    config.MinCorrelation,
		MinPeakInterval:   config.MinPeakInterval,
		CalibrationWindow: config.CalibrationWindow,
		NoiseFloorAlpha:   config.NoiseFloorAlpha,
		DefaultNoiseFloor: config.DefaultNoiseFloor,
		ExclusionTTL:      config.ExclusionTTL,
		Epsilon:           config.CorrelationEpsilon,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Template == nil || c.Template.Len() == 0 {
		return ErrTemplateRequired
	}
	if c.BlockSize <= 0 {
		return ErrInvalidBlockSize
	}
	if c.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	if c.SNRThresholdDb <= 0 {
		return ErrInvalidThreshold
	}
	if c.NoiseFloorAlpha <= 0 || c.NoiseFloorAlpha >= 1 {
		return ErrInvalidAlpha
	}
	return nil
}

func (c *Config) frames(d time.Duration) uint64 {
	return uint64(d.Seconds() * float64(c.SampleRate))
}

// scanStride is the spacing of candidate lags evaluated inside each block.
// The correlation main lobe of a 2 kHz-wide chirp is only ~22 samples
// null-to-null, so a peak landing between block boundaries would slip under
// the threshold if only the block end were checked.
const scanStride = 8

// Detector runs once per fixed-size audio block. It owns the sample ring, the
// exclusion set and the noise floor; the block path performs no allocation,
// blocking I/O or locking.
type Detector struct {
	cfg   Config
	ring  *SampleRing
	excl  *ExclusionTracker
	floor *NoiseFloor

	thresholdLin float64 // 10^(SNRThresholdDb/20)
	minPeakGap   uint64  // frames
	calFrames    uint64

	calDeadline uint64
	calArmed    bool
	lastPeak    uint64
	havePeak    bool
}

// NewDetector creates a detector. The ring is sized at three chirp lengths
// plus one block, so a full chirp is always representable within a single
// correlation window.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	calFrames := cfg.frames(cfg.CalibrationWindow)
	expected := int(calFrames/uint64(cfg.BlockSize)) + 1
	return &Detector{
		cfg:          cfg,
		ring:         NewSampleRing(3*cfg.Template.Len() + cfg.BlockSize),
		excl:         NewExclusionTracker(cfg.frames(cfg.ExclusionTTL)),
		floor:        NewNoiseFloor(cfg.NoiseFloorAlpha, cfg.DefaultNoiseFloor, expected),
		thresholdLin: math.Pow(10, cfg.SNRThresholdDb/20),
		minPeakGap:   cfg.frames(cfg.MinPeakInterval),
		calFrames:    calFrames,
	}, nil
}

// NoiseFloor returns the current floor value (zero until calibrated).
func (d *Detector) NoiseFloor() float64 { return d.floor.Value() }

// Calibrated reports whether the calibration window has closed.
func (d *Detector) Calibrated() bool { return d.floor.Calibrated() }

// Exclude marks [startFrame, endFrame] as self-emission.
func (d *Detector) Exclude(startFrame, endFrame uint64) {
	d.excl.Exclude(startFrame, endFrame)
}

// Reset clears calibration and exclusion state. Buffered samples are dropped;
// the next block rebases the ring.
func (d *Detector) Reset() {
	calFrames := d.cfg.frames(d.cfg.CalibrationWindow)
	d.floor.Reset(int(calFrames/uint64(d.cfg.BlockSize)) + 1)
	d.excl.Clear()
	d.calArmed = false
	d.havePeak = false
	d.ring.Rebase(0)
}

// Control applies a tagged control message.
func (d *Detector) Control(msg ControlMsg) {
	switch m := msg.(type) {
	case ExcludeRange:
		d.Exclude(m.StartFrame, m.EndFrame)
	case Reset:
		d.Reset()
	}
}

// ProcessBlock ingests one audio block starting at the given absolute frame
// and returns at most one event (Calibrated or ChirpDetected), or nil.
//
// A discontinuity in the frame counter rebases the ring rather than
// correlating across the gap.
func (d *Detector) ProcessBlock(samples []float64, startFrame uint64) Event {
	if d.ring.Filled() == 0 || startFrame != d.ring.End() {
		d.ring.Rebase(startFrame)
	}
	if !d.calArmed {
		d.calDeadline = startFrame + d.calFrames
		d.calArmed = true
	}
	d.ring.WriteBlock(samples)

	// No correlation until a full chirp plus one block has accumulated.
	if d.ring.Filled() < d.cfg.Template.Len()+d.cfg.BlockSize {
		return nil
	}

	// Best candidate lag within the block just written.
	ringEnd := d.ring.End()
	end := ringEnd
	corr := -1.0
	for off := 0; off < d.cfg.BlockSize; off += scanStride {
		cand := ringEnd - uint64(off)
		if c, ok := d.ring.Correlate(d.cfg.Template, cand, d.cfg.Epsilon); ok && c > corr {
			corr = c
			end = cand
		}
	}
	if corr < 0 {
		return nil
	}
	excluded := d.excl.Excluded(end)

	if !d.floor.Calibrated() {
		if !excluded {
			d.floor.Observe(corr)
		}
		if ringEnd >= d.calDeadline {
			floor, n := d.floor.Finish()
			return Calibrated{NoiseFloor: floor, SampleCount: n}
		}
		return nil
	}

	threshold := d.floor.Value() * d.thresholdLin
	if !excluded && corr < threshold {
		d.floor.Update(corr)
	}

	if excluded || corr <= threshold || corr < d.cfg.MinCorrelation {
		return nil
	}
	if d.havePeak && end-d.lastPeak <= d.minPeakGap {
		return nil
	}

	peak := LocalizePeak(d.ring, d.cfg.Template, end, d.cfg.BlockSize, d.cfg.Epsilon)
	d.lastPeak = end
	d.havePeak = true

	floor := d.floor.Value()
	snr := 0.0
	if floor > 0 {
		snr = 20 * math.Log10(peak.Correlation/floor)
	}
	return ChirpDetected{
		PeakFrame:   peak.PeakFrame,
		Correlation: peak.Correlation,
		NoiseFloor:  floor,
		SNRDb:       snr,
	}
}
