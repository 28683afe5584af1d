package config

import "time"

const (
	// Chirp waveform
	SampleRate    = 44100 // Hz
	ChirpDuration = 30 * time.Millisecond
	ChirpTaper    = 3 * time.Millisecond // raised-cosine edge taper
	FreqStartHz   = 14000.0              // near the edge of audibility
	FreqEndHz     = 16000.0

	// Detection
	BlockSize          = 128                   // samples per real-time block
	SNRThresholdDb     = 12.0                  // detection threshold above the noise floor
	MinCorrelation     = 0.15                  // absolute floor, guards a decayed noise floor
	MinPeakInterval    = 80 * time.Millisecond // re-trigger cooldown
	NoiseFloorAlpha    = 0.01                  // EMA factor for steady-state floor updates
	DefaultNoiseFloor  = 0.1                   // used when calibration collects no samples
	CalibrationWindow  = 1 * time.Second
	CorrelationEpsilon = 1e-9 // below this window energy, correlation is zero

	// Ranging protocol
	ReplyDelay     = 50 * time.Millisecond // detection to response emission
	DeafPeriod     = 30 * time.Millisecond // post-emission self-echo guard
	AttemptTimeout = 3 * time.Second
	ExclusionTTL   = 1 * time.Second // exclusion ranges older than this are pruned

	// Distance
	SpeedOfSoundFtPerSec = 1125.0 // dry air ~20C; configurable for temperature

	// Measurement smoothing
	SmoothingAlpha = 0.3 // EMA on reported distances (30% new, 70% old)
	HistoryLen     = 64  // distance history ring for the sparkline

	// Demo mode
	DemoDistanceFt = 10.0
	DemoNoiseLevel = 0.02
	TargetFPS      = 30

	// App
	AppName    = "CHIRP-RANGER"
	AppVersion = "1.0"
)
