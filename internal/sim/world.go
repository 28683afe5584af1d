// Package sim models two devices ranging over an air channel: propagation
// delay from a configurable distance, attenuation, additive noise and
// optional clock-rate skew. It backs the demo mode and the end-to-end tests.
package sim

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"chirp-ranger.dev/internal/chirp"
	"chirp-ranger.dev/internal/config"
	"chirp-ranger.dev/internal/dsp"
	"chirp-ranger.dev/internal/ranging"
)

// selfCouplingGain is the speaker-to-own-microphone amplitude.
const selfCouplingGain = 0.5

// ErrInvalidDistance indicates a non-positive simulated distance.
var ErrInvalidDistance = errors.New("sim: distance must be positive")

// Params configures the simulated world.
type Params struct {
	DistanceFt   float64
	NoiseLevel   float64 // stddev of additive Gaussian microphone noise
	DriftPPM     float64 // clock-rate skew of device B relative to A
	SampleRate   int
	BlockSize    int
	SpeedOfSound float64 // ft/s
	Seed         int64
	Logger       *logrus.Entry
}

// DefaultParams returns the demo defaults.
func DefaultParams() Params {
	return Params{
		DistanceFt:   config.DemoDistanceFt,
		NoiseLevel:   config.DemoNoiseLevel,
		SampleRate:   config.SampleRate,
		BlockSize:    config.BlockSize,
		SpeedOfSound: config.SpeedOfSoundFtPerSec,
		Seed:         1,
	}
}

// World joins two Devices over the modeled channel. Callback fields must be
// assigned before Start; they are invoked from the stepping and session
// goroutines.
type World struct {
	A *Device
	B *Device

	// OnDistance fires when the initiator completes an attempt.
	OnDistance func(distanceFeet float64)
	// OnFailure fires when an attempt fails on either side.
	OnFailure func(device string, err error)
	// OnCalibrated fires when a device's detector finishes calibrating.
	OnCalibrated func(device string, ev dsp.Calibrated)
	// OnDetected fires on every accepted detection.
	OnDetected func(device string, ev dsp.ChirpDetected)
	// OnEmitted fires when a device starts a chirp emission.
	OnEmitted func(device string)

	params Params
}

// NewWorld builds the two devices, their detectors and sessions, and joins
// the sessions over an in-memory loopback transport.
func NewWorld(p Params) (*World, error) {
	if p.DistanceFt <= 0 {
		return nil, ErrInvalidDistance
	}

	tmpl, err := chirp.Generate(chirp.Spec{
		SampleRate: p.SampleRate,
		Duration:   config.ChirpDuration,
		FreqStart:  config.FreqStartHz,
		FreqEnd:    config.FreqEndHz,
		Taper:      config.ChirpTaper,
	})
	if err != nil {
		return nil, err
	}

	w := &World{params: p}

	delay := p.DistanceFt / p.SpeedOfSound * float64(p.SampleRate)
	gain := 0.9 / (1 + p.DistanceFt/10) // crude spreading loss
	deaf := uint64(config.DeafPeriod.Seconds() * float64(p.SampleRate))

	build := func(name string, scale float64, seed int64) (*Device, error) {
		det, err := dsp.NewDetector(dsp.DefaultConfig(tmpl))
		if err != nil {
			return nil, err
		}
		return &Device{
			name:       name,
			det:        det,
			tmpl:       tmpl,
			rng:        rand.New(rand.NewSource(seed)),
			world:      w,
			clockScale: scale,
			delay:      delay,
			gain:       gain,
			noise:      p.NoiseLevel,
			blockSize:  p.BlockSize,
			sampleRate: p.SampleRate,
			deafFrames: deaf,
		}, nil
	}

	w.A, err = build("alpha", 1, p.Seed)
	if err != nil {
		return nil, err
	}
	w.B, err = build("bravo", 1+p.DriftPPM*1e-6, p.Seed+1)
	if err != nil {
		return nil, err
	}
	w.A.peer = w.B
	w.B.peer = w.A

	ta, tb := ranging.LoopbackPair()
	scfg := ranging.DefaultSessionConfig()
	scfg.SampleRate = p.SampleRate
	scfg.SpeedOfSound = p.SpeedOfSound
	scfg.Logger = p.Logger

	w.A.session, err = ranging.NewSession(scfg, w.A, ta)
	if err != nil {
		return nil, err
	}
	w.B.session, err = ranging.NewSession(scfg, w.B, tb)
	if err != nil {
		return nil, err
	}

	w.A.session.OnDistance(func(d float64) {
		if w.OnDistance != nil {
			w.OnDistance(d)
		}
	})
	w.A.session.OnFailure(func(err error) {
		if w.OnFailure != nil {
			w.OnFailure(w.A.name, err)
		}
	})
	w.B.session.OnFailure(func(err error) {
		if w.OnFailure != nil {
			w.OnFailure(w.B.name, err)
		}
	})

	return w, nil
}

// Start launches both ranging sessions.
func (w *World) Start() {
	w.A.session.Start()
	w.B.session.Start()
}

// Stop shuts both sessions down.
func (w *World) Stop() {
	w.A.session.Stop()
	w.B.session.Stop()
}

// Step advances both devices by n audio blocks.
func (w *World) Step(n int) {
	for i := 0; i < n; i++ {
		w.A.step()
		w.B.step()
	}
}

// Initiate starts one ranging attempt from device A.
func (w *World) Initiate() error {
	return w.A.session.StartAttempt()
}

// Run steps the world at roughly real-time pace until ctx is cancelled.
func (w *World) Run(ctx context.Context) {
	interval := 20 * time.Millisecond
	blocks := int(float64(w.params.SampleRate)*interval.Seconds())/w.params.BlockSize + 1
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Step(blocks)
		}
	}
}

func (w *World) emitted(device string) {
	if w.OnEmitted != nil {
		w.OnEmitted(device)
	}
}

func (w *World) calibrated(device string, ev dsp.Calibrated) {
	if w.OnCalibrated != nil {
		w.OnCalibrated(device, ev)
	}
}

func (w *World) detected(device string, ev dsp.ChirpDetected) {
	if w.OnDetected != nil {
		w.OnDetected(device, ev)
	}
}
