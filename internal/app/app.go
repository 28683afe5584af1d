package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"chirp-ranger.dev/internal/audio"
	"chirp-ranger.dev/internal/chirp"
	"chirp-ranger.dev/internal/config"
	"chirp-ranger.dev/internal/dsp"
	"chirp-ranger.dev/internal/ranging"
	"chirp-ranger.dev/internal/scope"
	"chirp-ranger.dev/internal/sim"
	"chirp-ranger.dev/internal/ui"

	"time"
)

// rangeInterval paces automatic attempts in demo mode.
const rangeInterval = 2 * time.Second

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	world  *sim.World
	store  *MeasurementStore
	ping   *scope.Ping
	player *audio.Player
	tmpl   *chirp.Template
	cancel context.CancelFunc
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	width  int
	height int

	demoMode bool
	params   sim.Params
	maxRange float64

	calibratedA bool
	calibratedB bool
	noiseFloor  float64
	lastSNRDb   float64
	logLines    []string

	shared *shared
}

// New creates a new AppModel. params is ignored in live mode.
func New(demoMode bool, params sim.Params, maxRange float64) AppModel {
	return AppModel{
		demoMode: demoMode,
		params:   params,
		maxRange: maxRange,
		shared: &shared{
			store: NewMeasurementStore(),
			ping:  scope.NewPing(maxRange),
		},
	}
}

// StartEngine brings the ranging engine up. Must be called before p.Run().
//
// Demo mode runs the full simulated loop. Live mode opens the speaker for
// chirp emission only: with no portable microphone capture the detector is
// unavailable, so ranging reports unavailable and the app degrades to a
// transmit-only check.
func (m *AppModel) StartEngine(p *tea.Program) error {
	if m.demoMode {
		w, err := sim.NewWorld(m.params)
		if err != nil {
			return err
		}
		w.OnDistance = func(d float64) { p.Send(DistanceMsg{Feet: d}) }
		w.OnFailure = func(dev string, err error) { p.Send(AttemptFailedMsg{Device: dev, Err: err}) }
		w.OnCalibrated = func(dev string, ev dsp.Calibrated) {
			p.Send(CalibratedMsg{Device: dev, NoiseFloor: ev.NoiseFloor, Samples: ev.SampleCount})
		}
		w.OnDetected = func(dev string, ev dsp.ChirpDetected) {
			p.Send(DetectionMsg{Device: dev, Correlation: ev.Correlation, SNRDb: ev.SNRDb})
		}
		w.OnEmitted = func(dev string) { p.Send(EmitMsg{Device: dev}) }

		w.Start()
		ctx, cancel := context.WithCancel(context.Background())
		m.shared.world = w
		m.shared.cancel = cancel
		go w.Run(ctx)
		return nil
	}

	tmpl, err := chirp.Generate(chirp.Spec{
		SampleRate: config.SampleRate,
		Duration:   config.ChirpDuration,
		FreqStart:  config.FreqStartHz,
		FreqEnd:    config.FreqEndHz,
		Taper:      config.ChirpTaper,
	})
	if err != nil {
		return err
	}
	player, err := audio.NewPlayer(config.SampleRate)
	if err != nil {
		return fmt.Errorf("live mode needs an audio output device: %w", err)
	}
	m.shared.tmpl = tmpl
	m.shared.player = player
	return nil
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(), rangeTickCmd())
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m.shared.ping.Update()
		return m, tickCmd()

	case RangeTickMsg:
		if m.demoMode && m.calibratedA && m.calibratedB {
			return m, tea.Batch(m.attemptCmd(), rangeTickCmd())
		}
		return m, rangeTickCmd()

	case CalibratedMsg:
		if msg.Device == "alpha" {
			m.calibratedA = true
			m.noiseFloor = msg.NoiseFloor
		} else {
			m.calibratedB = true
		}
		m.logLines = append(m.logLines,
			ui.StyleLogLine.Render(fmt.Sprintf("%s calibrated: floor %.4f (%d samples)",
				msg.Device, msg.NoiseFloor, msg.Samples)))
		return m, nil

	case DetectionMsg:
		if msg.Device == "alpha" {
			m.lastSNRDb = msg.SNRDb
		}
		return m, nil

	case EmitMsg:
		if msg.Device == "alpha" {
			m.shared.ping.Trigger()
		}
		return m, nil

	case DistanceMsg:
		m.shared.store.Add(msg.Feet)
		m.logLines = append(m.logLines,
			ui.StyleLogLine.Render(fmt.Sprintf("distance %.2f ft", msg.Feet)))
		return m, nil

	case AttemptFailedMsg:
		m.shared.store.Fail()
		m.logLines = append(m.logLines,
			ui.StyleLogError.Render(fmt.Sprintf("%s: %v", msg.Device, msg.Err)))
		return m, nil
	}

	return m, nil
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.stopEngine()
		return m, tea.Quit

	case "r", "R":
		if m.demoMode {
			return m, m.attemptCmd()
		}

	case "e", "E":
		if !m.demoMode && m.shared.player != nil {
			m.shared.player.Play(m.shared.tmpl)
			m.shared.ping.Trigger()
		}
	}

	return m, nil
}

// attemptCmd starts one ranging attempt off the UI goroutine. An attempt
// already in flight is not an error worth surfacing.
func (m AppModel) attemptCmd() tea.Cmd {
	w := m.shared.world
	return func() tea.Msg {
		if w == nil {
			return nil
		}
		if err := w.Initiate(); err != nil && err != ranging.ErrAttemptInFlight {
			return AttemptFailedMsg{Device: "alpha", Err: err}
		}
		return nil
	}
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	menuH := 1
	statusH := 1
	bodyH := m.height - menuH - statusH
	if bodyH < 6 {
		bodyH = 6
	}

	scopeW := m.width * 3 / 5
	if scopeW < 30 {
		scopeW = 30
	}
	sideW := m.width - scopeW
	if sideW < 20 {
		sideW = 20
		scopeW = m.width - sideW
	}

	mode := "DEMO"
	active := m.demoMode && m.calibratedA && m.calibratedB
	if !m.demoMode {
		mode = "LIVE (tx only)"
	}
	menuBar := ui.RenderMenuBar(m.width, mode, active)

	last, smoothed, have := m.shared.store.Snapshot()
	scopeContent := scope.Render(scopeW-4, bodyH-4, smoothed, have, m.maxRange, m.shared.ping)
	scopePanel := ui.RenderScopePanel(scopeW, bodyH, scopeContent)

	readoutH := bodyH / 2
	lo, hi, _ := m.shared.store.Spread()
	readout := ui.RenderReadout(sideW, readoutH, last, smoothed, have, m.shared.store.History(), lo, hi)
	logPanel := ui.RenderLog(sideW, bodyH-readoutH, m.logLines)
	side := readout + "\n" + logPanel

	attempts, failures := m.shared.store.Counts()
	statusBar := ui.RenderStatusBar(m.width, m.calibratedA, m.noiseFloor, attempts, failures, m.lastSNRDb)

	return ui.ComposeLayout(menuBar, scopePanel, side, statusBar, m.width)
}

func (m *AppModel) stopEngine() {
	if m.shared.cancel != nil {
		m.shared.cancel()
	}
	if m.shared.world != nil {
		m.shared.world.Stop()
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func rangeTickCmd() tea.Cmd {
	return tea.Tick(rangeInterval, func(t time.Time) tea.Msg {
		return RangeTickMsg(t)
	})
}
