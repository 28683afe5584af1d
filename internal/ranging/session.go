// Package ranging implements the double-sided two-way ranging protocol on
// top of the detector's event stream and a reliable peer transport.
package ranging

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"chirp-ranger.dev/internal/config"
	"chirp-ranger.dev/internal/dsp"
)

var (
	// ErrAttemptInFlight indicates a ranging attempt is already active.
	ErrAttemptInFlight = errors.New("ranging: attempt already in flight")
	// ErrAttemptTimeout indicates no chirp or peer message arrived in time.
	ErrAttemptTimeout = errors.New("ranging: attempt timed out")
	// ErrSessionClosed indicates the session was stopped mid-attempt.
	ErrSessionClosed = errors.New("ranging: session closed")
	// ErrEmitterRequired indicates a chirp emitter is required.
	ErrEmitterRequired = errors.New("ranging: emitter is required")
	// ErrTransportRequired indicates a peer transport is required.
	ErrTransportRequired = errors.New("ranging: transport is required")
)

// Role identifies which side of an attempt this device plays.
type Role int

const (
	// RoleInitiator started the attempt and computes the distance.
	RoleInitiator Role = iota
	// RoleResponder echoes the initiator's chirps and reports timestamps.
	RoleResponder
)

func (r Role) String() string {
	if r == RoleResponder {
		return "responder"
	}
	return "initiator"
}

// State is the protocol position of the active attempt.
type State int

const (
	// StateIdle means no attempt is in flight.
	StateIdle State = iota
	// StateAwaitResponse: initiator emitted chirp 1, listening.
	StateAwaitResponse
	// StateReplyPending: detection landed, waiting out the fixed reply delay
	// before the next emission (both roles).
	StateReplyPending
	// StateAwaitFinal: initiator emitted chirp 2, waiting for the
	// responder's timing message.
	StateAwaitFinal
	// StateAwaitChirp1: responder armed, listening for the first chirp.
	StateAwaitChirp1
	// StateAwaitChirp2: responder emitted its response, listening again.
	StateAwaitChirp2
)

func (s State) String() string {
	switch s {
	case StateAwaitResponse:
		return "await_response"
	case StateReplyPending:
		return "reply_pending"
	case StateAwaitFinal:
		return "await_final"
	case StateAwaitChirp1:
		return "await_chirp1"
	case StateAwaitChirp2:
		return "await_chirp2"
	default:
		return "idle"
	}
}

// Emitter starts a chirp emission and returns the emission start time in
// seconds on the local audio clock. Implementations must also shield the
// local detector with an exclusion range covering the emission plus the
// deaf period, enforcing the half-duplex constraint.
type Emitter interface {
	EmitChirp() (float64, error)
}

// SessionConfig tunes one ranging session.
type SessionConfig struct {
	SampleRate    int
	ChirpDuration time.Duration // detection peaks mark chirp end; subtracted out
	ReplyDelay    time.Duration
	Timeout       time.Duration
	SpeedOfSound  float64 // ft/s
	Logger        *logrus.Entry
}

// DefaultSessionConfig returns the session defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SampleRate:    config.SampleRate,
		ChirpDuration: config.ChirpDuration,
		ReplyDelay:    config.ReplyDelay,
		Timeout:       config.AttemptTimeout,
		SpeedOfSound:  config.SpeedOfSoundFtPerSec,
	}
}

// attempt is the live protocol state, destroyed on completion, timeout or
// cancellation.
type attempt struct {
	role   Role
	state  State
	number uint32

	tTx1 float64
	tRx1 float64
	tTx2 float64
	tRx2 float64
}

// Session orchestrates DS-TWR attempts. It runs a single event-loop
// goroutine driven by detection events, protocol timers and inbound peer
// messages; at most one attempt is in flight at a time. A failed attempt
// never touches detector state, so the next one starts cleanly.
type Session struct {
	cfg       SessionConfig
	emitter   Emitter
	transport Transport
	log       *logrus.Entry

	onDistance func(float64)
	onFailure  func(error)

	detCh   chan float64
	reqCh   chan RangingRequest
	respCh  chan RangingResponse
	startCh chan chan error
	quit    chan struct{}
	done    chan struct{}
}

// NewSession wires a session to its emitter and transport. Callbacks must be
// registered before Start.
func NewSession(cfg SessionConfig, emitter Emitter, transport Transport) (*Session, error) {
	if emitter == nil {
		return nil, ErrEmitterRequired
	}
	if transport == nil {
		return nil, ErrTransportRequired
	}
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(nopWriter{})
		log = logrus.NewEntry(l)
	}
	s := &Session{
		cfg:       cfg,
		emitter:   emitter,
		transport: transport,
		log:       log,
		detCh:     make(chan float64, 4),
		reqCh:     make(chan RangingRequest, 4),
		respCh:    make(chan RangingResponse, 4),
		startCh:   make(chan chan error),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	transport.OnMessage(MsgRangingRequest, decodeInto(s.reqCh))
	transport.OnMessage(MsgRangingResponse, decodeInto(s.respCh))
	return s, nil
}

// OnDistance registers the consumer callback, invoked once per successfully
// completed attempt with the measured distance in feet.
func (s *Session) OnDistance(fn func(distanceFeet float64)) { s.onDistance = fn }

// OnFailure registers the failure callback. Retry policy belongs to the
// caller; the session never retries on its own.
func (s *Session) OnFailure(fn func(error)) { s.onFailure = fn }

// Start launches the event loop.
func (s *Session) Start() { go s.run() }

// Stop shuts the event loop down; an active attempt fails with
// ErrSessionClosed.
func (s *Session) Stop() {
	close(s.quit)
	<-s.done
}

// StartAttempt begins an attempt as initiator. It returns once the first
// chirp emission has started, or ErrAttemptInFlight when busy.
func (s *Session) StartAttempt() error {
	errc := make(chan error, 1)
	select {
	case s.startCh <- errc:
		return <-errc
	case <-s.quit:
		return ErrSessionClosed
	}
}

// HandleDetection feeds a detector event into the protocol. The peak frame
// marks the chirp end, so one chirp length is subtracted to recover the
// arrival time of the chirp start on the local clock.
func (s *Session) HandleDetection(ev dsp.ChirpDetected) {
	chirpFrames := s.cfg.ChirpDuration.Seconds() * float64(s.cfg.SampleRate)
	arrival := (ev.PeakFrame - chirpFrames) / float64(s.cfg.SampleRate)
	select {
	case s.detCh <- arrival:
	default: // protocol loop saturated; stale detections are worthless
	}
}

func (s *Session) run() {
	defer close(s.done)

	var (
		att      *attempt
		number   uint32
		timeoutT *time.Timer
		replyT   *time.Timer
		timeoutC <-chan time.Time
		replyC   <-chan time.Time
	)

	clear := func() {
		if timeoutT != nil {
			timeoutT.Stop()
		}
		if replyT != nil {
			replyT.Stop()
		}
		att = nil
		timeoutC, replyC = nil, nil
	}
	fail := func(err error) {
		s.log.WithError(err).WithField("state", att.state.String()).Warn("ranging attempt failed")
		clear()
		if s.onFailure != nil {
			s.onFailure(err)
		}
	}
	armTimeout := func() {
		timeoutT = time.NewTimer(s.cfg.Timeout)
		timeoutC = timeoutT.C
	}
	armReply := func() {
		replyT = time.NewTimer(s.cfg.ReplyDelay)
		replyC = replyT.C
	}

	for {
		select {
		case <-s.quit:
			if att != nil {
				fail(ErrSessionClosed)
			}
			return

		case errc := <-s.startCh:
			if att != nil {
				errc <- ErrAttemptInFlight
				continue
			}
			number++
			if err := s.transport.Send(MsgRangingRequest, RangingRequest{Attempt: number}); err != nil {
				errc <- err
				continue
			}
			t, err := s.emitter.EmitChirp()
			if err != nil {
				errc <- err
				continue
			}
			att = &attempt{role: RoleInitiator, state: StateAwaitResponse, number: number, tTx1: t}
			armTimeout()
			s.log.WithField("attempt", number).Debug("initiated ranging attempt")
			errc <- nil

		case req := <-s.reqCh:
			if att != nil {
				s.log.WithField("attempt", req.Attempt).Debug("ignoring ranging request while busy")
				continue
			}
			att = &attempt{role: RoleResponder, state: StateAwaitChirp1, number: req.Attempt}
			armTimeout()
			s.log.WithField("attempt", req.Attempt).Debug("armed as responder")

		case t := <-s.detCh:
			if att == nil {
				continue // spurious or stale
			}
			switch att.state {
			case StateAwaitResponse: // initiator heard the response
				att.tRx1 = t
				att.state = StateReplyPending
				armReply()
			case StateAwaitChirp1: // responder heard chirp 1
				att.tRx1 = t
				att.state = StateReplyPending
				armReply()
			case StateAwaitChirp2: // responder heard chirp 2
				att.tRx2 = t
				resp := RangingResponse{
					Attempt: att.number,
					TRx1:    att.tRx1,
					TTx1:    att.tTx1,
					TRx2:    att.tRx2,
				}
				if err := s.transport.Send(MsgRangingResponse, resp); err != nil {
					fail(err)
					continue
				}
				s.log.WithField("attempt", att.number).Debug("responder exchange complete")
				clear()
			default:
				// Detections outside the expected window are ignored.
			}

		case <-replyC:
			if att == nil || att.state != StateReplyPending {
				continue
			}
			t, err := s.emitter.EmitChirp()
			if err != nil {
				fail(err)
				continue
			}
			if att.role == RoleInitiator {
				att.tTx2 = t
				att.state = StateAwaitFinal
			} else {
				att.tTx1 = t
				att.state = StateAwaitChirp2
			}

		case resp := <-s.respCh:
			if att == nil || att.role != RoleInitiator || att.state != StateAwaitFinal {
				continue
			}
			if resp.Attempt != att.number {
				s.log.WithField("attempt", resp.Attempt).Debug("ignoring stale ranging response")
				continue
			}
			iv := Intervals{
				Round1: att.tRx1 - att.tTx1,
				Reply2: att.tTx2 - att.tRx1,
				Reply1: resp.TTx1 - resp.TRx1,
				Round2: resp.TRx2 - resp.TTx1,
			}
			tof, err := TimeOfFlight(iv)
			if err != nil {
				fail(err)
				continue
			}
			dist := Distance(tof, s.cfg.SpeedOfSound)
			s.log.WithFields(logrus.Fields{
				"attempt":     att.number,
				"tof_ms":      tof * 1000,
				"distance_ft": dist,
			}).Info("ranging attempt complete")
			clear()
			if s.onDistance != nil {
				s.onDistance(dist)
			}

		case <-timeoutC:
			if att != nil {
				fail(ErrAttemptTimeout)
			}
		}
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
