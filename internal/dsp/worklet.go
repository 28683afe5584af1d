package dsp

// Worklet runs a Detector on its own goroutine, mirroring an isolated
// real-time audio context. It talks to the rest of the system exclusively via
// one-way bounded channels: control messages in, events out. Neither side can
// re-enter or block the processing loop; when a queue is full the message is
// dropped rather than stalling the audio path.
type Worklet struct {
	det    *Detector
	ctrl   chan ControlMsg
	blocks chan block
	events chan Event
	quit   chan struct{}
	done   chan struct{}
}

type block struct {
	samples []float64
	start   uint64
}

// NewWorklet wraps det. Start must be called before feeding blocks.
func NewWorklet(det *Detector) *Worklet {
	return &Worklet{
		det:    det,
		ctrl:   make(chan ControlMsg, 16),
		blocks: make(chan block, 64),
		events: make(chan Event, 16),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the processing goroutine.
func (w *Worklet) Start() {
	go w.loop()
}

// Stop shuts the processing goroutine down and waits for it to exit.
func (w *Worklet) Stop() {
	close(w.quit)
	<-w.done
}

// Events returns the outbound event channel.
func (w *Worklet) Events() <-chan Event { return w.events }

// Control enqueues a control message without blocking. Returns false if the
// queue was full and the message was dropped.
func (w *Worklet) Control(msg ControlMsg) bool {
	select {
	case w.ctrl <- msg:
		return true
	default:
		return false
	}
}

// Process enqueues an audio block without blocking. The caller must not reuse
// the sample slice. Returns false if the queue was full and the block was
// dropped; the detector rebases its ring on the resulting discontinuity.
func (w *Worklet) Process(samples []float64, startFrame uint64) bool {
	select {
	case w.blocks <- block{samples: samples, start: startFrame}:
		return true
	default:
		return false
	}
}

func (w *Worklet) loop() {
	defer close(w.done)
	for {
		// Drain pending control messages before touching audio so an
		// exclusion range lands before the samples it covers.
		for {
			select {
			case msg := <-w.ctrl:
				w.det.Control(msg)
				continue
			default:
			}
			break
		}

		select {
		case <-w.quit:
			return
		case msg := <-w.ctrl:
			w.det.Control(msg)
		case b := <-w.blocks:
			if ev := w.det.ProcessBlock(b.samples, b.start); ev != nil {
				select {
				case w.events <- ev:
				default: // consumer stalled; drop rather than block
				}
			}
		}
	}
}
