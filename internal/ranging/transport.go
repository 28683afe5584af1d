package ranging

import (
	"encoding/json"
	"sync"
)

// Handler receives the raw payload of one inbound message. Handlers run on
// the transport's delivery context and must not block.
type Handler func(payload []byte)

// Transport is the reliable, ordered peer-to-peer message channel the
// protocol runs over. Implementations marshal payloads as JSON.
type Transport interface {
	Send(msgType string, payload any) error
	OnMessage(msgType string, h Handler)
}

// decodeInto returns a Handler that unmarshals payloads into ch without
// blocking the transport's delivery context.
func decodeInto[T any](ch chan T) Handler {
	return func(payload []byte) {
		var msg T
		if err := json.Unmarshal(payload, &msg); err != nil {
			return
		}
		select {
		case ch <- msg:
		default:
		}
	}
}

// Loopback is an in-memory Transport joining two endpoints in the same
// process. Used by the simulator and tests.
type Loopback struct {
	mu       sync.Mutex
	peer     *Loopback
	handlers map[string]Handler
}

// LoopbackPair returns two connected endpoints.
func LoopbackPair() (*Loopback, *Loopback) {
	a := &Loopback{handlers: make(map[string]Handler)}
	b := &Loopback{handlers: make(map[string]Handler)}
	a.peer = b
	b.peer = a
	return a, b
}

// Send marshals payload and delivers it to the peer's handler, if any.
func (l *Loopback) Send(msgType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	l.peer.mu.Lock()
	h := l.peer.handlers[msgType]
	l.peer.mu.Unlock()
	if h != nil {
		h(data)
	}
	return nil
}

// OnMessage registers the handler for one message type, replacing any
// previous registration.
func (l *Loopback) OnMessage(msgType string, h Handler) {
	l.mu.Lock()
	l.handlers[msgType] = h
	l.mu.Unlock()
}
