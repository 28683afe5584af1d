package ranging

// Message type identifiers carried over the peer transport.
const (
	// MsgRangingRequest arms the responder for an incoming attempt.
	MsgRangingRequest = "ranging_request"
	// MsgRangingResponse completes an attempt with the responder's three
	// timestamps.
	MsgRangingResponse = "ranging_response"
)

// RangingRequest is sent by the initiator immediately before emitting its
// first chirp. The attempt number lets the responder discard a stale
// response window if requests cross.
type RangingRequest struct {
	Attempt uint32 `json:"attempt"`
}

// RangingResponse carries the responder's timestamps back to the initiator.
// All values are seconds on the responder's own audio clock; the DS-TWR
// formula only ever differences same-clock pairs, so no translation to the
// initiator's timebase is needed.
type RangingResponse struct {
	Attempt uint32  `json:"attempt"`
	TRx1    float64 `json:"tRx1"`          // chirp 1 detected
	TTx1    float64 `json:"tTx1Responder"` // response emitted
	TRx2    float64 `json:"tRx2"`          // chirp 2 detected
}
