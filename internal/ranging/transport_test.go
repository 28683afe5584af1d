package ranging_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirp-ranger.dev/internal/ranging"
)

// TestLoopback_RoundTrip delivers a typed message from one endpoint to the
// other and back.
func TestLoopback_RoundTrip(t *testing.T) {
	a, b := ranging.LoopbackPair()

	var gotResp ranging.RangingResponse
	received := false
	b.OnMessage(ranging.MsgRangingResponse, func(payload []byte) {
		require.NoError(t, json.Unmarshal(payload, &gotResp))
		received = true
	})

	sent := ranging.RangingResponse{Attempt: 3, TRx1: 1.5, TTx1: 1.55, TRx2: 1.6}
	require.NoError(t, a.Send(ranging.MsgRangingResponse, sent))
	require.True(t, received)
	assert.Equal(t, sent, gotResp)

	// And the reverse direction with the other message type.
	var gotReq ranging.RangingRequest
	a.OnMessage(ranging.MsgRangingRequest, func(payload []byte) {
		require.NoError(t, json.Unmarshal(payload, &gotReq))
	})
	require.NoError(t, b.Send(ranging.MsgRangingRequest, ranging.RangingRequest{Attempt: 9}))
	assert.Equal(t, uint32(9), gotReq.Attempt)
}

// TestLoopback_UnhandledType: a message nobody listens for is dropped without
// error.
func TestLoopback_UnhandledType(t *testing.T) {
	a, _ := ranging.LoopbackPair()
	assert.NoError(t, a.Send("unknown", ranging.RangingRequest{Attempt: 1}))
}
