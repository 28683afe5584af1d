// Package audio emits chirps through the device speaker. Capture has no
// portable counterpart here, so live mode can transmit but not detect; the
// full loop runs in the simulator.
package audio

import (
	"bytes"
	"fmt"

	"github.com/ebitengine/oto/v3"

	"chirp-ranger.dev/internal/chirp"
)

// Player renders chirp templates to the default output device.
type Player struct {
	ctx        *oto.Context
	sampleRate int
}

// NewPlayer opens the audio device at the given sample rate, mono, 16-bit.
func NewPlayer(sampleRate int) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-ready
	return &Player{ctx: ctx, sampleRate: sampleRate}, nil
}

// Play starts playback of the template and returns without waiting for it to
// finish; a 30 ms chirp is done long before anything could care.
func (p *Player) Play(tmpl *chirp.Template) {
	player := p.ctx.NewPlayer(bytes.NewReader(EncodePCM16(tmpl.Samples)))
	player.Play()
}

// EncodePCM16 converts float64 samples in [-1, 1] to 16-bit little-endian
// mono PCM.
func EncodePCM16(samples []float64) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(v >> 8)
	}
	return pcm
}
