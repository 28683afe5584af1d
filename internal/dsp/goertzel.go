package dsp

import "math"

// Goertzel evaluates the signal power at a single frequency bin. It is far
// cheaper than an FFT when only a handful of bins are needed, which is all
// the fallback detector looks at.
type Goertzel struct {
	coeff     float64
	blockSize int
}

// NewGoertzel creates a Goertzel filter for freqHz at the given sample rate,
// evaluated over blocks of blockSize samples. The target frequency is rounded
// to the nearest bin.
func NewGoertzel(sampleRate int, freqHz float64, blockSize int) *Goertzel {
	k := math.Round(float64(blockSize) * freqHz / float64(sampleRate))
	omega := 2 * math.Pi * k / float64(blockSize)
	return &Goertzel{
		coeff:     2 * math.Cos(omega),
		blockSize: blockSize,
	}
}

// BlockSize returns the analysis block length in samples.
func (g *Goertzel) BlockSize() int { return g.blockSize }

// Magnitude returns the normalized magnitude of the target bin over block.
// The block must be exactly BlockSize samples.
func (g *Goertzel) Magnitude(block []float64) float64 {
	var q1, q2 float64
	for _, s := range block {
		q0 := g.coeff*q1 - q2 + s
		q2 = q1
		q1 = q0
	}
	mag := math.Sqrt(q1*q1 + q2*q2 - g.coeff*q1*q2)
	return mag / (float64(g.blockSize) / 2)
}
