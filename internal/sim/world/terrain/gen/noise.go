package gen

import (
	"math"

	"github.com/aquilax/go-perlin"
)

const (
	noiseAlpha   = 2
	noiseBeta    = 2
	noiseOctaves = 3

	// half-width of the band the summed octaves actually cover
	noiseAmplitude = 0.5
	// lattice repeats every noisePeriod units on each axis
	noisePeriod = 256
)

// Noise is seeded 3D coherent noise.
type Noise struct {
	p *perlin.Perlin
}

func NewNoise(seed int64) *Noise {
	return &Noise{p: perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed)}
}

// wrap folds v into [0, noisePeriod). Noise3D drops to 2D for negative z.
func wrap(v float64) float64 {
	v = math.Mod(v, noisePeriod)
	if v < 0 {
		v += noisePeriod
	}
	return v
}

// Raw samples the noise at (x,y,z) scaled by freq on every axis,
// normalized to [-1, 1].
func (n *Noise) Raw(x, y, z int, freq float64) float64 {
	v := n.p.Noise3D(wrap(float64(x)*freq), wrap(float64(y)*freq), wrap(float64(z)*freq)) / noiseAmplitude
	return math.Max(-1, math.Min(1, v))
}

// Get maps a sample into [0, max] as floor((n+1) * max/2).
func (n *Noise) Get(x, y, z int, freq float64, max int) int {
	return int(math.Floor((n.Raw(x, y, z, freq) + 1) * (float64(max) / 2)))
}
