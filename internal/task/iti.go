package task

import (
	"math"
	"math/rand"
)

// ITISampler draws the probe response window: an exponential gap,
// clamped and quantized, on top of a fixed base covering the stimulus
// time and the minimum inter-trial interval.
type ITISampler struct {
	Rate    float64 // exponential rate
	Scale   float64 // multiplier applied to the exponential variate
	Max     float64 // upper clamp for the gap, ms
	Quantum float64 // gap is rounded to a multiple of this, ms
	Base    int     // added to every sample, ms

	// Uniform returns values in (0, 1]. Nil, or a value outside that
	// range, falls back to math/rand.
	Uniform func() float64
}

// NewITISampler returns a sampler with the task defaults
func NewITISampler(uniform func() float64) *ITISampler {
	return &ITISampler{
		Rate:    0.5,
		Scale:   400,
		Max:     10000,
		Quantum: 1000,
		Base:    1500, // 500 stimulus + 1000 minimum ITI
		Uniform: uniform,
	}
}

// Sample returns the next interval in milliseconds
func (s *ITISampler) Sample() int {
	gap := s.exponential() * s.Scale
	switch {
	case gap > s.Max:
		gap = s.Max
	case gap < 0:
		gap = 0
	default:
		gap = math.Round(gap/s.Quantum) * s.Quantum
	}
	return s.Base + int(gap)
}

func (s *ITISampler) exponential() float64 {
	rate := s.Rate
	if rate <= 0 {
		rate = 1
	}
	return -math.Log(s.uniform()) / rate
}

func (s *ITISampler) uniform() float64 {
	if s.Uniform != nil {
		if u := s.Uniform(); u > 0 && u <= 1 {
			return u
		}
	}
	// rand.Float64 is in [0, 1); flip it so log never sees zero
	return 1 - rand.Float64()
}
