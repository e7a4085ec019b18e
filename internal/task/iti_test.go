package task

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func constUniform(u float64) func() float64 {
	return func() float64 { return u }
}

func TestITISamplerKnownValues(t *testing.T) {
	tests := []struct {
		name string
		u    float64
		want int
	}{
		{"no gap", 1, 1500},
		{"gap rounds to 2000", math.Exp(-2.5), 3500},
		{"gap 1400 rounds down", math.Exp(-1.75), 2500},
		{"gap 1600 rounds up", math.Exp(-2), 3500},
		{"huge gap clamps", 1e-300, 11500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewITISampler(constUniform(tt.u))
			assert.Equal(t, tt.want, s.Sample())
		})
	}
}

func TestITISamplerFallsBackOnBadSource(t *testing.T) {
	bad := []func() float64{
		nil,
		constUniform(0),
		constUniform(-0.3),
		constUniform(1.5),
		constUniform(math.NaN()),
	}
	for i, u := range bad {
		s := NewITISampler(u)
		for n := 0; n < 200; n++ {
			got := s.Sample()
			assert.GreaterOrEqual(t, got, 1500, "source %d", i)
			assert.LessOrEqual(t, got, 11500, "source %d", i)
		}
	}
}

func TestITISamplerQuantized(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	s := NewITISampler(rnd.Float64)
	for n := 0; n < 10000; n++ {
		got := s.Sample()
		if got < 1500 || got > 11500 {
			t.Fatalf("sample %d out of range", got)
		}
		if (got-1500)%1000 != 0 {
			t.Fatalf("sample %d is not base plus a multiple of 1000", got)
		}
	}
}
