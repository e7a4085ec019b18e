package task

import (
	"math/rand"
	"time"
)

// NewRand returns a random source. A zero seed uses the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Draw returns a uniformly chosen element of list
func Draw[T any](rnd *rand.Rand, list []T) (T, bool) {
	var zero T
	if len(list) == 0 {
		return zero, false
	}
	return list[rnd.Intn(len(list))], true
}

// Shuffle returns a permuted copy of list
func Shuffle[T any](rnd *rand.Rand, list []T) []T {
	out := make([]T, len(list))
	copy(out, list)
	rnd.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Repeat returns list repeated n times and shuffled. Label frequencies
// are exactly n times those of list.
func Repeat[T any](rnd *rand.Rand, list []T, n int) []T {
	if n <= 0 {
		return nil
	}
	out := make([]T, 0, len(list)*n)
	for i := 0; i < n; i++ {
		out = append(out, list...)
	}
	rnd.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
