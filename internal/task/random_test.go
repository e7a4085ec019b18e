package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countLabels(labels []Condition) map[Condition]int {
	counts := make(map[Condition]int)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}

func TestRepeatPreservesFrequencies(t *testing.T) {
	rnd := NewRand(7)
	tables := [][]Condition{
		{AX, AX, BX},
		{AX},
		DefaultConfig().PracticeProportions,
		DefaultConfig().TestProportions,
	}
	for _, table := range tables {
		for repeat := 1; repeat <= 4; repeat++ {
			got := Repeat(rnd, table, repeat)
			require.Len(t, got, len(table)*repeat)

			want := countLabels(table)
			for k := range want {
				want[k] *= repeat
			}
			assert.Equal(t, want, countLabels(got))
		}
	}
}

func TestRepeatNonPositive(t *testing.T) {
	assert.Nil(t, Repeat(NewRand(1), []Condition{AX}, 0))
}

func TestShuffleReturnsCopy(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e"}
	orig := append([]string(nil), in...)

	out := Shuffle(NewRand(3), in)

	assert.Equal(t, orig, in, "input must not be modified")
	assert.ElementsMatch(t, orig, out)
}

func TestDraw(t *testing.T) {
	_, ok := Draw[string](NewRand(1), nil)
	assert.False(t, ok)

	list := []string{"x", "y"}
	for i := 0; i < 50; i++ {
		v, ok := Draw(NewRand(int64(i+1)), list)
		require.True(t, ok)
		assert.Contains(t, list, v)
	}
}
