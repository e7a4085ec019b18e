package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func accuracyOf(records []Record) Accuracy {
	var a Accuracy
	for _, r := range records {
		a.Add(r)
	}
	return a
}

func probeRecord(correct bool) Record {
	return Record{Kind: KindProbe, Scored: true, Correct: correct}
}

func TestAccuracyCountsProbesOnly(t *testing.T) {
	records := []Record{
		{Kind: KindCue},
		probeRecord(true),
		{Kind: KindFeedback},
		probeRecord(false),
		probeRecord(true),
		{Kind: KindFixation},
	}
	acc := accuracyOf(records)
	assert.Equal(t, Accuracy{Correct: 2, Total: 3}, acc)

	v, ok := acc.Value()
	assert.True(t, ok)
	assert.InDelta(t, 2.0/3.0, v, 1e-9)
}

func TestAccuracyUndefined(t *testing.T) {
	acc := accuracyOf([]Record{{Kind: KindCue}, {Kind: KindFixation}})
	v, ok := acc.Value()
	assert.False(t, ok)
	assert.Equal(t, 0.0, v)
	assert.Equal(t, "undefined", acc.String())
}

func TestPracticePolicyDone(t *testing.T) {
	p := DefaultPracticePolicy()
	tests := []struct {
		name    string
		repeats int
		acc     Accuracy
		done    bool
	}{
		{"passes above threshold", 1, Accuracy{8, 10}, true},
		{"threshold itself does not pass", 1, Accuracy{3, 4}, false},
		{"below threshold repeats", 1, Accuracy{7, 10}, false},
		{"second attempt below", 2, Accuracy{5, 10}, false},
		{"cap reached", 3, Accuracy{0, 10}, true},
		{"undefined never passes", 1, Accuracy{}, false},
		{"undefined stops at cap", 3, Accuracy{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.done, p.Done(tt.repeats, tt.acc))
		})
	}
}

func TestPracticeLoopTerminates(t *testing.T) {
	p := DefaultPracticePolicy()
	for _, acc := range []Accuracy{{0, 10}, {}, {5, 10}} {
		repeats := 0
		for {
			repeats++
			if p.Done(repeats, acc) {
				break
			}
		}
		assert.Equal(t, 3, repeats)
	}
}

func TestPracticePolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPracticePolicy().Validate())
	assert.Error(t, PracticePolicy{Threshold: 1.2, MaxRepeats: 3}.Validate())
	assert.Error(t, PracticePolicy{Threshold: 0.75, MaxRepeats: 0}.Validate())
}
