package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dpx/internal/task"
)

func TestSimulatorPerfectParticipant(t *testing.T) {
	sim := NewSimulator(task.DefaultChoices(), 1, 5)

	res, err := NewRunner("sim", newBuilder(t), sim, nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.PracticeRepeats)
	for _, c := range res.Summary.Conditions {
		assert.Equal(t, c.Trials, c.Correct, string(c.Condition))
		assert.InDelta(t, 450, c.MedianRT, 150)
	}
	assert.Greater(t, res.Summary.DPrimeContext, 2.0)
}

func TestSimulatorChanceParticipant(t *testing.T) {
	sim := NewSimulator(task.DefaultChoices(), 0, 5)

	res, err := NewRunner("sim", newBuilder(t), sim, nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.PracticeRepeats)
	acc, ok := res.Summary.Accuracy.Value()
	require.True(t, ok)
	assert.Equal(t, 0.0, acc)
}

func TestSimulatorOmissions(t *testing.T) {
	sim := NewSimulator(task.DefaultChoices(), 1, 5)
	sim.Omission = 1

	probe := task.Trial{Kind: task.KindProbe, Choices: task.DefaultChoices().Keys(), Condition: task.AX}
	resp, err := sim.Present(context.Background(), probe)
	require.NoError(t, err)
	assert.Equal(t, task.Timeout(), resp)
}

func TestSimulatorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSimulator(task.DefaultChoices(), 1, 1).Present(ctx, task.Trial{})
	assert.ErrorIs(t, err, context.Canceled)
}
