package task

import (
	"testing"
	"time"

	apperrors "github.com/example/dpx/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 11
	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	return b
}

func TestBlockExample(t *testing.T) {
	b := newTestBuilder(t)

	labels, err := b.Block([]Condition{AX, AX, BX}, 2)
	require.NoError(t, err)
	require.Len(t, labels, 6)
	assert.Equal(t, map[Condition]int{AX: 4, BX: 2}, countLabels(labels))
}

func TestBlockRejectsEmptyTable(t *testing.T) {
	b := newTestBuilder(t)

	_, err := b.Block(nil, 2)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigInvalid))

	_, err = b.Block([]Condition{AX}, 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigInvalid))
}

func TestPairMaterialization(t *testing.T) {
	b := newTestBuilder(t)
	s := b.Stimuli()

	for _, cond := range Conditions {
		trials := b.Pair(cond, StageTest, 0)
		require.Len(t, trials, 3)

		cue, fix, probe := trials[0], trials[1], trials[2]
		assert.Equal(t, KindCue, cue.Kind)
		assert.Equal(t, KindFixation, fix.Kind)
		assert.Equal(t, KindProbe, probe.Kind)

		if cond.CueValid() {
			assert.Equal(t, s.ValidCue, cue.Stimulus)
		} else {
			assert.NotEqual(t, s.ValidCue, cue.Stimulus)
		}
		if cond.ProbeValid() {
			assert.Equal(t, s.ValidProbe, probe.Stimulus)
		} else {
			assert.NotEqual(t, s.ValidProbe, probe.Stimulus)
		}

		assert.Equal(t, cond, cue.Condition)
		assert.Equal(t, cond, probe.Condition)
		assert.Equal(t, []Key{37, 40}, probe.Choices)
		assert.Nil(t, cue.Choices)
		assert.GreaterOrEqual(t, probe.ResponseWindow, 1500*time.Millisecond)
		assert.LessOrEqual(t, probe.ResponseWindow, 11500*time.Millisecond)
	}
}

func TestPairTemplatesNotShared(t *testing.T) {
	b := newTestBuilder(t)
	first := b.Pair(AX, StageTest, 0)
	first[2].Choices[0] = 99

	second := b.Pair(AX, StageTest, 0)
	assert.Equal(t, Key(37), second[2].Choices[0])
}

func TestPracticeTrials(t *testing.T) {
	b := newTestBuilder(t)

	trials, err := b.PracticeTrials()
	require.NoError(t, err)
	require.Len(t, trials, 40)

	var labels []Condition
	for i := 0; i < len(trials); i += 4 {
		assert.Equal(t, KindCue, trials[i].Kind)
		assert.Equal(t, KindFixation, trials[i+1].Kind)
		assert.Equal(t, KindProbe, trials[i+2].Kind)
		assert.Equal(t, KindFeedback, trials[i+3].Kind)
		for j := 0; j < 4; j++ {
			assert.Equal(t, StagePractice, trials[i+j].Stage)
		}
		labels = append(labels, trials[i+2].Condition)
	}
	assert.Equal(t, countLabels(DefaultConfig().PracticeProportions), countLabels(labels))
}

func TestTestBlocks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 4
	cfg.NumBlocks = 2
	b, err := NewBuilder(cfg)
	require.NoError(t, err)

	blocks, err := b.TestBlocks()
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	for n, block := range blocks {
		require.Len(t, block, cfg.BlockLength*3)
		var labels []Condition
		for _, tr := range block {
			assert.Equal(t, n, tr.Block)
			assert.NotEqual(t, KindFeedback, tr.Kind)
			if tr.Kind == KindProbe {
				labels = append(labels, tr.Condition)
			}
		}
		assert.Equal(t, map[Condition]int{AX: 22, BX: 6, AY: 6, BY: 6}, countLabels(labels))
	}
}

func TestStaticTrials(t *testing.T) {
	b := newTestBuilder(t)

	ins := b.Instructions()
	assert.Equal(t, KindInstructions, ins.Kind)
	assert.Equal(t, []string{b.Stimuli().ValidCue, b.Stimuli().ValidProbe}, ins.Attachments)
	assert.Equal(t, 14500*time.Millisecond, ins.ResponseWindow)

	end := b.End()
	assert.True(t, end.ResponseEndsTrial)
	assert.Equal(t, time.Duration(0), end.ResponseWindow)
	assert.True(t, end.Accepts(SpaceKey))

	assert.Equal(t, KindTestStart, b.TestStart(0).Kind)
	assert.Equal(t, KindRest, b.Rest(0).Kind)
}

func TestSameSeedSameSequence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 99

	b1, err := NewBuilder(cfg)
	require.NoError(t, err)
	b2, err := NewBuilder(cfg)
	require.NoError(t, err)

	p1, err := b1.PracticeTrials()
	require.NoError(t, err)
	p2, err := b2.PracticeTrials()
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}
