package task

import (
	"fmt"
	"math/rand"
	"time"

	apperrors "github.com/example/dpx/internal/errors"
)

// Builder materializes condition labels into concrete trials
type Builder struct {
	cfg     Config
	rnd     *rand.Rand
	stimuli *StimulusSet
	iti     *ITISampler
}

// NewBuilder validates cfg, reserves the valid stimulus pair and prepares
// the ITI sampler. All randomness comes from one source seeded by cfg.Seed.
func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rnd := NewRand(cfg.Seed)
	stimuli, err := NewStimulusSet(cfg.ImageDir, cfg.Cues, cfg.Probes, rnd)
	if err != nil {
		return nil, apperrors.ConfigInvalid(err.Error())
	}
	return &Builder{
		cfg:     cfg,
		rnd:     rnd,
		stimuli: stimuli,
		iti:     NewITISampler(rnd.Float64),
	}, nil
}

// Config returns the builder configuration
func (b *Builder) Config() Config { return b.cfg }

// Stimuli returns the stimulus set
func (b *Builder) Stimuli() *StimulusSet { return b.stimuli }

// Block expands a proportion table repeat times and shuffles it
func (b *Builder) Block(props []Condition, repeat int) ([]Condition, error) {
	if len(props) == 0 {
		return nil, apperrors.ConfigInvalid("proportion table is empty")
	}
	if repeat < 1 {
		return nil, apperrors.ConfigInvalidf("repeat count must be at least 1, got %d", repeat)
	}
	return Repeat(b.rnd, props, repeat), nil
}

// Pair materializes one condition label into cue, fixation and probe
// trials, plus a feedback placeholder during practice.
func (b *Builder) Pair(cond Condition, stage Stage, block int) []Trial {
	cue := cueTemplate
	if cond.CueValid() {
		cue.Stimulus = b.stimuli.ValidCue
	} else {
		cue.Stimulus = b.stimuli.InvalidCue(b.rnd)
	}
	cue.Condition = cond
	cue.Stage = stage
	cue.Block = block

	fixation := fixationTemplate
	fixation.Condition = cond
	fixation.Stage = stage
	fixation.Block = block

	probe := probeTemplate
	if cond.ProbeValid() {
		probe.Stimulus = b.stimuli.ValidProbe
	} else {
		probe.Stimulus = b.stimuli.InvalidProbe(b.rnd)
	}
	probe.Choices = b.cfg.Choices.Keys()
	probe.ResponseWindow = time.Duration(b.iti.Sample()) * time.Millisecond
	probe.Condition = cond
	probe.Stage = stage
	probe.Block = block

	trials := []Trial{cue, fixation, probe}
	if stage == StagePractice {
		feedback := feedbackTemplate
		feedback.Condition = cond
		feedback.Block = block
		trials = append(trials, feedback)
	}
	return trials
}

// PracticeTrials builds one freshly shuffled practice block
func (b *Builder) PracticeTrials() ([]Trial, error) {
	labels, err := b.Block(b.cfg.PracticeProportions, b.cfg.PracticeRepeat)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build practice block")
	}
	trials := make([]Trial, 0, len(labels)*4)
	for _, cond := range labels {
		trials = append(trials, b.Pair(cond, StagePractice, 0)...)
	}
	return trials, nil
}

// TestBlocks builds every test block. Each block holds BlockLength labels.
func (b *Builder) TestBlocks() ([][]Trial, error) {
	blocks := make([][]Trial, 0, b.cfg.NumBlocks)
	for n := 0; n < b.cfg.NumBlocks; n++ {
		labels, err := b.Block(b.cfg.TestProportions, b.cfg.TestRepeat())
		if err != nil {
			return nil, apperrors.Wrapf(err, "failed to build test block %d", n)
		}
		trials := make([]Trial, 0, len(labels)*3)
		for _, cond := range labels {
			trials = append(trials, b.Pair(cond, StageTest, n)...)
		}
		blocks = append(blocks, trials)
	}
	return blocks, nil
}

// Instructions returns the opening screen showing the target pair
func (b *Builder) Instructions() Trial {
	t := instructionsTemplate
	t.Stimulus = fmt.Sprintf("Target Pair (press index finger): cue %s ...followed by... probe %s. Otherwise press middle finger.",
		b.stimuli.ValidCue, b.stimuli.ValidProbe)
	t.Attachments = []string{b.stimuli.ValidCue, b.stimuli.ValidProbe}
	t.Stage = StagePractice
	return t
}

// TestStart returns the "get ready" screen before a test block
func (b *Builder) TestStart(block int) Trial {
	t := testStartTemplate
	t.Block = block
	return t
}

// Rest returns the break screen shown between test blocks
func (b *Builder) Rest(block int) Trial {
	t := restTemplate
	t.Block = block
	return t
}

// End returns the final screen
func (b *Builder) End() Trial {
	t := endTemplate
	t.Choices = cloneKeys(endTemplate.Choices)
	t.Stage = StageTest
	return t
}
