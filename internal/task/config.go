package task

import (
	apperrors "github.com/example/dpx/internal/errors"
)

// Config describes one run of the task
type Config struct {
	// ImageDir is prepended to image names in exported timelines and used
	// by the bot to find image files.
	ImageDir string   `yaml:"image_dir" json:"image_dir"`
	Cues     []string `yaml:"cues" json:"cues"`
	Probes   []string `yaml:"probes" json:"probes"`

	Choices Choices `yaml:"choices" json:"choices"`

	PracticeProportions []Condition    `yaml:"practice_proportions" json:"practice_proportions"`
	PracticeRepeat      int            `yaml:"practice_repeat" json:"practice_repeat"`
	Practice            PracticePolicy `yaml:"practice" json:"practice"`

	TestProportions []Condition `yaml:"test_proportions" json:"test_proportions"`
	BlockLength     int         `yaml:"block_length" json:"block_length"`
	NumBlocks       int         `yaml:"num_blocks" json:"num_blocks"`

	// Seed fixes the random source; zero seeds from the clock
	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultConfig returns the standard DPX configuration
func DefaultConfig() Config {
	return Config{
		ImageDir: "/static/experiments/dot_pattern_expectancy/images",
		Cues:     []string{"cue1.png", "cue2.png", "cue3.png", "cue4.png", "cue5.png", "cue6.png"},
		Probes:   []string{"probe1.png", "probe2.png", "probe3.png", "probe4.png", "probe5.png", "probe6.png"},
		Choices:  DefaultChoices(),
		PracticeProportions: []Condition{
			AX, AX, AX, AX, AY, BX, BY, AY, BX, BY,
		},
		PracticeRepeat: 1,
		Practice:       DefaultPracticePolicy(),
		TestProportions: []Condition{
			AX, AX, AX, AX, AX, AX, AX, AX, AX, AX, AX,
			BX, BX, BX,
			AY, AY, AY,
			BY, BY, BY,
		},
		BlockLength: 40,
		NumBlocks:   1,
	}
}

// TestRepeat is how many times the test table fills one block
func (c Config) TestRepeat() int {
	if len(c.TestProportions) == 0 {
		return 0
	}
	return c.BlockLength / len(c.TestProportions)
}

// Validate checks the configuration and returns a CONFIG_INVALID error
func (c Config) Validate() error {
	if len(c.PracticeProportions) == 0 {
		return apperrors.ConfigInvalid("practice proportion table is empty")
	}
	if len(c.TestProportions) == 0 {
		return apperrors.ConfigInvalid("test proportion table is empty")
	}
	for _, table := range [][]Condition{c.PracticeProportions, c.TestProportions} {
		for _, cond := range table {
			if !cond.Valid() {
				return apperrors.ConfigInvalidf("unknown condition label %q", cond)
			}
		}
	}
	if c.PracticeRepeat < 1 {
		return apperrors.ConfigInvalidf("practice repeat must be at least 1, got %d", c.PracticeRepeat)
	}
	if c.BlockLength < 1 || c.BlockLength%len(c.TestProportions) != 0 {
		return apperrors.ConfigInvalidf("block length %d is not a positive multiple of the test table size %d",
			c.BlockLength, len(c.TestProportions))
	}
	if c.NumBlocks < 1 {
		return apperrors.ConfigInvalidf("number of blocks must be at least 1, got %d", c.NumBlocks)
	}
	if c.Choices.Target == c.Choices.NonTarget {
		return apperrors.ConfigInvalid("target and non-target keys must differ")
	}
	if c.Choices.Target < 0 || c.Choices.NonTarget < 0 {
		return apperrors.ConfigInvalid("response keys must be non-negative")
	}
	if len(c.Cues) < 2 || len(c.Probes) < 2 {
		return apperrors.ConfigInvalid("at least two cue and two probe images are required")
	}
	if err := c.Practice.Validate(); err != nil {
		return apperrors.ConfigInvalid(err.Error())
	}
	return nil
}
