package bot

import (
	"time"

	"github.com/example/dpx/internal/task"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// PollTimeout is the long polling timeout in seconds
	PollTimeout int
	// AdminIDs may export any participant's last session
	AdminIDs []int64
	// ImageDir holds the cue and probe image files
	ImageDir string
	// TimeScale multiplies every trial duration. Values other than 1 are
	// for demos and tests.
	TimeScale float64
	// TargetLabel and OtherLabel caption the two probe buttons
	TargetLabel string
	OtherLabel  string
	// ExportDir receives spreadsheets sent by /export
	ExportDir string
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() BotConfig {
	return BotConfig{
		PollTimeout: 60,
		TimeScale:   1,
		TargetLabel: "Target pair",
		OtherLabel:  "Other",
	}
}

// scale applies TimeScale to a trial duration
func (c BotConfig) scale(d time.Duration) time.Duration {
	if c.TimeScale <= 0 || c.TimeScale == 1 || d <= 0 {
		return d
	}
	return time.Duration(float64(d) * c.TimeScale)
}

// label returns the button caption for a key
func (c BotConfig) label(key task.Key, choices task.Choices) string {
	switch key {
	case choices.Target:
		return c.TargetLabel
	case choices.NonTarget:
		return c.OtherLabel
	case task.SpaceKey:
		return "Finish"
	default:
		return "Continue"
	}
}
