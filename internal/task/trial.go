package task

import (
	"time"
)

// Kind identifies what a trial shows. It is logged as trial_id.
type Kind string

const (
	KindInstructions Kind = "instructions"
	KindCue          Kind = "cue"
	KindFixation     Kind = "fixation"
	KindProbe        Kind = "probe"
	KindFeedback     Kind = "feedback"
	KindTestStart    Kind = "test_start_block"
	KindRest         Kind = "rest_block"
	KindEnd          Kind = "end"
)

// Stage is the experiment phase a trial belongs to
type Stage string

const (
	StagePractice Stage = "practice"
	StageTest     Stage = "test"
)

// Trial describes one screen. Trials are values: templates below are
// copied and overridden per instance, never mutated in place.
type Trial struct {
	Kind     Kind
	Stimulus string // image name when Image is set, text otherwise
	Image    bool
	// Attachments are images shown alongside a text stimulus
	Attachments []string

	// Choices are the accepted keys; nil accepts no response
	Choices           []Key
	ResponseEndsTrial bool

	// StimDuration is how long the stimulus stays on screen; zero keeps it
	// up for the whole response window.
	StimDuration time.Duration
	// ResponseWindow is the trial length; zero waits for a response.
	ResponseWindow time.Duration
	PostTrialGap   time.Duration

	Condition Condition
	Stage     Stage
	Block     int
}

// Responds reports whether the trial collects a key press
func (t Trial) Responds() bool { return len(t.Choices) > 0 }

// Accepts reports whether key is one of the trial's choices
func (t Trial) Accepts(key Key) bool {
	for _, c := range t.Choices {
		if c == key {
			return true
		}
	}
	return false
}

// Response is what the presentation driver observed for a trial
type Response struct {
	Key Key
	RT  time.Duration
}

// Timeout is the response recorded when nothing was pressed
func Timeout() Response {
	return Response{Key: NoResponse, RT: -1}
}

// Record is a logged trial with its derived fields
type Record struct {
	Index          int           `json:"trial_index"`
	Kind           Kind          `json:"trial_id"`
	Stage          Stage         `json:"exp_stage"`
	Condition      Condition     `json:"condition,omitempty"`
	TrialNum       int           `json:"trial_num"`
	Block          int           `json:"block"`
	PracticeRepeat int           `json:"practice_repeat"`
	Stimulus       string        `json:"stimulus"`
	KeyPress       Key           `json:"key_press"`
	RT             time.Duration `json:"rt"`

	// Scored is set on probe records only
	Scored          bool `json:"scored"`
	Correct         bool `json:"correct"`
	CorrectResponse Key  `json:"correct_response"`
}

// Trial templates. Timings follow the fMRI practice version of the task.
var (
	instructionsTemplate = Trial{
		Kind:           KindInstructions,
		StimDuration:   14500 * time.Millisecond,
		ResponseWindow: 14500 * time.Millisecond,
		PostTrialGap:   500 * time.Millisecond,
	}

	testStartTemplate = Trial{
		Kind:           KindTestStart,
		Stimulus:       "Get ready!",
		StimDuration:   1500 * time.Millisecond,
		ResponseWindow: 1500 * time.Millisecond,
		PostTrialGap:   500 * time.Millisecond,
		Stage:          StageTest,
	}

	restTemplate = Trial{
		Kind:           KindRest,
		Stimulus:       "Take a break!\nNext run will start in a moment",
		ResponseWindow: 7500 * time.Millisecond,
		PostTrialGap:   1000 * time.Millisecond,
		Stage:          StageTest,
	}

	endTemplate = Trial{
		Kind:              KindEnd,
		Stimulus:          "Fin",
		Choices:           []Key{SpaceKey},
		ResponseEndsTrial: true,
	}

	cueTemplate = Trial{
		Kind:           KindCue,
		Image:          true,
		StimDuration:   500 * time.Millisecond,
		ResponseWindow: 500 * time.Millisecond,
	}

	fixationTemplate = Trial{
		Kind:           KindFixation,
		Stimulus:       "+",
		StimDuration:   2000 * time.Millisecond,
		ResponseWindow: 2000 * time.Millisecond,
	}

	probeTemplate = Trial{
		Kind:         KindProbe,
		Image:        true,
		StimDuration: 500 * time.Millisecond,
	}

	feedbackTemplate = Trial{
		Kind:           KindFeedback,
		StimDuration:   500 * time.Millisecond,
		ResponseWindow: 500 * time.Millisecond,
		Stage:          StagePractice,
	}
)

// WithFeedback fills a feedback placeholder with the text for o
func (t Trial) WithFeedback(o Outcome) Trial {
	t.Stimulus = o.Feedback
	return t
}

func cloneKeys(keys []Key) []Key {
	if keys == nil {
		return nil
	}
	return append([]Key(nil), keys...)
}
