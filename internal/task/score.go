package task

// Feedback texts shown after practice probes
const (
	FeedbackCorrect   = "Correct!"
	FeedbackTooSlow   = "Respond Faster!"
	FeedbackIncorrect = "Incorrect"
)

// Outcome is the scoring result of one probe response
type Outcome struct {
	Condition       Condition
	Key             Key
	CorrectResponse Key
	Correct         bool
	Feedback        string
}

// Score compares a probe response with the expected key for cond. The
// target key is correct only for AX; every other condition expects the
// non-target key. A missing response is always incorrect.
func Score(cond Condition, key Key, choices Choices) Outcome {
	expected := choices.Expected(cond)
	o := Outcome{
		Condition:       cond,
		Key:             key,
		CorrectResponse: expected,
	}
	switch {
	case key == NoResponse:
		o.Feedback = FeedbackTooSlow
	case key == expected:
		o.Correct = true
		o.Feedback = FeedbackCorrect
	default:
		o.Feedback = FeedbackIncorrect
	}
	return o
}
