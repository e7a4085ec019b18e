package task

import "fmt"

// Accuracy counts correct probe responses within one practice repetition
type Accuracy struct {
	Correct int
	Total   int
}

// Add counts a record if it is a scored probe
func (a *Accuracy) Add(r Record) {
	if r.Kind != KindProbe || !r.Scored {
		return
	}
	a.Total++
	if r.Correct {
		a.Correct++
	}
}

// Value returns the proportion correct. ok is false when no probe was
// scored, which is undefined rather than zero.
func (a Accuracy) Value() (value float64, ok bool) {
	if a.Total == 0 {
		return 0, false
	}
	return float64(a.Correct) / float64(a.Total), true
}

func (a Accuracy) String() string {
	v, ok := a.Value()
	if !ok {
		return "undefined"
	}
	return fmt.Sprintf("%.2f (%d/%d)", v, a.Correct, a.Total)
}

// PracticePolicy decides when the practice loop stops
type PracticePolicy struct {
	Threshold  float64 `yaml:"threshold" json:"threshold"`
	MaxRepeats int     `yaml:"max_repeats" json:"max_repeats"`
}

// DefaultPracticePolicy stops above 75% correct or after three blocks
func DefaultPracticePolicy() PracticePolicy {
	return PracticePolicy{Threshold: 0.75, MaxRepeats: 3}
}

// Done reports whether practice ends after the given number of completed
// repetitions with accuracy acc. Undefined accuracy never passes.
func (p PracticePolicy) Done(repeats int, acc Accuracy) bool {
	if v, ok := acc.Value(); ok && v > p.Threshold {
		return true
	}
	return repeats >= p.MaxRepeats
}

// Validate checks the policy bounds
func (p PracticePolicy) Validate() error {
	if p.Threshold < 0 || p.Threshold >= 1 {
		return fmt.Errorf("practice threshold must be in [0, 1), got %v", p.Threshold)
	}
	if p.MaxRepeats < 1 {
		return fmt.Errorf("practice max repeats must be at least 1, got %d", p.MaxRepeats)
	}
	return nil
}
