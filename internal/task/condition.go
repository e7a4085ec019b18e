package task

import (
	"fmt"
	"strings"
)

// Condition encodes whether the cue and the probe of a trial pair are the
// valid (target) images or distractors.
type Condition string

const (
	// AX is the target pair: valid cue followed by valid probe
	AX Condition = "AX"
	// AY is a valid cue followed by a distractor probe
	AY Condition = "AY"
	// BX is a distractor cue followed by the valid probe
	BX Condition = "BX"
	// BY is a distractor cue followed by a distractor probe
	BY Condition = "BY"
)

// Conditions lists every condition in display order
var Conditions = []Condition{AX, AY, BX, BY}

// ParseCondition converts a label into a Condition
func ParseCondition(s string) (Condition, error) {
	c := Condition(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown condition label %q", s)
	}
	return c, nil
}

// Valid reports whether c is one of the four known conditions
func (c Condition) Valid() bool {
	switch c {
	case AX, AY, BX, BY:
		return true
	}
	return false
}

// CueValid reports whether the cue is the valid ("A") image
func (c Condition) CueValid() bool { return c == AX || c == AY }

// ProbeValid reports whether the probe is the valid ("X") image
func (c Condition) ProbeValid() bool { return c == AX || c == BX }

func (c Condition) String() string { return string(c) }

// Key is a response key code as reported by the presentation driver
type Key int

// NoResponse is recorded when the response window closes without a key press
const NoResponse Key = -1

// SpaceKey ends the final screen
const SpaceKey Key = 32

// Choices holds the two response keys of a probe trial
type Choices struct {
	Target    Key `yaml:"target" json:"target"`
	NonTarget Key `yaml:"non_target" json:"non_target"`
}

// DefaultChoices are left arrow (index finger) for the target pair and
// down arrow (middle finger) for everything else.
func DefaultChoices() Choices {
	return Choices{Target: 37, NonTarget: 40}
}

// Keys returns the choices in presentation order
func (c Choices) Keys() []Key {
	return []Key{c.Target, c.NonTarget}
}

// Expected returns the correct response for a condition
func (c Choices) Expected(cond Condition) Key {
	if cond == AX {
		return c.Target
	}
	return c.NonTarget
}
