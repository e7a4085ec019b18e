package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	choices := DefaultChoices()
	tests := []struct {
		cond     Condition
		key      Key
		correct  bool
		expected Key
		feedback string
	}{
		{AX, 37, true, 37, FeedbackCorrect},
		{AX, 40, false, 37, FeedbackIncorrect},
		{AX, NoResponse, false, 37, FeedbackTooSlow},
		{AY, 40, true, 40, FeedbackCorrect},
		{AY, 37, false, 40, FeedbackIncorrect},
		{BX, 40, true, 40, FeedbackCorrect},
		{BX, 37, false, 40, FeedbackIncorrect},
		{BY, 40, true, 40, FeedbackCorrect},
		{BY, NoResponse, false, 40, FeedbackTooSlow},
		{BY, 12, false, 40, FeedbackIncorrect},
	}
	for _, tt := range tests {
		t.Run(string(tt.cond), func(t *testing.T) {
			o := Score(tt.cond, tt.key, choices)
			assert.Equal(t, tt.correct, o.Correct)
			assert.Equal(t, tt.expected, o.CorrectResponse)
			assert.Equal(t, tt.feedback, o.Feedback)
			assert.Equal(t, tt.cond, o.Condition)
		})
	}
}

func TestScoreCustomChoices(t *testing.T) {
	choices := Choices{Target: 89, NonTarget: 71}
	assert.True(t, Score(AX, 89, choices).Correct)
	assert.True(t, Score(BX, 71, choices).Correct)
	assert.False(t, Score(BX, 89, choices).Correct)
}

func TestParseCondition(t *testing.T) {
	c, err := ParseCondition(" ax ")
	assert.NoError(t, err)
	assert.Equal(t, AX, c)

	_, err = ParseCondition("AZ")
	assert.Error(t, err)
}
