package task

// Session carries the counters the presentation loop needs between
// trials: the experiment stage, the probe counter and the practice
// repetition. One Session belongs to one participant run.
type Session struct {
	Choices         Choices
	Stage           Stage
	TrialNum        int
	PracticeRepeats int

	index    int
	accuracy Accuracy
	last     *Outcome
}

// NewSession starts in the practice stage
func NewSession(choices Choices) *Session {
	return &Session{
		Choices: choices,
		Stage:   StagePractice,
	}
}

// BeginPractice resets the per-repetition accuracy before a practice block
func (s *Session) BeginPractice() {
	s.accuracy = Accuracy{}
	s.last = nil
}

// EndPractice counts a finished practice repetition and returns its accuracy
func (s *Session) EndPractice() Accuracy {
	s.PracticeRepeats++
	return s.accuracy
}

// LastOutcome returns the most recent probe outcome, if any
func (s *Session) LastOutcome() (Outcome, bool) {
	if s.last == nil {
		return Outcome{}, false
	}
	return *s.last, true
}

// Complete turns a presented trial and its response into a logged record,
// updating the session counters.
func (s *Session) Complete(t Trial, resp Response) Record {
	if t.Kind == KindTestStart {
		s.Stage = StageTest
		s.TrialNum = 0
	}

	rec := Record{
		Index:          s.index,
		Kind:           t.Kind,
		Stage:          s.Stage,
		Condition:      t.Condition,
		TrialNum:       s.TrialNum,
		Block:          t.Block,
		PracticeRepeat: s.PracticeRepeats,
		Stimulus:       t.Stimulus,
		KeyPress:       resp.Key,
		RT:             resp.RT,
	}
	s.index++

	switch t.Kind {
	case KindProbe:
		o := Score(t.Condition, resp.Key, s.Choices)
		rec.Scored = true
		rec.Correct = o.Correct
		rec.CorrectResponse = o.CorrectResponse
		s.last = &o
		if s.Stage == StagePractice {
			s.accuracy.Add(rec)
		}
		s.TrialNum++
	case KindFeedback:
		// feedback belongs to the probe it follows
		rec.TrialNum = s.TrialNum - 1
	}
	return rec
}
