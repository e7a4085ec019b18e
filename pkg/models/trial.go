package models

import "time"

// TrialRecord is a persisted trial. RT is stored in milliseconds, -1 when
// nothing was pressed.
type TrialRecord struct {
	ID              int64     `json:"id" db:"id"`
	SessionID       string    `json:"session_id" db:"session_id"`
	TrialIndex      int       `json:"trial_index" db:"trial_index"`
	TrialID         string    `json:"trial_id" db:"trial_id"`
	ExpStage        string    `json:"exp_stage" db:"exp_stage"`
	Condition       string    `json:"condition" db:"cond"`
	TrialNum        int       `json:"trial_num" db:"trial_num"`
	Block           int       `json:"block" db:"block"`
	PracticeRepeat  int       `json:"practice_repeat" db:"practice_repeat"`
	Stimulus        string    `json:"stimulus" db:"stimulus"`
	KeyPress        int       `json:"key_press" db:"key_press"`
	RT              int64     `json:"rt" db:"rt"`
	Scored          bool      `json:"scored" db:"scored"`
	Correct         bool      `json:"correct" db:"correct"`
	CorrectResponse int       `json:"correct_response" db:"correct_response"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
