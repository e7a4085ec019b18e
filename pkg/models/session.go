package models

import (
	"database/sql"
	"time"
)

// Session statuses
const (
	SessionRunning   = "running"
	SessionFinished  = "finished"
	SessionAbandoned = "abandoned"
	SessionFailed    = "failed"
)

// Session is one run of the task by a participant
type Session struct {
	ID              string       `json:"id" db:"id"`
	ParticipantID   int64        `json:"participant_id" db:"participant_id"`
	Status          string       `json:"status" db:"status"`
	Stage           string       `json:"stage" db:"stage"`
	Seed            int64        `json:"seed" db:"seed"`
	PracticeRepeats int          `json:"practice_repeats" db:"practice_repeats"`
	PracticeCorrect int          `json:"practice_correct" db:"practice_correct"`
	PracticeTotal   int          `json:"practice_total" db:"practice_total"`
	StartedAt       time.Time    `json:"started_at" db:"started_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
	FinishedAt      sql.NullTime `json:"finished_at" db:"finished_at"`
}
