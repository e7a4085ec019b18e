package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/dpx/internal/task"
	"github.com/example/dpx/pkg/models"
)

// TrialRepository persists trial records. It is the experiment.Recorder
// used by live runs.
type TrialRepository struct {
	sessions *SessionRepository
}

// NewTrialRepository creates a new repository instance
func NewTrialRepository() *TrialRepository {
	return &TrialRepository{sessions: NewSessionRepository()}
}

// RecordTrial stores rec and bumps the session's updated_at in one transaction
func (r *TrialRepository) RecordTrial(ctx context.Context, sessionID string, rec task.Record) error {
	tr := FromRecord(sessionID, rec)
	tr.CreatedAt = now()

	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO trials (
			session_id, trial_index, trial_id, exp_stage, cond, trial_num, block,
			practice_repeat, stimulus, key_press, rt, scored, correct, correct_response, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = tx.ExecContext(ctx, query,
		tr.SessionID,
		tr.TrialIndex,
		tr.TrialID,
		tr.ExpStage,
		tr.Condition,
		tr.TrialNum,
		tr.Block,
		tr.PracticeRepeat,
		tr.Stimulus,
		tr.KeyPress,
		tr.RT,
		tr.Scored,
		tr.Correct,
		tr.CorrectResponse,
		tr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trial: %w", err)
	}

	update := tx.Rebind("UPDATE sessions SET stage = ?, updated_at = ? WHERE id = ?")
	if _, err := tx.ExecContext(ctx, update, tr.ExpStage, tr.CreatedAt, sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return tx.Commit()
}

// RecordPractice stores a finished practice repetition on the session
func (r *TrialRepository) RecordPractice(ctx context.Context, sessionID string, repeat int, acc task.Accuracy) error {
	return r.sessions.UpdateProgress(ctx, sessionID, repeat, acc)
}

// RecordCompleted marks the session finished once all test trials are stored
func (r *TrialRepository) RecordCompleted(ctx context.Context, sessionID string) error {
	return r.sessions.Finish(ctx, sessionID, models.SessionFinished)
}

// ListBySession returns a session's trials in presentation order
func (r *TrialRepository) ListBySession(ctx context.Context, sessionID string) ([]models.TrialRecord, error) {
	var trials []models.TrialRecord
	query := DB.Rebind(`
		SELECT id, session_id, trial_index, trial_id, exp_stage, cond, trial_num, block,
			practice_repeat, stimulus, key_press, rt, scored, correct, correct_response, created_at
		FROM trials WHERE session_id = ? ORDER BY trial_index
	`)
	if err := DB.SelectContext(ctx, &trials, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list trials: %w", err)
	}
	return trials, nil
}

// Records returns a session's trials converted back to task records
func (r *TrialRepository) Records(ctx context.Context, sessionID string) ([]task.Record, error) {
	trials, err := r.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	records := make([]task.Record, len(trials))
	for i, tr := range trials {
		records[i] = ToRecord(tr)
	}
	return records, nil
}

// FromRecord converts a task record to its stored form
func FromRecord(sessionID string, rec task.Record) models.TrialRecord {
	rt := int64(-1)
	if rec.RT >= 0 {
		rt = rec.RT.Milliseconds()
	}
	return models.TrialRecord{
		SessionID:       sessionID,
		TrialIndex:      rec.Index,
		TrialID:         string(rec.Kind),
		ExpStage:        string(rec.Stage),
		Condition:       string(rec.Condition),
		TrialNum:        rec.TrialNum,
		Block:           rec.Block,
		PracticeRepeat:  rec.PracticeRepeat,
		Stimulus:        rec.Stimulus,
		KeyPress:        int(rec.KeyPress),
		RT:              rt,
		Scored:          rec.Scored,
		Correct:         rec.Correct,
		CorrectResponse: int(rec.CorrectResponse),
	}
}

// ToRecord converts a stored trial back to a task record
func ToRecord(tr models.TrialRecord) task.Record {
	rt := time.Duration(-1)
	if tr.RT >= 0 {
		rt = time.Duration(tr.RT) * time.Millisecond
	}
	return task.Record{
		Index:           tr.TrialIndex,
		Kind:            task.Kind(tr.TrialID),
		Stage:           task.Stage(tr.ExpStage),
		Condition:       task.Condition(tr.Condition),
		TrialNum:        tr.TrialNum,
		Block:           tr.Block,
		PracticeRepeat:  tr.PracticeRepeat,
		Stimulus:        tr.Stimulus,
		KeyPress:        task.Key(tr.KeyPress),
		RT:              rt,
		Scored:          tr.Scored,
		Correct:         tr.Correct,
		CorrectResponse: task.Key(tr.CorrectResponse),
	}
}
