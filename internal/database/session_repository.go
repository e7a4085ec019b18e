package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/example/dpx/internal/errors"
	"github.com/example/dpx/internal/task"
	"github.com/example/dpx/pkg/models"
)

const sessionColumns = `id, participant_id, status, stage, seed, practice_repeats, practice_correct,
	practice_total, started_at, updated_at, finished_at`

// SessionRepository handles database operations for task sessions
type SessionRepository struct{}

// NewSessionRepository creates a new repository instance
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

// Create starts a running session for a participant
func (r *SessionRepository) Create(ctx context.Context, participantID, seed int64) (*models.Session, error) {
	ts := now()
	s := &models.Session{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Status:        models.SessionRunning,
		Stage:         string(task.StagePractice),
		Seed:          seed,
		StartedAt:     ts,
		UpdatedAt:     ts,
	}
	query := DB.Rebind(`
		INSERT INTO sessions (id, participant_id, status, stage, seed, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := DB.ExecContext(ctx, query, s.ID, s.ParticipantID, s.Status, s.Stage, s.Seed, s.StartedAt, s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// GetByID returns a session by id
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := DB.GetContext(ctx, &s, DB.Rebind("SELECT "+sessionColumns+" FROM sessions WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("session")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// UpdateProgress stores the result of a finished practice repetition
func (r *SessionRepository) UpdateProgress(ctx context.Context, id string, repeats int, acc task.Accuracy) error {
	query := DB.Rebind(`
		UPDATE sessions
		SET practice_repeats = ?, practice_correct = ?, practice_total = ?, updated_at = ?
		WHERE id = ?
	`)
	res, err := DB.ExecContext(ctx, query, repeats, acc.Correct, acc.Total, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update session progress: %w", err)
	}
	return requireRow(res, "session")
}

// Finish closes a running session with the given status. Sessions that
// are no longer running are left untouched.
func (r *SessionRepository) Finish(ctx context.Context, id, status string) error {
	ts := now()
	query := DB.Rebind(`
		UPDATE sessions
		SET status = ?, updated_at = ?, finished_at = ?
		WHERE id = ? AND status = ?
	`)
	res, err := DB.ExecContext(ctx, query, status, ts, ts, id, models.SessionRunning)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	return requireRow(res, "running session")
}

// ListByParticipant returns a participant's sessions, newest first
func (r *SessionRepository) ListByParticipant(ctx context.Context, participantID int64, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	var sessions []models.Session
	query := DB.Rebind("SELECT " + sessionColumns + " FROM sessions WHERE participant_id = ? ORDER BY started_at DESC LIMIT ?")
	if err := DB.SelectContext(ctx, &sessions, query, participantID, limit); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// LastFinished returns the participant's most recent finished session
func (r *SessionRepository) LastFinished(ctx context.Context, participantID int64) (*models.Session, error) {
	var s models.Session
	query := DB.Rebind("SELECT " + sessionColumns + " FROM sessions WHERE participant_id = ? AND status = ? ORDER BY finished_at DESC LIMIT 1")
	err := DB.GetContext(ctx, &s, query, participantID, models.SessionFinished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("finished session")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last session: %w", err)
	}
	return &s, nil
}

// ExpireStale marks running sessions not updated since cutoff as abandoned
// and returns them
func (r *SessionRepository) ExpireStale(ctx context.Context, cutoff time.Time) ([]models.Session, error) {
	var running []models.Session
	query := DB.Rebind("SELECT " + sessionColumns + " FROM sessions WHERE status = ?")
	if err := DB.SelectContext(ctx, &running, query, models.SessionRunning); err != nil {
		return nil, fmt.Errorf("failed to list running sessions: %w", err)
	}

	var expired []models.Session
	for _, s := range running {
		if !s.UpdatedAt.Before(cutoff) {
			continue
		}
		err := r.Finish(ctx, s.ID, models.SessionAbandoned)
		if apperrors.Is(err, apperrors.CodeNotFound) {
			// finished concurrently
			continue
		}
		if err != nil {
			return expired, err
		}
		s.Status = models.SessionAbandoned
		expired = append(expired, s)
	}
	return expired, nil
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound(what)
	}
	return nil
}
