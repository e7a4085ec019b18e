package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/example/dpx/internal/errors"
	"github.com/example/dpx/pkg/models"
)

const participantColumns = "id, telegram_id, chat_id, username, first_name, last_name, is_admin, created_at"

// ParticipantRepository handles database operations for participants
type ParticipantRepository struct{}

// NewParticipantRepository creates a new repository instance
func NewParticipantRepository() *ParticipantRepository {
	return &ParticipantRepository{}
}

// GetByID returns a participant by its row id
func (r *ParticipantRepository) GetByID(ctx context.Context, id int64) (*models.Participant, error) {
	var p models.Participant
	err := DB.GetContext(ctx, &p, DB.Rebind("SELECT "+participantColumns+" FROM participants WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("participant")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &p, nil
}

// GetByTelegramID returns a participant by Telegram user id
func (r *ParticipantRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Participant, error) {
	var p models.Participant
	err := DB.GetContext(ctx, &p, DB.Rebind("SELECT "+participantColumns+" FROM participants WHERE telegram_id = ?"), telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("participant")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant by telegram id: %w", err)
	}
	return &p, nil
}

// Create inserts a new participant and fills in its id
func (r *ParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	query := DB.Rebind(`
		INSERT INTO participants (telegram_id, chat_id, username, first_name, last_name, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := DB.QueryRowxContext(ctx, query,
		p.TelegramID,
		p.ChatID,
		p.Username,
		p.FirstName,
		p.LastName,
		p.IsAdmin,
		p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

// GetOrCreate returns the participant with p.TelegramID, registering p if
// it is new. Profile fields of an existing participant are refreshed. The
// upsert is a single statement so concurrent updates from a new user
// cannot race on the telegram_id constraint.
func (r *ParticipantRepository) GetOrCreate(ctx context.Context, p *models.Participant) (*models.Participant, error) {
	query := DB.Rebind(`
		INSERT INTO participants (telegram_id, chat_id, username, first_name, last_name, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (telegram_id) DO UPDATE SET
			chat_id = excluded.chat_id,
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			is_admin = excluded.is_admin
		RETURNING ` + participantColumns)

	var got models.Participant
	err := DB.GetContext(ctx, &got, query,
		p.TelegramID,
		p.ChatID,
		p.Username,
		p.FirstName,
		p.LastName,
		p.IsAdmin,
		now(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert participant: %w", err)
	}
	return &got, nil
}
