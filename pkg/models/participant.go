package models

import "time"

// Participant is a Telegram user registered for the task
type Participant struct {
	ID         int64     `json:"id" db:"id"`
	TelegramID int64     `json:"telegram_id" db:"telegram_id"`
	ChatID     int64     `json:"chat_id" db:"chat_id"`
	Username   string    `json:"username" db:"username"`
	FirstName  string    `json:"first_name" db:"first_name"`
	LastName   string    `json:"last_name" db:"last_name"`
	IsAdmin    bool      `json:"is_admin" db:"is_admin"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DisplayName returns the best available name for messages
func (p Participant) DisplayName() string {
	switch {
	case p.FirstName != "":
		return p.FirstName
	case p.Username != "":
		return "@" + p.Username
	default:
		return "participant"
	}
}
