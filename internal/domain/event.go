package domain

import "time"

// Account lifecycle event types published to the event topic.
const (
	EventAccountRegistered    = "account.registered"
	EventAccountEmailVerified = "account.email_verified"
	EventAccountPasswordReset = "account.password_reset"
)

type AccountEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}
