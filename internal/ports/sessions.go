package ports

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned when no session is recorded for a user.
var ErrSessionNotFound = errors.New("session not found")

// Session records which room a player is seated in so they can rejoin it.
type Session struct {
	UserID    string `json:"user_id"`
	RoomID    string `json:"room_id"`
	MatchID   string `json:"match_id"`
	Seat      int    `json:"seat"`
	UpdatedAt int64  `json:"updated_at"`
}

// SessionStore persists player-to-room bindings.
type SessionStore interface {
	// Save records or replaces the user's session.
	Save(ctx context.Context, s Session) error

	// Load returns the user's session or ErrSessionNotFound.
	Load(ctx context.Context, userID string) (Session, error)

	// Delete removes the user's session. Deleting a missing session is not an error.
	Delete(ctx context.Context, userID string) error
}
