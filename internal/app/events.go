package app

import "truco/internal/domain"

// EventKind identifies emitted app events for transport dispatch.
type EventKind string

const (
	EventGameStarted   EventKind = "game_started"
	EventHandDealt     EventKind = "hand_dealt"
	EventCardPlayed    EventKind = "card_played"
	EventBidPlaced     EventKind = "bid_placed"
	EventBidAnswered   EventKind = "bid_answered"
	EventPlayerForfeit EventKind = "player_forfeited"
	EventScoreUpdated  EventKind = "score_updated"
	EventHandEnded     EventKind = "hand_ended"
	EventHandReset     EventKind = "hand_reset"
	EventGameEnded     EventKind = "game_ended"
)

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type GameStartedPayload struct {
	MatchID    string   `json:"match_id"`
	Players    []string `json:"players"`
	ScoreLimit int      `json:"score_limit"`
	BetAmount  int64    `json:"bet_amount"`
}

type HandDealtPayload struct {
	UserID         string        `json:"user_id"`
	Hand           []domain.Card `json:"hand"`
	StartingPlayer string        `json:"starting_player"`
}

type CardPlayedPayload struct {
	UserID         string      `json:"user_id"`
	Card           domain.Card `json:"card"`
	NextTurnUserID string      `json:"next_turn"`
}

type BidPlacedPayload struct {
	UserID         string           `json:"user_id"`
	Bid            domain.EventType `json:"bid"`
	Stake          int              `json:"stake"`
	NextTurnUserID string           `json:"next_turn"`
}

type BidAnsweredPayload struct {
	UserID         string           `json:"user_id"`
	Answer         domain.EventType `json:"answer"`
	NextTurnUserID string           `json:"next_turn"`
}

type PlayerForfeitPayload struct {
	UserID string `json:"user_id"`
}

type ScoreUpdatedPayload struct {
	UserID string             `json:"user_id"`
	Points int                `json:"points"`
	Reason domain.ScoreReason `json:"reason"`
	Scores map[string]int     `json:"scores"`
}

type HandEndedPayload struct {
	MatchID     string         `json:"match_id"`
	TrickWinner string         `json:"trick_winner,omitempty"`
	Points      map[string]int `json:"points"`
	Scores      map[string]int `json:"scores"`
}

type HandResetPayload struct {
	StartingPlayer string `json:"starting_player"`
}

type GameEndedPayload struct {
	MatchID   string         `json:"match_id"`
	Winner    string         `json:"winner,omitempty"`
	Scores    map[string]int `json:"scores"`
	BetAmount int64          `json:"bet_amount"`
}
