package ports

import "context"

// HandResult summarizes a finished hand.
type HandResult struct {
	RoomID      string         `json:"room_id"`
	MatchID     string         `json:"match_id"`
	TrickWinner string         `json:"trick_winner,omitempty"`
	Points      map[string]int `json:"points"`
	Scores      map[string]int `json:"scores"`
}

// MatchResult summarizes a finished match.
type MatchResult struct {
	RoomID    string         `json:"room_id"`
	MatchID   string         `json:"match_id"`
	Winner    string         `json:"winner,omitempty"`
	Scores    map[string]int `json:"scores"`
	BetAmount int64          `json:"bet_amount"`
}

// ResultPublisher fans finished hands and matches out to other services.
type ResultPublisher interface {
	PublishHandResult(ctx context.Context, r HandResult) error
	PublishMatchResult(ctx context.Context, r MatchResult) error
}

// NopPublisher discards every result.
type NopPublisher struct{}

func (NopPublisher) PublishHandResult(context.Context, HandResult) error   { return nil }
func (NopPublisher) PublishMatchResult(context.Context, MatchResult) error { return nil }
