package app

import "truco/internal/domain"

// PlayerSummary is the public per-seat information.
type PlayerSummary struct {
	UserID      string `json:"user_id"`
	Seat        int    `json:"seat"`
	Score       int    `json:"score"`
	CardsInHand int    `json:"cards_in_hand"`
}

// PlayerView is the state one player is allowed to see. Opponents' cards are
// reduced to counts.
type PlayerView struct {
	RoomID         string                 `json:"room_id"`
	MatchID        string                 `json:"match_id,omitempty"`
	State          domain.MatchState      `json:"state"`
	Phase          domain.HandPhase       `json:"phase,omitempty"`
	Players        []PlayerSummary        `json:"players"`
	Hand           []domain.Card          `json:"hand"`
	Table          []domain.CardPlay      `json:"table"`
	CurrentTurn    string                 `json:"current_turn,omitempty"`
	StartingPlayer string                 `json:"starting_player,omitempty"`
	ScoreLimit     int                    `json:"score_limit"`
	BetAmount      int64                  `json:"bet_amount"`
	EnvidoPoints   int                    `json:"envido_points"`
	TrucoPoints    int                    `json:"truco_points"`
	Envido         *domain.EnvidoSnapshot `json:"envido,omitempty"`
	Truco          *domain.TrucoSnapshot  `json:"truco,omitempty"`
	Winner         string                 `json:"winner,omitempty"`
	LegalActions   []domain.Action        `json:"legal_actions"`
}

// View projects the match for playerID.
func (s *Service) View(m *domain.Match, playerID string) PlayerView {
	snap := m.Snapshot()
	v := PlayerView{
		RoomID:       snap.Match.RoomID,
		MatchID:      snap.Match.ID,
		State:        snap.Match.State,
		ScoreLimit:   snap.Match.ScoreLimit,
		BetAmount:    snap.Match.BetAmount,
		Winner:       snap.Match.Winner,
		Envido:       snap.Envido,
		Truco:        snap.Truco,
		Hand:         []domain.Card{},
		Table:        []domain.CardPlay{},
		LegalActions: m.LegalActions(playerID),
	}
	if v.LegalActions == nil {
		v.LegalActions = []domain.Action{}
	}

	for i, p := range snap.Match.Players {
		ps := PlayerSummary{UserID: p, Seat: i, Score: snap.Match.Scores[p]}
		if snap.Hand != nil {
			ps.CardsInHand = len(snap.Hand.Hands[p])
		}
		v.Players = append(v.Players, ps)
	}

	if h := snap.Hand; h != nil {
		v.Phase = h.Phase
		v.CurrentTurn = h.CurrentTurn
		v.StartingPlayer = h.StartingPlayer
		v.EnvidoPoints = h.EnvidoPoints
		v.TrucoPoints = h.TrucoPoints
		v.Table = append(v.Table, h.Plays...)
		v.Hand = append(v.Hand, h.Hands[playerID]...)
	}
	return v
}
