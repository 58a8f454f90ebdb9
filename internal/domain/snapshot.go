package domain

// MatchSnapshot is a read-only copy of match state.
type MatchSnapshot struct {
	RoomID     string         `json:"room_id"`
	ID         string         `json:"id,omitempty"`
	State      MatchState     `json:"state"`
	Players    []string       `json:"players"`
	ScoreLimit int            `json:"score_limit"`
	Scores     map[string]int `json:"scores"`
	BetAmount  int64          `json:"bet_amount"`
	Winner     string         `json:"winner,omitempty"`
}

// HandSnapshot is a read-only copy of hand state, including every player's cards.
type HandSnapshot struct {
	Phase          HandPhase         `json:"phase"`
	Players        []string          `json:"players"`
	Hands          map[string][]Card `json:"hands"`
	Plays          []CardPlay        `json:"plays"`
	CurrentTurn    string            `json:"current_turn"`
	StartingPlayer string            `json:"starting_player"`
	EnvidoPoints   int               `json:"envido_points"`
	TrucoPoints    int               `json:"truco_points"`
	TrucoLevel     TrucoState        `json:"truco_level,omitempty"`
	ScoreLimit     int               `json:"score_limit"`
	Scores         map[string]int    `json:"scores"`
}

// EnvidoSnapshot is a read-only copy of an open envido negotiation.
type EnvidoSnapshot struct {
	State        EnvidoState `json:"state"`
	Stake        int         `json:"stake"`
	PrevStake    int         `json:"prev_stake"`
	ScoreLimit   int         `json:"score_limit"`
	GreaterScore int         `json:"greater_score"`
}

// TrucoSnapshot is a read-only copy of an open truco negotiation.
type TrucoSnapshot struct {
	State TrucoState `json:"state"`
	Stake int        `json:"stake"`
}

// Snapshot is the full state tree. Hand, Envido and Truco are nil when absent.
type Snapshot struct {
	Match  MatchSnapshot   `json:"match"`
	Hand   *HandSnapshot   `json:"hand,omitempty"`
	Envido *EnvidoSnapshot `json:"envido,omitempty"`
	Truco  *TrucoSnapshot  `json:"truco,omitempty"`
}

// Snapshot returns a deep copy of the whole state tree.
func (m *Match) Snapshot() Snapshot {
	scores := make(map[string]int, len(m.scores))
	for id, s := range m.scores {
		scores[id] = s
	}
	snap := Snapshot{
		Match: MatchSnapshot{
			RoomID:     m.roomID,
			ID:         m.id,
			State:      m.state,
			Players:    append([]string{}, m.players...),
			ScoreLimit: m.scoreLimit,
			Scores:     scores,
			BetAmount:  m.betAmount,
			Winner:     m.winner,
		},
	}
	if m.hand == nil {
		return snap
	}
	hs := m.hand.Snapshot()
	snap.Hand = &hs
	if m.hand.envido != nil {
		es := m.hand.envido.Snapshot()
		snap.Envido = &es
	}
	if m.hand.truco != nil {
		ts := m.hand.truco.Snapshot()
		snap.Truco = &ts
	}
	return snap
}

// Action is one move a player may currently make.
type Action struct {
	Type EventType `json:"type"`
	Card *Card     `json:"card,omitempty"`
}

// Event builds the event that performs the action for playerID.
func (a Action) Event(playerID string) Event {
	return Event{Type: a.Type, PlayerID: playerID, Card: a.Card}
}

// playerEvents are the events a seated player can send; DEAL, RESET and the
// match lifecycle events belong to the orchestration layer.
var playerEvents = []EventType{
	EventCallEnvido,
	EventRaiseRealEnvido,
	EventRaiseFaltaEnvido,
	EventAccept,
	EventDecline,
	EventCallTruco,
	EventRaiseRetruco,
	EventRaiseValeCuatro,
	EventForfeit,
}

// LegalActions probes the guards for every move playerID could make now.
func (m *Match) LegalActions(playerID string) []Action {
	if m.hand == nil {
		return nil
	}

	var actions []Action
	for _, c := range m.hand.hands[playerID] {
		card := c
		if m.Can(Event{Type: EventPlayCard, PlayerID: playerID, Card: &card}) {
			actions = append(actions, Action{Type: EventPlayCard, Card: &card})
		}
	}
	for _, t := range playerEvents {
		if m.Can(Event{Type: t, PlayerID: playerID}) {
			actions = append(actions, Action{Type: t})
		}
	}
	return actions
}
