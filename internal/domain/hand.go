package domain

import (
	"fmt"
	"math/rand"
)

// HandPhase is the position of a hand in its lifecycle.
type HandPhase string

const (
	HandIdle          HandPhase = "IDLE"
	HandEnvidoIdle    HandPhase = "ENVIDO_PHASE.IDLE"
	HandEnvidoPlaying HandPhase = "ENVIDO_PHASE.PLAYING"
	HandTrucoIdle     HandPhase = "TRUCO_PHASE.IDLE"
	HandTrucoPlaying  HandPhase = "TRUCO_PHASE.PLAYING"
	HandEnd           HandPhase = "HAND_END"
)

// ScoreReason says which part of the hand produced a score.
type ScoreReason string

const (
	ReasonEnvido  ScoreReason = "envido"
	ReasonTruco   ScoreReason = "truco"
	ReasonForfeit ScoreReason = "forfeit"
)

// ScoreDelta is a score report from a hand to its match.
type ScoreDelta struct {
	PlayerID string      `json:"player_id"`
	Points   int         `json:"points"`
	Reason   ScoreReason `json:"reason"`
}

// HandOutcome is what applying one event to a hand produced.
type HandOutcome struct {
	Scores      []ScoreDelta
	Ended       bool
	TrickWinner string
}

// Hand coordinates one deal: card play, turn order and the envido and truco
// negotiations. A Hand is reused across deals through RESET.
type Hand struct {
	players        []string
	hands          map[string][]Card
	dealt          map[string][]Card
	plays          []CardPlay
	currentTurn    string
	startingPlayer string
	envidoPoints   int
	trucoPoints    int
	scoreLimit     int
	scores         map[string]int
	phase          HandPhase

	envido *Envido
	truco  *Truco
	bidder string

	// last accepted truco level and the only player allowed to raise it
	trucoLevel  TrucoState
	trucoRaiser string

	rng *rand.Rand
}

// NewHand creates an undealt hand. scores is copied and treated as read-only.
func NewHand(players []string, startingPlayer string, scoreLimit int, scores map[string]int, rng *rand.Rand) *Hand {
	h := &Hand{
		players:        append([]string{}, players...),
		startingPlayer: startingPlayer,
		currentTurn:    startingPlayer,
		scoreLimit:     scoreLimit,
		phase:          HandIdle,
		rng:            rng,
	}
	h.setScores(scores)
	return h
}

// Phase returns the current phase.
func (h *Hand) Phase() HandPhase { return h.phase }

// CurrentTurn returns the player expected to act.
func (h *Hand) CurrentTurn() string { return h.currentTurn }

// StartingPlayer returns the mano of the current deal.
func (h *Hand) StartingPlayer() string { return h.startingPlayer }

// Cards returns a copy of the player's unplayed cards.
func (h *Hand) Cards(playerID string) []Card {
	return append([]Card{}, h.hands[playerID]...)
}

func (h *Hand) setScores(scores map[string]int) {
	h.scores = make(map[string]int, len(scores))
	for id, s := range scores {
		h.scores[id] = s
	}
}

func (h *Hand) greaterScore() int {
	best := 0
	for _, s := range h.scores {
		if s > best {
			best = s
		}
	}
	return best
}

func (h *Hand) seat(playerID string) int {
	for i, p := range h.players {
		if p == playerID {
			return i
		}
	}
	return -1
}

func (h *Hand) nextPlayer(playerID string) string {
	i := h.seat(playerID)
	return h.players[(i+1)%len(h.players)]
}

func (h *Hand) advanceTurn() {
	h.currentTurn = h.nextPlayer(h.currentTurn)
}

// inPlay reports whether cards are dealt and the hand has not ended.
func (h *Hand) inPlay() bool {
	switch h.phase {
	case HandEnvidoIdle, HandEnvidoPlaying, HandTrucoIdle, HandTrucoPlaying:
		return true
	}
	return false
}

// responderOK checks an optional actor on negotiation events.
func (h *Hand) responderOK(ev Event) bool {
	return ev.PlayerID == "" || ev.PlayerID == h.currentTurn
}

// shouldCloseEnvido holds when every player has played exactly one card and
// the actor is about to play a second one.
func (h *Hand) shouldCloseEnvido(actor string) bool {
	counts := make(map[string]int, len(h.players))
	for _, p := range h.plays {
		counts[p.PlayerID]++
	}
	for _, p := range h.players {
		if counts[p] != 1 {
			return false
		}
	}
	return counts[actor] == 1
}

// check is the pure guard for every hand event. Apply and legal-action
// probing both go through it.
func (h *Hand) check(ev Event) error {
	illegal := func(reason string) error {
		return fmt.Errorf("%w: %s in %s: %s", ErrIllegalEvent, ev.Type, h.phase, reason)
	}

	switch ev.Type {
	case EventDeal:
		if h.phase != HandIdle {
			return illegal("hand already dealt")
		}
		return nil

	case EventPlayCard:
		if !h.inPlay() {
			return illegal("no cards in play")
		}
		if ev.Card == nil {
			return illegal("missing card")
		}
		if ev.PlayerID != h.currentTurn {
			return illegal("not player's turn")
		}
		if !HasCard(h.hands[ev.PlayerID], *ev.Card) {
			return illegal("card not in player's hand")
		}
		return nil

	case EventCallEnvido, EventRaiseRealEnvido, EventRaiseFaltaEnvido:
		switch h.phase {
		case HandEnvidoIdle:
			if ev.Type == EventCallEnvido && ev.PlayerID == "" {
				return illegal("missing player")
			}
			if !h.responderOK(ev) {
				return illegal("not player's turn")
			}
			return nil
		case HandEnvidoPlaying:
			if !h.envido.Can(ev.Type) {
				return illegal("not a valid raise from " + string(h.envido.State()))
			}
			if !h.responderOK(ev) {
				return illegal("not player's turn")
			}
			return nil
		}
		return illegal("envido is closed")

	case EventAccept, EventDecline:
		if !h.responderOK(ev) {
			return illegal("not player's turn")
		}
		switch h.phase {
		case HandEnvidoPlaying:
			if h.envido.Can(ev.Type) {
				return nil
			}
		case HandTrucoPlaying:
			if h.truco.Can(ev.Type) {
				return nil
			}
		}
		return illegal("no open negotiation")

	case EventCallTruco:
		// An open envido is abandoned by the call; an open truco is not.
		if !h.inPlay() || h.phase == HandTrucoPlaying {
			return illegal("truco cannot be called now")
		}
		if h.trucoLevel != "" {
			return illegal("truco already accepted")
		}
		if ev.PlayerID == "" || ev.PlayerID != h.currentTurn {
			return illegal("not player's turn")
		}
		return nil

	case EventRaiseRetruco, EventRaiseValeCuatro:
		switch h.phase {
		case HandTrucoPlaying:
			if !h.truco.Can(ev.Type) {
				return illegal("not a valid raise from " + string(h.truco.State()))
			}
			if !h.responderOK(ev) {
				return illegal("not player's turn")
			}
			return nil
		case HandTrucoIdle:
			if h.trucoLevel == "" || !NewTrucoFrom(h.trucoLevel).Can(ev.Type) {
				return illegal("nothing to raise")
			}
			if ev.PlayerID == "" || ev.PlayerID != h.trucoRaiser || ev.PlayerID != h.currentTurn {
				return illegal("only the player who accepted may raise on their turn")
			}
			return nil
		}
		return illegal("truco cannot be raised now")

	case EventForfeit:
		if !h.inPlay() {
			return illegal("no cards in play")
		}
		if h.seat(ev.PlayerID) < 0 {
			return illegal("unknown player")
		}
		return nil

	case EventReset:
		if h.phase != HandEnd {
			return illegal("hand has not ended")
		}
		return nil
	}
	return illegal("not a hand event")
}

// Can reports whether Apply would accept the event. It never mutates the hand.
func (h *Hand) Can(ev Event) bool {
	return h.check(ev) == nil
}

// Apply runs one event through the hand. Rejected events return
// ErrIllegalEvent and leave the hand unchanged.
func (h *Hand) Apply(ev Event) (HandOutcome, error) {
	if err := h.check(ev); err != nil {
		return HandOutcome{}, err
	}

	switch ev.Type {
	case EventDeal:
		return h.deal()
	case EventPlayCard:
		return h.playCard(ev.PlayerID, *ev.Card), nil
	case EventCallEnvido, EventRaiseRealEnvido, EventRaiseFaltaEnvido:
		if h.phase == HandEnvidoIdle {
			h.envido = NewEnvido(h.scoreLimit, h.greaterScore())
			h.phase = HandEnvidoPlaying
		}
		return h.applyEnvido(ev.Type)
	case EventAccept, EventDecline:
		if h.phase == HandEnvidoPlaying {
			return h.applyEnvido(ev.Type)
		}
		return h.applyTruco(ev.Type)
	case EventCallTruco:
		h.envido = nil
		h.truco = NewTruco()
		h.phase = HandTrucoPlaying
		return h.applyTruco(ev.Type)
	case EventRaiseRetruco, EventRaiseValeCuatro:
		if h.phase == HandTrucoIdle {
			h.truco = NewTrucoFrom(h.trucoLevel)
			h.phase = HandTrucoPlaying
		}
		return h.applyTruco(ev.Type)
	case EventForfeit:
		return h.forfeit(ev.PlayerID), nil
	case EventReset:
		h.reset()
		return HandOutcome{}, nil
	}
	return HandOutcome{}, fmt.Errorf("%w: %s", ErrIllegalEvent, ev.Type)
}

func (h *Hand) deal() (HandOutcome, error) {
	dealt, err := DealHands(NewShuffledDeck(h.rng), len(h.players), CardsPerPlayer)
	if err != nil {
		return HandOutcome{}, err
	}
	h.hands = make(map[string][]Card, len(h.players))
	h.dealt = make(map[string][]Card, len(h.players))
	for i, p := range h.players {
		h.hands[p] = dealt[i]
		h.dealt[p] = append([]Card{}, dealt[i]...)
	}
	h.plays = nil
	h.currentTurn = h.startingPlayer
	h.envidoPoints = 0
	h.trucoPoints = 1
	h.phase = HandEnvidoIdle
	return HandOutcome{}, nil
}

func (h *Hand) playCard(playerID string, card Card) HandOutcome {
	if (h.phase == HandEnvidoIdle || h.phase == HandEnvidoPlaying) && h.shouldCloseEnvido(playerID) {
		h.envido = nil
		h.phase = HandTrucoIdle
	}

	h.hands[playerID] = RemoveCard(h.hands[playerID], card)
	h.plays = append(h.plays, CardPlay{PlayerID: playerID, Card: card})
	h.advanceTurn()

	if len(h.plays)%len(h.players) != 0 || !TrickDecided(h.plays, h.players) {
		return HandOutcome{}
	}
	winner := HandWinner(h.plays, h.players, h.startingPlayer)
	out := HandOutcome{
		Scores:      []ScoreDelta{{PlayerID: winner, Points: h.trucoPoints, Reason: ReasonTruco}},
		TrickWinner: winner,
	}
	h.end(&out)
	return out
}

func (h *Hand) applyEnvido(t EventType) (HandOutcome, error) {
	actor := h.currentTurn
	res, err := h.envido.Apply(t)
	if err != nil {
		return HandOutcome{}, err
	}
	h.advanceTurn()
	if !res.Done {
		h.bidder = actor
		return HandOutcome{}, nil
	}

	winner := h.bidder
	if res.Accepted {
		winner = h.envidoWinner()
	}
	h.envidoPoints = res.Points
	h.envido = nil
	h.phase = HandTrucoIdle
	return HandOutcome{Scores: []ScoreDelta{{PlayerID: winner, Points: res.Points, Reason: ReasonEnvido}}}, nil
}

func (h *Hand) applyTruco(t EventType) (HandOutcome, error) {
	actor := h.currentTurn
	level := h.truco.State()
	res, err := h.truco.Apply(t)
	if err != nil {
		return HandOutcome{}, err
	}
	h.advanceTurn()
	if !res.Done {
		h.bidder = actor
		return HandOutcome{}, nil
	}

	h.truco = nil
	if res.Accepted {
		h.trucoPoints = res.Points
		h.trucoLevel = level
		h.trucoRaiser = actor
		h.phase = HandTrucoIdle
		return HandOutcome{}, nil
	}

	out := HandOutcome{Scores: []ScoreDelta{{PlayerID: h.bidder, Points: res.Points, Reason: ReasonTruco}}}
	h.end(&out)
	return out, nil
}

// envidoWinner compares envido over the dealt cards. Ties go to the player
// closest to the mano in seat order.
func (h *Hand) envidoWinner() string {
	start := h.seat(h.startingPlayer)
	winner, best := "", -1
	for i := range h.players {
		p := h.players[(start+i)%len(h.players)]
		if v := EnvidoValue(h.dealt[p]); v > best {
			winner, best = p, v
		}
	}
	return winner
}

func (h *Hand) forfeit(playerID string) HandOutcome {
	points := ForfeitPoints(len(h.plays), len(h.players))
	var out HandOutcome
	for _, p := range h.players {
		if p != playerID {
			out.Scores = append(out.Scores, ScoreDelta{PlayerID: p, Points: points, Reason: ReasonForfeit})
		}
	}
	h.end(&out)
	return out
}

// end closes the hand and hands the turn to the next mano so RESET rotates it.
func (h *Hand) end(out *HandOutcome) {
	h.envido = nil
	h.truco = nil
	h.phase = HandEnd
	h.currentTurn = h.nextPlayer(h.startingPlayer)
	out.Ended = true
}

func (h *Hand) reset() {
	h.hands = nil
	h.dealt = nil
	h.plays = nil
	h.startingPlayer = h.currentTurn
	h.envidoPoints = 0
	h.trucoPoints = 0
	h.bidder = ""
	h.trucoLevel = ""
	h.trucoRaiser = ""
	h.phase = HandIdle
}

// Snapshot returns a deep copy of the hand state.
func (h *Hand) Snapshot() HandSnapshot {
	hands := make(map[string][]Card, len(h.hands))
	for id, cards := range h.hands {
		hands[id] = append([]Card{}, cards...)
	}
	scores := make(map[string]int, len(h.scores))
	for id, s := range h.scores {
		scores[id] = s
	}
	return HandSnapshot{
		Phase:          h.phase,
		Players:        append([]string{}, h.players...),
		Hands:          hands,
		Plays:          append([]CardPlay{}, h.plays...),
		CurrentTurn:    h.currentTurn,
		StartingPlayer: h.startingPlayer,
		EnvidoPoints:   h.envidoPoints,
		TrucoPoints:    h.trucoPoints,
		TrucoLevel:     h.trucoLevel,
		ScoreLimit:     h.scoreLimit,
		Scores:         scores,
	}
}
