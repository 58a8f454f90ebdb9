package domain

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// MatchState is the lifecycle state of a match.
type MatchState string

const (
	MatchIdle       MatchState = "IDLE"
	MatchInProgress MatchState = "IN_PROGRESS"
	MatchGameEnd    MatchState = "GAME_END"
)

const (
	MinPlayers        = 2
	MaxPlayers        = 4
	DefaultScoreLimit = 30
)

// MatchConfig holds the creation values for a match. START_GAME may override
// Players and ScoreLimit.
type MatchConfig struct {
	RoomID     string
	Players    []string
	ScoreLimit int
	BetAmount  int64
	// Rand drives every deal. Nil seeds a generator from crypto/rand.
	Rand *rand.Rand
}

// MatchOutcome reports what one accepted event changed.
type MatchOutcome struct {
	Scores      []ScoreDelta
	HandEnded   bool
	TrickWinner string
	GameEnded   bool
	Winner      string
}

// Match runs successive hands and keeps cumulative scores. It is not safe for
// concurrent use; callers serialize events per match.
type Match struct {
	roomID     string
	players    []string
	scoreLimit int
	scores     map[string]int
	id         string
	betAmount  int64
	state      MatchState
	winner     string

	hand *Hand
	rng  *rand.Rand
}

// NewMatch creates an idle match.
func NewMatch(cfg MatchConfig) *Match {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(newSeed()))
	}
	return &Match{
		roomID:     cfg.RoomID,
		players:    append([]string{}, cfg.Players...),
		scoreLimit: cfg.ScoreLimit,
		scores:     make(map[string]int),
		betAmount:  cfg.BetAmount,
		state:      MatchIdle,
		rng:        rng,
	}
}

func newSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// State returns the lifecycle state.
func (m *Match) State() MatchState { return m.state }

// ID returns the running match id, empty outside IN_PROGRESS.
func (m *Match) ID() string { return m.id }

// RoomID returns the room hosting the match.
func (m *Match) RoomID() string { return m.roomID }

// Players returns the seat order.
func (m *Match) Players() []string { return append([]string{}, m.players...) }

// Winner returns the player who reached the score limit, if any.
func (m *Match) Winner() string { return m.winner }

// BetAmount returns the stake tracked for the room.
func (m *Match) BetAmount() int64 { return m.betAmount }

// Hand returns the active hand or nil.
func (m *Match) Hand() *Hand { return m.hand }

// Score returns a player's cumulative score.
func (m *Match) Score(playerID string) int { return m.scores[playerID] }

func (m *Match) startConfig(ev Event) ([]string, int) {
	players, limit := m.players, m.scoreLimit
	if len(ev.Players) > 0 {
		players = ev.Players
	}
	if ev.ScoreLimit != 0 {
		limit = ev.ScoreLimit
	}
	return players, limit
}

func validateStart(players []string, scoreLimit int) error {
	if len(players) < MinPlayers || len(players) > MaxPlayers {
		return fmt.Errorf("%w: %d players, want %d-%d", ErrInvalidMatchConfig, len(players), MinPlayers, MaxPlayers)
	}
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if p == "" {
			return fmt.Errorf("%w: empty player id", ErrInvalidMatchConfig)
		}
		if seen[p] {
			return fmt.Errorf("%w: duplicate player %q", ErrInvalidMatchConfig, p)
		}
		seen[p] = true
	}
	if scoreLimit <= 0 {
		return fmt.Errorf("%w: score limit %d", ErrInvalidMatchConfig, scoreLimit)
	}
	return nil
}

// check is the pure guard shared by Apply, Can and LegalActions.
func (m *Match) check(ev Event) error {
	switch ev.Type {
	case EventStartGame:
		if m.id != "" {
			return fmt.Errorf("%w: match %s already running", ErrInvalidMatchConfig, m.id)
		}
		return validateStart(m.startConfig(ev))
	case EventEndGame:
		if m.state != MatchInProgress {
			return fmt.Errorf("%w: END_GAME in %s", ErrIllegalEvent, m.state)
		}
		return nil
	}
	if m.state != MatchInProgress || m.hand == nil {
		return fmt.Errorf("%w: %s in %s", ErrIllegalEvent, ev.Type, m.state)
	}
	return m.hand.check(ev)
}

// Can reports whether Apply would accept the event, without side effects.
func (m *Match) Can(ev Event) bool {
	return m.check(ev) == nil
}

// Apply runs one event to completion. Rejected events change nothing.
func (m *Match) Apply(ev Event) (MatchOutcome, error) {
	if err := m.check(ev); err != nil {
		return MatchOutcome{}, err
	}

	switch ev.Type {
	case EventStartGame:
		m.start(m.startConfig(ev))
		return MatchOutcome{}, nil
	case EventEndGame:
		m.finish("")
		return MatchOutcome{GameEnded: true}, nil
	}

	ho, err := m.hand.Apply(ev)
	if err != nil {
		return MatchOutcome{}, err
	}
	out := MatchOutcome{HandEnded: ho.Ended, TrickWinner: ho.TrickWinner}
	for _, delta := range ho.Scores {
		m.scores[delta.PlayerID] += delta.Points
		out.Scores = append(out.Scores, delta)
		if w := m.checkWinner(); w != "" {
			m.finish(w)
			out.GameEnded, out.Winner = true, w
			return out, nil
		}
	}
	m.hand.setScores(m.scores)
	return out, nil
}

func (m *Match) start(players []string, scoreLimit int) {
	m.players = append([]string{}, players...)
	m.scoreLimit = scoreLimit
	m.scores = make(map[string]int, len(players))
	for _, p := range players {
		m.scores[p] = 0
	}
	m.id = uuid.NewString()
	m.winner = ""
	m.state = MatchInProgress
	m.hand = NewHand(m.players, m.players[0], m.scoreLimit, m.scores, m.rng)
}

// checkWinner returns the first player in seat order at or over the limit.
func (m *Match) checkWinner() string {
	for _, p := range m.players {
		if m.scores[p] >= m.scoreLimit {
			return p
		}
	}
	return ""
}

func (m *Match) finish(winner string) {
	m.state = MatchGameEnd
	m.winner = winner
	m.id = ""
	m.hand = nil
}
