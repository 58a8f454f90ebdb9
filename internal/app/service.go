package app

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"truco/internal/domain"
)

// Service contains Truco use-cases operating on domain state.
type Service struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewService constructs a Service with provided rng or a time-seeded default.
func NewService(rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng}
}

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomExists          = errors.New("room already exists")
	ErrInsufficientBalance = errors.New("insufficient balance for bet")
	ErrUnknownPlayer       = errors.New("player not seated in room")
	ErrRejected            = errors.New("event rejected")
	ErrNotPlayerEvent      = errors.New("event is not sent by players")
)

// IsPlayerEvent reports whether players may send t. Lifecycle events such as
// DEAL and RESET are issued by the server.
func IsPlayerEvent(t domain.EventType) bool {
	switch t {
	case domain.EventPlayCard,
		domain.EventCallEnvido, domain.EventRaiseRealEnvido, domain.EventRaiseFaltaEnvido,
		domain.EventCallTruco, domain.EventRaiseRetruco, domain.EventRaiseValeCuatro,
		domain.EventAccept, domain.EventDecline, domain.EventForfeit:
		return true
	}
	return false
}

// RejectedError wraps an engine rejection together with the moves the player
// could have made instead.
type RejectedError struct {
	Err   error
	Legal []domain.Action
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %v", ErrRejected, e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

// NewMatch builds an idle match. Each match gets its own generator, seeded from
// the service generator, since rooms run concurrently.
func (s *Service) NewMatch(roomID string, players []string, scoreLimit int, betAmount int64) *domain.Match {
	s.mu.Lock()
	seed := s.rng.Int63()
	s.mu.Unlock()

	return domain.NewMatch(domain.MatchConfig{
		RoomID:     roomID,
		Players:    players,
		ScoreLimit: scoreLimit,
		BetAmount:  betAmount,
		Rand:       rand.New(rand.NewSource(seed)),
	})
}

// StartGame runs START_GAME followed by the first DEAL.
func (s *Service) StartGame(m *domain.Match, players []string, scoreLimit int) ([]Event, error) {
	events, err := s.Dispatch(m, domain.Event{Type: domain.EventStartGame, Players: players, ScoreLimit: scoreLimit})
	if err != nil {
		return nil, err
	}
	dealt, err := s.Dispatch(m, domain.Event{Type: domain.EventDeal})
	if err != nil {
		return nil, err
	}
	return append(events, dealt...), nil
}

// Advance resets and redeals once a hand has ended. It returns nil when the
// match is not waiting on a new hand.
func (s *Service) Advance(m *domain.Match) ([]Event, error) {
	h := m.Hand()
	if m.State() != domain.MatchInProgress || h == nil || h.Phase() != domain.HandEnd {
		return nil, nil
	}
	events, err := s.Dispatch(m, domain.Event{Type: domain.EventReset})
	if err != nil {
		return nil, err
	}
	dealt, err := s.Dispatch(m, domain.Event{Type: domain.EventDeal})
	if err != nil {
		return nil, err
	}
	return append(events, dealt...), nil
}

// Dispatch applies one event and translates the outcome into app events.
// Rejections come back as *RejectedError.
func (s *Service) Dispatch(m *domain.Match, ev domain.Event) ([]Event, error) {
	matchID := m.ID()
	out, err := m.Apply(ev)
	if err != nil {
		return nil, &RejectedError{Err: err, Legal: m.LegalActions(ev.PlayerID)}
	}

	var events []Event
	switch ev.Type {
	case domain.EventStartGame:
		events = append(events, Event{
			Kind: EventGameStarted,
			Payload: GameStartedPayload{
				MatchID:    m.ID(),
				Players:    m.Players(),
				ScoreLimit: m.Snapshot().Match.ScoreLimit,
				BetAmount:  m.BetAmount(),
			},
		})
	case domain.EventDeal:
		h := m.Hand()
		for _, p := range m.Players() {
			events = append(events, Event{
				Kind: EventHandDealt,
				Payload: HandDealtPayload{
					UserID:         p,
					Hand:           h.Cards(p),
					StartingPlayer: h.StartingPlayer(),
				},
				Recipients: []string{p},
			})
		}
	case domain.EventReset:
		events = append(events, Event{
			Kind:    EventHandReset,
			Payload: HandResetPayload{StartingPlayer: m.Hand().StartingPlayer()},
		})
	case domain.EventPlayCard:
		events = append(events, Event{
			Kind: EventCardPlayed,
			Payload: CardPlayedPayload{
				UserID:         ev.PlayerID,
				Card:           *ev.Card,
				NextTurnUserID: nextTurn(m),
			},
		})
	case domain.EventCallEnvido, domain.EventRaiseRealEnvido, domain.EventRaiseFaltaEnvido,
		domain.EventCallTruco, domain.EventRaiseRetruco, domain.EventRaiseValeCuatro:
		events = append(events, Event{
			Kind: EventBidPlaced,
			Payload: BidPlacedPayload{
				UserID:         ev.PlayerID,
				Bid:            ev.Type,
				Stake:          openStake(m, ev.Type),
				NextTurnUserID: nextTurn(m),
			},
		})
	case domain.EventAccept, domain.EventDecline:
		events = append(events, Event{
			Kind: EventBidAnswered,
			Payload: BidAnsweredPayload{
				UserID:         ev.PlayerID,
				Answer:         ev.Type,
				NextTurnUserID: nextTurn(m),
			},
		})
	case domain.EventForfeit:
		events = append(events, Event{
			Kind:    EventPlayerForfeit,
			Payload: PlayerForfeitPayload{UserID: ev.PlayerID},
		})
	}

	// Scores are folded one delta at a time, so the running totals are rebuilt
	// here to report the score after each award.
	running := make(map[string]int)
	points := make(map[string]int)
	final := m.Snapshot().Match.Scores
	for id, s := range final {
		running[id] = s
	}
	for _, d := range out.Scores {
		points[d.PlayerID] += d.Points
	}
	for id, p := range points {
		running[id] -= p
	}
	for _, d := range out.Scores {
		running[d.PlayerID] += d.Points
		events = append(events, Event{
			Kind: EventScoreUpdated,
			Payload: ScoreUpdatedPayload{
				UserID: d.PlayerID,
				Points: d.Points,
				Reason: d.Reason,
				Scores: copyScores(running),
			},
		})
	}

	if out.HandEnded {
		events = append(events, Event{
			Kind: EventHandEnded,
			Payload: HandEndedPayload{
				MatchID:     matchID,
				TrickWinner: out.TrickWinner,
				Points:      points,
				Scores:      copyScores(final),
			},
		})
	}
	if out.GameEnded {
		events = append(events, Event{
			Kind: EventGameEnded,
			Payload: GameEndedPayload{
				MatchID:   matchID,
				Winner:    out.Winner,
				Scores:    copyScores(final),
				BetAmount: m.BetAmount(),
			},
		})
	}
	return events, nil
}

func nextTurn(m *domain.Match) string {
	if h := m.Hand(); h != nil {
		return h.CurrentTurn()
	}
	return ""
}

func openStake(m *domain.Match, t domain.EventType) int {
	snap := m.Snapshot()
	switch t {
	case domain.EventCallTruco, domain.EventRaiseRetruco, domain.EventRaiseValeCuatro:
		if snap.Truco != nil {
			return snap.Truco.Stake
		}
	default:
		if snap.Envido != nil {
			return snap.Envido.Stake
		}
	}
	return 0
}

func copyScores(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for id, s := range in {
		out[id] = s
	}
	return out
}
