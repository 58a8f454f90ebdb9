package domain

import "errors"

// EventType names an input accepted by the match state machine.
type EventType string

const (
	EventStartGame        EventType = "START_GAME"
	EventDeal             EventType = "DEAL"
	EventPlayCard         EventType = "PLAY_CARD"
	EventCallEnvido       EventType = "CALL_ENVIDO"
	EventRaiseRealEnvido  EventType = "RAISE_REAL_ENVIDO"
	EventRaiseFaltaEnvido EventType = "RAISE_FALTA_ENVIDO"
	EventAccept           EventType = "ACCEPT"
	EventDecline          EventType = "DECLINE"
	EventCallTruco        EventType = "CALL_TRUCO"
	EventRaiseRetruco     EventType = "RAISE_RETRUCO"
	EventRaiseValeCuatro  EventType = "RAISE_VALE_CUATRO"
	EventForfeit          EventType = "FORFEIT"
	EventReset            EventType = "RESET"
	EventEndGame          EventType = "END_GAME"
)

// EventTypes lists every event in a stable order.
var EventTypes = []EventType{
	EventStartGame,
	EventDeal,
	EventPlayCard,
	EventCallEnvido,
	EventRaiseRealEnvido,
	EventRaiseFaltaEnvido,
	EventAccept,
	EventDecline,
	EventCallTruco,
	EventRaiseRetruco,
	EventRaiseValeCuatro,
	EventForfeit,
	EventReset,
	EventEndGame,
}

// ParseEventType validates a wire name.
func ParseEventType(s string) (EventType, bool) {
	for _, t := range EventTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Event is the tagged union of match inputs. Fields irrelevant to Type are ignored.
type Event struct {
	Type     EventType `json:"type"`
	PlayerID string    `json:"player_id,omitempty"`
	Card     *Card     `json:"card,omitempty"`

	// START_GAME overrides; zero values keep the match's configured values.
	Players    []string `json:"players,omitempty"`
	ScoreLimit int      `json:"score_limit,omitempty"`
}

var (
	// ErrIllegalEvent is returned for an event not valid in the current state or
	// whose guard fails. State is left untouched.
	ErrIllegalEvent = errors.New("illegal event")
	// ErrInvalidMatchConfig is returned when START_GAME carries an unusable
	// player list or score limit, or the match is already running.
	ErrInvalidMatchConfig = errors.New("invalid match configuration")
)
