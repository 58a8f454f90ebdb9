package domain

import "fmt"

// TrucoState is the bid level of an open truco negotiation.
type TrucoState string

const (
	TrucoIdle       TrucoState = "IDLE"
	TrucoTruco      TrucoState = "TRUCO"
	TrucoRetruco    TrucoState = "RETRUCO"
	TrucoValeCuatro TrucoState = "VALE_CUATRO"
	TrucoAccepted   TrucoState = "ACCEPTED"
	TrucoDeclined   TrucoState = "DECLINED"
)

var trucoTransitions = map[TrucoState]map[EventType]TrucoState{
	TrucoIdle: {
		EventCallTruco: TrucoTruco,
	},
	TrucoTruco: {
		EventRaiseRetruco: TrucoRetruco,
		EventAccept:       TrucoAccepted,
		EventDecline:      TrucoDeclined,
	},
	TrucoRetruco: {
		EventRaiseValeCuatro: TrucoValeCuatro,
		EventAccept:          TrucoAccepted,
		EventDecline:         TrucoDeclined,
	},
	TrucoValeCuatro: {
		EventAccept:  TrucoAccepted,
		EventDecline: TrucoDeclined,
	},
}

// trucoStakes is the value of the hand at each bid level. Stakes are set, not added.
var trucoStakes = map[TrucoState]int{
	TrucoIdle:       1,
	TrucoTruco:      2,
	TrucoRetruco:    3,
	TrucoValeCuatro: 4,
}

// Truco runs a single truco negotiation.
type Truco struct {
	state TrucoState
	stake int
}

// NewTruco opens a negotiation at the hand's base value of 1.
func NewTruco() *Truco {
	return NewTrucoFrom(TrucoIdle)
}

// NewTrucoFrom reopens a negotiation at a level accepted earlier in the hand,
// so the accepting side can raise it further.
func NewTrucoFrom(level TrucoState) *Truco {
	stake, ok := trucoStakes[level]
	if !ok {
		level, stake = TrucoIdle, 1
	}
	return &Truco{state: level, stake: stake}
}

// State returns the current bid level.
func (t *Truco) State() TrucoState { return t.state }

// Stake returns the points currently at stake.
func (t *Truco) Stake() int { return t.stake }

// Can reports whether the event is accepted in the current state.
func (t *Truco) Can(e EventType) bool {
	_, ok := trucoTransitions[t.state][e]
	return ok
}

// Apply advances the negotiation. Skipped or repeated levels return
// ErrIllegalEvent and change nothing.
func (t *Truco) Apply(e EventType) (NegotiationResult, error) {
	target, ok := trucoTransitions[t.state][e]
	if !ok {
		return NegotiationResult{}, fmt.Errorf("%w: %s during truco %s", ErrIllegalEvent, e, t.state)
	}

	switch target {
	case TrucoAccepted:
		t.state = target
		return NegotiationResult{Done: true, Accepted: true, Points: t.stake}, nil
	case TrucoDeclined:
		t.state = target
		return NegotiationResult{Done: true, Points: max(t.stake-1, 1)}, nil
	}
	t.state = target
	t.stake = trucoStakes[target]
	return NegotiationResult{}, nil
}

// Snapshot returns a copy of the negotiation state.
func (t *Truco) Snapshot() TrucoSnapshot {
	return TrucoSnapshot{State: t.state, Stake: t.stake}
}
