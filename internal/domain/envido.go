package domain

import "fmt"

// EnvidoState is the bid level of an open envido negotiation.
type EnvidoState string

const (
	EnvidoIdle     EnvidoState = "IDLE"
	EnvidoEnvido   EnvidoState = "ENVIDO"
	EnvidoDoble    EnvidoState = "ENVIDO_DOBLE"
	EnvidoReal     EnvidoState = "REAL_ENVIDO"
	EnvidoFalta    EnvidoState = "FALTA_ENVIDO"
	EnvidoAccepted EnvidoState = "ACCEPTED"
	EnvidoDeclined EnvidoState = "DECLINED"
)

// envidoTransitions maps each state to the events it accepts and their target.
var envidoTransitions = map[EnvidoState]map[EventType]EnvidoState{
	EnvidoIdle: {
		EventCallEnvido:       EnvidoEnvido,
		EventRaiseRealEnvido:  EnvidoReal,
		EventRaiseFaltaEnvido: EnvidoFalta,
	},
	EnvidoEnvido: {
		EventCallEnvido:       EnvidoDoble,
		EventRaiseRealEnvido:  EnvidoReal,
		EventRaiseFaltaEnvido: EnvidoFalta,
		EventAccept:           EnvidoAccepted,
		EventDecline:          EnvidoDeclined,
	},
	EnvidoDoble: {
		EventRaiseRealEnvido:  EnvidoReal,
		EventRaiseFaltaEnvido: EnvidoFalta,
		EventAccept:           EnvidoAccepted,
		EventDecline:          EnvidoDeclined,
	},
	EnvidoReal: {
		EventRaiseFaltaEnvido: EnvidoFalta,
		EventAccept:           EnvidoAccepted,
		EventDecline:          EnvidoDeclined,
	},
	EnvidoFalta: {
		EventAccept:  EnvidoAccepted,
		EventDecline: EnvidoDeclined,
	},
}

var envidoBidPoints = map[EnvidoState]int{
	EnvidoEnvido: 2,
	EnvidoDoble:  2,
	EnvidoReal:   3,
}

// NegotiationResult is what a negotiation reports to the hand after an event.
// Every accepted event advances the turn; Done carries the terminal payout.
type NegotiationResult struct {
	Done     bool
	Accepted bool
	Points   int
}

// Envido runs a single envido negotiation. Zero value is not usable; use NewEnvido.
type Envido struct {
	state        EnvidoState
	stake        int
	prevStake    int
	scoreLimit   int
	greaterScore int
}

// NewEnvido opens a negotiation. greaterScore is the highest match score at
// the time of the call and drives the falta envido stake.
func NewEnvido(scoreLimit, greaterScore int) *Envido {
	return &Envido{
		state:        EnvidoIdle,
		scoreLimit:   scoreLimit,
		greaterScore: greaterScore,
	}
}

// State returns the current bid level.
func (e *Envido) State() EnvidoState { return e.state }

// Stake returns the points currently at stake.
func (e *Envido) Stake() int { return e.stake }

// Can reports whether the event is accepted in the current state.
func (e *Envido) Can(t EventType) bool {
	_, ok := envidoTransitions[e.state][t]
	return ok
}

// Apply advances the negotiation. Events not accepted in the current state
// return ErrIllegalEvent and change nothing.
func (e *Envido) Apply(t EventType) (NegotiationResult, error) {
	target, ok := envidoTransitions[e.state][t]
	if !ok {
		return NegotiationResult{}, fmt.Errorf("%w: %s during envido %s", ErrIllegalEvent, t, e.state)
	}

	switch target {
	case EnvidoAccepted:
		e.state = target
		return NegotiationResult{Done: true, Accepted: true, Points: e.stake}, nil
	case EnvidoDeclined:
		e.state = target
		return NegotiationResult{Done: true, Points: max(e.prevStake, 1)}, nil
	case EnvidoFalta:
		e.prevStake = e.stake
		e.stake = e.scoreLimit - e.greaterScore
	default:
		e.prevStake = e.stake
		e.stake += envidoBidPoints[target]
	}
	e.state = target
	return NegotiationResult{}, nil
}

// Snapshot returns a copy of the negotiation state.
func (e *Envido) Snapshot() EnvidoSnapshot {
	return EnvidoSnapshot{
		State:        e.state,
		Stake:        e.stake,
		PrevStake:    e.prevStake,
		ScoreLimit:   e.scoreLimit,
		GreaterScore: e.greaterScore,
	}
}
