package domain

import (
	"errors"
	"testing"
)

func applyEnvido(t *testing.T, e *Envido, events ...EventType) NegotiationResult {
	t.Helper()
	var res NegotiationResult
	for _, ev := range events {
		var err error
		if res, err = e.Apply(ev); err != nil {
			t.Fatalf("Apply(%s) error: %v", ev, err)
		}
	}
	return res
}

func TestEnvidoStakes(t *testing.T) {
	tests := []struct {
		name      string
		events    []EventType
		wantState EnvidoState
		wantStake int
	}{
		{"call", []EventType{EventCallEnvido}, EnvidoEnvido, 2},
		{"envido envido", []EventType{EventCallEnvido, EventCallEnvido}, EnvidoDoble, 4},
		{"envido envido real", []EventType{EventCallEnvido, EventCallEnvido, EventRaiseRealEnvido}, EnvidoReal, 7},
		{"real alone", []EventType{EventRaiseRealEnvido}, EnvidoReal, 3},
		{"envido real", []EventType{EventCallEnvido, EventRaiseRealEnvido}, EnvidoReal, 5},
		{"falta", []EventType{EventRaiseFaltaEnvido}, EnvidoFalta, 18},
		{"real falta", []EventType{EventRaiseRealEnvido, EventRaiseFaltaEnvido}, EnvidoFalta, 18},
		// Falta replaces the running stake rather than adding to it.
		{"envido falta", []EventType{EventCallEnvido, EventRaiseFaltaEnvido}, EnvidoFalta, 18},
		{"envido envido falta", []EventType{EventCallEnvido, EventCallEnvido, EventRaiseFaltaEnvido}, EnvidoFalta, 18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnvido(30, 12)
			applyEnvido(t, e, tt.events...)
			if e.State() != tt.wantState || e.Stake() != tt.wantStake {
				t.Fatalf("state=%s stake=%d, want %s/%d", e.State(), e.Stake(), tt.wantState, tt.wantStake)
			}
		})
	}
}

func TestEnvidoResolution(t *testing.T) {
	tests := []struct {
		name         string
		events       []EventType
		wantAccepted bool
		wantPoints   int
	}{
		{"accept envido", []EventType{EventCallEnvido, EventAccept}, true, 2},
		{"decline envido pays one", []EventType{EventCallEnvido, EventDecline}, false, 1},
		{"decline doble", []EventType{EventCallEnvido, EventCallEnvido, EventDecline}, false, 2},
		{"decline real after doble", []EventType{EventCallEnvido, EventCallEnvido, EventRaiseRealEnvido, EventDecline}, false, 4},
		{"accept real after doble", []EventType{EventCallEnvido, EventCallEnvido, EventRaiseRealEnvido, EventAccept}, true, 7},
		{"decline falta after real", []EventType{EventRaiseRealEnvido, EventRaiseFaltaEnvido, EventDecline}, false, 3},
		{"accept falta", []EventType{EventRaiseFaltaEnvido, EventAccept}, true, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := applyEnvido(t, NewEnvido(30, 0), tt.events...)
			if !res.Done {
				t.Fatalf("negotiation did not finish")
			}
			if res.Accepted != tt.wantAccepted || res.Points != tt.wantPoints {
				t.Fatalf("result = %+v, want accepted=%t points=%d", res, tt.wantAccepted, tt.wantPoints)
			}
		})
	}
}

func TestEnvidoIllegalEventsAreNoOps(t *testing.T) {
	tests := []struct {
		name   string
		setup  []EventType
		reject EventType
	}{
		{"accept before any bid", nil, EventAccept},
		{"call envido in falta", []EventType{EventRaiseFaltaEnvido}, EventCallEnvido},
		{"call envido in doble", []EventType{EventCallEnvido, EventCallEnvido}, EventCallEnvido},
		{"real in real", []EventType{EventRaiseRealEnvido}, EventRaiseRealEnvido},
		{"truco event", []EventType{EventCallEnvido}, EventCallTruco},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnvido(30, 0)
			applyEnvido(t, e, tt.setup...)
			before := e.Snapshot()
			if e.Can(tt.reject) {
				t.Fatalf("Can(%s) = true, want false", tt.reject)
			}
			if _, err := e.Apply(tt.reject); !errors.Is(err, ErrIllegalEvent) {
				t.Fatalf("Apply(%s) error = %v, want ErrIllegalEvent", tt.reject, err)
			}
			if e.Snapshot() != before {
				t.Fatalf("rejected event changed state: %+v -> %+v", before, e.Snapshot())
			}
		})
	}
}

func TestTrucoNegotiation(t *testing.T) {
	tests := []struct {
		name         string
		from         TrucoState
		events       []EventType
		wantAccepted bool
		wantPoints   int
	}{
		{"truco accepted", TrucoIdle, []EventType{EventCallTruco, EventAccept}, true, 2},
		{"truco declined", TrucoIdle, []EventType{EventCallTruco, EventDecline}, false, 1},
		{"retruco declined", TrucoIdle, []EventType{EventCallTruco, EventRaiseRetruco, EventDecline}, false, 2},
		{"vale cuatro accepted", TrucoIdle, []EventType{EventCallTruco, EventRaiseRetruco, EventRaiseValeCuatro, EventAccept}, true, 4},
		{"vale cuatro declined", TrucoIdle, []EventType{EventCallTruco, EventRaiseRetruco, EventRaiseValeCuatro, EventDecline}, false, 3},
		{"reopened retruco declined", TrucoTruco, []EventType{EventRaiseRetruco, EventDecline}, false, 2},
		{"reopened vale cuatro accepted", TrucoRetruco, []EventType{EventRaiseValeCuatro, EventAccept}, true, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTrucoFrom(tt.from)
			var res NegotiationResult
			for _, ev := range tt.events {
				var err error
				if res, err = tr.Apply(ev); err != nil {
					t.Fatalf("Apply(%s) error: %v", ev, err)
				}
			}
			if !res.Done || res.Accepted != tt.wantAccepted || res.Points != tt.wantPoints {
				t.Fatalf("result = %+v, want accepted=%t points=%d", res, tt.wantAccepted, tt.wantPoints)
			}
		})
	}
}

func TestTrucoRejectsSkipsAndRepeats(t *testing.T) {
	tr := NewTruco()
	if tr.Stake() != 1 {
		t.Fatalf("initial stake = %d, want 1", tr.Stake())
	}
	if _, err := tr.Apply(EventCallTruco); err != nil {
		t.Fatalf("CALL_TRUCO error: %v", err)
	}
	for _, ev := range []EventType{EventRaiseValeCuatro, EventCallTruco, EventCallEnvido} {
		if _, err := tr.Apply(ev); !errors.Is(err, ErrIllegalEvent) {
			t.Fatalf("Apply(%s) error = %v, want ErrIllegalEvent", ev, err)
		}
	}
	if tr.State() != TrucoTruco || tr.Stake() != 2 {
		t.Fatalf("state=%s stake=%d after rejected events, want TRUCO/2", tr.State(), tr.Stake())
	}
}
