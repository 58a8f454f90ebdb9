package domain

import (
	"errors"
	"math/rand"
	"testing"
)

func newTestMatch(players []string, scoreLimit int) *Match {
	return NewMatch(MatchConfig{
		RoomID:     "room-1",
		Players:    players,
		ScoreLimit: scoreLimit,
		BetAmount:  100,
		Rand:       rand.New(rand.NewSource(3)),
	})
}

func mustMatch(t *testing.T, m *Match, ev Event) MatchOutcome {
	t.Helper()
	out, err := m.Apply(ev)
	if err != nil {
		t.Fatalf("Apply(%s by %q) error: %v", ev.Type, ev.PlayerID, err)
	}
	return out
}

func TestStartGameGuard(t *testing.T) {
	tests := []struct {
		name    string
		players []string
		limit   int
		wantErr bool
	}{
		{"two players", []string{"a", "b"}, 30, false},
		{"four players", []string{"a", "b", "c", "d"}, 15, false},
		{"one player", []string{"a"}, 30, true},
		{"five players", []string{"a", "b", "c", "d", "e"}, 30, true},
		{"duplicate ids", []string{"a", "a"}, 30, true},
		{"empty id", []string{"a", ""}, 30, true},
		{"zero limit", []string{"a", "b"}, 0, true},
		{"negative limit", []string{"a", "b"}, -5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMatch(tt.players, 0)
			_, err := m.Apply(Event{Type: EventStartGame, ScoreLimit: tt.limit})
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMatchConfig) {
					t.Fatalf("error = %v, want ErrInvalidMatchConfig", err)
				}
				if m.State() != MatchIdle || m.ID() != "" {
					t.Fatalf("rejected start left state=%s id=%q", m.State(), m.ID())
				}
				return
			}
			if err != nil {
				t.Fatalf("START_GAME error: %v", err)
			}
			if m.State() != MatchInProgress || m.ID() == "" {
				t.Fatalf("state=%s id=%q, want IN_PROGRESS with id", m.State(), m.ID())
			}
		})
	}
}

func TestStartGameTwiceRejected(t *testing.T) {
	m := newTestMatch([]string{"a", "b"}, 30)
	mustMatch(t, m, Event{Type: EventStartGame})
	id := m.ID()
	if _, err := m.Apply(Event{Type: EventStartGame}); !errors.Is(err, ErrInvalidMatchConfig) {
		t.Fatalf("second START_GAME error = %v, want ErrInvalidMatchConfig", err)
	}
	if m.ID() != id {
		t.Fatalf("match id changed on rejected start")
	}
}

func TestEventsBeforeStartRejected(t *testing.T) {
	m := newTestMatch([]string{"a", "b"}, 30)
	for _, ev := range []Event{{Type: EventDeal}, {Type: EventEndGame}, {Type: EventCallTruco, PlayerID: "a"}} {
		if _, err := m.Apply(ev); !errors.Is(err, ErrIllegalEvent) {
			t.Fatalf("Apply(%s) error = %v, want ErrIllegalEvent", ev.Type, err)
		}
	}
}

func TestMatchFoldsScoresAcrossHands(t *testing.T) {
	m := newTestMatch([]string{"a", "b"}, 30)
	mustMatch(t, m, Event{Type: EventStartGame})
	mustMatch(t, m, Event{Type: EventDeal})

	out := mustMatch(t, m, Event{Type: EventForfeit, PlayerID: "a"})
	if !out.HandEnded || out.GameEnded {
		t.Fatalf("outcome = %+v, want hand end only", out)
	}
	if m.Score("b") != 2 || m.Score("a") != 0 {
		t.Fatalf("scores a=%d b=%d, want 0/2", m.Score("a"), m.Score("b"))
	}

	mustMatch(t, m, Event{Type: EventReset})
	if m.Hand().StartingPlayer() != "b" {
		t.Fatalf("mano after reset = %s, want b", m.Hand().StartingPlayer())
	}
	mustMatch(t, m, Event{Type: EventDeal})
	mustMatch(t, m, Event{Type: EventCallEnvido, PlayerID: "b"})
	snap := m.Snapshot()
	if snap.Envido == nil || snap.Envido.GreaterScore != 2 {
		t.Fatalf("envido snapshot = %+v, want greater score 2", snap.Envido)
	}
	mustMatch(t, m, Event{Type: EventDecline, PlayerID: "a"})
	if m.Score("b") != 3 {
		t.Fatalf("b score = %d, want 3", m.Score("b"))
	}
}

func TestMatchWinDetection(t *testing.T) {
	m := newTestMatch([]string{"a", "b"}, 3)
	mustMatch(t, m, Event{Type: EventStartGame})
	mustMatch(t, m, Event{Type: EventDeal})
	mustMatch(t, m, Event{Type: EventForfeit, PlayerID: "a"})
	mustMatch(t, m, Event{Type: EventReset})
	mustMatch(t, m, Event{Type: EventDeal})

	out := mustMatch(t, m, Event{Type: EventForfeit, PlayerID: "a"})
	if !out.GameEnded || out.Winner != "b" {
		t.Fatalf("outcome = %+v, want b to win", out)
	}
	if m.State() != MatchGameEnd || m.ID() != "" || m.Winner() != "b" {
		t.Fatalf("state=%s id=%q winner=%q", m.State(), m.ID(), m.Winner())
	}
	if _, err := m.Apply(Event{Type: EventDeal}); !errors.Is(err, ErrIllegalEvent) {
		t.Fatalf("DEAL after game end error = %v, want ErrIllegalEvent", err)
	}
}

func TestMatchWinnerFollowsSeatOrder(t *testing.T) {
	m := newTestMatch([]string{"a", "b", "c"}, 2)
	mustMatch(t, m, Event{Type: EventStartGame})
	mustMatch(t, m, Event{Type: EventDeal})

	// An early forfeit pays 2 to both b and c; b is reported first.
	out := mustMatch(t, m, Event{Type: EventForfeit, PlayerID: "a"})
	if out.Winner != "b" {
		t.Fatalf("winner = %q, want b", out.Winner)
	}
}

func TestEndGameAndRestart(t *testing.T) {
	m := newTestMatch([]string{"a", "b"}, 30)
	mustMatch(t, m, Event{Type: EventStartGame})
	first := m.ID()
	mustMatch(t, m, Event{Type: EventDeal})
	mustMatch(t, m, Event{Type: EventForfeit, PlayerID: "b"})

	out := mustMatch(t, m, Event{Type: EventEndGame})
	if !out.GameEnded || out.Winner != "" || m.State() != MatchGameEnd {
		t.Fatalf("END_GAME outcome = %+v state=%s", out, m.State())
	}

	mustMatch(t, m, Event{Type: EventStartGame, Players: []string{"c", "a", "b"}, ScoreLimit: 15})
	if m.ID() == "" || m.ID() == first {
		t.Fatalf("restart id = %q, want a fresh id", m.ID())
	}
	snap := m.Snapshot()
	if snap.Match.ScoreLimit != 15 || len(snap.Match.Players) != 3 || snap.Match.Players[0] != "c" {
		t.Fatalf("restart snapshot = %+v", snap.Match)
	}
	for id, s := range snap.Match.Scores {
		if s != 0 {
			t.Fatalf("score for %s = %d after restart, want 0", id, s)
		}
	}
}

func TestLegalActions(t *testing.T) {
	m := newTestMatch([]string{"a", "b"}, 30)
	if got := m.LegalActions("a"); len(got) != 0 {
		t.Fatalf("legal actions before start = %+v", got)
	}
	mustMatch(t, m, Event{Type: EventStartGame})
	mustMatch(t, m, Event{Type: EventDeal})

	has := func(actions []Action, typ EventType) bool {
		for _, a := range actions {
			if a.Type == typ {
				return true
			}
		}
		return false
	}

	actions := m.LegalActions("a")
	plays := 0
	for _, a := range actions {
		if a.Type == EventPlayCard {
			plays++
		}
	}
	if plays != 3 {
		t.Fatalf("a can play %d cards, want 3", plays)
	}
	for _, want := range []EventType{EventCallEnvido, EventRaiseRealEnvido, EventRaiseFaltaEnvido, EventCallTruco, EventForfeit} {
		if !has(actions, want) {
			t.Fatalf("a missing legal action %s in %+v", want, actions)
		}
	}
	if has(actions, EventAccept) {
		t.Fatalf("ACCEPT offered with no open negotiation")
	}

	other := m.LegalActions("b")
	if len(other) != 1 || other[0].Type != EventForfeit {
		t.Fatalf("b legal actions = %+v, want only FORFEIT", other)
	}

	mustMatch(t, m, Event{Type: EventCallEnvido, PlayerID: "a"})
	answer := m.LegalActions("b")
	for _, want := range []EventType{EventAccept, EventDecline, EventCallEnvido, EventRaiseRealEnvido, EventCallTruco} {
		if !has(answer, want) {
			t.Fatalf("b missing %s after envido call: %+v", want, answer)
		}
	}
	for _, a := range answer {
		if !m.Can(a.Event("b")) {
			t.Fatalf("listed action %s is rejected by Can", a.Type)
		}
	}
}
