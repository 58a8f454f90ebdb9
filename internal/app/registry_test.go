package app

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"truco/internal/domain"
	"truco/internal/ports"
)

type mockPublisher struct {
	hands   []ports.HandResult
	matches []ports.MatchResult
	err     error
}

func (m *mockPublisher) PublishHandResult(_ context.Context, r ports.HandResult) error {
	m.hands = append(m.hands, r)
	return m.err
}

func (m *mockPublisher) PublishMatchResult(_ context.Context, r ports.MatchResult) error {
	m.matches = append(m.matches, r)
	return m.err
}

type mockEconomy struct {
	balances map[string]int64
}

func (m *mockEconomy) GetBalance(_ context.Context, userID string) (int64, error) {
	b, ok := m.balances[userID]
	if !ok {
		return 0, errors.New("no wallet")
	}
	return b, nil
}

func newTestRegistry(pub ports.ResultPublisher, economy ports.EconomyPort) *Registry {
	return NewRegistry(NewService(rand.New(rand.NewSource(21))), pub, economy)
}

func createRoom(t *testing.T, reg *Registry, limit int) string {
	t.Helper()
	res, err := reg.Create(context.Background(), CreateRoomRequest{
		RoomID:     "r1",
		Players:    []string{"u1", "u2"},
		ScoreLimit: limit,
		BetAmount:  50,
	})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	return res.RoomID
}

func TestRegistryCreate(t *testing.T) {
	reg := newTestRegistry(nil, nil)
	ctx := context.Background()

	res, err := reg.Create(ctx, CreateRoomRequest{Players: []string{"u1", "u2"}, ScoreLimit: 30})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if res.RoomID == "" {
		t.Fatalf("expected generated room id")
	}
	if _, ok := findEvent(res.Events, EventHandDealt); !ok {
		t.Fatalf("create events = %v, want a deal", kinds(res.Events))
	}

	if _, err := reg.Create(ctx, CreateRoomRequest{RoomID: res.RoomID, Players: []string{"u3", "u4"}, ScoreLimit: 30}); !errors.Is(err, ErrRoomExists) {
		t.Fatalf("duplicate create error = %v, want ErrRoomExists", err)
	}
	if _, err := reg.Create(ctx, CreateRoomRequest{RoomID: "solo", Players: []string{"u1"}, ScoreLimit: 30}); !errors.Is(err, domain.ErrInvalidMatchConfig) {
		t.Fatalf("one-player create error = %v, want ErrInvalidMatchConfig", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("rooms = %d, want 1", reg.Len())
	}
}

func TestRegistryCreateChecksBalances(t *testing.T) {
	economy := &mockEconomy{balances: map[string]int64{"u1": 500, "u2": 10}}
	reg := newTestRegistry(nil, economy)

	_, err := reg.Create(context.Background(), CreateRoomRequest{RoomID: "r1", Players: []string{"u1", "u2"}, ScoreLimit: 30, BetAmount: 50})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("error = %v, want ErrInsufficientBalance", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("room created despite low balance")
	}
}

func TestRegistryDispatchErrors(t *testing.T) {
	reg := newTestRegistry(nil, nil)
	roomID := createRoom(t, reg, 30)
	ctx := context.Background()

	tests := []struct {
		name   string
		roomID string
		ev     domain.Event
		want   error
	}{
		{"unknown room", "nope", domain.Event{Type: domain.EventForfeit, PlayerID: "u1"}, ErrRoomNotFound},
		{"unseated player", roomID, domain.Event{Type: domain.EventForfeit, PlayerID: "u9"}, ErrUnknownPlayer},
		{"server event", roomID, domain.Event{Type: domain.EventDeal, PlayerID: "u1"}, ErrNotPlayerEvent},
		{"out of turn", roomID, domain.Event{Type: domain.EventCallTruco, PlayerID: "u2"}, ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reg.Dispatch(ctx, tt.roomID, tt.ev); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRegistryForfeitPublishesAndRedeals(t *testing.T) {
	pub := &mockPublisher{}
	reg := newTestRegistry(pub, nil)
	roomID := createRoom(t, reg, 30)

	res, err := reg.Dispatch(context.Background(), roomID, domain.Event{Type: domain.EventForfeit, PlayerID: "u1"})
	if err != nil {
		t.Fatalf("forfeit error: %v", err)
	}
	if res.PublishErr != nil {
		t.Fatalf("publish error: %v", res.PublishErr)
	}
	if len(pub.hands) != 1 || pub.hands[0].RoomID != roomID || pub.hands[0].Points["u2"] != 2 {
		t.Fatalf("published hands = %+v", pub.hands)
	}
	if pub.hands[0].MatchID == "" {
		t.Fatalf("hand result has no match id")
	}

	view, err := reg.View(roomID, "u2")
	if err != nil {
		t.Fatalf("view error: %v", err)
	}
	if view.Phase != domain.HandEnvidoIdle || view.StartingPlayer != "u2" || len(view.Hand) != 3 {
		t.Fatalf("view after redeal = %+v", view)
	}
	if _, err := reg.View(roomID, "u9"); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("view for stranger error = %v", err)
	}
}

func TestRegistryPublishFailureKeepsEvent(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	reg := newTestRegistry(pub, nil)
	roomID := createRoom(t, reg, 30)

	res, err := reg.Dispatch(context.Background(), roomID, domain.Event{Type: domain.EventForfeit, PlayerID: "u2"})
	if err != nil {
		t.Fatalf("forfeit error: %v", err)
	}
	if res.PublishErr == nil {
		t.Fatalf("expected publish error")
	}
	snap, err := reg.Snapshot(roomID)
	if err != nil {
		t.Fatalf("snapshot error: %v", err)
	}
	if snap.Match.Scores["u1"] != 2 {
		t.Fatalf("scores = %+v, want u1 at 2", snap.Match.Scores)
	}
}

func TestRegistryGameEndAndRestart(t *testing.T) {
	pub := &mockPublisher{}
	reg := newTestRegistry(pub, nil)
	roomID := createRoom(t, reg, 2)
	ctx := context.Background()

	if _, err := reg.Dispatch(ctx, roomID, domain.Event{Type: domain.EventForfeit, PlayerID: "u1"}); err != nil {
		t.Fatalf("forfeit error: %v", err)
	}
	if len(pub.matches) != 1 || pub.matches[0].Winner != "u2" || pub.matches[0].BetAmount != 50 {
		t.Fatalf("published matches = %+v", pub.matches)
	}
	snap, _ := reg.Snapshot(roomID)
	if snap.Match.State != domain.MatchGameEnd || snap.Hand != nil {
		t.Fatalf("snapshot after win = %+v", snap)
	}

	res, err := reg.Restart(ctx, roomID)
	if err != nil {
		t.Fatalf("restart error: %v", err)
	}
	started, ok := findEvent(res.Events, EventGameStarted)
	if !ok || started.Payload.(GameStartedPayload).MatchID == pub.matches[0].MatchID {
		t.Fatalf("restart events = %v, want a fresh match", kinds(res.Events))
	}
	if _, err := reg.Restart(ctx, roomID); !errors.Is(err, domain.ErrInvalidMatchConfig) {
		t.Fatalf("restart while running error = %v", err)
	}
}

func TestRegistryDelete(t *testing.T) {
	pub := &mockPublisher{}
	reg := newTestRegistry(pub, nil)
	roomID := createRoom(t, reg, 30)
	ctx := context.Background()

	res, err := reg.Delete(ctx, roomID)
	if err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if _, ok := findEvent(res.Events, EventGameEnded); !ok {
		t.Fatalf("delete events = %v, want game_ended", kinds(res.Events))
	}
	if len(pub.matches) != 1 || pub.matches[0].Winner != "" {
		t.Fatalf("published matches = %+v", pub.matches)
	}
	if reg.Len() != 0 {
		t.Fatalf("rooms = %d after delete", reg.Len())
	}
	if _, err := reg.Delete(ctx, roomID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("second delete error = %v", err)
	}
}

func TestRegistrySeat(t *testing.T) {
	reg := newTestRegistry(nil, nil)
	roomID := createRoom(t, reg, 30)
	if seat, err := reg.Seat(roomID, "u2"); err != nil || seat != 1 {
		t.Fatalf("Seat(u2) = %d, %v", seat, err)
	}
	if _, err := reg.Seat(roomID, "u3"); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("Seat(u3) error = %v", err)
	}
}
