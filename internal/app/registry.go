package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"truco/internal/domain"
	"truco/internal/ports"
)

// Room hosts one match. Events for a room are serialized by its mutex.
type Room struct {
	mu    sync.Mutex
	id    string
	match *domain.Match
}

// ID returns the room id.
func (r *Room) ID() string { return r.id }

// CreateRoomRequest describes a new room. An empty RoomID gets a generated one.
type CreateRoomRequest struct {
	RoomID     string
	Players    []string
	ScoreLimit int
	BetAmount  int64
}

// Result is what one dispatched event produced. PublishErr is set when a
// result could not be forwarded; the event itself was still applied.
type Result struct {
	RoomID     string
	Events     []Event
	PublishErr error
}

// Registry owns the rooms of a standalone server.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	svc       *Service
	publisher ports.ResultPublisher
	economy   ports.EconomyPort
}

// NewRegistry builds an empty registry. A nil publisher discards results and
// a nil economy skips the balance check.
func NewRegistry(svc *Service, publisher ports.ResultPublisher, economy ports.EconomyPort) *Registry {
	if svc == nil {
		svc = NewService(nil)
	}
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	return &Registry{
		rooms:     make(map[string]*Room),
		svc:       svc,
		publisher: publisher,
		economy:   economy,
	}
}

// Create starts a match in a new room and deals the first hand.
func (g *Registry) Create(ctx context.Context, req CreateRoomRequest) (Result, error) {
	if req.RoomID == "" {
		req.RoomID = uuid.NewString()
	}
	if err := CheckBalances(ctx, g.economy, req.Players, req.BetAmount); err != nil {
		return Result{}, err
	}

	g.mu.Lock()
	if _, ok := g.rooms[req.RoomID]; ok {
		g.mu.Unlock()
		return Result{}, ErrRoomExists
	}
	room := &Room{
		id:    req.RoomID,
		match: g.svc.NewMatch(req.RoomID, req.Players, req.ScoreLimit, req.BetAmount),
	}
	room.mu.Lock()
	g.rooms[req.RoomID] = room
	g.mu.Unlock()
	defer room.mu.Unlock()

	events, err := g.svc.StartGame(room.match, nil, 0)
	if err != nil {
		g.mu.Lock()
		delete(g.rooms, req.RoomID)
		g.mu.Unlock()
		return Result{}, err
	}
	return Result{RoomID: req.RoomID, Events: events}, nil
}

func (g *Registry) room(roomID string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Dispatch applies a player event. When the event ends a hand the next one is
// reset and dealt before returning.
func (g *Registry) Dispatch(ctx context.Context, roomID string, ev domain.Event) (Result, error) {
	room, err := g.room(roomID)
	if err != nil {
		return Result{}, err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if !seated(room.match, ev.PlayerID) {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownPlayer, ev.PlayerID)
	}
	if !IsPlayerEvent(ev.Type) {
		return Result{}, fmt.Errorf("%w: %s", ErrNotPlayerEvent, ev.Type)
	}
	events, err := g.svc.Dispatch(room.match, ev)
	if err != nil {
		return Result{}, err
	}
	next, err := g.svc.Advance(room.match)
	if err != nil {
		return Result{}, err
	}
	events = append(events, next...)

	return Result{
		RoomID:     roomID,
		Events:     events,
		PublishErr: PublishResults(ctx, g.publisher, roomID, events),
	}, nil
}

// Restart starts a fresh match in a room whose previous match has ended.
func (g *Registry) Restart(ctx context.Context, roomID string) (Result, error) {
	room, err := g.room(roomID)
	if err != nil {
		return Result{}, err
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	if err := CheckBalances(ctx, g.economy, room.match.Players(), room.match.BetAmount()); err != nil {
		return Result{}, err
	}
	events, err := g.svc.StartGame(room.match, nil, 0)
	if err != nil {
		return Result{}, err
	}
	return Result{RoomID: roomID, Events: events}, nil
}

// View returns the room as seen by playerID.
func (g *Registry) View(roomID, playerID string) (PlayerView, error) {
	room, err := g.room(roomID)
	if err != nil {
		return PlayerView{}, err
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if !seated(room.match, playerID) {
		return PlayerView{}, fmt.Errorf("%w: %q", ErrUnknownPlayer, playerID)
	}
	return g.svc.View(room.match, playerID), nil
}

// Snapshot returns the full public state of a room.
func (g *Registry) Snapshot(roomID string) (domain.Snapshot, error) {
	room, err := g.room(roomID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.match.Snapshot(), nil
}

// Seat returns the player's seat index in the room.
func (g *Registry) Seat(roomID, playerID string) (int, error) {
	room, err := g.room(roomID)
	if err != nil {
		return 0, err
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	for i, p := range room.match.Players() {
		if p == playerID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPlayer, playerID)
}

// Delete ends the room's match, if running, and removes the room.
func (g *Registry) Delete(ctx context.Context, roomID string) (Result, error) {
	g.mu.Lock()
	room, ok := g.rooms[roomID]
	if ok {
		delete(g.rooms, roomID)
	}
	g.mu.Unlock()
	if !ok {
		return Result{}, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.match.State() != domain.MatchInProgress {
		return Result{RoomID: roomID}, nil
	}
	events, err := g.svc.Dispatch(room.match, domain.Event{Type: domain.EventEndGame})
	if err != nil {
		return Result{}, err
	}
	return Result{
		RoomID:     roomID,
		Events:     events,
		PublishErr: PublishResults(ctx, g.publisher, roomID, events),
	}, nil
}

// Len returns the number of rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

func seated(m *domain.Match, playerID string) bool {
	for _, p := range m.Players() {
		if p == playerID {
			return true
		}
	}
	return false
}

// CheckBalances verifies every player can cover the bet. A nil economy or a
// zero bet always passes.
func CheckBalances(ctx context.Context, economy ports.EconomyPort, players []string, bet int64) error {
	if economy == nil || bet <= 0 {
		return nil
	}
	for _, p := range players {
		balance, err := economy.GetBalance(ctx, p)
		if err != nil {
			return fmt.Errorf("balance for %s: %w", p, err)
		}
		if balance < bet {
			return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, p, balance, bet)
		}
	}
	return nil
}

// PublishResults forwards finished hands and matches found in events.
func PublishResults(ctx context.Context, publisher ports.ResultPublisher, roomID string, events []Event) error {
	if publisher == nil {
		return nil
	}
	var errs []error
	for _, ev := range events {
		switch p := ev.Payload.(type) {
		case HandEndedPayload:
			errs = append(errs, publisher.PublishHandResult(ctx, ports.HandResult{
				RoomID:      roomID,
				MatchID:     p.MatchID,
				TrickWinner: p.TrickWinner,
				Points:      p.Points,
				Scores:      p.Scores,
			}))
		case GameEndedPayload:
			errs = append(errs, publisher.PublishMatchResult(ctx, ports.MatchResult{
				RoomID:    roomID,
				MatchID:   p.MatchID,
				Winner:    p.Winner,
				Scores:    p.Scores,
				BetAmount: p.BetAmount,
			}))
		}
	}
	return errors.Join(errs...)
}
