package nakama

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"truco/internal/app"
	"truco/internal/config"
	"truco/internal/domain"
	"truco/internal/ports"
)

const (
	MatchLabelKey_OpenSeats = "open" // Key for the open seats in the match label

	gameConfigPath = "data/game_config.json"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Seats           []string                    `json:"seats"`            // User IDs, empty string means seat is empty; length is the table size
	OwnerSeat       int                         `json:"owner_seat"`       // Seat allowed to start the game
	RoomID          string                      `json:"room_id"`          // Nakama match id hosting the room
	ScoreLimit      int                         `json:"score_limit"`      // Points needed to win
	BetAmount       int64                       `json:"bet_amount"`       // Gold each player must hold to sit down
	Tick            int64                       `json:"tick"`             // Current tick of the match
	ResponseTimeout int64                       `json:"response_timeout"` // Ticks a bid waits for an answer; zero disables
	BidTick         int64                       `json:"bid_tick"`         // Tick of the bid awaiting an answer, zero if none
	Presences       map[string]runtime.Presence `json:"-"`                // Map UserId -> Presence for targeted messaging
	App             *app.Service                `json:"-"`
	Match           *domain.Match               `json:"-"` // nil until the first start
	Economy         ports.EconomyPort           `json:"-"`
	Sessions        ports.SessionStore          `json:"-"`
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetOccupiedSeatCount() int {
	return len(ms.seatedPlayers())
}

// seatedPlayers returns the occupied seats in seat order.
func (ms *MatchState) seatedPlayers() []string {
	var players []string
	for _, seat := range ms.Seats {
		if seat != "" {
			players = append(players, seat)
		}
	}
	return players
}

func (ms *MatchState) seatOf(userID string) int {
	if userID == "" {
		return -1
	}
	for i, seat := range ms.Seats {
		if seat == userID {
			return i
		}
	}
	return -1
}

// inGame reports whether a match is being played; seats are locked meanwhile.
func (ms *MatchState) inGame() bool {
	return ms.Match != nil && ms.Match.State() == domain.MatchInProgress
}

func (ms *MatchState) phase() string {
	switch {
	case ms.inGame():
		return PhasePlaying
	case ms.Match != nil && ms.Match.State() == domain.MatchGameEnd:
		return PhaseEnded
	default:
		return PhaseLobby
	}
}

// findFirstSeat returns the first occupied seat index or -1 if none exist.
func findFirstSeat(seats []string) int {
	for i, userID := range seats {
		if userID != "" {
			return i
		}
	}
	return -1
}

type matchHandler struct {
	publisher ports.ResultPublisher
}

func newMatchHandler(publisher ports.ResultPublisher) *matchHandler {
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	return &matchHandler{publisher: publisher}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	if err := config.LoadGameConfig(gameConfigPath); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	roomID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	tier, _ := params["bet_tier"].(string)

	state := &MatchState{
		Seats:           make([]string, config.ResolveSeats(paramInt(params["seats"]))),
		OwnerSeat:       -1,
		RoomID:          roomID,
		ScoreLimit:      config.ResolveScoreLimit(paramInt(params["score_limit"])),
		BetAmount:       config.GetBaseBet(tier),
		Tick:            time.Now().Unix(),
		ResponseTimeout: int64(config.ResponseTimeout() / time.Second),
		Presences:       make(map[string]runtime.Presence),
		App:             app.NewService(nil),
		Economy:         NewNakamaEconomyAdapter(nk),
		Sessions:        NewNakamaSessionStore(nk),
	}

	label, err := marshalLabel(labelFor(state))
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1 // response timeouts are counted in ticks
	return state, tickRate, label
}

func paramInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	userID := presence.GetUserId()
	if matchState.seatOf(userID) >= 0 {
		// Seated players may always come back, including mid-game.
		return state, true, ""
	}
	if matchState.inGame() {
		return state, false, "Match in progress"
	}
	if matchState.GetOpenSeatsCount() <= 0 {
		return state, false, "Match full"
	}

	if err := app.CheckBalances(ctx, matchState.Economy, []string{userID}, matchState.BetAmount); err != nil {
		logger.Info("MatchJoinAttempt: Rejecting %s: %v", userID, err)
		if errors.Is(err, app.ErrInsufficientBalance) {
			return state, false, "Insufficient balance"
		}
		return state, false, "Balance unavailable"
	}

	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	var rejoined []string
	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p

		seat := matchState.seatOf(userID)
		if seat >= 0 {
			logger.Info("MatchJoin: User %s rejoined seat %d.", userID, seat)
			rejoined = append(rejoined, userID)
		} else {
			for i, seatUserID := range matchState.Seats {
				if seatUserID == "" {
					matchState.Seats[i] = userID
					seat = i
					break
				}
			}
		}
		if seat < 0 {
			logger.Warn("MatchJoin: User %s joined but no seat was available.", userID)
			continue
		}
		mh.saveSession(ctx, matchState, logger, userID, seat)
	}

	if matchState.OwnerSeat < 0 || matchState.Seats[matchState.OwnerSeat] == "" {
		matchState.OwnerSeat = findFirstSeat(matchState.Seats)
		if matchState.OwnerSeat >= 0 {
			logger.Debug("MatchJoin: Owner set to seat %d.", matchState.OwnerSeat)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastMatchState(matchState, dispatcher, logger, OpPlayerJoined)

	for _, userID := range rejoined {
		mh.sendView(matchState, dispatcher, logger, userID)
	}

	return matchState
}

// MatchLeave is called when one or more players leave the match. Seats of a
// running game are kept so the player can rejoin.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)
		if matchState.inGame() {
			logger.Debug("MatchLeave: User %s disconnected mid-game, seat kept.", userID)
			continue
		}

		if seat := matchState.seatOf(userID); seat >= 0 {
			matchState.Seats[seat] = ""
			logger.Debug("MatchLeave: User %s left, seat %d freed.", userID, seat)
		}
		mh.deleteSession(ctx, matchState, logger, userID)
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating match with nobody connected.")
		mh.endGame(ctx, matchState, dispatcher, logger)
		return nil
	}

	if matchState.OwnerSeat < 0 || matchState.Seats[matchState.OwnerSeat] == "" {
		matchState.OwnerSeat = findFirstSeat(matchState.Seats)
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastMatchState(matchState, dispatcher, logger, OpPlayerLeft)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch op := msg.GetOpCode(); op {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpRequestState:
			mh.sendView(matchState, dispatcher, logger, msg.GetUserId())
		default:
			if _, ok := opEvents[op]; !ok {
				logger.Warn("MatchLoop: Unknown opcode received: %d", op)
				continue
			}
			mh.handleGameEvent(ctx, matchState, dispatcher, logger, msg)
		}
	}

	mh.checkResponseTimeout(ctx, matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := state.seatOf(senderID)

	logger.Info("StartGame: Request received from %s (seat=%d, owner_seat=%d, occupied=%d)", senderID, senderSeat, state.OwnerSeat, state.GetOccupiedSeatCount())

	request, err := decodeMessage(msg.GetData())
	if err != nil {
		logger.Warn("StartGame: Invalid request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error(), nil)
		return
	}

	if senderSeat < 0 || senderSeat != state.OwnerSeat {
		logger.Warn("StartGame: User %s tried to start game but is not owner (owner_seat=%d)", senderID, state.OwnerSeat)
		mh.sendError(state, dispatcher, logger, senderID, 403, "only the room owner can start the game", nil)
		return
	}
	if state.inGame() {
		mh.sendError(state, dispatcher, logger, senderID, 409, "game already running", nil)
		return
	}

	players := state.seatedPlayers()
	if len(players) < domain.MinPlayers || len(players) < len(state.Seats) {
		logger.Warn("StartGame: Cannot start with %d of %d seats filled.", len(players), len(state.Seats))
		mh.sendError(state, dispatcher, logger, senderID, 400, "waiting for every seat to be filled", nil)
		return
	}

	if limit := intField(request, "score_limit"); limit > 0 {
		state.ScoreLimit = config.ResolveScoreLimit(limit)
	}

	if err := app.CheckBalances(ctx, state.Economy, players, state.BetAmount); err != nil {
		logger.Warn("StartGame: Balance check failed: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, 402, err.Error(), nil)
		return
	}

	if state.Match == nil {
		state.Match = state.App.NewMatch(state.RoomID, players, state.ScoreLimit, state.BetAmount)
	}
	events, err := state.App.StartGame(state.Match, players, state.ScoreLimit)
	if err != nil {
		logger.Error("StartGame: Failed to start game: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error(), nil)
		return
	}
	state.BidTick = 0

	for i, userID := range state.Seats {
		if userID != "" {
			mh.saveSession(ctx, state, logger, userID, i)
		}
	}

	mh.updateLabel(state, dispatcher, logger)
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}

	logger.Info("StartGame: Game %s started with %d players.", state.Match.ID(), len(players))
}

func (mh *matchHandler) handleGameEvent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if !state.inGame() {
		logger.Warn("handleGameEvent: Game not started.")
		mh.sendError(state, dispatcher, logger, senderID, 409, "game not started", nil)
		return
	}
	if state.seatOf(senderID) < 0 {
		logger.Warn("handleGameEvent: User %s is not seated.", senderID)
		return
	}

	request, err := decodeMessage(msg.GetData())
	if err != nil {
		logger.Warn("handleGameEvent: Invalid message from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error(), nil)
		return
	}
	ev, err := eventFromMessage(msg.GetOpCode(), senderID, request)
	if err != nil {
		logger.Warn("handleGameEvent: Bad opcode %d payload from %s: %v", msg.GetOpCode(), senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error(), nil)
		return
	}

	mh.dispatch(ctx, state, dispatcher, logger, ev)
}

// dispatch applies ev, redeals after a finished hand and fans the events out.
func (mh *matchHandler) dispatch(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev domain.Event) bool {
	events, err := state.App.Dispatch(state.Match, ev)
	if err != nil {
		var legal []domain.Action
		var rejected *app.RejectedError
		if errors.As(err, &rejected) {
			legal = rejected.Legal
		}
		logger.Warn("dispatch: User %s %s rejected: %v", ev.PlayerID, ev.Type, err)
		mh.sendError(state, dispatcher, logger, ev.PlayerID, 400, err.Error(), legal)
		return false
	}

	next, err := state.App.Advance(state.Match)
	if err != nil {
		logger.Error("dispatch: Failed to deal next hand: %v", err)
	}
	events = append(events, next...)

	for _, e := range events {
		if e.Kind == app.EventBidPlaced {
			state.BidTick = state.Tick
		}
		mh.broadcastEvent(state, dispatcher, logger, e)
	}
	if snap := state.Match.Snapshot(); snap.Envido == nil && snap.Truco == nil {
		state.BidTick = 0
	}

	if err := app.PublishResults(ctx, mh.publisher, state.RoomID, events); err != nil {
		logger.Warn("dispatch: Failed to publish results: %v", err)
	}
	return true
}

// checkResponseTimeout declines a bid on the responder's behalf once it has
// waited ResponseTimeout ticks.
func (mh *matchHandler) checkResponseTimeout(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.ResponseTimeout <= 0 || state.BidTick == 0 || !state.inGame() {
		return
	}
	if state.Tick-state.BidTick < state.ResponseTimeout {
		return
	}

	responder := state.Match.Hand().CurrentTurn()
	logger.Info("checkResponseTimeout: %s did not answer within %d ticks, declining.", responder, state.ResponseTimeout)
	if !mh.dispatch(ctx, state, dispatcher, logger, domain.Event{Type: domain.EventDecline, PlayerID: responder}) {
		state.BidTick = 0
	}
}

// endGame closes a running match so its result is still published.
func (mh *matchHandler) endGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if !state.inGame() {
		return
	}
	events, err := state.App.Dispatch(state.Match, domain.Event{Type: domain.EventEndGame})
	if err != nil {
		logger.Error("endGame: %v", err)
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	if err := app.PublishResults(ctx, mh.publisher, state.RoomID, events); err != nil {
		logger.Warn("endGame: Failed to publish results: %v", err)
	}
}

func (mh *matchHandler) broadcastMatchState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, opCode int64) {
	players := make([]map[string]interface{}, 0, len(state.Seats))
	for i, userID := range state.Seats {
		if userID == "" {
			continue
		}
		displayName := userID
		p, connected := state.Presences[userID]
		if connected {
			displayName = p.GetUsername()
		}
		score := 0
		if state.Match != nil {
			score = state.Match.Score(userID)
		}
		players = append(players, map[string]interface{}{
			"user_id":      userID,
			"seat":         i,
			"is_owner":     i == state.OwnerSeat,
			"display_name": displayName,
			"connected":    connected,
			"score":        score,
		})
	}

	snapshot := map[string]interface{}{
		"seats":       state.Seats,
		"owner_seat":  state.OwnerSeat,
		"tick":        state.Tick,
		"phase":       state.phase(),
		"score_limit": state.ScoreLimit,
		"bet_amount":  state.BetAmount,
		"players":     players,
	}
	bytes, err := encodeMessage(snapshot)
	if err != nil {
		logger.Error("broadcastMatchState: %v", err)
		return
	}
	dispatcher.BroadcastMessage(opCode, bytes, nil, nil, true)
}

var eventOpCodes = map[app.EventKind]int64{
	app.EventGameStarted:   OpGameStarted,
	app.EventHandDealt:     OpHandDealt,
	app.EventCardPlayed:    OpCardPlayed,
	app.EventBidPlaced:     OpBidPlaced,
	app.EventBidAnswered:   OpBidAnswered,
	app.EventPlayerForfeit: OpPlayerForfeit,
	app.EventScoreUpdated:  OpScoreUpdated,
	app.EventHandEnded:     OpHandEnded,
	app.EventHandReset:     OpHandReset,
	app.EventGameEnded:     OpGameEnded,
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, ok := eventOpCodes[ev.Kind]
	if !ok {
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	switch p := ev.Payload.(type) {
	case app.HandEndedPayload:
		logger.Debug("Event: hand_ended (trick_winner=%s, points=%v)", p.TrickWinner, p.Points)
	case app.GameEndedPayload:
		logger.Info("Event: game_ended (match=%s, winner=%s, scores=%v)", p.MatchID, p.Winner, p.Scores)
		mh.updateLabel(state, dispatcher, logger)
	}

	bytes, err := encodeMessage(ev.Payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// Private events whose recipients are disconnected must not fall back
		// to a broadcast.
		if len(recipients) == 0 {
			return
		}
	}

	dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true)
}

// sendView sends the player their own projection of the match.
func (mh *matchHandler) sendView(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string) {
	if state.Match == nil {
		mh.broadcastMatchState(state, dispatcher, logger, OpPlayerJoined)
		return
	}
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send view to %s: Presence not found", userID)
		return
	}
	bytes, err := encodeMessage(state.App.View(state.Match, userID))
	if err != nil {
		logger.Error("Failed to marshal view: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpPlayerView, bytes, []runtime.Presence{presence}, nil, true)
}

// sendError sends an error event with the player's legal moves to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string, legal []domain.Action) {
	if legal == nil {
		legal = []domain.Action{}
	}
	bytes, err := encodeMessage(map[string]interface{}{
		"code":          code,
		"message":       message,
		"legal_actions": legal,
	})
	if err != nil {
		logger.Error("Failed to marshal error event: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(OpGameError, bytes, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) saveSession(ctx context.Context, state *MatchState, logger runtime.Logger, userID string, seat int) {
	if state.Sessions == nil {
		return
	}
	s := ports.Session{
		UserID:    userID,
		RoomID:    state.RoomID,
		Seat:      seat,
		UpdatedAt: time.Now().Unix(),
	}
	if state.Match != nil {
		s.MatchID = state.Match.ID()
	}
	if err := state.Sessions.Save(ctx, s); err != nil {
		logger.Warn("saveSession: Failed to save session for %s: %v", userID, err)
	}
}

func (mh *matchHandler) deleteSession(ctx context.Context, state *MatchState, logger runtime.Logger, userID string) {
	if state.Sessions == nil {
		return
	}
	if err := state.Sessions.Delete(ctx, userID); err != nil {
		logger.Warn("deleteSession: Failed to delete session for %s: %v", userID, err)
	}
}

func labelFor(state *MatchState) matchLabel {
	return matchLabel{
		Game:       gameLabel,
		Open:       state.GetOpenSeatsCount(),
		Seats:      len(state.Seats),
		Phase:      state.phase(),
		ScoreLimit: state.ScoreLimit,
		BetAmount:  state.BetAmount,
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := marshalLabel(labelFor(state))
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d grace seconds", graceSeconds)
	if matchState, ok := state.(*MatchState); ok {
		mh.endGame(ctx, matchState, dispatcher, logger)
	}
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
