package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/heroiclabs/nakama-common/runtime"

	"truco/internal/app"
	"truco/internal/config"
	"truco/internal/ports"
)

// gRPC status codes used by runtime.NewError.
const (
	codeInvalidArgument = 3
	codeNotFound        = 5
	codeInternal        = 13
	codeUnauthenticated = 16
)

// CreateRoomRequest is the optional payload of the create_room RPC. Seats is
// the table size (2-4); the game starts once every seat is taken.
type CreateRoomRequest struct {
	ScoreLimit int    `json:"score_limit"`
	Seats      int    `json:"seats"`
	BetTier    string `json:"bet_tier"`
}

// CreateRoomResponse is returned by create_room.
type CreateRoomResponse struct {
	MatchID    string `json:"match_id"`
	ScoreLimit int    `json:"score_limit"`
	Seats      int    `json:"seats"`
	BetAmount  int64  `json:"bet_amount"`
}

// RejoinResponse tells a client which room to reconnect to.
type RejoinResponse struct {
	MatchID string `json:"match_id"`
	RoomID  string `json:"room_id"`
	Seat    int    `json:"seat"`
	Token   string `json:"token,omitempty"`
}

func rpcCreateRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	var req CreateRoomRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("Invalid payload", codeInvalidArgument)
		}
	}

	scoreLimit := config.ResolveScoreLimit(req.ScoreLimit)
	seats := config.ResolveSeats(req.Seats)
	matchID, err := nk.MatchCreate(ctx, MatchNameTruco, map[string]interface{}{
		"score_limit": scoreLimit,
		"seats":       seats,
		"bet_tier":    req.BetTier,
	})
	if err != nil {
		logger.Error("rpcCreateRoom [User:%s]: Failed to create match: %v", userID, err)
		return "", err
	}

	logger.Info("rpcCreateRoom [User:%s]: Created room %s", userID, matchID)
	b, _ := json.Marshal(CreateRoomResponse{
		MatchID:    matchID,
		ScoreLimit: scoreLimit,
		Seats:      seats,
		BetAmount:  config.GetBaseBet(req.BetTier),
	})
	return string(b), nil
}

// rejoinRPC builds the rejoin RPC. sessions resolves the store for a module so
// tests can supply their own.
func rejoinRPC(sessions func(runtime.NakamaModule) ports.SessionStore) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
		if userID == "" {
			return "", runtime.NewError("Authentication required", codeUnauthenticated)
		}

		store := sessions(nk)
		if store == nil {
			return "", runtime.NewError("Sessions unavailable", codeInternal)
		}
		session, err := store.Load(ctx, userID)
		if errors.Is(err, ports.ErrSessionNotFound) {
			return "", runtime.NewError("No active room", codeNotFound)
		}
		if err != nil {
			logger.Error("rpcRejoin [User:%s]: %v", userID, err)
			return "", runtime.NewError("Internal error", codeInternal)
		}

		resp := RejoinResponse{
			MatchID: session.MatchID,
			RoomID:  session.RoomID,
			Seat:    session.Seat,
		}

		env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
		if secret := env["truco_token_secret"]; secret != "" {
			tokens := app.NewTokenService(secret, config.ReconnectTokenTTL())
			token, err := tokens.Issue(session.RoomID, userID, session.Seat)
			if err != nil {
				logger.Error("rpcRejoin [User:%s]: Failed to issue token: %v", userID, err)
				return "", runtime.NewError("Internal error", codeInternal)
			}
			resp.Token = token
		} else {
			logger.Debug("rpcRejoin: truco_token_secret not set, no token issued.")
		}

		b, _ := json.Marshal(resp)
		return string(b), nil
	}
}

func defaultSessionStore(nk runtime.NakamaModule) ports.SessionStore {
	return NewNakamaSessionStore(nk)
}
