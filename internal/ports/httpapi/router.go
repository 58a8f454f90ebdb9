package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"truco/internal/app"
	"truco/internal/domain"
)

const claimsKey = "seat_claims"

// Server exposes a Registry over HTTP.
type Server struct {
	rooms  *app.Registry
	tokens *app.TokenService
}

type createRoomRequest struct {
	RoomID     string   `json:"room_id"`
	Players    []string `json:"players" binding:"required"`
	ScoreLimit int      `json:"score_limit"`
	BetAmount  int64    `json:"bet_amount"`
}

type eventRequest struct {
	Type string `json:"type" binding:"required"`
	Card string `json:"card"`
}

type eventBody struct {
	Kind    app.EventKind `json:"kind"`
	Payload any           `json:"payload"`
}

// SetupRouter builds the gin engine serving rooms.
func SetupRouter(rooms *app.Registry, tokens *app.TokenService) *gin.Engine {
	s := &Server{rooms: rooms, tokens: tokens}
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"rooms":  s.rooms.Len(),
		})
	})

	r.POST("/rooms", s.createRoom)
	r.GET("/rooms/:id", s.getRoom)
	r.DELETE("/rooms/:id", s.deleteRoom)
	r.POST("/rooms/:id/restart", s.restartRoom)

	seated := r.Group("/rooms/:id", s.requireSeat)
	seated.POST("/events", s.postEvent)
	seated.GET("/view", s.getView)

	return r
}

func (s *Server) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.rooms.Create(c.Request.Context(), app.CreateRoomRequest{
		RoomID:     req.RoomID,
		Players:    req.Players,
		ScoreLimit: req.ScoreLimit,
		BetAmount:  req.BetAmount,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	tokens := make(map[string]string, len(req.Players))
	for seat, p := range req.Players {
		token, err := s.tokens.Issue(res.RoomID, p, seat)
		if err != nil {
			writeError(c, err)
			return
		}
		tokens[p] = token
	}

	snap, _ := s.rooms.Snapshot(res.RoomID)
	c.JSON(http.StatusCreated, gin.H{
		"room_id":  res.RoomID,
		"match_id": snap.Match.ID,
		"tokens":   tokens,
	})
}

// getRoom returns the public state; hands stay hidden.
func (s *Server) getRoom(c *gin.Context) {
	snap, err := s.rooms.Snapshot(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if snap.Hand != nil {
		counts := make(map[string]int, len(snap.Hand.Hands))
		for id, cards := range snap.Hand.Hands {
			counts[id] = len(cards)
		}
		snap.Hand.Hands = nil
		c.JSON(http.StatusOK, gin.H{"state": snap, "cards_in_hand": counts})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": snap})
}

func (s *Server) deleteRoom(c *gin.Context) {
	res, err := s.rooms.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": res.RoomID, "events": eventBodies(res.Events)})
}

func (s *Server) restartRoom(c *gin.Context) {
	res, err := s.rooms.Restart(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": res.RoomID, "events": eventBodies(res.Events)})
}

// requireSeat checks the bearer token against the room in the path.
func (s *Server) requireSeat(c *gin.Context) {
	raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if claims.RoomID != c.Param("id") {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is for another room"})
		return
	}
	c.Set(claimsKey, claims)
	c.Next()
}

func playerID(c *gin.Context) string {
	return c.MustGet(claimsKey).(*app.SeatClaims).Subject
}

func (s *Server) postEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	typ, ok := domain.ParseEventType(req.Type)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type " + req.Type})
		return
	}

	ev := domain.Event{Type: typ, PlayerID: playerID(c)}
	if typ == domain.EventPlayCard {
		card, err := domain.ParseCard(req.Card)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ev.Card = &card
	}

	roomID := c.Param("id")
	res, err := s.rooms.Dispatch(c.Request.Context(), roomID, ev)
	if err != nil {
		writeError(c, err)
		return
	}
	if res.PublishErr != nil {
		c.Error(res.PublishErr)
	}

	view, err := s.rooms.View(roomID, ev.PlayerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": eventBodies(visibleTo(res.Events, ev.PlayerID)),
		"view":   view,
	})
}

func (s *Server) getView(c *gin.Context) {
	view, err := s.rooms.View(c.Param("id"), playerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// visibleTo drops private events addressed to other players.
func visibleTo(events []app.Event, userID string) []app.Event {
	out := make([]app.Event, 0, len(events))
	for _, ev := range events {
		if len(ev.Recipients) == 0 {
			out = append(out, ev)
			continue
		}
		for _, r := range ev.Recipients {
			if r == userID {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}

func eventBodies(events []app.Event) []eventBody {
	out := make([]eventBody, 0, len(events))
	for _, ev := range events {
		out = append(out, eventBody{Kind: ev.Kind, Payload: ev.Payload})
	}
	return out
}

func writeError(c *gin.Context, err error) {
	var rejected *app.RejectedError
	switch {
	case errors.Is(err, domain.ErrInvalidMatchConfig), errors.Is(err, app.ErrNotPlayerEvent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &rejected):
		legal := rejected.Legal
		if legal == nil {
			legal = []domain.Action{}
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "legal_actions": legal})
	case errors.Is(err, app.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrRoomExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrUnknownPlayer):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
