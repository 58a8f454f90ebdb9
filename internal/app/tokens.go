package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

var ErrInvalidToken = errors.New("invalid reconnect token")

// SeatClaims bind a bearer to one seat in one room.
type SeatClaims struct {
	RoomID string `json:"room"`
	Seat   int    `json:"seat"`
	jwt.StandardClaims
}

// TokenService issues and verifies HS256 seat tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

const defaultTokenIssuer = "truco"

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		issuer: defaultTokenIssuer,
		ttl:    ttl,
	}
}

// Issue signs a token for userID sitting at seat in roomID.
func (s *TokenService) Issue(roomID, userID string, seat int) (string, error) {
	if s == nil {
		return "", fmt.Errorf("token service is nil")
	}
	if len(s.secret) == 0 {
		return "", fmt.Errorf("token secret is not configured")
	}
	if roomID == "" || userID == "" {
		return "", fmt.Errorf("room and user are required")
	}

	now := time.Now()
	claims := SeatClaims{
		RoomID: roomID,
		Seat:   seat,
		StandardClaims: jwt.StandardClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the signature and expiry and returns the claims.
func (s *TokenService) Verify(tokenString string) (*SeatClaims, error) {
	if s == nil || len(s.secret) == 0 {
		return nil, fmt.Errorf("%w: no secret configured", ErrInvalidToken)
	}
	claims := &SeatClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || claims.RoomID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
