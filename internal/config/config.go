package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	defaultScoreLimit             = 30
	defaultSeats                  = 2
	minSeats                      = 2
	maxSeats                      = 4
	defaultBaseBet                = 100
	defaultResponseTimeoutSeconds = 30
	defaultReconnectTokenTTL      = 6 * 60 * 60
)

type BetTier struct {
	ID      string `json:"id"`
	BaseBet int64  `json:"base_bet"`
}

type GameConfig struct {
	DefaultScoreLimit int       `json:"default_score_limit"`
	ScoreLimits       []int     `json:"score_limits"`
	DefaultSeats      int       `json:"default_seats"`
	DefaultTier       string    `json:"default_tier"`
	Tiers             []BetTier `json:"tiers"`
	// ResponseTimeoutSeconds bounds how long an envido or truco bid waits for
	// an answer before it is declined on the responder's behalf. Zero disables it.
	ResponseTimeoutSeconds   int `json:"response_timeout_seconds"`
	ReconnectTokenTTLSeconds int `json:"reconnect_token_ttl_seconds"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		c, err := ParseGameConfig(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// ParseGameConfig decodes a configuration document without installing it.
func ParseGameConfig(data []byte) (*GameConfig, error) {
	var c GameConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if c.DefaultScoreLimit < 0 || c.ResponseTimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid game config: negative values")
	}
	return &c, nil
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetBaseBet returns the base bet for a given tier ID, or the default if not found.
func GetBaseBet(tierID string) int64 {
	return cfg.BaseBet(tierID)
}

// BaseBet resolves a tier against this configuration. Safe on a nil receiver.
func (c *GameConfig) BaseBet(tierID string) int64 {
	if c == nil {
		return defaultBaseBet
	}

	target := tierID
	if target == "" {
		target = c.DefaultTier
	}

	for _, tier := range c.Tiers {
		if tier.ID == target {
			return tier.BaseBet
		}
	}

	// Fallback to default tier if specific ID not found
	for _, tier := range c.Tiers {
		if tier.ID == c.DefaultTier {
			return tier.BaseBet
		}
	}

	return defaultBaseBet
}

// ResolveScoreLimit returns requested when it is allowed, otherwise the default.
func ResolveScoreLimit(requested int) int {
	return cfg.ResolveScoreLimit(requested)
}

// ResolveScoreLimit is the receiver form of the package function.
func (c *GameConfig) ResolveScoreLimit(requested int) int {
	def := defaultScoreLimit
	allowed := []int{15, 30}
	if c != nil {
		if c.DefaultScoreLimit > 0 {
			def = c.DefaultScoreLimit
		}
		if len(c.ScoreLimits) > 0 {
			allowed = c.ScoreLimits
		}
	}
	for _, l := range allowed {
		if l == requested {
			return requested
		}
	}
	return def
}

// ResolveSeats returns requested when it is a valid table size, otherwise the default.
func ResolveSeats(requested int) int {
	return cfg.ResolveSeats(requested)
}

func (c *GameConfig) ResolveSeats(requested int) int {
	if requested >= minSeats && requested <= maxSeats {
		return requested
	}
	if c != nil && c.DefaultSeats >= minSeats && c.DefaultSeats <= maxSeats {
		return c.DefaultSeats
	}
	return defaultSeats
}

// ResponseTimeout returns the negotiation answer timeout; zero disables it.
func ResponseTimeout() time.Duration {
	if cfg == nil {
		return defaultResponseTimeoutSeconds * time.Second
	}
	return time.Duration(cfg.ResponseTimeoutSeconds) * time.Second
}

// ReconnectTokenTTL returns how long issued reconnect tokens stay valid.
func ReconnectTokenTTL() time.Duration {
	if cfg == nil || cfg.ReconnectTokenTTLSeconds <= 0 {
		return defaultReconnectTokenTTL * time.Second
	}
	return time.Duration(cfg.ReconnectTokenTTLSeconds) * time.Second
}
