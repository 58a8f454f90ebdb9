package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Suit is one of the four Spanish-deck suits.
type Suit string

const (
	SuitSwords Suit = "swords"
	SuitClubs  Suit = "clubs"
	SuitCoins  Suit = "coins"
	SuitCups   Suit = "cups"
)

// Suits lists every suit in deck order.
var Suits = []Suit{SuitSwords, SuitClubs, SuitCoins, SuitCups}

// Ranks lists every rank present in the 40-card deck (8 and 9 are removed).
var Ranks = []int{1, 2, 3, 4, 5, 6, 7, 10, 11, 12}

// Card is a single playing card. Two cards are equal when suit and rank match.
type Card struct {
	Suit Suit `json:"suit"`
	Rank int  `json:"rank"`
}

// CardPlay records one card placed on the table by a player.
type CardPlay struct {
	PlayerID string `json:"player_id"`
	Card     Card   `json:"card"`
}

// Valid reports whether the card exists in the 40-card deck.
func (c Card) Valid() bool {
	if !validSuit(c.Suit) {
		return false
	}
	for _, r := range Ranks {
		if r == c.Rank {
			return true
		}
	}
	return false
}

// String renders the card as "<rank>-<suit>", e.g. "1-swords".
func (c Card) String() string {
	return strconv.Itoa(c.Rank) + "-" + string(c.Suit)
}

// ParseCard parses the "<rank>-<suit>" form produced by Card.String.
func ParseCard(s string) (Card, error) {
	rankPart, suitPart, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Card{}, fmt.Errorf("invalid card %q: expected <rank>-<suit>", s)
	}
	rank, err := strconv.Atoi(rankPart)
	if err != nil {
		return Card{}, fmt.Errorf("invalid card rank %q: %w", rankPart, err)
	}
	card := Card{Suit: Suit(strings.ToLower(suitPart)), Rank: rank}
	if !card.Valid() {
		return Card{}, fmt.Errorf("invalid card %q: not in a 40-card deck", s)
	}
	return card, nil
}

func validSuit(s Suit) bool {
	for _, suit := range Suits {
		if suit == s {
			return true
		}
	}
	return false
}
