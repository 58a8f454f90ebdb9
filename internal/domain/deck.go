package domain

import (
	"fmt"
	"math/rand"
)

// CardsPerPlayer is the number of cards dealt to each player per hand.
const CardsPerPlayer = 3

// NewDeck returns the ordered 40-card Spanish deck.
func NewDeck() []Card {
	deck := make([]Card, 0, len(Suits)*len(Ranks))
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// ShuffleDeck returns a shuffled copy of the given deck.
func ShuffleDeck(deck []Card, rng *rand.Rand) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// NewShuffledDeck returns a fresh 40-card permutation.
func NewShuffledDeck(rng *rand.Rand) []Card {
	return ShuffleDeck(NewDeck(), rng)
}

// DealHands slices consecutive runs of perPlayer cards for each seat.
// Cards beyond playerCount*perPlayer are left undealt.
func DealHands(deck []Card, playerCount, perPlayer int) ([][]Card, error) {
	if playerCount <= 0 || perPlayer <= 0 {
		return nil, fmt.Errorf("invalid deal: %d players x %d cards", playerCount, perPlayer)
	}
	if need := playerCount * perPlayer; need > len(deck) {
		return nil, fmt.Errorf("invalid deal: need %d cards, deck has %d", need, len(deck))
	}

	hands := make([][]Card, playerCount)
	for i := range hands {
		start := i * perPlayer
		hands[i] = append([]Card{}, deck[start:start+perPlayer]...)
	}
	return hands, nil
}

// HasCard reports whether the card is in the hand.
func HasCard(hand []Card, card Card) bool {
	for _, c := range hand {
		if c == card {
			return true
		}
	}
	return false
}

// RemoveCard removes the first occurrence of card and returns the updated hand.
func RemoveCard(hand []Card, card Card) []Card {
	updated := make([]Card, 0, len(hand))
	removed := false
	for _, c := range hand {
		if !removed && c == card {
			removed = true
			continue
		}
		updated = append(updated, c)
	}
	return updated
}
