package domain

import (
	"math/rand"
	"testing"
)

func TestNewDeck(t *testing.T) {
	deck := NewDeck()
	if len(deck) != 40 {
		t.Fatalf("len(deck) = %d, want 40", len(deck))
	}
	seen := make(map[Card]bool, len(deck))
	for _, card := range deck {
		if !card.Valid() {
			t.Fatalf("invalid card in deck: %s", card)
		}
		if seen[card] {
			t.Fatalf("duplicate card in deck: %s", card)
		}
		seen[card] = true
	}
}

func TestShuffleDeckKeepsCards(t *testing.T) {
	deck := NewDeck()
	shuffled := ShuffleDeck(deck, rand.New(rand.NewSource(7)))
	if len(shuffled) != len(deck) {
		t.Fatalf("len(shuffled) = %d, want %d", len(shuffled), len(deck))
	}
	counts := make(map[Card]int)
	for _, card := range shuffled {
		counts[card]++
	}
	for _, card := range deck {
		if counts[card] != 1 {
			t.Fatalf("card %s appears %d times after shuffle", card, counts[card])
		}
	}
	if deck[0] != (Card{Suit: SuitSwords, Rank: 1}) {
		t.Fatalf("ShuffleDeck mutated its input")
	}
}

func TestDealHands(t *testing.T) {
	deck := NewDeck()
	hands, err := DealHands(deck, 4, CardsPerPlayer)
	if err != nil {
		t.Fatalf("DealHands() error: %v", err)
	}
	if len(hands) != 4 {
		t.Fatalf("len(hands) = %d, want 4", len(hands))
	}
	for i, h := range hands {
		if len(h) != 3 {
			t.Fatalf("hand %d has %d cards, want 3", i, len(h))
		}
		if h[0] != deck[i*3] {
			t.Fatalf("hand %d starts with %s, want %s", i, h[0], deck[i*3])
		}
	}

	if _, err := DealHands(deck[:5], 2, 3); err == nil {
		t.Fatalf("expected error dealing from a short deck")
	}
	if _, err := DealHands(deck, 0, 3); err == nil {
		t.Fatalf("expected error dealing to zero players")
	}
}

func TestRemoveCard(t *testing.T) {
	hand := []Card{c(1, SuitSwords), c(4, SuitCups), c(7, SuitCoins)}
	got := RemoveCard(hand, c(4, SuitCups))
	if len(got) != 2 || HasCard(got, c(4, SuitCups)) {
		t.Fatalf("RemoveCard() = %v", got)
	}
	if len(hand) != 3 {
		t.Fatalf("RemoveCard mutated its input")
	}
	if got := RemoveCard(hand, c(5, SuitCups)); len(got) != 3 {
		t.Fatalf("removing a missing card changed the hand: %v", got)
	}
}

func TestParseCard(t *testing.T) {
	tests := []struct {
		in      string
		want    Card
		wantErr bool
	}{
		{in: "1-swords", want: c(1, SuitSwords)},
		{in: " 12-Cups ", want: c(12, SuitCups)},
		{in: "8-coins", wantErr: true},
		{in: "3-hearts", wantErr: true},
		{in: "swords", wantErr: true},
		{in: "x-clubs", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCard(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCard(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCard(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseCard(%q) = %s, want %s", tt.in, got, tt.want)
			}
			if back, _ := ParseCard(got.String()); back != got {
				t.Fatalf("String/ParseCard mismatch: %s", got)
			}
		})
	}
}
