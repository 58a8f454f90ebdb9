package domain

import "sort"

// trucoRanks holds card-specific truco ranks; rankByValue covers the rest.
var trucoRanks = map[Card]int{
	{Suit: SuitSwords, Rank: 1}: 14,
	{Suit: SuitClubs, Rank: 1}:  13,
	{Suit: SuitSwords, Rank: 7}: 12,
	{Suit: SuitCoins, Rank: 7}:  11,
}

var rankByValue = map[int]int{
	3:  10,
	2:  9,
	1:  8, // coins and cups
	12: 7,
	11: 6,
	10: 5,
	7:  4, // cups and clubs
	6:  3,
	5:  2,
	4:  1,
}

// TrucoRank returns the trick-taking strength of a card. Higher wins.
func TrucoRank(card Card) int {
	if r, ok := trucoRanks[card]; ok {
		return r
	}
	return rankByValue[card.Rank]
}

// EnvidoFaceValue is the envido worth of a single card; face cards count zero.
func EnvidoFaceValue(card Card) int {
	if card.Rank >= 10 {
		return 0
	}
	return card.Rank
}

// EnvidoValue computes the envido of a hand: 20 plus the two best face values
// of any suit holding at least two cards, otherwise the best single face value.
func EnvidoValue(hand []Card) int {
	bySuit := make(map[Suit][]int, len(Suits))
	for _, c := range hand {
		bySuit[c.Suit] = append(bySuit[c.Suit], EnvidoFaceValue(c))
	}

	best := 0
	for _, values := range bySuit {
		sort.Sort(sort.Reverse(sort.IntSlice(values)))
		v := values[0]
		if len(values) >= 2 {
			v = 20 + values[0] + values[1]
		}
		if v > best {
			best = v
		}
	}
	return best
}

// RoundWinner returns the player whose card ranks highest. A shared top rank
// is a tie and ok is false.
func RoundWinner(plays []CardPlay) (string, bool) {
	if len(plays) == 0 {
		return "", false
	}
	best := plays[0]
	tied := false
	for _, p := range plays[1:] {
		switch r := TrucoRank(p.Card); {
		case r > TrucoRank(best.Card):
			best = p
			tied = false
		case r == TrucoRank(best.Card):
			tied = true
		}
	}
	if tied {
		return "", false
	}
	return best.PlayerID, true
}

// roundResult is the outcome of one complete round.
type roundResult struct {
	winner string
	tied   bool
}

// completeRounds groups plays into rounds of playerCount and resolves each one.
func completeRounds(plays []CardPlay, playerCount int) []roundResult {
	if playerCount <= 0 {
		return nil
	}
	rounds := make([]roundResult, 0, len(plays)/playerCount)
	for i := 0; i+playerCount <= len(plays); i += playerCount {
		winner, ok := RoundWinner(plays[i : i+playerCount])
		rounds = append(rounds, roundResult{winner: winner, tied: !ok})
	}
	return rounds
}

// HandWinner returns the winner of the card tricks: two round wins take the
// hand; a tied first round is settled by the second; otherwise the mano wins.
func HandWinner(plays []CardPlay, players []string, startingPlayer string) string {
	rounds := completeRounds(plays, len(players))

	wins := make(map[string]int, len(players))
	for _, r := range rounds {
		if !r.tied {
			wins[r.winner]++
		}
	}
	for _, p := range players {
		if wins[p] >= 2 {
			return p
		}
	}
	if len(rounds) >= 2 && rounds[0].tied && !rounds[1].tied {
		return rounds[1].winner
	}
	return startingPlayer
}

// TrickDecided reports whether further rounds can no longer change the
// HandWinner result.
func TrickDecided(plays []CardPlay, players []string) bool {
	rounds := completeRounds(plays, len(players))
	if len(rounds) >= 3 {
		return true
	}

	wins := make(map[string]int, len(players))
	for _, r := range rounds {
		if !r.tied {
			wins[r.winner]++
			if wins[r.winner] >= 2 {
				return true
			}
		}
	}
	// A tied first round is settled by the second, won or tied.
	return len(rounds) == 2 && rounds[0].tied
}

// ForfeitPoints is what a forfeiting player concedes to each opponent. Folding
// before playerCount-1 cards reach the table costs more.
func ForfeitPoints(cardsPlayed, playerCount int) int {
	if cardsPlayed >= playerCount-1 {
		return 1
	}
	return 2
}
