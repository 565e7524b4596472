/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import "math/rand/v2"

const (
	// DeckSize is the number of cards dealt per game.
	DeckSize = 20

	// MaxCardNo bounds card ids: every id is in [0, MaxCardNo).
	MaxCardNo = 279

	startingTeamCards = 8
	otherTeamCards    = 7
	blackCards        = 1
	greyCards         = DeckSize - startingTeamCards - otherTeamCards - blackCards
)

// Colour is the hidden identity of a card.
type Colour string

const (
	ColourRed   Colour = "red"
	ColourBlue  Colour = "blue"
	ColourGrey  Colour = "grey"
	ColourBlack Colour = "black"
)

// Card is one tile on the board. ID only distinguishes cards from each other.
type Card struct {
	ID       int    `json:"id"`
	Colour   Colour `json:"colour"`
	IsSecret bool   `json:"isSecret"`
}

// GenerateDeck deals a shuffled deck in which the starting team holds one
// card more than its opponent. A nil r uses the global generator.
func GenerateDeck(starting Team, r *rand.Rand) []Card {
	return generateDeck(starting, newRandomizer(r))
}

func generateDeck(starting Team, rz *randomizer) []Card {
	counts := []struct {
		colour Colour
		n      int
	}{
		{starting.Colour(), startingTeamCards},
		{starting.Other().Colour(), otherTeamCards},
		{ColourBlack, blackCards},
		{ColourGrey, greyCards},
	}

	ids := rz.Perm(MaxCardNo)[:DeckSize]

	cards := make([]Card, 0, DeckSize)
	for _, c := range counts {
		for range c.n {
			cards = append(cards, Card{
				ID:       ids[len(cards)],
				Colour:   c.colour,
				IsSecret: true,
			})
		}
	}

	// Fisher-Yates
	for i := len(cards) - 1; i > 0; i-- {
		j := rz.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}

	return cards
}

func secretCount(cards []Card, colour Colour) int {
	n := 0
	for _, c := range cards {
		if c.IsSecret && c.Colour == colour {
			n++
		}
	}

	return n
}
