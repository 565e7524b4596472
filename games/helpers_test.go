/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var startedAt = time.Unix(0, 0)

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()

	base := []Option{WithRand(rand.New(rand.NewPCG(7, 11)))}

	return NewRegistry(append(base, opts...)...)
}

// seat creates a room for alice and has bob join it.
func seat(t *testing.T, r *Registry) (Room, PlayerID, PlayerID) {
	t.Helper()

	room, alice, err := r.CreateRoom("alice", "h-alice")
	require.NoError(t, err)

	room, bob, err := r.JoinRoom("bob", "h-bob", room.ID)
	require.NoError(t, err)

	return room, alice, bob
}

// startedSession builds a session already in the hinting phase with a fixed
// board, red to play.
func startedSession(cards ...Colour) (*session, *Player, *Player) {
	s := newSession(4242, TeamRed, startedAt)
	s.started = true
	for i, c := range cards {
		s.cards = append(s.cards, Card{ID: i, Colour: c, IsSecret: true})
	}

	spymaster := &Player{ID: PlayerID{Room: 4242, Suffix: 1}, Handle: "h1", Name: "spy", Team: TeamRed, IsSpymaster: true}
	operative := &Player{ID: PlayerID{Room: 4242, Suffix: 2}, Handle: "h2", Name: "op", Team: TeamRed}
	rival := &Player{ID: PlayerID{Room: 4242, Suffix: 3}, Handle: "h3", Name: "rival", Team: TeamBlue}
	s.players = []*Player{spymaster, operative, rival}

	return s, spymaster, operative
}

func indexOf(t *testing.T, cards []Card, colour Colour) int {
	t.Helper()

	for i, c := range cards {
		if c.IsSecret && c.Colour == colour {
			return i
		}
	}
	t.Fatalf("no secret %s card left", colour)

	return -1
}
