/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuessBudget(t *testing.T) {
	testCases := []struct {
		desc   string
		number int
		secret int
		want   int
	}{
		{desc: "positive", number: 2, secret: 20, want: 2},
		{desc: "zero is the default allowance", number: 0, secret: 20, want: DefaultGuesses},
		{desc: "negative is every secret card", number: -1, secret: 13, want: 13},
		{desc: "any negative", number: -7, secret: 5, want: 5},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, guessBudget(tc.number, tc.secret))
		})
	}
}

func TestTurnWrongColourEndsPhase(t *testing.T) {
	s, spy, op := startedSession(ColourRed, ColourRed, ColourBlue, ColourBlue, ColourGrey, ColourBlack)

	require.NoError(t, s.giveHint(spy, "sun", 2))
	assert.Equal(t, PhaseGuessing, s.phase())
	assert.Equal(t, 2, s.remaining)

	card, err := s.makeGuess(op, 4)
	require.NoError(t, err)
	assert.Equal(t, ColourGrey, card.Colour)

	assert.Equal(t, PhaseHinting, s.phase())
	assert.Equal(t, TeamBlue, s.turn)
	assert.Equal(t, 0, s.remaining)
	require.Len(t, s.history, 1)
	assert.Equal(t, HintRecord{Team: TeamRed, Hint: Hint{Word: "sun", Number: 2}}, s.history[0])
}

func TestTurnBudgetExhaustionEndsPhase(t *testing.T) {
	s, spy, op := startedSession(ColourRed, ColourRed, ColourRed, ColourBlue, ColourBlue, ColourBlack)

	require.NoError(t, s.giveHint(spy, "sea", 2))

	last := s.remaining
	for _, i := range []int{0, 1} {
		_, err := s.makeGuess(op, i)
		require.NoError(t, err)
		assert.LessOrEqual(t, s.remaining, last)
		assert.GreaterOrEqual(t, s.remaining, 0)
		last = s.remaining
	}

	assert.Equal(t, TeamBlue, s.turn)
	assert.Len(t, s.history, 1)
	assert.Equal(t, PhaseHinting, s.phase())
}

func TestTurnBlackCardLosesImmediately(t *testing.T) {
	for _, turn := range []Team{TeamRed, TeamBlue} {
		s, spy, op := startedSession(ColourRed, ColourBlue, ColourBlack, ColourGrey)
		s.turn = turn
		spy.Team, op.Team = turn, turn

		require.NoError(t, s.giveHint(spy, "night", -1))
		_, err := s.makeGuess(op, 2)
		require.NoError(t, err)

		assert.Equal(t, PhaseGameOver, s.phase())
		assert.Equal(t, turn.Other(), s.winner)
		assert.Equal(t, turn, s.turn)
		assert.Len(t, s.history, 1)
		_, pending := s.hint.get()
		assert.False(t, pending)
	}
}

func TestTurnColourExhaustion(t *testing.T) {
	s, spy, op := startedSession(ColourRed, ColourBlue, ColourBlue, ColourBlack)

	require.NoError(t, s.giveHint(spy, "one", 1))
	_, err := s.makeGuess(op, 0)
	require.NoError(t, err)

	assert.Equal(t, PhaseGameOver, s.phase())
	assert.Equal(t, TeamRed, s.winner)
}

func TestTurnRevealingLastOpponentCardHandsThemTheWin(t *testing.T) {
	s, spy, op := startedSession(ColourRed, ColourRed, ColourBlue, ColourBlack)

	require.NoError(t, s.giveHint(spy, "oops", 0))
	_, err := s.makeGuess(op, 2)
	require.NoError(t, err)

	assert.Equal(t, TeamBlue, s.winner)
}

func TestTurnRejections(t *testing.T) {
	s, spy, op := startedSession(ColourRed, ColourRed, ColourBlue, ColourGrey, ColourBlack)
	rival := s.players[2]

	_, err := s.makeGuess(op, 0)
	assert.ErrorIs(t, err, ErrWrongPhase)
	assert.ErrorIs(t, s.endGuessing(op), ErrWrongPhase)

	assert.ErrorIs(t, s.giveHint(op, "sun", 1), ErrNotYourTurn)
	assert.ErrorIs(t, s.giveHint(rival, "sun", 1), ErrNotYourTurn)
	assert.ErrorIs(t, s.giveHint(spy, "  ", 1), ErrInvalidHint)

	require.NoError(t, s.giveHint(spy, "sun", 3))
	assert.ErrorIs(t, s.giveHint(spy, "moon", 1), ErrWrongPhase)

	_, err = s.makeGuess(rival, 0)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	for _, i := range []int{-1, len(s.cards)} {
		_, err = s.makeGuess(op, i)
		assert.ErrorIs(t, err, ErrInvalidCard)
	}

	_, err = s.makeGuess(op, 0)
	require.NoError(t, err)
	_, err = s.makeGuess(op, 0)
	assert.ErrorIs(t, err, ErrInvalidCard)

	assert.Equal(t, 2, s.remaining, "rejected guesses must not spend the budget")
	assert.Equal(t, TeamRed, s.turn)
}

func TestTurnEndGuessing(t *testing.T) {
	s, spy, op := startedSession(ColourRed, ColourRed, ColourBlue, ColourBlack)

	require.NoError(t, s.giveHint(spy, "sun", 2))
	assert.ErrorIs(t, s.endGuessing(s.players[2]), ErrNotYourTurn)

	require.NoError(t, s.endGuessing(op))
	assert.Equal(t, TeamBlue, s.turn)
	assert.Len(t, s.history, 1)
	assert.Equal(t, PhaseHinting, s.phase())
}

func TestTurnStartAndRestart(t *testing.T) {
	rz := newRandomizer(nil)
	s := newSession(1111, TeamBlue, startedAt)

	require.NoError(t, s.start(rz))
	assert.Equal(t, PhaseHinting, s.phase())
	assert.Len(t, s.cards, DeckSize)
	assert.Equal(t, 8, secretCount(s.cards, ColourBlue))
	assert.ErrorIs(t, s.start(rz), ErrWrongPhase)

	s.winner = TeamRed
	s.history = []HintRecord{{Team: TeamBlue, Hint: Hint{Word: "x", Number: 1}}}

	s.restart(rz)
	assert.Equal(t, PhaseLobby, s.phase())
	assert.Empty(t, s.cards)
	assert.Empty(t, s.history)
	assert.Equal(t, TeamNone, s.winner)
	assert.True(t, s.turn.Valid())
}
