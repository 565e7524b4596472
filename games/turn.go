/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"fmt"
	"strings"
)

// DefaultGuesses is the guess allowance for a hint numbered 0.
const DefaultGuesses = 8

// Phase is the position of a room in the turn cycle.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseHinting
	PhaseGuessing
	PhaseGameOver
)

var phaseNames = [...]string{"lobby", "hinting", "guessing", "game-over"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}

	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}

	return fmt.Errorf("unknown phase %q", text)
}

// hintSlot holds the hint of the current guessing cycle, if any.
type hintSlot struct {
	hint    Hint
	pending bool
}

func pendingHint(h Hint) hintSlot {
	return hintSlot{hint: h, pending: true}
}

func (s hintSlot) get() (Hint, bool) {
	return s.hint, s.pending
}

// guessBudget converts the number attached to a hint into an allowance:
// n > 0 allows n guesses, 0 allows DefaultGuesses and a negative number is
// unlimited, i.e. every card still secret.
func guessBudget(n int, secret int) int {
	switch {
	case n > 0:
		return n
	case n == 0:
		return DefaultGuesses
	default:
		return secret
	}
}

func (s *session) phase() Phase {
	switch {
	case !s.started:
		return PhaseLobby
	case s.winner != TeamNone:
		return PhaseGameOver
	case s.hint.pending:
		return PhaseGuessing
	default:
		return PhaseHinting
	}
}

func (s *session) expect(want Phase) error {
	if got := s.phase(); got != want {
		return fmt.Errorf("%w: room %s is in %s, not %s", ErrWrongPhase, s.id, got, want)
	}

	return nil
}

func (s *session) start(rz *randomizer) error {
	if err := s.expect(PhaseLobby); err != nil {
		return err
	}

	if !s.turn.Valid() {
		s.turn = rz.team()
	}

	s.cards = generateDeck(s.turn, rz)
	s.started = true
	s.remaining = 0

	return nil
}

func (s *session) giveHint(p *Player, word string, number int) error {
	if err := s.expect(PhaseHinting); err != nil {
		return err
	}
	if p.Team != s.turn || !p.IsSpymaster {
		return fmt.Errorf("%w: only the %s spymaster may give a hint", ErrNotYourTurn, s.turn)
	}

	word = strings.TrimSpace(word)
	if word == "" {
		return fmt.Errorf("%w: empty word", ErrInvalidHint)
	}

	s.hint = pendingHint(Hint{Word: word, Number: number})
	s.remaining = guessBudget(number, s.secretCards())

	return nil
}

// makeGuess reveals cards[index] and applies the consequences.
func (s *session) makeGuess(p *Player, index int) (Card, error) {
	if err := s.expect(PhaseGuessing); err != nil {
		return Card{}, err
	}
	if p.Team != s.turn {
		return Card{}, fmt.Errorf("%w: %s team is guessing", ErrNotYourTurn, s.turn)
	}
	if index < 0 || index >= len(s.cards) {
		return Card{}, fmt.Errorf("%w: index %d out of range", ErrInvalidCard, index)
	}
	if !s.cards[index].IsSecret {
		return Card{}, fmt.Errorf("%w: card %d already revealed", ErrInvalidCard, index)
	}

	s.cards[index].IsSecret = false
	card := s.cards[index]
	if s.remaining > 0 {
		s.remaining--
	}

	switch {
	case card.Colour == ColourBlack:
		s.gameOver(s.turn.Other())
	case secretCount(s.cards, ColourRed) == 0:
		s.gameOver(TeamRed)
	case secretCount(s.cards, ColourBlue) == 0:
		s.gameOver(TeamBlue)
	case s.remaining == 0 || card.Colour != s.turn.Colour():
		s.endTurn()
	}

	return card, nil
}

func (s *session) endGuessing(p *Player) error {
	if err := s.expect(PhaseGuessing); err != nil {
		return err
	}
	if p.Team != s.turn {
		return fmt.Errorf("%w: %s team is guessing", ErrNotYourTurn, s.turn)
	}

	s.endTurn()

	return nil
}

// restart returns the room to the lobby from any phase.
func (s *session) restart(rz *randomizer) {
	s.cards = nil
	s.started = false
	s.winner = TeamNone
	s.hint = hintSlot{}
	s.history = nil
	s.remaining = 0
	s.turn = rz.team()
}

func (s *session) archiveHint() {
	if h, ok := s.hint.get(); ok {
		s.history = append(s.history, HintRecord{Team: s.turn, Hint: h})
	}
	s.hint = hintSlot{}
	s.remaining = 0
}

func (s *session) endTurn() {
	s.archiveHint()
	s.turn = s.turn.Other()
}

func (s *session) gameOver(winner Team) {
	s.archiveHint()
	s.winner = winner
}

func (s *session) secretCards() int {
	n := 0
	for _, c := range s.cards {
		if c.IsSecret {
			n++
		}
	}

	return n
}
