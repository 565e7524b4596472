/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

// PickPosition places the player on team, as spymaster if requested.
func (r *Registry) PickPosition(h Handle, team Team, spymaster bool) (Room, error) {
	return r.update(h, func(s *session, p *Player) error {
		return s.pickPosition(p, team, spymaster)
	})
}

// Start deals a deck and begins the first hinting phase.
func (r *Registry) Start(h Handle) (Room, error) {
	return r.update(h, func(s *session, p *Player) error {
		if err := s.start(r.rand); err != nil {
			return err
		}

		r.log.Info().
			Stringer("room", s.id).
			Str("turn", string(s.turn)).
			Msg("started game")

		return nil
	})
}

// GiveHint records the active spymaster's hint and opens guessing.
func (r *Registry) GiveHint(h Handle, word string, number int) (Room, error) {
	return r.update(h, func(s *session, p *Player) error {
		return s.giveHint(p, word, number)
	})
}

// MakeGuess reveals the card at index and returns it alongside the room.
func (r *Registry) MakeGuess(h Handle, index int) (Room, Card, error) {
	var card Card

	room, err := r.update(h, func(s *session, p *Player) error {
		var err error

		card, err = s.makeGuess(p, index)
		if err != nil {
			return err
		}

		if s.winner != TeamNone {
			r.log.Info().
				Stringer("room", s.id).
				Str("winner", string(s.winner)).
				Msg("game over")
		}

		return nil
	})

	return room, card, err
}

// EndGuessing stops the active team's guessing early.
func (r *Registry) EndGuessing(h Handle) (Room, error) {
	return r.update(h, func(s *session, p *Player) error {
		return s.endGuessing(p)
	})
}

// Restart clears the board and returns the room to the lobby.
func (r *Registry) Restart(h Handle) (Room, error) {
	return r.update(h, func(s *session, p *Player) error {
		s.restart(r.rand)
		return nil
	})
}

// Absence identifies one disconnect of a player. A later disconnect of the
// same player supersedes it.
type Absence struct {
	Player PlayerID
	seq    uint64
}

// Disconnect marks the player behind h inactive. The player keeps its seat,
// team and id until it reconnects or leaves.
func (r *Registry) Disconnect(h Handle) (Room, Absence, error) {
	var a Absence

	room, err := r.update(h, func(s *session, p *Player) error {
		p.IsInactive = true

		s.departures++
		s.absent[p.ID] = s.departures
		a = Absence{Player: p.ID, seq: s.departures}

		return nil
	})

	return room, a, err
}
