/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"fmt"
	"sync"
	"time"
)

// session is the live, mutable state of one room. Every field is guarded by
// mu; lock the registry first when both locks are needed.
type session struct {
	mu sync.Mutex

	id      RoomID
	players []*Player
	chat    *Chat

	cards     []Card
	started   bool
	winner    Team
	turn      Team
	remaining int
	hint      hintSlot
	history   []HintRecord

	lastActive time.Time

	// absent holds the departure number of each player's latest disconnect.
	absent     map[PlayerID]uint64
	departures uint64

	// closed is set once the room has been removed from the registry.
	closed bool
}

func newSession(id RoomID, turn Team, now time.Time) *session {
	return &session{
		id:         id,
		chat:       newChat(id),
		turn:       turn,
		lastActive: now,
		absent:     make(map[PlayerID]uint64),
	}
}

func (s *session) player(id PlayerID) *Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}

	return nil
}

func (s *session) usedSuffix(suffix int) bool {
	for _, p := range s.players {
		if p.ID.Suffix == suffix {
			return true
		}
	}

	return false
}

func (s *session) removePlayer(id PlayerID) *Player {
	for i, p := range s.players {
		if p.ID == id {
			s.players = append(s.players[:i], s.players[i+1:]...)
			delete(s.absent, id)
			return p
		}
	}

	return nil
}

func (s *session) allInactive() bool {
	for _, p := range s.players {
		if !p.IsInactive {
			return false
		}
	}

	return true
}

// pickPosition moves p to team, optionally as its spymaster. A team has at
// most one spymaster.
func (s *session) pickPosition(p *Player, team Team, spymaster bool) error {
	if !team.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTeam, team)
	}

	if spymaster {
		for _, other := range s.players {
			if other != p && other.Team == team && other.IsSpymaster {
				return fmt.Errorf("%w: %s team already has a spymaster", ErrSettingUnavailable, team)
			}
		}
	}

	p.Team = team
	p.IsSpymaster = spymaster

	return nil
}

func (s *session) snapshot() Room {
	r := Room{
		ID:               s.id,
		Players:          make([]Player, len(s.players)),
		Cards:            make([]Card, len(s.cards)),
		IsStarted:        s.started,
		Winner:           s.winner,
		Turn:             s.turn,
		RemainingGuesses: s.remaining,
		HintHistory:      make([]HintRecord, len(s.history)),
		Phase:            s.phase(),
	}

	for i, p := range s.players {
		r.Players[i] = *p
	}
	copy(r.Cards, s.cards)
	copy(r.HintHistory, s.history)

	if h, ok := s.hint.get(); ok {
		r.CurrentHint = &h
	}

	return r
}
