/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import "fmt"

// Reconnection is the state handed back to a player that resumed a seat.
type Reconnection struct {
	Room     Room
	Player   Player
	Channels Channels
}

// Reconnect resumes the seat named by token on connection h. Nothing is
// created when the seat is gone.
func (r *Registry) Reconnect(token string, h Handle) (Reconnection, error) {
	id, err := ParsePlayerID(token)
	if err != nil {
		return Reconnection{}, err
	}

	room, err := r.RebindHandle(id, h)
	if err != nil {
		return Reconnection{}, err
	}

	p, ok := room.Player(id)
	if !ok || p.IsInactive || p.Handle != h {
		return Reconnection{}, fmt.Errorf("%w: player %s could not be reactivated", ErrSettingUnavailable, id)
	}

	r.log.Info().
		Stringer("room", room.ID).
		Stringer("player", id).
		Msg("reconnected")

	return Reconnection{
		Room:     room,
		Player:   p,
		Channels: channelsOf(room.ID, p.Team),
	}, nil
}
