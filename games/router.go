/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import "fmt"

// Channel names a broadcast scope. Membership is never stored here; it is
// derived from each player's team whenever it is asked for.
type Channel string

// RoomChannel reaches every connection in a room.
func RoomChannel(id RoomID) Channel {
	return Channel(id.String())
}

// TeamChannel reaches the connections of one team in a room.
func TeamChannel(id RoomID, team Team) Channel {
	return Channel(id.String() + "-" + string(team))
}

// Channels are the subscriptions a player should hold. Team is empty while
// the player has no team.
type Channels struct {
	Team   Channel
	Global Channel
}

func channelsOf(id RoomID, team Team) Channels {
	c := Channels{Global: RoomChannel(id)}
	if team.Valid() {
		c.Team = TeamChannel(id, team)
	}

	return c
}

// ChannelsFor returns the channels player id belongs to right now.
func (r *Registry) ChannelsFor(id PlayerID) (Channels, error) {
	p, err := r.PlayerByID(id)
	if err != nil {
		return Channels{}, err
	}

	return channelsOf(id.Room, p.Team), nil
}

// ChatDelivery is a chat log together with the channel it belongs on.
type ChatDelivery struct {
	Channel  Channel
	Messages []ChatMessage
}

// ChatView is what a single player may read: its team log and the room log.
type ChatView struct {
	Team   ChatDelivery
	Global ChatDelivery
}

// SendTeamMessage appends text to the sender's team log. The returned log must
// only be published on the returned team channel.
func (r *Registry) SendTeamMessage(h Handle, text string) (ChatDelivery, error) {
	s, p, err := r.lock(h)
	if err != nil {
		return ChatDelivery{}, err
	}
	defer s.mu.Unlock()

	if !p.Team.Valid() {
		return ChatDelivery{}, fmt.Errorf("%w: player %s has no team", ErrChatUnavailable, p.ID)
	}

	text, err = validMessage(text)
	if err != nil {
		return ChatDelivery{}, err
	}

	if err := s.chat.appendTeam(p.Team, ChatMessage{SenderID: p.ID, Message: text}); err != nil {
		return ChatDelivery{}, err
	}
	s.lastActive = r.now()

	return ChatDelivery{
		Channel:  TeamChannel(s.id, p.Team),
		Messages: s.chat.team(p.Team),
	}, nil
}

// SendGlobalMessage appends text to the room-wide log.
func (r *Registry) SendGlobalMessage(h Handle, text string) (ChatDelivery, error) {
	s, p, err := r.lock(h)
	if err != nil {
		return ChatDelivery{}, err
	}
	defer s.mu.Unlock()

	text, err = validMessage(text)
	if err != nil {
		return ChatDelivery{}, err
	}

	s.chat.appendGlobal(ChatMessage{SenderID: p.ID, Message: text})
	s.lastActive = r.now()

	return ChatDelivery{
		Channel:  RoomChannel(s.id),
		Messages: s.chat.global(),
	}, nil
}

// ChatOf returns the logs visible to the player behind h.
func (r *Registry) ChatOf(h Handle) (ChatView, error) {
	s, p, err := r.lock(h)
	if err != nil {
		return ChatView{}, err
	}
	defer s.mu.Unlock()

	v := ChatView{
		Global: ChatDelivery{Channel: RoomChannel(s.id), Messages: s.chat.global()},
	}
	if p.Team.Valid() {
		v.Team = ChatDelivery{Channel: TeamChannel(s.id, p.Team), Messages: s.chat.team(p.Team)}
	}

	return v, nil
}
