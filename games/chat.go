/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the longest chat message accepted, in runes.
const MaxMessageLength = 255

// ChatMessage is one chat line.
type ChatMessage struct {
	SenderID PlayerID `json:"senderId"`
	Message  string   `json:"message"`
}

// Chat holds the three append-only logs of a room. It is created and destroyed
// together with its room and is only touched under that room's lock.
type Chat struct {
	RoomID RoomID
	Red    []ChatMessage
	Blue   []ChatMessage
	Global []ChatMessage
}

func newChat(id RoomID) *Chat {
	return &Chat{RoomID: id}
}

func validMessage(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty message", ErrInvalidMessage)
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidMessage, MaxMessageLength)
	}

	return text, nil
}

func (c *Chat) appendTeam(team Team, msg ChatMessage) error {
	switch team {
	case TeamRed:
		c.Red = append(c.Red, msg)
	case TeamBlue:
		c.Blue = append(c.Blue, msg)
	default:
		return fmt.Errorf("%w: player %s has no team", ErrChatUnavailable, msg.SenderID)
	}

	return nil
}

func (c *Chat) appendGlobal(msg ChatMessage) {
	c.Global = append(c.Global, msg)
}

// team returns a copy of the log for team, nil for TeamNone.
func (c *Chat) team(team Team) []ChatMessage {
	switch team {
	case TeamRed:
		return copyMessages(c.Red)
	case TeamBlue:
		return copyMessages(c.Blue)
	default:
		return nil
	}
}

func (c *Chat) global() []ChatMessage {
	return copyMessages(c.Global)
}

func copyMessages(msgs []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, len(msgs))
	copy(out, msgs)

	return out
}
