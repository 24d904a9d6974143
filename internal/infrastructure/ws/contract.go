package ws

import (
	"encoding/json"
	"strings"

	"github.com/viewcall/chatrelay/internal/domain"
)

// Frame is the envelope every inbound websocket message is wrapped in.
// Data stays raw until the event name tells us which payload to expect.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID int64           `json:"ackId,omitempty"`
}

// Event is the outbound envelope.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	AckID int64  `json:"ackId,omitempty"`
}

type AuthPayload struct {
	Token         string `json:"token,omitempty"`
	AuthToken     string `json:"authToken,omitempty"`
	Authorization string `json:"authorization,omitempty"`
	Username      string `json:"username,omitempty"`
	ID            string `json:"id,omitempty"`
}

// Credential returns the first non-empty credential field.
func (p AuthPayload) Credential() string {
	for _, c := range []string{p.Token, p.AuthToken, p.Authorization} {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}

	return ""
}

type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

type SendMessagePayload struct {
	RoomID      string         `json:"roomId,omitempty"`
	Text        string         `json:"text"`
	Meta        map[string]any `json:"meta,omitempty"`
	RecipientID string         `json:"recipientId,omitempty"`
}

type TypingPayload struct {
	RoomID   string `json:"roomId"`
	IsTyping *bool  `json:"isTyping,omitempty"`
}

// Typing reports the isTyping flag, defaulting to true when absent.
func (p TypingPayload) Typing() bool {
	if p.IsTyping == nil {
		return true
	}

	return *p.IsTyping
}

type EndMeetingPayload struct {
	MeetingID string `json:"meetingId"`
	Duration  int64  `json:"duration,omitempty"`
}

// GetRoomUsersPayload accepts either a bare JSON string or an object
// carrying roomId, since clients historically sent both shapes.
type GetRoomUsersPayload struct {
	RoomID string `json:"roomId"`
}

func (p *GetRoomUsersPayload) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		p.RoomID = plain
		return nil
	}

	type alias GetRoomUsersPayload

	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	p.RoomID = obj.RoomID

	return nil
}

type AuthResult struct {
	User domain.Identity `json:"user"`
}

type PresencePayload struct {
	User   domain.Identity `json:"user"`
	Action string          `json:"action"`
}

type RoomHistoryPayload struct {
	RoomID   string           `json:"roomId"`
	Messages []domain.Message `json:"messages"`
}

type TypingNotice struct {
	User     domain.Identity `json:"user"`
	IsTyping bool            `json:"isTyping"`
}

type MeetingEndedPayload struct {
	Meeting *domain.Meeting `json:"meeting"`
}

type RoomUsersPayload struct {
	RoomID string            `json:"roomId"`
	Users  []domain.Identity `json:"users"`
}

func NewAuthOK(user domain.Identity) *Event {
	return &Event{Event: EventAuthOK, Data: AuthResult{User: user}}
}

func NewAuthFail() *Event {
	return &Event{Event: EventAuthFail}
}

func NewRoomHistory(roomID string, messages []domain.Message) *Event {
	if messages == nil {
		messages = []domain.Message{}
	}

	return &Event{Event: EventRoomHistory, Data: RoomHistoryPayload{RoomID: roomID, Messages: messages}}
}

func NewPresence(user domain.Identity, action string) *Event {
	return &Event{Event: EventPresence, Data: PresencePayload{User: user, Action: action}}
}

func NewParticipants(users []domain.Identity) *Event {
	if users == nil {
		users = []domain.Identity{}
	}

	return &Event{Event: EventParticipants, Data: users}
}

func NewReceiveMessage(msg *domain.Message) *Event {
	return &Event{Event: EventReceiveMessage, Data: msg}
}

func NewTypingNotice(user domain.Identity, isTyping bool) *Event {
	return &Event{Event: EventTyping, Data: TypingNotice{User: user, IsTyping: isTyping}}
}

func NewMeetingEnded(meeting *domain.Meeting) *Event {
	return &Event{Event: EventMeetingEnded, Data: MeetingEndedPayload{Meeting: meeting}}
}

func NewRoomUsers(roomID string, users []domain.Identity, ackID int64) *Event {
	if users == nil {
		users = []domain.Identity{}
	}

	return &Event{Event: EventRoomUsers, Data: RoomUsersPayload{RoomID: roomID, Users: users}, AckID: ackID}
}
