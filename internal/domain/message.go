package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultRoomID is the room a message targets when the sender gives none.
const DefaultRoomID = "global"

// Message is an immutable chat event. Append-only: one store write per send.
type Message struct {
	ID          string         `json:"id" bson:"_id"`
	RoomID      string         `json:"roomId" bson:"room_id"`
	SenderID    string         `json:"senderId" bson:"sender_id"`
	SenderName  string         `json:"senderName" bson:"sender_name"`
	RecipientID string         `json:"recipientId,omitempty" bson:"recipient_id,omitempty"`
	Text        string         `json:"text" bson:"text"`
	Meta        map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
	CreatedAt   time.Time      `json:"createdAt" bson:"created_at"`
}

// NewMessage builds a message from the sender's bound identity. An empty or
// whitespace-only text is a validation failure the caller drops silently.
func NewMessage(sender Identity, roomID, text string, meta map[string]any, recipientID string) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidInput
	}
	if roomID == "" {
		roomID = DefaultRoomID
	}

	return &Message{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		SenderID:    sender.ID,
		SenderName:  sender.Name,
		RecipientID: recipientID,
		Text:        text,
		Meta:        meta,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

type MessageRepository interface {
	// Append persists one message. It must complete before the message is
	// relayed to anyone.
	Append(ctx context.Context, message *Message) error

	// RecentByRoomID returns at most limit messages for the room, ordered
	// oldest to newest.
	RecentByRoomID(ctx context.Context, roomID string, limit int) ([]Message, error)

	// ByRoomBefore pages backwards through a room's history. A zero before
	// time means "from the latest".
	ByRoomBefore(ctx context.Context, roomID string, before time.Time, limit int) ([]Message, error)
}
