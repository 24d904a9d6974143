package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ChatEventType string

const (
	EventMessageSent  ChatEventType = "message_sent"
	EventMemberJoined ChatEventType = "member_joined"
	EventMemberLeft   ChatEventType = "member_left"
	EventMeetingEnded ChatEventType = "meeting_ended"
)

// ChatAuditLog is the durable trail entry written for every relayed chat
// event. Entries are consumed off the event bus, so a lost entry is a logged
// degradation, never a failed send.
type ChatAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	RoomID    string         `bson:"room_id" json:"roomId"`
	EventType ChatEventType  `bson:"event_type" json:"eventType"`
	Actor     Identity       `bson:"actor" json:"actor"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type AuditRepository interface {
	Log(ctx context.Context, entry *ChatAuditLog) error
	ByRoomID(ctx context.Context, roomID string, limit int) ([]ChatAuditLog, error)
	EnsureIndexes(ctx context.Context) error
}

func NewChatAuditLog(roomID string, event ChatEventType, actor Identity, metadata map[string]any) *ChatAuditLog {
	return &ChatAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: event,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}
