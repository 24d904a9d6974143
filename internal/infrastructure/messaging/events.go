package messaging

import (
	"time"

	"github.com/viewcall/chatrelay/internal/domain"
)

const (
	AuditQueue      = "chat_audit"
	DeadLetterQueue = "dead_letter_queue"
)

// Routing keys - using consistent event patterns
const (
	EventMessageSent  = "message.sent"
	EventMemberJoined = "member.joined"
	EventMemberLeft   = "member.left"
	EventMeetingEnded = "meeting.ended"
)

// ChatEventData is the payload carried for every chat routing key.
type ChatEventData struct {
	RoomID    string          `json:"roomId"`
	Actor     domain.Identity `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}
