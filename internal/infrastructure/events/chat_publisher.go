package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/viewcall/chatrelay/internal/domain"
	"github.com/viewcall/chatrelay/internal/infrastructure/messaging"
)

// ChatPublisher pushes relayed chat events onto the bus. All methods are
// best-effort from the coordinator's point of view: a publish error is the
// caller's to log, never to propagate to the connection.
type ChatPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewChatPublisher(rabbitmq *messaging.RabbitMQ) *ChatPublisher {
	return &ChatPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *ChatPublisher) publish(ctx context.Context, routingKey, roomID string, actor domain.Identity, metadata map[string]any) error {
	payload := messaging.ChatEventData{
		RoomID:    roomID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, body)
}

func (p *ChatPublisher) PublishMessageSent(ctx context.Context, msg *domain.Message) error {
	return p.publish(ctx, messaging.EventMessageSent, msg.RoomID,
		domain.Identity{ID: msg.SenderID, Name: msg.SenderName},
		map[string]any{"messageId": msg.ID, "unicast": msg.RecipientID != ""})
}

func (p *ChatPublisher) PublishMemberJoined(ctx context.Context, roomID string, actor domain.Identity) error {
	return p.publish(ctx, messaging.EventMemberJoined, roomID, actor, nil)
}

func (p *ChatPublisher) PublishMemberLeft(ctx context.Context, roomID string, actor domain.Identity) error {
	return p.publish(ctx, messaging.EventMemberLeft, roomID, actor, nil)
}

func (p *ChatPublisher) PublishMeetingEnded(ctx context.Context, meeting *domain.Meeting, actor domain.Identity) error {
	return p.publish(ctx, messaging.EventMeetingEnded, meeting.MeetingID, actor,
		map[string]any{"duration": meeting.Duration, "participants": len(meeting.Participants)})
}
