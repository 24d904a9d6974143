package events

import (
	"context"
	"encoding/json"

	"github.com/rabbitmq/amqp091-go"
	"github.com/viewcall/chatrelay/internal/domain"
	"github.com/viewcall/chatrelay/internal/infrastructure/logging"
	"github.com/viewcall/chatrelay/internal/infrastructure/messaging"
)

var routingKeyToEvent = map[string]domain.ChatEventType{
	messaging.EventMessageSent:  domain.EventMessageSent,
	messaging.EventMemberJoined: domain.EventMemberJoined,
	messaging.EventMemberLeft:   domain.EventMemberLeft,
	messaging.EventMeetingEnded: domain.EventMeetingEnded,
}

// auditConsumer folds relayed chat events into the durable audit trail.
type auditConsumer struct {
	rabbitmq *messaging.RabbitMQ
	audit    domain.AuditRepository
	log      logging.Logger
}

func NewAuditConsumer(rabbitmq *messaging.RabbitMQ, audit domain.AuditRepository, log logging.Logger) *auditConsumer {
	return &auditConsumer{
		rabbitmq: rabbitmq,
		audit:    audit,
		log:      log,
	}
}

func (c *auditConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.AuditQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		var payload messaging.ChatEventData
		if err := json.Unmarshal(msg.Body, &payload); err != nil {
			c.log.Error(logging.RabbitMQ, logging.AuditTrail, "failed to unmarshal chat event", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
			return err
		}

		eventType, ok := routingKeyToEvent[msg.RoutingKey]
		if !ok {
			// Unknown routing key; ack and move on.
			return nil
		}

		entry := domain.NewChatAuditLog(payload.RoomID, eventType, payload.Actor, payload.Metadata)
		entry.Timestamp = payload.Timestamp

		if err := c.audit.Log(ctx, entry); err != nil {
			c.log.Error(logging.Mongo, logging.AuditTrail, "failed to write audit log", map[logging.ExtraKey]any{
				logging.RoomID:       payload.RoomID,
				logging.ErrorMessage: err.Error(),
			})
			return err
		}

		return nil
	})
}
