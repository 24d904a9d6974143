package ws

import (
	"context"
	"encoding/json"

	"github.com/viewcall/chatrelay/internal/domain"
	"github.com/viewcall/chatrelay/internal/infrastructure/logging"
	"github.com/viewcall/chatrelay/internal/infrastructure/metrics"
)

const defaultHistoryLimit = 50

// EventPublisher feeds the audit trail. The coordinator treats every
// publish as best-effort.
type EventPublisher interface {
	PublishMessageSent(ctx context.Context, msg *domain.Message) error
	PublishMemberJoined(ctx context.Context, roomID string, actor domain.Identity) error
	PublishMemberLeft(ctx context.Context, roomID string, actor domain.Identity) error
	PublishMeetingEnded(ctx context.Context, meeting *domain.Meeting, actor domain.Identity) error
}

// Coordinator dispatches inbound frames to their handlers and drives the
// relay: identity binding, room membership, history replay, message
// fan-out, typing notices and meeting lifecycle.
type Coordinator struct {
	registry *Registry
	verifier domain.IdentityVerifier
	messages domain.MessageRepository
	meetings domain.MeetingRepository

	publisher EventPublisher // optional

	log logging.Logger

	historyLimit int
}

func NewCoordinator(
	registry *Registry,
	verifier domain.IdentityVerifier,
	messages domain.MessageRepository,
	meetings domain.MeetingRepository,
	publisher EventPublisher,
	log logging.Logger,
	historyLimit int,
) *Coordinator {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}

	return &Coordinator{
		registry:     registry,
		verifier:     verifier,
		messages:     messages,
		meetings:     meetings,
		publisher:    publisher,
		log:          log,
		historyLimit: historyLimit,
	}
}

// Register adds a freshly upgraded session to the registry.
func (c *Coordinator) Register(s *Session) {
	c.registry.Add(s)

	c.log.Info(logging.WebSocket, logging.Transport, "session connected", map[logging.ExtraKey]any{
		logging.ConnectionID: s.ID,
	})
}

// HandleFrame decodes one inbound frame and routes it. Malformed frames
// and unknown events are dropped; the connection stays up.
func (c *Coordinator) HandleFrame(ctx context.Context, s *Session, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.log.Debug(logging.WebSocket, logging.Transport, "malformed frame", map[logging.ExtraKey]any{
			logging.ConnectionID: s.ID,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	metrics.EventsHandled.WithLabelValues(frame.Event).Inc()

	switch frame.Event {
	case EventAuth:
		var p AuthPayload
		if decode(frame.Data, &p) {
			c.HandleAuth(ctx, s, p)
		}
	case EventJoinRoom:
		var p JoinRoomPayload
		if decode(frame.Data, &p) {
			c.HandleJoinRoom(ctx, s, p)
		}
	case EventLeaveRoom:
		var p LeaveRoomPayload
		if decode(frame.Data, &p) {
			c.HandleLeaveRoom(ctx, s, p.RoomID)
		}
	case EventSendMessage:
		var p SendMessagePayload
		if decode(frame.Data, &p) {
			c.HandleSendMessage(ctx, s, p)
		}
	case EventTyping:
		var p TypingPayload
		if decode(frame.Data, &p) {
			c.HandleTyping(s, p)
		}
	case EventGetRoomUsers:
		var p GetRoomUsersPayload
		if decode(frame.Data, &p) {
			c.HandleRoomUsers(s, p.RoomID, frame.AckID)
		}
	case EventEndMeeting:
		var p EndMeetingPayload
		if decode(frame.Data, &p) {
			c.HandleEndMeeting(ctx, s, p)
		}
	default:
		c.log.Debug(logging.WebSocket, logging.Transport, "unknown event", map[logging.ExtraKey]any{
			logging.ConnectionID: s.ID,
			logging.EventName:    frame.Event,
		})
	}
}

func decode(data json.RawMessage, v any) bool {
	if len(data) == 0 {
		return true
	}

	return json.Unmarshal(data, v) == nil
}

// HandleAuth binds an identity to the session. A credential is verified
// first; when that yields nothing, a self-declared username is accepted.
// Both absent means the bind fails and the session stays a guest.
func (c *Coordinator) HandleAuth(ctx context.Context, s *Session, p AuthPayload) {
	if credential := p.Credential(); credential != "" && c.verifier != nil {
		identity, err := c.verifier.Verify(ctx, credential)
		if err != nil {
			c.log.Warn(logging.WebSocket, logging.Auth, "credential verification failed", map[logging.ExtraKey]any{
				logging.ConnectionID: s.ID,
				logging.ErrorMessage: err.Error(),
			})
		}

		if identity != nil {
			s.Bind(*identity)
			s.Send(NewAuthOK(s.Identity()))
			return
		}
	}

	if p.Username != "" {
		id := p.ID
		if id == "" {
			id = s.ID
		}

		s.Bind(domain.Identity{ID: id, Name: p.Username})
		s.Send(NewAuthOK(s.Identity()))
		return
	}

	s.Send(NewAuthFail())
}

// HandleJoinRoom adds the session to a room, records the participant on
// the room's meeting, replays recent history privately, then announces the
// updated roster and the arrival to the whole room. Re-joining an already
// joined room only re-announces the roster.
func (c *Coordinator) HandleJoinRoom(ctx context.Context, s *Session, p JoinRoomPayload) {
	if p.RoomID == "" {
		return
	}

	if p.Token != "" && !s.Bound() && c.verifier != nil {
		if identity, err := c.verifier.Verify(ctx, p.Token); err == nil && identity != nil {
			s.Bind(*identity)
		}
	}

	if p.Username != "" {
		s.BindName(p.Username)
	}

	user := s.Identity()

	if !c.registry.Join(s, p.RoomID) {
		c.broadcastRoom(p.RoomID, NewParticipants(c.registry.Roster(p.RoomID)), nil)
		return
	}

	if err := c.meetings.AddParticipant(ctx, p.RoomID, domain.Participant{UserID: user.ID, Name: user.Name}); err != nil {
		metrics.PersistFailures.WithLabelValues("meeting").Inc()
		c.log.Error(logging.WebSocket, logging.Meeting, "participant record failed", map[logging.ExtraKey]any{
			logging.RoomID:       p.RoomID,
			logging.UserID:       user.ID,
			logging.ErrorMessage: err.Error(),
		})
	}

	history, err := c.messages.RecentByRoomID(ctx, p.RoomID, c.historyLimit)
	if err != nil {
		c.log.Error(logging.WebSocket, logging.Relay, "history load failed", map[logging.ExtraKey]any{
			logging.RoomID:       p.RoomID,
			logging.ErrorMessage: err.Error(),
		})
		history = nil
	}
	s.Send(NewRoomHistory(p.RoomID, history))

	c.broadcastRoom(p.RoomID, NewParticipants(c.registry.Roster(p.RoomID)), nil)
	c.broadcastRoom(p.RoomID, NewPresence(user, ActionJoined), nil)

	if c.publisher != nil {
		if err := c.publisher.PublishMemberJoined(ctx, p.RoomID, user); err != nil {
			c.logPublishError(p.RoomID, err)
		}
	}

	c.log.Info(logging.WebSocket, logging.Presence, "joined room", map[logging.ExtraKey]any{
		logging.ConnectionID: s.ID,
		logging.RoomID:       p.RoomID,
		logging.UserID:       user.ID,
	})
}

// HandleLeaveRoom removes the session from a room and notifies the
// remaining members. Leaving a room the session is not in is a no-op.
func (c *Coordinator) HandleLeaveRoom(ctx context.Context, s *Session, roomID string) {
	if roomID == "" {
		return
	}

	if !c.registry.Leave(s, roomID) {
		return
	}

	user := s.Identity()

	c.broadcastRoom(roomID, NewPresence(user, ActionLeft), nil)
	c.broadcastRoom(roomID, NewParticipants(c.registry.Roster(roomID)), nil)

	if c.publisher != nil {
		if err := c.publisher.PublishMemberLeft(ctx, roomID, user); err != nil {
			c.logPublishError(roomID, err)
		}
	}
}

// HandleDisconnect tears the session down, leaving every joined room as if
// an explicit leave had been sent for each.
func (c *Coordinator) HandleDisconnect(ctx context.Context, s *Session) {
	rooms := c.registry.Remove(s)
	user := s.Identity()

	for _, roomID := range rooms {
		c.broadcastRoom(roomID, NewPresence(user, ActionLeft), nil)
		c.broadcastRoom(roomID, NewParticipants(c.registry.Roster(roomID)), nil)

		if c.publisher != nil {
			if err := c.publisher.PublishMemberLeft(ctx, roomID, user); err != nil {
				c.logPublishError(roomID, err)
			}
		}
	}

	c.log.Info(logging.WebSocket, logging.Transport, "session disconnected", map[logging.ExtraKey]any{
		logging.ConnectionID: s.ID,
	})
}

// HandleSendMessage persists the message, then fans it out. A message that
// fails validation or persistence is never delivered.
func (c *Coordinator) HandleSendMessage(ctx context.Context, s *Session, p SendMessagePayload) {
	msg, err := domain.NewMessage(s.Identity(), p.RoomID, p.Text, p.Meta, p.RecipientID)
	if err != nil {
		return
	}

	if err := c.messages.Append(ctx, msg); err != nil {
		metrics.PersistFailures.WithLabelValues("message").Inc()
		c.log.Error(logging.WebSocket, logging.Relay, "message persist failed", map[logging.ExtraKey]any{
			logging.RoomID:       msg.RoomID,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	ev := NewReceiveMessage(msg)

	switch {
	case p.RecipientID != "":
		c.deliverUnicast(s, p, ev)
		metrics.MessagesRelayed.WithLabelValues("unicast").Inc()
	case p.RoomID != "":
		c.broadcastRoom(p.RoomID, ev, nil)
		metrics.MessagesRelayed.WithLabelValues("room").Inc()
	default:
		for _, target := range c.registry.All() {
			target.Send(ev)
		}
		metrics.MessagesRelayed.WithLabelValues("global").Inc()
	}

	if c.publisher != nil {
		if err := c.publisher.PublishMessageSent(ctx, msg); err != nil {
			c.logPublishError(msg.RoomID, err)
		}
	}
}

// deliverUnicast scans the room when one was named, otherwise every live
// session, and delivers to each connection bound to the recipient. The
// sender always gets an echo, exactly once.
func (c *Coordinator) deliverUnicast(s *Session, p SendMessagePayload, ev *Event) {
	candidates := c.registry.All()
	if p.RoomID != "" {
		candidates = c.registry.SessionsInRoom(p.RoomID)
	}

	for _, target := range candidates {
		if target.ID == s.ID {
			continue
		}
		if target.Identity().ID == p.RecipientID || target.ID == p.RecipientID {
			target.Send(ev)
		}
	}

	s.Send(ev)
}

// HandleTyping relays a typing notice to everyone else in the room. The
// sender is excluded; their client already knows.
func (c *Coordinator) HandleTyping(s *Session, p TypingPayload) {
	if p.RoomID == "" {
		return
	}

	c.broadcastRoom(p.RoomID, NewTypingNotice(s.Identity(), p.Typing()), s)
}

// HandleRoomUsers answers a roster query with a private snapshot.
func (c *Coordinator) HandleRoomUsers(s *Session, roomID string, ackID int64) {
	s.Send(NewRoomUsers(roomID, c.registry.Roster(roomID), ackID))
}

// HandleEndMeeting closes the room's meeting record, folding in whoever is
// live right now, and announces the final record to the room.
func (c *Coordinator) HandleEndMeeting(ctx context.Context, s *Session, p EndMeetingPayload) {
	if p.MeetingID == "" {
		return
	}

	live := make([]domain.Participant, 0)
	for _, u := range c.registry.Roster(p.MeetingID) {
		live = append(live, domain.Participant{UserID: u.ID, Name: u.Name})
	}

	meeting, err := c.meetings.End(ctx, p.MeetingID, p.Duration, live)
	if err != nil {
		metrics.PersistFailures.WithLabelValues("meeting").Inc()
		c.log.Error(logging.WebSocket, logging.Meeting, "meeting close failed", map[logging.ExtraKey]any{
			logging.MeetingID:    p.MeetingID,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	c.broadcastRoom(p.MeetingID, NewMeetingEnded(meeting), nil)

	if c.publisher != nil {
		if err := c.publisher.PublishMeetingEnded(ctx, meeting, s.Identity()); err != nil {
			c.logPublishError(p.MeetingID, err)
		}
	}
}

func (c *Coordinator) broadcastRoom(roomID string, ev *Event, except *Session) {
	for _, target := range c.registry.SessionsInRoom(roomID) {
		if except != nil && target.ID == except.ID {
			continue
		}
		target.Send(ev)
	}
}

func (c *Coordinator) logPublishError(roomID string, err error) {
	c.log.Warn(logging.RabbitMQ, logging.AuditTrail, "event publish failed", map[logging.ExtraKey]any{
		logging.RoomID:       roomID,
		logging.ErrorMessage: err.Error(),
	})
}
