package ws

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/google/uuid"

	"github.com/viewcall/chatrelay/internal/domain"
	"github.com/viewcall/chatrelay/internal/infrastructure/logging"
)

const defaultSendBuffer = 64

// Session is one live websocket connection. It starts out as a guest and
// may later be bound to a verified or self-declared identity. Room
// membership is owned by the Registry; the session only carries its own
// outbound queue and identity.
type Session struct {
	ID   string
	conn Conn
	send chan *Event

	log logging.Logger

	mu       sync.RWMutex
	identity domain.Identity
	bound    bool

	closeOnce sync.Once
}

func NewSession(conn Conn, log logging.Logger, sendBuffer int) *Session {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}

	return &Session{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan *Event, sendBuffer),
		log:  log,
	}
}

// Identity returns the bound identity, or a guest identity derived from the
// session id when nothing has been bound yet.
func (s *Session) Identity() domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.bound {
		return domain.GuestIdentity(s.ID)
	}

	return s.identity
}

// Bound reports whether an identity has been attached to this session.
func (s *Session) Bound() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bound
}

// Bind attaches a verified identity to the session.
func (s *Session) Bind(identity domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = identity
	s.bound = true
}

// BindName attaches a self-declared display name, keeping any previously
// bound id and falling back to the session id otherwise.
func (s *Session) BindName(name string) {
	if name == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity.ID == "" {
		s.identity.ID = s.ID
	}
	s.identity.Name = name
	s.bound = true
}

// Send queues an event for delivery. Slow consumers are not allowed to
// stall the relay: when the buffer is full the event is dropped.
func (s *Session) Send(ev *Event) {
	defer func() {
		// Send raced a closed channel; the session is already gone.
		_ = recover()
	}()

	select {
	case s.send <- ev:
	default:
		s.log.Warn(logging.WebSocket, logging.Relay, "send buffer full, dropping event", map[logging.ExtraKey]any{
			logging.ConnectionID: s.ID,
			logging.EventName:    ev.Event,
		})
	}
}

// CloseSend closes the outbound queue exactly once, terminating WritePump.
func (s *Session) CloseSend() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

// ReadPump consumes inbound frames and dispatches them until the peer goes
// away, then reports the disconnect.
func (s *Session) ReadPump(c *Coordinator) {
	defer func() {
		c.HandleDisconnect(context.Background(), s)
		_ = s.conn.Close()
	}()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn(logging.WebSocket, logging.Transport, "read error", map[logging.ExtraKey]any{
					logging.ConnectionID: s.ID,
					logging.ErrorMessage: err.Error(),
				})
			}
			break
		}

		c.HandleFrame(context.Background(), s, raw)
	}
}

// WritePump drains the outbound queue onto the wire.
func (s *Session) WritePump() {
	defer func() {
		_ = s.conn.Close()
	}()

	for ev := range s.send {
		if err := s.conn.WriteJSON(ev); err != nil {
			s.log.Warn(logging.WebSocket, logging.Transport, "write error", map[logging.ExtraKey]any{
				logging.ConnectionID: s.ID,
				logging.ErrorMessage: err.Error(),
			})
			break
		}
	}
}
