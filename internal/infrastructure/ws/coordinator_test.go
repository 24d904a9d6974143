package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viewcall/chatrelay/internal/domain"
	"github.com/viewcall/chatrelay/internal/infrastructure/logging"
	"github.com/viewcall/chatrelay/internal/infrastructure/repository"
)

type stubConn struct{}

func (stubConn) ReadMessage() (int, []byte, error) { return 0, nil, io.EOF }
func (stubConn) WriteJSON(any) error               { return nil }
func (stubConn) Close() error                      { return nil }

type fixture struct {
	coordinator *Coordinator
	registry    *Registry
	messages    domain.MessageRepository
	meetings    domain.MeetingRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := NewRegistry()
	messages := repository.NewMessageRepository(0)
	meetings := repository.NewMeetingRepository()

	coordinator := NewCoordinator(registry, nil, messages, meetings, nil, logging.NewNopLogger(), 50)

	return &fixture{
		coordinator: coordinator,
		registry:    registry,
		messages:    messages,
		meetings:    meetings,
	}
}

func (f *fixture) newSession() *Session {
	s := NewSession(stubConn{}, logging.NewNopLogger(), 256)
	f.registry.Add(s)
	return s
}

func (f *fixture) joinAs(ctx context.Context, name, roomID string) *Session {
	s := f.newSession()
	f.coordinator.HandleAuth(ctx, s, AuthPayload{Username: name, ID: name})
	drainEvents(s)
	f.coordinator.HandleJoinRoom(ctx, s, JoinRoomPayload{RoomID: roomID})
	return s
}

// drainEvents empties the session's outbound queue. Handlers enqueue
// synchronously, so everything a handler produced is buffered by the time
// it returns.
func drainEvents(s *Session) []*Event {
	var out []*Event
	for {
		select {
		case ev := <-s.send:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventNames(events []*Event) []string {
	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.Event)
	}
	return names
}

func TestAuthBindsVerifiedUsername(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	s := f.newSession()
	f.coordinator.HandleAuth(ctx, s, AuthPayload{Username: "alice", ID: "u-alice"})

	events := drainEvents(s)
	r.Len(events, 1)
	r.Equal(EventAuthOK, events[0].Event)

	identity := s.Identity()
	r.Equal("u-alice", identity.ID)
	r.Equal("alice", identity.Name)
}

func TestAuthWithoutCredentialOrUsernameFails(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)

	s := f.newSession()
	f.coordinator.HandleAuth(context.Background(), s, AuthPayload{})

	events := drainEvents(s)
	r.Len(events, 1)
	r.Equal(EventAuthFail, events[0].Event)

	identity := s.Identity()
	r.Equal(s.ID, identity.ID)
	r.Equal(domain.GuestName, identity.Name)
}

func TestJoinRoomEmitsHistoryThenRosterThenPresence(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	seed, err := domain.NewMessage(domain.Identity{ID: "u-1", Name: "carol"}, "standup", "hello", nil, "")
	r.NoError(err)
	r.NoError(f.messages.Append(ctx, seed))

	s := f.newSession()
	f.coordinator.HandleJoinRoom(ctx, s, JoinRoomPayload{RoomID: "standup", Username: "alice"})

	events := drainEvents(s)
	r.Equal([]string{EventRoomHistory, EventParticipants, EventPresence}, eventNames(events))

	history, ok := events[0].Data.(RoomHistoryPayload)
	r.True(ok)
	r.Equal("standup", history.RoomID)
	r.Len(history.Messages, 1)
	r.Equal("hello", history.Messages[0].Text)

	presence, ok := events[2].Data.(PresencePayload)
	r.True(ok)
	r.Equal(ActionJoined, presence.Action)
	r.Equal("alice", presence.User.Name)
}

func TestJoinRoomIsIdempotent(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	s := f.joinAs(ctx, "alice", "standup")
	drainEvents(s)

	f.coordinator.HandleJoinRoom(ctx, s, JoinRoomPayload{RoomID: "standup"})

	roster := f.registry.Roster("standup")
	r.Len(roster, 1)

	// the second join only re-announces the roster
	events := drainEvents(s)
	r.Equal([]string{EventParticipants}, eventNames(events))

	meeting, err := f.meetings.GetByID(ctx, "standup")
	r.NoError(err)
	r.Len(meeting.Participants, 1)
}

func TestJoinRecordsMeetingParticipant(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	f.joinAs(ctx, "alice", "standup")
	f.joinAs(ctx, "bob", "standup")

	meeting, err := f.meetings.GetByID(ctx, "standup")
	r.NoError(err)
	r.Len(meeting.Participants, 2)
	r.True(meeting.HasParticipant("alice"))
	r.True(meeting.HasParticipant("bob"))
}

func TestRosterDeduplicatesSharedIdentity(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		s := f.newSession()
		f.coordinator.HandleAuth(ctx, s, AuthPayload{Username: "alice", ID: "u-alice"})
		f.coordinator.HandleJoinRoom(ctx, s, JoinRoomPayload{RoomID: "standup"})
	}

	roster := f.registry.Roster("standup")
	r.Len(roster, 1)
	r.Equal("u-alice", roster[0].ID)
}

func TestSendMessagePersistsThenBroadcastsToRoom(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.joinAs(ctx, "alice", "standup")
	bob := f.joinAs(ctx, "bob", "standup")
	drainEvents(alice)
	drainEvents(bob)

	f.coordinator.HandleSendMessage(ctx, alice, SendMessagePayload{RoomID: "standup", Text: "hi bob"})

	stored, err := f.messages.RecentByRoomID(ctx, "standup", 10)
	r.NoError(err)
	r.Len(stored, 1)
	r.Equal("hi bob", stored[0].Text)
	r.Equal("alice", stored[0].SenderID)

	for _, s := range []*Session{alice, bob} {
		events := drainEvents(s)
		r.Equal([]string{EventReceiveMessage}, eventNames(events))

		msg, ok := events[0].Data.(*domain.Message)
		r.True(ok)
		r.Equal("hi bob", msg.Text)
	}
}

func TestSendMessageEmptyTextIsDropped(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.joinAs(ctx, "alice", "standup")
	bob := f.joinAs(ctx, "bob", "standup")
	drainEvents(alice)
	drainEvents(bob)

	f.coordinator.HandleSendMessage(ctx, alice, SendMessagePayload{RoomID: "standup", Text: "   \t  "})

	stored, err := f.messages.RecentByRoomID(ctx, "standup", 10)
	r.NoError(err)
	r.Empty(stored)
	r.Empty(drainEvents(alice))
	r.Empty(drainEvents(bob))
}

type failingMessageRepository struct {
	domain.MessageRepository
}

func (failingMessageRepository) Append(context.Context, *domain.Message) error {
	return fmt.Errorf("store down")
}

func TestSendMessageNotRelayedWhenPersistFails(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	f.coordinator.messages = failingMessageRepository{f.messages}

	alice := f.joinAs(ctx, "alice", "standup")
	bob := f.joinAs(ctx, "bob", "standup")
	drainEvents(alice)
	drainEvents(bob)

	f.coordinator.HandleSendMessage(ctx, alice, SendMessagePayload{RoomID: "standup", Text: "lost"})

	r.Empty(drainEvents(alice))
	r.Empty(drainEvents(bob))
}

func TestSendMessageWithoutRoomReachesEveryConnection(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.joinAs(ctx, "alice", "standup")
	bob := f.joinAs(ctx, "bob", "lobby")
	lurker := f.newSession()
	drainEvents(alice)
	drainEvents(bob)

	f.coordinator.HandleSendMessage(ctx, alice, SendMessagePayload{Text: "server wide"})

	for _, s := range []*Session{alice, bob, lurker} {
		events := drainEvents(s)
		r.Equal([]string{EventReceiveMessage}, eventNames(events))
	}

	// messages without a room land in the default room's history
	stored, err := f.messages.RecentByRoomID(ctx, domain.DefaultRoomID, 10)
	r.NoError(err)
	r.Len(stored, 1)
}

func TestUnicastReachesRecipientConnectionsAndEchoesSender(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.joinAs(ctx, "alice", "standup")
	bystander := f.joinAs(ctx, "carol", "standup")

	var bobConns []*Session
	for i := 0; i < 2; i++ {
		s := f.newSession()
		f.coordinator.HandleAuth(ctx, s, AuthPayload{Username: "bob", ID: "u-bob"})
		f.coordinator.HandleJoinRoom(ctx, s, JoinRoomPayload{RoomID: "standup"})
		bobConns = append(bobConns, s)
	}

	for _, s := range append([]*Session{alice, bystander}, bobConns...) {
		drainEvents(s)
	}

	f.coordinator.HandleSendMessage(ctx, alice, SendMessagePayload{
		RoomID:      "standup",
		Text:        "psst",
		RecipientID: "u-bob",
	})

	for _, s := range bobConns {
		events := drainEvents(s)
		r.Equal([]string{EventReceiveMessage}, eventNames(events))
	}

	// sender gets exactly one echo
	r.Equal([]string{EventReceiveMessage}, eventNames(drainEvents(alice)))

	// nothing for anyone else
	r.Empty(drainEvents(bystander))
}

func TestUnicastOutsideRecipientRoomIsNotDelivered(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.joinAs(ctx, "alice", "standup")

	bob := f.newSession()
	f.coordinator.HandleAuth(ctx, bob, AuthPayload{Username: "bob", ID: "u-bob"})
	f.coordinator.HandleJoinRoom(ctx, bob, JoinRoomPayload{RoomID: "lobby"})
	drainEvents(alice)
	drainEvents(bob)

	// scoped to standup, bob is only in lobby
	f.coordinator.HandleSendMessage(ctx, alice, SendMessagePayload{
		RoomID:      "standup",
		Text:        "psst",
		RecipientID: "u-bob",
	})

	r.Empty(drainEvents(bob))
	r.Equal([]string{EventReceiveMessage}, eventNames(drainEvents(alice)))
}

func TestTypingExcludesSender(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.joinAs(ctx, "alice", "standup")
	bob := f.joinAs(ctx, "bob", "standup")
	drainEvents(alice)
	drainEvents(bob)

	f.coordinator.HandleTyping(alice, TypingPayload{RoomID: "standup"})

	r.Empty(drainEvents(alice))

	events := drainEvents(bob)
	r.Equal([]string{EventTyping}, eventNames(events))

	notice, ok := events[0].Data.(TypingNotice)
	r.True(ok)
	r.True(notice.IsTyping)
	r.Equal("alice", notice.User.Name)
}

func TestLeaveRoomNotifiesRemainingMembers(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.joinAs(ctx, "alice", "standup")
	bob := f.joinAs(ctx, "bob", "standup")
	drainEvents(alice)
	drainEvents(bob)

	f.coordinator.HandleLeaveRoom(ctx, alice, "standup")

	r.Empty(drainEvents(alice))

	events := drainEvents(bob)
	r.Equal([]string{EventPresence, EventParticipants}, eventNames(events))

	presence, ok := events[0].Data.(PresencePayload)
	r.True(ok)
	r.Equal(ActionLeft, presence.Action)

	roster, ok := events[1].Data.([]domain.Identity)
	r.True(ok)
	r.Len(roster, 1)
	r.Equal("bob", roster[0].ID)
}

func TestLeaveRoomNotJoinedIsNoOp(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.joinAs(ctx, "alice", "standup")
	bob := f.joinAs(ctx, "bob", "lobby")
	drainEvents(alice)
	drainEvents(bob)

	f.coordinator.HandleLeaveRoom(ctx, bob, "standup")

	r.Empty(drainEvents(alice))
	r.Len(f.registry.Roster("standup"), 1)
}

func TestDisconnectLeavesEveryJoinedRoom(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.joinAs(ctx, "alice", "standup")
	f.coordinator.HandleJoinRoom(ctx, alice, JoinRoomPayload{RoomID: "lobby"})

	standupPeer := f.joinAs(ctx, "bob", "standup")
	lobbyPeer := f.joinAs(ctx, "carol", "lobby")
	drainEvents(standupPeer)
	drainEvents(lobbyPeer)

	f.coordinator.HandleDisconnect(ctx, alice)

	r.Equal(2, f.registry.Count())
	r.Empty(f.registry.RoomsOf(alice))

	for _, peer := range []*Session{standupPeer, lobbyPeer} {
		events := drainEvents(peer)
		r.Equal([]string{EventPresence, EventParticipants}, eventNames(events))

		roster, ok := events[1].Data.([]domain.Identity)
		r.True(ok)
		r.Len(roster, 1)
	}
}

func TestEndMeetingFoldsLiveParticipantsAndBroadcasts(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.joinAs(ctx, "alice", "weekly")
	bob := f.joinAs(ctx, "bob", "weekly")
	drainEvents(alice)
	drainEvents(bob)

	f.coordinator.HandleEndMeeting(ctx, alice, EndMeetingPayload{MeetingID: "weekly", Duration: 1800})

	for _, s := range []*Session{alice, bob} {
		events := drainEvents(s)
		r.Equal([]string{EventMeetingEnded}, eventNames(events))

		payload, ok := events[0].Data.(MeetingEndedPayload)
		r.True(ok)
		r.Equal(int64(1800), payload.Meeting.Duration)
		r.Len(payload.Meeting.Participants, 2)
	}

	meeting, err := f.meetings.GetByID(ctx, "weekly")
	r.NoError(err)
	r.Equal(int64(1800), meeting.Duration)
}

func TestRoomUsersAnswersPrivatelyWithAck(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.joinAs(ctx, "alice", "standup")
	bob := f.joinAs(ctx, "bob", "standup")
	drainEvents(alice)
	drainEvents(bob)

	f.coordinator.HandleRoomUsers(alice, "standup", 7)

	r.Empty(drainEvents(bob))

	events := drainEvents(alice)
	r.Len(events, 1)
	r.Equal(EventRoomUsers, events[0].Event)
	r.Equal(int64(7), events[0].AckID)

	payload, ok := events[0].Data.(RoomUsersPayload)
	r.True(ok)
	r.Len(payload.Users, 2)
}

func TestHandleFrameDispatch(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	s := f.newSession()

	frame := func(event string, data any, ackID int64) []byte {
		raw, err := json.Marshal(data)
		r.NoError(err)
		b, err := json.Marshal(Frame{Event: event, Data: raw, AckID: ackID})
		r.NoError(err)
		return b
	}

	f.coordinator.HandleFrame(ctx, s, frame(EventAuth, AuthPayload{Username: "alice", ID: "u-alice"}, 0))
	f.coordinator.HandleFrame(ctx, s, frame(EventJoinRoom, JoinRoomPayload{RoomID: "standup"}, 0))
	f.coordinator.HandleFrame(ctx, s, frame(EventSendMessage, SendMessagePayload{RoomID: "standup", Text: "via frame"}, 0))

	// getRoomUsers takes a bare string as well as an object
	f.coordinator.HandleFrame(ctx, s, []byte(`{"event":"getRoomUsers","data":"standup","ackId":3}`))

	// junk must not take the session down
	f.coordinator.HandleFrame(ctx, s, []byte(`{]`))
	f.coordinator.HandleFrame(ctx, s, frame("no-such-event", nil, 0))

	names := eventNames(drainEvents(s))
	r.Equal([]string{
		EventAuthOK,
		EventRoomHistory,
		EventParticipants,
		EventPresence,
		EventReceiveMessage,
		EventRoomUsers,
	}, names)

	stored, err := f.messages.RecentByRoomID(ctx, "standup", 10)
	r.NoError(err)
	r.Len(stored, 1)
}

// The full lifecycle: two users meet in a room, talk, one leaves, a third
// arrives late and still sees the conversation.
func TestRoomLifecycle(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.joinAs(ctx, "alice", "standup")
	drainEvents(alice)

	bob := f.joinAs(ctx, "bob", "standup")
	drainEvents(bob)

	aliceEvents := drainEvents(alice)
	r.Equal([]string{EventParticipants, EventPresence}, eventNames(aliceEvents))

	f.coordinator.HandleSendMessage(ctx, alice, SendMessagePayload{RoomID: "standup", Text: "morning"})
	f.coordinator.HandleSendMessage(ctx, bob, SendMessagePayload{RoomID: "standup", Text: "hey"})
	drainEvents(alice)
	drainEvents(bob)

	f.coordinator.HandleLeaveRoom(ctx, bob, "standup")
	r.Len(f.registry.Roster("standup"), 1)

	carol := f.joinAs(ctx, "carol", "standup")
	events := drainEvents(carol)
	r.Equal(EventRoomHistory, events[0].Event)

	history, ok := events[0].Data.(RoomHistoryPayload)
	r.True(ok)
	r.Len(history.Messages, 2)
	r.Equal("morning", history.Messages[0].Text)
	r.Equal("hey", history.Messages[1].Text)

	meeting, err := f.meetings.GetByID(ctx, "standup")
	r.NoError(err)
	r.Len(meeting.Participants, 3)
}

func TestHistoryReplayIsCapped(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		msg, err := domain.NewMessage(domain.Identity{ID: "u-1", Name: "alice"}, "busy", fmt.Sprintf("m%02d", i), nil, "")
		r.NoError(err)
		r.NoError(f.messages.Append(ctx, msg))
	}

	s := f.newSession()
	f.coordinator.HandleJoinRoom(ctx, s, JoinRoomPayload{RoomID: "busy", Username: "bob"})

	events := drainEvents(s)
	history, ok := events[0].Data.(RoomHistoryPayload)
	r.True(ok)
	r.Len(history.Messages, 50)
	r.Equal("m10", history.Messages[0].Text)
	r.Equal("m59", history.Messages[49].Text)
}
