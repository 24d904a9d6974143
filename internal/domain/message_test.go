package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMessageDefaultsRoom(t *testing.T) {
	r := require.New(t)

	msg, err := NewMessage(Identity{ID: "u-1", Name: "alice"}, "", "hello", nil, "")
	r.NoError(err)
	r.Equal(DefaultRoomID, msg.RoomID)
	r.Equal("u-1", msg.SenderID)
	r.Equal("alice", msg.SenderName)
	r.NotEmpty(msg.ID)
	r.False(msg.CreatedAt.IsZero())
}

func TestNewMessageRejectsBlankText(t *testing.T) {
	r := require.New(t)

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := NewMessage(Identity{ID: "u-1"}, "standup", text, nil, "")
		r.ErrorIs(err, ErrInvalidInput)
	}
}

func TestNewMessageKeepsRecipient(t *testing.T) {
	r := require.New(t)

	msg, err := NewMessage(Identity{ID: "u-1"}, "standup", "psst", map[string]any{"k": "v"}, "u-2")
	r.NoError(err)
	r.Equal("u-2", msg.RecipientID)
	r.Equal("v", msg.Meta["k"])
}

func TestMeetingAddParticipantIsIdempotent(t *testing.T) {
	r := require.New(t)

	m := &Meeting{MeetingID: "weekly"}
	m.AddParticipant(Participant{UserID: "u-1", Name: "alice"})
	m.AddParticipant(Participant{UserID: "u-1", Name: "alice"})
	m.AddParticipant(Participant{UserID: "u-2", Name: "bob"})

	r.Len(m.Participants, 2)
	r.True(m.HasParticipant("u-1"))
	r.False(m.HasParticipant("u-3"))
}

func TestGuestIdentity(t *testing.T) {
	r := require.New(t)

	g := GuestIdentity("conn-1")
	r.Equal("conn-1", g.ID)
	r.Equal(GuestName, g.Name)
	r.False(g.IsZero())
	r.True(Identity{}.IsZero())
}
