package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/viewcall/chatrelay/internal/domain"
)

func appendMessage(t *testing.T, repo domain.MessageRepository, roomID, text string) *domain.Message {
	t.Helper()

	msg, err := domain.NewMessage(domain.Identity{ID: "u-1", Name: "alice"}, roomID, text, nil, "")
	require.NoError(t, err)
	require.NoError(t, repo.Append(context.Background(), msg))

	return msg
}

func TestMessageRepositoryOrderAndLimit(t *testing.T) {
	r := require.New(t)
	repo := NewMessageRepository(0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		appendMessage(t, repo, "standup", fmt.Sprintf("m%d", i))
	}

	all, err := repo.RecentByRoomID(ctx, "standup", 10)
	r.NoError(err)
	r.Len(all, 5)
	r.Equal("m0", all[0].Text)
	r.Equal("m4", all[4].Text)

	capped, err := repo.RecentByRoomID(ctx, "standup", 2)
	r.NoError(err)
	r.Len(capped, 2)
	r.Equal("m3", capped[0].Text)
	r.Equal("m4", capped[1].Text)
}

func TestMessageRepositoryEvictsOldest(t *testing.T) {
	r := require.New(t)
	repo := NewMessageRepository(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		appendMessage(t, repo, "standup", fmt.Sprintf("m%d", i))
	}

	all, err := repo.RecentByRoomID(ctx, "standup", 10)
	r.NoError(err)
	r.Len(all, 3)
	r.Equal("m2", all[0].Text)
	r.Equal("m4", all[2].Text)
}

func TestMessageRepositoryByRoomBefore(t *testing.T) {
	r := require.New(t)
	repo := NewMessageRepository(0)
	ctx := context.Background()

	first := appendMessage(t, repo, "standup", "early")
	time.Sleep(2 * time.Millisecond)
	cutoff := time.Now().UTC()
	time.Sleep(2 * time.Millisecond)
	appendMessage(t, repo, "standup", "late")

	page, err := repo.ByRoomBefore(ctx, "standup", cutoff, 10)
	r.NoError(err)
	r.Len(page, 1)
	r.Equal(first.ID, page[0].ID)
}

func TestMessageRepositoryRoomsAreIsolated(t *testing.T) {
	r := require.New(t)
	repo := NewMessageRepository(0)
	ctx := context.Background()

	appendMessage(t, repo, "a", "for a")
	appendMessage(t, repo, "b", "for b")

	got, err := repo.RecentByRoomID(ctx, "a", 10)
	r.NoError(err)
	r.Len(got, 1)
	r.Equal("for a", got[0].Text)
}

func TestMeetingRepositoryParticipantUnion(t *testing.T) {
	r := require.New(t)
	repo := NewMeetingRepository()
	ctx := context.Background()

	alice := domain.Participant{UserID: "u-1", Name: "alice"}
	bob := domain.Participant{UserID: "u-2", Name: "bob"}

	r.NoError(repo.AddParticipant(ctx, "weekly", alice))
	r.NoError(repo.AddParticipant(ctx, "weekly", alice))
	r.NoError(repo.AddParticipant(ctx, "weekly", bob))

	meeting, err := repo.GetByID(ctx, "weekly")
	r.NoError(err)
	r.Len(meeting.Participants, 2)
	r.Zero(meeting.Duration)
}

func TestMeetingRepositoryEnd(t *testing.T) {
	r := require.New(t)
	repo := NewMeetingRepository()
	ctx := context.Background()

	r.NoError(repo.AddParticipant(ctx, "weekly", domain.Participant{UserID: "u-1", Name: "alice"}))

	meeting, err := repo.End(ctx, "weekly", 900, []domain.Participant{
		{UserID: "u-1", Name: "alice"},
		{UserID: "u-2", Name: "bob"},
	})
	r.NoError(err)
	r.Equal(int64(900), meeting.Duration)
	r.Len(meeting.Participants, 2)

	// ending again overwrites duration, participants only grow
	meeting, err = repo.End(ctx, "weekly", 1200, nil)
	r.NoError(err)
	r.Equal(int64(1200), meeting.Duration)
	r.Len(meeting.Participants, 2)
}

func TestMeetingRepositoryEndUnknownCreates(t *testing.T) {
	r := require.New(t)
	repo := NewMeetingRepository()

	meeting, err := repo.End(context.Background(), "adhoc", 60, nil)
	r.NoError(err)
	r.Equal("adhoc", meeting.MeetingID)
	r.Equal(int64(60), meeting.Duration)
	r.Empty(meeting.Participants)
}

func TestMeetingRepositoryGetUnknown(t *testing.T) {
	r := require.New(t)
	repo := NewMeetingRepository()

	_, err := repo.GetByID(context.Background(), "nope")
	r.ErrorIs(err, domain.ErrMeetingNotFound)
}

func TestRoomRepositoryUpsert(t *testing.T) {
	r := require.New(t)
	repo := NewRoomRepository()
	ctx := context.Background()

	r.NoError(repo.Upsert(ctx, &domain.Room{ID: "standup", Name: "Standup"}))

	room, err := repo.GetByID(ctx, "standup")
	r.NoError(err)
	r.Equal("Standup", room.Name)
	r.False(room.CreatedAt.IsZero())

	r.NoError(repo.Upsert(ctx, &domain.Room{ID: "standup", Name: "Daily Standup", IsPrivate: true}))

	room, err = repo.GetByID(ctx, "standup")
	r.NoError(err)
	r.Equal("Daily Standup", room.Name)
	r.True(room.IsPrivate)
}

func TestRoomRepositoryGetUnknown(t *testing.T) {
	r := require.New(t)
	repo := NewRoomRepository()

	_, err := repo.GetByID(context.Background(), "nope")
	r.ErrorIs(err, domain.ErrRoomNotFound)
}

func TestAuditRepositoryByRoom(t *testing.T) {
	r := require.New(t)
	repo := NewAuditRepository()
	ctx := context.Background()

	actor := domain.Identity{ID: "u-1", Name: "alice"}
	r.NoError(repo.Log(ctx, domain.NewChatAuditLog("standup", domain.EventMemberJoined, actor, nil)))
	r.NoError(repo.Log(ctx, domain.NewChatAuditLog("lobby", domain.EventMemberJoined, actor, nil)))
	r.NoError(repo.Log(ctx, domain.NewChatAuditLog("standup", domain.EventMemberLeft, actor, nil)))

	logs, err := repo.ByRoomID(ctx, "standup", 10)
	r.NoError(err)
	r.Len(logs, 2)

	// newest first
	r.Equal(domain.EventMemberLeft, logs[0].EventType)
}
